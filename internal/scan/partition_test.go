package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestPartitionDisjointCover(t *testing.T) {
	root := t.TempDir()
	children := []string{"a", "b", "c", "d", "e"}
	for _, name := range children[:3] {
		mustMkdir(t, filepath.Join(root, name))
	}
	for _, name := range children[3:] {
		mustWriteFile(t, filepath.Join(root, name), "x")
	}

	for _, workers := range []int{1, 2, 3, 5, 10} {
		tasks, err := Partition(root, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if len(tasks) != workers {
			t.Fatalf("workers=%d: got %d tasks", workers, len(tasks))
		}

		seen := map[string]int{}
		for _, task := range tasks {
			if !task.EmitRoots {
				t.Errorf("workers=%d: EmitRoots false on non-degenerate task", workers)
			}
			for _, r := range task.Roots {
				seen[r]++
			}
		}
		if len(seen) != len(children) {
			t.Errorf("workers=%d: covered %d children, want %d", workers, len(seen), len(children))
		}
		for _, name := range children {
			if n := seen[filepath.Join(root, name)]; n != 1 {
				t.Errorf("workers=%d: child %s assigned %d times", workers, name, n)
			}
		}

		// Round-robin keeps task sizes within one of each other.
		min, max := len(children), 0
		for _, task := range tasks {
			if len(task.Roots) < min {
				min = len(task.Roots)
			}
			if len(task.Roots) > max {
				max = len(task.Roots)
			}
		}
		if max-min > 1 {
			t.Errorf("workers=%d: unbalanced partition, min=%d max=%d", workers, min, max)
		}
	}
}

func TestPartitionEmptyRoot(t *testing.T) {
	root := t.TempDir()
	tasks, err := Partition(root, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if len(tasks[0].Roots) != 1 || tasks[0].Roots[0] != root {
		t.Errorf("degenerate task roots: %v, want [%s]", tasks[0].Roots, root)
	}
	if tasks[0].EmitRoots {
		t.Error("degenerate task must not emit the scan root itself")
	}
}

func TestPartitionUnreadableRoot(t *testing.T) {
	if _, err := Partition(filepath.Join(t.TempDir(), "missing"), 2); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestPartitionClampsWorkerCount(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "only"))

	tasks, err := Partition(root, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if len(tasks[0].Roots) != 1 {
		t.Errorf("got %d roots, want 1", len(tasks[0].Roots))
	}
}
