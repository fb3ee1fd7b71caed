package scan

import (
	"fmt"
	"os"
	"path/filepath"
)

// Task is the ordered set of directory roots one worker walks. A task is
// immutable once handed to a worker and consumed entirely by that worker.
type Task struct {
	Roots []string
	// EmitRoots controls whether each root itself is written to the
	// intermediate file in addition to the entries beneath it. It is
	// false only for the degenerate single-task partition over the scan
	// root, where the root's own entries are wanted but not the root.
	EmitRoots bool
}

// Partition lists the immediate children of root and distributes all of
// them (files and directories alike) round-robin across workers tasks, so
// every child lands in exactly one task. Children fewer than workers leave
// the excess tasks empty. A root with no children yields a single task
// that enumerates the root itself as a leaf. A root that cannot be listed
// is fatal: no partition, no workers.
func Partition(root string, workers int) ([]Task, error) {
	if workers < 1 {
		workers = 1
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list scan root %s: %w", root, err)
	}
	if len(entries) == 0 {
		return []Task{{Roots: []string{root}}}, nil
	}
	tasks := make([]Task, workers)
	for i := range tasks {
		tasks[i].EmitRoots = true
	}
	for i, e := range entries {
		t := &tasks[i%workers]
		t.Roots = append(t.Roots, filepath.Join(root, e.Name()))
	}
	return tasks, nil
}
