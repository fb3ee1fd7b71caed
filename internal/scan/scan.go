// Package scan implements parallel directory enumeration. A partitioner
// splits the scan root's immediate children across N workers, each worker
// streams every path it discovers into its own intermediate file, and a
// single-threaded merge concatenates the intermediates into the final
// output once all workers have joined. Workers share no mutable state;
// results travel back as messages, and a failed worker never cancels its
// siblings.
package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/dirsweep/dirsweep/internal/pathenc"
)

var (
	// ErrAllWorkersFailed means no worker produced usable output and no
	// output file was written.
	ErrAllWorkersFailed = errors.New("all scan workers failed")
	// ErrScanLocked means another scan is already writing this output file.
	ErrScanLocked = errors.New("output file locked by another scan")
)

// Options configures a scan. The zero value is usable; unset fields get
// defaults.
type Options struct {
	Workers    int              // concurrent scan workers, default runtime.NumCPU()
	BufferSize int              // write/copy buffer size in bytes, default 8 KiB
	ScratchDir string           // intermediate file location, default <output dir>/.dirsweep
	Compress   bool             // zstd-compress intermediate files
	Platform   pathenc.Platform // path conventions for encoded output, default native
	Logger     zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = runtime.NumCPU()
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 8 * 1024
	}
	return o
}

// WritePathsToFile enumerates every filesystem entry under basePath and
// writes one encoded path per line to outputFile, in partition order then
// per-worker discovery order. It returns a Report with counts even when
// some workers failed; the error is non-nil only when no usable output
// was produced (unreadable root, held scan lock, every worker failed, or
// an unwritable output file).
func WritePathsToFile(ctx context.Context, basePath, outputFile string, opts Options) (*Report, error) {
	o := opts.withDefaults()
	log := o.Logger
	start := time.Now()

	base, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}
	output, err := filepath.Abs(outputFile)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	// Partitioning happens before the output file is touched, so an
	// unreadable root leaves any existing output intact.
	tasks, err := Partition(base, o.Workers)
	if err != nil {
		return nil, err
	}

	lock := flock.New(output + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire scan lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrScanLocked, lock.Path())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn().Err(err).Msg("release scan lock failed")
		}
		_ = os.Remove(lock.Path())
	}()

	scratch := o.ScratchDir
	if scratch == "" {
		scratch = filepath.Join(filepath.Dir(output), ".dirsweep")
	}
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	log.Info().
		Str("base", base).
		Str("output", output).
		Int("workers", len(tasks)).
		Bool("compress", o.Compress).
		Msg("scan starting")

	// One worker per task. Each worker owns its intermediate file
	// exclusively and reports exactly one result; a failure does not
	// cancel siblings, so a plain join is all the coordination needed.
	results := make([]WorkerResult, len(tasks))
	resCh := make(chan WorkerResult, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(id int, task Task) {
			defer wg.Done()
			wlog := log.With().Int("worker", id).Logger()
			resCh <- runWorker(ctx, id, task, partPath(scratch, id, o.Compress), o, wlog)
		}(i, task)
	}
	wg.Wait()
	close(resCh)
	for r := range resCh {
		results[r.WorkerID] = r
	}

	report := &Report{Workers: results}
	var parts []string
	failed := 0
	for _, r := range results {
		report.TotalErrors += r.ErrorCount
		if r.Status == Failed {
			failed++
			log.Error().Err(r.FatalErr).Int("worker", r.WorkerID).Msg("worker failed")
			continue
		}
		// A Failed sibling may have left nothing behind; merge only what
		// exists and holds data.
		if fi, err := os.Stat(r.IntermediatePath); err == nil && fi.Size() > 0 {
			parts = append(parts, r.IntermediatePath)
		}
	}

	if failed == len(results) {
		cleanupScratch(results, scratch, log)
		return report, fmt.Errorf("%w: first failure: %v", ErrAllWorkersFailed, results[0].FatalErr)
	}

	total, err := mergeParts(parts, output, o.BufferSize, log)
	if err != nil {
		// Uncopied parts stay in the scratch dir for manual recovery.
		return report, fmt.Errorf("merge intermediates: %w", err)
	}
	report.TotalPathsWritten = total

	cleanupScratch(results, scratch, log)

	report.Elapsed = time.Since(start)
	log.Info().
		Int64("paths", report.TotalPathsWritten).
		Int64("errors", report.TotalErrors).
		Int("workers_failed", failed).
		Dur("elapsed", report.Elapsed).
		Msg("scan complete")
	return report, nil
}

// partPath returns the deterministic intermediate file path for a worker,
// so retries and debugging can locate it by index.
func partPath(scratch string, id int, compress bool) string {
	name := fmt.Sprintf("part-%04d.txt", id)
	if compress {
		name += ".zst"
	}
	return filepath.Join(scratch, name)
}

// cleanupScratch removes whatever intermediates remain, including files
// left by failed workers, then the scratch dir itself. Best effort.
func cleanupScratch(results []WorkerResult, scratch string, log zerolog.Logger) {
	for _, r := range results {
		if err := os.Remove(r.IntermediatePath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("part", r.IntermediatePath).Msg("remove intermediate failed")
		}
	}
	_ = os.Remove(scratch)
}
