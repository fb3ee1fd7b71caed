package scan

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/dirsweep/dirsweep/internal/pathenc"
)

// runWorker walks every root in task and appends one encoded path per line
// to the worker's exclusively-owned intermediate file at partPath. Writes
// are buffered at o.BufferSize and optionally zstd-compressed.
//
// Per-entry access failures (permission denied, vanished file, broken
// link) are logged, counted, and skipped; an unlistable directory loses
// its subtree but the walk goes on. Only a failure of the intermediate
// file itself, a cancelled context, or a panic is fatal, reported as
// Status Failed with FatalErr set and no reliance on whatever was
// partially written.
func runWorker(ctx context.Context, id int, task Task, partPath string, o Options, log zerolog.Logger) (res WorkerResult) {
	res = WorkerResult{WorkerID: id, IntermediatePath: partPath}
	defer func() {
		if r := recover(); r != nil {
			res.Status = Failed
			res.FatalErr = fmt.Errorf("worker panicked: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Status = Failed
		res.FatalErr = err
		return res
	}

	start := time.Now()
	log.Debug().Int("roots", len(task.Roots)).Str("part", partPath).Msg("worker starting")

	f, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		res.Status = Failed
		res.FatalErr = fmt.Errorf("open intermediate file: %w", err)
		return res
	}

	bw := bufio.NewWriterSize(f, o.BufferSize)
	var out io.Writer = bw
	var zw *zstd.Encoder
	if o.Compress {
		zw, err = zstd.NewWriter(bw)
		if err != nil {
			f.Close()
			res.Status = Failed
			res.FatalErr = fmt.Errorf("init zstd encoder: %w", err)
			return res
		}
		out = zw
	}

	enc := pathenc.New(o.Platform, log)
	for _, root := range task.Roots {
		if err := walkRoot(ctx, root, task.EmitRoots, enc, out, &res, log); err != nil {
			// Write failure or cancellation: the intermediate is not
			// trustworthy, give up on the whole task.
			f.Close()
			res.Status = Failed
			res.FatalErr = err
			return res
		}
	}

	// A short flush or close loses tail entries, so both are fatal.
	if zw != nil {
		if err := zw.Close(); err != nil {
			f.Close()
			res.Status = Failed
			res.FatalErr = fmt.Errorf("finish zstd stream: %w", err)
			return res
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		res.Status = Failed
		res.FatalErr = fmt.Errorf("flush intermediate file: %w", err)
		return res
	}
	if err := f.Close(); err != nil {
		res.Status = Failed
		res.FatalErr = fmt.Errorf("close intermediate file: %w", err)
		return res
	}

	if res.ErrorCount > 0 {
		res.Status = CompletedWithErrors
	} else {
		res.Status = Completed
	}
	log.Info().
		Int("roots", len(task.Roots)).
		Int64("paths", res.PathCount).
		Int64("errors", res.ErrorCount).
		Dur("elapsed", time.Since(start)).
		Str("status", res.Status.String()).
		Msg("worker finished")
	return res
}

// walkRoot recursively walks one task root, encoding and emitting every
// entry it can reach. The returned error is fatal for the worker;
// per-entry failures are absorbed into res.ErrorCount.
func walkRoot(ctx context.Context, root string, emitRoot bool, enc *pathenc.Encoder, out io.Writer, res *WorkerResult, log zerolog.Logger) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			// Unreadable entry or unlistable directory: count it, skip
			// its subtree, keep going.
			res.ErrorCount++
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			return nil
		}
		if path == root && !emitRoot {
			return nil
		}
		if _, werr := io.WriteString(out, enc.Encode(path)+"\n"); werr != nil {
			return fmt.Errorf("write intermediate file: %w", werr)
		}
		res.PathCount++
		return nil
	})
}
