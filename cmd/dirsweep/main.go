package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/dirsweep/dirsweep/internal/logx"
	"github.com/dirsweep/dirsweep/internal/scan"
)

func main() {
	defaultWorkers := runtime.NumCPU()
	if env := os.Getenv("DIRSWEEP_WORKERS"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			defaultWorkers = n
		}
	}

	var (
		rootPath   = flag.String("root", ".", "Directory tree to enumerate")
		outputPath = flag.String("out", "paths.txt", "Output file, one path per line")
		workers    = flag.Int("workers", defaultWorkers, "Number of parallel scan workers")
		bufSize    = flag.Int("buffer", 8*1024, "Write/copy buffer size in bytes")
		compress   = flag.Bool("compress", false, "zstd-compress intermediate files")
		scratchDir = flag.String("scratch", "", "Scratch directory for intermediate files (default: next to output)")
	)
	flag.Parse()

	logger := logx.NewLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := scan.WritePathsToFile(ctx, *rootPath, *outputPath, scan.Options{
		Workers:    *workers,
		BufferSize: *bufSize,
		ScratchDir: *scratchDir,
		Compress:   *compress,
		Logger:     logger,
	})
	if err != nil {
		// No usable output was produced; partial per-entry errors never
		// reach this path.
		logger.Fatal().Err(err).Msg("scan failed")
	}

	for _, w := range report.Workers {
		if w.Status == scan.Completed {
			continue
		}
		logger.Warn().
			Int("worker", w.WorkerID).
			Str("status", w.Status.String()).
			Int64("errors", w.ErrorCount).
			AnErr("fatal", w.FatalErr).
			Msg("worker did not complete cleanly")
	}
	logger.Info().
		Str("output", *outputPath).
		Int64("paths", report.TotalPathsWritten).
		Int64("errors", report.TotalErrors).
		Msg("done")
}
