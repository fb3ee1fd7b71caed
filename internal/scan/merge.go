package scan

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
)

// mergeParts concatenates intermediate files into outputPath in the given
// (worker index) order using fixed-size copy buffers, and returns the
// number of newline-terminated paths written. Each part is deleted as
// soon as it has been fully copied, so a crash mid-merge leaves the
// already-merged parts gone and the rest intact; re-running the merge on
// the survivors appends no duplicates.
//
// An unreadable part is logged and skipped, degrading to a partial result.
// Only an unwritable output is fatal.
func mergeParts(parts []string, outputPath string, bufSize int, log zerolog.Logger) (int64, error) {
	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}
	w := bufio.NewWriterSize(out, bufSize)

	var total int64
	for _, part := range parts {
		n, copied, err := copyPart(w, part, bufSize, log)
		if err != nil {
			out.Close()
			return total, err
		}
		total += n
		if !copied {
			continue
		}
		if err := os.Remove(part); err != nil {
			log.Warn().Err(err).Str("part", part).Msg("remove merged intermediate failed")
		}
	}

	if err := w.Flush(); err != nil {
		out.Close()
		return total, fmt.Errorf("flush output file: %w", err)
	}
	if err := out.Close(); err != nil {
		return total, fmt.Errorf("close output file: %w", err)
	}
	return total, nil
}

// copyPart streams one intermediate file into w, counting newline-delimited
// entries. copied reports whether the part was read to the end and may be
// deleted. Read-side failures are non-fatal; write-side failures are.
func copyPart(w io.Writer, part string, bufSize int, log zerolog.Logger) (lines int64, copied bool, err error) {
	f, err := os.Open(part)
	if err != nil {
		log.Warn().Err(err).Str("part", part).Msg("skipping unreadable intermediate")
		return 0, false, nil
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(part, ".zst") {
		dec, derr := zstd.NewReader(f)
		if derr != nil {
			log.Warn().Err(derr).Str("part", part).Msg("skipping undecodable intermediate")
			return 0, false, nil
		}
		defer dec.Close()
		r = dec
	}

	buf := make([]byte, bufSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			lines += int64(bytes.Count(buf[:n], []byte{'\n'}))
			if _, werr := w.Write(buf[:n]); werr != nil {
				return lines, false, fmt.Errorf("write output file: %w", werr)
			}
		}
		if rerr == io.EOF {
			return lines, true, nil
		}
		if rerr != nil {
			// Partial contribution stays in the output; the part is kept
			// on disk for manual recovery.
			log.Warn().Err(rerr).Str("part", part).Msg("intermediate read failed mid-copy")
			return lines, false, nil
		}
	}
}
