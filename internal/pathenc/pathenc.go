// Package pathenc normalizes raw filesystem paths into the canonical text
// form written to scan output files. Encoding is a pure string
// transformation parameterized by target platform, so windows long-path
// behavior is testable from any host.
package pathenc

import (
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// Platform selects the path conventions the encoder targets.
type Platform int

const (
	// Native targets the conventions of the running OS.
	Native Platform = iota
	Unix
	Windows
)

// windowsMaxPath is the classic MAX_PATH ceiling. Paths at or beyond it
// need the extended-length prefix to stay usable through Win32 APIs.
const windowsMaxPath = 260

const (
	longPathPrefix = `\\?\`
	uncLongPrefix  = `\\?\UNC\`
)

// Encoder turns raw paths into their canonical on-disk representation.
// The logger is only used to flag structurally invalid input; encoding
// itself never fails.
type Encoder struct {
	platform Platform
	log      zerolog.Logger
}

// New returns an Encoder targeting the given platform.
func New(platform Platform, log zerolog.Logger) *Encoder {
	if platform == Native {
		if runtime.GOOS == "windows" {
			platform = Windows
		} else {
			platform = Unix
		}
	}
	return &Encoder{platform: platform, log: log}
}

// Encode returns the canonical text form of raw. An empty input is passed
// through unchanged with a logged warning.
func (e *Encoder) Encode(raw string) string {
	if raw == "" {
		e.log.Warn().Msg("empty path passed to encoder")
		return raw
	}
	if e.platform == Windows {
		return e.encodeWindows(raw)
	}
	// Unix paths arrive with canonical separators and have no length
	// ceiling worth prefixing around.
	return raw
}

func (e *Encoder) encodeWindows(raw string) string {
	p := strings.ReplaceAll(raw, "/", `\`)
	if strings.HasPrefix(p, longPathPrefix) {
		// Already extended-length (covers \\?\UNC\ too).
		return p
	}
	if len(p) < windowsMaxPath {
		return p
	}
	if strings.HasPrefix(p, `\\`) {
		return uncLongPrefix + p[2:]
	}
	return longPathPrefix + p
}
