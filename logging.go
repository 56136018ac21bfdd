package seeker

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog.Logger for the caller to hold; there is no
// package-level logger, and no constructor in this module takes one.
// Console-pretty output in a terminal, JSON lines otherwise.
func NewLogger(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		w = zerolog.ConsoleWriter{Out: f}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
