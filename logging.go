package gesture

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// NewLogger returns a console logger writing to w at the named level
// (falling back to warn). Colour is enabled only when w is a terminal.
func NewLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}

	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}
	return zerolog.New(console).Level(lvl).With().Timestamp().Logger()
}

// ComponentLogger returns l tagged with a component name.
func ComponentLogger(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
