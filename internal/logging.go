package internal

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// NewLogger builds the process logger from the application config. The
// json format targets log collectors; text is tint's human-oriented
// output, coloured only when w is a terminal.
func NewLogger(cfg ApplicationConfig, w *os.File) *slog.Logger {
	if cfg.LogFormat == LogFormatText {
		return newTintLogger(w, cfg.LogLevel)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

// NewCLILogger returns the stderr logger used by one-shot commands.
func NewCLILogger(level slog.Level) *slog.Logger {
	return newTintLogger(os.Stderr, level)
}

func newTintLogger(f *os.File, level slog.Level) *slog.Logger {
	var w io.Writer = f
	noColor := !isatty.IsTerminal(f.Fd())
	if !noColor {
		w = colorable.NewColorable(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}))
}
