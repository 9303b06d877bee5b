// Package logging wires the process-wide slog logger: colored output on the
// terminal plus a line-numbered text log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/syncany/syncany-go/internal/utils"
)

const terminalTimeFormat = "2006-01-02T15:04:05.000Z07:00"

type Options struct {
	// File receives a copy of every record. Empty disables file logging.
	File  string
	Level slog.Level
	// Stdout is the terminal sink, os.Stdout when nil.
	Stdout io.Writer
}

// Setup installs the default logger and returns a closer for the log file.
func Setup(opts Options) (io.Closer, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	handlers := []slog.Handler{
		tint.NewHandler(stdout, &tint.Options{
			Level:      opts.Level,
			TimeFormat: terminalTimeFormat,
			NoColor:    !isTerminal(stdout),
		}),
	}

	var closer io.Closer = closeFunc(func() error { return nil })
	if opts.File != "" {
		if err := utils.EnsureParent(opts.File); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		lines := NewLineWriter(file)
		handlers = append(handlers, slog.NewTextHandler(lines, &slog.HandlerOptions{
			Level: opts.Level,
			// the line writer stamps the time itself
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.Attr{}
				}
				return a
			},
		}))
		closer = closeFunc(func() error {
			lines.Close()
			return file.Close()
		})
	}

	slog.SetDefault(slog.New(NewFanoutHandler(handlers...)))
	return closer, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }
