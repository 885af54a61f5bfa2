// Package logging builds the JSON line logger shared by the API and the portal CLI.
// Every entry carries "ts" (RFC3339Nano in the configured location) and a lowercase "level",
// matching the request log written by the HTTP middleware.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// New returns a JSON logger writing one object per line to w.
func New(w io.Writer, loc *time.Location) *slog.Logger {
	return NewWithLevel(w, loc, slog.LevelInfo)
}

// NewWithLevel is New with an explicit minimum level.
func NewWithLevel(w io.Writer, loc *time.Location, level slog.Leveler) *slog.Logger {
	if loc == nil {
		loc = time.UTC
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String("ts", a.Value.Time().In(loc).Format(time.RFC3339Nano))
			case slog.LevelKey:
				return slog.String("level", strings.ToLower(a.Value.String()))
			}
			return a
		},
	})
	return slog.New(h)
}

// Discard returns a logger that drops everything. Useful as a zero value in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
