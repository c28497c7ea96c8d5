// Package logger configures structured logging for the relay and client.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs the process-wide slog logger. Development gets readable
// text at debug level, production gets JSON at info level. A non-empty
// level overrides the environment default.
func Setup(production bool, level string) {
	slog.SetDefault(New(os.Stdout, production, level))
}

// New builds a logger writing to w with the same rules as Setup.
func New(w io.Writer, production bool, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if production {
		opts.Level = slog.LevelInfo
	}
	if level != "" {
		opts.Level = parseLevel(level)
	}

	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewContextHandler(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextHandler adds the LogFields stored in the context to every record.
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler wraps h.
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := GetLogFields(ctx)
	if fields.ConnID != "" {
		r.AddAttrs(slog.String("conn_id", fields.ConnID))
	}
	if fields.WorkspaceID != "" {
		r.AddAttrs(slog.String("workspace_id", fields.WorkspaceID))
	}
	if fields.UserID != "" {
		r.AddAttrs(slog.String("user_id", fields.UserID))
	}
	if fields.Component != "" {
		r.AddAttrs(slog.String("component", fields.Component))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}
