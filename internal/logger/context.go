package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to every log record emitted with the context.
type LogFields struct {
	ConnID      string // Relay connection ID
	WorkspaceID string
	UserID      string
	Component   string // e.g. "relay.ws", "client"
}

// WithLogFields merges fields into the context, newer non-empty values win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := GetLogFields(ctx)
	if fields.ConnID != "" {
		merged.ConnID = fields.ConnID
	}
	if fields.WorkspaceID != "" {
		merged.WorkspaceID = fields.WorkspaceID
	}
	if fields.UserID != "" {
		merged.UserID = fields.UserID
	}
	if fields.Component != "" {
		merged.Component = fields.Component
	}
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns the fields stored in ctx, or zero LogFields.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}
