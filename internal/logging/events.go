package logging

import (
	"context"
	"log/slog"
)

const defaultHint = "rerun with --log-level debug for details"

// WarnWithContext logs a warning that always carries event_type, error_hint and
// impact. Missing keys get generic values so every WARN line tells the
// operator what broke and what to try next.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		slog.String(FieldEventType, eventType),
		slog.String(FieldErrorHint, defaultHint),
		slog.String(FieldImpact, "sync continued with reduced output"),
	)
	logger.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs...)
}

// ErrorWithContext is WarnWithContext at error level, without an impact default.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		slog.String(FieldEventType, eventType),
		slog.String(FieldErrorHint, defaultHint),
	)
	logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

// withDefaults appends each fallback whose key is absent from attrs.
func withDefaults(attrs []slog.Attr, fallbacks ...slog.Attr) []slog.Attr {
	present := make(map[string]bool, len(attrs))
	for _, attr := range attrs {
		present[attr.Key] = true
	}
	for _, fallback := range fallbacks {
		if !present[fallback.Key] {
			attrs = append(attrs, fallback)
		}
	}
	return attrs
}
