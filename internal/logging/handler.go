// Package logging provides a custom slog handler that integrates with
// the audit log: records at WARN level and above are forwarded to the
// database-backed audit trail as system entries.
package logging

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/whirlwindnoa/ams/internal/store"
)

// AuditLogHandler is a slog.Handler that wraps another handler and also
// writes WARN and ERROR level records to the audit log.
type AuditLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
}

// NewAuditLogHandler creates an AuditLogHandler that wraps the given
// handler. Records at WARN and above are written to both the wrapped
// handler and the audit log.
func NewAuditLogHandler(inner slog.Handler, db *sql.DB) *AuditLogHandler {
	return &AuditLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   slog.LevelWarn,
	}
}

// Enabled implements slog.Handler.
func (h *AuditLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *AuditLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToAuditLog(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *AuditLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AuditLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
	}
}

// WithGroup implements slog.Handler.
func (h *AuditLogHandler) WithGroup(name string) slog.Handler {
	return &AuditLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
	}
}

// writeToAuditLog appends the record as a system audit entry. A
// background context is used so the record survives request
// cancellation.
func (h *AuditLogHandler) writeToAuditLog(r slog.Record) {
	var sb strings.Builder
	sb.WriteString(levelPrefix(r.Level))
	sb.WriteString(r.Message)

	if r.NumAttrs() > 0 {
		sb.WriteString(" (")
		first := true
		r.Attrs(func(a slog.Attr) bool {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			sb.WriteString(a.Key)
			sb.WriteString(": ")
			sb.WriteString(a.Value.String())
			return true
		})
		sb.WriteString(")")
	}

	_ = h.queries.CreateAuditEntry(context.Background(), store.CreateAuditEntryParams{
		Action:    sb.String(),
		CreatedAt: time.Now(),
	})
}

func levelPrefix(level slog.Level) string {
	if level >= slog.LevelError {
		return "error: "
	}
	return "warning: "
}

// ParseLevel maps a configured level name to a slog.Level, defaulting
// to info for unknown values.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
