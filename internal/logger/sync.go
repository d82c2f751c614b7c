// Package logger provides structured logging for the sync engine.
package logger

import (
	"log/slog"
	"os"
)

// SyncLogger logs queue and reconciliation events. Payload contents are
// never logged, only ids and kinds.
type SyncLogger struct {
	logger *slog.Logger
}

// NewSyncLogger creates a SyncLogger with JSON output at the given level.
func NewSyncLogger(level slog.Level) *SyncLogger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return &SyncLogger{
		logger: slog.New(handler),
	}
}

// NewSyncLoggerWithHandler creates a SyncLogger with a custom handler.
func NewSyncLoggerWithHandler(handler slog.Handler) *SyncLogger {
	return &SyncLogger{
		logger: slog.New(handler),
	}
}

// OpEnqueued logs a new queue entry.
func (s *SyncLogger) OpEnqueued(id, kind string) {
	s.logger.Debug("operation_enqueued",
		slog.String("op_id", id),
		slog.String("kind", kind),
	)
}

// OpDone logs a confirmed operation.
func (s *SyncLogger) OpDone(id, kind string) {
	s.logger.Info("operation_done",
		slog.String("op_id", id),
		slog.String("kind", kind),
	)
}

// OpRetried logs a retryable failure.
func (s *SyncLogger) OpRetried(id, kind string, retryCount int) {
	s.logger.Warn("operation_retried",
		slog.String("op_id", id),
		slog.String("kind", kind),
		slog.Int("retry_count", retryCount),
	)
}

// OpDropped logs a permanently failed or malformed operation being removed.
func (s *SyncLogger) OpDropped(id, kind, reason string) {
	s.logger.Warn("operation_dropped",
		slog.String("op_id", id),
		slog.String("kind", kind),
		slog.String("reason", reason),
	)
}

// PassSkipped logs a reconciliation pass that did not run.
func (s *SyncLogger) PassSkipped(reason string) {
	s.logger.Info("pass_skipped",
		slog.String("reason", reason),
	)
}

// PassCompleted logs the outcome tally of one reconciliation pass.
func (s *SyncLogger) PassCompleted(processed, done, retried, dropped int) {
	s.logger.Info("pass_completed",
		slog.Int("processed", processed),
		slog.Int("done", done),
		slog.Int("retried", retried),
		slog.Int("dropped", dropped),
	)
}

// StoreError logs an unexpected storage failure outside a request path.
func (s *SyncLogger) StoreError(operation string, err error) {
	s.logger.Error("store_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
