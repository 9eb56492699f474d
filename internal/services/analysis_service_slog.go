package services

import (
	"context"
	"log/slog"

	"tabsight/internal/infrastructure"
)

// Helper for error logging in analysis service operations using the
// centralized infrastructure logger.

// logAnalysisError logs an error with the standard service attributes. The
// context-aware logger carries the trace id when one is set.
func logAnalysisError(ctx context.Context, action, message string, attrs ...slog.Attr) {
	logger := infrastructure.LoggerWithContext(ctx)

	allAttrs := []slog.Attr{
		slog.String("component", "analysis_service"),
		slog.String("action", action),
	}
	allAttrs = append(allAttrs, attrs...)

	logger.LogAttrs(ctx, slog.LevelError, message, allAttrs...)
}
