// Package analytics persists search analytics events.
package analytics

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/careatlas/internal/domain/analytics"
)

// LogSink writes events as structured log lines.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Record implements the usecase sink interface.
func (s *LogSink) Record(_ context.Context, e analytics.Event) error {
	fields := []zap.Field{
		zap.String("event_id", e.ID.String()),
		zap.String("search_type", e.SearchType),
		zap.String("query", e.Query),
		zap.String("category", e.Category),
		zap.Bool("cache_hit", e.CacheHit),
		zap.Int64("response_time_ms", e.ResponseTimeMS),
		zap.Int("result_count", e.ResultCount),
		zap.Float64("estimated_cost", e.EstimatedCost),
	}
	if e.Location != nil {
		fields = append(fields, zap.Float64("lat", e.Location.Lat), zap.Float64("lng", e.Location.Lng))
	}
	s.logger.Info("search_analytics", fields...)
	return nil
}
