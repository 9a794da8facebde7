package analytics

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kailas-cloud/careatlas/internal/domain/analytics"
)

// execer is the consumer interface over *sql.DB (ISP).
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PingContext(ctx context.Context) error
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS search_analytics (
	id                UUID PRIMARY KEY,
	search_query      TEXT NOT NULL DEFAULT '',
	search_type       TEXT NOT NULL,
	location_lat      DOUBLE PRECISION,
	location_lng      DOUBLE PRECISION,
	category          TEXT NOT NULL DEFAULT '',
	cache_hit         BOOLEAN NOT NULL DEFAULT FALSE,
	response_time_ms  BIGINT NOT NULL DEFAULT 0,
	result_count      INTEGER NOT NULL DEFAULT 0,
	api_cost_estimate NUMERIC(12, 6) NOT NULL DEFAULT 0,
	user_agent        TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertSQL = `INSERT INTO search_analytics (
	id, search_query, search_type, location_lat, location_lng, category,
	cache_hit, response_time_ms, result_count, api_cost_estimate, user_agent, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// PostgresSink appends events to the search_analytics table.
type PostgresSink struct {
	db execer
}

// NewPostgresSink creates a Postgres-backed sink.
func NewPostgresSink(db execer) *PostgresSink {
	return &PostgresSink{db: db}
}

// EnsureSchema creates the analytics table when missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create search_analytics: %w", err)
	}
	return nil
}

// Record inserts one event.
func (s *PostgresSink) Record(ctx context.Context, e analytics.Event) error {
	var lat, lng sql.NullFloat64
	if e.Location != nil {
		lat = sql.NullFloat64{Float64: e.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: e.Location.Lng, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, insertSQL,
		e.ID.String(),
		e.Query,
		e.SearchType,
		lat,
		lng,
		e.Category,
		e.CacheHit,
		e.ResponseTimeMS,
		e.ResultCount,
		e.EstimatedCost,
		e.UserAgent,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert search_analytics: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresSink) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}
