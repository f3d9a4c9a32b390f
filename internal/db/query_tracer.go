package db

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

type queryStartContextKey struct{}

// queryTracer logs every statement at debug level with its duration.
type queryTracer struct {
	logger *slog.Logger
}

func newQueryTracer(logger *slog.Logger) *queryTracer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &queryTracer{logger: logger}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartContextKey{}, time.Now())
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	started, ok := ctx.Value(queryStartContextKey{}).(time.Time)
	if !ok {
		return
	}

	attrs := []any{
		"duration_ms", time.Since(started).Milliseconds(),
		"rows_affected", data.CommandTag.RowsAffected(),
	}
	if data.Err != nil {
		attrs = append(attrs, "error", data.Err)
	}
	t.logger.Debug("query completed", attrs...)
}
