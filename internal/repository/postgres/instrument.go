// Package postgres implements the repository interfaces on database/sql with
// the lib/pq driver.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/infrastructure/observability"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const uniqueViolation = "23505"

// call tracks one repository method: a span plus the call counter and
// duration histogram.
type call struct {
	span   trace.Span
	method string
	start  time.Time
}

func startCall(ctx context.Context, tracerName, method string, attrs ...attribute.KeyValue) (context.Context, *call) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, method)
	span.SetAttributes(attrs...)
	return ctx, &call{span: span, method: method, start: time.Now()}
}

func (c *call) end(err error) {
	status := "success"
	if err != nil {
		status = "error"
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, err.Error())
	}
	observability.RepositoryCalls.WithLabelValues(c.method, status).Inc()
	observability.RepositoryDuration.WithLabelValues(c.method).Observe(time.Since(c.start).Seconds())
	c.span.End()
}

func isUniqueViolation(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr, true
	}
	return nil, false
}

// rollback aborts dbTx and folds a rollback failure into err.
func rollback(dbTx *sql.Tx, method string, err error) error {
	if rbErr := dbTx.Rollback(); rbErr != nil {
		slog.Error("rollback failed", "method", method, "error", rbErr)
		return fmt.Errorf("rollback failed: %v; original error: %w", rbErr, err)
	}
	return err
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
