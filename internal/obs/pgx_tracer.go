package obs

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxStatementLen = 300

// PGXTracer is a pgx.QueryTracer that wraps each cart snapshot query in a
// client span named after its SQL verb.
type PGXTracer struct{}

var _ pgx.QueryTracer = PGXTracer{}

// TraceQueryStart opens the span for data.SQL.
func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	verb, statement := describeSQL(data.SQL)
	ctx, _ = otel.Tracer("storefront/postgres").Start(ctx, "postgres "+verb,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation.name", verb),
			attribute.String("db.query.text", statement),
		),
	)
	return ctx
}

// TraceQueryEnd closes the span opened by TraceQueryStart.
func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	if data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows) {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, "query failed")
	}
	span.End()
}

// describeSQL returns the lower-cased leading keyword of sql and the
// statement itself with whitespace collapsed and length capped.
func describeSQL(sql string) (string, string) {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "query", ""
	}
	statement := strings.Join(fields, " ")
	if len(statement) > maxStatementLen {
		statement = statement[:maxStatementLen] + "..."
	}
	return strings.ToLower(fields[0]), statement
}
