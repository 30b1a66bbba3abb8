package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/twofa/internal/audit/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, ins: ins}
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("audit.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *DB) CreateEvent(ctx context.Context, evt entity.Event) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "CreateEvent")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`INSERT INTO audit_events (id, user_id, kind, message_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (kind, message_id) DO NOTHING`,
		evt.ID, evt.UserID, evt.Kind.String(), evt.MessageID, []byte(evt.Detail), evt.CreatedAt,
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (s *DB) ListEvents(ctx context.Context, userID int64, take, skip int) (_ []entity.Event, _ int64, err error) {
	ctx, span := s.startSpan(ctx, "ListEvents")
	defer func() { s.endSpan(span, err) }()

	var total int64
	if err = s.conn.QueryRow(ctx, `SELECT count(*) FROM audit_events WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entity.Event{}, 0, nil
	}

	rows, err := s.conn.Query(ctx,
		`SELECT id, user_id, kind, message_id, detail, created_at FROM audit_events
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		userID, take, skip)
	if err != nil {
		return nil, 0, err
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Event, error) {
		var e entity.Event
		var detail []byte
		if err := row.Scan(&e.ID, &e.UserID, &e.Kind, &e.MessageID, &detail, &e.CreatedAt); err != nil {
			return entity.Event{}, err
		}
		e.Detail = detail
		return e, nil
	})
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}
