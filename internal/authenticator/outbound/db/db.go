package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/twofa/internal/authenticator/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const columns = `id, user_id, name, description, tags, secret, created_at, updated_at`

var copyColumns = []string{"id", "user_id", "name", "description", "tags", "secret", "created_at", "updated_at"}

type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, ins: ins}
}

func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return goerror.ErrConflict
		case "23503":
			return goerror.ErrNotFound
		}
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("authenticator.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func scan(row pgx.Row) (*entity.Authenticator, error) {
	var a entity.Authenticator
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Description, &a.Tags, &a.Secret, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return &a, nil
}

func collect(rows pgx.Rows) ([]entity.Authenticator, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Authenticator, error) {
		a, err := scan(row)
		if err != nil {
			return entity.Authenticator{}, err
		}
		return *a, nil
	})
}

// likePattern matches search anywhere, with LIKE wildcards taken literally.
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(search) + "%"
}

func (s *DB) Get(ctx context.Context, id, userID int64) (_ *entity.Authenticator, err error) {
	ctx, span := s.startSpan(ctx, "Get")
	defer func() { s.endSpan(span, err) }()

	a, err := scan(s.conn.QueryRow(ctx,
		`SELECT `+columns+` FROM authenticators WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, s.mapError(err)
	}

	return a, nil
}

const filterClause = `user_id = $1
	AND ($2 = '' OR $2 = ANY(tags))
	AND ($3 = '' OR name ILIKE $4 OR description ILIKE $4)`

func (s *DB) List(ctx context.Context, f entity.ListFilter) (_ []entity.Authenticator, _ int64, err error) {
	ctx, span := s.startSpan(ctx, "List")
	defer func() { s.endSpan(span, err) }()

	span.SetAttributes(attribute.Int("take", f.Take), attribute.Int("skip", f.Skip))

	pattern := likePattern(f.Search)

	var total int64
	err = s.conn.QueryRow(ctx, `SELECT count(*) FROM authenticators WHERE `+filterClause,
		f.UserID, f.Tag, f.Search, pattern).Scan(&total)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	if total == 0 {
		return []entity.Authenticator{}, 0, nil
	}

	rows, err := s.conn.Query(ctx,
		`SELECT `+columns+` FROM authenticators WHERE `+filterClause+`
		ORDER BY created_at DESC, id DESC LIMIT $5 OFFSET $6`,
		f.UserID, f.Tag, f.Search, pattern, f.Take, f.Skip)
	if err != nil {
		return nil, 0, s.mapError(err)
	}

	items, err := collect(rows)
	if err != nil {
		return nil, 0, s.mapError(err)
	}

	return items, total, nil
}

func (s *DB) ListAll(ctx context.Context, userID int64) (_ []entity.Authenticator, err error) {
	ctx, span := s.startSpan(ctx, "ListAll")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx,
		`SELECT `+columns+` FROM authenticators WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, s.mapError(err)
	}

	items, err := collect(rows)
	if err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}

func (s *DB) Create(ctx context.Context, a entity.Authenticator) (err error) {
	ctx, span := s.startSpan(ctx, "Create")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO authenticators (`+columns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.UserID, a.Name, a.Description, a.Tags, a.Secret, a.CreatedAt, a.UpdatedAt,
	)
	err = s.mapError(err)
	return err
}

// CreateMany inserts every row with a single COPY, so either all rows land
// or none do.
func (s *DB) CreateMany(ctx context.Context, as []entity.Authenticator) (err error) {
	ctx, span := s.startSpan(ctx, "CreateMany")
	defer func() { s.endSpan(span, err) }()

	span.SetAttributes(attribute.Int("rows", len(as)))

	_, err = s.conn.CopyFrom(ctx, pgx.Identifier{"authenticators"}, copyColumns,
		pgx.CopyFromSlice(len(as), func(i int) ([]any, error) {
			a := as[i]
			return []any{a.ID, a.UserID, a.Name, a.Description, a.Tags, a.Secret, a.CreatedAt, a.UpdatedAt}, nil
		}),
	)
	err = s.mapError(err)
	return err
}

func (s *DB) Update(ctx context.Context, p entity.Patch) (err error) {
	ctx, span := s.startSpan(ctx, "Update")
	defer func() { s.endSpan(span, err) }()

	var tags any
	if p.Tags != nil {
		tags = *p.Tags
	}

	tag, err := s.conn.Exec(ctx,
		`UPDATE authenticators SET
			name = COALESCE($3, name),
			description = COALESCE($4, description),
			tags = COALESCE($5::text[], tags),
			updated_at = $6
		WHERE id = $1 AND user_id = $2`,
		p.ID, p.UserID, p.Name, p.Description, tags, p.UpdatedAt,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) Delete(ctx context.Context, id, userID int64) (err error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM authenticators WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
