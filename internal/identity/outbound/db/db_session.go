package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/twofa/internal/identity/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

func (s *DB) GetSessionByTokenHash(ctx context.Context, tokenHash string) (_ *entity.SessionUser, err error) {
	ctx, span := s.startSpan(ctx, "GetSessionByTokenHash")
	defer func() { s.endSpan(span, err) }()

	var su entity.SessionUser
	err = s.conn.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.token_hash, s.user_agent, s.ip_address, s.expires_at,
		       s.revoked_at, s.replaced_by, s.created_at, u.username, u.role
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1`, tokenHash,
	).Scan(
		&su.ID, &su.UserID, &su.TokenHash, &su.UserAgent, &su.IPAddress, &su.ExpiresAt,
		&su.RevokedAt, &su.ReplacedBy, &su.CreatedAt, &su.Username, &su.Role,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &su, nil
}

func insertSession(ctx context.Context, q execer, sess entity.Session) error {
	_, err := q.Exec(ctx, `
		INSERT INTO user_sessions (id, user_id, token_hash, user_agent, ip_address, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sess.ID, sess.UserID, sess.TokenHash, sess.UserAgent, sess.IPAddress, sess.ExpiresAt, sess.CreatedAt,
	)
	return err
}

func (s *DB) CreateSession(ctx context.Context, sess entity.Session) (err error) {
	ctx, span := s.startSpan(ctx, "CreateSession")
	defer func() { s.endSpan(span, err) }()

	err = s.mapError(insertSession(ctx, s.conn, sess))
	return err
}

// RotateSession revokes the old session and inserts its successor. It reports
// goerror.ErrNotFound when the old session was already revoked.
func (s *DB) RotateSession(ctx context.Context, ro entity.RotateSession) (err error) {
	ctx, span := s.startSpan(ctx, "RotateSession")
	defer func() { s.endSpan(span, err) }()

	err = s.mapError(s.inTx(ctx, func(tx pgx.Tx) error {
		if err := insertSession(ctx, tx, ro.New); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE user_sessions SET revoked_at = $1, replaced_by = $2
			WHERE id = $3 AND user_id = $4 AND revoked_at IS NULL`,
			ro.RevokedAt, ro.New.ID, ro.OldID, ro.UserID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return goerror.ErrNotFound
		}

		return nil
	}))
	return err
}

func (s *DB) RevokeSession(ctx context.Context, id int64, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "RevokeSession")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `UPDATE user_sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`, at, id)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) RevokeAllSessions(ctx context.Context, userID int64, at time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "RevokeAllSessions")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `UPDATE user_sessions SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`, at, userID)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}

func (s *DB) ChangePassword(ctx context.Context, userID int64, hash string, at time.Time) (revoked int64, err error) {
	ctx, span := s.startSpan(ctx, "ChangePassword")
	defer func() { s.endSpan(span, err) }()

	err = s.mapError(s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET password = $1, updated_at = $2 WHERE id = $3`, hash, at, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return goerror.ErrNotFound
		}

		tag, err = tx.Exec(ctx, `UPDATE user_sessions SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`, at, userID)
		if err != nil {
			return err
		}
		revoked = tag.RowsAffected()

		return nil
	}))

	return revoked, err
}
