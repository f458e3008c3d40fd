package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/ahsanfayaz52/noteboard/internal/encryption"
	"github.com/ahsanfayaz52/noteboard/internal/models"
	"github.com/pkg/errors"
)

// SQLStore keeps sessions in the sessions table created by the db package.
// Provider tokens are encrypted before they are written.
type SQLStore struct {
	db  *sql.DB
	enc *encryption.Service
}

func NewSQLStore(db *sql.DB, enc *encryption.Service) *SQLStore {
	return &SQLStore{db: db, enc: enc}
}

func (s *SQLStore) Save(ctx context.Context, sess *models.Session) error {
	access, err := s.enc.Encrypt(sess.AccessToken)
	if err != nil {
		return errors.Wrap(err, "encrypt access token")
	}
	idToken, err := s.enc.Encrypt(sess.IDToken)
	if err != nil {
		return errors.Wrap(err, "encrypt id token")
	}
	refresh, err := s.enc.Encrypt(sess.RefreshToken)
	if err != nil {
		return errors.Wrap(err, "encrypt refresh token")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sess.ID); err != nil {
		return errors.Wrap(err, "replace session")
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO sessions
		(id, username, access_token, id_token, refresh_token, token_expires_at, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Username, access, idToken, refresh,
		sess.TokenExpiresAt.Unix(), sess.ExpiresAt.Unix(), sess.CreatedAt.Unix())
	if err != nil {
		return errors.Wrap(err, "insert session")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit session")
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var (
		sess                           models.Session
		access, idToken, refresh       string
		tokenExpires, expires, created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, access_token, id_token, refresh_token, token_expires_at, expires_at, created_at
		FROM sessions
		WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Username, &access, &idToken, &refresh, &tokenExpires, &expires, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "query session")
	}

	if sess.AccessToken, err = s.enc.Decrypt(access); err != nil {
		return nil, errors.Wrap(err, "decrypt access token")
	}
	if sess.IDToken, err = s.enc.Decrypt(idToken); err != nil {
		return nil, errors.Wrap(err, "decrypt id token")
	}
	if sess.RefreshToken, err = s.enc.Decrypt(refresh); err != nil {
		return nil, errors.Wrap(err, "decrypt refresh token")
	}
	sess.TokenExpiresAt = time.Unix(tokenExpires, 0)
	sess.ExpiresAt = time.Unix(expires, 0)
	sess.CreatedAt = time.Unix(created, 0)
	return &sess, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

func (s *SQLStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, errors.Wrap(err, "delete expired sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}
