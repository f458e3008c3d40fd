package auth

import (
	"context"
	"strings"
	"time"

	"github.com/ahsanfayaz52/noteboard/internal/logger"
	"github.com/ahsanfayaz52/noteboard/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshSkew is how long before access token expiry a refresh is
// attempted.
const DefaultRefreshSkew = 2 * time.Minute

// Manager ties the provider, the session store and the cookie signer
// together. It is the only component that sees provider tokens being issued.
type Manager struct {
	provider    Provider
	store       Store
	jwt         *JWTService
	ttl         time.Duration
	refreshSkew time.Duration
	group       singleflight.Group
	logger      *zap.Logger
	now         func() time.Time
}

func NewManager(provider Provider, store Store, jwtService *JWTService, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		provider:    provider,
		store:       store,
		jwt:         jwtService,
		ttl:         ttl,
		refreshSkew: DefaultRefreshSkew,
		logger:      logger,
		now:         time.Now,
	}
}

// SignIn authenticates against the provider and opens a session. The
// returned string is the signed cookie value.
func (m *Manager) SignIn(ctx context.Context, username, password string) (string, *models.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	tokens, err := m.provider.SignIn(ctx, username, password)
	if err != nil {
		return "", nil, err
	}

	now := m.now()
	sess := &models.Session{
		ID:             uuid.NewString(),
		Username:       tokens.Username,
		AccessToken:    tokens.AccessToken,
		IDToken:        tokens.IDToken,
		RefreshToken:   tokens.RefreshToken,
		TokenExpiresAt: tokens.ExpiresAt,
		ExpiresAt:      now.Add(m.ttl),
		CreatedAt:      now,
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return "", nil, errors.Wrap(err, "save session")
	}

	cookie, err := m.jwt.GenerateToken(sess.ID, sess.Username)
	if err != nil {
		return "", nil, err
	}

	m.logger.Info("signed in",
		zap.String(logger.FieldUsername, sess.Username),
		zap.String(logger.FieldSessionID, sess.ID))
	return cookie, sess, nil
}

// Resolve maps a cookie value to a live session, refreshing provider tokens
// when they are about to expire.
func (m *Manager) Resolve(ctx context.Context, cookie string) (*models.Session, error) {
	claims, err := m.jwt.ValidateToken(cookie)
	if err != nil {
		return nil, err
	}

	sess, err := m.store.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if sess.Expired(now) {
		if err := m.store.Delete(ctx, sess.ID); err != nil {
			m.logger.Warn("delete expired session", zap.String(logger.FieldSessionID, sess.ID), zap.Error(err))
		}
		return nil, ErrSessionExpired
	}

	if sess.TokenExpiring(now, m.refreshSkew) {
		return m.refresh(ctx, sess.ID)
	}
	return sess, nil
}

// refresh runs at most once per session at a time; concurrent callers share
// the result. The shared call is detached from the first caller's
// cancellation. Only a rejected refresh token ends the session; on any
// other failure the current token is used while it is still valid.
func (m *Manager) refresh(ctx context.Context, id string) (*models.Session, error) {
	ctx = context.WithoutCancel(ctx)
	v, err, _ := m.group.Do(id, func() (interface{}, error) {
		sess, err := m.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !sess.TokenExpiring(m.now(), m.refreshSkew) {
			return sess, nil
		}

		tokens, err := m.provider.Refresh(ctx, sess.Username, sess.RefreshToken)
		if errors.Is(err, ErrSessionExpired) {
			m.logger.Info("refresh token rejected, ending session",
				zap.String(logger.FieldSessionID, id), zap.Error(err))
			if delErr := m.store.Delete(ctx, id); delErr != nil {
				m.logger.Warn("delete session", zap.String(logger.FieldSessionID, id), zap.Error(delErr))
			}
			return nil, ErrSessionExpired
		}
		if err != nil {
			if m.now().Before(sess.TokenExpiresAt) {
				m.logger.Warn("token refresh failed, keeping current token",
					zap.String(logger.FieldSessionID, id), zap.Error(err))
				return sess, nil
			}
			return nil, errors.Wrap(err, "refresh tokens")
		}

		sess.AccessToken = tokens.AccessToken
		sess.IDToken = tokens.IDToken
		sess.TokenExpiresAt = tokens.ExpiresAt
		if tokens.RefreshToken != "" {
			sess.RefreshToken = tokens.RefreshToken
		}
		if err := m.store.Save(ctx, sess); err != nil {
			return nil, errors.Wrap(err, "save refreshed session")
		}

		m.logger.Debug("tokens refreshed", zap.String(logger.FieldSessionID, id))
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	// each caller gets its own copy
	sess := *v.(*models.Session)
	return &sess, nil
}

// SignOut revokes the provider tokens and removes the session. A provider
// failure is logged; the local session is removed regardless.
func (m *Manager) SignOut(ctx context.Context, sess *models.Session) error {
	if err := m.provider.SignOut(ctx, sess.AccessToken); err != nil {
		m.logger.Warn("provider sign-out failed",
			zap.String(logger.FieldSessionID, sess.ID), zap.Error(err))
	}
	if err := m.store.Delete(ctx, sess.ID); err != nil {
		return errors.Wrap(err, "delete session")
	}
	m.logger.Info("signed out",
		zap.String(logger.FieldUsername, sess.Username),
		zap.String(logger.FieldSessionID, sess.ID))
	return nil
}

// PurgeExpired removes sessions past their lifetime.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.now())
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}
