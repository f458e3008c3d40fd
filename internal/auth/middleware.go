package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/ahsanfayaz52/noteboard/internal/logger"
	"github.com/ahsanfayaz52/noteboard/internal/models"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type key int

const sessionKey key = 0

// CookieName is the session cookie.
const CookieName = "token"

// SessionGate only lets requests with a live session through. Requests
// without one are sent to the login page; a session that cannot be checked
// right now gets a 503.
func SessionGate(m *Manager, log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			sess, err := m.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if !isSessionError(err) {
					// the session may still be good; keep the cookie
					log.Error("resolve session", zap.Error(err))
					http.Error(w, "Service temporarily unavailable, please try again.", http.StatusServiceUnavailable)
					return
				}
				ClearSessionCookie(w)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			log.Debug("session resolved",
				zap.String(logger.FieldSessionID, sess.ID),
				zap.String(logger.FieldPath, r.URL.Path))
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func isSessionError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionExpired)
}

func WithSession(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

func SessionFromContext(ctx context.Context) *models.Session {
	sess, ok := ctx.Value(sessionKey).(*models.Session)
	if !ok {
		return nil
	}
	return sess
}

// AccessTokenFromContext supplies the signed-in user's access token to
// outbound API calls.
func AccessTokenFromContext(ctx context.Context) (string, error) {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.AccessToken == "" {
		return "", ErrSessionNotFound
	}
	return sess.AccessToken, nil
}

func SetSessionCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
