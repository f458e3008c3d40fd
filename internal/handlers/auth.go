package handlers

import (
	"net/http"

	"github.com/ahsanfayaz52/noteboard/internal/auth"
	"github.com/ahsanfayaz52/noteboard/internal/logger"
	"github.com/ahsanfayaz52/noteboard/internal/metrics"
	"github.com/ahsanfayaz52/noteboard/internal/notelist"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// signInFailure maps a sign-in error to what the user is told, the response
// status and the metrics outcome.
func signInFailure(err error) (msg string, status int, outcome string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Incorrect username or password.", http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, auth.ErrUserNotConfirmed):
		return "This account has not been confirmed yet.", http.StatusForbidden, "not_confirmed"
	case errors.Is(err, auth.ErrChallengeRequired):
		return "This account needs an additional sign-in step that is not supported here.", http.StatusForbidden, "challenge"
	case errors.Is(err, auth.ErrTooManyRequests):
		return "Too many attempts, please wait and try again.", http.StatusTooManyRequests, "throttled"
	}
	return "Sign-in is unavailable right now, please try again later.", http.StatusBadGateway, "error"
}

func LoginHandler(sessions *auth.Manager, notes *notelist.Registry, m *metrics.Metrics, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// already signed in
			if cookie, err := r.Cookie(auth.CookieName); err == nil {
				if _, err := sessions.Resolve(r.Context(), cookie.Value); err == nil {
					http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
					return
				}
			}
			render(w, log, "login", http.StatusOK, loginData{Notice: loginNotices[r.URL.Query().Get("notice")]})
			return
		}

		username := r.FormValue("username")
		password := r.FormValue("password")

		cookie, sess, err := sessions.SignIn(r.Context(), username, password)
		if err != nil {
			msg, status, outcome := signInFailure(err)
			if status == http.StatusBadGateway {
				log.Error("sign in", zap.String(logger.FieldUsername, username), zap.Error(err))
			} else {
				log.Info("sign in rejected", zap.String(logger.FieldUsername, username), zap.String("reason", outcome))
			}
			m.ObserveLogin(outcome)
			render(w, log, "login", status, loginData{
				Username:    username,
				Error:       msg,
				Unconfirmed: errors.Is(err, auth.ErrUserNotConfirmed),
			})
			return
		}
		m.ObserveLogin("ok")

		auth.SetSessionCookie(w, cookie, sess.ExpiresAt)

		// Mount the note list now; a failed first load is retried when the
		// dashboard renders.
		ctrl := notes.Mount(sess.ID)
		if err := ctrl.LoadFirstPage(auth.WithSession(r.Context(), sess)); err != nil {
			log.Warn("initial note load", zap.String(logger.FieldSessionID, sess.ID), zap.Error(err))
		}

		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

func LogoutHandler(sessions *auth.Manager, notes *notelist.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := auth.SessionFromContext(r.Context())
		if sess != nil {
			notes.Unmount(sess.ID)
			if err := sessions.SignOut(r.Context(), sess); err != nil {
				log.Error("sign out", zap.String(logger.FieldSessionID, sess.ID), zap.Error(err))
			}
		}

		auth.ClearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
