package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionGate(t *testing.T) {
	p := &fakeProvider{signInTokens: &Tokens{Username: "alice", AccessToken: "access-1", ExpiresAt: time.Now().Add(time.Hour)}}
	m, _, _ := newTestManager(t, p)
	cookie, _, err := m.SignIn(context.Background(), "alice", "pw")
	require.NoError(t, err)

	var seen string
	protected := SessionGate(m, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := AccessTokenFromContext(r.Context())
		require.NoError(t, err)
		seen = SessionFromContext(r.Context()).Username + ":" + token
		w.Write([]byte("secret notes"))
	}))

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
		assert.NotContains(t, rec.Body.String(), "secret notes")
	})

	t.Run("bad cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.NotContains(t, rec.Body.String(), "secret notes")
		assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0", "cookie cleared")
	})

	t.Run("valid cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice:access-1", seen)
	})
}

func TestSessionGateKeepsCookieWhenProviderUnavailable(t *testing.T) {
	p := &fakeProvider{
		signInTokens: &Tokens{Username: "alice", AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresAt: time.Now().Add(time.Minute)},
		refreshErr:   ErrTooManyRequests,
	}
	m, _, c := newTestManager(t, p)
	cookie, _, err := m.SignIn(context.Background(), "alice", "pw")
	require.NoError(t, err)
	c.Advance(2 * time.Minute)

	protected := SessionGate(m, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secret notes"))
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Header().Get("Set-Cookie"), "cookie kept")
	assert.NotContains(t, rec.Body.String(), "secret notes")
}

func TestAccessTokenFromContextWithoutSession(t *testing.T) {
	_, err := AccessTokenFromContext(context.Background())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Nil(t, SessionFromContext(context.Background()))
}
