package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// accessToken builds a provider-style access token carrying a username claim.
func accessToken(t *testing.T, username string) string {
	t.Helper()
	return signedAccessToken(t, jwt.MapClaims{
		"username":  username,
		"token_use": "access",
	})
}

func signedAccessToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("provider-key"))
	require.NoError(t, err)
	return s
}

type fakeProvider struct {
	mu sync.Mutex

	signInTokens  *Tokens
	signInErr     error
	refreshTokens *Tokens
	refreshErr    error
	signOutErr    error

	signIns     int
	refreshes   int
	signOuts    []string
	refreshGate chan struct{}
}

func (f *fakeProvider) SignIn(_ context.Context, username, password string) (*Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	t := *f.signInTokens
	return &t, nil
}

func (f *fakeProvider) Refresh(ctx context.Context, username, refreshToken string) (*Tokens, error) {
	if f.refreshGate != nil {
		<-f.refreshGate
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "cognito")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	t := *f.refreshTokens
	return &t, nil
}

func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts = append(f.signOuts, token)
	return f.signOutErr
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (f *fakeProvider) setRefresh(tokens *Tokens, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshTokens = tokens
	f.refreshErr = err
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
