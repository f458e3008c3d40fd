package models

import "time"

// Session is the server-side half of a signed-in browser session. The token
// set belongs to the session provider; only Username and AccessToken are
// read by the rest of the application.
type Session struct {
	ID             string
	Username       string
	AccessToken    string
	IDToken        string
	RefreshToken   string
	TokenExpiresAt time.Time
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// TokenExpiring reports whether the access token expires within skew of now.
func (s *Session) TokenExpiring(now time.Time, skew time.Duration) bool {
	return !now.Add(skew).Before(s.TokenExpiresAt)
}
