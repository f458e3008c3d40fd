package auth

import (
	"context"
	"time"
)

// Tokens is the credential set issued by the session provider.
type Tokens struct {
	Username     string
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Provider is the external identity service. It owns credential checks and
// token issuance; this application only stores and forwards the results.
type Provider interface {
	SignIn(ctx context.Context, username, password string) (*Tokens, error)
	// Refresh exchanges a refresh token for new access and id tokens. The
	// returned RefreshToken may be empty when the provider does not rotate it.
	Refresh(ctx context.Context, username, refreshToken string) (*Tokens, error)
	// SignOut revokes every token issued for the access token's user.
	SignOut(ctx context.Context, accessToken string) error
}

// Registrar creates and confirms accounts with the identity service.
type Registrar interface {
	// SignUp reports whether the account was confirmed immediately.
	SignUp(ctx context.Context, username, email, password string) (bool, error)
	ConfirmSignUp(ctx context.Context, username, code string) error
	ResendConfirmationCode(ctx context.Context, username string) error
}
