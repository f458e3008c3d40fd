package auth

import "github.com/pkg/errors"

var (
	// ErrInvalidCredentials is returned when the provider rejects a username/password pair.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotConfirmed is returned when the account exists but has not been confirmed.
	ErrUserNotConfirmed = errors.New("user is not confirmed")
	// ErrChallengeRequired is returned when the provider asks for a challenge
	// (new password, MFA) this application does not implement.
	ErrChallengeRequired = errors.New("sign-in challenge required")
	// ErrTooManyRequests is returned when the provider throttles sign-in.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a session or its tokens can no longer be used.
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidToken is returned when the session cookie fails validation.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrUsernameExists is returned by sign-up when the username is taken.
	ErrUsernameExists = errors.New("username already exists")
	// ErrInvalidPassword is returned when a password does not meet the pool's policy.
	ErrInvalidPassword = errors.New("password does not meet policy")
	// ErrInvalidSignUp is returned when the provider rejects sign-up details.
	ErrInvalidSignUp = errors.New("invalid sign-up details")
	// ErrCodeMismatch is returned when a confirmation code is wrong.
	ErrCodeMismatch = errors.New("confirmation code mismatch")
	// ErrCodeExpired is returned when a confirmation code has expired.
	ErrCodeExpired = errors.New("confirmation code expired")
)
