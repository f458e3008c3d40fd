package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// cognitoAPI is the subset of the Cognito user pool client used here.
type cognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GlobalSignOut(ctx context.Context, params *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
	SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	ResendConfirmationCode(ctx context.Context, params *cip.ResendConfirmationCodeInput, optFns ...func(*cip.Options)) (*cip.ResendConfirmationCodeOutput, error)
}

type CognitoConfig struct {
	Region       string
	UserPoolID   string
	ClientID     string
	ClientSecret string
	// Endpoint overrides the regional Cognito endpoint (local emulators).
	Endpoint string
}

// CognitoProvider signs users in against a Cognito user pool app client
// using the USER_PASSWORD_AUTH flow.
type CognitoProvider struct {
	api          cognitoAPI
	userPoolID   string
	clientID     string
	clientSecret string
	logger       *zap.Logger
	now          func() time.Time
}

func NewCognitoProvider(ctx context.Context, cfg CognitoConfig, logger *zap.Logger) (*CognitoProvider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		// InitiateAuth and GlobalSignOut are unsigned user pool APIs
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	client := cip.NewFromConfig(awsCfg, func(o *cip.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newCognitoProvider(client, cfg, logger), nil
}

func newCognitoProvider(api cognitoAPI, cfg CognitoConfig, logger *zap.Logger) *CognitoProvider {
	return &CognitoProvider{
		api:          api,
		userPoolID:   cfg.UserPoolID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		logger:       logger,
		now:          time.Now,
	}
}

func (p *CognitoProvider) SignIn(ctx context.Context, username, password string) (*Tokens, error) {
	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	if p.clientSecret != "" {
		params["SECRET_HASH"] = p.secretHash(username)
	}

	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(p.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, mapCognitoError(err)
	}
	if out.ChallengeName != "" {
		p.logger.Warn("unsupported sign-in challenge", zap.String("challenge", string(out.ChallengeName)))
		return nil, ErrChallengeRequired
	}
	if out.AuthenticationResult == nil {
		return nil, errors.New("cognito: empty authentication result")
	}
	return p.tokens(username, out.AuthenticationResult)
}

func (p *CognitoProvider) Refresh(ctx context.Context, username, refreshToken string) (*Tokens, error) {
	params := map[string]string{
		"REFRESH_TOKEN": refreshToken,
	}
	if p.clientSecret != "" {
		params["SECRET_HASH"] = p.secretHash(username)
	}

	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeRefreshTokenAuth,
		ClientId:       aws.String(p.clientID),
		AuthParameters: params,
	})
	if err != nil {
		if errors.Is(mapCognitoError(err), ErrInvalidCredentials) {
			return nil, ErrSessionExpired
		}
		return nil, mapCognitoError(err)
	}
	if out.AuthenticationResult == nil {
		return nil, errors.New("cognito: empty refresh result")
	}
	return p.tokens(username, out.AuthenticationResult)
}

func (p *CognitoProvider) SignOut(ctx context.Context, accessToken string) error {
	_, err := p.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{AccessToken: aws.String(accessToken)})
	if err != nil {
		return mapCognitoError(err)
	}
	return nil
}

// SignUp registers a new user with an email attribute. It reports whether
// the pool confirmed the account straight away.
func (p *CognitoProvider) SignUp(ctx context.Context, username, email, password string) (bool, error) {
	in := &cip.SignUpInput{
		ClientId: aws.String(p.clientID),
		Username: aws.String(username),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	}
	if p.clientSecret != "" {
		in.SecretHash = aws.String(p.secretHash(username))
	}

	out, err := p.api.SignUp(ctx, in)
	if err != nil {
		return false, mapCognitoError(err)
	}
	return out.UserConfirmed, nil
}

func (p *CognitoProvider) ConfirmSignUp(ctx context.Context, username, code string) error {
	in := &cip.ConfirmSignUpInput{
		ClientId:         aws.String(p.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
	}
	if p.clientSecret != "" {
		in.SecretHash = aws.String(p.secretHash(username))
	}

	if _, err := p.api.ConfirmSignUp(ctx, in); err != nil {
		return mapCognitoError(err)
	}
	return nil
}

func (p *CognitoProvider) ResendConfirmationCode(ctx context.Context, username string) error {
	in := &cip.ResendConfirmationCodeInput{
		ClientId: aws.String(p.clientID),
		Username: aws.String(username),
	}
	if p.clientSecret != "" {
		in.SecretHash = aws.String(p.secretHash(username))
	}

	if _, err := p.api.ResendConfirmationCode(ctx, in); err != nil {
		return mapCognitoError(err)
	}
	return nil
}

func (p *CognitoProvider) tokens(username string, res *types.AuthenticationResultType) (*Tokens, error) {
	t := &Tokens{
		Username:     username,
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		ExpiresAt:    p.now().Add(time.Duration(res.ExpiresIn) * time.Second),
	}

	// The token came straight from the provider over TLS and is verified
	// again by the GraphQL endpoint, so the signature is not checked here.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.AccessToken, claims); err != nil {
		return t, nil
	}
	if err := p.checkIssuer(claims); err != nil {
		return nil, err
	}
	// The pool may sign users in by email or alias; the canonical name is
	// the access token's username claim.
	if name := usernameClaim(claims); name != "" {
		t.Username = name
	}
	return t, nil
}

// checkIssuer rejects tokens minted by a different user pool, which points
// at a client id and pool id from different pools.
func (p *CognitoProvider) checkIssuer(claims jwt.MapClaims) error {
	if p.userPoolID == "" {
		return nil
	}
	iss, _ := claims["iss"].(string)
	if iss == "" || strings.HasSuffix(iss, "/"+p.userPoolID) {
		return nil
	}
	return errors.Errorf("cognito: access token issued by %q, not user pool %s", iss, p.userPoolID)
}

// secretHash is Base64(HMAC_SHA256(clientSecret, username + clientID)).
func (p *CognitoProvider) secretHash(username string) string {
	mac := hmac.New(sha256.New, []byte(p.clientSecret))
	mac.Write([]byte(username + p.clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func usernameClaim(claims jwt.MapClaims) string {
	for _, key := range []string{"username", "cognito:username"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func mapCognitoError(err error) error {
	var (
		notAuthorized   *types.NotAuthorizedException
		notFound        *types.UserNotFoundException
		notConfirmed    *types.UserNotConfirmedException
		passwordReset   *types.PasswordResetRequiredException
		tooManyRequests *types.TooManyRequestsException
		limitExceeded   *types.LimitExceededException
		usernameExists  *types.UsernameExistsException
		invalidPassword *types.InvalidPasswordException
		invalidParam    *types.InvalidParameterException
		codeMismatch    *types.CodeMismatchException
		expiredCode     *types.ExpiredCodeException
	)
	switch {
	case errors.As(err, &notAuthorized), errors.As(err, &notFound):
		return ErrInvalidCredentials
	case errors.As(err, &notConfirmed):
		return ErrUserNotConfirmed
	case errors.As(err, &passwordReset):
		return ErrChallengeRequired
	case errors.As(err, &tooManyRequests), errors.As(err, &limitExceeded):
		return ErrTooManyRequests
	case errors.As(err, &usernameExists):
		return ErrUsernameExists
	case errors.As(err, &invalidPassword):
		return errors.Wrap(ErrInvalidPassword, aws.ToString(invalidPassword.Message))
	case errors.As(err, &invalidParam):
		return errors.Wrap(ErrInvalidSignUp, aws.ToString(invalidParam.Message))
	case errors.As(err, &codeMismatch):
		return ErrCodeMismatch
	case errors.As(err, &expiredCode):
		return ErrCodeExpired
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return errors.Wrapf(err, "cognito %s", apiErr.ErrorCode())
	}
	return errors.Wrap(err, "cognito")
}
