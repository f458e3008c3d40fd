package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCognito struct {
	initiateInputs []*cip.InitiateAuthInput
	initiateOut    *cip.InitiateAuthOutput
	initiateErr    error

	signOutInputs []*cip.GlobalSignOutInput
	signOutErr    error

	signUpInputs  []*cip.SignUpInput
	signUpOut     *cip.SignUpOutput
	confirmInputs []*cip.ConfirmSignUpInput
	resendInputs  []*cip.ResendConfirmationCodeInput
	registerErr   error
}

func (f *fakeCognito) SignUp(_ context.Context, in *cip.SignUpInput, _ ...func(*cip.Options)) (*cip.SignUpOutput, error) {
	f.signUpInputs = append(f.signUpInputs, in)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	if f.signUpOut == nil {
		return &cip.SignUpOutput{}, nil
	}
	return f.signUpOut, nil
}

func (f *fakeCognito) ConfirmSignUp(_ context.Context, in *cip.ConfirmSignUpInput, _ ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error) {
	f.confirmInputs = append(f.confirmInputs, in)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &cip.ConfirmSignUpOutput{}, nil
}

func (f *fakeCognito) ResendConfirmationCode(_ context.Context, in *cip.ResendConfirmationCodeInput, _ ...func(*cip.Options)) (*cip.ResendConfirmationCodeOutput, error) {
	f.resendInputs = append(f.resendInputs, in)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &cip.ResendConfirmationCodeOutput{}, nil
}

func (f *fakeCognito) InitiateAuth(_ context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.initiateInputs = append(f.initiateInputs, in)
	if f.initiateErr != nil {
		return nil, f.initiateErr
	}
	return f.initiateOut, nil
}

func (f *fakeCognito) GlobalSignOut(_ context.Context, in *cip.GlobalSignOutInput, _ ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error) {
	f.signOutInputs = append(f.signOutInputs, in)
	if f.signOutErr != nil {
		return nil, f.signOutErr
	}
	return &cip.GlobalSignOutOutput{}, nil
}

func newTestCognito(api cognitoAPI, secret string) *CognitoProvider {
	p := newCognitoProvider(api, CognitoConfig{ClientID: "client-id", ClientSecret: secret}, zap.NewNop())
	p.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return p
}

func TestCognitoProvider_SignIn(t *testing.T) {
	access := accessToken(t, "alice")
	api := &fakeCognito{initiateOut: &cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			AccessToken:  aws.String(access),
			IdToken:      aws.String("id-token"),
			RefreshToken: aws.String("refresh-token"),
			ExpiresIn:    3600,
		},
	}}
	p := newTestCognito(api, "")

	tokens, err := p.SignIn(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, "alice", tokens.Username, "username comes from the access token")
	assert.Equal(t, access, tokens.AccessToken)
	assert.Equal(t, "id-token", tokens.IDToken)
	assert.Equal(t, "refresh-token", tokens.RefreshToken)
	assert.Equal(t, time.Unix(1_700_003_600, 0), tokens.ExpiresAt)

	require.Len(t, api.initiateInputs, 1)
	in := api.initiateInputs[0]
	assert.Equal(t, types.AuthFlowTypeUserPasswordAuth, in.AuthFlow)
	assert.Equal(t, "client-id", aws.ToString(in.ClientId))
	assert.Equal(t, "alice@example.com", in.AuthParameters["USERNAME"])
	assert.Equal(t, "hunter2", in.AuthParameters["PASSWORD"])
	assert.NotContains(t, in.AuthParameters, "SECRET_HASH")
}

func TestCognitoProvider_SecretHash(t *testing.T) {
	api := &fakeCognito{initiateOut: &cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{AccessToken: aws.String("opaque"), ExpiresIn: 60},
	}}
	p := newTestCognito(api, "client-secret")

	tokens, err := p.SignIn(context.Background(), "bob", "pw")
	require.NoError(t, err)
	assert.Equal(t, "bob", tokens.Username, "falls back to the typed username")

	mac := hmac.New(sha256.New, []byte("client-secret"))
	mac.Write([]byte("bob" + "client-id"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, api.initiateInputs[0].AuthParameters["SECRET_HASH"])
}

func TestCognitoProvider_SignInErrors(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeCognito
		want error
	}{
		{
			name: "bad password",
			api:  &fakeCognito{initiateErr: &types.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}},
			want: ErrInvalidCredentials,
		},
		{
			name: "unknown user",
			api:  &fakeCognito{initiateErr: &types.UserNotFoundException{}},
			want: ErrInvalidCredentials,
		},
		{
			name: "unconfirmed",
			api:  &fakeCognito{initiateErr: &types.UserNotConfirmedException{}},
			want: ErrUserNotConfirmed,
		},
		{
			name: "throttled",
			api:  &fakeCognito{initiateErr: &types.TooManyRequestsException{}},
			want: ErrTooManyRequests,
		},
		{
			name: "new password challenge",
			api:  &fakeCognito{initiateOut: &cip.InitiateAuthOutput{ChallengeName: types.ChallengeNameTypeNewPasswordRequired}},
			want: ErrChallengeRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestCognito(tt.api, "").SignIn(context.Background(), "alice", "pw")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCognitoProvider_UnknownErrorIsWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := newTestCognito(&fakeCognito{initiateErr: boom}, "").SignIn(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestCognitoProvider_APIErrorCarriesCode(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "InternalErrorException", Message: "internal"}
	_, err := newTestCognito(&fakeCognito{initiateErr: apiErr}, "").SignIn(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cognito InternalErrorException")
	assert.ErrorIs(t, err, apiErr)
}

func TestCognitoProvider_Refresh(t *testing.T) {
	api := &fakeCognito{initiateOut: &cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			AccessToken: aws.String(accessToken(t, "alice")),
			IdToken:     aws.String("id-2"),
			ExpiresIn:   3600,
		},
	}}
	p := newTestCognito(api, "client-secret")

	tokens, err := p.Refresh(context.Background(), "alice", "refresh-token")
	require.NoError(t, err)
	assert.Empty(t, tokens.RefreshToken, "cognito does not rotate refresh tokens by default")
	assert.Equal(t, "id-2", tokens.IDToken)

	in := api.initiateInputs[0]
	assert.Equal(t, types.AuthFlowTypeRefreshTokenAuth, in.AuthFlow)
	assert.Equal(t, "refresh-token", in.AuthParameters["REFRESH_TOKEN"])
	assert.NotEmpty(t, in.AuthParameters["SECRET_HASH"])
}

func TestCognitoProvider_RefreshRevoked(t *testing.T) {
	api := &fakeCognito{initiateErr: &types.NotAuthorizedException{Message: aws.String("Refresh Token has been revoked")}}
	_, err := newTestCognito(api, "").Refresh(context.Background(), "alice", "refresh-token")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestCognitoProvider_SignOut(t *testing.T) {
	api := &fakeCognito{}
	p := newTestCognito(api, "")

	require.NoError(t, p.SignOut(context.Background(), "access"))
	require.Len(t, api.signOutInputs, 1)
	assert.Equal(t, "access", aws.ToString(api.signOutInputs[0].AccessToken))

	api.signOutErr = &types.NotAuthorizedException{}
	assert.ErrorIs(t, p.SignOut(context.Background(), "access"), ErrInvalidCredentials)
}

func TestCognitoProvider_IssuerMustMatchUserPool(t *testing.T) {
	result := func(iss string) *fakeCognito {
		return &fakeCognito{initiateOut: &cip.InitiateAuthOutput{
			AuthenticationResult: &types.AuthenticationResultType{
				AccessToken: aws.String(signedAccessToken(t, jwt.MapClaims{"username": "alice", "iss": iss})),
				ExpiresIn:   3600,
			},
		}}
	}
	newProvider := func(api cognitoAPI) *CognitoProvider {
		return newCognitoProvider(api, CognitoConfig{UserPoolID: "us-east-1_Pool1", ClientID: "client-id"}, zap.NewNop())
	}

	tokens, err := newProvider(result("https://cognito-idp.us-east-1.amazonaws.com/us-east-1_Pool1")).
		SignIn(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", tokens.Username)

	_, err = newProvider(result("https://cognito-idp.us-east-1.amazonaws.com/us-east-1_Other")).
		SignIn(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "us-east-1_Pool1")

	_, err = newTestCognito(result("https://cognito-idp.us-east-1.amazonaws.com/us-east-1_Other"), "").
		SignIn(context.Background(), "alice", "pw")
	assert.NoError(t, err, "no pool configured, no check")
}

func TestCognitoProvider_SignUp(t *testing.T) {
	api := &fakeCognito{signUpOut: &cip.SignUpOutput{UserConfirmed: false}}
	p := newTestCognito(api, "client-secret")

	confirmed, err := p.SignUp(context.Background(), "alice", "alice@example.com", "Hunter2!x")
	require.NoError(t, err)
	assert.False(t, confirmed)

	require.Len(t, api.signUpInputs, 1)
	in := api.signUpInputs[0]
	assert.Equal(t, "client-id", aws.ToString(in.ClientId))
	assert.Equal(t, "alice", aws.ToString(in.Username))
	assert.Equal(t, "Hunter2!x", aws.ToString(in.Password))
	require.Len(t, in.UserAttributes, 1)
	assert.Equal(t, "email", aws.ToString(in.UserAttributes[0].Name))
	assert.Equal(t, "alice@example.com", aws.ToString(in.UserAttributes[0].Value))
	assert.Equal(t, p.secretHash("alice"), aws.ToString(in.SecretHash))

	api.signUpOut = &cip.SignUpOutput{UserConfirmed: true}
	confirmed, err = p.SignUp(context.Background(), "bob", "bob@example.com", "Hunter2!x")
	require.NoError(t, err)
	assert.True(t, confirmed, "auto-confirming pools")
}

func TestCognitoProvider_ConfirmAndResend(t *testing.T) {
	api := &fakeCognito{}
	p := newTestCognito(api, "")

	require.NoError(t, p.ConfirmSignUp(context.Background(), "alice", "123456"))
	require.Len(t, api.confirmInputs, 1)
	assert.Equal(t, "alice", aws.ToString(api.confirmInputs[0].Username))
	assert.Equal(t, "123456", aws.ToString(api.confirmInputs[0].ConfirmationCode))
	assert.Nil(t, api.confirmInputs[0].SecretHash)

	require.NoError(t, p.ResendConfirmationCode(context.Background(), "alice"))
	require.Len(t, api.resendInputs, 1)
	assert.Equal(t, "client-id", aws.ToString(api.resendInputs[0].ClientId))
}

func TestCognitoProvider_RegistrationErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"taken", &types.UsernameExistsException{}, ErrUsernameExists},
		{"weak password", &types.InvalidPasswordException{Message: aws.String("Password not long enough")}, ErrInvalidPassword},
		{"bad email", &types.InvalidParameterException{Message: aws.String("Invalid email address format.")}, ErrInvalidSignUp},
		{"wrong code", &types.CodeMismatchException{}, ErrCodeMismatch},
		{"stale code", &types.ExpiredCodeException{}, ErrCodeExpired},
		{"limit", &types.LimitExceededException{}, ErrTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestCognito(&fakeCognito{registerErr: tt.err}, "")
			_, err := p.SignUp(context.Background(), "alice", "alice@example.com", "pw")
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, p.ConfirmSignUp(context.Background(), "alice", "1"), tt.want)
		})
	}
}
