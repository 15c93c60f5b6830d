// Package cognito implements signin.IdentityProvider on top of Amazon Cognito
// user pools.
package cognito

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/alexlup06-authgate/signin-go/signin"
)

// API is the subset of the Cognito user pool API the provider uses.
// *cognitoidentityprovider.Client satisfies it.
type API interface {
	ListUsers(ctx context.Context, in *cip.ListUsersInput, optFns ...func(*cip.Options)) (*cip.ListUsersOutput, error)
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GetUser(ctx context.Context, in *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
	ForgotPassword(ctx context.Context, in *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, in *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error)
}

// Provider talks to one user pool through one app client.
type Provider struct {
	api        API
	clientID   string
	userPoolID string
}

var _ signin.IdentityProvider = (*Provider)(nil)

// NewProvider returns a Provider for the given pool and app client.
func NewProvider(api API, userPoolID, clientID string) *Provider {
	return &Provider{
		api:        api,
		clientID:   clientID,
		userPoolID: userPoolID,
	}
}

// GetUser implements signin.IdentityProvider.
func (p *Provider) GetUser(ctx context.Context, accessToken string) (string, error) {
	out, err := p.api.GetUser(ctx, &cip.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return "", mapError("GetUser", err)
	}
	return aws.ToString(out.Username), nil
}

// FindUsernameByEmail implements signin.IdentityProvider. Only the first
// match is considered.
func (p *Provider) FindUsernameByEmail(ctx context.Context, email string) (string, error) {
	out, err := p.api.ListUsers(ctx, &cip.ListUsersInput{
		UserPoolId: aws.String(p.userPoolID),
		Filter:     aws.String(emailFilter(email)),
		Limit:      aws.Int32(1),
	})
	if err != nil {
		return "", mapError("ListUsers", err)
	}
	if len(out.Users) == 0 {
		return "", signin.ErrUserNotFound
	}

	username := aws.ToString(out.Users[0].Username)
	if username == "" {
		return "", signin.ErrUserNotFound
	}
	return username, nil
}

// InitiatePasswordAuth implements signin.IdentityProvider using the
// USER_PASSWORD_AUTH flow. A challenge response (MFA, forced password
// change) is not supported and reported as a rejection.
func (p *Provider) InitiatePasswordAuth(ctx context.Context, username, password string) (string, error) {
	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(p.clientID),
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return "", mapError("InitiateAuth", err)
	}

	if out.AuthenticationResult == nil {
		if out.ChallengeName != "" {
			return "", fmt.Errorf("%w: unsupported challenge %s", signin.ErrInvalidInput, out.ChallengeName)
		}
		return "", fmt.Errorf("%w: InitiateAuth returned no authentication result", signin.ErrIdentityProvider)
	}
	return aws.ToString(out.AuthenticationResult.AccessToken), nil
}

// ForgotPassword implements signin.IdentityProvider.
func (p *Provider) ForgotPassword(ctx context.Context, username string) error {
	_, err := p.api.ForgotPassword(ctx, &cip.ForgotPasswordInput{
		ClientId: aws.String(p.clientID),
		Username: aws.String(username),
	})
	return mapError("ForgotPassword", err)
}

// ConfirmForgotPassword implements signin.IdentityProvider.
func (p *Provider) ConfirmForgotPassword(ctx context.Context, username, code, newPassword string) error {
	_, err := p.api.ConfirmForgotPassword(ctx, &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(p.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
	})
	return mapError("ConfirmForgotPassword", err)
}

// emailFilter builds a ListUsers filter matching the email attribute exactly.
func emailFilter(email string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `email = "` + r.Replace(email) + `"`
}
