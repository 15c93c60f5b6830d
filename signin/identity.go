package signin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// IdentityProvider is the remote service that owns user credentials.
//
// Implementations return errors freely; IdentityClient is the boundary that
// turns them into boolean outcomes.
type IdentityProvider interface {
	// GetUser resolves an access token to the username it was issued for.
	GetUser(ctx context.Context, accessToken string) (string, error)

	// FindUsernameByEmail returns the username of the single account with the
	// given email, or ErrUserNotFound when there is none.
	FindUsernameByEmail(ctx context.Context, email string) (string, error)

	// InitiatePasswordAuth performs a username/password login and returns
	// the access token.
	InitiatePasswordAuth(ctx context.Context, username, password string) (string, error)

	// ForgotPassword asks the provider to send a reset code to the user.
	ForgotPassword(ctx context.Context, username string) error

	// ConfirmForgotPassword sets a new password using a reset code.
	ConfirmForgotPassword(ctx context.Context, username, code, newPassword string) error
}

// IdentityProviderFactory builds (or reuses) a provider for a configuration.
type IdentityProviderFactory interface {
	ProviderFor(ctx context.Context, cfg Config) (IdentityProvider, error)
}

// IdentityProviderFactoryFunc adapts a function to IdentityProviderFactory.
type IdentityProviderFactoryFunc func(ctx context.Context, cfg Config) (IdentityProvider, error)

// ProviderFor implements IdentityProviderFactory.
func (f IdentityProviderFactoryFunc) ProviderFor(ctx context.Context, cfg Config) (IdentityProvider, error) {
	return f(ctx, cfg)
}

// IdentityClient is a thin typed wrapper over the identity provider.
//
// Every operation is bounded by a timeout and fails closed: faults, timeouts
// and incomplete configuration all yield a negative result. Fault details are
// logged and never returned, so nothing from the provider reaches rendered
// output.
type IdentityClient struct {
	factory IdentityProviderFactory
	timeout time.Duration
	log     logr.Logger
	metrics *Metrics
}

func newIdentityClient(factory IdentityProviderFactory, timeout time.Duration, log logr.Logger, metrics *Metrics) *IdentityClient {
	if timeout <= 0 {
		timeout = defaultIdentityTimeout
	}
	return &IdentityClient{
		factory: factory,
		timeout: timeout,
		log:     log,
		metrics: metrics,
	}
}

// ValidateToken reports whether the provider recognises the token's owner.
func (c *IdentityClient) ValidateToken(ctx context.Context, token string, cfg Config) bool {
	_, ok := c.LookupUser(ctx, token, cfg)
	return ok
}

// LookupUser resolves a token to its username via a "who am I" call.
func (c *IdentityClient) LookupUser(ctx context.Context, token string, cfg Config) (string, bool) {
	if token == "" {
		return "", false
	}

	var username string
	err := c.call(ctx, "get_user", cfg, func(ctx context.Context, p IdentityProvider) error {
		u, err := p.GetUser(ctx, token)
		if err != nil {
			return err
		}
		if u == "" {
			return ErrUserNotFound
		}
		username = u
		return nil
	})
	return username, err == nil
}

// Authenticate resolves the account by email and performs a password login.
// It returns the access token, or false when the login failed for any reason.
func (c *IdentityClient) Authenticate(ctx context.Context, email, password string, cfg Config) (string, bool) {
	if email == "" || password == "" {
		return "", false
	}
	email = strings.ToLower(email)

	var token string
	err := c.call(ctx, "authenticate", cfg, func(ctx context.Context, p IdentityProvider) error {
		username, err := p.FindUsernameByEmail(ctx, email)
		if err != nil {
			return err
		}
		if username == "" {
			return ErrUserNotFound
		}

		t, err := p.InitiatePasswordAuth(ctx, username, password)
		if err != nil {
			return err
		}
		if t == "" {
			return fmt.Errorf("%w: empty access token", ErrIdentityProvider)
		}
		token = t
		return nil
	})
	return token, err == nil
}

// RequestPasswordReset triggers the provider's reset-code dispatch.
func (c *IdentityClient) RequestPasswordReset(ctx context.Context, email string, cfg Config) bool {
	if email == "" {
		return false
	}
	email = strings.ToLower(email)

	return c.call(ctx, "request_password_reset", cfg, func(ctx context.Context, p IdentityProvider) error {
		username, err := p.FindUsernameByEmail(ctx, email)
		if err != nil {
			return err
		}
		return p.ForgotPassword(ctx, username)
	}) == nil
}

// ConfirmPasswordReset submits the reset code together with the new password.
func (c *IdentityClient) ConfirmPasswordReset(ctx context.Context, email, newPassword, code string, cfg Config) bool {
	if email == "" || newPassword == "" || code == "" {
		return false
	}
	email = strings.ToLower(email)

	return c.call(ctx, "confirm_password_reset", cfg, func(ctx context.Context, p IdentityProvider) error {
		username, err := p.FindUsernameByEmail(ctx, email)
		if err != nil {
			return err
		}
		return p.ConfirmForgotPassword(ctx, username, code, newPassword)
	}) == nil
}

func (c *IdentityClient) call(ctx context.Context, op string, cfg Config, fn func(context.Context, IdentityProvider) error) error {
	if !cfg.Complete() {
		c.log.V(1).Info("skipping identity call, configuration incomplete", "op", op)
		return ErrConfigurationIncomplete
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.invoke(ctx, cfg, fn)
	c.metrics.observeIdentityCall(op, err, time.Since(start))

	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			c.log.V(1).Info("identity lookup matched no user", "op", op)
		case errors.Is(err, ErrInvalidInput):
			c.log.V(1).Info("identity provider rejected the request", "op", op, "reason", err.Error())
		default:
			c.log.Error(err, "identity provider call failed", "op", op, "region", cfg.Region, "userPoolId", cfg.UserPoolID)
		}
		return err
	}
	return nil
}

func (c *IdentityClient) invoke(ctx context.Context, cfg Config, fn func(context.Context, IdentityProvider) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrIdentityProvider, r)
		}
	}()

	p, err := c.factory.ProviderFor(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIdentityProvider, err)
	}
	return fn(ctx, p)
}
