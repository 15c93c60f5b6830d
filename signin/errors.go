package signin

import "errors"

var (
	ErrConfigurationIncomplete = errors.New("signin: configuration incomplete")
	ErrInvalidInput            = errors.New("signin: invalid input")
	ErrIdentityProvider        = errors.New("signin: identity provider fault")
	ErrUserNotFound            = errors.New("signin: user not found")
	ErrSecurityCheckFailed     = errors.New("signin: security check failed")
	ErrStoreUnavailable        = errors.New("signin: session store unavailable")
	ErrInvalidToken            = errors.New("signin: invalid anti-forgery token")
	ErrTokenExpired            = errors.New("signin: anti-forgery token is expired")
)
