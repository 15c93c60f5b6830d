package signin

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type formClaims struct {
	// Binding ties the token to the browser's CSRF cookie.
	Binding string `json:"bnd"`

	jwt.RegisteredClaims
}

// formSigner issues and verifies the anti-forgery tokens embedded in the
// gate's forms. Tokens are HS256 JWTs whose "kid" header selects one of the
// configured keys, so keys can be rotated without invalidating open forms.
type formSigner struct {
	keys      map[string][]byte
	activeKID string
	now       func() time.Time
}

func newFormSigner(keys map[string][]byte, activeKID string, now func() time.Time) (*formSigner, error) {
	if len(keys) == 0 {
		return nil, errors.New("signin: at least one anti-forgery key is required")
	}
	if activeKID == "" {
		if len(keys) > 1 {
			return nil, errors.New("signin: CSRFKeyID is required when more than one key is configured")
		}
		for kid := range keys {
			activeKID = kid
		}
	}
	if _, ok := keys[activeKID]; !ok {
		return nil, fmt.Errorf("signin: anti-forgery key %q is not configured", activeKID)
	}
	if now == nil {
		now = time.Now
	}

	return &formSigner{
		keys:      keys,
		activeKID: activeKID,
		now:       now,
	}, nil
}

func (s *formSigner) issue(binding string) (string, error) {
	now := s.now()
	claims := formClaims{
		Binding: binding,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    formTokenIssuer,
			Audience:  jwt.ClaimStrings{formTokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(formTokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = s.activeKID
	return token.SignedString(s.keys[s.activeKID])
}

func (s *formSigner) verify(tokenString, binding string) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuer(formTokenIssuer),
		jwt.WithAudience(formTokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	token, err := parser.ParseWithClaims(tokenString, &formClaims{}, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}

	claims, ok := token.Claims.(*formClaims)
	if !ok || !token.Valid {
		return ErrInvalidToken
	}

	if binding == "" || subtle.ConstantTimeCompare([]byte(claims.Binding), []byte(binding)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

func (s *formSigner) keyFunc(t *jwt.Token) (any, error) {
	kid, ok := t.Header["kid"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	key, ok := s.keys[kid]
	if !ok {
		return nil, ErrInvalidToken
	}

	return key, nil
}
