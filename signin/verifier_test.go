package signin

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestSigner(t *testing.T, now func() time.Time) *formSigner {
	t.Helper()

	s, err := newFormSigner(map[string][]byte{
		"test-kid": []byte("super-secret"),
	}, "", now)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}

	return s
}

func signToken(t *testing.T, claims jwt.Claims, kid string, key []byte) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid

	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	return s
}

func TestFormSigner_RoundTrip(t *testing.T) {
	s := newTestSigner(t, nil)

	token, err := s.issue("binding-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.verify(token, "binding-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFormSigner_WrongBinding(t *testing.T) {
	s := newTestSigner(t, nil)

	token, err := s.issue("binding-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, binding := range []string{"binding-2", ""} {
		if err := s.verify(token, binding); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("binding %q: expected ErrInvalidToken, got %v", binding, err)
		}
	}
}

func TestFormSigner_Expired(t *testing.T) {
	issued := time.Now()
	s := newTestSigner(t, func() time.Time { return issued })

	token, err := s.issue("b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.now = func() time.Time { return issued.Add(formTokenTTL + clockSkew + time.Minute) }
	if err := s.verify(token, "b"); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestFormSigner_RejectsForeignTokens(t *testing.T) {
	s := newTestSigner(t, nil)
	now := time.Now()

	valid := formClaims{
		Binding: "b",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    formTokenIssuer,
			Audience:  jwt.ClaimStrings{formTokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"elsewhere"}
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	for _, tc := range []struct {
		desc  string
		token string
	}{
		{desc: "wrong key", token: signToken(t, valid, "test-kid", []byte("other"))},
		{desc: "unknown kid", token: signToken(t, valid, "other-kid", []byte("super-secret"))},
		{desc: "wrong audience", token: signToken(t, wrongAudience, "test-kid", []byte("super-secret"))},
		{desc: "no expiry", token: signToken(t, noExpiry, "test-kid", []byte("super-secret"))},
		{desc: "garbage", token: "not-a-jwt"},
		{desc: "empty", token: ""},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			if err := s.verify(tc.token, "b"); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}

	if err := s.verify(signToken(t, valid, "test-kid", []byte("super-secret")), "b"); err != nil {
		t.Fatalf("control token should verify, got %v", err)
	}
}

func TestFormSigner_KeyRotation(t *testing.T) {
	keys := map[string][]byte{
		"old": []byte("old-secret"),
		"new": []byte("new-secret"),
	}

	old, err := newFormSigner(keys, "old", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token, err := old.issue("b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rotated, err := newFormSigner(keys, "new", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rotated.verify(token, "b"); err != nil {
		t.Fatalf("token signed with a retired key should still verify, got %v", err)
	}
}
