package signin

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// testConfig is a complete configuration; the fake provider ignores it.
var testConfig = Config{
	Profile:    "default",
	Region:     "us-east-2",
	ClientID:   "client-123",
	UserPoolID: "us-east-2_pool",
}

// fakeProvider is an in-memory identity provider with one account.
type fakeProvider struct {
	emails    map[string]string // email -> username
	passwords map[string]string // username -> password
	tokens    map[string]string // access token -> username
	codes     map[string]string // username -> reset code

	err   error // returned by every call when set
	calls []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		emails:    map[string]string{"a@b.com": "user-1"},
		passwords: map[string]string{"user-1": "Secret1!"},
		tokens:    map[string]string{"valid-token": "user-1"},
		codes:     map[string]string{"user-1": "123456"},
	}
}

func (p *fakeProvider) GetUser(_ context.Context, token string) (string, error) {
	p.calls = append(p.calls, "GetUser")
	if p.err != nil {
		return "", p.err
	}
	u, ok := p.tokens[token]
	if !ok {
		return "", ErrInvalidInput
	}
	return u, nil
}

func (p *fakeProvider) FindUsernameByEmail(_ context.Context, email string) (string, error) {
	p.calls = append(p.calls, "FindUsernameByEmail")
	if p.err != nil {
		return "", p.err
	}
	u, ok := p.emails[email]
	if !ok {
		return "", ErrUserNotFound
	}
	return u, nil
}

func (p *fakeProvider) InitiatePasswordAuth(_ context.Context, username, password string) (string, error) {
	p.calls = append(p.calls, "InitiatePasswordAuth")
	if p.err != nil {
		return "", p.err
	}
	if p.passwords[username] != password {
		return "", ErrInvalidInput
	}
	p.tokens["issued-token"] = username
	return "issued-token", nil
}

func (p *fakeProvider) ForgotPassword(_ context.Context, username string) error {
	p.calls = append(p.calls, "ForgotPassword")
	return p.err
}

func (p *fakeProvider) ConfirmForgotPassword(_ context.Context, username, code, newPassword string) error {
	p.calls = append(p.calls, "ConfirmForgotPassword")
	if p.err != nil {
		return p.err
	}
	if p.codes[username] != code {
		return ErrInvalidInput
	}
	p.passwords[username] = newPassword
	return nil
}

// mapArtifacts is an in-memory Artifacts implementation.
type mapArtifacts struct {
	values map[Artifact]string
	ttls   map[Artifact]time.Duration

	getErr error
	setErr error
}

func newMapArtifacts(values map[Artifact]string) *mapArtifacts {
	if values == nil {
		values = make(map[Artifact]string)
	}
	return &mapArtifacts{values: values, ttls: make(map[Artifact]time.Duration)}
}

func (m *mapArtifacts) Get(_ context.Context, a Artifact) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[a]
	return v, ok, nil
}

func (m *mapArtifacts) Set(_ context.Context, a Artifact, value string, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[a] = value
	m.ttls[a] = ttl
	return nil
}

func (m *mapArtifacts) Clear(_ context.Context, a Artifact) error {
	delete(m.values, a)
	delete(m.ttls, a)
	return nil
}

// mapStore hands out the same mapArtifacts to every request.
type mapStore struct {
	arts *mapArtifacts
}

func (s mapStore) Open(http.ResponseWriter, *http.Request) Artifacts {
	return s.arts
}

func newTestGate(t *testing.T, p *fakeProvider, mutate ...func(*Options)) *Gate {
	t.Helper()

	opts := Options{
		Settings: StaticSettings(testConfig),
		Identity: IdentityProviderFactoryFunc(func(context.Context, Config) (IdentityProvider, error) {
			return p, nil
		}),
		CSRFKeys: map[string][]byte{
			"test-kid": []byte("secret"),
		},
	}
	for _, m := range mutate {
		m(&opts)
	}

	g, err := New(opts)
	if err != nil {
		t.Fatalf("failed to create gate: %v", err)
	}

	return g
}

func TestNew_RequiresDependencies(t *testing.T) {
	factory := IdentityProviderFactoryFunc(func(context.Context, Config) (IdentityProvider, error) {
		return nil, errors.New("unused")
	})
	keys := map[string][]byte{"k": []byte("s")}

	for _, tc := range []struct {
		desc string
		opts Options
	}{
		{desc: "no settings", opts: Options{Identity: factory, CSRFKeys: keys}},
		{desc: "no identity", opts: Options{Settings: StaticSettings{}, CSRFKeys: keys}},
		{desc: "no keys", opts: Options{Settings: StaticSettings{}, Identity: factory}},
		{desc: "unknown key id", opts: Options{Settings: StaticSettings{}, Identity: factory, CSRFKeys: keys, CSRFKeyID: "other"}},
		{
			desc: "several keys without id",
			opts: Options{Settings: StaticSettings{}, Identity: factory, CSRFKeys: map[string][]byte{"a": []byte("1"), "b": []byte("2")}},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			if _, err := New(tc.opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	g := newTestGate(t, newFakeProvider())

	if g.submitPath != DefaultSubmitPath {
		t.Fatalf("expected submit path %q, got %q", DefaultSubmitPath, g.submitPath)
	}
	if g.logoutPath != DefaultLogoutPath {
		t.Fatalf("expected logout path %q, got %q", DefaultLogoutPath, g.logoutPath)
	}
	if _, ok := g.store.(CookieStore); !ok {
		t.Fatalf("expected default CookieStore, got %T", g.store)
	}
	if !g.allowReset {
		t.Fatal("password reset should be enabled by default")
	}
	if g.Identity().timeout != defaultIdentityTimeout {
		t.Fatalf("expected identity timeout %v, got %v", defaultIdentityTimeout, g.Identity().timeout)
	}
}
