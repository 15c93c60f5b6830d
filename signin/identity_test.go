package signin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestIdentityClient(p IdentityProvider, log logr.Logger, m *Metrics) *IdentityClient {
	return newIdentityClient(IdentityProviderFactoryFunc(func(context.Context, Config) (IdentityProvider, error) {
		return p, nil
	}), time.Second, log, m)
}

func TestIdentityClient_Authenticate(t *testing.T) {
	c := newTestIdentityClient(newFakeProvider(), logr.Discard(), nil)
	ctx := context.Background()

	if token, ok := c.Authenticate(ctx, "A@B.COM", "Secret1!", testConfig); !ok || token != "issued-token" {
		t.Fatalf("expected success with lower-cased email, got %q (ok=%v)", token, ok)
	}

	for _, tc := range []struct {
		email    string
		password string
	}{
		{email: "a@b.com", password: "wrong"},
		{email: "nobody@b.com", password: "Secret1!"},
		{email: "", password: "Secret1!"},
		{email: "a@b.com", password: ""},
	} {
		if _, ok := c.Authenticate(ctx, tc.email, tc.password, testConfig); ok {
			t.Errorf("Authenticate(%q, %q) should fail", tc.email, tc.password)
		}
	}
}

func TestIdentityClient_IncompleteConfigSkipsProvider(t *testing.T) {
	p := newFakeProvider()
	c := newTestIdentityClient(p, logr.Discard(), nil)
	ctx := context.Background()

	cfg := testConfig
	cfg.UserPoolID = ""

	if c.ValidateToken(ctx, "valid-token", cfg) {
		t.Fatal("incomplete config must fail closed")
	}
	if _, ok := c.Authenticate(ctx, "a@b.com", "Secret1!", cfg); ok {
		t.Fatal("incomplete config must fail closed")
	}
	if c.RequestPasswordReset(ctx, "a@b.com", cfg) {
		t.Fatal("incomplete config must fail closed")
	}
	if c.ConfirmPasswordReset(ctx, "a@b.com", "N3w!Secret", "123456", cfg) {
		t.Fatal("incomplete config must fail closed")
	}
	if len(p.calls) != 0 {
		t.Fatalf("expected no provider calls, got %v", p.calls)
	}
}

type blockingProvider struct {
	*fakeProvider
}

func (blockingProvider) GetUser(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestIdentityClient_TimeoutIsNegative(t *testing.T) {
	c := newIdentityClient(IdentityProviderFactoryFunc(func(context.Context, Config) (IdentityProvider, error) {
		return blockingProvider{newFakeProvider()}, nil
	}), 10*time.Millisecond, logr.Discard(), nil)

	start := time.Now()
	if c.ValidateToken(context.Background(), "valid-token", testConfig) {
		t.Fatal("timed out call should be negative")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout not applied, call took %v", elapsed)
	}
}

type panickingProvider struct {
	*fakeProvider
}

func (panickingProvider) GetUser(context.Context, string) (string, error) {
	panic("sdk bug")
}

func TestIdentityClient_RecoversProviderPanics(t *testing.T) {
	c := newTestIdentityClient(panickingProvider{newFakeProvider()}, logr.Discard(), nil)

	if c.ValidateToken(context.Background(), "valid-token", testConfig) {
		t.Fatal("panicking provider should be negative")
	}
}

func TestIdentityClient_FactoryError(t *testing.T) {
	c := newIdentityClient(IdentityProviderFactoryFunc(func(context.Context, Config) (IdentityProvider, error) {
		return nil, errors.New("no credentials")
	}), time.Second, logr.Discard(), nil)

	if c.RequestPasswordReset(context.Background(), "a@b.com", testConfig) {
		t.Fatal("factory error should be negative")
	}
}

func TestIdentityClient_NeverLogsSecrets(t *testing.T) {
	var logs strings.Builder
	log := funcr.New(func(prefix, args string) {
		logs.WriteString(prefix + " " + args + "\n")
	}, funcr.Options{Verbosity: 1})

	p := newFakeProvider()
	p.err = errors.New("throttled")
	c := newTestIdentityClient(p, log, nil)
	ctx := context.Background()

	c.Authenticate(ctx, "a@b.com", "Secret1!", testConfig)
	c.ValidateToken(ctx, "valid-token", testConfig)
	c.ConfirmPasswordReset(ctx, "a@b.com", "N3w!Secret", "123456", testConfig)

	out := logs.String()
	if !strings.Contains(out, "throttled") {
		t.Fatalf("expected provider fault to be logged, got %q", out)
	}
	for _, secret := range []string{"Secret1!", "valid-token", "N3w!Secret", "123456"} {
		if strings.Contains(out, secret) {
			t.Fatalf("log output contains %q:\n%s", secret, out)
		}
	}
}

func TestIdentityClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := newTestIdentityClient(newFakeProvider(), logr.Discard(), m)
	ctx := context.Background()

	c.ValidateToken(ctx, "valid-token", testConfig)
	c.ValidateToken(ctx, "stale-token", testConfig)
	c.ValidateToken(ctx, "stale-token", testConfig)

	if got := testutil.ToFloat64(m.identityCalls.WithLabelValues("get_user", "ok")); got != 1 {
		t.Fatalf("expected 1 successful call, got %v", got)
	}
	if got := testutil.ToFloat64(m.identityCalls.WithLabelValues("get_user", "error")); got != 2 {
		t.Fatalf("expected 2 failed calls, got %v", got)
	}
	if n := testutil.CollectAndCount(m.identityLatency); n != 1 {
		t.Fatalf("expected one latency series, got %d", n)
	}
}

func TestFilter_RecordsEvaluations(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	g := newTestGate(t, newFakeProvider(), func(o *Options) { o.Metrics = m })

	runFilter(t, g, newMapArtifacts(nil), testContent, "")
	runFilter(t, g, newMapArtifacts(map[Artifact]string{ArtifactAuthToken: "valid-token"}), testContent, "")

	if got := testutil.ToFloat64(m.evaluations.WithLabelValues("unauthenticated")); got != 1 {
		t.Fatalf("expected 1 unauthenticated evaluation, got %v", got)
	}
	if got := testutil.ToFloat64(m.evaluations.WithLabelValues("authenticated")); got != 1 {
		t.Fatalf("expected 1 authenticated evaluation, got %v", got)
	}
}
