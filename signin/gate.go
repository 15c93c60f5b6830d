package signin

import (
	"errors"
	"time"

	"github.com/go-logr/logr"
)

// Options configures a Gate. Settings, Identity and CSRFKeys are required;
// New returns an error if any of them is missing.
type Options struct {
	// Settings supplies the base identity provider configuration.
	Settings SettingsProvider

	// Identity builds identity providers per resolved configuration.
	Identity IdentityProviderFactory

	// Store holds the session artifacts. Defaults to a CookieStore.
	Store SessionStore

	// CSRFKeys maps key IDs to HMAC secrets used to sign anti-forgery
	// tokens. Several keys may be listed to support rotation.
	CSRFKeys map[string][]byte

	// CSRFKeyID selects the key used to sign new tokens. It may be left
	// empty when CSRFKeys holds a single key.
	CSRFKeyID string

	// SubmitPath and LogoutPath are where the rendered forms post to.
	SubmitPath string
	LogoutPath string

	// DisablePasswordReset hides the forgot-password toggle.
	DisablePasswordReset bool

	// SecureCookies marks the CSRF cookie (and the default CookieStore's
	// cookies) Secure.
	SecureCookies bool

	// IdentityTimeout bounds each identity provider call. Defaults to 10s.
	IdentityTimeout time.Duration

	// Logger receives faults and, at V(1), state transitions.
	// The zero value discards everything.
	Logger logr.Logger

	// Metrics records outcomes. May be nil.
	Metrics *Metrics

	// Now overrides the clock used for anti-forgery tokens.
	Now func() time.Time
}

// Gate decides, per request, whether gated content is revealed or replaced
// by a login prompt.
type Gate struct {
	settings   SettingsProvider
	identity   *IdentityClient
	store      SessionStore
	forms      *formSigner
	renderer   *Renderer
	submitPath string
	logoutPath string
	allowReset bool
	secure     bool
	log        logr.Logger
	metrics    *Metrics
}

// New validates opts and builds a Gate.
func New(opts Options) (*Gate, error) {
	if opts.Settings == nil {
		return nil, errors.New("signin: settings provider is required")
	}
	if opts.Identity == nil {
		return nil, errors.New("signin: identity provider factory is required")
	}

	forms, err := newFormSigner(opts.CSRFKeys, opts.CSRFKeyID, opts.Now)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	store := opts.Store
	if store == nil {
		store = CookieStore{Secure: opts.SecureCookies}
	}

	submitPath := opts.SubmitPath
	if submitPath == "" {
		submitPath = DefaultSubmitPath
	}
	logoutPath := opts.LogoutPath
	if logoutPath == "" {
		logoutPath = DefaultLogoutPath
	}

	return &Gate{
		settings:   opts.Settings,
		identity:   newIdentityClient(opts.Identity, opts.IdentityTimeout, log.WithName("identity"), opts.Metrics),
		store:      store,
		forms:      forms,
		renderer:   NewRenderer(),
		submitPath: submitPath,
		logoutPath: logoutPath,
		allowReset: !opts.DisablePasswordReset,
		secure:     opts.SecureCookies,
		log:        log,
		metrics:    opts.Metrics,
	}, nil
}

// Identity exposes the gate's identity client.
func (g *Gate) Identity() *IdentityClient {
	return g.identity
}
