package cognito

import (
	"container/list"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"

	"github.com/alexlup06-authgate/signin-go/signin"
)

// DefaultPoolSize bounds how many distinct configurations keep a pooled
// provider. Marker overrides make the set of configurations open ended.
const DefaultPoolSize = 64

// credentialsFileName is looked up inside the credentials path when that
// path names a directory.
const credentialsFileName = "credentials"

// Option configures a Factory.
type Option func(*Factory)

// WithBaseDir sets the directory relative credentials paths are resolved
// against. Defaults to the working directory.
func WithBaseDir(dir string) Option {
	return func(f *Factory) {
		f.baseDir = dir
	}
}

// WithEndpoint points every client at a custom Cognito endpoint, e.g. a local
// emulator.
func WithEndpoint(url string) Option {
	return func(f *Factory) {
		f.endpoint = url
	}
}

// WithStaticCredentials signs requests with fixed keys instead of the shared
// credentials file.
func WithStaticCredentials(accessKey, secretKey, sessionToken string) Option {
	return func(f *Factory) {
		f.static = credentials.NewStaticCredentialsProvider(accessKey, secretKey, sessionToken)
	}
}

// WithHTTPClient configures the HTTP client used by the SDK.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Factory) {
		f.httpClient = hc
	}
}

// WithLogger sets the logger used for client construction events.
func WithLogger(log logr.Logger) Option {
	return func(f *Factory) {
		f.log = log
	}
}

// WithPoolSize sets how many providers are kept; the least recently used
// one is dropped when the pool is full. Values below 1 keep the default.
func WithPoolSize(n int) Option {
	return func(f *Factory) {
		if n > 0 {
			f.size = n
		}
	}
}

// WithAPI replaces SDK client construction, mainly for tests.
func WithAPI(newAPI func(aws.Config) API) Option {
	return func(f *Factory) {
		f.newAPI = newAPI
	}
}

// Factory builds Providers and pools them by configuration, so credentials
// are loaded once per distinct Config. Only client construction is cached;
// every token check still reaches Cognito.
//
// Loading runs outside the pool lock, and concurrent requests for the same
// configuration share one load.
type Factory struct {
	baseDir    string
	endpoint   string
	static     aws.CredentialsProvider
	httpClient *http.Client
	newAPI     func(aws.Config) API
	log        logr.Logger
	size       int

	loads singleflight.Group

	mu        sync.Mutex
	providers map[string]*list.Element
	recent    *list.List // of *pooled, most recently used first
}

type pooled struct {
	key      string
	provider *Provider
}

var _ signin.IdentityProviderFactory = (*Factory)(nil)

// NewFactory creates a Factory.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		log:       logr.Discard(),
		size:      DefaultPoolSize,
		providers: make(map[string]*list.Element),
		recent:    list.New(),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.baseDir == "" {
		f.baseDir = "."
	}
	if f.newAPI == nil {
		f.newAPI = f.sdkClient
	}
	return f
}

// ProviderFor implements signin.IdentityProviderFactory.
func (f *Factory) ProviderFor(ctx context.Context, cfg signin.Config) (signin.IdentityProvider, error) {
	if !cfg.Complete() {
		return nil, signin.ErrConfigurationIncomplete
	}

	key := cfg.Hash()
	if p, ok := f.cached(key); ok {
		return p, nil
	}

	v, err, _ := f.loads.Do(key, func() (any, error) {
		if p, ok := f.cached(key); ok {
			return p, nil
		}

		// The load is shared with other callers, so one caller's
		// cancellation must not fail it for the rest.
		awsCfg, err := f.loadConfig(context.WithoutCancel(ctx), cfg)
		if err != nil {
			return nil, err
		}

		p := NewProvider(f.newAPI(awsCfg), cfg.UserPoolID, cfg.ClientID)
		f.add(key, p)
		f.log.V(1).Info("built cognito client", "region", cfg.Region, "profile", cfg.Profile, "userPoolId", cfg.UserPoolID)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Provider), nil
}

func (f *Factory) cached(key string) (*Provider, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.providers[key]
	if !ok {
		return nil, false
	}
	f.recent.MoveToFront(e)
	return e.Value.(*pooled).provider, true
}

func (f *Factory) add(key string, p *Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.providers[key] = f.recent.PushFront(&pooled{key: key, provider: p})
	for f.recent.Len() > f.size {
		oldest := f.recent.Back()
		f.recent.Remove(oldest)
		delete(f.providers, oldest.Value.(*pooled).key)
		f.log.V(1).Info("evicted cognito client", "poolSize", f.size)
	}
}

// Len reports how many providers are pooled.
func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recent.Len()
}

func (f *Factory) loadConfig(ctx context.Context, cfg signin.Config) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	switch {
	case f.static != nil:
		opts = append(opts, config.WithCredentialsProvider(f.static))
	case cfg.Profile != "":
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
		fallthrough
	default:
		opts = append(opts, config.WithSharedCredentialsFiles([]string{f.credentialsFile(cfg.CredentialsPath)}))
	}

	if f.httpClient != nil {
		opts = append(opts, config.WithHTTPClient(f.httpClient))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("%w: loading aws config: %w", signin.ErrIdentityProvider, err)
	}
	return awsCfg, nil
}

// credentialsFile applies the credentials path rules and, when the result is
// a directory, points at the credentials file inside it.
func (f *Factory) credentialsFile(path string) string {
	path = signin.ResolveCredentialsPath(f.baseDir, path)

	if strings.HasSuffix(path, string(filepath.Separator)) {
		return filepath.Join(path, credentialsFileName)
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return filepath.Join(path, credentialsFileName)
	}
	return path
}

func (f *Factory) sdkClient(awsCfg aws.Config) API {
	return cip.NewFromConfig(awsCfg, func(o *cip.Options) {
		if f.endpoint != "" {
			o.BaseEndpoint = aws.String(f.endpoint)
		}
	})
}
