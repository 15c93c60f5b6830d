// Package settings supplies the gate's base identity provider configuration
// from a config file, the environment and built-in defaults.
package settings

import (
	"context"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"github.com/spf13/viper"

	"github.com/alexlup06-authgate/signin-go/signin"
)

// Setting keys, as written in config files. Environment variables use the
// upper-cased key with the EnvPrefix, e.g. SIGNIN_AWS_CLIENT_ID.
const (
	KeyCredentialsPath = "aws_credentials_path"
	KeyProfile         = "aws_credentials_profile"
	KeyRegion          = "aws_region"
	KeyVersion         = "aws_version"
	KeyClientID        = "aws_client_id"
	KeyUserPoolID      = "cognito_user_pool_id"

	EnvPrefix = "SIGNIN"
)

// Provider implements signin.SettingsProvider on a viper instance.
//
// Values are read into a snapshot by Load and served from it, so concurrent
// evaluations never touch viper while a watched file is being reloaded.
type Provider struct {
	v       *viper.Viper
	baseDir string
	log     logr.Logger

	mu  sync.RWMutex
	cfg signin.Config
}

var _ signin.SettingsProvider = (*Provider)(nil)

// SetDefaults registers the built-in defaults and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyCredentialsPath, signin.DefaultCredentialsPath)
	v.SetDefault(KeyProfile, signin.DefaultProfile)
	v.SetDefault(KeyRegion, signin.DefaultRegion)
	v.SetDefault(KeyVersion, signin.DefaultAPIVersion)
	v.SetDefault(KeyClientID, "")
	v.SetDefault(KeyUserPoolID, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// New creates a Provider over v and loads the first snapshot. Relative
// credentials paths are resolved against baseDir.
func New(v *viper.Viper, baseDir string, log logr.Logger) *Provider {
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	SetDefaults(v)
	p := &Provider{v: v, baseDir: baseDir, log: log}
	p.Load()
	return p
}

// Load re-reads the configuration from viper into the snapshot.
func (p *Provider) Load() signin.Config {
	cfg := signin.Config{
		Profile:         p.v.GetString(KeyProfile),
		Region:          p.v.GetString(KeyRegion),
		ClientID:        strings.TrimSpace(p.v.GetString(KeyClientID)),
		UserPoolID:      strings.TrimSpace(p.v.GetString(KeyUserPoolID)),
		CredentialsPath: signin.ResolveCredentialsPath(p.baseDir, p.v.GetString(KeyCredentialsPath)),
		APIVersion:      p.v.GetString(KeyVersion),
	}

	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	return cfg
}

// Settings implements signin.SettingsProvider.
func (p *Provider) Settings(context.Context) (signin.Config, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg, nil
}

// Watch reloads the snapshot whenever viper's config file changes. It has no
// effect when no config file is in use.
func (p *Provider) Watch() {
	if p.v.ConfigFileUsed() == "" {
		return
	}

	p.v.OnConfigChange(func(e fsnotify.Event) {
		cfg := p.Load()
		p.log.Info("settings reloaded", "file", e.Name, "region", cfg.Region, "complete", cfg.Complete())
	})
	p.v.WatchConfig()
}
