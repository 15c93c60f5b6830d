package signin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// Config is the identity provider configuration used for one evaluation.
//
// A Config is built by merging the settings provider's base values with the
// overrides carried in the gate marker, and is treated as immutable once
// resolved: WithOverrides returns a modified copy.
type Config struct {
	// Profile is the shared-credentials profile used to sign provider calls.
	Profile string

	// Region is the AWS region hosting the user pool (e.g. "us-east-2").
	Region string

	// ClientID is the user pool app client id used for password auth.
	ClientID string

	// UserPoolID identifies the user pool that owns the accounts.
	UserPoolID string

	// CredentialsPath locates the shared credentials file. Settings providers
	// resolve it with ResolveCredentialsPath before handing it to the gate.
	CredentialsPath string

	// APIVersion is carried for settings compatibility; the provider client
	// always speaks the current API.
	APIVersion string
}

// Defaults applied by settings providers when a key is unset.
const (
	DefaultProfile         = "default"
	DefaultRegion          = "us-east-2"
	DefaultAPIVersion      = "latest"
	DefaultCredentialsPath = "credentials"
)

// DefaultConfig returns the configuration a freshly installed gate starts with.
// Client id and user pool id are intentionally empty.
func DefaultConfig() Config {
	return Config{
		Profile:         DefaultProfile,
		Region:          DefaultRegion,
		CredentialsPath: DefaultCredentialsPath,
		APIVersion:      DefaultAPIVersion,
	}
}

// overrideKeys maps the lowercased marker attribute names to the field they
// override. The aws_/cognito_ spellings are the legacy attribute names.
var overrideKeys = map[string]func(*Config, string){
	"profile":              func(c *Config, v string) { c.Profile = v },
	"aws_profile":          func(c *Config, v string) { c.Profile = v },
	"region":               func(c *Config, v string) { c.Region = v },
	"aws_region":           func(c *Config, v string) { c.Region = v },
	"clientid":             func(c *Config, v string) { c.ClientID = v },
	"aws_client_id":        func(c *Config, v string) { c.ClientID = v },
	"userpoolid":           func(c *Config, v string) { c.UserPoolID = v },
	"cognito_user_pool_id": func(c *Config, v string) { c.UserPoolID = v },
}

// WithOverrides returns a copy of c with the allow-listed attributes applied.
// Keys are matched case-insensitively; anything else is ignored.
func (c Config) WithOverrides(attrs map[string]string) Config {
	out := c
	for k, v := range attrs {
		if set, ok := overrideKeys[strings.ToLower(k)]; ok {
			set(&out, v)
		}
	}
	return out
}

// Problem reports the configuration-error message for an incomplete config,
// or MessageNone when the client id and user pool id are both set.
func (c Config) Problem() Message {
	switch {
	case c.ClientID == "":
		return MessageNoClientID
	case c.UserPoolID == "":
		return MessageNoUserPoolID
	default:
		return MessageNone
	}
}

// Complete reports whether c carries enough information to reach the
// identity provider.
func (c Config) Complete() bool {
	return c.Problem() == MessageNone
}

// Hash returns a stable digest of every field, suitable as a pool key for
// identity clients built from this configuration.
func (c Config) Hash() string {
	h := sha256.New()
	for _, f := range []string{c.Profile, c.Region, c.ClientID, c.UserPoolID, c.CredentialsPath, c.APIVersion} {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ResolveCredentialsPath applies the credentials location rules: absolute
// paths are kept, relative paths are joined to baseDir, and an empty path
// resolves to baseDir itself so developer credentials under the home
// directory are never picked up by accident.
func ResolveCredentialsPath(baseDir, path string) string {
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return withTrailingSeparator(baseDir)
	case filepath.IsAbs(path):
		return path
	default:
		return filepath.Join(baseDir, path)
	}
}

func withTrailingSeparator(dir string) string {
	if dir == "" || strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}

// SettingsProvider supplies the base configuration. It is consulted on every
// evaluation so changes take effect without restarting the gate.
type SettingsProvider interface {
	Settings(ctx context.Context) (Config, error)
}

// StaticSettings is a SettingsProvider that always returns the same Config.
type StaticSettings Config

// Settings implements SettingsProvider.
func (s StaticSettings) Settings(context.Context) (Config, error) {
	return Config(s), nil
}
