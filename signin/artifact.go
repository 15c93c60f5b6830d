package signin

import (
	"context"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// Artifact names one piece of short-lived session state.
type Artifact int

const (
	ArtifactAuthToken Artifact = iota
	ArtifactUsername
	ArtifactPassword
	ArtifactResetFlag
	ArtifactResetCode
)

// Name returns the salted cookie (or key) name of the artifact.
func (a Artifact) Name() string {
	switch a {
	case ArtifactAuthToken:
		return AuthTokenCookieName
	case ArtifactUsername:
		return UsernameCookieName
	case ArtifactPassword:
		return PasswordCookieName
	case ArtifactResetFlag:
		return ResetFlagCookieName
	case ArtifactResetCode:
		return ResetCodeCookieName
	default:
		return ""
	}
}

// TTL returns how long the artifact lives once set.
func (a Artifact) TTL() time.Duration {
	if a == ArtifactAuthToken {
		return TokenTTL
	}
	return PendingTTL
}

func (a Artifact) String() string {
	switch a {
	case ArtifactAuthToken:
		return "auth_token"
	case ArtifactUsername:
		return "username"
	case ArtifactPassword:
		return "password"
	case ArtifactResetFlag:
		return "reset_flag"
	case ArtifactResetCode:
		return "reset_code"
	default:
		return "unknown"
	}
}

// pendingArtifacts are the single-use artifacts set by the submission endpoint.
var pendingArtifacts = []Artifact{ArtifactUsername, ArtifactPassword, ArtifactResetFlag, ArtifactResetCode}

// Artifacts reads and writes the session artifacts of one request.
//
// Get reports false for an artifact that is absent or past its expiry.
// Clearing an artifact that is not set is a no-op.
type Artifacts interface {
	Get(ctx context.Context, a Artifact) (string, bool, error)
	Set(ctx context.Context, a Artifact, value string, ttl time.Duration) error
	Clear(ctx context.Context, a Artifact) error
}

// SessionStore opens the artifacts of a request. Implementations may write
// cookies to w, so Open must be called before the response header is sent.
type SessionStore interface {
	Open(w http.ResponseWriter, r *http.Request) Artifacts
}

// artifactReader applies the per-kind decoding and sanitising rules on top
// of an Artifacts implementation. Store faults read as absent.
type artifactReader struct {
	arts Artifacts
	log  logr.Logger
}

func (r artifactReader) raw(ctx context.Context, a Artifact) (string, bool) {
	v, ok, err := r.arts.Get(ctx, a)
	if err != nil {
		r.log.Error(err, "reading session artifact", "artifact", a.String())
		return "", false
	}
	if !ok {
		return "", false
	}
	return v, true
}

func (r artifactReader) has(ctx context.Context, a Artifact) bool {
	_, ok := r.raw(ctx, a)
	return ok
}

// value returns the URL-decoded artifact value.
func (r artifactReader) value(ctx context.Context, a Artifact) (string, bool) {
	v, ok := r.raw(ctx, a)
	if !ok {
		return "", false
	}
	decoded, err := url.QueryUnescape(v)
	if err != nil {
		return v, true
	}
	return decoded, true
}

// username returns the decoded, email-sanitised username and whether it is
// a well-formed email. A malformed username is invalid input, not absent.
func (r artifactReader) username(ctx context.Context) (email string, valid bool, ok bool) {
	v, ok := r.value(ctx, ArtifactUsername)
	if !ok {
		return "", false, false
	}
	email = SanitizeEmail(v)
	return email, ValidEmail(email), true
}

func (r artifactReader) clear(ctx context.Context, artifacts ...Artifact) {
	for _, a := range artifacts {
		if err := r.arts.Clear(ctx, a); err != nil {
			r.log.Error(err, "clearing session artifact", "artifact", a.String())
		}
	}
}

func (r artifactReader) set(ctx context.Context, a Artifact, value string) error {
	return r.arts.Set(ctx, a, url.QueryEscape(value), a.TTL())
}

// SanitizeEmail removes every character that cannot appear in an email
// address: anything but letters, digits and !#$%&'*+-=?^_`{|}~@.[]
func SanitizeEmail(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("!#$%&'*+-=?^_`{|}~@.[]", r):
			return r
		default:
			return -1
		}
	}, s)
}

// ValidEmail reports whether s is a bare addr-spec with a dotted domain.
func ValidEmail(s string) bool {
	if s == "" || strings.Count(s, "@") != 1 {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	local, domain, _ := strings.Cut(s, "@")
	if local == "" || domain == "" {
		return false
	}
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	return true
}
