package signin

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CookieStore keeps session artifacts in browser cookies.
//
// Each cookie value carries its own expiry ("<unix>.<base64 value>") so an
// artifact replayed past its TTL reads as absent even if the browser kept it.
type CookieStore struct {
	// Secure marks every cookie Secure. Enable it whenever the gate is served
	// over HTTPS.
	Secure bool

	// Now overrides the clock. If nil, time.Now is used.
	Now func() time.Time
}

// Open implements SessionStore.
func (s CookieStore) Open(w http.ResponseWriter, r *http.Request) Artifacts {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	return &cookieArtifacts{
		w:       w,
		r:       r,
		secure:  s.Secure,
		now:     now,
		written: make(map[Artifact]string),
		cleared: make(map[Artifact]bool),
	}
}

type cookieArtifacts struct {
	w      http.ResponseWriter
	r      *http.Request
	secure bool
	now    func() time.Time

	// The request's cookies are immutable, so writes made during this
	// request are tracked here to keep Get consistent with Set and Clear.
	written map[Artifact]string
	cleared map[Artifact]bool
}

func (c *cookieArtifacts) Get(_ context.Context, a Artifact) (string, bool, error) {
	if v, ok := c.written[a]; ok {
		return v, true, nil
	}
	if c.cleared[a] {
		return "", false, nil
	}

	cookie, err := c.r.Cookie(a.Name())
	if err != nil || cookie.Value == "" {
		return "", false, nil
	}

	v, ok := decodeCookieValue(cookie.Value, c.now())
	return v, ok, nil
}

func (c *cookieArtifacts) Set(_ context.Context, a Artifact, value string, ttl time.Duration) error {
	expires := c.now().Add(ttl)
	http.SetCookie(c.w, &http.Cookie{
		Name:     a.Name(),
		Value:    encodeCookieValue(value, expires),
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})

	c.written[a] = value
	delete(c.cleared, a)
	return nil
}

func (c *cookieArtifacts) Clear(_ context.Context, a Artifact) error {
	if c.cleared[a] {
		return nil
	}
	_, wrote := c.written[a]
	if _, err := c.r.Cookie(a.Name()); err != nil && !wrote {
		return nil
	}

	http.SetCookie(c.w, &http.Cookie{
		Name:     a.Name(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(1, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})

	delete(c.written, a)
	c.cleared[a] = true
	return nil
}

func encodeCookieValue(value string, expires time.Time) string {
	return strconv.FormatInt(expires.Unix(), 10) + "." + base64.RawURLEncoding.EncodeToString([]byte(value))
}

func decodeCookieValue(raw string, now time.Time) (string, bool) {
	exp, enc, ok := strings.Cut(raw, ".")
	if !ok {
		return "", false
	}

	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil || !now.Before(time.Unix(unix, 0)) {
		return "", false
	}

	b, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return "", false
	}
	return string(b), true
}
