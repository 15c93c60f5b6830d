// Package redisstore keeps session artifacts in Redis, keyed by a random
// session id carried in a single cookie.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alexlup06-authgate/signin-go/signin"
)

const (
	// DefaultPrefix namespaces every key written by the store.
	DefaultPrefix = "signin"

	// SessionCookieName carries the session id.
	SessionCookieName = "sign_in_sid_" + signin.CookieSalt
)

// Store implements signin.SessionStore on Redis. Artifact values never
// leave the server; the browser only holds the session id.
type Store struct {
	client redis.UniversalClient
	prefix string
	secure bool
}

var _ signin.SessionStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(s *Store) {
		s.secure = secure
	}
}

// New creates a Store on an existing client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks that Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", signin.ErrStoreUnavailable, err)
	}
	return nil
}

// Open implements signin.SessionStore. A session id is only issued when the
// first artifact is written.
func (s *Store) Open(w http.ResponseWriter, r *http.Request) signin.Artifacts {
	sess := &session{store: s, w: w}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			sess.id = id.String()
		}
	}
	return sess
}

func (s *Store) key(sid string, a signin.Artifact) string {
	return s.prefix + ":" + sid + ":" + a.String()
}

type session struct {
	store *Store
	w     http.ResponseWriter
	id    string
}

func (s *session) Get(ctx context.Context, a signin.Artifact) (string, bool, error) {
	if s.id == "" {
		return "", false, nil
	}

	v, err := s.store.client.Get(ctx, s.store.key(s.id, a)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", signin.ErrStoreUnavailable, err)
	}
	return v, true, nil
}

func (s *session) Set(ctx context.Context, a signin.Artifact, value string, ttl time.Duration) error {
	if s.id == "" {
		s.id = uuid.NewString()
		s.writeCookie()
	} else if a == signin.ArtifactAuthToken {
		s.writeCookie()
	}

	if err := s.store.client.Set(ctx, s.store.key(s.id, a), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", signin.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *session) Clear(ctx context.Context, a signin.Artifact) error {
	if s.id == "" {
		return nil
	}
	if err := s.store.client.Del(ctx, s.store.key(s.id, a)).Err(); err != nil {
		return fmt.Errorf("%w: %v", signin.ErrStoreUnavailable, err)
	}
	return nil
}

// writeCookie (re)issues the session cookie so it outlives the longest
// artifact.
func (s *session) writeCookie() {
	http.SetCookie(s.w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.id,
		Path:     "/",
		MaxAge:   int(signin.TokenTTL / time.Second),
		HttpOnly: true,
		Secure:   s.store.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
