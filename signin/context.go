package signin

import "context"

type usernameKeyType struct{}

var usernameKey = usernameKeyType{}

// withUsername returns a new context containing the authenticated username.
func withUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// UsernameFromContext extracts the username attached by TryAuth.
//
// The boolean return value is false if the request is unauthenticated or
// did not pass through TryAuth.
func UsernameFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(usernameKey).(string)
	return u, ok && u != ""
}

// IsAuthenticated reports whether the context carries an authenticated
// username.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := UsernameFromContext(ctx)
	return ok
}
