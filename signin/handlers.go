package signin

import (
	"net/http"
	"net/url"
	"strings"
)

// SubmitHandler returns the endpoint the gate's forms post to.
//
// The handler never talks to the identity provider. It checks the
// anti-forgery token, stores the submitted values as short-lived artifacts
// and redirects back to the referring page, where the next evaluation of the
// gated content acts on them. Which artifacts are set depends on the fields:
//
//   - new_password present: reset confirmation (username, new password as
//     the pending password, reset flag, reset code)
//   - forgot_password present: reset request (username, reset flag)
//   - otherwise: login (username, password)
//
// A failed anti-forgery check redirects with server_authentication_failed and
// stores nothing; a malformed email on a reset request redirects with
// invalid_email.
func (g *Gate) SubmitHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		target := redirectTarget(r, r.PostFormValue(RedirectField))

		if err := g.verifySubmission(r); err != nil {
			g.log.Info("rejected form submission", "reason", err.Error())
			g.metrics.observeSubmission("rejected", CodeServerAuthenticationFail)
			redirectWithCode(w, r, target, CodeServerAuthenticationFail)
			return
		}

		kind, code, err := g.storeSubmission(w, r)
		if err != nil {
			g.log.Error(err, "storing form submission", "kind", kind)
			code = CodeServerAuthenticationFail
		}
		g.metrics.observeSubmission(kind, code)
		redirectWithCode(w, r, target, code)
	})
}

func (g *Gate) storeSubmission(w http.ResponseWriter, r *http.Request) (kind, code string, err error) {
	arts := artifactReader{arts: g.store.Open(w, r), log: g.log}
	ctx := r.Context()
	username := strings.TrimSpace(r.PostFormValue(UsernameField))

	switch {
	case r.PostFormValue(NewPasswordField) != "":
		kind = "reset_confirm"
		err = setAll(
			func() error { return arts.set(ctx, ArtifactUsername, username) },
			func() error { return arts.set(ctx, ArtifactPassword, r.PostFormValue(NewPasswordField)) },
			func() error { return arts.set(ctx, ArtifactResetFlag, "1") },
			func() error { return arts.set(ctx, ArtifactResetCode, strings.TrimSpace(r.PostFormValue(ResetCodeField))) },
		)
		return kind, "", err

	case r.PostFormValue(ForgotPasswordField) != "":
		kind = "reset_request"
		if !ValidEmail(SanitizeEmail(username)) {
			return kind, CodeInvalidEmail, nil
		}
		err = setAll(
			func() error { return arts.set(ctx, ArtifactUsername, username) },
			func() error { return arts.set(ctx, ArtifactResetFlag, "1") },
		)
		return kind, "", err

	default:
		kind = "login"
		err = setAll(
			func() error { return arts.set(ctx, ArtifactUsername, username) },
			func() error { return arts.set(ctx, ArtifactPassword, r.PostFormValue(PasswordField)) },
		)
		return kind, "", err
	}
}

func setAll(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// LogoutHandler returns the endpoint that ends a session. It accepts the
// logout control's POST only, checks its anti-forgery token like
// SubmitHandler does, then clears the auth token (and any pending artifacts)
// and redirects back to the referring page. A forged logout redirects with
// server_authentication_failed and leaves the session alone.
func (g *Gate) LogoutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		target := redirectTarget(r, r.PostFormValue(RedirectField))

		if err := g.verifySubmission(r); err != nil {
			g.log.Info("rejected logout", "reason", err.Error())
			g.metrics.observeSubmission("logout", CodeServerAuthenticationFail)
			redirectWithCode(w, r, target, CodeServerAuthenticationFail)
			return
		}

		arts := artifactReader{arts: g.store.Open(w, r), log: g.log}
		arts.clear(r.Context(), ArtifactAuthToken)
		arts.clear(r.Context(), pendingArtifacts...)

		g.log.V(1).Info("logged out")
		redirectWithCode(w, r, target, "")
	})
}

// redirectTarget picks the page to return to: the explicit redirect_to
// value, then the Referer header, then "/". Only same-origin targets are
// honoured and any previous status code is dropped.
func redirectTarget(r *http.Request, explicit string) string {
	for _, candidate := range []string{explicit, r.Referer()} {
		if target, ok := sameOriginPath(r, candidate); ok {
			return target
		}
	}
	return "/"
}

func sameOriginPath(r *http.Request, raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host != "" && !strings.EqualFold(u.Host, r.Host) {
		return "", false
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") || strings.Contains(u.Path, `\`) {
		return "", false
	}

	q := u.Query()
	q.Del(StatusParam)

	target := u.EscapedPath()
	if enc := q.Encode(); enc != "" {
		target += "?" + enc
	}
	return target, true
}

func redirectWithCode(w http.ResponseWriter, r *http.Request, target, code string) {
	if code != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + StatusParam + "=" + url.QueryEscape(code)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// currentLocation is the request's own path and query without a status code,
// used as the return location of rendered forms and successful logins.
func currentLocation(r *http.Request) string {
	q := r.URL.Query()
	q.Del(StatusParam)

	loc := r.URL.EscapedPath()
	if loc == "" {
		loc = "/"
	}
	if enc := q.Encode(); enc != "" {
		loc += "?" + enc
	}
	return loc
}
