package signin

import (
	"context"
)

// Request is one evaluation of host content by the gate.
type Request struct {
	// Content is the raw host content, possibly carrying a gate marker.
	Content string

	// Artifacts are the session artifacts of the visitor.
	Artifacts Artifacts

	// Location is the path (and query) of the page being served. Successful
	// logins redirect here and rendered forms return here.
	Location string

	// StatusCode is the StatusParam value of the request, if any.
	StatusCode string

	// CSRFToken is the anti-forgery token embedded in rendered forms.
	CSRFToken string
}

// Result is the gate's decision for a Request.
type Result struct {
	// Status is the status derived for gated content; zero when the content
	// carried no gate marker.
	Status FilterStatus

	// Content is the transformed content. Empty when Redirect is set.
	Content string

	// Redirect asks the host to redirect the visitor to Location instead of
	// rendering anything.
	Redirect bool
	Location string
}

// Gated reports whether the content carried a gate marker.
func (r Result) Gated() bool {
	return r.Status != 0
}

// Filter runs the authentication state machine over req.
//
// Content without a gate marker is returned unchanged. Otherwise the status
// is re-derived from the request's artifacts (first match wins):
//
//  1. auth token present: Authenticated if the provider validates it,
//     Unauthenticated otherwise
//  2. username, password and reset flag: ResetPassword
//  3. username and reset flag: ForgotPassword
//  4. username and password: AuthenticationPending
//  5. anything else: Unauthenticated
//
// Each evaluation makes at most one identity provider operation.
func (g *Gate) Filter(ctx context.Context, req Request) Result {
	marker, ok := ExtractMarker(req.Content)
	if !ok {
		return Result{Content: req.Content}
	}

	e := &evaluation{
		gate:   g,
		req:    req,
		marker: marker,
		cfg:    g.resolveConfig(ctx, marker),
		arts:   artifactReader{arts: req.Artifacts, log: g.log},
	}

	res := e.run(ctx)
	g.metrics.observeEvaluation(res.Status)
	g.log.V(1).Info("evaluated gated content", "status", res.Status.String(), "redirect", res.Redirect)
	return res
}

// ResolveConfig merges the settings provider's base configuration with the
// overrides of the gate marker in content, if any.
func (g *Gate) ResolveConfig(ctx context.Context, content string) Config {
	marker, _ := ExtractMarker(content)
	return g.resolveConfig(ctx, marker)
}

func (g *Gate) resolveConfig(ctx context.Context, marker Marker) Config {
	base, err := g.settings.Settings(ctx)
	if err != nil {
		// An unreadable settings store leaves the config incomplete, which
		// fails closed with a configuration message.
		g.log.Error(err, "loading settings")
		base = Config{}
	}
	return base.WithOverrides(marker.Attributes())
}

type evaluation struct {
	gate   *Gate
	req    Request
	marker Marker
	cfg    Config
	arts   artifactReader
}

func (e *evaluation) run(ctx context.Context) Result {
	if token, ok := e.arts.value(ctx, ArtifactAuthToken); ok {
		if e.gate.identity.ValidateToken(ctx, token, e.cfg) {
			return e.authenticated()
		}
		return e.unauthenticated(ctx, MessageNone)
	}

	status := derivePendingStatus(
		e.arts.has(ctx, ArtifactUsername),
		e.arts.has(ctx, ArtifactPassword),
		e.arts.has(ctx, ArtifactResetFlag),
	)

	switch status {
	case StatusResetPassword:
		return e.resetPassword(ctx)
	case StatusForgotPassword:
		return e.forgotPassword(ctx)
	case StatusAuthenticationPending:
		return e.authenticationPending(ctx)
	default:
		return e.unauthenticated(ctx, MessageNone)
	}
}

func (e *evaluation) authenticated() Result {
	logout, err := e.gate.renderer.LogoutControl(FormData{
		Action:     e.gate.logoutPath,
		CSRFToken:  e.req.CSRFToken,
		RedirectTo: e.req.Location,
	})
	if err != nil {
		e.gate.log.Error(err, "rendering logout control")
		logout = ""
	}

	return Result{
		Status:  StatusAuthenticated,
		Content: RenderAuthenticatedContent(e.marker, e.req.Content, logout),
	}
}

func (e *evaluation) forgotPassword(ctx context.Context) Result {
	email, valid, _ := e.arts.username(ctx)
	e.arts.clear(ctx, ArtifactUsername, ArtifactResetFlag)

	if !valid {
		return e.loginForm(StatusForgotPassword, MessageInvalidEmail)
	}
	if !e.gate.identity.RequestPasswordReset(ctx, email, e.cfg) {
		return e.loginForm(StatusForgotPassword, MessageResetRequestFailed)
	}
	return e.resetForm(email, MessageResetCodeSent)
}

func (e *evaluation) resetPassword(ctx context.Context) Result {
	email, valid, _ := e.arts.username(ctx)
	newPassword, _ := e.arts.value(ctx, ArtifactPassword)
	code, _ := e.arts.value(ctx, ArtifactResetCode)
	e.arts.clear(ctx, ArtifactUsername, ArtifactPassword, ArtifactResetFlag, ArtifactResetCode)

	msg := MessageResetFailed
	if valid && e.gate.identity.ConfirmPasswordReset(ctx, email, newPassword, code, e.cfg) {
		msg = MessageResetSuccess
	}
	// Both outcomes re-render the login form in place.
	return e.loginForm(StatusResetPassword, msg)
}

func (e *evaluation) authenticationPending(ctx context.Context) Result {
	email, valid, _ := e.arts.username(ctx)
	password, _ := e.arts.value(ctx, ArtifactPassword)
	e.arts.clear(ctx, ArtifactUsername, ArtifactPassword)

	if valid {
		if token, ok := e.gate.identity.Authenticate(ctx, email, password, e.cfg); ok {
			if err := e.arts.set(ctx, ArtifactAuthToken, token); err != nil {
				e.gate.log.Error(err, "storing auth token")
				return e.unauthenticated(ctx, MessageServerAuthFailed)
			}
			return Result{
				Status:   StatusAuthenticationPending,
				Redirect: true,
				Location: e.req.Location,
			}
		}
	}

	return e.unauthenticated(ctx, MessageInvalidLogin)
}

func (e *evaluation) unauthenticated(ctx context.Context, msg Message) Result {
	e.arts.clear(ctx, ArtifactAuthToken)
	return e.loginForm(StatusUnauthenticated, msg)
}

// message picks the login form message: configuration problems first, then
// the outcome of this evaluation, then the status code carried by the
// request, then the default prompt.
func (e *evaluation) message(outcome Message) Message {
	if p := e.cfg.Problem(); p != MessageNone {
		return p
	}
	if outcome != MessageNone {
		return outcome
	}
	if m := MessageForCode(e.req.StatusCode); m != MessageNone {
		return m
	}
	return MessagePleaseLogIn
}

func (e *evaluation) loginForm(status FilterStatus, outcome Message) Result {
	msg := e.message(outcome)
	f := e.formData(msg)
	f.AfterReset = msg == MessageResetSuccess

	form, err := e.gate.renderer.LoginForm(f)
	if err != nil {
		e.gate.log.Error(err, "rendering login form")
		form = ""
	}

	return Result{
		Status:  status,
		Content: RenderUnauthenticatedContent(e.req.Content, form),
	}
}

func (e *evaluation) resetForm(email string, msg Message) Result {
	f := e.formData(msg)
	f.Username = email

	form, err := e.gate.renderer.ResetForm(f)
	if err != nil {
		e.gate.log.Error(err, "rendering reset form")
		form = ""
	}

	return Result{
		Status:  StatusForgotPassword,
		Content: RenderUnauthenticatedContent(e.req.Content, form),
	}
}

func (e *evaluation) formData(msg Message) FormData {
	return FormData{
		Message:    msg.String(),
		Action:     e.gate.submitPath,
		CSRFToken:  e.req.CSRFToken,
		RedirectTo: e.req.Location,
		AllowReset: e.gate.allowReset,
	}
}
