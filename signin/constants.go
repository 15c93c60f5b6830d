package signin

import "time"

const (
	// CookieSalt namespaces every cookie the gate reads or writes so they do
	// not collide with cookies set by the content host.
	CookieSalt = "FwAlpiSjsb"

	// AuthTokenCookieName is the name of the cookie that stores the identity
	// provider's access token once a login succeeds.
	AuthTokenCookieName = "sign_in_auth_token_" + CookieSalt

	// UsernameCookieName carries the submitted email across the redirect that
	// follows a form submission.
	UsernameCookieName = "sign_in_user_name_" + CookieSalt

	// PasswordCookieName carries the submitted password (or the new password
	// during a reset) across the redirect that follows a form submission.
	PasswordCookieName = "sign_in_password_" + CookieSalt

	// ResetFlagCookieName marks that the visitor took the "forgot password"
	// branch of the login form.
	ResetFlagCookieName = "sign_in_reset_password_" + CookieSalt

	// ResetCodeCookieName carries the provider-issued reset code across the
	// redirect that follows the reset form submission.
	ResetCodeCookieName = "sign_in_reset_code_" + CookieSalt

	// CSRFCookieName is the name of the cookie that binds anti-forgery tokens
	// to a browser (double-submit cookie pattern).
	CSRFCookieName = "sign_in_csrf_" + CookieSalt

	// TokenTTL is how long the auth token artifact lives in the browser.
	TokenTTL = 14000 * time.Second

	// PendingTTL is just long enough to survive the redirect after a form
	// submission.
	PendingTTL = 120 * time.Second

	// GatePrefix opens the access-control marker, e.g.
	// [sign_in_require_auth region="us-west-2"].
	GatePrefix = "sign_in_require_auth"

	// LogoutMarker is replaced by a logout control for authenticated visitors
	// and removed for everyone else.
	LogoutMarker = "[sign_in_logout]"

	// StatusParam is the query parameter used to carry a status code back to
	// the referring page after a submission.
	StatusParam = "sign_in_status"

	// DefaultSubmitPath is where the login, forgot-password and reset forms
	// post to unless Options.SubmitPath says otherwise.
	DefaultSubmitPath = "/sign-in/submit"

	// DefaultLogoutPath is where the logout control posts to unless
	// Options.LogoutPath says otherwise.
	DefaultLogoutPath = "/sign-in/logout"

	// Form field names understood by the submission endpoint.
	UsernameField       = "username"
	PasswordField       = "password"
	NewPasswordField    = "new_password"
	ResetCodeField      = "reset_code"
	ForgotPasswordField = "forgot_password"
	RedirectField       = "redirect_to"

	// CSRFFormField is the name of the hidden form field carrying the
	// anti-forgery token.
	CSRFFormField = "csrf_token"

	// formTokenAudience scopes anti-forgery tokens to the submission endpoint.
	formTokenAudience = "sign_in_submit"

	// formTokenIssuer is stamped on every anti-forgery token this package issues.
	formTokenIssuer = "signin"

	// formTokenTTL bounds how long a rendered form stays submittable.
	formTokenTTL = 12 * time.Hour

	// clockSkew defines the allowed clock skew when validating anti-forgery
	// token timestamps across gate replicas.
	clockSkew = 2 * time.Minute

	// defaultIdentityTimeout bounds every call to the identity provider.
	defaultIdentityTimeout = 10 * time.Second
)
