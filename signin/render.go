package signin

import (
	"bytes"
	"html/template"
	"strings"
)

// FormData seeds the login, reset and logout controls.
type FormData struct {
	// Message is shown above the form.
	Message string

	// Action is the URL the form posts to.
	Action string

	// CSRFToken is the signed anti-forgery token.
	CSRFToken string

	// RedirectTo is the page to return to after the submission.
	RedirectTo string

	// Username pre-fills the reset form.
	Username string

	// AllowReset adds the forgot-password toggle to the login form.
	AllowReset bool

	// AfterReset puts the login form in new-password mode, shown once a
	// reset has gone through.
	AfterReset bool
}

const loginTemplate = `<form class="sign-in-login" method="post" action="{{.Action}}">
	<div class="sign-in-error">{{.Message}}</div>
	<input type="hidden" name="` + CSRFFormField + `" value="{{.CSRFToken}}" />
	<input type="hidden" name="` + RedirectField + `" value="{{.RedirectTo}}" />
	<div class="sign-in-label-input-pair">
		<label for="user_name_sign_in">Email:</label>
		<input type="text" id="user_name_sign_in" name="` + UsernameField + `" value="" autocomplete="username" />
	</div>
	<div class="sign-in-label-input-pair" id="password_pair_sign_in">
{{- if .AfterReset}}
		<label for="password_sign_in">New password:</label>
		<input type="password" id="password_sign_in" name="` + PasswordField + `" value="" autocomplete="new-password" />
{{- else}}
		<label for="password_sign_in">Password:</label>
		<input type="password" id="password_sign_in" name="` + PasswordField + `" value="" autocomplete="current-password" />
{{- end}}
	</div>
{{- if and .AllowReset (not .AfterReset)}}
	<div class="sign-in-label-input-pair">
		<input type="checkbox" id="forgot_password_sign_in" name="` + ForgotPasswordField + `" value="1"
			onchange="document.getElementById('password_pair_sign_in').hidden = this.checked;" />
		<label for="forgot_password_sign_in">Forgot password</label>
	</div>
{{- end}}
	<div class="sign-in-label-input-pair">
		<input type="submit" value="Log In" />
	</div>
</form>
`

const resetTemplate = `<form class="sign-in-reset" method="post" action="{{.Action}}" onsubmit="return sign_in_check_password(event);">
	<div class="sign-in-error">{{.Message}}</div>
	<input type="hidden" name="` + CSRFFormField + `" value="{{.CSRFToken}}" />
	<input type="hidden" name="` + RedirectField + `" value="{{.RedirectTo}}" />
	<input type="hidden" name="` + UsernameField + `" value="{{.Username}}" />
	<div class="sign-in-label-input-pair">
		<label for="reset_code_sign_in">Reset code:</label>
		<input type="text" id="reset_code_sign_in" name="` + ResetCodeField + `" value="" autocomplete="one-time-code" />
	</div>
	<div class="sign-in-label-input-pair">
		<label for="new_password_sign_in">New password:</label>
		<input type="password" id="new_password_sign_in" name="` + NewPasswordField + `" value="" autocomplete="new-password" />
	</div>
	<div class="sign-in-password-hint" id="password_hint_sign_in"></div>
	<div class="sign-in-label-input-pair">
		<input type="submit" value="Reset Password" />
	</div>
</form>
<script>
	function sign_in_check_password(event) {
		const pw = event.target.elements["` + NewPasswordField + `"].value;
		const ok = pw.length >= 8 && /[a-z]/.test(pw) && /[A-Z]/.test(pw) && /[0-9]/.test(pw) && /[^A-Za-z0-9]/.test(pw);
		if (!ok) {
			event.preventDefault();
			document.getElementById("password_hint_sign_in").textContent =
				"Passwords need at least 8 characters with upper and lower case letters, a digit and a special character.";
		}
		return ok;
	}
</script>
`

const logoutTemplate = `<form class="sign-in-logout-form" method="post" action="{{.Action}}">
	<input type="hidden" name="` + CSRFFormField + `" value="{{.CSRFToken}}" />
	<input type="hidden" name="` + RedirectField + `" value="{{.RedirectTo}}" />
	<input type="submit" value="Log Out" />
</form>
`

// Renderer produces the gate's markup.
type Renderer struct {
	login  *template.Template
	reset  *template.Template
	logout *template.Template
}

// NewRenderer parses the built-in form templates.
func NewRenderer() *Renderer {
	return &Renderer{
		login:  template.Must(template.New("login").Parse(loginTemplate)),
		reset:  template.Must(template.New("reset").Parse(resetTemplate)),
		logout: template.Must(template.New("logout").Parse(logoutTemplate)),
	}
}

// LoginForm renders the login form, with the forgot-password toggle when
// f.AllowReset is set.
func (r *Renderer) LoginForm(f FormData) (string, error) {
	return execute(r.login, f)
}

// ResetForm renders the reset-code + new-password form.
func (r *Renderer) ResetForm(f FormData) (string, error) {
	return execute(r.reset, f)
}

// LogoutControl renders the logout button.
func (r *Renderer) LogoutControl(f FormData) (string, error) {
	return execute(r.logout, f)
}

func execute(t *template.Template, data FormData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderAuthenticatedContent replaces every logout marker with the logout
// control and removes the gate marker, leaving the rest of content as is.
func RenderAuthenticatedContent(m Marker, content, logoutControl string) string {
	out := strings.ReplaceAll(content, LogoutMarker, logoutControl)
	return strings.ReplaceAll(out, m.Raw(), "")
}

// RenderUnauthenticatedContent keeps everything before the gate marker
// byte-for-byte, appends form, and drops any logout marker from the kept part.
func RenderUnauthenticatedContent(content, form string) string {
	kept := content
	if start := strings.Index(content, "["+GatePrefix); start >= 0 {
		kept = content[:start]
	}
	return strings.ReplaceAll(kept, LogoutMarker, "") + form
}
