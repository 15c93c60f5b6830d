package signin

import (
	"net/http"

	"github.com/google/uuid"
)

// CSRFToken returns the browser's CSRF binding cookie, if any.
func CSRFToken(req *http.Request) (string, bool) {
	c, err := req.Cookie(CSRFCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// ensureCSRFCookie returns the request's CSRF binding, issuing a new cookie
// when the browser does not have one yet.
func ensureCSRFCookie(w http.ResponseWriter, r *http.Request, secure bool) string {
	if v, ok := CSRFToken(r); ok {
		return v
	}

	v := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    v,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return v
}

// verifySubmission checks the double-submit pair: the form's signed token
// must be valid and bound to the CSRF cookie the browser sent.
func (g *Gate) verifySubmission(r *http.Request) error {
	binding, ok := CSRFToken(r)
	if !ok {
		return ErrSecurityCheckFailed
	}
	if err := g.forms.verify(r.PostFormValue(CSRFFormField), binding); err != nil {
		return err
	}
	return nil
}
