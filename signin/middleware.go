package signin

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

// Protect returns middleware that runs the gate over the HTML produced by
// next.
//
// The downstream response is buffered and always requested whole: Range,
// If-Range and Accept-Encoding are dropped before next runs. Responses that
// carry no gate marker pass through untouched. A successful HTML response
// with a marker has its body replaced with the filtered content, or the
// visitor is redirected when the gate asks for it:
//
//   - HTMX requests (HX-Request: true): 200 with an HX-Redirect header
//   - everything else: 302 to the same location
//
// Any other response carrying a marker (non-200 status, non-HTML content)
// is cut at the marker with no form, whoever the visitor is.
//
// Gated responses are marked Cache-Control: no-store so shared caches never
// keep the revealed content.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := newBufferedResponse()
		next.ServeHTTP(buf, wholeBodyRequest(r))

		body := buf.body.String()
		if _, ok := ExtractMarker(body); !ok {
			buf.copyTo(w, nil)
			return
		}
		if !buf.filterable() {
			g.log.V(1).Info("withholding gated content", "path", r.URL.Path, "status", buf.statusCode(), "contentType", buf.header.Get("Content-Type"))
			buf.header.Del("Content-Range")
			w.Header().Set("Cache-Control", "no-store")
			buf.copyTo(w, []byte(RenderUnauthenticatedContent(body, "")))
			return
		}

		binding := ensureCSRFCookie(w, r, g.secure)
		token, err := g.forms.issue(binding)
		if err != nil {
			g.log.Error(err, "issuing anti-forgery token")
		}

		res := g.Filter(r.Context(), Request{
			Content:    body,
			Artifacts:  g.store.Open(w, r),
			Location:   currentLocation(r),
			StatusCode: r.URL.Query().Get(StatusParam),
			CSRFToken:  token,
		})

		if res.Redirect {
			redirectResponse(w, r, res.Location)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		buf.copyTo(w, []byte(res.Content))
	})
}

// TryAuth returns middleware that resolves the visitor's identity if an auth
// token is present, but does not enforce it.
//
// A token the provider recognises attaches the username to the request
// context (see UsernameFromContext). A missing or rejected token lets the
// request continue without identity data; the token itself is left for the
// gate to clear. TryAuth costs one identity provider call per request that
// carries a token, so it should not wrap handlers already behind Protect.
func (g *Gate) TryAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arts := artifactReader{arts: g.store.Open(w, r), log: g.log}
		if token, ok := arts.value(r.Context(), ArtifactAuthToken); ok {
			cfg := g.resolveConfig(r.Context(), Marker{})
			if username, ok := g.identity.LookupUser(r.Context(), token, cfg); ok {
				r = r.WithContext(withUsername(r.Context(), username))
			}
		}

		next.ServeHTTP(w, r)
	})
}

// wholeBodyRequest clones r without the headers that let next answer with a
// partial or encoded body the gate could not search for a marker.
func wholeBodyRequest(r *http.Request) *http.Request {
	if r.Header.Get("Range") == "" && r.Header.Get("If-Range") == "" && r.Header.Get("Accept-Encoding") == "" {
		return r
	}
	clone := r.Clone(r.Context())
	clone.Header.Del("Range")
	clone.Header.Del("If-Range")
	clone.Header.Del("Accept-Encoding")
	return clone
}

func redirectResponse(w http.ResponseWriter, r *http.Request, location string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", location)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// bufferedResponse captures a downstream response so the gate can rewrite it.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header)}
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func (b *bufferedResponse) filterable() bool {
	if b.statusCode() != http.StatusOK {
		return false
	}
	ct := b.header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(b.body.Bytes())
	}
	return strings.HasPrefix(ct, "text/html")
}

// copyTo replays the buffered response on w. A non-nil body replaces the
// buffered one.
func (b *bufferedResponse) copyTo(w http.ResponseWriter, body []byte) {
	dst := w.Header()
	for k, vs := range b.header {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}

	if body == nil {
		body = b.body.Bytes()
	} else {
		dst.Set("Content-Length", strconv.Itoa(len(body)))
	}

	w.WriteHeader(b.statusCode())
	_, _ = w.Write(body)
}
