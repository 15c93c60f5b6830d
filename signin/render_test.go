package signin

import (
	"strings"
	"testing"
)

func TestRenderAuthenticatedContent(t *testing.T) {
	content := `<h1>t</h1>[sign_in_require_auth region="x" ]<p>s</p>[sign_in_logout]<i>[sign_in_logout]</i>`
	m, ok := ExtractMarker(content)
	if !ok {
		t.Fatal("expected marker")
	}

	got := RenderAuthenticatedContent(m, content, "<button>out</button>")

	want := `<h1>t</h1><p>s</p><button>out</button><i><button>out</button></i>`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderUnauthenticatedContent(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		content string
		want    string
	}{
		{
			desc:    "keeps prefix byte for byte",
			content: "  <p>intro</p>\r\n\t[sign_in_require_auth]<p>secret</p>",
			want:    "  <p>intro</p>\r\n\t<form/>",
		},
		{
			desc:    "drops logout markers",
			content: "[sign_in_logout]<p>intro</p>[sign_in_require_auth]",
			want:    "<p>intro</p><form/>",
		},
		{
			desc:    "marker first",
			content: "[sign_in_require_auth]<p>secret</p>",
			want:    "<form/>",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			if got := RenderUnauthenticatedContent(tc.content, "<form/>"); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestLoginForm(t *testing.T) {
	r := NewRenderer()

	out, err := r.LoginForm(FormData{
		Message:    MessagePleaseLogIn.String(),
		Action:     DefaultSubmitPath,
		CSRFToken:  "tok",
		RedirectTo: "/page?x=1",
		AllowReset: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		`action="` + DefaultSubmitPath + `"`,
		`name="csrf_token" value="tok"`,
		`name="redirect_to" value="/page?x=1"`,
		`name="username"`,
		`name="password"`,
		`name="forgot_password"`,
		"Please log in:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("login form missing %q:\n%s", want, out)
		}
	}

	plain, err := r.LoginForm(FormData{Action: DefaultSubmitPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(plain, ForgotPasswordField) {
		t.Fatal("forgot password toggle should be hidden when reset is disabled")
	}
}

func TestLoginForm_AfterReset(t *testing.T) {
	out, err := NewRenderer().LoginForm(FormData{
		Message:    MessageResetSuccess.String(),
		Action:     DefaultSubmitPath,
		AllowReset: true,
		AfterReset: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{`New password:`, `autocomplete="new-password"`, `name="password"`} {
		if !strings.Contains(out, want) {
			t.Errorf("login form missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ForgotPasswordField) {
		t.Errorf("forgot password toggle should be hidden after a reset:\n%s", out)
	}
}

func TestLoginForm_EscapesMessage(t *testing.T) {
	out, err := NewRenderer().LoginForm(FormData{Message: `<script>alert(1)</script>`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "<script>alert") {
		t.Fatalf("message was not escaped:\n%s", out)
	}
}

func TestResetForm(t *testing.T) {
	out, err := NewRenderer().ResetForm(FormData{
		Message:  MessageResetCodeSent.String(),
		Action:   DefaultSubmitPath,
		Username: "a@b.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		`name="reset_code"`,
		`name="new_password"`,
		`name="username" value="a@b.com"`,
		"sign_in_check_password",
		MessageResetCodeSent.String(),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("reset form missing %q:\n%s", want, out)
		}
	}
}
