package signin

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractMarker(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		content string
		want    string
		ok      bool
	}{
		{desc: "bare", content: "a[sign_in_require_auth]b", want: "sign_in_require_auth", ok: true},
		{desc: "keeps inner spacing", content: `x [sign_in_require_auth attr="v" ] y`, want: `sign_in_require_auth attr="v" `, ok: true},
		{desc: "first of several", content: "[sign_in_require_auth a=1][sign_in_require_auth a=2]", want: "sign_in_require_auth a=1", ok: true},
		{desc: "no closing bracket", content: "[sign_in_require_auth attr=1", ok: false},
		{desc: "case sensitive", content: "[SIGN_IN_REQUIRE_AUTH]", ok: false},
		{desc: "absent", content: "<p>plain</p>", ok: false},
		{desc: "logout marker only", content: LogoutMarker, ok: false},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			m, ok := ExtractMarker(tc.content)
			if ok != tc.ok {
				t.Fatalf("ExtractMarker(%q) ok = %v, want %v", tc.content, ok, tc.ok)
			}
			if got := m.Text; got != tc.want {
				t.Fatalf("ExtractMarker(%q) = %q, want %q", tc.content, got, tc.want)
			}
			if ok && tc.content[m.Start:m.End] != m.Raw() {
				t.Fatalf("offsets [%d:%d] do not frame %q", m.Start, m.End, m.Raw())
			}
		})
	}
}

func TestMarkerAttributes(t *testing.T) {
	for _, tc := range []struct {
		desc string
		text string
		want map[string]string
	}{
		{desc: "none", text: "sign_in_require_auth", want: map[string]string{}},
		{
			desc: "quoting styles",
			text: `sign_in_require_auth region="us-west-2" profile='dev' clientId=abc`,
			want: map[string]string{"region": "us-west-2", "profile": "dev", "clientid": "abc"},
		},
		{
			desc: "spaces around equals",
			text: `sign_in_require_auth aws_region = "eu-west-1" `,
			want: map[string]string{"aws_region": "eu-west-1"},
		},
		{
			desc: "empty value",
			text: `sign_in_require_auth region=""`,
			want: map[string]string{"region": ""},
		},
		{
			desc: "empty single quoted value",
			text: `sign_in_require_auth region=''`,
			want: map[string]string{"region": ""},
		},
		{
			desc: "single quoted double quotes",
			text: `sign_in_require_auth region='""' profile="''"`,
			want: map[string]string{"region": `""`, "profile": "''"},
		},
		{
			desc: "value with spaces",
			text: `sign_in_require_auth note="two words"`,
			want: map[string]string{"note": "two words"},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			got := Marker{Text: tc.text}.Attributes()
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Attributes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
