package signin

import (
	"regexp"
	"strings"
)

// Marker is a gate marker found in content.
type Marker struct {
	// Text is everything between the opening "[" and the closing "]",
	// untrimmed, e.g. `sign_in_require_auth region="us-west-2" `.
	Text string

	// Start is the byte offset of the opening "[" in the content.
	Start int

	// End is the byte offset just past the closing "]".
	End int
}

// ExtractMarker finds the first gate marker in content. It reports false when
// the prefix is absent or the marker is never closed.
//
// The returned text is not trimmed: renderers replace "[" + Text + "]"
// verbatim, so the surrounding whitespace has to survive.
func ExtractMarker(content string) (Marker, bool) {
	start := strings.Index(content, "["+GatePrefix)
	if start < 0 {
		return Marker{}, false
	}

	end := strings.IndexByte(content[start:], ']')
	if end < 0 {
		return Marker{}, false
	}
	end += start

	return Marker{
		Text:  content[start+1 : end],
		Start: start,
		End:   end + 1,
	}, true
}

// Raw returns the marker as it appears in content, brackets included.
func (m Marker) Raw() string {
	return "[" + m.Text + "]"
}

var attrPattern = regexp.MustCompile(`([\w-]+)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'\]]+))`)

// Attributes parses the marker's key="value" list. Keys are lowercased;
// values are kept verbatim. Bare words (including the prefix itself) are
// skipped.
func (m Marker) Attributes() map[string]string {
	return parseAttributes(m.Text)
}

func parseAttributes(text string) map[string]string {
	attrs := make(map[string]string)
	for _, loc := range attrPattern.FindAllStringSubmatchIndex(text, -1) {
		key := strings.ToLower(text[loc[2]:loc[3]])
		// The first value group that took part in the match wins, so an
		// empty quoted value still counts as quoted.
		for g := 2; g <= 4; g++ {
			if start := loc[2*g]; start >= 0 {
				attrs[key] = text[start:loc[2*g+1]]
				break
			}
		}
	}
	return attrs
}
