package render

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// PrettyJSON renders a line as indented JSON if it parses as a JSON
// object or array; otherwise it returns the line unchanged. Parse
// failures are silent, per spec.md §4.2.
func PrettyJSON(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '{', '[':
	default:
		return s
	}
	if !gjson.Valid(trimmed) {
		return s
	}
	out := pretty.Pretty([]byte(trimmed))
	out = pretty.Color(out, nil)
	// pretty.Color adds SGR codes for terminal display; PrettyJSONPlain is
	// the uncolored variant.
	return strings.TrimRight(string(out), "\n")
}

// PrettyJSONPlain is PrettyJSON without ANSI colorization; Line uses it
// when ANSI stripping is also on.
func PrettyJSONPlain(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '{', '[':
	default:
		return s
	}
	if !gjson.Valid(trimmed) {
		return s
	}
	out := pretty.Pretty([]byte(trimmed))
	return strings.TrimRight(string(out), "\n")
}
