// Package render implements the read-time ANSI/JSON line processor (spec
// component C2): storage keeps raw bytes, and toggling the 'a'/'j' keys in
// the TUI changes only what Render produces for a given line.
package render

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// eraseLine matches ESC[2K (erase entire line) and its common 0/1 variants.
var eraseLine = regexp.MustCompile("\x1b\\[[012]?K")

// CollapseCursorMovement interprets '\r' and line-erase escapes as
// "replace the current line" rather than literal characters, without
// crossing line boundaries (the caller guarantees raw never contains '\n';
// logstore splits on that before a line ever reaches here).
//
// Each '\r'-delimited segment overlays onto the accumulated line starting
// at column 0; an erase-line escape anywhere in a segment discards
// whatever was accumulated before applying the remainder of that segment.
func CollapseCursorMovement(raw string) string {
	if !strings.ContainsAny(raw, "\r") && !eraseLine.MatchString(raw) {
		return raw
	}

	segments := strings.Split(raw, "\r")
	var acc []rune
	for _, seg := range segments {
		if loc := eraseLine.FindStringIndex(seg); loc != nil {
			acc = nil
			seg = seg[loc[1]:]
		}
		segRunes := []rune(seg)
		if len(segRunes) >= len(acc) {
			acc = segRunes
			continue
		}
		overlay := make([]rune, len(acc))
		copy(overlay, acc)
		copy(overlay, segRunes)
		acc = overlay
	}
	return string(acc)
}

// StripANSI removes SGR and other escape sequences, leaving plain text.
func StripANSI(s string) string {
	return ansi.Strip(s)
}
