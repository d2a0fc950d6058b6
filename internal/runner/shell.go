package runner

import (
	"runtime"
	"strings"

	"github.com/anmitsu/go-shlex"
)

// hasShellMetachars reports whether s uses shell features go-shlex cannot
// represent as a plain argv (pipes, redirects, substitution, globs,
// sequencing). Such commands are handed to a real shell instead.
func hasShellMetachars(s string) bool {
	return strings.ContainsAny(s, "|&;<>(){}*?$`")
}

// ResolveArgv turns a ProcessSpec.cmd string into an argv. Simple
// whitespace/quote-delimited commands are split with shlex so the child is
// exec'd directly, with no shell or signal-forwarding subprocess in the
// way. Anything shlex can't parse, or that uses shell syntax, is handed to
// the platform shell verbatim (spec.md §4.5).
func ResolveArgv(cmd string) []string {
	if !hasShellMetachars(cmd) {
		if argv, err := shlex.Split(cmd, true); err == nil && len(argv) > 0 {
			return argv
		}
	}
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C", cmd}
	}
	return []string{"sh", "-c", cmd}
}
