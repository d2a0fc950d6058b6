package supervisor

import (
	"fmt"
	"os"
	"strings"
)

// mirrorWriter appends every accepted line for one process to its
// configured log_file_template, expanding {name} (spec.md §6). A write
// failure is logged once and then silently suppressed for the rest of
// the run.
type mirrorWriter struct {
	file   *os.File
	failed bool
}

func newMirrorWriter(template, name string) *mirrorWriter {
	if template == "" {
		return nil
	}
	path := strings.ReplaceAll(template, "{name}", name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "piperack: cannot open log file %q for %q: %v\n", path, name, err)
		return &mirrorWriter{failed: true}
	}
	return &mirrorWriter{file: f}
}

func (m *mirrorWriter) write(line []byte) {
	if m == nil || m.failed || m.file == nil {
		return
	}
	if _, err := m.file.Write(line); err != nil {
		m.failed = true
		fmt.Fprintf(os.Stderr, "piperack: log file mirror write failed, suppressing further errors: %v\n", err)
		return
	}
	if len(line) == 0 || line[len(line)-1] != '\n' {
		m.file.Write([]byte{'\n'})
	}
}

func (m *mirrorWriter) close() {
	if m != nil && m.file != nil {
		m.file.Close()
	}
}
