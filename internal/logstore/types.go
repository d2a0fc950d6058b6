// Package logstore implements the bounded per-process output buffers and
// the merged arrival-order timeline index.
package logstore

import "time"

// Stream identifies which child pipe a LogLine came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// LogLine is one accepted line of child output.
type LogLine struct {
	Seq         uint64
	ProcessID   int
	Stream      Stream
	MonotonicTS time.Duration
	WallTS      time.Time
	Raw         []byte
}

// TimelineEntry is a pointer into a process's buffer, recording arrival
// order across all processes.
type TimelineEntry struct {
	ProcessID int
	Seq       uint64
}

// maxLineBytes caps a single accepted line; longer input is truncated to
// this size and the truncation marker appended, and the excess is dropped.
const maxLineBytes = 1 << 20 // 1 MiB

var truncationMarker = []byte(" …(truncated)")
