package logstore

import (
	"bytes"
	"sync"
	"time"
)

// Store owns every process's output Buffer plus the merged TimelineIndex.
// Append is called exclusively from the event loop goroutine (spec.md §9:
// "single-writer to app state"); Lines/Timeline may be called from any
// goroutine (e.g. a renderer snapshotting state for a frame).
type Store struct {
	maxLines int

	mu      sync.RWMutex
	buffers map[int]*Buffer
	order   []int // insertion order, for stable iteration

	timeline *timeline

	startedAt time.Time
}

// New builds a Store. maxLines is the per-process ring capacity; the
// timeline cap is maxLines * expectedProcesses, with a hard upper bound so
// a config with thousands of processes can't allocate unbounded memory.
func New(maxLines, expectedProcesses int) *Store {
	if expectedProcesses <= 0 {
		expectedProcesses = 1
	}
	timelineCap := maxLines * expectedProcesses
	const hardCap = 2_000_000
	if timelineCap <= 0 || timelineCap > hardCap {
		timelineCap = hardCap
	}
	return &Store{
		maxLines:  maxLines,
		buffers:   make(map[int]*Buffer),
		timeline:  newTimeline(timelineCap),
		startedAt: time.Now(),
	}
}

// Register creates the buffer for a process. Must be called before Append
// for that process ID.
func (s *Store) Register(processID int) *Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buffers[processID]; ok {
		return b
	}
	b := NewBuffer(s.maxLines)
	s.buffers[processID] = b
	s.order = append(s.order, processID)
	return b
}

// Buffer returns the buffer for a process, if registered.
func (s *Store) Buffer(processID int) (*Buffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buffers[processID]
	return b, ok
}

// ProcessIDs returns every registered process ID in registration order.
func (s *Store) ProcessIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// Append splits bytes on '\n', carrying over a partial trailing fragment
// per (process, stream) until the next call or until Flush is invoked at
// stream close. Each accepted line is stamped with a process-local seq
// and recorded in the timeline, and returned so the caller can feed it to
// the search index, readiness probes, and log mirrors without a second
// read of the buffer.
func (s *Store) Append(processID int, stream Stream, chunk []byte) []LogLine {
	buf := s.Register(processID)

	buf.mu.Lock()
	carry := buf.carry[stream]
	data := append(carry, chunk...)
	buf.carry[stream] = nil
	buf.mu.Unlock()

	lines, rest := splitLines(data)

	buf.mu.Lock()
	buf.carry[stream] = rest
	buf.mu.Unlock()

	now := time.Now()
	mono := now.Sub(s.startedAt)
	accepted := make([]LogLine, 0, len(lines))
	for _, raw := range lines {
		accepted = append(accepted, s.acceptLine(processID, buf, stream, raw, mono, now))
	}
	return accepted
}

// Flush emits any carried-over partial line for (process, stream) even
// without a trailing newline. Call when the stream closes.
func (s *Store) Flush(processID int, stream Stream) []LogLine {
	buf, ok := s.Buffer(processID)
	if !ok {
		return nil
	}
	buf.mu.Lock()
	rest := buf.carry[stream]
	buf.carry[stream] = nil
	buf.mu.Unlock()
	if len(rest) == 0 {
		return nil
	}
	now := time.Now()
	return []LogLine{s.acceptLine(processID, buf, stream, rest, now.Sub(s.startedAt), now)}
}

func (s *Store) acceptLine(processID int, buf *Buffer, stream Stream, raw []byte, mono time.Duration, wall time.Time) LogLine {
	raw = capLine(raw)
	line := LogLine{
		ProcessID:   processID,
		Stream:      stream,
		MonotonicTS: mono,
		WallTS:      wall,
		Raw:         raw,
	}
	seq, _ := buf.push(line)
	line.Seq = seq
	s.timeline.push(TimelineEntry{ProcessID: processID, Seq: seq})
	return line
}

// OldestSeq reports the oldest surviving seq for a process, for callers
// that need to evict dependent indexes (search matches, selection
// anchors) in lockstep with ring-buffer eviction.
func (s *Store) OldestSeq(processID int) (uint64, bool) {
	buf, ok := s.Buffer(processID)
	if !ok {
		return 0, false
	}
	return buf.OldestSeq()
}

// Lines returns every surviving line for a process from seq onward.
func (s *Store) Lines(processID int, from uint64) []LogLine {
	buf, ok := s.Buffer(processID)
	if !ok {
		return nil
	}
	return buf.Lines(from)
}

// Timeline returns, in arrival order, the LogLines referenced by the
// timeline index that are still present in their owning buffer. Entries
// whose line has since been evicted are skipped.
func (s *Store) Timeline() []LogLine {
	entries := s.timeline.All()
	out := make([]LogLine, 0, len(entries))
	for _, e := range entries {
		buf, ok := s.Buffer(e.ProcessID)
		if !ok {
			continue
		}
		if line, ok := buf.At(e.Seq); ok {
			out = append(out, line)
		}
	}
	return out
}

// splitLines splits data on '\n', returning complete lines (with the
// newline stripped) and the trailing partial fragment, if any.
func splitLines(data []byte) (lines [][]byte, rest []byte) {
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			rest = data
			return
		}
		line := data[:idx]
		line = bytes.TrimSuffix(line, []byte{'\r'})
		lines = append(lines, line)
		data = data[idx+1:]
	}
}

func capLine(raw []byte) []byte {
	if len(raw) <= maxLineBytes {
		return raw
	}
	out := make([]byte, 0, maxLineBytes+len(truncationMarker))
	out = append(out, raw[:maxLineBytes]...)
	out = append(out, truncationMarker...)
	return out
}
