package logstore

import "sync"

// Buffer is a bounded per-process ring of LogLines plus the carry-over
// state needed to split arbitrary byte chunks into lines.
//
// A Buffer is safe for concurrent readers (via Lines) while the owning
// Store serializes all Append calls from the single event-loop goroutine,
// matching the "single writer, many readers" discipline spec.md §9
// describes for the core engine.
type Buffer struct {
	mu           sync.RWMutex
	maxLines     int
	lines        []LogLine
	head         int // index of the oldest line in lines
	count        int
	nextSeq      uint64
	droppedCount uint64

	carry map[Stream][]byte
}

// NewBuffer constructs a ring buffer with the given capacity. A zero or
// negative capacity is treated as 1 so the buffer can never wedge into
// holding nothing.
func NewBuffer(maxLines int) *Buffer {
	if maxLines <= 0 {
		maxLines = 1
	}
	return &Buffer{
		maxLines: maxLines,
		lines:    make([]LogLine, maxLines),
		carry:    make(map[Stream][]byte, 2),
	}
}

// DroppedCount returns the number of lines evicted so far.
func (b *Buffer) DroppedCount() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.droppedCount
}

// Len returns the number of lines currently held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// OldestSeq returns the seq of the oldest surviving line, and false if the
// buffer is empty.
func (b *Buffer) OldestSeq() (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return 0, false
	}
	return b.lines[b.head].Seq, true
}

// NewestSeq returns the seq of the newest line, and false if empty.
func (b *Buffer) NewestSeq() (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return 0, false
	}
	idx := (b.head + b.count - 1) % b.maxLines
	return b.lines[idx].Seq, true
}

// push appends an already-assembled line, evicting the oldest if full.
// Returns the assigned seq and whether an eviction occurred.
func (b *Buffer) push(line LogLine) (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	line.Seq = b.nextSeq

	evicted := false
	if b.count == b.maxLines {
		b.lines[b.head] = line
		b.head = (b.head + 1) % b.maxLines
		b.droppedCount++
		evicted = true
	} else {
		tail := (b.head + b.count) % b.maxLines
		b.lines[tail] = line
		b.count++
	}
	return line.Seq, evicted
}

// Lines returns a copy of every line with Seq >= from, in seq order. It
// never holds the lock while the caller processes the result.
func (b *Buffer) Lines(from uint64) []LogLine {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]LogLine, 0, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head + i) % b.maxLines
		if b.lines[idx].Seq >= from {
			out = append(out, b.lines[idx])
		}
	}
	return out
}

// All returns every surviving line in seq order.
func (b *Buffer) All() []LogLine {
	return b.Lines(0)
}

// At returns the line with the given seq, if it is still in the buffer.
func (b *Buffer) At(seq uint64) (LogLine, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := 0; i < b.count; i++ {
		idx := (b.head + i) % b.maxLines
		if b.lines[idx].Seq == seq {
			return b.lines[idx], true
		}
	}
	return LogLine{}, false
}
