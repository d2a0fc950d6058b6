package logstore

import (
	"bytes"
	"testing"
)

func TestBufferDropsOldest(t *testing.T) {
	b := NewBuffer(2)
	b.push(LogLine{Raw: []byte("a")})
	b.push(LogLine{Raw: []byte("b")})
	_, evicted := b.push(LogLine{Raw: []byte("c")})
	if !evicted {
		t.Fatal("expected eviction on third push into a 2-line buffer")
	}
	if b.Len() != 2 {
		t.Fatalf("expected len 2, got %d", b.Len())
	}
	if b.DroppedCount() != 1 {
		t.Fatalf("expected dropped count 1, got %d", b.DroppedCount())
	}
	lines := b.All()
	if len(lines) != 2 || string(lines[0].Raw) != "b" || string(lines[1].Raw) != "c" {
		t.Fatalf("unexpected surviving lines: %+v", lines)
	}
}

func TestStoreAppendSplitsOnNewlineAndCarriesOver(t *testing.T) {
	s := New(100, 1)
	s.Append(1, Stdout, []byte("hello wor"))
	if got := s.Lines(1, 0); len(got) != 0 {
		t.Fatalf("expected no complete lines yet, got %v", got)
	}
	s.Append(1, Stdout, []byte("ld\nsecond\nthi"))
	lines := s.Lines(1, 0)
	if len(lines) != 2 {
		t.Fatalf("expected 2 complete lines, got %d: %+v", len(lines), lines)
	}
	if string(lines[0].Raw) != "hello world" || string(lines[1].Raw) != "second" {
		t.Fatalf("unexpected line contents: %q %q", lines[0].Raw, lines[1].Raw)
	}

	s.Flush(1, Stdout)
	lines = s.Lines(1, 0)
	if len(lines) != 3 || string(lines[2].Raw) != "thi" {
		t.Fatalf("expected flush to emit partial trailing line, got %+v", lines)
	}
}

func TestStoreTimelinePreservesArrivalOrderAcrossProcesses(t *testing.T) {
	s := New(100, 2)
	s.Append(1, Stdout, []byte("a1\n"))
	s.Append(2, Stdout, []byte("b1\n"))
	s.Append(1, Stdout, []byte("a2\n"))

	tl := s.Timeline()
	if len(tl) != 3 {
		t.Fatalf("expected 3 timeline entries, got %d", len(tl))
	}
	want := []struct {
		pid int
		raw string
	}{{1, "a1"}, {2, "b1"}, {1, "a2"}}
	for i, w := range want {
		if tl[i].ProcessID != w.pid || string(tl[i].Raw) != w.raw {
			t.Fatalf("entry %d: got pid=%d raw=%q, want pid=%d raw=%q", i, tl[i].ProcessID, tl[i].Raw, w.pid, w.raw)
		}
	}
}

func TestBufferSeqStrictlyIncreasingPerProcess(t *testing.T) {
	s := New(10, 1)
	s.Append(1, Stdout, []byte("one\ntwo\nthree\n"))
	lines := s.Lines(1, 0)
	var last uint64
	for _, l := range lines {
		if l.Seq <= last {
			t.Fatalf("seq not strictly increasing: %d after %d", l.Seq, last)
		}
		last = l.Seq
	}
}

func TestCapLineTruncatesOversizedLine(t *testing.T) {
	huge := bytes.Repeat([]byte("x"), maxLineBytes+10)
	capped := capLine(huge)
	if len(capped) != maxLineBytes+len(truncationMarker) {
		t.Fatalf("unexpected capped length %d", len(capped))
	}
	if !bytes.HasSuffix(capped, truncationMarker) {
		t.Fatal("expected truncation marker suffix")
	}
}

func TestMaxLinesInvariantHolds(t *testing.T) {
	s := New(1, 1)
	for i := 0; i < 50; i++ {
		s.Append(1, Stdout, []byte("line\n"))
	}
	buf, _ := s.Buffer(1)
	if buf.Len() > 1 {
		t.Fatalf("buffer exceeded max_lines=1: len=%d", buf.Len())
	}
	if buf.DroppedCount() != 49 {
		t.Fatalf("expected 49 dropped lines, got %d", buf.DroppedCount())
	}
}
