package search

import (
	"testing"

	"piperack/internal/logstore"
)

func line(processID int, seq uint64, text string) logstore.LogLine {
	return logstore.LogLine{ProcessID: processID, Seq: seq, Raw: []byte(text)}
}

func TestIndexFeedAppendsMatchesCaseInsensitiveByDefault(t *testing.T) {
	idx := NewIndex()
	idx.SetQuery("error", false)

	if idx.Feed(line(1, 1, "all good")) {
		t.Fatal("should not match")
	}
	if !idx.Feed(line(1, 2, "ERROR: boom")) {
		t.Fatal("expected case-insensitive match")
	}
	if got := idx.Count(1); got != 1 {
		t.Fatalf("expected 1 match, got %d", got)
	}
}

func TestIndexCaseSensitiveRespected(t *testing.T) {
	idx := NewIndex()
	idx.SetQuery("Error", true)
	if idx.Feed(line(1, 1, "error: boom")) {
		t.Fatal("should not match lowercase when case sensitive")
	}
	if !idx.Feed(line(1, 2, "Error: boom")) {
		t.Fatal("expected exact-case match")
	}
}

func TestIndexNextWrapsToFirstMatch(t *testing.T) {
	idx := NewIndex()
	idx.SetQuery("x", false)
	idx.Feed(line(1, 1, "x"))
	idx.Feed(line(1, 5, "x"))
	idx.Feed(line(1, 9, "x"))

	seq, ok := idx.Next(1, 1)
	if !ok || seq != 5 {
		t.Fatalf("expected next match 5, got %d ok=%v", seq, ok)
	}
	seq, ok = idx.Next(1, 9)
	if !ok || seq != 1 {
		t.Fatalf("expected wrap to first match 1, got %d ok=%v", seq, ok)
	}
}

func TestIndexPrevWrapsToLastMatch(t *testing.T) {
	idx := NewIndex()
	idx.SetQuery("x", false)
	idx.Feed(line(1, 1, "x"))
	idx.Feed(line(1, 5, "x"))

	seq, ok := idx.Prev(1, 1)
	if !ok || seq != 5 {
		t.Fatalf("expected wrap to last match 5, got %d ok=%v", seq, ok)
	}
}

func TestIndexEvictDropsOldMatches(t *testing.T) {
	idx := NewIndex()
	idx.SetQuery("x", false)
	idx.Feed(line(1, 1, "x"))
	idx.Feed(line(1, 2, "x"))
	idx.Feed(line(1, 3, "x"))

	idx.Evict(1, 2)
	if got := idx.Matches(1); len(got) != 2 || got[0] != 2 {
		t.Fatalf("got %v", got)
	}
}

func TestIndexRebuildScansExistingLines(t *testing.T) {
	idx := NewIndex()
	idx.SetQuery("warn", false)
	idx.Rebuild(1, []logstore.LogLine{
		line(1, 1, "info"),
		line(1, 2, "WARN: disk"),
		line(1, 3, "warn again"),
	})
	if got := idx.Count(1); got != 2 {
		t.Fatalf("expected 2 matches, got %d", got)
	}
}

func TestSelectionFollowAndAnchorClamp(t *testing.T) {
	sel := NewSelection(1)
	if !sel.Following() {
		t.Fatal("expected initial follow mode")
	}

	sel.SetAnchor(1, 10)
	if sel.Following() {
		t.Fatal("expected follow mode off after anchoring")
	}

	sel.ClampToOldest(1, 20)
	if sel.Anchor.Seq != 20 {
		t.Fatalf("expected anchor clamped to 20, got %d", sel.Anchor.Seq)
	}

	sel.Follow()
	if !sel.Following() {
		t.Fatal("expected follow mode restored")
	}
}
