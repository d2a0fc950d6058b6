// Package search implements the match index and selection-stability model
// of spec.md §4.7 (component C7). Both types are owned exclusively by the
// single event loop task (spec.md §8/§9): no internal locking, because
// nothing outside the loop ever touches them.
package search

import (
	"sort"
	"strings"

	"piperack/internal/logstore"
)

// Index tracks, per process, the sorted list of seq values whose line text
// matches the current query. New lines are appended in O(1); a query
// change triggers one O(n) rebuild against the full surviving buffer.
type Index struct {
	query         string
	caseSensitive bool
	matches       map[int][]uint64
}

// NewIndex returns an Index with no active query.
func NewIndex() *Index {
	return &Index{matches: make(map[int][]uint64)}
}

// Active reports whether a non-empty query is set.
func (idx *Index) Active() bool { return idx.query != "" }

// Query returns the current query text and case sensitivity.
func (idx *Index) Query() (string, bool) { return idx.query, idx.caseSensitive }

// SetQuery installs a new query and clears all cached matches; call
// Rebuild afterward to populate matches against lines already held.
func (idx *Index) SetQuery(query string, caseSensitive bool) {
	idx.query = query
	idx.caseSensitive = caseSensitive
	idx.matches = make(map[int][]uint64)
}

// Clear removes the query entirely (search dismissed with Escape).
func (idx *Index) Clear() {
	idx.query = ""
	idx.matches = make(map[int][]uint64)
}

func (idx *Index) lineMatches(raw []byte) bool {
	if idx.query == "" {
		return false
	}
	text := string(raw)
	if idx.caseSensitive {
		return strings.Contains(text, idx.query)
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(idx.query))
}

// Rebuild recomputes matches for one process's full surviving line set,
// e.g. right after SetQuery or after attaching a process the index hasn't
// seen yet.
func (idx *Index) Rebuild(processID int, lines []logstore.LogLine) {
	if idx.query == "" {
		delete(idx.matches, processID)
		return
	}
	var seqs []uint64
	for _, l := range lines {
		if idx.lineMatches(l.Raw) {
			seqs = append(seqs, l.Seq)
		}
	}
	idx.matches[processID] = seqs
}

// Feed tests one newly accepted line against the active query, appending
// it to that process's match list if it matches. Returns true on match.
// Seq values only ever increase per process (logstore.Buffer's
// invariant), so append-only is correct without re-sorting.
func (idx *Index) Feed(line logstore.LogLine) bool {
	if !idx.lineMatches(line.Raw) {
		return false
	}
	idx.matches[line.ProcessID] = append(idx.matches[line.ProcessID], line.Seq)
	return true
}

// Evict drops match entries older than the process's new oldest surviving
// seq, keeping the index consistent with the ring buffer's eviction.
func (idx *Index) Evict(processID int, oldestSeq uint64) {
	seqs, ok := idx.matches[processID]
	if !ok {
		return
	}
	cut := sort.Search(len(seqs), func(i int) bool { return seqs[i] >= oldestSeq })
	idx.matches[processID] = seqs[cut:]
}

// Matches returns the sorted match list for a process.
func (idx *Index) Matches(processID int) []uint64 {
	return idx.matches[processID]
}

// Count returns the number of matches for a process.
func (idx *Index) Count(processID int) int { return len(idx.matches[processID]) }

// Next returns the first match strictly after afterSeq, wrapping to the
// first match overall if none is found.
func (idx *Index) Next(processID int, afterSeq uint64) (uint64, bool) {
	seqs := idx.matches[processID]
	if len(seqs) == 0 {
		return 0, false
	}
	i := sort.Search(len(seqs), func(i int) bool { return seqs[i] > afterSeq })
	if i == len(seqs) {
		i = 0
	}
	return seqs[i], true
}

// Prev returns the last match strictly before beforeSeq, wrapping to the
// last match overall if none is found.
func (idx *Index) Prev(processID int, beforeSeq uint64) (uint64, bool) {
	seqs := idx.matches[processID]
	if len(seqs) == 0 {
		return 0, false
	}
	i := sort.Search(len(seqs), func(i int) bool { return seqs[i] >= beforeSeq })
	if i == 0 {
		i = len(seqs)
	}
	return seqs[i-1], true
}
