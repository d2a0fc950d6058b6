package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherFiresOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "main.go")
	if err := os.WriteFile(target, []byte("package main"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(Spec{
		BaseDir:  dir,
		Patterns: []string{"**/*.go"},
		Debounce: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	time.Sleep(50 * time.Millisecond) // let fsnotify finish registering watches
	if err := os.WriteFile(target, []byte("package main\n// changed"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Fired():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never fired after relevant write")
	}
}

func TestWatcherIgnoresMatchedPattern(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "ignored.log")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(Spec{
		BaseDir:  dir,
		Patterns: []string{"**/*"},
		Ignore:   []string{"**/*.log"},
		Debounce: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(target, []byte("xx"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Fired():
		t.Fatal("watcher fired for an ignored pattern")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherDebounceCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "main.go")
	if err := os.WriteFile(target, []byte("package main"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(Spec{
		BaseDir:  dir,
		Patterns: []string{"**/*.go"},
		Debounce: 80 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		os.WriteFile(target, []byte("x"), 0644)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-w.Fired():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never fired after a burst of writes")
	}

	select {
	case <-w.Fired():
		t.Fatal("watcher fired twice for one debounced burst")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestCloseStopsWatcherCleanly(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Spec{BaseDir: dir, Patterns: []string{"**/*"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}
}
