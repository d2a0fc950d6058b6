package runner

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"piperack/internal/logstore"
)

func collectOutput() (OutputFunc, func() string) {
	var mu sync.Mutex
	var buf bytes.Buffer
	fn := func(stream logstore.Stream, data []byte) {
		mu.Lock()
		defer mu.Unlock()
		buf.Write(data)
	}
	get := func() string {
		mu.Lock()
		defer mu.Unlock()
		return buf.String()
	}
	return fn, get
}

func TestRunnerCapturesStdout(t *testing.T) {
	out, get := collectOutput()
	r, err := Start(Spec{Name: "echo", Argv: []string{"sh", "-c", "echo hello"}}, out)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case status := <-r.Done():
		if status.Code != 0 {
			t.Fatalf("expected exit 0, got %d", status.Code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("process never exited")
	}
	if got := get(); got != "hello\n" {
		t.Fatalf("got %q", got)
	}
}

func TestRunnerNonZeroExit(t *testing.T) {
	out, _ := collectOutput()
	r, err := Start(Spec{Name: "fail", Argv: []string{"sh", "-c", "exit 7"}}, out)
	if err != nil {
		t.Fatal(err)
	}
	status := <-r.Done()
	if status.Code != 7 {
		t.Fatalf("expected exit 7, got %d", status.Code)
	}
}

func TestRunnerShutdownSIGINTExitsWithinGrace(t *testing.T) {
	out, _ := collectOutput()
	r, err := Start(Spec{Name: "trap", Argv: []string{"sh", "-c", "trap 'exit 0' INT; sleep 10"}}, out)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	done := make(chan struct{})
	start := time.Now()
	go func() {
		r.Shutdown(ctx, ShutdownTimings{SIGINTGrace: 500 * time.Millisecond, SIGTERMGrace: 500 * time.Millisecond})
		close(done)
	}()
	select {
	case <-done:
		if elapsed := time.Since(start); elapsed >= 500*time.Millisecond {
			t.Fatalf("process outlived the SIGINT grace window: %v", elapsed)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown never completed")
	}
}

func TestRunnerShutdownEscalatesToKillWhenUnresponsive(t *testing.T) {
	out, _ := collectOutput()
	r, err := Start(Spec{Name: "stubborn", Argv: []string{"sh", "-c", "trap '' INT TERM; sleep 10"}}, out)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	start := time.Now()
	r.Shutdown(ctx, ShutdownTimings{SIGINTGrace: 50 * time.Millisecond, SIGTERMGrace: 50 * time.Millisecond})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("shutdown took too long: %v", elapsed)
	}
}

func TestResolveArgvSplitsSimpleCommand(t *testing.T) {
	argv := ResolveArgv("echo hello world")
	if len(argv) != 3 || argv[0] != "echo" || argv[2] != "world" {
		t.Fatalf("got %v", argv)
	}
}

func TestResolveArgvFallsBackToShellForMetachars(t *testing.T) {
	argv := ResolveArgv("echo a && echo b")
	if len(argv) != 3 || argv[0] != "sh" || argv[1] != "-c" {
		t.Fatalf("expected shell fallback, got %v", argv)
	}
}

func TestRunPreCmdReportsExitCode(t *testing.T) {
	status := RunPreCmd(context.Background(), Spec{Argv: []string{"sh", "-c", "exit 3"}})
	if status.Code != 3 {
		t.Fatalf("expected exit 3, got %d", status.Code)
	}
}
