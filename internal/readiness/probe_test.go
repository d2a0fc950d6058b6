package readiness

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestNoneIsReadyImmediately(t *testing.T) {
	p := Start(context.Background(), Check{Kind: None})
	select {
	case <-p.Ready():
	default:
		t.Fatal("expected None probe to be ready immediately")
	}
}

func TestDelayFiresOnce(t *testing.T) {
	p := Start(context.Background(), Check{Kind: Delay, DelayMS: 10})
	select {
	case <-p.Ready():
	case <-time.After(time.Second):
		t.Fatal("delay probe never fired")
	}
}

func TestDelayCancelledNeverFires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Start(ctx, Check{Kind: Delay, DelayMS: 200})
	cancel()
	select {
	case <-p.Ready():
		t.Fatal("cancelled probe should not fire")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestLogRegexFiresOnFirstMatch(t *testing.T) {
	check, err := Compile(Check{Kind: LogRegex, Pattern: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	p := Start(context.Background(), check)
	if p.Feed([]byte("hello")) {
		t.Fatal("should not match 'hello'")
	}
	if !p.Feed([]byte("hi there")) {
		t.Fatal("expected match on 'hi there'")
	}
	select {
	case <-p.Ready():
	default:
		t.Fatal("expected ready channel closed after match")
	}
	// Second feed after already matched must not panic (close of closed channel).
	if p.Feed([]byte("hi again")) {
		t.Fatal("probe must fire at most once")
	}
}

func TestCompileRejectsInvalidRegex(t *testing.T) {
	if _, err := Compile(Check{Kind: LogRegex, Pattern: "("}); err == nil {
		t.Fatal("expected compile error for invalid regex")
	}
}

func TestTCPFiresOnFirstSuccessfulConnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	p := Start(context.Background(), Check{Kind: TCP, Port: port})
	select {
	case <-p.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("tcp probe never fired against a listening port")
	}
}
