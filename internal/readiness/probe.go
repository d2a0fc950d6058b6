// Package readiness implements the one-shot readiness predicates of
// spec.md §4.3 (component C3): TCP-connect, log-regex, fixed-delay, and
// the implicit "none" variant.
package readiness

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"time"
)

// Kind is a closed tagged-union discriminator, dispatched at the probe
// boundary rather than via a polymorphic interface (spec.md §9).
type Kind int

const (
	None Kind = iota
	TCP
	LogRegex
	Delay
)

// Check is the immutable, validated readiness configuration for one
// process, parsed once out of ProcessSpec.ReadyCheck.
type Check struct {
	Kind    Kind
	Port    int
	Pattern string
	DelayMS int

	regex *regexp.Regexp // compiled once, only set for LogRegex
}

// Compile validates and precompiles a Check (e.g. the regex). Call once at
// config-load time so a bad regex is a ConfigError, not a runtime surprise.
func Compile(c Check) (Check, error) {
	if c.Kind == LogRegex {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return c, fmt.Errorf("invalid ready_check log pattern %q: %w", c.Pattern, err)
		}
		c.regex = re
	}
	return c, nil
}

const tcpPollInterval = 200 * time.Millisecond

// Probe watches one process's readiness. It emits exactly one signal on
// Ready() and is dropped after either firing or being cancelled — the
// caller (the process manager) cancels it if the process exits before
// becoming ready.
type Probe struct {
	check  Check
	ready  chan struct{}
	cancel context.CancelFunc
	once   bool
}

// Start begins evaluating the check in the background (TCP/Delay) or
// returns a Probe whose Feed method the caller drives (LogRegex). For
// Kind == None, the returned Probe is already ready.
func Start(ctx context.Context, check Check) *Probe {
	ctx, cancel := context.WithCancel(ctx)
	p := &Probe{check: check, ready: make(chan struct{}), cancel: cancel}

	switch check.Kind {
	case None:
		close(p.ready)
	case Delay:
		go p.runDelay(ctx)
	case TCP:
		go p.runTCP(ctx)
	case LogRegex:
		// Driven externally via Feed; nothing to start.
	}
	return p
}

// Ready returns a channel closed exactly once, when the process becomes
// ready. It never fires more than once.
func (p *Probe) Ready() <-chan struct{} { return p.ready }

// Cancel stops the probe's background work, e.g. because the process
// exited before becoming ready. Safe to call multiple times or after the
// probe already fired.
func (p *Probe) Cancel() {
	p.cancel()
}

// Feed tests one accepted log line against a LogRegex check. A no-op for
// every other kind. Returns true the first time it matches.
func (p *Probe) Feed(line []byte) bool {
	if p.check.Kind != LogRegex || p.once {
		return false
	}
	if p.check.regex == nil {
		return false
	}
	if p.check.regex.Match(line) {
		p.once = true
		close(p.ready)
		return true
	}
	return false
}

func (p *Probe) runDelay(ctx context.Context) {
	t := time.NewTimer(time.Duration(p.check.DelayMS) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
		close(p.ready)
	}
}

func (p *Probe) runTCP(ctx context.Context) {
	ticker := time.NewTicker(tcpPollInterval)
	defer ticker.Stop()

	dial := func() bool {
		d := net.Dialer{Timeout: tcpPollInterval}
		addr := fmt.Sprintf("127.0.0.1:%d", p.check.Port)
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false // refused/unreachable: never "not ready", just keep trying
		}
		conn.Close()
		return true
	}

	if dial() {
		close(p.ready)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dial() {
				close(p.ready)
				return
			}
		}
	}
}
