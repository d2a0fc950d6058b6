package supervisor

import (
	"context"
	"testing"
	"time"

	"piperack/internal/config"
	"piperack/internal/readiness"
)

func testGlobal() config.GlobalPolicy {
	return config.GlobalPolicy{
		MaxLines:          1000,
		Success:           config.SuccessAll,
		ShutdownSIGINTMS:  200,
		ShutdownSIGTERMMS: 200,
		HandleInput:       true,
	}
}

func runUntil(t *testing.T, e *Engine, timeout time.Duration, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	e.Start(ctx)
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-e.Events():
			e.Dispatch(ev)
			if cond() {
				return
			}
		case <-deadline:
			t.Fatal("condition never became true before timeout")
		}
	}
}

func TestDependentWaitsForReadiness(t *testing.T) {
	cfg := &config.Config{
		Global: testGlobal(),
		Processes: []config.ProcessSpec{
			{
				Name:       "a",
				Argv:       []string{"sh", "-c", "sleep 0.2"},
				ReadyCheck: readiness.Check{Kind: readiness.Delay, DelayMS: 50},
			},
			{
				Name:    "b",
				Argv:    []string{"sh", "-c", "sleep 0.1"},
				Depends: []string{"a"},
			},
		},
	}
	e := New(cfg)

	runUntil(t, e, 3*time.Second, func() bool {
		return e.Process(1).Phase != Pending && e.Process(1).Phase != WaitingForDeps
	})

	if e.Process(0).Phase != Ready && !e.Process(0).Phase.Terminal() {
		t.Fatalf("expected a to be Ready or terminal before b starts, got %v", e.Process(0).Phase)
	}
}

func TestRestartOnFailRespectsBudget(t *testing.T) {
	tries := 2
	cfg := &config.Config{
		Global: testGlobal(),
		Processes: []config.ProcessSpec{
			{
				Name:           "flaky",
				Argv:           []string{"sh", "-c", "exit 1"},
				RestartOnFail:  true,
				RestartTries:   &tries,
				RestartDelayMS: 10,
			},
		},
	}
	e := New(cfg)

	runUntil(t, e, 5*time.Second, func() bool {
		return e.Process(0).Phase == Failed
	})

	if e.Process(0).Attempt != tries {
		t.Fatalf("expected %d attempts consumed, got %d", tries, e.Process(0).Attempt)
	}
}

func TestKillOthersOnFailShutsDownSiblings(t *testing.T) {
	cfg := &config.Config{
		Global: func() config.GlobalPolicy {
			g := testGlobal()
			g.KillOthersOnFail = true
			return g
		}(),
		Processes: []config.ProcessSpec{
			{Name: "failer", Argv: []string{"sh", "-c", "exit 1"}},
			{Name: "longrunner", Argv: []string{"sh", "-c", "trap 'exit 0' INT; sleep 10"}},
		},
	}
	e := New(cfg)

	runUntil(t, e, 5*time.Second, func() bool {
		return e.Process(0).Phase.Terminal() && e.Process(1).Phase.Terminal()
	})

	if e.Process(0).Phase != Failed {
		t.Fatalf("expected failer to be Failed, got %v", e.Process(0).Phase)
	}
	if e.Process(1).Phase != Dead && e.Process(1).Phase != Exited {
		t.Fatalf("expected longrunner to be killed off, got %v", e.Process(1).Phase)
	}
}

func TestSuccessFirstFinishesAsSoonAsOneExitsCleanly(t *testing.T) {
	cfg := &config.Config{
		Global: func() config.GlobalPolicy {
			g := testGlobal()
			g.Success = config.SuccessFirst
			return g
		}(),
		Processes: []config.ProcessSpec{
			{Name: "quick", Argv: []string{"sh", "-c", "exit 0"}},
			{Name: "slow", Argv: []string{"sh", "-c", "sleep 30"}},
		},
	}
	e := New(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.Start(ctx)
	go func() {
		for {
			select {
			case ev := <-e.Events():
				e.Dispatch(ev)
			case <-e.Done():
				return
			}
			if e.finished {
				return
			}
		}
	}()

	select {
	case <-e.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("engine never finished under success=first")
	}

	if e.ExitCode() != 0 {
		t.Fatalf("expected exit code 0, got %d", e.ExitCode())
	}
}

func TestManualRestartIsExemptFromBudget(t *testing.T) {
	zero := 0
	cfg := &config.Config{
		Global: testGlobal(),
		Processes: []config.ProcessSpec{
			{
				Name:          "svc",
				Argv:          []string{"sh", "-c", "trap 'exit 0' INT; sleep 10"},
				RestartOnFail: true,
				RestartTries:  &zero,
			},
		},
	}
	e := New(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.Start(ctx)

	go func() {
		time.Sleep(100 * time.Millisecond)
		e.Enqueue(Event{Kind: EvUserRestart, ProcessID: 0})
	}()

	sawRestarting := false
	restarted := false
	for !restarted {
		select {
		case ev := <-e.Events():
			e.Dispatch(ev)
			phase := e.Process(0).Phase
			if phase == Restarting {
				sawRestarting = true
			}
			if sawRestarting && (phase == Starting || phase == Running) {
				if e.Process(0).Attempt != 0 {
					t.Fatalf("expected manual restart to leave Attempt at 0, got %d", e.Process(0).Attempt)
				}
				restarted = true
			}
		case <-ctx.Done():
			t.Fatal("manual restart never observed")
		}
	}
}
