package config

import (
	"os"
	"path/filepath"
	"testing"

	"piperack/internal/readiness"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "piperack.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesProcessesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
success = "last"

[[process]]
name = "api"
cmd = "node server.js"

[process.ready_check]
kind = "tcp"
port = 8080
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Processes) != 1 {
		t.Fatalf("expected 1 process, got %d", len(cfg.Processes))
	}
	p := cfg.Processes[0]
	if p.Name != "api" {
		t.Fatalf("got name %q", p.Name)
	}
	if p.ReadyCheck.Kind != readiness.TCP || p.ReadyCheck.Port != 8080 {
		t.Fatalf("got ready check %+v", p.ReadyCheck)
	}
	if !p.Follow {
		t.Fatal("expected follow to default true")
	}
	if cfg.Global.Success != SuccessLast {
		t.Fatalf("got success policy %q", cfg.Global.Success)
	}
	if cfg.Global.ShutdownSIGINTMS != 800 {
		t.Fatalf("expected default sigint grace 800, got %d", cfg.Global.ShutdownSIGINTMS)
	}
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	path := writeConfig(t, `
[[process]]
name = "a"
cmd = "true"
[[process]]
name = "a"
cmd = "true"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestLoadRejectsUnknownDependency(t *testing.T) {
	path := writeConfig(t, `
[[process]]
name = "a"
cmd = "true"
depends_on = ["b"]
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected unresolved dependency error")
	}
}

func TestLoadRejectsDependencyCycle(t *testing.T) {
	path := writeConfig(t, `
[[process]]
name = "a"
cmd = "true"
depends_on = ["b"]
[[process]]
name = "b"
cmd = "true"
depends_on = ["a"]
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected cycle error")
	}
}

func TestLoadRejectsInvalidReadyCheckRegex(t *testing.T) {
	path := writeConfig(t, `
[[process]]
name = "a"
cmd = "true"
[process.ready_check]
kind = "log"
pattern = "("
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected invalid regex error")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Processes) != 0 {
		t.Fatalf("expected no processes, got %d", len(cfg.Processes))
	}
	if cfg.Global.MaxLines != 10000 {
		t.Fatalf("got max lines %d", cfg.Global.MaxLines)
	}
}
