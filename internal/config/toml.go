package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"piperack/internal/readiness"
	"piperack/internal/runner"
)

// fileConfig mirrors the TOML document shape exactly; Load converts it
// into the validated Config the rest of the program consumes.
type fileConfig struct {
	MaxLines int `toml:"max_lines"`

	KillOthers       bool   `toml:"kill_others"`
	KillOthersOnFail bool   `toml:"kill_others_on_fail"`
	Success          string `toml:"success"`

	RestartTries   *int `toml:"restart_tries"`
	RestartDelayMS int  `toml:"restart_delay_ms"`

	ShutdownSigintMS  int `toml:"shutdown_sigint_ms"`
	ShutdownSigtermMS int `toml:"shutdown_sigterm_ms"`

	HandleInput *bool  `toml:"handle_input"`
	LogFile     string `toml:"log_file"`

	Prefix       string `toml:"prefix"`
	PrefixLength int    `toml:"prefix_length"`
	PrefixColors *bool  `toml:"prefix_colors"`
	Timestamp    bool   `toml:"timestamp"`
	NoColor      bool   `toml:"no_color"`
	OutputMode   string `toml:"output_mode"`
	Symbols      string `toml:"symbols"`

	Process []fileProcess `toml:"process"`
}

type fileReadyCheck struct {
	Kind    string `toml:"kind"`
	Port    int    `toml:"port"`
	Pattern string `toml:"pattern"`
	DelayMS int    `toml:"delay_ms"`
}

type fileProcess struct {
	Name    string   `toml:"name"`
	Cmd     string   `toml:"cmd"`
	Cwd     string   `toml:"cwd"`
	Env     []string `toml:"env"`
	Color   string   `toml:"color"`
	Tags    []string `toml:"tags"`
	Depends []string `toml:"depends_on"`

	ReadyCheck fileReadyCheck `toml:"ready_check"`

	RestartOnFail  bool `toml:"restart_on_fail"`
	RestartTries   *int `toml:"restart_tries"`
	RestartDelayMS int  `toml:"restart_delay_ms"`

	PreCmd string `toml:"pre_cmd"`

	Watch                []string `toml:"watch"`
	WatchIgnore          []string `toml:"watch_ignore"`
	WatchIgnoreGitignore bool     `toml:"watch_ignore_gitignore"`
	WatchDebounceMS      int      `toml:"watch_debounce_ms"`

	Follow *bool `toml:"follow"`
	Stdin  bool  `toml:"stdin"`

	JSONLog         bool   `toml:"json_log"`
	LogFileTemplate string `toml:"log_file_template"`
}

// Load reads and validates a TOML config file into a Config. An empty
// path yields the zero-process default Config (a CLI-only invocation).
func Load(path string) (*Config, error) {
	var fc fileConfig
	if path != "" {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return build(fc)
}

func build(fc fileConfig) (*Config, error) {
	cfg := &Config{Global: globalFromFile(fc)}

	for _, fp := range fc.Process {
		spec, err := processFromFile(fp, cfg.Global)
		if err != nil {
			return nil, fmt.Errorf("process %q: %w", fp.Name, err)
		}
		cfg.Processes = append(cfg.Processes, spec)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func globalFromFile(fc fileConfig) GlobalPolicy {
	g := GlobalPolicy{
		MaxLines:              10000,
		KillOthers:            fc.KillOthers,
		KillOthersOnFail:      fc.KillOthersOnFail,
		Success:               SuccessPolicy(orDefault(fc.Success, string(SuccessAll))),
		DefaultRestartTries:   fc.RestartTries,
		DefaultRestartDelayMS: orDefaultInt(fc.RestartDelayMS, 1000),
		ShutdownSIGINTMS:      orDefaultInt(fc.ShutdownSigintMS, 800),
		ShutdownSIGTERMMS:     orDefaultInt(fc.ShutdownSigtermMS, 800),
		HandleInput:           boolOrDefault(fc.HandleInput, true),
		LogFile:               fc.LogFile,
		Prefix:                orDefault(fc.Prefix, "[{name}] "),
		PrefixLength:          orDefaultInt(fc.PrefixLength, 12),
		PrefixColors:          boolOrDefault(fc.PrefixColors, true),
		Timestamp:             fc.Timestamp,
		NoColor:               fc.NoColor || os.Getenv("NO_COLOR") != "",
		OutputMode:            OutputMode(orDefault(fc.OutputMode, string(OutputCombined))),
		ASCIISymbols:          fc.Symbols == "ascii",
	}
	if fc.MaxLines > 0 {
		g.MaxLines = fc.MaxLines
	}
	return g
}

func processFromFile(fp fileProcess, global GlobalPolicy) (ProcessSpec, error) {
	if fp.Name == "" {
		return ProcessSpec{}, fmt.Errorf("name is required")
	}
	if fp.Cmd == "" {
		return ProcessSpec{}, fmt.Errorf("cmd is required")
	}

	check, err := readinessFromFile(fp.ReadyCheck)
	if err != nil {
		return ProcessSpec{}, err
	}

	var preArgv []string
	if fp.PreCmd != "" {
		preArgv = runner.ResolveArgv(fp.PreCmd)
	}

	restartTries := fp.RestartTries
	if restartTries == nil {
		restartTries = global.DefaultRestartTries
	}
	restartDelay := fp.RestartDelayMS
	if restartDelay == 0 {
		restartDelay = global.DefaultRestartDelayMS
	}
	debounce := fp.WatchDebounceMS
	if debounce == 0 {
		debounce = 300
	}

	return ProcessSpec{
		Name:                 fp.Name,
		Argv:                 runner.ResolveArgv(fp.Cmd),
		Cwd:                  fp.Cwd,
		Env:                  fp.Env,
		Color:                fp.Color,
		Tags:                 fp.Tags,
		Depends:              fp.Depends,
		ReadyCheck:           check,
		RestartOnFail:        fp.RestartOnFail,
		RestartTries:         restartTries,
		RestartDelayMS:       restartDelay,
		PreCmdArgv:           preArgv,
		Watch:                fp.Watch,
		WatchIgnore:          fp.WatchIgnore,
		WatchIgnoreGitignore: fp.WatchIgnoreGitignore,
		WatchDebounceMS:      debounce,
		Follow:               boolOrDefault(fp.Follow, true),
		Stdin:                fp.Stdin,
		JSONLog:              fp.JSONLog,
		LogFileTemplate:      fp.LogFileTemplate,
	}, nil
}

func readinessFromFile(fr fileReadyCheck) (readiness.Check, error) {
	var kind readiness.Kind
	switch fr.Kind {
	case "", "none":
		kind = readiness.None
	case "tcp":
		kind = readiness.TCP
	case "log":
		kind = readiness.LogRegex
	case "delay":
		kind = readiness.Delay
	default:
		return readiness.Check{}, fmt.Errorf("unknown ready_check kind %q", fr.Kind)
	}
	return readiness.Compile(readiness.Check{
		Kind:    kind,
		Port:    fr.Port,
		Pattern: fr.Pattern,
		DelayMS: fr.DelayMS,
	})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
