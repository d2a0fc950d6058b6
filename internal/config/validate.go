package config

import "fmt"

// Validate enforces spec.md §3's invariants: unique names, resolvable
// depends_on, and an acyclic dependency graph. A cycle or dangling
// reference is a ConfigError that aborts before any process is spawned.
func Validate(cfg *Config) error {
	byName := make(map[string]bool, len(cfg.Processes))
	for _, p := range cfg.Processes {
		if byName[p.Name] {
			return fmt.Errorf("duplicate process name %q", p.Name)
		}
		byName[p.Name] = true
	}

	for _, p := range cfg.Processes {
		for _, dep := range p.Depends {
			if !byName[dep] {
				return fmt.Errorf("process %q depends_on unknown process %q", p.Name, dep)
			}
		}
	}

	return checkAcyclic(cfg.Processes)
}

const (
	stateUnvisited = 0
	stateVisiting  = 1
	stateDone      = 2
)

func checkAcyclic(specs []ProcessSpec) error {
	byName := make(map[string]ProcessSpec, len(specs))
	for _, p := range specs {
		byName[p.Name] = p
	}

	state := make(map[string]int, len(specs))
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case stateDone:
			return nil
		case stateVisiting:
			return fmt.Errorf("dependency cycle detected: %v -> %s", path, name)
		}
		state[name] = stateVisiting
		for _, dep := range byName[name].Depends {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = stateDone
		return nil
	}

	for _, p := range specs {
		if err := visit(p.Name, nil); err != nil {
			return err
		}
	}
	return nil
}
