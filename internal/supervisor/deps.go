package supervisor

// eligible reports whether every dependency of p is Ready (spec.md §4.6
// step 2). A process with no dependencies is always eligible.
func (e *Engine) eligible(p *ProcessRuntime) bool {
	for _, dep := range p.Spec.Depends {
		depIdx, ok := e.byName[dep]
		if !ok {
			return false
		}
		if e.procs[depIdx].Phase != Ready {
			return false
		}
	}
	return true
}

// startEligible scans all Pending/WaitingForDeps processes and starts
// any whose dependencies are all Ready. Called on every tick and after
// any phase transition that could unblock a dependent.
func (e *Engine) startEligible() {
	for _, p := range e.procs {
		if p.Phase != Pending && p.Phase != WaitingForDeps {
			continue
		}
		if !e.eligible(p) {
			p.Phase = WaitingForDeps
			continue
		}
		e.spawn(p)
	}
}

// dependents returns the indices of processes that directly depend on p.
func (e *Engine) dependents(p *ProcessRuntime) []int {
	var out []int
	for _, other := range e.procs {
		for _, dep := range other.Spec.Depends {
			if dep == p.Spec.Name {
				out = append(out, other.ID)
				break
			}
		}
	}
	return out
}
