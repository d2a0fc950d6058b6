package supervisor

// GroupRestart restarts every process whose tag set contains tag, in
// dependency order (spec.md §4.6).
func (e *Engine) GroupRestart(tag string) {
	for _, id := range e.topoOrder() {
		p := e.procs[id]
		if hasTag(p.Spec.Tags, tag) {
			e.requestRestart(p)
		}
	}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// topoOrder returns process indices ordered so every dependency appears
// before its dependents. Config validation already guarantees the graph
// is acyclic.
func (e *Engine) topoOrder() []int {
	visited := make([]bool, len(e.procs))
	var order []int
	var visit func(id int)
	visit = func(id int) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range e.procs[id].Spec.Depends {
			if depIdx, ok := e.byName[dep]; ok {
				visit(depIdx)
			}
		}
		order = append(order, id)
	}
	for _, p := range e.procs {
		visit(p.ID)
	}
	return order
}
