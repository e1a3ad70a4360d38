package runtime

import (
	"slices"

	"github.com/aretw0/pdasim/pkg/domain"
)

// Trace walks parent links from id back to the root and returns the path
// root first. It never changes the run.
func (e *Engine) Trace(id domain.ConfigID) (domain.Trace, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.known(id) {
		return nil, domain.ErrUnknownConfig
	}
	return e.traceLocked(id), nil
}

func (e *Engine) traceLocked(id domain.ConfigID) domain.Trace {
	var path domain.Trace
	for cur := id; cur != domain.NoParent; cur = e.nodes[cur].parent {
		path = append(path, e.viewLocked(cur))
	}
	slices.Reverse(path)
	return path
}

// AcceptingTraces returns one trace per accepting member of the frontier,
// in frontier order.
func (e *Engine) AcceptingTraces() []domain.Trace {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.model == nil {
		return nil
	}
	var out []domain.Trace
	for _, id := range e.frontier {
		if e.accepts(id) {
			out = append(out, e.traceLocked(id))
		}
	}
	return out
}

// FrontierTraces returns the path of every frontier member.
func (e *Engine) FrontierTraces() []domain.Trace {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.Trace, 0, len(e.frontier))
	for _, id := range e.frontier {
		out = append(out, e.traceLocked(id))
	}
	return out
}
