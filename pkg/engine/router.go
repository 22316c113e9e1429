package engine

import (
	"log/slog"

	"github.com/NicolasHaas/goptt/pkg/hotkey"
)

// Resolver maps backend-assigned ids to logical roles. *hotkey.Registry
// satisfies it.
type Resolver interface {
	Resolve(id uint64) (hotkey.Role, bool)
}

// Router consumes one backend's raw event stream, resolves ids to
// roles at dispatch time, and forwards normalized events to the
// engine. Resolving at dispatch time rather than registration time is
// what makes rebinds safe: an event carrying an id that was just
// unbound resolves to nothing and is dropped.
type Router struct {
	resolver Resolver
	engine   *Engine
}

// NewRouter creates a router feeding the given engine.
func NewRouter(resolver Resolver, engine *Engine) *Router {
	return &Router{resolver: resolver, engine: engine}
}

// Run forwards events until the backend reports capability loss.
// Intended to run as its own goroutine, one per backend.
func (r *Router) Run(backend hotkey.Backend) {
	events := backend.Events()
	lost := backend.Lost()
	for {
		select {
		case ev := <-events:
			role, ok := r.resolver.Resolve(ev.ID)
			if !ok {
				slog.Debug("dropping event for unbound id", "id", ev.ID)
				continue
			}
			r.engine.Dispatch(Event{Role: role, Pressed: ev.Pressed})
		case err := <-lost:
			r.engine.NotifyCapabilityLost(err)
			return
		}
	}
}
