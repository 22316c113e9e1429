package hotkey

import (
	"fmt"
	"log/slog"
	"sync"
)

// BindingStore is the persistence contract for accelerators. Load
// returns the stored accelerator string per role, with missing roles
// absent from the map. Store is best-effort; implementations swallow
// write failures.
type BindingStore interface {
	Load() map[Role]string
	Store(map[Role]string)
}

// Binding couples a role with its current accelerator, the
// backend-assigned id, and the description shown to the user.
// A rebind replaces id, accelerator and description atomically.
type Binding struct {
	Role        Role
	Accel       Accelerator
	ID          uint64
	Description string
}

// Registry owns the current binding for each logical role. The event
// router resolves backend ids through it at dispatch time, so a rebind
// in progress makes events for the old id vanish instead of being
// misrouted.
type Registry struct {
	mu       sync.Mutex
	bindings map[Role]Binding
	byID     map[uint64]Role
	store    BindingStore

	// OnDescription publishes display updates. Set once before Bind;
	// invoked with the registry lock held, so it must not call back in.
	OnDescription func(Role, string)
}

// NewRegistry creates an empty registry backed by store.
func NewRegistry(store BindingStore) *Registry {
	return &Registry{
		bindings: make(map[Role]Binding),
		byID:     make(map[uint64]Role),
		store:    store,
	}
}

// Bind registers every role with the direct backend, preferring
// persisted accelerators over defaults, and persists the result.
// A stored string that no longer parses falls back to the default.
func (r *Registry) Bind(reg Registrar) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.store.Load()
	for _, role := range Roles {
		accel := DefaultAccelerator(role)
		if s, ok := stored[role]; ok {
			parsed, err := ParseAccelerator(s)
			if err != nil {
				slog.Warn("ignoring stored accelerator", "role", role, "value", s, "err", err)
			} else {
				accel = parsed
			}
		}

		id, err := reg.Register(accel)
		if err != nil {
			return fmt.Errorf("%w: register %s (%s): %v", ErrCapabilityLost, role, accel, err)
		}
		r.put(Binding{Role: role, Accel: accel, ID: id, Description: accel.String()})
	}

	r.persist()
	r.publishAll()
	return nil
}

// Rebind swaps the accelerator for one role: unregister old, register
// new, persist, publish. The whole swap is one critical section with
// respect to Resolve, so an in-flight event carrying the old id is
// dropped rather than routed to the new binding.
func (r *Registry) Rebind(reg Registrar, role Role, accel string) error {
	parsed, err := ParseAccelerator(accel)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.bindings[role]
	if ok {
		delete(r.byID, old.ID)
		if err := reg.Unregister(old.ID); err != nil {
			slog.Warn("unregister old accelerator", "role", role, "err", err)
		}
	}

	id, err := reg.Register(parsed)
	if err != nil {
		// Try to keep the previous binding working.
		if ok {
			if oldID, rerr := reg.Register(old.Accel); rerr == nil {
				old.ID = oldID
				r.put(old)
			}
		}
		return fmt.Errorf("%w: register %s: %v", ErrCapabilityLost, parsed, err)
	}

	r.put(Binding{Role: role, Accel: parsed, ID: id, Description: parsed.String()})
	r.persist()
	r.publish(role)
	return nil
}

// Resolve maps a backend id to its role as bound at this instant.
func (r *Registry) Resolve(id uint64) (Role, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.byID[id]
	return role, ok
}

// Binding returns the current binding for a role.
func (r *Registry) Binding(role Role) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[role]
	return b, ok
}

// setPortalBinding seeds or updates a portal-owned binding. The id is
// the portal's stable role id and the description comes from the
// portal, since the user edits bindings in system settings.
func (r *Registry) setPortalBinding(role Role, id uint64, desc string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.bindings[role]; ok && old.ID != id {
		delete(r.byID, old.ID)
	}
	b := r.bindings[role]
	b.Role = role
	b.ID = id
	b.Description = desc
	r.put(b)
	r.publish(role)
}

func (r *Registry) put(b Binding) {
	r.bindings[b.Role] = b
	r.byID[b.ID] = b.Role
}

func (r *Registry) persist() {
	out := make(map[Role]string, len(r.bindings))
	for role, b := range r.bindings {
		out[role] = b.Accel.String()
	}
	r.store.Store(out)
}

func (r *Registry) publish(role Role) {
	if r.OnDescription != nil {
		r.OnDescription(role, r.bindings[role].Description)
	}
}

func (r *Registry) publishAll() {
	for _, role := range Roles {
		if _, ok := r.bindings[role]; ok {
			r.publish(role)
		}
	}
}
