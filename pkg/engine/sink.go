package engine

import "github.com/NicolasHaas/goptt/pkg/hotkey"

// StatusSink is the display collaborator. The engine is its only
// caller and invokes it from the engine goroutine, so implementations
// need no locking of their own. Rendering is out of the core's hands;
// the tray adapter is the normal implementation.
type StatusSink interface {
	// StateChanged reports the engine state for indicator rendering.
	StateChanged(active, muted bool)
	// HotkeyDescription reports the human-readable accelerator
	// currently bound to a role.
	HotkeyDescription(role hotkey.Role, description string)
	// CapabilityLost replaces normal controls with an error state.
	// The engine cannot usefully run push-to-talk after this.
	CapabilityLost(err error)
	// Raise asks the surrounding shell to bring its window to the
	// front. Fired by a second process instance; carries no payload
	// and has no effect on engine state.
	Raise()
}

// NopSink discards all updates. Useful headless and in tests.
type NopSink struct{}

func (NopSink) StateChanged(active, muted bool)                 {}
func (NopSink) HotkeyDescription(role hotkey.Role, desc string) {}
func (NopSink) CapabilityLost(err error)                        {}
func (NopSink) Raise()                                          {}
