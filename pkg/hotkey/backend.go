package hotkey

import (
	"errors"
	"os"
)

// ErrCapabilityLost reports that the hotkey facility failed to
// initialise or rejected a registration. Push-to-talk cannot run
// without it, so this is surfaced like a fatal init error.
var ErrCapabilityLost = errors.New("hotkey capability lost")

// RawEvent is a press or release notification keyed by the
// backend-assigned id of the accelerator that fired.
type RawEvent struct {
	ID      uint64
	Pressed bool
}

// Backend is a source of raw hotkey events. Events is never closed on
// its own; when the facility fails irrecoverably, a single error is
// delivered on Lost and the stream goes quiet.
type Backend interface {
	Events() <-chan RawEvent
	Lost() <-chan error
	Close() error
}

// Registrar is the optional rebinding capability. The direct backend
// implements it; the portal backend does not, because the portal owns
// the actual bindings and the user edits them in system settings.
type Registrar interface {
	Register(a Accelerator) (uint64, error)
	Unregister(id uint64) error
}

// UsePortal reports whether hotkeys must go through the desktop portal
// rather than direct OS registration. Decided once at startup; a
// Wayland session never exposes the direct facility to clients.
func UsePortal() bool {
	if os.Getenv("XDG_SESSION_TYPE") == "wayland" {
		return true
	}
	return os.Getenv("WAYLAND_DISPLAY") != ""
}
