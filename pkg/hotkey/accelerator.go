// Package hotkey captures global key combinations through one of two
// backends: direct OS registration (X11, Windows) or the desktop
// GlobalShortcuts portal under Wayland. Both feed role-tagged
// press/release events into the engine's router.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadAccelerator reports an accelerator string that cannot be parsed.
// A failed rebind leaves the prior binding untouched.
var ErrBadAccelerator = errors.New("invalid accelerator")

// Modifier is one of the four supported modifier keys.
type Modifier string

const (
	ModCtrl  Modifier = "CTRL"
	ModShift Modifier = "SHIFT"
	ModAlt   Modifier = "ALT"
	ModSuper Modifier = "SUPER" // Win/Logo key
)

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"super":   ModSuper,
	"win":     ModSuper,
	"logo":    ModSuper,
}

// canonicalKeys lists every key name the direct backend can register.
// Parsing is case-insensitive; these are the display spellings.
var canonicalKeys = []string{
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
	"F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "F9", "F10", "F11", "F12",
	"Space", "Tab", "Return", "Escape", "Delete", "Insert",
}

var keyNames = func() map[string]string {
	m := make(map[string]string, len(canonicalKeys))
	for _, k := range canonicalKeys {
		m[strings.ToLower(k)] = k
	}
	return m
}()

// Accelerator is a modifier set plus a single key, e.g. CTRL+SUPER+P.
type Accelerator struct {
	Mods []Modifier
	Key  string // canonical key name, e.g. "P", "Insert", "F1"
}

// ParseAccelerator parses a '+'-separated accelerator string such as
// "Insert" or "ctrl+super+p". The last element is the key, everything
// before it a modifier. Returns ErrBadAccelerator on unknown names.
func ParseAccelerator(s string) (Accelerator, error) {
	parts := strings.Split(s, "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return Accelerator{}, fmt.Errorf("%w: %q", ErrBadAccelerator, s)
		}
	}

	key, ok := keyNames[strings.ToLower(parts[len(parts)-1])]
	if !ok {
		return Accelerator{}, fmt.Errorf("%w: unknown key %q", ErrBadAccelerator, parts[len(parts)-1])
	}

	var mods []Modifier
	seen := make(map[Modifier]bool)
	for _, p := range parts[:len(parts)-1] {
		mod, ok := modifierNames[strings.ToLower(p)]
		if !ok {
			return Accelerator{}, fmt.Errorf("%w: unknown modifier %q", ErrBadAccelerator, p)
		}
		if !seen[mod] {
			seen[mod] = true
			mods = append(mods, mod)
		}
	}

	return Accelerator{Mods: mods, Key: key}, nil
}

// String renders the accelerator in its canonical spelling,
// e.g. "CTRL+SUPER+P" or a bare "Insert".
func (a Accelerator) String() string {
	if len(a.Mods) == 0 {
		return a.Key
	}
	parts := make([]string, 0, len(a.Mods)+1)
	for _, m := range a.Mods {
		parts = append(parts, string(m))
	}
	parts = append(parts, a.Key)
	return strings.Join(parts, "+")
}

// portalTrigger renders the accelerator in the XDG shortcuts syntax
// used for the portal's preferred_trigger option.
func (a Accelerator) portalTrigger() string {
	parts := make([]string, 0, len(a.Mods)+1)
	for _, m := range a.Mods {
		if m == ModSuper {
			parts = append(parts, "LOGO")
			continue
		}
		parts = append(parts, string(m))
	}
	parts = append(parts, strings.ToLower(a.Key))
	return strings.Join(parts, "+")
}
