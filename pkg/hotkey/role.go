package hotkey

// Role identifies one of the two fixed push-to-talk functions,
// independent of which accelerator or backend id currently serves it.
type Role int

const (
	// RoleTrigger is the hold-to-unmute key.
	RoleTrigger Role = iota
	// RoleToggleActive enables or disables push-to-talk entirely.
	RoleToggleActive
)

// Roles lists all logical roles in registration order.
var Roles = []Role{RoleTrigger, RoleToggleActive}

// RoleFromString parses the name produced by Role.String.
func RoleFromString(s string) (Role, bool) {
	for _, r := range Roles {
		if r.String() == s {
			return r, true
		}
	}
	return 0, false
}

func (r Role) String() string {
	switch r {
	case RoleTrigger:
		return "trigger"
	case RoleToggleActive:
		return "toggle-active"
	default:
		return "unknown"
	}
}

// DefaultAccelerator returns the built-in accelerator for a role, used
// when no binding has been persisted.
func DefaultAccelerator(r Role) Accelerator {
	switch r {
	case RoleToggleActive:
		return Accelerator{Mods: []Modifier{ModCtrl, ModSuper}, Key: "P"}
	default:
		return Accelerator{Key: "Insert"}
	}
}

// portalDescription is the shortcut description shown by the desktop
// settings UI for portal-managed bindings.
func (r Role) portalDescription() string {
	switch r {
	case RoleToggleActive:
		return "Toggle push-to-talk"
	default:
		return "Hold to unmute microphone"
	}
}
