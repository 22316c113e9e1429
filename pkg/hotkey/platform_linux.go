//go:build linux

package hotkey

import "golang.design/x/hotkey"

// modifierMap translates accelerator modifiers for X11.
var modifierMap = map[Modifier]hotkey.Modifier{
	ModCtrl:  hotkey.ModCtrl,
	ModShift: hotkey.ModShift,
	ModAlt:   hotkey.Mod1, // Alt = Mod1 on X11
	ModSuper: hotkey.Mod4, // Super/Win = Mod4 on X11
}

// platformKeys adds keys x/hotkey has no cross-platform constant for.
var platformKeys = map[string]hotkey.Key{
	"Insert": hotkey.Key(118), // X11 keycode for Insert
}
