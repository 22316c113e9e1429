//go:build windows

package hotkey

import "golang.design/x/hotkey"

// modifierMap translates accelerator modifiers for Windows.
var modifierMap = map[Modifier]hotkey.Modifier{
	ModCtrl:  hotkey.ModCtrl,
	ModShift: hotkey.ModShift,
	ModAlt:   hotkey.ModAlt,
	ModSuper: hotkey.ModWin,
}

// platformKeys adds keys x/hotkey has no cross-platform constant for.
var platformKeys = map[string]hotkey.Key{
	"Insert": hotkey.Key(0x2D), // VK_INSERT
}
