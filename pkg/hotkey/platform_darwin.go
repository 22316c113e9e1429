//go:build darwin

package hotkey

import "golang.design/x/hotkey"

// modifierMap translates accelerator modifiers for macOS.
var modifierMap = map[Modifier]hotkey.Modifier{
	ModCtrl:  hotkey.ModCtrl,
	ModShift: hotkey.ModShift,
	ModAlt:   hotkey.ModOption,
	ModSuper: hotkey.ModCmd,
}

// platformKeys adds keys x/hotkey has no cross-platform constant for.
// Mac keyboards have no Insert key; Help shares its position.
var platformKeys = map[string]hotkey.Key{
	"Insert": hotkey.Key(0x72), // kVK_Help
}
