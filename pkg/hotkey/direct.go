package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

// Direct captures hotkeys through the OS-level global hotkey facility
// (X11 grabs, RegisterHotKey on Windows). Each registration gets its
// own listener goroutine feeding the shared raw event channel; ids are
// assigned here and resolved back to roles by the router at dispatch
// time.
type Direct struct {
	mu     sync.Mutex
	regs   map[uint64]*directReg
	nextID uint64

	events chan RawEvent
	lost   chan error
	closed bool
}

type directReg struct {
	hk   *hotkey.Hotkey
	stop chan struct{}
}

// NewDirect creates the direct backend. It performs no registrations
// until the registry binds accelerators through it.
func NewDirect() *Direct {
	return &Direct{
		regs:   make(map[uint64]*directReg),
		events: make(chan RawEvent, 16),
		lost:   make(chan error, 1),
	}
}

// Events returns the raw press/release stream.
func (d *Direct) Events() <-chan RawEvent { return d.events }

// Lost delivers the terminal capability error, if one ever occurs.
func (d *Direct) Lost() <-chan error { return d.lost }

// Register grabs the accelerator and starts listening for it.
func (d *Direct) Register(a Accelerator) (uint64, error) {
	mods := make([]hotkey.Modifier, 0, len(a.Mods))
	for _, m := range a.Mods {
		mod, ok := modifierMap[m]
		if !ok {
			return 0, fmt.Errorf("%w: modifier %s not supported on this platform", ErrBadAccelerator, m)
		}
		mods = append(mods, mod)
	}
	key, ok := keyFor(a.Key)
	if !ok {
		return 0, fmt.Errorf("%w: key %q not supported on this platform", ErrBadAccelerator, a.Key)
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		_ = hk.Unregister()
		return 0, fmt.Errorf("backend closed")
	}
	d.nextID++
	id := d.nextID
	reg := &directReg{hk: hk, stop: make(chan struct{})}
	d.regs[id] = reg

	go d.listen(id, reg)
	return id, nil
}

// Unregister releases the grab and stops its listener.
func (d *Direct) Unregister(id uint64) error {
	d.mu.Lock()
	reg, ok := d.regs[id]
	delete(d.regs, id)
	d.mu.Unlock()

	if !ok {
		return nil
	}
	close(reg.stop)
	return reg.hk.Unregister()
}

// listen forwards key transitions for one registration. Key-repeat
// keydowns arrive without an intervening keyup and are collapsed.
func (d *Direct) listen(id uint64, reg *directReg) {
	down := false
	for {
		select {
		case <-reg.stop:
			return
		case _, ok := <-reg.hk.Keydown():
			if !ok {
				return
			}
			if down {
				continue
			}
			down = true
			d.emit(RawEvent{ID: id, Pressed: true})
		case _, ok := <-reg.hk.Keyup():
			if !ok {
				return
			}
			if !down {
				continue
			}
			down = false
			d.emit(RawEvent{ID: id, Pressed: false})
		}
	}
}

func (d *Direct) emit(ev RawEvent) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return
	}
	d.events <- ev
}

// Close unregisters everything and stops the listeners.
func (d *Direct) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	regs := d.regs
	d.regs = make(map[uint64]*directReg)
	d.mu.Unlock()

	for _, reg := range regs {
		close(reg.stop)
		_ = reg.hk.Unregister()
	}
	return nil
}

// keyFor resolves a canonical key name to the platform key code,
// checking the per-platform extras first.
func keyFor(name string) (hotkey.Key, bool) {
	if k, ok := platformKeys[name]; ok {
		return k, true
	}
	k, ok := keyMap[name]
	return k, ok
}

// keyMap covers the keys golang.design/x/hotkey names on every
// platform. Platform-only keys (Insert) live in platformKeys, defined
// in the per-OS files next to modifierMap.
var keyMap = map[string]hotkey.Key{
	"A": hotkey.KeyA, "B": hotkey.KeyB, "C": hotkey.KeyC, "D": hotkey.KeyD,
	"E": hotkey.KeyE, "F": hotkey.KeyF, "G": hotkey.KeyG, "H": hotkey.KeyH,
	"I": hotkey.KeyI, "J": hotkey.KeyJ, "K": hotkey.KeyK, "L": hotkey.KeyL,
	"M": hotkey.KeyM, "N": hotkey.KeyN, "O": hotkey.KeyO, "P": hotkey.KeyP,
	"Q": hotkey.KeyQ, "R": hotkey.KeyR, "S": hotkey.KeyS, "T": hotkey.KeyT,
	"U": hotkey.KeyU, "V": hotkey.KeyV, "W": hotkey.KeyW, "X": hotkey.KeyX,
	"Y": hotkey.KeyY, "Z": hotkey.KeyZ,
	"F1": hotkey.KeyF1, "F2": hotkey.KeyF2, "F3": hotkey.KeyF3,
	"F4": hotkey.KeyF4, "F5": hotkey.KeyF5, "F6": hotkey.KeyF6,
	"F7": hotkey.KeyF7, "F8": hotkey.KeyF8, "F9": hotkey.KeyF9,
	"F10": hotkey.KeyF10, "F11": hotkey.KeyF11, "F12": hotkey.KeyF12,
	"Space":  hotkey.KeySpace,
	"Tab":    hotkey.KeyTab,
	"Return": hotkey.KeyReturn,
	"Escape": hotkey.KeyEscape,
	"Delete": hotkey.KeyDelete,
}
