// Package tray renders engine status in the system tray and feeds user
// commands (enable toggle, microphone choice, quit) back to the shell.
// It is the daemon's StatusSink; the engine goroutine is the only
// caller of the sink methods.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/NicolasHaas/goptt/pkg/hotkey"
)

const title = "goptt"

// Callbacks are the user-initiated commands the tray can emit.
type Callbacks struct {
	OnToggleActive     func()
	OnSelectMicrophone func(name string)
	OnRaise            func()
	OnQuit             func()
}

// Tray is the systray adapter. Status updates arriving before the tray
// is ready are buffered and applied once it is.
type Tray struct {
	callbacks Callbacks
	devices   []string

	mu       sync.Mutex
	ready    bool
	active   bool
	muted    bool
	descs    map[hotkey.Role]string
	fatalErr error

	statusItem  *systray.MenuItem
	triggerItem *systray.MenuItem
	toggleItem  *systray.MenuItem
	enableItem  *systray.MenuItem
	micItems    map[string]*systray.MenuItem
	quitItem    *systray.MenuItem
}

// New creates a tray offering the given microphone names for
// selection.
func New(callbacks Callbacks, devices []string) *Tray {
	return &Tray{
		callbacks: callbacks,
		devices:   devices,
		descs:     make(map[hotkey.Role]string),
		micItems:  make(map[string]*systray.MenuItem),
	}
}

// Run blocks serving the tray until Quit. onReady fires once the menu
// exists.
func (t *Tray) Run(onReady func()) {
	systray.Run(func() {
		t.onReady()
		if onReady != nil {
			onReady()
		}
	}, nil)
}

// Quit tears the tray down and unblocks Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(title)
	systray.SetTooltip("Global push-to-talk")

	t.statusItem = systray.AddMenuItem("Push-to-talk off", "")
	t.statusItem.Disable()
	t.triggerItem = systray.AddMenuItem("Talk: …", "")
	t.triggerItem.Disable()
	t.toggleItem = systray.AddMenuItem("Toggle: …", "")
	t.toggleItem.Disable()

	systray.AddSeparator()
	t.enableItem = systray.AddMenuItemCheckbox("Enable Push-to-Talk", "Mute the microphone until the talk key is held", false)

	micMenu := systray.AddMenuItem("Microphone", "Physical input to remap")
	if len(t.devices) == 0 {
		none := micMenu.AddSubMenuItem("No input devices", "")
		none.Disable()
	}
	for _, name := range t.devices {
		item := micMenu.AddSubMenuItemCheckbox(name, "", false)
		t.micItems[name] = item
		go t.watchMic(name, item)
	}

	systray.AddSeparator()
	t.quitItem = systray.AddMenuItem("Quit", "Remove the virtual microphone and exit")

	go t.watchMenu()

	t.mu.Lock()
	t.ready = true
	t.mu.Unlock()
	t.render()
}

func (t *Tray) watchMenu() {
	for {
		select {
		case <-t.enableItem.ClickedCh:
			if t.callbacks.OnToggleActive != nil {
				t.callbacks.OnToggleActive()
			}
		case <-t.quitItem.ClickedCh:
			if t.callbacks.OnQuit != nil {
				t.callbacks.OnQuit()
			}
			return
		}
	}
}

func (t *Tray) watchMic(name string, item *systray.MenuItem) {
	for range item.ClickedCh {
		t.mu.Lock()
		for n, it := range t.micItems {
			if n == name {
				it.Check()
			} else {
				it.Uncheck()
			}
		}
		t.mu.Unlock()
		if t.callbacks.OnSelectMicrophone != nil {
			t.callbacks.OnSelectMicrophone(name)
		}
	}
}

// StateChanged implements engine.StatusSink.
func (t *Tray) StateChanged(active, muted bool) {
	t.mu.Lock()
	t.active = active
	t.muted = muted
	t.mu.Unlock()
	t.render()
}

// HotkeyDescription implements engine.StatusSink.
func (t *Tray) HotkeyDescription(role hotkey.Role, desc string) {
	t.mu.Lock()
	t.descs[role] = desc
	t.mu.Unlock()
	t.render()
}

// CapabilityLost implements engine.StatusSink. The tray switches to a
// persistent error state; the enable control goes away since hotkeys
// can no longer drive the microphone.
func (t *Tray) CapabilityLost(err error) {
	t.mu.Lock()
	t.fatalErr = err
	t.mu.Unlock()
	t.render()
}

// Raise implements engine.StatusSink. There is no window to raise;
// the shell decides what "to the front" means for a tray app.
func (t *Tray) Raise() {
	if t.callbacks.OnRaise != nil {
		t.callbacks.OnRaise()
	}
}

func (t *Tray) render() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return
	}

	if t.fatalErr != nil {
		t.statusItem.SetTitle(fmt.Sprintf("Error: %v", t.fatalErr))
		t.enableItem.Disable()
		systray.SetTooltip("Global push-to-talk — error")
		return
	}

	switch {
	case !t.active:
		t.statusItem.SetTitle("Push-to-talk off")
		t.enableItem.Uncheck()
	case t.muted:
		t.statusItem.SetTitle("Muted")
		t.enableItem.Check()
	default:
		t.statusItem.SetTitle("Live")
		t.enableItem.Check()
	}

	if d, ok := t.descs[hotkey.RoleTrigger]; ok {
		t.triggerItem.SetTitle("Talk: " + d)
	}
	if d, ok := t.descs[hotkey.RoleToggleActive]; ok {
		t.toggleItem.SetTitle("Toggle: " + d)
	}
}
