// Package notify sends desktop notifications. Notification failures
// are never worth failing an operation over and are silently dropped.
package notify

import "github.com/gen2brain/beeep"

const appName = "goptt"

// Notifier sends desktop notifications.
type Notifier struct {
	enabled bool
}

// New creates a Notifier.
func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled}
}

// Activated announces that push-to-talk is on.
func (n *Notifier) Activated(hotkeyDesc string) {
	n.send("Push-to-talk enabled", "Hold "+hotkeyDesc+" to talk")
}

// Deactivated announces that push-to-talk is off.
func (n *Notifier) Deactivated() {
	n.send("Push-to-talk disabled", "Microphone is open")
}

// Running reminds the user the daemon is already in the tray. Sent
// when a second invocation asks us to come to the front.
func (n *Notifier) Running() {
	n.send("Already running", "goptt is in the system tray")
}

// Error announces a fatal condition, replacing normal operation.
func (n *Notifier) Error(msg string) {
	n.send("Error", msg)
}

func (n *Notifier) send(title, message string) {
	if !n.enabled {
		return
	}
	_ = beeep.Notify(appName+": "+title, message, "")
}
