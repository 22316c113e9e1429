// Package engine holds the push-to-talk state machine and the router
// that turns raw backend events into role-tagged ones.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/NicolasHaas/goptt/pkg/hotkey"
)

// Event is a normalized domain event: a logical role was pressed or
// released.
type Event struct {
	Role    hotkey.Role
	Pressed bool
}

// Muter realizes the desired mute state on the audio server.
// *pulse.Bridge satisfies it.
type Muter interface {
	SetMute(ctx context.Context, mute bool) error
}

type cmdKind int

const (
	cmdEvent cmdKind = iota
	cmdToggle
	cmdDescribe
	cmdLost
	cmdRaise
)

type command struct {
	kind cmdKind
	ev   Event
	role hotkey.Role
	desc string
	err  error
}

// Engine consumes domain events and commands on a single goroutine,
// drives the Muter, and reports to the StatusSink. It is the only
// writer of the active/muted state.
//
// Invariant at rest: muted == active. Holding the trigger while active
// unmutes; releasing re-mutes; deactivating always unmutes so the
// device returns to an always-open state.
type Engine struct {
	bridge Muter
	sink   StatusSink
	cmds   chan command

	mu     sync.Mutex
	active bool
	muted  bool
}

// New creates an engine in the inactive state.
func New(bridge Muter, sink StatusSink) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		bridge: bridge,
		sink:   sink,
		cmds:   make(chan command, 64),
	}
}

// Run consumes commands until the context is cancelled. All Muter and
// StatusSink calls happen here.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.cmds:
			e.handle(ctx, cmd)
		}
	}
}

// Dispatch feeds one normalized hotkey event into the engine.
func (e *Engine) Dispatch(ev Event) {
	e.cmds <- command{kind: cmdEvent, ev: ev}
}

// ToggleActive flips push-to-talk on or off, as if the toggle hotkey
// had been pressed. Used by the tray menu.
func (e *Engine) ToggleActive() {
	e.cmds <- command{kind: cmdToggle}
}

// PublishDescription forwards a binding description to the sink from
// the engine goroutine.
func (e *Engine) PublishDescription(role hotkey.Role, desc string) {
	e.cmds <- command{kind: cmdDescribe, role: role, desc: desc}
}

// NotifyCapabilityLost reports an irrecoverable hotkey failure.
func (e *Engine) NotifyCapabilityLost(err error) {
	e.cmds <- command{kind: cmdLost, err: err}
}

// RequestRaise forwards the payload-less bring-to-front signal.
func (e *Engine) RequestRaise() {
	e.cmds <- command{kind: cmdRaise}
}

// State returns the current (active, muted) pair.
func (e *Engine) State() (active, muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active, e.muted
}

func (e *Engine) handle(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdEvent:
		e.handleEvent(ctx, cmd.ev)
	case cmdToggle:
		e.setActive(ctx, !e.active)
	case cmdDescribe:
		e.sink.HotkeyDescription(cmd.role, cmd.desc)
	case cmdLost:
		slog.Error("hotkey capability lost", "err", cmd.err)
		e.sink.CapabilityLost(cmd.err)
	case cmdRaise:
		e.sink.Raise()
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev Event) {
	switch ev.Role {
	case hotkey.RoleToggleActive:
		// Level-triggered on the press edge only.
		if ev.Pressed {
			e.setActive(ctx, !e.active)
		}
	case hotkey.RoleTrigger:
		if !e.active {
			return
		}
		// Held trigger unmutes; release re-mutes. Repeated identical
		// edges are no-ops.
		want := !ev.Pressed
		if e.muted == want {
			return
		}
		e.apply(ctx, want)
	}
}

func (e *Engine) setActive(ctx context.Context, active bool) {
	if e.active == active {
		return
	}
	e.mu.Lock()
	e.active = active
	e.mu.Unlock()
	// Activating starts muted; deactivating leaves the device open.
	e.apply(ctx, active)
}

// apply issues the mute call and commits the transition even if it
// fails. The failure is reported once and never retried; the user
// retries by pressing the hotkey again.
func (e *Engine) apply(ctx context.Context, mute bool) {
	if err := e.bridge.SetMute(ctx, mute); err != nil {
		slog.Error("set mute", "mute", mute, "err", err)
	}
	e.mu.Lock()
	e.muted = mute
	active := e.active
	e.mu.Unlock()
	e.sink.StateChanged(active, mute)
}
