package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/NicolasHaas/goptt/pkg/hotkey"
)

// fakeMuter records the sequence of mute calls and can fail on demand.
type fakeMuter struct {
	calls []bool
	fail  bool
}

func (m *fakeMuter) SetMute(_ context.Context, mute bool) error {
	m.calls = append(m.calls, mute)
	if m.fail {
		return fmt.Errorf("server said no")
	}
	return nil
}

// recordingSink captures state transitions.
type recordingSink struct {
	NopSink
	states [][2]bool
	lost   []error
}

func (s *recordingSink) StateChanged(active, muted bool) {
	s.states = append(s.states, [2]bool{active, muted})
}

func (s *recordingSink) CapabilityLost(err error) {
	s.lost = append(s.lost, err)
}

func press(role hotkey.Role) Event   { return Event{Role: role, Pressed: true} }
func release(role hotkey.Role) Event { return Event{Role: role, Pressed: false} }

// feed drives events through the state machine synchronously.
func feed(e *Engine, events ...Event) {
	for _, ev := range events {
		e.handleEvent(context.Background(), ev)
	}
}

func TestPushToTalkCycle(t *testing.T) {
	muter := &fakeMuter{}
	e := New(muter, nil)

	feed(e,
		press(hotkey.RoleToggleActive),
		press(hotkey.RoleTrigger),
		release(hotkey.RoleTrigger),
		press(hotkey.RoleToggleActive),
	)

	if diff := cmp.Diff([]bool{true, false, true, false}, muter.calls); diff != "" {
		t.Errorf("mute call sequence mismatch (-want +got):\n%s", diff)
	}
	active, muted := e.State()
	if active || muted {
		t.Errorf("final state = (active=%v, muted=%v), want inactive and unmuted", active, muted)
	}
}

func TestInactiveIgnoresTrigger(t *testing.T) {
	muter := &fakeMuter{}
	e := New(muter, nil)

	feed(e, press(hotkey.RoleTrigger), release(hotkey.RoleTrigger))

	if len(muter.calls) != 0 {
		t.Errorf("trigger while inactive issued mute calls: %v", muter.calls)
	}
	if active, muted := e.State(); active || muted {
		t.Errorf("state changed while inactive")
	}
}

func TestRepeatedPressIsNoOp(t *testing.T) {
	muter := &fakeMuter{}
	e := New(muter, nil)

	feed(e,
		press(hotkey.RoleToggleActive),
		press(hotkey.RoleTrigger),
		press(hotkey.RoleTrigger), // key repeat, no release in between
	)

	if diff := cmp.Diff([]bool{true, false}, muter.calls); diff != "" {
		t.Errorf("mute calls mismatch (-want +got):\n%s", diff)
	}
	active, muted := e.State()
	if !active || muted {
		t.Errorf("state = (active=%v, muted=%v), want active and unmuted", active, muted)
	}
}

func TestToggleReleaseIgnored(t *testing.T) {
	muter := &fakeMuter{}
	e := New(muter, nil)

	feed(e, press(hotkey.RoleToggleActive), release(hotkey.RoleToggleActive))

	active, _ := e.State()
	if !active {
		t.Errorf("toggle release deactivated the engine")
	}
	if len(muter.calls) != 1 {
		t.Errorf("mute calls = %v, want just the activation mute", muter.calls)
	}
}

func TestDeactivateWhileTriggerHeld(t *testing.T) {
	muter := &fakeMuter{}
	e := New(muter, nil)

	feed(e,
		press(hotkey.RoleToggleActive),
		press(hotkey.RoleTrigger),       // live
		press(hotkey.RoleToggleActive),  // disable mid-hold
		release(hotkey.RoleTrigger),     // stale release, engine inactive
	)

	active, muted := e.State()
	if active || muted {
		t.Errorf("state = (active=%v, muted=%v), want inactive and unmuted", active, muted)
	}
	if diff := cmp.Diff([]bool{true, false, false}, muter.calls); diff != "" {
		t.Errorf("mute calls mismatch (-want +got):\n%s", diff)
	}
}

func TestMuteFailureCommitsOptimistically(t *testing.T) {
	muter := &fakeMuter{fail: true}
	sink := &recordingSink{}
	e := New(muter, sink)

	feed(e, press(hotkey.RoleToggleActive))

	// The transition is committed even though the server call failed.
	active, muted := e.State()
	if !active || !muted {
		t.Errorf("state = (active=%v, muted=%v), want active and muted", active, muted)
	}
	if diff := cmp.Diff([][2]bool{{true, true}}, sink.states); diff != "" {
		t.Errorf("sink updates mismatch (-want +got):\n%s", diff)
	}
}

// The resting-state invariant: muted holds exactly when the engine is
// active and the trigger is not held.
func TestMutedInvariant(t *testing.T) {
	muter := &fakeMuter{}
	e := New(muter, nil)

	events := []Event{
		press(hotkey.RoleToggleActive),
		press(hotkey.RoleTrigger),
		press(hotkey.RoleTrigger),
		release(hotkey.RoleTrigger),
		release(hotkey.RoleTrigger),
		press(hotkey.RoleToggleActive),
		press(hotkey.RoleTrigger),
		release(hotkey.RoleTrigger),
		press(hotkey.RoleToggleActive),
	}

	holding := false
	for i, ev := range events {
		if ev.Role == hotkey.RoleTrigger {
			holding = ev.Pressed
		}
		e.handleEvent(context.Background(), ev)

		active, muted := e.State()
		want := active && !holding
		if muted != want {
			t.Fatalf("after event %d (%+v): muted = %v, want %v (active=%v holding=%v)",
				i, ev, muted, want, active, holding)
		}
	}
}

func TestRunDispatch(t *testing.T) {
	muter := &fakeMuter{}
	stateCh := make(chan [2]bool, 8)
	e := New(muter, stateSink{ch: stateCh})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	e.Dispatch(press(hotkey.RoleToggleActive))
	e.Dispatch(press(hotkey.RoleTrigger))

	want := [][2]bool{{true, true}, {true, false}}
	for i := range want {
		select {
		case got := <-stateCh:
			if got != want[i] {
				t.Fatalf("state update %d = %v, want %v", i, got, want[i])
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for state update %d", i)
		}
	}
}

type stateSink struct {
	NopSink
	ch chan [2]bool
}

func (s stateSink) StateChanged(active, muted bool) {
	s.ch <- [2]bool{active, muted}
}
