package instance

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquireAndRaise(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")

	raised := make(chan struct{}, 1)
	first, err := Acquire(path, Handlers{OnRaise: func() { raised <- struct{}{} }})
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Close()

	// A second instance must not start; it signals the first instead.
	_, err = Acquire(path, Handlers{})
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Acquire = %v, want ErrAlreadyRunning", err)
	}

	select {
	case <-raised:
	case <-time.After(2 * time.Second):
		t.Fatal("first instance never received the raise signal")
	}
}

func TestAcquireRemovesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")

	// Simulate a crashed predecessor: the path exists but nobody
	// answers on it.
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Acquire(path, Handlers{})
	if err != nil {
		t.Fatalf("Acquire over stale socket: %v", err)
	}
	s.Close()
}

func TestRebindRelayedToHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")

	type rebind struct{ role, accel string }
	got := make(chan rebind, 1)
	s, err := Acquire(path, Handlers{
		OnRebind: func(role, accel string) error {
			got <- rebind{role, accel}
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	resp, err := Send(path, Request{Command: "rebind", Role: "trigger", Accelerator: "CTRL+M"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !resp.OK {
		t.Fatalf("response not OK: %s", resp.Error)
	}
	select {
	case r := <-got:
		if r.role != "trigger" || r.accel != "CTRL+M" {
			t.Errorf("handler got %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("rebind never reached the handler")
	}
}

func TestRebindHandlerErrorSurfaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")
	s, err := Acquire(path, Handlers{
		OnRebind: func(role, accel string) error {
			return errors.New("no such key")
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	resp, err := Send(path, Request{Command: "rebind", Role: "trigger", Accelerator: "CTRL+NOPE"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.OK || !strings.Contains(resp.Error, "no such key") {
		t.Errorf("response = %+v, want the handler's error", resp)
	}
}

func TestUnknownCommandRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")
	s, err := Acquire(path, Handlers{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"command":"selfdestruct"}` + "\n")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 256)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if got := string(buf[:n]); !strings.Contains(got, "unknown command") {
		t.Errorf("response = %q, want an unknown-command error", got)
	}
}
