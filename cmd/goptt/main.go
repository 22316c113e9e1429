// goptt is a tray-resident push-to-talk daemon: it loads a virtual
// microphone on the audio server, keeps it muted, and opens it only
// while the global talk key is held.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/NicolasHaas/goptt/pkg/config"
	"github.com/NicolasHaas/goptt/pkg/engine"
	"github.com/NicolasHaas/goptt/pkg/hotkey"
	"github.com/NicolasHaas/goptt/pkg/instance"
	"github.com/NicolasHaas/goptt/pkg/logging"
	"github.com/NicolasHaas/goptt/pkg/notify"
	"github.com/NicolasHaas/goptt/pkg/pulse"
	"github.com/NicolasHaas/goptt/pkg/tray"
)

const appID = "com.github.NicolasHaas.goptt"

func main() {
	// Default to "info"; override with GOPTT_LOG_LEVEL env var.
	level := "info"
	if v := os.Getenv("GOPTT_LOG_LEVEL"); v != "" {
		level = v
	}
	format := "text"
	if v := os.Getenv("GOPTT_LOG_FORMAT"); v != "" {
		format = v
	}
	logging.Setup(logging.Options{Level: level, Format: format})

	if len(os.Args) > 1 && os.Args[1] == "rebind" {
		if err := rebind(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		notify.New(true).Error(err.Error())
		os.Exit(1)
	}
}

// rebind forwards a "goptt rebind <role> <accelerator>" invocation to
// the running daemon over its control socket.
func rebind(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: goptt rebind <trigger|toggle-active> <accelerator>")
	}
	resp, err := instance.Send(instance.SocketPath(), instance.Request{
		Command:     "rebind",
		Role:        args[0],
		Accelerator: args[1],
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(resp.Error)
	}
	return nil
}

func run() error {
	notifier := notify.New(true)

	registry := hotkey.NewRegistry(config.Default())

	// The direct backend exists only after startup, but rebind requests
	// can arrive as soon as the socket is up.
	var (
		regMu     sync.Mutex
		registrar hotkey.Registrar
	)

	// One daemon per user. A second invocation just asks the running
	// one to come forward.
	var engRef atomic.Pointer[engine.Engine]
	lock, err := instance.Acquire(instance.SocketPath(), instance.Handlers{
		OnRaise: func() {
			if e := engRef.Load(); e != nil {
				e.RequestRaise()
			}
		},
		OnRebind: func(roleName, accel string) error {
			role, ok := hotkey.RoleFromString(roleName)
			if !ok {
				return fmt.Errorf("unknown role %q", roleName)
			}
			regMu.Lock()
			reg := registrar
			regMu.Unlock()
			if reg == nil {
				// Portal sessions: bindings are edited in system
				// settings, so there is nothing for us to do.
				slog.Info("ignoring rebind request, bindings are portal-managed", "role", role)
				return nil
			}
			return registry.Rebind(reg, role, accel)
		},
	})
	if errors.Is(err, instance.ErrAlreadyRunning) {
		slog.Info("already running, raised the existing instance")
		return nil
	}
	if err != nil {
		return err
	}
	defer lock.Close()

	conn, err := pulse.Dial("")
	if err != nil {
		return err
	}
	bridge := pulse.NewBridge(conn)

	listCtx, cancelList := context.WithTimeout(context.Background(), 10*time.Second)
	devices, err := bridge.ListInputDevices(listCtx)
	cancelList()
	if err != nil {
		slog.Warn("list input devices", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		eng *engine.Engine
		tr  *tray.Tray
	)

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			cancel()
			// The virtual device must not outlive the process; give
			// the server a bounded window to complete the teardown.
			teardownCtx, cancelTeardown := context.WithTimeout(context.Background(), 5*time.Second)
			if err := bridge.RemoveVirtualDevice(teardownCtx); err != nil {
				slog.Error("remove virtual device on shutdown", "err", err)
			}
			cancelTeardown()
			if err := bridge.Close(); err != nil {
				slog.Warn("close audio connection", "err", err)
			}
			tr.Quit()
		})
	}

	tr = tray.New(tray.Callbacks{
		OnToggleActive: func() { eng.ToggleActive() },
		OnSelectMicrophone: func(name string) {
			opCtx, cancelOp := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelOp()
			if err := bridge.CreateVirtualDevice(opCtx, name); err != nil {
				slog.Error("create virtual device", "source", name, "err", err)
			}
		},
		OnRaise: func() {
			// Tray-only shell: "to the front" means a reminder that
			// the daemon is here.
			notifier.Running()
		},
		OnQuit: shutdown,
	}, devices)

	sink := &notifyingSink{Tray: tr, notifier: notifier, registry: registry}
	eng = engine.New(bridge, sink)
	engRef.Store(eng)
	registry.OnDescription = eng.PublishDescription

	backend, directReg, err := startBackend(registry)
	if err != nil {
		_ = bridge.Close()
		return err
	}
	defer backend.Close()

	regMu.Lock()
	registrar = directReg
	regMu.Unlock()

	router := engine.NewRouter(registry, eng)
	go router.Run(backend)
	go eng.Run(ctx)

	// Terminate cleanly on SIGINT/SIGTERM too, not just tray Quit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		shutdown()
	}()

	slog.Info("goptt running", "portal", hotkey.UsePortal())
	tr.Run(nil)
	shutdown()
	return nil
}

// startBackend picks the capture mechanism for this session: the
// GlobalShortcuts portal under Wayland, direct OS registration
// elsewhere. The choice holds for the process lifetime. The returned
// registrar is nil under the portal, whose bindings the desktop owns.
func startBackend(registry *hotkey.Registry) (hotkey.Backend, hotkey.Registrar, error) {
	if hotkey.UsePortal() {
		p := hotkey.NewPortal(appID, registry)
		if err := p.Start(); err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	}

	d := hotkey.NewDirect()
	if err := registry.Bind(d); err != nil {
		_ = d.Close()
		return nil, nil, err
	}
	return d, d, nil
}

func describe(registry *hotkey.Registry, role hotkey.Role) string {
	if b, ok := registry.Binding(role); ok && b.Description != "" {
		return b.Description
	}
	return fmt.Sprintf("the %s key", role)
}

// notifyingSink adds desktop notifications for activation changes and
// fatal errors on top of the tray display.
type notifyingSink struct {
	*tray.Tray
	notifier *notify.Notifier
	registry *hotkey.Registry

	wasActive bool
}

func (s *notifyingSink) StateChanged(active, muted bool) {
	if active != s.wasActive {
		s.wasActive = active
		if active {
			s.notifier.Activated(describe(s.registry, hotkey.RoleTrigger))
		} else {
			s.notifier.Deactivated()
		}
	}
	s.Tray.StateChanged(active, muted)
}

func (s *notifyingSink) CapabilityLost(err error) {
	s.notifier.Error(err.Error())
	s.Tray.CapabilityLost(err)
}
