package pulse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

const (
	// VirtualSourceName is the fixed internal identifier of the
	// virtual microphone; server-side lookups and the self-exclusion
	// in ListInputDevices key off it.
	VirtualSourceName = "GoPTTVirtualMicrophone"
	// VirtualSourceDescription is what audio applications display.
	VirtualSourceDescription = "GoPTT Virtual Microphone"

	remapModule = "module-remap-source"
)

// VirtualDevice is the handle for the currently loaded virtual
// microphone. At most one exists at any time.
type VirtualDevice struct {
	Source string // physical source it remaps
}

// Bridge owns the audio server connection. The connection is not
// thread-safe, so every request funnels through one owner goroutine;
// public methods block on a per-operation completion future until the
// request leaves its running state.
type Bridge struct {
	conn Conn
	reqs chan bridgeReq
	quit chan struct{}
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	virtual *VirtualDevice
}

type bridgeReq struct {
	fn func() error
	op *Operation
}

// NewBridge wraps an established connection and starts its owner
// goroutine. Callers must Close before process exit so the virtual
// device does not outlive the process.
func NewBridge(conn Conn) *Bridge {
	b := &Bridge{
		conn: conn,
		reqs: make(chan bridgeReq),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bridge) run() {
	defer close(b.done)
	for {
		select {
		case req := <-b.reqs:
			req.op.complete(req.fn())
		case <-b.quit:
			return
		}
	}
}

func (b *Bridge) submit(fn func() error) *Operation {
	op := newOperation()
	select {
	case b.reqs <- bridgeReq{fn: fn, op: op}:
	case <-b.quit:
		op.complete(fmt.Errorf("%w: connection closed", ErrOperation))
	}
	return op
}

// CreateVirtualDevice loads the virtual microphone remapped from the
// given physical source, tearing down any previous one first so no
// module leaks across a source change. On completion the device starts
// muted. A server-side rejection of the load is not surfaced as an
// error (matching the behavior users rely on: reselecting the
// microphone retries); it is logged instead.
func (b *Bridge) CreateVirtualDevice(ctx context.Context, source string) error {
	return b.submit(func() error {
		if err := b.removeLocked(); err != nil {
			return err
		}

		args := fmt.Sprintf(`master=%s source_name=%s source_properties="device.description='%s'"`,
			source, VirtualSourceName, VirtualSourceDescription)
		index, err := b.conn.LoadModule(remapModule, args)
		if err != nil {
			slog.Warn("audio server rejected virtual microphone module", "source", source, "err", err)
		} else {
			slog.Info("virtual microphone loaded", "source", source, "module", index)
		}

		// Enabled push-to-talk defaults to muted.
		if err := b.conn.SetSourceMute(VirtualSourceName, true); err != nil {
			slog.Warn("initial mute failed", "err", err)
		}

		b.mu.Lock()
		b.virtual = &VirtualDevice{Source: source}
		b.mu.Unlock()
		return nil
	}).Wait(ctx)
}

// RemoveVirtualDevice unloads the virtual microphone if one is
// loaded. Not an error when none is.
func (b *Bridge) RemoveVirtualDevice(ctx context.Context) error {
	return b.submit(b.removeLocked).Wait(ctx)
}

// removeLocked runs on the owner goroutine. It scans loaded modules
// rather than trusting a remembered index, so devices left behind by
// a crashed predecessor are cleaned up too.
func (b *Bridge) removeLocked() error {
	modules, err := b.conn.Modules()
	if err != nil {
		return fmt.Errorf("%w: list modules: %v", ErrOperation, err)
	}

	for _, m := range modules {
		if m.Name != remapModule || !strings.Contains(m.Args, "source_name="+VirtualSourceName) {
			continue
		}
		if err := b.conn.UnloadModule(m.Index); err != nil {
			slog.Warn("unload virtual microphone", "module", m.Index, "err", err)
		}
	}

	b.mu.Lock()
	b.virtual = nil
	b.mu.Unlock()
	return nil
}

// SetMute sets the virtual microphone's mute flag.
func (b *Bridge) SetMute(ctx context.Context, mute bool) error {
	return b.submit(func() error {
		if err := b.conn.SetSourceMute(VirtualSourceName, mute); err != nil {
			return fmt.Errorf("%w: set mute: %v", ErrOperation, err)
		}
		return nil
	}).Wait(ctx)
}

// ListInputDevices returns the physical source names in server order,
// excluding the virtual microphone itself.
func (b *Bridge) ListInputDevices(ctx context.Context) ([]string, error) {
	var names []string
	err := b.submit(func() error {
		sources, err := b.conn.Sources()
		if err != nil {
			return fmt.Errorf("%w: list sources: %v", ErrOperation, err)
		}
		for _, name := range sources {
			if name == VirtualSourceName {
				continue
			}
			names = append(names, name)
		}
		return nil
	}).Wait(ctx)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ActiveSource returns the physical source the virtual device
// currently remaps, if one is loaded.
func (b *Bridge) ActiveSource() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.virtual == nil {
		return "", false
	}
	return b.virtual.Source, true
}

// Close stops the owner goroutine and disconnects. It does not remove
// the virtual device; call RemoveVirtualDevice first on shutdown.
func (b *Bridge) Close() error {
	b.once.Do(func() { close(b.quit) })
	<-b.done
	return b.conn.Close()
}
