package hotkey

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	portalBus      = "org.freedesktop.portal.Desktop"
	portalPath     = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	shortcutsIface = "org.freedesktop.portal.GlobalShortcuts"
	requestIface   = "org.freedesktop.portal.Request"
)

// portalRoleIDs are the backend ids used for portal events. The portal
// keys everything by shortcut id string, which is stable across user
// rebinds, so these never change for the process lifetime.
var portalRoleIDs = map[Role]uint64{
	RoleTrigger:      1,
	RoleToggleActive: 2,
}

// Portal captures hotkeys through the org.freedesktop.portal
// GlobalShortcuts service. The portal, not this process, owns the
// actual key bindings: both roles are registered in one batch with
// default accelerators, after which the user may change them in system
// settings. Rebind requests are meaningless here and the backend does
// not implement Registrar.
type Portal struct {
	appID string
	reg   *Registry

	conn    *dbus.Conn
	session dbus.ObjectPath
	signals chan *dbus.Signal

	events chan RawEvent
	lost   chan error

	mu       sync.Mutex
	tokenSeq int
	closed   bool
}

// NewPortal creates the portal backend. Start performs the session
// setup and batch registration.
func NewPortal(appID string, reg *Registry) *Portal {
	return &Portal{
		appID:  appID,
		reg:    reg,
		events: make(chan RawEvent, 16),
		lost:   make(chan error, 1),
	}
}

// Events returns the raw press/release stream.
func (p *Portal) Events() <-chan RawEvent { return p.events }

// Lost delivers the terminal capability error, if one ever occurs.
func (p *Portal) Lost() <-chan error { return p.lost }

// Start connects to the session bus, creates a portal session, binds
// both roles in a single batch with their default accelerators, seeds
// the registry with the portal's current trigger descriptions, and
// starts the listener. Any failure here is a capability failure.
func (p *Portal) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("%w: session bus: %v", ErrCapabilityLost, err)
	}
	p.conn = conn

	p.signals = make(chan *dbus.Signal, 32)
	conn.Signal(p.signals)
	if err := conn.AddMatchSignal(
		dbus.WithMatchSender(portalBus),
		dbus.WithMatchInterface(shortcutsIface),
	); err != nil {
		return fmt.Errorf("%w: subscribe shortcut signals: %v", ErrCapabilityLost, err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchSender(portalBus),
		dbus.WithMatchInterface(requestIface),
		dbus.WithMatchMember("Response"),
	); err != nil {
		return fmt.Errorf("%w: subscribe request responses: %v", ErrCapabilityLost, err)
	}

	results, err := p.request("CreateSession", map[string]dbus.Variant{
		"session_handle_token": dbus.MakeVariant("goptt"),
	})
	if err != nil {
		return fmt.Errorf("%w: create session: %v", ErrCapabilityLost, err)
	}
	session, ok := sessionHandle(results)
	if !ok {
		return fmt.Errorf("%w: portal returned no session handle", ErrCapabilityLost)
	}
	p.session = session

	shortcuts := make([]portalShortcut, 0, len(Roles))
	for _, role := range Roles {
		def := DefaultAccelerator(role)
		shortcuts = append(shortcuts, portalShortcut{
			ID: role.String(),
			Options: map[string]dbus.Variant{
				"description":       dbus.MakeVariant(role.portalDescription()),
				"preferred_trigger": dbus.MakeVariant(def.portalTrigger()),
			},
		})
	}
	results, err = p.request("BindShortcuts", p.session, shortcuts, "", map[string]dbus.Variant{})
	if err != nil {
		return fmt.Errorf("%w: bind shortcuts: %v", ErrCapabilityLost, err)
	}
	p.applyShortcuts(results["shortcuts"])

	// The bind response may omit trigger descriptions; query them.
	results, err = p.request("ListShortcuts", p.session, map[string]dbus.Variant{})
	if err != nil {
		slog.Warn("list portal shortcuts", "err", err)
	} else {
		p.applyShortcuts(results["shortcuts"])
	}

	go p.listen()
	return nil
}

// portalShortcut marshals as the portal's (sa{sv}) shortcut struct.
type portalShortcut struct {
	ID      string
	Options map[string]dbus.Variant
}

// request invokes a GlobalShortcuts method that follows the portal
// request pattern and waits for the matching Response signal.
func (p *Portal) request(method string, args ...interface{}) (map[string]dbus.Variant, error) {
	p.mu.Lock()
	p.tokenSeq++
	token := fmt.Sprintf("goptt_%d", p.tokenSeq)
	p.mu.Unlock()

	// The final a{sv} argument carries the request handle token.
	opts := args[len(args)-1].(map[string]dbus.Variant)
	withToken := make(map[string]dbus.Variant, len(opts)+1)
	for k, v := range opts {
		withToken[k] = v
	}
	withToken["handle_token"] = dbus.MakeVariant(token)
	args[len(args)-1] = withToken

	var handle dbus.ObjectPath
	obj := p.conn.Object(portalBus, portalPath)
	if err := obj.Call(shortcutsIface+"."+method, 0, args...).Store(&handle); err != nil {
		return nil, err
	}

	for sig := range p.signals {
		if sig.Name != requestIface+".Response" || sig.Path != handle {
			// Shortcut signals arriving during setup are stale; drop them.
			continue
		}
		if len(sig.Body) < 2 {
			return nil, fmt.Errorf("malformed portal response")
		}
		code, _ := sig.Body[0].(uint32)
		if code != 0 {
			return nil, fmt.Errorf("portal request %s denied (code %d)", method, code)
		}
		results, _ := sig.Body[1].(map[string]dbus.Variant)
		return results, nil
	}
	return nil, fmt.Errorf("signal stream closed")
}

func sessionHandle(results map[string]dbus.Variant) (dbus.ObjectPath, bool) {
	v, ok := results["session_handle"]
	if !ok {
		return "", false
	}
	switch h := v.Value().(type) {
	case dbus.ObjectPath:
		return h, true
	case string:
		return dbus.ObjectPath(h), true
	}
	return "", false
}

// listen dispatches portal signals until the connection dies.
func (p *Portal) listen() {
	for sig := range p.signals {
		switch sig.Name {
		case shortcutsIface + ".Activated":
			p.emitKey(sig, true)
		case shortcutsIface + ".Deactivated":
			p.emitKey(sig, false)
		case shortcutsIface + ".ShortcutsChanged":
			// The signal carries the current bindings; apply the new
			// trigger descriptions so the display follows the user's
			// edits in system settings.
			if len(sig.Body) >= 2 {
				p.applyShortcuts(sig.Body[1])
			}
		}
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if !closed {
		p.lost <- fmt.Errorf("%w: portal connection lost", ErrCapabilityLost)
	}
}

// emitKey translates an Activated/Deactivated signal into a raw event.
// Body: session, shortcut_id, timestamp, options.
func (p *Portal) emitKey(sig *dbus.Signal, pressed bool) {
	if len(sig.Body) < 2 {
		return
	}
	id, _ := sig.Body[1].(string)
	for _, role := range Roles {
		if role.String() == id {
			p.events <- RawEvent{ID: portalRoleIDs[role], Pressed: pressed}
			return
		}
	}
	slog.Debug("portal event for unknown shortcut", "id", id)
}

// applyShortcuts decodes an a(sa{sv}) shortcut list and pushes the
// portal's trigger descriptions into the registry.
func (p *Portal) applyShortcuts(raw interface{}) {
	if v, ok := raw.(dbus.Variant); ok {
		raw = v.Value()
	}
	list, ok := raw.([][]interface{})
	if !ok {
		return
	}
	for _, entry := range list {
		if len(entry) < 2 {
			continue
		}
		id, _ := entry[0].(string)
		props, _ := entry[1].(map[string]dbus.Variant)
		for _, role := range Roles {
			if role.String() != id {
				continue
			}
			desc := role.portalDescription()
			if v, ok := props["trigger_description"]; ok {
				if s, ok := v.Value().(string); ok && strings.TrimSpace(s) != "" {
					desc = s
				}
			}
			p.reg.setPortalBinding(role, portalRoleIDs[role], desc)
		}
	}
}

// Close tears down the session and signal subscription.
func (p *Portal) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if p.conn == nil {
		return nil
	}
	if p.session != "" {
		obj := p.conn.Object(portalBus, p.session)
		_ = obj.Call("org.freedesktop.portal.Session.Close", 0).Err
	}
	p.conn.RemoveSignal(p.signals)
	return p.conn.Close()
}
