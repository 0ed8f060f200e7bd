//go:build linux

package registrar

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

const (
	portalBus           = "org.freedesktop.portal.Desktop"
	portalPath          = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	portalShortcuts     = "org.freedesktop.portal.GlobalShortcuts"
	portalRequest       = "org.freedesktop.portal.Request"
	portalSession       = "org.freedesktop.portal.Session"
	portalResponseLimit = 30 * time.Second
)

// portalShortcut is the (sa{sv}) shortcut entry of BindShortcuts.
type portalShortcut struct {
	ID    string
	Props map[string]dbus.Variant
}

// portalFacility registers shortcuts through the xdg-desktop-portal
// GlobalShortcuts interface, the only global hotkey service on Wayland.
// The compositor chooses the final trigger and may ask the user to confirm,
// so the registered combination is a preference rather than a guarantee.
type portalFacility struct {
	logger *slog.Logger

	mu      sync.Mutex
	conn    *dbus.Conn
	signals chan *dbus.Signal
	done    chan struct{}
	handler func(FacilityEvent)
	waiters map[dbus.ObjectPath]chan *dbus.Signal
}

func newPortalFacility(logger *slog.Logger) *portalFacility {
	if logger == nil {
		logger = slog.Default()
	}
	return &portalFacility{logger: logger}
}

func (f *portalFacility) Name() string { return "desktop-portal" }

// DeferRegister implements Deferred: both handshake requests wait on the
// compositor, which may show a confirmation dialog.
func (f *portalFacility) DeferRegister() bool { return true }

// Install implements Facility by connecting to the session bus and routing
// Activated and Deactivated signals to handler.
func (f *portalFacility) Install(handler func(FacilityEvent)) (func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		return nil, errors.New("portal connection already open")
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	for _, member := range []string{"Activated", "Deactivated"} {
		if err := conn.AddMatchSignal(
			dbus.WithMatchInterface(portalShortcuts),
			dbus.WithMatchMember(member),
		); err != nil {
			conn.Close()
			return nil, fmt.Errorf("match %s: %w", member, err)
		}
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(portalRequest),
		dbus.WithMatchMember("Response"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("match Response: %w", err)
	}

	f.conn = conn
	f.handler = handler
	f.waiters = make(map[dbus.ObjectPath]chan *dbus.Signal)
	f.signals = make(chan *dbus.Signal, 16)
	f.done = make(chan struct{})
	conn.Signal(f.signals)
	go f.route(f.signals, f.done)

	var once sync.Once
	return func() error {
		var err error
		once.Do(func() {
			f.mu.Lock()
			conn, signals, done := f.conn, f.signals, f.done
			f.conn, f.handler, f.waiters = nil, nil, nil
			f.mu.Unlock()

			conn.RemoveSignal(signals)
			err = conn.Close()
			close(signals)
			<-done
		})
		return err
	}, nil
}

func (f *portalFacility) route(signals <-chan *dbus.Signal, done chan<- struct{}) {
	defer close(done)
	for sig := range signals {
		switch sig.Name {
		case portalRequest + ".Response":
			f.mu.Lock()
			w, ok := f.waiters[sig.Path]
			if ok {
				delete(f.waiters, sig.Path)
			}
			f.mu.Unlock()
			if ok {
				w <- sig
			}
		case portalShortcuts + ".Activated", portalShortcuts + ".Deactivated":
			if len(sig.Body) < 2 {
				continue
			}
			id, _ := sig.Body[1].(string)
			regSig, regID, ok := parseShortcutID(id)
			if !ok {
				continue
			}
			f.mu.Lock()
			h := f.handler
			f.mu.Unlock()
			if h != nil {
				h(FacilityEvent{
					Signature: regSig,
					ID:        regID,
					Pressed:   strings.HasSuffix(sig.Name, ".Activated"),
				})
			}
		}
	}
}

// Register implements Facility: it creates a portal session and binds one
// shortcut to it. Closing the session unbinds it.
func (f *portalFacility) Register(reg Registration) (func() error, error) {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return nil, errors.New("portal event filter not installed")
	}
	obj := conn.Object(portalBus, portalPath)

	results, err := f.request(conn, func(token string) *dbus.Call {
		return obj.Call(portalShortcuts+".CreateSession", 0, map[string]dbus.Variant{
			"handle_token":         dbus.MakeVariant(token),
			"session_handle_token": dbus.MakeVariant(portalToken()),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create portal session: %w", err)
	}
	handle, _ := results["session_handle"].Value().(string)
	if handle == "" {
		return nil, errors.New("create portal session: no session handle")
	}
	session := dbus.ObjectPath(handle)
	closeSession := func() error {
		return conn.Object(portalBus, session).Call(portalSession+".Close", 0).Err
	}

	shortcuts := []portalShortcut{{
		ID: shortcutID(reg),
		Props: map[string]dbus.Variant{
			"description":       dbus.MakeVariant("hotkeyd " + reg.Binding().String()),
			"preferred_trigger": dbus.MakeVariant(preferredTrigger(reg.Code, reg.Modifiers)),
		},
	}}
	results, err = f.request(conn, func(token string) *dbus.Call {
		return obj.Call(portalShortcuts+".BindShortcuts", 0, session, shortcuts, "", map[string]dbus.Variant{
			"handle_token": dbus.MakeVariant(token),
		})
	})
	if err != nil {
		_ = closeSession()
		return nil, fmt.Errorf("bind shortcut: %w", err)
	}
	if _, ok := results["shortcuts"]; !ok {
		_ = closeSession()
		return nil, fmt.Errorf("%w: compositor bound no shortcut", ErrConflict)
	}

	f.logger.Info("portal shortcut bound", "id", shortcutID(reg), "session", string(session))

	var once sync.Once
	return func() error {
		var err error
		once.Do(func() { err = closeSession() })
		return err
	}, nil
}

// request performs one portal call that answers through a Request object and
// waits for its Response signal.
func (f *portalFacility) request(conn *dbus.Conn, call func(token string) *dbus.Call) (map[string]dbus.Variant, error) {
	token := portalToken()
	path := requestPath(conn, token)
	ch := make(chan *dbus.Signal, 1)

	f.mu.Lock()
	if f.waiters == nil {
		f.mu.Unlock()
		return nil, errors.New("portal connection closed")
	}
	f.waiters[path] = ch
	f.mu.Unlock()

	forget := func() {
		f.mu.Lock()
		if f.waiters != nil {
			delete(f.waiters, path)
		}
		f.mu.Unlock()
	}

	c := call(token)
	if c.Err != nil {
		forget()
		return nil, c.Err
	}

	select {
	case sig := <-ch:
		if len(sig.Body) < 2 {
			return nil, errors.New("malformed portal response")
		}
		code, _ := sig.Body[0].(uint32)
		if code != 0 {
			return nil, fmt.Errorf("portal request denied (response %d)", code)
		}
		results, _ := sig.Body[1].(map[string]dbus.Variant)
		return results, nil
	case <-time.After(portalResponseLimit):
		forget()
		return nil, errors.New("portal request timed out")
	}
}

// requestPath predicts the Request object path the portal will use for token.
func requestPath(conn *dbus.Conn, token string) dbus.ObjectPath {
	sender := ""
	if names := conn.Names(); len(names) > 0 {
		sender = strings.ReplaceAll(strings.TrimPrefix(names[0], ":"), ".", "_")
	}
	return dbus.ObjectPath("/org/freedesktop/portal/desktop/request/" + sender + "/" + token)
}

func portalToken() string {
	return "hotkeyd_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
