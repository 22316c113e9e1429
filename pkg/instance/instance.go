// Package instance enforces a single running daemon per user via a
// unix socket, and relays control requests ("raise", "rebind") from
// later invocations to the one that holds the socket.
package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"
)

// ErrAlreadyRunning reports that another instance holds the socket and
// has been asked to raise itself.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Request is sent from a second invocation to the running daemon.
type Request struct {
	Command     string `json:"command"`               // "raise" | "rebind"
	Role        string `json:"role,omitempty"`        // rebind: logical role name
	Accelerator string `json:"accelerator,omitempty"` // rebind: new accelerator
}

// Response is sent from the daemon back to the second invocation.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Handlers are the daemon-side reactions to control requests.
type Handlers struct {
	// OnRaise handles the payload-less bring-to-front signal.
	OnRaise func()
	// OnRebind swaps the accelerator bound to a role. A nil handler
	// (portal sessions, where the desktop owns the bindings) accepts
	// and ignores the request.
	OnRebind func(role, accelerator string) error
}

// SocketPath returns the per-user control socket location.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "goptt.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("goptt-%d.sock", os.Getuid()))
}

// Server owns the control socket for the lifetime of the daemon.
type Server struct {
	ln       net.Listener
	path     string
	handlers Handlers
}

// Acquire binds the control socket and starts serving control requests.
// If a live instance already holds it, that instance is signalled and
// ErrAlreadyRunning is returned. A stale socket left by a crashed
// process is removed and taken over.
func Acquire(path string, handlers Handlers) (*Server, error) {
	ln, err := net.Listen("unix", path)
	if err != nil {
		if raiseRunning(path) {
			return nil, ErrAlreadyRunning
		}
		// Nobody answered; the socket is stale.
		_ = os.Remove(path)
		ln, err = net.Listen("unix", path)
		if err != nil {
			return nil, fmt.Errorf("bind instance socket: %w", err)
		}
	}

	s := &Server{ln: ln, path: path, handlers: handlers}
	go s.serve()
	return s, nil
}

// Send delivers a request to the running daemon and returns its reply.
func Send(path string, req Request) (Response, error) {
	var resp Response
	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return resp, fmt.Errorf("dial instance socket: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return resp, fmt.Errorf("send instance request: %w", err)
	}
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return resp, fmt.Errorf("read instance response: %w", err)
	}
	return resp, nil
}

// raiseRunning asks whoever holds the socket to come to the front.
func raiseRunning(path string) bool {
	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return false
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(time.Second))
	if err := json.NewEncoder(conn).Encode(Request{Command: "raise"}); err != nil {
		return false
	}
	var resp Response
	return json.NewDecoder(conn).Decode(&resp) == nil
}

func (s *Server) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		return
	}

	resp := Response{OK: true}
	switch req.Command {
	case "raise":
		if s.handlers.OnRaise != nil {
			s.handlers.OnRaise()
		}
	case "rebind":
		if s.handlers.OnRebind != nil {
			if err := s.handlers.OnRebind(req.Role, req.Accelerator); err != nil {
				resp = Response{Error: err.Error()}
			}
		}
	default:
		resp = Response{Error: fmt.Sprintf("unknown command %q", req.Command)}
	}
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		slog.Debug("write instance response", "err", err)
	}
}

// Close releases the socket.
func (s *Server) Close() error {
	err := s.ln.Close()
	_ = os.Remove(s.path)
	return err
}
