// Package pulse owns the connection to the audio server and the
// lifecycle of the virtual microphone the mute state is applied to.
// Every server request is asynchronous at the protocol level; the
// bridge hands each one to the single connection owner and exposes a
// blocking call backed by a per-operation completion future.
package pulse

import "errors"

// ErrInit reports that the audio server was unreachable or the
// handshake failed. Fatal: the application cannot run without it.
var ErrInit = errors.New("audio server init failed")

// ErrOperation reports a single failed request after the connection
// was established. Logged, never retried automatically.
var ErrOperation = errors.New("audio operation failed")

// Module is one loaded server module.
type Module struct {
	Index uint32
	Name  string
	Args  string
}

// Conn is the slice of the audio server protocol the bridge uses.
// It is not safe for concurrent use; the bridge serialises every call
// onto its owner goroutine.
type Conn interface {
	// LoadModule loads a named module and returns its index.
	LoadModule(name, args string) (uint32, error)
	// UnloadModule unloads a module by index.
	UnloadModule(index uint32) error
	// Modules lists loaded modules in server order.
	Modules() ([]Module, error)
	// Sources lists source names in server order.
	Sources() ([]string, error)
	// SetSourceMute sets the mute flag of a source by name.
	SetSourceMute(name string, mute bool) error
	// Close disconnects from the server.
	Close() error
}
