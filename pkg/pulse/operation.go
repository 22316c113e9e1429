package pulse

import (
	"context"
	"sync"
)

// OpState is the lifecycle of one request issued to the audio server.
type OpState int

const (
	OpRunning OpState = iota
	OpDone
	OpError
)

func (s OpState) String() string {
	switch s {
	case OpRunning:
		return "running"
	case OpDone:
		return "done"
	default:
		return "error"
	}
}

// Operation is a completion future for a single server request. The
// connection owner completes it exactly once; callers wait on the done
// channel instead of spinning a poll loop.
type Operation struct {
	mu    sync.Mutex
	state OpState
	err   error
	done  chan struct{}
}

func newOperation() *Operation {
	return &Operation{done: make(chan struct{})}
}

func (o *Operation) complete(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != OpRunning {
		return
	}
	if err != nil {
		o.state = OpError
		o.err = err
	} else {
		o.state = OpDone
	}
	close(o.done)
}

// State reports the operation's current lifecycle state.
func (o *Operation) State() OpState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Wait blocks until the operation leaves the running state or the
// context is cancelled, and returns the operation's error, if any.
func (o *Operation) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
