package app

import (
	"context"
	"errors"
	"sync"

	"github.com/zarlcorp/zbday/internal/remind"
)

// ErrNoTransport is returned when a message has nowhere to go.
var ErrNoTransport = errors.New("no transport for handle")

// Router delivers outbound messages. Handles attached locally (the console)
// are served in-process; everything else goes to the remote transport.
type Router struct {
	remote remind.Sender

	mu    sync.RWMutex
	local map[string]func(text string)
}

// NewRouter creates a Router. remote may be nil.
func NewRouter(remote remind.Sender) *Router {
	return &Router{remote: remote, local: make(map[string]func(string))}
}

// Attach routes messages for handle to fn until the returned func is called.
func (r *Router) Attach(handle string, fn func(text string)) (detach func()) {
	r.mu.Lock()
	r.local[handle] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.local, handle)
		r.mu.Unlock()
	}
}

// Send implements remind.Sender.
func (r *Router) Send(ctx context.Context, handle, text string) error {
	r.mu.RLock()
	fn, ok := r.local[handle]
	r.mu.RUnlock()

	if ok {
		fn(text)
		return nil
	}
	if r.remote == nil {
		return ErrNoTransport
	}
	return r.remote.Send(ctx, handle, text)
}
