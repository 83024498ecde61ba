package signal

import (
	"sync"

	"go.uber.org/zap"

	"github.com/verikit/verikit/internal/logging"
)

// Router is the single long-lived listener on a Channel. It forwards every
// signal to the lifecycle handler bound at Start, and additionally to a
// dispatcher that the controller binds lazily (on the first ready signal) so
// that user callbacks never fire before the remote context exists.
//
// The router deliberately survives a flow close: it is only torn down by
// Stop, the host-page-teardown analogue, so a reopened flow keeps responding
// to the same channel.
type Router struct {
	mu         sync.Mutex
	channel    Channel
	cancel     func()
	lifecycle  func(Message) error
	dispatcher func(Message)
	errh       func(error)
	log        *logging.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRouterLogger sets the logger used for dropped and failed signals.
func WithRouterLogger(log *logging.Logger) RouterOption {
	return func(r *Router) {
		if log != nil {
			r.log = log
		}
	}
}

// WithErrorHandler routes errors returned by the lifecycle handler (for
// example capability-proxy install failures). The default logs them.
func WithErrorHandler(h func(error)) RouterOption {
	return func(r *Router) {
		if h != nil {
			r.errh = h
		}
	}
}

// NewRouter creates a router on the given channel. The router does not listen
// until Start.
func NewRouter(channel Channel, opts ...RouterOption) *Router {
	r := &Router{channel: channel, log: logging.NewNop()}
	r.errh = func(err error) {
		r.log.Error("signal handling failed", zap.Error(err))
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start binds the persistent listener. Calling Start twice is a no-op.
func (r *Router) Start(lifecycle func(Message) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	r.lifecycle = lifecycle
	r.cancel = r.channel.Subscribe(r.deliver)
}

// BindDispatcher installs the finish/close dispatcher. Only the first call
// takes effect; it reports whether the dispatcher was bound by this call.
func (r *Router) BindDispatcher(dispatch func(Message)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dispatcher != nil {
		return false
	}
	r.dispatcher = dispatch
	return true
}

// DispatcherBound reports whether the lazy dispatcher is installed.
func (r *Router) DispatcherBound() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dispatcher != nil
}

// Stop tears the listener down. Only meant for host teardown; a closed flow
// keeps its router running so it can be reopened.
func (r *Router) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Router) deliver(m Message) {
	r.mu.Lock()
	lifecycle := r.lifecycle
	dispatcher := r.dispatcher
	r.mu.Unlock()

	if lifecycle != nil {
		if err := lifecycle(m); err != nil {
			r.errh(err)
		}
	}
	if dispatcher != nil {
		dispatcher(m)
	}
}
