// Package emulator provides a scriptable stand-in for the remote verification
// flow: a JavaScript runtime acting as the remote execution environment, plus
// helpers that emit lifecycle signals. It backs end-to-end tests and the demo
// host, where no real cross-origin frame exists.
package emulator

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/verikit/verikit/mount"
	"github.com/verikit/verikit/proxy"
	"github.com/verikit/verikit/signal"
)

// Remote is an in-process remote execution environment backed by a goja VM.
// It implements mount.RemoteContext.
type Remote struct {
	mu        sync.Mutex
	vm        *goja.Runtime
	reachable bool
}

// NewRemote creates a reachable remote context with an empty global scope.
func NewRemote() *Remote {
	return &Remote{vm: goja.New(), reachable: true}
}

// Reachable reports whether the environment can be scripted.
func (r *Remote) Reachable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reachable
}

// SetReachable toggles reachability, simulating a cross-origin frame.
func (r *Remote) SetReachable(reachable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reachable = reachable
}

// SetGlobal defines a global in the remote scope.
func (r *Remote) SetGlobal(name string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vm.Set(name, value)
}

// DeleteGlobal removes a global from the remote scope.
func (r *Remote) DeleteGlobal(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vm.GlobalObject().Delete(name)
}

// HasGlobal reports whether a global is defined.
func (r *Remote) HasGlobal(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vm.GlobalObject().Get(name) != nil
}

// Run evaluates a script inside the remote scope and exports its value.
func (r *Remote) Run(script string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	val, err := r.vm.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("remote script: %w", err)
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	return val.Export(), nil
}

// CapabilityCall is one privileged invocation forwarded out of the remote
// context by an installed proxy.
type CapabilityCall struct {
	Target string
	Method string
	Args   []any
}

// Installer builds a proxy.Installer that injects one proxy object per target
// into the remote scope. Each proxy exposes a request(method, ...args)
// function forwarding to the supplied host function. The returned uninstaller
// removes the injected globals again.
func Installer(forward func(call CapabilityCall) (any, error)) proxy.Installer {
	return func(targets []string, remote mount.RemoteContext, resolvedURL string) (func(), error) {
		r, ok := remote.(*Remote)
		if !ok {
			return nil, fmt.Errorf("remote context is not an emulator runtime (%T)", remote)
		}

		installed := make([]string, 0, len(targets))
		for _, target := range targets {
			target := target
			bridge := map[string]any{
				"source": resolvedURL,
				"request": func(method string, args ...any) (any, error) {
					return forward(CapabilityCall{Target: target, Method: method, Args: args})
				},
			}
			if err := r.SetGlobal(target, bridge); err != nil {
				for _, name := range installed {
					r.DeleteGlobal(name)
				}
				return nil, fmt.Errorf("inject %q: %w", target, err)
			}
			installed = append(installed, target)
		}

		return func() {
			for _, name := range installed {
				r.DeleteGlobal(name)
			}
		}, nil
	}
}

// Session bundles a remote runtime with a signal channel, emulating the
// remote flow end to end: Load records the configuration URL and emits ready,
// Finish and Abandon emit the terminal signals.
type Session struct {
	Remote  *Remote
	Channel *signal.MemoryChannel

	mu        sync.Mutex
	loadedURL string
}

// NewSession creates an idle emulated flow.
func NewSession() *Session {
	return &Session{Remote: NewRemote(), Channel: signal.NewMemoryChannel()}
}

// Load simulates the remote flow loading the configuration URL and signaling
// ready.
func (s *Session) Load(url string) {
	s.mu.Lock()
	s.loadedURL = url
	s.mu.Unlock()
	s.Channel.Publish(signal.Message{Type: signal.Ready})
}

// LoadedURL returns the last URL loaded into the emulated flow.
func (s *Session) LoadedURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedURL
}

// Finish simulates the user completing verification.
func (s *Session) Finish() {
	s.Channel.Publish(signal.Message{Type: signal.Finish})
}

// Abandon simulates the user dismissing the flow.
func (s *Session) Abandon() {
	s.Channel.Publish(signal.Message{Type: signal.Close})
}
