// Package proxy manages the capability proxy installed inside the remote
// flow's execution environment. The installer itself is a foreign function
// supplied by the host (it typically forwards privileged calls, e.g. wallet
// interactions, back to the host); this package only owns its lifecycle.
package proxy

import (
	"fmt"

	"github.com/verikit/verikit/mount"
)

// Installer injects a capability proxy for the given targets into the remote
// execution environment and returns the matching uninstaller. Errors are not
// retried; they propagate to whoever handled the triggering ready signal.
type Installer func(targets []string, remote mount.RemoteContext, resolvedURL string) (uninstall func(), err error)

// Manager owns at most one active proxy handle at a time.
//
// Install while a handle is active is a no-op. The remote flow can emit ready
// more than once (e.g. on a remote reload); re-installing on every ready was
// never part of the observed contract, so the manager keeps the
// install-once-per-session behavior. Known risk: a remote reload wipes the
// injected proxy and the manager will not re-sync it until the next
// close/open cycle.
type Manager struct {
	install Installer
	targets []string
	handle  func()
}

// NewManager wraps an installer. A nil installer produces a manager whose
// Install is always a no-op, for hosts that need no capability proxy.
func NewManager(install Installer, targets ...string) *Manager {
	return &Manager{install: install, targets: targets}
}

// Install runs the installer against the remote context and keeps the
// returned uninstaller as the active handle. No-op when an installer was
// never supplied, when the remote context is unreachable, or when a handle is
// already active.
func (m *Manager) Install(remote mount.RemoteContext, resolvedURL string) error {
	if m.install == nil || remote == nil || !remote.Reachable() {
		return nil
	}
	if m.handle != nil {
		return nil
	}
	uninstall, err := m.install(m.targets, remote, resolvedURL)
	if err != nil {
		return fmt.Errorf("install capability proxy: %w", err)
	}
	m.handle = uninstall
	return nil
}

// Uninstall calls the active handle and clears it. No-op without one.
func (m *Manager) Uninstall() {
	if m.handle == nil {
		return
	}
	handle := m.handle
	m.handle = nil
	handle()
}

// Active reports whether a proxy handle is currently held.
func (m *Manager) Active() bool {
	return m.handle != nil
}
