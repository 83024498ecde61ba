package mount

import (
	"fmt"
	"sync"
)

// MemoryHost is an in-memory host page. It backs unit tests and the demo
// host, and records enough state to assert on layout side effects.
type MemoryHost struct {
	mu           sync.Mutex
	mountPoints  map[string]bool
	layoutLocked bool
	lockCount    int
	restoreCount int
}

// NewMemoryHost creates an empty host tree.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{mountPoints: map[string]bool{}}
}

// AddMountPoint makes an element id resolvable, simulating the host page
// rendering the target node.
func (h *MemoryHost) AddMountPoint(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mountPoints[id] = true
}

// RemoveMountPoint drops an element id from the tree.
func (h *MemoryHost) RemoveMountPoint(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.mountPoints, id)
}

func (h *MemoryHost) HasMountPoint(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mountPoints[id]
}

func (h *MemoryHost) LockLayout() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layoutLocked = true
	h.lockCount++
}

func (h *MemoryHost) RestoreLayout() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layoutLocked = false
	h.restoreCount++
}

// LayoutLocked reports whether the overlay layout overrides are in effect.
func (h *MemoryHost) LayoutLocked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.layoutLocked
}

// Counts returns how often LockLayout and RestoreLayout ran.
func (h *MemoryHost) Counts() (locks, restores int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lockCount, h.restoreCount
}

// MemorySurface is an in-memory Surface recording every mutation.
type MemorySurface struct {
	mu          sync.Mutex
	host        *MemoryHost
	attached    bool
	parent      string
	visible     bool
	source      string
	attachCount int
	sources     []string
}

func (s *MemorySurface) Attach(parentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if parentID != "" && s.host != nil && !s.host.HasMountPoint(parentID) {
		return fmt.Errorf("mount point %q not found", parentID)
	}
	s.attached = true
	s.parent = parentID
	s.attachCount++
	return nil
}

func (s *MemorySurface) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = false
	s.parent = ""
}

func (s *MemorySurface) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = visible
}

func (s *MemorySurface) SetSource(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = url
	s.sources = append(s.sources, url)
}

// Attached reports attachment state and the current parent id.
func (s *MemorySurface) Attached() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached, s.parent
}

// Visible reports current visibility.
func (s *MemorySurface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Source returns the last URL set on the surface.
func (s *MemorySurface) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Sources returns every URL ever set, oldest first.
func (s *MemorySurface) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sources...)
}

// AttachCount returns how many times Attach succeeded.
func (s *MemorySurface) AttachCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachCount
}

// MemoryFrame is a MemorySurface with an attached remote context.
type MemoryFrame struct {
	MemorySurface
	remote RemoteContext
}

func (f *MemoryFrame) Remote() RemoteContext { return f.remote }

// MemoryAdapter builds in-memory surfaces against a shared MemoryHost.
type MemoryAdapter struct {
	mu     sync.Mutex
	host   *MemoryHost
	remote RemoteContext
	frames []*MemoryFrame
	loader *MemorySurface
}

// NewMemoryAdapter creates an adapter whose frames expose the given remote
// context. A nil remote models an unreachable (cross-origin) frame.
func NewMemoryAdapter(host *MemoryHost, remote RemoteContext) *MemoryAdapter {
	if host == nil {
		host = NewMemoryHost()
	}
	return &MemoryAdapter{host: host, remote: remote}
}

func (a *MemoryAdapter) NewFrame() Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	f := &MemoryFrame{MemorySurface: MemorySurface{host: a.host}, remote: a.remote}
	a.frames = append(a.frames, f)
	return f
}

func (a *MemoryAdapter) NewLoader() Surface {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loader = &MemorySurface{host: a.host}
	return a.loader
}

func (a *MemoryAdapter) Host() Host { return a.host }

// LastFrame returns the most recently created frame, for assertions.
func (a *MemoryAdapter) LastFrame() *MemoryFrame {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.frames) == 0 {
		return nil
	}
	return a.frames[len(a.frames)-1]
}

// Loader returns the most recently created loader surface.
func (a *MemoryAdapter) Loader() *MemorySurface {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loader
}
