package mount

// Surface is a rendering container in the host's visual tree. Detach and
// SetVisible must be safe to call repeatedly; Attach replaces any previous
// attachment.
type Surface interface {
	// Attach places the surface under the element with the given id. An empty
	// id attaches to the host root.
	Attach(parentID string) error

	// Detach removes the surface from the host tree. No-op when detached.
	Detach()

	// SetVisible toggles visibility without detaching.
	SetVisible(visible bool)

	// SetSource points the surface at a new content URL.
	SetSource(url string)
}

// RemoteContext is the isolated execution environment behind a frame surface.
// Capability-proxy installers receive it to inject objects into the remote
// side.
type RemoteContext interface {
	// Reachable reports whether the execution environment can be scripted.
	// Cross-origin frames in a real host typically report false.
	Reachable() bool
}

// Frame is a surface with an isolated execution context.
type Frame interface {
	Surface

	// Remote returns the frame's execution environment, or nil when none
	// exists yet.
	Remote() RemoteContext
}

// Host exposes the pieces of the host page the lifecycle controller mutates.
type Host interface {
	// HasMountPoint reports whether an element with the given id exists.
	HasMountPoint(id string) bool

	// LockLayout applies the overlay layout overrides (scroll lock, margin
	// reset). Calls do not nest.
	LockLayout()

	// RestoreLayout reverts LockLayout. Safe to call when not locked.
	RestoreLayout()
}

// Adapter creates the surfaces a flow needs and exposes the host page.
type Adapter interface {
	// NewFrame creates the (initially hidden, detached) frame that will host
	// the remote flow.
	NewFrame() Frame

	// NewLoader creates the loading indicator shown until the remote flow
	// signals ready.
	NewLoader() Surface

	// Host returns the host page handle.
	Host() Host
}
