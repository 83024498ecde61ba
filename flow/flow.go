package flow

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verikit/verikit/internal/logging"
	"github.com/verikit/verikit/internal/monitoring"
	"github.com/verikit/verikit/mount"
	"github.com/verikit/verikit/proxy"
	"github.com/verikit/verikit/signal"
)

// Flow is the session lifecycle controller for one embedded verification
// flow. It owns the session configuration, the open/closed state, the
// callback registry, and the capability-proxy handle, and it orchestrates the
// mount adapter, the message router, and the proxy manager.
//
// All methods are safe for concurrent use; signal handling is serialized by
// the channel's delivery contract.
type Flow struct {
	mu sync.Mutex

	cfg  SessionConfig
	opts DisplayOptions

	state       State
	initialized bool
	open        bool
	gaugeActive bool

	adapter      mount.Adapter
	channel      signal.Channel
	router       *signal.Router
	proxy        *proxy.Manager
	installer    proxy.Installer
	proxyTargets []string
	frame        mount.Frame
	loader       mount.Surface

	callbacks map[signal.Type]func()

	log          *logging.Logger
	metrics      *monitoring.Metrics
	errh         func(error)
	pollInterval time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// New constructs a flow for the given verification session. SessionID and a
// valid service type are mandatory; the base URL defaults to the service
// type's endpoint unless overridden.
func New(sessionID string, service ServiceType, opts ...Option) (*Flow, error) {
	if sessionID == "" {
		return nil, configErr("new", "session id is required")
	}
	switch {
	case service == "":
		return nil, configErr("new", "service type is required")
	case !service.valid():
		return nil, configErr("new", fmt.Sprintf("unsupported service type %q", service))
	}

	f := &Flow{
		cfg:          SessionConfig{SessionID: sessionID, Service: service},
		state:        StateUninitialized,
		callbacks:    map[signal.Type]func(){},
		log:          logging.NewNop(),
		pollInterval: 250 * time.Millisecond,
		done:         make(chan struct{}),
	}
	if service == ServiceCorporate {
		f.cfg.BaseURL = DefaultCorporateBaseURL
	} else {
		f.cfg.BaseURL = DefaultIndividualBaseURL
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.adapter == nil {
		f.adapter = mount.NewMemoryAdapter(nil, nil)
	}
	if f.channel == nil {
		f.channel = signal.NewMemoryChannel()
	}
	f.proxy = proxy.NewManager(f.installer, f.proxyTargets...)

	routerOpts := []signal.RouterOption{signal.WithRouterLogger(f.log)}
	if f.errh != nil {
		routerOpts = append(routerOpts, signal.WithErrorHandler(f.errh))
	}
	f.router = signal.NewRouter(f.channel, routerOpts...)

	return f, nil
}

// Init applies display options, builds the rendering surface, and binds the
// persistent signal listener. Further Init calls are no-ops regardless of
// whether the first succeeded; that guard predates the mode validation, so a
// rejected Init also consumes the one initialization attempt.
func (f *Flow) Init(opts DisplayOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.initialized {
		return nil
	}
	f.initialized = true

	switch opts.Mode {
	case "", ModeModal, ModeEmbed:
	default:
		return configErr("init", fmt.Sprintf("unsupported mode %q", opts.Mode))
	}
	if opts.Mode == "" {
		opts.Mode = ModeModal
	}
	f.opts = opts

	f.applyLocked(eventInit)
	f.applyLocked(eventSurfaceBuilt)

	f.log.Info("flow initialized",
		zap.String("session_id", f.cfg.SessionID),
		zap.String("service", string(f.cfg.Service)),
		zap.String("mode", string(f.opts.Mode)))
	return nil
}

// On registers a callback for a lifecycle signal (finish, close). At most one
// callback per signal; the last registration wins.
func (f *Flow) On(t signal.Type, callback func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks[t] = callback
}

// OpenSession shows the modal surface and loads the configured URL into it.
// No-op before Init, in embed mode, or while already open.
func (f *Flow) OpenSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized || f.open || f.opts.Mode != ModeModal {
		return
	}
	f.applyLocked(eventOpen)
}

// CloseFlow tears the active surface down: layout overrides are rolled back,
// the surface is detached, and any capability proxy is uninstalled. Safe to
// call when already closed.
func (f *Flow) CloseFlow() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return
	}
	f.applyLocked(eventCloseCall)
}

// GetFlow returns the (initially hidden) frame surface, for hosts that place
// the embed surface themselves. Nil before Init.
func (f *Flow) GetFlow() mount.Surface {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}

// SetLanguage changes the flow language for subsequent mounts.
func (f *Flow) SetLanguage(lang string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Language = lang
}

// SetTier changes the verification tier for subsequent mounts. Zero clears
// it.
func (f *Flow) SetTier(tier int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Tier = tier
}

// SetColors changes the theme colors for subsequent mounts.
func (f *Flow) SetColors(colors Colors) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Colors = colors
}

// State returns the current lifecycle state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// IsOpen reports whether the surface is currently open.
func (f *Flow) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// URL returns the configuration URL a mount would use right now.
func (f *Flow) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return BuildURL(f.cfg, f.opts)
}

// Shutdown is the host-teardown analogue: it stops the persistent signal
// listener and any pending mount poll. CloseFlow deliberately does neither,
// so a closed flow can be reopened on the same channel.
func (f *Flow) Shutdown() {
	f.closeOnce.Do(func() {
		close(f.done)
		f.router.Stop()
	})
}

// applyLocked feeds one event into the transition function and interprets
// the resulting effects. Callback and teardown effects from signal dispatch
// do not go through here; see dispatch.
func (f *Flow) applyLocked(ev event) {
	next, effects, ok := transition(f.state, ev, f.opts.Mode)
	if !ok {
		return
	}
	f.state = next
	for _, fx := range effects {
		switch fx {
		case fxBuildSurface:
			f.frame = f.adapter.NewFrame()
			f.loader = f.adapter.NewLoader()
			f.router.Start(f.handleLifecycle)
		case fxArmMount:
			if f.opts.Mode == ModeEmbed {
				go f.pollMount()
			}
		case fxAttachFlow:
			f.attachLocked()
		case fxTeardown:
			f.teardownLocked()
		}
	}
}

// attachLocked mounts the surface: modal attaches the overlay to the host
// root and locks the page layout, embed attaches hidden to the mount point.
func (f *Flow) attachLocked() {
	parent := ""
	if f.opts.Mode == ModeEmbed {
		parent = f.opts.MountPointID
	} else {
		f.adapter.Host().LockLayout()
	}

	if err := f.loader.Attach(parent); err != nil {
		f.log.Warn("loader attach failed", zap.Error(err))
	}
	f.loader.SetVisible(true)

	f.frame.SetSource(BuildURL(f.cfg, f.opts))
	if err := f.frame.Attach(parent); err != nil {
		f.log.Warn("frame attach failed", zap.Error(err))
	}
	// The embed frame stays hidden until ready to avoid a flash of empty
	// chrome; the modal surface was explicitly requested, so show it.
	f.frame.SetVisible(f.opts.Mode == ModeModal)

	f.open = true
	f.metrics.IncOpen()
	if f.state == StateActive && !f.gaugeActive {
		// Reopen from Closed goes straight to Active.
		f.gaugeActive = true
		f.metrics.SetActive(true)
	}
	f.log.Debug("surface attached", zap.String("mode", string(f.opts.Mode)))
}

// teardownLocked rolls back every host-page side effect of an open. Layout
// restoration is unconditional given the open guard, whichever path
// triggered the close.
func (f *Flow) teardownLocked() {
	if !f.open {
		return
	}
	f.adapter.Host().RestoreLayout()
	f.frame.SetVisible(false)
	f.frame.Detach()
	f.loader.Detach()
	f.proxy.Uninstall()
	f.open = false
	if f.gaugeActive {
		f.metrics.SetActive(false)
		f.gaugeActive = false
	}
	f.metrics.IncClose()
	f.log.Debug("surface closed")
}

// handleLifecycle is the router's persistent listener. Only ready drives a
// state change here; finish and close are handled by the lazily bound
// dispatcher.
func (f *Flow) handleLifecycle(m signal.Message) error {
	f.metrics.IncSignal(string(m.Type))
	if m.Type != signal.Ready {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	prev := f.state
	next, effects, ok := transition(f.state, eventReady, f.opts.Mode)
	if !ok {
		f.log.Debug("ignoring ready signal", zap.String("state", f.state.String()))
		return nil
	}
	f.state = next

	var installErr error
	for _, fx := range effects {
		switch fx {
		case fxRemoveLoader:
			f.loader.Detach()
		case fxInstallProxy:
			wasActive := f.proxy.Active()
			if err := f.proxy.Install(f.frame.Remote(), BuildURL(f.cfg, f.opts)); err != nil {
				installErr = err
			} else if !wasActive && f.proxy.Active() {
				f.metrics.IncProxyInstall()
			}
		case fxReveal:
			f.frame.SetVisible(true)
		case fxBindDispatcher:
			f.router.BindDispatcher(f.dispatch)
		}
	}

	if prev != StateActive {
		f.gaugeActive = true
		f.metrics.SetActive(true)
		f.log.Info("flow active", zap.String("session_id", f.cfg.SessionID))
	}
	return installErr
}

// dispatch runs user callbacks for finish/close signals and, in modal mode,
// closes the flow afterwards. Bound to the router exactly once, on the first
// ready signal.
func (f *Flow) dispatch(m signal.Message) {
	if m.Type != signal.Finish && m.Type != signal.Close {
		return
	}

	f.mu.Lock()
	ev := eventFinish
	if m.Type == signal.Close {
		ev = eventCloseSignal
	}
	next, effects, ok := transition(f.state, ev, f.opts.Mode)
	var callback func()
	teardown := false
	if ok {
		f.state = next
		for _, fx := range effects {
			switch fx {
			case fxFireCallback:
				callback = f.callbacks[m.Type]
			case fxTeardown:
				teardown = true
			}
		}
	}
	f.mu.Unlock()

	// The callback runs before the automatic close and outside the lock so
	// it may call back into the flow.
	if callback != nil {
		callback()
	}
	if teardown {
		f.mu.Lock()
		f.teardownLocked()
		f.mu.Unlock()
	}
}

// pollMount retries attaching the embed surface at a fixed interval until the
// mount point exists. The loop has no retry bound: a mount point that never
// appears keeps it running until Shutdown. Known liveness risk.
func (f *Flow) pollMount() {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		f.mu.Lock()
		if f.open {
			f.mu.Unlock()
			return
		}
		if f.adapter.Host().HasMountPoint(f.opts.MountPointID) {
			f.applyLocked(eventOpen)
			f.mu.Unlock()
			return
		}
		f.mu.Unlock()
		f.metrics.IncMountPollRetry()

		select {
		case <-f.done:
			return
		case <-ticker.C:
		}
	}
}
