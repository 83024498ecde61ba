package flow

import (
	"time"

	"github.com/verikit/verikit/internal/logging"
	"github.com/verikit/verikit/internal/monitoring"
	"github.com/verikit/verikit/mount"
	"github.com/verikit/verikit/proxy"
	"github.com/verikit/verikit/signal"
)

// Option configures a Flow at construction time.
type Option func(*Flow)

// WithBaseURL overrides the default verification endpoint for the service
// type.
func WithBaseURL(baseURL string) Option {
	return func(f *Flow) {
		if baseURL != "" {
			f.cfg.BaseURL = baseURL
		}
	}
}

// WithAdapter injects the mount adapter for the host's rendering environment.
// Defaults to an in-memory adapter.
func WithAdapter(adapter mount.Adapter) Option {
	return func(f *Flow) {
		if adapter != nil {
			f.adapter = adapter
		}
	}
}

// WithChannel injects the channel lifecycle signals arrive on. Defaults to an
// in-memory channel.
func WithChannel(channel signal.Channel) Option {
	return func(f *Flow) {
		if channel != nil {
			f.channel = channel
		}
	}
}

// WithInstaller injects the capability-proxy installer invoked once the
// remote flow signals ready. Without one, no proxy is installed.
func WithInstaller(installer proxy.Installer) Option {
	return func(f *Flow) {
		f.installer = installer
	}
}

// WithProxyTargets names the capabilities the installer should proxy into the
// remote context (e.g. wallet providers).
func WithProxyTargets(targets ...string) Option {
	return func(f *Flow) {
		f.proxyTargets = targets
	}
}

// WithLogger sets the flow logger. Defaults to a no-op logger.
func WithLogger(log *logging.Logger) Option {
	return func(f *Flow) {
		if log != nil {
			f.log = log
		}
	}
}

// WithMetrics attaches a metrics collector. Nil is valid and records nothing.
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(f *Flow) {
		f.metrics = metrics
	}
}

// WithPollInterval sets the embed mount-poll interval. Defaults to 250ms.
func WithPollInterval(interval time.Duration) Option {
	return func(f *Flow) {
		if interval > 0 {
			f.pollInterval = interval
		}
	}
}

// WithErrorHandler routes asynchronous failures (capability-proxy install
// errors surfacing from the ready handler). The default logs them.
func WithErrorHandler(handler func(error)) Option {
	return func(f *Flow) {
		f.errh = handler
	}
}
