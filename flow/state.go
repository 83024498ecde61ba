package flow

// State is the lifecycle state of a Flow. Exactly one per controller.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateAwaitingReady
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateAwaitingReady:
		return "awaiting_ready"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// event is an input to the lifecycle state machine. Guard flags (initialized,
// open) are checked by the controller before an event is fed in.
type event int

const (
	eventInit event = iota
	eventSurfaceBuilt
	eventOpen
	eventReady
	eventFinish
	eventCloseSignal
	eventCloseCall
)

// effect is a side effect the controller performs after a transition.
type effect int

const (
	fxBuildSurface effect = iota
	fxArmMount
	fxAttachFlow
	fxRemoveLoader
	fxInstallProxy
	fxReveal
	fxBindDispatcher
	fxFireCallback
	fxTeardown
)

// transition is the single dispatch from (state, event) to (state, effects).
// It is pure; the controller interprets the effects. The bool reports whether
// the event was legal in the given state; illegal events leave the state
// unchanged with no effects.
func transition(s State, ev event, mode Mode) (State, []effect, bool) {
	switch {
	case s == StateUninitialized && ev == eventInit:
		return StateInitializing, []effect{fxBuildSurface}, true

	case s == StateInitializing && ev == eventSurfaceBuilt:
		return StateAwaitingReady, []effect{fxArmMount}, true

	case s == StateAwaitingReady && ev == eventOpen:
		return StateAwaitingReady, []effect{fxAttachFlow}, true

	case s == StateClosed && ev == eventOpen:
		return StateActive, []effect{fxAttachFlow}, true

	case s == StateAwaitingReady && ev == eventReady:
		if mode == ModeEmbed {
			return StateActive, []effect{fxRemoveLoader, fxInstallProxy, fxReveal, fxBindDispatcher}, true
		}
		return StateActive, []effect{fxRemoveLoader, fxInstallProxy, fxBindDispatcher}, true

	case s == StateActive && ev == eventReady:
		// A duplicate ready (remote reload) re-runs the handler; the loader,
		// proxy, and dispatcher effects are individually idempotent.
		return StateActive, []effect{fxRemoveLoader, fxInstallProxy, fxBindDispatcher}, true

	case s == StateActive && (ev == eventFinish || ev == eventCloseSignal):
		if mode == ModeModal {
			return StateClosed, []effect{fxFireCallback, fxTeardown}, true
		}
		return StateActive, []effect{fxFireCallback}, true

	case (s == StateActive || s == StateAwaitingReady) && ev == eventCloseCall:
		return StateClosed, []effect{fxTeardown}, true
	}
	return s, nil, false
}
