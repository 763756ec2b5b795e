package fiber

import "github.com/ProgrammingAlternatives/fiberparty/element"

// FunctionComponent renders props to an element tree. Hook calls on h are
// only legal while the component is being rendered.
type FunctionComponent func(h *Hooks, props element.Props) *element.Element

// Component is a stateful ("class-like") component instance. One instance
// lives per mounted fiber; Render must be pure in props and state.
type Component interface {
	Render(props element.Props, state any) *element.Element
}

// ComponentFactory constructs a fresh Component instance when a fiber of
// this type mounts. The factory itself is the element Type.
type ComponentFactory func() Component

// Optional Component capabilities, discovered by interface assertion.
type (
	// StateInitializer seeds the instance's state on mount.
	StateInitializer interface {
		InitialState(props element.Props) any
	}
	// UpdateGate lets an instance veto a re-render. Forced updates and
	// context changes bypass it.
	UpdateGate interface {
		ShouldUpdate(oldProps, newProps element.Props, oldState, newState any) bool
	}
	// Mounter is notified synchronously after the instance's subtree is
	// in the host tree.
	Mounter interface {
		DidMount()
	}
	// UpdateObserver is notified synchronously after a committed update.
	UpdateObserver interface {
		DidUpdate(prevProps element.Props, prevState any)
	}
	// Unmounter is notified while the instance's subtree is being removed.
	Unmounter interface {
		WillUnmount()
	}
	// ErrorCatcher marks an error boundary: when a descendant's render
	// throws, CatchError returns the state used to render the fallback.
	ErrorCatcher interface {
		CatchError(err error) any
	}
	// CatchNotifier receives the caught error for side effects (logging,
	// reporting) during the commit layout sub-pass.
	CatchNotifier interface {
		DidCatch(err error)
	}
)

// Updater is the write surface injected into stateful components.
type Updater interface {
	// EnqueueSetState requests a state transition. partial is either a
	// value (shallow-merged for prop-map states) or a
	// func(prev any, props element.Props) any.
	EnqueueSetState(partial any, callback func())
	// EnqueueForceUpdate schedules a re-render that skips UpdateGate.
	EnqueueForceUpdate(callback func())
}

// updaterBinder is implemented by ComponentBase; the reconciler binds the
// fiber-specific updater through it at mount.
type updaterBinder interface {
	bindUpdater(u Updater)
}

// ComponentBase is embedded by stateful components to receive SetState
// and ForceUpdate.
type ComponentBase struct {
	updater Updater
}

func (c *ComponentBase) bindUpdater(u Updater) { c.updater = u }

// SetState requests a state transition; see Updater.EnqueueSetState.
// Calls on an unmounted instance are dropped.
func (c *ComponentBase) SetState(partial any) {
	if c.updater != nil {
		c.updater.EnqueueSetState(partial, nil)
	}
}

// SetStateWithCallback additionally registers a callback that fires after
// the transition commits.
func (c *ComponentBase) SetStateWithCallback(partial any, callback func()) {
	if c.updater != nil {
		c.updater.EnqueueSetState(partial, callback)
	}
}

// ForceUpdate re-renders even when ShouldUpdate would veto.
func (c *ComponentBase) ForceUpdate() {
	if c.updater != nil {
		c.updater.EnqueueForceUpdate(nil)
	}
}

// classUpdater routes instance writes to a fiber's update queue.
type classUpdater struct {
	rec   *Reconciler
	fiber *Fiber
}

func (u *classUpdater) EnqueueSetState(partial any, callback func()) {
	exp := u.rec.computeExpirationForFiber(u.fiber)
	upd := &Update{expirationTime: exp, tag: UpdateState, payload: partial, callback: callback}
	enqueueUpdate(u.fiber, upd)
	u.rec.scheduleWork(u.fiber, exp)
}

func (u *classUpdater) EnqueueForceUpdate(callback func()) {
	exp := u.rec.computeExpirationForFiber(u.fiber)
	upd := &Update{expirationTime: exp, tag: ForceUpdate, callback: callback}
	enqueueUpdate(u.fiber, upd)
	u.rec.scheduleWork(u.fiber, exp)
}
