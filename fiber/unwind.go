package fiber

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ProgrammingAlternatives/fiberparty/element"
)

// Wakeable is an asynchronous dependency a render can wait on. Subscribe
// registers a callback fired once the dependency is ready; it may be
// called multiple times and must invoke every registered callback.
type Wakeable interface {
	Subscribe(func())
}

// SuspendSignal is the control-flow value a component panics with to say
// "not ready". It is not an error: the work loop catches it, shows the
// nearest fallback boundary, and retries when the wakeable resolves. A
// signal escaping with no boundary above becomes a real error.
type SuspendSignal struct {
	Wakeable Wakeable
}

// Suspend panics with a SuspendSignal for the given dependency. Only call
// during render.
func Suspend(w Wakeable) {
	panic(&SuspendSignal{Wakeable: w})
}

var errTooManyReRenders = errors.New("fiber: too many re-renders, a component keeps scheduling updates inside its own render")

// errNoBoundary wraps a suspend signal that reached the root.
var errNoBoundary = errors.New("fiber: a component suspended while rendering, but no suspense boundary was above it")

func toError(v any) error {
	switch e := v.(type) {
	case error:
		return e
	default:
		return fmt.Errorf("fiber: render panicked: %v", v)
	}
}

// throwException routes a value thrown during begin/complete to the
// nearest fiber able to handle it: a suspense boundary for suspend
// signals, an error-catching class for errors, otherwise the root, where
// it becomes fatal for the render attempt.
func (rec *Reconciler) throwException(root *Root, returnFiber, sourceFiber *Fiber, value any, renderExpirationTime ExpirationTime) {
	sourceFiber.effectTag |= Incomplete
	sourceFiber.firstEffect = nil
	sourceFiber.lastEffect = nil

	if signal, ok := value.(*SuspendSignal); ok {
		for f := returnFiber; f != nil; f = f.ret {
			if f.tag == SuspenseComponentTag {
				f.effectTag |= ShouldCapture
				// The boundary re-begins after the unwind; it must not
				// bail out as workless.
				f.expirationTime = mostUrgent(f.expirationTime, renderExpirationTime)
				rec.attachRetryListener(root, f, signal, renderExpirationTime)
				return
			}
		}
		// No boundary; surface as an error instead.
		value = errNoBoundary
	}

	err := toError(value)
	for f := returnFiber; f != nil; f = f.ret {
		switch f.tag {
		case ClassComponentTag:
			catcher, ok := f.stateNode.(ErrorCatcher)
			if !ok || rec.failedBoundaries.Contains(f.stateNode) {
				continue
			}
			f.effectTag |= ShouldCapture
			f.expirationTime = mostUrgent(f.expirationTime, renderExpirationTime)
			// Marked before the fallback renders, so a failure inside the
			// fallback escalates instead of looping back here.
			rec.failedBoundaries.Add(f.stateNode)
			enqueueCapturedUpdate(f, rec.createClassErrorUpdate(f, catcher, err, renderExpirationTime))
			return
		case HostRootTag:
			// No boundary handled it; the whole render attempt is
			// abandoned once the unwind reaches the root.
			rec.didFatal = true
			rec.fatalError = err
			return
		}
	}
	// returnFiber chain always terminates at the host root.
	rec.didFatal = true
	rec.fatalError = err
}

func (rec *Reconciler) createClassErrorUpdate(boundary *Fiber, catcher ErrorCatcher, err error, renderExpirationTime ExpirationTime) *Update {
	u := &Update{
		expirationTime: renderExpirationTime,
		tag:            CaptureUpdate,
		payload: func(prev any, _ element.Props) any {
			return catcher.CatchError(err)
		},
	}
	instance := boundary.stateNode
	u.callback = func() {
		if notifier, ok := instance.(CatchNotifier); ok {
			notifier.DidCatch(err)
		}
	}
	return u
}

// attachRetryListener schedules the suspended boundary for another pass
// once the wakeable resolves. The wakeable set lives on the boundary pair,
// shared between both buffers, so a retry registers at most once however
// many render attempts hit it.
func (rec *Reconciler) attachRetryListener(root *Root, boundary *Fiber, signal *SuspendSignal, renderExpirationTime ExpirationTime) {
	w := signal.Wakeable
	if boundary.wakeables == nil {
		if alt := boundary.alternate; alt != nil && alt.wakeables != nil {
			boundary.wakeables = alt.wakeables
		} else {
			boundary.wakeables = mapset.NewThreadUnsafeSet[Wakeable]()
		}
	}
	if alt := boundary.alternate; alt != nil && alt.wakeables == nil {
		alt.wakeables = boundary.wakeables
	}
	if boundary.wakeables.Contains(w) {
		return
	}
	boundary.wakeables.Add(w)
	w.Subscribe(func() {
		boundary.wakeables.Remove(w)
		rec.retryBoundary(boundary, renderExpirationTime)
	})
}

// retryBoundary re-schedules the boundary so its primary children render
// again now that a dependency resolved.
func (rec *Reconciler) retryBoundary(boundary *Fiber, renderExpirationTime ExpirationTime) {
	rec.scheduleWork(boundary, renderExpirationTime)
}

// unwindWork pops whatever the failed fiber pushed and reports whether it
// captured the exception, in which case it becomes the next unit of work
// and re-renders with DidCapture set.
func (rec *Reconciler) unwindWork(wip *Fiber) *Fiber {
	switch wip.tag {
	case ClassComponentTag:
		if wip.effectTag.has(ShouldCapture) {
			wip.effectTag = wip.effectTag&^ShouldCapture | DidCapture
			return wip
		}
		return nil
	case SuspenseComponentTag:
		if wip.effectTag.has(ShouldCapture) {
			wip.effectTag = wip.effectTag&^ShouldCapture | DidCapture
			return wip
		}
		return nil
	case HostRootTag:
		rec.popHostContainer()
		return nil
	case HostComponentTag:
		rec.popHostContext()
		return nil
	case ContextProviderTag:
		rec.popProvider(wip)
		return nil
	case PortalTag:
		rec.popHostContainer()
		return nil
	default:
		return nil
	}
}

// unwindInterruptedWork restores the stacks for a fiber abandoned
// mid-render, when higher-priority work interrupts the pass.
func (rec *Reconciler) unwindInterruptedWork(wip *Fiber) {
	switch wip.tag {
	case HostRootTag:
		rec.popHostContainer()
	case HostComponentTag:
		rec.popHostContext()
	case ContextProviderTag:
		rec.popProvider(wip)
	case PortalTag:
		rec.popHostContainer()
	}
}
