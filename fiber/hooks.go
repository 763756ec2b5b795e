package fiber

import (
	"reflect"

	"github.com/ProgrammingAlternatives/fiberparty/element"
)

// Hooks is the per-reconciler handle through which function components
// reach hook state. It is only valid inside a render; calls outside panic.
type Hooks struct {
	rec *Reconciler
}

// Hook is one slot in a function component's hook list, in call order.
type Hook struct {
	memoizedState any

	baseState  any
	baseUpdate *hookUpdate
	queue      *hookQueue

	next *Hook
}

// hookUpdate mirrors Update for hook queues: a circular pending list with
// an expiration per entry, FIFO by enqueue order.
type hookUpdate struct {
	expirationTime ExpirationTime
	action         any
	next           *hookUpdate
}

type hookQueue struct {
	// last points at the tail of the circular pending list.
	last    *hookUpdate
	reducer func(state, action any) any
	// lastRenderedState is the state the component last rendered with,
	// read by the eager dispatch bailout.
	lastRenderedState any
}

type hookEffectTag uint8

const (
	hookLayout hookEffectTag = 1 << iota
	hookPassive
	hookHasEffect
)

// hookEffect is one UseEffect/UseLayoutEffect registration. create runs in
// the owning sub-pass and returns the destroy to run before the next
// create (or at unmount).
type hookEffect struct {
	tag     hookEffectTag
	create  func() func()
	destroy func()
	deps    []any
	next    *hookEffect
}

// hookEffectQueue is a circular list through lastEffect, preserving call
// order within the component.
type hookEffectQueue struct {
	lastEffect *hookEffect
}

const maxRenderPhaseUpdates = 25

// renderWithHooks invokes a function component with the hook dispatcher
// pointed at wip, re-running bounded times when the render itself enqueues
// updates on the fiber being rendered.
func (rec *Reconciler) renderWithHooks(current, wip *Fiber, comp FunctionComponent, props element.Props, renderExpirationTime ExpirationTime) *element.Element {
	rec.currentlyRenderingFiber = wip
	rec.hookRenderExpirationTime = renderExpirationTime
	if current != nil {
		rec.firstCurrentHook, _ = current.memoizedState.(*Hook)
	} else {
		rec.firstCurrentHook = nil
	}
	rec.currentHook = nil
	rec.workInProgressHook = nil
	rec.firstWorkInProgressHook = nil
	wip.hookEffects = nil

	children := comp(rec.hooks, props)

	for rec.didScheduleRenderPhaseUpdate {
		rec.didScheduleRenderPhaseUpdate = false
		rec.numberOfReRenders++
		if rec.numberOfReRenders > maxRenderPhaseUpdates {
			rec.resetHooks()
			panic(errTooManyReRenders)
		}
		// Start over from the list head; queued render-phase updates are
		// folded in by the hooks themselves.
		rec.currentHook = nil
		rec.workInProgressHook = nil
		rec.firstCurrentHook = rec.firstWorkInProgressHook
		rec.firstWorkInProgressHook = nil
		wip.hookEffects = nil
		children = comp(rec.hooks, props)
	}

	wip.memoizedState = rec.firstWorkInProgressHook
	rec.resetHooks()
	return children
}

func (rec *Reconciler) resetHooks() {
	rec.currentlyRenderingFiber = nil
	rec.hookRenderExpirationTime = NoWork
	rec.firstCurrentHook = nil
	rec.currentHook = nil
	rec.workInProgressHook = nil
	rec.firstWorkInProgressHook = nil
	rec.numberOfReRenders = 0
	rec.didScheduleRenderPhaseUpdate = false
}

func (h *Hooks) resolveFiber() *Fiber {
	f := h.rec.currentlyRenderingFiber
	if f == nil {
		panic("fiber: hooks can only be called while a function component renders")
	}
	return f
}

// nextWorkInProgressHook advances the hook cursor, cloning the
// corresponding hook from the current fiber when one exists.
func (rec *Reconciler) nextWorkInProgressHook() *Hook {
	if rec.currentHook == nil {
		rec.currentHook = rec.firstCurrentHook
		rec.firstCurrentHook = nil
	} else if rec.currentHook.next != nil {
		rec.currentHook = rec.currentHook.next
	} else {
		rec.currentHook = nil
	}

	var wipHook *Hook
	if rec.currentHook != nil {
		wipHook = &Hook{
			memoizedState: rec.currentHook.memoizedState,
			baseState:     rec.currentHook.baseState,
			baseUpdate:    rec.currentHook.baseUpdate,
			queue:         rec.currentHook.queue,
		}
	} else {
		wipHook = &Hook{}
	}

	if rec.workInProgressHook == nil {
		rec.firstWorkInProgressHook = wipHook
		rec.workInProgressHook = wipHook
	} else {
		rec.workInProgressHook.next = wipHook
		rec.workInProgressHook = wipHook
	}
	return rec.workInProgressHook
}

func basicStateReducer(state, action any) any {
	if fn, ok := action.(func(prev any) any); ok {
		return fn(state)
	}
	return action
}

// UseState returns the slot's current value and a setter. The setter
// accepts either the next value or func(prev any) any.
func (h *Hooks) UseState(initial any) (any, func(any)) {
	return h.UseReducer(basicStateReducer, initial)
}

// UseReducer folds dispatched actions through reducer in dispatch order.
func (h *Hooks) UseReducer(reducer func(state, action any) any, initial any) (any, func(any)) {
	rec := h.rec
	fiber := h.resolveFiber()
	hook := rec.nextWorkInProgressHook()

	if hook.queue == nil {
		// Mount.
		hook.memoizedState = initial
		hook.baseState = initial
		hook.queue = &hookQueue{reducer: reducer}
	}
	q := hook.queue
	q.reducer = reducer

	if q.last != nil {
		// Fold the pending circular list, skipping entries less urgent
		// than the render in flight and anchoring base at the first skip.
		first := q.last.next
		renderExpiration := rec.hookRenderExpirationTime

		newState := hook.baseState
		var newBaseUpdate *hookUpdate
		var newBaseState any
		didSkip := false
		remaining := NoWork

		// Resume from baseUpdate when a prior pass deferred entries.
		if hook.baseUpdate != nil {
			first = hook.baseUpdate.next
		}

		u := first
		var prev *hookUpdate
		for u != nil {
			if !atLeastAsUrgent(u.expirationTime, renderExpiration) {
				if !didSkip {
					didSkip = true
					newBaseUpdate = prev
					newBaseState = newState
				}
				remaining = mostUrgent(remaining, u.expirationTime)
			} else {
				newState = q.reducer(newState, u.action)
			}
			prev = u
			if u == q.last {
				break
			}
			u = u.next
		}

		if !didSkip {
			newBaseUpdate = q.last
			newBaseState = newState
		}
		hook.memoizedState = newState
		hook.baseUpdate = newBaseUpdate
		hook.baseState = newBaseState
		if remaining != NoWork {
			markWorkRemaining(fiber, remaining)
		} else if !didSkip {
			q.last = nil
			hook.baseUpdate = nil
		}
	}

	q.lastRenderedState = hook.memoizedState

	dispatch := func(action any) {
		rec.dispatchHookAction(fiber, q, action)
	}
	return hook.memoizedState, dispatch
}

func markWorkRemaining(f *Fiber, exp ExpirationTime) {
	if f.expirationTime == NoWork || exp < f.expirationTime {
		f.expirationTime = exp
	}
	if alt := f.alternate; alt != nil {
		if alt.expirationTime == NoWork || exp < alt.expirationTime {
			alt.expirationTime = exp
		}
	}
}

func (rec *Reconciler) dispatchHookAction(fiber *Fiber, q *hookQueue, action any) {
	if fiber == rec.currentlyRenderingFiber ||
		(fiber.alternate != nil && fiber.alternate == rec.currentlyRenderingFiber) {
		// Render-phase update: queue it and loop the component.
		rec.didScheduleRenderPhaseUpdate = true
		u := &hookUpdate{expirationTime: rec.hookRenderExpirationTime, action: action}
		appendCircular(q, u)
		return
	}

	exp := rec.computeExpirationForFiber(fiber)
	u := &hookUpdate{expirationTime: exp, action: action}
	appendCircular(q, u)

	if fiber.expirationTime == NoWork &&
		(fiber.alternate == nil || fiber.alternate.expirationTime == NoWork) {
		// The slot is idle: run the reducer now, and skip scheduling when
		// the state would not change. The queued update still folds to the
		// same value if something else triggers a render.
		if objectIs(q.reducer(q.lastRenderedState, action), q.lastRenderedState) {
			return
		}
	}
	rec.scheduleWork(fiber, exp)
}

func appendCircular(q *hookQueue, u *hookUpdate) {
	if q.last == nil {
		u.next = u
	} else {
		u.next = q.last.next
		q.last.next = u
	}
	q.last = u
}

// UseEffect registers a passive effect, deferred past the commit.
func (h *Hooks) UseEffect(create func() func(), deps []any) {
	h.useEffectImpl(hookPassive, Passive|UpdateEffect, create, deps)
}

// UseLayoutEffect registers a synchronous effect firing in the commit's
// layout sub-pass, after mutations are visible.
func (h *Hooks) UseLayoutEffect(create func() func(), deps []any) {
	h.useEffectImpl(hookLayout, UpdateEffect, create, deps)
}

func (h *Hooks) useEffectImpl(tag hookEffectTag, fiberFlags SideEffectTag, create func() func(), deps []any) {
	rec := h.rec
	fiber := h.resolveFiber()
	hook := rec.nextWorkInProgressHook()

	var prevDestroy func()
	if rec.currentHook != nil {
		if prevEffect, ok := rec.currentHook.memoizedState.(*hookEffect); ok {
			prevDestroy = prevEffect.destroy
			if deps != nil && hookDepsEqual(deps, prevEffect.deps) {
				// Unchanged deps: keep the slot so order holds, but the
				// effect does not fire.
				hook.memoizedState = rec.pushHookEffect(fiber, tag, create, prevDestroy, deps)
				return
			}
		}
	}

	fiber.effectTag |= fiberFlags
	hook.memoizedState = rec.pushHookEffect(fiber, tag|hookHasEffect, create, prevDestroy, deps)
}

func (rec *Reconciler) pushHookEffect(fiber *Fiber, tag hookEffectTag, create func() func(), destroy func(), deps []any) *hookEffect {
	e := &hookEffect{tag: tag, create: create, destroy: destroy, deps: deps}
	q := fiber.hookEffects
	if q == nil {
		q = &hookEffectQueue{}
		fiber.hookEffects = q
	}
	if q.lastEffect == nil {
		e.next = e
	} else {
		e.next = q.lastEffect.next
		q.lastEffect.next = e
	}
	q.lastEffect = e
	return e
}

// UseMemo recomputes only when deps change.
func (h *Hooks) UseMemo(create func() any, deps []any) any {
	rec := h.rec
	h.resolveFiber()
	hook := rec.nextWorkInProgressHook()

	if prev, ok := hook.memoizedState.([2]any); ok {
		prevDeps, _ := prev[1].([]any)
		if deps != nil && hookDepsEqual(deps, prevDeps) {
			return prev[0]
		}
	}
	value := create()
	hook.memoizedState = [2]any{value, deps}
	return value
}

// Ref is stable mutable storage surviving re-renders.
type Ref struct {
	Current any
}

// UseRef returns the slot's Ref, creating it with initial on mount.
func (h *Hooks) UseRef(initial any) *Ref {
	rec := h.rec
	h.resolveFiber()
	hook := rec.nextWorkInProgressHook()
	if r, ok := hook.memoizedState.(*Ref); ok {
		return r
	}
	r := &Ref{Current: initial}
	hook.memoizedState = r
	return r
}

// UseContext reads a context and subscribes the component to its changes.
func (h *Hooks) UseContext(ctx *Context) any {
	h.resolveFiber()
	return h.rec.readContext(ctx)
}

func hookDepsEqual(next, prev []any) bool {
	if prev == nil || len(next) != len(prev) {
		return false
	}
	for i := range next {
		if !objectIs(next[i], prev[i]) {
			return false
		}
	}
	return true
}

// objectIs is identity comparison that tolerates incomparable values
// (funcs, maps, slices) by treating them as never equal.
func objectIs(a, b any) (eq bool) {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		switch ta.Kind() {
		case reflect.Map, reflect.Slice, reflect.Func:
			return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
		}
		return false
	}
	return a == b
}
