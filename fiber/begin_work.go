package fiber

import "github.com/ProgrammingAlternatives/fiberparty/element"

// rootState is the host root's memoized state: the element tree last
// handed to Render.
type rootState struct {
	element *element.Element
}

// suspendedState marks a suspense boundary currently showing its fallback.
type suspendedState struct{}

// beginWork decides, per fiber, between bailing out and rendering, and
// reconciles the produced children against the previous tree. It returns
// the next fiber to begin (the first child) or nil when the subtree is
// done.
func (rec *Reconciler) beginWork(current, wip *Fiber, renderExpirationTime ExpirationTime) *Fiber {
	updateExpirationTime := wip.expirationTime

	if current != nil {
		unchanged := objectIs(current.memoizedProps, wip.pendingProps) &&
			objectIs(current.memoizedChildren, wip.pendingChildren)
		if unchanged && !atLeastAsUrgent(updateExpirationTime, renderExpirationTime) {
			// No work on this fiber for this pass; keep the stacks
			// consistent and let bailout decide whether descendants need
			// a visit.
			switch wip.tag {
			case HostRootTag:
				rec.pushHostContainer(wip.stateNode.(*Root).containerInfo)
			case HostComponentTag:
				rec.pushHostContext(wip)
			case PortalTag:
				rec.pushHostContainer(wip.stateNode)
			case ContextProviderTag:
				ctx := wip.typ.(*Context)
				rec.pushProvider(wip, ctx.providedValue(wip.memoizedProps))
			}
			return rec.bailoutOnAlreadyFinishedWork(current, wip, renderExpirationTime)
		}
	}

	wip.expirationTime = NoWork

	switch wip.tag {
	case HostRootTag:
		return rec.updateHostRoot(current, wip, renderExpirationTime)
	case FunctionComponentTag:
		return rec.updateFunctionComponent(current, wip, renderExpirationTime)
	case ClassComponentTag:
		return rec.updateClassComponent(current, wip, renderExpirationTime)
	case HostComponentTag:
		return rec.updateHostComponent(current, wip, renderExpirationTime)
	case HostTextTag:
		return nil
	case FragmentTag:
		rec.reconcileChildren(current, wip, wip.pendingChildren, renderExpirationTime)
		return wip.child
	case SuspenseComponentTag:
		return rec.updateSuspenseComponent(current, wip, renderExpirationTime)
	case ContextProviderTag:
		return rec.updateContextProvider(current, wip, renderExpirationTime)
	case PortalTag:
		rec.pushHostContainer(wip.stateNode)
		rec.reconcileChildren(current, wip, wip.pendingChildren, renderExpirationTime)
		return wip.child
	default:
		panic("fiber: beginWork on unknown work tag")
	}
}

// bailoutOnAlreadyFinishedWork reuses the previous children wholesale. If
// no descendant has work at this priority the whole subtree is skipped;
// otherwise the child fibers are cloned so the traversal can continue into
// them without touching current.
func (rec *Reconciler) bailoutOnAlreadyFinishedWork(current, wip *Fiber, renderExpirationTime ExpirationTime) *Fiber {
	if !atLeastAsUrgent(wip.childExpirationTime, renderExpirationTime) {
		return nil
	}
	cloneChildFibers(wip)
	return wip.child
}

func (rec *Reconciler) updateHostRoot(current, wip *Fiber, renderExpirationTime ExpirationTime) *Fiber {
	root := wip.stateNode.(*Root)
	rec.pushHostContainer(root.containerInfo)

	q := wip.updateQueue
	if q == nil {
		panic("fiber: host root rendered without an update queue")
	}
	var prevElement *element.Element
	if prev, ok := wip.memoizedState.(*rootState); ok && prev != nil {
		prevElement = prev.element
	}
	rec.processUpdateQueue(wip, q, nil, nil, renderExpirationTime)

	var nextElement *element.Element
	if next, ok := wip.memoizedState.(*rootState); ok && next != nil {
		nextElement = next.element
	}
	if nextElement == prevElement {
		return rec.bailoutOnAlreadyFinishedWork(current, wip, renderExpirationTime)
	}

	var children []*element.Element
	if nextElement != nil {
		children = []*element.Element{nextElement}
	}
	rec.reconcileChildren(current, wip, children, renderExpirationTime)
	return wip.child
}

func (rec *Reconciler) updateFunctionComponent(current, wip *Fiber, renderExpirationTime ExpirationTime) *Fiber {
	comp := wip.typ.(FunctionComponent)
	rec.prepareToReadContext(wip)
	children := rec.renderWithHooks(current, wip, comp, wip.pendingProps, renderExpirationTime)
	rec.currentlyReadingFiber = nil
	wip.effectTag |= PerformedWork
	rec.reconcileChildren(current, wip, singleChild(children), renderExpirationTime)
	return wip.child
}

func singleChild(el *element.Element) []*element.Element {
	if el == nil {
		return nil
	}
	return []*element.Element{el}
}

func (rec *Reconciler) updateClassComponent(current, wip *Fiber, renderExpirationTime ExpirationTime) *Fiber {
	rec.prepareToReadContext(wip)

	if wip.stateNode == nil {
		// Mount: construct the instance and seed its state.
		factory := wip.typ.(ComponentFactory)
		instance := factory()
		wip.stateNode = instance
		if binder, ok := instance.(updaterBinder); ok {
			binder.bindUpdater(&classUpdater{rec: rec, fiber: wip})
		}
		if init, ok := instance.(StateInitializer); ok {
			wip.memoizedState = init.InitialState(wip.pendingProps)
		}
		if q := wip.updateQueue; q != nil {
			rec.processUpdateQueue(wip, q, wip.pendingProps, instance, renderExpirationTime)
		}
		if _, ok := instance.(Mounter); ok {
			wip.effectTag |= UpdateEffect
		}
		return rec.finishClassComponent(current, wip, instance, renderExpirationTime)
	}

	instance := wip.stateNode.(Component)

	if current == nil {
		// Still mounting: the instance exists but nothing committed. A
		// boundary that captured during its own mount re-enters here with
		// DidCapture set and the captured state update pending.
		if q := wip.updateQueue; q != nil {
			rec.processUpdateQueue(wip, q, wip.pendingProps, instance, renderExpirationTime)
		}
		return rec.finishClassComponent(current, wip, instance, renderExpirationTime)
	}

	oldProps := current.memoizedProps
	oldState := wip.memoizedState

	hasForce := false
	if q := wip.updateQueue; q != nil {
		rec.processUpdateQueue(wip, q, wip.pendingProps, instance, renderExpirationTime)
		hasForce = q.hasForceUpdate
	}
	newState := wip.memoizedState
	didCapture := wip.effectTag.has(DidCapture)

	propsChanged := !objectIs(oldProps, wip.pendingProps) ||
		!objectIs(current.memoizedChildren, wip.pendingChildren)
	stateChanged := !objectIs(oldState, newState)

	if !propsChanged && !stateChanged && !hasForce && !didCapture {
		return rec.bailoutOnAlreadyFinishedWork(current, wip, renderExpirationTime)
	}

	if gate, ok := instance.(UpdateGate); ok && !hasForce && !didCapture {
		if !gate.ShouldUpdate(oldProps, wip.pendingProps, oldState, newState) {
			// Vetoed: memoize the computed state but keep the old
			// children untouched.
			return rec.bailoutOnAlreadyFinishedWork(current, wip, renderExpirationTime)
		}
	}

	if _, ok := instance.(UpdateObserver); ok {
		wip.effectTag |= UpdateEffect
	}
	return rec.finishClassComponent(current, wip, instance, renderExpirationTime)
}

func (rec *Reconciler) finishClassComponent(current, wip *Fiber, instance Component, renderExpirationTime ExpirationTime) *Fiber {
	children := instance.Render(wip.pendingProps, wip.memoizedState)
	rec.currentlyReadingFiber = nil
	wip.effectTag |= PerformedWork

	if wip.effectTag.has(DidCapture) {
		// The boundary just captured; the previous children may be in an
		// inconsistent half-rendered state, so force a fresh set instead
		// of diffing against them.
		rec.deleteRemainingChildren(wip, currentChildOf(current), reconcileFlags{shouldTrackSideEffects: true})
		wip.child = rec.mountChildFibers(wip, nil, singleChild(children), renderExpirationTime)
		markSubtreeForPlacement(wip.child)
	} else {
		rec.reconcileChildren(current, wip, singleChild(children), renderExpirationTime)
	}
	return wip.child
}

func currentChildOf(current *Fiber) *Fiber {
	if current == nil {
		return nil
	}
	return current.child
}

func markSubtreeForPlacement(first *Fiber) {
	for f := first; f != nil; f = f.sibling {
		f.effectTag |= Placement
	}
}

func (rec *Reconciler) updateHostComponent(current, wip *Fiber, renderExpirationTime ExpirationTime) *Fiber {
	rec.pushHostContext(wip)

	typ := wip.typ.(string)
	nextProps := wip.pendingProps
	children := wip.pendingChildren

	if rec.cfg.ShouldSetTextContent(typ, nextProps) {
		// Host owns the text; no child fibers.
		children = nil
	} else if current != nil && rec.cfg.ShouldSetTextContent(typ, current.memoizedProps) {
		// Switching from host-owned text to real children needs the text
		// wiped before insertions.
		wip.effectTag |= ContentReset
	}

	rec.reconcileChildren(current, wip, children, renderExpirationTime)
	return wip.child
}

func (rec *Reconciler) updateSuspenseComponent(current, wip *Fiber, renderExpirationTime ExpirationTime) *Fiber {
	didSuspend := wip.effectTag.has(DidCapture)

	if didSuspend {
		wip.memoizedState = suspendedState{}
		var fallback *element.Element
		if wip.pendingProps != nil {
			fallback, _ = wip.pendingProps[element.FallbackProp].(*element.Element)
		}
		rec.reconcileChildren(current, wip, singleChild(fallback), renderExpirationTime)
	} else {
		wip.memoizedState = nil
		rec.reconcileChildren(current, wip, wip.pendingChildren, renderExpirationTime)
	}
	return wip.child
}

func (rec *Reconciler) updateContextProvider(current, wip *Fiber, renderExpirationTime ExpirationTime) *Fiber {
	ctx := wip.typ.(*Context)
	newValue := ctx.providedValue(wip.pendingProps)
	rec.pushProvider(wip, newValue)

	if current != nil {
		oldValue := ctx.providedValue(current.memoizedProps)
		if objectIs(oldValue, newValue) {
			if objectIs(current.memoizedChildren, wip.pendingChildren) {
				return rec.bailoutOnAlreadyFinishedWork(current, wip, renderExpirationTime)
			}
		} else {
			rec.propagateContextChange(wip, ctx, renderExpirationTime)
		}
	}

	rec.reconcileChildren(current, wip, wip.pendingChildren, renderExpirationTime)
	return wip.child
}
