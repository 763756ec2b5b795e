package fiber

import "github.com/ProgrammingAlternatives/fiberparty/element"

func (rec *Reconciler) pushHostContainer(container any) {
	rec.push(&rec.rootInstanceCursor, container)
	rec.push(&rec.hostContextCursor, rec.cfg.GetRootHostContext(container))
}

func (rec *Reconciler) popHostContainer() {
	rec.pop(&rec.hostContextCursor)
	rec.pop(&rec.rootInstanceCursor)
}

func (rec *Reconciler) pushHostContext(wip *Fiber) {
	parent := rec.hostContextCursor.current
	next := rec.cfg.GetChildHostContext(parent, wip.typ.(string), rec.rootInstanceCursor.current)
	rec.push(&rec.hostContextCursor, next)
}

func (rec *Reconciler) popHostContext() {
	rec.pop(&rec.hostContextCursor)
}

func (rec *Reconciler) rootHostContainer() any {
	return rec.rootInstanceCursor.current
}

// completeWork finalizes one fiber on the way back up: host instances are
// created or diffed, context frames are popped, and effect flags are
// settled so completeUnitOfWork can splice this subtree's effect list into
// the parent's.
func (rec *Reconciler) completeWork(current, wip *Fiber) {
	newProps := wip.pendingProps

	switch wip.tag {
	case FunctionComponentTag, ClassComponentTag, FragmentTag:
		// Nothing host-visible to finalize.
	case HostRootTag:
		rec.popHostContainer()
	case ContextProviderTag:
		rec.popProvider(wip)
	case PortalTag:
		rec.popHostContainer()
	case SuspenseComponentTag:
		prevDidTimeout := current != nil && current.memoizedState != nil
		nextDidTimeout := wip.memoizedState != nil
		if prevDidTimeout != nextDidTimeout {
			wip.effectTag |= UpdateEffect
		}
	case HostTextTag:
		newText := textOf(newProps)
		if current != nil && wip.stateNode != nil {
			if textOf(current.memoizedProps) != newText {
				wip.effectTag |= UpdateEffect
			}
		} else {
			wip.stateNode = rec.cfg.CreateTextInstance(newText, rec.rootHostContainer(), rec.hostContextCursor.current)
		}
	case HostComponentTag:
		typ := wip.typ.(string)
		if current != nil && wip.stateNode != nil {
			// Existing instance: compute the minimal prop delta.
			oldProps := current.memoizedProps
			if !objectIs(oldProps, newProps) {
				payload := rec.cfg.PrepareUpdate(wip.stateNode, typ, oldProps, newProps)
				wip.updatePayload = payload
				if payload != nil {
					wip.effectTag |= UpdateEffect
				}
			}
			rec.popHostContext()
		} else {
			rootContainer := rec.rootHostContainer()
			instance := rec.cfg.CreateInstance(typ, newProps, rootContainer, rec.hostContextCursor.current)
			wip.stateNode = instance
			rec.appendAllChildren(instance, wip)
			if rec.cfg.FinalizeInitialChildren(instance, typ, newProps, rootContainer) {
				wip.effectTag |= UpdateEffect
			}
			rec.popHostContext()
		}
	default:
		panic("fiber: completeWork on unknown work tag")
	}
}

func textOf(props element.Props) string {
	if props == nil {
		return ""
	}
	s, _ := props[element.TextProp].(string)
	return s
}

// appendAllChildren attaches every host descendant of a just-created
// instance, skipping over non-host fibers and stopping at portal
// subtrees, which mount into their own container.
func (rec *Reconciler) appendAllChildren(parent any, wip *Fiber) {
	node := wip.child
	for node != nil {
		switch node.tag {
		case HostComponentTag, HostTextTag:
			rec.cfg.AppendInitialChild(parent, node.stateNode)
		case PortalTag:
			// Portal children do not belong to this instance.
		default:
			if node.child != nil {
				node.child.ret = node
				node = node.child
				continue
			}
		}
		if node == wip {
			return
		}
		for node.sibling == nil {
			if node.ret == nil || node.ret == wip {
				return
			}
			node = node.ret
		}
		node.sibling.ret = node.ret
		node = node.sibling
	}
}

// resetChildExpirationTime recomputes the most urgent pending work among
// wip's children after they completed, so ancestors can prune subtrees
// with nothing left to do.
func resetChildExpirationTime(wip *Fiber) {
	newChildExpiration := NoWork
	for child := wip.child; child != nil; child = child.sibling {
		newChildExpiration = mostUrgent(newChildExpiration, child.expirationTime)
		newChildExpiration = mostUrgent(newChildExpiration, child.childExpirationTime)
	}
	wip.childExpirationTime = newChildExpiration
}
