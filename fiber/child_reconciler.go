package fiber

import "github.com/ProgrammingAlternatives/fiberparty/element"

// reconcileFlags selects between the mounting reconciler, which records
// no deletions or placements (there is nothing mounted to mutate yet), and
// the updating one, which tracks side effects.
type reconcileFlags struct {
	shouldTrackSideEffects bool
}

func (rec *Reconciler) reconcileChildren(current, wip *Fiber, newChildren []*element.Element, renderExpirationTime ExpirationTime) {
	if current == nil {
		wip.child = rec.mountChildFibers(wip, nil, newChildren, renderExpirationTime)
	} else {
		wip.child = rec.reconcileChildFibers(wip, current.child, newChildren, renderExpirationTime)
	}
}

func (rec *Reconciler) mountChildFibers(returnFiber *Fiber, currentFirstChild *Fiber, newChildren []*element.Element, exp ExpirationTime) *Fiber {
	return rec.reconcileChildrenArray(returnFiber, currentFirstChild, newChildren, exp, reconcileFlags{shouldTrackSideEffects: false})
}

func (rec *Reconciler) reconcileChildFibers(returnFiber *Fiber, currentFirstChild *Fiber, newChildren []*element.Element, exp ExpirationTime) *Fiber {
	return rec.reconcileChildrenArray(returnFiber, currentFirstChild, newChildren, exp, reconcileFlags{shouldTrackSideEffects: true})
}

func (rec *Reconciler) deleteChild(returnFiber, childToDelete *Fiber, flags reconcileFlags) {
	if !flags.shouldTrackSideEffects {
		return
	}
	// Deletions go straight onto the parent's effect list; the deleted
	// fiber is no longer part of the work-in-progress tree, so complete
	// would never visit it.
	if returnFiber.lastEffect != nil {
		returnFiber.lastEffect.nextEffect = childToDelete
		returnFiber.lastEffect = childToDelete
	} else {
		returnFiber.firstEffect = childToDelete
		returnFiber.lastEffect = childToDelete
	}
	childToDelete.nextEffect = nil
	childToDelete.effectTag = Deletion
}

func (rec *Reconciler) deleteRemainingChildren(returnFiber, currentFirstChild *Fiber, flags reconcileFlags) {
	if !flags.shouldTrackSideEffects {
		return
	}
	for child := currentFirstChild; child != nil; child = child.sibling {
		rec.deleteChild(returnFiber, child, flags)
	}
}

// useFiber forks an existing fiber to carry the new element's props.
func useFiber(f *Fiber, props element.Props, children []*element.Element) *Fiber {
	clone := createWorkInProgress(f, props, children)
	clone.index = 0
	clone.sibling = nil
	return clone
}

func sameType(f *Fiber, el *element.Element) bool {
	if f.tag == FragmentTag {
		return el.Type == element.FragmentType
	}
	if f.tag == HostTextTag {
		return el.Type == element.TextType
	}
	return objectIs(f.typ, el.Type)
}

// updateSlot matches an old fiber against a new element at the same
// position, returning nil when keys differ (the caller falls back to the
// keyed map).
func (rec *Reconciler) updateSlot(returnFiber, oldFiber *Fiber, el *element.Element, exp ExpirationTime, flags reconcileFlags) *Fiber {
	oldKey := ""
	if oldFiber != nil {
		oldKey = oldFiber.key
	}
	if oldKey != el.Key {
		return nil
	}
	return rec.updateElement(returnFiber, oldFiber, el, exp, flags)
}

func (rec *Reconciler) updateElement(returnFiber, oldFiber *Fiber, el *element.Element, exp ExpirationTime, flags reconcileFlags) *Fiber {
	if oldFiber != nil && sameType(oldFiber, el) {
		existing := useFiber(oldFiber, el.Props, el.Children)
		existing.ret = returnFiber
		return existing
	}
	if oldFiber != nil {
		rec.deleteChild(returnFiber, oldFiber, flags)
	}
	created := createFiberFromElement(el, exp)
	created.ret = returnFiber
	return created
}

// placeChild implements the single-pass move heuristic: a matched child
// whose previous index is not behind the highest index placed so far stays
// in place; one behind it is marked Placement (a move). The heuristic is
// O(n) and deliberately not an LCS.
func placeChild(newFiber *Fiber, lastPlacedIndex, newIndex int, flags reconcileFlags) int {
	newFiber.index = newIndex
	if !flags.shouldTrackSideEffects {
		return lastPlacedIndex
	}
	current := newFiber.alternate
	if current != nil {
		oldIndex := current.index
		if oldIndex < lastPlacedIndex {
			newFiber.effectTag |= Placement
			return lastPlacedIndex
		}
		return oldIndex
	}
	newFiber.effectTag |= Placement
	return lastPlacedIndex
}

func (rec *Reconciler) reconcileChildrenArray(returnFiber *Fiber, currentFirstChild *Fiber, newChildren []*element.Element, exp ExpirationTime, flags reconcileFlags) *Fiber {
	var resultingFirstChild *Fiber
	var previousNewFiber *Fiber

	oldFiber := currentFirstChild
	lastPlacedIndex := 0
	newIdx := 0
	var nextOldFiber *Fiber

	// First pass: walk both lists while positions keep matching by key.
	for oldFiber != nil && newIdx < len(newChildren) {
		if oldFiber.index > newIdx {
			nextOldFiber = oldFiber
			oldFiber = nil
		} else {
			nextOldFiber = oldFiber.sibling
		}
		el := newChildren[newIdx]
		if el == nil {
			if oldFiber == nil {
				oldFiber = nextOldFiber
			}
			newIdx++
			continue
		}
		newFiber := rec.updateSlot(returnFiber, oldFiber, el, exp, flags)
		if newFiber == nil {
			if oldFiber == nil {
				oldFiber = nextOldFiber
			}
			break
		}
		lastPlacedIndex = placeChild(newFiber, lastPlacedIndex, newIdx, flags)
		if previousNewFiber == nil {
			resultingFirstChild = newFiber
		} else {
			previousNewFiber.sibling = newFiber
		}
		previousNewFiber = newFiber
		oldFiber = nextOldFiber
		newIdx++
	}

	if newIdx == len(newChildren) {
		rec.deleteRemainingChildren(returnFiber, oldFiber, flags)
		return resultingFirstChild
	}

	if oldFiber == nil {
		// Only insertions remain.
		for ; newIdx < len(newChildren); newIdx++ {
			el := newChildren[newIdx]
			if el == nil {
				continue
			}
			created := createFiberFromElement(el, exp)
			created.ret = returnFiber
			lastPlacedIndex = placeChild(created, lastPlacedIndex, newIdx, flags)
			if previousNewFiber == nil {
				resultingFirstChild = created
			} else {
				previousNewFiber.sibling = created
			}
			previousNewFiber = created
		}
		return resultingFirstChild
	}

	// Second pass: key map over the remaining old children.
	existing := mapRemainingChildren(oldFiber)
	for ; newIdx < len(newChildren); newIdx++ {
		el := newChildren[newIdx]
		if el == nil {
			continue
		}
		matched := existing[childMapKey(el.Key, newIdx)]
		var newFiber *Fiber
		if matched != nil && sameType(matched, el) {
			delete(existing, childMapKey(el.Key, newIdx))
			newFiber = useFiber(matched, el.Props, el.Children)
			newFiber.ret = returnFiber
		} else {
			if matched != nil {
				delete(existing, childMapKey(el.Key, newIdx))
				rec.deleteChild(returnFiber, matched, flags)
			}
			newFiber = createFiberFromElement(el, exp)
			newFiber.ret = returnFiber
		}
		lastPlacedIndex = placeChild(newFiber, lastPlacedIndex, newIdx, flags)
		if previousNewFiber == nil {
			resultingFirstChild = newFiber
		} else {
			previousNewFiber.sibling = newFiber
		}
		previousNewFiber = newFiber
	}

	if flags.shouldTrackSideEffects {
		for _, unmatched := range existing {
			rec.deleteChild(returnFiber, unmatched, flags)
		}
	}
	return resultingFirstChild
}

type childKey struct {
	key   string
	index int
}

func childMapKey(key string, index int) childKey {
	if key != "" {
		return childKey{key: key}
	}
	return childKey{index: index}
}

func mapRemainingChildren(firstChild *Fiber) map[childKey]*Fiber {
	existing := make(map[childKey]*Fiber)
	for f := firstChild; f != nil; f = f.sibling {
		if f.key != "" {
			existing[childKey{key: f.key}] = f
		} else {
			existing[childKey{index: f.index}] = f
		}
	}
	return existing
}

// cloneChildFibers forks every child of a bailed-out fiber so the
// work-in-progress tree never aliases current's child list.
func cloneChildFibers(wip *Fiber) {
	if wip.child == nil {
		return
	}
	current := wip.child
	newChild := createWorkInProgress(current, current.pendingProps, current.pendingChildren)
	wip.child = newChild
	newChild.ret = wip
	for current.sibling != nil {
		current = current.sibling
		sib := createWorkInProgress(current, current.pendingProps, current.pendingChildren)
		newChild.sibling = sib
		sib.ret = wip
		newChild = sib
	}
	newChild.sibling = nil
}
