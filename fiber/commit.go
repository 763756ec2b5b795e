package fiber

import (
	"errors"
	"fmt"

	"github.com/ProgrammingAlternatives/fiberparty/element"
	"github.com/ProgrammingAlternatives/fiberparty/scheduler"
)

// passiveBatch is one commit's deferred effect work: every destroy in the
// batch runs before any create, so cross-component cleanup ordering can
// never invert.
type passiveBatch struct {
	root            *Root
	fibers          []*Fiber
	deletedDestroys []func()
}

// commitRoot applies a finished work-in-progress tree to the host. It is
// strictly synchronous: mutation sub-pass, the atomic current pointer
// swap, then the layout sub-pass. Passive effects are only collected here
// and flushed later as their own unit of work.
func (rec *Reconciler) commitRoot(root *Root, finishedWork *Fiber) {
	rec.isCommitting = true
	defer func() { rec.isCommitting = false }()

	// The root fiber's own effects ride at the end of its list.
	firstEffect := finishedWork.firstEffect
	if finishedWork.effectTag != NoEffect {
		if finishedWork.lastEffect != nil {
			finishedWork.lastEffect.nextEffect = finishedWork
		} else {
			firstEffect = finishedWork
		}
	}

	batch := &passiveBatch{root: root}

	// Sub-pass 1: host mutations in effect-list order. No cancellation
	// point exists from here until the layout pass finishes. The chain
	// must survive both sub-passes intact, so deleted fibers stay linked
	// until the final detach loop.
	for f := firstEffect; f != nil; f = f.nextEffect {
		if f.effectTag.has(ContentReset) {
			// Usually already consumed by a child's placement; a reset
			// with no insertions still has to wipe the text.
			rec.commitContentReset(f)
			f.effectTag &^= ContentReset
		}
		switch f.effectTag & HostEffectMask {
		case Placement:
			rec.commitPlacement(f)
			f.effectTag &^= Placement
		case PlacementAndUpdate:
			rec.commitPlacement(f)
			f.effectTag &^= Placement
			rec.commitWork(f.alternate, f)
		case UpdateEffect:
			rec.commitWork(f.alternate, f)
		case Deletion:
			rec.commitDeletion(f, batch)
		}
	}

	// The atomic cut-over: from here every external read observes the new
	// tree.
	root.current = finishedWork

	// Sub-pass 2: layout notifications observe the final host state.
	for f := firstEffect; f != nil; f = f.nextEffect {
		if f.effectTag.has(UpdateEffect | Callback) {
			rec.commitLayoutEffects(f.alternate, f)
		}
		if f.effectTag.has(Passive) {
			batch.fibers = append(batch.fibers, f)
		}
	}

	// Detach the consumed effect list so committed fibers do not pin each
	// other. Deleted fibers are fully unlinked here, after both sub-passes
	// have walked past them.
	var next *Fiber
	for f := firstEffect; f != nil; f = next {
		next = f.nextEffect
		if f.effectTag&(Placement|UpdateEffect|Deletion) == Deletion {
			f.detach()
		} else if !f.effectTag.has(Passive) {
			f.nextEffect = nil
		}
	}

	if len(batch.fibers) > 0 || len(batch.deletedDestroys) > 0 {
		rec.enqueuePassiveBatch(batch)
	}

	// A committed tree is a clean slate: boundaries that captured on the
	// way here may capture again for whatever fails next.
	rec.failedBoundaries.Clear()
}

func (rec *Reconciler) commitContentReset(f *Fiber) {
	if f.tag == HostComponentTag && f.stateNode != nil {
		rec.cfg.ResetTextContent(f.stateNode)
	}
}

func isHostParent(f *Fiber) bool {
	return f.tag == HostComponentTag || f.tag == HostRootTag || f.tag == PortalTag
}

func getHostParentFiber(f *Fiber) *Fiber {
	for p := f.ret; p != nil; p = p.ret {
		if isHostParent(p) {
			return p
		}
	}
	panic("fiber: expected a host parent above a placed fiber")
}

// getHostSibling finds the already-mounted host node the placed fiber must
// be inserted before, skipping fibers that are themselves pending
// insertion.
func getHostSibling(f *Fiber) any {
	node := f
siblings:
	for {
		for node.sibling == nil {
			if node.ret == nil || isHostParent(node.ret) {
				return nil
			}
			node = node.ret
		}
		node.sibling.ret = node.ret
		node = node.sibling
		for node.tag != HostComponentTag && node.tag != HostTextTag {
			if node.effectTag.has(Placement) {
				continue siblings
			}
			if node.child == nil || node.tag == PortalTag {
				continue siblings
			}
			node.child.ret = node
			node = node.child
		}
		if !node.effectTag.has(Placement) {
			return node.stateNode
		}
	}
}

func (rec *Reconciler) commitPlacement(f *Fiber) {
	parentFiber := getHostParentFiber(f)

	var parent any
	isContainer := false
	switch parentFiber.tag {
	case HostComponentTag:
		parent = parentFiber.stateNode
	case HostRootTag:
		parent = parentFiber.stateNode.(*Root).containerInfo
		isContainer = true
	case PortalTag:
		parent = parentFiber.stateNode
		isContainer = true
	}
	if parentFiber.effectTag.has(ContentReset) {
		rec.cfg.ResetTextContent(parent)
		parentFiber.effectTag &^= ContentReset
	}

	before := getHostSibling(f)
	rec.insertOrAppendPlacementNode(f, before, parent, isContainer)
}

// insertOrAppendPlacementNode mounts the nearest host descendants of f,
// descending through composite fibers and skipping portal subtrees.
func (rec *Reconciler) insertOrAppendPlacementNode(node *Fiber, before, parent any, isContainer bool) {
	if node.tag == HostComponentTag || node.tag == HostTextTag {
		instance := node.stateNode
		switch {
		case before != nil && isContainer:
			rec.cfg.InsertInContainerBefore(parent, instance, before)
		case before != nil:
			rec.cfg.InsertBefore(parent, instance, before)
		case isContainer:
			rec.cfg.AppendChildToContainer(parent, instance)
		default:
			rec.cfg.AppendChild(parent, instance)
		}
		return
	}
	if node.tag == PortalTag {
		return
	}
	for child := node.child; child != nil; child = child.sibling {
		rec.insertOrAppendPlacementNode(child, before, parent, isContainer)
	}
}

func (rec *Reconciler) commitWork(current, finishedWork *Fiber) {
	switch finishedWork.tag {
	case HostComponentTag:
		payload := finishedWork.updatePayload
		finishedWork.updatePayload = nil
		if payload != nil && finishedWork.stateNode != nil {
			var oldProps element.Props
			if current != nil {
				oldProps = current.memoizedProps
			}
			rec.cfg.CommitUpdate(finishedWork.stateNode, payload, finishedWork.typ.(string), oldProps, finishedWork.pendingProps)
		}
	case HostTextTag:
		oldText := ""
		if current != nil {
			oldText = textOf(current.memoizedProps)
		}
		rec.cfg.CommitTextUpdate(finishedWork.stateNode, oldText, textOf(finishedWork.pendingProps))
	case FunctionComponentTag, ClassComponentTag, SuspenseComponentTag, HostRootTag:
		// Their Update effect is layout work, not a host mutation.
	}
}

// commitDeletion removes a subtree from the host and runs its unmount
// notifications. Detaching waits for the end-of-commit loop; the deleted
// fiber is still a link in the effect chain both sub-passes iterate.
func (rec *Reconciler) commitDeletion(f *Fiber, batch *passiveBatch) {
	rec.unmountHostComponents(f, batch)
}

func (rec *Reconciler) unmountHostComponents(toDelete *Fiber, batch *passiveBatch) {
	node := toDelete

	var currentParent any
	currentParentIsContainer := false
	parentValid := false

	for {
		if !parentValid {
			parent := node.ret
			for {
				if parent == nil {
					panic("fiber: expected a host parent above a deleted fiber")
				}
				if isHostParent(parent) {
					break
				}
				parent = parent.ret
			}
			switch parent.tag {
			case HostComponentTag:
				currentParent = parent.stateNode
				currentParentIsContainer = false
			case HostRootTag:
				currentParent = parent.stateNode.(*Root).containerInfo
				currentParentIsContainer = true
			case PortalTag:
				currentParent = parent.stateNode
				currentParentIsContainer = true
			}
			parentValid = true
		}

		if node.tag == HostComponentTag || node.tag == HostTextTag {
			rec.commitNestedUnmounts(node, batch)
			if currentParentIsContainer {
				rec.cfg.RemoveChildFromContainer(currentParent, node.stateNode)
			} else {
				rec.cfg.RemoveChild(currentParent, node.stateNode)
			}
		} else if node.tag == PortalTag {
			if node.child != nil {
				currentParent = node.stateNode
				currentParentIsContainer = true
				node.child.ret = node
				node = node.child
				continue
			}
		} else {
			rec.commitUnmount(node, batch)
			if node.child != nil {
				node.child.ret = node
				node = node.child
				continue
			}
		}

		if node == toDelete {
			return
		}
		for node.sibling == nil {
			if node.ret == nil || node.ret == toDelete {
				return
			}
			node = node.ret
			if node.tag == PortalTag {
				// Leaving the portal subtree; the next removals target
				// the outer parent again.
				parentValid = false
			}
		}
		node.sibling.ret = node.ret
		node = node.sibling
	}
}

// commitNestedUnmounts runs unmount notifications for a removed host
// node's whole subtree; the host only needs the top-level RemoveChild.
func (rec *Reconciler) commitNestedUnmounts(root *Fiber, batch *passiveBatch) {
	node := root
	for {
		rec.commitUnmount(node, batch)
		if node.child != nil {
			node.child.ret = node
			node = node.child
			continue
		}
		if node == root {
			return
		}
		for node.sibling == nil {
			if node.ret == nil || node.ret == root {
				return
			}
			node = node.ret
		}
		node.sibling.ret = node.ret
		node = node.sibling
	}
}

func (rec *Reconciler) commitUnmount(f *Fiber, batch *passiveBatch) {
	switch f.tag {
	case ClassComponentTag:
		if um, ok := f.stateNode.(Unmounter); ok {
			rec.guarded(f, um.WillUnmount)
		}
	case FunctionComponentTag:
		q := f.hookEffects
		if q == nil || q.lastEffect == nil {
			return
		}
		first := q.lastEffect.next
		e := first
		for {
			if e.destroy != nil {
				destroy := e.destroy
				e.destroy = nil
				if e.tag&hookPassive != 0 {
					// Deferred with the rest of the commit's cleanups.
					batch.deletedDestroys = append(batch.deletedDestroys, destroy)
				} else {
					rec.guarded(f, destroy)
				}
			}
			e = e.next
			if e == first {
				break
			}
		}
	}
}

func (rec *Reconciler) commitLayoutEffects(current, finishedWork *Fiber) {
	switch finishedWork.tag {
	case FunctionComponentTag:
		rec.commitHookEffectList(finishedWork, hookLayout, true)
		rec.commitHookEffectList(finishedWork, hookLayout, false)
	case ClassComponentTag:
		instance := finishedWork.stateNode
		if finishedWork.effectTag.has(UpdateEffect) {
			if current == nil {
				if m, ok := instance.(Mounter); ok {
					rec.guarded(finishedWork, m.DidMount)
				}
			} else if u, ok := instance.(UpdateObserver); ok {
				prevProps := current.memoizedProps
				prevState := current.memoizedState
				rec.guarded(finishedWork, func() { u.DidUpdate(prevProps, prevState) })
			}
		}
		if q := finishedWork.updateQueue; q != nil {
			commitUpdateQueue(q)
		}
	case HostRootTag:
		if q := finishedWork.updateQueue; q != nil {
			commitUpdateQueue(q)
		}
	}
}

// commitHookEffectList runs one phase of a fiber's effect ring: destroys
// of replaced effects when destroyPhase, creates (capturing the next
// destroy) otherwise.
func (rec *Reconciler) commitHookEffectList(f *Fiber, tag hookEffectTag, destroyPhase bool) {
	q := f.hookEffects
	if q == nil || q.lastEffect == nil {
		return
	}
	first := q.lastEffect.next
	e := first
	for {
		if e.tag&(tag|hookHasEffect) == tag|hookHasEffect {
			if destroyPhase {
				if e.destroy != nil {
					destroy := e.destroy
					e.destroy = nil
					rec.guarded(f, destroy)
				}
			} else {
				create := e.create
				rec.guarded(f, func() { e.destroy = create() })
			}
		}
		e = e.next
		if e == first {
			break
		}
	}
}

// guarded runs a commit-phase callback, routing a panic to the error
// callback instead of tearing down the commit; siblings still get their
// notifications.
func (rec *Reconciler) guarded(from *Fiber, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rec.reportError(from, toError(r))
		}
	}()
	fn()
}

func (rec *Reconciler) enqueuePassiveBatch(batch *passiveBatch) {
	rec.pendingPassiveBatches = append(rec.pendingPassiveBatches, batch)
	if rec.passiveTask == nil {
		rec.passiveTask = rec.sched.Schedule(scheduler.NormalPriority, func(bool) scheduler.Callback {
			rec.passiveTask = nil
			rec.FlushPassiveEffects()
			return nil
		})
	}
}

// FlushPassiveEffects runs every deferred effect batch now: per batch all
// cleanups first, then all creates. Errors do not stop the batch; they
// are collected, reported through the error callback, and returned
// joined.
func (rec *Reconciler) FlushPassiveEffects() error {
	if rec.passiveTask != nil {
		rec.sched.Cancel(rec.passiveTask)
		rec.passiveTask = nil
	}
	var errs []error
	for len(rec.pendingPassiveBatches) > 0 {
		batch := rec.pendingPassiveBatches[0]
		rec.pendingPassiveBatches = rec.pendingPassiveBatches[1:]

		for _, destroy := range batch.deletedDestroys {
			if err := runCollected(destroy); err != nil {
				errs = append(errs, err)
			}
		}
		for _, f := range batch.fibers {
			if err := rec.passiveDestroyPhase(f); err != nil {
				errs = append(errs, err)
			}
		}
		for _, f := range batch.fibers {
			if err := rec.passiveCreatePhase(f); err != nil {
				errs = append(errs, err)
			}
			f.effectTag &^= Passive
			f.nextEffect = nil
		}
	}
	if len(errs) == 0 {
		return nil
	}
	joined := errors.Join(errs...)
	rec.reportError(nil, joined)
	return joined
}

func runCollected(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fiber: passive effect panicked: %w", toError(r))
		}
	}()
	fn()
	return nil
}

func (rec *Reconciler) passiveDestroyPhase(f *Fiber) error {
	var errs []error
	q := f.hookEffects
	if q == nil || q.lastEffect == nil {
		return nil
	}
	first := q.lastEffect.next
	e := first
	for {
		if e.tag&(hookPassive|hookHasEffect) == hookPassive|hookHasEffect && e.destroy != nil {
			destroy := e.destroy
			e.destroy = nil
			if err := runCollected(destroy); err != nil {
				errs = append(errs, err)
			}
		}
		e = e.next
		if e == first {
			break
		}
	}
	return errors.Join(errs...)
}

func (rec *Reconciler) passiveCreatePhase(f *Fiber) error {
	var errs []error
	q := f.hookEffects
	if q == nil || q.lastEffect == nil {
		return nil
	}
	first := q.lastEffect.next
	e := first
	for {
		if e.tag&(hookPassive|hookHasEffect) == hookPassive|hookHasEffect {
			create := e.create
			if err := runCollected(func() { e.destroy = create() }); err != nil {
				errs = append(errs, err)
			}
		}
		e = e.next
		if e == first {
			break
		}
	}
	return errors.Join(errs...)
}
