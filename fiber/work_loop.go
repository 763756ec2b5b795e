package fiber

import (
	"errors"

	"github.com/ProgrammingAlternatives/fiberparty/scheduler"
)

// errMaxUpdateDepth trips when commits keep scheduling synchronous work,
// the cascade equivalent of the render-phase re-render cap.
var errMaxUpdateDepth = errors.New("fiber: maximum update depth exceeded, a lifecycle keeps scheduling synchronous updates")

const nestedUpdateLimit = 50

// computeExpirationForFiber derives the priority token for a new update:
// updates scheduled from inside the render phase join the pass in flight,
// everything else maps from the ambient scheduler priority.
func (rec *Reconciler) computeExpirationForFiber(f *Fiber) ExpirationTime {
	if rec.isWorking && !rec.isCommitting {
		return rec.nextRenderExpirationTime
	}
	switch rec.sched.CurrentPriority() {
	case scheduler.ImmediatePriority:
		return Sync
	case scheduler.UserBlockingPriority:
		return computeInteractiveExpiration(rec.sched.Now())
	default:
		return computeAsyncExpiration(rec.sched.Now())
	}
}

// scheduleWork records pending work at a fiber and kicks the machinery
// that will eventually render it. Arriving work more urgent than a render
// already in progress abandons that render's work-in-progress tree; the
// committed tree is untouched, so abandonment is free.
func (rec *Reconciler) scheduleWork(f *Fiber, expirationTime ExpirationTime) {
	root := rec.markUpdateTimeFromFiberToRoot(f, expirationTime)
	if root == nil {
		// The fiber is no longer attached to a root; drop the update.
		return
	}

	if rec.nextRoot != nil && rec.nextRenderExpirationTime != NoWork &&
		!rec.isCommitting &&
		expirationTime < rec.nextRenderExpirationTime {
		rec.resetStack()
	}

	root.expirationTime = mostUrgent(root.expirationTime, expirationTime)
	rec.requestWork(root, expirationTime)
}

func (rec *Reconciler) markUpdateTimeFromFiberToRoot(f *Fiber, expirationTime ExpirationTime) *Root {
	if f.expirationTime == NoWork || expirationTime < f.expirationTime {
		f.expirationTime = expirationTime
	}
	if alt := f.alternate; alt != nil {
		if alt.expirationTime == NoWork || expirationTime < alt.expirationTime {
			alt.expirationTime = expirationTime
		}
	}

	node := f
	for node.ret != nil {
		parent := node.ret
		if parent.childExpirationTime == NoWork || expirationTime < parent.childExpirationTime {
			parent.childExpirationTime = expirationTime
		}
		if alt := parent.alternate; alt != nil {
			if alt.childExpirationTime == NoWork || expirationTime < alt.childExpirationTime {
				alt.childExpirationTime = expirationTime
			}
		}
		node = parent
	}
	if node.tag == HostRootTag {
		if root, ok := node.stateNode.(*Root); ok {
			return root
		}
	}
	return nil
}

// resetStack abandons the in-progress render: the stacks are unwound for
// every fiber between the paused unit and the root, and the
// work-in-progress pointers are cleared so the next renderRoot starts
// fresh. Nothing the abandoned pass computed is visible anywhere.
func (rec *Reconciler) resetStack() {
	if rec.nextUnitOfWork != nil {
		for f := rec.nextUnitOfWork.ret; f != nil; f = f.ret {
			rec.unwindInterruptedWork(f)
		}
	}
	rec.nextRoot = nil
	rec.nextRenderExpirationTime = NoWork
	rec.nextUnitOfWork = nil
}

func (rec *Reconciler) addRootToSchedule(root *Root) {
	for _, r := range rec.scheduledRoots {
		if r == root {
			return
		}
	}
	rec.scheduledRoots = append(rec.scheduledRoots, root)
}

func (rec *Reconciler) findHighestPriorityRoot() (*Root, ExpirationTime) {
	var best *Root
	bestExp := NoWork
	kept := rec.scheduledRoots[:0]
	for _, r := range rec.scheduledRoots {
		if r.expirationTime == NoWork {
			continue
		}
		kept = append(kept, r)
		if best == nil || r.expirationTime < bestExp {
			best = r
			bestExp = r.expirationTime
		}
	}
	rec.scheduledRoots = kept
	return best, bestExp
}

func (rec *Reconciler) requestWork(root *Root, expirationTime ExpirationTime) {
	rec.addRootToSchedule(root)
	if rec.isRendering {
		// Picked up by the work loop already on the stack.
		return
	}
	if rec.isBatchingUpdates {
		return
	}
	if expirationTime == Sync {
		rec.performSyncWork()
		return
	}
	rec.ensureRootCallback(root)
}

// ensureRootCallback keeps exactly one scheduler callback per root, at the
// priority of the root's most urgent pending work.
func (rec *Reconciler) ensureRootCallback(root *Root) {
	exp := root.expirationTime
	if exp == NoWork {
		if root.callbackTask != nil {
			rec.sched.Cancel(root.callbackTask)
			root.callbackTask = nil
			root.callbackExpiration = NoWork
		}
		return
	}
	if root.callbackTask != nil {
		if atLeastAsUrgent(root.callbackExpiration, exp) {
			return
		}
		rec.sched.Cancel(root.callbackTask)
	}
	root.callbackExpiration = exp
	pri := priorityForExpiration(rec.sched.Now(), exp)
	root.callbackTask = rec.sched.Schedule(pri, func(didTimeout bool) scheduler.Callback {
		return rec.performConcurrentCallback(root, didTimeout)
	})
}

func (rec *Reconciler) performConcurrentCallback(root *Root, didTimeout bool) scheduler.Callback {
	root.callbackTask = nil
	root.callbackExpiration = NoWork

	// Pending cleanups must not survive into a new render.
	rec.FlushPassiveEffects()

	exp := root.expirationTime
	if exp == NoWork {
		return nil
	}
	rec.performWorkOnRoot(root, exp, !didTimeout)
	rec.ensureScheduled()

	if root.expirationTime != NoWork && root.callbackTask == nil {
		return func(dt bool) scheduler.Callback {
			return rec.performConcurrentCallback(root, dt)
		}
	}
	return nil
}

func (rec *Reconciler) performSyncWork() {
	if rec.isRendering {
		return
	}
	rec.isRendering = true
	defer func() { rec.isRendering = false }()

	iterations := 0
	for {
		root, exp := rec.findHighestPriorityRoot()
		if root == nil || exp != Sync {
			break
		}
		// Pending cleanups must not survive into the new render. With no
		// sync work the passives stay queued for their own later task.
		rec.FlushPassiveEffects()
		iterations++
		if iterations > nestedUpdateLimit {
			rec.pendingFatal = errMaxUpdateDepth
			rec.reportError(nil, errMaxUpdateDepth)
			rec.markRootFailed(root)
			break
		}
		rec.performWorkOnRoot(root, exp, false)
	}
	rec.ensureScheduled()
}

// ensureScheduled re-arms scheduler callbacks for every root that still
// has pending work, e.g. deferred low-priority updates after a sync
// commit.
func (rec *Reconciler) ensureScheduled() {
	for _, root := range rec.scheduledRoots {
		if root.expirationTime != NoWork {
			rec.ensureRootCallback(root)
		}
	}
}

func (rec *Reconciler) performWorkOnRoot(root *Root, expirationTime ExpirationTime, isYieldy bool) {
	wasRendering := rec.isRendering
	rec.isRendering = true
	defer func() { rec.isRendering = wasRendering }()

	if root.finishedWork != nil {
		// A previous slice finished rendering but yielded before
		// committing.
		rec.completeRoot(root, root.finishedWork)
		return
	}

	rec.renderRoot(root, expirationTime, isYieldy)
	if root.finishedWork != nil {
		if !isYieldy || !rec.sched.ShouldYield() {
			rec.completeRoot(root, root.finishedWork)
		}
	}
}

// renderRoot drives the resumable render pass for one root at one
// priority. It either finishes (root.finishedWork set), yields
// (nextUnitOfWork left in place for the continuation), or fails fatally.
func (rec *Reconciler) renderRoot(root *Root, expirationTime ExpirationTime, isYieldy bool) {
	rec.isWorking = true
	defer func() { rec.isWorking = false }()

	if root != rec.nextRoot || expirationTime != rec.nextRenderExpirationTime || rec.nextUnitOfWork == nil {
		rec.resetStack()
		rec.nextRoot = root
		rec.nextRenderExpirationTime = expirationTime
		rec.nextUnitOfWork = createWorkInProgress(root.current, root.current.pendingProps, root.current.pendingChildren)
		rec.didFatal = false
		rec.fatalError = nil
	}

	for {
		panicValue, didPanic := rec.runWorkLoop(isYieldy)
		if !didPanic {
			break
		}

		sourceFiber := rec.nextUnitOfWork
		if sourceFiber == nil || sourceFiber.ret == nil {
			// Failure with nowhere to unwind to.
			rec.didFatal = true
			rec.fatalError = toError(panicValue)
			rec.resetStack()
			break
		}
		rec.throwException(root, sourceFiber.ret, sourceFiber, panicValue, expirationTime)
		rec.nextUnitOfWork = rec.completeUnitOfWork(sourceFiber)
		if rec.nextUnitOfWork == nil {
			break
		}
	}

	if rec.didFatal {
		err := rec.fatalError
		rec.didFatal = false
		rec.fatalError = nil
		rec.nextRoot = nil
		rec.nextRenderExpirationTime = NoWork
		rec.nextUnitOfWork = nil
		root.finishedWork = nil
		rec.markRootFailed(root)
		rec.pendingFatal = errors.Join(rec.pendingFatal, err)
		rec.reportError(nil, err)
		return
	}

	if rec.nextUnitOfWork != nil {
		// Yielded; the continuation resumes from here.
		return
	}

	root.finishedWork = root.current.alternate
	root.finishedExpirationTime = expirationTime
	rec.nextRoot = nil
	rec.nextRenderExpirationTime = NoWork
}

// runWorkLoop executes units of work until done, yield, or panic. The
// panic is returned rather than rethrown so renderRoot can unwind the
// fiber that caused it.
func (rec *Reconciler) runWorkLoop(isYieldy bool) (panicValue any, didPanic bool) {
	defer func() {
		if r := recover(); r != nil {
			panicValue = r
			didPanic = true
		}
	}()
	if isYieldy {
		for rec.nextUnitOfWork != nil && !rec.sched.ShouldYield() {
			rec.nextUnitOfWork = rec.performUnitOfWork(rec.nextUnitOfWork)
		}
	} else {
		for rec.nextUnitOfWork != nil {
			rec.nextUnitOfWork = rec.performUnitOfWork(rec.nextUnitOfWork)
		}
	}
	return nil, false
}

func (rec *Reconciler) performUnitOfWork(wip *Fiber) *Fiber {
	current := wip.alternate
	next := rec.beginWork(current, wip, rec.nextRenderExpirationTime)
	wip.memoizedProps = wip.pendingProps
	wip.memoizedChildren = wip.pendingChildren
	if next == nil {
		next = rec.completeUnitOfWork(wip)
	}
	return next
}

// completeUnitOfWork walks back up from a finished (or failed) fiber,
// finalizing each one and splicing its effect list into the parent's so
// the root ends up with a single children-before-parent ordered list.
func (rec *Reconciler) completeUnitOfWork(wip *Fiber) *Fiber {
	for {
		current := wip.alternate
		returnFiber := wip.ret
		siblingFiber := wip.sibling

		if !wip.effectTag.has(Incomplete) {
			rec.completeWork(current, wip)
			resetChildExpirationTime(wip)

			if returnFiber != nil && !returnFiber.effectTag.has(Incomplete) {
				if returnFiber.firstEffect == nil {
					returnFiber.firstEffect = wip.firstEffect
				}
				if wip.lastEffect != nil {
					if returnFiber.lastEffect != nil {
						returnFiber.lastEffect.nextEffect = wip.firstEffect
					}
					returnFiber.lastEffect = wip.lastEffect
				}
				if wip.effectTag&^PerformedWork != NoEffect {
					if returnFiber.lastEffect != nil {
						returnFiber.lastEffect.nextEffect = wip
					} else {
						returnFiber.firstEffect = wip
					}
					returnFiber.lastEffect = wip
				}
			}

			if siblingFiber != nil {
				return siblingFiber
			}
			if returnFiber != nil {
				wip = returnFiber
				continue
			}
			return nil
		}

		// This fiber did not complete; unwind it. A capturing boundary
		// becomes the next unit and re-renders with DidCapture set.
		next := rec.unwindWork(wip)
		if next != nil {
			next.effectTag &^= Incomplete
			return next
		}

		if returnFiber != nil {
			returnFiber.firstEffect = nil
			returnFiber.lastEffect = nil
			returnFiber.effectTag |= Incomplete
		}

		if siblingFiber != nil {
			// Siblings of the failed subtree still render; the capture
			// happens above them.
			return siblingFiber
		}
		if returnFiber != nil {
			wip = returnFiber
			continue
		}
		return nil
	}
}

// completeRoot hands a finished tree to the commit phase and accounts for
// whatever work remains (deferred updates, work scheduled by lifecycles).
func (rec *Reconciler) completeRoot(root *Root, finishedWork *Fiber) {
	root.finishedWork = nil
	root.finishedExpirationTime = NoWork

	rec.commitRoot(root, finishedWork)

	remaining := mostUrgent(finishedWork.expirationTime, finishedWork.childExpirationTime)
	root.expirationTime = remaining
}

func (rec *Reconciler) markRootFailed(root *Root) {
	root.expirationTime = NoWork
	root.finishedWork = nil
	if root.callbackTask != nil {
		rec.sched.Cancel(root.callbackTask)
		root.callbackTask = nil
		root.callbackExpiration = NoWork
	}
}
