package fiber

import "github.com/ProgrammingAlternatives/fiberparty/element"

// UpdateTag distinguishes the kinds of state transition an Update can
// request.
type UpdateTag uint8

const (
	UpdateState UpdateTag = iota
	ReplaceState
	ForceUpdate
	CaptureUpdate
)

// Update is a single requested state transition. Payload is either a
// value (shallow-merged when both it and the previous state are prop
// maps, a replacement otherwise) or a func(prev any, props element.Props)
// any applied to the previous state.
type Update struct {
	expirationTime ExpirationTime
	tag            UpdateTag
	payload        any
	callback       func()
	next           *Update
	nextEffect     *Update
}

// NewUpdate builds a state update at the given priority.
func NewUpdate(expirationTime ExpirationTime, payload any) *Update {
	return &Update{expirationTime: expirationTime, tag: UpdateState, payload: payload}
}

// UpdateQueue is a fiber's singly linked, FIFO list of pending updates.
// firstUpdate tracks the first update not yet known to be committed;
// processing never reorders entries, priority only decides inclusion.
type UpdateQueue struct {
	baseState any

	firstUpdate *Update
	lastUpdate  *Update

	// Captured updates come from the unwind path (error boundaries) and
	// apply after the regular queue, only once the boundary has captured.
	firstCapturedUpdate *Update
	lastCapturedUpdate  *Update

	// Callback effects accumulated by the render in flight, consumed by
	// the commit layout sub-pass.
	firstEffect *Update
	lastEffect  *Update

	hasForceUpdate bool
}

func newUpdateQueue(baseState any) *UpdateQueue {
	return &UpdateQueue{baseState: baseState}
}

// cloneUpdateQueue forks a queue so a restarted render reprocesses from an
// unmutated baseline. The update objects themselves are shared; only the
// spine is copied.
func cloneUpdateQueue(q *UpdateQueue) *UpdateQueue {
	if q == nil {
		return nil
	}
	return &UpdateQueue{
		baseState:   q.baseState,
		firstUpdate: q.firstUpdate,
		lastUpdate:  q.lastUpdate,
	}
}

func (q *UpdateQueue) append(u *Update) {
	if q.lastUpdate == nil {
		q.firstUpdate = u
		q.lastUpdate = u
	} else {
		q.lastUpdate.next = u
		q.lastUpdate = u
	}
}

func (q *UpdateQueue) appendCaptured(u *Update) {
	if q.lastCapturedUpdate == nil {
		q.firstCapturedUpdate = u
		q.lastCapturedUpdate = u
	} else {
		q.lastCapturedUpdate.next = u
		q.lastCapturedUpdate = u
	}
}

// enqueueUpdate appends u to the fiber's pending queue and, when the
// alternate carries a distinct queue, to that queue as well, so updates
// land regardless of which buffer a concurrently running render reads.
func enqueueUpdate(f *Fiber, u *Update) {
	alt := f.alternate

	var q1, q2 *UpdateQueue
	if alt == nil {
		q1 = f.updateQueue
		if q1 == nil {
			q1 = newUpdateQueue(f.memoizedState)
			f.updateQueue = q1
		}
	} else {
		q1 = f.updateQueue
		q2 = alt.updateQueue
		if q1 == nil {
			if q2 == nil {
				q1 = newUpdateQueue(f.memoizedState)
				q2 = newUpdateQueue(alt.memoizedState)
				f.updateQueue = q1
				alt.updateQueue = q2
			} else {
				q1 = cloneUpdateQueue(q2)
				f.updateQueue = q1
			}
		} else if q2 == nil {
			q2 = cloneUpdateQueue(q1)
			alt.updateQueue = q2
		}
	}

	if q2 == nil || q1 == q2 {
		q1.append(u)
		return
	}
	if q1.lastUpdate == nil || q2.lastUpdate == nil {
		q1.append(u)
		q2.append(u)
		return
	}
	// Both queues are non-empty; their last update is the same node, so
	// appending once and fixing the other tail keeps the lists identical
	// without double-linking.
	q1.append(u)
	q2.lastUpdate = u
}

func enqueueCapturedUpdate(wip *Fiber, u *Update) {
	q := wip.updateQueue
	if q == nil {
		q = newUpdateQueue(wip.memoizedState)
		wip.updateQueue = q
	}
	q.appendCaptured(u)
}

func getStateFromUpdate(u *Update, prevState any, props element.Props, instance any) any {
	switch u.tag {
	case ReplaceState:
		if fn, ok := u.payload.(func(prev any, props element.Props) any); ok {
			return fn(prevState, props)
		}
		return u.payload
	case ForceUpdate:
		return prevState
	case UpdateState, CaptureUpdate:
		var partial any
		if fn, ok := u.payload.(func(prev any, props element.Props) any); ok {
			partial = fn(prevState, props)
		} else {
			partial = u.payload
		}
		if partial == nil {
			return prevState
		}
		prevMap, prevOk := prevState.(element.Props)
		partMap, partOk := partial.(element.Props)
		if prevOk && partOk {
			merged := make(element.Props, len(prevMap)+len(partMap))
			for k, v := range prevMap {
				merged[k] = v
			}
			for k, v := range partMap {
				merged[k] = v
			}
			return merged
		}
		return partial
	}
	return prevState
}

// processUpdateQueue folds the queue into wip's next memoized state.
// Updates less urgent than renderExpirationTime are skipped: the first
// skipped update becomes the new baseState anchor and stays queued, later
// included updates still apply now and re-apply on the next pass from that
// anchor, so commit order always equals enqueue order. The fiber's
// remaining expiration records the most urgent deferred update.
func (rec *Reconciler) processUpdateQueue(wip *Fiber, q *UpdateQueue, props element.Props, instance any, renderExpirationTime ExpirationTime) {
	q.hasForceUpdate = false

	newBaseState := q.baseState
	var newFirstUpdate *Update
	newExpirationTime := NoWork

	resultState := q.baseState
	u := q.firstUpdate
	for u != nil {
		if !atLeastAsUrgent(u.expirationTime, renderExpirationTime) {
			// Insufficient priority; defer without reordering.
			if newFirstUpdate == nil {
				newFirstUpdate = u
				newBaseState = resultState
			}
			newExpirationTime = mostUrgent(newExpirationTime, u.expirationTime)
		} else {
			if u.tag == ForceUpdate {
				q.hasForceUpdate = true
			}
			resultState = getStateFromUpdate(u, resultState, props, instance)
			if u.callback != nil {
				wip.effectTag |= Callback
				u.nextEffect = nil
				if q.lastEffect == nil {
					q.firstEffect = u
					q.lastEffect = u
				} else {
					q.lastEffect.nextEffect = u
					q.lastEffect = u
				}
			}
		}
		u = u.next
	}

	// Captured updates apply after the regular queue, and only while the
	// owning boundary holds the capture.
	if wip.effectTag.has(DidCapture) {
		u = q.firstCapturedUpdate
		for u != nil {
			resultState = getStateFromUpdate(u, resultState, props, instance)
			if u.callback != nil {
				wip.effectTag |= Callback
				u.nextEffect = nil
				if q.lastEffect == nil {
					q.firstEffect = u
					q.lastEffect = u
				} else {
					q.lastEffect.nextEffect = u
					q.lastEffect = u
				}
			}
			u = u.next
		}
	}

	if newFirstUpdate == nil {
		// Fully drained: the base catches up to the result so the next
		// pass folds from the committed state, not a stale snapshot.
		q.lastUpdate = nil
		newBaseState = resultState
	}
	q.firstUpdate = newFirstUpdate
	q.firstCapturedUpdate = nil
	q.lastCapturedUpdate = nil
	q.baseState = newBaseState

	wip.expirationTime = newExpirationTime
	wip.memoizedState = resultState
}

// commitUpdateQueue fires the callback effects accumulated for this
// commit.
func commitUpdateQueue(q *UpdateQueue) {
	for e := q.firstEffect; e != nil; e = e.nextEffect {
		cb := e.callback
		e.callback = nil
		cb()
	}
	q.firstEffect = nil
	q.lastEffect = nil
}
