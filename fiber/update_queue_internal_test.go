package fiber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProgrammingAlternatives/fiberparty/element"
	"github.com/ProgrammingAlternatives/fiberparty/scheduler"
)

// a skipped update anchors the rebase point; later included updates
// still apply now and re-apply next pass, keeping enqueue order
func TestProcessUpdateQueueSkipAndRebase(t *testing.T) {
	rec := NewReconciler(nil, scheduler.New(), nil)

	f := newFiber(ClassComponentTag, nil, "")
	f.memoizedState = element.Props{}
	enqueueUpdate(f, &Update{expirationTime: 100, tag: UpdateState, payload: element.Props{"a": 1}})
	enqueueUpdate(f, &Update{expirationTime: 500, tag: UpdateState, payload: element.Props{"b": 2}})
	enqueueUpdate(f, &Update{expirationTime: 100, tag: UpdateState, payload: element.Props{"c": 3}})

	wip := createWorkInProgress(f, nil, nil)
	q := wip.updateQueue
	require.NotNil(t, q)

	rec.processUpdateQueue(wip, q, nil, nil, 100)

	state := wip.memoizedState.(element.Props)
	assert.Equal(t, element.Props{"a": 1, "c": 3}, state)
	assert.Equal(t, ExpirationTime(500), wip.expirationTime, "the deferred update must stay pending")
	require.NotNil(t, q.firstUpdate)
	assert.Equal(t, ExpirationTime(500), q.firstUpdate.expirationTime, "rebase anchor is the first skipped update")
	assert.Equal(t, element.Props{"a": 1}, q.baseState.(element.Props))

	// The follow-up pass includes everything from the anchor onward.
	rec.processUpdateQueue(wip, q, nil, nil, 500)

	state = wip.memoizedState.(element.Props)
	assert.Equal(t, element.Props{"a": 1, "b": 2, "c": 3}, state)
	assert.Equal(t, NoWork, wip.expirationTime)
	assert.Nil(t, q.firstUpdate)
	assert.Equal(t, state, q.baseState.(element.Props), "a drained queue's base is the folded state")
}

// draining the queue advances the base; a later force update must fold
// from the last result, not resurrect pre-drain state
func TestProcessUpdateQueueDrainAdvancesBase(t *testing.T) {
	rec := NewReconciler(nil, scheduler.New(), nil)

	f := newFiber(ClassComponentTag, nil, "")
	f.memoizedState = element.Props{"n": 0}
	enqueueUpdate(f, &Update{expirationTime: Sync, tag: UpdateState, payload: element.Props{"n": 9}})

	wip := createWorkInProgress(f, nil, nil)
	q := wip.updateQueue
	require.NotNil(t, q)

	rec.processUpdateQueue(wip, q, nil, nil, Sync)
	assert.Equal(t, element.Props{"n": 9}, q.baseState.(element.Props))

	enqueueUpdate(wip, &Update{expirationTime: Sync, tag: ForceUpdate})
	rec.processUpdateQueue(wip, q, nil, nil, Sync)

	assert.Equal(t, element.Props{"n": 9}, wip.memoizedState.(element.Props))
	assert.True(t, q.hasForceUpdate)
}

// updates land on both buffers of the pair, whichever one renders next
func TestEnqueueUpdateReachesBothQueues(t *testing.T) {
	f := newFiber(ClassComponentTag, nil, "")
	f.memoizedState = element.Props{}
	wip := createWorkInProgress(f, nil, nil)

	enqueueUpdate(f, &Update{expirationTime: Sync, tag: UpdateState, payload: element.Props{"x": 1}})

	require.NotNil(t, f.updateQueue.firstUpdate)
	require.NotNil(t, wip.updateQueue.firstUpdate)
	assert.Same(t, f.updateQueue.lastUpdate, wip.updateQueue.lastUpdate)
}

// functional payloads observe the state with earlier updates applied
func TestGetStateFromUpdateFunctionalPayload(t *testing.T) {
	u := &Update{tag: UpdateState, payload: func(prev any, props element.Props) any {
		return element.Props{"n": prev.(element.Props)["n"].(int) + 1}
	}}
	out := getStateFromUpdate(u, element.Props{"n": 41, "keep": true}, nil, nil)
	assert.Equal(t, element.Props{"n": 42, "keep": true}, out.(element.Props))
}

// close-together times share an expiration bucket, far apart ones do not
func TestAsyncExpirationBucketing(t *testing.T) {
	assert.Equal(t, computeAsyncExpiration(0), computeAsyncExpiration(100))
	assert.NotEqual(t, computeAsyncExpiration(0), computeAsyncExpiration(400))
	assert.Equal(t, computeInteractiveExpiration(0), computeInteractiveExpiration(10))
	assert.NotEqual(t, computeInteractiveExpiration(0), computeInteractiveExpiration(40))
	// Interactive expirations beat async ones from the same moment.
	assert.Less(t, computeInteractiveExpiration(0), computeAsyncExpiration(0))
}

// NoWork is absence, not urgency: comparisons must never treat it as a
// minimum
func TestExpirationComparisons(t *testing.T) {
	assert.Equal(t, ExpirationTime(5), mostUrgent(NoWork, 5))
	assert.Equal(t, ExpirationTime(5), mostUrgent(5, NoWork))
	assert.Equal(t, NoWork, mostUrgent(NoWork, NoWork))
	assert.Equal(t, Sync, mostUrgent(Sync, 5))

	assert.False(t, atLeastAsUrgent(NoWork, Sync))
	assert.True(t, atLeastAsUrgent(Sync, 5))
	assert.False(t, atLeastAsUrgent(5, Sync))
}

func TestPriorityForExpiration(t *testing.T) {
	assert.Equal(t, scheduler.ImmediatePriority, priorityForExpiration(0, Sync))
	assert.Equal(t, scheduler.ImmediatePriority, priorityForExpiration(1_000, msToExpirationTime(500)))
	assert.Equal(t, scheduler.UserBlockingPriority, priorityForExpiration(0, msToExpirationTime(400)))
	assert.Equal(t, scheduler.NormalPriority, priorityForExpiration(0, computeAsyncExpiration(0)))
}

// the value stack restores outer values in pop order and catches
// mismatched pops
func TestValueStack(t *testing.T) {
	rec := NewReconciler(nil, scheduler.New(), nil)

	var a, b stackCursor
	a.current = "a0"
	b.current = "b0"

	rec.push(&a, "a1")
	rec.push(&b, "b1")
	assert.Equal(t, "a1", a.current)
	assert.Equal(t, "b1", b.current)

	assert.Panics(t, func() { rec.pop(&a) }, "pops must mirror pushes")

	rec.pop(&b)
	rec.pop(&a)
	assert.Equal(t, "a0", a.current)
	assert.Equal(t, "b0", b.current)
}
