package fiber

import (
	"errors"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ProgrammingAlternatives/fiberparty/element"
	"github.com/ProgrammingAlternatives/fiberparty/scheduler"
)

// OnErrorFunc receives errors the reconciler swallowed to keep a commit
// or passive flush going: lifecycle panics, effect cleanup failures,
// uncaught render errors. from is the fiber that produced the error when
// known.
type OnErrorFunc func(from *Fiber, err error)

// Reconciler owns every piece of mutable reconciliation state: the work
// loop cursors, the value stack, the hook dispatcher, pending passive
// batches. One reconciler drives any number of roots, single-threaded:
// all calls into a reconciler must come from the same goroutine that
// flushes its scheduler.
type Reconciler struct {
	cfg   HostConfig
	sched *scheduler.Scheduler

	onError      OnErrorFunc
	pendingFatal error

	hooks *Hooks

	// Render-phase value stack plus the host cursors that live on it.
	valueStack         []stackEntry
	rootInstanceCursor stackCursor
	hostContextCursor  stackCursor

	// Work loop state.
	scheduledRoots           []*Root
	nextRoot                 *Root
	nextUnitOfWork           *Fiber
	nextRenderExpirationTime ExpirationTime
	isRendering              bool
	isWorking                bool
	isCommitting             bool
	isBatchingUpdates        bool
	didFatal                 bool
	fatalError               error

	// Hook dispatcher state, valid only while renderWithHooks is on the
	// stack.
	currentlyRenderingFiber      *Fiber
	hookRenderExpirationTime     ExpirationTime
	firstCurrentHook             *Hook
	currentHook                  *Hook
	firstWorkInProgressHook      *Hook
	workInProgressHook           *Hook
	didScheduleRenderPhaseUpdate bool
	numberOfReRenders            int

	// Context read state, valid only between prepareToReadContext and the
	// end of that fiber's begin phase.
	currentlyReadingFiber *Fiber
	lastContextDependency *contextDependency

	// Class instances whose boundary already captured since the last
	// commit; a second throw from the same instance escalates upward.
	// Cleared when a commit lands.
	failedBoundaries mapset.Set[any]

	pendingPassiveBatches []*passiveBatch
	passiveTask           *scheduler.Task
}

// NewReconciler wires a reconciler to a host and a scheduler. onError may
// be nil, in which case swallowed errors are only reported through the
// Flush / FlushSync return values.
func NewReconciler(cfg HostConfig, sched *scheduler.Scheduler, onError OnErrorFunc) *Reconciler {
	rec := &Reconciler{
		cfg:              cfg,
		sched:            sched,
		onError:          onError,
		failedBoundaries: mapset.NewThreadUnsafeSet[any](),
	}
	rec.hooks = &Hooks{rec: rec}
	return rec
}

// Scheduler exposes the scheduler the reconciler runs on, mostly so
// callers can flush it in tests and single-threaded hosts.
func (rec *Reconciler) Scheduler() *scheduler.Scheduler { return rec.sched }

func (rec *Reconciler) reportError(from *Fiber, err error) {
	if rec.onError != nil {
		rec.onError(from, err)
	}
}

// Root pairs a host container with the fiber tree currently committed
// into it. current always points at the last committed tree; the
// work-in-progress tree becomes visible only through commitRoot's pointer
// swap.
type Root struct {
	rec           *Reconciler
	containerInfo any

	current *Fiber

	// Most urgent pending work anywhere in the tree, NoWork when idle.
	expirationTime ExpirationTime

	// A fully rendered tree waiting for its commit slice.
	finishedWork           *Fiber
	finishedExpirationTime ExpirationTime

	callbackTask       *scheduler.Task
	callbackExpiration ExpirationTime
}

// CreateRoot makes an empty root for a host container. Nothing renders
// until the first Render call.
func (rec *Reconciler) CreateRoot(containerInfo any) *Root {
	root := &Root{rec: rec, containerInfo: containerInfo}
	hostRoot := newFiber(HostRootTag, nil, "")
	hostRoot.stateNode = root
	hostRoot.updateQueue = newUpdateQueue(&rootState{})
	root.current = hostRoot
	return root
}

// Container returns the host container this root renders into.
func (root *Root) Container() any { return root.containerInfo }

// Current returns the committed root fiber. Test helpers walk it; hosts
// normally have no reason to.
func (root *Root) Current() *Fiber { return root.current }

// Render schedules el as the root's new single child at the caller's
// ambient priority. Rendering nil clears the tree.
func (root *Root) Render(el *element.Element) {
	rec := root.rec
	exp := rec.computeExpirationForFiber(root.current)
	enqueueUpdate(root.current, NewUpdate(exp, &rootState{element: el}))
	rec.scheduleWork(root.current, exp)
}

// RenderSync renders el synchronously: the tree is committed before
// RenderSync returns. It reports any fatal error the pass produced,
// including errors that escaped every boundary.
func (root *Root) RenderSync(el *element.Element) error {
	rec := root.rec
	rec.sched.RunWithPriority(scheduler.ImmediatePriority, func() {
		root.Render(el)
	})
	if !rec.isRendering && !rec.isBatchingUpdates {
		rec.performSyncWork()
	}
	return rec.takeFatal()
}

// Unmount tears the tree down synchronously, running unmount lifecycles
// and effect cleanups, and detaches the root from the reconciler.
func (root *Root) Unmount() error {
	err := root.RenderSync(nil)
	if ferr := root.rec.FlushPassiveEffects(); ferr != nil {
		err = errors.Join(err, ferr)
	}
	root.rec.markRootFailed(root)
	for i, r := range root.rec.scheduledRoots {
		if r == root {
			root.rec.scheduledRoots = append(root.rec.scheduledRoots[:i], root.rec.scheduledRoots[i+1:]...)
			break
		}
	}
	return err
}

// BatchedUpdates runs fn with update flushing deferred: every update fn
// schedules lands in one render pass, flushed synchronously when the
// outermost batch closes.
func (rec *Reconciler) BatchedUpdates(fn func()) {
	prev := rec.isBatchingUpdates
	rec.isBatchingUpdates = true
	defer func() {
		rec.isBatchingUpdates = prev
		if !prev && !rec.isRendering {
			rec.performSyncWork()
		}
	}()
	fn()
}

// FlushSync runs fn at immediate priority and synchronously flushes the
// work it scheduled. Calling it from inside a commit is a contract
// violation and returns an error without running fn.
func (rec *Reconciler) FlushSync(fn func()) error {
	if rec.isCommitting {
		return errors.New("fiber: FlushSync called from inside a commit, this would re-enter the work loop")
	}
	prev := rec.isBatchingUpdates
	rec.isBatchingUpdates = true
	rec.sched.RunWithPriority(scheduler.ImmediatePriority, fn)
	rec.isBatchingUpdates = prev
	if !prev && !rec.isRendering {
		rec.performSyncWork()
	}
	return rec.takeFatal()
}

// Flush drains the scheduler and pending passive effects, then reports
// any fatal error produced along the way. It is the single-threaded
// host's "run everything now" lever.
func (rec *Reconciler) Flush() error {
	rec.sched.FlushAll()
	err := rec.FlushPassiveEffects()
	if fatal := rec.takeFatal(); fatal != nil {
		err = errors.Join(fatal, err)
	}
	return err
}

func (rec *Reconciler) takeFatal() error {
	err := rec.pendingFatal
	rec.pendingFatal = nil
	return err
}
