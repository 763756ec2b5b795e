package scheduler

import (
	"math"
	"time"
)

// Priority orders scheduled callbacks. Lower values run first when their
// expirations tie; expirations derived from the priority timeouts decide
// the order otherwise.
type Priority int

const (
	NoPriority Priority = iota
	ImmediatePriority
	UserBlockingPriority
	NormalPriority
	LowPriority
	IdlePriority
)

func (p Priority) String() string {
	switch p {
	case ImmediatePriority:
		return "immediate"
	case UserBlockingPriority:
		return "user-blocking"
	case NormalPriority:
		return "normal"
	case LowPriority:
		return "low"
	case IdlePriority:
		return "idle"
	default:
		return "none"
	}
}

// Timeout returns the priority's expiration offset in milliseconds.
// Immediate work is already expired when scheduled.
func (p Priority) Timeout() int64 {
	switch p {
	case ImmediatePriority:
		return -1
	case UserBlockingPriority:
		return 250
	case LowPriority:
		return 10_000
	case IdlePriority:
		return math.MaxInt32
	default:
		return 5_000
	}
}

// Callback is one unit of host work. didTimeout reports that the task
// expired before it ran, so it must not yield. A non-nil continuation is
// re-enqueued under the task's original expiration.
type Callback func(didTimeout bool) (continuation Callback)

// Task is a scheduled callback, linked into the scheduler's task list.
type Task struct {
	callback   Callback
	priority   Priority
	expiration int64
	prev, next *Task
	cancelled  bool
}

// Scheduler is the host scheduling primitive: a single-goroutine priority
// callback queue with cooperative time slicing. Nothing runs until the
// owner calls one of the Flush methods, so execution order is fully
// deterministic.
type Scheduler struct {
	now func() int64

	head, tail *Task

	currentPriority Priority
	isFlushing      bool

	// time-slice state for the task currently running
	frameDeadline int64
	yieldPolls    int
	yieldBudget   int // <0 means deadline-based
}

// New returns a scheduler using wall-clock milliseconds. Tests usually
// replace the clock with NewManual.
func New() *Scheduler {
	start := time.Now()
	return &Scheduler{
		now:         func() int64 { return time.Since(start).Milliseconds() },
		yieldBudget: -1,
	}
}

// NewManual returns a scheduler on a virtual clock plus the function that
// advances it.
func NewManual() (*Scheduler, func(ms int64)) {
	var clock int64
	s := &Scheduler{
		now:         func() int64 { return clock },
		yieldBudget: -1,
	}
	advance := func(ms int64) { clock += ms }
	return s, advance
}

// Now is the scheduler's clock in milliseconds.
func (s *Scheduler) Now() int64 { return s.now() }

// CurrentPriority is the priority of the callback currently running, or
// NormalPriority outside of any callback.
func (s *Scheduler) CurrentPriority() Priority {
	if s.currentPriority == NoPriority {
		return NormalPriority
	}
	return s.currentPriority
}

// RunWithPriority invokes fn with the ambient priority set, restoring the
// previous one on return. Work scheduled by fn inherits this priority.
func (s *Scheduler) RunWithPriority(pri Priority, fn func()) {
	prev := s.currentPriority
	s.currentPriority = pri
	defer func() { s.currentPriority = prev }()
	fn()
}

// Schedule enqueues cb at the given priority. The task list stays sorted
// by expiration; ties keep insertion order.
func (s *Scheduler) Schedule(pri Priority, cb Callback) *Task {
	if pri == NoPriority {
		pri = s.CurrentPriority()
	}
	t := &Task{
		callback:   cb,
		priority:   pri,
		expiration: s.now() + pri.Timeout(),
	}
	s.insert(t)
	return t
}

func (s *Scheduler) insert(t *Task) {
	at := s.head
	for at != nil && at.expiration <= t.expiration {
		at = at.next
	}
	if at == nil {
		t.prev = s.tail
		if s.tail != nil {
			s.tail.next = t
		} else {
			s.head = t
		}
		s.tail = t
		return
	}
	t.next = at
	t.prev = at.prev
	if at.prev != nil {
		at.prev.next = t
	} else {
		s.head = t
	}
	at.prev = t
}

// Cancel removes a task. Cancelling the currently running task discards
// its continuation.
func (s *Scheduler) Cancel(t *Task) {
	if t == nil || t.cancelled {
		return
	}
	t.cancelled = true
	if t.prev != nil {
		t.prev.next = t.next
	} else if s.head == t {
		s.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else if s.tail == t {
		s.tail = t.prev
	}
	t.prev, t.next = nil, nil
}

// HasPendingWork reports whether any task is queued.
func (s *Scheduler) HasPendingWork() bool { return s.head != nil }

// ShouldYield is polled by cooperative callbacks between units of work.
// Under a poll budget (FlushWork) it trips after the budgeted number of
// polls; otherwise it trips when the frame deadline passed.
func (s *Scheduler) ShouldYield() bool {
	if s.yieldBudget >= 0 {
		s.yieldPolls++
		return s.yieldPolls > s.yieldBudget
	}
	return s.now() >= s.frameDeadline
}

const frameLength = 5 // ms per cooperative slice

// FlushAll runs queued tasks until the queue drains. Callbacks that check
// ShouldYield never see a deadline, so each task runs to completion.
func (s *Scheduler) FlushAll() {
	for s.head != nil {
		s.runTask(s.head, true)
	}
}

// FlushWork runs the most urgent task with a deterministic poll budget:
// the task's ShouldYield polls answer false budget times, then true. A
// yielded continuation stays queued. Reports whether any task ran.
func (s *Scheduler) FlushWork(budget int) bool {
	t := s.head
	if t == nil {
		return false
	}
	s.yieldBudget = budget
	s.yieldPolls = 0
	defer func() { s.yieldBudget = -1 }()
	s.runTask(t, false)
	return true
}

// FlushExpired runs only tasks whose expiration has passed, without
// yielding. Used by hosts that pump the queue on a timer.
func (s *Scheduler) FlushExpired() {
	now := s.now()
	for s.head != nil && s.head.expiration <= now {
		s.runTask(s.head, true)
	}
}

func (s *Scheduler) runTask(t *Task, forceNoYield bool) {
	if s.isFlushing {
		panic("scheduler: re-entrant flush")
	}
	s.Cancel(t)
	t.cancelled = false

	didTimeout := forceNoYield || t.expiration <= s.now()
	s.frameDeadline = s.now() + frameLength

	s.isFlushing = true
	prevPri := s.currentPriority
	s.currentPriority = t.priority
	cont := t.callback(didTimeout)
	s.currentPriority = prevPri
	s.isFlushing = false

	if cont != nil {
		// Continuations keep the original expiration so interrupted work
		// cannot starve.
		t.callback = cont
		t.prev, t.next = nil, nil
		s.insert(t)
	}
}
