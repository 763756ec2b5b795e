package fiber

import (
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/ProgrammingAlternatives/fiberparty/element"
)

var contextCounter atomic.Uint64

// Context is a shared value readable anywhere below a provider. Reads go
// through the current-value slot on the context itself, so they cost O(1);
// the provider stack only exists to restore outer values on unwind.
type Context struct {
	id           uint64
	name         string
	defaultValue any

	cursor stackCursor
}

// NewContext creates a context carrying defaultValue for readers with no
// provider above them. The id is stable for the context's lifetime and
// unique across contexts, including ones sharing a name.
func NewContext(name string, defaultValue any) *Context {
	n := contextCounter.Add(1)
	c := &Context{
		id:           xxhash.Sum64String(fmt.Sprintf("%s#%d", name, n)),
		name:         name,
		defaultValue: defaultValue,
	}
	c.cursor.current = defaultValue
	return c
}

// Provide builds a provider element supplying value to the subtree.
func (c *Context) Provide(value any, children ...*element.Element) *element.Element {
	return &element.Element{
		Type:     c,
		Props:    element.Props{"value": value},
		Children: children,
	}
}

func (c *Context) providedValue(props element.Props) any {
	if props == nil {
		return c.defaultValue
	}
	return props["value"]
}

// contextDependency records one context read by a fiber during its last
// render, so a provider change can find exactly the fibers it invalidates.
type contextDependency struct {
	context *Context
	next    *contextDependency
}

func (rec *Reconciler) pushProvider(provider *Fiber, nextValue any) {
	ctx := provider.typ.(*Context)
	rec.push(&ctx.cursor, nextValue)
}

func (rec *Reconciler) popProvider(provider *Fiber) {
	ctx := provider.typ.(*Context)
	rec.pop(&ctx.cursor)
}

// prepareToReadContext resets the consuming fiber's recorded reads before
// its render runs.
func (rec *Reconciler) prepareToReadContext(wip *Fiber) {
	rec.currentlyReadingFiber = wip
	rec.lastContextDependency = nil
	wip.contextDeps = nil
}

// readContext returns the context's current value and records the read on
// the fiber being rendered.
func (rec *Reconciler) readContext(ctx *Context) any {
	consumer := rec.currentlyReadingFiber
	if consumer != nil {
		dep := &contextDependency{context: ctx}
		if rec.lastContextDependency == nil {
			consumer.contextDeps = dep
		} else {
			rec.lastContextDependency.next = dep
		}
		rec.lastContextDependency = dep
	}
	return ctx.cursor.current
}

// propagateContextChange walks the tree below a provider whose value
// changed and schedules every fiber that recorded a read of that context.
// The walk stops descending at a nested provider of the same context,
// whose subtree already observes the nested value.
func (rec *Reconciler) propagateContextChange(provider *Fiber, ctx *Context, renderExpirationTime ExpirationTime) {
	f := provider.child
	if f != nil {
		f.ret = provider
	}
	for f != nil {
		var nextFiber *Fiber

		matched := false
		for dep := f.contextDeps; dep != nil; dep = dep.next {
			if dep.context == ctx {
				matched = true
				break
			}
		}
		if matched {
			if f.tag == ClassComponentTag {
				// Context changes force class fibers past ShouldUpdate.
				enqueueUpdate(f, &Update{expirationTime: renderExpirationTime, tag: ForceUpdate})
			}
			if f.expirationTime == NoWork || renderExpirationTime < f.expirationTime {
				f.expirationTime = renderExpirationTime
			}
			if alt := f.alternate; alt != nil {
				if alt.expirationTime == NoWork || renderExpirationTime < alt.expirationTime {
					alt.expirationTime = renderExpirationTime
				}
			}
			rec.scheduleWorkOnParentPath(f.ret, renderExpirationTime)
			nextFiber = f.child
		} else if f.tag == ContextProviderTag && f.typ == ctx {
			// Shielded by a nested provider of the same context.
			nextFiber = nil
		} else {
			nextFiber = f.child
		}

		if nextFiber != nil {
			nextFiber.ret = f
		} else {
			nextFiber = f
			for nextFiber != nil {
				if nextFiber == provider {
					nextFiber = nil
					break
				}
				if s := nextFiber.sibling; s != nil {
					s.ret = nextFiber.ret
					nextFiber = s
					break
				}
				nextFiber = nextFiber.ret
			}
		}
		f = nextFiber
	}
}

// scheduleWorkOnParentPath refreshes childExpirationTime on every ancestor
// between a newly scheduled fiber and the provider (or root).
func (rec *Reconciler) scheduleWorkOnParentPath(parent *Fiber, renderExpirationTime ExpirationTime) {
	for node := parent; node != nil; node = node.ret {
		alt := node.alternate
		changed := false
		if node.childExpirationTime == NoWork || renderExpirationTime < node.childExpirationTime {
			node.childExpirationTime = renderExpirationTime
			changed = true
		}
		if alt != nil {
			if alt.childExpirationTime == NoWork || renderExpirationTime < alt.childExpirationTime {
				alt.childExpirationTime = renderExpirationTime
				changed = true
			}
		}
		if !changed {
			break
		}
	}
}
