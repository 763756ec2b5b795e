package fiber

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ProgrammingAlternatives/fiberparty/element"
)

// Fiber is one persistent unit of work: the pending and committed state of
// a single position in the component tree. Each position owns at most two
// Fiber records, the committed one ("current") and its work-in-progress
// alternate; the pair is reused for the lifetime of the position.
type Fiber struct {
	tag WorkTag
	key string
	// typ is the component definition: a host type string, a
	// FunctionComponent, a ComponentFactory, a *Context, or one of the
	// element sentinels.
	typ any
	// stateNode is the local state owner: the host instance for host
	// fibers, the Component instance for class fibers, the *Root for the
	// host root, the container for portals.
	stateNode any

	// tree links; child is the first child, siblings chain through
	// sibling, ret points back at the parent. Traversal is an explicit
	// loop so it can pause between fibers.
	ret     *Fiber
	child   *Fiber
	sibling *Fiber
	index   int

	pendingProps  element.Props
	memoizedProps element.Props
	// pendingChildren mirrors the element's child slice for the render
	// in flight; memoizedChildren is what last committed.
	pendingChildren  []*element.Element
	memoizedChildren []*element.Element

	memoizedState any
	updateQueue   *UpdateQueue
	// hookEffects is the function component's effect ring for the render
	// in flight.
	hookEffects *hookEffectQueue
	// updatePayload is the host prop delta computed by completeWork and
	// consumed by the mutation sub-pass.
	updatePayload any

	contextDeps *contextDependency

	// wakeables are the unresolved dependencies a suspense boundary is
	// waiting on, shared between both buffers of the pair.
	wakeables mapset.Set[Wakeable]

	effectTag  SideEffectTag
	nextEffect *Fiber
	// firstEffect/lastEffect is this subtree's effect list, children
	// before parents, spliced upward during complete.
	firstEffect *Fiber
	lastEffect  *Fiber

	expirationTime      ExpirationTime
	childExpirationTime ExpirationTime

	alternate *Fiber
}

// Tag exposes the fiber's kind to host renderers and tests.
func (f *Fiber) Tag() WorkTag { return f.tag }

// Key exposes the reconciliation key.
func (f *Fiber) Key() string { return f.key }

// StateNode exposes the host instance or component instance.
func (f *Fiber) StateNode() any { return f.stateNode }

func newFiber(tag WorkTag, props element.Props, key string) *Fiber {
	return &Fiber{
		tag:          tag,
		key:          key,
		pendingProps: props,
	}
}

// createWorkInProgress returns current's alternate prepared to render
// pendingProps, allocating it on first use. Effect fields are reset so a
// reused alternate never leaks effects from an abandoned render; the
// current fiber itself is never touched.
func createWorkInProgress(current *Fiber, props element.Props, children []*element.Element) *Fiber {
	wip := current.alternate
	if wip == nil {
		wip = newFiber(current.tag, props, current.key)
		wip.typ = current.typ
		wip.stateNode = current.stateNode
		wip.alternate = current
		current.alternate = wip
	} else {
		wip.pendingProps = props
		wip.effectTag = NoEffect
		wip.nextEffect = nil
		wip.firstEffect = nil
		wip.lastEffect = nil
		wip.updatePayload = nil
	}
	wip.pendingChildren = children

	wip.expirationTime = current.expirationTime
	wip.childExpirationTime = current.childExpirationTime

	wip.child = current.child
	wip.memoizedProps = current.memoizedProps
	wip.memoizedState = current.memoizedState
	wip.memoizedChildren = current.memoizedChildren
	wip.updateQueue = cloneUpdateQueue(current.updateQueue)
	wip.hookEffects = current.hookEffects
	wip.contextDeps = current.contextDeps
	wip.sibling = current.sibling
	wip.index = current.index

	return wip
}

func createFiberFromElement(el *element.Element, expirationTime ExpirationTime) *Fiber {
	var tag WorkTag
	switch typ := el.Type.(type) {
	case string:
		tag = HostComponentTag
	case FunctionComponent:
		tag = FunctionComponentTag
	case ComponentFactory:
		tag = ClassComponentTag
	case *Context:
		tag = ContextProviderTag
	default:
		switch el.Type {
		case element.FragmentType:
			tag = FragmentTag
		case element.SuspenseType:
			tag = SuspenseComponentTag
		case element.PortalType:
			tag = PortalTag
		case element.TextType:
			tag = HostTextTag
		default:
			panic(badElementType{typ})
		}
	}
	f := newFiber(tag, el.Props, el.Key)
	f.typ = el.Type
	f.pendingChildren = el.Children
	f.expirationTime = expirationTime
	if tag == PortalTag {
		f.stateNode = el.PortalContainer()
	}
	return f
}

type badElementType struct{ typ any }

func (b badElementType) Error() string {
	return "fiber: element type is not a component, host type, or sentinel"
}

// detach unlinks a deleted fiber so stale subtree pointers are not
// retained through it or its alternate.
func (f *Fiber) detach() {
	alt := f.alternate
	f.ret = nil
	f.child = nil
	f.sibling = nil
	f.firstEffect = nil
	f.lastEffect = nil
	f.nextEffect = nil
	f.stateNode = nil
	if alt != nil {
		alt.ret = nil
		alt.child = nil
		alt.sibling = nil
		alt.firstEffect = nil
		alt.lastEffect = nil
		alt.nextEffect = nil
		alt.stateNode = nil
	}
}
