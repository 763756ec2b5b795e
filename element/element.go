package element

// Props carries the named inputs of one element. Props maps are treated as
// immutable once an element is created; the reconciler compares them by map
// identity to decide whether a subtree can bail out.
type Props map[string]any

// Element is one node of a declarative component description tree.
//
// Type is one of:
//   - string: a host component ("div", "view", ...)
//   - FragmentType: a keyless grouping with no host output of its own
//   - SuspenseType: a fallback boundary
//   - a component value understood by the fiber package (function or
//     stateful component, context provider)
type Element struct {
	Type     any
	Key      string
	Props    Props
	Children []*Element
}

type fragmentType struct{}
type suspenseType struct{}
type portalType struct{}
type textType struct{}

var (
	// FragmentType groups children without introducing a host instance.
	FragmentType fragmentType
	// SuspenseType marks a fallback boundary. The "fallback" prop holds the
	// element rendered while a descendant is not ready.
	SuspenseType suspenseType
	// PortalType renders its children into a foreign container. The
	// container lives in the reserved "__container" prop.
	PortalType portalType
	// TextType is a literal text node; its content is the "text" prop.
	TextType textType
)

// PortalContainerProp is the reserved prop naming a portal's target.
const PortalContainerProp = "__container"

// TextProp is the reserved prop holding a text node's content.
const TextProp = "text"

// FallbackProp is the reserved prop holding a suspense boundary's fallback.
const FallbackProp = "fallback"

func New(typ any, props Props, children ...*Element) *Element {
	return &Element{
		Type:     typ,
		Props:    props,
		Children: children,
	}
}

// WithKey returns el with its reconciliation key set. Keys establish
// identity across renders for children of the same parent.
func WithKey(key string, el *Element) *Element {
	el.Key = key
	return el
}

func Text(s string) *Element {
	return &Element{
		Type:  TextType,
		Props: Props{TextProp: s},
	}
}

func Fragment(children ...*Element) *Element {
	return &Element{
		Type:     FragmentType,
		Children: children,
	}
}

// Suspense builds a fallback boundary. While any descendant signals "not
// ready" the boundary shows fallback instead of its children.
func Suspense(fallback *Element, children ...*Element) *Element {
	return &Element{
		Type:     SuspenseType,
		Props:    Props{FallbackProp: fallback},
		Children: children,
	}
}

// Portal renders children into container instead of the nearest host
// parent. The children still belong to this tree for state, context and
// event purposes.
func Portal(container any, children ...*Element) *Element {
	return &Element{
		Type:     PortalType,
		Props:    Props{PortalContainerProp: container},
		Children: children,
	}
}

// TextContent returns the literal content of a text element.
func (e *Element) TextContent() string {
	if e == nil || e.Props == nil {
		return ""
	}
	s, _ := e.Props[TextProp].(string)
	return s
}

// Fallback returns the fallback element of a suspense boundary, nil when
// none was given.
func (e *Element) Fallback() *Element {
	if e == nil || e.Props == nil {
		return nil
	}
	fb, _ := e.Props[FallbackProp].(*Element)
	return fb
}

// PortalContainer returns the container a portal element targets.
func (e *Element) PortalContainer() any {
	if e == nil || e.Props == nil {
		return nil
	}
	return e.Props[PortalContainerProp]
}
