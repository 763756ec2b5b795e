package fiber

import "github.com/ProgrammingAlternatives/fiberparty/element"

// HostConfig is the collaborator boundary to a concrete renderer. The core
// never touches the host directly; every mutation and every environment
// question goes through this interface. Implementations must not retain
// the props maps they are handed.
type HostConfig interface {
	// CreateInstance materializes a host component. It runs during the
	// complete phase, before the instance is attached anywhere.
	CreateInstance(typ string, props element.Props, rootContainer any, hostContext any) any
	CreateTextInstance(text string, rootContainer any, hostContext any) any

	// AppendInitialChild attaches children to a just-created, not yet
	// mounted instance.
	AppendInitialChild(parent, child any)

	// FinalizeInitialChildren reports whether the instance needs commit
	// work after creation (an Update effect on mount).
	FinalizeInitialChildren(instance any, typ string, props element.Props, rootContainer any) bool

	// PrepareUpdate diffs old against new props. A nil payload means no
	// host mutation is needed.
	PrepareUpdate(instance any, typ string, oldProps, newProps element.Props) any
	CommitUpdate(instance any, updatePayload any, typ string, oldProps, newProps element.Props)
	CommitTextUpdate(textInstance any, oldText, newText string)

	// ShouldSetTextContent reports whether the host handles this
	// component's text content itself, in which case no child text fibers
	// are created.
	ShouldSetTextContent(typ string, props element.Props) bool
	ResetTextContent(instance any)

	AppendChild(parent, child any)
	AppendChildToContainer(container, child any)
	InsertBefore(parent, child, beforeChild any)
	InsertInContainerBefore(container, child, beforeChild any)
	RemoveChild(parent, child any)
	RemoveChildFromContainer(container, child any)

	// GetRootHostContext and GetChildHostContext thread environment
	// nesting rules (namespaces and the like) through the tree.
	GetRootHostContext(rootContainer any) any
	GetChildHostContext(parentContext any, typ string, rootContainer any) any

	// IsPrimaryRenderer reports whether this renderer owns the context
	// current-value slots when several renderers coexist in one process.
	IsPrimaryRenderer() bool
}
