package fiber

// WorkTag is the closed set of component kinds. Begin, complete and commit
// dispatch over it with exhaustive switches.
type WorkTag uint8

const (
	FunctionComponentTag WorkTag = iota
	ClassComponentTag
	HostRootTag
	HostComponentTag
	HostTextTag
	FragmentTag
	SuspenseComponentTag
	ContextProviderTag
	PortalTag
)

func (t WorkTag) String() string {
	switch t {
	case FunctionComponentTag:
		return "function"
	case ClassComponentTag:
		return "class"
	case HostRootTag:
		return "root"
	case HostComponentTag:
		return "host"
	case HostTextTag:
		return "text"
	case FragmentTag:
		return "fragment"
	case SuspenseComponentTag:
		return "suspense"
	case ContextProviderTag:
		return "provider"
	case PortalTag:
		return "portal"
	default:
		return "unknown"
	}
}

// SideEffectTag records which commit work a fiber needs.
type SideEffectTag uint16

const (
	NoEffect SideEffectTag = 0

	PerformedWork SideEffectTag = 1 << iota
	Placement
	UpdateEffect
	Deletion
	ContentReset
	Callback
	DidCapture
	Passive
	Incomplete
	ShouldCapture

	PlacementAndUpdate = Placement | UpdateEffect

	// HostEffectMask selects the effects the mutation sub-pass consumes.
	HostEffectMask = Placement | UpdateEffect | Deletion | ContentReset
)

func (t SideEffectTag) has(mask SideEffectTag) bool { return t&mask != 0 }
