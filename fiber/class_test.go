package fiber_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProgrammingAlternatives/fiberparty/element"
	"github.com/ProgrammingAlternatives/fiberparty/fiber"
)

type statefulCounter struct {
	fiber.ComponentBase
	log     *[]string
	renders int
}

func (c *statefulCounter) InitialState(props element.Props) any {
	return element.Props{"n": 0, "label": "count"}
}

func (c *statefulCounter) Render(props element.Props, state any) *element.Element {
	c.renders++
	s := state.(element.Props)
	return label(s["label"].(string) + ":" + itoa(s["n"].(int)))
}

func (c *statefulCounter) DidMount() { *c.log = append(*c.log, "mount") }

func (c *statefulCounter) DidUpdate(prevProps element.Props, prevState any) {
	*c.log = append(*c.log, "update:"+itoa(prevState.(element.Props)["n"].(int)))
}

func (c *statefulCounter) WillUnmount() { *c.log = append(*c.log, "unmount") }

func mountCounter(t *testing.T) (*harness, *statefulCounter, *[]string) {
	t.Helper()
	h := newHarness(t)
	log := &[]string{}
	var inst *statefulCounter
	factory := fiber.ComponentFactory(func() fiber.Component {
		inst = &statefulCounter{log: log}
		return inst
	})
	h.renderSync(element.New(factory, nil))
	require.NotNil(t, inst)
	return h, inst, log
}

// mount seeds state from InitialState and fires DidMount after commit
func TestClassMount(t *testing.T) {
	h, inst, log := mountCounter(t)

	assert.Equal(t, "count:0", h.container.Children[0].Text)
	assert.Equal(t, []string{"mount"}, *log)
	assert.Equal(t, 1, inst.renders)
}

// SetState shallow-merges prop-map states and fires DidUpdate
func TestClassSetStateMerges(t *testing.T) {
	h, inst, log := mountCounter(t)

	inst.SetState(element.Props{"n": 5})
	h.flush()

	// The untouched key survives the merge.
	assert.Equal(t, "count:5", h.container.Children[0].Text)
	assert.Equal(t, []string{"mount", "update:0"}, *log)
}

// functional payloads see the state with all earlier updates applied
func TestClassSetStateOrdering(t *testing.T) {
	h, inst, _ := mountCounter(t)

	step := func(prev any, props element.Props) any {
		return element.Props{"n": prev.(element.Props)["n"].(int)*10 + 1}
	}
	inst.SetState(step)
	inst.SetState(step)
	inst.SetState(element.Props{"n": 7})
	h.flush()

	assert.Equal(t, "count:7", h.container.Children[0].Text)
}

// the SetState callback fires after the transition is committed
func TestClassSetStateCallback(t *testing.T) {
	h, inst, _ := mountCounter(t)

	var seen string
	inst.SetStateWithCallback(element.Props{"n": 2}, func() {
		seen = h.container.Children[0].Text
	})
	h.flush()

	assert.Equal(t, "count:2", seen)
}

// WillUnmount fires while the subtree is being removed
func TestClassUnmount(t *testing.T) {
	h, _, log := mountCounter(t)

	h.renderSync(element.New("div", nil))

	assert.Equal(t, []string{"mount", "unmount"}, *log)
	assert.Equal(t, "div", h.container.Children[0].Type)
}

type gatedComponent struct {
	fiber.ComponentBase
	renders int
	allow   bool
}

func (g *gatedComponent) InitialState(props element.Props) any { return element.Props{"n": 0} }

func (g *gatedComponent) ShouldUpdate(oldProps, newProps element.Props, oldState, newState any) bool {
	return g.allow
}

func (g *gatedComponent) Render(props element.Props, state any) *element.Element {
	g.renders++
	return label(itoa(state.(element.Props)["n"].(int)))
}

// a ShouldUpdate veto skips the render but keeps the computed state, and
// ForceUpdate bypasses the gate
func TestShouldUpdateVetoAndForce(t *testing.T) {
	h := newHarness(t)
	var inst *gatedComponent
	factory := fiber.ComponentFactory(func() fiber.Component {
		inst = &gatedComponent{}
		return inst
	})
	h.renderSync(element.New(factory, nil))
	assert.Equal(t, 1, inst.renders)

	inst.SetState(element.Props{"n": 9})
	h.flush()
	assert.Equal(t, 1, inst.renders)
	assert.Equal(t, "0", h.container.Children[0].Text)

	inst.ForceUpdate()
	h.flush()
	assert.Equal(t, 2, inst.renders)
	// The vetoed transition was memoized and shows up now.
	assert.Equal(t, "9", h.container.Children[0].Text)
}
