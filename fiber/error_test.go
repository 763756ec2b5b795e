package fiber_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProgrammingAlternatives/fiberparty/element"
	"github.com/ProgrammingAlternatives/fiberparty/fiber"
)

type errorBoundary struct {
	fiber.ComponentBase
	caught *[]string
}

func (b *errorBoundary) InitialState(props element.Props) any {
	return element.Props{"failed": false}
}

func (b *errorBoundary) CatchError(err error) any {
	return element.Props{"failed": true}
}

func (b *errorBoundary) DidCatch(err error) {
	*b.caught = append(*b.caught, err.Error())
}

func (b *errorBoundary) Render(props element.Props, state any) *element.Element {
	if state.(element.Props)["failed"].(bool) {
		return element.New("fallback", nil)
	}
	return props["child"].(*element.Element)
}

func boundaryFactory(caught *[]string) fiber.ComponentFactory {
	return func() fiber.Component { return &errorBoundary{caught: caught} }
}

var bomb = fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
	panic(errors.New("boom"))
})

// a render panic below a boundary shows the boundary's fallback and is
// not surfaced as a fatal error
func TestErrorBoundaryCaptures(t *testing.T) {
	h := newHarness(t)
	var caught []string

	require.NoError(t, h.root.RenderSync(
		element.New(boundaryFactory(&caught), element.Props{"child": element.New(bomb, nil)}),
	))

	assert.Equal(t, "<fallback/>\n", h.container.String())
	assert.Equal(t, []string{"boom"}, caught)
}

// healthy siblings of the failed subtree still commit
func TestErrorBoundaryKeepsSiblings(t *testing.T) {
	h := newHarness(t)
	var caught []string

	require.NoError(t, h.root.RenderSync(element.New("div", nil,
		element.New("healthy", nil),
		element.New(boundaryFactory(&caught), element.Props{"child": element.New(bomb, nil)}),
	)))

	div := h.container.Children[0]
	require.Len(t, div.Children, 2)
	assert.Equal(t, "healthy", div.Children[0].Type)
	assert.Equal(t, "fallback", div.Children[1].Type)
}

// an error with no boundary is fatal for the attempt; the committed tree
// stays untouched
func TestUncaughtErrorIsFatal(t *testing.T) {
	h := newHarness(t)

	h.renderSync(element.New("stable", nil))

	err := h.root.RenderSync(element.New(bomb, nil))
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, "<stable/>\n", h.container.String())
}

// a boundary whose own fallback fails escalates to the next boundary up
func TestFailedBoundaryEscalates(t *testing.T) {
	h := newHarness(t)
	var outer, inner []string

	badBoundary := fiber.ComponentFactory(func() fiber.Component {
		return &explodingBoundary{caught: &inner}
	})
	require.NoError(t, h.root.RenderSync(
		element.New(boundaryFactory(&outer), element.Props{
			"child": element.New(badBoundary, element.Props{"child": element.New(bomb, nil)}),
		}),
	))

	assert.Equal(t, "<fallback/>\n", h.container.String())
	assert.NotEmpty(t, outer)
}

// explodingBoundary captures, then panics while rendering its fallback.
type explodingBoundary struct {
	fiber.ComponentBase
	caught *[]string
}

func (b *explodingBoundary) InitialState(props element.Props) any {
	return element.Props{"failed": false}
}

func (b *explodingBoundary) CatchError(err error) any {
	return element.Props{"failed": true}
}

func (b *explodingBoundary) DidCatch(err error) {
	*b.caught = append(*b.caught, err.Error())
}

func (b *explodingBoundary) Render(props element.Props, state any) *element.Element {
	if state.(element.Props)["failed"].(bool) {
		panic(errors.New("fallback failed too"))
	}
	return props["child"].(*element.Element)
}

// a boundary that already caught once catches again after recovering
func TestErrorBoundaryCatchesRepeatedly(t *testing.T) {
	h := newHarness(t)
	var caught []string

	var b *errorBoundary
	factory := fiber.ComponentFactory(func() fiber.Component {
		b = &errorBoundary{caught: &caught}
		return b
	})

	require.NoError(t, h.root.RenderSync(
		element.New(factory, element.Props{"child": element.New(bomb, nil)}),
	))
	assert.Equal(t, "<fallback/>\n", h.container.String())
	require.Equal(t, []string{"boom"}, caught)

	// Recover, render the failing child again.
	require.NoError(t, h.rec.FlushSync(func() {
		b.SetState(element.Props{"failed": false})
	}))

	assert.Equal(t, "<fallback/>\n", h.container.String())
	assert.Equal(t, []string{"boom", "boom"}, caught, "the second failure must reach the same boundary")
}

// errors the reconciler swallows during commit reach the OnError callback
func TestOnErrorReceivesCommitPanics(t *testing.T) {
	var reported []error
	h := newHarness(t)
	rec := fiber.NewReconciler(h.renderer, h.sched, func(from *fiber.Fiber, err error) {
		reported = append(reported, err)
	})
	ct := h.renderer.NewContainer()
	root := rec.CreateRoot(ct)

	comp := fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
		hk.UseLayoutEffect(func() func() {
			panic(errors.New("layout blew up"))
		}, []any{})
		return label("x")
	})

	require.NoError(t, root.RenderSync(element.New(comp, nil)))
	require.Len(t, reported, 1)
	assert.ErrorContains(t, reported[0], "layout blew up")
	// The commit survived the panic.
	assert.Equal(t, "x", ct.Children[0].Text)
}
