package fiber_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProgrammingAlternatives/fiberparty/element"
	"github.com/ProgrammingAlternatives/fiberparty/fiber"
)

// wakeable is a manually resolved asynchronous dependency.
type wakeable struct {
	subs []func()
}

func (w *wakeable) Subscribe(fn func()) { w.subs = append(w.subs, fn) }

func (w *wakeable) resolve() {
	subs := w.subs
	w.subs = nil
	for _, fn := range subs {
		fn()
	}
}

// a suspended subtree shows the boundary's fallback, then the real
// content once the dependency resolves
func TestSuspenseFallbackAndRetry(t *testing.T) {
	h := newHarness(t)

	w := &wakeable{}
	ready := false
	loader := fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
		if !ready {
			fiber.Suspend(w)
		}
		return element.New("content", nil)
	})

	h.renderSync(element.Suspense(
		element.New("spinner", nil),
		element.New(loader, nil),
	))
	assert.Equal(t, "<spinner/>\n", h.container.String())

	ready = true
	w.resolve()
	h.flush()

	assert.Equal(t, "<content/>\n", h.container.String())
}

// resolving before anything changed re-renders once; a second resolve of
// the same wakeable is not registered twice
func TestSuspenseRetryRegistersOnce(t *testing.T) {
	h := newHarness(t)

	w := &wakeable{}
	ready := false
	attempts := 0
	loader := fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
		attempts++
		if !ready {
			fiber.Suspend(w)
		}
		return element.New("content", nil)
	})

	h.renderSync(element.Suspense(
		element.New("spinner", nil),
		element.New(loader, nil),
	))
	assert.Equal(t, 1, len(w.subs), "one listener per wakeable per boundary")

	firstAttempts := attempts
	ready = true
	w.resolve()
	h.flush()

	assert.Equal(t, "<content/>\n", h.container.String())
	assert.Greater(t, attempts, firstAttempts)
	assert.Empty(t, w.subs)
}

// suspending with no boundary above is an error, not a hang
func TestSuspendWithoutBoundary(t *testing.T) {
	h := newHarness(t)

	w := &wakeable{}
	loader := fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
		fiber.Suspend(w)
		return nil
	})

	err := h.root.RenderSync(element.New(loader, nil))
	assert.ErrorContains(t, err, "no suspense boundary")
	assert.Empty(t, h.container.Children)
}

// siblings outside the boundary are unaffected by a suspension inside it
func TestSuspenseIsolatesSiblings(t *testing.T) {
	h := newHarness(t)

	w := &wakeable{}
	loader := fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
		fiber.Suspend(w)
		return nil
	})

	require.NoError(t, h.root.RenderSync(element.New("div", nil,
		element.New("before", nil),
		element.Suspense(element.New("spinner", nil), element.New(loader, nil)),
		element.New("after", nil),
	)))

	div := h.container.Children[0]
	require.Len(t, div.Children, 3)
	assert.Equal(t, "before", div.Children[0].Type)
	assert.Equal(t, "spinner", div.Children[1].Type)
	assert.Equal(t, "after", div.Children[2].Type)
}
