package fiber_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ProgrammingAlternatives/fiberparty/element"
	"github.com/ProgrammingAlternatives/fiberparty/fiber"
)

// readers without a provider above see the default value
func TestContextDefaultValue(t *testing.T) {
	h := newHarness(t)
	theme := fiber.NewContext("theme", "default")

	consumer := fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
		return label(hk.UseContext(theme).(string))
	})

	h.renderSync(element.New(consumer, nil))
	assert.Equal(t, "default", h.container.Children[0].Text)
}

// a provider change reaches consumers through bailed-out ancestors
func TestContextPropagatesThroughBailout(t *testing.T) {
	h := newHarness(t)
	theme := fiber.NewContext("theme", "default")

	consumerRenders, middleRenders := 0, 0
	consumer := fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
		consumerRenders++
		return label(hk.UseContext(theme).(string))
	})
	consumerEl := element.New(consumer, nil)
	middle := fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
		middleRenders++
		return consumerEl
	})
	middleEl := element.New(middle, nil)

	h.renderSync(theme.Provide("light", middleEl))
	assert.Equal(t, "light", h.container.Children[0].Text)
	assert.Equal(t, 1, middleRenders)
	assert.Equal(t, 1, consumerRenders)

	h.renderSync(theme.Provide("dark", middleEl))
	assert.Equal(t, "dark", h.container.Children[0].Text)
	assert.Equal(t, 1, middleRenders, "the middle component must bail out")
	assert.Equal(t, 2, consumerRenders)
}

// an unchanged provider value re-renders nobody
func TestContextUnchangedValueBailsOut(t *testing.T) {
	h := newHarness(t)
	theme := fiber.NewContext("theme", "default")

	consumerRenders := 0
	consumer := fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
		consumerRenders++
		return label(hk.UseContext(theme).(string))
	})
	consumerEl := element.New(consumer, nil)

	h.renderSync(theme.Provide("light", consumerEl))
	h.renderSync(theme.Provide("light", consumerEl))

	assert.Equal(t, 1, consumerRenders)
}

// a nested provider of the same context shields its subtree from outer
// changes
func TestContextNestedProviderShields(t *testing.T) {
	h := newHarness(t)
	theme := fiber.NewContext("theme", "default")

	outerRenders, innerRenders := 0, 0
	outerConsumer := fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
		outerRenders++
		return label(hk.UseContext(theme).(string))
	})
	innerConsumer := fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
		innerRenders++
		return label(hk.UseContext(theme).(string))
	})
	wrapEl := element.New("wrap", nil,
		element.New(outerConsumer, nil),
		theme.Provide("pinned", element.New(innerConsumer, nil)),
	)

	h.renderSync(theme.Provide("light", wrapEl))
	wrap := h.container.Children[0]
	assert.Equal(t, "light", wrap.Children[0].Text)
	assert.Equal(t, "pinned", wrap.Children[1].Text)

	h.renderSync(theme.Provide("dark", wrapEl))
	assert.Equal(t, "dark", wrap.Children[0].Text)
	assert.Equal(t, "pinned", wrap.Children[1].Text)
	assert.Equal(t, 2, outerRenders)
	assert.Equal(t, 1, innerRenders, "the shielded consumer must not re-render")
}

// readers see the innermost provider, and restore correctly after it
func TestContextNestingRestoresOuterValue(t *testing.T) {
	h := newHarness(t)
	theme := fiber.NewContext("theme", "default")

	consumer := fiber.FunctionComponent(func(hk *fiber.Hooks, props element.Props) *element.Element {
		return label(hk.UseContext(theme).(string))
	})

	h.renderSync(theme.Provide("outer",
		element.New("wrap", nil,
			theme.Provide("inner", element.New(consumer, nil)),
			element.New(consumer, nil),
		),
	))

	wrap := h.container.Children[0]
	assert.Equal(t, "inner", wrap.Children[0].Text)
	assert.Equal(t, "outer", wrap.Children[1].Text)
}
