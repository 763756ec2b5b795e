package fiber_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ProgrammingAlternatives/fiberparty/element"
	"github.com/ProgrammingAlternatives/fiberparty/fiber"
	"github.com/ProgrammingAlternatives/fiberparty/scheduler"
	"github.com/ProgrammingAlternatives/fiberparty/testrenderer"
)

type harness struct {
	t         *testing.T
	renderer  *testrenderer.Renderer
	container *testrenderer.Container
	rec       *fiber.Reconciler
	root      *fiber.Root
	sched     *scheduler.Scheduler
	advance   func(ms int64)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sched, advance := scheduler.NewManual()
	r := testrenderer.New()
	rec := fiber.NewReconciler(r, sched, nil)
	container := r.NewContainer()
	return &harness{
		t:         t,
		renderer:  r,
		container: container,
		rec:       rec,
		root:      rec.CreateRoot(container),
		sched:     sched,
		advance:   advance,
	}
}

func (h *harness) renderSync(el *element.Element) {
	h.t.Helper()
	require.NoError(h.t, h.root.RenderSync(el))
}

// flush drains scheduled renders and passive effects.
func (h *harness) flush() {
	h.t.Helper()
	require.NoError(h.t, h.rec.Flush())
}

func label(text string) *element.Element {
	return element.New("label", element.Props{testrenderer.TextContentProp: text})
}

func keyedList(keys ...string) *element.Element {
	items := make([]*element.Element, len(keys))
	for i, k := range keys {
		items[i] = element.WithKey(k, element.New("item", element.Props{"k": k}))
	}
	return element.New("list", nil, items...)
}

func itoa(v any) string { return strconv.Itoa(v.(int)) }
