package testrenderer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ProgrammingAlternatives/fiberparty/element"
	"github.com/ProgrammingAlternatives/fiberparty/testrenderer"
)

// the string form is an indented tree with sorted props
func TestContainerString(t *testing.T) {
	r := testrenderer.New()
	ct := r.NewContainer()

	div := r.CreateInstance("div", element.Props{"b": 2, "a": 1}, ct, nil).(*testrenderer.Node)
	span := r.CreateInstance("span", nil, ct, nil).(*testrenderer.Node)
	text := r.CreateTextInstance("hi", ct, nil).(*testrenderer.Node)

	r.AppendInitialChild(span, text)
	r.AppendInitialChild(div, span)
	r.AppendChildToContainer(ct, div)

	assert.Equal(t, "<div a=1 b=2>\n  <span>\n    \"hi\"\n  </span>\n</div>\n", ct.String())
}

// PrepareUpdate reports changed keys sorted, nil when props are equal
func TestPrepareUpdate(t *testing.T) {
	r := testrenderer.New()

	old := element.Props{"a": 1, "b": 2, "gone": true}
	next := element.Props{"a": 1, "b": 3, "new": true}

	payload := r.PrepareUpdate(nil, "div", old, next)
	assert.Equal(t, []string{"b", "gone", "new"}, payload)

	assert.Nil(t, r.PrepareUpdate(nil, "div", old, element.Props{"a": 1, "b": 2, "gone": true}))
}

// host text ownership is keyed off the textContent prop
func TestShouldSetTextContent(t *testing.T) {
	r := testrenderer.New()

	assert.True(t, r.ShouldSetTextContent("label", element.Props{testrenderer.TextContentProp: "x"}))
	assert.False(t, r.ShouldSetTextContent("label", element.Props{"other": "x"}))
	assert.False(t, r.ShouldSetTextContent("label", nil))
}

// mutations append to the journal in call order
func TestOpsJournal(t *testing.T) {
	r := testrenderer.New()
	ct := r.NewContainer()

	a := r.CreateInstance("a", nil, ct, nil).(*testrenderer.Node)
	b := r.CreateInstance("b", nil, ct, nil).(*testrenderer.Node)
	r.AppendChildToContainer(ct, a)
	r.InsertInContainerBefore(ct, b, a)
	r.RemoveChildFromContainer(ct, a)

	assert.Equal(t, []string{
		`create <a>`,
		`create <b>`,
		`append <a> -> root`,
		`insert <b> before <a> in root`,
		`remove <a> from root`,
	}, r.Ops())
	assert.Equal(t, "<b/>\n", ct.String())

	r.ClearOps()
	assert.Empty(t, r.Ops())
}

// inserting before a child that is not present falls back to append
func TestInsertBeforeMissingAppends(t *testing.T) {
	r := testrenderer.New()
	ct := r.NewContainer()

	a := r.CreateInstance("a", nil, ct, nil).(*testrenderer.Node)
	b := r.CreateInstance("b", nil, ct, nil).(*testrenderer.Node)
	stranger := r.CreateInstance("s", nil, ct, nil).(*testrenderer.Node)

	r.AppendChildToContainer(ct, a)
	r.InsertInContainerBefore(ct, b, stranger)

	assert.Equal(t, "<a/>\n<b/>\n", ct.String())
}
