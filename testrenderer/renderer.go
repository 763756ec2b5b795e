// Package testrenderer is an in-memory host: it renders fiber trees into
// plain node structs and journals every mutation, so tests can assert
// both the final tree shape and the exact commit traffic that produced
// it.
package testrenderer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ProgrammingAlternatives/fiberparty/element"
	"github.com/ProgrammingAlternatives/fiberparty/fiber"
)

// TextContentProp marks a host component that owns its text content
// directly instead of through child text nodes.
const TextContentProp = "textContent"

// Node is one mounted host instance. Text nodes have IsText set and use
// Text; everything else uses Type and Props.
type Node struct {
	Type     string
	Props    element.Props
	IsText   bool
	Text     string
	Children []*Node
}

func (n *Node) removeChild(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return
		}
	}
}

func (n *Node) insertBefore(child, before *Node) {
	for i, c := range n.Children {
		if c == before {
			n.Children = append(n.Children[:i], append([]*Node{child}, n.Children[i:]...)...)
			return
		}
	}
	n.Children = append(n.Children, child)
}

// Container is a mount point, the root-level sibling of Node.
type Container struct {
	Children []*Node
}

func (c *Container) removeChild(child *Node) {
	for i, n := range c.Children {
		if n == child {
			c.Children = append(c.Children[:i], c.Children[i+1:]...)
			return
		}
	}
}

func (c *Container) insertBefore(child, before *Node) {
	for i, n := range c.Children {
		if n == before {
			c.Children = append(c.Children[:i], append([]*Node{child}, c.Children[i:]...)...)
			return
		}
	}
	c.Children = append(c.Children, child)
}

// Renderer implements fiber.HostConfig over Container/Node trees and
// keeps a journal of every host mutation in commit order.
type Renderer struct {
	ops []string
}

var _ fiber.HostConfig = (*Renderer)(nil)

func New() *Renderer { return &Renderer{} }

// NewContainer returns a fresh mount point for CreateRoot.
func (r *Renderer) NewContainer() *Container { return &Container{} }

// Ops returns the mutation journal since the last ClearOps.
func (r *Renderer) Ops() []string { return r.ops }

func (r *Renderer) ClearOps() { r.ops = nil }

func (r *Renderer) log(format string, args ...any) {
	r.ops = append(r.ops, fmt.Sprintf(format, args...))
}

func (r *Renderer) CreateInstance(typ string, props element.Props, rootContainer any, hostContext any) any {
	n := &Node{Type: typ, Props: props}
	if s, ok := props[TextContentProp].(string); ok {
		n.Text = s
	}
	r.log("create <%s>", typ)
	return n
}

func (r *Renderer) CreateTextInstance(text string, rootContainer any, hostContext any) any {
	r.log("create text %q", text)
	return &Node{IsText: true, Text: text}
}

func (r *Renderer) AppendInitialChild(parent, child any) {
	p := parent.(*Node)
	p.Children = append(p.Children, child.(*Node))
}

func (r *Renderer) FinalizeInitialChildren(instance any, typ string, props element.Props, rootContainer any) bool {
	return false
}

// PrepareUpdate reports the prop keys whose values changed, sorted for
// determinism, or nil when the maps are equal.
func (r *Renderer) PrepareUpdate(instance any, typ string, oldProps, newProps element.Props) any {
	var changed []string
	for k, nv := range newProps {
		if ov, ok := oldProps[k]; !ok || ov != nv {
			changed = append(changed, k)
		}
	}
	for k := range oldProps {
		if _, ok := newProps[k]; !ok {
			changed = append(changed, k)
		}
	}
	if len(changed) == 0 {
		return nil
	}
	sort.Strings(changed)
	return changed
}

func (r *Renderer) CommitUpdate(instance any, updatePayload any, typ string, oldProps, newProps element.Props) {
	n := instance.(*Node)
	n.Props = newProps
	if s, ok := newProps[TextContentProp].(string); ok {
		n.Text = s
	}
	keys, _ := updatePayload.([]string)
	r.log("update <%s> %s", typ, strings.Join(keys, ","))
}

func (r *Renderer) CommitTextUpdate(textInstance any, oldText, newText string) {
	textInstance.(*Node).Text = newText
	r.log("text %q -> %q", oldText, newText)
}

func (r *Renderer) ShouldSetTextContent(typ string, props element.Props) bool {
	_, ok := props[TextContentProp].(string)
	return ok
}

func (r *Renderer) ResetTextContent(instance any) {
	n := instance.(*Node)
	n.Text = ""
	r.log("reset text <%s>", n.Type)
}

func (r *Renderer) AppendChild(parent, child any) {
	p, c := parent.(*Node), child.(*Node)
	p.removeChild(c)
	p.Children = append(p.Children, c)
	r.log("append %s -> <%s>", describe(c), p.Type)
}

func (r *Renderer) AppendChildToContainer(container, child any) {
	ct, c := container.(*Container), child.(*Node)
	ct.removeChild(c)
	ct.Children = append(ct.Children, c)
	r.log("append %s -> root", describe(c))
}

func (r *Renderer) InsertBefore(parent, child, beforeChild any) {
	p, c, b := parent.(*Node), child.(*Node), beforeChild.(*Node)
	p.removeChild(c)
	p.insertBefore(c, b)
	r.log("insert %s before %s in <%s>", describe(c), describe(b), p.Type)
}

func (r *Renderer) InsertInContainerBefore(container, child, beforeChild any) {
	ct, c, b := container.(*Container), child.(*Node), beforeChild.(*Node)
	ct.removeChild(c)
	ct.insertBefore(c, b)
	r.log("insert %s before %s in root", describe(c), describe(b))
}

func (r *Renderer) RemoveChild(parent, child any) {
	p, c := parent.(*Node), child.(*Node)
	p.removeChild(c)
	r.log("remove %s from <%s>", describe(c), p.Type)
}

func (r *Renderer) RemoveChildFromContainer(container, child any) {
	ct, c := container.(*Container), child.(*Node)
	ct.removeChild(c)
	r.log("remove %s from root", describe(c))
}

func (r *Renderer) GetRootHostContext(rootContainer any) any { return "root" }

func (r *Renderer) GetChildHostContext(parentContext any, typ string, rootContainer any) any {
	return parentContext
}

func (r *Renderer) IsPrimaryRenderer() bool { return true }

func describe(n *Node) string {
	if n.IsText {
		return fmt.Sprintf("%q", n.Text)
	}
	return "<" + n.Type + ">"
}

// String renders the container as an indented tree, the canonical
// fixture format for assertions.
func (c *Container) String() string {
	var b strings.Builder
	for _, n := range c.Children {
		writeNode(&b, n, 0)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.IsText {
		fmt.Fprintf(b, "%s%q\n", indent, n.Text)
		return
	}
	b.WriteString(indent)
	b.WriteString("<")
	b.WriteString(n.Type)
	writeProps(b, n.Props)
	if len(n.Children) == 0 && n.Text == "" {
		b.WriteString("/>\n")
		return
	}
	b.WriteString(">\n")
	if n.Text != "" {
		fmt.Fprintf(b, "%s  %q\n", indent, n.Text)
	}
	for _, c := range n.Children {
		writeNode(b, c, depth+1)
	}
	fmt.Fprintf(b, "%s</%s>\n", indent, n.Type)
}

func writeProps(b *strings.Builder, props element.Props) {
	keys := make([]string, 0, len(props))
	for k := range props {
		if k == TextContentProp {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, props[k])
	}
}
