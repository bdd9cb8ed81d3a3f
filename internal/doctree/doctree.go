package doctree

import "strings"

// DocTree is the root of a parsed text document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Level    int        // Heading level, 1-6 (0 for leaf text)
	Text     string     // Body text; blank lines separate paragraphs
	Children []*DocNode // Subsections
}

// Block is one typesettable unit of a flattened tree.
type Block struct {
	Heading bool
	Level   int
	Text    string
}

// Blocks flattens the tree depth-first into headings and paragraphs.
func (t *DocTree) Blocks() []Block {
	var out []Block
	var walk func(n *DocNode)
	walk = func(n *DocNode) {
		if n.Title != "" {
			out = append(out, Block{Heading: true, Level: max(n.Level, 1), Text: n.Title})
		}
		for _, para := range Paragraphs(n.Text) {
			out = append(out, Block{Text: para})
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, c := range t.Children {
		walk(c)
	}
	return out
}

// Paragraphs splits text on blank lines, dropping empty paragraphs.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Builder assembles a DocTree from a stream of headings and text,
// nesting sections by heading level.
type Builder struct {
	tree    *DocTree
	root    *DocNode
	stack   []*DocNode
	pending strings.Builder
}

// NewBuilder starts a tree with the given title.
func NewBuilder(title string) *Builder {
	root := &DocNode{Title: title}
	return &Builder{
		tree:  &DocTree{Title: title},
		root:  root,
		stack: []*DocNode{root},
	}
}

// SetTitle replaces the document title, e.g. from an HTML <title>.
func (b *Builder) SetTitle(title string) {
	b.tree.Title = title
}

// Heading opens a new section at level, closing any section at the same
// or a deeper level.
func (b *Builder) Heading(level int, title string) {
	b.flush()
	n := &DocNode{Title: title, Level: level}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].Level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1]
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, n)
}

// Text appends a paragraph to the current section.
func (b *Builder) Text(t string) {
	if t = strings.TrimSpace(t); t == "" {
		return
	}
	if b.pending.Len() > 0 {
		b.pending.WriteString("\n\n")
	}
	b.pending.WriteString(t)
}

func (b *Builder) flush() {
	t := b.pending.String()
	b.pending.Reset()
	if t == "" {
		return
	}
	top := b.stack[len(b.stack)-1]
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// Tree finishes the document. Text that precedes the first heading becomes
// a leading untitled node.
func (b *Builder) Tree() *DocTree {
	b.flush()
	var children []*DocNode
	if b.root.Text != "" {
		children = append(children, &DocNode{Text: b.root.Text})
	}
	b.tree.Children = append(children, b.root.Children...)
	return b.tree
}
