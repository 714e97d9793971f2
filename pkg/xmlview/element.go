package xmlview

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Queryable is the path-query surface shared by documents and elements.
type Queryable interface {
	Get(path string) (string, bool)
	GetArray(path string) ([]string, bool)
	GetRecord(path string) (map[string]string, bool)
	GetElements(path string) ([]*Element, bool)
}

var (
	_ Queryable = (*Element)(nil)
	_ Queryable = (*Document)(nil)
)

// Document is a parsed response. It is the Element wrapping the document
// node, so every Element query can be run from the top of the tree.
type Document struct {
	*Element
}

// Root returns the document's top-level element.
func (d *Document) Root() *Element {
	if d == nil || d.Element == nil {
		return nil
	}
	return wrap(firstElement(d.n))
}

// Element is a handle onto one node of a parsed document. Handles are
// cheap to copy, share the underlying tree and are safe for concurrent use.
type Element struct {
	n *node
}

func wrap(n *node) *Element {
	if n == nil {
		return nil
	}
	return &Element{n: n}
}

// Name returns the local tag or attribute name. The document node has no
// name.
func (e *Element) Name() string {
	if e == nil {
		return ""
	}
	return e.n.name
}

// Kind reports what kind of node the handle points at.
func (e *Element) Kind() NodeKind {
	if e == nil {
		return DocumentNode
	}
	return e.n.kind
}

// Text returns the concatenated, unescaped text content.
func (e *Element) Text() string {
	if e == nil {
		return ""
	}
	return e.n.text()
}

// String returns the node's markup including its own tag.
func (e *Element) String() string {
	if e == nil {
		return ""
	}
	return e.n.outer()
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, a := range e.n.attrs {
		if a.name == name {
			return a.data, true
		}
	}
	return "", false
}

// Attributes returns all attributes keyed by local name.
func (e *Element) Attributes() map[string]string {
	if e == nil || len(e.n.attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.n.attrs))
	for _, a := range e.n.attrs {
		out[a.name] = a.data
	}
	return out
}

// Query evaluates path with XPath semantics from e and reports malformed
// expressions.
func (e *Element) Query(path string) ([]*Element, error) {
	p, err := Compile(path)
	if err != nil {
		return nil, err
	}
	return e.QueryPath(p), nil
}

// QueryPath evaluates a compiled path from e.
func (e *Element) QueryPath(p *Path) []*Element {
	if e == nil || p == nil {
		return nil
	}
	nodes := p.eval(e.n)
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*Element, len(nodes))
	for i, n := range nodes {
		out[i] = &Element{n: n}
	}
	return out
}

func (e *Element) first(path string) *node {
	if e == nil {
		return nil
	}
	p, err := Compile(path)
	if err != nil {
		return nil
	}
	nodes := p.eval(e.n)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func (e *Element) search(path string) []*node {
	if e == nil {
		return nil
	}
	p, err := Compile(searchExpr(path))
	if err != nil {
		return nil
	}
	return p.eval(e.n)
}

// searchExpr turns a bare relative path into a descendant search, so
// "Author" finds ItemAttributes/Author under an Item. Paths starting with
// '/' or '.' are taken as written.
func searchExpr(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || strings.HasPrefix(path, "/") || strings.HasPrefix(path, ".") {
		return path
	}
	return ".//" + path
}

// Get returns the inner markup of the first node matching path, evaluated
// relative to e. An empty path selects e itself.
func (e *Element) Get(path string) (string, bool) {
	n := e.first(path)
	if n == nil {
		return "", false
	}
	return n.inner(), true
}

// GetUnescaped is Get with HTML entities decoded.
func (e *Element) GetUnescaped(path string) (string, bool) {
	v, ok := e.Get(path)
	if !ok {
		return "", false
	}
	return html.UnescapeString(v), true
}

// GetText returns the plain text of an HTML-bearing value such as an
// editorial review, with tags removed and whitespace collapsed.
func (e *Element) GetText(path string) (string, bool) {
	v, ok := e.GetUnescaped(path)
	if !ok {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(v))
	if err != nil {
		return strings.TrimSpace(v), true
	}
	return strings.Join(strings.Fields(doc.Text()), " "), true
}

// GetArray returns the inner markup of every node matching path, in
// document order. A bare relative path searches all descendants. The
// result is always a slice, even for a single match.
func (e *Element) GetArray(path string) ([]string, bool) {
	nodes := e.search(path)
	if len(nodes) == 0 {
		return nil, false
	}
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.inner()
	}
	return out, true
}

// GetRecord maps the direct child elements of the first node matching path
// to their inner markup. Only one level is read. When several children share
// a name the last one wins.
func (e *Element) GetRecord(path string) (map[string]string, bool) {
	n := e.first(path)
	if n == nil {
		return nil, false
	}
	out := make(map[string]string)
	for _, c := range n.children {
		if c.kind != ElementNode {
			continue
		}
		out[c.name] = c.inner()
	}
	return out, true
}

// GetElements wraps every node matching path. A bare relative path searches
// all descendants. ok is false when nothing matched; a successful result is
// never empty.
func (e *Element) GetElements(path string) ([]*Element, bool) {
	nodes := e.search(path)
	if len(nodes) == 0 {
		return nil, false
	}
	out := make([]*Element, len(nodes))
	for i, n := range nodes {
		out[i] = &Element{n: n}
	}
	return out, true
}

// GetElement returns the first of GetElements.
func (e *Element) GetElement(path string) (*Element, bool) {
	els, ok := e.GetElements(path)
	if !ok {
		return nil, false
	}
	return els[0], true
}
