package xmlview

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PathError reports a malformed path expression.
type PathError struct {
	Path string
	Msg  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("xmlview: invalid path %q: %s", e.Path, e.Msg)
}

type axis int

const (
	axisChild axis = iota
	axisSelf
	axisParent
	axisAttribute
)

type test int

const (
	testName test = iota
	testAnyElement
	testText
	testNode
)

type predicate struct {
	index    int
	attr     string
	child    string
	value    string
	hasValue bool
}

type step struct {
	desc  bool
	axis  axis
	test  test
	name  string
	preds []predicate
}

// Path is a compiled path expression. It supports the XPath subset used to
// address catalog responses:
//
//	/ItemLookupResponse/Items    absolute child steps
//	//Item                       descendants at any depth
//	ItemAttributes/Title         relative child steps
//	. .. * @Units @* text() node()
//	Author[2] Item[@kind] Item[ASIN='0974514055']
type Path struct {
	raw      string
	absolute bool
	steps    []step
}

// String returns the expression the path was compiled from.
func (p *Path) String() string { return p.raw }

// Compile parses a path expression. An empty expression selects the
// context node itself.
func Compile(expr string) (*Path, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		s = "."
	}
	p := &Path{raw: expr, absolute: strings.HasPrefix(s, "/")}

	pos := 0
	for first := true; pos < len(s); first = false {
		desc := false
		if s[pos] == '/' {
			if strings.HasPrefix(s[pos:], "//") {
				desc = true
				pos += 2
			} else {
				pos++
			}
			if pos >= len(s) {
				if first && !desc {
					return p, nil
				}
				return nil, &PathError{Path: expr, Msg: "path ends with a separator"}
			}
		}

		end, err := stepEnd(s, pos)
		if err != nil {
			return nil, &PathError{Path: expr, Msg: err.Error()}
		}
		st, err := parseStep(s[pos:end])
		if err != nil {
			return nil, &PathError{Path: expr, Msg: err.Error()}
		}
		st.desc = desc
		p.steps = append(p.steps, st)
		pos = end
	}
	return p, nil
}

// MustCompile is Compile for expressions known to be valid. It panics on a
// malformed expression.
func MustCompile(expr string) *Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// stepEnd finds the index of the next top-level '/' at or after pos.
func stepEnd(s string, pos int) (int, error) {
	depth := 0
	var quote byte
	for i := pos; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			if depth == 0 {
				return 0, fmt.Errorf("unbalanced ']' at offset %d", i)
			}
			depth--
		case c == '/' && depth == 0:
			return i, nil
		}
	}
	if quote != 0 {
		return 0, fmt.Errorf("unterminated string literal")
	}
	if depth != 0 {
		return 0, fmt.Errorf("unterminated predicate")
	}
	return len(s), nil
}

func parseStep(tok string) (step, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return step{}, fmt.Errorf("empty step")
	}

	head := tok
	var rest string
	if i := strings.IndexByte(tok, '['); i >= 0 {
		head, rest = strings.TrimSpace(tok[:i]), tok[i:]
	}

	var st step
	switch {
	case head == ".":
		st = step{axis: axisSelf, test: testNode}
	case head == "..":
		st = step{axis: axisParent, test: testNode}
	case head == "*":
		st = step{axis: axisChild, test: testAnyElement}
	case head == "text()":
		st = step{axis: axisChild, test: testText}
	case head == "node()":
		st = step{axis: axisChild, test: testNode}
	case head == "@*":
		st = step{axis: axisAttribute, test: testAnyElement}
	case strings.HasPrefix(head, "@"):
		name, err := localName(head[1:])
		if err != nil {
			return step{}, err
		}
		st = step{axis: axisAttribute, test: testName, name: name}
	default:
		name, err := localName(head)
		if err != nil {
			return step{}, err
		}
		st = step{axis: axisChild, test: testName, name: name}
	}

	for rest != "" {
		if rest[0] != '[' {
			return step{}, fmt.Errorf("unexpected %q after step %q", rest, head)
		}
		end := closingBracket(rest)
		if end < 0 {
			return step{}, fmt.Errorf("unterminated predicate in %q", tok)
		}
		pr, err := parsePredicate(strings.TrimSpace(rest[1:end]))
		if err != nil {
			return step{}, err
		}
		st.preds = append(st.preds, pr)
		rest = strings.TrimSpace(rest[end+1:])
	}
	return st, nil
}

func closingBracket(s string) int {
	var quote byte
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ']':
			return i
		}
	}
	return -1
}

func parsePredicate(expr string) (predicate, error) {
	if expr == "" {
		return predicate{}, fmt.Errorf("empty predicate")
	}
	if n, err := strconv.Atoi(expr); err == nil {
		if n < 1 {
			return predicate{}, fmt.Errorf("position %d must be at least 1", n)
		}
		return predicate{index: n}, nil
	}

	lhs, rhs, hasValue := strings.Cut(expr, "=")
	lhs = strings.TrimSpace(lhs)

	var pr predicate
	if hasValue {
		value, err := unquote(strings.TrimSpace(rhs))
		if err != nil {
			return predicate{}, err
		}
		pr.value, pr.hasValue = value, true
	}

	if strings.HasPrefix(lhs, "@") {
		name, err := localName(lhs[1:])
		if err != nil {
			return predicate{}, err
		}
		pr.attr = name
		return pr, nil
	}
	name, err := localName(lhs)
	if err != nil {
		return predicate{}, err
	}
	pr.child = name
	return pr, nil
}

func unquote(s string) (string, error) {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], nil
	}
	return "", fmt.Errorf("predicate value %q must be quoted", s)
}

// localName validates a name test and drops any namespace prefix, since
// parsed documents carry local names only.
func localName(s string) (string, error) {
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return "", fmt.Errorf("missing name")
	}
	for i, r := range s {
		switch {
		case r == '_' || ('A' <= r && r <= 'Z') || ('a' <= r && r <= 'z') || r > 0x7f:
		case i > 0 && (r == '-' || r == '.' || ('0' <= r && r <= '9')):
		default:
			return "", fmt.Errorf("invalid name %q", s)
		}
	}
	return s, nil
}

// eval returns the nodes selected from ctx, in document order without
// duplicates.
func (p *Path) eval(ctx *node) []*node {
	cur := []*node{ctx}
	if p.absolute {
		cur = []*node{ctx.root()}
	}
	for _, st := range p.steps {
		if st.desc {
			cur = descendantsOrSelf(cur)
		}
		var next []*node
		for _, c := range cur {
			next = append(next, st.filter(st.apply(c))...)
		}
		cur = documentOrder(next)
		if len(cur) == 0 {
			return nil
		}
	}
	return cur
}

func (st step) apply(c *node) []*node {
	var candidates []*node
	switch st.axis {
	case axisSelf:
		candidates = []*node{c}
	case axisParent:
		if c.parent != nil {
			candidates = []*node{c.parent}
		}
	case axisAttribute:
		candidates = c.attrs
	case axisChild:
		candidates = c.children
	}

	out := make([]*node, 0, len(candidates))
	for _, n := range candidates {
		if st.matches(n) {
			out = append(out, n)
		}
	}
	return out
}

func (st step) matches(n *node) bool {
	switch st.test {
	case testNode:
		return true
	case testText:
		return n.kind == TextNode
	case testAnyElement:
		return n.kind == ElementNode || n.kind == AttributeNode
	default:
		return (n.kind == ElementNode || n.kind == AttributeNode) && n.name == st.name
	}
}

func (st step) filter(nodes []*node) []*node {
	for _, pr := range st.preds {
		if len(nodes) == 0 {
			return nil
		}
		if pr.index > 0 {
			if pr.index > len(nodes) {
				return nil
			}
			nodes = nodes[pr.index-1 : pr.index]
			continue
		}
		kept := nodes[:0:0]
		for _, n := range nodes {
			if pr.holds(n) {
				kept = append(kept, n)
			}
		}
		nodes = kept
	}
	return nodes
}

func (pr predicate) holds(n *node) bool {
	if pr.attr != "" {
		for _, a := range n.attrs {
			if a.name == pr.attr && (!pr.hasValue || a.data == pr.value) {
				return true
			}
		}
		return false
	}
	for _, c := range n.children {
		if c.kind == ElementNode && c.name == pr.child && (!pr.hasValue || c.text() == pr.value) {
			return true
		}
	}
	return false
}

func descendantsOrSelf(nodes []*node) []*node {
	var out []*node
	var walk func(n *node)
	walk = func(n *node) {
		out = append(out, n)
		for _, c := range n.children {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return documentOrder(out)
}

func documentOrder(nodes []*node) []*node {
	if len(nodes) < 2 {
		return nodes
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].order < nodes[j].order })
	out := nodes[:1]
	for _, n := range nodes[1:] {
		if n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}
