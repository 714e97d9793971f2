// Package xmlview parses catalog API responses into a read-only tree and
// answers path queries against it.
package xmlview

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// NodeKind identifies the type of a tree node.
type NodeKind int

const (
	DocumentNode NodeKind = iota
	ElementNode
	TextNode
	CommentNode
	AttributeNode
)

// node is one vertex of the parsed tree. Nodes are never mutated after
// Parse returns.
type node struct {
	kind     NodeKind
	name     string
	data     string
	parent   *node
	children []*node
	attrs    []*node
	order    int
}

// Parse reads an XML document. Namespace prefixes and declarations are
// dropped so that queries match on local names only.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	root := &node{kind: DocumentNode}
	cur := root
	order := 1

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &node{kind: ElementNode, name: t.Name.Local, parent: cur, order: order}
			order++
			for _, a := range t.Attr {
				if isNamespaceDecl(a.Name) {
					continue
				}
				el.attrs = append(el.attrs, &node{
					kind:   AttributeNode,
					name:   a.Name.Local,
					data:   a.Value,
					parent: el,
					order:  order,
				})
				order++
			}
			cur.children = append(cur.children, el)
			cur = el
		case xml.EndElement:
			if cur.parent == nil {
				return nil, fmt.Errorf("decode xml: unexpected end element %q", t.Name.Local)
			}
			cur = cur.parent
		case xml.CharData:
			if cur == root {
				continue
			}
			cur.children = append(cur.children, &node{kind: TextNode, data: string(t), parent: cur, order: order})
			order++
		case xml.Comment:
			cur.children = append(cur.children, &node{kind: CommentNode, data: string(t), parent: cur, order: order})
			order++
		}
	}

	if cur != root {
		return nil, fmt.Errorf("decode xml: unclosed element %q", cur.name)
	}
	if firstElement(root) == nil {
		return nil, errors.New("decode xml: document has no root element")
	}
	return &Document{Element: &Element{n: root}}, nil
}

// ParseBytes is Parse over an in-memory payload.
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

func isNamespaceDecl(name xml.Name) bool {
	return name.Space == "xmlns" || (name.Space == "" && name.Local == "xmlns")
}

func firstElement(n *node) *node {
	for _, c := range n.children {
		if c.kind == ElementNode {
			return c
		}
	}
	return nil
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", "\"", "&quot;")
)

// inner renders the node's content: child markup for elements and the
// document, the value for attributes and the escaped text for text nodes.
func (n *node) inner() string {
	switch n.kind {
	case AttributeNode:
		return n.data
	case TextNode:
		return textEscaper.Replace(n.data)
	case CommentNode:
		return n.data
	}
	var b strings.Builder
	for _, c := range n.children {
		c.writeMarkup(&b)
	}
	return b.String()
}

func (n *node) outer() string {
	var b strings.Builder
	n.writeMarkup(&b)
	return b.String()
}

func (n *node) writeMarkup(b *strings.Builder) {
	switch n.kind {
	case DocumentNode:
		for _, c := range n.children {
			c.writeMarkup(b)
		}
	case TextNode:
		b.WriteString(textEscaper.Replace(n.data))
	case CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.data)
		b.WriteString("-->")
	case AttributeNode:
		b.WriteString(n.name)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(n.data))
		b.WriteByte('"')
	case ElementNode:
		b.WriteByte('<')
		b.WriteString(n.name)
		for _, a := range n.attrs {
			b.WriteByte(' ')
			a.writeMarkup(b)
		}
		if len(n.children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for _, c := range n.children {
			c.writeMarkup(b)
		}
		b.WriteString("</")
		b.WriteString(n.name)
		b.WriteByte('>')
	}
}

// text concatenates all descendant text, unescaped.
func (n *node) text() string {
	switch n.kind {
	case AttributeNode, TextNode, CommentNode:
		return n.data
	}
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *node) writeText(b *strings.Builder) {
	for _, c := range n.children {
		switch c.kind {
		case TextNode:
			b.WriteString(c.data)
		case ElementNode:
			c.writeText(b)
		}
	}
}

func (n *node) root() *node {
	for n.parent != nil {
		n = n.parent
	}
	return n
}
