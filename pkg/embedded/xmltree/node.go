// Package xmltree is the small XML data model of the embedded engine: a node
// tree, a parser built on encoding/xml, the engine's serializer and a path
// evaluator for the supported XPath subset.
package xmltree

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kasuganosora/sedna-go/pkg/utils"
)

// Kind 节点类型
type Kind int

const (
	DocumentNode Kind = iota
	ElementNode
	TextNode
	AttributeNode
)

// XMLDeclaration is emitted in front of a serialized document node.
const XMLDeclaration = `<?xml version="1.0" standalone="yes"?>`

// Node is one node of a document tree.
type Node struct {
	Kind     Kind
	Name     string // element or attribute name
	Value    string // text content or attribute value
	Attrs    []*Node
	Children []*Node
	Parent   *Node
}

// NewDocument returns an empty document node.
func NewDocument() *Node {
	return &Node{Kind: DocumentNode}
}

// Root returns the document element of a document node, or nil.
func (n *Node) Root() *Node {
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			return c
		}
	}
	return nil
}

// AppendChild attaches c as the last child of n.
func (n *Node) AppendChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	p := n.Parent
	if p == nil {
		return
	}
	if n.Kind == AttributeNode {
		p.Attrs = removeNode(p.Attrs, n)
	} else {
		p.Children = removeNode(p.Children, n)
	}
	n.Parent = nil
}

func removeNode(list []*Node, n *Node) []*Node {
	for i, c := range list {
		if c == n {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Clone returns a deep copy of n without a parent.
func (n *Node) Clone() *Node {
	c := &Node{Kind: n.Kind, Name: n.Name, Value: n.Value}
	for _, a := range n.Attrs {
		ac := a.Clone()
		ac.Parent = c
		c.Attrs = append(c.Attrs, ac)
	}
	for _, ch := range n.Children {
		c.AppendChild(ch.Clone())
	}
	return c
}

// StringValue returns the concatenated text of n, as XPath string() does.
func (n *Node) StringValue() string {
	switch n.Kind {
	case TextNode, AttributeNode:
		return n.Value
	}
	var sb strings.Builder
	var walk func(*Node)
	walk = func(x *Node) {
		for _, c := range x.Children {
			if c.Kind == TextNode {
				sb.WriteString(c.Value)
			} else {
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}

// ErrNoRoot is returned by Parse for input without a document element.
var ErrNoRoot = errors.New("document has no root element")

// Parse reads a complete XML document. Whitespace-only text between elements
// is dropped.
func Parse(r io.Reader) (*Node, error) {
	doc := NewDocument()
	if err := parseInto(doc, r); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, ErrNoRoot
	}
	return doc, nil
}

// ParseFragment parses a sequence of sibling nodes such as "<a/><b>x</b>".
func ParseFragment(s string) ([]*Node, error) {
	holder := &Node{Kind: ElementNode, Name: "fragment"}
	if err := parseInto(holder, strings.NewReader(s)); err != nil {
		return nil, err
	}
	nodes := holder.Children
	for _, c := range nodes {
		c.Parent = nil
	}
	return nodes, nil
}

func parseInto(top *Node, r io.Reader) error {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = utils.CharsetReader

	cur := top
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if cur == top && top.Kind == DocumentNode && top.Root() != nil {
				return fmt.Errorf("malformed XML: more than one root element")
			}
			el := &Node{Kind: ElementNode, Name: qualifiedName(t.Name)}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, &Node{
					Kind:   AttributeNode,
					Name:   qualifiedName(a.Name),
					Value:  a.Value,
					Parent: el,
				})
			}
			cur.AppendChild(el)
			cur = el
		case xml.EndElement:
			if cur.Parent == nil {
				return fmt.Errorf("malformed XML: unexpected end element </%s>", t.Name.Local)
			}
			cur = cur.Parent
		case xml.CharData:
			text := string(t)
			if strings.TrimSpace(text) == "" {
				continue
			}
			if cur.Kind == DocumentNode {
				return fmt.Errorf("malformed XML: text outside the root element")
			}
			cur.AppendChild(&Node{Kind: TextNode, Value: text})
		}
	}

	if cur != top {
		return fmt.Errorf("malformed XML: unclosed element <%s>", cur.Name)
	}
	return nil
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" || n.Space == "xmlns" {
		if n.Space == "xmlns" {
			return "xmlns:" + n.Local
		}
		return n.Local
	}
	// encoding/xml 把前缀解析成命名空间 URI, 这里只保留本地名
	return n.Local
}

// Unmarshal rebuilds a document node from the output of Marshal. Unlike
// Parse it accepts an empty document and more than one top-level element.
func Unmarshal(s string) (*Node, error) {
	doc := NewDocument()
	if strings.TrimSpace(s) == "" {
		return doc, nil
	}
	nodes, err := ParseFragment(s)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		doc.AppendChild(n)
	}
	return doc, nil
}
