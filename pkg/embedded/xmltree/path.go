package xmltree

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Axis of a location step.
type Axis int

const (
	ChildAxis Axis = iota
	DescendantAxis
)

// Step is one location step: an axis, a node test and an optional
// 1-based position predicate.
type Step struct {
	Axis     Axis
	Test     string // element name, "*", "text()", "node()" or "@name" / "@*"
	Position int    // 0 means no predicate
}

// ParsePath parses a relative location path such as "/a//b/text()" or
// "/r/item[2]/@id". An empty string yields no steps.
func ParsePath(s string) ([]Step, error) {
	var steps []Step
	rest := strings.TrimSpace(s)
	for rest != "" {
		var st Step
		switch {
		case strings.HasPrefix(rest, "//"):
			st.Axis = DescendantAxis
			rest = rest[2:]
		case strings.HasPrefix(rest, "/"):
			st.Axis = ChildAxis
			rest = rest[1:]
		default:
			return nil, fmt.Errorf("unexpected %q in path", rest)
		}

		end := strings.IndexAny(rest, "/[")
		if end < 0 {
			end = len(rest)
		}
		st.Test = strings.TrimSpace(rest[:end])
		rest = rest[end:]
		if !validTest(st.Test) {
			return nil, fmt.Errorf("invalid node test %q", st.Test)
		}

		if strings.HasPrefix(rest, "[") {
			closeIdx := strings.IndexByte(rest, ']')
			if closeIdx < 0 {
				return nil, fmt.Errorf("unterminated predicate in path")
			}
			pos, err := strconv.Atoi(strings.TrimSpace(rest[1:closeIdx]))
			if err != nil || pos < 1 {
				return nil, fmt.Errorf("unsupported predicate [%s]", rest[1:closeIdx])
			}
			st.Position = pos
			rest = rest[closeIdx+1:]
		}
		steps = append(steps, st)
	}
	return steps, nil
}

func validTest(t string) bool {
	switch t {
	case "":
		return false
	case "*", "text()", "node()", "@*":
		return true
	}
	name := strings.TrimPrefix(t, "@")
	if name == "" {
		return false
	}
	for i, r := range name {
		ok := r == '_' || r == ':' || r == '-' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 0x7f ||
			(i > 0 && r >= '0' && r <= '9')
		if !ok {
			return false
		}
	}
	return true
}

// Eval applies steps to the context nodes and returns the selected nodes in
// document order without duplicates. A position predicate applies to the
// candidates of each parent, so "//b[1]" selects the first b child of every
// element.
func Eval(context []*Node, steps []Step) []*Node {
	cur := context
	for _, st := range steps {
		var next []*Node
		seen := make(map[*Node]bool)
		add := func(cands []*Node) {
			if st.Position > 0 {
				if st.Position > len(cands) {
					return
				}
				cands = cands[st.Position-1 : st.Position]
			}
			for _, c := range cands {
				if !seen[c] {
					seen[c] = true
					next = append(next, c)
				}
			}
		}
		for _, n := range cur {
			if st.Axis == DescendantAxis {
				walkElements(n, func(x *Node) { add(childrenMatching(x, st.Test)) })
			} else {
				add(childrenMatching(n, st.Test))
			}
		}
		cur = sortDocumentOrder(next)
	}
	return cur
}

// walkElements calls fn for n and every element below it in pre-order,
// which is the descendant-or-self::node() part of "//".
func walkElements(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			walkElements(c, fn)
		}
	}
}

// sortDocumentOrder orders nodes by their position in the tree. Nodes of
// different trees keep the order in which their roots first appear.
func sortDocumentOrder(nodes []*Node) []*Node {
	if len(nodes) < 2 {
		return nodes
	}
	roots := make(map[*Node]int)
	keys := make(map[*Node][]int, len(nodes))
	for _, n := range nodes {
		key := orderKey(n)
		root := n
		for root.Parent != nil {
			root = root.Parent
		}
		rank, ok := roots[root]
		if !ok {
			rank = len(roots)
			roots[root] = rank
		}
		keys[n] = append([]int{rank}, key...)
	}
	slices.SortStableFunc(nodes, func(a, b *Node) int {
		return slices.Compare(keys[a], keys[b])
	})
	return nodes
}

// orderKey is the path from the root: attributes sort before children.
func orderKey(n *Node) []int {
	var key []int
	for n.Parent != nil {
		p := n.Parent
		if n.Kind == AttributeNode {
			key = append(key, slices.Index(p.Attrs, n), 0)
		} else {
			key = append(key, slices.Index(p.Children, n), 1)
		}
		n = p
	}
	slices.Reverse(key)
	return key
}

func childrenMatching(n *Node, test string) []*Node {
	if strings.HasPrefix(test, "@") {
		var out []*Node
		name := test[1:]
		for _, a := range n.Attrs {
			if name == "*" || a.Name == name {
				out = append(out, a)
			}
		}
		return out
	}
	var out []*Node
	for _, c := range n.Children {
		if matches(c, test) {
			out = append(out, c)
		}
	}
	return out
}

func matches(n *Node, test string) bool {
	switch test {
	case "node()":
		return true
	case "text()":
		return n.Kind == TextNode
	case "*":
		return n.Kind == ElementNode
	}
	return n.Kind == ElementNode && n.Name == test
}
