package xmltree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const library = `<?xml version="1.0"?>
<library>
  <book id="1"><title>Dune</title><author>Herbert</author></book>
  <book id="2"><title>Solaris</title><author>Lem</author></book>
  <magazine><title>Wired</title></magazine>
</library>`

func mustParse(t *testing.T, s string) *Node {
	t.Helper()
	doc, err := Parse(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func TestParseAndSerialize(t *testing.T) {
	doc := mustParse(t, `<my_document>Hello world!</my_document>`)
	assert.Equal(t, `<?xml version="1.0" standalone="yes"?><my_document>Hello world!</my_document>`, Serialize(doc))
	assert.Equal(t, `<my_document>Hello world!</my_document>`, Marshal(doc))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"unclosed", "<a><b></a>"},
		{"two roots", "<a/><b/>"},
		{"text outside root", "hello<a/>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestSerialize_Escaping(t *testing.T) {
	doc := mustParse(t, `<a x="&quot;1&quot; &amp; 2">&lt;b&gt; &amp; c</a>`)
	assert.Equal(t, `<a x="&quot;1&quot; &amp; 2">&lt;b&gt; &amp; c</a>`, Marshal(doc))

	text := Eval([]*Node{doc}, []Step{{Test: "a"}, {Test: "text()"}})
	require.Len(t, text, 1)
	assert.Equal(t, "<b> & c", Serialize(text[0]))
}

func TestParseFragment(t *testing.T) {
	nodes, err := ParseFragment(`<test>test</test><other a="1"/>`)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Nil(t, nodes[0].Parent)
	assert.Equal(t, `<test>test</test>`, Serialize(nodes[0]))
	assert.Equal(t, `<other a="1"/>`, Serialize(nodes[1]))

	_, err = ParseFragment(`<broken>`)
	assert.Error(t, err)
}

func TestParsePath(t *testing.T) {
	steps, err := ParsePath("/library//book[2]/@id")
	require.NoError(t, err)
	assert.Equal(t, []Step{
		{Axis: ChildAxis, Test: "library"},
		{Axis: DescendantAxis, Test: "book", Position: 2},
		{Axis: ChildAxis, Test: "@id"},
	}, steps)

	steps, err = ParsePath("")
	require.NoError(t, err)
	assert.Empty(t, steps)

	for _, bad := range []string{"library", "/", "/a[", "/a[x]", "/a[0]", "/1abc", "/a b"} {
		_, err := ParsePath(bad)
		assert.Error(t, err, bad)
	}
}

func TestEval(t *testing.T) {
	doc := mustParse(t, library)

	eval := func(path string) []string {
		steps, err := ParsePath(path)
		require.NoError(t, err)
		var out []string
		for _, n := range Eval([]*Node{doc}, steps) {
			out = append(out, Serialize(n))
		}
		return out
	}

	assert.Equal(t, []string{"Dune", "Solaris", "Wired"}, eval("//title/text()"))
	assert.Equal(t, []string{"Dune", "Solaris"}, eval("/library/book/title/text()"))
	assert.Equal(t, []string{`id="2"`}, eval("/library/book[2]/@id"))
	assert.Equal(t, []string{`<title>Wired</title>`}, eval("/library/magazine/*"))
	assert.Len(t, eval("/library/*"), 3)
	assert.Empty(t, eval("/library/book[3]"))
	assert.Empty(t, eval("/nothing"))
	assert.Len(t, eval("//@*"), 2)
}

func TestEval_DescendantOrder(t *testing.T) {
	doc := mustParse(t, `<r><a><b>1</b><b>3</b></a><b>2</b><c id="x"><b>4</b></c></r>`)

	eval := func(path string) []string {
		steps, err := ParsePath(path)
		require.NoError(t, err)
		var out []string
		for _, n := range Eval([]*Node{doc}, steps) {
			out = append(out, Serialize(n))
		}
		return out
	}

	assert.Equal(t, []string{"1", "3", "2", "4"}, eval("//b/text()"))
	assert.Equal(t, []string{"<b>1</b>", "<b>2</b>", "<b>4</b>"}, eval("//b[1]"))
	assert.Equal(t, []string{"<b>3</b>"}, eval("//b[2]"))
	assert.Equal(t, []string{"<b>1</b>", "<b>3</b>", "<b>4</b>"}, eval("/r/*//b"))
}

func TestRemoveAndClone(t *testing.T) {
	doc := mustParse(t, library)
	steps, _ := ParsePath("/library/book")
	books := Eval([]*Node{doc}, steps)
	require.Len(t, books, 2)

	copyDoc := doc.Clone()
	books[0].Remove()
	assert.Len(t, Eval([]*Node{doc}, steps), 1)
	assert.Len(t, Eval([]*Node{copyDoc}, steps), 2)

	attr := Eval([]*Node{doc}, []Step{{Axis: DescendantAxis, Test: "@id"}})
	require.Len(t, attr, 1)
	attr[0].Remove()
	assert.Empty(t, Eval([]*Node{doc}, []Step{{Axis: DescendantAxis, Test: "@id"}}))
	assert.Equal(t, "SolarisLemWired", doc.Root().StringValue())
}

func TestUnmarshal(t *testing.T) {
	doc, err := Unmarshal("")
	require.NoError(t, err)
	assert.Nil(t, doc.Root())
	assert.Equal(t, XMLDeclaration, Serialize(doc))

	doc, err = Unmarshal(`<a>1</a><b/>`)
	require.NoError(t, err)
	assert.Equal(t, "a", doc.Root().Name)
	assert.Len(t, doc.Children, 2)
	assert.Same(t, doc, doc.Children[1].Parent)
	assert.Equal(t, `<a>1</a><b/>`, Marshal(doc))
}
