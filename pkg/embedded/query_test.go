package embedded

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/sedna-go/pkg/embedded/xmltree"
)

func TestParseStatement(t *testing.T) {
	tests := []struct {
		query string
		want  statement
	}{
		{"create document 'd'", statement{kind: stmtCreateDocument, doc: "d"}},
		{`create document "d" in collection "c"`, statement{kind: stmtCreateDocument, doc: "d", col: "c"}},
		{"  create collection 'c'  ", statement{kind: stmtCreateCollection, col: "c"}},
		{"drop document 'd' in collection 'c'", statement{kind: stmtDropDocument, doc: "d", col: "c"}},
		{"drop collection 'c'", statement{kind: stmtDropCollection, col: "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			st, err := parseStatement(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *st)
		})
	}
}

func TestParseStatement_Queries(t *testing.T) {
	st, err := parseStatement("doc('d')/library//book[2]/@id")
	require.NoError(t, err)
	assert.Equal(t, stmtQuery, st.kind)
	assert.Equal(t, srcDoc, st.expr.source)
	assert.Equal(t, "d", st.expr.doc)
	assert.Equal(t, []xmltree.Step{
		{Axis: xmltree.ChildAxis, Test: "library"},
		{Axis: xmltree.DescendantAxis, Test: "book", Position: 2},
		{Axis: xmltree.ChildAxis, Test: "@id"},
	}, st.expr.steps)

	st, err = parseStatement("count( collection('c')/items )")
	require.NoError(t, err)
	assert.Equal(t, srcCount, st.expr.source)
	assert.Equal(t, srcCollection, st.expr.inner.source)
	assert.Equal(t, "c", st.expr.inner.col)

	st, err = parseStatement("doc('x', 'c')/text()")
	require.NoError(t, err)
	assert.Equal(t, "x", st.expr.doc)
	assert.Equal(t, "c", st.expr.col)

	st, err = parseStatement("'it''s'")
	require.NoError(t, err)
	assert.Equal(t, srcString, st.expr.source)
	assert.Equal(t, "it's", st.expr.literal)

	st, err = parseStatement("42")
	require.NoError(t, err)
	assert.Equal(t, srcNumber, st.expr.source)
	assert.Equal(t, "42", st.expr.literal)
}

func TestParseStatement_Updates(t *testing.T) {
	st, err := parseStatement("update insert <test>test</test> into doc('d')")
	require.NoError(t, err)
	assert.Equal(t, stmtInsert, st.kind)
	assert.Equal(t, "<test>test</test>", st.fragment)
	assert.Equal(t, "d", st.expr.doc)
	assert.Empty(t, st.expr.steps)

	st, err = parseStatement("update insert <note>go into the garden</note> into doc('d')/r")
	require.NoError(t, err)
	assert.Equal(t, "<note>go into the garden</note>", st.fragment)
	require.Len(t, st.expr.steps, 1)

	st, err = parseStatement("update delete doc('d')//item[1]")
	require.NoError(t, err)
	assert.Equal(t, stmtDelete, st.kind)
	assert.True(t, st.kind.isUpdate())
}

func TestParseStatement_SyntaxErrors(t *testing.T) {
	for _, q := range []string{
		"",
		"select * from t",
		"create table 'x'",
		"create document d",
		"doc('d'",
		"doc('d')/",
		"doc('unterminated)",
		"count(doc('d')",
		"update insert doc('a') into doc('b')",
		"update insert <a/>",
		"update replace doc('d')",
		"doc('d') garbage",
		"1.2.3",
	} {
		t.Run(q, func(t *testing.T) {
			_, err := parseStatement(q)
			require.Error(t, err)
			e, ok := err.(*engineError)
			require.True(t, ok)
			assert.Equal(t, codeSyntax, e.code)
			assert.Contains(t, e.details, "syntax error")
		})
	}
}

func TestParserErrorPosition(t *testing.T) {
	_, err := parseStatement("doc('d')\n  oops")
	require.Error(t, err)
	assert.Contains(t, err.(*engineError).details, "at (2:3)")
}
