package embedded

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/kasuganosora/sedna-go/pkg/embedded/xmltree"
)

// stmtKind 语句类型
type stmtKind int

const (
	stmtQuery stmtKind = iota
	stmtCreateDocument
	stmtCreateCollection
	stmtDropDocument
	stmtDropCollection
	stmtInsert
	stmtDelete
)

// isUpdate reports whether the statement modifies the database.
func (k stmtKind) isUpdate() bool {
	return k != stmtQuery
}

// category groups statement kinds for statistics.
func (k stmtKind) category() string {
	switch k {
	case stmtQuery:
		return "query"
	case stmtInsert, stmtDelete:
		return "update"
	default:
		return "ddl"
	}
}

// document returns the document a statement addresses, if any.
func (st *statement) document() string {
	if st.doc != "" {
		return st.doc
	}
	for e := st.expr; e != nil; e = e.inner {
		if e.doc != "" {
			return e.doc
		}
		if e.col != "" {
			return e.col
		}
	}
	return st.col
}

type statement struct {
	kind     stmtKind
	doc      string
	col      string
	fragment string
	expr     *expr
}

type sourceKind int

const (
	srcDoc sourceKind = iota
	srcCollection
	srcString
	srcNumber
	srcCount
)

// expr is a source (doc(), collection(), a literal or count()) followed by an
// optional location path.
type expr struct {
	source  sourceKind
	doc     string
	col     string
	literal string
	inner   *expr
	steps   []xmltree.Step
}

// parseStatement parses one statement of the supported subset:
//
//	create document 'd' [in collection 'c']
//	create collection 'c'
//	drop document 'd' [in collection 'c']
//	drop collection 'c'
//	update insert <fragment/> into <expr>
//	update delete <expr>
//	<expr>
//
// where <expr> is doc('d'[, 'c'])<path>, collection('c')<path>, count(<expr>)
// or a string or number literal.
func parseStatement(q string) (*statement, error) {
	p := &parser{src: q}
	p.skipSpace()

	var st *statement
	var err error
	switch {
	case p.keyword("create"):
		st, err = p.parseDDL(stmtCreateDocument, stmtCreateCollection)
	case p.keyword("drop"):
		st, err = p.parseDDL(stmtDropDocument, stmtDropCollection)
	case p.keyword("update"):
		st, err = p.parseUpdate()
	default:
		var e *expr
		e, err = p.parseExpr()
		st = &statement{kind: stmtQuery, expr: e}
	}
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q", p.rest())
	}
	return st, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool    { return p.pos >= len(p.src) }
func (p *parser) rest() string { return p.src[p.pos:] }

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) errorf(format string, args ...any) *engineError {
	line, col := 1, 1
	for _, r := range p.src[:min(p.pos, len(p.src))] {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	e := newError(codeSyntax, format, args...)
	e.details = "at (" + strconv.Itoa(line) + ":" + strconv.Itoa(col) + "), syntax error, " + e.details
	return e
}

// keyword consumes kw when it appears as a whole word at the current position.
func (p *parser) keyword(kw string) bool {
	p.skipSpace()
	if !strings.HasPrefix(p.rest(), kw) {
		return false
	}
	end := p.pos + len(kw)
	if end < len(p.src) && isNameChar(rune(p.src[end])) {
		return false
	}
	p.pos = end
	return true
}

func (p *parser) expect(ch byte) error {
	p.skipSpace()
	if p.eof() || p.src[p.pos] != ch {
		if p.eof() {
			return p.errorf("unexpected end of input, expecting %q", ch)
		}
		return p.errorf("unexpected %q, expecting %q", p.src[p.pos], ch)
	}
	p.pos++
	return nil
}

func (p *parser) peek(ch byte) bool {
	p.skipSpace()
	return !p.eof() && p.src[p.pos] == ch
}

func (p *parser) stringLiteral() (string, error) {
	p.skipSpace()
	if p.eof() || (p.src[p.pos] != '\'' && p.src[p.pos] != '"') {
		return "", p.errorf("expecting string literal")
	}
	quote := p.src[p.pos]
	var sb strings.Builder
	for i := p.pos + 1; i < len(p.src); i++ {
		if p.src[i] != quote {
			sb.WriteByte(p.src[i])
			continue
		}
		// 两个连续引号表示一个引号字符
		if i+1 < len(p.src) && p.src[i+1] == quote {
			sb.WriteByte(quote)
			i++
			continue
		}
		p.pos = i + 1
		return sb.String(), nil
	}
	return "", p.errorf("unterminated string literal")
}

func (p *parser) parseDDL(docKind, colKind stmtKind) (*statement, error) {
	switch {
	case p.keyword("document"):
		name, err := p.stringLiteral()
		if err != nil {
			return nil, err
		}
		st := &statement{kind: docKind, doc: name}
		if p.keyword("in") {
			if !p.keyword("collection") {
				return nil, p.errorf("expecting \"collection\"")
			}
			if st.col, err = p.stringLiteral(); err != nil {
				return nil, err
			}
		}
		return st, nil
	case p.keyword("collection"):
		name, err := p.stringLiteral()
		if err != nil {
			return nil, err
		}
		return &statement{kind: colKind, col: name}, nil
	default:
		return nil, p.errorf("expecting \"document\" or \"collection\"")
	}
}

func (p *parser) parseUpdate() (*statement, error) {
	switch {
	case p.keyword("insert"):
		p.skipSpace()
		if !p.peek('<') {
			return nil, p.errorf("expecting element constructor")
		}
		rest := p.rest()
		idx := strings.LastIndex(rest, "into")
		for idx > 0 && !(isSpaceOrGT(rest[idx-1]) && (idx+4 == len(rest) || unicode.IsSpace(rune(rest[idx+4])))) {
			idx = strings.LastIndex(rest[:idx], "into")
		}
		if idx <= 0 {
			return nil, p.errorf("expecting \"into\"")
		}
		fragment := strings.TrimSpace(rest[:idx])
		p.pos += idx + len("into")
		target, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &statement{kind: stmtInsert, fragment: fragment, expr: target}, nil
	case p.keyword("delete"):
		target, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &statement{kind: stmtDelete, expr: target}, nil
	default:
		return nil, p.errorf("expecting \"insert\" or \"delete\"")
	}
}

func (p *parser) parseExpr() (*expr, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("unexpected end of input")
	}

	var e *expr
	switch c := p.src[p.pos]; {
	case c == '\'' || c == '"':
		s, err := p.stringLiteral()
		if err != nil {
			return nil, err
		}
		return &expr{source: srcString, literal: s}, nil
	case c >= '0' && c <= '9':
		start := p.pos
		for !p.eof() && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
			p.pos++
		}
		lit := p.src[start:p.pos]
		if _, err := strconv.ParseFloat(lit, 64); err != nil {
			return nil, p.errorf("invalid number %q", lit)
		}
		return &expr{source: srcNumber, literal: lit}, nil
	case p.keyword("count"):
		if err := p.expect('('); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return &expr{source: srcCount, inner: inner}, nil
	case p.keyword("doc"):
		if err := p.expect('('); err != nil {
			return nil, err
		}
		name, err := p.stringLiteral()
		if err != nil {
			return nil, err
		}
		e = &expr{source: srcDoc, doc: name}
		if p.peek(',') {
			p.pos++
			if e.col, err = p.stringLiteral(); err != nil {
				return nil, err
			}
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
	case p.keyword("collection"):
		if err := p.expect('('); err != nil {
			return nil, err
		}
		name, err := p.stringLiteral()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		e = &expr{source: srcCollection, col: name}
	default:
		return nil, p.errorf("unexpected %q", p.rest())
	}

	path := p.scanPath()
	steps, err := xmltree.ParsePath(path)
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	e.steps = steps
	return e, nil
}

// scanPath consumes the location path following a source expression.
func (p *parser) scanPath() string {
	start := p.pos
	for !p.eof() && p.src[p.pos] == '/' {
		for !p.eof() && p.src[p.pos] == '/' {
			p.pos++
		}
		if !p.eof() && p.src[p.pos] == '@' {
			p.pos++
		}
		for !p.eof() && (isNameChar(rune(p.src[p.pos])) || p.src[p.pos] == '*') {
			p.pos++
		}
		if strings.HasPrefix(p.rest(), "()") {
			p.pos += 2
		}
		if !p.eof() && p.src[p.pos] == '[' {
			if end := strings.IndexByte(p.rest(), ']'); end >= 0 {
				p.pos += end + 1
			}
		}
	}
	return p.src[start:p.pos]
}

func isNameChar(r rune) bool {
	return r == '_' || r == '-' || r == '.' || r == ':' || r > 0x7f ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isSpaceOrGT(b byte) bool {
	return b == '>' || unicode.IsSpace(rune(b))
}
