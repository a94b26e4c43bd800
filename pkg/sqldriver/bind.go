package sqldriver

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kasuganosora/sedna-go/pkg/api"
)

// scan modes of bindArgs
const (
	modeExpr    = iota // XQuery expression, ? is a placeholder
	modeTag            // inside <name ...> of a direct constructor
	modeContent        // element content
	modeEndTag         // inside </name>
)

// bindArgs replaces every ? placeholder with the XQuery literal of the
// matching argument. A ? inside a string literal, a comment or the literal
// text of a direct element constructor is left alone; enclosed expressions
// {...} in element content are scanned again. The number of placeholders
// must equal the number of arguments.
func bindArgs(query string, args []driver.NamedValue) (string, error) {
	var sb strings.Builder
	next := 0
	modes := []int{modeExpr}
	top := func() int { return modes[len(modes)-1] }
	pop := func() {
		if len(modes) > 1 {
			modes = modes[:len(modes)-1]
		}
	}

	for i := 0; i < len(query); i++ {
		c := query[i]
		rest := query[i:]
		switch top() {
		case modeExpr:
			switch {
			case c == '\'' || c == '"':
				j := skipQuoted(query, i)
				sb.WriteString(query[i:j])
				i = j - 1
				continue
			case strings.HasPrefix(rest, "(:"):
				j := skipComment(query, i)
				sb.WriteString(query[i:j])
				i = j - 1
				continue
			case c == '<' && startsName(query, i+1):
				modes = append(modes, modeTag)
			case c == '{':
				modes = append(modes, modeExpr)
			case c == '}':
				pop()
			case c == '?':
				if next >= len(args) {
					return "", api.NewError(api.ErrCodeInvalidParam, fmt.Sprintf("not enough arguments: placeholder %d has no value", next+1), nil)
				}
				lit, err := literal(args[next].Value)
				if err != nil {
					return "", err
				}
				sb.WriteString(lit)
				next++
				continue
			}
		case modeTag:
			switch {
			case c == '\'' || c == '"':
				j := skipQuoted(query, i)
				sb.WriteString(query[i:j])
				i = j - 1
				continue
			case strings.HasPrefix(rest, "/>"):
				sb.WriteString("/>")
				i++
				pop()
				continue
			case c == '>':
				modes[len(modes)-1] = modeContent
			}
		case modeContent:
			switch {
			case strings.HasPrefix(rest, "<!--"):
				j := skipUntil(query, i, "-->")
				sb.WriteString(query[i:j])
				i = j - 1
				continue
			case strings.HasPrefix(rest, "<![CDATA["):
				j := skipUntil(query, i, "]]>")
				sb.WriteString(query[i:j])
				i = j - 1
				continue
			case strings.HasPrefix(rest, "</"):
				modes[len(modes)-1] = modeEndTag
			case c == '<' && startsName(query, i+1):
				modes = append(modes, modeTag)
			case strings.HasPrefix(rest, "{{"), strings.HasPrefix(rest, "}}"):
				sb.WriteString(rest[:2])
				i++
				continue
			case c == '{':
				modes = append(modes, modeExpr)
			}
		case modeEndTag:
			if c == '>' {
				pop()
			}
		}
		sb.WriteByte(c)
	}

	if next != len(args) {
		return "", api.NewError(api.ErrCodeInvalidParam, fmt.Sprintf("got %d arguments for %d placeholders", len(args), next), nil)
	}
	return sb.String(), nil
}

// skipQuoted returns the index just past the string literal starting at i.
// A doubled quote inside the literal is an escaped quote.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// skipComment returns the index just past the XQuery comment at i.
// Comments nest.
func skipComment(s string, i int) int {
	depth := 0
	for j := i; j+1 < len(s); j++ {
		switch s[j : j+2] {
		case "(:":
			depth++
			j++
		case ":)":
			depth--
			j++
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(s)
}

func skipUntil(s string, i int, end string) int {
	if k := strings.Index(s[i:], end); k >= 0 {
		return i + k + len(end)
	}
	return len(s)
}

func startsName(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	c := s[i]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

// literal renders v as an XQuery literal.
func literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "()", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		if x {
			return "true()", nil
		}
		return "false()", nil
	case time.Time:
		return quoteString(x.Format(time.RFC3339Nano)), nil
	}

	s, err := api.QueryText(v)
	if err != nil {
		return "", err
	}
	return quoteString(s), nil
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
