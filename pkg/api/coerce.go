package api

import (
	"bytes"
	"encoding"
	"fmt"
	"io"
	"strings"
)

// QueryText converts an untyped argument, as received from database/sql or
// a JSON tool call, into query text. Strings, byte slices, fmt.Stringer and
// encoding.TextMarshaler values are accepted; anything else fails with a
// TYPE_MISMATCH error.
func QueryText(v any) (string, error) {
	switch q := v.(type) {
	case string:
		return q, nil
	case []byte:
		return string(q), nil
	case encoding.TextMarshaler:
		b, err := q.MarshalText()
		if err != nil {
			return "", WrapError(err, ErrCodeTypeMismatch, "cannot convert query to text")
		}
		return string(b), nil
	case fmt.Stringer:
		return q.String(), nil
	default:
		return "", NewError(ErrCodeTypeMismatch, fmt.Sprintf("wrong argument type %s (expected String)", typeName(v)), nil)
	}
}

// DocumentReader converts an untyped document argument into a reader.
// Strings, byte slices and io.Reader values are accepted.
func DocumentReader(v any) (io.Reader, error) {
	switch d := v.(type) {
	case string:
		return strings.NewReader(d), nil
	case []byte:
		return bytes.NewReader(d), nil
	case io.Reader:
		return d, nil
	default:
		return nil, NewError(ErrCodeTypeMismatch, fmt.Sprintf("wrong argument type %s (expected String or Reader)", typeName(v)), nil)
	}
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
