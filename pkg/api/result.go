package api

import (
	"bytes"

	"golang.org/x/text/encoding"

	"github.com/kasuganosora/sedna-go/pkg/driver"
	"github.com/kasuganosora/sedna-go/pkg/utils"
)

// ResultSet 查询结果: 按服务器返回顺序排列的结果项
//
// Execute returns a nil *ResultSet for statements that do not select
// anything (updates, bulk loads, DDL). A query that selects nothing returns
// an empty, non-nil ResultSet.
type ResultSet struct {
	Items []string
}

// Len returns the number of items. A nil ResultSet has length 0.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

// Strings returns the items. The slice is owned by the caller.
func (r *ResultSet) Strings() []string {
	if r == nil {
		return nil
	}
	return r.Items
}

// First returns the first item, if any.
func (r *ResultSet) First() (string, bool) {
	if r.Len() == 0 {
		return "", false
	}
	return r.Items[0], true
}

// readResultSet pulls every item of the current result set off the handle.
//
// The server prepends a spurious newline to every item except the first one;
// exactly one leading byte is dropped from the first chunk of those items.
func readResultSet(conn driver.Conn, bufSize int, enc encoding.Encoding) (*ResultSet, error) {
	set := &ResultSet{Items: []string{}}
	buf := make([]byte, bufSize)
	strip := false

	for {
		st := conn.Next()
		if st == driver.StatusResultEnd || st == driver.StatusNoItem {
			break
		}
		if st.Failed() {
			return nil, TranslateError(st, conn.LastError())
		}

		item, err := readItem(conn, buf, strip, enc)
		if err != nil {
			return nil, err
		}
		set.Items = append(set.Items, item)
		strip = true
	}

	return set, nil
}

// readItem reads one item completely, chunk by chunk.
func readItem(conn driver.Conn, buf []byte, strip bool, enc encoding.Encoding) (string, error) {
	var data bytes.Buffer
	for {
		n := conn.GetData(buf)
		if n < 0 {
			return "", TranslateError(driver.Status(n), conn.LastError())
		}
		if n == 0 {
			break
		}

		chunk := buf[:n]
		if strip {
			chunk = chunk[1:]
			strip = false
		}
		data.Write(chunk)
	}

	item, err := utils.DecodeBytes(enc, data.Bytes())
	if err != nil {
		return "", WrapError(err, ErrCodeGeneric, "failed to decode result item")
	}
	return item, nil
}
