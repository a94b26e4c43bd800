package api

import (
	"context"

	"github.com/kasuganosora/sedna-go/pkg/driver"
)

// Execute runs query against the database.
//
// For a selecting query the items of the result are returned in server
// order. Updates, bulk loads and other statements that select nothing
// return a nil *ResultSet. Executing on a closed session fails with a
// CONNECTION error without contacting the server; a failing statement
// yields the translated driver error.
func (s *Session) Execute(ctx context.Context, query string) (*ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return nil, err
	}

	text, err := s.encodeQuery(query)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Execute: %s", query)

	st := s.conn.Execute(ctx, text)
	switch st {
	case driver.StatusQuerySucceeded:
		return readResultSet(s.conn, s.opts.ReadBufferSize, s.enc)
	case driver.StatusUpdateSucceeded, driver.StatusBulkLoadSucceeded:
		return nil, nil
	default:
		return nil, TranslateError(st, s.conn.LastError())
	}
}

// Query is an alias of Execute.
func (s *Session) Query(ctx context.Context, query string) (*ResultSet, error) {
	return s.Execute(ctx, query)
}

// encodeQuery converts query text to the session encoding.
func (s *Session) encodeQuery(query string) (string, error) {
	if s.enc == nil {
		return query, nil
	}
	text, err := s.enc.NewEncoder().String(query)
	if err != nil {
		return "", WrapError(err, ErrCodeTypeMismatch, "query text cannot be represented in "+s.opts.Encoding)
	}
	return text, nil
}
