package api

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/kasuganosora/sedna-go/pkg/driver"
	"github.com/kasuganosora/sedna-go/pkg/utils"
)

// errEmptyDocument is the message reported for a load without any content.
const errEmptyDocument = "Document is empty."

// LoadDocument creates document doc in collection col (a standalone document
// when col is empty) and streams the content of r into it.
//
// UTF-16 input carrying a byte order mark is converted to UTF-8 first. An
// input without a single byte fails with "Document is empty.".
func (s *Session) LoadDocument(ctx context.Context, r io.Reader, doc, col string) error {
	if r == nil {
		return NewError(ErrCodeTypeMismatch, "document must be a string or a reader", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return err
	}

	src := utils.EncodeReader(s.enc, utils.SniffUTF16(r))
	buf := make([]byte, LoadBufferSize)
	total := 0

	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			total += n
			if st := s.conn.LoadData(ctx, buf[:n], doc, col); st != driver.StatusDataChunkLoaded {
				return TranslateError(st, s.conn.LastError())
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return WrapError(rerr, ErrCodeGeneric, "failed to read document")
		}
	}

	if total == 0 {
		return NewError(ErrCodeGeneric, errEmptyDocument, nil)
	}

	if st := s.conn.EndLoadData(ctx); st != driver.StatusBulkLoadSucceeded {
		return TranslateError(st, s.conn.LastError())
	}

	s.logger.Debug("Loaded document '%s' (%d bytes)", doc, total)
	return nil
}

// LoadDocumentString is LoadDocument for a document held in a string.
func (s *Session) LoadDocumentString(ctx context.Context, document, doc, col string) error {
	return s.LoadDocument(ctx, strings.NewReader(document), doc, col)
}
