package api

import (
	"context"
	"runtime"

	"github.com/google/uuid"

	"github.com/kasuganosora/sedna-go/pkg/driver"
	"github.com/kasuganosora/sedna-go/pkg/utils"
)

// Connect opens a new session. Empty fields of opts take the package
// defaults (localhost, database "test", user SYSTEM, password MANAGER).
//
// Rejected credentials yield an AUTHENTICATION error, any other failure to
// open the session a CONNECTION error.
func Connect(ctx context.Context, opts *Options) (*Session, error) {
	o := opts.withDefaults()

	drv, err := driver.Lookup(o.Driver)
	if err != nil {
		return nil, WrapError(err, ErrCodeConnection, "failed to find driver")
	}

	enc, err := utils.LookupEncoding(o.Encoding)
	if err != nil {
		return nil, WrapError(err, ErrCodeInvalidParam, "invalid encoding")
	}

	id := uuid.NewString()
	s := &Session{
		conn:       drv.NewConn(),
		opts:       o,
		enc:        enc,
		autocommit: true,
		id:         id,
		logger:     WithPrefix(o.Logger, "[session "+id[:8]+"] "),
	}

	if err := s.openLocked(ctx); err != nil {
		return nil, err
	}

	// 会话被丢弃时关闭仍然打开的句柄
	runtime.AddCleanup(s, closeAbandoned, s.conn)

	s.logger.Debug("Connected to %s/%s as %s", o.Host, o.Database, o.Username)
	return s, nil
}

// ConnectFunc opens a session, passes it to fn and closes it when fn
// returns, panics or exits the goroutine. fn is not called when the
// connection cannot be established.
//
// fn's error is returned unchanged; an error from closing the session is
// only returned when fn succeeded.
func ConnectFunc(ctx context.Context, opts *Options, fn func(s *Session) error) (err error) {
	if fn == nil {
		return NewError(ErrCodeInvalidParam, "no block given", nil)
	}

	s, err := Connect(ctx, opts)
	if err != nil {
		return err
	}

	done := false
	defer func() {
		if !done {
			// fn 发生 panic 或 Goexit: 关闭连接后继续向上传播
			if cerr := s.Close(); cerr != nil {
				s.logger.Error("Failed to close session while unwinding: %v", cerr)
			}
		}
	}()

	fnErr := fn(s)
	done = true

	cerr := s.Close()
	if fnErr != nil {
		if cerr != nil {
			s.logger.Error("Failed to close session: %v", cerr)
		}
		return fnErr
	}
	return cerr
}

// closeAbandoned is the cleanup for a session that was never closed.
func closeAbandoned(conn driver.Conn) {
	if conn.ConnectionStatus() != driver.StatusConnectionClosed {
		conn.Close()
	}
}

// openLocked connects the handle with the stored parameters.
func (s *Session) openLocked(ctx context.Context) error {
	o := s.opts
	st := s.conn.Connect(ctx, o.Host, o.Database, o.Username, o.Password)
	if st == driver.StatusSessionOpen {
		return nil
	}

	// The native side already dropped the socket; mark the handle closed so
	// that Close and the cleanup do not close it a second time.
	s.conn.MarkClosed()

	err := TranslateError(st, s.conn.LastError())
	if err.Code != ErrCodeAuthentication {
		err.Code = ErrCodeConnection
	}
	return err
}

// closeLocked closes the handle if it is open.
func (s *Session) closeLocked() error {
	if s.conn.ConnectionStatus() == driver.StatusConnectionClosed {
		return nil
	}

	st := s.conn.Close()
	s.inTx = false
	if st != driver.StatusSessionClosed {
		err := TranslateError(st, s.conn.LastError())
		err.Code = ErrCodeConnection
		return err
	}
	return nil
}

// Close closes the session. Closing an already closed session does nothing.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeLocked(); err != nil {
		return err
	}
	s.logger.Debug("Session closed")
	return nil
}

// Connected reports whether the handle is open.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.ConnectionStatus() == driver.StatusConnectionOK
}

// Reset closes the connection and opens it again with the original
// parameters. The autocommit mode survives a reset; an active transaction
// does not, it is dropped without notice.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeLocked(); err != nil {
		return err
	}
	s.inTx = false

	if err := s.openLocked(ctx); err != nil {
		return err
	}

	if !s.autocommit {
		if st := s.conn.SetAttr(driver.AttrAutocommit, driver.AutocommitOff); st != driver.StatusSetAttributeSucceeded {
			return TranslateError(st, s.conn.LastError())
		}
	}

	s.logger.Debug("Session reset")
	return nil
}
