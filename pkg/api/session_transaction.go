package api

import (
	"context"

	"github.com/kasuganosora/sedna-go/pkg/driver"
)

// errPrematureEnd is reported when the transaction function succeeded but the
// server no longer has the transaction open (for example because fn committed
// it, or swallowed the error of a statement that aborted it).
const errPrematureEnd = "The transaction was prematurely ended, but no error was encountered. " +
	"Did you swallow an error inside the transaction?"

// Transaction runs fn inside a transaction.
//
// When fn returns nil the transaction is committed. When fn returns an
// error, panics or exits the goroutine, the transaction is rolled back and
// fn's error (or panic) propagates unchanged. Rollback failures during that
// unwinding are logged, never returned. In every case the session's
// autocommit mode is restored afterwards.
//
// Transactions do not nest: starting one while another is active on the
// same session fails with a TRANSACTION error and leaves the active one
// untouched.
func (s *Session) Transaction(ctx context.Context, fn func() error) error {
	if fn == nil {
		return NewError(ErrCodeInvalidParam, "no block given", nil)
	}

	if err := s.Begin(ctx); err != nil {
		return err
	}

	completed := false
	defer func() {
		if !completed {
			s.abort()
		}
	}()

	fnErr := fn()
	completed = true

	if fnErr != nil {
		s.abort()
		return fnErr
	}
	return s.finish()
}

// Begin starts a transaction. Autocommit is switched off on the handle for
// the lifetime of the transaction.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return err
	}

	if s.inTx || s.conn.TransactionStatus() == driver.StatusTransactionActive {
		return NewError(ErrCodeTransaction, "nested transactions are not supported", nil)
	}

	if st := s.conn.SetAttr(driver.AttrAutocommit, driver.AutocommitOff); st != driver.StatusSetAttributeSucceeded {
		return TranslateError(st, s.conn.LastError())
	}

	if st := s.conn.Begin(); st != driver.StatusBeginTransactionSucceeded {
		err := s.transactionError(st)
		if rerr := s.restoreAutocommitLocked(); rerr != nil {
			s.logger.Error("Failed to restore autocommit: %v", rerr)
		}
		return err
	}

	s.inTx = true
	s.logger.Debug("Transaction started")
	return nil
}

// Commit commits the active transaction. Without an active transaction it
// fails with a TRANSACTION error.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inTx && s.conn.TransactionStatus() != driver.StatusTransactionActive {
		return NewError(ErrCodeTransaction, "there is no active transaction to commit", nil)
	}
	return s.commitLocked()
}

// Rollback rolls the active transaction back. Without an active transaction
// it does nothing.
func (s *Session) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inTx && s.conn.TransactionStatus() != driver.StatusTransactionActive {
		return nil
	}

	s.inTx = false
	var err error
	if st := s.conn.Rollback(); st != driver.StatusRollbackTransactionSucceeded {
		err = s.transactionError(st)
	}
	if rerr := s.restoreAutocommitLocked(); rerr != nil && err == nil {
		err = rerr
	}
	if err == nil {
		s.logger.Debug("Transaction rolled back")
	}
	return err
}

// finish ends the transaction after fn succeeded.
func (s *Session) finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn.TransactionStatus() != driver.StatusTransactionActive {
		s.inTx = false
		err := NewError(ErrCodeTransaction, errPrematureEnd, nil)
		if rerr := s.restoreAutocommitLocked(); rerr != nil {
			s.logger.Error("Failed to restore autocommit: %v", rerr)
		}
		return err
	}
	return s.commitLocked()
}

// commitLocked commits and restores autocommit, whatever the commit outcome.
func (s *Session) commitLocked() error {
	s.inTx = false

	var err error
	if st := s.conn.Commit(); st != driver.StatusCommitTransactionSucceeded {
		err = s.transactionError(st)
	}
	if rerr := s.restoreAutocommitLocked(); rerr != nil {
		if err == nil {
			err = rerr
		} else {
			s.logger.Error("Failed to restore autocommit: %v", rerr)
		}
	}
	if err == nil {
		s.logger.Debug("Transaction committed")
	}
	return err
}

// abort rolls back after fn failed. Errors are logged only: the caller is
// already propagating fn's failure.
func (s *Session) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inTx = false
	if s.conn.TransactionStatus() == driver.StatusTransactionActive {
		if st := s.conn.Rollback(); st != driver.StatusRollbackTransactionSucceeded {
			s.logger.Error("Failed to roll back transaction: %v", s.transactionError(st))
		} else {
			s.logger.Debug("Transaction rolled back")
		}
	}
	if err := s.restoreAutocommitLocked(); err != nil {
		s.logger.Error("Failed to restore autocommit: %v", err)
	}
}

// transactionError translates a failed begin/commit/rollback status. The
// kind is always TRANSACTION, whatever code the driver used.
func (s *Session) transactionError(st driver.Status) *Error {
	err := TranslateError(st, s.conn.LastError())
	err.Code = ErrCodeTransaction
	return err
}
