package api

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/sedna-go/pkg/driver"
	"github.com/kasuganosora/sedna-go/pkg/driver/drivertest"
)

var (
	setAutocommitOff = fmt.Sprintf("setattr %d=%d", driver.AttrAutocommit, driver.AutocommitOff)
	setAutocommitOn  = fmt.Sprintf("setattr %d=%d", driver.AttrAutocommit, driver.AutocommitOn)
)

func TestTransaction_Commit(t *testing.T) {
	s, conn := newFakeSession(t)
	conn.ResetCalls()

	err := s.Transaction(context.Background(), func() error {
		assert.True(t, s.InTransaction())
		_, err := s.Execute(context.Background(), "update insert <a/> into doc('d')")
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		setAutocommitOff,
		"begin",
		"execute update insert <a/> into doc('d')",
		"commit",
		setAutocommitOn,
	}, conn.Calls())
	assert.False(t, s.InTransaction())
	assert.Equal(t, driver.AutocommitOn, conn.Autocommit())
}

func TestTransaction_RollbackOnError(t *testing.T) {
	s, conn := newFakeSession(t)
	boom := errors.New("boom")

	err := s.Transaction(context.Background(), func() error {
		return boom
	})
	assert.Same(t, boom, err)

	assert.Equal(t, 1, conn.CountCalls("rollback"))
	assert.Equal(t, 0, conn.CountCalls("commit"))
	assert.Equal(t, driver.StatusNoTransaction, conn.TransactionStatus())
	assert.Equal(t, driver.AutocommitOn, conn.Autocommit())
	assert.False(t, s.InTransaction())
}

func TestTransaction_RollbackOnPanic(t *testing.T) {
	s, conn := newFakeSession(t)

	assert.PanicsWithValue(t, "boom", func() {
		_ = s.Transaction(context.Background(), func() error {
			panic("boom")
		})
	})

	assert.Equal(t, 1, conn.CountCalls("rollback"))
	assert.Equal(t, 0, conn.CountCalls("commit"))
	assert.False(t, s.InTransaction())
	assert.Equal(t, driver.AutocommitOn, conn.Autocommit())
}

func TestTransaction_RollbackOnGoexit(t *testing.T) {
	s, conn := newFakeSession(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Transaction(context.Background(), func() error {
			runtime.Goexit()
			return nil
		})
	}()
	<-done

	assert.Equal(t, 1, conn.CountCalls("rollback"))
	assert.False(t, s.InTransaction())
}

func TestTransaction_RollbackFailureIsNotReturned(t *testing.T) {
	s, conn := newFakeSession(t)
	conn.RollbackStatus = driver.StatusRollbackTransactionFailed
	boom := errors.New("boom")

	err := s.Transaction(context.Background(), func() error { return boom })
	assert.Same(t, boom, err)
}

func TestTransaction_Nested(t *testing.T) {
	s, conn := newFakeSession(t)

	innerCalled := false
	err := s.Transaction(context.Background(), func() error {
		nestedErr := s.Transaction(context.Background(), func() error {
			innerCalled = true
			return nil
		})
		require.Error(t, nestedErr)
		assert.True(t, IsTransactionError(nestedErr))

		// the outer transaction is untouched
		assert.True(t, s.InTransaction())
		assert.Equal(t, driver.StatusTransactionActive, conn.TransactionStatus())
		return nil
	})
	require.NoError(t, err)

	assert.False(t, innerCalled)
	assert.Equal(t, 1, conn.CountCalls("begin"))
	assert.Equal(t, 1, conn.CountCalls("commit"))
}

func TestTransaction_ConcurrentFromTwoGoroutines(t *testing.T) {
	s, conn := newFakeSession(t)
	inside := make(chan struct{})
	release := make(chan struct{})

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- s.Transaction(context.Background(), func() error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	secondErr := make(chan error, 1)
	go func() {
		secondErr <- s.Transaction(context.Background(), func() error {
			t.Error("second transaction must not run")
			return nil
		})
	}()

	select {
	case err := <-secondErr:
		require.Error(t, err)
		assert.True(t, IsTransactionError(err))
	case <-time.After(2 * time.Second):
		t.Fatal("second Transaction blocked behind the first")
	}

	assert.True(t, s.InTransaction())
	close(release)
	require.NoError(t, <-firstErr)
	assert.Equal(t, 1, conn.CountCalls("begin"))
	assert.Equal(t, 1, conn.CountCalls("commit"))
}

func TestSessions_RunIndependently(t *testing.T) {
	slow, slowConn := newFakeSession(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	slowConn.Replies["slow"] = drivertest.Reply{
		Status:  driver.StatusQuerySucceeded,
		Items:   []string{"late"},
		Entered: entered,
		Wait:    release,
	}

	otherConn := drivertest.NewConn()
	otherConn.Replies["fast"] = drivertest.Reply{Status: driver.StatusQuerySucceeded, Items: []string{"early"}}
	other, err := Connect(context.Background(), &Options{Driver: registerFakeAs(t, "other", otherConn), Logger: NewNoOpLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { other.Close() })

	slowDone := make(chan *ResultSet, 1)
	go func() {
		rs, err := slow.Execute(context.Background(), "slow")
		assert.NoError(t, err)
		slowDone <- rs
	}()
	<-entered

	fastDone := make(chan *ResultSet, 1)
	go func() {
		rs, err := other.Execute(context.Background(), "fast")
		assert.NoError(t, err)
		fastDone <- rs
	}()

	select {
	case rs := <-fastDone:
		assert.Equal(t, []string{"early"}, rs.Strings())
	case <-time.After(2 * time.Second):
		t.Fatal("a busy session blocked another session")
	}

	close(release)
	assert.Equal(t, []string{"late"}, (<-slowDone).Strings())
}

func TestTransaction_PrematureEnd(t *testing.T) {
	s, conn := newFakeSession(t)

	err := s.Transaction(context.Background(), func() error {
		// the server aborted the transaction, the error was swallowed
		conn.SetTransactionStatus(driver.StatusNoTransaction)
		return nil
	})
	require.Error(t, err)
	assert.True(t, IsTransactionError(err))
	assert.Contains(t, err.Error(), "prematurely ended")

	assert.Equal(t, 0, conn.CountCalls("commit"))
	assert.False(t, s.InTransaction())
	assert.Equal(t, driver.AutocommitOn, conn.Autocommit())
}

func TestTransaction_BeginFailure(t *testing.T) {
	s, conn := newFakeSession(t)
	conn.BeginStatus = driver.StatusBeginTransactionFailed
	conn.TxError = "Cannot begin."

	called := false
	err := s.Transaction(context.Background(), func() error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, IsTransactionError(err))
	assert.Contains(t, err.Error(), "Cannot begin.")
	assert.False(t, called)
	assert.Equal(t, driver.AutocommitOn, conn.Autocommit())
}

func TestTransaction_CommitFailure(t *testing.T) {
	s, conn := newFakeSession(t)
	conn.CommitStatus = driver.StatusCommitTransactionFailed
	conn.TxError = "Commit failed."

	err := s.Transaction(context.Background(), func() error { return nil })
	require.Error(t, err)
	assert.True(t, IsTransactionError(err))
	assert.Contains(t, err.Error(), "Commit failed.")
	assert.False(t, s.InTransaction())
	assert.Equal(t, driver.AutocommitOn, conn.Autocommit())
}

func TestTransaction_NilCallback(t *testing.T) {
	s, conn := newFakeSession(t)

	err := s.Transaction(context.Background(), nil)
	assert.True(t, IsErrorCode(err, ErrCodeInvalidParam))
	assert.Equal(t, 0, conn.CountCalls("begin"))
}

func TestTransaction_ClosedSession(t *testing.T) {
	s, _ := newFakeSession(t)
	require.NoError(t, s.Close())

	err := s.Transaction(context.Background(), func() error { return nil })
	assert.True(t, IsConnectionError(err))
}

func TestTransaction_AutocommitChangedInside(t *testing.T) {
	s, conn := newFakeSession(t)

	err := s.Transaction(context.Background(), func() error {
		before := conn.CountCalls("setattr")
		require.NoError(t, s.SetAutocommit(context.Background(), false))
		assert.Equal(t, before, conn.CountCalls("setattr"))
		return nil
	})
	require.NoError(t, err)

	assert.False(t, s.Autocommit())
	assert.Equal(t, driver.AutocommitOff, conn.Autocommit())
}

func TestTransaction_AutocommitOffPreserved(t *testing.T) {
	s, conn := newFakeSession(t)
	require.NoError(t, s.SetAutocommit(context.Background(), false))

	require.NoError(t, s.Transaction(context.Background(), func() error { return nil }))
	assert.Equal(t, driver.AutocommitOff, conn.Autocommit())

	_ = s.Transaction(context.Background(), func() error { return errors.New("x") })
	assert.Equal(t, driver.AutocommitOff, conn.Autocommit())
}

func TestBeginCommit_Explicit(t *testing.T) {
	s, conn := newFakeSession(t)
	ctx := context.Background()

	require.NoError(t, s.Begin(ctx))
	assert.True(t, s.InTransaction())

	err := s.Begin(ctx)
	assert.True(t, IsTransactionError(err))

	require.NoError(t, s.Commit(ctx))
	assert.False(t, s.InTransaction())
	assert.Equal(t, 1, conn.CountCalls("commit"))
}

func TestCommit_WithoutTransaction(t *testing.T) {
	s, conn := newFakeSession(t)

	err := s.Commit(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransactionError(err))
	assert.Equal(t, 0, conn.CountCalls("commit"))
}

func TestRollback_WithoutTransaction(t *testing.T) {
	s, conn := newFakeSession(t)

	assert.NoError(t, s.Rollback(context.Background()))
	assert.Equal(t, 0, conn.CountCalls("rollback"))
}

func TestRollback_Explicit(t *testing.T) {
	s, conn := newFakeSession(t)
	ctx := context.Background()

	require.NoError(t, s.Begin(ctx))
	require.NoError(t, s.Rollback(ctx))

	assert.False(t, s.InTransaction())
	assert.Equal(t, 1, conn.CountCalls("rollback"))
	assert.Equal(t, driver.AutocommitOn, conn.Autocommit())
}
