package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopDriver struct{}

func (nopDriver) NewConn() Conn { return nil }

func TestRegisterAndLookup(t *testing.T) {
	Register("test-nop", nopDriver{})
	defer Unregister("test-nop")

	d, err := Lookup("test-nop")
	require.NoError(t, err)
	assert.NotNil(t, d)
	assert.Contains(t, Drivers(), "test-nop")
}

func TestLookup_NotRegistered(t *testing.T) {
	_, err := Lookup("does-not-exist")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegister_NilPanics(t *testing.T) {
	assert.Panics(t, func() {
		Register("nil-driver", nil)
	})
}

func TestDriverFunc(t *testing.T) {
	called := false
	d := DriverFunc(func() Conn {
		called = true
		return nil
	})
	d.NewConn()
	assert.True(t, called)
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusSessionOpen, "SESSION_OPEN"},
		{StatusAuthenticationFailed, "AUTHENTICATION_FAILED"},
		{StatusResultEnd, "RESULT_END"},
		{StatusError, "ERROR"},
		{Status(999), "STATUS(999)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestStatus_Failed(t *testing.T) {
	assert.True(t, StatusError.Failed())
	assert.True(t, StatusCommitTransactionFailed.Failed())
	assert.False(t, StatusQuerySucceeded.Failed())
	assert.False(t, StatusResultEnd.Failed())
}

func TestAutocommitValue(t *testing.T) {
	assert.Equal(t, AutocommitOn, AutocommitValue(true))
	assert.Equal(t, AutocommitOff, AutocommitValue(false))
}
