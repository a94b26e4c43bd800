package driver

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Conn is one native connection handle. Implementations are not safe for
// concurrent use; callers serialize access.
type Conn interface {
	// Connect opens the session. Returns StatusSessionOpen on success,
	// StatusAuthenticationFailed or StatusOpenSessionFailed otherwise.
	Connect(ctx context.Context, host, database, user, password string) Status

	// Close closes the session. Returns StatusSessionClosed on success.
	Close() Status

	// Execute runs a statement. StatusQuerySucceeded means a result set is
	// ready to be consumed with Next/GetData.
	Execute(ctx context.Context, query string) Status

	Begin() Status
	Commit() Status
	Rollback() Status

	SetAttr(attr Attr, value int) Status

	// Next advances to the next item of the current result set.
	Next() Status

	// GetData copies the next chunk of the current item into p and returns the
	// number of bytes copied, 0 when the item is exhausted, or int(StatusError).
	GetData(p []byte) int

	// LoadData sends one chunk of a bulk load into document doc of collection
	// col (col may be empty for a standalone document).
	LoadData(ctx context.Context, chunk []byte, doc, col string) Status

	// EndLoadData finishes the bulk load started by LoadData.
	EndLoadData(ctx context.Context) Status

	// LastError returns the multi-line text describing the last failure.
	LastError() string

	ConnectionStatus() Status
	TransactionStatus() Status

	// MarkClosed forces ConnectionStatus to StatusConnectionClosed. Used after
	// a failed Connect, when the native side has already dropped the socket.
	MarkClosed()
}

// Driver creates connection handles.
type Driver interface {
	NewConn() Conn
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. Registering the same name twice
// replaces the previous driver.
func Register(name string, d Driver) {
	if d == nil {
		panic("driver: Register driver is nil")
	}
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = d
}

// Unregister removes a driver. Mostly useful in tests.
func Unregister(name string) {
	driversMu.Lock()
	defer driversMu.Unlock()
	delete(drivers, name)
}

// Lookup returns the driver registered under name.
func Lookup(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("driver %q not registered", name)
	}
	return d, nil
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func() Conn

// NewConn calls f.
func (f DriverFunc) NewConn() Conn {
	return f()
}
