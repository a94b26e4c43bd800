// Package drivertest provides a scriptable driver.Conn for testing code that
// sits on top of the driver contract.
package drivertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kasuganosora/sedna-go/pkg/driver"
)

// Reply scripts the outcome of one Execute call.
type Reply struct {
	Status driver.Status
	Items  []string
	// Error is the LastError text reported when Status is a failure code.
	Error string
	// NextFailsAt makes the Nth call to Next (1-based) return StatusError.
	NextFailsAt int
	// DataFailsAt makes GetData fail while reading the item with this 1-based index.
	DataFailsAt int
	// Entered receives a value when Execute starts, and Execute then blocks
	// until Wait is closed. Both are optional.
	Entered chan<- struct{}
	Wait    <-chan struct{}
}

// LoadedDocument records one finished bulk load.
type LoadedDocument struct {
	Name       string
	Collection string
	Data       string
	Chunks     int
}

// Conn is a fake native handle. The zero value is not usable, use NewConn.
type Conn struct {
	mu sync.Mutex

	// Scripted statuses. Zero values mean "succeed".
	ConnectStatus  driver.Status
	ConnectError   string
	CloseStatus    driver.Status
	BeginStatus    driver.Status
	CommitStatus   driver.Status
	RollbackStatus driver.Status
	SetAttrStatus  driver.Status
	LoadStatus     driver.Status
	EndLoadStatus  driver.Status
	TxError        string

	// Replies maps query text to its scripted outcome; unknown queries
	// succeed as updates.
	Replies map[string]Reply

	// ChunkSize limits the bytes returned per GetData call. 0 means len(p).
	ChunkSize int
	// NoDefect disables the leading newline the server adds to every item
	// after the first.
	NoDefect bool
	// Delay is slept inside every call, to widen race windows in tests.
	Delay time.Duration

	connStatus  driver.Status
	txStatus    driver.Status
	autocommit  int
	lastError   string
	calls       []string
	inFlight    int32
	overlapped  atomic.Bool
	reply       *Reply
	items       []string
	itemIdx     int
	itemPos     int
	nextCalls   int
	loadBuf     strings.Builder
	loadDoc     string
	loadCol     string
	loadChunks  int
	loaded      []LoadedDocument
	connectArgs []string
}

// NewConn returns a closed fake connection.
func NewConn() *Conn {
	return &Conn{
		Replies:    make(map[string]Reply),
		connStatus: driver.StatusConnectionClosed,
		txStatus:   driver.StatusNoTransaction,
		autocommit: driver.AutocommitOn,
	}
}

// Driver returns a driver.Driver that always hands out c. Useful when a test
// needs to inspect the handle a session was built on.
func (c *Conn) Driver() driver.Driver {
	return driver.DriverFunc(func() driver.Conn { return c })
}

func (c *Conn) enter(call string) func() {
	if atomic.AddInt32(&c.inFlight, 1) > 1 {
		c.overlapped.Store(true)
	}
	if c.Delay > 0 {
		time.Sleep(c.Delay)
	}
	c.mu.Lock()
	c.calls = append(c.calls, call)
	return func() {
		c.mu.Unlock()
		atomic.AddInt32(&c.inFlight, -1)
	}
}

func (c *Conn) fail(status driver.Status, msg string) driver.Status {
	if msg == "" {
		msg = "scripted failure"
	}
	c.lastError = FormatError("SE0000", msg, "")
	return status
}

// FormatError renders text the way the Sedna client library reports errors.
func FormatError(code, message, details string) string {
	return driver.FormatError(code, message, details)
}

func (c *Conn) Connect(ctx context.Context, host, database, user, password string) driver.Status {
	defer c.enter("connect")()
	c.connectArgs = []string{host, database, user, password}
	if c.ConnectStatus != 0 && c.ConnectStatus != driver.StatusSessionOpen {
		c.connStatus = driver.StatusConnectionFailed
		return c.fail(c.ConnectStatus, c.ConnectError)
	}
	c.connStatus = driver.StatusConnectionOK
	c.txStatus = driver.StatusNoTransaction
	c.autocommit = driver.AutocommitOn
	return driver.StatusSessionOpen
}

func (c *Conn) Close() driver.Status {
	defer c.enter("close")()
	if c.CloseStatus != 0 && c.CloseStatus != driver.StatusSessionClosed {
		return c.fail(c.CloseStatus, "failed to close session")
	}
	c.connStatus = driver.StatusConnectionClosed
	c.txStatus = driver.StatusNoTransaction
	return driver.StatusSessionClosed
}

func (c *Conn) Execute(ctx context.Context, query string) driver.Status {
	c.mu.Lock()
	hold := c.Replies[query]
	c.mu.Unlock()
	if hold.Entered != nil {
		hold.Entered <- struct{}{}
	}
	if hold.Wait != nil {
		<-hold.Wait
	}

	defer c.enter("execute " + query)()
	c.reply = nil
	c.items = nil
	c.itemIdx = -1
	c.nextCalls = 0

	reply, ok := c.Replies[query]
	if !ok {
		return driver.StatusUpdateSucceeded
	}
	if reply.Status.Failed() {
		return c.fail(reply.Status, reply.Error)
	}
	if reply.Status == driver.StatusQuerySucceeded {
		r := reply
		c.reply = &r
		c.items = make([]string, len(reply.Items))
		for i, item := range reply.Items {
			if i > 0 && !c.NoDefect {
				item = "\n" + item
			}
			c.items[i] = item
		}
	}
	return reply.Status
}

func (c *Conn) Begin() driver.Status {
	defer c.enter("begin")()
	if c.BeginStatus != 0 && c.BeginStatus != driver.StatusBeginTransactionSucceeded {
		return c.fail(c.BeginStatus, c.TxError)
	}
	if c.txStatus == driver.StatusTransactionActive {
		return c.fail(driver.StatusBeginTransactionFailed, "transaction is already active")
	}
	c.txStatus = driver.StatusTransactionActive
	return driver.StatusBeginTransactionSucceeded
}

func (c *Conn) Commit() driver.Status {
	defer c.enter("commit")()
	if c.CommitStatus != 0 && c.CommitStatus != driver.StatusCommitTransactionSucceeded {
		c.txStatus = driver.StatusNoTransaction
		return c.fail(c.CommitStatus, c.TxError)
	}
	if c.txStatus != driver.StatusTransactionActive {
		return c.fail(driver.StatusCommitTransactionFailed, "there is no active transaction")
	}
	c.txStatus = driver.StatusNoTransaction
	return driver.StatusCommitTransactionSucceeded
}

func (c *Conn) Rollback() driver.Status {
	defer c.enter("rollback")()
	if c.RollbackStatus != 0 && c.RollbackStatus != driver.StatusRollbackTransactionSucceeded {
		c.txStatus = driver.StatusNoTransaction
		return c.fail(c.RollbackStatus, c.TxError)
	}
	c.txStatus = driver.StatusNoTransaction
	return driver.StatusRollbackTransactionSucceeded
}

func (c *Conn) SetAttr(attr driver.Attr, value int) driver.Status {
	defer c.enter(fmt.Sprintf("setattr %d=%d", attr, value))()
	if c.SetAttrStatus != 0 && c.SetAttrStatus != driver.StatusSetAttributeSucceeded {
		return c.fail(c.SetAttrStatus, "failed to set attribute")
	}
	if attr == driver.AttrAutocommit {
		c.autocommit = value
	}
	return driver.StatusSetAttributeSucceeded
}

func (c *Conn) Next() driver.Status {
	defer c.enter("next")()
	if c.reply == nil {
		return c.fail(driver.StatusError, "there is no result set")
	}
	c.nextCalls++
	if c.reply.NextFailsAt > 0 && c.nextCalls == c.reply.NextFailsAt {
		return c.fail(driver.StatusError, "failed to fetch next item")
	}
	c.itemIdx++
	c.itemPos = 0
	if c.itemIdx >= len(c.items) {
		c.reply = nil
		return driver.StatusResultEnd
	}
	return driver.StatusNextItemSucceeded
}

func (c *Conn) GetData(p []byte) int {
	defer c.enter("getdata")()
	if c.reply == nil || c.itemIdx < 0 || c.itemIdx >= len(c.items) {
		return 0
	}
	if c.reply.DataFailsAt == c.itemIdx+1 {
		c.fail(driver.StatusError, "failed to read data")
		return int(driver.StatusError)
	}
	item := c.items[c.itemIdx]
	if c.itemPos >= len(item) {
		return 0
	}
	limit := len(p)
	if c.ChunkSize > 0 && c.ChunkSize < limit {
		limit = c.ChunkSize
	}
	n := copy(p[:limit], item[c.itemPos:])
	c.itemPos += n
	return n
}

func (c *Conn) LoadData(ctx context.Context, chunk []byte, doc, col string) driver.Status {
	defer c.enter("load " + doc)()
	if c.LoadStatus != 0 && c.LoadStatus != driver.StatusDataChunkLoaded {
		return c.fail(c.LoadStatus, "failed to load data")
	}
	c.loadDoc = doc
	c.loadCol = col
	c.loadChunks++
	c.loadBuf.Write(chunk)
	return driver.StatusDataChunkLoaded
}

func (c *Conn) EndLoadData(ctx context.Context) driver.Status {
	defer c.enter("endload")()
	defer func() {
		c.loadBuf.Reset()
		c.loadChunks = 0
	}()
	if c.EndLoadStatus != 0 && c.EndLoadStatus != driver.StatusBulkLoadSucceeded {
		return c.fail(c.EndLoadStatus, "failed to finish bulk load")
	}
	c.loaded = append(c.loaded, LoadedDocument{
		Name:       c.loadDoc,
		Collection: c.loadCol,
		Data:       c.loadBuf.String(),
		Chunks:     c.loadChunks,
	})
	return driver.StatusBulkLoadSucceeded
}

func (c *Conn) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

func (c *Conn) ConnectionStatus() driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connStatus
}

func (c *Conn) TransactionStatus() driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txStatus
}

func (c *Conn) MarkClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connStatus = driver.StatusConnectionClosed
}

// Calls returns the recorded call log.
func (c *Conn) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// CountCalls returns how many recorded calls start with prefix.
func (c *Conn) CountCalls(prefix string) int {
	n := 0
	for _, call := range c.Calls() {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (c *Conn) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

// Overlapped reports whether two calls were ever in flight at the same time.
func (c *Conn) Overlapped() bool {
	return c.overlapped.Load()
}

// Autocommit returns the last autocommit attribute value set on the handle.
func (c *Conn) Autocommit() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autocommit
}

// SetTransactionStatus overrides the transaction status, e.g. to simulate a
// server-side abort.
func (c *Conn) SetTransactionStatus(s driver.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txStatus = s
}

// Loaded returns the documents finished with EndLoadData.
func (c *Conn) Loaded() []LoadedDocument {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LoadedDocument, len(c.loaded))
	copy(out, c.loaded)
	return out
}

// ConnectArgs returns host, database, user and password of the last Connect.
func (c *Conn) ConnectArgs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.connectArgs...)
}
