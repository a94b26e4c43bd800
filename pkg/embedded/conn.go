package embedded

import (
	"bytes"
	"context"
	"sync"

	"github.com/kasuganosora/sedna-go/pkg/api"
	"github.com/kasuganosora/sedna-go/pkg/driver"
	"github.com/kasuganosora/sedna-go/pkg/embedded/store"
	"github.com/kasuganosora/sedna-go/pkg/embedded/xmltree"
	"github.com/kasuganosora/sedna-go/pkg/monitor"
)

// Conn is one session of the embedded engine.
type Conn struct {
	engine *Engine

	mu         sync.Mutex
	connStatus driver.Status
	db         string
	user       string
	autocommit bool
	txn        store.Txn
	lastError  string
	lastCode   string

	// current result set
	items     []string
	hasResult bool
	itemIdx   int
	itemPos   int

	load *bulkLoad
}

type bulkLoad struct {
	doc string
	col string
	buf bytes.Buffer
}

func newConn(e *Engine) *Conn {
	return &Conn{
		engine:     e,
		connStatus: driver.StatusConnectionClosed,
		autocommit: true,
		itemIdx:    -1,
	}
}

// failLocked records err as the last error and returns status.
func (c *Conn) failLocked(status driver.Status, err error) driver.Status {
	e := asEngineError(err, codeStorage)
	c.lastError = e.lastError()
	c.lastCode = e.code
	c.engine.logger.Debug("%s", e.Error())
	return status
}

func (c *Conn) connectedLocked() bool {
	return c.connStatus == driver.StatusConnectionOK && !c.engine.closed.Load()
}

func (c *Conn) resetResultLocked() {
	c.items = nil
	c.hasResult = false
	c.itemIdx = -1
	c.itemPos = 0
}

func (c *Conn) discardTxnLocked() {
	if c.txn != nil {
		c.txn.Discard()
		c.txn = nil
	}
}

func (c *Conn) Connect(ctx context.Context, host, database, user, password string) driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connStatus == driver.StatusConnectionOK {
		return c.failLocked(driver.StatusOpenSessionFailed, newError(codeNoDatabase, "session is already open"))
	}
	if err := ctx.Err(); err != nil {
		c.connStatus = driver.StatusConnectionFailed
		return c.failLocked(driver.StatusOpenSessionFailed, newError(codeNoDatabase, "%v", err))
	}
	if c.engine.closed.Load() {
		c.connStatus = driver.StatusConnectionFailed
		return c.failLocked(driver.StatusOpenSessionFailed, newError(codeNoDatabase, "engine is closed"))
	}
	if !c.engine.authenticate(user, password) {
		c.connStatus = driver.StatusConnectionFailed
		return c.failLocked(driver.StatusAuthenticationFailed, newError(codeAuthentication, "user '%s'", user))
	}
	if !c.engine.hasDatabase(database) {
		c.connStatus = driver.StatusConnectionFailed
		return c.failLocked(driver.StatusOpenSessionFailed, newError(codeNoDatabase, "database '%s' does not exist", database))
	}

	c.connStatus = driver.StatusConnectionOK
	c.db = database
	c.user = user
	c.autocommit = true
	c.resetResultLocked()
	c.engine.logger.Debug("Session opened on %s/%s as %s", host, database, user)
	return driver.StatusSessionOpen
}

func (c *Conn) Close() driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connStatus != driver.StatusConnectionOK {
		return c.failLocked(driver.StatusCloseSessionFailed, newError(codeSessionClosed, "session is not open"))
	}
	c.discardTxnLocked()
	c.resetResultLocked()
	c.load = nil
	c.connStatus = driver.StatusConnectionClosed
	return driver.StatusSessionClosed
}

func (c *Conn) Execute(ctx context.Context, query string) driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	tr := monitor.Track(c.engine.metrics, c.engine.slowLog, query, "invalid")
	status := c.executeLocked(ctx, query, tr)
	c.endTrackLocked(tr)
	return status
}

// endTrackLocked reports the outcome of the statement measured by tr.
func (c *Conn) endTrackLocked(tr *monitor.Tracker) {
	var msg string
	if c.lastCode != "" {
		msg = api.ParseErrorMessage(c.lastError)
	}
	if d := tr.End(len(c.items), c.lastCode, msg); c.engine.slowLog.IsSlow(d) {
		c.engine.logger.Warn("Slow %s statement (%v): %s", tr.Kind, d, tr.Statement)
	}
}

func (c *Conn) executeLocked(ctx context.Context, query string, tr *monitor.Tracker) driver.Status {
	c.resetResultLocked()
	c.lastCode = ""
	if !c.connectedLocked() {
		return c.failLocked(driver.StatusQueryFailed, newError(codeSessionClosed, "session is not open"))
	}
	if err := ctx.Err(); err != nil {
		return c.failLocked(driver.StatusQueryFailed, newError(codeStorage, "%v", err))
	}

	st, err := parseStatement(query)
	if err != nil {
		c.abortOnErrorLocked()
		return c.failLocked(driver.StatusQueryFailed, err)
	}
	tr.Kind = st.kind.category()
	tr.Document = st.document()

	failed := driver.StatusQueryFailed
	if st.kind.isUpdate() {
		failed = driver.StatusUpdateFailed
	}

	var items []string
	err = c.withTxnLocked(ctx, st.kind.isUpdate(), func(cat *catalog) error {
		var err error
		items, err = run(cat, st)
		return err
	})
	if err != nil {
		return c.failLocked(failed, err)
	}

	if st.kind.isUpdate() {
		return driver.StatusUpdateSucceeded
	}

	c.items = make([]string, len(items))
	for i, it := range items {
		if i > 0 && c.engine.opts.EmulateNewlineDefect {
			it = "\n" + it
		}
		c.items[i] = it
	}
	c.hasResult = true
	return driver.StatusQuerySucceeded
}

// withTxnLocked runs fn inside the explicit transaction, or inside a
// statement-level transaction when autocommit is on. A failing statement
// inside an explicit transaction rolls the whole transaction back.
func (c *Conn) withTxnLocked(ctx context.Context, writable bool, fn func(cat *catalog) error) error {
	if c.txn == nil && !c.autocommit {
		return newError(codeTransaction, "there is no active transaction")
	}

	txn := c.txn
	implicit := txn == nil
	if implicit {
		var err error
		if txn, err = c.engine.store.Begin(ctx, writable); err != nil {
			return asEngineError(err, codeStorage)
		}
	}

	cat := newCatalog(txn, c.db)
	err := fn(cat)
	if err == nil && writable {
		err = cat.flush()
	}
	if err != nil {
		if implicit {
			txn.Discard()
		} else {
			c.abortOnErrorLocked()
		}
		return err
	}

	if !implicit {
		return nil
	}
	if !writable {
		txn.Discard()
		return nil
	}
	if err := txn.Commit(); err != nil {
		return asEngineError(err, codeTransaction)
	}
	return nil
}

// abortOnErrorLocked rolls back the explicit transaction after a failed
// statement.
func (c *Conn) abortOnErrorLocked() {
	if c.txn != nil {
		c.engine.logger.Debug("Statement failed, rolling back transaction")
		c.discardTxnLocked()
	}
}

func (c *Conn) Begin() driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connectedLocked() {
		return c.failLocked(driver.StatusBeginTransactionFailed, newError(codeSessionClosed, "session is not open"))
	}
	if c.txn != nil {
		return c.failLocked(driver.StatusBeginTransactionFailed, newError(codeTransaction, "transaction is already active"))
	}
	txn, err := c.engine.store.Begin(context.Background(), true)
	if err != nil {
		return c.failLocked(driver.StatusBeginTransactionFailed, err)
	}
	c.txn = txn
	return driver.StatusBeginTransactionSucceeded
}

func (c *Conn) Commit() driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.txn == nil {
		return c.failLocked(driver.StatusCommitTransactionFailed, newError(codeTransaction, "there is no active transaction"))
	}
	txn := c.txn
	c.txn = nil
	if err := txn.Commit(); err != nil {
		return c.failLocked(driver.StatusCommitTransactionFailed, asEngineError(err, codeTransaction))
	}
	return driver.StatusCommitTransactionSucceeded
}

func (c *Conn) Rollback() driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.discardTxnLocked()
	return driver.StatusRollbackTransactionSucceeded
}

func (c *Conn) SetAttr(attr driver.Attr, value int) driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if attr == driver.AttrAutocommit {
		switch value {
		case driver.AutocommitOn:
			c.autocommit = true
		case driver.AutocommitOff:
			c.autocommit = false
		default:
			return c.failLocked(driver.StatusError, newError(codeTransaction, "invalid autocommit value %d", value))
		}
	}
	return driver.StatusSetAttributeSucceeded
}

func (c *Conn) Next() driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasResult {
		return c.failLocked(driver.StatusNextItemFailed, newError(codeStorage, "there is no result set"))
	}
	c.itemIdx++
	c.itemPos = 0
	if c.itemIdx >= len(c.items) {
		c.resetResultLocked()
		if c.itemIdx == 0 {
			return driver.StatusNoItem
		}
		return driver.StatusResultEnd
	}
	return driver.StatusNextItemSucceeded
}

func (c *Conn) GetData(p []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasResult || c.itemIdx < 0 || c.itemIdx >= len(c.items) {
		return 0
	}
	item := c.items[c.itemIdx]
	if c.itemPos >= len(item) {
		return 0
	}
	limit := min(len(p), c.engine.opts.ChunkSize)
	n := copy(p[:limit], item[c.itemPos:])
	c.itemPos += n
	return n
}

func (c *Conn) LoadData(ctx context.Context, chunk []byte, doc, col string) driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connectedLocked() {
		return c.failLocked(driver.StatusBulkLoadFailed, newError(codeSessionClosed, "session is not open"))
	}
	if err := ctx.Err(); err != nil {
		c.load = nil
		return c.failLocked(driver.StatusBulkLoadFailed, newError(codeBulkLoad, "%v", err))
	}
	if c.load == nil {
		c.load = &bulkLoad{doc: doc, col: col}
	} else if c.load.doc != doc || c.load.col != col {
		c.load = nil
		return c.failLocked(driver.StatusBulkLoadFailed, newError(codeBulkLoad, "bulk load target changed to '%s'", doc))
	}
	c.load.buf.Write(chunk)
	return driver.StatusDataChunkLoaded
}

func (c *Conn) EndLoadData(ctx context.Context) driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	load := c.load
	c.load = nil
	c.lastCode = ""
	c.resetResultLocked()

	tr := monitor.Track(c.engine.metrics, c.engine.slowLog, "bulk load", "load")
	status := c.endLoadLocked(ctx, load, tr)
	c.endTrackLocked(tr)
	return status
}

func (c *Conn) endLoadLocked(ctx context.Context, load *bulkLoad, tr *monitor.Tracker) driver.Status {
	if !c.connectedLocked() {
		return c.failLocked(driver.StatusBulkLoadFailed, newError(codeSessionClosed, "session is not open"))
	}
	if load == nil {
		return c.failLocked(driver.StatusBulkLoadFailed, newError(codeBulkLoad, "no bulk load in progress"))
	}
	tr.Document = load.doc

	size := load.buf.Len()
	d, err := xmltree.Parse(&load.buf)
	if err != nil {
		c.abortOnErrorLocked()
		return c.failLocked(driver.StatusBulkLoadFailed, newError(codeBulkLoad, "%v", err))
	}

	err = c.withTxnLocked(ctx, true, func(cat *catalog) error {
		return cat.createDocument(documentRef{col: load.col, doc: load.doc}, d)
	})
	if err != nil {
		return c.failLocked(driver.StatusBulkLoadFailed, err)
	}
	c.engine.logger.Debug("Loaded document '%s' (%d bytes)", load.doc, size)
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
	if c.connStatus == driver.StatusConnectionOK && c.engine.closed.Load() {
		return driver.StatusConnectionFailed
	}
	return c.connStatus
}

func (c *Conn) TransactionStatus() driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txn != nil {
		return driver.StatusTransactionActive
	}
	return driver.StatusNoTransaction
}

func (c *Conn) MarkClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discardTxnLocked()
	c.connStatus = driver.StatusConnectionClosed
}
