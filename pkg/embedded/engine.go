// Package embedded is an in-process XML database engine that speaks the
// native driver contract of pkg/driver, so sessions can run without a Sedna
// server. Documents live in a pkg/embedded/store backend (Badger or SQLite).
//
// Supported statements:
//   - create document 'd' [in collection 'c'], drop document ...
//   - create collection 'c', drop collection 'c'
//   - update insert <fragment/> into <expr>, update delete <expr>
//   - queries: doc('d'[, 'c'])/path, collection('c')/path, count(...),
//     string and number literals, doc('$documents'), doc('$collections')
package embedded

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/kasuganosora/sedna-go/pkg/api"
	"github.com/kasuganosora/sedna-go/pkg/config"
	"github.com/kasuganosora/sedna-go/pkg/driver"
	"github.com/kasuganosora/sedna-go/pkg/embedded/store"
	"github.com/kasuganosora/sedna-go/pkg/monitor"
)

// DefaultChunkSize is the largest chunk GetData hands out by default.
const DefaultChunkSize = 8192

// DriverName is the driver name sessions use by default (api.DefaultDriver).
const DriverName = "embedded"

// Options 引擎选项
type Options struct {
	// Users maps user names to passwords.
	Users map[string]string
	// Databases lists the database names sessions may open.
	Databases []string
	// ChunkSize caps the bytes returned by one GetData call.
	ChunkSize int
	// EmulateNewlineDefect prepends "\n" to every result item after the
	// first one, like the Sedna server.
	EmulateNewlineDefect bool
	Logger               api.Logger

	// Metrics and SlowLog receive statement statistics. NewEngine creates
	// them when nil (slow threshold DefaultSlowThreshold).
	Metrics *monitor.Collector
	SlowLog *monitor.SlowLog
}

// Slow statement log defaults.
const (
	DefaultSlowThreshold = time.Second
	DefaultSlowLogSize   = 100
)

// Engine owns a store and hands out connections to it.
type Engine struct {
	store   store.Store
	opts    Options
	closed  atomic.Bool
	logger  api.Logger
	metrics *monitor.Collector
	slowLog *monitor.SlowLog
}

// NewEngine creates an engine on top of st. The engine takes ownership of st.
func NewEngine(st store.Store, opts Options) *Engine {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = api.NewNoOpLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitor.NewCollector()
	}
	if opts.SlowLog == nil {
		opts.SlowLog = monitor.NewSlowLog(DefaultSlowThreshold, DefaultSlowLogSize)
	}
	return &Engine{
		store:   st,
		opts:    opts,
		logger:  api.WithPrefix(opts.Logger, "[embedded] "),
		metrics: opts.Metrics,
		slowLog: opts.SlowLog,
	}
}

// Open builds an engine from the embedded section of the configuration.
func Open(ctx context.Context, cfg config.EmbeddedConfig, logger api.Logger) (*Engine, error) {
	st, err := store.Open(ctx, store.Options{
		Backend:  cfg.Store,
		DataDir:  cfg.DataDir,
		InMemory: cfg.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}

	users := make(map[string]string, len(cfg.Users))
	for _, u := range cfg.Users {
		users[u.Name] = u.Password
	}

	var slowLog *monitor.SlowLog
	if cfg.SlowStatementMs > 0 {
		size := cfg.SlowLogSize
		if size <= 0 {
			size = DefaultSlowLogSize
		}
		slowLog = monitor.NewSlowLog(time.Duration(cfg.SlowStatementMs)*time.Millisecond, size)
	}

	return NewEngine(st, Options{
		Users:                users,
		Databases:            cfg.Databases,
		ChunkSize:            cfg.ChunkSize,
		EmulateNewlineDefect: cfg.EmulateNewlineDefect,
		Logger:               logger,
		SlowLog:              slowLog,
	}), nil
}

// NewConn implements driver.Driver.
func (e *Engine) NewConn() driver.Conn {
	return newConn(e)
}

// Metrics returns the statement statistics collector.
func (e *Engine) Metrics() *monitor.Collector {
	return e.metrics
}

// SlowLog returns the log of slow statements.
func (e *Engine) SlowLog() *monitor.SlowLog {
	return e.slowLog
}

// Register makes the engine available to sessions under name.
func (e *Engine) Register(name string) {
	driver.Register(name, e)
}

// Close closes the underlying store. Open connections fail afterwards.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.store.Close()
}

func (e *Engine) hasDatabase(name string) bool {
	return slices.Contains(e.opts.Databases, name)
}

func (e *Engine) authenticate(user, password string) bool {
	want, ok := e.opts.Users[user]
	return ok && want == password
}
