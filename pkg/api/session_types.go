package api

import (
	"context"
	"sync"

	"golang.org/x/text/encoding"

	"github.com/kasuganosora/sedna-go/pkg/config"
	"github.com/kasuganosora/sedna-go/pkg/driver"
)

// Connection defaults, used for every Options field left empty.
const (
	DefaultDriver   = "embedded"
	DefaultHost     = "localhost"
	DefaultDatabase = "test"
	DefaultUsername = "SYSTEM"
	DefaultPassword = "MANAGER"

	// DefaultReadBufferSize is the size of the buffer result chunks are read into.
	DefaultReadBufferSize = 8192
	// MinReadBufferSize is the smallest accepted read buffer.
	MinReadBufferSize = 1024
	// LoadBufferSize is the chunk size used when streaming a document to the server.
	LoadBufferSize = 8192
)

// Options describes which database to connect to.
type Options struct {
	Driver   string // registered driver name
	Host     string
	Database string
	Username string
	Password string

	// Encoding is the charset the driver exchanges data in. Result items are
	// decoded from it and loaded documents encoded to it. Empty means UTF-8.
	Encoding string

	ReadBufferSize int
	Logger         Logger
}

// withDefaults returns a copy of o with every empty field filled in.
func (o *Options) withDefaults() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.Driver == "" {
		out.Driver = DefaultDriver
	}
	if out.Host == "" {
		out.Host = DefaultHost
	}
	if out.Database == "" {
		out.Database = DefaultDatabase
	}
	if out.Username == "" {
		out.Username = DefaultUsername
	}
	if out.Password == "" {
		out.Password = DefaultPassword
	}
	if out.ReadBufferSize <= 0 {
		out.ReadBufferSize = DefaultReadBufferSize
	} else if out.ReadBufferSize < MinReadBufferSize {
		out.ReadBufferSize = MinReadBufferSize
	}
	if out.Logger == nil {
		out.Logger = NewDefaultLogger(LogInfo)
	}
	return out
}

// OptionsFromConfig builds Options from the connection section of a config file.
func OptionsFromConfig(cfg config.ConnectionConfig, logger Logger) *Options {
	return &Options{
		Driver:         cfg.Driver,
		Host:           cfg.Host,
		Database:       cfg.Database,
		Username:       cfg.Username,
		Password:       cfg.Password,
		Encoding:       cfg.Encoding,
		ReadBufferSize: cfg.ReadBufferSize,
		Logger:         logger,
	}
}

// Session is one logical connection to a Sedna database. It owns exactly one
// driver handle.
//
// Session is safe for concurrent use: every driver call is made under the
// session mutex, so the handle never sees two calls at once. Independent
// sessions do not share any lock.
type Session struct {
	mu   sync.Mutex
	conn driver.Conn
	opts Options
	enc  encoding.Encoding

	autocommit bool // value restored after every transaction
	inTx       bool // client side guard against nested transactions

	id     string
	logger Logger
}

// ID returns the session identifier used in log lines.
func (s *Session) ID() string {
	return s.id
}

// Options returns the connection parameters the session was opened with.
func (s *Session) Options() Options {
	return s.opts
}

// Autocommit returns the configured autocommit mode. New sessions start with
// autocommit enabled.
func (s *Session) Autocommit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autocommit
}

// SetAutocommit switches autocommit mode. With autocommit disabled statements
// can only run inside an explicit transaction.
//
// Inside a transaction the handle already runs with autocommit off; the new
// value is recorded and applied when the transaction ends.
func (s *Session) SetAutocommit(ctx context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return err
	}

	if !s.inTx {
		if st := s.conn.SetAttr(driver.AttrAutocommit, driver.AutocommitValue(on)); st != driver.StatusSetAttributeSucceeded {
			return TranslateError(st, s.conn.LastError())
		}
	}
	s.autocommit = on
	s.logger.Debug("Autocommit set to %t", on)
	return nil
}

// InTransaction reports whether a transaction started through this session
// is active.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx
}

// checkOpenLocked fails with a connection error when the handle is not usable.
func (s *Session) checkOpenLocked() error {
	if s.conn.ConnectionStatus() != driver.StatusConnectionOK {
		return NewError(ErrCodeConnection, "Connection is closed.", nil)
	}
	return nil
}

// restoreAutocommitLocked re-applies the configured autocommit mode to the
// handle after a transaction ended.
func (s *Session) restoreAutocommitLocked() error {
	if s.conn.ConnectionStatus() != driver.StatusConnectionOK {
		return nil
	}
	if st := s.conn.SetAttr(driver.AttrAutocommit, driver.AutocommitValue(s.autocommit)); st != driver.StatusSetAttributeSucceeded {
		return TranslateError(st, s.conn.LastError())
	}
	return nil
}
