package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (k BLOB PRIMARY KEY, v BLOB)`

// SQLiteStore keeps the key space in a single SQLite table.
type SQLiteStore struct {
	db      *sql.DB
	tempDir string
}

// OpenSQLite opens (or creates) the database file at path. An empty path
// uses a file in a fresh temporary directory that is removed on Close.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	s := &SQLiteStore{}
	if path == "" {
		dir, err := os.MkdirTemp("", "sedna-sqlite-")
		if err != nil {
			return nil, err
		}
		s.tempDir = dir
		path = filepath.Join(dir, "sedna.db")
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		s.cleanup()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	s.db = db
	return s, nil
}

func (s *SQLiteStore) Begin(ctx context.Context, _ bool) (Txn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTxn{tx: tx, ctx: context.WithoutCancel(ctx)}, nil
}

func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	s.cleanup()
	return err
}

func (s *SQLiteStore) cleanup() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

type sqliteTxn struct {
	tx  *sql.Tx
	ctx context.Context
}

func (t *sqliteTxn) Get(key string) ([]byte, error) {
	var v []byte
	err := t.tx.QueryRowContext(t.ctx, `SELECT v FROM kv WHERE k = ?`, []byte(key)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (t *sqliteTxn) Put(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		[]byte(key), value)
	return err
}

func (t *sqliteTxn) Delete(key string) error {
	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM kv WHERE k = ?`, []byte(key))
	return err
}

func (t *sqliteTxn) Keys(prefix string) ([]string, error) {
	lo := []byte(prefix)
	hi := append([]byte(prefix), 0xff)
	rows, err := t.tx.QueryContext(t.ctx, `SELECT k FROM kv WHERE k >= ? AND k < ? ORDER BY k`, lo, hi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k []byte
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, string(k))
	}
	return keys, rows.Err()
}

func (t *sqliteTxn) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTxn) Discard() {
	_ = t.tx.Rollback()
}
