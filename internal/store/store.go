// Package store is the embedded relational store backing testharbor:
// execution and test-result persistence over a libsql/SQLite-compatible
// database, split into a single-connection writer pool (owned exclusively
// by the batching writer) and a multi-connection reader pool shared by
// request handlers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config describes how to reach the database and how its connection
// pools should be sized, mirroring the "database" section of the config
// file.
type Config struct {
	// URL is either a local path (plain, "file:"-prefixed, or ":memory:")
	// or a libsql/Turso remote URL.
	URL string

	// MaxConnections bounds the reader pool. The writer pool is always
	// exactly one connection, regardless of this value.
	MaxConnections int

	WAL               bool
	WALAutocheckpoint int
}

var errRemoteRequiresCgo = errors.New("store: libsql:// URL requires a cgo-enabled build")

// Pools bundles the two connection pools a running service needs: one
// dedicated to the batching writer, one shared by read handlers.
type Pools struct {
	Reader *sql.DB
	Writer *sql.DB
}

// Close closes both pools, writer first so no further commits can race
// the reader pool's shutdown.
func (p *Pools) Close() error {
	var errs []error
	if p.Writer != nil {
		if err := p.Writer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Reader != nil {
		if err := p.Reader.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open builds the DSN from cfg, opens both pools against it, applies WAL
// and busy-timeout pragmas through the writer connection, and verifies
// connectivity on both. The driver registered under driverName is
// selected by build tag: cgo builds use go-libsql, pure-Go builds use
// modernc.org/sqlite (see driver_cgo.go / driver_nocgo.go).
func Open(ctx context.Context, cfg Config) (*Pools, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	dsn, err := buildDSN(cfg.URL)
	if err != nil {
		return nil, err
	}
	if err := rejectRemoteDSN(dsn); err != nil {
		return nil, err
	}

	// A plain ":memory:" DSN gives every connection its own private
	// database, which would split the reader and writer pools onto two
	// unrelated databases. Use SQLite's shared-cache in-memory mode so
	// both pools see the same data, the way in-process tests expect.
	isMemory := dsn == ":memory:"
	if isMemory {
		dsn = "file::memory:?cache=shared"
	}

	writer, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open writer pool: %w", err)
	}
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)

	reader, err := sql.Open(driverName, dsn)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("store: open reader pool: %w", err)
	}
	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 8
	}
	reader.SetMaxOpenConns(maxConns)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := writer.PingContext(pingCtx); err != nil {
		_ = writer.Close()
		_ = reader.Close()
		return nil, fmt.Errorf("store: ping writer pool: %w", err)
	}
	if err := reader.PingContext(pingCtx); err != nil {
		_ = writer.Close()
		_ = reader.Close()
		return nil, fmt.Errorf("store: ping reader pool: %w", err)
	}

	if cfg.WAL && !isMemory {
		if err := configureWAL(ctx, writer, cfg.WALAutocheckpoint); err != nil {
			_ = writer.Close()
			_ = reader.Close()
			return nil, err
		}
	}

	return &Pools{Reader: reader, Writer: writer}, nil
}

func configureWAL(ctx context.Context, db *sql.DB, autocheckpoint int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		return fmt.Errorf("store: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("store: set synchronous mode: %w", err)
	}
	if autocheckpoint <= 0 {
		autocheckpoint = 1000
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA wal_autocheckpoint=%d", autocheckpoint)); err != nil {
		return fmt.Errorf("store: set wal_autocheckpoint: %w", err)
	}
	var busyTimeout int
	if err := db.QueryRowContext(ctx, "PRAGMA busy_timeout=5000").Scan(&busyTimeout); err != nil {
		return fmt.Errorf("store: set busy timeout: %w", err)
	}
	return nil
}

func buildDSN(rawURL string) (string, error) {
	path := strings.TrimSpace(rawURL)
	if path == "" {
		return "", errors.New("store: database.url is required")
	}
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "libsql:") {
		return path, nil
	}
	if strings.HasPrefix(path, "file:") {
		localPath, err := extractFilePath(path)
		if err != nil {
			return "", err
		}
		if err := ensureStoreDir(localPath); err != nil {
			return "", err
		}
		return path, nil
	}
	if err := ensureStoreDir(path); err != nil {
		return "", err
	}
	return "file:" + filepath.Clean(path), nil
}

func extractFilePath(dsn string) (string, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("store: invalid database url: %w", err)
	}
	if parsed.Path != "" {
		return strings.TrimPrefix(parsed.Path, "//"), nil
	}
	return strings.TrimPrefix(parsed.Opaque, "//"), nil
}

func ensureStoreDir(path string) error {
	if strings.TrimSpace(path) == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create database directory: %w", err)
	}
	return nil
}
