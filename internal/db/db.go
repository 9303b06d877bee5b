// Package db opens the SQLite databases used by the daemon.
package db

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/syncany/syncany-go/internal/utils"
)

const memoryPath = ":memory:"

type options struct {
	path         string
	busyTimeout  time.Duration
	walMode      bool
	foreignKeys  bool
	extraPragmas []string
	maxOpenConns int
	maxIdleConns int
}

type Option func(*options)

// WithPath sets the database file. The default is an in-memory database.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		o.busyTimeout = d
	}
}

// WithoutWAL keeps the default rollback journal.
func WithoutWAL() Option {
	return func(o *options) {
		o.walMode = false
	}
}

// WithPragma appends a statement such as "cache_size=8000".
func WithPragma(pragma string) Option {
	return func(o *options) {
		o.extraPragmas = append(o.extraPragmas, pragma)
	}
}

func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		o.maxOpenConns = n
	}
}

func WithMaxIdleConns(n int) Option {
	return func(o *options) {
		o.maxIdleConns = n
	}
}

// NewSqliteDB connects to a SQLite database and applies the pragmas.
func NewSqliteDB(opts ...Option) (*sqlx.DB, error) {
	o := &options{
		path:         memoryPath,
		busyTimeout:  5 * time.Second,
		walMode:      true,
		foreignKeys:  true,
		maxIdleConns: 2,
	}
	for _, opt := range opts {
		opt(o)
	}

	dsn := memoryPath
	if o.path == memoryPath {
		// every connection to :memory: is a separate database
		o.maxOpenConns = 1
		o.walMode = false
	} else {
		if err := utils.EnsureParent(o.path); err != nil {
			return nil, fmt.Errorf("ensure parent directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_txlock=immediate&mode=rwc", o.path)
	}

	slog.Debug("db open", "driver", driverID, "path", o.path)
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if o.maxOpenConns > 0 {
		db.SetMaxOpenConns(o.maxOpenConns)
	}
	if o.maxIdleConns > 0 {
		db.SetMaxIdleConns(o.maxIdleConns)
	}

	if _, err := db.Exec(o.pragmas()); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	return db, nil
}

func (o *options) pragmas() string {
	var sb strings.Builder
	if o.walMode {
		sb.WriteString("PRAGMA journal_mode=WAL;\n")
	}
	fmt.Fprintf(&sb, "PRAGMA busy_timeout=%d;\n", o.busyTimeout.Milliseconds())
	if o.foreignKeys {
		sb.WriteString("PRAGMA foreign_keys=ON;\n")
	}
	sb.WriteString("PRAGMA temp_store=MEMORY;\n")
	for _, p := range o.extraPragmas {
		fmt.Fprintf(&sb, "PRAGMA %s;\n", p)
	}
	return sb.String()
}
