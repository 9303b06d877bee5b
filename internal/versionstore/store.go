// Package versionstore is the daemon's journal of database versions per
// watched root. The log endpoints page through it newest first.
package versionstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS database_versions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    root TEXT NOT NULL,
    date INTEGER NOT NULL, -- unix nanoseconds, UTC
    client TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_versions_root_date ON database_versions(root, date);

CREATE TABLE IF NOT EXISTS file_changes (
    version_id INTEGER NOT NULL REFERENCES database_versions(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    path TEXT NOT NULL,
    kind INTEGER NOT NULL,
    PRIMARY KEY (version_id, seq)
);
`

const (
	kindNew = iota
	kindChanged
	kindDeleted
)

var (
	ErrNotOpen     = errors.New("version store not open")
	ErrAlreadyOpen = errors.New("version store already open")
	ErrEmptyRoot   = errors.New("root is empty")
	ErrZeroDate    = errors.New("version date is zero")
)

type dbVersion struct {
	ID     int64  `db:"id"`
	Root   string `db:"root"`
	Date   int64  `db:"date"`
	Client string `db:"client"`
}

type dbChange struct {
	VersionID int64  `db:"version_id"`
	Seq       int    `db:"seq"`
	Path      string `db:"path"`
	Kind      int    `db:"kind"`
}

// Store keeps the database-version log of every root in one SQLite file.
type Store struct {
	db     *sqlx.DB
	dbPath string
}

func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func (s *Store) Open() error {
	if s.db != nil {
		return ErrAlreadyOpen
	}

	conn, err := db.NewSqliteDB(db.WithPath(s.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("open version store: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return fmt.Errorf("init version store schema: %w", err)
	}

	s.db = conn
	slog.Debug("version store open", "path", s.dbPath)
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return ErrNotOpen
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		slog.Error("version store close", "error", err)
		return err
	}
	slog.Debug("version store closed")
	return nil
}

// Append records a database version for root.
func (s *Store) Append(ctx context.Context, root string, v daemonmsg.DatabaseVersion) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if root == "" {
		return ErrEmptyRoot
	}
	if v.Date.IsZero() {
		return ErrZeroDate
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.NamedExecContext(ctx,
		`INSERT INTO database_versions (root, date, client) VALUES (:root, :date, :client)`,
		dbVersion{Root: root, Date: v.Date.UnixNano(), Client: v.Client},
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("version id: %w", err)
	}

	changes := flatten(id, v.ChangeSet)
	if len(changes) > 0 {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO file_changes (version_id, seq, path, kind) VALUES (:version_id, :seq, :path, :kind)`,
			changes,
		); err != nil {
			return fmt.Errorf("insert changes: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// Log returns up to opts.MaxDatabaseVersionCount versions of root, newest
// first, skipping the first opts.StartDatabaseVersionIndex. Each version lists
// at most opts.MaxFileHistoryCount files.
func (s *Store) Log(ctx context.Context, root string, opts daemonmsg.LogOptions) ([]daemonmsg.DatabaseVersion, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if opts.StartDatabaseVersionIndex < 0 || opts.MaxDatabaseVersionCount <= 0 {
		return []daemonmsg.DatabaseVersion{}, nil
	}

	var rows []dbVersion
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, root, date, client FROM database_versions
		 WHERE root = ? ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`,
		root, opts.MaxDatabaseVersionCount, opts.StartDatabaseVersionIndex,
	); err != nil {
		return nil, fmt.Errorf("query versions of %s: %w", root, err)
	}

	versions := make([]daemonmsg.DatabaseVersion, len(rows))
	if len(rows) == 0 {
		return versions, nil
	}

	byID := make(map[int64]*daemonmsg.DatabaseVersion, len(rows))
	ids := make([]int64, len(rows))
	for i, r := range rows {
		versions[i] = daemonmsg.DatabaseVersion{
			Date:   time.Unix(0, r.Date).UTC(),
			Client: r.Client,
		}
		byID[r.ID] = &versions[i]
		ids[i] = r.ID
	}

	if opts.MaxFileHistoryCount <= 0 {
		return versions, nil
	}

	query, args, err := sqlx.In(
		`SELECT version_id, seq, path, kind FROM file_changes
		 WHERE version_id IN (?) AND seq < ? ORDER BY version_id, seq`,
		ids, opts.MaxFileHistoryCount,
	)
	if err != nil {
		return nil, fmt.Errorf("build changes query: %w", err)
	}

	var changes []dbChange
	if err := s.db.SelectContext(ctx, &changes, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query changes of %s: %w", root, err)
	}

	for _, c := range changes {
		v := byID[c.VersionID]
		switch c.Kind {
		case kindNew:
			v.ChangeSet.New = append(v.ChangeSet.New, c.Path)
		case kindChanged:
			v.ChangeSet.Changed = append(v.ChangeSet.Changed, c.Path)
		case kindDeleted:
			v.ChangeSet.Deleted = append(v.ChangeSet.Deleted, c.Path)
		}
	}

	return versions, nil
}

// Headers returns the version dates of root, oldest first.
func (s *Store) Headers(ctx context.Context, root string) ([]daemonmsg.VersionHeader, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	var rows []dbVersion
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, root, date, client FROM database_versions WHERE root = ? ORDER BY date ASC, id ASC`,
		root,
	); err != nil {
		return nil, fmt.Errorf("query headers of %s: %w", root, err)
	}

	headers := make([]daemonmsg.VersionHeader, len(rows))
	for i, r := range rows {
		headers[i] = daemonmsg.VersionHeader{Date: time.Unix(0, r.Date).UTC(), Client: r.Client}
	}
	return headers, nil
}

func (s *Store) Count(ctx context.Context, root string) (int, error) {
	if s.db == nil {
		return 0, ErrNotOpen
	}
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM database_versions WHERE root = ?`, root); err != nil {
		return 0, fmt.Errorf("count versions of %s: %w", root, err)
	}
	return n, nil
}

// Roots lists every root with at least one recorded version.
func (s *Store) Roots(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	var roots []string
	if err := s.db.SelectContext(ctx, &roots, `SELECT DISTINCT root FROM database_versions ORDER BY root`); err != nil {
		return nil, fmt.Errorf("query roots: %w", err)
	}
	return roots, nil
}

func flatten(versionID int64, cs daemonmsg.ChangeSet) []dbChange {
	out := make([]dbChange, 0, cs.Len())
	add := func(paths []string, kind int) {
		for _, p := range paths {
			out = append(out, dbChange{VersionID: versionID, Seq: len(out), Path: p, Kind: kind})
		}
	}
	add(cs.New, kindNew)
	add(cs.Changed, kindChanged)
	add(cs.Deleted, kindDeleted)
	return out
}
