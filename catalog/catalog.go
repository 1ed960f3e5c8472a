// Package catalog stores container summaries in SQLite so a collection of
// decoded scripts can be queried by name, by parent and by disassembly
// status.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/pexkit/summary"
)

// ErrNotFound indicates the requested script is not in the catalog.
var ErrNotFound = errors.New("script not found")

var log = commonlog.GetLogger("pexkit.catalog")

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	imported_at INTEGER NOT NULL,
	summary     BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS scripts (
	name      TEXT PRIMARY KEY COLLATE NOCASE,
	parent    TEXT NOT NULL COLLATE NOCASE,
	source    TEXT NOT NULL,
	game      TEXT NOT NULL,
	scan_id   TEXT NOT NULL REFERENCES scans(id)
);
CREATE TABLE IF NOT EXISTS functions (
	script       TEXT NOT NULL COLLATE NOCASE,
	name         TEXT NOT NULL COLLATE NOCASE,
	instructions INTEGER NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (script, name)
);
CREATE INDEX IF NOT EXISTS scripts_parent ON scripts(parent);
`

// Catalog is a SQLite-backed script index.
type Catalog struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Entry is one catalogued script.
type Entry struct {
	Name      string
	Parent    string
	Source    string
	Game      string
	ScanID    uuid.UUID
	Functions []summary.Function
}

// Open opens or creates the catalog at path. ":memory:" gives a private
// in-memory catalog.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection keeps ":memory:" databases shared between queries
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	log.Debugf("opened catalog %s", path)
	return &Catalog{db: db, path: path}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Import records sum as one scan and replaces any earlier entries for the
// scripts it contains. It returns the scan's ID.
func (c *Catalog) Import(ctx context.Context, source string, sum *summary.Summary) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blob, err := summary.Marshal(sum)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encoding summary: %w", err)
	}
	id := uuid.New()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("starting import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO scans (id, source, imported_at, summary) VALUES (?, ?, ?, ?)",
		id.String(), source, time.Now().Unix(), blob,
	); err != nil {
		return uuid.Nil, fmt.Errorf("saving scan: %w", err)
	}

	for _, s := range sum.Scripts {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO scripts (name, parent, source, game, scan_id) VALUES (?, ?, ?, ?, ?)",
			s.Name, s.Parent, source, sum.Game, id.String(),
		); err != nil {
			return uuid.Nil, fmt.Errorf("saving script %s: %w", s.Name, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM functions WHERE script = ?", s.Name); err != nil {
			return uuid.Nil, fmt.Errorf("clearing functions of %s: %w", s.Name, err)
		}
		for _, f := range s.Functions {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO functions (script, name, instructions, status, error) VALUES (?, ?, ?, ?, ?)",
				s.Name, f.Name, f.Instructions, string(f.Status), f.Error,
			); err != nil {
				return uuid.Nil, fmt.Errorf("saving function %s.%s: %w", s.Name, f.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("committing import: %w", err)
	}
	log.Infof("imported %d scripts from %s as scan %s", len(sum.Scripts), source, id)
	return id, nil
}

// Script returns the entry for name (case-insensitive).
func (c *Catalog) Script(ctx context.Context, name string) (*Entry, error) {
	var e Entry
	var scan string
	err := c.db.QueryRowContext(ctx,
		"SELECT name, parent, source, game, scan_id FROM scripts WHERE name = ?", name,
	).Scan(&e.Name, &e.Parent, &e.Source, &e.Game, &scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("querying script: %w", err)
	}
	if e.ScanID, err = uuid.Parse(scan); err != nil {
		return nil, fmt.Errorf("parsing scan id of %s: %w", e.Name, err)
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT name, instructions, status, error FROM functions WHERE script = ? ORDER BY rowid", e.Name)
	if err != nil {
		return nil, fmt.Errorf("querying functions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f summary.Function
		var status string
		if err := rows.Scan(&f.Name, &f.Instructions, &status, &f.Error); err != nil {
			return nil, fmt.Errorf("reading function: %w", err)
		}
		f.Status = summary.Status(status)
		e.Functions = append(e.Functions, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading functions: %w", err)
	}
	return &e, nil
}

// Children returns the names of scripts extending parent, sorted.
func (c *Catalog) Children(ctx context.Context, parent string) ([]string, error) {
	return c.names(ctx, "SELECT name FROM scripts WHERE parent = ? ORDER BY name", parent)
}

// Partial returns "Script.Function" for every function whose disassembly
// did not complete, sorted.
func (c *Catalog) Partial(ctx context.Context) ([]string, error) {
	return c.names(ctx,
		"SELECT script || '.' || name FROM functions WHERE status IN (?, ?) ORDER BY script, name",
		string(summary.StatusPartial), string(summary.StatusFailed))
}

// Scan returns the summary stored by an earlier Import.
func (c *Catalog) Scan(ctx context.Context, id uuid.UUID) (*summary.Summary, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx, "SELECT summary FROM scans WHERE id = ?", id.String()).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("scan %s not found", id)
		}
		return nil, fmt.Errorf("querying scan: %w", err)
	}
	return summary.Unmarshal(blob)
}

func (c *Catalog) names(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

