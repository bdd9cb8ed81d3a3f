// Package workspace persists workspaces (the working set of a bundle) and
// their listings in SQLite.
package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dgallion1/docbind/internal/listing"
)

// ErrNotFound is returned for unknown workspaces and listings.
var ErrNotFound = errors.New("not found")

// Workspace is a named, ordered set of listings.
type Workspace struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"created_at"`
	Listings  []listing.Listing `json:"listings"`
}

// Update changes a listing's title and/or position. Nil fields are left
// alone.
type Update struct {
	Title    *string `json:"title,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// Store is the SQLite-backed workspace store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS workspaces (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS listings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			file_name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			page_count INTEGER NOT NULL DEFAULT 0,
			data BLOB NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_workspace ON listings(workspace_id, position)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// CreateWorkspace creates an empty workspace.
func (s *Store) CreateWorkspace(ctx context.Context, title string) (*Workspace, error) {
	ws := &Workspace{ID: uuid.NewString(), Title: title, CreatedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, title, created_at) VALUES (?, ?, ?)`,
		ws.ID, ws.Title, ws.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("inserting workspace: %w", err)
	}
	return ws, nil
}

// GetWorkspace returns a workspace with its listings (without file bytes)
// in index order.
func (s *Store) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	ws := &Workspace{ID: id}
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT title, created_at FROM workspaces WHERE id = ?`, id).Scan(&ws.Title, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying workspace: %w", err)
	}
	ws.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)

	ws.Listings, err = s.listings(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// DeleteWorkspace removes a workspace and all its listings.
func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	return requireRow(res, "workspace "+id)
}

// AddListing appends a file to the end of the workspace.
func (s *Store) AddListing(ctx context.Context, wsID, title, fileName, mimeType string, data []byte) (listing.Listing, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return listing.Listing{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := workspaceExists(ctx, tx, wsID); err != nil {
		return listing.Listing{}, err
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings WHERE workspace_id = ?`, wsID).Scan(&next); err != nil {
		return listing.Listing{}, fmt.Errorf("counting listings: %w", err)
	}
	if title == "" {
		title = fileName
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO listings (workspace_id, position, title, file_name, mime_type, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		wsID, next, title, fileName, mimeType, data, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return listing.Listing{}, fmt.Errorf("inserting listing: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return listing.Listing{}, fmt.Errorf("reading listing id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return listing.Listing{}, fmt.Errorf("committing listing: %w", err)
	}

	return listing.Listing{ID: id, Index: next, Title: title, FileName: fileName, MIMEType: mimeType, Data: data}, nil
}

// GetListing returns one listing including its file bytes.
func (s *Store) GetListing(ctx context.Context, wsID string, id int64) (listing.Listing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, position, title, file_name, mime_type, page_count, data
		 FROM listings WHERE workspace_id = ? AND id = ?`, wsID, id)
	var l listing.Listing
	err := row.Scan(&l.ID, &l.Index, &l.Title, &l.FileName, &l.MIMEType, &l.NumberOfPages, &l.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return listing.Listing{}, fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return listing.Listing{}, fmt.Errorf("querying listing: %w", err)
	}
	return l, nil
}

// UpdateListing renames and/or moves a listing. Positions are clamped to
// the workspace and re-packed to 0..n-1.
func (s *Store) UpdateListing(ctx context.Context, wsID string, id int64, u Update) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ids, err := orderedIDs(ctx, tx, wsID)
	if err != nil {
		return err
	}
	at := indexOf(ids, id)
	if at < 0 {
		return fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}

	if u.Title != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE listings SET title = ? WHERE id = ?`, *u.Title, id); err != nil {
			return fmt.Errorf("renaming listing: %w", err)
		}
	}
	if u.Position != nil {
		to := min(max(*u.Position, 0), len(ids)-1)
		ids = append(ids[:at], ids[at+1:]...)
		ids = append(ids[:to], append([]int64{id}, ids[to:]...)...)
		if err := repack(ctx, tx, ids); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RemoveListing deletes a listing and closes the gap in positions.
func (s *Store) RemoveListing(ctx context.Context, wsID string, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM listings WHERE workspace_id = ? AND id = ?`, wsID, id)
	if err != nil {
		return fmt.Errorf("deleting listing: %w", err)
	}
	if err := requireRow(res, fmt.Sprintf("listing %d", id)); err != nil {
		return err
	}
	ids, err := orderedIDs(ctx, tx, wsID)
	if err != nil {
		return err
	}
	if err := repack(ctx, tx, ids); err != nil {
		return err
	}
	return tx.Commit()
}

// SetPageCount records the page count reported for a listing.
func (s *Store) SetPageCount(ctx context.Context, wsID string, id int64, n int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET page_count = ? WHERE workspace_id = ? AND id = ?`, n, wsID, id)
	if err != nil {
		return fmt.Errorf("setting page count: %w", err)
	}
	return requireRow(res, fmt.Sprintf("listing %d", id))
}

// LoadListings returns every listing of a workspace with file bytes, in
// index order.
func (s *Store) LoadListings(ctx context.Context, wsID string) ([]listing.Listing, error) {
	if err := workspaceExists(ctx, s.db, wsID); err != nil {
		return nil, err
	}
	return s.listings(ctx, wsID, true)
}

func (s *Store) listings(ctx context.Context, wsID string, withData bool) ([]listing.Listing, error) {
	cols := `id, position, title, file_name, mime_type, page_count`
	if withData {
		cols += `, data`
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cols+` FROM listings WHERE workspace_id = ? ORDER BY position, id`, wsID)
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}
	defer rows.Close()

	out := []listing.Listing{}
	for rows.Next() {
		var l listing.Listing
		dest := []any{&l.ID, &l.Index, &l.Title, &l.FileName, &l.MIMEType, &l.NumberOfPages}
		if withData {
			dest = append(dest, &l.Data)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func workspaceExists(ctx context.Context, q querier, wsID string) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM workspaces WHERE id = ?`, wsID).Scan(&n); err != nil {
		return fmt.Errorf("querying workspace: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("workspace %s: %w", wsID, ErrNotFound)
	}
	return nil
}

func orderedIDs(ctx context.Context, q querier, wsID string) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM listings WHERE workspace_id = ? ORDER BY position, id`, wsID)
	if err != nil {
		return nil, fmt.Errorf("querying positions: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning position: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func repack(ctx context.Context, tx *sql.Tx, ids []int64) error {
	for pos, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE listings SET position = ? WHERE id = ?`, pos, id); err != nil {
			return fmt.Errorf("updating position: %w", err)
		}
	}
	return nil
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
