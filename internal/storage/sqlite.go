// Package storage persists favorites in SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/woozymasta/tailexit/internal/favorites"
	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection and implements favorites.Store.
type Repository struct {
	db *sql.DB
}

var _ favorites.Store = (*Repository)(nil)

// New opens the SQLite database at dbPath and runs migrations.
// Writes are synchronous (synchronous=FULL) so a rotation cursor survives
// a crash right after a toggle.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// one writer; the favorites table is tiny
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

const favoriteColumns = `id, name, primary_node_id, is_group, location_key,
	member_node_ids, rotation_cursor, sort_order, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFavorite(row scanner) (favorites.Favorite, error) {
	var (
		f       favorites.Favorite
		members string
	)

	err := row.Scan(
		&f.ID, &f.Name, &f.PrimaryNodeID, &f.IsGroup, &f.LocationKey,
		&members, &f.RotationCursor, &f.Order, &f.CreatedAt,
	)
	if err != nil {
		return f, err
	}

	if err := json.Unmarshal([]byte(members), &f.MemberNodeIDs); err != nil {
		return f, fmt.Errorf("favorite %s: bad member list: %w", f.ID, err)
	}
	f.Normalize()

	return f, nil
}

// ListFavorites returns all favorites ordered by their position.
func (r *Repository) ListFavorites() ([]favorites.Favorite, error) {
	rows, err := r.db.Query(`SELECT ` + favoriteColumns + ` FROM favorites ORDER BY sort_order ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []favorites.Favorite
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// GetFavorite returns a favorite by id, or nil when it does not exist.
func (r *Repository) GetFavorite(id string) (*favorites.Favorite, error) {
	row := r.db.QueryRow(`SELECT `+favoriteColumns+` FROM favorites WHERE id = ?`, id)

	f, err := scanFavorite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}

	return &f, nil
}

// CountFavorites returns the number of stored favorites.
func (r *Repository) CountFavorites() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM favorites`).Scan(&n)

	return n, err
}

// InsertFavorite appends f after the existing favorites and sets f.Order.
func (r *Repository) InsertFavorite(f *favorites.Favorite) error {
	members, err := json.Marshal(f.MemberNodeIDs)
	if err != nil {
		return err
	}

	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRow(`SELECT COALESCE(MAX(sort_order) + 1, 0) FROM favorites`).Scan(&f.Order); err != nil {
		return err
	}

	_, err = tx.Exec(`
	INSERT INTO favorites (`+favoriteColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.PrimaryNodeID, f.IsGroup, f.LocationKey,
		string(members), f.RotationCursor, f.Order, f.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteFavorite removes a favorite and renumbers the remaining ones to a
// dense 0..n-1 sequence, preserving their relative order.
func (r *Repository) DeleteFavorite(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`DELETE FROM favorites WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", favorites.ErrNotFound, id)
	}

	rows, err := tx.Query(`SELECT id FROM favorites ORDER BY sort_order ASC`)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var rid string
		if err := rows.Scan(&rid); err != nil {
			_ = rows.Close()
			return err
		}
		ids = append(ids, rid)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for i, rid := range ids {
		if _, err := tx.Exec(`UPDATE favorites SET sort_order = ? WHERE id = ?`, i, rid); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateCursor stores a new rotation cursor.
func (r *Repository) UpdateCursor(id string, cursor int) error {
	return r.updateOne(`UPDATE favorites SET rotation_cursor = ? WHERE id = ?`, cursor, id)
}

// UpdateMembers stores the member list, primary node, group flag and cursor of f.
func (r *Repository) UpdateMembers(f *favorites.Favorite) error {
	members, err := json.Marshal(f.MemberNodeIDs)
	if err != nil {
		return err
	}

	return r.updateOne(`
	UPDATE favorites SET
		member_node_ids = ?,
		primary_node_id = ?,
		is_group = ?,
		rotation_cursor = ?
	WHERE id = ?`,
		string(members), f.PrimaryNodeID, f.IsGroup, f.RotationCursor, f.ID,
	)
}

func (r *Repository) updateOne(query string, args ...any) error {
	res, err := r.db.Exec(query, args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return favorites.ErrNotFound
	}

	return nil
}
