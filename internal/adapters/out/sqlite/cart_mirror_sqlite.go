// internal/adapters/out/sqlite/cart_mirror_sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	cartdom "cartsync/internal/domain/cart"
)

// CartMirrorSQLite implements cart.Mirror on a local SQLite file. It is the
// crash-tolerant mirror of the active cart: a process restart before the
// next remote sync recovers the latest optimistic state from here.
//
// One row per identity key; rows are never shared across identities.
type CartMirrorSQLite struct {
	db *sql.DB
}

const mirrorSchema = `
CREATE TABLE IF NOT EXISTS cart_mirrors (
  identity_key TEXT PRIMARY KEY,
  lines        TEXT NOT NULL,
  updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// Open opens (creating if needed) the mirror database at path.
func Open(path string) (*CartMirrorSQLite, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("cart_mirror_sqlite: path is empty")
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("cart_mirror_sqlite: open %s: %w", p, err)
	}
	// The mirror has a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(mirrorSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cart_mirror_sqlite: init schema: %w", err)
	}
	return &CartMirrorSQLite{db: db}, nil
}

func (m *CartMirrorSQLite) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *CartMirrorSQLite) Save(ctx context.Context, key string, lines []cartdom.Line) error {
	if m == nil || m.db == nil {
		return errors.New("cart_mirror_sqlite: db is nil")
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return errors.New("cart_mirror_sqlite: key is empty")
	}

	b, err := json.Marshal(cartdom.Normalize(lines))
	if err != nil {
		return err
	}

	const q = `
INSERT INTO cart_mirrors (identity_key, lines, updated_at)
VALUES (?, ?, datetime('now'))
ON CONFLICT(identity_key) DO UPDATE SET
  lines = excluded.lines,
  updated_at = excluded.updated_at
`
	_, err = m.db.ExecContext(ctx, q, k, string(b))
	return err
}

func (m *CartMirrorSQLite) Load(ctx context.Context, key string) ([]cartdom.Line, bool, error) {
	if m == nil || m.db == nil {
		return nil, false, errors.New("cart_mirror_sqlite: db is nil")
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return nil, false, errors.New("cart_mirror_sqlite: key is empty")
	}

	var raw string
	err := m.db.QueryRowContext(ctx, `SELECT lines FROM cart_mirrors WHERE identity_key = ?`, k).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var lines []cartdom.Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		// A corrupt mirror row is treated as absent rather than fatal.
		return nil, false, fmt.Errorf("cart_mirror_sqlite: decode %s: %w", k, err)
	}
	return cartdom.Normalize(lines), true, nil
}

func (m *CartMirrorSQLite) Delete(ctx context.Context, key string) error {
	if m == nil || m.db == nil {
		return errors.New("cart_mirror_sqlite: db is nil")
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return errors.New("cart_mirror_sqlite: key is empty")
	}
	_, err := m.db.ExecContext(ctx, `DELETE FROM cart_mirrors WHERE identity_key = ?`, k)
	return err
}
