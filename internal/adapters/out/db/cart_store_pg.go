// internal/adapters/out/db/cart_store_pg.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	cartdom "cartsync/internal/domain/cart"
	iddom "cartsync/internal/domain/identity"
)

// CartStorePG implements cart.Store with PostgreSQL.
//
// Schema:
//
//	CREATE TABLE IF NOT EXISTS cart_lines (
//	  identity_key TEXT        NOT NULL,
//	  product_id   TEXT        NOT NULL,
//	  display_name TEXT        NOT NULL DEFAULT '',
//	  unit_price   INTEGER     NOT NULL DEFAULT 0,
//	  qty          INTEGER     NOT NULL,
//	  image_ref    TEXT        NOT NULL DEFAULT '',
//	  updated_at   TIMESTAMPTZ NOT NULL,
//	  PRIMARY KEY (identity_key, product_id)
//	);
type CartStorePG struct {
	DB *sql.DB
}

func NewCartStorePG(db *sql.DB) *CartStorePG {
	return &CartStorePG{DB: db}
}

func (r *CartStorePG) Get(ctx context.Context, id iddom.Identity) ([]cartdom.Line, error) {
	if r == nil || r.DB == nil {
		return nil, errors.New("cart_store_pg: db is nil")
	}

	const q = `
SELECT product_id, display_name, unit_price, qty, image_ref
FROM cart_lines
WHERE identity_key = $1
ORDER BY product_id
`
	rows, err := r.DB.QueryContext(ctx, q, id.Key())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []cartdom.Line
	for rows.Next() {
		var l cartdom.Line
		if err := rows.Scan(&l.ProductID, &l.DisplayName, &l.UnitPrice, &l.Qty, &l.ImageRef); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if lines == nil {
		// No rows is "no cart yet" (nil policy), not an empty cart.
		return nil, nil
	}
	return cartdom.Normalize(lines), nil
}

// Put replaces all lines for the identity in one transaction. An empty list
// clears the cart.
func (r *CartStorePG) Put(ctx context.Context, id iddom.Identity, lines []cartdom.Line) ([]cartdom.Line, error) {
	if r == nil || r.DB == nil {
		return nil, errors.New("cart_store_pg: db is nil")
	}

	normalized := cartdom.Normalize(lines)
	now := time.Now().UTC()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE identity_key = $1`, id.Key()); err != nil {
		return nil, err
	}

	const ins = `
INSERT INTO cart_lines (identity_key, product_id, display_name, unit_price, qty, image_ref, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	for _, l := range normalized {
		if _, err := tx.ExecContext(ctx, ins, id.Key(), l.ProductID, l.DisplayName, l.UnitPrice, l.Qty, l.ImageRef, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return normalized, nil
}
