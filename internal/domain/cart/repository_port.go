// internal/domain/cart/repository_port.go
package cart

import (
	"context"

	"cartsync/internal/domain/identity"
)

// Store is the remote cart persistence port (the Cart Store collaborator).
//
// Storage recommendation (Firestore):
// - collection: carts
// - docId: identity key ("guest" or "user:<id>")
// - fields: lines(array), updatedAt
//
// Semantics:
// - Get returns (nil, nil) when no cart exists yet for the identity.
// - Put is a bulk replacement of all lines; an empty list means "clear".
//   It returns the canonical (possibly server-adjusted) line set.
type Store interface {
	Get(ctx context.Context, id identity.Identity) ([]Line, error)
	Put(ctx context.Context, id identity.Identity, lines []Line) ([]Line, error)
}

// Mirror is the durable local mirror port: instant rehydration on process
// start, one mirror per identity key, never shared across identities.
type Mirror interface {
	// Save overwrites the mirror for key with lines.
	Save(ctx context.Context, key string, lines []Line) error

	// Load returns (lines, true, nil) when a mirror exists for key.
	Load(ctx context.Context, key string) ([]Line, bool, error)

	// Delete drops the mirror for key (e.g. guest mirror after a login merge).
	Delete(ctx context.Context, key string) error
}
