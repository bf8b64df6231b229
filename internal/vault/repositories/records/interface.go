// Package records persists sealed entity rows. A row never contains
// plaintext entity data: everything except routing metadata (ids, kind,
// timestamp) is AEAD ciphertext produced by cryptox.
package records

import (
	"context"
	"time"
)

// Record is the on-disk unit for one sealed entity.
type Record struct {
	ID         string
	ProfileID  string
	Kind       string
	UpdatedAt  time.Time
	Version    int
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
}

// Repository describes CRUD and query operations over sealed records.
// Implementations are backed by the local SQLite database.
type Repository interface {
	// Upsert inserts a record or replaces the sealed payload of an
	// existing (id, profile) pair.
	Upsert(ctx context.Context, r *Record) error

	// GetByID returns one record, or common.ErrNotFound.
	GetByID(ctx context.Context, profileID, id string) (*Record, error)

	// ListByProfile returns every record belonging to a profile.
	ListByProfile(ctx context.Context, profileID string) ([]Record, error)

	// ListByKind returns a profile's records of one entity kind.
	ListByKind(ctx context.Context, profileID, kind string) ([]Record, error)

	// Exists reports whether a (profile, id) pair is already stored.
	Exists(ctx context.Context, profileID, id string) (bool, error)

	// Delete hard-deletes a record. Missing rows are common.ErrNotFound.
	Delete(ctx context.Context, profileID, id string) error

	// DeleteByProfile removes all records of a profile.
	DeleteByProfile(ctx context.Context, profileID string) error
}
