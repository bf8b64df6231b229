package records

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subramanyaSgb/finvault/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE records (
  id TEXT NOT NULL,
  profile_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  version INTEGER NOT NULL,
  nonce BLOB NOT NULL,
  ciphertext BLOB NOT NULL,
  tag BLOB NOT NULL,
  PRIMARY KEY (id, profile_id)
);
`)
	require.NoError(t, err)

	return db
}

func sample(id, profile, kind string) *Record {
	return &Record{
		ID:         id,
		ProfileID:  profile,
		Kind:       kind,
		UpdatedAt:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		Version:    1,
		Nonce:      []byte("nonce-bytes!"),
		Ciphertext: []byte("sealed"),
		Tag:        []byte("0123456789abcdef"),
	}
}

func TestUpsert_InsertAndReplace(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sample("id1", "p1", "transaction")))

	got, err := r.GetByID(ctx, "p1", "id1")
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed"), got.Ciphertext)
	assert.Equal(t, "transaction", got.Kind)

	// replace sealed payload on the same (id, profile)
	updated := sample("id1", "p1", "transaction")
	updated.Ciphertext = []byte("resealed")
	require.NoError(t, r.Upsert(ctx, updated))

	got, err = r.GetByID(ctx, "p1", "id1")
	require.NoError(t, err)
	assert.Equal(t, []byte("resealed"), got.Ciphertext)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestGetByID_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByID(context.Background(), "p1", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListByProfile_And_ByKind(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sample("a", "p1", "account")))
	require.NoError(t, r.Upsert(ctx, sample("b", "p1", "transaction")))
	require.NoError(t, r.Upsert(ctx, sample("c", "p1", "transaction")))
	require.NoError(t, r.Upsert(ctx, sample("d", "p2", "transaction")))

	all, err := r.ListByProfile(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	txs, err := r.ListByKind(ctx, "p1", "transaction")
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	other, err := r.ListByProfile(ctx, "p3")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestExists(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sample("a", "p1", "loan")))

	ok, err := r.Exists(ctx, "p1", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Exists(ctx, "p1", "b")
	require.NoError(t, err)
	assert.False(t, ok)

	// same id under a different profile is a distinct row
	ok, err = r.Exists(ctx, "p2", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_HardDelete(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sample("a", "p1", "insurance")))
	require.NoError(t, r.Delete(ctx, "p1", "a"))

	_, err := r.GetByID(ctx, "p1", "a")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, r.Delete(ctx, "p1", "a"), common.ErrNotFound)
}

func TestDeleteByProfile(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sample("a", "p1", "account")))
	require.NoError(t, r.Upsert(ctx, sample("b", "p1", "loan")))
	require.NoError(t, r.Upsert(ctx, sample("c", "p2", "loan")))

	require.NoError(t, r.DeleteByProfile(ctx, "p1"))

	left, err := r.ListByProfile(ctx, "p2")
	require.NoError(t, err)
	assert.Len(t, left, 1)

	gone, err := r.ListByProfile(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, gone)
}
