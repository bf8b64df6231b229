package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/subramanyaSgb/finvault/internal/common"
	"github.com/subramanyaSgb/finvault/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx). The change-PIN re-seal binds one to the surrounding transaction.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, rec *Record) error {
	query := `INSERT INTO records (id, profile_id, kind, updated_at, version, nonce, ciphertext, tag)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id, profile_id) DO UPDATE SET
				kind = excluded.kind,
				updated_at = excluded.updated_at,
				version = excluded.version,
				nonce = excluded.nonce,
				ciphertext = excluded.ciphertext,
				tag = excluded.tag
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.ProfileID, rec.Kind, rec.UpdatedAt.UTC(), rec.Version, rec.Nonce, rec.Ciphertext, rec.Tag)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, profileID, id string) (*Record, error) {
	query := `SELECT id, profile_id, kind, updated_at, version, nonce, ciphertext, tag
			FROM records WHERE profile_id = ? AND id = ?`
	row := r.db.QueryRowContext(ctx, query, profileID, id)

	rec := &Record{}
	err := row.Scan(&rec.ID, &rec.ProfileID, &rec.Kind, &rec.UpdatedAt,
		&rec.Version, &rec.Nonce, &rec.Ciphertext, &rec.Tag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListByProfile(ctx context.Context, profileID string) ([]Record, error) {
	query := `SELECT id, profile_id, kind, updated_at, version, nonce, ciphertext, tag
			FROM records WHERE profile_id = ? ORDER BY updated_at`
	return r.list(ctx, query, profileID)
}

func (r *SQLiteRepository) ListByKind(ctx context.Context, profileID, kind string) ([]Record, error) {
	query := `SELECT id, profile_id, kind, updated_at, version, nonce, ciphertext, tag
			FROM records WHERE profile_id = ? AND kind = ? ORDER BY updated_at`
	return r.list(ctx, query, profileID, kind)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.ProfileID, &rec.Kind, &rec.UpdatedAt,
			&rec.Version, &rec.Nonce, &rec.Ciphertext, &rec.Tag); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, profileID, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM records WHERE profile_id = ? AND id = ?`, profileID, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check record existence: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, profileID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE profile_id = ? AND id = ?`, profileID, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByProfile(ctx context.Context, profileID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE profile_id = ?`, profileID)
	if err != nil {
		return fmt.Errorf("failed to delete profile records: %w", err)
	}
	return nil
}
