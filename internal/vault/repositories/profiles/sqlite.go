package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/subramanyaSgb/finvault/internal/common"
	"github.com/subramanyaSgb/finvault/internal/cryptox"
	"github.com/subramanyaSgb/finvault/internal/dbx"
	"github.com/subramanyaSgb/finvault/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, p *models.Profile) error {
	params, err := json.Marshal(p.KDFParams)
	if err != nil {
		return fmt.Errorf("failed to encode kdf params: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, avatar_ref, created_at, salt, verifier, kdf_params, biometric_blob, settings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.AvatarRef, p.CreatedAt.UTC(), p.Salt, p.Verifier, string(params),
		p.BiometricBlob, []byte(p.Settings))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return common.ErrProfileExists
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, avatar_ref, created_at, salt, verifier, kdf_params, biometric_blob, settings
		FROM profiles WHERE id = ?`, id)
	return scanProfile(row.Scan)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, avatar_ref, created_at, salt, verifier, kdf_params, biometric_blob, settings
		FROM profiles ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var result []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanProfile(scan func(dest ...any) error) (*models.Profile, error) {
	p := &models.Profile{}
	var params string
	var settings []byte
	err := scan(&p.ID, &p.Name, &p.AvatarRef, &p.CreatedAt, &p.Salt, &p.Verifier,
		&params, &p.BiometricBlob, &settings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &p.KDFParams); err != nil {
		return nil, fmt.Errorf("failed to decode kdf params: %w", err)
	}
	p.Settings = json.RawMessage(settings)
	return p, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
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

func (r *SQLiteRepository) UpdateAuth(ctx context.Context, id string, salt, verifier []byte, params cryptox.Params) error {
	encoded, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode kdf params: %w", err)
	}
	return r.update(ctx, id,
		`UPDATE profiles SET salt = ?, verifier = ?, kdf_params = ? WHERE id = ?`,
		salt, verifier, string(encoded), id)
}

func (r *SQLiteRepository) UpdateBiometric(ctx context.Context, id string, blob []byte) error {
	return r.update(ctx, id, `UPDATE profiles SET biometric_blob = ? WHERE id = ?`, blob, id)
}

func (r *SQLiteRepository) UpdateSettings(ctx context.Context, id string, settings json.RawMessage) error {
	return r.update(ctx, id, `UPDATE profiles SET settings = ? WHERE id = ?`, []byte(settings), id)
}

func (r *SQLiteRepository) update(ctx context.Context, id, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile %s: %w", id, err)
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
