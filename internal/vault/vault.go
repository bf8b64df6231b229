// Package vault implements the encrypted local store for financial records:
// profile lifecycle, session key management, transparently sealed entity
// CRUD and the biometric unlock bridge.
package vault

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/subramanyaSgb/finvault/internal/categorize"
	"github.com/subramanyaSgb/finvault/internal/common"
	"github.com/subramanyaSgb/finvault/internal/cryptox"
	"github.com/subramanyaSgb/finvault/internal/dbx"
	"github.com/subramanyaSgb/finvault/internal/migrations"
	"github.com/subramanyaSgb/finvault/internal/models"
	"github.com/subramanyaSgb/finvault/internal/vault/repositories/profiles"
	"github.com/subramanyaSgb/finvault/internal/vault/repositories/records"

	_ "modernc.org/sqlite"
)

// Options configures an opened vault.
type Options struct {
	// AutoLock is the idle timeout before a session key is wiped.
	AutoLock time.Duration
	// Wrapper enables biometric enrollment when the platform provides one.
	Wrapper KeyWrapper
	// Suggester is the advisory transaction categorizer; nil disables it.
	Suggester categorize.Suggester
	// KDF overrides the derivation cost for newly created profiles.
	// Existing profiles keep the parameters stored beside their salt.
	KDF    *cryptox.Params
	Logger zerolog.Logger
}

// Vault is the explicit handle collaborators hold: one open database, its
// repositories and the session manager. There is no package-level state.
type Vault struct {
	db    *sql.DB
	kdf   cryptox.Params
	log   zerolog.Logger
	prof  profiles.Repository
	rec   records.Repository
	sess  *Manager
	store *Store
	bio   *BiometricBridge
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the vault database at dsn, applies
// migrations and wires the component graph.
func Open(ctx context.Context, dsn string, opts Options) (*Vault, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	kdf := cryptox.DefaultParams
	if opts.KDF != nil {
		kdf = *opts.KDF
	}
	v := &Vault{
		db:   db,
		kdf:  kdf,
		log:  opts.Logger,
		prof: profiles.NewSQLiteRepository(db),
		rec:  records.NewSQLiteRepository(db),
	}
	v.sess = NewManager(db, v.prof, opts.Wrapper, opts.AutoLock, kdf, opts.Logger)
	v.store = NewStore(v.sess, v.rec, opts.Suggester, opts.Logger)
	if opts.Wrapper != nil {
		v.bio = NewBiometricBridge(v.sess, v.prof, opts.Wrapper)
	}
	return v, nil
}

// Close releases the database. Any unlocked sessions are locked first.
func (v *Vault) Close(ctx context.Context) error {
	list, err := v.prof.List(ctx)
	if err == nil {
		for _, p := range list {
			v.sess.Lock(p.ID)
		}
	}
	return v.db.Close()
}

// Sessions returns the session manager.
func (v *Vault) Sessions() *Manager { return v.sess }

// Store returns the entity store.
func (v *Vault) Store() *Store { return v.store }

// Biometric returns the biometric bridge, or nil when no platform wrapper
// was configured.
func (v *Vault) Biometric() *BiometricBridge { return v.bio }

// Profiles lists all vault owners.
func (v *Vault) Profiles(ctx context.Context) ([]models.Profile, error) {
	return v.prof.List(ctx)
}

// Profile returns one profile by id.
func (v *Vault) Profile(ctx context.Context, id string) (*models.Profile, error) {
	return v.prof.GetByID(ctx, id)
}

// CreateProfile creates a vault owner with fresh verification material
// derived from pin. The profile starts locked.
func (v *Vault) CreateProfile(ctx context.Context, name, pin string) (*models.Profile, error) {
	salt := common.GenerateRandByteArray(cryptox.MinSaltSize * 2)
	key, err := cryptox.DeriveKey([]byte(pin), salt, v.kdf)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	p := &models.Profile{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Salt:      salt,
		Verifier:  cryptox.MakeVerifier(key),
		KDFParams: v.kdf,
		Settings:  json.RawMessage(`{}`),
	}
	if err := v.prof.Create(ctx, p); err != nil {
		return nil, err
	}
	v.log.Info().Str("profile", p.ID).Str("name", name).Msg("profile created")
	return p, nil
}

// DeleteProfile locks the session and removes the profile with all of its
// sealed records in one transaction.
func (v *Vault) DeleteProfile(ctx context.Context, id string) error {
	v.sess.Lock(id)
	err := dbx.WithTx(ctx, v.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := records.NewSQLiteRepository(tx).DeleteByProfile(ctx, id); err != nil {
			return err
		}
		return profiles.NewSQLiteRepository(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	v.log.Info().Str("profile", id).Msg("profile deleted")
	return nil
}

// UpdateSettings stores the UI-owned settings document unchanged.
func (v *Vault) UpdateSettings(ctx context.Context, id string, settings json.RawMessage) error {
	return v.prof.UpdateSettings(ctx, id, settings)
}
