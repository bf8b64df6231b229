package backup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/subramanyaSgb/finvault/internal/common"
	"github.com/subramanyaSgb/finvault/internal/cryptox"
	"github.com/subramanyaSgb/finvault/internal/vault"
)

// Exporter reads a profile's decrypted entities through the store and
// produces portable artifacts. Every method requires the profile to be
// unlocked; a locked profile surfaces as ErrVaultLocked from the store.
type Exporter struct {
	store *vault.Store
	log   zerolog.Logger
}

func NewExporter(store *vault.Store, log zerolog.Logger) *Exporter {
	return &Exporter{store: store, log: log.With().Str("component", "backup.exporter").Logger()}
}

// ExportEncrypted snapshots the profile and seals it under a key derived
// from password and a salt generated for this artifact alone. The profile's
// own salt and session key are never part of the output, so the file is
// self-contained.
func (e *Exporter) ExportEncrypted(ctx context.Context, profileID, password string) ([]byte, error) {
	envs, err := e.store.Envelopes(ctx, profileID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(envs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSerialization, err)
	}

	salt := common.GenerateRandByteArray(cryptox.MinSaltSize * 2)
	params := cryptox.DefaultParams
	key, err := cryptox.DeriveKey([]byte(password), salt, params)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	rec, err := cryptox.Seal(payload, key)
	if err != nil {
		return nil, err
	}
	rec.Salt = salt
	rec.KDFParams = &params

	artifact := Artifact{
		Manifest: makeManifest(envs),
		Mode:     ModeEncrypted,
		Payload:  rec,
	}
	e.log.Info().Str("profile_id", profileID).Int("entities", len(envs)).Msg("encrypted export complete")
	return json.Marshal(artifact)
}

// ExportPlain snapshots the profile without encryption. This is a separate
// code path from ExportEncrypted on purpose: a plaintext artifact can only
// be produced by an explicit call, never by a misconfigured encrypted one.
func (e *Exporter) ExportPlain(ctx context.Context, profileID string) ([]byte, error) {
	envs, err := e.store.Envelopes(ctx, profileID)
	if err != nil {
		return nil, err
	}

	artifact := Artifact{
		Manifest: makeManifest(envs),
		Mode:     ModePlain,
		Entities: envs,
	}
	e.log.Info().Str("profile_id", profileID).Int("entities", len(envs)).Msg("plain export complete")
	return json.Marshal(artifact)
}
