package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/subramanyaSgb/finvault/internal/common"
	"github.com/subramanyaSgb/finvault/internal/cryptox"
	"github.com/subramanyaSgb/finvault/internal/models"
	"github.com/subramanyaSgb/finvault/internal/vault"
)

// ItemError records a single entity the importer skipped, keyed by its id
// when one was readable.
type ItemError struct {
	ID  string `json:"id,omitempty"`
	Err string `json:"error"`
}

// Result summarizes an import. ItemsImported counts only entities actually
// written; Skipped counts id collisions with existing local entities;
// Errors carries per-item diagnostics that did not abort the import.
type Result struct {
	ItemsImported int
	Skipped       int
	Errors        []ItemError
}

// Importer merges artifacts into an unlocked profile. The merge is additive
// and local-wins: an incoming entity whose id already exists locally is
// skipped, never overwritten, so an import can never destroy local edits.
type Importer struct {
	store *vault.Store
	log   zerolog.Logger
}

func NewImporter(store *vault.Store, log zerolog.Logger) *Importer {
	return &Importer{store: store, log: log.With().Str("component", "backup.importer").Logger()}
}

// Import validates, decrypts if needed, and merges an artifact into the
// profile. Accepted entities are re-sealed under the profile's live session
// key; the backup's own key is wiped as soon as the payload is open. The
// context is checked between entities, so cancellation leaves already
// written entities in place rather than rolling them back.
func (im *Importer) Import(ctx context.Context, profileID string, data []byte, password string) (*Result, error) {
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("%w: not a backup artifact: %v", common.ErrSerialization, err)
	}
	if artifact.Manifest.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: artifact schema %d", common.ErrUnsupportedVersion, artifact.Manifest.SchemaVersion)
	}

	envs, err := im.decode(&artifact, password)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, env := range envs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := env.Validate(); err != nil {
			result.Errors = append(result.Errors, ItemError{ID: env.ID, Err: err.Error()})
			continue
		}

		exists, err := im.store.Exists(ctx, profileID, env.ID)
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped++
			continue
		}

		env.ProfileID = profileID
		if err := im.store.ImportEnvelope(ctx, env); err != nil {
			// a locked vault aborts; anything else is a per-item failure
			if errors.Is(err, common.ErrVaultLocked) {
				return result, err
			}
			result.Errors = append(result.Errors, ItemError{ID: env.ID, Err: err.Error()})
			continue
		}
		result.ItemsImported++
	}

	im.log.Info().
		Str("profile_id", profileID).
		Int("imported", result.ItemsImported).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("import complete")
	return result, nil
}

func (im *Importer) decode(artifact *Artifact, password string) ([]models.Envelope, error) {
	switch artifact.Mode {
	case ModePlain:
		return artifact.Entities, nil
	case ModeEncrypted:
		if artifact.Payload == nil || len(artifact.Payload.Salt) == 0 {
			return nil, fmt.Errorf("%w: encrypted artifact missing payload", common.ErrSerialization)
		}
		if password == "" {
			return nil, fmt.Errorf("%w: password required", common.ErrInvalidParameters)
		}
		params := cryptox.DefaultParams
		if artifact.Payload.KDFParams != nil {
			params = *artifact.Payload.KDFParams
		}
		key, err := cryptox.DeriveKey([]byte(password), artifact.Payload.Salt, params)
		if err != nil {
			return nil, err
		}
		defer common.WipeByteArray(key)

		payload, err := cryptox.Open(artifact.Payload, key)
		if err != nil {
			return nil, err
		}
		var envs []models.Envelope
		if err := json.Unmarshal(payload, &envs); err != nil {
			return nil, fmt.Errorf("%w: payload is not an entity array: %v", common.ErrSerialization, err)
		}
		return envs, nil
	default:
		return nil, fmt.Errorf("%w: unknown artifact mode %q", common.ErrSerialization, artifact.Mode)
	}
}
