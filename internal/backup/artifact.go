// Package backup serializes a profile's vault contents into portable
// artifacts and merges them back in. The encrypted artifact is sealed under
// a password-derived key that is independent of the profile's PIN, so a
// backup survives PIN changes and device loss.
package backup

import (
	"encoding/json"
	"time"

	"github.com/subramanyaSgb/finvault/internal/cryptox"
	"github.com/subramanyaSgb/finvault/internal/models"
)

// SchemaVersion identifies the artifact layout. Importers reject versions
// they do not recognize before touching the payload.
const SchemaVersion = 1

// Mode distinguishes the two restorable artifact flavors.
type Mode string

const (
	ModeEncrypted Mode = "encrypted"
	ModePlain     Mode = "plain"
)

// Manifest is the unencrypted artifact header.
type Manifest struct {
	SchemaVersion int                 `json:"schema_version"`
	ExportedAt    time.Time           `json:"exported_at"`
	Counts        map[models.Kind]int `json:"counts"`
}

// Artifact is the on-disk backup document. Exactly one of Payload and
// Entities is populated, matching Mode. The encrypted payload carries its
// own salt and KDF parameters so the file is decryptable on any device
// given only the password.
type Artifact struct {
	Manifest Manifest                 `json:"manifest"`
	Mode     Mode                     `json:"mode"`
	Payload  *cryptox.EncryptedRecord `json:"payload,omitempty"`
	Entities []models.Envelope        `json:"entities,omitempty"`
}

// IsEncrypted reports whether raw looks like an encrypted-mode artifact,
// letting callers decide whether a password prompt is needed before Import.
func IsEncrypted(raw []byte) bool {
	var probe struct {
		Mode Mode `json:"mode"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Mode == ModeEncrypted
}

func makeManifest(envs []models.Envelope) Manifest {
	counts := make(map[models.Kind]int)
	for _, e := range envs {
		counts[e.Kind]++
	}
	return Manifest{
		SchemaVersion: SchemaVersion,
		ExportedAt:    time.Now().UTC(),
		Counts:        counts,
	}
}
