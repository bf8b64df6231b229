package models

import (
	"encoding/json"
	"time"

	"github.com/subramanyaSgb/finvault/internal/cryptox"
)

// Profile identifies a vault owner. The PIN itself is never stored; only
// the salt, KDF cost and a derived-key check value survive on disk.
type Profile struct {
	ID        string
	Name      string
	AvatarRef string
	CreatedAt time.Time

	// PIN verification material. Rotated as a unit on PIN change.
	Salt      []byte
	Verifier  []byte
	KDFParams cryptox.Params

	// BiometricBlob is the session key wrapped under a platform credential,
	// empty when biometric unlock is not enrolled.
	BiometricBlob []byte

	// Settings is opaque to the core (currency, theme, notification and
	// navigation preferences owned by the UI layer).
	Settings json.RawMessage
}

// BiometricEnrolled reports whether a wrapped-key blob is present.
func (p *Profile) BiometricEnrolled() bool {
	return len(p.BiometricBlob) > 0
}
