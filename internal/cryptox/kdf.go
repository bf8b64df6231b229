// Package cryptox provides the key derivation and authenticated encryption
// primitives used by the vault and by backup artifacts.
package cryptox

import (
	"crypto/sha256"

	"golang.org/x/crypto/argon2"

	"github.com/subramanyaSgb/finvault/internal/common"
)

const (
	// KeySize is the length of every derived symmetric key.
	KeySize = 32

	// MinSaltSize is the minimum accepted KDF salt length. Salts are
	// generated fresh per profile and per backup artifact, never reused.
	MinSaltSize = 16
)

// Params are the argon2id cost parameters. They are stored next to the
// material they protect so old records stay derivable after a cost bump.
type Params struct {
	Time      uint32 `json:"t"`
	MemoryKiB uint32 `json:"m"`
	Threads   uint8  `json:"p"`
}

// DefaultParams is the cost used for all new derivations.
var DefaultParams = Params{Time: 1, MemoryKiB: 64 * 1024, Threads: 4}

// DeriveKey derives a KeySize-byte key from a low-entropy secret (PIN or
// backup password) and a salt using argon2id. Deterministic for identical
// inputs, performs no I/O.
func DeriveKey(secret, salt []byte, p Params) ([]byte, error) {
	if len(salt) < MinSaltSize {
		return nil, common.ErrInvalidParameters
	}
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return nil, common.ErrInvalidParameters
	}
	return argon2.IDKey(secret, salt, p.Time, p.MemoryKiB, p.Threads, KeySize), nil
}

// MakeVerifier returns the check value stored against a profile so an
// unlock attempt can be validated without keeping the key on disk.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}
