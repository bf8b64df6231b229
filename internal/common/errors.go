// Package common defines shared constants and sentinel errors used across
// FinVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrProfileExists = errors.New("profile already exists")

	// Session / auth errors. Wrong PIN is an expected outcome, not an
	// exceptional one; it is reported as a value, never a panic.
	ErrInvalidPIN           = errors.New("invalid pin")
	ErrVaultLocked          = errors.New("vault is locked")
	ErrBiometricNotEnrolled = errors.New("biometric unlock not enrolled")

	// Crypto errors. ErrDecryptionFailed deliberately covers wrong key,
	// wrong password and corrupted ciphertext: distinguishing them would
	// hand an attacker a verification oracle.
	ErrDecryptionFailed   = errors.New("decryption failed: wrong password or corrupted data")
	ErrInvalidParameters  = errors.New("invalid key derivation parameters")
	ErrUnsupportedVersion = errors.New("unsupported format version")

	// Lifecycle errors.
	ErrSerialization = errors.New("serialization error")
	ErrResealFailed  = errors.New("pin change aborted: re-seal failed")
)
