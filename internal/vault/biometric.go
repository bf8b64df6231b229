package vault

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"

	"github.com/subramanyaSgb/finvault/internal/common"
	"github.com/subramanyaSgb/finvault/internal/cryptox"
	"github.com/subramanyaSgb/finvault/internal/vault/repositories/profiles"
)

// KeyWrapper protects a session key under a platform-secured credential so
// biometric unlock can recover it without the PIN. Implementations gate
// Unwrap behind the platform's biometric prompt; the wrapped material is
// always the derived session key, never the PIN, so disabling biometrics
// never forces a PIN change.
type KeyWrapper interface {
	Wrap(ctx context.Context, profileID string, key []byte) ([]byte, error)
	Unwrap(ctx context.Context, profileID string, blob []byte) ([]byte, error)
}

// BiometricBridge enrolls and uses a wrapped session key. The actual unlock
// is delegated to the session Manager so a biometric unlock behaves exactly
// like a PIN unlock.
type BiometricBridge struct {
	sessions *Manager
	profiles profiles.Repository
	wrapper  KeyWrapper
}

// NewBiometricBridge wires the bridge; wrapper must not be nil.
func NewBiometricBridge(sessions *Manager, repo profiles.Repository, wrapper KeyWrapper) *BiometricBridge {
	return &BiometricBridge{sessions: sessions, profiles: repo, wrapper: wrapper}
}

// Enroll unlocks with the PIN to obtain the current session key, wraps it
// under the platform credential and stores the blob against the profile.
func (b *BiometricBridge) Enroll(ctx context.Context, profileID, pin string) error {
	if err := b.sessions.UnlockWithPIN(ctx, profileID, pin); err != nil {
		return err
	}

	lk := b.sessions.opLock(profileID)
	lk.Lock()
	defer lk.Unlock()

	key, err := b.sessions.sessionKey(profileID)
	if err != nil {
		return err
	}
	blob, err := b.wrapper.Wrap(ctx, profileID, key)
	if err != nil {
		return fmt.Errorf("failed to wrap session key: %w", err)
	}
	return b.profiles.UpdateBiometric(ctx, profileID, blob)
}

// UnlockWithBiometric asks the platform to unwrap the stored blob and, on
// success, installs the recovered key exactly as a PIN unlock would. The
// recovered key is still validated against the profile verifier so a stale
// wrapper can never install a key that opens nothing.
func (b *BiometricBridge) UnlockWithBiometric(ctx context.Context, profileID string) error {
	profile, err := b.profiles.GetByID(ctx, profileID)
	if err != nil {
		return err
	}
	if !profile.BiometricEnrolled() {
		return common.ErrBiometricNotEnrolled
	}

	key, err := b.wrapper.Unwrap(ctx, profileID, profile.BiometricBlob)
	if err != nil {
		return common.ErrDecryptionFailed
	}
	if subtle.ConstantTimeCompare(profile.Verifier, cryptox.MakeVerifier(key)) == 0 {
		common.WipeByteArray(key)
		return common.ErrDecryptionFailed
	}

	lk := b.sessions.opLock(profileID)
	lk.Lock()
	defer lk.Unlock()
	b.sessions.installKey(profileID, key)
	return nil
}

// Disable removes the wrapped-key blob. The PIN is untouched.
func (b *BiometricBridge) Disable(ctx context.Context, profileID string) error {
	return b.profiles.UpdateBiometric(ctx, profileID, nil)
}

// SoftwareKeyWrapper is an AES-GCM KeyWrapper keyed from device-held
// material. It stands in for a secure-element binding on platforms where
// the embedder has not supplied one; the interface contract is identical.
type SoftwareKeyWrapper struct {
	deviceKey []byte
}

// NewSoftwareKeyWrapper builds a wrapper over 32-byte device material.
func NewSoftwareKeyWrapper(deviceKey []byte) (*SoftwareKeyWrapper, error) {
	if len(deviceKey) != cryptox.KeySize {
		return nil, common.ErrInvalidParameters
	}
	return &SoftwareKeyWrapper{deviceKey: deviceKey}, nil
}

func (w *SoftwareKeyWrapper) Wrap(_ context.Context, _ string, key []byte) ([]byte, error) {
	rec, err := cryptox.Seal(key, w.deviceKey)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

func (w *SoftwareKeyWrapper) Unwrap(_ context.Context, _ string, blob []byte) ([]byte, error) {
	var rec cryptox.EncryptedRecord
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, common.ErrDecryptionFailed
	}
	return cryptox.Open(&rec, w.deviceKey)
}
