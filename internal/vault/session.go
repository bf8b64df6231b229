package vault

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/subramanyaSgb/finvault/internal/common"
	"github.com/subramanyaSgb/finvault/internal/cryptox"
	"github.com/subramanyaSgb/finvault/internal/dbx"
	"github.com/subramanyaSgb/finvault/internal/vault/repositories/profiles"
	"github.com/subramanyaSgb/finvault/internal/vault/repositories/records"
)

// DefaultAutoLock is the idle timeout applied when none is configured.
const DefaultAutoLock = 5 * time.Minute

// session is the in-memory state of one unlocked profile. The key lives
// nowhere else and is wiped on every transition back to locked.
type session struct {
	key   []byte
	timer *time.Timer
}

// Manager owns every profile's unlock state. Lock, unlock and PIN change
// are mutually exclusive per profile; operations on different profiles are
// independent.
type Manager struct {
	db       *sql.DB
	profiles profiles.Repository
	wrapper  KeyWrapper
	autoLock time.Duration
	kdf      cryptox.Params
	log      zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	failures map[string]int
	opLocks  map[string]*sync.Mutex
}

// NewManager constructs a session manager over the profile repository.
// wrapper may be nil when biometric unlock is not available on the device.
func NewManager(db *sql.DB, repo profiles.Repository, wrapper KeyWrapper, autoLock time.Duration, kdf cryptox.Params, log zerolog.Logger) *Manager {
	if autoLock <= 0 {
		autoLock = DefaultAutoLock
	}
	return &Manager{
		db:       db,
		profiles: repo,
		wrapper:  wrapper,
		autoLock: autoLock,
		kdf:      kdf,
		log:      log,
		sessions: make(map[string]*session),
		failures: make(map[string]int),
		opLocks:  make(map[string]*sync.Mutex),
	}
}

// opLock returns the per-profile mutex serializing unlock/lock/change-PIN
// against vault writes.
func (m *Manager) opLock(profileID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lk, ok := m.opLocks[profileID]
	if !ok {
		lk = &sync.Mutex{}
		m.opLocks[profileID] = lk
	}
	return lk
}

// UnlockWithPIN derives a candidate key from the stored salt and compares
// its check value in constant time. A mismatch increments the failure
// counter; lockout/backoff policy belongs to the caller.
func (m *Manager) UnlockWithPIN(ctx context.Context, profileID, pin string) error {
	lk := m.opLock(profileID)
	lk.Lock()
	defer lk.Unlock()

	profile, err := m.profiles.GetByID(ctx, profileID)
	if err != nil {
		return err
	}

	candidate, err := cryptox.DeriveKey([]byte(pin), profile.Salt, profile.KDFParams)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare(profile.Verifier, cryptox.MakeVerifier(candidate)) == 0 {
		common.WipeByteArray(candidate)
		m.mu.Lock()
		m.failures[profileID]++
		n := m.failures[profileID]
		m.mu.Unlock()
		m.log.Warn().Str("profile", profileID).Int("failures", n).Msg("pin rejected")
		return common.ErrInvalidPIN
	}

	m.installKey(profileID, candidate)
	m.log.Info().Str("profile", profileID).Msg("vault unlocked")
	return nil
}

// installKey transitions a profile to Unlocked, replacing any previous key
// and arming the auto-lock timer. Caller must hold the profile's op lock.
func (m *Manager) installKey(profileID string, key []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[profileID]; ok {
		s.timer.Stop()
		common.WipeByteArray(s.key)
	}
	s := &session{key: key}
	s.timer = time.AfterFunc(m.autoLock, func() { m.lockOnTimeout(profileID, s) })
	m.sessions[profileID] = s
	m.failures[profileID] = 0
}

// lockOnTimeout drops the session the expired timer belongs to. An expired
// callback that lost the race against a re-unlock or PIN change must not
// wipe the replacement session, hence the identity check.
func (m *Manager) lockOnTimeout(profileID string, expired *session) {
	lk := m.opLock(profileID)
	lk.Lock()
	defer lk.Unlock()

	m.mu.Lock()
	current, ok := m.sessions[profileID]
	m.mu.Unlock()
	if !ok || current != expired {
		return
	}
	if m.dropSession(profileID) {
		m.log.Info().Str("profile", profileID).Msg("auto-lock expired")
	}
}

// dropSession wipes and removes the session key. Returns false when the
// profile was already locked.
func (m *Manager) dropSession(profileID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[profileID]
	if !ok {
		return false
	}
	s.timer.Stop()
	common.WipeByteArray(s.key)
	delete(m.sessions, profileID)
	return true
}

// Lock explicitly locks a profile. Locking a locked profile is a no-op.
func (m *Manager) Lock(profileID string) {
	lk := m.opLock(profileID)
	lk.Lock()
	defer lk.Unlock()
	if m.dropSession(profileID) {
		m.log.Info().Str("profile", profileID).Msg("vault locked")
	}
}

// IsUnlocked reports whether the profile currently holds a session key.
func (m *Manager) IsUnlocked(profileID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[profileID]
	return ok
}

// FailureCount exposes consecutive failed PIN attempts since the last
// successful unlock, for the caller's lockout policy.
func (m *Manager) FailureCount(profileID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[profileID]
}

// SetAutoLock changes the idle timeout. Sessions already unlocked pick the
// new duration up on their next activity signal.
func (m *Manager) SetAutoLock(d time.Duration) {
	if d <= 0 {
		d = DefaultAutoLock
	}
	m.mu.Lock()
	m.autoLock = d
	m.mu.Unlock()
}

// Activity resets the auto-lock timer. External collaborators signal user
// activity here; the vault's own reads and writes do too.
func (m *Manager) Activity(profileID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[profileID]; ok {
		s.timer.Reset(m.autoLock)
	}
}

// sessionKey returns the live key for an unlocked profile. Callers must
// hold the profile's op lock for the duration of use so a concurrent lock
// cannot wipe the key mid-operation.
func (m *Manager) sessionKey(profileID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[profileID]
	if !ok {
		return nil, common.ErrVaultLocked
	}
	return s.key, nil
}

// suspendTimer stops the auto-lock timer for the duration of a re-seal.
// Returns a resume func; both are no-ops when the profile is locked.
func (m *Manager) suspendTimer(profileID string) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[profileID]
	if !ok {
		return func() {}
	}
	s.timer.Stop()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.sessions[profileID]; ok {
			cur.timer.Reset(m.autoLock)
		}
	}
}

// ChangePIN re-derives fresh verification material from newPIN and re-seals
// every record (and the biometric wrapper, when enrolled) under the new key
// inside one transaction. On any failure the transaction rolls back and the
// old PIN, old biometric wrapper and every record remain valid.
func (m *Manager) ChangePIN(ctx context.Context, profileID, oldPIN, newPIN string) error {
	lk := m.opLock(profileID)
	lk.Lock()
	defer lk.Unlock()

	profile, err := m.profiles.GetByID(ctx, profileID)
	if err != nil {
		return err
	}

	oldKey, err := cryptox.DeriveKey([]byte(oldPIN), profile.Salt, profile.KDFParams)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldKey)
	if subtle.ConstantTimeCompare(profile.Verifier, cryptox.MakeVerifier(oldKey)) == 0 {
		m.mu.Lock()
		m.failures[profileID]++
		m.mu.Unlock()
		return common.ErrInvalidPIN
	}

	newSalt := common.GenerateRandByteArray(cryptox.MinSaltSize * 2)
	newKey, err := cryptox.DeriveKey([]byte(newPIN), newSalt, m.kdf)
	if err != nil {
		return err
	}

	// The re-seal needs a stable snapshot: no auto-lock, no interleaved
	// writes (op lock is held), one transaction.
	resume := m.suspendTimer(profileID)
	defer resume()

	err = dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		recRepo := records.NewSQLiteRepository(tx)
		profRepo := profiles.NewSQLiteRepository(tx)

		rows, err := recRepo.ListByProfile(ctx, profileID)
		if err != nil {
			return err
		}
		for i := range rows {
			rec := &rows[i]
			plaintext, err := cryptox.Open(recordToEnvelope(rec), oldKey)
			if err != nil {
				return fmt.Errorf("record %s: %w", rec.ID, err)
			}
			resealed, err := cryptox.Seal(plaintext, newKey)
			common.WipeByteArray(plaintext)
			if err != nil {
				return fmt.Errorf("record %s: %w", rec.ID, err)
			}
			applyEnvelope(rec, resealed)
			if err := recRepo.Upsert(ctx, rec); err != nil {
				return err
			}
		}

		if err := profRepo.UpdateAuth(ctx, profileID, newSalt, cryptox.MakeVerifier(newKey), m.kdf); err != nil {
			return err
		}

		// A stale biometric wrapper would hand back a key that no longer
		// opens anything; re-wrapping is part of the same transaction.
		if profile.BiometricEnrolled() {
			if m.wrapper == nil {
				return fmt.Errorf("biometric enrolled but no key wrapper available")
			}
			blob, err := m.wrapper.Wrap(ctx, profileID, newKey)
			if err != nil {
				return err
			}
			if err := profRepo.UpdateBiometric(ctx, profileID, blob); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		common.WipeByteArray(newKey)
		m.log.Error().Str("profile", profileID).Err(err).Msg("pin change rolled back")
		return fmt.Errorf("%w: %v", common.ErrResealFailed, err)
	}

	m.installKey(profileID, newKey)
	m.log.Info().Str("profile", profileID).Msg("pin changed, vault re-sealed")
	return nil
}

// recordToEnvelope adapts a sealed row to the crypto record shape.
func recordToEnvelope(rec *records.Record) *cryptox.EncryptedRecord {
	return &cryptox.EncryptedRecord{
		Version:    rec.Version,
		Nonce:      rec.Nonce,
		Ciphertext: rec.Ciphertext,
		Tag:        rec.Tag,
	}
}

// applyEnvelope writes a crypto record back onto a sealed row.
func applyEnvelope(rec *records.Record, enc *cryptox.EncryptedRecord) {
	rec.Version = enc.Version
	rec.Nonce = enc.Nonce
	rec.Ciphertext = enc.Ciphertext
	rec.Tag = enc.Tag
}
