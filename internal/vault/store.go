package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/subramanyaSgb/finvault/internal/categorize"
	"github.com/subramanyaSgb/finvault/internal/cryptox"
	"github.com/subramanyaSgb/finvault/internal/models"
	"github.com/subramanyaSgb/finvault/internal/vault/repositories/records"
)

// Store is the typed CRUD surface over sealed entity rows. Every operation
// resolves the profile's session key first and fails with ErrVaultLocked
// when there is none: "no data" and "can't decrypt" are never conflated.
type Store struct {
	sessions  *Manager
	records   records.Repository
	suggester categorize.Suggester
	log       zerolog.Logger
}

// NewStore wires the store. suggester may be nil to disable category
// suggestions entirely.
func NewStore(sessions *Manager, repo records.Repository, suggester categorize.Suggester, log zerolog.Logger) *Store {
	return &Store{sessions: sessions, records: repo, suggester: suggester, log: log}
}

// Create seals a new entity under the profile's session key and returns its
// global id. New transactions without a category are offered to the
// categorizer first; the suggestion is advisory and failures are ignored.
func (s *Store) Create(ctx context.Context, profileID string, entity models.TypedEntity) (string, error) {
	entity = s.maybeCategorize(ctx, entity)

	env, err := models.Wrap(uuid.NewString(), profileID, time.Now(), entity)
	if err != nil {
		return "", fmt.Errorf("failed to wrap entity: %w", err)
	}
	if err := s.put(ctx, env); err != nil {
		return "", err
	}
	return env.ID, nil
}

// Update replaces an existing entity's payload. The stored kind must match;
// an id can never silently change kind.
func (s *Store) Update(ctx context.Context, profileID, id string, entity models.TypedEntity) error {
	lk := s.sessions.opLock(profileID)
	lk.Lock()
	defer lk.Unlock()

	if _, err := s.sessions.sessionKey(profileID); err != nil {
		return err
	}
	existing, err := s.records.GetByID(ctx, profileID, id)
	if err != nil {
		return err
	}
	if existing.Kind != string(entity.EntityKind()) {
		return fmt.Errorf("entity %s is a %s, not a %s", id, existing.Kind, entity.EntityKind())
	}

	env, err := models.Wrap(id, profileID, time.Now(), entity)
	if err != nil {
		return fmt.Errorf("failed to wrap entity: %w", err)
	}
	return s.putLocked(ctx, env)
}

// Delete hard-deletes an entity's sealed record.
func (s *Store) Delete(ctx context.Context, profileID, id string) error {
	lk := s.sessions.opLock(profileID)
	lk.Lock()
	defer lk.Unlock()

	if _, err := s.sessions.sessionKey(profileID); err != nil {
		return err
	}
	s.sessions.Activity(profileID)
	return s.records.Delete(ctx, profileID, id)
}

// Get opens one entity envelope.
func (s *Store) Get(ctx context.Context, profileID, id string) (models.Envelope, error) {
	lk := s.sessions.opLock(profileID)
	lk.Lock()
	defer lk.Unlock()

	key, err := s.sessions.sessionKey(profileID)
	if err != nil {
		return models.Envelope{}, err
	}
	rec, err := s.records.GetByID(ctx, profileID, id)
	if err != nil {
		return models.Envelope{}, err
	}
	s.sessions.Activity(profileID)
	return openRecord(rec, key)
}

// List opens every envelope of one kind.
func (s *Store) List(ctx context.Context, profileID string, kind models.Kind) ([]models.Envelope, error) {
	lk := s.sessions.opLock(profileID)
	lk.Lock()
	defer lk.Unlock()

	key, err := s.sessions.sessionKey(profileID)
	if err != nil {
		return nil, err
	}
	rows, err := s.records.ListByKind(ctx, profileID, string(kind))
	if err != nil {
		return nil, err
	}
	s.sessions.Activity(profileID)
	return openRecords(rows, key)
}

// Envelopes opens every entity of a profile, all kinds. Used by export.
func (s *Store) Envelopes(ctx context.Context, profileID string) ([]models.Envelope, error) {
	lk := s.sessions.opLock(profileID)
	lk.Lock()
	defer lk.Unlock()

	key, err := s.sessions.sessionKey(profileID)
	if err != nil {
		return nil, err
	}
	rows, err := s.records.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	s.sessions.Activity(profileID)
	return openRecords(rows, key)
}

// Query filters one kind with a caller predicate over the decrypted entity.
func (s *Store) Query(ctx context.Context, profileID string, kind models.Kind, pred func(models.Envelope, models.TypedEntity) bool) ([]models.Envelope, error) {
	envs, err := s.List(ctx, profileID, kind)
	if err != nil {
		return nil, err
	}
	var out []models.Envelope
	for _, env := range envs {
		entity, err := env.Unwrap()
		if err != nil {
			return nil, err
		}
		if pred(env, entity) {
			out = append(out, env)
		}
	}
	return out, nil
}

// ImportEnvelope seals an externally sourced envelope under the profile's
// current session key, preserving its global id and timestamp. The backup
// importer writes through here so imported rows carry the live key, never
// the artifact's.
func (s *Store) ImportEnvelope(ctx context.Context, env models.Envelope) error {
	return s.put(ctx, env)
}

// Exists reports whether an entity id is already present for the profile.
// Like every other read it requires an unlocked session, even though the
// lookup itself touches no ciphertext.
func (s *Store) Exists(ctx context.Context, profileID, id string) (bool, error) {
	if _, err := s.sessions.sessionKey(profileID); err != nil {
		return false, err
	}
	return s.records.Exists(ctx, profileID, id)
}

func (s *Store) put(ctx context.Context, env models.Envelope) error {
	lk := s.sessions.opLock(env.ProfileID)
	lk.Lock()
	defer lk.Unlock()
	return s.putLocked(ctx, env)
}

// putLocked seals and upserts; caller holds the profile op lock.
func (s *Store) putLocked(ctx context.Context, env models.Envelope) error {
	key, err := s.sessions.sessionKey(env.ProfileID)
	if err != nil {
		return err
	}
	enc, err := cryptox.SealJSON(env, key)
	if err != nil {
		return fmt.Errorf("failed to seal entity: %w", err)
	}
	rec := &records.Record{
		ID:        env.ID,
		ProfileID: env.ProfileID,
		Kind:      string(env.Kind),
		UpdatedAt: env.UpdatedAt,
	}
	applyEnvelope(rec, enc)
	if err := s.records.Upsert(ctx, rec); err != nil {
		return err
	}
	s.sessions.Activity(env.ProfileID)
	return nil
}

// maybeCategorize fills an empty transaction category from the advisory
// suggester. Low confidence and suggester errors both mean "leave as is".
func (s *Store) maybeCategorize(ctx context.Context, entity models.TypedEntity) models.TypedEntity {
	tx, ok := entity.(models.Transaction)
	if !ok || tx.Category != "" || s.suggester == nil {
		return entity
	}
	sug, err := s.suggester.Suggest(ctx, tx.Description, tx.Amount, tx.Type)
	if err != nil || sug.Confidence < categorize.MinConfidence {
		return entity
	}
	tx.Category = sug.Category
	tx.Subcategory = sug.Subcategory
	return tx
}

func openRecord(rec *records.Record, key []byte) (models.Envelope, error) {
	var env models.Envelope
	if err := cryptox.OpenJSON(recordToEnvelope(rec), key, &env); err != nil {
		return models.Envelope{}, err
	}
	env.ProfileID = rec.ProfileID
	return env, nil
}

func openRecords(rows []records.Record, key []byte) ([]models.Envelope, error) {
	out := make([]models.Envelope, 0, len(rows))
	for i := range rows {
		env, err := openRecord(&rows[i], key)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rows[i].ID, err)
		}
		out = append(out, env)
	}
	return out, nil
}

// Get returns one entity as its concrete type. Requesting an id under the
// wrong type parameter is an error.
func Get[T models.TypedEntity](ctx context.Context, s *Store, profileID, id string) (T, error) {
	var zero T
	env, err := s.Get(ctx, profileID, id)
	if err != nil {
		return zero, err
	}
	if env.Kind != zero.EntityKind() {
		return zero, fmt.Errorf("entity %s is a %s, not a %s", id, env.Kind, zero.EntityKind())
	}
	v, err := env.Unwrap()
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Item pairs a decrypted entity with its envelope metadata.
type Item[T models.TypedEntity] struct {
	ID        string
	UpdatedAt time.Time
	Value     T
}

// List returns all of a profile's entities of one concrete type.
func List[T models.TypedEntity](ctx context.Context, s *Store, profileID string) ([]Item[T], error) {
	var zero T
	envs, err := s.List(ctx, profileID, zero.EntityKind())
	if err != nil {
		return nil, err
	}
	out := make([]Item[T], 0, len(envs))
	for _, env := range envs {
		v, err := env.Unwrap()
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", env.ID, err)
		}
		out = append(out, Item[T]{ID: env.ID, UpdatedAt: env.UpdatedAt, Value: v.(T)})
	}
	return out, nil
}
