// Package profiles persists vault owner profiles: identity, PIN
// verification material and the optional biometric wrapped-key blob.
package profiles

import (
	"context"
	"encoding/json"

	"github.com/subramanyaSgb/finvault/internal/cryptox"
	"github.com/subramanyaSgb/finvault/internal/models"
)

// Repository describes profile CRUD. The PIN itself never reaches this
// layer; only derived verification material does.
type Repository interface {
	Create(ctx context.Context, p *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	Delete(ctx context.Context, id string) error

	// UpdateAuth rotates the PIN verification material as a unit.
	UpdateAuth(ctx context.Context, id string, salt, verifier []byte, params cryptox.Params) error

	// UpdateBiometric replaces the wrapped-key blob; nil disables enrollment.
	UpdateBiometric(ctx context.Context, id string, blob []byte) error

	// UpdateSettings replaces the opaque settings document.
	UpdateSettings(ctx context.Context, id string, settings json.RawMessage) error
}
