package port

import (
	"context"
	"errors"

	"github.com/rl1809/asset-ledger/internal/core/domain"
)

// ErrAlreadyExists is returned by create operations when a record with the
// same identity is already stored.
var ErrAlreadyExists = errors.New("already exists")

// Store persists ledger state. The service serializes all mutations, so
// implementations only need to keep each single call atomic; ApplySettlement
// is the one multi-row operation and must commit or roll back as a unit.
type Store interface {
	// CreateAsset persists a new asset together with the initial allocation
	// of its full supply to the asset owner.
	CreateAsset(ctx context.Context, asset domain.Asset) error

	// GetAsset retrieves an asset by id, nil if unregistered.
	GetAsset(ctx context.Context, id uint64) (*domain.Asset, error)

	// SetAssetVerified marks an asset verified. Idempotent.
	SetAssetVerified(ctx context.Context, id uint64) error

	// MaxAssetID returns the highest assigned asset id, 0 when none exist.
	MaxAssetID(ctx context.Context) (uint64, error)

	// GetBalance returns the holder's balance for an asset, 0 if no row exists.
	GetBalance(ctx context.Context, assetID uint64, holder string) (uint64, error)

	// SetBalance unconditionally upserts a balance row. Callers own the
	// conservation and non-negativity invariants.
	SetBalance(ctx context.Context, assetID uint64, holder string, balance uint64) error

	// CreateListing persists a new listing.
	CreateListing(ctx context.Context, listing domain.Listing) error

	// GetListing retrieves a listing by id, nil if unknown.
	GetListing(ctx context.Context, id uint64) (*domain.Listing, error)

	// MaxListingID returns the highest assigned listing id, 0 when none exist.
	MaxListingID(ctx context.Context) (uint64, error)

	// AddVerifier upserts the verifier authorization for a principal.
	AddVerifier(ctx context.Context, principal string) error

	// IsVerifier reports whether a principal is an authorized verifier.
	// Absence of a row is false, never an error.
	IsVerifier(ctx context.Context, principal string) (bool, error)

	// ApplySettlement atomically debits the seller, credits the buyer and
	// advances the listing for one fill.
	ApplySettlement(ctx context.Context, s domain.Settlement) error

	// RecordTrade appends one row to the trade journal.
	RecordTrade(ctx context.Context, trade domain.Trade) error
}
