package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/asset-ledger/internal/core/domain"
	"github.com/rl1809/asset-ledger/internal/port"
)

const (
	// MinListingAmount is the smallest quantity a listing may offer.
	MinListingAmount = 1

	// MaxPortfolioAssets bounds the asset id list accepted by PortfolioValue.
	MaxPortfolioAssets = 50
)

// Ledger is the asset registry, balance ledger and listing marketplace.
// A single mutex serializes every mutation, so each operation runs with
// all-or-nothing semantics against the store: the first failing precondition
// aborts the call before any state changes.
type Ledger struct {
	owner    string
	store    port.Store
	currency port.Currency
	cache    port.Cache

	mu            sync.Mutex
	nextAssetID   uint64
	nextListingID uint64

	trades chan domain.Trade
}

// NewLedger builds a Ledger whose privileged owner is the given principal.
// Id counters resume after the highest ids already in the store. cache may be
// nil, in which case buy requests are not deduplicated.
func NewLedger(ctx context.Context, owner string, store port.Store, currency port.Currency, cache port.Cache, journalSize int) (*Ledger, error) {
	maxAsset, err := store.MaxAssetID(ctx)
	if err != nil {
		return nil, fmt.Errorf("load asset counter: %w", err)
	}
	maxListing, err := store.MaxListingID(ctx)
	if err != nil {
		return nil, fmt.Errorf("load listing counter: %w", err)
	}

	return &Ledger{
		owner:         owner,
		store:         store,
		currency:      currency,
		cache:         cache,
		nextAssetID:   maxAsset + 1,
		nextListingID: maxListing + 1,
		trades:        make(chan domain.Trade, journalSize),
	}, nil
}

// Owner returns the privileged owner principal.
func (l *Ledger) Owner() string {
	return l.owner
}

func (l *Ledger) isOwner(caller string) bool {
	return caller == l.owner
}

// CreateAsset registers a new tokenized asset and allocates its entire supply
// to the caller. Only the owner may register assets.
func (l *Ledger) CreateAsset(ctx context.Context, caller string, totalSupply uint64, propertyAddress, propertyType string, valuation uint64) (uint64, error) {
	if !l.isOwner(caller) {
		return 0, ErrNotAuthorized
	}
	if totalSupply == 0 {
		return 0, ErrInvalidAmount
	}
	if valuation == 0 {
		return 0, ErrInvalidPrice
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	asset := domain.Asset{
		ID:              l.nextAssetID,
		Owner:           caller,
		TotalSupply:     totalSupply,
		Verified:        false,
		PropertyAddress: propertyAddress,
		PropertyType:    propertyType,
		Valuation:       valuation,
		CreatedAt:       time.Now(),
	}

	if err := l.store.CreateAsset(ctx, asset); err != nil {
		if errors.Is(err, port.ErrAlreadyExists) {
			return 0, ErrAssetAlreadyExists
		}
		return 0, err
	}
	l.nextAssetID++

	return asset.ID, nil
}

// VerifyAsset marks an asset as verified. Only authorized verifiers may call
// it. Verifying an already-verified asset succeeds with no further effect.
func (l *Ledger) VerifyAsset(ctx context.Context, caller string, assetID uint64) error {
	ok, err := l.store.IsVerifier(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	asset, err := l.store.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if asset == nil {
		return ErrAssetNotFound
	}

	return l.store.SetAssetVerified(ctx, assetID)
}

// AddVerifier authorizes a principal to verify assets. Owner only. There is
// no revocation path.
func (l *Ledger) AddVerifier(ctx context.Context, caller, principal string) error {
	if !l.isOwner(caller) {
		return ErrNotAuthorized
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.store.AddVerifier(ctx, principal)
}

// validateAsset returns the asset iff it exists and is verified.
func (l *Ledger) validateAsset(ctx context.Context, assetID uint64) (*domain.Asset, error) {
	asset, err := l.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ErrAssetNotFound
	}
	if !asset.Verified {
		return nil, ErrAssetNotVerified
	}
	return asset, nil
}

// CreateListing opens a fixed-price sale listing for a verified asset. The
// balance check here is advisory: no units are reserved, and sufficiency is
// re-validated against the seller's live balance at every fill.
func (l *Ledger) CreateListing(ctx context.Context, caller string, assetID, amount, pricePerToken uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.validateAsset(ctx, assetID); err != nil {
		return 0, err
	}
	if amount < MinListingAmount {
		return 0, ErrInvalidAmount
	}
	if pricePerToken == 0 {
		return 0, ErrInvalidPrice
	}

	balance, err := l.store.GetBalance(ctx, assetID, caller)
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return 0, ErrInsufficientBalance
	}

	listing := domain.Listing{
		ID:            l.nextListingID,
		Seller:        caller,
		AssetID:       assetID,
		Amount:        amount,
		PricePerToken: pricePerToken,
		Active:        true,
		CreatedAt:     time.Now(),
	}

	if err := l.store.CreateListing(ctx, listing); err != nil {
		return 0, err
	}
	l.nextListingID++

	return listing.ID, nil
}

// BuyTokens fills a listing: it moves amount * price settlement currency from
// the caller to the seller, then moves the tokens and advances the listing as
// one atomic unit. If persisting the settlement fails after the currency
// moved, the payment is refunded. requestID, when non-empty, deduplicates
// retries of the same client request.
func (l *Ledger) BuyTokens(ctx context.Context, requestID, caller string, listingID, amount uint64) error {
	if l.cache != nil && requestID != "" {
		ok, err := l.cache.SetIdempotency(ctx, "buy:"+requestID)
		if err != nil {
			return fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return ErrDuplicateRequest
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	listing, err := l.store.GetListing(ctx, listingID)
	if err != nil {
		return err
	}
	if listing == nil || !listing.Active {
		return ErrListingNotFound
	}
	if caller == listing.Seller {
		return ErrCannotBuyOwnListing
	}
	if amount == 0 || amount > listing.Amount {
		return ErrInvalidAmount
	}

	sellerBalance, err := l.store.GetBalance(ctx, listing.AssetID, listing.Seller)
	if err != nil {
		return err
	}
	if sellerBalance < amount {
		return ErrInsufficientBalance
	}

	totalCost := amount * listing.PricePerToken

	if err := l.currency.Transfer(ctx, totalCost, caller, listing.Seller); err != nil {
		return fmt.Errorf("currency transfer failed: %w", err)
	}

	settlement := domain.Settlement{
		ListingID: listingID,
		AssetID:   listing.AssetID,
		Buyer:     caller,
		Seller:    listing.Seller,
		Amount:    amount,
		Remaining: listing.Amount - amount,
		Closed:    amount == listing.Amount,
	}

	if err := l.store.ApplySettlement(ctx, settlement); err != nil {
		// The payment already moved; refund it so the rejected fill leaves
		// no observable state change.
		if refundErr := l.currency.Transfer(ctx, totalCost, listing.Seller, caller); refundErr != nil {
			log.Printf("CRITICAL: settlement failed and refund of %d to %s failed: %v", totalCost, caller, refundErr)
		}
		return err
	}

	trade := domain.Trade{
		ID:        uuid.New().String(),
		ListingID: listingID,
		AssetID:   listing.AssetID,
		Buyer:     caller,
		Seller:    listing.Seller,
		Amount:    amount,
		TotalCost: totalCost,
		CreatedAt: time.Now(),
	}

	select {
	case l.trades <- trade:
	default:
		log.Printf("trade journal full, dropping trade %s", trade.ID)
	}

	return nil
}

// Asset returns the asset record for an id, nil if unregistered.
func (l *Ledger) Asset(ctx context.Context, assetID uint64) (*domain.Asset, error) {
	return l.store.GetAsset(ctx, assetID)
}

// Listing returns the listing record for an id, nil if unknown.
func (l *Ledger) Listing(ctx context.Context, listingID uint64) (*domain.Listing, error) {
	return l.store.GetListing(ctx, listingID)
}

// TokenBalance returns the holder's balance for an asset, 0 if none.
func (l *Ledger) TokenBalance(ctx context.Context, assetID uint64, holder string) (uint64, error) {
	return l.store.GetBalance(ctx, assetID, holder)
}

// TradeFeed exposes the journal of settled fills for asynchronous persistence.
func (l *Ledger) TradeFeed() <-chan domain.Trade {
	return l.trades
}

// Close closes the trade journal channel.
func (l *Ledger) Close() {
	close(l.trades)
}
