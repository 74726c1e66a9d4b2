package storage

import (
	"context"
	"sync"

	"github.com/rl1809/asset-ledger/internal/core/domain"
	"github.com/rl1809/asset-ledger/internal/port"
)

type balanceKey struct {
	assetID uint64
	holder  string
}

// MemoryAdapter keeps the full ledger state in process. It implements the
// Store, Currency and Cache ports behind one RWMutex, which is enough for
// the service's serialized-mutation model.
type MemoryAdapter struct {
	mu        sync.RWMutex
	assets    map[uint64]domain.Asset
	balances  map[balanceKey]uint64
	listings  map[uint64]domain.Listing
	verifiers map[string]bool
	trades    []domain.Trade
	funds     map[string]uint64
	idem      map[string]bool
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		assets:    make(map[uint64]domain.Asset),
		balances:  make(map[balanceKey]uint64),
		listings:  make(map[uint64]domain.Listing),
		verifiers: make(map[string]bool),
		funds:     make(map[string]uint64),
		idem:      make(map[string]bool),
	}
}

func (m *MemoryAdapter) CreateAsset(ctx context.Context, asset domain.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assets[asset.ID]; ok {
		return port.ErrAlreadyExists
	}
	m.assets[asset.ID] = asset
	m.balances[balanceKey{asset.ID, asset.Owner}] = asset.TotalSupply
	return nil
}

func (m *MemoryAdapter) GetAsset(ctx context.Context, id uint64) (*domain.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	asset, ok := m.assets[id]
	if !ok {
		return nil, nil
	}
	return &asset, nil
}

func (m *MemoryAdapter) SetAssetVerified(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	asset, ok := m.assets[id]
	if !ok {
		return nil
	}
	asset.Verified = true
	m.assets[id] = asset
	return nil
}

func (m *MemoryAdapter) MaxAssetID(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var max uint64
	for id := range m.assets {
		if id > max {
			max = id
		}
	}
	return max, nil
}

func (m *MemoryAdapter) GetBalance(ctx context.Context, assetID uint64, holder string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.balances[balanceKey{assetID, holder}], nil
}

func (m *MemoryAdapter) SetBalance(ctx context.Context, assetID uint64, holder string, balance uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[balanceKey{assetID, holder}] = balance
	return nil
}

func (m *MemoryAdapter) CreateListing(ctx context.Context, listing domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.listings[listing.ID]; ok {
		return port.ErrAlreadyExists
	}
	m.listings[listing.ID] = listing
	return nil
}

func (m *MemoryAdapter) GetListing(ctx context.Context, id uint64) (*domain.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	listing, ok := m.listings[id]
	if !ok {
		return nil, nil
	}
	return &listing, nil
}

func (m *MemoryAdapter) MaxListingID(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var max uint64
	for id := range m.listings {
		if id > max {
			max = id
		}
	}
	return max, nil
}

func (m *MemoryAdapter) AddVerifier(ctx context.Context, principal string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.verifiers[principal] = true
	return nil
}

func (m *MemoryAdapter) IsVerifier(ctx context.Context, principal string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.verifiers[principal], nil
}

func (m *MemoryAdapter) ApplySettlement(ctx context.Context, s domain.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sellerKey := balanceKey{s.AssetID, s.Seller}
	if m.balances[sellerKey] < s.Amount {
		return ErrConflict
	}
	listing, ok := m.listings[s.ListingID]
	if !ok || !listing.Active {
		return ErrConflict
	}

	m.balances[sellerKey] -= s.Amount
	m.balances[balanceKey{s.AssetID, s.Buyer}] += s.Amount

	listing.Amount = s.Remaining
	listing.Active = !s.Closed
	m.listings[s.ListingID] = listing
	return nil
}

func (m *MemoryAdapter) RecordTrade(ctx context.Context, trade domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trades = append(m.trades, trade)
	return nil
}

// Trades returns a copy of the journal, oldest first.
func (m *MemoryAdapter) Trades() []domain.Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Trade, len(m.trades))
	copy(out, m.trades)
	return out
}

// Transfer implements the Currency port against in-memory accounts.
func (m *MemoryAdapter) Transfer(ctx context.Context, amount uint64, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.funds[from] < amount {
		return port.ErrInsufficientFunds
	}
	m.funds[from] -= amount
	m.funds[to] += amount
	return nil
}

// SetFunds seeds a principal's settlement-currency account.
func (m *MemoryAdapter) SetFunds(ctx context.Context, principal string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.funds[principal] = amount
	return nil
}

// Funds returns a principal's settlement-currency account value.
func (m *MemoryAdapter) Funds(ctx context.Context, principal string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.funds[principal], nil
}

// SetIdempotency implements the Cache port.
func (m *MemoryAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idem[key] {
		return false, nil
	}
	m.idem[key] = true
	return true, nil
}
