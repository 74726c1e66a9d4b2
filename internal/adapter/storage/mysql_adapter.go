package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/rl1809/asset-ledger/internal/core/domain"
	"github.com/rl1809/asset-ledger/internal/port"
)

// ErrConflict is returned when a settlement loses one of its in-transaction
// guards (the seller balance or listing state changed underneath it).
var ErrConflict = errors.New("settlement conflict")

const mysqlDuplicateEntry = 1062

type MySQLAdapter struct {
	db *sqlx.DB
}

func NewMySQLAdapter(db *sqlx.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// CreateAsset inserts the asset and the initial full-supply allocation to its
// owner in one transaction.
func (m *MySQLAdapter) CreateAsset(ctx context.Context, asset domain.Asset) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO assets (id, owner, total_supply, verified, property_address, property_type, valuation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ID, asset.Owner, asset.TotalSupply, asset.Verified,
		asset.PropertyAddress, asset.PropertyType, asset.Valuation, asset.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return port.ErrAlreadyExists
		}
		return fmt.Errorf("insert asset: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO balances (asset_id, holder, balance)
		VALUES (?, ?, ?)`,
		asset.ID, asset.Owner, asset.TotalSupply,
	)
	if err != nil {
		return fmt.Errorf("insert initial balance: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetAsset(ctx context.Context, id uint64) (*domain.Asset, error) {
	var asset domain.Asset
	err := m.db.GetContext(ctx, &asset, `
		SELECT id, owner, total_supply, verified, property_address, property_type, valuation, created_at
		FROM assets WHERE id = ?`, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query asset: %w", err)
	}
	return &asset, nil
}

func (m *MySQLAdapter) SetAssetVerified(ctx context.Context, id uint64) error {
	_, err := m.db.ExecContext(ctx, `UPDATE assets SET verified = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("update asset verified: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) MaxAssetID(ctx context.Context) (uint64, error) {
	var max uint64
	if err := m.db.GetContext(ctx, &max, `SELECT COALESCE(MAX(id), 0) FROM assets`); err != nil {
		return 0, fmt.Errorf("query max asset id: %w", err)
	}
	return max, nil
}

func (m *MySQLAdapter) GetBalance(ctx context.Context, assetID uint64, holder string) (uint64, error) {
	var balance uint64
	err := m.db.GetContext(ctx, &balance, `
		SELECT balance FROM balances WHERE asset_id = ? AND holder = ?`, assetID, holder)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

func (m *MySQLAdapter) SetBalance(ctx context.Context, assetID uint64, holder string, balance uint64) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO balances (asset_id, holder, balance) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE balance = ?`,
		assetID, holder, balance, balance,
	)
	if err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) CreateListing(ctx context.Context, listing domain.Listing) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO listings (id, seller, asset_id, amount, price_per_token, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		listing.ID, listing.Seller, listing.AssetID, listing.Amount,
		listing.PricePerToken, listing.Active, listing.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return port.ErrAlreadyExists
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetListing(ctx context.Context, id uint64) (*domain.Listing, error) {
	var listing domain.Listing
	err := m.db.GetContext(ctx, &listing, `
		SELECT id, seller, asset_id, amount, price_per_token, active, created_at
		FROM listings WHERE id = ?`, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query listing: %w", err)
	}
	return &listing, nil
}

func (m *MySQLAdapter) MaxListingID(ctx context.Context) (uint64, error) {
	var max uint64
	if err := m.db.GetContext(ctx, &max, `SELECT COALESCE(MAX(id), 0) FROM listings`); err != nil {
		return 0, fmt.Errorf("query max listing id: %w", err)
	}
	return max, nil
}

func (m *MySQLAdapter) AddVerifier(ctx context.Context, principal string) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO verifiers (principal, authorized) VALUES (?, TRUE)
		ON DUPLICATE KEY UPDATE authorized = TRUE`, principal)
	if err != nil {
		return fmt.Errorf("upsert verifier: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) IsVerifier(ctx context.Context, principal string) (bool, error) {
	var authorized bool
	err := m.db.GetContext(ctx, &authorized, `
		SELECT authorized FROM verifiers WHERE principal = ?`, principal)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query verifier: %w", err)
	}
	return authorized, nil
}

// ApplySettlement runs the whole fill in one transaction. The seller debit
// and the listing update are guarded so a stale settlement affects zero rows
// and aborts with ErrConflict instead of breaking conservation.
func (m *MySQLAdapter) ApplySettlement(ctx context.Context, s domain.Settlement) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE balances
		SET balance = balance - ?
		WHERE asset_id = ? AND holder = ? AND balance >= ?`,
		s.Amount, s.AssetID, s.Seller, s.Amount,
	)
	if err != nil {
		return fmt.Errorf("debit seller: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO balances (asset_id, holder, balance) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE balance = balance + ?`,
		s.AssetID, s.Buyer, s.Amount, s.Amount,
	)
	if err != nil {
		return fmt.Errorf("credit buyer: %w", err)
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE listings
		SET amount = ?, active = ?
		WHERE id = ? AND active = TRUE`,
		s.Remaining, !s.Closed, s.ListingID,
	)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	rows, _ = result.RowsAffected()
	if rows == 0 {
		return ErrConflict
	}

	return tx.Commit()
}

func (m *MySQLAdapter) RecordTrade(ctx context.Context, trade domain.Trade) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO trades (id, listing_id, asset_id, buyer, seller, amount, total_cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.ListingID, trade.AssetID, trade.Buyer, trade.Seller,
		trade.Amount, trade.TotalCost, trade.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}
