package domain

import "time"

// Asset is a registered, tokenized real-world property with a fixed total
// supply of ownership units. TotalSupply and Valuation never change after
// creation; Verified goes false -> true exactly once.
type Asset struct {
	ID              uint64    `db:"id" json:"id"`
	Owner           string    `db:"owner" json:"owner"`
	TotalSupply     uint64    `db:"total_supply" json:"total_supply"`
	Verified        bool      `db:"verified" json:"verified"`
	PropertyAddress string    `db:"property_address" json:"property_address"`
	PropertyType    string    `db:"property_type" json:"property_type"`
	Valuation       uint64    `db:"valuation" json:"valuation"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Balance is one holder's count of ownership units for one asset. A missing
// row is equivalent to a zero balance.
type Balance struct {
	AssetID uint64 `db:"asset_id" json:"asset_id"`
	Holder  string `db:"holder" json:"holder"`
	Balance uint64 `db:"balance" json:"balance"`
}
