package domain

import "time"

// Listing is an open offer to sell Amount units of one asset at a fixed
// per-unit price. Amount is the remaining quantity; a fully filled listing
// ends with Active=false and Amount=0 and is never reopened.
type Listing struct {
	ID            uint64    `db:"id" json:"id"`
	Seller        string    `db:"seller" json:"seller"`
	AssetID       uint64    `db:"asset_id" json:"asset_id"`
	Amount        uint64    `db:"amount" json:"amount"`
	PricePerToken uint64    `db:"price_per_token" json:"price_per_token"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Settlement is the state delta of one fill: it moves Amount units from
// Seller to Buyer and advances the listing to Remaining (Closed when fully
// consumed). Storage adapters must apply it as a single atomic unit.
type Settlement struct {
	ListingID uint64
	AssetID   uint64
	Buyer     string
	Seller    string
	Amount    uint64
	Remaining uint64
	Closed    bool
}

// Trade is the journal record of one settled fill.
type Trade struct {
	ID        string    `db:"id" json:"id"`
	ListingID uint64    `db:"listing_id" json:"listing_id"`
	AssetID   uint64    `db:"asset_id" json:"asset_id"`
	Buyer     string    `db:"buyer" json:"buyer"`
	Seller    string    `db:"seller" json:"seller"`
	Amount    uint64    `db:"amount" json:"amount"`
	TotalCost uint64    `db:"total_cost" json:"total_cost"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
