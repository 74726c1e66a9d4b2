package domain

// Holding is the computed view of one holder's position in one asset.
// It is never persisted. For an unregistered asset id the zero value is
// reported (balance 0, empty property type, unverified).
type Holding struct {
	AssetID uint64 `json:"asset_id"`
	Balance uint64 `json:"balance"`
	// OwnershipBps is floor(balance * 10000 / total supply), i.e. basis
	// points of the asset owned.
	OwnershipBps   uint64 `json:"ownership_bps"`
	EstimatedValue uint64 `json:"estimated_value"`
	PropertyType   string `json:"property_type"`
	Verified       bool   `json:"verified"`
}

// PortfolioSummary aggregates a holder's positions across a supplied list of
// asset ids. AssetCount counts list entries, duplicates included. Diversity
// is floor(positive holdings * 100 / AssetCount). SmallestHolding is the
// minimum over positive values only; 0 when none are positive.
type PortfolioSummary struct {
	Holder          string    `json:"holder"`
	Holdings        []Holding `json:"holdings"`
	TotalValue      uint64    `json:"total_value"`
	AssetCount      uint64    `json:"asset_count"`
	AverageValue    uint64    `json:"average_value"`
	Diversity       uint64    `json:"diversity"`
	LargestHolding  uint64    `json:"largest_holding"`
	SmallestHolding uint64    `json:"smallest_holding"`
}
