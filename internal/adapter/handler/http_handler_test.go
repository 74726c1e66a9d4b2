package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/asset-ledger/internal/adapter/storage"
	"github.com/rl1809/asset-ledger/internal/core/domain"
	"github.com/rl1809/asset-ledger/internal/core/service"
)

const testOwner = "deployer"

type testEnv struct {
	server *httptest.Server
	mem    *storage.MemoryAdapter
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mem := storage.NewMemoryAdapter()
	ledger, err := service.NewLedger(context.Background(), testOwner, mem, mem, mem, 100)
	require.NoError(t, err)
	go func() {
		for range ledger.TradeFeed() {
		}
	}()
	t.Cleanup(ledger.Close)

	server := httptest.NewServer(NewHTTPHandler(ledger).Router())
	t.Cleanup(server.Close)

	return &testEnv{server: server, mem: mem}
}

func (e *testEnv) do(t *testing.T, method, path, principal string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if principal != "" {
		req.Header.Set("X-Principal", principal)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body ErrorResponse
	decode(t, resp, &body)
	return body.Code
}

func TestFullMarketplaceFlow(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	// Register an asset
	resp := env.do(t, http.MethodPost, "/assets", testOwner, CreateAssetRequest{
		TotalSupply:     100,
		PropertyAddress: "1 Main St",
		PropertyType:    "residential",
		Valuation:       1000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created CreateAssetResponse
	decode(t, resp, &created)
	assert.Equal(t, uint64(1), created.AssetID)

	// Authorize a verifier and verify the asset
	resp = env.do(t, http.MethodPost, "/verifiers", testOwner, AddVerifierRequest{Principal: "inspector"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/assets/1/verify", "inspector", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var asset domain.Asset
	resp = env.do(t, http.MethodGet, "/assets/1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &asset)
	assert.True(t, asset.Verified)

	// List 40 tokens at price 5
	resp = env.do(t, http.MethodPost, "/listings", testOwner, CreateListingRequest{
		AssetID:       1,
		Amount:        40,
		PricePerToken: 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var listed CreateListingResponse
	decode(t, resp, &listed)
	assert.Equal(t, uint64(1), listed.ListingID)

	// Fund alice and buy 25
	require.NoError(t, env.mem.SetFunds(ctx, "alice", 1000))
	resp = env.do(t, http.MethodPost, "/listings/1/buy", "alice", BuyTokensRequest{Amount: 25})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Listing is partially filled
	var listing domain.Listing
	resp = env.do(t, http.MethodGet, "/listings/1", "", nil)
	decode(t, resp, &listing)
	assert.True(t, listing.Active)
	assert.Equal(t, uint64(15), listing.Amount)

	// Balance moved
	var balance TokenBalanceResponse
	resp = env.do(t, http.MethodGet, "/assets/1/balances/alice", "", nil)
	decode(t, resp, &balance)
	assert.Equal(t, uint64(25), balance.Balance)

	// Payment moved: 25 * 5 = 125
	funds, err := env.mem.Funds(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(125), funds)

	// Portfolio over a held and an unregistered asset
	var summary domain.PortfolioSummary
	resp = env.do(t, http.MethodGet, "/holders/alice/portfolio?assets=1,99", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &summary)
	assert.Equal(t, uint64(250), summary.TotalValue)
	assert.Equal(t, uint64(2), summary.AssetCount)
	assert.Equal(t, uint64(125), summary.AverageValue)
	assert.Equal(t, uint64(50), summary.Diversity)
	assert.Equal(t, uint64(250), summary.LargestHolding)
	assert.Equal(t, uint64(250), summary.SmallestHolding)
	require.Len(t, summary.Holdings, 2)
	assert.Equal(t, uint64(2500), summary.Holdings[0].OwnershipBps)
}

func TestErrorCodes(t *testing.T) {
	env := setupTestEnv(t)

	// Missing principal on mutation
	resp := env.do(t, http.MethodPost, "/assets", "", CreateAssetRequest{TotalSupply: 1, Valuation: 1})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing_principal", errorCode(t, resp))

	// Non-owner registration
	resp = env.do(t, http.MethodPost, "/assets", "mallory", CreateAssetRequest{TotalSupply: 1, Valuation: 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "not_authorized", errorCode(t, resp))

	// Invalid creation parameters
	resp = env.do(t, http.MethodPost, "/assets", testOwner, CreateAssetRequest{TotalSupply: 0, Valuation: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_amount", errorCode(t, resp))

	resp = env.do(t, http.MethodPost, "/assets", testOwner, CreateAssetRequest{TotalSupply: 1, Valuation: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_price", errorCode(t, resp))

	// Unknown asset
	resp = env.do(t, http.MethodGet, "/assets/99", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "asset_not_found", errorCode(t, resp))

	// Listing an unverified asset
	resp = env.do(t, http.MethodPost, "/assets", testOwner, CreateAssetRequest{TotalSupply: 100, Valuation: 1000})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/listings", testOwner, CreateListingRequest{AssetID: 1, Amount: 10, PricePerToken: 5})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "asset_not_verified", errorCode(t, resp))

	// Unknown listing
	resp = env.do(t, http.MethodPost, "/listings/42/buy", "alice", BuyTokensRequest{Amount: 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "listing_not_found", errorCode(t, resp))
}

func TestBuyErrorCodes(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	// Set up a verified, listed asset
	resp := env.do(t, http.MethodPost, "/assets", testOwner, CreateAssetRequest{TotalSupply: 100, Valuation: 1000})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = env.do(t, http.MethodPost, "/verifiers", testOwner, AddVerifierRequest{Principal: "inspector"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = env.do(t, http.MethodPost, "/assets/1/verify", "inspector", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = env.do(t, http.MethodPost, "/listings", testOwner, CreateListingRequest{AssetID: 1, Amount: 40, PricePerToken: 5})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Seller cannot buy their own listing
	resp = env.do(t, http.MethodPost, "/listings/1/buy", testOwner, BuyTokensRequest{Amount: 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "cannot_buy_own_listing", errorCode(t, resp))

	// Buyer without settlement funds
	resp = env.do(t, http.MethodPost, "/listings/1/buy", "pauper", BuyTokensRequest{Amount: 1})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "insufficient_funds", errorCode(t, resp))

	// Buying more than the remainder
	require.NoError(t, env.mem.SetFunds(ctx, "alice", 100000))
	resp = env.do(t, http.MethodPost, "/listings/1/buy", "alice", BuyTokensRequest{Amount: 41})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_amount", errorCode(t, resp))

	// Duplicate request id
	resp = env.do(t, http.MethodPost, "/listings/1/buy", "alice", BuyTokensRequest{RequestID: "req-1", Amount: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = env.do(t, http.MethodPost, "/listings/1/buy", "alice", BuyTokensRequest{RequestID: "req-1", Amount: 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "duplicate_request", errorCode(t, resp))
}

func TestPortfolioBadAssetParam(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodGet, "/holders/alice/portfolio?assets=1,notanumber", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", errorCode(t, resp))
}

func TestHealthCheck(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}
