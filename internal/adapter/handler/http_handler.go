package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rl1809/asset-ledger/internal/core/service"
	"github.com/rl1809/asset-ledger/internal/port"
)

// principalHeader carries the caller identity. Authentication itself is the
// deployment's concern; the ledger only needs the resolved principal.
const principalHeader = "X-Principal"

type HTTPHandler struct {
	ledger *service.Ledger
}

func NewHTTPHandler(ledger *service.Ledger) *HTTPHandler {
	return &HTTPHandler{ledger: ledger}
}

// Router mounts the full query and mutation surface.
func (h *HTTPHandler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)

	r.Route("/assets", func(r chi.Router) {
		r.Post("/", h.CreateAsset)
		r.Get("/{id}", h.GetAsset)
		r.Post("/{id}/verify", h.VerifyAsset)
		r.Get("/{id}/balances/{holder}", h.GetTokenBalance)
	})

	r.Post("/verifiers", h.AddVerifier)

	r.Route("/listings", func(r chi.Router) {
		r.Post("/", h.CreateListing)
		r.Get("/{id}", h.GetListing)
		r.Post("/{id}/buy", h.BuyTokens)
	})

	r.Get("/holders/{holder}/portfolio", h.Portfolio)

	return r
}

type CreateAssetRequest struct {
	TotalSupply     uint64 `json:"total_supply"`
	PropertyAddress string `json:"property_address"`
	PropertyType    string `json:"property_type"`
	Valuation       uint64 `json:"valuation"`
}

type CreateAssetResponse struct {
	AssetID uint64 `json:"asset_id"`
}

func (h *HTTPHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	assetID, err := h.ledger.CreateAsset(r.Context(), caller, req.TotalSupply, req.PropertyAddress, req.PropertyType, req.Valuation)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateAssetResponse{AssetID: assetID})
}

func (h *HTTPHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	assetID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	asset, err := h.ledger.Asset(r.Context(), assetID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if asset == nil {
		writeError(w, http.StatusNotFound, "asset_not_found", "asset not found")
		return
	}

	writeJSON(w, http.StatusOK, asset)
}

func (h *HTTPHandler) VerifyAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.principal(w, r)
	if !ok {
		return
	}
	assetID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := h.ledger.VerifyAsset(r.Context(), caller, assetID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

type TokenBalanceResponse struct {
	AssetID uint64 `json:"asset_id"`
	Holder  string `json:"holder"`
	Balance uint64 `json:"balance"`
}

func (h *HTTPHandler) GetTokenBalance(w http.ResponseWriter, r *http.Request) {
	assetID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	holder := chi.URLParam(r, "holder")

	balance, err := h.ledger.TokenBalance(r.Context(), assetID, holder)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenBalanceResponse{
		AssetID: assetID,
		Holder:  holder,
		Balance: balance,
	})
}

type AddVerifierRequest struct {
	Principal string `json:"principal"`
}

func (h *HTTPHandler) AddVerifier(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req AddVerifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Principal == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "principal is required")
		return
	}

	if err := h.ledger.AddVerifier(r.Context(), caller, req.Principal); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"authorized": true})
}

type CreateListingRequest struct {
	AssetID       uint64 `json:"asset_id"`
	Amount        uint64 `json:"amount"`
	PricePerToken uint64 `json:"price_per_token"`
}

type CreateListingResponse struct {
	ListingID uint64 `json:"listing_id"`
}

func (h *HTTPHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	listingID, err := h.ledger.CreateListing(r.Context(), caller, req.AssetID, req.Amount, req.PricePerToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateListingResponse{ListingID: listingID})
}

func (h *HTTPHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	listingID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	listing, err := h.ledger.Listing(r.Context(), listingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if listing == nil {
		writeError(w, http.StatusNotFound, "listing_not_found", "listing not found")
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

type BuyTokensRequest struct {
	RequestID string `json:"request_id"`
	Amount    uint64 `json:"amount"`
}

type BuyTokensResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *HTTPHandler) BuyTokens(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.principal(w, r)
	if !ok {
		return
	}
	listingID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req BuyTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := h.ledger.BuyTokens(r.Context(), req.RequestID, caller, listingID, req.Amount); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BuyTokensResponse{
		Success: true,
		Message: "tokens purchased",
	})
}

func (h *HTTPHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	holder := chi.URLParam(r, "holder")

	var assetIDs []uint64
	if raw := r.URL.Query().Get("assets"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", "invalid asset id: "+part)
				return
			}
			assetIDs = append(assetIDs, id)
		}
	}

	summary, err := h.ledger.PortfolioValue(r.Context(), holder, assetIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) principal(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := r.Header.Get(principalHeader)
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "missing_principal", "X-Principal header is required")
		return "", false
	}
	return caller, true
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, param), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid "+param)
		return 0, false
	}
	return id, true
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeServiceError maps ledger errors to HTTP statuses and stable codes.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, service.ErrNotAuthorized):
		status, code = http.StatusForbidden, "not_authorized"
	case errors.Is(err, service.ErrAssetNotFound):
		status, code = http.StatusNotFound, "asset_not_found"
	case errors.Is(err, service.ErrInsufficientBalance):
		status, code = http.StatusConflict, "insufficient_balance"
	case errors.Is(err, service.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, service.ErrAssetNotVerified):
		status, code = http.StatusConflict, "asset_not_verified"
	case errors.Is(err, service.ErrAssetAlreadyExists):
		status, code = http.StatusConflict, "asset_already_exists"
	case errors.Is(err, service.ErrInvalidPrice):
		status, code = http.StatusBadRequest, "invalid_price"
	case errors.Is(err, service.ErrListingNotFound):
		status, code = http.StatusNotFound, "listing_not_found"
	case errors.Is(err, service.ErrCannotBuyOwnListing):
		status, code = http.StatusForbidden, "cannot_buy_own_listing"
	case errors.Is(err, service.ErrDuplicateRequest):
		status, code = http.StatusConflict, "duplicate_request"
	case errors.Is(err, port.ErrInsufficientFunds):
		status, code = http.StatusPaymentRequired, "insufficient_funds"
	}

	writeError(w, status, code, err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
