package service

import "errors"

// Every rejected operation surfaces exactly one of these values. A rejection
// never leaves partial state behind.
var (
	ErrNotAuthorized       = errors.New("not authorized")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAssetNotVerified    = errors.New("asset not verified")
	ErrAssetAlreadyExists  = errors.New("asset already exists")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrListingNotFound     = errors.New("listing not found")
	ErrCannotBuyOwnListing = errors.New("cannot buy own listing")
	ErrDuplicateRequest    = errors.New("duplicate request")
)
