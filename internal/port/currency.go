package port

import (
	"context"
	"errors"
)

// ErrInsufficientFunds is returned by Transfer when the source account does
// not hold the requested amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Currency moves settlement currency between principals. A Transfer either
// completes fully or fails with no side effects.
type Currency interface {
	Transfer(ctx context.Context, amount uint64, from, to string) error
}
