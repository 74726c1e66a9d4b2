package port

import "context"

// Cache provides request deduplication for settlement calls.
type Cache interface {
	// SetIdempotency sets a key for idempotency check, returns false if it
	// already exists.
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
