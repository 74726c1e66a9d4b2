package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/asset-ledger/internal/port"
)

const (
	fundsKeyPrefix    = "funds:"
	idempotencyKeyTTL = 24 * time.Hour
)

// transferScript moves settlement currency between two accounts in one atomic
// step: the debit and credit either both happen or neither does.
var transferScript = redis.NewScript(`
local from = KEYS[1]
local to = KEYS[2]
local amount = tonumber(ARGV[1])

local balance = tonumber(redis.call('GET', from) or '0')
if balance < amount then
	return 0
end

redis.call('DECRBY', from, amount)
redis.call('INCRBY', to, amount)
return 1
`)

// RedisAdapter implements the Currency and Cache ports: settlement-currency
// accounts under funds:<principal> keys, and SETNX idempotency markers.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Transfer(ctx context.Context, amount uint64, from, to string) error {
	keys := []string{fundsKeyPrefix + from, fundsKeyPrefix + to}

	result, err := transferScript.Run(ctx, r.client, keys, amount).Int()
	if err != nil {
		return err
	}
	if result != 1 {
		return port.ErrInsufficientFunds
	}
	return nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// SetFunds seeds a principal's settlement-currency account.
func (r *RedisAdapter) SetFunds(ctx context.Context, principal string, amount uint64) error {
	return r.client.Set(ctx, fundsKeyPrefix+principal, amount, 0).Err()
}

// Funds returns a principal's settlement-currency account value, 0 when the
// account does not exist.
func (r *RedisAdapter) Funds(ctx context.Context, principal string) (uint64, error) {
	value, err := r.client.Get(ctx, fundsKeyPrefix+principal).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}
