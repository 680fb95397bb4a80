package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mpcredit/financing-engine/internal/domain"
)

// setIfNewer writes the contract only when the cached copy is missing or has a
// lower version. KEYS[1] = key, ARGV = version, payload, ttl in ms.
var setIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

type redisContractCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisContractCache caches contracts under "contract:<id>" as a hash of
// version and JSON payload.
func NewRedisContractCache(client *redis.Client, ttl time.Duration) ContractCache {
	return &redisContractCache{client: client, ttl: ttl}
}

func contractCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("contract:%s", id)
}

func (c *redisContractCache) Get(ctx context.Context, id uuid.UUID) (*domain.FinancingContract, bool, error) {
	vals, err := c.client.HMGet(ctx, contractCacheKey(id), "version", "data").Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	version, okVersion := vals[0].(string)
	data, okData := vals[1].(string)
	if !okVersion || !okData {
		return nil, false, nil
	}

	var contract domain.FinancingContract
	if err := json.Unmarshal([]byte(data), &contract); err != nil {
		return nil, false, err
	}
	if contract.Version, err = strconv.Atoi(version); err != nil {
		return nil, false, err
	}

	return &contract, true, nil
}

func (c *redisContractCache) Set(ctx context.Context, contract *domain.FinancingContract) error {
	payload, err := json.Marshal(contract)
	if err != nil {
		return err
	}

	keys := []string{contractCacheKey(contract.ID)}
	return setIfNewer.Run(ctx, c.client, keys, contract.Version, payload, c.ttl.Milliseconds()).Err()
}

func (c *redisContractCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, contractCacheKey(id)).Err()
}

// NoopContractCache never hits; used when Redis is not configured.
type NoopContractCache struct{}

func (NoopContractCache) Get(context.Context, uuid.UUID) (*domain.FinancingContract, bool, error) {
	return nil, false, nil
}

func (NoopContractCache) Set(context.Context, *domain.FinancingContract) error { return nil }

func (NoopContractCache) Invalidate(context.Context, uuid.UUID) error { return nil }
