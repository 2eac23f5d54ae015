// internal/cache/cost_cache.go
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/platewise/costing/internal/config"
)

const (
	recipeCostKeyPrefix   = "recipe_cost"
	recipeCostScanBatches = 100
)

// CostCache holds resolved recipe costs. It is an optimization only: the
// resolver always recomputes from source data, so a miss or a failed write is
// never an error for the caller.
type CostCache interface {
	GetCost(ctx context.Context, recipeID string) (decimal.Decimal, bool, error)
	SetCost(ctx context.Context, recipeID string, cost decimal.Decimal) error
	InvalidateCost(ctx context.Context, recipeID string) error
	InvalidateAll(ctx context.Context) error
}

type redisCostCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopCostCache struct{}

func NewCostCache(cfg config.CacheConfig) (CostCache, error) {
	if !cfg.Enabled {
		return &noopCostCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisCostCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopCostCache() CostCache {
	return &noopCostCache{}
}

func (c *redisCostCache) GetCost(ctx context.Context, recipeID string) (decimal.Decimal, bool, error) {
	payload, err := c.client.Get(ctx, buildRecipeCostKey(recipeID)).Result()
	if err == redis.Nil {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("redis get failed: %w", err)
	}

	cost, err := decimal.NewFromString(payload)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("decode recipe cost cache: %w", err)
	}

	return cost, true, nil
}

func (c *redisCostCache) SetCost(ctx context.Context, recipeID string, cost decimal.Decimal) error {
	if err := c.client.Set(ctx, buildRecipeCostKey(recipeID), cost.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisCostCache) InvalidateCost(ctx context.Context, recipeID string) error {
	return c.client.Del(ctx, buildRecipeCostKey(recipeID)).Err()
}

func (c *redisCostCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, recipeCostKeyPrefix, recipeCostScanBatches)
}

func (n *noopCostCache) GetCost(ctx context.Context, recipeID string) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}

func (n *noopCostCache) SetCost(ctx context.Context, recipeID string, cost decimal.Decimal) error {
	return nil
}

func (n *noopCostCache) InvalidateCost(ctx context.Context, recipeID string) error {
	return nil
}

func (n *noopCostCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildRecipeCostKey(recipeID string) string {
	return fmt.Sprintf("%s:%s", recipeCostKeyPrefix, recipeID)
}
