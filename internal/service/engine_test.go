package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/costing/internal/domain"
	"github.com/platewise/costing/internal/repository/memory"
)

// recordingCache backs the cost cache with a map and captures invalidations so
// both the read path and the cascade can be asserted.
type recordingCache struct {
	mu          sync.Mutex
	stored      map[string]decimal.Decimal
	invalidated []string
}

func (c *recordingCache) GetCost(ctx context.Context, recipeID string) (decimal.Decimal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cost, ok := c.stored[recipeID]
	return cost, ok, nil
}

func (c *recordingCache) SetCost(ctx context.Context, recipeID string, cost decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stored == nil {
		c.stored = make(map[string]decimal.Decimal)
	}
	c.stored[recipeID] = cost
	return nil
}

func (c *recordingCache) InvalidateCost(ctx context.Context, recipeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, recipeID)
	return nil
}

func (c *recordingCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func TestRecipeCostServesFromCacheBeforeResolving(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreateUnit(ctx, &domain.Unit{
		ID: "g", Name: "gram", Kind: domain.KindMass, ToBaseRatio: 1, System: domain.SystemMetric,
	}))
	require.NoError(t, store.CreateItem(ctx, &domain.InventoryItem{
		ID: "flour", Name: "flour", UnitID: "g", CaseSize: 1,
		LastCost: decimal.RequireFromString("0.002"), YieldPercent: 100,
	}))
	require.NoError(t, store.CreateRecipe(ctx, &domain.Recipe{
		ID: "dough", Name: "dough", YieldQty: 1000, YieldUnitID: "g", CanBeIngredient: true,
	}))
	require.NoError(t, store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "c1", RecipeID: "dough", ComponentType: domain.ComponentInventoryItem,
		ComponentID: "flour", Qty: 500, UnitID: "g",
	}))

	costs := &recordingCache{stored: map[string]decimal.Decimal{
		// Only in the cache, never in the store: a hit must short-circuit
		// resolution entirely.
		"phantom": decimal.RequireFromString("9.99"),
	}}
	engine := NewEngine(store, costs, zerolog.Nop())

	cost, err := engine.RecipeCost(ctx, "phantom")
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.RequireFromString("9.99")), "got %s", cost)

	// A miss resolves from source data and warms the cache.
	cost, err = engine.RecipeCost(ctx, "dough")
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.RequireFromString("1")), "got %s", cost)

	cached, ok, err := costs.GetCost(ctx, "dough")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cached.Equal(decimal.RequireFromString("1")), "got %s", cached)
}

func TestInvalidateRecipeCostCascades(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreateUnit(ctx, &domain.Unit{
		ID: "g", Name: "gram", Kind: domain.KindMass, ToBaseRatio: 1, System: domain.SystemMetric,
	}))

	// stock is used by sauce, sauce by lasagna; pizza stands apart.
	for _, id := range []string{"stock", "sauce", "lasagna", "pizza"} {
		require.NoError(t, store.CreateRecipe(ctx, &domain.Recipe{
			ID: id, Name: id, YieldQty: 1000, YieldUnitID: "g", CanBeIngredient: true,
		}))
	}
	require.NoError(t, store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "c1", RecipeID: "sauce", ComponentType: domain.ComponentRecipe,
		ComponentID: "stock", Qty: 200, UnitID: "g",
	}))
	require.NoError(t, store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "c2", RecipeID: "lasagna", ComponentType: domain.ComponentRecipe,
		ComponentID: "sauce", Qty: 300, UnitID: "g",
	}))

	costs := &recordingCache{}
	engine := NewEngine(store, costs, zerolog.Nop())

	require.NoError(t, engine.InvalidateRecipeCost(ctx, "stock"))

	assert.ElementsMatch(t, []string{"stock", "sauce", "lasagna"}, costs.invalidated)
	assert.NotContains(t, costs.invalidated, "pizza")
}

func TestInvalidateRecipeCostSurvivesCycles(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		require.NoError(t, store.CreateRecipe(ctx, &domain.Recipe{
			ID: id, Name: id, YieldQty: 100, YieldUnitID: "g", CanBeIngredient: true,
		}))
	}
	require.NoError(t, store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "c1", RecipeID: "a", ComponentType: domain.ComponentRecipe, ComponentID: "b", Qty: 10, UnitID: "g",
	}))
	require.NoError(t, store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "c2", RecipeID: "b", ComponentType: domain.ComponentRecipe, ComponentID: "a", Qty: 10, UnitID: "g",
	}))

	costs := &recordingCache{}
	engine := NewEngine(store, costs, zerolog.Nop())

	// The visited set terminates the walk even on a cyclic graph.
	require.NoError(t, engine.InvalidateRecipeCost(ctx, "a"))
	assert.ElementsMatch(t, []string{"a", "b"}, costs.invalidated)
}
