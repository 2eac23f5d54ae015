package recost

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/costing/internal/cache"
	"github.com/platewise/costing/internal/costing"
	"github.com/platewise/costing/internal/domain"
	"github.com/platewise/costing/internal/repository/memory"
	"github.com/platewise/costing/internal/units"
)

func TestRunSkipsCyclicRecipes(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreateUnit(ctx, &domain.Unit{
		ID: "g", Name: "gram", Kind: domain.KindMass, ToBaseRatio: 1, System: domain.SystemMetric,
	}))
	require.NoError(t, store.CreateItem(ctx, &domain.InventoryItem{
		ID: "flour", Name: "flour", UnitID: "g", CaseSize: 1,
		LastCost: decimal.RequireFromString("0.001"), YieldPercent: 100,
	}))

	for _, id := range []string{"dough", "bread", "loop-a", "loop-b"} {
		require.NoError(t, store.CreateRecipe(ctx, &domain.Recipe{
			ID: id, Name: id, YieldQty: 1000, YieldUnitID: "g", CanBeIngredient: true,
		}))
	}
	require.NoError(t, store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "c1", RecipeID: "dough", ComponentType: domain.ComponentInventoryItem,
		ComponentID: "flour", Qty: 600, UnitID: "g",
	}))
	require.NoError(t, store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "c2", RecipeID: "bread", ComponentType: domain.ComponentRecipe,
		ComponentID: "dough", Qty: 900, UnitID: "g",
	}))
	require.NoError(t, store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "c3", RecipeID: "loop-a", ComponentType: domain.ComponentRecipe,
		ComponentID: "loop-b", Qty: 100, UnitID: "g",
	}))
	require.NoError(t, store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "c4", RecipeID: "loop-b", ComponentType: domain.ComponentRecipe,
		ComponentID: "loop-a", Qty: 100, UnitID: "g",
	}))

	registry := units.NewRegistry(store)
	resolver := costing.NewResolver(store, store, registry, cache.NewNoopCostCache(), zerolog.Nop())
	runner := NewRunner(store, resolver, Config{WorkerCount: 4}, zerolog.Nop())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.Resolved)
	assert.ElementsMatch(t, []string{"loop-a", "loop-b"}, result.Cyclic)

	// The healthy recipes got their computed costs persisted.
	dough, err := store.GetRecipe(ctx, "dough")
	require.NoError(t, err)
	require.NotNil(t, dough.ComputedCost)
	assert.True(t, dough.ComputedCost.Equal(decimal.RequireFromString("0.6")), "got %s", dough.ComputedCost)
}

func TestRunDefaultsWorkerCount(t *testing.T) {
	store := memory.NewStore()
	registry := units.NewRegistry(store)
	resolver := costing.NewResolver(store, store, registry, cache.NewNoopCostCache(), zerolog.Nop())

	runner := NewRunner(store, resolver, Config{}, zerolog.Nop())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Total)
}
