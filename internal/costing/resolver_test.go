package costing

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/costing/internal/cache"
	"github.com/platewise/costing/internal/domain"
	"github.com/platewise/costing/internal/repository/memory"
	"github.com/platewise/costing/internal/units"
)

type resolverFixture struct {
	store    *memory.Store
	resolver *Resolver
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	for _, unit := range []domain.Unit{
		{ID: "g", Name: "gram", Kind: domain.KindMass, ToBaseRatio: 1, System: domain.SystemMetric},
		{ID: "kg", Name: "kilogram", Kind: domain.KindMass, ToBaseRatio: 1000, System: domain.SystemMetric},
		{ID: "ea", Name: "each", Kind: domain.KindCount, ToBaseRatio: 1, System: domain.SystemUS},
	} {
		u := unit
		require.NoError(t, store.CreateUnit(ctx, &u))
	}

	registry := units.NewRegistry(store)
	return &resolverFixture{
		store:    store,
		resolver: NewResolver(store, store, registry, cache.NewNoopCostCache(), zerolog.Nop()),
	}
}

func (f *resolverFixture) addItem(t *testing.T, id string, costPerBase string, yieldPercent float64) {
	t.Helper()
	require.NoError(t, f.store.CreateItem(context.Background(), &domain.InventoryItem{
		ID:           id,
		Name:         id,
		UnitID:       "g",
		CaseSize:     1,
		LastCost:     decimal.RequireFromString(costPerBase),
		YieldPercent: yieldPercent,
	}))
}

func (f *resolverFixture) addRecipe(t *testing.T, id string, yieldQty float64, yieldUnitID string, wastePercent float64, components ...domain.RecipeComponent) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.CreateRecipe(ctx, &domain.Recipe{
		ID:              id,
		Name:            id,
		YieldQty:        yieldQty,
		YieldUnitID:     yieldUnitID,
		WastePercent:    wastePercent,
		CanBeIngredient: true,
	}))
	for i := range components {
		component := components[i]
		component.ID = id + "-c" + string(rune('a'+i))
		component.RecipeID = id
		component.SortOrder = i
		require.NoError(t, f.store.AddComponent(ctx, &component))
	}
}

func TestResolveRecipeCostAdditive(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	f.addItem(t, "butter", "0.02", 100)
	f.addItem(t, "flour", "0.001", 100)
	f.addRecipe(t, "dough", 1500, "g", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "butter", Qty: 500, UnitID: "g"},
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "flour", Qty: 1, UnitID: "kg"},
	)

	cost, err := f.resolver.ResolveRecipeCost(ctx, "dough")
	require.NoError(t, err)

	// 500g * 0.02 + 1000g * 0.001 = 10 + 1 = 11
	assert.True(t, cost.Equal(decimal.RequireFromString("11")), "got %s", cost)
}

func TestResolveRecipeCostAppliesWaste(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	f.addItem(t, "butter", "0.02", 100)
	f.addRecipe(t, "clarified", 400, "g", 10,
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "butter", Qty: 500, UnitID: "g"},
	)

	cost, err := f.resolver.ResolveRecipeCost(ctx, "clarified")
	require.NoError(t, err)

	// 10.00 ingredient cost * 1.10 waste multiplier
	assert.True(t, cost.Equal(decimal.RequireFromString("11")), "got %s", cost)
}

func TestResolveRecipeCostYieldLoss(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	// 50% yield doubles the effective per-gram cost.
	f.addItem(t, "onion", "0.005", 50)
	f.addRecipe(t, "soup", 1000, "g", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "onion", Qty: 200, UnitID: "g"},
	)

	cost, err := f.resolver.ResolveRecipeCost(ctx, "soup")
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.RequireFromString("2")), "got %s", cost)
}

func TestResolveRecipeCostNestedRecipe(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	// Stock costs 1.00 for a 1000g yield, so 0.001 per gram.
	f.addItem(t, "bones", "0.002", 100)
	f.addRecipe(t, "stock", 1, "kg", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "bones", Qty: 500, UnitID: "g"},
	)
	f.addRecipe(t, "sauce", 300, "g", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentRecipe, ComponentID: "stock", Qty: 250, UnitID: "g"},
	)

	cost, err := f.resolver.ResolveRecipeCost(ctx, "sauce")
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.RequireFromString("0.25")), "got %s", cost)
}

func TestResolveRecipeCostZeroYieldSubRecipe(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	f.addItem(t, "bones", "0.002", 100)
	f.addRecipe(t, "broken", 0, "g", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "bones", Qty: 100, UnitID: "g"},
	)
	f.addRecipe(t, "parent", 500, "g", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentRecipe, ComponentID: "broken", Qty: 100, UnitID: "g"},
	)

	cost, err := f.resolver.ResolveRecipeCost(ctx, "parent")
	require.NoError(t, err)
	assert.True(t, cost.IsZero(), "got %s", cost)
}

func TestResolveRecipeCostCycle(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	f.addRecipe(t, "a", 100, "g", 0)
	f.addRecipe(t, "b", 100, "g", 0)
	require.NoError(t, f.store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "a-b", RecipeID: "a", ComponentType: domain.ComponentRecipe, ComponentID: "b", Qty: 50, UnitID: "g",
	}))
	require.NoError(t, f.store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "b-a", RecipeID: "b", ComponentType: domain.ComponentRecipe, ComponentID: "a", Qty: 50, UnitID: "g",
	}))

	_, err := f.resolver.ResolveRecipeCost(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrCyclicRecipe)

	// A recipe may appear on multiple branches without being a cycle.
	f.addItem(t, "bones", "0.002", 100)
	f.addRecipe(t, "stock", 1000, "g", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "bones", Qty: 500, UnitID: "g"},
	)
	f.addRecipe(t, "diamond", 1000, "g", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentRecipe, ComponentID: "stock", Qty: 100, UnitID: "g"},
		domain.RecipeComponent{ComponentType: domain.ComponentRecipe, ComponentID: "stock", Qty: 100, UnitID: "g"},
	)
	_, err = f.resolver.ResolveRecipeCost(ctx, "diamond")
	assert.NoError(t, err)
}

func TestUnknownComponentTypeRejectedEverywhere(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	f.addItem(t, "flour", "0.001", 100)
	f.addRecipe(t, "dough", 1000, "g", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "flour", Qty: 500, UnitID: "g"},
		domain.RecipeComponent{ComponentType: "garnish", ComponentID: "flour", Qty: 10, UnitID: "g"},
	)

	// Every traversal rejects the row the same way instead of some of them
	// silently skipping it.
	_, err := f.resolver.ResolveRecipeCost(ctx, "dough")
	assert.ErrorContains(t, err, "unknown component type")

	_, err = f.resolver.ResolveComponentImpact(ctx, "dough", "flour")
	assert.ErrorContains(t, err, "unknown component type")

	_, err = f.resolver.ExpandIngredients(ctx, "dough", 500)
	assert.ErrorContains(t, err, "unknown component type")
}

func TestResolveRecipeCostWritesThrough(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	f.addItem(t, "flour", "0.001", 100)
	f.addRecipe(t, "dough", 1000, "g", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "flour", Qty: 1, UnitID: "kg"},
	)

	cost, err := f.resolver.ResolveRecipeCost(ctx, "dough")
	require.NoError(t, err)

	recipe, err := f.store.GetRecipe(ctx, "dough")
	require.NoError(t, err)
	require.NotNil(t, recipe.ComputedCost)
	assert.True(t, recipe.ComputedCost.Equal(cost))
}

func TestResolveComponentImpact(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	f.addItem(t, "tomato", "0.004", 100)
	f.addItem(t, "salt", "0.0001", 100)
	f.addRecipe(t, "passata", 1, "kg", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "tomato", Qty: 1200, UnitID: "g"},
	)
	// Uses tomato both directly and through the passata.
	f.addRecipe(t, "marinara", 500, "g", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "tomato", Qty: 100, UnitID: "g"},
		domain.RecipeComponent{ComponentType: domain.ComponentRecipe, ComponentID: "passata", Qty: 250, UnitID: "g"},
	)

	impact, err := f.resolver.ResolveComponentImpact(ctx, "marinara", "tomato")
	require.NoError(t, err)

	// Direct 100g plus 1200g scaled by 250/1000 of the passata yield.
	assert.True(t, impact.UsesItem)
	assert.InDelta(t, 400.0, impact.BaseQtyConsumed, 1e-9)
	assert.True(t, impact.CostContribution.Equal(decimal.RequireFromString("1.6")), "got %s", impact.CostContribution)

	impact, err = f.resolver.ResolveComponentImpact(ctx, "marinara", "salt")
	require.NoError(t, err)
	assert.False(t, impact.UsesItem)
	assert.Zero(t, impact.BaseQtyConsumed)
}

func TestExpandIngredients(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	f.addItem(t, "tomato", "0.004", 100)
	f.addItem(t, "basil", "0.05", 100)
	f.addRecipe(t, "passata", 1000, "g", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "tomato", Qty: 1200, UnitID: "g"},
	)
	f.addRecipe(t, "marinara", 1000, "g", 0,
		domain.RecipeComponent{ComponentType: domain.ComponentRecipe, ComponentID: "passata", Qty: 800, UnitID: "g"},
		domain.RecipeComponent{ComponentType: domain.ComponentInventoryItem, ComponentID: "basil", Qty: 20, UnitID: "g"},
	)

	// Half a yield of marinara.
	usage, err := f.resolver.ExpandIngredients(ctx, "marinara", 500)
	require.NoError(t, err)

	assert.Len(t, usage, 2)
	assert.InDelta(t, 480.0, usage["tomato"], 1e-9) // 1200 * (800/1000) * 0.5
	assert.InDelta(t, 10.0, usage["basil"], 1e-9)
}
