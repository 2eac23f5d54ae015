package usage

import (
	"context"
	"testing"
	"time"

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

const testStore = "main"

type usageFixture struct {
	store      *memory.Store
	resolver   *costing.Resolver
	reconciler *Reconciler
	projector  *Projector
}

// newUsageFixture seeds a bar scenario: a moscow mule menu item whose recipe
// consumes 2 oz of vodka and 1 lime per portion.
func newUsageFixture(t *testing.T) *usageFixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	for _, unit := range []domain.Unit{
		{ID: "oz", Name: "ounce", Kind: domain.KindVolume, ToBaseRatio: 1, System: domain.SystemUS},
		{ID: "ea", Name: "each", Kind: domain.KindCount, ToBaseRatio: 1, System: domain.SystemUS},
	} {
		u := unit
		require.NoError(t, store.CreateUnit(ctx, &u))
	}

	require.NoError(t, store.CreateItem(ctx, &domain.InventoryItem{
		ID: "vodka", Name: "vodka", UnitID: "oz", CaseSize: 1,
		LastCost: decimal.RequireFromString("0.50"), YieldPercent: 100,
	}))
	require.NoError(t, store.CreateItem(ctx, &domain.InventoryItem{
		ID: "lime", Name: "lime", UnitID: "ea", CaseSize: 1,
		LastCost: decimal.RequireFromString("0.25"), YieldPercent: 100,
	}))

	require.NoError(t, store.CreateRecipe(ctx, &domain.Recipe{
		ID: "mule", Name: "moscow mule", YieldQty: 1, YieldUnitID: "ea", CanBeIngredient: false,
	}))
	require.NoError(t, store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "mule-vodka", RecipeID: "mule", ComponentType: domain.ComponentInventoryItem,
		ComponentID: "vodka", Qty: 2, UnitID: "oz", SortOrder: 0,
	}))
	require.NoError(t, store.AddComponent(ctx, &domain.RecipeComponent{
		ID: "mule-lime", RecipeID: "mule", ComponentType: domain.ComponentInventoryItem,
		ComponentID: "lime", Qty: 1, UnitID: "ea", SortOrder: 1,
	}))

	recipeID := "mule"
	require.NoError(t, store.CreateMenuItem(ctx, &domain.MenuItem{
		ID: "menu-mule", Name: "Moscow Mule", RecipeID: &recipeID,
		Price: decimal.RequireFromString("12.00"),
	}))

	registry := units.NewRegistry(store)
	resolver := costing.NewResolver(store, store, registry, cache.NewNoopCostCache(), zerolog.Nop())

	return &usageFixture{
		store:      store,
		resolver:   resolver,
		reconciler: NewReconciler(store, store, store, store, store, store, resolver, registry, zerolog.Nop()),
		projector:  NewProjector(store, store, store, store, store, store, store, store, resolver, registry, zerolog.Nop()),
	}
}

func (f *usageFixture) addCount(t *testing.T, countID string, countedAt time.Time, qtys map[string]float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.CreateCount(ctx, &domain.InventoryCount{
		ID: countID, LocationID: testStore, CountedAt: countedAt,
	}))
	for itemID, qty := range qtys {
		require.NoError(t, f.store.CreateCountLine(ctx, &domain.InventoryCountLine{
			ID: countID + "-" + itemID, CountID: countID, ItemID: itemID,
			Qty: qty, UnitID: "oz", DerivedBaseUnits: qty,
		}))
	}
}

func (f *usageFixture) addReceipt(t *testing.T, itemID string, qty float64, receivedAt time.Time) {
	t.Helper()
	require.NoError(t, f.store.CreateReceiptLine(context.Background(), &domain.ReceiptLine{
		ID: "rcpt-" + itemID + receivedAt.Format("020106150405"), ReceiptID: "rcpt",
		ItemID: itemID, LocationID: testStore, Qty: qty, UnitID: "oz",
		DerivedBaseUnits: qty, ReceivedAt: receivedAt,
	}))
}

func (f *usageFixture) addSale(t *testing.T, saleID string, soldAt time.Time, qty float64) {
	t.Helper()
	require.NoError(t, f.store.CreateSale(context.Background(),
		&domain.Sale{ID: saleID, StoreID: testStore, SoldAt: soldAt},
		[]*domain.SaleLine{
			{ID: saleID + "-1", SaleID: saleID, MenuItemID: "menu-mule", Qty: qty},
		},
	))
}

func TestTheoreticalUsage(t *testing.T) {
	f := newUsageFixture(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	f.addSale(t, "sale-1", start.Add(72*time.Hour), 20)
	f.addSale(t, "sale-2", start.Add(96*time.Hour), 15)
	// Outside the window, must not count.
	f.addSale(t, "sale-3", end.Add(24*time.Hour), 100)

	usage, err := f.reconciler.TheoreticalUsage(ctx, testStore, start, end)
	require.NoError(t, err)

	assert.InDelta(t, 70.0, usage["vodka"], 1e-9)
	assert.InDelta(t, 35.0, usage["lime"], 1e-9)
}

func TestActualUsage(t *testing.T) {
	f := newUsageFixture(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	f.addCount(t, "count-1", start.Add(22*time.Hour), map[string]float64{"vodka": 100})
	f.addReceipt(t, "vodka", 40, start.Add(48*time.Hour))
	f.addCount(t, "count-2", end.Add(-2*time.Hour), map[string]float64{"vodka": 60})

	actual, err := f.reconciler.ActualUsage(ctx, testStore, start, end)
	require.NoError(t, err)

	// 100 counted + 40 received - 60 counted.
	assert.InDelta(t, 80.0, actual["vodka"], 1e-9)
}

func TestActualUsageReceiptAtCountInstants(t *testing.T) {
	f := newUsageFixture(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	firstAt := start.Add(22 * time.Hour)
	lastAt := end.Add(-2 * time.Hour)

	f.addCount(t, "count-1", firstAt, map[string]float64{"vodka": 100})
	// At the starting count's instant: already inside that snapshot, excluded.
	f.addReceipt(t, "vodka", 40, firstAt)
	f.addReceipt(t, "vodka", 20, start.Add(48*time.Hour))
	// At the ending count's instant: inside the ending snapshot, included.
	f.addReceipt(t, "vodka", 10, lastAt)
	f.addCount(t, "count-2", lastAt, map[string]float64{"vodka": 60})

	actual, err := f.reconciler.ActualUsage(ctx, testStore, start, end)
	require.NoError(t, err)

	// 100 counted + 30 received - 60 counted.
	assert.InDelta(t, 70.0, actual["vodka"], 1e-9)
}

func TestActualUsageNeedsTwoCounts(t *testing.T) {
	f := newUsageFixture(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	f.addCount(t, "count-1", start.Add(22*time.Hour), map[string]float64{"vodka": 100})

	actual, err := f.reconciler.ActualUsage(ctx, testStore, start, end)
	require.NoError(t, err)
	assert.Empty(t, actual)
}

func TestActualUsageSkipsItemsMissingFromEndCount(t *testing.T) {
	f := newUsageFixture(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	f.addCount(t, "count-1", start.Add(22*time.Hour), map[string]float64{"vodka": 100, "lime": 50})
	f.addCount(t, "count-2", end.Add(-2*time.Hour), map[string]float64{"vodka": 60})

	actual, err := f.reconciler.ActualUsage(ctx, testStore, start, end)
	require.NoError(t, err)

	assert.Contains(t, actual, "vodka")
	assert.NotContains(t, actual, "lime")
}

func TestVariance(t *testing.T) {
	f := newUsageFixture(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	f.addCount(t, "count-1", start.Add(22*time.Hour), map[string]float64{"vodka": 100})
	f.addReceipt(t, "vodka", 40, start.Add(48*time.Hour))
	f.addCount(t, "count-2", end.Add(-2*time.Hour), map[string]float64{"vodka": 60})
	f.addSale(t, "sale-1", start.Add(72*time.Hour), 35)

	variance, err := f.reconciler.Variance(ctx, "vodka", testStore, start, end)
	require.NoError(t, err)

	// Actual 80 against theoretical 70: 10 oz unexplained.
	assert.InDelta(t, 70.0, variance.TheoreticalQty, 1e-9)
	assert.InDelta(t, 80.0, variance.ActualQty, 1e-9)
	assert.InDelta(t, 10.0, variance.VarianceQty, 1e-9)
	assert.InDelta(t, 14.2857, variance.VariancePercent, 1e-3)
	assert.True(t, variance.VarianceCost.Equal(decimal.RequireFromString("5")), "got %s", variance.VarianceCost)
}

func TestVariancePercentZeroWhenNoTheoretical(t *testing.T) {
	f := newUsageFixture(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	f.addCount(t, "count-1", start.Add(22*time.Hour), map[string]float64{"vodka": 100})
	f.addCount(t, "count-2", end.Add(-2*time.Hour), map[string]float64{"vodka": 90})

	variance, err := f.reconciler.Variance(ctx, "vodka", testStore, start, end)
	require.NoError(t, err)

	assert.Zero(t, variance.TheoreticalQty)
	assert.InDelta(t, 10.0, variance.VarianceQty, 1e-9)
	assert.Zero(t, variance.VariancePercent)
}

func TestVarianceReportSortedByCost(t *testing.T) {
	f := newUsageFixture(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	f.addCount(t, "count-1", start.Add(22*time.Hour), map[string]float64{"vodka": 100, "lime": 50})
	f.addReceipt(t, "vodka", 40, start.Add(48*time.Hour))
	f.addCount(t, "count-2", end.Add(-2*time.Hour), map[string]float64{"vodka": 60, "lime": 49})
	f.addSale(t, "sale-1", start.Add(72*time.Hour), 35)

	report, err := f.reconciler.VarianceReport(ctx, testStore, start, end)
	require.NoError(t, err)
	require.Len(t, report, 2)

	// Lime: actual 1 against theoretical 35, cost -8.50. Vodka: cost 5.00.
	assert.Equal(t, "lime", report[0].ItemID)
	assert.Equal(t, "vodka", report[1].ItemID)
	assert.True(t, report[0].VarianceCost.Equal(decimal.RequireFromString("-8.5")), "got %s", report[0].VarianceCost)
}
