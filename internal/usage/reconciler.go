// internal/usage/reconciler.go

// Package usage reconciles physical inventory counts against receipts, waste,
// transfers, and recipe-driven consumption, and projects on-hand estimates.
package usage

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/platewise/costing/internal/costing"
	"github.com/platewise/costing/internal/domain"
	"github.com/platewise/costing/internal/repository"
	"github.com/platewise/costing/internal/units"
)

// Reconciler derives theoretical usage from recorded sales and actual usage
// from bracketing counts, and computes variance between the two.
type Reconciler struct {
	sales    repository.SaleStore
	menu     repository.MenuStore
	recipes  repository.RecipeStore
	counts   repository.CountStore
	receipts repository.ReceiptStore
	items    repository.ItemStore
	resolver *costing.Resolver
	units    *units.Registry
	log      zerolog.Logger
}

func NewReconciler(
	sales repository.SaleStore,
	menu repository.MenuStore,
	recipes repository.RecipeStore,
	counts repository.CountStore,
	receipts repository.ReceiptStore,
	items repository.ItemStore,
	resolver *costing.Resolver,
	registry *units.Registry,
	log zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		sales:    sales,
		menu:     menu,
		recipes:  recipes,
		counts:   counts,
		receipts: receipts,
		items:    items,
		resolver: resolver,
		units:    registry,
		log:      log,
	}
}

// TheoreticalUsage expands every sale in range through its menu item's recipe
// into base-unit consumption per ingredient. Menu items without a recipe
// contribute nothing.
func (r *Reconciler) TheoreticalUsage(ctx context.Context, storeID string, start, end time.Time) (map[string]float64, error) {
	soldByRecipe, err := r.soldQtyByRecipe(ctx, storeID, start, end)
	if err != nil {
		return nil, err
	}

	total := make(map[string]float64)
	for recipeID, soldQty := range soldByRecipe {
		recipe, err := r.recipes.GetRecipe(ctx, recipeID)
		if err != nil {
			return nil, err
		}
		yieldBase, err := r.units.ConvertToBase(ctx, recipe.YieldQty, recipe.YieldUnitID)
		if err != nil {
			return nil, err
		}
		consumed, err := r.resolver.ExpandIngredients(ctx, recipeID, yieldBase*soldQty)
		if err != nil {
			return nil, err
		}
		for itemID, baseQty := range consumed {
			total[itemID] += baseQty
		}
	}

	return total, nil
}

// soldQtyByRecipe aggregates quantity sold per recipe so each recipe graph is
// expanded once, not once per ticket.
func (r *Reconciler) soldQtyByRecipe(ctx context.Context, storeID string, start, end time.Time) (map[string]float64, error) {
	sales, err := r.sales.SalesInRange(ctx, storeID, start, end)
	if err != nil {
		return nil, err
	}

	sold := make(map[string]float64)
	for _, sale := range sales {
		lines, err := r.sales.ListSaleLines(ctx, sale.ID)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			menuItem, err := r.menu.GetMenuItem(ctx, line.MenuItemID)
			if err != nil {
				return nil, err
			}
			if menuItem.RecipeID == nil {
				continue
			}
			sold[*menuItem.RecipeID] += line.Qty
		}
	}

	return sold, nil
}

// ActualUsage brackets the period with the earliest and latest counts in range
// and computes, per item, starting on-hand plus receipts minus ending on-hand.
// Receipts count over the window (startCount, endCount]: a receipt at the
// starting count's instant is already inside that snapshot, while one at the
// ending count's instant is inside the ending snapshot and must be added so
// the two cancel. Fewer than two counts in range yields an empty result, not
// an error: variance cannot be computed without two anchor points. Items
// missing from either bracketing count are skipped rather than assumed zero.
func (r *Reconciler) ActualUsage(ctx context.Context, storeID string, start, end time.Time) (map[string]float64, error) {
	counts, err := r.counts.CountsInRange(ctx, storeID, start, end)
	if err != nil {
		return nil, err
	}
	if len(counts) < 2 {
		return map[string]float64{}, nil
	}

	first := counts[0]
	last := counts[len(counts)-1]

	startLines, err := r.counts.ListCountLines(ctx, first.ID)
	if err != nil {
		return nil, err
	}
	endLines, err := r.counts.ListCountLines(ctx, last.ID)
	if err != nil {
		return nil, err
	}

	endingByItem := make(map[string]float64, len(endLines))
	for _, line := range endLines {
		endingByItem[line.ItemID] += line.DerivedBaseUnits
	}

	actual := make(map[string]float64)
	for _, line := range startLines {
		ending, counted := endingByItem[line.ItemID]
		if !counted {
			continue
		}

		received := 0.0
		receipts, err := r.receipts.ReceiptsForItem(ctx, line.ItemID, storeID, first.CountedAt, last.CountedAt)
		if err != nil {
			return nil, err
		}
		for _, receipt := range receipts {
			if !receipt.ReceivedAt.After(first.CountedAt) {
				continue
			}
			received += receipt.DerivedBaseUnits
		}

		actual[line.ItemID] = line.DerivedBaseUnits + received - ending
	}

	return actual, nil
}

// Variance compares actual against theoretical usage for one item. Variance
// cost uses the item's current last cost; variance percent is zero, not NaN,
// when theoretical usage is zero.
func (r *Reconciler) Variance(ctx context.Context, itemID, storeID string, start, end time.Time) (*domain.ItemVariance, error) {
	theoretical, err := r.TheoreticalUsage(ctx, storeID, start, end)
	if err != nil {
		return nil, err
	}
	actual, err := r.ActualUsage(ctx, storeID, start, end)
	if err != nil {
		return nil, err
	}

	item, err := r.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	return buildVariance(item, theoretical[itemID], actual[itemID]), nil
}

// VarianceReport computes variance for every item with nonzero actual or
// theoretical usage in the period, sorted by absolute variance cost descending.
func (r *Reconciler) VarianceReport(ctx context.Context, storeID string, start, end time.Time) ([]*domain.ItemVariance, error) {
	theoretical, err := r.TheoreticalUsage(ctx, storeID, start, end)
	if err != nil {
		return nil, err
	}
	actual, err := r.ActualUsage(ctx, storeID, start, end)
	if err != nil {
		return nil, err
	}

	itemIDs := make(map[string]struct{})
	for id := range theoretical {
		itemIDs[id] = struct{}{}
	}
	for id := range actual {
		itemIDs[id] = struct{}{}
	}

	report := make([]*domain.ItemVariance, 0, len(itemIDs))
	for id := range itemIDs {
		item, err := r.items.GetItem(ctx, id)
		if err != nil {
			return nil, err
		}
		report = append(report, buildVariance(item, theoretical[id], actual[id]))
	}

	sort.Slice(report, func(i, j int) bool {
		a := report[i].VarianceCost.Abs()
		b := report[j].VarianceCost.Abs()
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return report[i].ItemID < report[j].ItemID
	})

	return report, nil
}

func buildVariance(item *domain.InventoryItem, theoretical, actual float64) *domain.ItemVariance {
	variance := actual - theoretical

	percent := 0.0
	if theoretical > 0 {
		percent = variance / theoretical * 100
	}

	return &domain.ItemVariance{
		ItemID:          item.ID,
		TheoreticalQty:  theoretical,
		ActualQty:       actual,
		VarianceQty:     variance,
		VarianceCost:    decimal.NewFromFloat(variance).Mul(item.LastCost),
		VariancePercent: percent,
	}
}
