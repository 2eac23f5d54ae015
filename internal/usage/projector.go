// internal/usage/projector.go
package usage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/platewise/costing/internal/costing"
	"github.com/platewise/costing/internal/domain"
	"github.com/platewise/costing/internal/repository"
	"github.com/platewise/costing/internal/units"
)

// Projector estimates current on-hand for an item at a store from the last
// physical count plus all ledger and sales activity strictly after it.
type Projector struct {
	counts    repository.CountStore
	receipts  repository.ReceiptStore
	transfers repository.TransferStore
	wastes    repository.WasteStore
	sales     repository.SaleStore
	menu      repository.MenuStore
	recipes   repository.RecipeStore
	items     repository.ItemStore
	resolver  *costing.Resolver
	units     *units.Registry
	log       zerolog.Logger
	// now is swappable in tests.
	now func() time.Time
}

func NewProjector(
	counts repository.CountStore,
	receipts repository.ReceiptStore,
	transfers repository.TransferStore,
	wastes repository.WasteStore,
	sales repository.SaleStore,
	menu repository.MenuStore,
	recipes repository.RecipeStore,
	items repository.ItemStore,
	resolver *costing.Resolver,
	registry *units.Registry,
	log zerolog.Logger,
) *Projector {
	return &Projector{
		counts:    counts,
		receipts:  receipts,
		transfers: transfers,
		wastes:    wastes,
		sales:     sales,
		menu:      menu,
		recipes:   recipes,
		items:     items,
		resolver:  resolver,
		units:     registry,
		log:       log,
		now:       time.Now,
	}
}

// Estimate projects on-hand for the item at the store:
//
//	estimated = lastCount + received + transferredIn - waste - theoreticalUsage - transferredOut
//
// With no prior count there is no baseline to project from; the call fails
// with ErrNoBaseline instead of fabricating a zero starting point.
func (p *Projector) Estimate(ctx context.Context, itemID, storeID string) (*domain.OnHandEstimate, error) {
	estimate, _, err := p.project(ctx, itemID, storeID)
	return estimate, err
}

// EstimateDetail returns the estimate along with one row per contributing
// event (receipt, waste, transfer, sale usage) for audit display, ordered by
// occurrence time.
func (p *Projector) EstimateDetail(ctx context.Context, itemID, storeID string) (*domain.OnHandEstimate, []*domain.EstimateActivity, error) {
	estimate, activities, err := p.project(ctx, itemID, storeID)
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].OccurredAt.Before(activities[j].OccurredAt)
	})

	return estimate, activities, nil
}

func (p *Projector) project(ctx context.Context, itemID, storeID string) (*domain.OnHandEstimate, []*domain.EstimateActivity, error) {
	count, line, err := p.counts.LatestCountLine(ctx, itemID, storeID)
	if err != nil {
		return nil, nil, err
	}

	item, err := p.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}

	since := count.CountedAt
	until := p.now()

	estimate := &domain.OnHandEstimate{
		ItemID:       itemID,
		StoreID:      storeID,
		LastCountAt:  since,
		LastCountQty: line.DerivedBaseUnits,
	}
	var activities []*domain.EstimateActivity

	receipts, err := p.receipts.ReceiptsForItem(ctx, itemID, storeID, since, until)
	if err != nil {
		return nil, nil, err
	}
	for _, receipt := range receipts {
		if !receipt.ReceivedAt.After(since) {
			continue
		}
		estimate.ReceivedQty += receipt.DerivedBaseUnits
		activities = append(activities, &domain.EstimateActivity{
			Type:           domain.ActivityReceipt,
			ReferenceID:    receipt.ID,
			OccurredAt:     receipt.ReceivedAt,
			DeltaBaseUnits: receipt.DerivedBaseUnits,
		})
	}

	wastes, err := p.wastes.WastesForItem(ctx, itemID, storeID, since, until)
	if err != nil {
		return nil, nil, err
	}
	for _, waste := range wastes {
		if !waste.WastedAt.After(since) {
			continue
		}
		estimate.WasteQty += waste.DerivedBaseUnits
		activities = append(activities, &domain.EstimateActivity{
			Type:           domain.ActivityWaste,
			ReferenceID:    waste.ID,
			OccurredAt:     waste.WastedAt,
			DeltaBaseUnits: -waste.DerivedBaseUnits,
			Detail:         waste.ReasonCode,
		})
	}

	transfers, err := p.transfers.TransfersForItem(ctx, itemID, storeID, since, until)
	if err != nil {
		return nil, nil, err
	}
	for _, transfer := range transfers {
		if !transfer.TransferredAt.After(since) {
			continue
		}
		if transfer.FromLocationID == storeID {
			estimate.TransferredOutQty += transfer.DerivedBaseUnits
			activities = append(activities, &domain.EstimateActivity{
				Type:           domain.ActivityTransferOut,
				ReferenceID:    transfer.ID,
				OccurredAt:     transfer.TransferredAt,
				DeltaBaseUnits: -transfer.DerivedBaseUnits,
				Detail:         "to " + transfer.ToLocationID,
			})
		} else {
			estimate.TransferredInQty += transfer.DerivedBaseUnits
			activities = append(activities, &domain.EstimateActivity{
				Type:           domain.ActivityTransferIn,
				ReferenceID:    transfer.ID,
				OccurredAt:     transfer.TransferredAt,
				DeltaBaseUnits: transfer.DerivedBaseUnits,
				Detail:         "from " + transfer.FromLocationID,
			})
		}
	}

	usageRows, err := p.usageSince(ctx, itemID, storeID, since, until)
	if err != nil {
		return nil, nil, err
	}
	for _, row := range usageRows {
		estimate.TheoreticalUsageQty += -row.DeltaBaseUnits
		activities = append(activities, row)
	}

	estimate.EstimatedOnHand = estimate.LastCountQty +
		estimate.ReceivedQty +
		estimate.TransferredInQty -
		estimate.WasteQty -
		estimate.TheoreticalUsageQty -
		estimate.TransferredOutQty

	if item.ParLevel != nil {
		estimate.BelowPar = estimate.EstimatedOnHand <= *item.ParLevel
	}
	if item.ReorderLevel != nil {
		estimate.BelowReorder = estimate.EstimatedOnHand <= *item.ReorderLevel
	}

	return estimate, activities, nil
}

// usageSince expands each sale after the baseline count into the item's
// recipe-driven consumption, one row per consuming sale line.
func (p *Projector) usageSince(ctx context.Context, itemID, storeID string, since, until time.Time) ([]*domain.EstimateActivity, error) {
	sales, err := p.sales.SalesInRange(ctx, storeID, since, until)
	if err != nil {
		return nil, err
	}

	var rows []*domain.EstimateActivity
	for _, sale := range sales {
		if !sale.SoldAt.After(since) {
			continue
		}
		lines, err := p.sales.ListSaleLines(ctx, sale.ID)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			menuItem, err := p.menu.GetMenuItem(ctx, line.MenuItemID)
			if err != nil {
				return nil, err
			}
			if menuItem.RecipeID == nil {
				continue
			}
			recipe, err := p.recipes.GetRecipe(ctx, *menuItem.RecipeID)
			if err != nil {
				return nil, err
			}
			yieldBase, err := p.units.ConvertToBase(ctx, recipe.YieldQty, recipe.YieldUnitID)
			if err != nil {
				return nil, err
			}
			consumed, err := p.resolver.ExpandIngredients(ctx, recipe.ID, yieldBase*line.Qty)
			if err != nil {
				return nil, err
			}
			baseQty, ok := consumed[itemID]
			if !ok || baseQty == 0 {
				continue
			}
			rows = append(rows, &domain.EstimateActivity{
				Type:           domain.ActivityUsage,
				ReferenceID:    line.ID,
				OccurredAt:     sale.SoldAt,
				DeltaBaseUnits: -baseQty,
				Detail:         fmt.Sprintf("%s x%.2f", menuItem.Name, line.Qty),
			})
		}
	}

	return rows, nil
}
