// internal/costing/resolver.go

// Package costing computes the fully-loaded cost of recipes. Recipes may nest
// other recipes to arbitrary depth; every traversal threads a visited set and
// fails fast on a repeat rather than recursing forever.
package costing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/platewise/costing/internal/cache"
	"github.com/platewise/costing/internal/domain"
	"github.com/platewise/costing/internal/repository"
	"github.com/platewise/costing/internal/units"
)

// Resolver computes recipe costs and per-item impact.
type Resolver struct {
	recipes repository.RecipeStore
	items   repository.ItemStore
	units   *units.Registry
	costs   cache.CostCache
	log     zerolog.Logger
}

func NewResolver(recipes repository.RecipeStore, items repository.ItemStore, registry *units.Registry, costs cache.CostCache, log zerolog.Logger) *Resolver {
	return &Resolver{
		recipes: recipes,
		items:   items,
		units:   registry,
		costs:   costs,
		log:     log,
	}
}

// ResolveRecipeCost computes the cost of one full yield of the recipe:
// ingredient costs inflated by item yield loss, nested recipe costs distributed
// over their own yields, the recipe's waste multiplier applied last. On success
// the result is written through to the recipe's computed-cost column and the
// cost cache; both writes are optimizations and their failures are only logged.
func (r *Resolver) ResolveRecipeCost(ctx context.Context, recipeID string) (decimal.Decimal, error) {
	cost, err := r.resolveCost(ctx, recipeID, make(map[string]struct{}))
	if err != nil {
		return decimal.Zero, err
	}

	if err := r.recipes.UpdateComputedCost(ctx, recipeID, cost); err != nil {
		r.log.Warn().Err(err).Str("recipe_id", recipeID).Msg("failed to persist computed cost")
	}
	if err := r.costs.SetCost(ctx, recipeID, cost); err != nil {
		r.log.Warn().Err(err).Str("recipe_id", recipeID).Msg("failed to cache recipe cost")
	}

	return cost, nil
}

func (r *Resolver) resolveCost(ctx context.Context, recipeID string, visiting map[string]struct{}) (decimal.Decimal, error) {
	if _, seen := visiting[recipeID]; seen {
		return decimal.Zero, fmt.Errorf("recipe %s: %w", recipeID, domain.ErrCyclicRecipe)
	}
	visiting[recipeID] = struct{}{}
	defer delete(visiting, recipeID)

	recipe, err := r.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return decimal.Zero, err
	}

	components, err := r.recipes.ListComponents(ctx, recipeID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, component := range components {
		baseQty, err := r.units.ConvertToBase(ctx, component.Qty, component.UnitID)
		if err != nil {
			return decimal.Zero, err
		}

		switch component.ComponentType {
		case domain.ComponentInventoryItem:
			item, err := r.items.GetItem(ctx, component.ComponentID)
			if err != nil {
				return decimal.Zero, err
			}
			contribution := decimal.NewFromFloat(baseQty).Mul(item.EffectiveCostPerBaseUnit())
			total = total.Add(contribution)

		case domain.ComponentRecipe:
			costPerBase, err := r.subRecipeCostPerBase(ctx, component.ComponentID, visiting)
			if err != nil {
				return decimal.Zero, err
			}
			total = total.Add(costPerBase.Mul(decimal.NewFromFloat(baseQty)))

		default:
			return decimal.Zero, fmt.Errorf("recipe %s: unknown component type %q", recipeID, component.ComponentType)
		}
	}

	waste := recipe.WastePercent
	if waste < 0 {
		waste = 0
	}
	total = total.Mul(decimal.NewFromFloat(1 + waste/100))

	return total, nil
}

// subRecipeCostPerBase resolves a nested recipe's total cost and distributes it
// over the recipe's yield in base units. A zero yield base quantity yields zero
// cost rather than dividing by zero.
func (r *Resolver) subRecipeCostPerBase(ctx context.Context, recipeID string, visiting map[string]struct{}) (decimal.Decimal, error) {
	sub, err := r.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return decimal.Zero, err
	}

	subCost, err := r.resolveCost(ctx, recipeID, visiting)
	if err != nil {
		return decimal.Zero, err
	}

	yieldBase, err := r.units.ConvertToBase(ctx, sub.YieldQty, sub.YieldUnitID)
	if err != nil {
		return decimal.Zero, err
	}
	if yieldBase == 0 {
		return decimal.Zero, nil
	}

	return subCost.Div(decimal.NewFromFloat(yieldBase)), nil
}

// ResolveComponentImpact reports whether and how much one full yield of the
// recipe consumes of the target item, for price-sensitivity and "what uses X"
// reports. Sub-recipe impact is scaled by the component's share of the
// sub-recipe's yield.
func (r *Resolver) ResolveComponentImpact(ctx context.Context, recipeID, targetItemID string) (*domain.ComponentImpact, error) {
	baseQty, cost, err := r.resolveImpact(ctx, recipeID, targetItemID, make(map[string]struct{}))
	if err != nil {
		return nil, err
	}

	return &domain.ComponentImpact{
		RecipeID:         recipeID,
		ItemID:           targetItemID,
		UsesItem:         baseQty > 0,
		BaseQtyConsumed:  baseQty,
		CostContribution: cost,
	}, nil
}

func (r *Resolver) resolveImpact(ctx context.Context, recipeID, targetItemID string, visiting map[string]struct{}) (float64, decimal.Decimal, error) {
	if _, seen := visiting[recipeID]; seen {
		return 0, decimal.Zero, fmt.Errorf("recipe %s: %w", recipeID, domain.ErrCyclicRecipe)
	}
	visiting[recipeID] = struct{}{}
	defer delete(visiting, recipeID)

	components, err := r.recipes.ListComponents(ctx, recipeID)
	if err != nil {
		return 0, decimal.Zero, err
	}

	var totalQty float64
	totalCost := decimal.Zero

	for _, component := range components {
		baseQty, err := r.units.ConvertToBase(ctx, component.Qty, component.UnitID)
		if err != nil {
			return 0, decimal.Zero, err
		}

		switch component.ComponentType {
		case domain.ComponentInventoryItem:
			if component.ComponentID != targetItemID {
				continue
			}
			item, err := r.items.GetItem(ctx, component.ComponentID)
			if err != nil {
				return 0, decimal.Zero, err
			}
			totalQty += baseQty
			totalCost = totalCost.Add(decimal.NewFromFloat(baseQty).Mul(item.EffectiveCostPerBaseUnit()))

		case domain.ComponentRecipe:
			sub, err := r.recipes.GetRecipe(ctx, component.ComponentID)
			if err != nil {
				return 0, decimal.Zero, err
			}
			subQty, subCost, err := r.resolveImpact(ctx, component.ComponentID, targetItemID, visiting)
			if err != nil {
				return 0, decimal.Zero, err
			}
			yieldBase, err := r.units.ConvertToBase(ctx, sub.YieldQty, sub.YieldUnitID)
			if err != nil {
				return 0, decimal.Zero, err
			}
			if yieldBase == 0 {
				continue
			}
			scale := baseQty / yieldBase
			totalQty += subQty * scale
			totalCost = totalCost.Add(subCost.Mul(decimal.NewFromFloat(scale)))

		default:
			return 0, decimal.Zero, fmt.Errorf("recipe %s: unknown component type %q", recipeID, component.ComponentType)
		}
	}

	return totalQty, totalCost, nil
}

// ExpandIngredients flattens the recipe graph into per-item base-unit
// consumption for producing portionBaseQty of the recipe's yield. The same
// traversal as cost resolution, reused for quantities; the usage reconciler
// drives it from recorded sales.
func (r *Resolver) ExpandIngredients(ctx context.Context, recipeID string, portionBaseQty float64) (map[string]float64, error) {
	usage := make(map[string]float64)
	if err := r.expand(ctx, recipeID, portionBaseQty, make(map[string]struct{}), usage); err != nil {
		return nil, err
	}
	return usage, nil
}

func (r *Resolver) expand(ctx context.Context, recipeID string, portionBaseQty float64, visiting map[string]struct{}, usage map[string]float64) error {
	if _, seen := visiting[recipeID]; seen {
		return fmt.Errorf("recipe %s: %w", recipeID, domain.ErrCyclicRecipe)
	}
	visiting[recipeID] = struct{}{}
	defer delete(visiting, recipeID)

	recipe, err := r.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return err
	}

	yieldBase, err := r.units.ConvertToBase(ctx, recipe.YieldQty, recipe.YieldUnitID)
	if err != nil {
		return err
	}
	if yieldBase == 0 {
		return nil
	}
	scale := portionBaseQty / yieldBase

	components, err := r.recipes.ListComponents(ctx, recipeID)
	if err != nil {
		return err
	}

	for _, component := range components {
		baseQty, err := r.units.ConvertToBase(ctx, component.Qty, component.UnitID)
		if err != nil {
			return err
		}

		switch component.ComponentType {
		case domain.ComponentInventoryItem:
			usage[component.ComponentID] += baseQty * scale
		case domain.ComponentRecipe:
			if err := r.expand(ctx, component.ComponentID, baseQty*scale, visiting, usage); err != nil {
				return err
			}
		default:
			return fmt.Errorf("recipe %s: unknown component type %q", recipeID, component.ComponentType)
		}
	}

	return nil
}
