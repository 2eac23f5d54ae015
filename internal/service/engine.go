// internal/service/engine.go
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/platewise/costing/internal/cache"
	"github.com/platewise/costing/internal/costing"
	"github.com/platewise/costing/internal/ledger"
	"github.com/platewise/costing/internal/repository"
	"github.com/platewise/costing/internal/units"
	"github.com/platewise/costing/internal/usage"
)

// Engine wires the costing and reconciliation components over one record store
// and exposes them to callers. Every operation takes explicit item/location/
// store IDs; the engine carries no ambient selected-store state.
type Engine struct {
	Registry   *units.Registry
	Resolver   *costing.Resolver
	Ledger     *ledger.Ledger
	Reconciler *usage.Reconciler
	Projector  *usage.Projector

	store repository.Store
	costs cache.CostCache
	log   zerolog.Logger
}

func NewEngine(store repository.Store, costs cache.CostCache, log zerolog.Logger) *Engine {
	registry := units.NewRegistry(store)
	resolver := costing.NewResolver(store, store, registry, costs, log)

	return &Engine{
		Registry:   registry,
		Resolver:   resolver,
		Ledger:     ledger.NewLedger(store, store, store, store, store, store, registry, log),
		Reconciler: usage.NewReconciler(store, store, store, store, store, store, resolver, registry, log),
		Projector:  usage.NewProjector(store, store, store, store, store, store, store, store, resolver, registry, log),
		store:      store,
		costs:      costs,
		log:        log,
	}
}

// RecipeCost returns the recipe's cost per full yield, serving from the cost
// cache when a value is present and resolving from source data otherwise. A
// cache read failure falls through to resolution.
func (e *Engine) RecipeCost(ctx context.Context, recipeID string) (decimal.Decimal, error) {
	cost, ok, err := e.costs.GetCost(ctx, recipeID)
	if err != nil {
		e.log.Warn().Err(err).Str("recipe_id", recipeID).Msg("cost cache read failed")
	}
	if err == nil && ok {
		return cost, nil
	}

	return e.Resolver.ResolveRecipeCost(ctx, recipeID)
}

// InvalidateRecipeCost drops the cached cost for a recipe and, cascading
// upward through the component graph, for every recipe that uses it. Write
// paths call this after a recipe's components change, after an ingredient's
// cost or yield changes, or after a nested recipe's cost changes.
func (e *Engine) InvalidateRecipeCost(ctx context.Context, recipeID string) error {
	visited := make(map[string]struct{})
	queue := []string{recipeID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}

		if err := e.costs.InvalidateCost(ctx, id); err != nil {
			return fmt.Errorf("invalidate cost cache for recipe %s: %w", id, err)
		}

		parents, err := e.store.ParentRecipeIDs(ctx, id)
		if err != nil {
			return fmt.Errorf("resolve parents of recipe %s: %w", id, err)
		}
		queue = append(queue, parents...)
	}

	e.log.Debug().Str("recipe_id", recipeID).Int("invalidated", len(visited)).Msg("recipe cost cache invalidated")
	return nil
}
