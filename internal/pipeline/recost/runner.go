// internal/pipeline/recost/runner.go

// Package recost recomputes every recipe's cached cost in a batch. Run after
// master-data imports or whenever the cache should be rebuilt from scratch.
package recost

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/platewise/costing/internal/costing"
	"github.com/platewise/costing/internal/domain"
	"github.com/platewise/costing/internal/repository"
)

// Config holds runner settings.
type Config struct {
	// WorkerCount bounds concurrent recipe resolutions.
	WorkerCount int
}

// Result summarizes a batch run.
type Result struct {
	Total    int
	Resolved int
	Cyclic   []string
	Duration time.Duration
}

// Runner walks all recipes and resolves each one's cost, writing through to
// the computed-cost column and the cost cache. Resolution is read-only apart
// from those idempotent cache writes, so recipes are processed in parallel.
type Runner struct {
	recipes  repository.RecipeStore
	resolver *costing.Resolver
	cfg      Config
	log      zerolog.Logger
}

func NewRunner(recipes repository.RecipeStore, resolver *costing.Resolver, cfg Config, log zerolog.Logger) *Runner {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return &Runner{
		recipes:  recipes,
		resolver: resolver,
		cfg:      cfg,
		log:      log,
	}
}

// Run recomputes all recipe costs. A cyclic recipe is reported and skipped
// rather than aborting the batch: one corrupt graph must not block recosting
// the rest of the catalog. Any other error aborts the run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	ids, err := r.recipes.AllRecipeIDs(ctx)
	if err != nil {
		return nil, err
	}

	var resolved atomic.Int64
	cyclic := make(chan string, len(ids))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.WorkerCount)

	for _, id := range ids {
		group.Go(func() error {
			cost, err := r.resolver.ResolveRecipeCost(groupCtx, id)
			if errors.Is(err, domain.ErrCyclicRecipe) {
				r.log.Error().Str("recipe_id", id).Msg("cyclic recipe graph, skipping recost")
				cyclic <- id
				return nil
			}
			if err != nil {
				return err
			}
			resolved.Add(1)
			r.log.Debug().Str("recipe_id", id).Str("cost", cost.String()).Msg("recipe recosted")
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	close(cyclic)

	result := &Result{
		Total:    len(ids),
		Resolved: int(resolved.Load()),
		Duration: time.Since(start),
	}
	for id := range cyclic {
		result.Cyclic = append(result.Cyclic, id)
	}

	r.log.Info().
		Int("total", result.Total).
		Int("resolved", result.Resolved).
		Int("cyclic", len(result.Cyclic)).
		Dur("duration", result.Duration).
		Msg("recost batch completed")

	return result, nil
}
