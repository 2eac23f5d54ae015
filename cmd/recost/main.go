// cmd/recost/main.go
package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/platewise/costing/internal/cache"
	"github.com/platewise/costing/internal/config"
	"github.com/platewise/costing/internal/pipeline/recost"
	"github.com/platewise/costing/internal/repository/postgres"
	"github.com/platewise/costing/internal/service"
	"github.com/platewise/costing/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "recost",
		Usage: "Recompute every recipe's cost and rebuild the cost cache",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent recipe resolutions (overrides ENGINE_RECOST_WORKERS)",
			},
		},
		Action: runRecost,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("recost failed")
	}
}

func runRecost(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.Engine.LogLevel)

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return err
	}
	store := postgres.NewStore(db)

	costs, err := cache.NewCostCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("cost cache unavailable, recosting without cache")
		costs = cache.NewNoopCostCache()
	}

	engine := service.NewEngine(store, costs, logger.Log)

	workers := cfg.Engine.RecostWorkers
	if c.Int("workers") > 0 {
		workers = c.Int("workers")
	}

	runner := recost.NewRunner(store, engine.Resolver, recost.Config{WorkerCount: workers}, logger.Log)
	result, err := runner.Run(c.Context)
	if err != nil {
		return err
	}

	for _, id := range result.Cyclic {
		logger.Log.Warn().Str("recipe_id", id).Msg("recipe skipped, component graph contains a cycle")
	}
	return nil
}
