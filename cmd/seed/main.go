// cmd/seed/main.go
package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/platewise/costing/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.App.Metadata["db"] = db
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.App.Metadata["db"].(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func getDB(c *cli.Context) *sql.DB {
	return c.App.Metadata["db"].(*sql.DB)
}

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:     "seed",
		Usage:    "Initialize and seed the costing engine's record store",
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			newDBURLFlag(),
		},
		Before: initDB,
		After:  closeDB,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the engine schema",
				Action: runInit,
			},
			{
				Name:   "units",
				Usage:  "Seed the canonical units of measure",
				Action: runSeedUnits,
			},
			{
				Name:  "items",
				Usage: "Import inventory items from a CSV file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "CSV file with item rows",
						Required: true,
					},
				},
				Action: runSeedItems,
			},
			{
				Name:  "recipes",
				Usage: "Import recipes from a CSV file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "CSV file with recipe rows",
						Required: true,
					},
				},
				Action: runSeedRecipes,
			},
			{
				Name:  "components",
				Usage: "Import recipe components from a CSV file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "CSV file with component rows",
						Required: true,
					},
				},
				Action: runSeedComponents,
			},
			{
				Name:  "menu",
				Usage: "Import menu items from a CSV file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "CSV file with menu item rows",
						Required: true,
					},
				},
				Action: runSeedMenu,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("seed failed")
	}
}
