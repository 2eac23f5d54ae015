// cmd/seed/schema.go
package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/platewise/costing/pkg/logger"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS units (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		kind          TEXT NOT NULL,
		to_base_ratio DOUBLE PRECISION NOT NULL CHECK (to_base_ratio > 0),
		system        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		unit_id       TEXT NOT NULL REFERENCES units(id),
		case_size     DOUBLE PRECISION NOT NULL DEFAULT 1,
		last_cost     NUMERIC(20,6) NOT NULL DEFAULT 0,
		yield_percent DOUBLE PRECISION NOT NULL DEFAULT 100,
		par_level     DOUBLE PRECISION,
		reorder_level DOUBLE PRECISION,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS item_storage_locations (
		item_id     TEXT NOT NULL REFERENCES inventory_items(id),
		location_id TEXT NOT NULL,
		PRIMARY KEY (item_id, location_id)
	)`,
	`CREATE TABLE IF NOT EXISTS recipes (
		id                TEXT PRIMARY KEY,
		name              TEXT NOT NULL,
		yield_qty         DOUBLE PRECISION NOT NULL,
		yield_unit_id     TEXT NOT NULL REFERENCES units(id),
		waste_percent     DOUBLE PRECISION NOT NULL DEFAULT 0,
		can_be_ingredient BOOLEAN NOT NULL DEFAULT TRUE,
		computed_cost     NUMERIC(20,6),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS recipe_components (
		id             TEXT PRIMARY KEY,
		recipe_id      TEXT NOT NULL REFERENCES recipes(id),
		component_type TEXT NOT NULL,
		component_id   TEXT NOT NULL,
		qty            DOUBLE PRECISION NOT NULL,
		unit_id        TEXT NOT NULL REFERENCES units(id),
		sort_order     INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_components_recipe ON recipe_components (recipe_id, sort_order)`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_components_component ON recipe_components (component_type, component_id)`,
	`CREATE TABLE IF NOT EXISTS menu_items (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		recipe_id TEXT REFERENCES recipes(id),
		price     NUMERIC(20,6) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_levels (
		item_id            TEXT NOT NULL REFERENCES inventory_items(id),
		location_id        TEXT NOT NULL,
		on_hand_base_units DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (item_id, location_id)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_counts (
		id          TEXT PRIMARY KEY,
		location_id TEXT NOT NULL,
		counted_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_counts_location ON inventory_counts (location_id, counted_at)`,
	`CREATE TABLE IF NOT EXISTS inventory_count_lines (
		id                 TEXT PRIMARY KEY,
		count_id           TEXT NOT NULL REFERENCES inventory_counts(id),
		item_id            TEXT NOT NULL REFERENCES inventory_items(id),
		qty                DOUBLE PRECISION NOT NULL,
		unit_id            TEXT NOT NULL REFERENCES units(id),
		derived_base_units DOUBLE PRECISION NOT NULL,
		unit_cost_snapshot NUMERIC(20,6) NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_count_lines_item ON inventory_count_lines (item_id, count_id)`,
	`CREATE TABLE IF NOT EXISTS receipt_lines (
		id                 TEXT PRIMARY KEY,
		receipt_id         TEXT NOT NULL,
		item_id            TEXT NOT NULL REFERENCES inventory_items(id),
		location_id        TEXT NOT NULL,
		qty                DOUBLE PRECISION NOT NULL,
		unit_id            TEXT NOT NULL REFERENCES units(id),
		derived_base_units DOUBLE PRECISION NOT NULL,
		price_each         NUMERIC(20,6) NOT NULL DEFAULT 0,
		received_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_receipt_lines_item ON receipt_lines (item_id, location_id, received_at)`,
	`CREATE TABLE IF NOT EXISTS transfer_logs (
		id                 TEXT PRIMARY KEY,
		item_id            TEXT NOT NULL REFERENCES inventory_items(id),
		from_location_id   TEXT NOT NULL,
		to_location_id     TEXT NOT NULL,
		derived_base_units DOUBLE PRECISION NOT NULL,
		transferred_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS waste_logs (
		id                 TEXT PRIMARY KEY,
		item_id            TEXT NOT NULL REFERENCES inventory_items(id),
		location_id        TEXT NOT NULL,
		derived_base_units DOUBLE PRECISION NOT NULL,
		reason_code        TEXT NOT NULL,
		wasted_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id       TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		sold_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_store ON sales (store_id, sold_at)`,
	`CREATE TABLE IF NOT EXISTS sale_lines (
		id           TEXT PRIMARY KEY,
		sale_id      TEXT NOT NULL REFERENCES sales(id),
		menu_item_id TEXT NOT NULL REFERENCES menu_items(id),
		qty          DOUBLE PRECISION NOT NULL
	)`,
}

func runInit(c *cli.Context) error {
	db := getDB(c)

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(c.Context, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	logger.Log.Info().Int("statements", len(schemaStatements)).Msg("schema initialized")
	return nil
}
