// cmd/seed/seed.go
package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/platewise/costing/internal/domain"
	"github.com/platewise/costing/pkg/logger"
)

// builtinUnits is the canonical measurement set. Base units carry a
// ratio of 1: gram for mass, milliliter for volume, each for count.
var builtinUnits = []domain.Unit{
	{ID: "g", Name: "gram", Kind: domain.KindMass, ToBaseRatio: 1, System: domain.SystemMetric},
	{ID: "kg", Name: "kilogram", Kind: domain.KindMass, ToBaseRatio: 1000, System: domain.SystemMetric},
	{ID: "oz", Name: "ounce", Kind: domain.KindMass, ToBaseRatio: 28.3495, System: domain.SystemUS},
	{ID: "lb", Name: "pound", Kind: domain.KindMass, ToBaseRatio: 453.592, System: domain.SystemUS},
	{ID: "ml", Name: "milliliter", Kind: domain.KindVolume, ToBaseRatio: 1, System: domain.SystemMetric},
	{ID: "l", Name: "liter", Kind: domain.KindVolume, ToBaseRatio: 1000, System: domain.SystemMetric},
	{ID: "floz", Name: "fluid ounce", Kind: domain.KindVolume, ToBaseRatio: 29.5735, System: domain.SystemUS},
	{ID: "cup", Name: "cup", Kind: domain.KindVolume, ToBaseRatio: 236.588, System: domain.SystemUS},
	{ID: "pt", Name: "pint", Kind: domain.KindVolume, ToBaseRatio: 473.176, System: domain.SystemUS},
	{ID: "qt", Name: "quart", Kind: domain.KindVolume, ToBaseRatio: 946.353, System: domain.SystemUS},
	{ID: "gal", Name: "gallon", Kind: domain.KindVolume, ToBaseRatio: 3785.41, System: domain.SystemUS},
	{ID: "tsp", Name: "teaspoon", Kind: domain.KindVolume, ToBaseRatio: 4.92892, System: domain.SystemUS},
	{ID: "tbsp", Name: "tablespoon", Kind: domain.KindVolume, ToBaseRatio: 14.7868, System: domain.SystemUS},
	{ID: "ea", Name: "each", Kind: domain.KindCount, ToBaseRatio: 1, System: domain.SystemUS},
	{ID: "doz", Name: "dozen", Kind: domain.KindCount, ToBaseRatio: 12, System: domain.SystemUS},
}

func runSeedUnits(c *cli.Context) error {
	db := getDB(c)

	query := `
		INSERT INTO units (id, name, kind, to_base_ratio, system)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			to_base_ratio = EXCLUDED.to_base_ratio,
			system = EXCLUDED.system
	`

	for _, unit := range builtinUnits {
		if _, err := db.ExecContext(c.Context, query,
			unit.ID, unit.Name, unit.Kind, unit.ToBaseRatio, unit.System,
		); err != nil {
			return fmt.Errorf("failed to seed unit %s: %w", unit.ID, err)
		}
	}

	logger.Log.Info().Int("units", len(builtinUnits)).Msg("units seeded")
	return nil
}

// runSeedItems imports inventory items from a CSV with the header:
// name,unit_id,case_size,last_cost,yield_percent,par_level,reorder_level,locations
// The locations column is a semicolon-separated list of location ids.
func runSeedItems(c *cli.Context) error {
	db := getDB(c)

	f, closeFile, err := openCSV(c.String("file"), "name", "unit_id")
	if err != nil {
		return err
	}
	defer closeFile()

	field := f.field

	imported := 0
	for line := 2; ; line++ {
		record, err := f.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read csv row: %w", err)
		}

		item := domain.InventoryItem{
			ID:           uuid.NewString(),
			Name:         field(record, "name"),
			UnitID:       field(record, "unit_id"),
			CaseSize:     1,
			YieldPercent: 100,
		}
		if item.Name == "" || item.UnitID == "" {
			logger.Log.Warn().Int("line", line).Msg("skipping row with empty name or unit")
			continue
		}

		if raw := field(record, "case_size"); raw != "" {
			if item.CaseSize, err = strconv.ParseFloat(raw, 64); err != nil {
				return fmt.Errorf("line %d: invalid case_size %q: %w", line, raw, err)
			}
		}
		if raw := field(record, "last_cost"); raw != "" {
			if item.LastCost, err = decimal.NewFromString(raw); err != nil {
				return fmt.Errorf("line %d: invalid last_cost %q: %w", line, raw, err)
			}
		}
		if raw := field(record, "yield_percent"); raw != "" {
			if item.YieldPercent, err = strconv.ParseFloat(raw, 64); err != nil {
				return fmt.Errorf("line %d: invalid yield_percent %q: %w", line, raw, err)
			}
		}
		if raw := field(record, "par_level"); raw != "" {
			par, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("line %d: invalid par_level %q: %w", line, raw, err)
			}
			item.ParLevel = &par
		}
		if raw := field(record, "reorder_level"); raw != "" {
			reorder, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("line %d: invalid reorder_level %q: %w", line, raw, err)
			}
			item.ReorderLevel = &reorder
		}

		if _, err := db.ExecContext(c.Context, `
			INSERT INTO inventory_items (
				id, name, unit_id, case_size, last_cost,
				yield_percent, par_level, reorder_level, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
			item.ID, item.Name, item.UnitID, item.CaseSize, item.LastCost,
			item.YieldPercent, item.ParLevel, item.ReorderLevel,
		); err != nil {
			return fmt.Errorf("line %d: failed to insert item %q: %w", line, item.Name, err)
		}

		if raw := field(record, "locations"); raw != "" {
			for _, locationID := range strings.Split(raw, ";") {
				locationID = strings.TrimSpace(locationID)
				if locationID == "" {
					continue
				}
				if _, err := db.ExecContext(c.Context, `
					INSERT INTO item_storage_locations (item_id, location_id)
					VALUES ($1, $2) ON CONFLICT DO NOTHING`,
					item.ID, locationID,
				); err != nil {
					return fmt.Errorf("line %d: failed to link location %q: %w", line, locationID, err)
				}
			}
		}

		imported++
	}

	logger.Log.Info().Int("items", imported).Msg("items imported")
	return nil
}
