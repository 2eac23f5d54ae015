// cmd/seed/recipes.go
package main

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/platewise/costing/internal/domain"
	"github.com/platewise/costing/pkg/logger"
)

type csvFile struct {
	reader *csv.Reader
	col    map[string]int
}

func openCSV(path string, required ...string) (*csvFile, func(), error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			file.Close()
			return nil, nil, fmt.Errorf("%s is missing required column %q", path, name)
		}
	}

	return &csvFile{reader: reader, col: col}, func() { file.Close() }, nil
}

func (f *csvFile) field(record []string, name string) string {
	i, ok := f.col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// runSeedRecipes imports recipes from a CSV with the header:
// name,yield_qty,yield_unit_id,waste_percent,can_be_ingredient
func runSeedRecipes(c *cli.Context) error {
	db := getDB(c)

	f, closeFile, err := openCSV(c.String("file"), "name", "yield_qty", "yield_unit_id")
	if err != nil {
		return err
	}
	defer closeFile()

	imported := 0
	for line := 2; ; line++ {
		record, err := f.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read csv row: %w", err)
		}

		yieldQty, err := strconv.ParseFloat(f.field(record, "yield_qty"), 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid yield_qty: %w", line, err)
		}

		wastePercent := 0.0
		if raw := f.field(record, "waste_percent"); raw != "" {
			if wastePercent, err = strconv.ParseFloat(raw, 64); err != nil {
				return fmt.Errorf("line %d: invalid waste_percent %q: %w", line, raw, err)
			}
		}

		canBeIngredient := true
		if raw := f.field(record, "can_be_ingredient"); raw != "" {
			if canBeIngredient, err = strconv.ParseBool(raw); err != nil {
				return fmt.Errorf("line %d: invalid can_be_ingredient %q: %w", line, raw, err)
			}
		}

		if _, err := db.ExecContext(c.Context, `
			INSERT INTO recipes (id, name, yield_qty, yield_unit_id, waste_percent, can_be_ingredient, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
			uuid.NewString(), f.field(record, "name"), yieldQty,
			f.field(record, "yield_unit_id"), wastePercent, canBeIngredient,
		); err != nil {
			return fmt.Errorf("line %d: failed to insert recipe %q: %w", line, f.field(record, "name"), err)
		}
		imported++
	}

	logger.Log.Info().Int("recipes", imported).Msg("recipes imported")
	return nil
}

// runSeedComponents imports recipe components from a CSV with the header:
// recipe,component_type,component,qty,unit_id
// Recipes and items are referenced by name; rows apply in file order.
func runSeedComponents(c *cli.Context) error {
	db := getDB(c)

	f, closeFile, err := openCSV(c.String("file"), "recipe", "component_type", "component", "qty", "unit_id")
	if err != nil {
		return err
	}
	defer closeFile()

	imported := 0
	for line := 2; ; line++ {
		record, err := f.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read csv row: %w", err)
		}

		recipeID, err := lookupByName(c, "recipes", f.field(record, "recipe"))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		componentType := domain.ComponentType(f.field(record, "component_type"))
		var componentID string
		switch componentType {
		case domain.ComponentInventoryItem:
			componentID, err = lookupByName(c, "inventory_items", f.field(record, "component"))
		case domain.ComponentRecipe:
			componentID, err = lookupByName(c, "recipes", f.field(record, "component"))
		default:
			return fmt.Errorf("line %d: unknown component_type %q", line, componentType)
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		qty, err := strconv.ParseFloat(f.field(record, "qty"), 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid qty: %w", line, err)
		}

		if _, err := db.ExecContext(c.Context, `
			INSERT INTO recipe_components (id, recipe_id, component_type, component_id, qty, unit_id, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.NewString(), recipeID, componentType, componentID, qty,
			f.field(record, "unit_id"), imported,
		); err != nil {
			return fmt.Errorf("line %d: failed to insert component: %w", line, err)
		}
		imported++
	}

	logger.Log.Info().Int("components", imported).Msg("recipe components imported")
	return nil
}

// runSeedMenu imports menu items from a CSV with the header: name,recipe,price
// An empty recipe column leaves the menu item unlinked.
func runSeedMenu(c *cli.Context) error {
	db := getDB(c)

	f, closeFile, err := openCSV(c.String("file"), "name", "price")
	if err != nil {
		return err
	}
	defer closeFile()

	imported := 0
	for line := 2; ; line++ {
		record, err := f.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read csv row: %w", err)
		}

		var recipeID *string
		if name := f.field(record, "recipe"); name != "" {
			id, err := lookupByName(c, "recipes", name)
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			recipeID = &id
		}

		price, err := decimal.NewFromString(f.field(record, "price"))
		if err != nil {
			return fmt.Errorf("line %d: invalid price: %w", line, err)
		}

		if _, err := db.ExecContext(c.Context, `
			INSERT INTO menu_items (id, name, recipe_id, price)
			VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), f.field(record, "name"), recipeID, price,
		); err != nil {
			return fmt.Errorf("line %d: failed to insert menu item %q: %w", line, f.field(record, "name"), err)
		}
		imported++
	}

	logger.Log.Info().Int("menu_items", imported).Msg("menu items imported")
	return nil
}

func lookupByName(c *cli.Context, table, name string) (string, error) {
	var id string
	err := getDB(c).QueryRowContext(c.Context,
		fmt.Sprintf(`SELECT id FROM %s WHERE name = $1`, table), name,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("no row in %s named %q", table, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up %q in %s: %w", name, table, err)
	}
	return id, nil
}
