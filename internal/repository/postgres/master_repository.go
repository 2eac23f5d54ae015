// internal/repository/postgres/master_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/platewise/costing/internal/domain"
)

// Store implements the repository interfaces against PostgreSQL.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetUnit(ctx context.Context, id string) (*domain.Unit, error) {
	query := `
		SELECT id, name, kind, to_base_ratio, system
		FROM units
		WHERE id = $1
	`

	var unit domain.Unit
	if err := sqlx.GetContext(ctx, s.db, &unit, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUnitNotFound
		}
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}

	return &unit, nil
}

func (s *Store) ListUnits(ctx context.Context) ([]*domain.Unit, error) {
	query := `
		SELECT id, name, kind, to_base_ratio, system
		FROM units
		ORDER BY name
	`

	var units []*domain.Unit
	if err := sqlx.SelectContext(ctx, s.db, &units, query); err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}

	return units, nil
}

func (s *Store) CreateUnit(ctx context.Context, unit *domain.Unit) error {
	query := `
		INSERT INTO units (id, name, kind, to_base_ratio, system)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := s.db.ExecContext(ctx, query, unit.ID, unit.Name, unit.Kind, unit.ToBaseRatio, unit.System); err != nil {
		return fmt.Errorf("failed to create unit: %w", err)
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	query := `
		SELECT id, name, unit_id, case_size, last_cost, yield_percent, par_level, reorder_level, updated_at
		FROM inventory_items
		WHERE id = $1
	`

	var item domain.InventoryItem
	if err := sqlx.GetContext(ctx, s.db, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	locationQuery := `
		SELECT location_id
		FROM item_storage_locations
		WHERE item_id = $1
		ORDER BY location_id
	`
	if err := sqlx.SelectContext(ctx, s.db, &item.StorageLocationIDs, locationQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get item storage locations: %w", err)
	}

	return &item, nil
}

func (s *Store) ListItems(ctx context.Context) ([]*domain.InventoryItem, error) {
	query := `
		SELECT id, name, unit_id, case_size, last_cost, yield_percent, par_level, reorder_level, updated_at
		FROM inventory_items
		ORDER BY name
	`

	var items []*domain.InventoryItem
	if err := sqlx.SelectContext(ctx, s.db, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	return items, nil
}

func (s *Store) CreateItem(ctx context.Context, item *domain.InventoryItem) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO inventory_items (
				id, name, unit_id, case_size, last_cost,
				yield_percent, par_level, reorder_level, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		`
		if _, err := tx.ExecContext(ctx, query,
			item.ID, item.Name, item.UnitID, item.CaseSize, item.LastCost,
			item.YieldPercent, item.ParLevel, item.ReorderLevel,
		); err != nil {
			return fmt.Errorf("failed to create item: %w", err)
		}

		for _, locationID := range item.StorageLocationIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO item_storage_locations (item_id, location_id) VALUES ($1, $2)`,
				item.ID, locationID,
			); err != nil {
				return fmt.Errorf("failed to link storage location: %w", err)
			}
		}

		return nil
	})
}

func (s *Store) UpdateItemCost(ctx context.Context, id string, cost decimal.Decimal) error {
	query := `
		UPDATE inventory_items
		SET last_cost = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, id, cost)
	if err != nil {
		return fmt.Errorf("failed to update item cost: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (s *Store) GetRecipe(ctx context.Context, id string) (*domain.Recipe, error) {
	query := `
		SELECT id, name, yield_qty, yield_unit_id, waste_percent, can_be_ingredient, computed_cost, updated_at
		FROM recipes
		WHERE id = $1
	`

	var recipe domain.Recipe
	if err := sqlx.GetContext(ctx, s.db, &recipe, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	return &recipe, nil
}

func (s *Store) AllRecipeIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, s.db, &ids, `SELECT id FROM recipes ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list recipe ids: %w", err)
	}
	return ids, nil
}

func (s *Store) CreateRecipe(ctx context.Context, recipe *domain.Recipe) error {
	query := `
		INSERT INTO recipes (
			id, name, yield_qty, yield_unit_id, waste_percent,
			can_be_ingredient, computed_cost, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	if _, err := s.db.ExecContext(ctx, query,
		recipe.ID, recipe.Name, recipe.YieldQty, recipe.YieldUnitID,
		recipe.WastePercent, recipe.CanBeIngredient, recipe.ComputedCost,
	); err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}
	return nil
}

func (s *Store) AddComponent(ctx context.Context, component *domain.RecipeComponent) error {
	query := `
		INSERT INTO recipe_components (
			id, recipe_id, component_type, component_id, qty, unit_id, sort_order
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := s.db.ExecContext(ctx, query,
		component.ID, component.RecipeID, component.ComponentType,
		component.ComponentID, component.Qty, component.UnitID, component.SortOrder,
	); err != nil {
		return fmt.Errorf("failed to add recipe component: %w", err)
	}
	return nil
}

func (s *Store) ListComponents(ctx context.Context, recipeID string) ([]*domain.RecipeComponent, error) {
	if _, err := s.GetRecipe(ctx, recipeID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, recipe_id, component_type, component_id, qty, unit_id, sort_order
		FROM recipe_components
		WHERE recipe_id = $1
		ORDER BY sort_order
	`

	var components []*domain.RecipeComponent
	if err := sqlx.SelectContext(ctx, s.db, &components, query, recipeID); err != nil {
		return nil, fmt.Errorf("failed to list recipe components: %w", err)
	}

	return components, nil
}

func (s *Store) ParentRecipeIDs(ctx context.Context, recipeID string) ([]string, error) {
	query := `
		SELECT DISTINCT recipe_id
		FROM recipe_components
		WHERE component_type = $1 AND component_id = $2
		ORDER BY recipe_id
	`

	var parents []string
	if err := sqlx.SelectContext(ctx, s.db, &parents, query, domain.ComponentRecipe, recipeID); err != nil {
		return nil, fmt.Errorf("failed to list parent recipes: %w", err)
	}

	return parents, nil
}

func (s *Store) UpdateComputedCost(ctx context.Context, id string, cost decimal.Decimal) error {
	query := `
		UPDATE recipes
		SET computed_cost = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, id, cost)
	if err != nil {
		return fmt.Errorf("failed to update computed cost: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return domain.ErrRecipeNotFound
	}
	return nil
}

func (s *Store) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	query := `
		SELECT id, name, recipe_id, price
		FROM menu_items
		WHERE id = $1
	`

	var item domain.MenuItem
	if err := sqlx.GetContext(ctx, s.db, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}

	return &item, nil
}

func (s *Store) CreateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	query := `
		INSERT INTO menu_items (id, name, recipe_id, price)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.db.ExecContext(ctx, query, item.ID, item.Name, item.RecipeID, item.Price); err != nil {
		return fmt.Errorf("failed to create menu item: %w", err)
	}
	return nil
}
