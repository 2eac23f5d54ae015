// internal/repository/master_repository.go
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/platewise/costing/internal/domain"
)

// UnitStore provides access to units of measure.
type UnitStore interface {
	GetUnit(ctx context.Context, id string) (*domain.Unit, error)
	ListUnits(ctx context.Context) ([]*domain.Unit, error)
	CreateUnit(ctx context.Context, unit *domain.Unit) error
}

// ItemStore provides access to inventory items.
type ItemStore interface {
	GetItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	ListItems(ctx context.Context) ([]*domain.InventoryItem, error)
	CreateItem(ctx context.Context, item *domain.InventoryItem) error
	// UpdateItemCost overwrites the item's moving last cost (per base unit).
	UpdateItemCost(ctx context.Context, id string, cost decimal.Decimal) error
}

// RecipeStore provides access to recipes and their component graph.
type RecipeStore interface {
	GetRecipe(ctx context.Context, id string) (*domain.Recipe, error)
	AllRecipeIDs(ctx context.Context) ([]string, error)
	CreateRecipe(ctx context.Context, recipe *domain.Recipe) error
	AddComponent(ctx context.Context, component *domain.RecipeComponent) error
	// ListComponents returns the recipe's components ordered by sort order.
	ListComponents(ctx context.Context, recipeID string) ([]*domain.RecipeComponent, error)
	// ParentRecipeIDs returns the recipes that use the given recipe as a
	// component, for cascading cost invalidation.
	ParentRecipeIDs(ctx context.Context, recipeID string) ([]string, error)
	UpdateComputedCost(ctx context.Context, id string, cost decimal.Decimal) error
}

// MenuStore provides access to menu items.
type MenuStore interface {
	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
	CreateMenuItem(ctx context.Context, item *domain.MenuItem) error
}
