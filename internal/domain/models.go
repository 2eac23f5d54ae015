// internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitKind is the measurement dimension of a unit.
type UnitKind string

const (
	KindMass   UnitKind = "mass"
	KindVolume UnitKind = "volume"
	KindCount  UnitKind = "count"
)

// UnitSystem distinguishes US and metric units.
type UnitSystem string

const (
	SystemUS     UnitSystem = "us"
	SystemMetric UnitSystem = "metric"
)

// Unit is a unit of measure. All units of the same kind convert through a
// single shared base unit; ToBaseRatio is the factor from 1 unit to 1 base unit.
type Unit struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Kind        UnitKind   `json:"kind" db:"kind"`
	ToBaseRatio float64    `json:"to_base_ratio" db:"to_base_ratio"`
	System      UnitSystem `json:"system" db:"system"`
}

// InventoryItem is a purchasable product. LastCost is cost per base unit.
// YieldPercent models the usable fraction after trim; zero means 100.
type InventoryItem struct {
	ID                 string          `json:"id" db:"id"`
	Name               string          `json:"name" db:"name"`
	UnitID             string          `json:"unit_id" db:"unit_id"`
	CaseSize           float64         `json:"case_size" db:"case_size"`
	LastCost           decimal.Decimal `json:"last_cost" db:"last_cost"`
	YieldPercent       float64         `json:"yield_percent" db:"yield_percent"`
	ParLevel           *float64        `json:"par_level,omitempty" db:"par_level"`
	ReorderLevel       *float64        `json:"reorder_level,omitempty" db:"reorder_level"`
	StorageLocationIDs []string        `json:"storage_location_ids" db:"-"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// EffectiveCostPerBaseUnit inflates LastCost by the item's yield loss.
func (i *InventoryItem) EffectiveCostPerBaseUnit() decimal.Decimal {
	yield := i.YieldPercent
	if yield <= 0 || yield > 100 {
		yield = 100
	}
	return i.LastCost.Div(decimal.NewFromFloat(yield / 100))
}

// Recipe yields YieldQty of YieldUnitID; its cost is distributed over that yield.
// ComputedCost is a cache, never a source of truth.
type Recipe struct {
	ID              string           `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	YieldQty        float64          `json:"yield_qty" db:"yield_qty"`
	YieldUnitID     string           `json:"yield_unit_id" db:"yield_unit_id"`
	WastePercent    float64          `json:"waste_percent" db:"waste_percent"`
	CanBeIngredient bool             `json:"can_be_ingredient" db:"can_be_ingredient"`
	ComputedCost    *decimal.Decimal `json:"computed_cost,omitempty" db:"computed_cost"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// ComponentType tags a recipe component as an item or a nested recipe.
type ComponentType string

const (
	ComponentInventoryItem ComponentType = "inventory_item"
	ComponentRecipe        ComponentType = "recipe"
)

// RecipeComponent is one line of a recipe. The component graph must stay acyclic.
type RecipeComponent struct {
	ID            string        `json:"id" db:"id"`
	RecipeID      string        `json:"recipe_id" db:"recipe_id"`
	ComponentType ComponentType `json:"component_type" db:"component_type"`
	ComponentID   string        `json:"component_id" db:"component_id"`
	Qty           float64       `json:"qty" db:"qty"`
	UnitID        string        `json:"unit_id" db:"unit_id"`
	SortOrder     int           `json:"sort_order" db:"sort_order"`
}

// MenuItem links a sellable item to the recipe it consumes.
type MenuItem struct {
	ID       string          `json:"id" db:"id"`
	Name     string          `json:"name" db:"name"`
	RecipeID *string         `json:"recipe_id,omitempty" db:"recipe_id"`
	Price    decimal.Decimal `json:"price" db:"price"`
}

// InventoryLevel is the derived on-hand running total per item and location.
// It is reconstructable by replaying ledger events.
type InventoryLevel struct {
	ItemID          string    `json:"item_id" db:"item_id"`
	LocationID      string    `json:"location_id" db:"location_id"`
	OnHandBaseUnits float64   `json:"on_hand_base_units" db:"on_hand_base_units"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// InventoryCount groups count lines under one location/time snapshot. It is the
// reconciliation checkpoint.
type InventoryCount struct {
	ID         string    `json:"id" db:"id"`
	LocationID string    `json:"location_id" db:"location_id"`
	CountedAt  time.Time `json:"counted_at" db:"counted_at"`
}

// InventoryCountLine is one counted item. DerivedBaseUnits and UnitCostSnapshot
// are frozen at creation; valuation of a historical count must never change when
// the item's current cost changes later.
type InventoryCountLine struct {
	ID               string          `json:"id" db:"id"`
	CountID          string          `json:"count_id" db:"count_id"`
	ItemID           string          `json:"item_id" db:"item_id"`
	Qty              float64         `json:"qty" db:"qty"`
	UnitID           string          `json:"unit_id" db:"unit_id"`
	DerivedBaseUnits float64         `json:"derived_base_units" db:"derived_base_units"`
	UnitCostSnapshot decimal.Decimal `json:"unit_cost_snapshot" db:"unit_cost_snapshot"`
}

// ReceiptLine records received stock. PriceEach is the price per purchase unit.
type ReceiptLine struct {
	ID               string          `json:"id" db:"id"`
	ReceiptID        string          `json:"receipt_id" db:"receipt_id"`
	ItemID           string          `json:"item_id" db:"item_id"`
	LocationID       string          `json:"location_id" db:"location_id"`
	Qty              float64         `json:"qty" db:"qty"`
	UnitID           string          `json:"unit_id" db:"unit_id"`
	DerivedBaseUnits float64         `json:"derived_base_units" db:"derived_base_units"`
	PriceEach        decimal.Decimal `json:"price_each" db:"price_each"`
	ReceivedAt       time.Time       `json:"received_at" db:"received_at"`
}

// TransferLog records stock moved between two locations.
type TransferLog struct {
	ID               string    `json:"id" db:"id"`
	ItemID           string    `json:"item_id" db:"item_id"`
	FromLocationID   string    `json:"from_location_id" db:"from_location_id"`
	ToLocationID     string    `json:"to_location_id" db:"to_location_id"`
	DerivedBaseUnits float64   `json:"derived_base_units" db:"derived_base_units"`
	TransferredAt    time.Time `json:"transferred_at" db:"transferred_at"`
}

// WasteLog records stock written off at a location.
type WasteLog struct {
	ID               string    `json:"id" db:"id"`
	ItemID           string    `json:"item_id" db:"item_id"`
	LocationID       string    `json:"location_id" db:"location_id"`
	DerivedBaseUnits float64   `json:"derived_base_units" db:"derived_base_units"`
	ReasonCode       string    `json:"reason_code" db:"reason_code"`
	WastedAt         time.Time `json:"wasted_at" db:"wasted_at"`
}

// Sale is one POS ticket.
type Sale struct {
	ID      string    `json:"id" db:"id"`
	StoreID string    `json:"store_id" db:"store_id"`
	SoldAt  time.Time `json:"sold_at" db:"sold_at"`
}

// SaleLine is one sold menu item on a ticket.
type SaleLine struct {
	ID         string  `json:"id" db:"id"`
	SaleID     string  `json:"sale_id" db:"sale_id"`
	MenuItemID string  `json:"menu_item_id" db:"menu_item_id"`
	Qty        float64 `json:"qty" db:"qty"`
}
