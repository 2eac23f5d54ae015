// internal/domain/reports.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComponentImpact reports how much of a target item one full yield of a recipe
// consumes, and what that consumption costs.
type ComponentImpact struct {
	RecipeID         string          `json:"recipe_id"`
	ItemID           string          `json:"item_id"`
	UsesItem         bool            `json:"uses_item"`
	BaseQtyConsumed  float64         `json:"base_qty_consumed"`
	CostContribution decimal.Decimal `json:"cost_contribution"`
}

// ItemVariance compares actual usage against theoretical usage for one item
// over a reconciliation period.
type ItemVariance struct {
	ItemID          string          `json:"item_id"`
	TheoreticalQty  float64         `json:"theoretical_qty"`
	ActualQty       float64         `json:"actual_qty"`
	VarianceQty     float64         `json:"variance_qty"`
	VarianceCost    decimal.Decimal `json:"variance_cost"`
	VariancePercent float64         `json:"variance_percent"`
}

// OnHandEstimate projects current on-hand from the last physical count plus
// ledger activity since that count.
type OnHandEstimate struct {
	ItemID              string    `json:"item_id"`
	StoreID             string    `json:"store_id"`
	LastCountAt         time.Time `json:"last_count_at"`
	LastCountQty        float64   `json:"last_count_qty"`
	ReceivedQty         float64   `json:"received_qty"`
	WasteQty            float64   `json:"waste_qty"`
	TheoreticalUsageQty float64   `json:"theoretical_usage_qty"`
	TransferredOutQty   float64   `json:"transferred_out_qty"`
	TransferredInQty    float64   `json:"transferred_in_qty"`
	EstimatedOnHand     float64   `json:"estimated_on_hand"`
	BelowPar            bool      `json:"below_par"`
	BelowReorder        bool      `json:"below_reorder"`
}

// ActivityType labels one row of an itemized estimate breakdown.
type ActivityType string

const (
	ActivityReceipt     ActivityType = "receipt"
	ActivityWaste       ActivityType = "waste"
	ActivityTransferIn  ActivityType = "transfer_in"
	ActivityTransferOut ActivityType = "transfer_out"
	ActivityUsage       ActivityType = "usage"
)

// EstimateActivity is one ledger or sales event contributing to an estimate,
// for audit display. DeltaBaseUnits is signed.
type EstimateActivity struct {
	Type           ActivityType `json:"type"`
	ReferenceID    string       `json:"reference_id"`
	OccurredAt     time.Time    `json:"occurred_at"`
	DeltaBaseUnits float64      `json:"delta_base_units"`
	Detail         string       `json:"detail,omitempty"`
}
