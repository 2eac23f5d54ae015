// internal/repository/sales_repository.go
package repository

import (
	"context"
	"time"

	"github.com/platewise/costing/internal/domain"
)

// SaleStore holds POS sales and their lines.
type SaleStore interface {
	CreateSale(ctx context.Context, sale *domain.Sale, lines []*domain.SaleLine) error
	// SalesInRange returns sales at a store ordered by sold-at ascending.
	SalesInRange(ctx context.Context, storeID string, start, end time.Time) ([]*domain.Sale, error)
	ListSaleLines(ctx context.Context, saleID string) ([]*domain.SaleLine, error)
}

// Store bundles every record-store concern the engine consumes. The engine
// components depend on the narrow interfaces; Store exists for wiring.
type Store interface {
	UnitStore
	ItemStore
	RecipeStore
	MenuStore
	LevelStore
	CountStore
	ReceiptStore
	TransferStore
	WasteStore
	SaleStore
}
