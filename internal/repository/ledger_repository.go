// internal/repository/ledger_repository.go
package repository

import (
	"context"
	"time"

	"github.com/platewise/costing/internal/domain"
)

// LevelStore holds the derived on-hand running totals. Rows are keyed by
// (itemID, locationID); a missing row reads as zero on-hand.
type LevelStore interface {
	GetOnHand(ctx context.Context, itemID, locationID string) (float64, error)
	SetOnHand(ctx context.Context, itemID, locationID string, baseQty float64) error
	// MoveOnHand debits the source and credits the destination as one atomic
	// update. The caller is responsible for the insufficiency check.
	MoveOnHand(ctx context.Context, itemID, fromLocationID, toLocationID string, baseQty float64) error
}

// CountStore holds count sessions and their lines.
type CountStore interface {
	CreateCount(ctx context.Context, count *domain.InventoryCount) error
	GetCount(ctx context.Context, id string) (*domain.InventoryCount, error)
	CreateCountLine(ctx context.Context, line *domain.InventoryCountLine) error
	GetCountLine(ctx context.Context, lineID string) (*domain.InventoryCountLine, error)
	UpdateCountLine(ctx context.Context, line *domain.InventoryCountLine) error
	ListCountLines(ctx context.Context, countID string) ([]*domain.InventoryCountLine, error)
	// DeleteCount removes the session and all its lines atomically.
	DeleteCount(ctx context.Context, countID string) error
	// CountsInRange returns count sessions at a location ordered by counted-at
	// ascending.
	CountsInRange(ctx context.Context, locationID string, start, end time.Time) ([]*domain.InventoryCount, error)
	// LatestCountLine returns the most recent count session containing the item
	// at the location, with the item's line from that session.
	LatestCountLine(ctx context.Context, itemID, locationID string) (*domain.InventoryCount, *domain.InventoryCountLine, error)
}

// ReceiptStore holds receipt lines.
type ReceiptStore interface {
	CreateReceiptLine(ctx context.Context, line *domain.ReceiptLine) error
	ReceiptsForItem(ctx context.Context, itemID, locationID string, start, end time.Time) ([]*domain.ReceiptLine, error)
}

// TransferStore holds transfer logs.
type TransferStore interface {
	CreateTransfer(ctx context.Context, log *domain.TransferLog) error
	// TransfersForItem returns transfers touching the location on either side.
	TransfersForItem(ctx context.Context, itemID, locationID string, start, end time.Time) ([]*domain.TransferLog, error)
}

// WasteStore holds waste logs.
type WasteStore interface {
	CreateWaste(ctx context.Context, log *domain.WasteLog) error
	WastesForItem(ctx context.Context, itemID, locationID string, start, end time.Time) ([]*domain.WasteLog, error)
}
