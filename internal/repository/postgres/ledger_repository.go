// internal/repository/postgres/ledger_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/platewise/costing/internal/domain"
)

func (s *Store) GetOnHand(ctx context.Context, itemID, locationID string) (float64, error) {
	query := `
		SELECT COALESCE(
			(SELECT on_hand_base_units FROM inventory_levels WHERE item_id = $1 AND location_id = $2),
			0
		)
	`

	var onHand float64
	if err := sqlx.GetContext(ctx, s.db, &onHand, query, itemID, locationID); err != nil {
		return 0, fmt.Errorf("failed to get on-hand level: %w", err)
	}

	return onHand, nil
}

func (s *Store) SetOnHand(ctx context.Context, itemID, locationID string, baseQty float64) error {
	query := `
		INSERT INTO inventory_levels (item_id, location_id, on_hand_base_units, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (item_id, location_id)
		DO UPDATE SET on_hand_base_units = EXCLUDED.on_hand_base_units, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, itemID, locationID, baseQty); err != nil {
		return fmt.Errorf("failed to set on-hand level: %w", err)
	}
	return nil
}

func (s *Store) MoveOnHand(ctx context.Context, itemID, fromLocationID, toLocationID string, baseQty float64) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		adjust := `
			INSERT INTO inventory_levels (item_id, location_id, on_hand_base_units, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (item_id, location_id)
			DO UPDATE SET on_hand_base_units = inventory_levels.on_hand_base_units + EXCLUDED.on_hand_base_units,
			              updated_at = NOW()
		`
		if _, err := tx.ExecContext(ctx, adjust, itemID, fromLocationID, -baseQty); err != nil {
			return fmt.Errorf("failed to debit source location: %w", err)
		}
		if _, err := tx.ExecContext(ctx, adjust, itemID, toLocationID, baseQty); err != nil {
			return fmt.Errorf("failed to credit destination location: %w", err)
		}
		return nil
	})
}

func (s *Store) CreateCount(ctx context.Context, count *domain.InventoryCount) error {
	query := `
		INSERT INTO inventory_counts (id, location_id, counted_at)
		VALUES ($1, $2, $3)
	`

	if _, err := s.db.ExecContext(ctx, query, count.ID, count.LocationID, count.CountedAt); err != nil {
		return fmt.Errorf("failed to create count: %w", err)
	}
	return nil
}

func (s *Store) GetCount(ctx context.Context, id string) (*domain.InventoryCount, error) {
	query := `
		SELECT id, location_id, counted_at
		FROM inventory_counts
		WHERE id = $1
	`

	var count domain.InventoryCount
	if err := sqlx.GetContext(ctx, s.db, &count, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCountNotFound
		}
		return nil, fmt.Errorf("failed to get count: %w", err)
	}

	return &count, nil
}

func (s *Store) CreateCountLine(ctx context.Context, line *domain.InventoryCountLine) error {
	query := `
		INSERT INTO inventory_count_lines (
			id, count_id, item_id, qty, unit_id, derived_base_units, unit_cost_snapshot
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := s.db.ExecContext(ctx, query,
		line.ID, line.CountID, line.ItemID, line.Qty,
		line.UnitID, line.DerivedBaseUnits, line.UnitCostSnapshot,
	); err != nil {
		return fmt.Errorf("failed to create count line: %w", err)
	}
	return nil
}

func (s *Store) GetCountLine(ctx context.Context, lineID string) (*domain.InventoryCountLine, error) {
	query := `
		SELECT id, count_id, item_id, qty, unit_id, derived_base_units, unit_cost_snapshot
		FROM inventory_count_lines
		WHERE id = $1
	`

	var line domain.InventoryCountLine
	if err := sqlx.GetContext(ctx, s.db, &line, query, lineID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCountLineNotFound
		}
		return nil, fmt.Errorf("failed to get count line: %w", err)
	}

	return &line, nil
}

func (s *Store) UpdateCountLine(ctx context.Context, line *domain.InventoryCountLine) error {
	query := `
		UPDATE inventory_count_lines
		SET qty = $2, unit_id = $3, derived_base_units = $4
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, line.ID, line.Qty, line.UnitID, line.DerivedBaseUnits)
	if err != nil {
		return fmt.Errorf("failed to update count line: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return domain.ErrCountLineNotFound
	}
	return nil
}

func (s *Store) ListCountLines(ctx context.Context, countID string) ([]*domain.InventoryCountLine, error) {
	if _, err := s.GetCount(ctx, countID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, count_id, item_id, qty, unit_id, derived_base_units, unit_cost_snapshot
		FROM inventory_count_lines
		WHERE count_id = $1
		ORDER BY id
	`

	var lines []*domain.InventoryCountLine
	if err := sqlx.SelectContext(ctx, s.db, &lines, query, countID); err != nil {
		return nil, fmt.Errorf("failed to list count lines: %w", err)
	}

	return lines, nil
}

func (s *Store) DeleteCount(ctx context.Context, countID string) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM inventory_count_lines WHERE count_id = $1`, countID,
		); err != nil {
			return fmt.Errorf("failed to delete count lines: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM inventory_counts WHERE id = $1`, countID)
		if err != nil {
			return fmt.Errorf("failed to delete count: %w", err)
		}
		if rows, err := result.RowsAffected(); err == nil && rows == 0 {
			return domain.ErrCountNotFound
		}
		return nil
	})
}

func (s *Store) CountsInRange(ctx context.Context, locationID string, start, end time.Time) ([]*domain.InventoryCount, error) {
	query := `
		SELECT id, location_id, counted_at
		FROM inventory_counts
		WHERE location_id = $1 AND counted_at BETWEEN $2 AND $3
		ORDER BY counted_at
	`

	var counts []*domain.InventoryCount
	if err := sqlx.SelectContext(ctx, s.db, &counts, query, locationID, start, end); err != nil {
		return nil, fmt.Errorf("failed to list counts in range: %w", err)
	}

	return counts, nil
}

func (s *Store) LatestCountLine(ctx context.Context, itemID, locationID string) (*domain.InventoryCount, *domain.InventoryCountLine, error) {
	query := `
		SELECT
			c.id AS count_id, c.location_id, c.counted_at,
			l.id AS line_id, l.qty, l.unit_id, l.derived_base_units, l.unit_cost_snapshot
		FROM inventory_count_lines l
		JOIN inventory_counts c ON l.count_id = c.id
		WHERE l.item_id = $1 AND c.location_id = $2
		ORDER BY c.counted_at DESC
		LIMIT 1
	`

	var row struct {
		CountID          string    `db:"count_id"`
		LocationID       string    `db:"location_id"`
		CountedAt        time.Time `db:"counted_at"`
		LineID           string    `db:"line_id"`
		Qty              float64   `db:"qty"`
		UnitID           string    `db:"unit_id"`
		DerivedBaseUnits float64   `db:"derived_base_units"`
		UnitCostSnapshot string    `db:"unit_cost_snapshot"`
	}
	if err := sqlx.GetContext(ctx, s.db, &row, query, itemID, locationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.ErrNoBaseline
		}
		return nil, nil, fmt.Errorf("failed to get latest count line: %w", err)
	}

	line, err := s.GetCountLine(ctx, row.LineID)
	if err != nil {
		return nil, nil, err
	}

	count := &domain.InventoryCount{
		ID:         row.CountID,
		LocationID: row.LocationID,
		CountedAt:  row.CountedAt,
	}
	return count, line, nil
}

func (s *Store) CreateReceiptLine(ctx context.Context, line *domain.ReceiptLine) error {
	query := `
		INSERT INTO receipt_lines (
			id, receipt_id, item_id, location_id, qty, unit_id,
			derived_base_units, price_each, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if _, err := s.db.ExecContext(ctx, query,
		line.ID, line.ReceiptID, line.ItemID, line.LocationID, line.Qty,
		line.UnitID, line.DerivedBaseUnits, line.PriceEach, line.ReceivedAt,
	); err != nil {
		return fmt.Errorf("failed to create receipt line: %w", err)
	}
	return nil
}

func (s *Store) ReceiptsForItem(ctx context.Context, itemID, locationID string, start, end time.Time) ([]*domain.ReceiptLine, error) {
	query := `
		SELECT id, receipt_id, item_id, location_id, qty, unit_id,
		       derived_base_units, price_each, received_at
		FROM receipt_lines
		WHERE item_id = $1 AND location_id = $2 AND received_at BETWEEN $3 AND $4
		ORDER BY received_at
	`

	var lines []*domain.ReceiptLine
	if err := sqlx.SelectContext(ctx, s.db, &lines, query, itemID, locationID, start, end); err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	return lines, nil
}

func (s *Store) CreateTransfer(ctx context.Context, log *domain.TransferLog) error {
	query := `
		INSERT INTO transfer_logs (
			id, item_id, from_location_id, to_location_id, derived_base_units, transferred_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := s.db.ExecContext(ctx, query,
		log.ID, log.ItemID, log.FromLocationID, log.ToLocationID,
		log.DerivedBaseUnits, log.TransferredAt,
	); err != nil {
		return fmt.Errorf("failed to create transfer log: %w", err)
	}
	return nil
}

func (s *Store) TransfersForItem(ctx context.Context, itemID, locationID string, start, end time.Time) ([]*domain.TransferLog, error) {
	query := `
		SELECT id, item_id, from_location_id, to_location_id, derived_base_units, transferred_at
		FROM transfer_logs
		WHERE item_id = $1
		  AND (from_location_id = $2 OR to_location_id = $2)
		  AND transferred_at BETWEEN $3 AND $4
		ORDER BY transferred_at
	`

	var logs []*domain.TransferLog
	if err := sqlx.SelectContext(ctx, s.db, &logs, query, itemID, locationID, start, end); err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}

	return logs, nil
}

func (s *Store) CreateWaste(ctx context.Context, log *domain.WasteLog) error {
	query := `
		INSERT INTO waste_logs (
			id, item_id, location_id, derived_base_units, reason_code, wasted_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := s.db.ExecContext(ctx, query,
		log.ID, log.ItemID, log.LocationID, log.DerivedBaseUnits,
		log.ReasonCode, log.WastedAt,
	); err != nil {
		return fmt.Errorf("failed to create waste log: %w", err)
	}
	return nil
}

func (s *Store) WastesForItem(ctx context.Context, itemID, locationID string, start, end time.Time) ([]*domain.WasteLog, error) {
	query := `
		SELECT id, item_id, location_id, derived_base_units, reason_code, wasted_at
		FROM waste_logs
		WHERE item_id = $1 AND location_id = $2 AND wasted_at BETWEEN $3 AND $4
		ORDER BY wasted_at
	`

	var logs []*domain.WasteLog
	if err := sqlx.SelectContext(ctx, s.db, &logs, query, itemID, locationID, start, end); err != nil {
		return nil, fmt.Errorf("failed to list waste logs: %w", err)
	}

	return logs, nil
}
