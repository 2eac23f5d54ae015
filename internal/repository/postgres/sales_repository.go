// internal/repository/postgres/sales_repository.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/platewise/costing/internal/domain"
)

func (s *Store) CreateSale(ctx context.Context, sale *domain.Sale, lines []*domain.SaleLine) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sales (id, store_id, sold_at) VALUES ($1, $2, $3)`,
			sale.ID, sale.StoreID, sale.SoldAt,
		); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO sale_lines (id, sale_id, menu_item_id, qty) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("failed to prepare sale line statement: %w", err)
		}
		defer stmt.Close()

		for _, line := range lines {
			if _, err := stmt.ExecContext(ctx, line.ID, sale.ID, line.MenuItemID, line.Qty); err != nil {
				return fmt.Errorf("failed to create sale line: %w", err)
			}
		}

		return nil
	})
}

func (s *Store) SalesInRange(ctx context.Context, storeID string, start, end time.Time) ([]*domain.Sale, error) {
	query := `
		SELECT id, store_id, sold_at
		FROM sales
		WHERE store_id = $1 AND sold_at BETWEEN $2 AND $3
		ORDER BY sold_at
	`

	var sales []*domain.Sale
	if err := sqlx.SelectContext(ctx, s.db, &sales, query, storeID, start, end); err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	return sales, nil
}

func (s *Store) ListSaleLines(ctx context.Context, saleID string) ([]*domain.SaleLine, error) {
	query := `
		SELECT id, sale_id, menu_item_id, qty
		FROM sale_lines
		WHERE sale_id = $1
		ORDER BY id
	`

	var lines []*domain.SaleLine
	if err := sqlx.SelectContext(ctx, s.db, &lines, query, saleID); err != nil {
		return nil, fmt.Errorf("failed to list sale lines: %w", err)
	}

	return lines, nil
}
