package repository

import (
	"context"
	"database/sql"
	"fmt"

	"restaurant-pos/internal/domain"
)

type SaleRecorder interface {
	CreateSaleRecord(ctx context.Context, rec domain.SaleRecord) error
}

type SalesPG struct {
	db *sql.DB
}

func NewSalesPG(db *sql.DB) *SalesPG { return &SalesPG{db: db} }

func (r *SalesPG) CreateSaleRecord(ctx context.Context, rec domain.SaleRecord) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// 1. sale header
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales
		    (id, order_id, table_id, customer_id, subtotal, tax, grand_total, payment_method, tendered, change_due, created_at)
		VALUES
		    ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		rec.ID,
		rec.OrderID,
		nullIfEmpty(rec.TableID),
		nullIfEmpty(rec.CustomerID),
		rec.Totals.Subtotal,
		rec.Totals.Tax,
		rec.Totals.GrandTotal,
		string(rec.Payment.Method),
		rec.Payment.Tendered,
		rec.Change,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	// 2. lines
	for _, l := range rec.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, item_id, name, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, rec.ID, l.ItemID, l.Name, l.Quantity, l.UnitPrice, l.LineTotal)
		if err != nil {
			return fmt.Errorf("failed to insert sale item %s: %w", l.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
