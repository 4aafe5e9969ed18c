package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/structura-io/structura/modules/estimation/domain/entities/estimate"
	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/ordering"
)

var ErrLineItemNotFound = fmt.Errorf("line item not found")

const lineItemFindQuery = `
	SELECT id, header_id, tenant_id, name, unit_cost, quantity, actual_cost, desired_profit,
	       contract_price, sales_tax_percentage, is_sales_tax_applicable, sort_order,
	       is_deleted, created_at, updated_at
	FROM estimate_line_items`

type LineItemRepository struct{}

func NewLineItemRepository() estimate.LineItemRepository {
	return &LineItemRepository{}
}

func (r *LineItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*estimate.LineItem, error) {
	items, err := r.queryLineItems(ctx, lineItemFindQuery+" WHERE id = $1 AND is_deleted = false FOR UPDATE", id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrLineItemNotFound
	}
	return items[0], nil
}

func (r *LineItemRepository) ListByHeader(ctx context.Context, headerID uuid.UUID) ([]*estimate.LineItem, error) {
	return r.queryLineItems(ctx, lineItemFindQuery+" WHERE header_id = $1 AND is_deleted = false ORDER BY sort_order", headerID)
}

func (r *LineItemRepository) ListBySheet(ctx context.Context, sheetID uuid.UUID) ([]*estimate.LineItem, error) {
	query := lineItemFindQuery + `
		WHERE is_deleted = false AND header_id IN (
			SELECT id FROM estimate_headers WHERE sheet_id = $1 AND is_deleted = false
		)
		ORDER BY header_id, sort_order
		FOR UPDATE`
	return r.queryLineItems(ctx, query, sheetID)
}

func (r *LineItemRepository) Create(ctx context.Context, item *estimate.LineItem) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO estimate_line_items (
			id, header_id, tenant_id, name, unit_cost, quantity, actual_cost, desired_profit,
			contract_price, sales_tax_percentage, is_sales_tax_applicable, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
	`
	_, err = tx.Exec(ctx, query,
		item.ID,
		item.HeaderID,
		item.TenantID,
		item.Name,
		item.UnitCost,
		item.Quantity,
		item.ActualCost,
		item.DesiredProfit,
		item.ContractPrice,
		item.SalesTaxPercentage,
		item.IsSalesTaxApplicable,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create line item")
	}
	return nil
}

func (r *LineItemRepository) Update(ctx context.Context, item *estimate.LineItem) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := `
		UPDATE estimate_line_items
		SET name = $2, unit_cost = $3, quantity = $4, actual_cost = $5, desired_profit = $6,
		    contract_price = $7, sales_tax_percentage = $8, is_sales_tax_applicable = $9,
		    updated_at = now()
		WHERE id = $1 AND is_deleted = false
	`
	tag, err := tx.Exec(ctx, query,
		item.ID,
		item.Name,
		item.UnitCost,
		item.Quantity,
		item.ActualCost,
		item.DesiredProfit,
		item.ContractPrice,
		item.SalesTaxPercentage,
		item.IsSalesTaxApplicable,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update line item")
	}
	if tag.RowsAffected() == 0 {
		return ErrLineItemNotFound
	}
	return nil
}

// UpdateContractPrice writes only the derived column. Policy migration must
// not touch any other field.
func (r *LineItemRepository) UpdateContractPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx,
		"UPDATE estimate_line_items SET contract_price = $2 WHERE id = $1 AND is_deleted = false",
		id, price,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update contract price")
	}
	if tag.RowsAffected() == 0 {
		return ErrLineItemNotFound
	}
	return nil
}

func (r *LineItemRepository) MarkDeletedByHeader(ctx context.Context, headerID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		"UPDATE estimate_line_items SET is_deleted = true, sort_order = 0, updated_at = now() WHERE header_id = $1 AND is_deleted = false",
		headerID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to delete line items by header")
	}
	return nil
}

func (r *LineItemRepository) queryLineItems(ctx context.Context, query string, args ...any) ([]*estimate.LineItem, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query line items")
	}
	defer rows.Close()

	var items []*estimate.LineItem
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "line item row iteration error")
	}
	return items, nil
}

func scanLineItem(row pgx.Row) (*estimate.LineItem, error) {
	var (
		item  estimate.LineItem
		order int
	)
	if err := row.Scan(
		&item.ID,
		&item.HeaderID,
		&item.TenantID,
		&item.Name,
		&item.UnitCost,
		&item.Quantity,
		&item.ActualCost,
		&item.DesiredProfit,
		&item.ContractPrice,
		&item.SalesTaxPercentage,
		&item.IsSalesTaxApplicable,
		&order,
		&item.IsDeleted,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan line item row")
	}
	if order >= 1 {
		item.Position = ordering.Active(order)
	} else {
		item.Position = ordering.Deleted()
	}
	return &item, nil
}
