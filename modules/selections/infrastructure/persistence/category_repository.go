package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/structura-io/structura/modules/selections/domain/entities/selection"
	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/ordering"
)

var ErrCategoryNotFound = fmt.Errorf("selection category not found")

const categoryFindQuery = `
	SELECT id, template_id, tenant_id, name, initial_sort_order, paint_sort_order, is_deleted, created_at, updated_at
	FROM selection_categories`

type CategoryRepository struct{}

func NewCategoryRepository() selection.CategoryRepository {
	return &CategoryRepository{}
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*selection.Category, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, categoryFindQuery+" WHERE id = $1 AND is_deleted = false FOR UPDATE", id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query category")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "category row iteration error")
		}
		return nil, ErrCategoryNotFound
	}
	return scanCategory(rows)
}

func (r *CategoryRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID, dim selection.Dimension) ([]*selection.Category, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		"%s WHERE template_id = $1 AND is_deleted = false ORDER BY %s",
		categoryFindQuery, categoryOrderColumn(dim),
	)
	rows, err := tx.Query(ctx, query, templateID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list categories")
	}
	defer rows.Close()

	var categories []*selection.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "category row iteration error")
	}
	return categories, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *selection.Category) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	// Both order columns stay 0 until the ledgers assign positions in the
	// same transaction.
	query := `
		INSERT INTO selection_categories (id, template_id, tenant_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err = tx.Exec(ctx, query, category.ID, category.TemplateID, category.TenantID, category.Name)
	if err != nil {
		return errors.Wrap(err, "failed to create category")
	}
	return nil
}

func (r *CategoryRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "UPDATE selection_categories SET name = $2, updated_at = now() WHERE id = $1 AND is_deleted = false", id, name)
	if err != nil {
		return errors.Wrap(err, "failed to rename category")
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// MarkDeleted zeroes both dimensions in one statement. The caller compacts
// each surviving sibling set separately with the order values it captured
// before this call.
func (r *CategoryRepository) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := `
		UPDATE selection_categories
		SET is_deleted = true, initial_sort_order = 0, paint_sort_order = 0, updated_at = now()
		WHERE id = $1 AND is_deleted = false
	`
	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete category")
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func scanCategory(row pgx.Row) (*selection.Category, error) {
	var (
		category     selection.Category
		initialOrder int
		paintOrder   int
	)
	if err := row.Scan(
		&category.ID,
		&category.TemplateID,
		&category.TenantID,
		&category.Name,
		&initialOrder,
		&paintOrder,
		&category.IsDeleted,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan category row")
	}
	category.InitialPosition = toPosition(initialOrder)
	category.PaintPosition = toPosition(paintOrder)
	return &category, nil
}

func toPosition(order int) ordering.Position {
	if order >= 1 {
		return ordering.Active(order)
	}
	return ordering.Deleted()
}
