package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/structura-io/structura/modules/questionnaire/domain/entities/questionnaire"
	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/ordering"
)

var (
	ErrTemplateNotFound = fmt.Errorf("questionnaire template not found")
	ErrCategoryNotFound = fmt.Errorf("questionnaire category not found")
)

const templateFindQuery = `
	SELECT id, tenant_id, name, is_deleted, created_at, updated_at
	FROM questionnaire_templates`

type TemplateRepository struct{}

func NewTemplateRepository() questionnaire.TemplateRepository {
	return &TemplateRepository{}
}

func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*questionnaire.Template, error) {
	return r.findByID(ctx, id, "")
}

func (r *TemplateRepository) LockByID(ctx context.Context, id uuid.UUID) (*questionnaire.Template, error) {
	return r.findByID(ctx, id, " FOR UPDATE")
}

func (r *TemplateRepository) findByID(ctx context.Context, id uuid.UUID, suffix string) (*questionnaire.Template, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, templateFindQuery+" WHERE id = $1 AND is_deleted = false"+suffix, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query questionnaire template")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "questionnaire template row iteration error")
		}
		return nil, ErrTemplateNotFound
	}
	return scanTemplate(rows)
}

func (r *TemplateRepository) List(ctx context.Context) ([]*questionnaire.Template, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, templateFindQuery+" WHERE is_deleted = false ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list questionnaire templates")
	}
	defer rows.Close()

	var templates []*questionnaire.Template
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "questionnaire template row iteration error")
	}
	return templates, nil
}

func (r *TemplateRepository) Create(ctx context.Context, template *questionnaire.Template) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO questionnaire_templates (id, tenant_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`
	_, err = tx.Exec(ctx, query, template.ID, template.TenantID, template.Name)
	if err != nil {
		return errors.Wrap(err, "failed to create questionnaire template")
	}
	return nil
}

func (r *TemplateRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "UPDATE questionnaire_templates SET name = $2, updated_at = now() WHERE id = $1 AND is_deleted = false", id, name)
	if err != nil {
		return errors.Wrap(err, "failed to rename questionnaire template")
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (r *TemplateRepository) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "UPDATE questionnaire_templates SET is_deleted = true, updated_at = now() WHERE id = $1 AND is_deleted = false", id)
	if err != nil {
		return errors.Wrap(err, "failed to delete questionnaire template")
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func scanTemplate(row pgx.Row) (*questionnaire.Template, error) {
	var template questionnaire.Template
	if err := row.Scan(
		&template.ID,
		&template.TenantID,
		&template.Name,
		&template.IsDeleted,
		&template.CreatedAt,
		&template.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan questionnaire template row")
	}
	return &template, nil
}

const categoryFindQuery = `
	SELECT id, template_id, tenant_id, name, sort_order, is_deleted, created_at, updated_at
	FROM questionnaire_categories`

type CategoryRepository struct{}

func NewCategoryRepository() questionnaire.CategoryRepository {
	return &CategoryRepository{}
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*questionnaire.Category, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, categoryFindQuery+" WHERE id = $1 AND is_deleted = false FOR UPDATE", id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query questionnaire category")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "questionnaire category row iteration error")
		}
		return nil, ErrCategoryNotFound
	}
	return scanCategory(rows)
}

func (r *CategoryRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*questionnaire.Category, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, categoryFindQuery+" WHERE template_id = $1 AND is_deleted = false ORDER BY sort_order", templateID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list questionnaire categories")
	}
	defer rows.Close()

	var categories []*questionnaire.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "questionnaire category row iteration error")
	}
	return categories, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *questionnaire.Category) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	// sort_order stays 0 until the ledger assigns a position in the same
	// transaction.
	query := `
		INSERT INTO questionnaire_categories (id, template_id, tenant_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err = tx.Exec(ctx, query, category.ID, category.TemplateID, category.TenantID, category.Name)
	if err != nil {
		return errors.Wrap(err, "failed to create questionnaire category")
	}
	return nil
}

func (r *CategoryRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "UPDATE questionnaire_categories SET name = $2, updated_at = now() WHERE id = $1 AND is_deleted = false", id, name)
	if err != nil {
		return errors.Wrap(err, "failed to rename questionnaire category")
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func scanCategory(row pgx.Row) (*questionnaire.Category, error) {
	var (
		category questionnaire.Category
		order    int
	)
	if err := row.Scan(
		&category.ID,
		&category.TemplateID,
		&category.TenantID,
		&category.Name,
		&order,
		&category.IsDeleted,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan questionnaire category row")
	}
	if order >= 1 {
		category.Position = ordering.Active(order)
	} else {
		category.Position = ordering.Deleted()
	}
	return &category, nil
}

// CategorySiblings is the ordering dimension of questionnaire categories
// under a template.
func CategorySiblings() ordering.SiblingStore {
	return &categorySiblingStore{}
}

type categorySiblingStore struct{}

func (s *categorySiblingStore) Siblings(ctx context.Context, parentID uuid.UUID) ([]ordering.Node, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		"SELECT id, sort_order FROM questionnaire_categories WHERE template_id = $1 AND is_deleted = false ORDER BY sort_order FOR UPDATE",
		parentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read siblings")
	}
	defer rows.Close()

	var nodes []ordering.Node
	for rows.Next() {
		var (
			id    uuid.UUID
			order int
		)
		if err := rows.Scan(&id, &order); err != nil {
			return nil, errors.Wrap(err, "failed to scan sibling row")
		}
		if order < 1 {
			continue
		}
		nodes = append(nodes, ordering.Node{ID: id, Position: ordering.Active(order)})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sibling row iteration error")
	}
	return nodes, nil
}

func (s *categorySiblingStore) ShiftRange(ctx context.Context, parentID uuid.UUID, lo, hi, delta int) error {
	if lo > hi || delta == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		"UPDATE questionnaire_categories SET sort_order = sort_order + $2, updated_at = now() WHERE template_id = $1 AND is_deleted = false AND sort_order BETWEEN $3 AND $4",
		parentID, delta, lo, hi,
	)
	if err != nil {
		return errors.Wrap(err, "failed to shift sibling range")
	}
	return nil
}

func (s *categorySiblingStore) SetOrder(ctx context.Context, id uuid.UUID, order int) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, "UPDATE questionnaire_categories SET sort_order = $2, updated_at = now() WHERE id = $1", id, order)
	if err != nil {
		return errors.Wrap(err, "failed to set sibling order")
	}
	return nil
}

func (s *categorySiblingStore) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, "UPDATE questionnaire_categories SET is_deleted = true, sort_order = 0, updated_at = now() WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "failed to mark sibling deleted")
	}
	return nil
}
