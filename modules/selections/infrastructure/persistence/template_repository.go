package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/structura-io/structura/modules/selections/domain/entities/selection"
	"github.com/structura-io/structura/pkg/composables"
)

var ErrTemplateNotFound = fmt.Errorf("selection template not found")

const templateFindQuery = `
	SELECT id, tenant_id, name, is_deleted, created_at, updated_at
	FROM selection_templates`

type TemplateRepository struct{}

func NewTemplateRepository() selection.TemplateRepository {
	return &TemplateRepository{}
}

func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*selection.Template, error) {
	return r.findByID(ctx, id, "")
}

// LockByID takes the template's row lock. Category mutations lock through
// here so concurrent moves in either dimension serialize per template.
func (r *TemplateRepository) LockByID(ctx context.Context, id uuid.UUID) (*selection.Template, error) {
	return r.findByID(ctx, id, " FOR UPDATE")
}

func (r *TemplateRepository) findByID(ctx context.Context, id uuid.UUID, suffix string) (*selection.Template, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, templateFindQuery+" WHERE id = $1 AND is_deleted = false"+suffix, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query template")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "template row iteration error")
		}
		return nil, ErrTemplateNotFound
	}
	return scanTemplate(rows)
}

func (r *TemplateRepository) List(ctx context.Context) ([]*selection.Template, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, templateFindQuery+" WHERE is_deleted = false ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list templates")
	}
	defer rows.Close()

	var templates []*selection.Template
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "template row iteration error")
	}
	return templates, nil
}

func (r *TemplateRepository) Create(ctx context.Context, template *selection.Template) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO selection_templates (id, tenant_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`
	_, err = tx.Exec(ctx, query, template.ID, template.TenantID, template.Name)
	if err != nil {
		return errors.Wrap(err, "failed to create template")
	}
	return nil
}

func (r *TemplateRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "UPDATE selection_templates SET name = $2, updated_at = now() WHERE id = $1 AND is_deleted = false", id, name)
	if err != nil {
		return errors.Wrap(err, "failed to rename template")
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
	tag, err := tx.Exec(ctx, "UPDATE selection_templates SET is_deleted = true, updated_at = now() WHERE id = $1 AND is_deleted = false", id)
	if err != nil {
		return errors.Wrap(err, "failed to delete template")
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func scanTemplate(row pgx.Row) (*selection.Template, error) {
	var template selection.Template
	if err := row.Scan(
		&template.ID,
		&template.TenantID,
		&template.Name,
		&template.IsDeleted,
		&template.CreatedAt,
		&template.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan template row")
	}
	return &template, nil
}
