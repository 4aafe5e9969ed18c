package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/structura-io/structura/modules/estimation/domain/entities/estimate"
	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/ordering"
)

var ErrHeaderNotFound = fmt.Errorf("estimate header not found")

const headerFindQuery = `
	SELECT id, sheet_id, tenant_id, name, sort_order, is_deleted, created_at, updated_at
	FROM estimate_headers`

type HeaderRepository struct{}

func NewHeaderRepository() estimate.HeaderRepository {
	return &HeaderRepository{}
}

func (r *HeaderRepository) GetByID(ctx context.Context, id uuid.UUID) (*estimate.Header, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, headerFindQuery+" WHERE id = $1 AND is_deleted = false FOR UPDATE", id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query header")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "header row iteration error")
		}
		return nil, ErrHeaderNotFound
	}
	return scanHeader(rows)
}

func (r *HeaderRepository) ListBySheet(ctx context.Context, sheetID uuid.UUID) ([]*estimate.Header, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, headerFindQuery+" WHERE sheet_id = $1 AND is_deleted = false ORDER BY sort_order", sheetID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list headers")
	}
	defer rows.Close()

	var headers []*estimate.Header
	for rows.Next() {
		header, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		headers = append(headers, header)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "header row iteration error")
	}
	return headers, nil
}

func (r *HeaderRepository) Create(ctx context.Context, header *estimate.Header) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	// sort_order stays 0 until the ledger assigns a position in the same
	// transaction.
	query := `
		INSERT INTO estimate_headers (id, sheet_id, tenant_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err = tx.Exec(ctx, query, header.ID, header.SheetID, header.TenantID, header.Name)
	if err != nil {
		return errors.Wrap(err, "failed to create header")
	}
	return nil
}

func (r *HeaderRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "UPDATE estimate_headers SET name = $2, updated_at = now() WHERE id = $1 AND is_deleted = false", id, name)
	if err != nil {
		return errors.Wrap(err, "failed to rename header")
	}
	if tag.RowsAffected() == 0 {
		return ErrHeaderNotFound
	}
	return nil
}

func scanHeader(row pgx.Row) (*estimate.Header, error) {
	var (
		header estimate.Header
		order  int
	)
	if err := row.Scan(
		&header.ID,
		&header.SheetID,
		&header.TenantID,
		&header.Name,
		&order,
		&header.IsDeleted,
		&header.CreatedAt,
		&header.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan header row")
	}
	if order >= 1 {
		header.Position = ordering.Active(order)
	} else {
		header.Position = ordering.Deleted()
	}
	return &header, nil
}
