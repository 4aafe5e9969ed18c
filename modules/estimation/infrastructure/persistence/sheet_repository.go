package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/structura-io/structura/modules/estimation/domain/entities/estimate"
	"github.com/structura-io/structura/modules/estimation/domain/pricing"
	"github.com/structura-io/structura/pkg/composables"
)

var ErrSheetNotFound = fmt.Errorf("estimate sheet not found")

const sheetFindQuery = `
	SELECT id, tenant_id, kind, job_id, name, profit_calculation_type, is_deleted, created_at, updated_at
	FROM estimate_sheets`

type SheetRepository struct{}

func NewSheetRepository() estimate.SheetRepository {
	return &SheetRepository{}
}

func (r *SheetRepository) GetByID(ctx context.Context, id uuid.UUID) (*estimate.Sheet, error) {
	return r.querySheet(ctx, sheetFindQuery+" WHERE id = $1 AND is_deleted = false", id)
}

func (r *SheetRepository) LockByID(ctx context.Context, id uuid.UUID) (*estimate.Sheet, error) {
	return r.querySheet(ctx, sheetFindQuery+" WHERE id = $1 AND is_deleted = false FOR UPDATE", id)
}

func (r *SheetRepository) List(ctx context.Context, kind estimate.SheetKind) ([]*estimate.Sheet, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, sheetFindQuery+" WHERE kind = $1 AND is_deleted = false ORDER BY name", string(kind))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sheets")
	}
	defer rows.Close()

	var sheets []*estimate.Sheet
	for rows.Next() {
		sheet, err := scanSheet(rows)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sheet)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sheet row iteration error")
	}
	return sheets, nil
}

func (r *SheetRepository) Create(ctx context.Context, sheet *estimate.Sheet) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO estimate_sheets (id, tenant_id, kind, job_id, name, profit_calculation_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`
	_, err = tx.Exec(ctx, query,
		sheet.ID,
		sheet.TenantID,
		string(sheet.Kind),
		sheet.JobID,
		sheet.Name,
		string(sheet.ProfitPolicy),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create sheet")
	}
	return nil
}

func (r *SheetRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	return r.exec(ctx, "UPDATE estimate_sheets SET name = $2, updated_at = now() WHERE id = $1 AND is_deleted = false", id, name)
}

func (r *SheetRepository) SetProfitPolicy(ctx context.Context, id uuid.UUID, policy pricing.ProfitPolicy) error {
	return r.exec(ctx, "UPDATE estimate_sheets SET profit_calculation_type = $2, updated_at = now() WHERE id = $1 AND is_deleted = false", id, string(policy))
}

func (r *SheetRepository) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "UPDATE estimate_sheets SET is_deleted = true, updated_at = now() WHERE id = $1", id)
}

func (r *SheetRepository) exec(ctx context.Context, query string, args ...any) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "failed to update sheet")
	}
	if tag.RowsAffected() == 0 {
		return ErrSheetNotFound
	}
	return nil
}

func (r *SheetRepository) querySheet(ctx context.Context, query string, args ...any) (*estimate.Sheet, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sheet")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "sheet row iteration error")
		}
		return nil, ErrSheetNotFound
	}
	return scanSheet(rows)
}

func scanSheet(row pgx.Row) (*estimate.Sheet, error) {
	var (
		sheet  estimate.Sheet
		kind   string
		policy string
	)
	if err := row.Scan(
		&sheet.ID,
		&sheet.TenantID,
		&kind,
		&sheet.JobID,
		&sheet.Name,
		&policy,
		&sheet.IsDeleted,
		&sheet.CreatedAt,
		&sheet.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan sheet row")
	}
	sheet.Kind = estimate.SheetKind(kind)
	sheet.ProfitPolicy = pricing.ProfitPolicy(policy)
	return &sheet, nil
}
