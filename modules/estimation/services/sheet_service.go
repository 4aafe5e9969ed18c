package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/structura-io/structura/modules/estimation/domain/entities/estimate"
	"github.com/structura-io/structura/modules/estimation/domain/pricing"
	"github.com/structura-io/structura/pkg/configuration"
	"github.com/structura-io/structura/pkg/eventbus"
)

// SheetService owns the sheet lifecycle and the profit-policy scope: changing
// a sheet's policy re-derives every line item under it in the same
// transaction, so a committed read never sees a price computed under the old
// policy next to the new policy flag.
type SheetService struct {
	sheets    estimate.SheetRepository
	items     estimate.LineItemRepository
	publisher eventbus.EventBus
}

func NewSheetService(
	sheets estimate.SheetRepository,
	items estimate.LineItemRepository,
	publisher eventbus.EventBus,
) *SheetService {
	return &SheetService{
		sheets:    sheets,
		items:     items,
		publisher: publisher,
	}
}

type CreateSheetInput struct {
	Kind         estimate.SheetKind
	JobID        *uuid.UUID
	Name         string
	ProfitPolicy string
}

func (s *SheetService) Create(ctx context.Context, tenantID uuid.UUID, in CreateSheetInput) (*estimate.Sheet, error) {
	if tenantID == uuid.Nil {
		return nil, newServiceError(http.StatusBadRequest, "EST_NO_TENANT", "tenant_id is required", nil)
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, newServiceError(http.StatusBadRequest, "EST_INVALID_BODY", "name is required", nil)
	}
	switch in.Kind {
	case estimate.KindTemplate:
		if in.JobID != nil {
			return nil, newServiceError(http.StatusBadRequest, "EST_INVALID_BODY", "templates cannot reference a job", nil)
		}
	case estimate.KindJob:
		if in.JobID == nil || *in.JobID == uuid.Nil {
			return nil, newServiceError(http.StatusBadRequest, "EST_INVALID_BODY", "job_id is required for job estimates", nil)
		}
	default:
		return nil, newServiceError(http.StatusBadRequest, "EST_INVALID_BODY", "unknown sheet kind", nil)
	}
	policy, err := pricing.ParsePolicy(in.ProfitPolicy)
	if err != nil {
		return nil, mapPgError(err)
	}

	sheet := &estimate.Sheet{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Kind:         in.Kind,
		JobID:        in.JobID,
		Name:         in.Name,
		ProfitPolicy: policy,
	}
	created, err := inTx(ctx, tenantID, func(txCtx context.Context) (*estimate.Sheet, error) {
		if err := s.sheets.Create(txCtx, sheet); err != nil {
			return nil, mapPgError(err)
		}
		return s.sheets.GetByID(txCtx, sheet.ID)
	})
	if err != nil {
		return nil, mapPgError(err)
	}

	s.publisher.Publish(estimate.SheetCreatedEvent{Result: *created})
	return created, nil
}

func (s *SheetService) GetByID(ctx context.Context, tenantID, sheetID uuid.UUID) (*estimate.Sheet, error) {
	sheet, err := inTx(ctx, tenantID, func(txCtx context.Context) (*estimate.Sheet, error) {
		return s.lockSheet(txCtx, tenantID, sheetID)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return sheet, nil
}

func (s *SheetService) List(ctx context.Context, tenantID uuid.UUID, kind estimate.SheetKind) ([]*estimate.Sheet, error) {
	sheets, err := inTx(ctx, tenantID, func(txCtx context.Context) ([]*estimate.Sheet, error) {
		return s.sheets.List(txCtx, kind)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return sheets, nil
}

func (s *SheetService) Rename(ctx context.Context, tenantID, sheetID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return newServiceError(http.StatusBadRequest, "EST_INVALID_BODY", "name is required", nil)
	}
	_, err := inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
		if _, err := s.lockSheet(txCtx, tenantID, sheetID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.sheets.Rename(txCtx, sheetID, name)
	})
	if err != nil {
		return mapPgError(err)
	}
	s.publisher.Publish(estimate.SheetRenamedEvent{SheetID: sheetID, Name: name})
	return nil
}

func (s *SheetService) Delete(ctx context.Context, tenantID, sheetID uuid.UUID) error {
	_, err := inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
		if _, err := s.lockSheet(txCtx, tenantID, sheetID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.sheets.MarkDeleted(txCtx, sheetID)
	})
	if err != nil {
		return mapPgError(err)
	}
	s.publisher.Publish(estimate.SheetDeletedEvent{SheetID: sheetID})
	return nil
}

// ChangeProfitPolicy switches the sheet's profit formula and re-derives the
// contract price of every non-deleted line item under it under the new
// formula, touching no other field. Returns the number of recomputed items.
func (s *SheetService) ChangeProfitPolicy(ctx context.Context, tenantID, sheetID uuid.UUID, rawPolicy string) (int, error) {
	newPolicy, err := pricing.ParsePolicy(rawPolicy)
	if err != nil {
		return 0, mapPgError(err)
	}

	conf := configuration.Use()
	recomputed, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (int, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (int, error) {
			sheet, err := s.lockSheet(txCtx, tenantID, sheetID)
			if err != nil {
				return 0, err
			}
			if sheet.ProfitPolicy == newPolicy {
				return 0, nil
			}
			if err := s.sheets.SetProfitPolicy(txCtx, sheetID, newPolicy); err != nil {
				return 0, mapPgError(err)
			}

			// ListBySheet locks the rows, so the migration serializes against
			// concurrent line-item edits under the same scope.
			items, err := s.items.ListBySheet(txCtx, sheetID)
			if err != nil {
				return 0, mapPgError(err)
			}
			for _, item := range items {
				price, err := pricing.Derive(item.BaseCost(), item.DesiredProfit, newPolicy)
				if err != nil {
					// Roll back everything: a partially migrated scope must
					// never be observable.
					return 0, mapPgError(err)
				}
				if err := s.items.UpdateContractPrice(txCtx, item.ID, pricing.RoundMoney(price)); err != nil {
					return 0, mapPgError(err)
				}
			}
			return len(items), nil
		})
	})
	if err != nil {
		return 0, mapPgError(err)
	}

	s.publisher.Publish(estimate.PolicyMigratedEvent{
		SheetID:    sheetID,
		Policy:     string(newPolicy),
		Recomputed: recomputed,
	})
	return recomputed, nil
}

// lockSheet loads the sheet FOR UPDATE and enforces the tenant boundary.
// Cross-tenant references are forbidden, not merely absent, so the caller can
// distinguish a bad id from a stolen one in audit logs.
func (s *SheetService) lockSheet(ctx context.Context, tenantID, sheetID uuid.UUID) (*estimate.Sheet, error) {
	sheet, err := s.sheets.LockByID(ctx, sheetID)
	if err != nil {
		return nil, mapPgError(err)
	}
	if sheet.TenantID != tenantID {
		return nil, newServiceError(http.StatusForbidden, "EST_FORBIDDEN", "sheet belongs to another tenant", nil)
	}
	return sheet, nil
}
