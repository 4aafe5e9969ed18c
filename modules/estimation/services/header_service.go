package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/structura-io/structura/modules/estimation/domain/entities/estimate"
	"github.com/structura-io/structura/pkg/configuration"
	"github.com/structura-io/structura/pkg/eventbus"
	"github.com/structura-io/structura/pkg/ordering"
)

// HeaderService manages the middle ordering dimension: headers under a sheet.
// Every mutation runs in a single transaction that locks the sibling set, so
// the 1..N dense numbering holds at every commit point.
type HeaderService struct {
	sheets    estimate.SheetRepository
	headers   estimate.HeaderRepository
	items     estimate.LineItemRepository
	ledger    *ordering.Ledger
	publisher eventbus.EventBus
}

func NewHeaderService(
	sheets estimate.SheetRepository,
	headers estimate.HeaderRepository,
	items estimate.LineItemRepository,
	headerStore ordering.SiblingStore,
	publisher eventbus.EventBus,
) *HeaderService {
	return &HeaderService{
		sheets:    sheets,
		headers:   headers,
		items:     items,
		ledger:    ordering.NewLedger(headerStore),
		publisher: publisher,
	}
}

type CreateHeaderInput struct {
	SheetID uuid.UUID
	Name    string
	// TargetOrder of 0 appends; 1..N+1 inserts at that slot.
	TargetOrder int
}

func (s *HeaderService) Create(ctx context.Context, tenantID uuid.UUID, in CreateHeaderInput) (*estimate.Header, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, newServiceError(http.StatusBadRequest, "EST_INVALID_BODY", "name is required", nil)
	}

	conf := configuration.Use()
	created, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (*estimate.Header, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (*estimate.Header, error) {
			sheet, err := s.sheets.LockByID(txCtx, in.SheetID)
			if err != nil {
				return nil, mapPgError(err)
			}
			if sheet.TenantID != tenantID {
				return nil, newServiceError(http.StatusForbidden, "EST_FORBIDDEN", "sheet belongs to another tenant", nil)
			}
			if err := s.checkReservedDuplicate(txCtx, in.SheetID, in.Name, uuid.Nil); err != nil {
				return nil, err
			}

			header := &estimate.Header{
				ID:       uuid.New(),
				SheetID:  in.SheetID,
				TenantID: tenantID,
				Name:     in.Name,
			}
			if err := s.headers.Create(txCtx, header); err != nil {
				return nil, mapPgError(err)
			}

			var order int
			if in.TargetOrder == 0 {
				order, err = s.ledger.Append(txCtx, in.SheetID, header.ID)
			} else {
				order, err = s.ledger.Insert(txCtx, in.SheetID, header.ID, in.TargetOrder)
			}
			if err != nil {
				return nil, mapPgError(err)
			}
			header.Position = ordering.Active(order)
			return header, nil
		})
	})
	if err != nil {
		return nil, mapPgError(err)
	}

	s.publisher.Publish(estimate.HeaderCreatedEvent{Result: *created})
	return created, nil
}

func (s *HeaderService) GetByID(ctx context.Context, tenantID, headerID uuid.UUID) (*estimate.Header, error) {
	header, err := inTx(ctx, tenantID, func(txCtx context.Context) (*estimate.Header, error) {
		return s.loadHeader(txCtx, tenantID, headerID)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return header, nil
}

func (s *HeaderService) ListBySheet(ctx context.Context, tenantID, sheetID uuid.UUID) ([]*estimate.Header, error) {
	headers, err := inTx(ctx, tenantID, func(txCtx context.Context) ([]*estimate.Header, error) {
		return s.headers.ListBySheet(txCtx, sheetID)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return headers, nil
}

// Move repositions the header to target among its non-deleted siblings.
// Moving to its current slot is a no-op that still succeeds.
func (s *HeaderService) Move(ctx context.Context, tenantID, sheetID, headerID uuid.UUID, target int) error {
	conf := configuration.Use()
	_, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (struct{}, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
			if _, err := s.loadOwnedHeader(txCtx, tenantID, sheetID, headerID); err != nil {
				return struct{}{}, err
			}
			if err := s.ledger.Move(txCtx, sheetID, headerID, target); err != nil {
				return struct{}{}, mapPgError(err)
			}
			return struct{}{}, nil
		})
	})
	if err != nil {
		return mapPgError(err)
	}

	s.publisher.Publish(estimate.HeaderMovedEvent{HeaderID: headerID, SortOrder: target})
	return nil
}

func (s *HeaderService) Rename(ctx context.Context, tenantID, headerID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return newServiceError(http.StatusBadRequest, "EST_INVALID_BODY", "name is required", nil)
	}
	_, err := inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
		header, err := s.loadHeader(txCtx, tenantID, headerID)
		if err != nil {
			return struct{}{}, err
		}
		if estimate.IsReservedHeaderName(header.Name) {
			return struct{}{}, newServiceError(http.StatusForbidden, "EST_PROTECTED_NAME", "reserved headers cannot be renamed", nil)
		}
		if err := s.checkReservedDuplicate(txCtx, header.SheetID, name, header.ID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.headers.Rename(txCtx, headerID, name)
	})
	if err != nil {
		return mapPgError(err)
	}

	s.publisher.Publish(estimate.HeaderRenamedEvent{HeaderID: headerID, Name: name})
	return nil
}

// Delete soft-deletes the header and cascades to its line items. The reserved
// name check runs before any row is touched, so a rejected delete leaves no
// partial cascade behind. Remaining siblings are compacted to close the gap.
func (s *HeaderService) Delete(ctx context.Context, tenantID, sheetID, headerID uuid.UUID) error {
	conf := configuration.Use()
	deleted, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (int, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (int, error) {
			header, err := s.loadOwnedHeader(txCtx, tenantID, sheetID, headerID)
			if err != nil {
				return 0, err
			}
			if estimate.IsReservedHeaderName(header.Name) {
				return 0, newServiceError(http.StatusForbidden, "EST_PROTECTED_NAME", "reserved headers cannot be deleted", nil)
			}

			items, err := s.items.ListByHeader(txCtx, headerID)
			if err != nil {
				return 0, mapPgError(err)
			}
			if err := s.items.MarkDeletedByHeader(txCtx, headerID); err != nil {
				return 0, mapPgError(err)
			}
			if err := s.ledger.Remove(txCtx, sheetID, headerID); err != nil {
				return 0, mapPgError(err)
			}
			return len(items), nil
		})
	})
	if err != nil {
		return mapPgError(err)
	}

	s.publisher.Publish(estimate.HeaderDeletedEvent{HeaderID: headerID, ItemsDeleted: deleted})
	return nil
}

// checkReservedDuplicate rejects a name that would create a second reserved
// header under the sheet. Comparison ignores case and whitespace, so
// "ChangeOrders" collides with "Change Orders".
func (s *HeaderService) checkReservedDuplicate(ctx context.Context, sheetID uuid.UUID, name string, selfID uuid.UUID) error {
	if !estimate.IsReservedHeaderName(name) {
		return nil
	}
	siblings, err := s.headers.ListBySheet(ctx, sheetID)
	if err != nil {
		return mapPgError(err)
	}
	for _, sib := range siblings {
		if sib.ID != selfID && estimate.SameName(sib.Name, name) {
			return newServiceError(http.StatusForbidden, "EST_PROTECTED_NAME", "a reserved header with this name already exists", nil)
		}
	}
	return nil
}

func (s *HeaderService) loadHeader(ctx context.Context, tenantID, headerID uuid.UUID) (*estimate.Header, error) {
	header, err := s.headers.GetByID(ctx, headerID)
	if err != nil {
		return nil, mapPgError(err)
	}
	if header.TenantID != tenantID {
		return nil, newServiceError(http.StatusForbidden, "EST_FORBIDDEN", "header belongs to another tenant", nil)
	}
	return header, nil
}

// loadOwnedHeader additionally checks the parent scope. A header that exists
// under a different sheet is reported as not found, not as a cross-parent
// reference, so ids cannot be probed across scopes.
func (s *HeaderService) loadOwnedHeader(ctx context.Context, tenantID, sheetID, headerID uuid.UUID) (*estimate.Header, error) {
	header, err := s.loadHeader(ctx, tenantID, headerID)
	if err != nil {
		return nil, err
	}
	if header.SheetID != sheetID {
		return nil, newServiceError(http.StatusNotFound, "EST_NOT_FOUND", "header not found under this sheet", nil)
	}
	return header, nil
}
