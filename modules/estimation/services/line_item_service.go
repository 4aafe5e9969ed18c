package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/structura-io/structura/modules/estimation/domain/entities/estimate"
	"github.com/structura-io/structura/modules/estimation/domain/pricing"
	"github.com/structura-io/structura/pkg/configuration"
	"github.com/structura-io/structura/pkg/eventbus"
	"github.com/structura-io/structura/pkg/ordering"
)

// LineItemService manages the leaf ordering dimension and owns contract-price
// derivation: every create and update recomputes the price from the current
// inputs under the sheet's policy, so a stored price is never stale relative
// to cost, quantity, or profit.
type LineItemService struct {
	sheets    estimate.SheetRepository
	headers   estimate.HeaderRepository
	items     estimate.LineItemRepository
	ledger    *ordering.Ledger
	publisher eventbus.EventBus
}

func NewLineItemService(
	sheets estimate.SheetRepository,
	headers estimate.HeaderRepository,
	items estimate.LineItemRepository,
	itemStore ordering.SiblingStore,
	publisher eventbus.EventBus,
) *LineItemService {
	return &LineItemService{
		sheets:    sheets,
		headers:   headers,
		items:     items,
		ledger:    ordering.NewLedger(itemStore),
		publisher: publisher,
	}
}

type LineItemInput struct {
	Name                 string
	UnitCost             decimal.Decimal
	Quantity             decimal.Decimal
	ActualCost           decimal.Decimal
	DesiredProfit        decimal.Decimal
	SalesTaxPercentage   decimal.Decimal
	IsSalesTaxApplicable bool
}

type CreateLineItemInput struct {
	HeaderID uuid.UUID
	LineItemInput
	// TargetOrder of 0 appends; 1..N+1 inserts at that slot.
	TargetOrder int
}

func (s *LineItemService) Create(ctx context.Context, tenantID uuid.UUID, in CreateLineItemInput) (*estimate.LineItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, newServiceError(http.StatusBadRequest, "EST_INVALID_BODY", "name is required", nil)
	}

	conf := configuration.Use()
	created, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (*estimate.LineItem, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (*estimate.LineItem, error) {
			policy, err := s.policyFor(txCtx, tenantID, in.HeaderID)
			if err != nil {
				return nil, err
			}

			item := &estimate.LineItem{
				ID:                   uuid.New(),
				HeaderID:             in.HeaderID,
				TenantID:             tenantID,
				Name:                 in.Name,
				UnitCost:             in.UnitCost,
				Quantity:             in.Quantity,
				ActualCost:           in.ActualCost,
				DesiredProfit:        in.DesiredProfit,
				SalesTaxPercentage:   in.SalesTaxPercentage,
				IsSalesTaxApplicable: in.IsSalesTaxApplicable,
			}
			price, err := pricing.Derive(item.BaseCost(), item.DesiredProfit, policy)
			if err != nil {
				return nil, mapPgError(err)
			}
			item.ContractPrice = pricing.RoundMoney(price)

			if err := s.items.Create(txCtx, item); err != nil {
				return nil, mapPgError(err)
			}

			var order int
			if in.TargetOrder == 0 {
				order, err = s.ledger.Append(txCtx, in.HeaderID, item.ID)
			} else {
				order, err = s.ledger.Insert(txCtx, in.HeaderID, item.ID, in.TargetOrder)
			}
			if err != nil {
				return nil, mapPgError(err)
			}
			item.Position = ordering.Active(order)
			return item, nil
		})
	})
	if err != nil {
		return nil, mapPgError(err)
	}

	s.publisher.Publish(estimate.LineItemCreatedEvent{Result: *created})
	return created, nil
}

func (s *LineItemService) GetByID(ctx context.Context, tenantID, itemID uuid.UUID) (*estimate.LineItem, error) {
	item, err := inTx(ctx, tenantID, func(txCtx context.Context) (*estimate.LineItem, error) {
		return s.loadItem(txCtx, tenantID, itemID)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return item, nil
}

func (s *LineItemService) ListByHeader(ctx context.Context, tenantID, headerID uuid.UUID) ([]*estimate.LineItem, error) {
	items, err := inTx(ctx, tenantID, func(txCtx context.Context) ([]*estimate.LineItem, error) {
		return s.items.ListByHeader(txCtx, headerID)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return items, nil
}

// Update replaces the item's editable fields and re-derives the contract
// price under the sheet's current policy in the same transaction.
func (s *LineItemService) Update(ctx context.Context, tenantID, itemID uuid.UUID, in LineItemInput) (*estimate.LineItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, newServiceError(http.StatusBadRequest, "EST_INVALID_BODY", "name is required", nil)
	}

	conf := configuration.Use()
	updated, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (*estimate.LineItem, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (*estimate.LineItem, error) {
			item, err := s.loadItem(txCtx, tenantID, itemID)
			if err != nil {
				return nil, err
			}
			policy, err := s.policyFor(txCtx, tenantID, item.HeaderID)
			if err != nil {
				return nil, err
			}

			item.Name = in.Name
			item.UnitCost = in.UnitCost
			item.Quantity = in.Quantity
			item.ActualCost = in.ActualCost
			item.DesiredProfit = in.DesiredProfit
			item.SalesTaxPercentage = in.SalesTaxPercentage
			item.IsSalesTaxApplicable = in.IsSalesTaxApplicable

			price, err := pricing.Derive(item.BaseCost(), item.DesiredProfit, policy)
			if err != nil {
				return nil, mapPgError(err)
			}
			item.ContractPrice = pricing.RoundMoney(price)

			if err := s.items.Update(txCtx, item); err != nil {
				return nil, mapPgError(err)
			}
			return item, nil
		})
	})
	if err != nil {
		return nil, mapPgError(err)
	}

	s.publisher.Publish(estimate.LineItemUpdatedEvent{Result: *updated})
	return updated, nil
}

func (s *LineItemService) Move(ctx context.Context, tenantID, headerID, itemID uuid.UUID, target int) error {
	conf := configuration.Use()
	_, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (struct{}, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
			if _, err := s.loadOwnedItem(txCtx, tenantID, headerID, itemID); err != nil {
				return struct{}{}, err
			}
			if err := s.ledger.Move(txCtx, headerID, itemID, target); err != nil {
				return struct{}{}, mapPgError(err)
			}
			return struct{}{}, nil
		})
	})
	if err != nil {
		return mapPgError(err)
	}

	s.publisher.Publish(estimate.LineItemMovedEvent{LineItemID: itemID, SortOrder: target})
	return nil
}

func (s *LineItemService) Delete(ctx context.Context, tenantID, headerID, itemID uuid.UUID) error {
	conf := configuration.Use()
	_, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (struct{}, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
			if _, err := s.loadOwnedItem(txCtx, tenantID, headerID, itemID); err != nil {
				return struct{}{}, err
			}
			if err := s.ledger.Remove(txCtx, headerID, itemID); err != nil {
				return struct{}{}, mapPgError(err)
			}
			return struct{}{}, nil
		})
	})
	if err != nil {
		return mapPgError(err)
	}

	s.publisher.Publish(estimate.LineItemDeletedEvent{LineItemID: itemID})
	return nil
}

// policyFor resolves the profit policy governing items under the header,
// checking tenant ownership along the way.
func (s *LineItemService) policyFor(ctx context.Context, tenantID uuid.UUID, headerID uuid.UUID) (pricing.ProfitPolicy, error) {
	header, err := s.headers.GetByID(ctx, headerID)
	if err != nil {
		return "", mapPgError(err)
	}
	if header.TenantID != tenantID {
		return "", newServiceError(http.StatusForbidden, "EST_FORBIDDEN", "header belongs to another tenant", nil)
	}
	sheet, err := s.sheets.GetByID(ctx, header.SheetID)
	if err != nil {
		return "", mapPgError(err)
	}
	return sheet.ProfitPolicy, nil
}

func (s *LineItemService) loadItem(ctx context.Context, tenantID, itemID uuid.UUID) (*estimate.LineItem, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, mapPgError(err)
	}
	if item.TenantID != tenantID {
		return nil, newServiceError(http.StatusForbidden, "EST_FORBIDDEN", "line item belongs to another tenant", nil)
	}
	return item, nil
}

func (s *LineItemService) loadOwnedItem(ctx context.Context, tenantID, headerID, itemID uuid.UUID) (*estimate.LineItem, error) {
	item, err := s.loadItem(ctx, tenantID, itemID)
	if err != nil {
		return nil, err
	}
	if item.HeaderID != headerID {
		return nil, newServiceError(http.StatusNotFound, "EST_NOT_FOUND", "line item not found under this header", nil)
	}
	return item, nil
}
