package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/structura-io/structura/modules/estimation/domain/entities/estimate"
	"github.com/structura-io/structura/modules/estimation/domain/importing"
	"github.com/structura-io/structura/modules/estimation/domain/pricing"
	"github.com/structura-io/structura/pkg/configuration"
	"github.com/structura-io/structura/pkg/eventbus"
	"github.com/structura-io/structura/pkg/ordering"
)

// ImportService folds flat rows into the header/item hierarchy and commits
// one transaction per group. A failing group rolls back alone and is reported
// in the result; the remaining groups still land.
type ImportService struct {
	sheets      estimate.SheetRepository
	headers     estimate.HeaderRepository
	items       estimate.LineItemRepository
	headerOrder *ordering.Ledger
	itemOrder   *ordering.Ledger
	publisher   eventbus.EventBus
}

func NewImportService(
	sheets estimate.SheetRepository,
	headers estimate.HeaderRepository,
	items estimate.LineItemRepository,
	headerStore ordering.SiblingStore,
	itemStore ordering.SiblingStore,
	publisher eventbus.EventBus,
) *ImportService {
	return &ImportService{
		sheets:      sheets,
		headers:     headers,
		items:       items,
		headerOrder: ordering.NewLedger(headerStore),
		itemOrder:   ordering.NewLedger(itemStore),
		publisher:   publisher,
	}
}

type GroupFailure struct {
	Key    string
	Name   string
	Reason string
}

type ImportResult struct {
	SheetID        uuid.UUID
	HeadersCreated int
	ItemsCreated   int
	Failures       []GroupFailure
}

// Import folds rows into groups and materializes each group as a header with
// its line items. Group order follows the explicit order hint when present
// and first-seen file order otherwise. An empty input is rejected; a partial
// failure is not.
func (s *ImportService) Import(ctx context.Context, tenantID, sheetID uuid.UUID, rows []importing.Row) (*ImportResult, error) {
	conf := configuration.Use()
	if len(rows) > conf.ImportMaxRows {
		return nil, newServiceError(
			http.StatusBadRequest,
			"EST_IMPORT_TOO_LARGE",
			fmt.Sprintf("import exceeds %d rows", conf.ImportMaxRows),
			nil,
		)
	}

	groups, err := importing.Fold(rows)
	if err != nil {
		return nil, mapPgError(err)
	}

	// Ownership is checked once up front; each group transaction re-locks the
	// sheet row anyway via the sibling read.
	if _, err := inTx(ctx, tenantID, func(txCtx context.Context) (*estimate.Sheet, error) {
		sheet, err := s.sheets.GetByID(txCtx, sheetID)
		if err != nil {
			return nil, mapPgError(err)
		}
		if sheet.TenantID != tenantID {
			return nil, newServiceError(http.StatusForbidden, "EST_FORBIDDEN", "sheet belongs to another tenant", nil)
		}
		return sheet, nil
	}); err != nil {
		return nil, mapPgError(err)
	}

	result := &ImportResult{SheetID: sheetID}
	for _, group := range groups {
		created, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (int, error) {
			return s.importGroup(ctx, tenantID, sheetID, group)
		})
		if err != nil {
			recordImportGroup("failed")
			result.Failures = append(result.Failures, GroupFailure{
				Key:    group.Key,
				Name:   group.Name,
				Reason: err.Error(),
			})
			continue
		}
		recordImportGroup("created")
		result.HeadersCreated++
		result.ItemsCreated += created
	}

	s.publisher.Publish(estimate.SheetImportedEvent{
		SheetID:        sheetID,
		HeadersCreated: result.HeadersCreated,
		ItemsCreated:   result.ItemsCreated,
		GroupsFailed:   len(result.Failures),
	})
	return result, nil
}

// importGroup creates one header and its items in a single transaction.
// Returns the number of items created.
func (s *ImportService) importGroup(ctx context.Context, tenantID, sheetID uuid.UUID, group importing.Group) (int, error) {
	return inTx(ctx, tenantID, func(txCtx context.Context) (int, error) {
		name := strings.TrimSpace(group.Name)
		if name == "" {
			return 0, newServiceError(http.StatusBadRequest, "EST_INVALID_BODY", "group has no name", nil)
		}
		if estimate.IsReservedHeaderName(name) {
			siblings, err := s.headers.ListBySheet(txCtx, sheetID)
			if err != nil {
				return 0, mapPgError(err)
			}
			for _, sib := range siblings {
				if estimate.SameName(sib.Name, name) {
					return 0, newServiceError(http.StatusForbidden, "EST_PROTECTED_NAME", "a reserved header with this name already exists", nil)
				}
			}
		}

		sheet, err := s.sheets.GetByID(txCtx, sheetID)
		if err != nil {
			return 0, mapPgError(err)
		}

		header := &estimate.Header{
			ID:       uuid.New(),
			SheetID:  sheetID,
			TenantID: tenantID,
			Name:     name,
		}
		if err := s.headers.Create(txCtx, header); err != nil {
			return 0, mapPgError(err)
		}

		// An order hint past the current end degrades to append rather than
		// failing the whole group.
		if order := group.OrderHint; order > 0 {
			next, err := s.headerOrder.NextOrder(txCtx, sheetID)
			if err != nil {
				return 0, mapPgError(err)
			}
			if order > next {
				order = next
			}
			if _, err := s.headerOrder.Insert(txCtx, sheetID, header.ID, order); err != nil {
				return 0, mapPgError(err)
			}
		} else if _, err := s.headerOrder.Append(txCtx, sheetID, header.ID); err != nil {
			return 0, mapPgError(err)
		}

		created := 0
		for _, row := range group.Items {
			itemName := strings.TrimSpace(row.Name)
			if itemName == "" {
				return 0, newServiceError(http.StatusBadRequest, "EST_INVALID_BODY", "item has no name", nil)
			}
			item := &estimate.LineItem{
				ID:                   uuid.New(),
				HeaderID:             header.ID,
				TenantID:             tenantID,
				Name:                 itemName,
				UnitCost:             row.UnitCost,
				Quantity:             row.Quantity,
				DesiredProfit:        row.DesiredProfit,
				SalesTaxPercentage:   row.SalesTaxPercentage,
				IsSalesTaxApplicable: row.IsSalesTaxApplicable,
			}
			price, err := pricing.Derive(item.BaseCost(), item.DesiredProfit, sheet.ProfitPolicy)
			if err != nil {
				return 0, mapPgError(err)
			}
			item.ContractPrice = pricing.RoundMoney(price)

			if err := s.items.Create(txCtx, item); err != nil {
				return 0, mapPgError(err)
			}
			if _, err := s.itemOrder.Append(txCtx, header.ID, item.ID); err != nil {
				return 0, mapPgError(err)
			}
			created++
		}
		return created, nil
	})
}
