package estimate

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/structura-io/structura/modules/estimation/domain/pricing"
)

// SheetRepository persists sheets. Lock variants take a row lock so policy
// migration serializes against concurrent line-item edits under the same
// scope.
type SheetRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Sheet, error)
	LockByID(ctx context.Context, id uuid.UUID) (*Sheet, error)
	List(ctx context.Context, kind SheetKind) ([]*Sheet, error)
	Create(ctx context.Context, sheet *Sheet) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
	SetProfitPolicy(ctx context.Context, id uuid.UUID, policy pricing.ProfitPolicy) error
	MarkDeleted(ctx context.Context, id uuid.UUID) error
}

type HeaderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Header, error)
	// ListBySheet returns non-deleted headers in ascending order.
	ListBySheet(ctx context.Context, sheetID uuid.UUID) ([]*Header, error)
	// Create inserts the header without an order; the ledger assigns one in
	// the same transaction.
	Create(ctx context.Context, header *Header) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
}

type LineItemRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*LineItem, error)
	ListByHeader(ctx context.Context, headerID uuid.UUID) ([]*LineItem, error)
	// ListBySheet locks and returns every non-deleted line item under the
	// sheet, across all of its headers. Used by policy migration.
	ListBySheet(ctx context.Context, sheetID uuid.UUID) ([]*LineItem, error)
	Create(ctx context.Context, item *LineItem) error
	Update(ctx context.Context, item *LineItem) error
	UpdateContractPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error
	// MarkDeletedByHeader soft-deletes every line item under the header and
	// zeroes their orders. Used when a header cascade-deletes its children.
	MarkDeletedByHeader(ctx context.Context, headerID uuid.UUID) error
}
