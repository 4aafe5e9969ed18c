package estimate

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/structura-io/structura/pkg/ordering"
)

// LineItem is an ordered leaf carrying the monetary fields. ContractPrice is
// derived from BaseCost and DesiredProfit under the owning sheet's profit
// policy and is only ever written by the services, never by callers.
type LineItem struct {
	ID       uuid.UUID
	HeaderID uuid.UUID
	TenantID uuid.UUID
	Name     string

	UnitCost             decimal.Decimal
	Quantity             decimal.Decimal
	ActualCost           decimal.Decimal
	DesiredProfit        decimal.Decimal
	ContractPrice        decimal.Decimal
	SalesTaxPercentage   decimal.Decimal
	IsSalesTaxApplicable bool

	Position  ordering.Position
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BaseCost is the derivation input: unit cost times quantity.
func (li *LineItem) BaseCost() decimal.Decimal {
	return li.UnitCost.Mul(li.Quantity)
}
