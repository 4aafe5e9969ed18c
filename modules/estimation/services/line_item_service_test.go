package services

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/structura-io/structura/modules/estimation/domain/pricing"
)

func TestLineItemService_CreateDerivesContractPrice(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)
	header := f.seedHeader(t, ctx, sheet.ID, "Foundation")

	t.Run("markup", func(t *testing.T) {
		item := f.seedItem(t, ctx, header.ID, "Concrete", "95.50", "10", "15")
		// 955 at 15% markup.
		require.Equal(t, "1098.25", item.ContractPrice.String())
		order, ok := item.Position.Order()
		require.True(t, ok)
		require.Equal(t, 1, order)
	})

	t.Run("rounds_half_up_at_storage", func(t *testing.T) {
		item := f.seedItem(t, ctx, header.ID, "Gravel", "33.33", "1", "3")
		// 33.33 * 1.03 = 34.3299, stored as 34.33.
		require.Equal(t, "34.33", item.ContractPrice.String())
	})
}

func TestLineItemService_MarginPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Margin)
	header := f.seedHeader(t, ctx, sheet.ID, "Foundation")

	item := f.seedItem(t, ctx, header.ID, "Concrete", "100", "1", "20")
	require.Equal(t, "125", item.ContractPrice.String())

	t.Run("full_margin_rejected", func(t *testing.T) {
		_, err := f.itemSvc.Create(ctx, f.tenantID, CreateLineItemInput{
			HeaderID: header.ID,
			LineItemInput: LineItemInput{
				Name:          "Impossible",
				UnitCost:      decimal.NewFromInt(10),
				Quantity:      decimal.NewFromInt(1),
				DesiredProfit: decimal.NewFromInt(100),
			},
		})
		requireServiceError(t, err, http.StatusUnprocessableEntity, "PRICING_INVALID_PROFIT")
	})
}

func TestLineItemService_UpdateRecomputesPrice(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)
	header := f.seedHeader(t, ctx, sheet.ID, "Foundation")
	item := f.seedItem(t, ctx, header.ID, "Concrete", "100", "1", "20")

	updated, err := f.itemSvc.Update(ctx, f.tenantID, item.ID, LineItemInput{
		Name:          "Concrete 4000psi",
		UnitCost:      decimal.NewFromInt(110),
		Quantity:      decimal.NewFromInt(2),
		DesiredProfit: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.Equal(t, "Concrete 4000psi", updated.Name)
	// 220 at 10% markup.
	require.Equal(t, "242", updated.ContractPrice.String())
}

func TestLineItemService_MoveAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)
	header := f.seedHeader(t, ctx, sheet.ID, "Foundation")

	a := f.seedItem(t, ctx, header.ID, "Concrete", "95", "10", "15")
	b := f.seedItem(t, ctx, header.ID, "Rebar", "12", "40", "15")
	c := f.seedItem(t, ctx, header.ID, "Gravel", "30", "5", "15")

	require.NoError(t, f.itemSvc.Move(ctx, f.tenantID, header.ID, c.ID, 1))
	require.Equal(t, 1, f.itemStore.orderOf(c.ID))
	require.Equal(t, 2, f.itemStore.orderOf(a.ID))
	require.Equal(t, 3, f.itemStore.orderOf(b.ID))

	require.NoError(t, f.itemSvc.Delete(ctx, f.tenantID, header.ID, a.ID))
	require.Equal(t, 1, f.itemStore.orderOf(c.ID))
	require.Equal(t, 2, f.itemStore.orderOf(b.ID))

	items, err := f.items.ListByHeader(ctx, header.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestLineItemService_ScopeChecks(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)
	header := f.seedHeader(t, ctx, sheet.ID, "Foundation")
	other := f.seedHeader(t, ctx, sheet.ID, "Framing")
	item := f.seedItem(t, ctx, header.ID, "Concrete", "95", "10", "15")

	t.Run("foreign_header_is_not_found", func(t *testing.T) {
		err := f.itemSvc.Move(ctx, f.tenantID, other.ID, item.ID, 1)
		requireServiceError(t, err, http.StatusNotFound, "EST_NOT_FOUND")
	})

	t.Run("foreign_tenant_is_forbidden", func(t *testing.T) {
		_, err := f.itemSvc.GetByID(ctx, uuid.New(), item.ID)
		requireServiceError(t, err, http.StatusForbidden, "EST_FORBIDDEN")
	})
}
