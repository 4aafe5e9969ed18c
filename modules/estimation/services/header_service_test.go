package services

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/structura-io/structura/modules/estimation/domain/pricing"
)

func headerNames(t *testing.T, f *fixture, sheetID uuid.UUID) []string {
	t.Helper()
	headers, err := f.headers.ListBySheet(txContext(), sheetID)
	require.NoError(t, err)
	names := make([]string, 0, len(headers))
	for _, h := range headers {
		names = append(names, h.Name)
	}
	return names
}

func TestHeaderService_CreateAssignsDenseOrders(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)

	first := f.seedHeader(t, ctx, sheet.ID, "Sitework")
	second := f.seedHeader(t, ctx, sheet.ID, "Foundation")
	third := f.seedHeader(t, ctx, sheet.ID, "Framing")

	require.Equal(t, 1, f.headerStore.orderOf(first.ID))
	require.Equal(t, 2, f.headerStore.orderOf(second.ID))
	require.Equal(t, 3, f.headerStore.orderOf(third.ID))
	require.Equal(t, []string{"Sitework", "Foundation", "Framing"}, headerNames(t, f, sheet.ID))
}

func TestHeaderService_CreateAtTarget(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)

	f.seedHeader(t, ctx, sheet.ID, "Sitework")
	f.seedHeader(t, ctx, sheet.ID, "Framing")

	inserted, err := f.headerSvc.Create(ctx, f.tenantID, CreateHeaderInput{
		SheetID:     sheet.ID,
		Name:        "Foundation",
		TargetOrder: 2,
	})
	require.NoError(t, err)
	order, ok := inserted.Position.Order()
	require.True(t, ok)
	require.Equal(t, 2, order)
	require.Equal(t, []string{"Sitework", "Foundation", "Framing"}, headerNames(t, f, sheet.ID))
}

func TestHeaderService_CreateTargetOutOfRange(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)
	f.seedHeader(t, ctx, sheet.ID, "Sitework")

	_, err := f.headerSvc.Create(ctx, f.tenantID, CreateHeaderInput{
		SheetID:     sheet.ID,
		Name:        "Foundation",
		TargetOrder: 5,
	})
	requireServiceError(t, err, http.StatusBadRequest, "EST_INVALID_ORDER")
}

func TestHeaderService_ReservedNames(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)

	reserved := f.seedHeader(t, ctx, sheet.ID, "Change Orders")
	plain := f.seedHeader(t, ctx, sheet.ID, "Framing")

	t.Run("duplicate_reserved_create_rejected", func(t *testing.T) {
		// Case and whitespace do not make it a different name.
		_, err := f.headerSvc.Create(ctx, f.tenantID, CreateHeaderInput{
			SheetID: sheet.ID,
			Name:    "changeorders",
		})
		requireServiceError(t, err, http.StatusForbidden, "EST_PROTECTED_NAME")
	})

	t.Run("reserved_delete_rejected_before_cascade", func(t *testing.T) {
		f.seedItem(t, ctx, reserved.ID, "Allowance credit", "10", "1", "0")

		err := f.headerSvc.Delete(ctx, f.tenantID, sheet.ID, reserved.ID)
		requireServiceError(t, err, http.StatusForbidden, "EST_PROTECTED_NAME")

		items, lerr := f.items.ListByHeader(ctx, reserved.ID)
		require.NoError(t, lerr)
		require.Len(t, items, 1, "rejected delete must not cascade")
	})

	t.Run("reserved_rename_rejected", func(t *testing.T) {
		err := f.headerSvc.Rename(ctx, f.tenantID, reserved.ID, "Extras")
		requireServiceError(t, err, http.StatusForbidden, "EST_PROTECTED_NAME")
	})

	t.Run("rename_onto_reserved_rejected", func(t *testing.T) {
		err := f.headerSvc.Rename(ctx, f.tenantID, plain.ID, "Accounting")
		require.NoError(t, err, "first reserved header of a name is allowed")

		other := f.seedHeader(t, ctx, sheet.ID, "Trim")
		err = f.headerSvc.Rename(ctx, f.tenantID, other.ID, " accounting ")
		requireServiceError(t, err, http.StatusForbidden, "EST_PROTECTED_NAME")
	})
}

func TestHeaderService_Move(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)

	f.seedHeader(t, ctx, sheet.ID, "Sitework")
	foundation := f.seedHeader(t, ctx, sheet.ID, "Foundation")
	f.seedHeader(t, ctx, sheet.ID, "Framing")
	f.seedHeader(t, ctx, sheet.ID, "Roofing")

	require.NoError(t, f.headerSvc.Move(ctx, f.tenantID, sheet.ID, foundation.ID, 4))
	require.Equal(t, []string{"Sitework", "Framing", "Roofing", "Foundation"}, headerNames(t, f, sheet.ID))

	t.Run("target_out_of_range", func(t *testing.T) {
		err := f.headerSvc.Move(ctx, f.tenantID, sheet.ID, foundation.ID, 9)
		requireServiceError(t, err, http.StatusBadRequest, "EST_INVALID_ORDER")
	})

	t.Run("foreign_sheet_is_not_found", func(t *testing.T) {
		other := f.seedSheet(t, pricing.Markup)
		err := f.headerSvc.Move(ctx, f.tenantID, other.ID, foundation.ID, 1)
		requireServiceError(t, err, http.StatusNotFound, "EST_NOT_FOUND")
	})
}

func TestHeaderService_DeleteCascadesAndCompacts(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)

	f.seedHeader(t, ctx, sheet.ID, "Sitework")
	foundation := f.seedHeader(t, ctx, sheet.ID, "Foundation")
	framing := f.seedHeader(t, ctx, sheet.ID, "Framing")
	f.seedItem(t, ctx, foundation.ID, "Concrete", "95", "10", "15")
	f.seedItem(t, ctx, foundation.ID, "Rebar", "12", "40", "15")

	require.NoError(t, f.headerSvc.Delete(ctx, f.tenantID, sheet.ID, foundation.ID))

	require.Equal(t, []string{"Sitework", "Framing"}, headerNames(t, f, sheet.ID))
	require.Equal(t, 2, f.headerStore.orderOf(framing.ID), "survivors compact to close the gap")

	items, err := f.items.ListByHeader(ctx, foundation.ID)
	require.NoError(t, err)
	require.Empty(t, items, "children are deleted with their header")
}
