package services

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/structura-io/structura/modules/estimation/domain/entities/estimate"
	"github.com/structura-io/structura/modules/estimation/domain/pricing"
	"github.com/structura-io/structura/pkg/mapping"
)

func TestSheetService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()

	t.Run("template", func(t *testing.T) {
		sheet, err := f.sheetSvc.Create(ctx, f.tenantID, CreateSheetInput{
			Kind:         estimate.KindTemplate,
			Name:         "  Spec Home  ",
			ProfitPolicy: "markup",
		})
		require.NoError(t, err)
		require.Equal(t, "Spec Home", sheet.Name)
		require.Equal(t, pricing.Markup, sheet.ProfitPolicy)
		require.Nil(t, sheet.JobID)
	})

	t.Run("job_estimate", func(t *testing.T) {
		jobID := uuid.New()
		sheet, err := f.sheetSvc.Create(ctx, f.tenantID, CreateSheetInput{
			Kind:         estimate.KindJob,
			JobID:        mapping.Pointer(jobID),
			Name:         "Johnson Residence",
			ProfitPolicy: "margin",
		})
		require.NoError(t, err)
		require.Equal(t, estimate.KindJob, sheet.Kind)
		require.NotNil(t, sheet.JobID)
		require.Equal(t, jobID, *sheet.JobID)
	})

	t.Run("job_estimate_requires_job_id", func(t *testing.T) {
		_, err := f.sheetSvc.Create(ctx, f.tenantID, CreateSheetInput{
			Kind:         estimate.KindJob,
			Name:         "Johnson Residence",
			ProfitPolicy: "markup",
		})
		requireServiceError(t, err, http.StatusBadRequest, "EST_INVALID_BODY")
	})

	t.Run("template_rejects_job_id", func(t *testing.T) {
		jobID := uuid.New()
		_, err := f.sheetSvc.Create(ctx, f.tenantID, CreateSheetInput{
			Kind:         estimate.KindTemplate,
			JobID:        &jobID,
			Name:         "Spec Home",
			ProfitPolicy: "markup",
		})
		requireServiceError(t, err, http.StatusBadRequest, "EST_INVALID_BODY")
	})

	t.Run("unknown_policy", func(t *testing.T) {
		_, err := f.sheetSvc.Create(ctx, f.tenantID, CreateSheetInput{
			Kind:         estimate.KindTemplate,
			Name:         "Spec Home",
			ProfitPolicy: "cost-plus",
		})
		requireServiceError(t, err, http.StatusBadRequest, "PRICING_UNKNOWN_POLICY")
	})

	t.Run("no_tenant", func(t *testing.T) {
		_, err := f.sheetSvc.Create(ctx, uuid.Nil, CreateSheetInput{
			Kind:         estimate.KindTemplate,
			Name:         "Spec Home",
			ProfitPolicy: "markup",
		})
		requireServiceError(t, err, http.StatusBadRequest, "EST_NO_TENANT")
	})
}

func TestSheetService_TenantBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)

	_, err := f.sheetSvc.GetByID(ctx, uuid.New(), sheet.ID)
	requireServiceError(t, err, http.StatusForbidden, "EST_FORBIDDEN")
}

func TestSheetService_ChangeProfitPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)
	header := f.seedHeader(t, ctx, sheet.ID, "Foundation")

	// 100 * 1 at 20% markup is 120; the same inputs at 20% margin are 125.
	a := f.seedItem(t, ctx, header.ID, "Concrete", "100", "1", "20")
	b := f.seedItem(t, ctx, header.ID, "Rebar", "40", "5", "50")
	require.Equal(t, "120", a.ContractPrice.String())
	require.Equal(t, "300", b.ContractPrice.String())

	t.Run("recomputes_every_item", func(t *testing.T) {
		recomputed, err := f.sheetSvc.ChangeProfitPolicy(ctx, f.tenantID, sheet.ID, "margin")
		require.NoError(t, err)
		require.Equal(t, 2, recomputed)

		got, err := f.sheets.GetByID(ctx, sheet.ID)
		require.NoError(t, err)
		require.Equal(t, pricing.Margin, got.ProfitPolicy)

		itemA, err := f.items.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, "125", itemA.ContractPrice.String())
		itemB, err := f.items.GetByID(ctx, b.ID)
		require.NoError(t, err)
		require.Equal(t, "400", itemB.ContractPrice.String())

		// Only the derived column changed.
		require.Equal(t, a.UnitCost.String(), itemA.UnitCost.String())
		require.Equal(t, a.DesiredProfit.String(), itemA.DesiredProfit.String())
		require.Equal(t, a.Name, itemA.Name)
	})

	t.Run("same_policy_is_noop", func(t *testing.T) {
		recomputed, err := f.sheetSvc.ChangeProfitPolicy(ctx, f.tenantID, sheet.ID, "margin")
		require.NoError(t, err)
		require.Zero(t, recomputed)
	})

	t.Run("invalid_margin_profit_aborts", func(t *testing.T) {
		// A 100% margin would divide by zero; the switch must be rejected.
		f.seedItem(t, ctx, header.ID, "Impossible", "10", "1", "100")
		require.NoError(t, f.sheets.SetProfitPolicy(ctx, sheet.ID, pricing.Markup))

		_, err := f.sheetSvc.ChangeProfitPolicy(ctx, f.tenantID, sheet.ID, "margin")
		requireServiceError(t, err, http.StatusUnprocessableEntity, "PRICING_INVALID_PROFIT")
	})
}

func TestSheetService_ChangeProfitPolicy_RetriesSerializationFailures(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)

	t.Run("recovers_within_budget", func(t *testing.T) {
		f.sheets.failLocks = 2
		_, err := f.sheetSvc.ChangeProfitPolicy(ctx, f.tenantID, sheet.ID, "margin")
		require.NoError(t, err)
	})

	t.Run("exhausted_budget_surfaces_conflict", func(t *testing.T) {
		f.sheets.failLocks = 100
		_, err := f.sheetSvc.ChangeProfitPolicy(ctx, f.tenantID, sheet.ID, "markup")
		svcErr := requireServiceError(t, err, http.StatusConflict, "EST_CONFLICT")
		require.True(t, svcErr.Retryable)
		f.sheets.failLocks = 0
	})
}

func TestSheetService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	sheet := f.seedSheet(t, pricing.Markup)

	require.NoError(t, f.sheetSvc.Delete(ctx, f.tenantID, sheet.ID))

	_, err := f.sheetSvc.GetByID(ctx, f.tenantID, sheet.ID)
	requireServiceError(t, err, http.StatusNotFound, "EST_NOT_FOUND")
}
