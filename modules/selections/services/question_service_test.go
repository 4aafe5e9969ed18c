package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuestionService_CreateMoveDelete(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	template := f.seedTemplate(t)
	category := f.seedCategory(t, ctx, template.ID, "Flooring")

	a, err := f.questionSvc.Create(ctx, f.tenantID, CreateQuestionInput{CategoryID: category.ID, Prompt: "Hardwood or carpet?"})
	require.NoError(t, err)
	b, err := f.questionSvc.Create(ctx, f.tenantID, CreateQuestionInput{CategoryID: category.ID, Prompt: "Stain color?"})
	require.NoError(t, err)
	c, err := f.questionSvc.Create(ctx, f.tenantID, CreateQuestionInput{CategoryID: category.ID, Prompt: "Baseboard height?"})
	require.NoError(t, err)

	require.NoError(t, f.questionSvc.Move(ctx, f.tenantID, category.ID, c.ID, 1))
	require.Equal(t, 1, f.questionStore.orderOf(c.ID))
	require.Equal(t, 2, f.questionStore.orderOf(a.ID))
	require.Equal(t, 3, f.questionStore.orderOf(b.ID))

	require.NoError(t, f.questionSvc.Delete(ctx, f.tenantID, category.ID, a.ID))
	require.Equal(t, 1, f.questionStore.orderOf(c.ID))
	require.Equal(t, 2, f.questionStore.orderOf(b.ID))

	t.Run("insert_at_target", func(t *testing.T) {
		mid, err := f.questionSvc.Create(ctx, f.tenantID, CreateQuestionInput{
			CategoryID:  category.ID,
			Prompt:      "Underlayment?",
			TargetOrder: 2,
		})
		require.NoError(t, err)
		order, ok := mid.Position.Order()
		require.True(t, ok)
		require.Equal(t, 2, order)
		require.Equal(t, 3, f.questionStore.orderOf(b.ID))
	})

	t.Run("move_out_of_range", func(t *testing.T) {
		err := f.questionSvc.Move(ctx, f.tenantID, category.ID, b.ID, 12)
		requireServiceError(t, err, http.StatusBadRequest, "SEL_INVALID_ORDER")
	})

	t.Run("foreign_category_not_found", func(t *testing.T) {
		other := f.seedCategory(t, ctx, template.ID, "Cabinets")
		err := f.questionSvc.Move(ctx, f.tenantID, other.ID, b.ID, 1)
		requireServiceError(t, err, http.StatusNotFound, "SEL_NOT_FOUND")
	})
}

func TestQuestionService_PromptRequired(t *testing.T) {
	f := newFixture(t)
	ctx := txContext()
	template := f.seedTemplate(t)
	category := f.seedCategory(t, ctx, template.ID, "Flooring")

	_, err := f.questionSvc.Create(ctx, f.tenantID, CreateQuestionInput{CategoryID: category.ID, Prompt: "   "})
	requireServiceError(t, err, http.StatusBadRequest, "SEL_INVALID_BODY")
}
