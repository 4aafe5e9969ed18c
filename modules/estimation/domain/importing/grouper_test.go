package importing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFold_EncounterOrderAndChildren(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{GroupKey: "A", GroupName: "Sitework", GroupOrderHint: 2},
		{GroupKey: "B", GroupName: "Framing", GroupOrderHint: 1},
		{GroupKey: "A", Item: &ItemRow{Name: "x"}},
	}

	groups, err := Fold(rows)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	require.Equal(t, "A", groups[0].Key)
	require.Equal(t, "Sitework", groups[0].Name)
	require.Equal(t, 2, groups[0].OrderHint)
	require.Len(t, groups[0].Items, 1)
	require.Equal(t, "x", groups[0].Items[0].Name)

	require.Equal(t, "B", groups[1].Key)
	require.Empty(t, groups[1].Items)
}

func TestFold_FirstSeenSeedsScalars(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{GroupKey: "A", GroupName: "First", GroupOrderHint: 3, Item: &ItemRow{Name: "one"}},
		{GroupKey: "A", GroupName: "Second", GroupOrderHint: 9, Item: &ItemRow{Name: "two"}},
	}

	groups, err := Fold(rows)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "First", groups[0].Name, "later rows must not overwrite scalar attributes")
	require.Equal(t, 3, groups[0].OrderHint)
	require.Equal(t, []string{"one", "two"}, []string{groups[0].Items[0].Name, groups[0].Items[1].Name})
}

func TestFold_SeedingRowContributesItsPayload(t *testing.T) {
	t.Parallel()

	cost := decimal.RequireFromString("12.50")
	rows := []Row{
		{GroupKey: "K", GroupName: "Roofing", Item: &ItemRow{Name: "shingles", UnitCost: cost, Quantity: decimal.NewFromInt(4)}},
	}

	groups, err := Fold(rows)
	require.NoError(t, err)
	require.Len(t, groups[0].Items, 1)
	require.True(t, groups[0].Items[0].UnitCost.Equal(cost))
}

func TestFold_EmptyInput(t *testing.T) {
	t.Parallel()

	_, err := Fold(nil)
	require.ErrorIs(t, err, ErrNoGroups)

	_, err = Fold([]Row{})
	require.ErrorIs(t, err, ErrNoGroups)
}
