package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDerive_Markup(t *testing.T) {
	t.Parallel()

	got, err := Derive(dec("100"), dec("20"), Markup)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("120")), "got %s", got)
}

func TestDerive_Margin(t *testing.T) {
	t.Parallel()

	got, err := Derive(dec("100"), dec("20"), Margin)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("125")), "got %s", got)
}

func TestDerive_MarginAtOrAbove100IsDomainError(t *testing.T) {
	t.Parallel()

	_, err := Derive(dec("100"), dec("100"), Margin)
	require.ErrorIs(t, err, ErrInvalidProfit)

	_, err = Derive(dec("100"), dec("150"), Margin)
	require.ErrorIs(t, err, ErrInvalidProfit)

	// Markup has no such singularity.
	got, err := Derive(dec("100"), dec("100"), Markup)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("200")))
}

func TestDerive_ZeroProfitIsIdentity(t *testing.T) {
	t.Parallel()

	for _, policy := range []ProfitPolicy{Markup, Margin} {
		got, err := Derive(dec("42.37"), decimal.Zero, policy)
		require.NoError(t, err)
		require.True(t, got.Equal(dec("42.37")), "%s: got %s", policy, got)
	}
}

func TestDerive_UnknownPolicy(t *testing.T) {
	t.Parallel()

	_, err := Derive(dec("10"), dec("10"), ProfitPolicy("cost-plus"))
	require.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestRoundMoney_HalfUpAtBoundary(t *testing.T) {
	t.Parallel()

	// 100 / (1 - 15/100) = 117.647058...; rounding happens only here.
	raw, err := Derive(dec("100"), dec("15"), Margin)
	require.NoError(t, err)
	require.Equal(t, "117.65", RoundMoney(raw).StringFixed(2))

	require.Equal(t, "1.35", RoundMoney(dec("1.345")).StringFixed(2))
	require.Equal(t, "1.34", RoundMoney(dec("1.344")).StringFixed(2))
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy("  MARGIN ")
	require.NoError(t, err)
	require.Equal(t, Margin, p)

	p, err = ParsePolicy("markup")
	require.NoError(t, err)
	require.Equal(t, Markup, p)

	_, err = ParsePolicy("profit")
	require.ErrorIs(t, err, ErrUnknownPolicy)
}
