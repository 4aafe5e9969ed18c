// Package pricing derives contract prices from cost and desired-profit
// inputs under a tenant's profit-calculation policy.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/structura-io/structura/pkg/serrors"
)

// ProfitPolicy selects how desired profit is interpreted: markup adds the
// percentage on top of cost, margin expresses it as a share of the final
// price.
type ProfitPolicy string

const (
	Markup ProfitPolicy = "markup"
	Margin ProfitPolicy = "margin"
)

var (
	ErrUnknownPolicy = serrors.NewError("PRICING_UNKNOWN_POLICY", "unknown profit calculation policy")
	ErrInvalidProfit = serrors.NewError("PRICING_INVALID_PROFIT", "desired profit out of range for policy")
)

var hundred = decimal.NewFromInt(100)

func ParsePolicy(raw string) (ProfitPolicy, error) {
	switch ProfitPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case Markup:
		return Markup, nil
	case Margin:
		return Margin, nil
	default:
		return "", ErrUnknownPolicy
	}
}

// Derive computes the contract price at full internal precision. Rounding to
// the 2-digit storage scale is the caller's responsibility (RoundMoney), so
// repeated recomputation does not compound rounding error.
//
// A margin at or above 100% has no finite price; it is rejected rather than
// clamped.
func Derive(baseCost, desiredProfit decimal.Decimal, policy ProfitPolicy) (decimal.Decimal, error) {
	switch policy {
	case Markup:
		return baseCost.Add(baseCost.Mul(desiredProfit).Div(hundred)), nil
	case Margin:
		if desiredProfit.GreaterThanOrEqual(hundred) {
			return decimal.Decimal{}, ErrInvalidProfit
		}
		return baseCost.Div(decimal.NewFromInt(1).Sub(desiredProfit.Div(hundred))), nil
	default:
		return decimal.Decimal{}, ErrUnknownPolicy
	}
}

// RoundMoney rounds half-up to 2 fractional digits, the storage scale for
// monetary columns.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
