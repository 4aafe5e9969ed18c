package importfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleCSV = `Header,Header Order,Item,Unit Cost,Quantity,Desired Profit,Sales Tax %,Taxable
Foundation,2,Rebar,"$1,250.50",3,20,8.25,yes
Framing,1,,,,,,
Foundation,,Concrete,95,10,15,,no
`

func TestDecodeCSV(t *testing.T) {
	rows, err := DecodeCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	require.Equal(t, "foundation", first.GroupKey)
	require.Equal(t, "Foundation", first.GroupName)
	require.Equal(t, 2, first.GroupOrderHint)
	require.NotNil(t, first.Item)
	require.Equal(t, "Rebar", first.Item.Name)
	require.Equal(t, "1250.5", first.Item.UnitCost.String())
	require.Equal(t, "8.25", first.Item.SalesTaxPercentage.String())
	require.True(t, first.Item.IsSalesTaxApplicable)

	// Header-only row carries no item payload.
	require.Nil(t, rows[1].Item)
	require.Equal(t, 1, rows[1].GroupOrderHint)

	third := rows[2]
	require.Equal(t, "foundation", third.GroupKey)
	require.Zero(t, third.GroupOrderHint)
	require.NotNil(t, third.Item)
	require.False(t, third.Item.IsSalesTaxApplicable)
}

func TestDecodeCSVSkipsBlankRows(t *testing.T) {
	csv := "Header,Order,Item,Cost,Qty,Profit,Tax,Taxable\n,,,,,,,\nSitework,,Grading,10,1,5,,\n"
	rows, err := DecodeCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Sitework", rows[0].GroupName)
}

func TestDecodeCSVRejectsMissingHeaderName(t *testing.T) {
	csv := "Header,Order,Item,Cost,Qty,Profit,Tax,Taxable\n,,Rebar,1,1,1,,\n"
	_, err := DecodeCSV(strings.NewReader(csv))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing header name")
}

func TestDecodeCSVRejectsBadOrderHint(t *testing.T) {
	csv := "Header,Order,Item,Cost,Qty,Profit,Tax,Taxable\nFoundation,zero,,,,,,\n"
	_, err := DecodeCSV(strings.NewReader(csv))
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad header order")
}

func TestDecodeCSVNormalizesGroupKeys(t *testing.T) {
	csv := "Header,Order,Item,Cost,Qty,Profit,Tax,Taxable\nChange Orders,,,,,,,\nchangeorders,,Credit,1,1,0,,\n"
	rows, err := DecodeCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, rows[0].GroupKey, rows[1].GroupKey)
}
