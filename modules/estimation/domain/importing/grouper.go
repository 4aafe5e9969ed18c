// Package importing folds flat import rows into the header/line-item
// hierarchy so bulk-loaded estimates can be ordered and priced as if they
// were freshly authored.
package importing

import (
	"github.com/shopspring/decimal"

	"github.com/structura-io/structura/pkg/serrors"
)

var ErrNoGroups = serrors.NewError("IMPORT_EMPTY", "import contained no rows")

// Row is one flat record from an external file. A row always names its group;
// it optionally carries a line-item payload.
type Row struct {
	GroupKey       string
	GroupName      string
	GroupOrderHint int // 0 when the source had no explicit order
	Item           *ItemRow
}

type ItemRow struct {
	Name                 string
	UnitCost             decimal.Decimal
	Quantity             decimal.Decimal
	DesiredProfit        decimal.Decimal
	SalesTaxPercentage   decimal.Decimal
	IsSalesTaxApplicable bool
}

// Group is one future header with its ordered children.
type Group struct {
	Key       string
	Name      string
	OrderHint int
	Items     []ItemRow
}

// Fold groups rows by key in first-seen order. The first row bearing a new
// key seeds the group's scalar attributes; every row carrying an item payload
// (the seeding one included) appends a child, preserving row order. An empty
// input is an error: the caller must be able to distinguish "nothing to
// import" from "import produced nothing".
func Fold(rows []Row) ([]Group, error) {
	if len(rows) == 0 {
		return nil, ErrNoGroups
	}

	index := map[string]int{}
	groups := make([]Group, 0, len(rows))
	for _, row := range rows {
		i, seen := index[row.GroupKey]
		if !seen {
			i = len(groups)
			index[row.GroupKey] = i
			groups = append(groups, Group{
				Key:       row.GroupKey,
				Name:      row.GroupName,
				OrderHint: row.GroupOrderHint,
			})
		}
		if row.Item != nil {
			groups[i].Items = append(groups[i].Items, *row.Item)
		}
	}
	return groups, nil
}
