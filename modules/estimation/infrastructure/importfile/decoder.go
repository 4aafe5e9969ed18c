// Package importfile decodes estimate import files into flat rows. Both
// decoders accept the same eight-column layout:
//
//	Header, Header Order, Item, Unit Cost, Quantity, Desired Profit, Sales Tax %, Taxable
//
// The first row is treated as a title row and skipped. Header Order may be
// blank; blank means file order.
package importfile

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/structura-io/structura/modules/estimation/domain/entities/estimate"
	"github.com/structura-io/structura/modules/estimation/domain/importing"
)

const (
	colHeader = iota
	colHeaderOrder
	colItem
	colUnitCost
	colQuantity
	colDesiredProfit
	colSalesTax
	colTaxable
	columnCount
)

func DecodeCSV(r io.Reader) ([]importing.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	return parseRecords(records)
}

// DecodeWorkbook reads the first sheet of an xlsx workbook.
func DecodeWorkbook(r io.Reader) ([]importing.Row, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer func() { _ = wb.Close() }()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	records, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "read workbook rows")
	}
	return parseRecords(records)
}

func parseRecords(records [][]string) ([]importing.Row, error) {
	rows := make([]importing.Row, 0, len(records))
	for i, record := range records {
		if i == 0 {
			continue // title row
		}
		if isBlank(record) {
			continue
		}
		row, err := parseRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(record []string) (importing.Row, error) {
	record = pad(record)

	name := strings.TrimSpace(record[colHeader])
	if name == "" {
		return importing.Row{}, errors.New("missing header name")
	}
	row := importing.Row{
		GroupKey:  estimate.NormalizeName(name),
		GroupName: name,
	}
	if raw := strings.TrimSpace(record[colHeaderOrder]); raw != "" {
		hint, err := strconv.Atoi(raw)
		if err != nil || hint < 1 {
			return importing.Row{}, errors.Errorf("bad header order %q", raw)
		}
		row.GroupOrderHint = hint
	}

	itemName := strings.TrimSpace(record[colItem])
	if itemName == "" {
		return row, nil
	}

	unitCost, err := parseDecimal(record[colUnitCost])
	if err != nil {
		return importing.Row{}, errors.Wrap(err, "unit cost")
	}
	quantity, err := parseDecimal(record[colQuantity])
	if err != nil {
		return importing.Row{}, errors.Wrap(err, "quantity")
	}
	profit, err := parseDecimal(record[colDesiredProfit])
	if err != nil {
		return importing.Row{}, errors.Wrap(err, "desired profit")
	}
	salesTax, err := parseDecimal(record[colSalesTax])
	if err != nil {
		return importing.Row{}, errors.Wrap(err, "sales tax")
	}

	row.Item = &importing.ItemRow{
		Name:                 itemName,
		UnitCost:             unitCost,
		Quantity:             quantity,
		DesiredProfit:        profit,
		SalesTaxPercentage:   salesTax,
		IsSalesTaxApplicable: parseBool(record[colTaxable]),
	}
	return row, nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.TrimSuffix(raw, "%")
	return decimal.NewFromString(raw)
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}

func pad(record []string) []string {
	if len(record) >= columnCount {
		return record
	}
	padded := make([]string, columnCount)
	copy(padded, record)
	return padded
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
