package wallet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
)

// TotalInvestedSymbol is the pseudo symbol carrying the invested amount.
const TotalInvestedSymbol = "TOTAL_INVESTED"

// Row one line of the holdings file: symbol,qta,label,liquid_stake.
type Row struct {
	Symbol      string
	Quantity    decimal.Decimal
	Label       string
	LiquidStake bool
}

// ReadHoldings parses holdings CSV. Rows that cannot be parsed are returned as errors
// alongside the rows that could.
func ReadHoldings(r io.Reader) ([]Row, []error, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read holdings csv")
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	cols := map[string]int{"symbol": 0, "qta": 1, "label": 2, "liquid_stake": 3}
	start := 0
	if isHeader(records[0]) {
		for i, name := range records[0] {
			cols[strings.ToLower(strings.TrimSpace(name))] = i
		}
		start = 1
	}

	var (
		rows    []Row
		rowErrs []error
	)
	for n, rec := range records[start:] {
		line := n + start + 1
		symbol := domain.NormalizeSymbol(field(rec, cols["symbol"]))
		if symbol == "" {
			continue
		}
		qty, err := decimal.NewFromString(strings.TrimSpace(field(rec, cols["qta"])))
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("line %d: invalid quantity for %s: %w", line, symbol, err))
			continue
		}
		rows = append(rows, Row{
			Symbol:      symbol,
			Quantity:    qty,
			Label:       strings.ToLower(strings.TrimSpace(field(rec, cols["label"]))),
			LiquidStake: strings.EqualFold(strings.ReplaceAll(field(rec, cols["liquid_stake"]), " ", ""), "yes"),
		})
	}
	return rows, rowErrs, nil
}

func isHeader(rec []string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "symbol")
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
