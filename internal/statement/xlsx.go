package statement

import (
	"bytes"

	"github.com/dvloznov/billscan/internal/domain"
	"github.com/xuri/excelize/v2"
)

// parseXLSX reads the first sheet of an Excel export and feeds its rows
// through the same column-role detection as delimited files. The header row
// is searched within the first few rows since bank exports often carry a
// title block above the table.
func parseXLSX(doc []byte) ([]domain.Transaction, []string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(doc))
	if err != nil {
		return nil, nil, &ParseError{Reason: "unreadable spreadsheet: " + err.Error()}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &ParseError{Reason: "spreadsheet has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, &ParseError{Reason: "reading sheet: " + err.Error()}
	}

	headerRow := -1
	var roles columnRoles
	limit := len(rows)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		r := detectColumns(rows[i])
		if r.date >= 0 && (r.amount >= 0 || r.debit >= 0 || r.credit >= 0) {
			headerRow = i
			roles = r
			break
		}
	}
	if headerRow < 0 {
		return nil, nil, &ParseError{Reason: "could not locate a transaction table"}
	}

	var (
		txs     []domain.Transaction
		skipped int
	)
	for _, row := range rows[headerRow+1:] {
		if isBlankRow(row) {
			continue
		}
		tx, ok := parseRow(row, roles)
		if !ok {
			skipped++
			continue
		}
		txs = append(txs, tx)
	}
	return finishRows(txs, skipped, len(txs)+skipped)
}
