package statement

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/billscan/internal/domain"
)

// ParseError means the document as a whole could not be turned into
// transactions: nothing recognizable, or too many broken rows.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "statement parse failed: " + e.Reason
}

// maxSkipRatio is the fraction of detected rows that may fail row-level
// parsing before the whole document is rejected.
const maxSkipRatio = 0.20

// DefaultCurrency is stamped on parsed transactions; the bank exports in
// scope never carry a currency column of their own.
const DefaultCurrency = "USD"

// Parse turns raw document bytes into an ordered sequence of transactions.
// mimeHint is optional ("text/csv", "application/pdf", ...); when empty the
// format is sniffed from the content. Unparseable individual rows are skipped
// and reported as warnings; the document fails only when nothing parses or
// the skip ratio exceeds 20%.
func Parse(doc []byte, mimeHint string) ([]domain.Transaction, []string, error) {
	return ParseWithCurrency(doc, mimeHint, DefaultCurrency)
}

// ParseWithCurrency is Parse with an explicit currency code stamped on every
// transaction. An empty code falls back to DefaultCurrency.
func ParseWithCurrency(doc []byte, mimeHint, currency string) ([]domain.Transaction, []string, error) {
	if len(doc) == 0 {
		return nil, nil, &ParseError{Reason: "empty document"}
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	var (
		txs      []domain.Transaction
		warnings []string
		err      error
	)

	switch detectFormat(doc, mimeHint) {
	case formatPDF:
		txs, warnings, err = parsePDF(doc)
	case formatXLSX:
		txs, warnings, err = parseXLSX(doc)
	default:
		txs, warnings, err = parseDelimited(doc)
	}
	if err != nil {
		return nil, nil, err
	}

	// Stable chronological order; ties keep original statement order.
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})
	for i := range txs {
		txs[i].ID = fmt.Sprintf("txn-%03d", i+1)
		txs[i].Currency = currency
	}
	return txs, warnings, nil
}

type format int

const (
	formatDelimited format = iota
	formatXLSX
	formatPDF
)

var (
	pdfMagic  = []byte("%PDF-")
	zipMagic  = []byte("PK\x03\x04")
)

func detectFormat(doc []byte, mimeHint string) format {
	switch {
	case strings.Contains(mimeHint, "pdf"):
		return formatPDF
	case strings.Contains(mimeHint, "spreadsheet"), strings.Contains(mimeHint, "excel"):
		return formatXLSX
	case strings.Contains(mimeHint, "csv"), strings.Contains(mimeHint, "text/"):
		return formatDelimited
	}
	switch {
	case bytes.HasPrefix(doc, pdfMagic):
		return formatPDF
	case bytes.HasPrefix(doc, zipMagic):
		return formatXLSX
	}
	return formatDelimited
}

// finishRows applies the shared partial-success policy: skipped rows become
// warnings, too many skipped rows (or zero parsed rows) fail the document.
func finishRows(txs []domain.Transaction, skipped, detected int) ([]domain.Transaction, []string, error) {
	if detected == 0 || len(txs) == 0 {
		return nil, nil, &ParseError{Reason: "no transaction rows found"}
	}
	if float64(skipped) > maxSkipRatio*float64(detected) {
		return nil, nil, &ParseError{Reason: fmt.Sprintf(
			"%d of %d detected rows unparseable", skipped, detected)}
	}
	var warnings []string
	if skipped > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"skipped %d of %d rows with missing or invalid fields", skipped, detected))
	}
	return txs, warnings, nil
}
