package statement

import (
	"bytes"
	"encoding/csv"
	"regexp"
	"strings"

	"github.com/dvloznov/billscan/internal/domain"
	"github.com/shopspring/decimal"
)

// Column-role header patterns, matched case-insensitively against trimmed
// header cells.
var (
	dateHeaderPatterns = compileAll(
		`^date$`, `^trans.*date$`, `^posted.*date$`, `^posting.*date$`,
		`^transaction.*date$`, `^value.*date$`, `^effective.*date$`,
	)
	descriptionHeaderPatterns = compileAll(
		`^description$`, `^memo$`, `^narrative$`, `^details$`,
		`^payee$`, `^merchant$`, `^name$`, `^particulars$`,
		`^transaction.*description$`, `^payment.*details$`, `^text$`,
	)
	amountHeaderPatterns = compileAll(
		`^amount$`, `^value$`, `^transaction.*amount$`, `^sum$`,
	)
	debitHeaderPatterns = compileAll(
		`^debit$`, `^withdrawal$`, `^dr$`, `^debit.*amount$`, `^out$`, `^paid.*out$`,
	)
	creditHeaderPatterns = compileAll(
		`^credit$`, `^deposit$`, `^cr$`, `^credit.*amount$`, `^in$`, `^paid.*in$`,
	)
	balanceHeaderPatterns = compileAll(
		`^balance$`, `^running.*balance$`, `^balance.*after$`, `^saldo$`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(`(?i)` + p)
	}
	return res
}

func matchHeader(cell string, patterns []*regexp.Regexp) bool {
	cell = strings.TrimSpace(cell)
	for _, re := range patterns {
		if re.MatchString(cell) {
			return true
		}
	}
	return false
}

// columnRoles maps detected roles to column indices; -1 means absent.
type columnRoles struct {
	date, description, amount, debit, credit, balance int
}

func detectColumns(headers []string) columnRoles {
	roles := columnRoles{date: -1, description: -1, amount: -1, debit: -1, credit: -1, balance: -1}
	for i, h := range headers {
		switch {
		case roles.date < 0 && matchHeader(h, dateHeaderPatterns):
			roles.date = i
		case roles.description < 0 && matchHeader(h, descriptionHeaderPatterns):
			roles.description = i
		case roles.amount < 0 && matchHeader(h, amountHeaderPatterns):
			roles.amount = i
		case roles.debit < 0 && matchHeader(h, debitHeaderPatterns):
			roles.debit = i
		case roles.credit < 0 && matchHeader(h, creditHeaderPatterns):
			roles.credit = i
		case roles.balance < 0 && matchHeader(h, balanceHeaderPatterns):
			roles.balance = i
		}
	}
	return roles
}

// detectColumnsByShape infers roles from cell values when the file has no
// recognizable header: the first column whose values parse as dates becomes
// the date column, the first remaining text column the description. Among the
// numeric columns the amount is the one carrying signs, then the first with
// decimal marks (reference columns are unsigned integers); a later
// decimal-marked numeric column is taken as the running balance.
func detectColumnsByShape(rows [][]string) columnRoles {
	roles := columnRoles{date: -1, description: -1, amount: -1, debit: -1, credit: -1, balance: -1}
	if len(rows) == 0 {
		return roles
	}
	sample := rows
	if len(sample) > 20 {
		sample = sample[:20]
	}
	width := 0
	for _, r := range sample {
		if len(r) > width {
			width = len(r)
		}
	}

	type colShape struct {
		filled, dates, numerics, signed, decimals int
	}
	shapes := make([]colShape, width)
	for col := 0; col < width; col++ {
		sh := &shapes[col]
		for _, r := range sample {
			if col >= len(r) || strings.TrimSpace(r[col]) == "" {
				continue
			}
			sh.filled++
			if looksDate(r[col]) {
				sh.dates++
				continue
			}
			a, err := ParseAmount(r[col])
			if err != nil {
				continue
			}
			sh.numerics++
			if a.Sign() < 0 {
				sh.signed++
			}
			if a.Exponent() < 0 {
				sh.decimals++
			}
		}
	}

	var numericCols []int
	for col, sh := range shapes {
		if sh.filled == 0 {
			continue
		}
		switch {
		case roles.date < 0 && sh.dates*2 > sh.filled:
			roles.date = col
		case sh.numerics*2 > sh.filled:
			numericCols = append(numericCols, col)
		case roles.description < 0:
			roles.description = col
		}
	}

	for _, col := range numericCols {
		if roles.amount < 0 {
			roles.amount = col
			continue
		}
		cur, cand := shapes[roles.amount], shapes[col]
		if cand.signed > cur.signed || (cand.signed == cur.signed && cur.decimals == 0 && cand.decimals > 0) {
			roles.amount = col
		}
	}
	for _, col := range numericCols {
		if col > roles.amount && shapes[col].decimals > 0 {
			roles.balance = col
			break
		}
	}
	return roles
}

// parseDelimited handles CSV/TSV exports. The delimiter is sniffed from the
// first line, column roles from the header row (or value shapes when no
// header matches).
func parseDelimited(doc []byte) ([]domain.Transaction, []string, error) {
	text := string(bytes.TrimPrefix(doc, []byte{0xEF, 0xBB, 0xBF})) // strip UTF-8 BOM

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, &ParseError{Reason: "malformed delimited file: " + err.Error()}
	}
	if len(rows) < 2 {
		return nil, nil, &ParseError{Reason: "no data rows"}
	}

	roles := detectColumns(rows[0])
	dataRows := rows[1:]
	if roles.date < 0 || roles.description < 0 {
		roles = detectColumnsByShape(rows)
		dataRows = rows
	}
	if roles.date < 0 {
		return nil, nil, &ParseError{Reason: "could not locate a date column"}
	}
	if roles.amount < 0 && roles.debit < 0 && roles.credit < 0 {
		return nil, nil, &ParseError{Reason: "could not locate an amount column"}
	}

	var (
		txs     []domain.Transaction
		skipped int
	)
	for _, row := range dataRows {
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

func parseRow(row []string, roles columnRoles) (domain.Transaction, bool) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, ok := ParseDate(cell(roles.date))
	if !ok {
		return domain.Transaction{}, false
	}
	desc := cell(roles.description)
	if desc == "" {
		return domain.Transaction{}, false
	}

	var amount decimal.Decimal
	switch {
	case roles.amount >= 0 && cell(roles.amount) != "":
		a, err := ParseAmount(cell(roles.amount))
		if err != nil {
			return domain.Transaction{}, false
		}
		amount = a
	case roles.debit >= 0 && cell(roles.debit) != "":
		a, err := ParseAmount(cell(roles.debit))
		if err != nil {
			return domain.Transaction{}, false
		}
		amount = a.Abs().Neg()
	case roles.credit >= 0 && cell(roles.credit) != "":
		a, err := ParseAmount(cell(roles.credit))
		if err != nil {
			return domain.Transaction{}, false
		}
		amount = a.Abs()
	default:
		return domain.Transaction{}, false
	}

	tx := domain.Transaction{
		Date:           date,
		RawDescription: desc,
		Descriptor:     NormalizeDescriptor(desc),
		Amount:         amount,
	}
	if b := cell(roles.balance); b != "" {
		if bal, err := ParseAmount(b); err == nil {
			tx.BalanceAfter = &bal
		}
	}
	return tx, true
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func sniffDelimiter(text string) rune {
	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}
	best, bestCount := ',', strings.Count(firstLine, ",")
	if n := strings.Count(firstLine, ";"); n > bestCount {
		best, bestCount = ';', n
	}
	if n := strings.Count(firstLine, "\t"); n > bestCount {
		best = '\t'
	}
	return best
}
