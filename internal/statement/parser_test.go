package statement

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

const basicCSV = `Date,Description,Amount,Balance
2024-01-20,GROCERY MARKET,-120.50,2879.50
2024-01-15,NETFLIX.COM #12345678,-15.99,3000.00
2024-01-31,PAYROLL ACME CORP,3200.00,6079.50
`

func TestParseBasicCSV(t *testing.T) {
	txs, warnings, err := Parse([]byte(basicCSV), "text/csv")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}

	// Chronological order regardless of file order, IDs assigned after sort.
	for i, want := range []string{"2024-01-15", "2024-01-20", "2024-01-31"} {
		if got := txs[i].Date.Format("2006-01-02"); got != want {
			t.Errorf("txs[%d].Date = %s, want %s", i, got, want)
		}
		if wantID := fmt.Sprintf("txn-%03d", i+1); txs[i].ID != wantID {
			t.Errorf("txs[%d].ID = %s, want %s", i, txs[i].ID, wantID)
		}
	}

	netflix := txs[0]
	if !netflix.Amount.Equal(decimal.RequireFromString("-15.99")) {
		t.Errorf("netflix amount = %s, want -15.99", netflix.Amount)
	}
	if netflix.Descriptor != "netflix.com" {
		t.Errorf("netflix descriptor = %q, want %q", netflix.Descriptor, "netflix.com")
	}
	if netflix.BalanceAfter == nil || !netflix.BalanceAfter.Equal(decimal.RequireFromString("3000")) {
		t.Errorf("netflix balance = %v, want 3000", netflix.BalanceAfter)
	}
	if payroll := txs[2]; payroll.Direction() != "CREDIT" {
		t.Errorf("payroll direction = %s, want CREDIT", payroll.Direction())
	}
	for i, tx := range txs {
		if tx.Currency != DefaultCurrency {
			t.Errorf("txs[%d].Currency = %q, want %q", i, tx.Currency, DefaultCurrency)
		}
	}
}

func TestParseWithCurrencyOverridesDefault(t *testing.T) {
	txs, _, err := ParseWithCurrency([]byte(basicCSV), "text/csv", "GBP")
	if err != nil {
		t.Fatalf("ParseWithCurrency: %v", err)
	}
	for i, tx := range txs {
		if tx.Currency != "GBP" {
			t.Errorf("txs[%d].Currency = %q, want GBP", i, tx.Currency)
		}
	}
}

func TestParseDebitCreditColumns(t *testing.T) {
	csv := `Date,Description,Paid Out,Paid In
01/05/2024,CITY GYM,45.00,
01/12/2024,REFUND ONLINE STORE,,12.99
`
	txs, _, err := Parse([]byte(csv), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if !txs[0].Amount.Equal(decimal.RequireFromString("-45")) {
		t.Errorf("debit column amount = %s, want -45", txs[0].Amount)
	}
	if !txs[1].Amount.Equal(decimal.RequireFromString("12.99")) {
		t.Errorf("credit column amount = %s, want 12.99", txs[1].Amount)
	}
}

func TestParseDebitColumnSignIsForced(t *testing.T) {
	// Some exports print withdrawals as positive values in the debit column,
	// some as negative. Both must come out negative.
	csv := `Date,Description,Debit
2024-02-01,COFFEE BAR,4.50
2024-02-02,COFFEE BAR,-4.50
`
	txs, _, err := Parse([]byte(csv), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i, tx := range txs {
		if tx.Amount.Sign() >= 0 {
			t.Errorf("txs[%d].Amount = %s, want negative", i, tx.Amount)
		}
	}
}

func TestParseSemicolonWithBOM(t *testing.T) {
	csv := "\xEF\xBB\xBFDate;Narrative;Value\n2024-03-01;SPOTIFY PREMIUM;-9,99\n2024-03-02;SALARY;2.500,00\n"
	txs, _, err := Parse([]byte(csv), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if !txs[0].Amount.Equal(decimal.RequireFromString("-9.99")) {
		t.Errorf("amount = %s, want -9.99", txs[0].Amount)
	}
	if !txs[1].Amount.Equal(decimal.RequireFromString("2500")) {
		t.Errorf("amount = %s, want 2500", txs[1].Amount)
	}
}

func TestParseHeaderlessByShape(t *testing.T) {
	csv := `01/05/2024,NETFLIX.COM,-15.99
01/12/2024,CITY GYM,-45.00
01/15/2024,PAYROLL ACME,3200.00
`
	txs, _, err := Parse([]byte(csv), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}
	if txs[0].RawDescription != "NETFLIX.COM" {
		t.Errorf("description = %q, want NETFLIX.COM", txs[0].RawDescription)
	}
	if !txs[2].Amount.Equal(decimal.RequireFromString("3200")) {
		t.Errorf("amount = %s, want 3200", txs[2].Amount)
	}
}

func TestParseHeaderlessWithBalanceColumn(t *testing.T) {
	// The trailing running-balance column must not take the amount role.
	csv := `01/05/2024,NETFLIX.COM,-15.99,2984.01
01/12/2024,CITY GYM,-45.00,2939.01
01/15/2024,PAYROLL ACME,3200.00,6139.01
`
	txs, _, err := Parse([]byte(csv), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}
	wants := []string{"-15.99", "-45", "3200"}
	for i, w := range wants {
		if !txs[i].Amount.Equal(decimal.RequireFromString(w)) {
			t.Errorf("txs[%d].Amount = %s, want %s", i, txs[i].Amount, w)
		}
	}
	if txs[0].BalanceAfter == nil || !txs[0].BalanceAfter.Equal(decimal.RequireFromString("2984.01")) {
		t.Errorf("BalanceAfter = %v, want 2984.01", txs[0].BalanceAfter)
	}
	if got := txs[0].Direction(); got != "DEBIT" {
		t.Errorf("netflix direction = %s, want DEBIT", got)
	}
}

func TestParseHeaderlessWithReferenceColumn(t *testing.T) {
	// An unsigned integer reference column loses the amount role to the
	// signed decimal one.
	csv := `01/05/2024,00018221,NETFLIX.COM,-15.99
01/12/2024,00018345,CITY GYM,-45.00
01/15/2024,00018562,PAYROLL ACME,3200.00
`
	txs, _, err := Parse([]byte(csv), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}
	if !txs[0].Amount.Equal(decimal.RequireFromString("-15.99")) {
		t.Errorf("amount = %s, want -15.99", txs[0].Amount)
	}
	if txs[0].RawDescription != "NETFLIX.COM" {
		t.Errorf("description = %q, want NETFLIX.COM", txs[0].RawDescription)
	}
}

func TestParseSkipsBadRowsWithWarning(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Description,Amount\n")
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&b, "2024-01-%02d,MERCHANT %d,-10.00\n", i, i)
	}
	b.WriteString("pending,MERCHANT X,-10.00\n")
	b.WriteString("2024-01-20,MERCHANT Y,n/a\n")

	txs, warnings, err := Parse([]byte(b.String()), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(txs) != 8 {
		t.Errorf("got %d transactions, want 8", len(txs))
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "skipped 2 of 10") {
		t.Errorf("warnings = %v, want one 'skipped 2 of 10' warning", warnings)
	}
}

func TestParseRejectsTooManyBadRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Description,Amount\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "2024-01-%02d,MERCHANT %d,-10.00\n", i, i)
	}
	for i := 0; i < 3; i++ {
		b.WriteString("pending,MERCHANT X,-10.00\n")
	}

	_, _, err := Parse([]byte(b.String()), "")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("got %v, want *ParseError", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	docs := map[string]string{
		"empty":      "",
		"one line":   "hello world",
		"prose":      "Dear customer\nYour account is in good standing\nThank you",
		"no amounts": "Date,Description\n2024-01-01,NETFLIX\n",
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			if _, _, err := Parse([]byte(doc), ""); err == nil {
				t.Error("Parse succeeded, want error")
			}
		})
	}
}

func TestParseUnreadablePDF(t *testing.T) {
	if _, _, err := Parse([]byte("%PDF-1.4 not actually a pdf"), ""); err == nil {
		t.Error("Parse succeeded on a broken pdf, want error")
	}
}
