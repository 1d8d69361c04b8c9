package analyze

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/billscan/internal/domain"
)

func tx(date string, desc string, amount float64, cat domain.Category) domain.ClassifiedTransaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return domain.ClassifiedTransaction{
		Transaction: domain.Transaction{
			Date:           d,
			RawDescription: desc,
			Descriptor:     desc,
			Amount:         decimal.NewFromFloat(amount),
			Currency:       "USD",
		},
		Category: cat,
	}
}

func withBalance(t domain.ClassifiedTransaction, balance float64) domain.ClassifiedTransaction {
	b := decimal.NewFromFloat(balance)
	t.BalanceAfter = &b
	return t
}

func sampleStatement() []domain.ClassifiedTransaction {
	return []domain.ClassifiedTransaction{
		withBalance(tx("2025-03-01", "ACME CORP PAYROLL", 3200.00, domain.CategoryIncomePayroll), 4200.00),
		tx("2025-03-02", "CITY MORTGAGE", -1500.00, domain.CategoryMortgageRent),
		tx("2025-03-05", "NETFLIX.COM", -15.99, domain.CategorySubscriptions),
		tx("2025-03-08", "WHOLE FOODS", -120.50, domain.CategoryShopping),
		tx("2025-03-12", "MONTHLY SERVICE FEE", -12.00, domain.CategoryFees),
		tx("2025-03-20", "TRANSFER TO SAVINGS", -500.00, domain.CategoryTransfersOut),
	}
}

func TestAggregateBucketTotalsMatchSummary(t *testing.T) {
	got := Aggregate(sampleStatement(), nil)

	creditSum := decimal.Zero
	for _, b := range got.Credits {
		creditSum = creditSum.Add(b.Total)
	}
	if !creditSum.Equal(got.Summary.TotalCredits) {
		t.Errorf("credit buckets sum to %s, summary says %s", creditSum, got.Summary.TotalCredits)
	}

	debitSum := decimal.Zero
	bucketed := 0
	for _, b := range got.Debits {
		debitSum = debitSum.Add(b.Total)
		bucketed += b.Count
	}
	if !debitSum.Equal(got.Summary.TotalDebits) {
		t.Errorf("debit buckets sum to %s, summary says %s", debitSum, got.Summary.TotalDebits)
	}
	if bucketed != 5 {
		t.Errorf("debit buckets hold %d transactions, want 5", bucketed)
	}

	want := decimal.NewFromFloat(3200.00 - 1500.00 - 15.99 - 120.50 - 12.00 - 500.00)
	if !got.Summary.NetChange.Equal(want) {
		t.Errorf("NetChange = %s, want %s", got.Summary.NetChange, want)
	}
}

func TestAggregateAnchorsBalancesToMarker(t *testing.T) {
	got := Aggregate(sampleStatement(), nil)

	// First transaction credits 3200.00 and lands on a 4200.00 marker.
	if want := decimal.NewFromFloat(1000.00); !got.Summary.OpeningBalance.Equal(want) {
		t.Errorf("OpeningBalance = %s, want %s", got.Summary.OpeningBalance, want)
	}
	wantClosing := decimal.NewFromFloat(1000.00).Add(got.Summary.NetChange)
	if !got.Summary.ClosingBalance.Equal(wantClosing) {
		t.Errorf("ClosingBalance = %s, want %s", got.Summary.ClosingBalance, wantClosing)
	}
}

func TestAggregateTopCategories(t *testing.T) {
	got := Aggregate(sampleStatement(), nil)

	top := got.Analytics.TopCategories
	if len(top) == 0 {
		t.Fatal("no top categories")
	}
	if top[0].Category != domain.CategoryMortgageRent {
		t.Errorf("top category = %s, want Mortgage_Rent", top[0].Category)
	}
	if len(top) > 1 && top[1].Category != domain.CategoryTransfersOut {
		t.Errorf("second category = %s, want Transfers_Out", top[1].Category)
	}
	if top[0].Percentage <= top[len(top)-1].Percentage {
		t.Errorf("percentages not descending: %v", top)
	}
}

func TestAggregateTopCategoriesTieBreak(t *testing.T) {
	txs := []domain.ClassifiedTransaction{
		tx("2025-03-01", "SHOP A", -50.00, domain.CategoryShopping),
		tx("2025-03-02", "POWER CO", -50.00, domain.CategoryUtilities),
	}
	got := Aggregate(txs, nil)
	top := got.Analytics.TopCategories
	if len(top) != 2 {
		t.Fatalf("got %d top categories, want 2", len(top))
	}
	// Equal spend: canonical category order decides, Utilities before Shopping.
	if top[0].Category != domain.CategoryUtilities {
		t.Errorf("tie resolved to %s, want Utilities first", top[0].Category)
	}
}

func TestAggregateLargestTransactionTieBreak(t *testing.T) {
	txs := []domain.ClassifiedTransaction{
		tx("2025-03-10", "LATER BIG DEBIT", -900.00, domain.CategoryOther),
		tx("2025-03-04", "EARLIER BIG CREDIT", 900.00, domain.CategoryOther),
	}
	got := Aggregate(txs, nil)
	lt := got.Analytics.LargestTransaction
	if lt == nil {
		t.Fatal("LargestTransaction is nil")
	}
	if lt.Description != "EARLIER BIG CREDIT" {
		t.Errorf("tie resolved to %q, want the earlier transaction", lt.Description)
	}
	if lt.Type != domain.DirectionCredit {
		t.Errorf("Type = %s, want CREDIT", lt.Type)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	got := Aggregate(nil, nil)
	if got.Analytics.LargestTransaction != nil {
		t.Error("LargestTransaction should be nil for an empty statement")
	}
	if len(got.Credits)+len(got.Debits) != 0 {
		t.Error("expected no buckets for an empty statement")
	}
	if !got.Summary.NetChange.IsZero() {
		t.Errorf("NetChange = %s, want 0", got.Summary.NetChange)
	}
}

func TestAggregateFlagsOverdraft(t *testing.T) {
	txs := []domain.ClassifiedTransaction{
		withBalance(tx("2025-03-01", "OPENING CREDIT", 100.00, domain.CategoryOther), 100.00),
		tx("2025-03-03", "BIG RENT", -150.00, domain.CategoryMortgageRent),
		tx("2025-03-04", "COFFEE", -5.00, domain.CategoryShopping),
		tx("2025-03-05", "ACME CORP PAYROLL", 500.00, domain.CategoryIncomePayroll),
	}
	got := Aggregate(txs, nil)
	events := got.Flags.OverdraftEvents
	if len(events) != 2 {
		t.Fatalf("got %d overdraft events, want 2 (one per negative day)", len(events))
	}
	if !events[0].Balance.Equal(decimal.NewFromFloat(-50.00)) {
		t.Errorf("first overdraft balance = %s, want -50", events[0].Balance)
	}
}

func TestAggregateFlagsFeesAndUnusual(t *testing.T) {
	txs := []domain.ClassifiedTransaction{
		tx("2025-03-12", "MONTHLY SERVICE FEE", -12.00, domain.CategoryFees),
	}
	for day := 1; day <= 20; day++ {
		d := time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		txs = append(txs, tx(d, "COFFEE", -4.50, domain.CategoryShopping))
	}
	txs = append(txs, tx("2025-03-25", "WIRE OUT", -9000.00, domain.CategoryTransfersOut))

	got := Aggregate(txs, nil)
	if len(got.Flags.Fees) != 1 {
		t.Errorf("got %d fee flags, want 1", len(got.Flags.Fees))
	}
	if len(got.Flags.UnusualActivity) != 1 {
		t.Fatalf("got %d unusual flags, want 1", len(got.Flags.UnusualActivity))
	}
	if got.Flags.UnusualActivity[0].RawDescription != "WIRE OUT" {
		t.Errorf("unusual = %q, want the wire", got.Flags.UnusualActivity[0].RawDescription)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	txs := sampleStatement()
	first := Aggregate(txs, nil)
	second := Aggregate(txs, nil)
	if len(first.Debits) != len(second.Debits) {
		t.Fatalf("bucket counts differ between runs: %d vs %d", len(first.Debits), len(second.Debits))
	}
	for i := range first.Debits {
		if first.Debits[i].Category != second.Debits[i].Category ||
			!first.Debits[i].Total.Equal(second.Debits[i].Total) {
			t.Errorf("bucket %d differs between runs", i)
		}
	}
	if !first.Summary.ClosingBalance.Equal(second.Summary.ClosingBalance) {
		t.Error("closing balance differs between runs")
	}
}

func TestAggregateCarriesRecurringPayments(t *testing.T) {
	cands := []domain.RecurringBillCandidate{{
		SuggestedName: "Netflix",
		Category:      domain.CategorySubscriptions,
		Recurrence:    domain.RecurrenceMonthly,
		AverageAmount: decimal.NewFromFloat(15.99),
	}}
	got := Aggregate(sampleStatement(), cands)
	rp := got.Analytics.RecurringPayments
	if len(rp) != 1 {
		t.Fatalf("got %d recurring payments, want 1", len(rp))
	}
	if rp[0].Payee != "Netflix" || rp[0].Frequency != domain.RecurrenceMonthly {
		t.Errorf("recurring payment = %+v", rp[0])
	}
}
