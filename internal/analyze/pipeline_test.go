package analyze

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/billscan/internal/classify"
	"github.com/dvloznov/billscan/internal/detect"
	"github.com/dvloznov/billscan/internal/domain"
	"github.com/dvloznov/billscan/internal/statement"
)

const sampleCSV = `Date,Description,Amount
2025-01-15,NETFLIX.COM 866-579-7172,-15.99
2025-01-25,ACME CORP PAYROLL,3200.00
2025-02-15,NETFLIX.COM 866-579-7172,-15.99
2025-02-25,ACME CORP PAYROLL,3200.00
2025-03-15,NETFLIX.COM 866-579-7172,-15.99
2025-03-25,ACME CORP PAYROLL,3200.00
2025-04-15,NETFLIX.COM 866-579-7172,-15.99
`

// failingClassifier simulates a dead AI backend.
type failingClassifier struct {
	calls int
}

func (f *failingClassifier) ClassifyBatch(ctx context.Context, items []classify.Item) ([]classify.Verdict, error) {
	f.calls++
	return nil, classify.ErrServiceUnavailable
}

func newTestService(primary classify.BatchClassifier) *Service {
	ctrl := classify.NewController(primary, 5*time.Second, zerolog.Nop())
	return NewService(ctrl, detect.Config{}, "", zerolog.Nop())
}

func TestServiceAnalyzeRulesOnly(t *testing.T) {
	svc := newTestService(nil)
	got, err := svc.Analyze(context.Background(), []byte(sampleCSV), "text/csv")
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if len(got.Transactions) != 7 {
		t.Fatalf("parsed %d transactions, want 7", len(got.Transactions))
	}
	if !got.RunInfo.UsedFallback {
		t.Error("UsedFallback not set with no AI backend configured")
	}
	if got.RunInfo.AIUsage != nil {
		t.Error("AIUsage should be nil on the rules path")
	}

	if len(got.Candidates) != 1 {
		t.Fatalf("detected %d recurring candidates, want 1 (credits are not bills)", len(got.Candidates))
	}
	c := got.Candidates[0]
	if c.Recurrence != domain.RecurrenceMonthly {
		t.Errorf("candidate recurrence = %s, want MONTHLY", c.Recurrence)
	}
	if c.Currency != statement.DefaultCurrency {
		t.Errorf("candidate currency = %q, want %q", c.Currency, statement.DefaultCurrency)
	}
	for i, tx := range got.Transactions {
		if tx.Currency != statement.DefaultCurrency {
			t.Errorf("transactions[%d].Currency = %q, want %q", i, tx.Currency, statement.DefaultCurrency)
		}
	}
	if c.Category != domain.CategorySubscriptions {
		t.Errorf("candidate category = %s, want Subscriptions", c.Category)
	}

	if !got.Analysis.Summary.TotalDebits.IsPositive() || !got.Analysis.Summary.TotalCredits.IsPositive() {
		t.Errorf("summary totals missing: %+v", got.Analysis.Summary)
	}
	if len(got.Analysis.Analytics.RecurringPayments) != 1 {
		t.Errorf("analytics carries %d recurring payments, want 1", len(got.Analysis.Analytics.RecurringPayments))
	}
}

func TestServiceAnalyzeDemotesToRulesOnce(t *testing.T) {
	primary := &failingClassifier{}
	svc := newTestService(primary)

	got, err := svc.Analyze(context.Background(), []byte(sampleCSV), "text/csv")
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("primary classifier called %d times, want exactly 1 (no retry)", primary.calls)
	}
	if !got.RunInfo.UsedFallback {
		t.Error("UsedFallback not set after primary failure")
	}
	found := false
	for _, w := range got.RunInfo.ParsingWarnings {
		if strings.Contains(w, "rule-based") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings %v do not mention the rule fallback", got.RunInfo.ParsingWarnings)
	}
	// The fallback must still classify everything.
	for _, tx := range got.Transactions {
		if !tx.Category.Valid() {
			t.Errorf("transaction %q has invalid category %q", tx.RawDescription, tx.Category)
		}
	}
}

func TestServiceAnalyzeRejectsGarbage(t *testing.T) {
	svc := newTestService(nil)
	if _, err := svc.Analyze(context.Background(), []byte("not a statement at all"), ""); err == nil {
		t.Fatal("Analyze() accepted garbage input")
	}
}
