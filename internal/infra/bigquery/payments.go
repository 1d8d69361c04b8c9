package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/billscan/internal/review"
)

// PaymentRow is one confirmed recurring payment.
type PaymentRow struct {
	PaymentID     string `bigquery:"payment_id"`      // REQUIRED
	AnalysisRunID string `bigquery:"analysis_run_id"` // REQUIRED

	Name       string `bigquery:"name"`
	Category   string `bigquery:"category"`
	Recurrence string `bigquery:"recurrence"`

	Amount   *big.Rat `bigquery:"amount"` // NUMERIC
	Currency string   `bigquery:"currency"`

	DayOfMonth bigquery.NullInt64 `bigquery:"day_of_month"`
	DayOfWeek  bigquery.NullInt64 `bigquery:"day_of_week"`

	StartDate civil.Date          `bigquery:"start_date"`
	Notes     bigquery.NullString `bigquery:"notes"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// NewPaymentRows converts confirmed payments into rows bound to one
// analysis run.
func NewPaymentRows(runID string, payments []review.ImportPayment) []*PaymentRow {
	rows := make([]*PaymentRow, 0, len(payments))
	now := time.Now().UTC()
	for _, p := range payments {
		row := &PaymentRow{
			PaymentID:     p.ID,
			AnalysisRunID: runID,
			Name:          p.Name,
			Category:      p.Category.String(),
			Recurrence:    string(p.Recurrence),
			Amount:        p.Amount.Rat(),
			Currency:      p.Currency,
			StartDate:     civil.DateOf(p.StartDate),
			Notes:         bigquery.NullString{StringVal: p.Notes, Valid: p.Notes != ""},
			CreatedTS:     now,
		}
		if p.DayOfMonth != nil {
			row.DayOfMonth = bigquery.NullInt64{Int64: int64(*p.DayOfMonth), Valid: true}
		}
		if p.DayOfWeek != nil {
			row.DayOfWeek = bigquery.NullInt64{Int64: int64(*p.DayOfWeek), Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}

// InsertPayments streams a batch of confirmed payments.
func (s *Store) InsertPayments(ctx context.Context, rows []*PaymentRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.table(paymentsTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("bigquery: inserting %d payments: %w", len(rows), err)
	}
	return nil
}

// QueryPaymentsByRun returns every payment confirmed under one analysis run,
// ordered by name.
func (s *Store) QueryPaymentsByRun(ctx context.Context, runID string) ([]*PaymentRow, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			payment_id,
			analysis_run_id,
			name,
			category,
			recurrence,
			amount,
			currency,
			day_of_month,
			day_of_week,
			start_date,
			notes,
			created_ts
		FROM %s.%s
		WHERE analysis_run_id = @analysis_run_id
		ORDER BY name
	`, s.dataset, paymentsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "analysis_run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: querying payments for run %s: %w", runID, err)
	}

	var rows []*PaymentRow
	for {
		var r PaymentRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: iterating payments: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
