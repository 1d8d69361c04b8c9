package notionsync

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/billscan/internal/domain"
	"github.com/dvloznov/billscan/internal/review"
)

type mockNotion struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error)
	UpdatePageFunc    func(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

func (m *mockNotion) CreatePage(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
	return m.CreatePageFunc(ctx, databaseID, props)
}

func (m *mockNotion) UpdatePage(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
	return m.UpdatePageFunc(ctx, pageID, props)
}

func (m *mockNotion) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return m.QueryDatabaseFunc(ctx, databaseID, filter)
}

func samplePayment() review.ImportPayment {
	day := 15
	return review.ImportPayment{
		ID:         "cand-1",
		Name:       "Netflix",
		Amount:     decimal.NewFromFloat(15.99),
		Currency:   "USD",
		Category:   domain.CategorySubscriptions,
		Recurrence: domain.RecurrenceMonthly,
		DayOfMonth: &day,
		StartDate:  time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestPaymentToNotionProperties(t *testing.T) {
	props := PaymentToNotionProperties(samplePayment())

	title, ok := props["Name"].(notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 || title.Title[0].Text.Content != "Netflix" {
		t.Errorf("Name property = %+v", props["Name"])
	}
	amount, ok := props["Amount"].(notionapi.NumberProperty)
	if !ok || amount.Number != 15.99 {
		t.Errorf("Amount property = %+v", props["Amount"])
	}
	freq, ok := props["Frequency"].(notionapi.SelectProperty)
	if !ok || freq.Select.Name != "MONTHLY" {
		t.Errorf("Frequency property = %+v", props["Frequency"])
	}
	if _, ok := props["Billing Day"]; !ok {
		t.Error("Billing Day missing for a monthly payment")
	}
	if _, ok := props["Billing Weekday"]; ok {
		t.Error("Billing Weekday set for a monthly payment")
	}
	if _, ok := props["Notes"]; ok {
		t.Error("Notes set without any notes")
	}
}

func TestSyncPaymentsCreatesNewPages(t *testing.T) {
	var created int
	mock := &mockNotion{
		CreatePageFunc: func(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
			created++
			return &notionapi.Page{}, nil
		},
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{}, nil
		},
	}

	err := SyncPayments(context.Background(), mock, "db-1", []review.ImportPayment{samplePayment()}, false)
	if err != nil {
		t.Fatalf("SyncPayments() error: %v", err)
	}
	if created != 1 {
		t.Errorf("created %d pages, want 1", created)
	}
}

func TestSyncPaymentsUpdatesExisting(t *testing.T) {
	var updated, created int
	mock := &mockNotion{
		CreatePageFunc: func(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
			created++
			return &notionapi.Page{}, nil
		},
		UpdatePageFunc: func(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
			updated++
			return &notionapi.Page{}, nil
		},
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{{
					ID: "page-9",
					Properties: notionapi.Properties{
						"Payment ID": &notionapi.RichTextProperty{
							RichText: []notionapi.RichText{{PlainText: "cand-1"}},
						},
					},
				}},
			}, nil
		},
	}

	err := SyncPayments(context.Background(), mock, "db-1", []review.ImportPayment{samplePayment()}, false)
	if err != nil {
		t.Fatalf("SyncPayments() error: %v", err)
	}
	if updated != 1 || created != 0 {
		t.Errorf("updated=%d created=%d, want 1/0", updated, created)
	}
}

func TestSyncPaymentsDryRun(t *testing.T) {
	mock := &mockNotion{
		CreatePageFunc: func(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
			t.Error("dry run wrote a page")
			return nil, nil
		},
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{}, nil
		},
	}
	if err := SyncPayments(context.Background(), mock, "db-1", []review.ImportPayment{samplePayment()}, true); err != nil {
		t.Fatalf("SyncPayments() error: %v", err)
	}
}
