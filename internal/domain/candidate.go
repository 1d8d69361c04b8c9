package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateRange covers the first and last occurrence of a candidate.
type DateRange struct {
	First time.Time `json:"first"`
	Last  time.Time `json:"last"`
}

// RecurringBillCandidate is a detected, not-yet-confirmed recurring payment.
// Candidates are recomputed on every run and never mutated in place: user
// edits during review become overlays (see the review package), so the
// detector output stays intact for audit.
type RecurringBillCandidate struct {
	ID                   string          `json:"id"`
	SuggestedName        string          `json:"suggested_name"`
	Category             Category        `json:"category"`
	Recurrence           Recurrence      `json:"recurrence"`
	AverageAmount        decimal.Decimal `json:"average_amount"`
	Currency             string          `json:"currency"`
	OccurrenceCount      int             `json:"occurrence_count"`
	OriginalDescriptions []string        `json:"original_descriptions"`
	DateRange            DateRange       `json:"date_range"`
	DayOfMonth           *int            `json:"day_of_month,omitempty"`
	DayOfWeek            *int            `json:"day_of_week,omitempty"` // 0=Monday .. 6=Sunday
	Confidence           float64         `json:"confidence"`
}
