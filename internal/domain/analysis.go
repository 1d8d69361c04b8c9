package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryBucket groups one direction's transactions under a category.
type CategoryBucket struct {
	Category     Category                `json:"category"`
	Count        int                     `json:"count"`
	Total        decimal.Decimal         `json:"total"` // sum of absolute amounts
	Transactions []ClassifiedTransaction `json:"transactions"`
}

// Summary holds the whole-statement balance figures.
type Summary struct {
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
	TotalCredits   decimal.Decimal `json:"totalCredits"`
	TotalDebits    decimal.Decimal `json:"totalDebits"`
	NetChange      decimal.Decimal `json:"netChange"`
}

// TopCategory is one row of the spend ranking.
type TopCategory struct {
	Category   Category        `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"` // of total debits
}

// RecurringPayment is the aggregator's summary view of a detected series.
type RecurringPayment struct {
	Payee     string          `json:"payee"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency Recurrence      `json:"frequency"`
	Category  Category        `json:"category"`
}

// LargestTransaction identifies the single biggest movement either direction.
type LargestTransaction struct {
	Type        Direction       `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
}

// Analytics holds the derived statement metrics.
type Analytics struct {
	TopCategories       []TopCategory           `json:"topCategories"`
	RecurringPayments   []RecurringPayment      `json:"recurringPayments"`
	LargestTransaction  *LargestTransaction     `json:"largestTransaction,omitempty"`
	AverageDailyBalance decimal.Decimal         `json:"averageDailyBalance"`
}

// OverdraftEvent marks a day the running balance went negative.
type OverdraftEvent struct {
	Date    time.Time       `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// Flags collects the risk/attention findings of a statement.
type Flags struct {
	OverdraftEvents []OverdraftEvent        `json:"overdraftEvents"`
	Fees            []ClassifiedTransaction `json:"fees"`
	UnusualActivity []ClassifiedTransaction `json:"unusualActivity"`
}

// StatementAnalysis is the structured whole-statement report.
//
// Invariants: the sum of bucket totals per direction equals the matching
// summary total exactly (decimal arithmetic, no epsilon needed), and every
// classified transaction appears in exactly one bucket of its direction.
type StatementAnalysis struct {
	Summary   Summary          `json:"summary"`
	Credits   []CategoryBucket `json:"credits"`
	Debits    []CategoryBucket `json:"debits"`
	Analytics Analytics        `json:"analytics"`
	Flags     Flags            `json:"flags"`
}

// AIUsage reports token spend of the AI classification path.
type AIUsage struct {
	Model        string  `json:"model"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostEstimate float64 `json:"cost_estimate"` // USD
}

// RunInfo is the provenance metadata carried alongside a run's outputs.
type RunInfo struct {
	UsedFallback    bool     `json:"used_fallback"`
	ParsingWarnings []string `json:"parsing_warnings"`
	AIUsage         *AIUsage `json:"ai_usage,omitempty"`
}
