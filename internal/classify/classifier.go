// Package classify assigns categories and recurrence hints to parsed
// transactions. Two interchangeable backends exist behind the BatchClassifier
// interface: a model-backed one and a deterministic rule table. The
// Controller decides which one a run actually uses.
package classify

import (
	"context"
	"errors"

	"github.com/dvloznov/billscan/internal/domain"
)

// Mode says which backend produced a run's classifications.
type Mode string

const (
	ModeAI    Mode = "ai"
	ModeRules Mode = "rules"
)

// Verdict is the per-transaction classification result.
type Verdict struct {
	Category        domain.Category
	IsRecurringHint bool
}

// Item is the classifier's view of one transaction: just enough to decide a
// category without dragging the full domain type across the wire.
type Item struct {
	Descriptor string
	Direction  domain.Direction
}

// BatchClassifier classifies a batch of transactions. Implementations must
// return exactly one verdict per input item, in input order.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, items []Item) ([]Verdict, error)
}

// Failure taxonomy of the primary path. The Controller maps any of these to
// the fallback transition; nothing else escapes the classify stage.
var (
	ErrServiceUnavailable = errors.New("classification service unavailable")
	ErrTimeout            = errors.New("classification timed out")
	ErrSchemaInvalid      = errors.New("classification response violates schema")
)

// Apply zips verdicts back onto transactions, preserving input order.
// A verdict with an invalid category resolves to CategoryOther.
func Apply(txs []domain.Transaction, verdicts []Verdict) []domain.ClassifiedTransaction {
	out := make([]domain.ClassifiedTransaction, len(txs))
	for i, tx := range txs {
		v := Verdict{Category: domain.CategoryOther}
		if i < len(verdicts) {
			v = verdicts[i]
		}
		if !v.Category.Valid() {
			v.Category = domain.CategoryOther
		}
		out[i] = domain.ClassifiedTransaction{
			Transaction:     tx,
			Category:        v.Category,
			IsRecurringHint: v.IsRecurringHint,
		}
	}
	return out
}

// Items projects transactions into classifier inputs.
func Items(txs []domain.Transaction) []Item {
	items := make([]Item, len(txs))
	for i, tx := range txs {
		items[i] = Item{Descriptor: tx.Descriptor, Direction: tx.Direction()}
	}
	return items
}
