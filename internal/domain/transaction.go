package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells whether money moved into or out of the account.
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

// Transaction is one normalized statement line. It is immutable once parsed;
// the pipeline owns it for the duration of a run and never persists it on its
// own.
type Transaction struct {
	ID             string          // stable within a run, assigned by the parser
	Date           time.Time       // transaction date, time part always zero
	RawDescription string          // description exactly as it appeared
	Descriptor     string          // normalized matching key, see statement.NormalizeDescriptor
	Amount         decimal.Decimal // signed: credits positive, debits negative
	Currency       string
	BalanceAfter   *decimal.Decimal // running balance if the statement carried one
}

// Direction derives the movement direction from the signed amount.
func (t Transaction) Direction() Direction {
	if t.Amount.Sign() >= 0 {
		return DirectionCredit
	}
	return DirectionDebit
}

// AbsAmount returns the unsigned amount.
func (t Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// ClassifiedTransaction is a Transaction plus the classifier's verdict.
type ClassifiedTransaction struct {
	Transaction
	Category        Category
	IsRecurringHint bool
}
