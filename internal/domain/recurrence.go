package domain

import "strings"

// Recurrence describes how often a detected bill repeats.
type Recurrence string

const (
	RecurrenceMonthly   Recurrence = "MONTHLY"
	RecurrenceWeekly    Recurrence = "WEEKLY"
	RecurrenceBiweekly  Recurrence = "BIWEEKLY"
	RecurrenceQuarterly Recurrence = "QUARTERLY"
	RecurrenceAnnual    Recurrence = "ANNUAL"
	RecurrenceOneTime   Recurrence = "ONETIME"
)

// Recurrences lists all recurrence types.
var Recurrences = []Recurrence{
	RecurrenceMonthly,
	RecurrenceWeekly,
	RecurrenceBiweekly,
	RecurrenceQuarterly,
	RecurrenceAnnual,
	RecurrenceOneTime,
}

// ParseRecurrence resolves a free-form string to a Recurrence.
// Unknown values resolve to RecurrenceOneTime.
func ParseRecurrence(s string) Recurrence {
	needle := strings.ToUpper(strings.TrimSpace(s))
	for _, r := range Recurrences {
		if string(r) == needle {
			return r
		}
	}
	return RecurrenceOneTime
}

// UsesDayOfMonth reports whether candidates with this recurrence carry a
// day-of-month anchor (as opposed to a day-of-week one).
func (r Recurrence) UsesDayOfMonth() bool {
	switch r {
	case RecurrenceMonthly, RecurrenceQuarterly, RecurrenceAnnual:
		return true
	}
	return false
}

// UsesDayOfWeek reports whether candidates with this recurrence carry a
// day-of-week anchor.
func (r Recurrence) UsesDayOfWeek() bool {
	return r == RecurrenceWeekly || r == RecurrenceBiweekly
}

func (r Recurrence) String() string {
	return string(r)
}
