// Package review lets a user confirm, adjust, or reject detected recurring
// bills before they are imported. The detector's candidates stay immutable;
// the session keeps user decisions as an overlay and merges them on read.
package review

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/billscan/internal/domain"
)

// Edit is a partial update to one candidate. Nil fields leave the detected
// value untouched.
type Edit struct {
	Name       *string            `json:"name,omitempty"`
	Category   *domain.Category   `json:"category,omitempty"`
	Recurrence *domain.Recurrence `json:"recurrence,omitempty"`
	Amount     *decimal.Decimal   `json:"amount,omitempty"`
	DayOfMonth *int               `json:"day_of_month,omitempty"`
	DayOfWeek  *int               `json:"day_of_week,omitempty"`
	Notes      *string            `json:"notes,omitempty"`
}

// ImportPayment is one confirmed recurring payment, shaped for downstream
// storage and export.
type ImportPayment struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Amount     decimal.Decimal   `json:"amount"`
	Currency   string            `json:"currency"`
	Category   domain.Category   `json:"category"`
	Recurrence domain.Recurrence `json:"recurrence"`
	DayOfMonth *int              `json:"day_of_month,omitempty"`
	DayOfWeek  *int              `json:"day_of_week,omitempty"`
	StartDate  time.Time         `json:"start_date"`
	Notes      string            `json:"notes,omitempty"`
}

// Session is one review pass over a detection result. Not safe for
// concurrent use; each statement review gets its own session.
type Session struct {
	candidates map[string]domain.RecurringBillCandidate
	order      []string
	edits      map[string]Edit
	excluded   map[string]bool
}

// NewSession starts a review over the given candidates. All candidates
// start included and unedited.
func NewSession(candidates []domain.RecurringBillCandidate) *Session {
	s := &Session{
		candidates: make(map[string]domain.RecurringBillCandidate, len(candidates)),
		edits:      make(map[string]Edit),
		excluded:   make(map[string]bool),
	}
	for _, c := range candidates {
		s.candidates[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	return s
}

func (s *Session) lookup(id string) error {
	if _, ok := s.candidates[id]; !ok {
		return fmt.Errorf("review: unknown candidate %q", id)
	}
	return nil
}

// Apply records an edit for a candidate. Later edits merge over earlier
// ones field by field.
func (s *Session) Apply(id string, edit Edit) error {
	if err := s.lookup(id); err != nil {
		return err
	}
	if edit.Category != nil && !edit.Category.Valid() {
		return fmt.Errorf("review: invalid category %q", *edit.Category)
	}
	if edit.DayOfMonth != nil && (*edit.DayOfMonth < 1 || *edit.DayOfMonth > 31) {
		return fmt.Errorf("review: day of month %d out of range", *edit.DayOfMonth)
	}
	if edit.DayOfWeek != nil && (*edit.DayOfWeek < 0 || *edit.DayOfWeek > 6) {
		return fmt.Errorf("review: day of week %d out of range", *edit.DayOfWeek)
	}
	merged := s.edits[id]
	if edit.Name != nil {
		merged.Name = edit.Name
	}
	if edit.Category != nil {
		merged.Category = edit.Category
	}
	if edit.Recurrence != nil {
		merged.Recurrence = edit.Recurrence
	}
	if edit.Amount != nil {
		merged.Amount = edit.Amount
	}
	if edit.DayOfMonth != nil {
		merged.DayOfMonth = edit.DayOfMonth
	}
	if edit.DayOfWeek != nil {
		merged.DayOfWeek = edit.DayOfWeek
	}
	if edit.Notes != nil {
		merged.Notes = edit.Notes
	}
	s.edits[id] = merged
	return nil
}

// Exclude drops a candidate from the import without deleting the detection.
func (s *Session) Exclude(id string) error {
	if err := s.lookup(id); err != nil {
		return err
	}
	s.excluded[id] = true
	return nil
}

// Include reverses a prior Exclude.
func (s *Session) Include(id string) error {
	if err := s.lookup(id); err != nil {
		return err
	}
	delete(s.excluded, id)
	return nil
}

// Excluded reports whether a candidate is currently out of the import.
func (s *Session) Excluded(id string) bool {
	return s.excluded[id]
}

// Candidates returns every candidate with its edits applied, in the
// detector's original order, including excluded ones.
func (s *Session) Candidates() []domain.RecurringBillCandidate {
	out := make([]domain.RecurringBillCandidate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.merged(id))
	}
	return out
}

func (s *Session) merged(id string) domain.RecurringBillCandidate {
	c := s.candidates[id]
	e, ok := s.edits[id]
	if !ok {
		return c
	}
	if e.Name != nil {
		c.SuggestedName = *e.Name
	}
	if e.Category != nil {
		c.Category = *e.Category
	}
	if e.Recurrence != nil {
		c.Recurrence = *e.Recurrence
		// A recurrence change can flip which anchor day applies.
		if !c.Recurrence.UsesDayOfMonth() {
			c.DayOfMonth = nil
		}
		if !c.Recurrence.UsesDayOfWeek() {
			c.DayOfWeek = nil
		}
	}
	if e.Amount != nil {
		c.AverageAmount = *e.Amount
	}
	if e.DayOfMonth != nil && c.Recurrence.UsesDayOfMonth() {
		c.DayOfMonth = e.DayOfMonth
	}
	if e.DayOfWeek != nil && c.Recurrence.UsesDayOfWeek() {
		c.DayOfWeek = e.DayOfWeek
	}
	return c
}

// BuildImport produces the confirmed payment list: included candidates
// only, edits applied, sorted by name for stable output.
func (s *Session) BuildImport() []ImportPayment {
	var out []ImportPayment
	for _, id := range s.order {
		if s.excluded[id] {
			continue
		}
		c := s.merged(id)
		p := ImportPayment{
			ID:         c.ID,
			Name:       c.SuggestedName,
			Amount:     c.AverageAmount,
			Currency:   c.Currency,
			Category:   c.Category,
			Recurrence: c.Recurrence,
			DayOfMonth: c.DayOfMonth,
			DayOfWeek:  c.DayOfWeek,
			StartDate:  c.DateRange.First,
		}
		if e, ok := s.edits[id]; ok && e.Notes != nil {
			p.Notes = *e.Notes
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
