// Package detect finds recurring bills in a classified transaction history.
//
// Detection runs in two passes. The first pass greedily groups debits whose
// normalized descriptors are near-identical and whose amounts sit within a
// relative tolerance of the group average. The second pass looks at the gaps
// between a group's charge dates and matches them against known billing
// cadences; groups with no stable cadence are discarded rather than reported
// with a low score.
package detect

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/billscan/internal/domain"
	"github.com/dvloznov/billscan/internal/statement"
)

// Config holds the detector thresholds. Zero values are replaced by the
// defaults from DefaultConfig.
type Config struct {
	// DescriptorSimilarity is the minimum bigram similarity for two
	// descriptors to land in the same group.
	DescriptorSimilarity float64
	// AmountTolerance is the maximum relative deviation of a charge from
	// the group's running average amount.
	AmountTolerance float64
	// IntervalCVCutoff is the maximum coefficient of variation of the
	// gaps between charges. Groups above it have no usable cadence.
	IntervalCVCutoff float64
	// IntervalMatchTolerance is the maximum relative distance between the
	// mean gap and the nearest cadence bucket.
	IntervalMatchTolerance float64
}

// DefaultConfig returns the thresholds used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		DescriptorSimilarity:   0.82,
		AmountTolerance:        0.05,
		IntervalCVCutoff:       0.40,
		IntervalMatchTolerance: 0.25,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DescriptorSimilarity <= 0 {
		c.DescriptorSimilarity = d.DescriptorSimilarity
	}
	if c.AmountTolerance <= 0 {
		c.AmountTolerance = d.AmountTolerance
	}
	if c.IntervalCVCutoff <= 0 {
		c.IntervalCVCutoff = d.IntervalCVCutoff
	}
	if c.IntervalMatchTolerance <= 0 {
		c.IntervalMatchTolerance = d.IntervalMatchTolerance
	}
	return c
}

// Confidence weights. Cadence stability dominates, then evidence volume,
// then amount stability.
const (
	weightInterval = 0.40
	weightCount    = 0.35
	weightAmount   = 0.25
)

// cadenceBuckets maps a nominal gap in days to the recurrence it implies.
// Ordered shortest first so the nearest-bucket scan is deterministic.
var cadenceBuckets = []struct {
	days       float64
	recurrence domain.Recurrence
}{
	{7, domain.RecurrenceWeekly},
	{14, domain.RecurrenceBiweekly},
	{30, domain.RecurrenceMonthly},
	{91, domain.RecurrenceQuarterly},
	{365, domain.RecurrenceAnnual},
}

type group struct {
	descriptor string
	currency   string
	members    []domain.ClassifiedTransaction
	amountSum  decimal.Decimal
}

func (g *group) avgAmount() decimal.Decimal {
	return g.amountSum.Div(decimal.NewFromInt(int64(len(g.members))))
}

// Detect returns recurring bill candidates found in txs. Only debits are
// considered. The result is ordered by confidence, highest first, with ties
// broken by suggested name. Non-matching transactions are simply absent from
// the result; detection never fails.
func Detect(txs []domain.ClassifiedTransaction, cfg Config) []domain.RecurringBillCandidate {
	cfg = cfg.withDefaults()

	debits := make([]domain.ClassifiedTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Direction() == domain.DirectionDebit {
			debits = append(debits, tx)
		}
	}
	sort.SliceStable(debits, func(i, j int) bool {
		return debits[i].Date.Before(debits[j].Date)
	})

	groups := groupDebits(debits, cfg)

	candidates := make([]domain.RecurringBillCandidate, 0, len(groups))
	for _, g := range groups {
		if c, ok := buildCandidate(g, cfg); ok {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].SuggestedName < candidates[j].SuggestedName
	})
	return candidates
}

// groupDebits assigns each debit to the first group whose descriptor is
// similar enough and whose running average amount is within tolerance.
// Greedy first-match over chronologically ordered input keeps the pass
// deterministic.
func groupDebits(debits []domain.ClassifiedTransaction, cfg Config) []*group {
	var groups []*group
	for _, tx := range debits {
		placed := false
		for _, g := range groups {
			if g.currency != tx.Currency {
				continue
			}
			if Similarity(g.descriptor, tx.Descriptor) < cfg.DescriptorSimilarity {
				continue
			}
			if !amountFits(g.avgAmount(), tx.AbsAmount(), cfg.AmountTolerance) {
				continue
			}
			g.members = append(g.members, tx)
			g.amountSum = g.amountSum.Add(tx.AbsAmount())
			placed = true
			break
		}
		if !placed {
			groups = append(groups, &group{
				descriptor: tx.Descriptor,
				currency:   tx.Currency,
				members:    []domain.ClassifiedTransaction{tx},
				amountSum:  tx.AbsAmount(),
			})
		}
	}
	return groups
}

func amountFits(avg, amount decimal.Decimal, tolerance float64) bool {
	if avg.IsZero() {
		return amount.IsZero()
	}
	diff, _ := amount.Sub(avg).Abs().Div(avg.Abs()).Float64()
	return diff <= tolerance
}

// buildCandidate classifies a group's cadence and scores it. It reports
// false when the group is too small, its gaps are too irregular, or the
// mean gap lands outside every cadence bucket.
func buildCandidate(g *group, cfg Config) (domain.RecurringBillCandidate, bool) {
	n := len(g.members)
	if n < 2 {
		return domain.RecurringBillCandidate{}, false
	}

	gaps := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		gaps = append(gaps, g.members[i].Date.Sub(g.members[i-1].Date).Hours()/24)
	}
	meanGap, cvGap := meanCV(gaps)
	if meanGap <= 0 || cvGap > cfg.IntervalCVCutoff {
		return domain.RecurringBillCandidate{}, false
	}

	recurrence, ok := nearestCadence(meanGap, cfg.IntervalMatchTolerance)
	if !ok {
		return domain.RecurringBillCandidate{}, false
	}

	amounts := make([]float64, 0, n)
	for _, tx := range g.members {
		f, _ := tx.AbsAmount().Float64()
		amounts = append(amounts, f)
	}
	_, cvAmount := meanCV(amounts)

	intervalScore := math.Max(0, 1-cvGap/cfg.IntervalCVCutoff)
	countScore := math.Min(1, float64(n-1)/5)
	amountScore := math.Max(0, 1-cvAmount/cfg.AmountTolerance)
	confidence := weightInterval*intervalScore + weightCount*countScore + weightAmount*amountScore

	cand := domain.RecurringBillCandidate{
		ID:                   uuid.NewString(),
		SuggestedName:        statement.CleanMerchantName(mostCommonRaw(g.members)),
		Category:             dominantCategory(g.members),
		Recurrence:           recurrence,
		AverageAmount:        g.avgAmount().Round(2),
		Currency:             g.currency,
		OccurrenceCount:      n,
		OriginalDescriptions: uniqueRaw(g.members),
		DateRange: domain.DateRange{
			First: g.members[0].Date,
			Last:  g.members[n-1].Date,
		},
		Confidence: math.Round(confidence*100) / 100,
	}
	switch {
	case recurrence.UsesDayOfMonth():
		d := modalDayOfMonth(g.members)
		cand.DayOfMonth = &d
	case recurrence.UsesDayOfWeek():
		d := modalDayOfWeek(g.members)
		cand.DayOfWeek = &d
	}
	return cand, true
}

func meanCV(xs []float64) (mean, cv float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if mean == 0 {
		return 0, 0
	}
	var variance float64
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs))
	return mean, math.Sqrt(variance) / mean
}

func nearestCadence(meanGap, tolerance float64) (domain.Recurrence, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, b := range cadenceBuckets {
		dist := math.Abs(meanGap-b.days) / b.days
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 || bestDist > tolerance {
		return domain.RecurrenceOneTime, false
	}
	return cadenceBuckets[best].recurrence, true
}

// mostCommonRaw picks the most frequent raw description, breaking ties in
// favor of the earlier occurrence.
func mostCommonRaw(members []domain.ClassifiedTransaction) string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, tx := range members {
		counts[tx.RawDescription]++
		if _, ok := firstSeen[tx.RawDescription]; !ok {
			firstSeen[tx.RawDescription] = i
		}
	}
	best := ""
	for raw, c := range counts {
		if best == "" ||
			c > counts[best] ||
			(c == counts[best] && firstSeen[raw] < firstSeen[best]) {
			best = raw
		}
	}
	return best
}

func uniqueRaw(members []domain.ClassifiedTransaction) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tx := range members {
		if !seen[tx.RawDescription] {
			seen[tx.RawDescription] = true
			out = append(out, tx.RawDescription)
		}
	}
	return out
}

// dominantCategory is the most frequent member category, with ties resolved
// by the category ordering so the result is stable.
func dominantCategory(members []domain.ClassifiedTransaction) domain.Category {
	counts := make(map[domain.Category]int)
	for _, tx := range members {
		counts[tx.Category]++
	}
	best := domain.CategoryOther
	bestCount := -1
	for _, cat := range domain.Categories {
		if c := counts[cat]; c > bestCount {
			best, bestCount = cat, c
		}
	}
	return best
}

// modalDayOfMonth returns the most common charge day, preferring the most
// recent occurrence on ties.
func modalDayOfMonth(members []domain.ClassifiedTransaction) int {
	return modalDay(members, func(t time.Time) int { return t.Day() })
}

// modalDayOfWeek returns the most common weekday with 0 meaning Monday.
func modalDayOfWeek(members []domain.ClassifiedTransaction) int {
	return modalDay(members, func(t time.Time) int {
		return (int(t.Weekday()) + 6) % 7
	})
}

func modalDay(members []domain.ClassifiedTransaction, key func(time.Time) int) int {
	counts := make(map[int]int)
	lastSeen := make(map[int]int)
	for i, tx := range members {
		d := key(tx.Date)
		counts[d]++
		lastSeen[d] = i
	}
	best, bestCount, bestLast := 0, -1, -1
	for d, c := range counts {
		if c > bestCount || (c == bestCount && lastSeen[d] > bestLast) {
			best, bestCount, bestLast = d, c, lastSeen[d]
		}
	}
	return best
}
