// Package analyze turns classified transactions into a structured statement
// report and wires the full analysis pipeline together.
package analyze

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/billscan/internal/domain"
)

// topCategoryLimit caps the spend ranking length.
const topCategoryLimit = 5

// unusualSigma is the z-score above which a transaction's absolute amount
// counts as unusual activity.
const unusualSigma = 3.0

// Aggregate builds the whole-statement report from classified transactions
// and the detected recurring series. It is pure: same input, same output,
// and the input slices are never mutated.
func Aggregate(txs []domain.ClassifiedTransaction, candidates []domain.RecurringBillCandidate) domain.StatementAnalysis {
	ordered := make([]domain.ClassifiedTransaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	credits := bucketize(ordered, domain.DirectionCredit)
	debits := bucketize(ordered, domain.DirectionDebit)
	summary := buildSummary(ordered)

	return domain.StatementAnalysis{
		Summary:   summary,
		Credits:   credits,
		Debits:    debits,
		Analytics: buildAnalytics(ordered, debits, summary, candidates),
		Flags:     buildFlags(ordered, summary),
	}
}

// bucketize groups one direction's transactions by category, in canonical
// category order, dropping empty buckets. Totals are sums of absolute
// amounts, so bucket totals add up to the matching summary total exactly.
func bucketize(txs []domain.ClassifiedTransaction, dir domain.Direction) []domain.CategoryBucket {
	byCat := make(map[domain.Category][]domain.ClassifiedTransaction)
	for _, tx := range txs {
		if tx.Direction() == dir {
			byCat[tx.Category] = append(byCat[tx.Category], tx)
		}
	}
	var buckets []domain.CategoryBucket
	for _, cat := range domain.Categories {
		members := byCat[cat]
		if len(members) == 0 {
			continue
		}
		total := decimal.Zero
		for _, tx := range members {
			total = total.Add(tx.AbsAmount())
		}
		buckets = append(buckets, domain.CategoryBucket{
			Category:     cat,
			Count:        len(members),
			Total:        total,
			Transactions: members,
		})
	}
	return buckets
}

// buildSummary derives the statement totals. When the statement carries
// balance markers the opening balance is anchored to the first marker;
// otherwise it is taken as zero and the balances are relative figures.
func buildSummary(txs []domain.ClassifiedTransaction) domain.Summary {
	var s domain.Summary
	for _, tx := range txs {
		if tx.Direction() == domain.DirectionCredit {
			s.TotalCredits = s.TotalCredits.Add(tx.Amount)
		} else {
			s.TotalDebits = s.TotalDebits.Add(tx.AbsAmount())
		}
	}
	s.NetChange = s.TotalCredits.Sub(s.TotalDebits)
	s.OpeningBalance = openingBalance(txs)
	s.ClosingBalance = s.OpeningBalance.Add(s.NetChange)
	return s
}

// openingBalance walks to the first balance marker and rolls the preceding
// amounts back off it.
func openingBalance(txs []domain.ClassifiedTransaction) decimal.Decimal {
	running := decimal.Zero
	for _, tx := range txs {
		running = running.Add(tx.Amount)
		if tx.BalanceAfter != nil {
			return tx.BalanceAfter.Sub(running)
		}
	}
	return decimal.Zero
}

func buildAnalytics(
	txs []domain.ClassifiedTransaction,
	debits []domain.CategoryBucket,
	summary domain.Summary,
	candidates []domain.RecurringBillCandidate,
) domain.Analytics {
	a := domain.Analytics{
		TopCategories:       topCategories(debits, summary.TotalDebits),
		LargestTransaction:  largestTransaction(txs),
		AverageDailyBalance: averageDailyBalance(txs, summary.OpeningBalance),
	}
	for _, c := range candidates {
		a.RecurringPayments = append(a.RecurringPayments, domain.RecurringPayment{
			Payee:     c.SuggestedName,
			Amount:    c.AverageAmount,
			Frequency: c.Recurrence,
			Category:  c.Category,
		})
	}
	return a
}

// topCategories ranks debit buckets by total spend. Equal totals fall back
// to canonical category order so reruns produce identical rankings.
func topCategories(debits []domain.CategoryBucket, totalDebits decimal.Decimal) []domain.TopCategory {
	ranked := make([]domain.CategoryBucket, len(debits))
	copy(ranked, debits)
	sort.SliceStable(ranked, func(i, j int) bool {
		if !ranked[i].Total.Equal(ranked[j].Total) {
			return ranked[i].Total.GreaterThan(ranked[j].Total)
		}
		return ranked[i].Category.Order() < ranked[j].Category.Order()
	})
	if len(ranked) > topCategoryLimit {
		ranked = ranked[:topCategoryLimit]
	}
	var out []domain.TopCategory
	for _, b := range ranked {
		pct := 0.0
		if totalDebits.IsPositive() {
			pct, _ = b.Total.Div(totalDebits).Mul(decimal.NewFromInt(100)).Round(1).Float64()
		}
		out = append(out, domain.TopCategory{
			Category:   b.Category,
			Amount:     b.Total,
			Percentage: pct,
		})
	}
	return out
}

// largestTransaction picks the biggest absolute movement. Ties go to the
// earlier transaction.
func largestTransaction(txs []domain.ClassifiedTransaction) *domain.LargestTransaction {
	var best *domain.ClassifiedTransaction
	for i := range txs {
		if best == nil || txs[i].AbsAmount().GreaterThan(best.AbsAmount()) {
			best = &txs[i]
		}
	}
	if best == nil {
		return nil
	}
	return &domain.LargestTransaction{
		Type:        best.Direction(),
		Description: best.RawDescription,
		Amount:      best.AbsAmount(),
		Date:        best.Date,
	}
}

// averageDailyBalance weights each end-of-day balance by the days it held,
// across the span from the first to the last transaction date inclusive.
func averageDailyBalance(txs []domain.ClassifiedTransaction, opening decimal.Decimal) decimal.Decimal {
	if len(txs) == 0 {
		return decimal.Zero
	}
	type dayBalance struct {
		day     int // days since first transaction
		balance decimal.Decimal
	}
	first := txs[0].Date
	running := opening
	var days []dayBalance
	for _, tx := range txs {
		running = running.Add(tx.Amount)
		d := int(tx.Date.Sub(first).Hours() / 24)
		if n := len(days); n > 0 && days[n-1].day == d {
			days[n-1].balance = running
		} else {
			days = append(days, dayBalance{day: d, balance: running})
		}
	}
	lastDay := days[len(days)-1].day
	weighted := decimal.Zero
	for i, db := range days {
		span := lastDay - db.day + 1
		if i+1 < len(days) {
			span = days[i+1].day - db.day
		}
		weighted = weighted.Add(db.balance.Mul(decimal.NewFromInt(int64(span))))
	}
	return weighted.Div(decimal.NewFromInt(int64(lastDay + 1))).Round(2)
}

func buildFlags(txs []domain.ClassifiedTransaction, summary domain.Summary) domain.Flags {
	var flags domain.Flags

	running := summary.OpeningBalance
	lastOverdraftDay := ""
	for _, tx := range txs {
		running = running.Add(tx.Amount)
		if running.IsNegative() {
			day := tx.Date.Format("2006-01-02")
			if day != lastOverdraftDay {
				flags.OverdraftEvents = append(flags.OverdraftEvents, domain.OverdraftEvent{
					Date:    tx.Date,
					Balance: running,
				})
				lastOverdraftDay = day
			}
		}
		if tx.Category == domain.CategoryFees && tx.Direction() == domain.DirectionDebit {
			flags.Fees = append(flags.Fees, tx)
		}
	}

	flags.UnusualActivity = unusualActivity(txs)
	return flags
}

// unusualActivity flags transactions whose absolute amount sits more than
// unusualSigma standard deviations above the statement mean. A statement of
// uniform amounts has zero deviation and flags nothing.
func unusualActivity(txs []domain.ClassifiedTransaction) []domain.ClassifiedTransaction {
	if len(txs) < 3 {
		return nil
	}
	amounts := make([]float64, len(txs))
	var mean float64
	for i, tx := range txs {
		amounts[i], _ = tx.AbsAmount().Float64()
		mean += amounts[i]
	}
	mean /= float64(len(amounts))
	var variance float64
	for _, a := range amounts {
		variance += (a - mean) * (a - mean)
	}
	variance /= float64(len(amounts))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return nil
	}
	threshold := mean + unusualSigma*stddev
	var out []domain.ClassifiedTransaction
	for i, a := range amounts {
		if a > threshold {
			out = append(out, txs[i])
		}
	}
	return out
}
