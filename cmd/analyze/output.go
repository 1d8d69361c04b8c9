package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/billscan/internal/analyze"
	"github.com/dvloznov/billscan/internal/domain"
)

func printJSON(w io.Writer, result analyze.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func printReport(w io.Writer, result analyze.Result) {
	s := result.Analysis.Summary
	fmt.Fprintf(w, "Parsed %d transactions\n", len(result.Transactions))
	if result.RunInfo.UsedFallback {
		fmt.Fprintln(w, "Classification: rule-based (AI unavailable or disabled)")
	} else {
		fmt.Fprintln(w, "Classification: AI")
	}
	for _, warning := range result.RunInfo.ParsingWarnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	fmt.Fprintf(w, "\nOpening %s  Closing %s  Credits %s  Debits %s  Net %s\n\n",
		s.OpeningBalance, s.ClosingBalance, s.TotalCredits, s.TotalDebits, s.NetChange)

	printCandidates(w, result.Candidates)
	printTopCategories(w, result.Analysis.Analytics.TopCategories, s.TotalDebits)
	printFlags(w, result.Analysis.Flags)

	if u := result.RunInfo.AIUsage; u != nil {
		fmt.Fprintf(w, "AI usage: %s, %d in / %d out tokens, ~$%.4f\n",
			u.Model, u.InputTokens, u.OutputTokens, u.CostEstimate)
	}
}

func printCandidates(w io.Writer, candidates []domain.RecurringBillCandidate) {
	if len(candidates) == 0 {
		fmt.Fprintln(w, "No recurring bills detected.")
		return
	}
	fmt.Fprintf(w, "Found %d recurring bills\n", len(candidates))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Name", "Category", "Cadence", "Amount", "Seen", "First", "Last", "Confidence"})

	monthlyTotal := decimal.Zero
	for _, c := range candidates {
		t.AppendRow(table.Row{
			c.SuggestedName,
			c.Category,
			c.Recurrence,
			fmt.Sprintf("%s %s", c.AverageAmount.StringFixed(2), c.Currency),
			fmt.Sprintf("%dx", c.OccurrenceCount),
			c.DateRange.First.Format("2006-01-02"),
			c.DateRange.Last.Format("2006-01-02"),
			fmt.Sprintf("%.0f%%", c.Confidence*100),
		})
		if c.Recurrence == domain.RecurrenceMonthly {
			monthlyTotal = monthlyTotal.Add(c.AverageAmount)
		}
	}
	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", text.Bold.Sprint("Monthly total"), text.Bold.Sprint(monthlyTotal.StringFixed(2)), "", "", "", ""})

	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	t.Render()
	fmt.Fprintln(w)
}

func printTopCategories(w io.Writer, top []domain.TopCategory, totalDebits decimal.Decimal) {
	if len(top) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Category", "Spend", "Share"})
	for _, tc := range top {
		t.AppendRow(table.Row{
			tc.Category,
			tc.Amount.StringFixed(2),
			fmt.Sprintf("%.1f%%", tc.Percentage),
		})
	}
	t.AppendSeparator()
	t.AppendFooter(table.Row{text.Bold.Sprint("Total debits"), text.Bold.Sprint(totalDebits.StringFixed(2)), ""})
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()
	fmt.Fprintln(w)
}

func printFlags(w io.Writer, flags domain.Flags) {
	for _, ev := range flags.OverdraftEvents {
		fmt.Fprintf(w, "Overdraft on %s: balance %s\n", ev.Date.Format("2006-01-02"), ev.Balance)
	}
	if n := len(flags.Fees); n > 0 {
		fmt.Fprintf(w, "%d fee charges on this statement\n", n)
	}
	for _, tx := range flags.UnusualActivity {
		fmt.Fprintf(w, "Unusual: %s %s on %s\n",
			tx.RawDescription, tx.Amount.StringFixed(2), tx.Date.Format("2006-01-02"))
	}
	if len(flags.OverdraftEvents)+len(flags.Fees)+len(flags.UnusualActivity) > 0 {
		fmt.Fprintln(w)
	}
}
