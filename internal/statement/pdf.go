package statement

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/billscan/internal/domain"
	"github.com/ledongthuc/pdf"
)

var (
	lineDateRe   = regexp.MustCompile(`^(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{1,2}[ -](?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*[ -]\d{2,4})\s+(.+)$`)
	lineAmountRe = regexp.MustCompile(`(-?\(?[\d,]+\.\d{2}\)?)\s*$`)
	sectionStop  = regexp.MustCompile(`(?i)^(total |continued|service fee|page \d)`)
)

// parsePDF locates the transaction table inside a layout-based statement.
// The text layer is reconstructed row by row, then scanned for lines starting
// with a date and ending with an amount; descriptions may continue over the
// following lines. Section headings ("Withdrawals ...", "Deposits ...") decide
// the sign when the statement prints unsigned amounts.
func parsePDF(doc []byte) ([]domain.Transaction, []string, error) {
	text, err := extractPDFText(doc)
	if err != nil {
		return nil, nil, &ParseError{Reason: err.Error()}
	}
	return scanStatementText(text)
}

func extractPDFText(doc []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text extraction crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return "", fmt.Errorf("unreadable pdf: %w", err)
	}
	if r.NumPage() == 0 {
		return "", fmt.Errorf("pdf has no pages")
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text layer found in pdf")
	}
	return b.String(), nil
}

// scanStatementText walks the reconstructed text lines and extracts
// transactions. Exported logic is kept separate from the PDF plumbing so it
// is testable on plain text.
func scanStatementText(text string) ([]domain.Transaction, []string, error) {
	lines := strings.Split(text, "\n")

	var (
		txs        []domain.Transaction
		skipped    int
		detected   int
		inDebits   bool
		inCredits  bool
	)

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "withdrawal") || strings.Contains(lower, "payments out") ||
			(strings.Contains(lower, "debit") && !startsWithStatementDate(line)):
			if !startsWithStatementDate(line) {
				inDebits, inCredits = true, false
				continue
			}
		case strings.Contains(lower, "deposit") || strings.Contains(lower, "payments in") ||
			(strings.Contains(lower, "credit") && !startsWithStatementDate(line)):
			if !startsWithStatementDate(line) {
				inDebits, inCredits = false, true
				continue
			}
		case sectionStop.MatchString(lower):
			inDebits, inCredits = false, false
			continue
		}

		m := lineDateRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		detected++

		date, ok := ParseDate(strings.ReplaceAll(m[1], "-", "/"))
		if !ok {
			date, ok = ParseDate(m[1])
		}
		if !ok {
			skipped++
			continue
		}

		rest := m[2]
		amountStr := ""
		if am := lineAmountRe.FindStringSubmatch(rest); am != nil {
			amountStr = am[1]
			rest = strings.TrimSpace(rest[:len(rest)-len(am[0])])
		} else {
			// multi-line description: collect following lines until we hit an
			// amount, another dated line, or a section boundary
			for j := i + 1; j < len(lines) && j <= i+5; j++ {
				next := strings.TrimSpace(lines[j])
				if next == "" || startsWithStatementDate(next) || sectionStop.MatchString(strings.ToLower(next)) {
					break
				}
				if am := lineAmountRe.FindStringSubmatch(next); am != nil {
					amountStr = am[1]
					if head := strings.TrimSpace(next[:len(next)-len(am[0])]); head != "" {
						rest += " " + head
					}
					i = j
					break
				}
				rest += " " + next
				i = j
			}
		}
		if amountStr == "" || rest == "" {
			skipped++
			continue
		}

		amount, err := ParseAmount(amountStr)
		if err != nil {
			skipped++
			continue
		}
		// Unsigned amounts take their sign from the surrounding section.
		if amount.Sign() > 0 && inDebits && !inCredits {
			amount = amount.Neg()
		}

		txs = append(txs, domain.Transaction{
			Date:           date,
			RawDescription: rest,
			Descriptor:     NormalizeDescriptor(rest),
			Amount:         amount,
		})
	}

	return finishRows(txs, skipped, detected)
}

func startsWithStatementDate(line string) bool {
	return lineDateRe.MatchString(strings.TrimSpace(line))
}
