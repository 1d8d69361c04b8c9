package statement

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonAmountChars = regexp.MustCompile(`[^\d.,\-()]`)

// ParseAmount converts a statement amount string into a decimal. It tolerates
// currency symbols, thousands separators and both decimal-mark conventions
// ("1,234.56" and "1.234,56"), plus accounting-style parentheses for
// negatives.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := nonAmountChars.ReplaceAllString(strings.TrimSpace(s), "")
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, fmt.Errorf("no numeric content in %q", s)
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	cleaned = strings.Trim(cleaned, "()")

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// European style: 1.234,56
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// US style: 1,234.56
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			// comma as decimal mark
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// comma as thousands separator
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// looksNumeric reports whether s parses as an amount. Used by the column-role
// heuristics.
func looksNumeric(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	_, err := ParseAmount(s)
	return err == nil
}
