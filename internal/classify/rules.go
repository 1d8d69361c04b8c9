package classify

import (
	"context"
	"regexp"

	"github.com/dvloznov/billscan/internal/domain"
)

// rule maps a descriptor pattern to a category. Rules are evaluated top to
// bottom; the first match wins, which makes the table's order part of its
// semantics (e.g. "loan insurance" should hit Insurance before Loans would
// swallow it, so the more specific patterns come first).
type rule struct {
	pattern   *regexp.Regexp
	category  domain.Category
	direction domain.Direction // empty string matches both directions
	recurring bool
}

func r(pattern string, cat domain.Category, recurring bool) rule {
	return rule{pattern: regexp.MustCompile(pattern), category: cat, recurring: recurring}
}

func rd(pattern string, cat domain.Category, dir domain.Direction, recurring bool) rule {
	rl := r(pattern, cat, recurring)
	rl.direction = dir
	return rl
}

// rules is the deterministic fallback table, matched against normalized
// descriptors (already lower-case).
var rules = []rule{
	// Income first: payroll patterns only make sense on credits.
	rd(`payroll|salary|direct dep|dir dep|wages|paycheck|pension`, domain.CategoryIncomePayroll, domain.DirectionCredit, true),

	// Housing and debt.
	r(`mortgage|loan servicing|rent\b|landlord|property mgmt|lease payment`, domain.CategoryMortgageRent, true),
	r(`insur|geico|allstate|progressive|state farm|liberty mutual|policy premium`, domain.CategoryInsurance, true),
	r(`student loan|auto loan|car payment|personal loan|\bemi\b|\bloan\b|lending|sofi|affirm|klarna`, domain.CategoryLoans, true),
	r(`credit card|card payment|\bvisa payment\b|amex|american express|mastercard payment|discover payment`, domain.CategoryCreditCards, true),

	// Utilities and subscriptions.
	r(`electric|water|sewer|\bgas co\b|energy|power|utility|comcast|xfinity|spectrum|verizon|t-mobile|tmobile|at&t|broadband|internet|phone bill`, domain.CategoryUtilities, true),
	r(`netflix|spotify|hulu|disney|hbo|paramount|peacock|crunchyroll|audible|apple music|youtube premium|amazon prime|icloud|dropbox|adobe|microsoft 365|office 365|github|jetbrains|1password|nordvpn|expressvpn|gym|fitness|membership|subscription|substack|patreon`, domain.CategorySubscriptions, true),

	// Investments.
	r(`\bsip\b|mutual fund|invest|401k|vanguard|fidelity|schwab|etrade|robinhood|brokerage`, domain.CategoryInvestments, true),

	// Money movement.
	r(`atm|cash withdrawal|cash wd`, domain.CategoryCashWithdrawal, false),
	rd(`transfer|zelle|venmo|paypal|wire\b`, domain.CategoryTransfersIn, domain.DirectionCredit, false),
	rd(`transfer|zelle|venmo|paypal|wire\b`, domain.CategoryTransfersOut, domain.DirectionDebit, false),
	r(`\bfee\b|fees\b|service charge|overdraft|nsf\b|maintenance charge`, domain.CategoryFees, false),

	// Discretionary spend.
	r(`airline|air lines|airways|hotel|motel|hilton|marriott|airbnb|cinema|theatre|theater|ticketmaster|restaurant|grill|cafe|coffee|starbucks|mcdonald|doordash|uber eats|grubhub`, domain.CategoryTravelEntertainment, false),
	r(`amazon|walmart|target|costco|ebay|etsy|best buy|ikea|supermarket|grocery|groceries|market\b|store\b`, domain.CategoryShopping, false),
}

// RuleClassifier is the deterministic fallback backend. It is total: every
// item gets exactly one category, unmatched descriptors resolve to Other.
type RuleClassifier struct{}

// NewRuleClassifier returns the rule-based backend.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// ClassifyBatch implements BatchClassifier. It never fails.
func (c *RuleClassifier) ClassifyBatch(_ context.Context, items []Item) ([]Verdict, error) {
	verdicts := make([]Verdict, len(items))
	for i, item := range items {
		verdicts[i] = classifyOne(item)
	}
	return verdicts, nil
}

func classifyOne(item Item) Verdict {
	for _, rl := range rules {
		if rl.direction != "" && rl.direction != item.Direction {
			continue
		}
		if rl.pattern.MatchString(item.Descriptor) {
			return Verdict{Category: rl.category, IsRecurringHint: rl.recurring}
		}
	}
	return Verdict{Category: domain.CategoryOther}
}
