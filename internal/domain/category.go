package domain

import "strings"

// Category is the closed set of transaction categories. Anything that cannot
// be resolved maps to CategoryOther, never to an empty value.
type Category string

const (
	CategoryMortgageRent        Category = "Mortgage_Rent"
	CategoryLoans               Category = "Loans"
	CategoryCreditCards         Category = "Credit_Cards"
	CategoryUtilities           Category = "Utilities"
	CategoryInsurance           Category = "Insurance"
	CategoryInvestments         Category = "Investments"
	CategorySubscriptions       Category = "Subscriptions"
	CategoryIncomePayroll       Category = "Income_Payroll"
	CategoryShopping            Category = "Shopping"
	CategoryTravelEntertainment Category = "Travel_Entertainment"
	CategoryTransfersIn         Category = "Transfers_In"
	CategoryTransfersOut        Category = "Transfers_Out"
	CategoryCashWithdrawal      Category = "Cash_Withdrawal"
	CategoryFees                Category = "Fees"
	CategoryOther               Category = "Other"
)

// Categories lists all categories in their canonical order. The order is part
// of the contract: the aggregator uses it for deterministic tie-breaks.
var Categories = []Category{
	CategoryMortgageRent,
	CategoryLoans,
	CategoryCreditCards,
	CategoryUtilities,
	CategoryInsurance,
	CategoryInvestments,
	CategorySubscriptions,
	CategoryIncomePayroll,
	CategoryShopping,
	CategoryTravelEntertainment,
	CategoryTransfersIn,
	CategoryTransfersOut,
	CategoryCashWithdrawal,
	CategoryFees,
	CategoryOther,
}

var categoryIndex = func() map[Category]int {
	m := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		m[c] = i
	}
	return m
}()

// ParseCategory resolves a free-form string (e.g. from a model response) to a
// Category. Unknown values resolve to CategoryOther.
func ParseCategory(s string) Category {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if strings.ToLower(string(c)) == needle {
			return c
		}
	}
	return CategoryOther
}

// Order returns the position of c in the canonical category order.
func (c Category) Order() int {
	if i, ok := categoryIndex[c]; ok {
		return i
	}
	return categoryIndex[CategoryOther]
}

// Valid reports whether c is one of the closed set of categories.
func (c Category) Valid() bool {
	_, ok := categoryIndex[c]
	return ok
}

func (c Category) String() string {
	return string(c)
}
