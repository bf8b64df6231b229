// Package categorize defines the advisory transaction categorization
// collaborator. The vault consults it when a new transaction arrives without
// a category; suggestions are best-effort and a write never blocks on them.
package categorize

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/subramanyaSgb/finvault/internal/models"
)

// MinConfidence is the threshold below which a suggestion is treated as
// "no suggestion".
const MinConfidence = 0.5

// Suggestion is a proposed category for a transaction.
type Suggestion struct {
	Category    string
	Subcategory string
	Confidence  float64
}

// Suggester proposes a category from a transaction's visible attributes.
// Implementations must be side-effect free; errors are advisory and callers
// ignore them.
type Suggester interface {
	Suggest(ctx context.Context, description string, amount decimal.Decimal, txType models.TxType) (Suggestion, error)
}

// rule maps description keywords to a category.
type rule struct {
	keywords    []string
	category    string
	subcategory string
}

// KeywordSuggester is the default rule-table implementation.
type KeywordSuggester struct {
	rules []rule
}

// NewKeywordSuggester returns a suggester with the built-in rule table.
func NewKeywordSuggester() *KeywordSuggester {
	return &KeywordSuggester{rules: []rule{
		{[]string{"grocery", "supermarket", "mart"}, "food", "groceries"},
		{[]string{"restaurant", "cafe", "coffee", "pizza"}, "food", "dining"},
		{[]string{"uber", "taxi", "fuel", "petrol", "metro"}, "transport", ""},
		{[]string{"rent", "landlord"}, "housing", "rent"},
		{[]string{"electricity", "water bill", "gas bill", "broadband", "internet"}, "utilities", ""},
		{[]string{"pharmacy", "hospital", "clinic", "doctor"}, "health", ""},
		{[]string{"netflix", "spotify", "prime", "subscription"}, "entertainment", "streaming"},
		{[]string{"salary", "payroll"}, "income", "salary"},
		{[]string{"emi", "loan"}, "debt", "emi"},
		{[]string{"premium", "insurance"}, "insurance", ""},
	}}
}

// Suggest matches description keywords case-insensitively. Income-typed
// transactions with no keyword hit default to the income category at low
// confidence, which callers below MinConfidence discard.
func (s *KeywordSuggester) Suggest(_ context.Context, description string, _ decimal.Decimal, txType models.TxType) (Suggestion, error) {
	desc := strings.ToLower(description)
	for _, r := range s.rules {
		for _, kw := range r.keywords {
			if strings.Contains(desc, kw) {
				return Suggestion{Category: r.category, Subcategory: r.subcategory, Confidence: 0.8}, nil
			}
		}
	}
	if txType == models.TxIncome {
		return Suggestion{Category: "income", Confidence: 0.4}, nil
	}
	return Suggestion{}, nil
}
