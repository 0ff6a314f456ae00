// Package advisor implements the local rule-based financial advice engine.
//
// The engine answers free-text questions without the remote service:
// an ordered list of keyword category rules is evaluated top to bottom
// and the first match wins, then the FAQ catalog is consulted, then a
// generic fallback is returned. Matching is plain substring containment
// on the lower-cased input.
package advisor

import (
	"strings"

	"github.com/financeguru/advisor/internal/domain"
)

// Rule maps a set of trigger keywords to a canned advisory response.
// A rule matches when any of its keywords is a substring of the input.
type Rule struct {
	Keywords []string
	Response string
}

// DefaultRules is the ordered category rule set. Order is load-bearing:
// more specific rules must come before more general ones ("credit score"
// before "credit" would otherwise never fire).
var DefaultRules = []Rule{
	{
		Keywords: []string{"invest", "investing", "investment"},
		Response: "For beginners, I recommend starting with low-cost index funds or ETFs. They provide instant diversification and historically solid returns. Consider opening a tax-advantaged account like an IRA or 401(k) first. Remember to only invest money you won't need for at least 5-10 years.",
	},
	{
		Keywords: []string{"budget", "budgeting", "expenses"},
		Response: "A good budgeting strategy is the 50/30/20 rule: 50% for needs (rent, groceries, utilities), 30% for wants (entertainment, dining out), and 20% for savings and debt repayment. Track your expenses for a month to see where your money actually goes, then adjust accordingly.",
	},
	{
		Keywords: []string{"emergency fund", "emergency", "savings"},
		Response: "Aim to save 3-6 months of living expenses in an easily accessible account. Start with $1,000 as your initial goal, then gradually build up. Keep this money in a high-yield savings account or money market account for better returns while maintaining liquidity.",
	},
	{
		Keywords: []string{"debt", "credit card", "loan"},
		Response: "Focus on paying off high-interest debt first (like credit cards). Consider the debt avalanche method: pay minimums on all debts, then put extra money toward the highest interest rate debt. For lower interest debt, you might consider investing instead if you can earn higher returns.",
	},
	{
		Keywords: []string{"credit score", "credit"},
		Response: "To improve your credit score: pay all bills on time (35% of score), keep credit utilization below 30% (30% of score), maintain old accounts to increase credit history length (15%), limit new credit inquiries (10%), and have a mix of credit types (10%). Check your credit report annually for errors.",
	},
	{
		Keywords: []string{"retirement", "401k", "ira"},
		Response: "Start retirement saving as early as possible to benefit from compound interest. Contribute enough to your 401(k) to get the full company match (free money!). Then consider maxing out a Roth IRA. For 2024, you can contribute up to $23,000 to a 401(k) and $7,000 to an IRA ($8,000 if 50+).",
	},
}

// GenericFallback is returned when no rule and no FAQ entry matches.
const GenericFallback = "I'm here to help with your financial questions! I can provide advice on investing, budgeting, saving, debt management, credit scores, retirement planning, insurance, taxes, and more. Feel free to ask about any specific financial topic, or click on the FAQ questions in the sidebar for common advice."

// Engine matches user input against category rules and the FAQ catalog.
type Engine struct {
	rules []Rule
	faqs  []domain.FAQEntry
}

// New creates an engine with the default rule set and FAQ catalog.
func New() *Engine {
	return NewWithRules(DefaultRules, domain.FAQCatalog)
}

// NewWithRules creates an engine with a custom rule set and catalog.
func NewWithRules(rules []Rule, faqs []domain.FAQEntry) *Engine {
	return &Engine{rules: rules, faqs: faqs}
}

// Advise maps free-text input to an advisory response. Pure and
// deterministic: category rules first (first match wins), then the FAQ
// catalog, then the generic fallback. Callers guard against
// empty/whitespace-only input.
func (e *Engine) Advise(text string) string {
	input := strings.ToLower(text)

	for _, rule := range e.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(input, kw) {
				return rule.Response
			}
		}
	}

	if answer, ok := e.matchFAQ(input); ok {
		return answer
	}

	return GenericFallback
}

// matchFAQ checks the catalog in order. An entry matches when its
// question contains the input, or the input contains the first three
// words of the question. The heuristic is intentionally loose for
// short inputs; it is preserved as-is from the shipped behavior.
func (e *Engine) matchFAQ(input string) (string, bool) {
	for _, faq := range e.faqs {
		question := strings.ToLower(faq.Question)
		if strings.Contains(question, input) {
			return faq.Answer, true
		}
		words := strings.Split(question, " ")
		if len(words) > 3 {
			words = words[:3]
		}
		if strings.Contains(input, strings.Join(words, " ")) {
			return faq.Answer, true
		}
	}
	return "", false
}
