package domain

// FAQEntry is one question/answer pair from the fixed catalog.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQCatalog is the read-only catalog loaded at startup. Order matters:
// when several entries match an input, the first one wins.
var FAQCatalog = []FAQEntry{
	{
		Question: "How do I start investing?",
		Answer:   "Start by setting financial goals, building an emergency fund, paying off high-interest debt, and then consider investing in index funds or ETFs for beginners.",
	},
	{
		Question: "What's the difference between stocks and bonds?",
		Answer:   "Stocks represent ownership in a company, while bonds are debt instruments where you lend money to an entity. Stocks typically offer higher returns with higher risk, bonds offer more stable returns with lower risk.",
	},
	{
		Question: "How much should I save for retirement?",
		Answer:   "A common guideline is to save 15-20% of your income for retirement. Consider using tax-advantaged accounts like 401(k)s or IRAs.",
	},
	{
		Question: "How do I improve my credit score?",
		Answer:   "Pay bills on time, reduce debt, maintain low credit utilization, avoid opening too many new accounts, and regularly monitor your credit report.",
	},
	{
		Question: "What is dollar-cost averaging?",
		Answer:   "Dollar-cost averaging is an investment strategy where you invest a fixed amount regularly, regardless of market conditions, which can reduce the impact of volatility.",
	},
	{
		Question: "Should I pay off debt or invest?",
		Answer:   "Generally, prioritize high-interest debt (like credit cards) before investing, but consider the interest rate and potential investment returns in your decision.",
	},
}
