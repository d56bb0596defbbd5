package core

// CategorySummary is the aggregate of one category inside a report.
type CategorySummary struct {
	CategoryID       int64  `json:"category_id"`
	CategoryName     string `json:"category_name"`
	TotalAmount      int64  `json:"total_amount"`
	TransactionCount int    `json:"transaction_count"`
}

// MonthlyReport summarizes a single year+month.
type MonthlyReport struct {
	Year              int               `json:"year"`
	Month             int               `json:"month"` // 1-12
	TotalIncome       int64             `json:"total_income"`
	TotalExpense      int64             `json:"total_expense"`
	NetBalance        int64             `json:"net_balance"`
	IncomeByCategory  []CategorySummary `json:"income_by_category"`
	ExpenseByCategory []CategorySummary `json:"expense_by_category"`
}

// MonthlySummary is one month row of a yearly report.
type MonthlySummary struct {
	Month        int   `json:"month"`
	TotalIncome  int64 `json:"total_income"`
	TotalExpense int64 `json:"total_expense"`
	NetBalance   int64 `json:"net_balance"`
}

// YearlyReport always carries twelve monthly rows, January first.
type YearlyReport struct {
	Year           int              `json:"year"`
	TotalIncome    int64            `json:"total_income"`
	TotalExpense   int64            `json:"total_expense"`
	NetBalance     int64            `json:"net_balance"`
	MonthlySummary []MonthlySummary `json:"monthly_summary"`
}

// CategoryReport groups a date range by category without splitting on type.
// StartDate and EndDate echo the caller's input verbatim.
type CategoryReport struct {
	StartDate    *string           `json:"start_date"`
	EndDate      *string           `json:"end_date"`
	Categories   []CategorySummary `json:"categories"`
	TotalIncome  int64             `json:"total_income"`
	TotalExpense int64             `json:"total_expense"`
}

// TransactionSummary is the headline of a transaction listing.
type TransactionSummary struct {
	TotalIncome      int64 `json:"total_income"`
	TotalExpense     int64 `json:"total_expense"`
	Balance          int64 `json:"balance"`
	TransactionCount int   `json:"transaction_count"`
}
