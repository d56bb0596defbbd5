// Package reports aggregates ledger snapshots into period reports.
//
// Every function here is pure: it reads the slices it is given, never
// mutates them and never fails. Filtering by period happens here even when
// the store could have done it, so any store returning a full snapshot is
// enough.
package reports

import (
	"sort"

	"kakebo/internal/core"
)

// UnknownCategory names a category id that has no matching category.
const UnknownCategory = "Unknown"

type bucket struct {
	total int64
	count int
}

type groups map[int64]*bucket

func (g groups) add(t core.Transaction) {
	b, ok := g[t.CategoryID]
	if !ok {
		b = &bucket{}
		g[t.CategoryID] = b
	}
	b.total += t.Amount
	b.count++
}

// summaries flattens the groups sorted by category id. Consumers must not
// rely on the order; sorting only makes repeated calls byte-identical.
func (g groups) summaries(names map[int64]string) []core.CategorySummary {
	out := make([]core.CategorySummary, 0, len(g))
	for id, b := range g {
		out = append(out, core.CategorySummary{
			CategoryID:       id,
			CategoryName:     nameOf(names, id),
			TotalAmount:      b.total,
			TransactionCount: b.count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

func categoryNames(categories []core.Category) map[int64]string {
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}

func nameOf(names map[int64]string, id int64) string {
	if n, ok := names[id]; ok {
		return n
	}
	return UnknownCategory
}

// Monthly reports one calendar month. A month outside 1-12 matches nothing.
func Monthly(categories []core.Category, transactions []core.Transaction, year, month int) core.MonthlyReport {
	names := categoryNames(categories)
	income, expense := groups{}, groups{}

	r := core.MonthlyReport{Year: year, Month: month}
	for _, t := range transactions {
		if t.Date.Year() != year || t.Date.Month() != month {
			continue
		}
		switch t.Type {
		case core.Income:
			r.TotalIncome += t.Amount
			income.add(t)
		case core.Expense:
			r.TotalExpense += t.Amount
			expense.add(t)
		}
	}
	r.NetBalance = r.TotalIncome - r.TotalExpense
	r.IncomeByCategory = income.summaries(names)
	r.ExpenseByCategory = expense.summaries(names)
	return r
}

// Yearly reports one calendar year with a fixed twelve-month breakdown.
func Yearly(transactions []core.Transaction, year int) core.YearlyReport {
	r := core.YearlyReport{Year: year, MonthlySummary: make([]core.MonthlySummary, 12)}
	for i := range r.MonthlySummary {
		r.MonthlySummary[i].Month = i + 1
	}

	for _, t := range transactions {
		if t.Date.Year() != year {
			continue
		}
		m := &r.MonthlySummary[t.Date.Month()-1]
		switch t.Type {
		case core.Income:
			r.TotalIncome += t.Amount
			m.TotalIncome += t.Amount
		case core.Expense:
			r.TotalExpense += t.Amount
			m.TotalExpense += t.Amount
		}
	}

	r.NetBalance = r.TotalIncome - r.TotalExpense
	for i := range r.MonthlySummary {
		m := &r.MonthlySummary[i]
		m.NetBalance = m.TotalIncome - m.TotalExpense
	}
	return r
}

// ByCategory groups transactions between two optional inclusive bounds by
// category id alone. A bound that is not YYYY-MM-DD is ignored but still
// echoed back.
func ByCategory(categories []core.Category, transactions []core.Transaction, startDate, endDate *string) core.CategoryReport {
	start, hasStart := bound(startDate)
	end, hasEnd := bound(endDate)
	names := categoryNames(categories)
	g := groups{}

	r := core.CategoryReport{StartDate: startDate, EndDate: endDate}
	for _, t := range transactions {
		if hasStart && t.Date.Before(start) {
			continue
		}
		if hasEnd && t.Date.After(end) {
			continue
		}
		g.add(t)
		switch t.Type {
		case core.Income:
			r.TotalIncome += t.Amount
		case core.Expense:
			r.TotalExpense += t.Amount
		}
	}
	r.Categories = g.summaries(names)
	return r
}

func bound(s *string) (core.Date, bool) {
	if s == nil {
		return core.Date{}, false
	}
	return core.ParseISODate(*s)
}

// Totals summarizes an already filtered transaction listing.
func Totals(transactions []core.Transaction) core.TransactionSummary {
	var s core.TransactionSummary
	for _, t := range transactions {
		switch t.Type {
		case core.Income:
			s.TotalIncome += t.Amount
		case core.Expense:
			s.TotalExpense += t.Amount
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	s.TransactionCount = len(transactions)
	return s
}
