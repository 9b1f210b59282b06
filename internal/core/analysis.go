package core

import "sort"

// DailyAggregate is one day of the monthly analysis view.
type DailyAggregate struct {
	Date     string // "YYYY-MM-DD"
	Distance float64
	Earnings float64
	Expenses float64
	Jobs     int
}

// MonthAnalysis summarizes the per-day breakdown of a month.
type MonthAnalysis struct {
	Days          []DailyAggregate
	TotalEarnings float64
	TotalExpenses float64
	TotalJobs     int
	BestDay       string
	WorstDay      string
}

// Analyze buckets entries by calendar day and spreads the month's total
// expense evenly across the active days. Entries without an explicit date
// have no day row but still count toward the month totals, so the daily
// breakdown and the totals can legitimately disagree.
func Analyze(l MonthlyLog) MonthAnalysis {
	byDay := make(map[string]*DailyAggregate)
	var undatedEarnings float64
	var undatedJobs int
	for _, e := range l.Entries {
		if e.Date == nil {
			undatedEarnings += deref(e.AmountPaid)
			if deref(e.AmountPaid) > 0 {
				undatedJobs++
			}
			continue
		}
		day := e.Date.Format("2006-01-02")
		agg, ok := byDay[day]
		if !ok {
			agg = &DailyAggregate{Date: day}
			byDay[day] = agg
		}
		agg.Distance += deref(e.Distance)
		agg.Earnings += deref(e.AmountPaid)
		if deref(e.AmountPaid) > 0 {
			agg.Jobs++
		}
	}

	expensePerDay := deref(l.FuelData.TotalExpense)
	if len(byDay) > 0 {
		expensePerDay /= float64(len(byDay))
	}

	var analysis MonthAnalysis
	for _, agg := range byDay {
		agg.Expenses = Round2(expensePerDay)
		analysis.Days = append(analysis.Days, *agg)
	}
	sort.Slice(analysis.Days, func(i, j int) bool {
		return analysis.Days[i].Date < analysis.Days[j].Date
	})

	for _, d := range analysis.Days {
		analysis.TotalEarnings += d.Earnings
		analysis.TotalExpenses += d.Expenses
		analysis.TotalJobs += d.Jobs
	}
	analysis.TotalEarnings += undatedEarnings
	analysis.TotalJobs += undatedJobs
	best, worst := -1.0, -1.0
	for _, d := range analysis.Days {
		if best < 0 || d.Earnings > best {
			best = d.Earnings
			analysis.BestDay = d.Date
		}
	}
	for _, d := range analysis.Days {
		if worst < 0 || d.Earnings < worst {
			worst = d.Earnings
			analysis.WorstDay = d.Date
		}
	}
	return analysis
}
