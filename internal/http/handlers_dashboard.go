package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"lorrylog/internal/core"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	month := monthParam(r)
	sites, err := s.logs.ListWaterFillSites(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Water fill site list error", "error", err)
	}

	lastMileage := ""
	if l, err := s.getLog(r.Context(), month); err == nil {
		if lm := l.LastMileage(); lm != nil {
			lastMileage = strconv.FormatFloat(*lm, 'f', -1, 64)
		}
	}

	data := struct {
		Month            string
		Today            string
		LastMileage      string
		MisdemeanorTypes []string
		Sites            []core.WaterFillSite
	}{
		Month:            month,
		Today:            time.Now().Format("2006-01-02"),
		LastMileage:      lastMileage,
		MisdemeanorTypes: core.MisdemeanorTypes,
		Sites:            sites,
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleMonthSummary renders the month summary partial.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	month := monthParam(r)

	l, err := s.getLog(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month summary error", "error", err, "month", month)
		_, _ = w.Write([]byte(`<section id="month-summary" class="month-summary"><div class="placeholder">Error loading summary</div></section>`))
		return
	}
	sum := core.Summarize(l)

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="month-summary" class="month-summary"><div class="placeholder">Earned: ` + formatKES(sum.AmountEarned) + `</div></section>`))
		return
	}

	data := struct {
		Month          string
		TotalJobs      int
		PaidJobs       int
		TotalDistance  string
		AmountEarned   string
		DieselUsage    string
		DieselUnitCost string
		UsageCost      string
		TotalFuelCost  string
		TotalExpense   string
		NetProfit      string
		NetNegative    bool
		TotalFines     string
		Unresolved     int
	}{
		Month:          sum.Month,
		TotalJobs:      sum.TotalJobs,
		PaidJobs:       sum.PaidJobs,
		TotalDistance:  formatKm(sum.TotalDistance),
		AmountEarned:   formatKES(sum.AmountEarned),
		DieselUsage:    strconv.FormatFloat(sum.DieselUsage, 'f', 1, 64) + " L",
		DieselUnitCost: formatKES(sum.DieselUnitCost),
		UsageCost:      formatKES(sum.UsageCost),
		TotalFuelCost:  formatKES(sum.TotalFuelCost),
		TotalExpense:   formatKES(sum.TotalExpense),
		NetProfit:      formatKES(sum.NetProfit),
		NetNegative:    sum.NetProfit < 0,
		TotalFines:     formatKES(sum.TotalFines),
		Unresolved:     sum.Unresolved,
	}

	if err := s.templates.ExecuteTemplate(w, "month_summary.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "month_summary.html", "month", month)
		_, _ = w.Write([]byte(`<section id="month-summary" class="month-summary"><div class="placeholder">Error rendering summary</div></section>`))
	}
}

// entryRow is the template view of one job entry.
type entryRow struct {
	ID           string
	JobNumber    int
	OrderNumber  string
	Customer     string
	Route        string
	MileageStart string
	MileageEnd   string
	Distance     string
	AmountPaid   string
	Date         string
	IsWaterFill  bool
	IsParking    bool
	Status       string
}

func entryRows(entries []core.JobEntry) []entryRow {
	rows := make([]entryRow, 0, len(entries))
	for _, e := range entries {
		row := entryRow{
			ID:          e.ID,
			JobNumber:   e.JobNumber,
			OrderNumber: e.OrderNumber,
			Customer:    e.Customer,
			Route:       e.Start + " → " + e.End,
			IsWaterFill: e.IsWaterFill,
			IsParking:   e.IsParking,
			Status:      string(e.Status),
		}
		if e.MileageStart != nil {
			row.MileageStart = strconv.FormatFloat(*e.MileageStart, 'f', 1, 64)
		}
		if e.MileageEnd != nil {
			row.MileageEnd = strconv.FormatFloat(*e.MileageEnd, 'f', 1, 64)
		}
		if e.Distance != nil {
			row.Distance = formatKm(*e.Distance)
		}
		if e.AmountPaid != nil {
			row.AmountPaid = formatKES(*e.AmountPaid)
		}
		if e.Date != nil {
			row.Date = e.Date.Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return rows
}

type misdemeanorRow struct {
	ID          string
	Date        string
	Type        string
	Description string
	Fine        string
	Resolved    bool
}

func misdemeanorRows(ms []core.Misdemeanor) []misdemeanorRow {
	rows := make([]misdemeanorRow, 0, len(ms))
	for _, m := range ms {
		row := misdemeanorRow{
			ID:          m.ID,
			Date:        m.Date.Format("2006-01-02"),
			Type:        m.Type,
			Description: m.Description,
			Resolved:    m.Resolved,
		}
		if m.Fine != nil {
			row.Fine = formatKES(*m.Fine)
		}
		rows = append(rows, row)
	}
	return rows
}

// handleEntryList renders the entry table partial, including the month's
// misdemeanors below it.
func (s *Server) handleEntryList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	month := monthParam(r)

	l, err := s.getLog(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Entry list error", "error", err, "month", month)
		_, _ = w.Write([]byte(`<div class="error">Error loading entries</div>`))
		return
	}
	s.renderEntryList(w, r, l)
}

func (s *Server) renderEntryList(w http.ResponseWriter, r *http.Request, l core.MonthlyLog) {
	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">` + strconv.Itoa(len(l.Entries)) + ` entries</div>`))
		return
	}

	data := struct {
		Month        string
		Entries      []entryRow
		Misdemeanors []misdemeanorRow
		StartMileage string
		EndMileage   string
	}{
		Month:        l.Month,
		Entries:      entryRows(l.Entries),
		Misdemeanors: misdemeanorRows(l.Misdemeanors),
	}
	if l.StartMileage != nil {
		data.StartMileage = strconv.FormatFloat(*l.StartMileage, 'f', 1, 64)
	}
	if l.EndMileage != nil {
		data.EndMileage = strconv.FormatFloat(*l.EndMileage, 'f', 1, 64)
	}

	if err := s.templates.ExecuteTemplate(w, "entries.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "entries.html", "month", l.Month)
		_, _ = w.Write([]byte(`<div class="error">Error rendering entries</div>`))
	}
}

// handleAnalysis renders the per-day breakdown partial.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	month := monthParam(r)

	l, err := s.getLog(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Analysis error", "error", err, "month", month)
		_, _ = w.Write([]byte(`<div class="error">Error loading analysis</div>`))
		return
	}
	an := core.Analyze(l)

	type dayRow struct {
		Date     string
		Jobs     int
		Distance string
		Earnings string
		Expenses string
		Width    int
	}
	data := struct {
		Month         string
		Days          []dayRow
		TotalEarnings string
		TotalExpenses string
		TotalJobs     int
		BestDay       string
		WorstDay      string
	}{
		Month:         month,
		TotalEarnings: formatKES(an.TotalEarnings),
		TotalExpenses: formatKES(an.TotalExpenses),
		TotalJobs:     an.TotalJobs,
		BestDay:       an.BestDay,
		WorstDay:      an.WorstDay,
	}

	var maxEarnings float64
	for _, d := range an.Days {
		if d.Earnings > maxEarnings {
			maxEarnings = d.Earnings
		}
	}
	for _, d := range an.Days {
		width := 0
		if maxEarnings > 0 && d.Earnings > 0 {
			width = int(d.Earnings*100/maxEarnings + 0.5)
			if width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		data.Days = append(data.Days, dayRow{
			Date:     d.Date,
			Jobs:     d.Jobs,
			Distance: formatKm(d.Distance),
			Earnings: formatKES(d.Earnings),
			Expenses: formatKES(d.Expenses),
			Width:    width,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "analysis.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "analysis.html", "month", month)
		_, _ = w.Write([]byte(`<div class="error">Error rendering analysis</div>`))
	}
}

// handleHistory renders the month history partial, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	months, err := s.logs.ListMonths(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "History list error", "error", err)
		_, _ = w.Write([]byte(`<div class="error">Error loading history</div>`))
		return
	}

	type monthRow struct {
		Month    string
		Jobs     int
		Distance string
		Earned   string
		Profit   string
	}
	data := struct {
		Months []monthRow
	}{}
	for _, m := range months {
		l, err := s.getLog(r.Context(), m)
		if err != nil {
			slog.WarnContext(r.Context(), "History month load error", "error", err, "month", m)
			continue
		}
		sum := core.Summarize(l)
		data.Months = append(data.Months, monthRow{
			Month:    m,
			Jobs:     sum.TotalJobs,
			Distance: formatKm(sum.TotalDistance),
			Earned:   formatKES(sum.AmountEarned),
			Profit:   formatKES(sum.NetProfit),
		})
	}

	if err := s.templates.ExecuteTemplate(w, "history.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "history.html")
		_, _ = w.Write([]byte(`<div class="error">Error rendering history</div>`))
	}
}

// successDiv renders a small escaped confirmation fragment.
func successDiv(msg string) string {
	return `<div class="success">` + template.HTMLEscapeString(msg) + `</div>`
}
