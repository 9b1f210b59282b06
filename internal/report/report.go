// Package report builds the downloadable Excel month report.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"lorrylog/internal/core"
)

const entrySheet = "Mileage Log"

var entryHeaders = []string{
	"Job #", "Order #", "Start", "End",
	"Mileage Start", "Mileage End", "Distance (km)", "Amount (KES)",
	"Water Fill", "Parking",
}

// WriteXLSX renders one month as a workbook: the entry table with a formula
// total row, a fuel and expense section and the month's incidents.
func WriteXLSX(w io.Writer, l core.MonthlyLog) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(entrySheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	setCell := func(col string, row int, v interface{}) {
		_ = f.SetCellValue(entrySheet, fmt.Sprintf("%s%d", col, row), v)
	}

	setCell("A", 1, "Month")
	setCell("B", 1, l.Month)
	setCell("A", 2, "Start Mileage")
	if l.StartMileage != nil {
		setCell("B", 2, *l.StartMileage)
	}
	setCell("A", 3, "End Mileage")
	if l.EndMileage != nil {
		setCell("B", 3, *l.EndMileage)
	}

	headerRow := 5
	for i, h := range entryHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		setCell(col, headerRow, h)
	}

	firstEntryRow := headerRow + 1
	row := firstEntryRow
	for _, e := range l.Entries {
		setCell("A", row, e.JobNumber)
		setCell("B", row, e.OrderNumber)
		setCell("C", row, e.Start)
		setCell("D", row, e.End)
		setFloat(f, "E", row, e.MileageStart)
		setFloat(f, "F", row, e.MileageEnd)
		setFloat(f, "G", row, e.Distance)
		setFloat(f, "H", row, e.AmountPaid)
		setCell("I", row, yesNo(e.IsWaterFill))
		setCell("J", row, yesNo(e.IsParking))
		row++
	}

	// Total row sums the distance and amount columns with live formulas.
	setCell("A", row, "TOTAL")
	if len(l.Entries) > 0 {
		lastEntryRow := row - 1
		_ = f.SetCellFormula(entrySheet, fmt.Sprintf("G%d", row), fmt.Sprintf("SUM(G%d:G%d)", firstEntryRow, lastEntryRow))
		_ = f.SetCellFormula(entrySheet, fmt.Sprintf("H%d", row), fmt.Sprintf("SUM(H%d:H%d)", firstEntryRow, lastEntryRow))
	} else {
		setCell("G", row, 0)
		setCell("H", row, 0)
	}
	row += 2

	setCell("A", row, "FUEL & EXPENSES")
	row++
	sum := core.Summarize(l)
	fuelLines := []struct {
		label string
		value float64
	}{
		{"Diesel Usage (L)", sum.DieselUsage},
		{"Diesel Unit Cost", sum.DieselUnitCost},
		{"Usage Cost", sum.UsageCost},
		{"Total Fuel Cost", sum.TotalFuelCost},
		{"Total Expense", sum.TotalExpense},
		{"Other Costs", sum.OtherCosts},
		{"Monthly Salary", sum.MonthlySalary},
		{"Amount Earned", sum.AmountEarned},
		{"Net Profit", sum.NetProfit},
	}
	for _, line := range fuelLines {
		setCell("A", row, line.label)
		setCell("B", row, line.value)
		row++
	}
	row++

	if len(l.Misdemeanors) > 0 {
		setCell("A", row, "INCIDENTS")
		row++
		setCell("A", row, "Date")
		setCell("B", row, "Type")
		setCell("C", row, "Description")
		setCell("D", row, "Fine (KES)")
		setCell("E", row, "Resolved")
		row++
		for _, m := range l.Misdemeanors {
			setCell("A", row, m.Date.Format("2006-01-02"))
			setCell("B", row, m.Type)
			setCell("C", row, m.Description)
			setFloat(f, "D", row, m.Fine)
			setCell("E", row, yesNo(m.Resolved))
			row++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setFloat(f *excelize.File, col string, row int, v *float64) {
	if v == nil {
		return
	}
	_ = f.SetCellValue(entrySheet, fmt.Sprintf("%s%d", col, row), *v)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
