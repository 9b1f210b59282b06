package core

import (
	"fmt"
	"strconv"
	"strings"
)

// CSVFilename returns the download name for a month's CSV export.
func CSVFilename(month string) string {
	return fmt.Sprintf("mileage-%s.csv", month)
}

// TSVFilename returns the download name for the spreadsheet-paste export.
func TSVFilename(month string) string {
	return fmt.Sprintf("mileage-%s.tsv", month)
}

// XLSXFilename returns the download name for the Excel report.
func XLSXFilename(month string) string {
	return fmt.Sprintf("mileage-%s.xlsx", month)
}

// ExportCSV serializes a month to CSV: the entry table, a TOTAL row, then a
// FUEL & EXPENSES section of label,value lines. Pure function of the log;
// calling it twice on an unchanged log yields byte-identical output.
func ExportCSV(l MonthlyLog) string {
	var b strings.Builder

	b.WriteString("Job #,Order #,Start,End,Mileage Start,Mileage End,Distance,Amount (KES),Water Fill,Parking\n")

	totalDistance := 0.0
	totalAmount := 0.0
	for _, e := range l.Entries {
		totalDistance += deref(e.Distance)
		totalAmount += deref(e.AmountPaid)
		fields := []string{
			strconv.Itoa(e.JobNumber),
			csvEscape(e.OrderNumber),
			csvEscape(e.Start),
			csvEscape(e.End),
			num(e.MileageStart),
			num(e.MileageEnd),
			num(e.Distance),
			num(e.AmountPaid),
			yesNo(e.IsWaterFill),
			yesNo(e.IsParking),
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteByte('\n')
	}

	b.WriteString(fmt.Sprintf("TOTAL,,,,,,%s,%s,,\n", fnum(totalDistance), fnum(totalAmount)))
	b.WriteByte('\n')
	b.WriteString("FUEL & EXPENSES\n")
	for _, row := range fuelRows(l) {
		b.WriteString(csvEscape(row.label))
		b.WriteByte(',')
		b.WriteString(row.value)
		b.WriteByte('\n')
	}
	return b.String()
}

// Paste-layout geometry: three meta rows, a spacer, the header row and a
// helper row put the first entry on row 7 when the block is pasted at the
// origin cell. The formula strings are literal text anchored to that
// origin; they are not adapted to an arbitrary paste location.
const pasteFirstEntryRow = 7

// ExportPaste serializes a month to the tab-separated spreadsheet-paste
// layout, including formula strings for the running distance total and the
// summary row. Column E carries per-entry distance, F the running total
// formula and G the payout.
func ExportPaste(l MonthlyLog) string {
	var b strings.Builder

	writeRow := func(cells ...string) {
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}

	writeRow("Date -", l.Month)
	writeRow("Start Mileage -", num(l.StartMileage))
	writeRow("No of jobs -", strconv.Itoa(len(l.Entries)))
	writeRow("")
	writeRow("Job #", "Start", "End", "Mileage End", "Distance", "Running Total", "Amount (KES)")
	// Helper row: the consumption rate sits in a fixed column (I6) so sheet
	// formulas can reference it after pasting.
	writeRow("", "", "", "", "", "", "", "Consumption (km/L)", num(l.FuelData.FuelConsumptionRate))

	lastRow := pasteFirstEntryRow + len(l.Entries) - 1
	for i, e := range l.Entries {
		row := pasteFirstEntryRow + i
		writeRow(
			strconv.Itoa(e.JobNumber),
			e.Start,
			e.End,
			num(e.MileageEnd),
			num(e.Distance),
			fmt.Sprintf(`=IF(E%d="","",SUM(E$7:E%d))`, row, row),
			num(e.AmountPaid),
		)
	}

	writeRow("")
	if len(l.Entries) > 0 {
		writeRow(
			"TOTAL",
			"",
			"",
			"",
			fmt.Sprintf("=SUM(E$7:E$%d)", lastRow),
			fmt.Sprintf(`=COUNTIF(G$7:G$%d,">0")`, lastRow),
			fmt.Sprintf("=SUM(G$7:G$%d)", lastRow),
		)
	} else {
		writeRow("TOTAL", "", "", "", "0", "0", "0")
	}

	writeRow("")
	writeRow("FUEL & EXPENSES")
	for _, row := range fuelRows(l) {
		writeRow(row.label, row.value)
	}
	return b.String()
}

type labelValue struct {
	label string
	value string
}

// fuelRows is the shared FUEL & EXPENSES block of both export modes.
func fuelRows(l MonthlyLog) []labelValue {
	fd := l.FuelData
	return []labelValue{
		{"Fuel CF", num(fd.FuelCf)},
		{"Diesel Amount (L)", num(fd.DieselAmount)},
		{"Diesel Cost", num(fd.DieselCost)},
		{"Petrol Amount (L)", num(fd.PetrolAmount)},
		{"Petrol Cost", num(fd.PetrolCost)},
		{"Total Liters Used", num(fd.TotalLitersUsed)},
		{"Total Liters Used - Diesel", fnum(DieselUsage(fd, MonthDistance(l)))},
		{"Total Cost", fnum(TotalFuelCost(fd))},
		{"Total Expense", num(fd.TotalExpense)},
		{"Other Costs", num(fd.OtherCosts)},
		{"Fuel Balance", num(fd.FuelBalance)},
		{"Consumption Rate (km/L)", num(fd.FuelConsumptionRate)},
		{"Amount Earned", fnum(AmountEarned(l))},
		{"Monthly Salary", num(fd.MonthlySalary)},
		{"Net Profit", fnum(NetProfit(l))},
	}
}

// num renders an optional number, empty when absent.
func num(p *float64) string {
	if p == nil {
		return ""
	}
	return fnum(*p)
}

func fnum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return ""
}

// csvEscape quotes a cell containing commas or quotes.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, `",`) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
