package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"lorrylog/internal/core"
)

func f64(v float64) *float64 { return &v }

func sampleLog() core.MonthlyLog {
	l := core.NewMonthlyLog("2025-06")
	l.StartMileage = f64(1000)
	l.AddEntry(core.EntryInput{
		Start:        "Depot",
		End:          "Westlands",
		MileageStart: f64(1000),
		MileageEnd:   f64(1012.5),
		OrderNumber:  "ORD-1",
		AmountPaid:   f64(450),
	})
	l.AddEntry(core.EntryInput{
		Start:        "Westlands",
		End:          "Karen",
		MileageStart: f64(1012.5),
		MileageEnd:   f64(1030),
	})
	rate := 4.0
	l.FuelData.FuelConsumptionRate = &rate
	l.Misdemeanors = append(l.Misdemeanors, core.Misdemeanor{
		ID:   core.NewID(),
		Date: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		Type: "Speeding",
		Fine: f64(3000),
	})
	return l
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleLog()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	if _, err := f.GetSheetIndex(entrySheet); err != nil {
		t.Fatalf("sheet lookup: %v", err)
	}

	got, err := f.GetCellValue(entrySheet, "B1")
	if err != nil || got != "2025-06" {
		t.Errorf("B1 = %q, err %v, want 2025-06", got, err)
	}
	// First entry lands directly under the header row.
	if got, _ := f.GetCellValue(entrySheet, "C6"); got != "Depot" {
		t.Errorf("C6 = %q, want Depot", got)
	}
	if got, _ := f.GetCellValue(entrySheet, "B6"); got != "ORD-1" {
		t.Errorf("B6 = %q, want ORD-1", got)
	}

	// Total row follows the two entries and carries a live SUM formula.
	formula, err := f.GetCellFormula(entrySheet, "G8")
	if err != nil {
		t.Fatalf("GetCellFormula: %v", err)
	}
	if formula != "SUM(G6:G7)" {
		t.Errorf("total formula = %q, want SUM(G6:G7)", formula)
	}
}

func TestWriteXLSXEmptyMonth(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, core.NewMonthlyLog("2025-01")); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	// No entries means a literal zero total, not a formula over no rows.
	if got, _ := f.GetCellValue(entrySheet, "G6"); got != "0" {
		t.Errorf("G6 = %q, want 0", got)
	}
}
