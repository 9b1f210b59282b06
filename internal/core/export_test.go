package core

import (
	"strings"
	"testing"
	"time"
)

func exportFixture() MonthlyLog {
	log := NewMonthlyLog("2025-06")
	log.StartMileage = fp(72739)
	log.AddEntry(EntryInput{
		Start: "Depot", End: "Karen", MileageStart: fp(72739), MileageEnd: fp(72769),
		OrderNumber: "A1", AmountPaid: fp(500),
	})
	log.AddEntry(EntryInput{
		Start: "Karen, South", End: "Depot", MileageStart: fp(72769), MileageEnd: fp(72794),
	})
	log.FuelData.DieselCost = fp(2000)
	log.FuelData.PetrolCost = fp(500)
	log.FuelData.FuelConsumptionRate = fp(5)
	return log
}

func TestExportCSVLayout(t *testing.T) {
	csv := ExportCSV(exportFixture())
	lines := strings.Split(csv, "\n")

	if lines[0] != "Job #,Order #,Start,End,Mileage Start,Mileage End,Distance,Amount (KES),Water Fill,Parking" {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1,A1,Depot,Karen,72739,72769,30,500,,") {
		t.Errorf("entry row = %q", lines[1])
	}
	// Location containing a comma must be quoted.
	if !strings.Contains(lines[2], `"Karen, South"`) {
		t.Errorf("quoted cell missing in %q", lines[2])
	}
	if lines[3] != "TOTAL,,,,,,55,500,," {
		t.Errorf("total row = %q", lines[3])
	}
	if lines[4] != "" || lines[5] != "FUEL & EXPENSES" {
		t.Errorf("fuel section start = %q,%q", lines[4], lines[5])
	}
	if !strings.Contains(csv, "Total Cost,2500") {
		t.Error("fuel block missing computed total cost")
	}
	if !strings.Contains(csv, "Net Profit,") {
		t.Error("fuel block missing net profit")
	}
}

func TestExportCSVIdempotent(t *testing.T) {
	log := exportFixture()
	if ExportCSV(log) != ExportCSV(log) {
		t.Fatal("CSV export is not byte-stable")
	}
	if ExportPaste(log) != ExportPaste(log) {
		t.Fatal("paste export is not byte-stable")
	}
}

func TestExportPasteLayout(t *testing.T) {
	tsv := ExportPaste(exportFixture())
	lines := strings.Split(tsv, "\n")

	if lines[0] != "Date -\t2025-06" {
		t.Errorf("meta row 1 = %q", lines[0])
	}
	if lines[1] != "Start Mileage -\t72739" {
		t.Errorf("meta row 2 = %q", lines[1])
	}
	if lines[2] != "No of jobs -\t2" {
		t.Errorf("meta row 3 = %q", lines[2])
	}
	if lines[3] != "" {
		t.Errorf("spacer = %q", lines[3])
	}
	if !strings.HasPrefix(lines[4], "Job #\tStart\tEnd\t") {
		t.Errorf("header row = %q", lines[4])
	}
	if !strings.HasSuffix(lines[5], "Consumption (km/L)\t5") {
		t.Errorf("helper row = %q", lines[5])
	}

	// First entry lands on row 7 of the paste destination.
	entry := strings.Split(lines[6], "\t")
	if entry[5] != `=IF(E7="","",SUM(E$7:E7))` {
		t.Errorf("running total formula = %q", entry[5])
	}
	entry2 := strings.Split(lines[7], "\t")
	if entry2[5] != `=IF(E8="","",SUM(E$7:E8))` {
		t.Errorf("second running total formula = %q", entry2[5])
	}

	if !strings.Contains(tsv, "=SUM(E$7:E$8)") {
		t.Error("totals row missing SUM over the fixed window")
	}
	if !strings.Contains(tsv, `=COUNTIF(G$7:G$8,">0")`) {
		t.Error("totals row missing COUNTIF formula")
	}
	if !strings.Contains(tsv, "FUEL & EXPENSES") {
		t.Error("missing fuel summary block")
	}
}

func TestExportFilenames(t *testing.T) {
	month := MonthKey(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))
	if got := CSVFilename(month); got != "mileage-2025-06.csv" {
		t.Errorf("CSVFilename = %q", got)
	}
	if got := TSVFilename(month); got != "mileage-2025-06.tsv" {
		t.Errorf("TSVFilename = %q", got)
	}
	if got := XLSXFilename(month); got != "mileage-2025-06.xlsx" {
		t.Errorf("XLSXFilename = %q", got)
	}
}
