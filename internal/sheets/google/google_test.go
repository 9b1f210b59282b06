package google

import (
	"context"
	"strings"
	"testing"

	"lorrylog/internal/core"
)

func TestNewFromEnvRequiresSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Fatal("expected error without GOOGLE_SPREADSHEET_ID")
	}
}

func TestNewFromEnvRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "service account credentials") {
		t.Fatalf("err = %v, want credentials error", err)
	}
}

func TestPushWithoutService(t *testing.T) {
	c := &Client{svc: nil}
	err := c.PushMonthlyLog(context.Background(), core.MonthlyLog{Month: "2025-06"})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("err = %v, want not-initialized error", err)
	}
}

func TestPasteValuesGrid(t *testing.T) {
	log := core.NewMonthlyLog("2025-06")
	v := 100.0
	w := 150.0
	log.AddEntry(core.EntryInput{Start: "A", End: "B", MileageStart: &v, MileageEnd: &w})

	values := pasteValues(log)
	if len(values) < 7 {
		t.Fatalf("rows = %d, want >= 7", len(values))
	}
	// First entry lands on row 7 with its running-total formula in col F.
	entryRow := values[6]
	if len(entryRow) < 7 {
		t.Fatalf("entry row cells = %d", len(entryRow))
	}
	formula, ok := entryRow[5].(string)
	if !ok || !strings.HasPrefix(formula, "=IF(E7=") {
		t.Fatalf("running total cell = %v", entryRow[5])
	}
}
