package core

import (
	"errors"
	"testing"
)

func TestParseManifest(t *testing.T) {
	text := "Order Number,Customer Name,Earning (KES)\n" +
		"A1,Mwangi,500\n" +
		"\"123\",\"Smith, John\",450\n" +
		"A3,Otieno,\"KES 1,200.50\"\n" +
		",NoOrder,100\n" +
		"\n" +
		"A4,Bad,notanumber\n"

	result, err := ParseManifest(text)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(result.Records) != 4 {
		t.Fatalf("records = %d, want 4", len(result.Records))
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}

	// Quoted field with embedded comma must not split.
	r := result.Records[1]
	if r.OrderNumber != "123" || r.Customer != "Smith, John" || r.Earning != 450 {
		t.Errorf("quoted row parsed as %+v", r)
	}

	// Earning cells are sanitized before parsing.
	if result.Records[2].Earning != 1200.50 {
		t.Errorf("sanitized earning = %v, want 1200.50", result.Records[2].Earning)
	}

	// Unparseable earning defaults to zero, row is kept.
	if result.Records[3].Earning != 0 {
		t.Errorf("bad earning = %v, want 0", result.Records[3].Earning)
	}
}

func TestParseManifestCRLFAndBlankLines(t *testing.T) {
	text := "order#,amount\r\nA1,100\r\n\r\nA2,200\r\n"
	result, err := ParseManifest(text)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(result.Records))
	}
}

func TestParseManifestMissingColumns(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"no order column", "customer,earning\nJoe,100\n", ErrMissingOrderColumn},
		{"no earning column", "order,customer\nA1,Joe\n", ErrMissingEarningColumn},
		{"empty input", "", ErrMissingOrderColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest(tt.text)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Reason == "" {
				t.Fatalf("error must carry a display reason, got %v", err)
			}
		})
	}
}

func TestReconcileClassification(t *testing.T) {
	records := []ManifestRecord{
		{OrderNumber: "A1", Earning: 500},
		{OrderNumber: "A2", Earning: 300},
	}
	entries := []JobEntry{
		{ID: "e1", OrderNumber: "A1", AmountPaid: fp(500)},
		{ID: "e2", OrderNumber: "A3", AmountPaid: fp(100)},
	}

	result := Reconcile(entries, records)
	if result.Matched != 1 || result.Missing != 1 || result.Extra != 1 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/1", result.Matched, result.Missing, result.Extra)
	}

	byOrder := make(map[string]ComparisonRow)
	for _, row := range result.Rows {
		byOrder[row.OrderNumber] = row
	}
	if row := byOrder["A1"]; row.Status != MatchMatched || !row.AmountMatches || row.EntryID != "e1" {
		t.Errorf("A1 row = %+v", row)
	}
	if row := byOrder["A2"]; row.Status != MatchMissing {
		t.Errorf("A2 row = %+v", row)
	}
	if row := byOrder["A3"]; row.Status != MatchExtra || row.EntryID != "e2" {
		t.Errorf("A3 row = %+v", row)
	}
}

func TestReconcileDuplicateOrderNumbers(t *testing.T) {
	records := []ManifestRecord{
		{OrderNumber: "A1", Earning: 500},
		{OrderNumber: "A1", Earning: 300},
	}
	entries := []JobEntry{
		{ID: "e1", OrderNumber: "A1", AmountPaid: fp(500)},
		{ID: "e2", OrderNumber: "A1", AmountPaid: fp(300)},
	}

	// Each manifest record gets its own row; the first entry in list
	// order wins every match.
	result := Reconcile(entries, records)
	if result.Matched != 2 || result.Missing != 0 || result.Extra != 0 {
		t.Fatalf("counts = %d/%d/%d, want 2/0/0", result.Matched, result.Missing, result.Extra)
	}
	for _, row := range result.Rows {
		if row.EntryID != "e1" {
			t.Errorf("row %+v matched %s, want e1", row, row.EntryID)
		}
	}
	if !result.Rows[0].AmountMatches || result.Rows[1].AmountMatches {
		t.Errorf("amount flags = %v/%v, want true/false", result.Rows[0].AmountMatches, result.Rows[1].AmountMatches)
	}
}

func TestReconcileAmountComparison(t *testing.T) {
	records := []ManifestRecord{{OrderNumber: "A1", Earning: 500}}

	tests := []struct {
		name string
		paid *float64
		want bool
	}{
		{"exact match", fp(500), true},
		{"differs", fp(499.99), false},
		{"unpaid entry never matches", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := []JobEntry{{ID: "e1", OrderNumber: "A1", AmountPaid: tt.paid}}
			result := Reconcile(entries, records)
			if got := result.Rows[0].AmountMatches; got != tt.want {
				t.Fatalf("AmountMatches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReconcileDuplicateOrderFirstWins(t *testing.T) {
	records := []ManifestRecord{{OrderNumber: "A1", Earning: 500}}
	entries := []JobEntry{
		{ID: "first", OrderNumber: "A1", AmountPaid: fp(500)},
		{ID: "second", OrderNumber: "A1", AmountPaid: fp(100)},
	}

	result := Reconcile(entries, records)
	if result.Rows[0].EntryID != "first" {
		t.Fatalf("matched entry = %s, want first", result.Rows[0].EntryID)
	}
}

func TestAutoFillStrategies(t *testing.T) {
	records := []ManifestRecord{
		{OrderNumber: "M1", Customer: "Mwangi", Earning: 500},
		{OrderNumber: "M2", Customer: "Karen Hospital", Earning: 1200},
		{OrderNumber: "M3", Customer: "Runda Estate", Earning: 750.4},
	}

	entries := []JobEntry{
		// Strategy (a): amount within 0.01.
		{ID: "a", Start: "Depot", End: "Town", AmountPaid: fp(500.01)},
		// Strategy (b): customer substring of route.
		{ID: "b", Start: "Depot", End: "Karen Hospital Gate"},
		// Also (b); amounts differ but the route names the customer.
		{ID: "c", Start: "Runda Estate", End: "Depot", AmountPaid: fp(750)},
	}

	proposals := AutoFill(entries, records)
	got := make(map[string]string)
	for _, p := range proposals {
		got[p.EntryID] = p.OrderNumber
	}
	if got["a"] != "M1" {
		t.Errorf("entry a assigned %q, want M1", got["a"])
	}
	if got["b"] != "M2" {
		t.Errorf("entry b assigned %q, want M2", got["b"])
	}
	if got["c"] != "M3" {
		t.Errorf("entry c assigned %q, want M3", got["c"])
	}
}

func TestAutoFillNeverOverwrites(t *testing.T) {
	records := []ManifestRecord{{OrderNumber: "M1", Earning: 500}}
	entries := []JobEntry{{ID: "e1", OrderNumber: "EXISTING", AmountPaid: fp(500)}}

	if proposals := AutoFill(entries, records); len(proposals) != 0 {
		t.Fatalf("expected no proposals for entries with order numbers, got %+v", proposals)
	}
}

func TestAutoFillFillsCustomerOnlyWhenAbsent(t *testing.T) {
	records := []ManifestRecord{{OrderNumber: "M1", Customer: "Mwangi", Earning: 500}}
	entries := []JobEntry{
		{ID: "e1", Customer: "Already Set", AmountPaid: fp(500)},
	}

	proposals := AutoFill(entries, records)
	if len(proposals) != 1 {
		t.Fatalf("proposals = %d, want 1", len(proposals))
	}
	if proposals[0].Customer != "" {
		t.Fatalf("customer %q must not be proposed when entry has one", proposals[0].Customer)
	}
}
