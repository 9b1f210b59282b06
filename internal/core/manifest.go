package core

import (
	"math"
	"strconv"
	"strings"
)

// ValidationError rejects an action over structurally invalid input. The
// reason string is suitable for direct display.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

var (
	ErrMissingOrderColumn   = &ValidationError{Reason: "missing order column"}
	ErrMissingEarningColumn = &ValidationError{Reason: "missing earning column"}
)

// ManifestRecord is one row of an externally supplied delivery manifest.
// Records are ephemeral: they exist for the reconciliation session, and may
// be retained in memory to auto-fill newly typed entries.
type ManifestRecord struct {
	OrderNumber string
	Customer    string
	Earning     float64
}

// ManifestParseResult carries the parsed records plus the count of rows
// skipped as unusable (empty order cell). Skipped rows never abort the
// import.
type ManifestParseResult struct {
	Records []ManifestRecord
	Skipped int
}

var (
	orderHeaders    = []string{"order", "order#", "order_number", "order number"}
	earningHeaders  = []string{"earning", "amount", "paid", "revenue", "income"}
	customerHeaders = []string{"customer", "client", "name"}
)

// ParseManifest parses raw comma-separated manifest text. The first line
// must be a header row; the order and earning columns are located by
// case-insensitive substring match, the customer column is optional.
func ParseManifest(text string) (ManifestParseResult, error) {
	var result ManifestParseResult

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return result, ErrMissingOrderColumn
	}

	header := splitQuoted(lines[0])
	for i := range header {
		header[i] = strings.ToLower(stripQuotes(strings.TrimSpace(header[i])))
	}
	orderIdx := findColumn(header, orderHeaders)
	if orderIdx < 0 {
		return result, ErrMissingOrderColumn
	}
	earningIdx := findColumn(header, earningHeaders)
	if earningIdx < 0 {
		return result, ErrMissingEarningColumn
	}
	customerIdx := findColumn(header, customerHeaders)

	for _, line := range lines[1:] {
		cells := splitQuoted(line)
		order := cellAt(cells, orderIdx)
		if order == "" {
			result.Skipped++
			continue
		}
		rec := ManifestRecord{
			OrderNumber: order,
			Earning:     parseEarning(cellAt(cells, earningIdx)),
		}
		if customerIdx >= 0 {
			rec.Customer = cellAt(cells, customerIdx)
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

func findColumn(header []string, candidates []string) int {
	for i, cell := range header {
		for _, want := range candidates {
			if strings.Contains(cell, want) {
				return i
			}
		}
	}
	return -1
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return stripQuotes(strings.TrimSpace(cells[idx]))
}

// splitQuoted splits a CSV line on commas while respecting double-quote
// enclosed fields, so a quoted field may itself contain commas.
func splitQuoted(line string) []string {
	var (
		cells    []string
		cell     strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cell.WriteRune(r)
		case r == ',' && !inQuotes:
			cells = append(cells, cell.String())
			cell.Reset()
		default:
			cell.WriteRune(r)
		}
	}
	cells = append(cells, cell.String())
	return cells
}

func stripQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// parseEarning strips everything that is not a digit, dot or minus before
// parsing. Unparseable cells default to 0 rather than failing the row.
func parseEarning(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

const (
	MatchMatched MatchStatus = "matched"
	MatchMissing MatchStatus = "missing"
	MatchExtra   MatchStatus = "extra"
)

type (
	// MatchStatus classifies a reconciliation row.
	MatchStatus string

	// ComparisonRow is one line of a reconciliation result. EntryID is set
	// for matched and extra rows.
	ComparisonRow struct {
		OrderNumber   string
		Customer      string
		Earning       float64
		Status        MatchStatus
		AmountMatches bool
		EntryID       string
	}

	// ComparisonResult is a full reconciliation of local entries against a
	// parsed manifest.
	ComparisonResult struct {
		Rows    []ComparisonRow
		Matched int
		Missing int
		Extra   int
	}
)

// Reconcile classifies every manifest record and every local entry with a
// non-empty order number. Matching is by exact order-number string equality;
// when duplicate order numbers exist locally, the first entry in list order
// wins the match. Amount comparison is exact, with no epsilon.
func Reconcile(entries []JobEntry, records []ManifestRecord) ComparisonResult {
	var result ComparisonResult

	manifestOrders := make(map[string]struct{}, len(records))
	for _, rec := range records {
		manifestOrders[rec.OrderNumber] = struct{}{}

		var matched *JobEntry
		for i := range entries {
			if entries[i].OrderNumber == rec.OrderNumber {
				matched = &entries[i]
				break
			}
		}
		if matched == nil {
			result.Rows = append(result.Rows, ComparisonRow{
				OrderNumber: rec.OrderNumber,
				Customer:    rec.Customer,
				Earning:     rec.Earning,
				Status:      MatchMissing,
			})
			result.Missing++
			continue
		}
		result.Rows = append(result.Rows, ComparisonRow{
			OrderNumber:   rec.OrderNumber,
			Customer:      rec.Customer,
			Earning:       rec.Earning,
			Status:        MatchMatched,
			AmountMatches: matched.AmountPaid != nil && *matched.AmountPaid == rec.Earning,
			EntryID:       matched.ID,
		})
		result.Matched++
	}

	for _, e := range entries {
		if e.OrderNumber == "" {
			continue
		}
		if _, ok := manifestOrders[e.OrderNumber]; ok {
			continue
		}
		result.Rows = append(result.Rows, ComparisonRow{
			OrderNumber: e.OrderNumber,
			Customer:    e.Customer,
			Earning:     deref(e.AmountPaid),
			Status:      MatchExtra,
			EntryID:     e.ID,
		})
		result.Extra++
	}
	return result
}

// AutoFillProposal suggests writing a manifest order number (and customer,
// when the entry has none) into a local entry that lacks one.
type AutoFillProposal struct {
	EntryID     string
	OrderNumber string
	Customer    string
}

// AutoFill proposes order numbers for entries without one, using three
// best-effort strategies in order: payout within 0.01 of a manifest
// earning; customer name contained in the entry's route text (either
// direction, case-insensitive); both of those with integer-rounded amount
// equality. Heuristic and non-authoritative. Entries that already carry an
// order number are never touched, and each manifest record is consumed at
// most once.
func AutoFill(entries []JobEntry, records []ManifestRecord) []AutoFillProposal {
	assigned := make(map[string]struct{})
	for _, e := range entries {
		if e.OrderNumber != "" {
			assigned[e.OrderNumber] = struct{}{}
		}
	}

	var proposals []AutoFillProposal
	for _, e := range entries {
		if e.OrderNumber != "" {
			continue
		}
		rec, ok := pickManifestMatch(e, records, assigned)
		if !ok {
			continue
		}
		assigned[rec.OrderNumber] = struct{}{}
		p := AutoFillProposal{EntryID: e.ID, OrderNumber: rec.OrderNumber}
		if e.Customer == "" {
			p.Customer = rec.Customer
		}
		proposals = append(proposals, p)
	}
	return proposals
}

func pickManifestMatch(e JobEntry, records []ManifestRecord, taken map[string]struct{}) (ManifestRecord, bool) {
	type strategy func(JobEntry, ManifestRecord) bool
	strategies := []strategy{amountClose, customerOverlap, customerAndRoundedAmount}

	for _, match := range strategies {
		for _, rec := range records {
			if _, ok := taken[rec.OrderNumber]; ok {
				continue
			}
			if match(e, rec) {
				return rec, true
			}
		}
	}
	return ManifestRecord{}, false
}

func amountClose(e JobEntry, rec ManifestRecord) bool {
	return e.AmountPaid != nil && math.Abs(*e.AmountPaid-rec.Earning) <= 0.01
}

func customerOverlap(e JobEntry, rec ManifestRecord) bool {
	customer := strings.ToLower(strings.TrimSpace(rec.Customer))
	if customer == "" {
		return false
	}
	route := strings.ToLower(strings.TrimSpace(e.Start + " " + e.End))
	if route == "" {
		return false
	}
	return strings.Contains(route, customer) || strings.Contains(customer, route)
}

func customerAndRoundedAmount(e JobEntry, rec ManifestRecord) bool {
	if !customerOverlap(e, rec) || e.AmountPaid == nil {
		return false
	}
	return math.Round(*e.AmountPaid) == math.Round(rec.Earning)
}
