package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   EntryStatus = "pending"
	StatusProcessed EntryStatus = "processed"
	StatusManual    EntryStatus = "manual"
)

type (
	// EntryStatus tags how an entry was recorded, not a workflow state.
	EntryStatus string

	// JobEntry is one trip leg: start/end locations, odometer readings and
	// an optional payout. Distance is derived from the odometer pair and is
	// recomputed whenever either reading changes.
	JobEntry struct {
		ID           string
		JobNumber    int
		OrderNumber  string
		Customer     string
		Start        string
		End          string
		MileageStart *float64
		MileageEnd   *float64
		Distance     *float64
		AmountPaid   *float64
		IsWaterFill  bool
		IsParking    bool
		Date         *time.Time
		Timestamp    time.Time
		Status       EntryStatus
	}

	// FuelData holds one month's fuel and expense figures. Inputs are
	// pointers so "not entered" is distinguishable from zero; derived
	// fields (TotalCost, NetProfit, TotalLitersUsedDiesel) are memoized at
	// save time.
	FuelData struct {
		FuelCf                *float64
		DieselAmount          *float64
		DieselCost            *float64
		PetrolAmount          *float64
		PetrolCost            *float64
		TotalLitersUsed       *float64
		TotalCost             *float64
		TotalExpense          *float64
		FuelBalance           *float64
		AmountEarned          *float64
		FuelConsumptionRate   *float64
		OtherCosts            *float64
		NetProfit             *float64
		TotalLitersUsedDiesel *float64
		MonthlySalary         *float64
	}

	// Misdemeanor is a recorded compliance incident.
	Misdemeanor struct {
		ID          string
		Date        time.Time
		Type        string
		Description string
		Fine        *float64
		Resolved    bool
	}

	// WaterFillSite is a named location used to auto-tag water fill legs.
	WaterFillSite struct {
		ID   string
		Name string
	}

	// MonthlyLog is the aggregate root for one calendar month. Every
	// mutating operation reads, modifies and rewrites the whole log; the
	// last write wins.
	MonthlyLog struct {
		ID            string
		Month         string // "YYYY-MM"
		StartMileage  *float64
		EndMileage    *float64
		TotalJobs     int
		TotalDistance float64
		Entries       []JobEntry
		FuelData      FuelData
		Misdemeanors  []Misdemeanor
	}
)

// MisdemeanorTypes is the closed set of incident types.
var MisdemeanorTypes = []string{
	"Speeding",
	"Parking Violation",
	"Traffic Light Violation",
	"Late Delivery",
	"Customer Complaint",
	"Vehicle Damage",
	"Documentation Error",
	"Safety Violation",
	"Other",
}

var (
	ErrInvalidMonthKey       = errors.New("invalid month key, expected YYYY-MM")
	ErrUnknownMisdemeanor    = errors.New("unknown misdemeanor type")
	ErrEmptySiteName         = errors.New("empty site name")
	ErrEntryNotFound         = errors.New("entry not found")
	ErrMisdemeanorNotFound   = errors.New("misdemeanor not found")
	ErrWaterFillSiteNotFound = errors.New("water fill site not found")
)

// NewID returns an opaque identifier for entries, incidents and sites.
func NewID() string {
	return uuid.New().String()
}

// MonthKey formats a time as the canonical "YYYY-MM" log key.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ValidateMonthKey checks the "YYYY-MM" format.
func ValidateMonthKey(month string) error {
	if _, err := time.Parse("2006-01", month); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMonthKey, month)
	}
	return nil
}

// NewMonthlyLog creates an empty log for the given month key. Logs are
// created lazily the first time a month is addressed.
func NewMonthlyLog(month string) MonthlyLog {
	return MonthlyLog{
		ID:    NewID(),
		Month: month,
	}
}

// IsValidMisdemeanorType reports whether t is in the closed enumeration.
func IsValidMisdemeanorType(t string) bool {
	for _, m := range MisdemeanorTypes {
		if m == t {
			return true
		}
	}
	return false
}

func (m Misdemeanor) Validate() error {
	if m.Date.IsZero() {
		return errors.New("misdemeanor date cannot be zero")
	}
	if !IsValidMisdemeanorType(m.Type) {
		return fmt.Errorf("%w: %q", ErrUnknownMisdemeanor, m.Type)
	}
	return nil
}

func (s WaterFillSite) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptySiteName
	}
	return nil
}

// TagWaterFills sets IsWaterFill on every entry whose start or end text
// contains a site name (case-insensitive substring match). Tags affect
// display classification only, never arithmetic.
func TagWaterFills(entries []JobEntry, sites []WaterFillSite) {
	for i := range entries {
		entries[i].IsWaterFill = matchesSite(entries[i], sites)
	}
}

func matchesSite(e JobEntry, sites []WaterFillSite) bool {
	start := strings.ToLower(e.Start)
	end := strings.ToLower(e.End)
	for _, s := range sites {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" {
			continue
		}
		if strings.Contains(start, name) || strings.Contains(end, name) {
			return true
		}
	}
	return false
}
