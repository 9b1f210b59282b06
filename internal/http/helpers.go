package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lorrylog/internal/core"
)

// monthParam extracts the "month" parameter (query or form) as a "YYYY-MM"
// key, falling back to the current month when absent or malformed.
func monthParam(r *http.Request) string {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		v = strings.TrimSpace(r.FormValue("month"))
	}
	if v == "" || core.ValidateMonthKey(v) != nil {
		return core.MonthKey(time.Now())
	}
	return v
}

// parseDate parses a "YYYY-MM-DD" form value. Empty input is not an error;
// it returns a nil date.
func parseDate(dateStr string) (*time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseOptionalFloat parses a numeric form value. Empty means "not entered"
// and yields nil rather than zero.
func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// formatKES renders an amount as Kenyan shillings with thousands separators,
// e.g. "KES 12,450.00".
func formatKES(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	dot := strings.IndexByte(s, '.')
	whole, frac := s[:dot], s[dot:]
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := "KES " + b.String() + frac
	if neg {
		return "-" + out
	}
	return out
}

// formatKm renders a distance with one decimal place.
func formatKm(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + " km"
}

// sanitizeInput trims whitespace and strips control characters except tab,
// newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
