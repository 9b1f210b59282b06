package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParserForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader("start=Depot&end=Karen"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.IsJSON() {
		t.Error("IsJSON = true for form body")
	}
	if got := p.Get("start"); got != "Depot" {
		t.Errorf("Get(start) = %q", got)
	}
	if got := p.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestRequestBodyParserJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(`{"start":"Depot","amount":450}`))
	req.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.IsJSON() {
		t.Error("IsJSON = false for JSON body")
	}
	if got := p.Get("start"); got != "Depot" {
		t.Errorf("Get(start) = %q", got)
	}
	// Numeric JSON values come back as strings.
	if got := p.Get("amount"); got != "450" {
		t.Errorf("Get(amount) = %q", got)
	}
}

func TestRequestBodyParserInvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(`{"start":`))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err == nil {
		t.Error("Parse accepted truncated JSON")
	}
}

func TestRequireMethod(t *testing.T) {
	post := httptest.NewRequest(http.MethodPost, "/x", nil)
	if resp := RequirePOST(post); resp != nil {
		t.Error("RequirePOST rejected POST")
	}

	get := httptest.NewRequest(http.MethodGet, "/x", nil)
	resp := RequirePOST(get)
	if resp == nil {
		t.Fatal("RequirePOST accepted GET")
	}
	rec := httptest.NewRecorder()
	resp.Write(rec)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}

	del := httptest.NewRequest(http.MethodDelete, "/x", nil)
	if resp := RequireDeleteOrPOST(del); resp != nil {
		t.Error("RequireDeleteOrPOST rejected DELETE")
	}
}

func TestSanitizeInput(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Depot  ", "Depot"},
		{"a\x00b\x07c", "abc"},
		{"line1\nline2", "line1\nline2"},
	}
	for _, c := range cases {
		if got := sanitizeInput(c.in); got != c.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatKES(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "KES 0.00"},
		{450, "KES 450.00"},
		{12450.5, "KES 12,450.50"},
		{1234567.89, "KES 1,234,567.89"},
		{-300, "-KES 300.00"},
	}
	for _, c := range cases {
		if got := formatKES(c.in); got != c.want {
			t.Errorf("formatKES(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractClientIP(t *testing.T) {
	t.Run("direct connection", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "203.0.113.7:4711"
		if got := extractClientIP(r, nil); got != "203.0.113.7" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("forwarded header from trusted proxy", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.5:80"
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.5")
		if got := extractClientIP(r, nil); got != "203.0.113.7" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("forwarded header from untrusted peer is ignored", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "198.51.100.9:80"
		r.Header.Set("X-Forwarded-For", "203.0.113.7")
		if got := extractClientIP(r, nil); got != "198.51.100.9" {
			t.Errorf("got %q", got)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	rl := &rateLimiter{clients: make(map[string]*clientInfo), stopCleanup: make(chan struct{})}
	defer rl.stop()

	for i := 0; i < requestsPerMinute; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d denied within budget", i+1)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Error("request over budget allowed")
	}
	// Other clients are unaffected.
	if !rl.allow("5.6.7.8") {
		t.Error("separate client denied")
	}
}
