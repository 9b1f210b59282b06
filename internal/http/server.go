package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"lorrylog/internal/cache"
	"lorrylog/internal/core"
	"lorrylog/internal/services"
	appweb "lorrylog/web"
)

// Server is the lorrylog web server: the HTMX UI, the export downloads and
// the health endpoints, all backed by the log and manifest services.
type Server struct {
	http.Server
	templates   *template.Template
	logs        *services.LogService
	manifests   *services.ManifestService
	rateLimiter *rateLimiter
	metrics     securityMetrics

	// Month logs are cached briefly so dashboard partials don't hammer the
	// store; every mutation invalidates the month it touched.
	logCache *cache.LRUCache[core.MonthlyLog]
	caches   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, logs *services.LogService, manifests *services.ManifestService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logs:        logs,
		manifests:   manifests,
		rateLimiter: newRateLimiter(),
		logCache:    cache.NewLRUCache[core.MonthlyLog](24, 2*time.Minute),
		caches:      cache.NewManager(),
	}

	s.caches.Register(s.logCache)
	if manifests != nil {
		s.caches.Register(manifests.Sessions())
	}
	s.caches.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/entries", s.withSecurityHeaders(s.handleCreateEntry))
	mux.HandleFunc("/entries/update", s.withSecurityHeaders(s.handleUpdateEntry))
	mux.HandleFunc("/entries/delete", s.withSecurityHeaders(s.handleDeleteEntry))
	mux.HandleFunc("/entries/clear", s.withSecurityHeaders(s.handleClearEntries))
	mux.HandleFunc("/entries/approve", s.withSecurityHeaders(s.handleApproveAmount))

	mux.HandleFunc("/fuel", s.withSecurityHeaders(s.handleSaveFuel))
	mux.HandleFunc("/mileage", s.withSecurityHeaders(s.handleSetMileage))

	mux.HandleFunc("/misdemeanors", s.withSecurityHeaders(s.handleCreateMisdemeanor))
	mux.HandleFunc("/misdemeanors/resolve", s.withSecurityHeaders(s.handleResolveMisdemeanor))
	mux.HandleFunc("/misdemeanors/delete", s.withSecurityHeaders(s.handleDeleteMisdemeanor))

	mux.HandleFunc("/sites", s.withSecurityHeaders(s.handleSites))
	mux.HandleFunc("/sites/delete", s.withSecurityHeaders(s.handleDeleteSite))

	mux.HandleFunc("/manifest/upload", s.withSecurityHeaders(s.handleManifestUpload))
	mux.HandleFunc("/manifest/compare", s.withSecurityHeaders(s.handleManifestCompare))
	mux.HandleFunc("/manifest/autofill", s.withSecurityHeaders(s.handleManifestAutoFill))
	mux.HandleFunc("/manifest/clear", s.withSecurityHeaders(s.handleManifestClear))

	// UI partials
	mux.HandleFunc("/ui/month-summary", s.withSecurityHeaders(s.handleMonthSummary))
	mux.HandleFunc("/ui/entries", s.withSecurityHeaders(s.handleEntryList))
	mux.HandleFunc("/ui/analysis", s.withSecurityHeaders(s.handleAnalysis))
	mux.HandleFunc("/ui/history", s.withSecurityHeaders(s.handleHistory))

	mux.HandleFunc("/export/csv", s.withSecurityHeaders(s.handleExportCSV))
	mux.HandleFunc("/export/tsv", s.withSecurityHeaders(s.handleExportTSV))
	mux.HandleFunc("/export/xlsx", s.withSecurityHeaders(s.handleExportXLSX))

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging to a handler.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r, &s.metrics)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Mutations are rate limited; reads are not.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// getLog returns the month's log, served from the short-lived cache when
// possible.
func (s *Server) getLog(ctx context.Context, month string) (core.MonthlyLog, error) {
	if l, found := s.logCache.Get(month); found {
		slog.DebugContext(ctx, "Month log cache hit", "month", month)
		return l, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	l, err := s.logs.GetMonthlyLog(cctx, month)
	if err != nil {
		return core.MonthlyLog{}, err
	}
	s.logCache.Set(month, l)
	return l, nil
}

// cacheLog stores a log snapshot returned by a mutation so the follow-up
// partial refresh sees the new state immediately.
func (s *Server) cacheLog(l core.MonthlyLog) {
	s.logCache.Set(l.Month, l)
}

func (s *Server) invalidateMonth(month string) {
	s.logCache.Delete(month)
}
