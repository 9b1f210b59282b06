package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lorrylog/internal/cache"
	"lorrylog/internal/core"
)

// ErrNoManifestSession is returned when a comparison is requested for a
// month with no uploaded manifest (or whose session has expired).
var ErrNoManifestSession = errors.New("no manifest uploaded for month")

// ManifestService holds per-month manifest upload sessions. The parsed
// records live in an in-process LRU with a TTL; reconciliation always
// runs against the freshly loaded log, so an edit between upload and
// compare is reflected immediately.
type ManifestService struct {
	logs     *LogService
	sessions *cache.LRUCache[core.ManifestParseResult]
}

func NewManifestService(logs *LogService) *ManifestService {
	return &ManifestService{
		logs:     logs,
		sessions: cache.NewLRUCache[core.ManifestParseResult](16, 30*time.Minute),
	}
}

// Sessions exposes the LRU for cleanup registration.
func (m *ManifestService) Sessions() *cache.LRUCache[core.ManifestParseResult] {
	return m.sessions
}

// Upload parses raw manifest text, caches it as the month's session and
// returns the first reconciliation.
func (m *ManifestService) Upload(ctx context.Context, month, raw string) (core.ComparisonResult, int, error) {
	parsed, err := core.ParseManifest(raw)
	if err != nil {
		return core.ComparisonResult{}, 0, fmt.Errorf("parse manifest: %w", err)
	}

	m.sessions.Set(month, parsed)
	slog.InfoContext(ctx, "Manifest uploaded",
		"month", month,
		"records", len(parsed.Records),
		"skipped", parsed.Skipped)

	result, err := m.Compare(ctx, month)
	return result, parsed.Skipped, err
}

// Compare reconciles the month's entries against its cached manifest.
func (m *ManifestService) Compare(ctx context.Context, month string) (core.ComparisonResult, error) {
	parsed, ok := m.sessions.Get(month)
	if !ok {
		return core.ComparisonResult{}, fmt.Errorf("%w: %s", ErrNoManifestSession, month)
	}

	log, err := m.logs.GetMonthlyLog(ctx, month)
	if err != nil {
		return core.ComparisonResult{}, err
	}
	return core.Reconcile(log.Entries, parsed.Records), nil
}

// Proposals runs the auto-fill heuristics against the cached manifest.
func (m *ManifestService) Proposals(ctx context.Context, month string) ([]core.AutoFillProposal, error) {
	parsed, ok := m.sessions.Get(month)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoManifestSession, month)
	}

	log, err := m.logs.GetMonthlyLog(ctx, month)
	if err != nil {
		return nil, err
	}
	return core.AutoFill(log.Entries, parsed.Records), nil
}

// AutoFill computes proposals and applies them in one step.
func (m *ManifestService) AutoFill(ctx context.Context, month string) (core.MonthlyLog, int, error) {
	proposals, err := m.Proposals(ctx, month)
	if err != nil {
		return core.MonthlyLog{}, 0, err
	}
	log, err := m.logs.ApplyAutoFill(ctx, month, proposals)
	if err != nil {
		return core.MonthlyLog{}, 0, err
	}
	return log, len(proposals), nil
}

// Clear drops the month's session.
func (m *ManifestService) Clear(month string) {
	m.sessions.Delete(month)
}
