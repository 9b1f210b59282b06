package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"lorrylog/internal/core"
)

// Store is the in-memory backend: the default for local use and the
// workhorse for tests. It implements the same ports as the SQLite
// repository.
type Store struct {
	mu      sync.Mutex
	logs    map[string]core.MonthlyLog
	sites   []core.WaterFillSite
	pending map[string]struct{}
}

func New() *Store {
	return &Store{
		logs:    make(map[string]core.MonthlyLog),
		pending: make(map[string]struct{}),
	}
}

func (s *Store) SaveMonthlyLog(_ context.Context, log core.MonthlyLog) error {
	if err := core.ValidateMonthKey(log.Month); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[log.Month] = cloneLog(log)
	return nil
}

func (s *Store) LoadMonthlyLog(_ context.Context, month string) (core.MonthlyLog, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[month]
	if !ok {
		return core.MonthlyLog{}, false, nil
	}
	return cloneLog(log), true, nil
}

func (s *Store) ListMonths(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	months := make([]string, 0, len(s.logs))
	for m := range s.logs {
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months, nil
}

func (s *Store) SaveWaterFillSites(_ context.Context, sites []core.WaterFillSite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites = dedupeSites(sites)
	return nil
}

func (s *Store) LoadWaterFillSites(_ context.Context) ([]core.WaterFillSite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.WaterFillSite(nil), s.sites...), nil
}

func (s *Store) MarkPendingSync(_ context.Context, month string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[month] = struct{}{}
	return nil
}

func (s *Store) PendingSyncMonths(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var months []string
	for m := range s.pending {
		months = append(months, m)
	}
	sort.Strings(months)
	if limit > 0 && len(months) > limit {
		months = months[:limit]
	}
	return months, nil
}

func (s *Store) MarkSynced(_ context.Context, month string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, month)
	return nil
}

func (s *Store) MarkSyncError(_ context.Context, month string) error {
	// Stays pending; the next sweep retries it.
	return nil
}

func cloneLog(log core.MonthlyLog) core.MonthlyLog {
	out := log
	out.Entries = append([]core.JobEntry(nil), log.Entries...)
	out.Misdemeanors = append([]core.Misdemeanor(nil), log.Misdemeanors...)
	return out
}

func dedupeSites(sites []core.WaterFillSite) []core.WaterFillSite {
	seen := map[string]struct{}{}
	out := make([]core.WaterFillSite, 0, len(sites))
	for _, s := range sites {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, s)
	}
	return out
}
