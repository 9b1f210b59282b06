package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lorrylog/internal/core"
	"lorrylog/internal/store"
)

// Store is the persistence surface the service needs: monthly logs,
// the global site list and the sync queue.
type Store interface {
	store.LogStore
	store.SiteStore
	store.SyncMarker
}

// Publisher publishes month sync requests. Satisfied by *amqp.Client;
// nil disables async sync.
type Publisher interface {
	PublishMonthSync(ctx context.Context, month, reason string) error
}

// LogService orchestrates monthly log operations across storage and the
// sync queue. Mutations persist locally first; the AMQP publish is best
// effort and never fails the request.
type LogService struct {
	store     Store
	publisher Publisher
}

func NewLogService(st Store, publisher Publisher) *LogService {
	return &LogService{store: st, publisher: publisher}
}

// GetMonthlyLog returns the log for month, creating an empty one on
// first access. Water fill tags are refreshed from the current site
// list on every read.
func (s *LogService) GetMonthlyLog(ctx context.Context, month string) (core.MonthlyLog, error) {
	if err := core.ValidateMonthKey(month); err != nil {
		return core.MonthlyLog{}, err
	}

	log, ok, err := s.store.LoadMonthlyLog(ctx, month)
	if err != nil {
		return core.MonthlyLog{}, fmt.Errorf("load monthly log: %w", err)
	}
	if !ok {
		log = core.NewMonthlyLog(month)
		if err := s.store.SaveMonthlyLog(ctx, log); err != nil {
			return core.MonthlyLog{}, fmt.Errorf("create monthly log: %w", err)
		}
		slog.InfoContext(ctx, "Created monthly log", "month", month)
		return log, nil
	}

	sites, err := s.store.LoadWaterFillSites(ctx)
	if err != nil {
		return core.MonthlyLog{}, fmt.Errorf("load sites: %w", err)
	}
	core.TagWaterFills(log.Entries, sites)
	return log, nil
}

// ListMonths returns every saved month key, newest first.
func (s *LogService) ListMonths(ctx context.Context) ([]string, error) {
	return s.store.ListMonths(ctx)
}

// AddEntry appends a job entry to the month's log. Entries missing a
// start, end or either odometer reading are ignored without error, so
// a half-filled form row never creates a phantom job.
func (s *LogService) AddEntry(ctx context.Context, month string, in core.EntryInput) (core.MonthlyLog, error) {
	return s.mutate(ctx, month, "entry:created", func(log *core.MonthlyLog) error {
		if !log.AddEntry(in) {
			slog.InfoContext(ctx, "Skipped incomplete entry", "month", month)
		}
		return nil
	})
}

// UpdateEntry applies a partial update to one entry and recomputes its
// distance when either odometer reading changed.
func (s *LogService) UpdateEntry(ctx context.Context, month, entryID string, patch core.EntryPatch) (core.MonthlyLog, error) {
	return s.mutate(ctx, month, "entry:updated", func(log *core.MonthlyLog) error {
		if !log.UpdateEntry(entryID, patch) {
			return core.ErrEntryNotFound
		}
		return nil
	})
}

// DeleteEntry removes one entry and renumbers the rest densely.
func (s *LogService) DeleteEntry(ctx context.Context, month, entryID string) (core.MonthlyLog, error) {
	return s.mutate(ctx, month, "entry:deleted", func(log *core.MonthlyLog) error {
		if !log.DeleteEntry(entryID) {
			return core.ErrEntryNotFound
		}
		return nil
	})
}

// ClearEntries drops every entry in the month.
func (s *LogService) ClearEntries(ctx context.Context, month string) (core.MonthlyLog, error) {
	return s.mutate(ctx, month, "entries:cleared", func(log *core.MonthlyLog) error {
		log.ClearEntries()
		return nil
	})
}

// SaveFuelData replaces the month's fuel figures. Derived fields are
// normalized before the write so stored and displayed values agree.
func (s *LogService) SaveFuelData(ctx context.Context, month string, fd core.FuelData) (core.MonthlyLog, error) {
	return s.mutate(ctx, month, "fuel:updated", func(log *core.MonthlyLog) error {
		log.FuelData = fd
		core.NormalizeFuelData(log)
		return nil
	})
}

// SetMonthMileage sets the month's odometer bounds. Bounds take
// precedence over per-entry distances in every distance figure.
func (s *LogService) SetMonthMileage(ctx context.Context, month string, start, end *float64) (core.MonthlyLog, error) {
	return s.mutate(ctx, month, "mileage:updated", func(log *core.MonthlyLog) error {
		log.StartMileage = start
		log.EndMileage = end
		return nil
	})
}

// AddMisdemeanor records a compliance incident against the month.
func (s *LogService) AddMisdemeanor(ctx context.Context, month string, m core.Misdemeanor) (core.MonthlyLog, error) {
	if err := m.Validate(); err != nil {
		return core.MonthlyLog{}, err
	}
	if m.ID == "" {
		m.ID = core.NewID()
	}
	return s.mutate(ctx, month, "misdemeanor:created", func(log *core.MonthlyLog) error {
		log.Misdemeanors = append(log.Misdemeanors, m)
		return nil
	})
}

// ResolveMisdemeanor flips an incident's resolved flag.
func (s *LogService) ResolveMisdemeanor(ctx context.Context, month, id string, resolved bool) (core.MonthlyLog, error) {
	return s.mutate(ctx, month, "misdemeanor:updated", func(log *core.MonthlyLog) error {
		for i := range log.Misdemeanors {
			if log.Misdemeanors[i].ID == id {
				log.Misdemeanors[i].Resolved = resolved
				return nil
			}
		}
		return core.ErrMisdemeanorNotFound
	})
}

// DeleteMisdemeanor removes an incident from the month.
func (s *LogService) DeleteMisdemeanor(ctx context.Context, month, id string) (core.MonthlyLog, error) {
	return s.mutate(ctx, month, "misdemeanor:deleted", func(log *core.MonthlyLog) error {
		for i := range log.Misdemeanors {
			if log.Misdemeanors[i].ID == id {
				log.Misdemeanors = append(log.Misdemeanors[:i], log.Misdemeanors[i+1:]...)
				return nil
			}
		}
		return core.ErrMisdemeanorNotFound
	})
}

// ListWaterFillSites returns the global site list.
func (s *LogService) ListWaterFillSites(ctx context.Context) ([]core.WaterFillSite, error) {
	return s.store.LoadWaterFillSites(ctx)
}

// AddWaterFillSite registers a site and retags the given month so
// existing legs pick up the new name immediately.
func (s *LogService) AddWaterFillSite(ctx context.Context, site core.WaterFillSite, month string) ([]core.WaterFillSite, error) {
	if err := site.Validate(); err != nil {
		return nil, err
	}
	if site.ID == "" {
		site.ID = core.NewID()
	}

	sites, err := s.store.LoadWaterFillSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}
	sites = append(sites, site)
	if err := s.store.SaveWaterFillSites(ctx, sites); err != nil {
		return nil, fmt.Errorf("save sites: %w", err)
	}

	if month != "" {
		if err := s.retagMonth(ctx, month); err != nil {
			slog.ErrorContext(ctx, "Failed to retag month after site change",
				"month", month, "error", err)
		}
	}
	return s.store.LoadWaterFillSites(ctx)
}

// DeleteWaterFillSite removes a site and retags the given month.
func (s *LogService) DeleteWaterFillSite(ctx context.Context, siteID, month string) ([]core.WaterFillSite, error) {
	sites, err := s.store.LoadWaterFillSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}

	kept := sites[:0]
	found := false
	for _, site := range sites {
		if site.ID == siteID {
			found = true
			continue
		}
		kept = append(kept, site)
	}
	if !found {
		return nil, core.ErrWaterFillSiteNotFound
	}
	if err := s.store.SaveWaterFillSites(ctx, kept); err != nil {
		return nil, fmt.Errorf("save sites: %w", err)
	}

	if month != "" {
		if err := s.retagMonth(ctx, month); err != nil {
			slog.ErrorContext(ctx, "Failed to retag month after site change",
				"month", month, "error", err)
		}
	}
	return s.store.LoadWaterFillSites(ctx)
}

func (s *LogService) retagMonth(ctx context.Context, month string) error {
	log, ok, err := s.store.LoadMonthlyLog(ctx, month)
	if err != nil || !ok {
		return err
	}
	sites, err := s.store.LoadWaterFillSites(ctx)
	if err != nil {
		return err
	}
	core.TagWaterFills(log.Entries, sites)
	return s.store.SaveMonthlyLog(ctx, log)
}

// ApproveAmount copies a manifest earning onto an entry's AmountPaid.
func (s *LogService) ApproveAmount(ctx context.Context, month, entryID string, amount float64) (core.MonthlyLog, error) {
	return s.mutate(ctx, month, "amount:approved", func(log *core.MonthlyLog) error {
		if !log.UpdateEntry(entryID, core.EntryPatch{AmountPaid: &amount}) {
			return core.ErrEntryNotFound
		}
		return nil
	})
}

// ApplyAutoFill writes accepted proposals onto their entries. Entries
// that already have an order number are never overwritten.
func (s *LogService) ApplyAutoFill(ctx context.Context, month string, proposals []core.AutoFillProposal) (core.MonthlyLog, error) {
	return s.mutate(ctx, month, "manifest:autofilled", func(log *core.MonthlyLog) error {
		for _, p := range proposals {
			order := p.OrderNumber
			patch := core.EntryPatch{OrderNumber: &order}
			if p.Customer != "" {
				customer := p.Customer
				patch.Customer = &customer
			}
			if !log.UpdateEntry(p.EntryID, patch) {
				return fmt.Errorf("apply proposal for entry %s: %w", p.EntryID, core.ErrEntryNotFound)
			}
		}
		return nil
	})
}

// Rollover seeds the month if it does not exist yet: the opening
// odometer is the previous month's closing one and the fuel carried
// forward is the previous fuel balance.
func (s *LogService) Rollover(ctx context.Context, now time.Time) (string, bool, error) {
	month := core.MonthKey(now)
	_, ok, err := s.store.LoadMonthlyLog(ctx, month)
	if err != nil {
		return month, false, fmt.Errorf("load current month: %w", err)
	}
	if ok {
		return month, false, nil
	}

	log := core.NewMonthlyLog(month)
	prevKey := core.MonthKey(now.AddDate(0, -1, 0))
	prev, ok, err := s.store.LoadMonthlyLog(ctx, prevKey)
	if err != nil {
		return month, false, fmt.Errorf("load previous month: %w", err)
	}
	if ok {
		if prev.EndMileage != nil {
			v := *prev.EndMileage
			log.StartMileage = &v
		} else if lm := prev.LastMileage(); lm != nil {
			v := *lm
			log.StartMileage = &v
		}
		if prev.FuelData.FuelBalance != nil {
			v := *prev.FuelData.FuelBalance
			log.FuelData.FuelCf = &v
		}
	}

	if err := s.store.SaveMonthlyLog(ctx, log); err != nil {
		return month, false, fmt.Errorf("save rolled over month: %w", err)
	}

	slog.InfoContext(ctx, "Rolled over into new month",
		"month", month,
		"previous", prevKey,
		"seeded", ok)
	return month, true, nil
}

// mutate is the read-modify-write cycle every log mutation goes
// through: load (or create), apply, save, queue a sync.
func (s *LogService) mutate(ctx context.Context, month, reason string, apply func(*core.MonthlyLog) error) (core.MonthlyLog, error) {
	if err := core.ValidateMonthKey(month); err != nil {
		return core.MonthlyLog{}, err
	}

	log, ok, err := s.store.LoadMonthlyLog(ctx, month)
	if err != nil {
		return core.MonthlyLog{}, fmt.Errorf("load monthly log: %w", err)
	}
	if !ok {
		log = core.NewMonthlyLog(month)
	}

	if err := apply(&log); err != nil {
		return core.MonthlyLog{}, err
	}

	if err := s.store.SaveMonthlyLog(ctx, log); err != nil {
		return core.MonthlyLog{}, fmt.Errorf("save monthly log: %w", err)
	}

	s.queueSync(ctx, month, reason)
	return log, nil
}

func (s *LogService) queueSync(ctx context.Context, month, reason string) {
	if err := s.store.MarkPendingSync(ctx, month); err != nil {
		slog.ErrorContext(ctx, "Failed to queue month for sync",
			"month", month, "error", err)
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMonthSync(ctx, month, reason); err != nil {
		// The periodic sweep picks the month up from the sync queue.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"month", month, "reason", reason, "error", err)
	}
}
