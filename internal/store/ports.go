package store

import (
	"context"

	"lorrylog/internal/core"
)

// Ports for outbound adapters. The core never branches on which backend is
// behind them; it only assumes read-after-write consistency for a single
// caller.
type (
	// LogStore persists one MonthlyLog per "YYYY-MM" key.
	LogStore interface {
		SaveMonthlyLog(ctx context.Context, log core.MonthlyLog) error
		// LoadMonthlyLog returns the stored log and true, or a zero log and
		// false when the month has never been saved.
		LoadMonthlyLog(ctx context.Context, month string) (core.MonthlyLog, bool, error)
		// ListMonths returns the stored month keys, newest first.
		ListMonths(ctx context.Context) ([]string, error)
	}

	// SiteStore persists the flat water-fill site list.
	SiteStore interface {
		SaveWaterFillSites(ctx context.Context, sites []core.WaterFillSite) error
		LoadWaterFillSites(ctx context.Context) ([]core.WaterFillSite, error)
	}

	// SyncMarker tracks which months still need a cloud push.
	SyncMarker interface {
		MarkPendingSync(ctx context.Context, month string) error
		PendingSyncMonths(ctx context.Context, limit int) ([]string, error)
		MarkSynced(ctx context.Context, month string) error
		MarkSyncError(ctx context.Context, month string) error
	}

	// LogPusher mirrors a month snapshot to the cloud collaborator.
	LogPusher interface {
		PushMonthlyLog(ctx context.Context, log core.MonthlyLog) error
	}
)
