package worker

import (
	"context"
	"fmt"
	"log/slog"

	"lorrylog/internal/amqp"
	"lorrylog/internal/store"
)

// Store is the worker's persistence surface: load logs and manage the
// sync queue.
type Store interface {
	store.LogStore
	store.SyncMarker
}

// SyncWorker pushes monthly logs from local storage to the remote
// sheet. AMQP messages drive the fast path; the pending-sync sweep is
// the backup for lost messages or worker downtime.
type SyncWorker struct {
	store     Store
	pusher    store.LogPusher
	batchSize int
}

func NewSyncWorker(st Store, pusher store.LogPusher, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     st,
		pusher:    pusher,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes one month sync message from AMQP. The
// month's current state is loaded fresh, so a burst of messages for the
// same month converges on the latest log.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.MonthSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"month", msg.Month,
		"reason", msg.Reason)

	return w.syncMonth(ctx, msg.Month)
}

// ProcessPendingMonths pushes queued months that have not been synced
// yet. Called periodically as a backup for lost AMQP messages.
func (w *SyncWorker) ProcessPendingMonths(ctx context.Context) error {
	pending, err := w.store.PendingSyncMonths(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending months: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending months", "count", len(pending))

	for _, month := range pending {
		if err := w.syncMonth(ctx, month); err != nil {
			slog.ErrorContext(ctx, "Failed to sync month", "month", month, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck drains the pending queue once at worker startup with
// a larger batch, recovering anything missed while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.PendingSyncMonths(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending months for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending months found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending months on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, month := range pending {
		if err := w.syncMonth(ctx, month); err != nil {
			slog.ErrorContext(ctx, "Failed to sync month during startup",
				"month", month, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)
	return nil
}

func (w *SyncWorker) syncMonth(ctx context.Context, month string) error {
	log, ok, err := w.store.LoadMonthlyLog(ctx, month)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, month); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "month", month, "error", markErr)
		}
		return fmt.Errorf("load month %s: %w", month, err)
	}
	if !ok {
		// The month was queued but never saved; nothing to push.
		slog.WarnContext(ctx, "Queued month has no log, marking synced", "month", month)
		return w.store.MarkSynced(ctx, month)
	}

	if err := w.pusher.PushMonthlyLog(ctx, log); err != nil {
		if markErr := w.store.MarkSyncError(ctx, month); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "month", month, "error", markErr)
		}
		return fmt.Errorf("push month %s: %w", month, err)
	}

	if err := w.store.MarkSynced(ctx, month); err != nil {
		// The push itself worked; the queue entry will be retried.
		slog.ErrorContext(ctx, "Failed to mark as synced", "month", month, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced month",
		"month", month,
		"entries", len(log.Entries))
	return nil
}
