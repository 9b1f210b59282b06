package worker

import (
	"context"
	"errors"
	"testing"

	"lorrylog/internal/amqp"
	"lorrylog/internal/core"
	"lorrylog/internal/memory"
)

type fakePusher struct {
	pushed []string
	fail   bool
}

func (f *fakePusher) PushMonthlyLog(_ context.Context, log core.MonthlyLog) error {
	if f.fail {
		return errors.New("sheets unavailable")
	}
	f.pushed = append(f.pushed, log.Month)
	return nil
}

func TestHandleSyncMessagePushesMonth(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	_ = st.SaveMonthlyLog(ctx, core.NewMonthlyLog("2025-06"))
	_ = st.MarkPendingSync(ctx, "2025-06")

	pusher := &fakePusher{}
	w := NewSyncWorker(st, pusher, 10)

	if err := w.HandleSyncMessage(ctx, amqp.NewMonthSyncMessage("2025-06", "entry:created")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(pusher.pushed) != 1 || pusher.pushed[0] != "2025-06" {
		t.Fatalf("pushed = %v", pusher.pushed)
	}

	pending, _ := st.PendingSyncMonths(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("pending after sync = %v", pending)
	}
}

func TestHandleSyncMessagePushFailureKeepsQueued(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	_ = st.SaveMonthlyLog(ctx, core.NewMonthlyLog("2025-06"))
	_ = st.MarkPendingSync(ctx, "2025-06")

	w := NewSyncWorker(st, &fakePusher{fail: true}, 10)

	if err := w.HandleSyncMessage(ctx, amqp.NewMonthSyncMessage("2025-06", "entry:created")); err == nil {
		t.Fatal("expected push error")
	}
	pending, _ := st.PendingSyncMonths(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("pending = %v, want month kept for retry", pending)
	}
}

func TestHandleSyncMessageMissingLogDrainsQueue(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	_ = st.MarkPendingSync(ctx, "2025-07")

	pusher := &fakePusher{}
	w := NewSyncWorker(st, pusher, 10)

	if err := w.HandleSyncMessage(ctx, amqp.NewMonthSyncMessage("2025-07", "entry:created")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(pusher.pushed) != 0 {
		t.Fatalf("nothing should be pushed, got %v", pusher.pushed)
	}
	pending, _ := st.PendingSyncMonths(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("pending = %v, want empty", pending)
	}
}

func TestProcessPendingMonths(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	for _, m := range []string{"2025-05", "2025-06"} {
		_ = st.SaveMonthlyLog(ctx, core.NewMonthlyLog(m))
		_ = st.MarkPendingSync(ctx, m)
	}

	pusher := &fakePusher{}
	w := NewSyncWorker(st, pusher, 10)

	if err := w.ProcessPendingMonths(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(pusher.pushed) != 2 {
		t.Fatalf("pushed = %v", pusher.pushed)
	}
}

func TestStartupSyncCheckCountsErrors(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	_ = st.SaveMonthlyLog(ctx, core.NewMonthlyLog("2025-06"))
	_ = st.MarkPendingSync(ctx, "2025-06")

	w := NewSyncWorker(st, &fakePusher{fail: true}, 2)

	// Startup check logs failures but does not abort.
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	pending, _ := st.PendingSyncMonths(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("pending = %v, want month kept", pending)
	}
}
