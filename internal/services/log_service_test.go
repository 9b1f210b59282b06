package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"lorrylog/internal/core"
	"lorrylog/internal/memory"
)

type fakePublisher struct {
	published []string // "month reason"
	fail      bool
}

func (f *fakePublisher) PublishMonthSync(_ context.Context, month, reason string) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.published = append(f.published, month+" "+reason)
	return nil
}

func fp(v float64) *float64 { return &v }

func TestGetMonthlyLogCreatesLazily(t *testing.T) {
	svc := NewLogService(memory.New(), nil)
	ctx := context.Background()

	log, err := svc.GetMonthlyLog(ctx, "2025-06")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if log.Month != "2025-06" || len(log.Entries) != 0 {
		t.Fatalf("unexpected log: %+v", log)
	}

	if _, err := svc.GetMonthlyLog(ctx, "June 2025"); !errors.Is(err, core.ErrInvalidMonthKey) {
		t.Fatalf("invalid key error = %v", err)
	}
}

func TestAddEntryPersistsAndPublishes(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewLogService(memory.New(), pub)
	ctx := context.Background()

	log, err := svc.AddEntry(ctx, "2025-06", core.EntryInput{
		Start: "Depot", End: "Site A", MileageStart: fp(100), MileageEnd: fp(150),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if log.TotalJobs != 1 || log.TotalDistance != 50 {
		t.Fatalf("totals = %d/%v", log.TotalJobs, log.TotalDistance)
	}
	if len(pub.published) != 1 || pub.published[0] != "2025-06 entry:created" {
		t.Fatalf("published = %v", pub.published)
	}

	reloaded, _ := svc.GetMonthlyLog(ctx, "2025-06")
	if len(reloaded.Entries) != 1 {
		t.Fatal("entry not persisted")
	}
}

func TestAddEntryPublishFailureDoesNotFailSave(t *testing.T) {
	st := memory.New()
	svc := NewLogService(st, &fakePublisher{fail: true})
	ctx := context.Background()

	if _, err := svc.AddEntry(ctx, "2025-06", core.EntryInput{
		Start: "A", End: "B", MileageStart: fp(0), MileageEnd: fp(1),
	}); err != nil {
		t.Fatalf("save should survive publish failure: %v", err)
	}

	// The month still lands on the retry queue.
	pending, _ := st.PendingSyncMonths(ctx, 10)
	if len(pending) != 1 || pending[0] != "2025-06" {
		t.Fatalf("pending = %v", pending)
	}
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	svc := NewLogService(memory.New(), nil)
	ctx := context.Background()

	log, _ := svc.AddEntry(ctx, "2025-06", core.EntryInput{
		Start: "A", End: "B", MileageStart: fp(0), MileageEnd: fp(10),
	})
	log, _ = svc.AddEntry(ctx, "2025-06", core.EntryInput{
		Start: "B", End: "C", MileageStart: fp(10), MileageEnd: fp(30),
	})
	first := log.Entries[0].ID

	log, err := svc.UpdateEntry(ctx, "2025-06", first, core.EntryPatch{MileageEnd: fp(15)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if d := log.Entries[0].Distance; d == nil || *d != 15 {
		t.Fatalf("distance = %v", d)
	}

	log, err = svc.DeleteEntry(ctx, "2025-06", first)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(log.Entries) != 1 || log.Entries[0].JobNumber != 1 {
		t.Fatalf("entries after delete = %+v", log.Entries)
	}

	if _, err := svc.DeleteEntry(ctx, "2025-06", "nope"); !errors.Is(err, core.ErrEntryNotFound) {
		t.Fatalf("missing entry error = %v", err)
	}
}

func TestMissingEntryMapsToNotFound(t *testing.T) {
	svc := NewLogService(memory.New(), nil)
	ctx := context.Background()

	if _, err := svc.UpdateEntry(ctx, "2025-06", "nope", core.EntryPatch{MileageEnd: fp(5)}); !errors.Is(err, core.ErrEntryNotFound) {
		t.Fatalf("update missing entry error = %v", err)
	}
	if _, err := svc.ApproveAmount(ctx, "2025-06", "nope", 100); !errors.Is(err, core.ErrEntryNotFound) {
		t.Fatalf("approve missing entry error = %v", err)
	}
	proposals := []core.AutoFillProposal{{EntryID: "nope", OrderNumber: "ORD-9"}}
	if _, err := svc.ApplyAutoFill(ctx, "2025-06", proposals); !errors.Is(err, core.ErrEntryNotFound) {
		t.Fatalf("autofill missing entry error = %v", err)
	}
}

func TestSaveFuelDataNormalizes(t *testing.T) {
	svc := NewLogService(memory.New(), nil)
	ctx := context.Background()

	log, err := svc.SaveFuelData(ctx, "2025-06", core.FuelData{
		DieselCost: fp(2000),
		PetrolCost: fp(500),
		TotalCost:  fp(9999), // stale manual figure
	})
	if err != nil {
		t.Fatalf("save fuel: %v", err)
	}
	if tc := log.FuelData.TotalCost; tc == nil || *tc != 2500 {
		t.Fatalf("TotalCost = %v, want 2500", tc)
	}
}

func TestMisdemeanorLifecycle(t *testing.T) {
	svc := NewLogService(memory.New(), nil)
	ctx := context.Background()

	if _, err := svc.AddMisdemeanor(ctx, "2025-06", core.Misdemeanor{
		Date: time.Now(), Type: "Jaywalking",
	}); !errors.Is(err, core.ErrUnknownMisdemeanor) {
		t.Fatalf("unknown type error = %v", err)
	}

	log, err := svc.AddMisdemeanor(ctx, "2025-06", core.Misdemeanor{
		Date: time.Now(), Type: "Speeding", Fine: fp(3000),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := log.Misdemeanors[0].ID
	if id == "" {
		t.Fatal("misdemeanor should get an ID")
	}

	log, err = svc.ResolveMisdemeanor(ctx, "2025-06", id, true)
	if err != nil || !log.Misdemeanors[0].Resolved {
		t.Fatalf("resolve: err=%v resolved=%v", err, log.Misdemeanors)
	}

	log, err = svc.DeleteMisdemeanor(ctx, "2025-06", id)
	if err != nil || len(log.Misdemeanors) != 0 {
		t.Fatalf("delete: err=%v left=%d", err, len(log.Misdemeanors))
	}
}

func TestSiteChangeRetagsMonth(t *testing.T) {
	svc := NewLogService(memory.New(), nil)
	ctx := context.Background()

	_, _ = svc.AddEntry(ctx, "2025-06", core.EntryInput{
		Start: "Depot", End: "Kilimani Borehole", MileageStart: fp(0), MileageEnd: fp(5),
	})

	sites, err := svc.AddWaterFillSite(ctx, core.WaterFillSite{Name: "borehole"}, "2025-06")
	if err != nil || len(sites) != 1 {
		t.Fatalf("add site: sites=%v err=%v", sites, err)
	}

	log, _ := svc.GetMonthlyLog(ctx, "2025-06")
	if !log.Entries[0].IsWaterFill {
		t.Fatal("entry should be tagged as water fill")
	}

	if _, err := svc.DeleteWaterFillSite(ctx, sites[0].ID, "2025-06"); err != nil {
		t.Fatalf("delete site: %v", err)
	}
	log, _ = svc.GetMonthlyLog(ctx, "2025-06")
	if log.Entries[0].IsWaterFill {
		t.Fatal("tag should be cleared after site removal")
	}
}

func TestRolloverSeedsFromPreviousMonth(t *testing.T) {
	svc := NewLogService(memory.New(), nil)
	ctx := context.Background()

	_, _ = svc.SetMonthMileage(ctx, "2025-05", fp(1000), fp(1800))
	_, _ = svc.SaveFuelData(ctx, "2025-05", core.FuelData{FuelBalance: fp(42.5)})

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	month, created, err := svc.Rollover(ctx, now)
	if err != nil || !created || month != "2025-06" {
		t.Fatalf("rollover: month=%s created=%v err=%v", month, created, err)
	}

	log, _ := svc.GetMonthlyLog(ctx, "2025-06")
	if log.StartMileage == nil || *log.StartMileage != 1800 {
		t.Fatalf("StartMileage = %v, want 1800", log.StartMileage)
	}
	if log.FuelData.FuelCf == nil || *log.FuelData.FuelCf != 42.5 {
		t.Fatalf("FuelCf = %v, want 42.5", log.FuelData.FuelCf)
	}

	// Idempotent once the month exists.
	_, created, err = svc.Rollover(ctx, now)
	if err != nil || created {
		t.Fatalf("second rollover: created=%v err=%v", created, err)
	}
}
