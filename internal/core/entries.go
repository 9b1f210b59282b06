package core

import (
	"strings"
	"time"
)

// EntryInput carries the fields for a new entry. Start, End and both
// odometer readings are required; AddEntry is a no-op without them.
type EntryInput struct {
	Start        string
	End          string
	MileageStart *float64
	MileageEnd   *float64
	OrderNumber  string
	Customer     string
	AmountPaid   *float64
	IsParking    bool
	Date         *time.Time
	Status       EntryStatus
}

// EntryPatch is a partial update. Nil fields are left untouched.
type EntryPatch struct {
	Start        *string
	End          *string
	MileageStart *float64
	MileageEnd   *float64
	OrderNumber  *string
	Customer     *string
	AmountPaid   *float64
	IsWaterFill  *bool
	IsParking    *bool
	Date         *time.Time
	Status       *EntryStatus
}

// AddEntry appends a new entry with the next job number and recomputes the
// dependent totals. Returns false without touching the log when required
// fields are missing; callers are expected to validate beforehand.
func (l *MonthlyLog) AddEntry(in EntryInput) bool {
	if strings.TrimSpace(in.Start) == "" || strings.TrimSpace(in.End) == "" {
		return false
	}
	if in.MileageStart == nil || in.MileageEnd == nil {
		return false
	}

	status := in.Status
	if status == "" {
		status = StatusManual
	}
	distance := *in.MileageEnd - *in.MileageStart
	entry := JobEntry{
		ID:           NewID(),
		JobNumber:    len(l.Entries) + 1,
		OrderNumber:  strings.TrimSpace(in.OrderNumber),
		Customer:     strings.TrimSpace(in.Customer),
		Start:        in.Start,
		End:          in.End,
		MileageStart: in.MileageStart,
		MileageEnd:   in.MileageEnd,
		Distance:     &distance,
		AmountPaid:   in.AmountPaid,
		IsParking:    in.IsParking,
		Date:         in.Date,
		Timestamp:    time.Now(),
		Status:       status,
	}
	l.Entries = append(l.Entries, entry)
	l.recompute()
	return true
}

// UpdateEntry merges the patch into the matching entry. If either odometer
// field is patched, distance is recomputed from the merged pair so it can
// never go stale. Returns false when no entry has the given id.
func (l *MonthlyLog) UpdateEntry(id string, patch EntryPatch) bool {
	for i := range l.Entries {
		if l.Entries[i].ID != id {
			continue
		}
		e := &l.Entries[i]
		if patch.Start != nil {
			e.Start = *patch.Start
		}
		if patch.End != nil {
			e.End = *patch.End
		}
		if patch.MileageStart != nil {
			e.MileageStart = patch.MileageStart
		}
		if patch.MileageEnd != nil {
			e.MileageEnd = patch.MileageEnd
		}
		if patch.MileageStart != nil || patch.MileageEnd != nil {
			d := deref(e.MileageEnd) - deref(e.MileageStart)
			e.Distance = &d
		}
		if patch.OrderNumber != nil {
			e.OrderNumber = strings.TrimSpace(*patch.OrderNumber)
		}
		if patch.Customer != nil {
			e.Customer = strings.TrimSpace(*patch.Customer)
		}
		if patch.AmountPaid != nil {
			e.AmountPaid = patch.AmountPaid
		}
		if patch.IsWaterFill != nil {
			e.IsWaterFill = *patch.IsWaterFill
		}
		if patch.IsParking != nil {
			e.IsParking = *patch.IsParking
		}
		if patch.Date != nil {
			e.Date = patch.Date
		}
		if patch.Status != nil {
			e.Status = *patch.Status
		}
		l.recompute()
		return true
	}
	return false
}

// DeleteEntry removes the entry and renumbers the remainder to a dense 1..N
// sequence in their original relative order.
func (l *MonthlyLog) DeleteEntry(id string) bool {
	idx := -1
	for i := range l.Entries {
		if l.Entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	l.Entries = append(l.Entries[:idx], l.Entries[idx+1:]...)
	for i := range l.Entries {
		l.Entries[i].JobNumber = i + 1
	}
	l.recompute()
	return true
}

// ClearEntries empties the list and resets the dependent totals.
func (l *MonthlyLog) ClearEntries() {
	l.Entries = nil
	l.TotalJobs = 0
	l.TotalDistance = 0
	l.EndMileage = nil
}

// LastMileage returns the last entry's end reading, falling back to the
// month's start mileage. Used to prefill the next entry.
func (l *MonthlyLog) LastMileage() *float64 {
	if n := len(l.Entries); n > 0 && l.Entries[n-1].MileageEnd != nil {
		return l.Entries[n-1].MileageEnd
	}
	return l.StartMileage
}

// recompute refreshes TotalJobs, TotalDistance and EndMileage from the
// entry list after any mutation.
func (l *MonthlyLog) recompute() {
	l.TotalJobs = len(l.Entries)
	total := 0.0
	for _, e := range l.Entries {
		total += deref(e.Distance)
	}
	l.TotalDistance = total
	if n := len(l.Entries); n > 0 {
		l.EndMileage = l.Entries[n-1].MileageEnd
	} else {
		l.EndMileage = nil
	}
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
