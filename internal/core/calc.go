// Package core holds the domain model and the pure derivation rules for a
// month of delivery work: distances, fuel usage, net profit, manifest
// reconciliation and export layouts.
//
// All derivations in this file are pure functions over a MonthlyLog
// snapshot. Absent inputs default to zero instead of raising; out-of-range
// results (negative distance, negative profit) are legitimate signals and
// pass through unmodified.
package core

import "math"

// Round2 rounds to 2 decimal places. Applied at derived-value storage
// points, not at every intermediate step, to avoid compounding float error
// across repeated recomputation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MonthDistance returns the month's authoritative distance. When both
// odometer bounds are recorded they win over the entry sum; otherwise each
// entry contributes its positive distance, or the clamped difference of its
// odometer pair.
func MonthDistance(l MonthlyLog) float64 {
	if l.StartMileage != nil && l.EndMileage != nil {
		return math.Max(0, *l.EndMileage-*l.StartMileage)
	}
	total := 0.0
	for _, e := range l.Entries {
		switch {
		case e.Distance != nil && *e.Distance > 0:
			total += *e.Distance
		case e.MileageStart != nil && e.MileageEnd != nil:
			total += math.Max(0, *e.MileageEnd-*e.MileageStart)
		}
	}
	return total
}

// PaidJobs counts entries with a positive payout.
func PaidJobs(l MonthlyLog) int {
	n := 0
	for _, e := range l.Entries {
		if deref(e.AmountPaid) > 0 {
			n++
		}
	}
	return n
}

// EntriesEarned sums every entry's payout.
func EntriesEarned(l MonthlyLog) float64 {
	total := 0.0
	for _, e := range l.Entries {
		total += deref(e.AmountPaid)
	}
	return total
}

// AmountEarned returns the manual override when present, otherwise the
// summed entry payouts.
func AmountEarned(l MonthlyLog) float64 {
	if l.FuelData.AmountEarned != nil {
		return *l.FuelData.AmountEarned
	}
	return EntriesEarned(l)
}

// DieselUsage derives liters consumed from distance and the consumption
// rate, falling back to the manually entered figures when no rate is set.
// Never negative.
func DieselUsage(fd FuelData, totalDistance float64) float64 {
	var liters float64
	switch {
	case deref(fd.FuelConsumptionRate) > 0:
		liters = Round2(totalDistance / *fd.FuelConsumptionRate)
	case fd.TotalLitersUsedDiesel != nil && *fd.TotalLitersUsedDiesel > 0:
		liters = *fd.TotalLitersUsedDiesel
	default:
		liters = deref(fd.TotalLitersUsed)
	}
	return math.Max(0, liters)
}

// DieselUnitCost is the cost per liter of the diesel bought this month.
func DieselUnitCost(fd FuelData) float64 {
	if deref(fd.DieselAmount) > 0 {
		return deref(fd.DieselCost) / *fd.DieselAmount
	}
	return 0
}

// TotalFuelCost is the combined diesel and petrol spend.
func TotalFuelCost(fd FuelData) float64 {
	return deref(fd.DieselCost) + deref(fd.PetrolCost)
}

// NetProfit is earnings minus usage cost, direct fuel cost, expenses, other
// costs and salary. Negative profit is a valid result.
func NetProfit(l MonthlyLog) float64 {
	fd := l.FuelData
	distance := MonthDistance(l)
	usage := DieselUsage(fd, distance)
	usageCost := Round2(usage * DieselUnitCost(fd))
	costs := usageCost +
		deref(fd.DieselCost) +
		deref(fd.PetrolCost) +
		deref(fd.TotalExpense) +
		deref(fd.OtherCosts) +
		deref(fd.MonthlySalary)
	return Round2(AmountEarned(l) - costs)
}

// TotalFines sums the fines across misdemeanors.
func TotalFines(l MonthlyLog) float64 {
	total := 0.0
	for _, m := range l.Misdemeanors {
		total += deref(m.Fine)
	}
	return total
}

// UnresolvedMisdemeanors counts incidents not yet resolved.
func UnresolvedMisdemeanors(l MonthlyLog) int {
	n := 0
	for _, m := range l.Misdemeanors {
		if !m.Resolved {
			n++
		}
	}
	return n
}

// MonthSummary is the read-only derived view of a month, consumed by the
// dashboard, the exports and the PDF collaborator.
type MonthSummary struct {
	Month          string
	TotalJobs      int
	PaidJobs       int
	TotalDistance  float64
	AmountEarned   float64
	DieselUsage    float64
	DieselUnitCost float64
	UsageCost      float64
	TotalFuelCost  float64
	TotalExpense   float64
	OtherCosts     float64
	MonthlySalary  float64
	NetProfit      float64
	TotalFines     float64
	Unresolved     int
}

// Summarize derives the full month summary from a log snapshot.
func Summarize(l MonthlyLog) MonthSummary {
	fd := l.FuelData
	distance := MonthDistance(l)
	usage := DieselUsage(fd, distance)
	unitCost := DieselUnitCost(fd)
	return MonthSummary{
		Month:          l.Month,
		TotalJobs:      len(l.Entries),
		PaidJobs:       PaidJobs(l),
		TotalDistance:  distance,
		AmountEarned:   AmountEarned(l),
		DieselUsage:    usage,
		DieselUnitCost: Round2(unitCost),
		UsageCost:      Round2(usage * unitCost),
		TotalFuelCost:  TotalFuelCost(fd),
		TotalExpense:   deref(fd.TotalExpense),
		OtherCosts:     deref(fd.OtherCosts),
		MonthlySalary:  deref(fd.MonthlySalary),
		NetProfit:      NetProfit(l),
		TotalFines:     TotalFines(l),
		Unresolved:     UnresolvedMisdemeanors(l),
	}
}

// NormalizeFuelData recomputes the memoized derived fields before a save.
// TotalCost always equals DieselCost + PetrolCost once either exists; it is
// never an independently editable figure.
func NormalizeFuelData(l *MonthlyLog) {
	fd := &l.FuelData
	if fd.DieselCost != nil || fd.PetrolCost != nil {
		total := Round2(TotalFuelCost(*fd))
		fd.TotalCost = &total
	}
	distance := MonthDistance(*l)
	if deref(fd.FuelConsumptionRate) > 0 {
		liters := DieselUsage(*fd, distance)
		fd.TotalLitersUsedDiesel = &liters
	}
	profit := NetProfit(*l)
	fd.NetProfit = &profit
}
