package core

import "testing"

func TestMonthDistancePrecedence(t *testing.T) {
	log := NewMonthlyLog("2025-06")
	log.StartMileage = fp(1000)
	log.EndMileage = fp(1250)
	log.Entries = []JobEntry{
		{Distance: fp(100)},
		{Distance: fp(200)},
	}

	// Odometer bounds win over the entry sum.
	if got := MonthDistance(log); got != 250 {
		t.Fatalf("MonthDistance = %v, want 250", got)
	}
}

func TestMonthDistanceFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		entries []JobEntry
		want    float64
	}{
		{
			name:    "positive distances summed",
			entries: []JobEntry{{Distance: fp(30)}, {Distance: fp(20)}},
			want:    50,
		},
		{
			name:    "negative distance falls back to clamped mileage pair",
			entries: []JobEntry{{Distance: fp(-5), MileageStart: fp(110), MileageEnd: fp(100)}},
			want:    0,
		},
		{
			name:    "missing distance uses mileage pair",
			entries: []JobEntry{{MileageStart: fp(100), MileageEnd: fp(140)}},
			want:    40,
		},
		{
			name:    "nothing usable counts zero",
			entries: []JobEntry{{}},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := NewMonthlyLog("2025-06")
			log.Entries = tt.entries
			if got := MonthDistance(log); got != tt.want {
				t.Fatalf("MonthDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPaidJobsAndEarnings(t *testing.T) {
	log := NewMonthlyLog("2025-06")
	log.Entries = []JobEntry{
		{AmountPaid: fp(500)},
		{AmountPaid: fp(0)},
		{},
		{AmountPaid: fp(250)},
	}

	if got := PaidJobs(log); got != 2 {
		t.Errorf("PaidJobs = %d, want 2", got)
	}
	if got := EntriesEarned(log); got != 750 {
		t.Errorf("EntriesEarned = %v, want 750", got)
	}

	// Manual override wins when present.
	log.FuelData.AmountEarned = fp(9000)
	if got := AmountEarned(log); got != 9000 {
		t.Errorf("AmountEarned = %v, want override 9000", got)
	}
}

func TestDieselUsage(t *testing.T) {
	tests := []struct {
		name     string
		fd       FuelData
		distance float64
		want     float64
	}{
		{
			name:     "rate set divides distance",
			fd:       FuelData{FuelConsumptionRate: fp(5)},
			distance: 101,
			want:     20.2,
		},
		{
			name:     "no rate falls back to diesel liters",
			fd:       FuelData{TotalLitersUsedDiesel: fp(33.5)},
			distance: 100,
			want:     33.5,
		},
		{
			name:     "then to total liters used",
			fd:       FuelData{TotalLitersUsed: fp(12)},
			distance: 100,
			want:     12,
		},
		{
			name:     "nothing set is zero",
			fd:       FuelData{},
			distance: 100,
			want:     0,
		},
		{
			name:     "negative fallback clamps to zero",
			fd:       FuelData{TotalLitersUsed: fp(-4)},
			distance: 0,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DieselUsage(tt.fd, tt.distance); got != tt.want {
				t.Fatalf("DieselUsage = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNetProfitWorkedExample(t *testing.T) {
	log := NewMonthlyLog("2025-06")
	log.StartMileage = fp(0)
	log.EndMileage = fp(100)
	log.FuelData = FuelData{
		AmountEarned:        fp(10000),
		DieselCost:          fp(2000),
		PetrolCost:          fp(500),
		DieselAmount:        fp(40),
		TotalExpense:        fp(300),
		OtherCosts:          fp(0),
		MonthlySalary:       fp(0),
		FuelConsumptionRate: fp(5),
	}

	if got := DieselUsage(log.FuelData, MonthDistance(log)); got != 20 {
		t.Errorf("DieselUsage = %v, want 20", got)
	}
	if got := DieselUnitCost(log.FuelData); got != 50 {
		t.Errorf("DieselUnitCost = %v, want 50", got)
	}
	if got := NetProfit(log); got != 6200 {
		t.Errorf("NetProfit = %v, want 6200", got)
	}
}

func TestNetProfitNegativePassesThrough(t *testing.T) {
	log := NewMonthlyLog("2025-06")
	log.FuelData = FuelData{
		AmountEarned: fp(100),
		DieselCost:   fp(2000),
	}
	if got := NetProfit(log); got != -1900 {
		t.Fatalf("NetProfit = %v, want -1900", got)
	}
}

func TestNormalizeFuelDataTotalCostInvariant(t *testing.T) {
	log := NewMonthlyLog("2025-06")
	log.FuelData.DieselCost = fp(2000)
	log.FuelData.PetrolCost = fp(500)
	// A manually typed total must be overwritten at save.
	log.FuelData.TotalCost = fp(9999)

	NormalizeFuelData(&log)
	if log.FuelData.TotalCost == nil || *log.FuelData.TotalCost != 2500 {
		t.Fatalf("TotalCost = %v, want 2500", log.FuelData.TotalCost)
	}
	if log.FuelData.NetProfit == nil {
		t.Fatal("NetProfit not memoized")
	}
}

func TestNormalizeFuelDataLeavesTotalCostWhenNoInputs(t *testing.T) {
	log := NewMonthlyLog("2025-06")
	NormalizeFuelData(&log)
	if log.FuelData.TotalCost != nil {
		t.Fatalf("TotalCost = %v, want nil when neither cost input exists", log.FuelData.TotalCost)
	}
}

func TestSummarize(t *testing.T) {
	log := NewMonthlyLog("2025-06")
	log.Entries = []JobEntry{
		{Distance: fp(60), AmountPaid: fp(1200)},
		{Distance: fp(40)},
	}
	log.Misdemeanors = []Misdemeanor{
		{Fine: fp(500), Resolved: false},
		{Fine: fp(200), Resolved: true},
	}

	s := Summarize(log)
	if s.TotalJobs != 2 || s.PaidJobs != 1 {
		t.Errorf("jobs = %d/%d, want 2/1", s.TotalJobs, s.PaidJobs)
	}
	if s.TotalDistance != 100 {
		t.Errorf("TotalDistance = %v, want 100", s.TotalDistance)
	}
	if s.AmountEarned != 1200 {
		t.Errorf("AmountEarned = %v, want 1200", s.AmountEarned)
	}
	if s.TotalFines != 700 || s.Unresolved != 1 {
		t.Errorf("fines = %v unresolved = %d, want 700/1", s.TotalFines, s.Unresolved)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{1.234, 1.23},
		{1.236, 1.24},
		{-2.344, -2.34},
		{100, 100},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
