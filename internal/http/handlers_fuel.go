package http

import (
	"log/slog"
	"net/http"

	"lorrylog/internal/core"
)

// fuelFormFields maps form names to FuelData pointer fields. Derived fields
// (total cost, net profit, diesel liters used) are recomputed on save and
// deliberately absent.
var fuelFormFields = []string{
	"fuel_cf",
	"diesel_amount",
	"diesel_cost",
	"petrol_amount",
	"petrol_cost",
	"total_liters_used",
	"total_expense",
	"fuel_balance",
	"amount_earned",
	"fuel_consumption_rate",
	"other_costs",
	"monthly_salary",
}

func (s *Server) handleSaveFuel(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)

	// Start from the stored figures so fields missing from the form keep
	// their values.
	current, err := s.logs.GetMonthlyLog(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Fuel load error", "error", err, "month", month)
		InternalServerError("Error loading fuel data").Write(w)
		return
	}
	fd := current.FuelData

	for _, name := range fuelFormFields {
		if _, ok := r.Form[name]; !ok {
			continue
		}
		v, err := parseOptionalFloat(r.Form.Get(name))
		if err != nil {
			UnprocessableEntityError("Invalid value for " + name).Write(w)
			return
		}
		setFuelField(&fd, name, v)
	}

	l, err := s.logs.SaveFuelData(r.Context(), month, fd)
	if err != nil {
		slog.ErrorContext(r.Context(), "Fuel save error", "error", err, "month", month)
		InternalServerError("Error saving fuel data").Write(w)
		return
	}
	s.cacheLog(l)

	NewHTMXResponse().
		TriggerFuelUpdated(month).
		TriggerSummaryRefresh(month).
		BodyHTML(successDiv("Fuel data saved for " + month)).
		Write(w)
}

func setFuelField(fd *core.FuelData, name string, v *float64) {
	switch name {
	case "fuel_cf":
		fd.FuelCf = v
	case "diesel_amount":
		fd.DieselAmount = v
	case "diesel_cost":
		fd.DieselCost = v
	case "petrol_amount":
		fd.PetrolAmount = v
	case "petrol_cost":
		fd.PetrolCost = v
	case "total_liters_used":
		fd.TotalLitersUsed = v
	case "total_expense":
		fd.TotalExpense = v
	case "fuel_balance":
		fd.FuelBalance = v
	case "amount_earned":
		fd.AmountEarned = v
	case "fuel_consumption_rate":
		fd.FuelConsumptionRate = v
	case "other_costs":
		fd.OtherCosts = v
	case "monthly_salary":
		fd.MonthlySalary = v
	}
}

// handleSetMileage records the month's odometer bounds.
func (s *Server) handleSetMileage(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	start, err := parseOptionalFloat(r.Form.Get("start_mileage"))
	if err != nil {
		UnprocessableEntityError("Invalid start mileage").Write(w)
		return
	}
	end, err := parseOptionalFloat(r.Form.Get("end_mileage"))
	if err != nil {
		UnprocessableEntityError("Invalid end mileage").Write(w)
		return
	}
	if start != nil && end != nil && *end < *start {
		UnprocessableEntityError("End mileage must not be below start mileage").Write(w)
		return
	}

	l, err := s.logs.SetMonthMileage(r.Context(), month, start, end)
	if err != nil {
		slog.ErrorContext(r.Context(), "Mileage save error", "error", err, "month", month)
		InternalServerError("Error saving mileage").Write(w)
		return
	}
	s.cacheLog(l)

	NewHTMXResponse().
		TriggerMileageUpdated(month).
		TriggerSummaryRefresh(month).
		BodyHTML(successDiv("Mileage saved for " + month)).
		Write(w)
}
