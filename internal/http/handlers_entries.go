package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"lorrylog/internal/core"
)

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	in := core.EntryInput{
		Start:       sanitizeInput(r.Form.Get("start")),
		End:         sanitizeInput(r.Form.Get("end")),
		OrderNumber: sanitizeInput(r.Form.Get("order_number")),
		Customer:    sanitizeInput(r.Form.Get("customer")),
		IsParking:   r.Form.Get("is_parking") == "on" || r.Form.Get("is_parking") == "true",
		Status:      core.StatusManual,
	}

	var err error
	if in.MileageStart, err = parseOptionalFloat(r.Form.Get("mileage_start")); err != nil {
		UnprocessableEntityError("Invalid start odometer reading").Write(w)
		return
	}
	if in.MileageEnd, err = parseOptionalFloat(r.Form.Get("mileage_end")); err != nil {
		UnprocessableEntityError("Invalid end odometer reading").Write(w)
		return
	}
	if in.AmountPaid, err = parseOptionalFloat(r.Form.Get("amount_paid")); err != nil {
		UnprocessableEntityError("Invalid payout amount").Write(w)
		return
	}
	if in.Date, err = parseDate(r.Form.Get("date")); err != nil {
		UnprocessableEntityError("Invalid date, expected YYYY-MM-DD").Write(w)
		return
	}

	if strings.TrimSpace(in.Start) == "" || strings.TrimSpace(in.End) == "" ||
		in.MileageStart == nil || in.MileageEnd == nil {
		UnprocessableEntityError("Start, end and both odometer readings are required").Write(w)
		return
	}

	l, err := s.logs.AddEntry(r.Context(), month, in)
	if err != nil {
		slog.ErrorContext(r.Context(), "Entry create error", "error", err, "month", month)
		InternalServerError("Error saving entry").Write(w)
		return
	}
	s.cacheLog(l)

	NewHTMXResponse().
		TriggerEntryCreated(month).
		TriggerSummaryRefresh(month).
		TriggerFormReset().
		BodyHTML(successDiv("Job recorded: " + in.Start + " → " + in.End)).
		Write(w)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	entryID := sanitizeInput(r.Form.Get("entry_id"))
	if entryID == "" {
		BadRequestError("Missing entry id").Write(w)
		return
	}

	var patch core.EntryPatch
	var err error
	// Only fields present in the form become part of the patch.
	if _, ok := r.Form["start"]; ok {
		v := sanitizeInput(r.Form.Get("start"))
		patch.Start = &v
	}
	if _, ok := r.Form["end"]; ok {
		v := sanitizeInput(r.Form.Get("end"))
		patch.End = &v
	}
	if _, ok := r.Form["order_number"]; ok {
		v := sanitizeInput(r.Form.Get("order_number"))
		patch.OrderNumber = &v
	}
	if _, ok := r.Form["customer"]; ok {
		v := sanitizeInput(r.Form.Get("customer"))
		patch.Customer = &v
	}
	if _, ok := r.Form["mileage_start"]; ok {
		if patch.MileageStart, err = parseOptionalFloat(r.Form.Get("mileage_start")); err != nil {
			UnprocessableEntityError("Invalid start odometer reading").Write(w)
			return
		}
	}
	if _, ok := r.Form["mileage_end"]; ok {
		if patch.MileageEnd, err = parseOptionalFloat(r.Form.Get("mileage_end")); err != nil {
			UnprocessableEntityError("Invalid end odometer reading").Write(w)
			return
		}
	}
	if _, ok := r.Form["amount_paid"]; ok {
		if patch.AmountPaid, err = parseOptionalFloat(r.Form.Get("amount_paid")); err != nil {
			UnprocessableEntityError("Invalid payout amount").Write(w)
			return
		}
	}
	if _, ok := r.Form["date"]; ok {
		if patch.Date, err = parseDate(r.Form.Get("date")); err != nil {
			UnprocessableEntityError("Invalid date, expected YYYY-MM-DD").Write(w)
			return
		}
	}
	if _, ok := r.Form["is_parking"]; ok {
		v := r.Form.Get("is_parking") == "on" || r.Form.Get("is_parking") == "true"
		patch.IsParking = &v
	}

	l, err := s.logs.UpdateEntry(r.Context(), month, entryID, patch)
	if err != nil {
		if errors.Is(err, core.ErrEntryNotFound) {
			NotFoundError("Entry not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Entry update error", "error", err, "month", month, "entry_id", entryID)
		InternalServerError("Error updating entry").Write(w)
		return
	}
	s.cacheLog(l)

	NewHTMXResponse().
		TriggerEntryUpdated(month).
		TriggerSummaryRefresh(month).
		BodyHTML(successDiv("Entry updated")).
		Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	entryID := sanitizeInput(r.Form.Get("entry_id"))
	if entryID == "" {
		entryID = sanitizeInput(r.URL.Query().Get("entry_id"))
	}
	if entryID == "" {
		BadRequestError("Missing entry id").Write(w)
		return
	}

	l, err := s.logs.DeleteEntry(r.Context(), month, entryID)
	if err != nil {
		if errors.Is(err, core.ErrEntryNotFound) {
			NotFoundError("Entry not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Entry delete error", "error", err, "month", month, "entry_id", entryID)
		InternalServerError("Error deleting entry").Write(w)
		return
	}
	s.cacheLog(l)

	NewHTMXResponse().
		TriggerEntryDeleted(month).
		TriggerSummaryRefresh(month).
		BodyHTML(successDiv("Entry deleted")).
		Write(w)
}

func (s *Server) handleClearEntries(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	l, err := s.logs.ClearEntries(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Entries clear error", "error", err, "month", month)
		InternalServerError("Error clearing entries").Write(w)
		return
	}
	s.cacheLog(l)

	NewHTMXResponse().
		TriggerEntriesCleared(month).
		TriggerSummaryRefresh(month).
		BodyHTML(successDiv("All entries cleared for " + month)).
		Write(w)
}

// handleApproveAmount writes a reconciled manifest earning into an entry's
// payout.
func (s *Server) handleApproveAmount(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	entryID := sanitizeInput(r.Form.Get("entry_id"))
	amount, err := parseOptionalFloat(r.Form.Get("amount"))
	if err != nil || amount == nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}
	if entryID == "" {
		BadRequestError("Missing entry id").Write(w)
		return
	}

	l, err := s.logs.ApproveAmount(r.Context(), month, entryID, *amount)
	if err != nil {
		if errors.Is(err, core.ErrEntryNotFound) {
			NotFoundError("Entry not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Amount approve error", "error", err, "month", month, "entry_id", entryID)
		InternalServerError("Error approving amount").Write(w)
		return
	}
	s.cacheLog(l)

	NewHTMXResponse().
		TriggerEntryUpdated(month).
		TriggerSummaryRefresh(month).
		BodyHTML(successDiv("Amount approved: " + formatKES(*amount))).
		Write(w)
}
