package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"lorrylog/internal/core"
)

func (s *Server) handleCreateMisdemeanor(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	m := core.Misdemeanor{
		Type:        sanitizeInput(r.Form.Get("type")),
		Description: sanitizeInput(r.Form.Get("description")),
	}

	date, err := parseDate(r.Form.Get("date"))
	if err != nil {
		UnprocessableEntityError("Invalid date, expected YYYY-MM-DD").Write(w)
		return
	}
	if date != nil {
		m.Date = *date
	} else {
		m.Date = time.Now()
	}
	if m.Fine, err = parseOptionalFloat(r.Form.Get("fine")); err != nil {
		UnprocessableEntityError("Invalid fine amount").Write(w)
		return
	}

	l, err := s.logs.AddMisdemeanor(r.Context(), month, m)
	if err != nil {
		if errors.Is(err, core.ErrUnknownMisdemeanor) {
			UnprocessableEntityError("Unknown incident type").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Misdemeanor create error", "error", err, "month", month, "type", m.Type)
		InternalServerError("Error recording incident").Write(w)
		return
	}
	s.cacheLog(l)

	NewHTMXResponse().
		TriggerMisdemeanorChanged(month).
		TriggerSummaryRefresh(month).
		TriggerFormReset().
		BodyHTML(successDiv("Incident recorded: " + m.Type)).
		Write(w)
}

func (s *Server) handleResolveMisdemeanor(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	id := sanitizeInput(r.Form.Get("misdemeanor_id"))
	if id == "" {
		BadRequestError("Missing misdemeanor id").Write(w)
		return
	}
	resolved := r.Form.Get("resolved") != "false"

	l, err := s.logs.ResolveMisdemeanor(r.Context(), month, id, resolved)
	if err != nil {
		if errors.Is(err, core.ErrMisdemeanorNotFound) {
			NotFoundError("Incident not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Misdemeanor resolve error", "error", err, "month", month, "misdemeanor_id", id)
		InternalServerError("Error updating incident").Write(w)
		return
	}
	s.cacheLog(l)

	msg := "Incident resolved"
	if !resolved {
		msg = "Incident reopened"
	}
	NewHTMXResponse().
		TriggerMisdemeanorChanged(month).
		TriggerSummaryRefresh(month).
		BodyHTML(successDiv(msg)).
		Write(w)
}

func (s *Server) handleDeleteMisdemeanor(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	id := sanitizeInput(r.Form.Get("misdemeanor_id"))
	if id == "" {
		id = sanitizeInput(r.URL.Query().Get("misdemeanor_id"))
	}
	if id == "" {
		BadRequestError("Missing misdemeanor id").Write(w)
		return
	}

	l, err := s.logs.DeleteMisdemeanor(r.Context(), month, id)
	if err != nil {
		if errors.Is(err, core.ErrMisdemeanorNotFound) {
			NotFoundError("Incident not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Misdemeanor delete error", "error", err, "month", month, "misdemeanor_id", id)
		InternalServerError("Error deleting incident").Write(w)
		return
	}
	s.cacheLog(l)

	NewHTMXResponse().
		TriggerMisdemeanorChanged(month).
		TriggerSummaryRefresh(month).
		BodyHTML(successDiv("Incident deleted")).
		Write(w)
}
