package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"lorrylog/internal/core"
)

// handleSites lists water fill sites (GET) or adds one (POST). Adding a
// site retags the month named in the form.
func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderSiteList(w, r)
	case http.MethodPost:
		s.handleAddSite(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) renderSiteList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	sites, err := s.logs.ListWaterFillSites(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Site list error", "error", err)
		_, _ = w.Write([]byte(`<div class="error">Error loading sites</div>`))
		return
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">Sites configured</div>`))
		return
	}
	data := struct {
		Sites []core.WaterFillSite
	}{Sites: sites}
	if err := s.templates.ExecuteTemplate(w, "sites.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "sites.html")
		_, _ = w.Write([]byte(`<div class="error">Error rendering sites</div>`))
	}
}

func (s *Server) handleAddSite(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	site := core.WaterFillSite{Name: sanitizeInput(r.Form.Get("name"))}
	if err := site.Validate(); err != nil {
		UnprocessableEntityError("Site name is required").Write(w)
		return
	}

	if _, err := s.logs.AddWaterFillSite(r.Context(), site, month); err != nil {
		slog.ErrorContext(r.Context(), "Site add error", "error", err, "site", site.Name)
		InternalServerError("Error saving site").Write(w)
		return
	}
	s.invalidateMonth(month)

	NewHTMXResponse().
		TriggerSitesChanged().
		TriggerSummaryRefresh(month).
		BodyHTML(successDiv("Site added: " + template.HTMLEscapeString(site.Name))).
		Write(w)
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	siteID := sanitizeInput(r.Form.Get("site_id"))
	if siteID == "" {
		siteID = sanitizeInput(r.URL.Query().Get("site_id"))
	}
	if siteID == "" {
		BadRequestError("Missing site id").Write(w)
		return
	}

	if _, err := s.logs.DeleteWaterFillSite(r.Context(), siteID, month); err != nil {
		if errors.Is(err, core.ErrWaterFillSiteNotFound) {
			NotFoundError("Site not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Site delete error", "error", err, "site_id", siteID)
		InternalServerError("Error deleting site").Write(w)
		return
	}
	s.invalidateMonth(month)

	NewHTMXResponse().
		TriggerSitesChanged().
		TriggerSummaryRefresh(month).
		BodyHTML(successDiv("Site deleted")).
		Write(w)
}
