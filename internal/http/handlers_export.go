package http

import (
	"log/slog"
	"net/http"

	"lorrylog/internal/core"
	"lorrylog/internal/report"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	l, err := s.getLog(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "CSV export error", "error", err, "month", month)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+core.CSVFilename(month)+`"`)
	_, _ = w.Write([]byte(core.ExportCSV(l)))
}

// handleExportTSV serves the tab-separated paste block, formulas included,
// for pasting straight into a spreadsheet.
func (s *Server) handleExportTSV(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	l, err := s.getLog(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "TSV export error", "error", err, "month", month)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+core.TSVFilename(month)+`"`)
	_, _ = w.Write([]byte(core.ExportPaste(l)))
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	l, err := s.getLog(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "XLSX export error", "error", err, "month", month)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+core.XLSXFilename(month)+`"`)
	if err := report.WriteXLSX(w, l); err != nil {
		slog.ErrorContext(r.Context(), "XLSX build error", "error", err, "month", month)
	}
}
