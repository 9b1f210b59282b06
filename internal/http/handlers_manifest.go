package http

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"lorrylog/internal/core"
	"lorrylog/internal/services"
)

const maxManifestBytes = 1 << 20 // 1 MiB of pasted CSV is plenty

// manifestText pulls the raw manifest out of the request: either the
// "manifest" textarea or an uploaded "file" part.
func manifestText(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(maxManifestBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return "", err
	}
	if v := r.FormValue("manifest"); v != "" {
		return v, nil
	}
	if r.MultipartForm != nil {
		if f, _, err := r.FormFile("file"); err == nil {
			defer f.Close()
			raw, err := io.ReadAll(io.LimitReader(f, maxManifestBytes))
			if err != nil {
				return "", err
			}
			return string(raw), nil
		}
	}
	return "", nil
}

func (s *Server) handleManifestUpload(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	raw, err := manifestText(r)
	if err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	if raw == "" {
		UnprocessableEntityError("Manifest is empty").Write(w)
		return
	}

	result, skipped, err := s.manifests.Upload(r.Context(), month, raw)
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			UnprocessableEntityError("Manifest rejected: " + verr.Reason).Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Manifest upload error", "error", err, "month", month)
		InternalServerError("Error processing manifest").Write(w)
		return
	}

	resp := NewHTMXResponse().TriggerManifestLoaded(month)
	if skipped > 0 {
		resp.TriggerNotification(NotificationWarning, strconv.Itoa(skipped)+" manifest rows skipped", 5000)
	}
	s.writeComparison(w, r, resp, month, result)
}

func (s *Server) handleManifestCompare(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	result, err := s.manifests.Compare(r.Context(), month)
	if err != nil {
		if errors.Is(err, services.ErrNoManifestSession) {
			NewHTMXResponse().
				BodyHTML(`<div class="placeholder">No manifest uploaded for ` + month + ` yet</div>`).
				Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Manifest compare error", "error", err, "month", month)
		InternalServerError("Error comparing manifest").Write(w)
		return
	}
	s.writeComparison(w, r, NewHTMXResponse(), month, result)
}

func (s *Server) handleManifestAutoFill(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	l, applied, err := s.manifests.AutoFill(r.Context(), month)
	if err != nil {
		if errors.Is(err, services.ErrNoManifestSession) {
			UnprocessableEntityError("Upload a manifest before auto-filling").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Manifest autofill error", "error", err, "month", month)
		InternalServerError("Error auto-filling order numbers").Write(w)
		return
	}
	s.cacheLog(l)

	result, err := s.manifests.Compare(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Post-autofill compare error", "error", err, "month", month)
		InternalServerError("Error comparing manifest").Write(w)
		return
	}

	resp := NewHTMXResponse().
		TriggerEntryUpdated(month).
		TriggerSummaryRefresh(month).
		TriggerSuccessNotification(strconv.Itoa(applied) + " order numbers filled in")
	s.writeComparison(w, r, resp, month, result)
}

func (s *Server) handleManifestClear(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	month := monthParam(r)
	s.manifests.Clear(month)
	NewHTMXResponse().
		BodyHTML(`<div class="placeholder">Manifest session cleared for ` + month + `</div>`).
		Write(w)
}

// writeComparison renders the reconciliation table with the given builder's
// headers and triggers.
func (s *Server) writeComparison(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder, month string, result core.ComparisonResult) {
	type compRow struct {
		OrderNumber   string
		Customer      string
		Earning       string
		EarningRaw    string
		Status        string
		AmountMatches bool
		EntryID       string
	}
	data := struct {
		Month   string
		Matched int
		Missing int
		Extra   int
		Rows    []compRow
	}{
		Month:   month,
		Matched: result.Matched,
		Missing: result.Missing,
		Extra:   result.Extra,
	}
	for _, row := range result.Rows {
		data.Rows = append(data.Rows, compRow{
			OrderNumber:   row.OrderNumber,
			Customer:      row.Customer,
			Earning:       formatKES(row.Earning),
			EarningRaw:    strconv.FormatFloat(row.Earning, 'f', -1, 64),
			Status:        string(row.Status),
			AmountMatches: row.AmountMatches,
			EntryID:       row.EntryID,
		})
	}

	if s.templates == nil {
		resp.BodyHTML(`<div class="placeholder">Matched ` + strconv.Itoa(result.Matched) + `, missing ` + strconv.Itoa(result.Missing) + `, extra ` + strconv.Itoa(result.Extra) + `</div>`).Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "comparison.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "comparison.html", "month", month)
		InternalServerError("Error rendering comparison").Write(w)
		return
	}
	resp.BodyHTML(buf.String()).Write(w)
}
