package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"webpoptimizer/internal/assets"
	"webpoptimizer/internal/batch"
	"webpoptimizer/internal/config"
	"webpoptimizer/internal/security"
)

const defaultListLimit = 100

// AttachmentResponse is the JSON view of an attachment.
type AttachmentResponse struct {
	ID         int64     `json:"id"`
	FilePath   string    `json:"file_path"`
	URL        string    `json:"url"`
	MimeType   string    `json:"mime_type"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	ParentID   *int64    `json:"parent_id,omitempty"`
	ReplacedBy *int64    `json:"replaced_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func attachmentResponse(a assets.Attachment) AttachmentResponse {
	resp := AttachmentResponse{
		ID:        a.ID,
		FilePath:  a.FilePath,
		URL:       a.URL(),
		MimeType:  a.MimeType,
		Title:     a.Title,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	}
	if a.ParentID.Valid {
		resp.ParentID = &a.ParentID.Int64
	}
	if a.ReplacedBy.Valid {
		resp.ReplacedBy = &a.ReplacedBy.Int64
	}
	return resp
}

// ListAttachments returns registered attachments. Query parameters: mime
// (repeatable), limit, offset, live=1 to hide replaced attachments.
func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := assets.ListFilter{
		MimeTypes:       q["mime"],
		ExcludeReplaced: q.Get("live") == "1",
		Limit:           defaultListLimit,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	list, err := h.registry.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list attachments", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load attachments")
		return
	}
	out := make([]AttachmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, attachmentResponse(a))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// ConvertRequest selects attachments for the bulk action. No ids means every
// convertible attachment.
type ConvertRequest struct {
	IDs     []int64 `json:"ids"`
	Quality *int    `json:"quality"`
}

// ConvertResponse wraps a bulk report with its counters.
type ConvertResponse struct {
	*batch.Report
	Processed int    `json:"processed"`
	Converted int    `json:"converted"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Summary   string `json:"summary"`
}

// Convert runs the bulk conversion as the authenticated principal.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	req, err := parseConvertRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	quality := h.quality
	if req.Quality != nil {
		quality = config.ClampQuality(*req.Quality)
	}

	principal := security.PrincipalFrom(r.Context())
	var report *batch.Report
	if len(req.IDs) == 0 {
		report, err = h.runner.RunAll(r.Context(), principal, quality)
	} else {
		report, err = h.runner.Run(r.Context(), principal, req.IDs, quality)
	}
	switch {
	case errors.Is(err, security.ErrUnauthorized):
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	case errors.Is(err, batch.ErrBatchRunning):
		h.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.Error("bulk conversion", "error", err)
		h.writeError(w, http.StatusInternalServerError, "bulk conversion failed")
		return
	}

	h.writeJSON(w, http.StatusOK, ConvertResponse{
		Report:    report,
		Processed: report.Processed(),
		Converted: report.Converted(),
		Skipped:   report.Skipped(),
		Failed:    report.Failed(),
		Summary:   report.Summary(),
	})
}

func parseConvertRequest(r *http.Request) (ConvertRequest, error) {
	var req ConvertRequest
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, errors.New("invalid JSON body")
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, errors.New("invalid form body")
	}
	for _, v := range r.Form["ids"] {
		for _, field := range strings.Split(v, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			id, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return req, errors.New("invalid id " + strconv.Quote(field))
			}
			req.IDs = append(req.IDs, id)
		}
	}
	if v := r.Form.Get("quality"); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil {
			return req, errors.New("invalid quality")
		}
		req.Quality = &q
	}
	return req, nil
}

// StatsResponse reports library size and conversion activity.
type StatsResponse struct {
	Attachments int64       `json:"attachments"`
	Last7Days   StatsWindow `json:"last_7_days"`
	Last30Days  StatsWindow `json:"last_30_days"`
}

// StatsWindow is one time window of conversion counters.
type StatsWindow struct {
	Converted    int64 `json:"converted"`
	Failed       int64 `json:"failed"`
	Skipped      int64 `json:"skipped"`
	BytesWritten int64 `json:"bytes_written"`
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	count, err := h.registry.Count(r.Context())
	if err != nil {
		h.logger.Error("count attachments", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	stats, err := h.metrics.GetStats(r.Context())
	if err != nil {
		h.logger.Error("load metrics", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	h.writeJSON(w, http.StatusOK, StatsResponse{
		Attachments: count,
		Last7Days:   StatsWindow(stats.Last7Days),
		Last30Days:  StatsWindow(stats.Last30Days),
	})
}
