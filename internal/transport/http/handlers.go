// Package http provides the health and status HTTP surface.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/driftbyte/fetchtube/internal/cookies"
	"github.com/driftbyte/fetchtube/internal/domain"
	"github.com/driftbyte/fetchtube/internal/infra/sqlite"
	"github.com/driftbyte/fetchtube/internal/service"
)

// HealthResponse is the body returned by the health endpoints.
type HealthResponse struct {
	Status          string `json:"status"`
	ActiveDownloads int    `json:"active_downloads"`
	CookiesPresent  bool   `json:"cookies_present"`
}

// StatsResponse summarizes the download history.
type StatsResponse struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	svc     *service.Service
	cookies *cookies.Manager
	repo    *sqlite.Repository
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *service.Service, cookieMgr *cookies.Manager, repo *sqlite.Repository) *Handlers {
	return &Handlers{
		svc:     svc,
		cookies: cookieMgr,
		repo:    repo,
	}
}

// HealthHandler handles GET / and GET /health requests.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &HealthResponse{
		Status:          "ok",
		ActiveDownloads: h.svc.ActiveDownloads(),
		CookiesPresent:  h.cookies.Exists(),
	})
}

// StatsHandler handles GET /stats requests.
func (h *Handlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.repo.Count(ctx)
	if err != nil {
		slog.Error("Failed to count downloads", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL")
		return
	}

	resp := &StatsResponse{Total: total}
	for status, dst := range map[domain.RecordStatus]*int{
		domain.RecordSucceeded: &resp.Succeeded,
		domain.RecordFailed:    &resp.Failed,
		domain.RecordCancelled: &resp.Cancelled,
	} {
		n, err := h.repo.CountByStatus(ctx, status)
		if err != nil {
			slog.Error("Failed to count downloads", "error", err, "status", status)
			writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL")
			return
		}
		*dst = n
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, &map[string]string{
		"error": message,
		"code":  code,
	})
}
