package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nexus/internal/stats/service"
	"nexus/pkg/platform/httputil"
)

// Service defines the aggregate queries the handler exposes.
type Service interface {
	ForDepartment(ctx context.Context) (*service.DepartmentSummary, error)
	Global(ctx context.Context) (*service.GlobalSummary, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterOfficer mounts the department dashboard endpoint. Callers must
// already be role-gated to officers.
func (h *Handler) RegisterOfficer(r chi.Router) {
	r.Get("/stats", h.HandleDepartmentStats)
}

// RegisterAdmin mounts the platform-wide dashboard endpoint.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/stats", h.HandleGlobalStats)
}

// HandleDepartmentStats handles GET /department/stats.
func (h *Handler) HandleDepartmentStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.ForDepartment(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDepartmentSummary(summary))
}

// HandleGlobalStats handles GET /admin/stats.
func (h *Handler) HandleGlobalStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Global(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromGlobalSummary(summary))
}
