package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"nexus/internal/request/models"
	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
	"nexus/pkg/platform/httputil"
	"nexus/pkg/requestcontext"
)

// Service defines the ledger operations the handler exposes.
type Service interface {
	Submit(ctx context.Context, serviceID domain.ServiceID, payload map[string]any) (*models.ServiceRequest, error)
	Decide(ctx context.Context, requestID domain.RequestID, outcome models.Status, remarks string) (*models.ServiceRequest, error)
	ListForCitizen(ctx context.Context) ([]*models.ServiceRequest, error)
	GetForCitizen(ctx context.Context, requestID domain.RequestID) (*models.ServiceRequest, error)
	ListForDepartment(ctx context.Context, status *models.Status) ([]*models.ServiceRequest, error)
	GetForDepartment(ctx context.Context, requestID domain.RequestID) (*models.ServiceRequest, error)
}

// Handler wires ledger endpoints to the request service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the citizen-facing ledger endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/requests", h.HandleSubmit)
	r.Get("/requests", h.HandleListOwn)
	r.Get("/requests/{requestID}", h.HandleGetOwn)
}

// RegisterOfficer mounts the officer queue. Callers must already be
// role-gated to officers.
func (h *Handler) RegisterOfficer(r chi.Router) {
	r.Get("/requests", h.HandleListQueue)
	r.Get("/requests/{requestID}", h.HandleGetQueued)
	r.Post("/requests/{requestID}/decision", h.HandleDecide)
}

// HandleSubmit handles POST /requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, err := h.service.Submit(ctx, req.ParsedServiceID(), req.Payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "submission failed",
			"request_id", requestID,
			"service_id", req.ServiceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "submission handled",
		"request_id", requestID,
		"service_request_id", created.ID,
		"status", created.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRequest(created))
}

// HandleListOwn handles GET /requests.
func (h *Handler) HandleListOwn(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.ListForCitizen(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequests(reqs))
}

// HandleGetOwn handles GET /requests/{requestID}.
func (h *Handler) HandleGetOwn(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := h.service.GetForCitizen(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}

// HandleListQueue handles GET /department/requests with an optional
// status filter.
func (h *Handler) HandleListQueue(w http.ResponseWriter, r *http.Request) {
	var status *models.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		status = &parsed
	}

	reqs, err := h.service.ListForDepartment(r.Context(), status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequests(reqs))
}

// HandleGetQueued handles GET /department/requests/{requestID}.
func (h *Handler) HandleGetQueued(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := h.service.GetForDepartment(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}

// HandleDecide handles POST /department/requests/{requestID}/decision.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[DecideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decided, err := h.service.Decide(ctx, id, req.ParsedStatus(), req.Remarks)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "decision failed",
				"request_id", requestID,
				"service_request_id", id,
				"error", err,
			)
		} else {
			h.logger.WarnContext(ctx, "decision rejected",
				"request_id", requestID,
				"service_request_id", id,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "decision applied",
		"request_id", requestID,
		"service_request_id", decided.ID,
		"decision", decided.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, FromRequest(decided))
}
