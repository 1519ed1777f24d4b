package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nexus/internal/catalog/models"
	"nexus/internal/catalog/service"
	"nexus/pkg/domain"
	"nexus/pkg/platform/httputil"
	"nexus/pkg/requestcontext"
)

// Service defines the catalog operations the handler exposes.
type Service interface {
	CreateDepartment(ctx context.Context, params service.CreateDepartmentParams) (*models.Department, error)
	UpdateDepartment(ctx context.Context, departmentID domain.DepartmentID, update models.DepartmentUpdate) (*models.Department, error)
	GetDepartment(ctx context.Context, departmentID domain.DepartmentID) (*models.Department, error)
	ListDepartments(ctx context.Context, includeInactive bool) ([]*models.Department, error)
	CreateService(ctx context.Context, params service.CreateServiceParams) (*models.Service, error)
	UpdateService(ctx context.Context, serviceID domain.ServiceID, update models.ServiceUpdate) (*models.Service, error)
	ListServices(ctx context.Context, departmentID domain.DepartmentID, includeInactive bool) ([]*models.Service, error)
	GetService(ctx context.Context, serviceID domain.ServiceID) (*models.Service, error)
}

// Handler wires catalog endpoints to the catalog service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the citizen-facing catalog reads. Only active entries
// are visible here.
func (h *Handler) Register(r chi.Router) {
	r.Get("/departments", h.HandleListDepartments)
	r.Get("/departments/{departmentID}", h.HandleGetDepartment)
	r.Get("/departments/{departmentID}/services", h.HandleListServices)
	r.Get("/services/{serviceID}", h.HandleGetService)
}

// RegisterAdmin mounts catalog management for admins.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/departments", h.HandleCreateDepartment)
	r.Patch("/departments/{departmentID}", h.HandleUpdateDepartment)
	r.Post("/departments/{departmentID}/services", h.HandleCreateService)
	r.Patch("/services/{serviceID}", h.HandleUpdateService)
}

func (h *Handler) HandleListDepartments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	includeInactive := requestcontext.Role(ctx) == domain.RoleAdmin && r.URL.Query().Get("include_inactive") == "true"
	depts, err := h.service.ListDepartments(ctx, includeInactive)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDepartments(depts))
}

func (h *Handler) HandleGetDepartment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	departmentID, err := domain.ParseDepartmentID(chi.URLParam(r, "departmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	dept, err := h.service.GetDepartment(ctx, departmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDepartment(dept))
}

func (h *Handler) HandleGetService(w http.ResponseWriter, r *http.Request) {
	serviceID, err := domain.ParseServiceID(chi.URLParam(r, "serviceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	svc, err := h.service.GetService(r.Context(), serviceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromService(svc))
}

func (h *Handler) HandleListServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	departmentID, err := domain.ParseDepartmentID(chi.URLParam(r, "departmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	includeInactive := requestcontext.Role(ctx) == domain.RoleAdmin && r.URL.Query().Get("include_inactive") == "true"
	services, err := h.service.ListServices(ctx, departmentID, includeInactive)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromServices(services))
}

func (h *Handler) HandleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateDepartmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	dept, err := h.service.CreateDepartment(ctx, service.CreateDepartmentParams{
		Name:            req.Name,
		Description:     req.Description,
		Code:            req.Code,
		EndpointBaseURL: req.EndpointBaseURL,
		Icon:            req.Icon,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "department creation failed",
			"request_id", requestID,
			"code", req.Code,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "department created",
		"request_id", requestID,
		"department_id", dept.ID,
		"code", dept.Code,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromDepartment(dept))
}

func (h *Handler) HandleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	departmentID, err := domain.ParseDepartmentID(chi.URLParam(r, "departmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateDepartmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	dept, err := h.service.UpdateDepartment(ctx, departmentID, req.ToUpdate())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDepartment(dept))
}

func (h *Handler) HandleCreateService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	departmentID, err := domain.ParseDepartmentID(chi.URLParam(r, "departmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateServiceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	svc, err := h.service.CreateService(ctx, service.CreateServiceParams{
		DepartmentID: departmentID,
		Name:         req.Name,
		Description:  req.Description,
		EndpointPath: req.EndpointPath,
		Method:       req.Method,
		FormSchema:   req.FormSchema,
		Icon:         req.Icon,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "service creation failed",
			"request_id", requestID,
			"department_id", departmentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "service created",
		"request_id", requestID,
		"service_id", svc.ID,
		"department_id", departmentID,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromService(svc))
}

func (h *Handler) HandleUpdateService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	serviceID, err := domain.ParseServiceID(chi.URLParam(r, "serviceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateServiceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	svc, err := h.service.UpdateService(ctx, serviceID, req.ToUpdate())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromService(svc))
}
