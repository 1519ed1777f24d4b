// Package service implements the submission and decision orchestrators
// for the request ledger.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	authmodels "nexus/internal/auth/models"
	catalogmodels "nexus/internal/catalog/models"
	catalogservice "nexus/internal/catalog/service"
	"nexus/internal/delegation"
	"nexus/internal/request/metrics"
	"nexus/internal/request/models"
	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
	"nexus/pkg/platform/audit"
	"nexus/pkg/platform/sentinel"
	"nexus/pkg/requestcontext"
)

// Store persists ledger entries.
type Store interface {
	Create(ctx context.Context, req *models.ServiceRequest) error
	Update(ctx context.Context, req *models.ServiceRequest) error
	Get(ctx context.Context, id domain.RequestID) (*models.ServiceRequest, error)
	ListByCitizen(ctx context.Context, citizenID domain.UserID) ([]*models.ServiceRequest, error)
	ListByDepartment(ctx context.Context, departmentID domain.DepartmentID, status *models.Status) ([]*models.ServiceRequest, error)
}

// Catalog resolves services and departments. Snapshots are taken
// per-operation; the pipeline never caches catalog state.
type Catalog interface {
	Snapshot(ctx context.Context, serviceID domain.ServiceID) (*catalogservice.Snapshot, error)
	GetDepartment(ctx context.Context, departmentID domain.DepartmentID) (*catalogmodels.Department, error)
}

// Delegator performs the outbound department calls.
type Delegator interface {
	Submit(ctx context.Context, params delegation.SubmitParams) delegation.Outcome
	NotifyDecision(ctx context.Context, params delegation.NotifyParams) bool
}

// UserDirectory resolves user accounts; the auth stores satisfy it.
type UserDirectory interface {
	GetByID(ctx context.Context, id domain.UserID) (*authmodels.User, error)
}

type Service struct {
	store     Store
	catalog   Catalog
	delegator Delegator
	users     UserDirectory
	audit     *audit.Publisher
	tx        Tx
	logger    *slog.Logger
}

func New(
	store Store,
	catalog Catalog,
	delegator Delegator,
	users UserDirectory,
	auditPublisher *audit.Publisher,
	txRunner Tx,
	logger *slog.Logger,
) *Service {
	if txRunner == nil {
		txRunner = passthroughTx{}
	}
	return &Service{
		store:     store,
		catalog:   catalog,
		delegator: delegator,
		users:     users,
		audit:     auditPublisher,
		tx:        txRunner,
		logger:    logger,
	}
}

// Submit records a citizen request and forwards it to the owning
// department. The entry is durable in PENDING before the outbound call
// is attempted; whatever the department answered synchronously is
// folded in before returning. An unreachable department is invisible
// to the citizen beyond the request staying PENDING.
func (s *Service) Submit(ctx context.Context, serviceID domain.ServiceID, payload map[string]any) (*models.ServiceRequest, error) {
	start := time.Now()
	citizenID := requestcontext.UserID(ctx)
	if citizenID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	snap, err := s.catalog.Snapshot(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if err := snap.Service.ValidatePayload(payload); err != nil {
		return nil, err
	}

	citizen, err := s.users.GetByID(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load citizen")
	}

	req := models.NewServiceRequest(citizenID, snap.Service.ID, snap.Department.ID,
		payload, requestcontext.Now(ctx))
	// The ledger entry and its outbox record commit as one unit; a
	// failed audit write rolls the entry back rather than vanishing.
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, req); err != nil {
			return err
		}
		return s.audit.Record(txCtx, audit.Event{
			Action:           string(audit.EventRequestSubmitted),
			UserID:           citizenID,
			ServiceRequestID: req.ID,
			Department:       string(snap.Department.Code),
			RequestID:        requestcontext.RequestID(ctx),
		})
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record request")
	}

	outcome := s.delegator.Submit(ctx, delegation.SubmitParams{
		Target: delegation.Target{
			DepartmentCode: snap.Department.Code,
			BaseURL:        snap.Department.EndpointBaseURL,
			Path:           snap.Service.EndpointPath,
			Method:         snap.Service.Method,
		},
		RequestID:    req.ID,
		ServiceID:    snap.Service.ID,
		ServiceName:  snap.Service.Name,
		CitizenID:    citizenID,
		CitizenName:  citizen.FullName,
		CitizenEmail: citizen.Email,
		CitizenToken: requestcontext.BearerToken(ctx),
		Payload:      payload,
	})

	if outcome.Applied {
		result := models.DelegationResult{
			Remarks:      outcome.Remarks,
			ResponseData: outcome.ResponseData,
		}
		if outcome.Status != "" {
			status, err := models.ParseStatus(outcome.Status)
			if err != nil {
				// The department answered something we do not speak.
				// The request is durable; leave it pending.
				s.logger.WarnContext(ctx, "department declared unknown status",
					"request_id", requestcontext.RequestID(ctx),
					"service_request_id", req.ID,
					"declared_status", outcome.Status,
				)
				status = ""
			}
			result.Status = status
		}
		if result.Status != "" || result.Remarks != "" || result.ResponseData != nil {
			if err := req.ApplyDelegationResult(result, requestcontext.Now(ctx)); err == nil {
				if err := s.store.Update(ctx, req); err != nil {
					// The PENDING entry is already durable; losing the
					// synchronous enrichment is recoverable via polling.
					s.logger.ErrorContext(ctx, "failed to persist delegation result",
						"service_request_id", req.ID,
						"error", err,
					)
				}
			}
		}
	}

	metrics.SubmissionsTotal.WithLabelValues(string(snap.Department.Code), string(req.Status)).Inc()
	metrics.SubmissionDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)

	s.logger.InfoContext(ctx, "request submitted",
		"request_id", requestcontext.RequestID(ctx),
		"service_request_id", req.ID,
		"department", snap.Department.Code,
		"status", req.Status,
		"delegation_applied", outcome.Applied,
	)
	return req, nil
}

// Decide applies an officer's terminal decision and notifies the
// department best-effort. The local transition is authoritative whether
// or not the department acknowledges it.
func (s *Service) Decide(ctx context.Context, requestID domain.RequestID, outcome models.Status, remarks string) (*models.ServiceRequest, error) {
	officerID := requestcontext.UserID(ctx)
	officerDept := requestcontext.DepartmentID(ctx)
	if officerID.IsNil() || officerDept.IsNil() {
		return nil, dErrors.New(dErrors.CodeForbidden, "officer department scope required")
	}

	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load request")
	}

	// Scope check precedes everything else: an officer of another
	// department learns nothing beyond the request's existence.
	if req.DepartmentID != officerDept {
		return nil, dErrors.New(dErrors.CodeForbidden, "request belongs to a different department")
	}

	if err := req.Decide(officerID, outcome, remarks, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}

	action := audit.EventRequestAccepted
	if outcome == models.StatusRejected {
		action = audit.EventRequestRejected
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Update(txCtx, req); err != nil {
			return err
		}
		return s.audit.Record(txCtx, audit.Event{
			Action:           string(action),
			UserID:           officerID,
			ServiceRequestID: req.ID,
			Decision:         string(outcome),
			Reason:           req.OfficerRemarks,
			RequestID:        requestcontext.RequestID(ctx),
		})
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist decision")
	}
	metrics.DecisionsTotal.WithLabelValues(officerDept.String(), string(outcome)).Inc()

	s.notifyDepartment(ctx, req)
	return req, nil
}

// notifyDepartment is a best-effort side effect of a decision. A
// disabled department is skipped outright.
func (s *Service) notifyDepartment(ctx context.Context, req *models.ServiceRequest) {
	dept, err := s.catalog.GetDepartment(ctx, req.DepartmentID)
	if err != nil {
		s.logger.WarnContext(ctx, "decision notify skipped - department lookup failed",
			"service_request_id", req.ID,
			"error", err,
		)
		return
	}
	if !dept.IsActive {
		s.logger.InfoContext(ctx, "decision notify skipped - department disabled",
			"service_request_id", req.ID,
			"department", dept.Code,
		)
		return
	}

	var officer domain.UserID
	if req.ProcessedBy != nil {
		officer = *req.ProcessedBy
	}
	s.delegator.NotifyDecision(ctx, delegation.NotifyParams{
		Target: delegation.Target{
			DepartmentCode: dept.Code,
			BaseURL:        dept.EndpointBaseURL,
		},
		RequestID:   req.ID,
		Status:      string(req.Status),
		Remarks:     req.OfficerRemarks,
		ProcessedBy: officer,
	})
}

// ListForCitizen returns the caller's own requests, newest first.
func (s *Service) ListForCitizen(ctx context.Context) ([]*models.ServiceRequest, error) {
	citizenID := requestcontext.UserID(ctx)
	if citizenID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	reqs, err := s.store.ListByCitizen(ctx, citizenID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requests")
	}
	return reqs, nil
}

// GetForCitizen returns one of the caller's requests. Requests owned by
// others are indistinguishable from missing ones.
func (s *Service) GetForCitizen(ctx context.Context, requestID domain.RequestID) (*models.ServiceRequest, error) {
	citizenID := requestcontext.UserID(ctx)
	if citizenID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load request")
	}
	if req.CitizenID != citizenID {
		return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
	}
	return req, nil
}

// ListForDepartment returns the officer's department queue, optionally
// filtered by status.
func (s *Service) ListForDepartment(ctx context.Context, status *models.Status) ([]*models.ServiceRequest, error) {
	officerDept := requestcontext.DepartmentID(ctx)
	if officerDept.IsNil() {
		return nil, dErrors.New(dErrors.CodeForbidden, "officer department scope required")
	}
	reqs, err := s.store.ListByDepartment(ctx, officerDept, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requests")
	}
	return reqs, nil
}

// GetForDepartment returns one request in the officer's department.
func (s *Service) GetForDepartment(ctx context.Context, requestID domain.RequestID) (*models.ServiceRequest, error) {
	officerDept := requestcontext.DepartmentID(ctx)
	if officerDept.IsNil() {
		return nil, dErrors.New(dErrors.CodeForbidden, "officer department scope required")
	}
	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load request")
	}
	if req.DepartmentID != officerDept {
		return nil, dErrors.New(dErrors.CodeForbidden, "request belongs to a different department")
	}
	return req, nil
}
