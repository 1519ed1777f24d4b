// Package delegation forwards citizen requests to department services
// and notifies them of officer decisions. Departments are unreliable by
// assumption: every outbound call gets one attempt under a bounded
// timeout, and failures degrade to local state instead of surfacing.
package delegation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	department "nexus/contracts/department"
	"nexus/internal/delegation/metrics"
	"nexus/internal/delegation/servicetoken"
	"nexus/pkg/domain"
	"nexus/pkg/platform/audit"
	"nexus/pkg/platform/circuit"
	"nexus/pkg/requestcontext"
)

// maxResponseBytes bounds how much of a department response we read.
const maxResponseBytes = 1 << 20

// Target identifies where a delegated call goes. It is built from a
// catalog snapshot, never from live catalog state.
type Target struct {
	DepartmentCode domain.DepartmentCode
	BaseURL        string
	Path           string
	Method         string
}

// SubmitParams carries one citizen submission to forward.
type SubmitParams struct {
	Target       Target
	RequestID    domain.RequestID
	ServiceID    domain.ServiceID
	ServiceName  string
	CitizenID    domain.UserID
	CitizenName  string
	CitizenEmail string
	// CitizenToken is the citizen's own bearer credential, passed
	// through so the department can attribute the request.
	CitizenToken string
	Payload      map[string]any
}

// NotifyParams carries one decision notification.
type NotifyParams struct {
	Target      Target
	RequestID   domain.RequestID
	Status      string
	Remarks     string
	ProcessedBy domain.UserID
}

// Outcome is the result of a delegated call. Applied means the
// department answered; everything else, timeouts and garbage included,
// is Unreachable and carries no fields.
type Outcome struct {
	Applied      bool
	Status       string
	Remarks      string
	ResponseData map[string]any
}

// Unreachable is the zero outcome.
func Unreachable() Outcome { return Outcome{} }

// Client performs outbound calls to departments.
type Client struct {
	httpClient *http.Client
	minter     *servicetoken.Minter
	timeout    time.Duration
	audit      *audit.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer

	mu       sync.Mutex
	breakers map[domain.DepartmentCode]*circuit.Breaker
}

func NewClient(minter *servicetoken.Minter, timeout time.Duration, auditPublisher *audit.Publisher, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		minter:     minter,
		timeout:    timeout,
		audit:      auditPublisher,
		logger:     logger,
		tracer:     otel.Tracer("nexus/delegation"),
		breakers:   make(map[domain.DepartmentCode]*circuit.Breaker),
	}
}

// Submit forwards a citizen submission to the owning department. It
// never returns an error: an unreachable department yields an
// unapplied outcome and the request stays pending locally.
func (c *Client) Submit(ctx context.Context, params SubmitParams) Outcome {
	ctx, span := c.tracer.Start(ctx, "delegation.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("department.code", string(params.Target.DepartmentCode)),
			attribute.String("request.id", params.RequestID.String()),
		),
	)
	defer span.End()

	dept := params.Target.DepartmentCode
	if !c.breaker(dept).Allow() {
		span.SetStatus(codes.Error, "circuit open")
		c.logger.WarnContext(ctx, "delegation skipped - circuit open",
			"department", dept,
			"request_id", params.RequestID,
		)
		c.emitUnreachable(ctx, params.RequestID, dept, "circuit open")
		return Unreachable()
	}

	body := department.SubmitPayload{
		RequestID:    params.RequestID.String(),
		ServiceID:    params.ServiceID.String(),
		ServiceName:  params.ServiceName,
		CitizenID:    params.CitizenID.String(),
		CitizenName:  params.CitizenName,
		CitizenEmail: params.CitizenEmail,
		Data:         params.Payload,
	}

	method := params.Target.Method
	if method == "" {
		method = http.MethodPost
	}
	url := params.Target.BaseURL + params.Target.Path

	start := time.Now()
	respBody, ok := c.call(ctx, call{
		method:       method,
		url:          url,
		department:   dept,
		requestID:    params.RequestID,
		citizenID:    params.CitizenID.String(),
		citizenToken: params.CitizenToken,
		body:         body,
	})
	metrics.DelegationDurationMs.WithLabelValues(string(dept)).
		Observe(float64(time.Since(start).Microseconds()) / 1000.0)

	if !ok {
		span.SetStatus(codes.Error, "department unreachable")
		c.recordFailure(dept)
		metrics.DelegationsTotal.WithLabelValues(string(dept), "unreachable").Inc()
		c.emitUnreachable(ctx, params.RequestID, dept, "submit call failed")
		return Unreachable()
	}

	var parsed department.SubmitResponse
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			// A response we cannot read is no better than no response.
			span.SetStatus(codes.Error, "malformed department response")
			c.recordFailure(dept)
			metrics.DelegationsTotal.WithLabelValues(string(dept), "unreachable").Inc()
			c.logger.WarnContext(ctx, "department returned malformed body",
				"department", dept,
				"request_id", params.RequestID,
				"error", err,
			)
			c.emitUnreachable(ctx, params.RequestID, dept, "malformed response body")
			return Unreachable()
		}
	}

	c.recordSuccess(dept)
	metrics.DelegationsTotal.WithLabelValues(string(dept), "applied").Inc()
	c.audit.Emit(ctx, audit.Event{
		Action:           string(audit.EventRequestDelegated),
		UserID:           params.CitizenID,
		ServiceRequestID: params.RequestID,
		Department:       string(dept),
		RequestID:        requestcontext.RequestID(ctx),
	})
	return Outcome{
		Applied:      true,
		Status:       strings.ToUpper(strings.TrimSpace(parsed.Status)),
		Remarks:      parsed.Remarks,
		ResponseData: parsed.ResponseData,
	}
}

// NotifyDecision tells the department about an officer decision. Best
// effort: the returned flag is informational and the ledger transition
// it follows has already been committed.
func (c *Client) NotifyDecision(ctx context.Context, params NotifyParams) bool {
	ctx, span := c.tracer.Start(ctx, "delegation.notify",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("department.code", string(params.Target.DepartmentCode)),
			attribute.String("request.id", params.RequestID.String()),
		),
	)
	defer span.End()

	dept := params.Target.DepartmentCode
	if !c.breaker(dept).Allow() {
		span.SetStatus(codes.Error, "circuit open")
		c.emitNotifyFailed(ctx, params, "circuit open")
		return false
	}

	body := department.StatusUpdatePayload{
		RequestID:   params.RequestID.String(),
		Status:      params.Status,
		Remarks:     params.Remarks,
		ProcessedBy: params.ProcessedBy.String(),
	}

	_, ok := c.call(ctx, call{
		method:     http.MethodPost,
		url:        params.Target.BaseURL + department.NotifyPath,
		department: dept,
		requestID:  params.RequestID,
		body:       body,
	})
	if !ok {
		span.SetStatus(codes.Error, "department unreachable")
		c.recordFailure(dept)
		metrics.NotificationsTotal.WithLabelValues(string(dept), "failed").Inc()
		c.emitNotifyFailed(ctx, params, "notify call failed")
		return false
	}

	c.recordSuccess(dept)
	metrics.NotificationsTotal.WithLabelValues(string(dept), "delivered").Inc()
	c.audit.Emit(ctx, audit.Event{
		Action:           string(audit.EventDepartmentNotified),
		UserID:           params.ProcessedBy,
		ServiceRequestID: params.RequestID,
		Department:       string(dept),
		Decision:         params.Status,
		RequestID:        requestcontext.RequestID(ctx),
	})
	return true
}

type call struct {
	method       string
	url          string
	department   domain.DepartmentCode
	requestID    domain.RequestID
	citizenID    string
	citizenToken string
	body         any
}

// call performs one HTTP attempt. It returns the response body and
// whether the department answered with a success status.
func (c *Client) call(ctx context.Context, p call) ([]byte, bool) {
	payload, err := json.Marshal(p.body)
	if err != nil {
		c.logger.ErrorContext(ctx, "delegation payload marshal failed", "error", err)
		return nil, false
	}

	serviceToken, err := c.minter.Mint(p.department, []string{servicetoken.ScopeForwardRequest})
	if err != nil {
		c.logger.ErrorContext(ctx, "service credential mint failed",
			"department", p.department,
			"error", err,
		)
		return nil, false
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, p.method, p.url, bytes.NewReader(payload))
	if err != nil {
		c.logger.ErrorContext(ctx, "delegation request build failed", "url", p.url, "error", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+serviceToken)
	req.Header.Set(department.HeaderRequestID, p.requestID.String())
	if p.citizenToken != "" {
		req.Header.Set(department.HeaderCitizenToken, p.citizenToken)
	}
	if p.citizenID != "" {
		req.Header.Set(department.HeaderCitizenID, p.citizenID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "department call failed",
			"department", p.department,
			"url", p.url,
			"error", err,
		)
		return nil, false
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.WarnContext(ctx, "department response read failed",
			"department", p.department,
			"error", err,
		)
		return nil, false
	}

	// A department that answers with an error status has not processed
	// the call. Treat it like an outage and let local state stand.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "department returned error status",
			"department", p.department,
			"url", p.url,
			"status", resp.StatusCode,
		)
		return nil, false
	}
	return respBody, true
}

func (c *Client) breaker(dept domain.DepartmentCode) *circuit.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[dept]
	if !ok {
		b = circuit.New(string(dept),
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(30*time.Second),
		)
		c.breakers[dept] = b
	}
	return b
}

func (c *Client) recordFailure(dept domain.DepartmentCode) {
	if _, change := c.breaker(dept).RecordFailure(); change.Opened {
		metrics.BreakerTransitionsTotal.WithLabelValues(string(dept), "opened").Inc()
		c.logger.Warn("delegation circuit opened", "department", dept)
	}
}

func (c *Client) recordSuccess(dept domain.DepartmentCode) {
	if _, change := c.breaker(dept).RecordSuccess(); change.Closed {
		metrics.BreakerTransitionsTotal.WithLabelValues(string(dept), "closed").Inc()
		c.logger.Info("delegation circuit closed", "department", dept)
	}
}

func (c *Client) emitUnreachable(ctx context.Context, requestID domain.RequestID, dept domain.DepartmentCode, reason string) {
	c.audit.Emit(ctx, audit.Event{
		Action:           string(audit.EventDelegationUnreachable),
		ServiceRequestID: requestID,
		Department:       string(dept),
		Reason:           reason,
		RequestID:        requestcontext.RequestID(ctx),
	})
}

func (c *Client) emitNotifyFailed(ctx context.Context, params NotifyParams, reason string) {
	c.audit.Emit(ctx, audit.Event{
		Action:           string(audit.EventNotifyFailed),
		UserID:           params.ProcessedBy,
		ServiceRequestID: params.RequestID,
		Department:       string(params.Target.DepartmentCode),
		Decision:         params.Status,
		Reason:           reason,
		RequestID:        requestcontext.RequestID(ctx),
	})
}
