package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmodels "nexus/internal/auth/models"
	authmemory "nexus/internal/auth/store/memory"
	catalogmodels "nexus/internal/catalog/models"
	catalogservice "nexus/internal/catalog/service"
	catalogmemory "nexus/internal/catalog/store/memory"
	"nexus/internal/delegation"
	"nexus/internal/request/models"
	"nexus/internal/request/store/memory"
	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
	"nexus/pkg/platform/audit"
	auditmemory "nexus/pkg/platform/audit/store/memory"
	"nexus/pkg/requestcontext"
)

// stubDelegator records calls and returns a scripted outcome.
type stubDelegator struct {
	outcome       delegation.Outcome
	submitCalls   []delegation.SubmitParams
	notifyCalls   []delegation.NotifyParams
	onSubmit      func(delegation.SubmitParams)
	notifyOutcome bool
}

func (d *stubDelegator) Submit(_ context.Context, params delegation.SubmitParams) delegation.Outcome {
	d.submitCalls = append(d.submitCalls, params)
	if d.onSubmit != nil {
		d.onSubmit(params)
	}
	return d.outcome
}

func (d *stubDelegator) NotifyDecision(_ context.Context, params delegation.NotifyParams) bool {
	d.notifyCalls = append(d.notifyCalls, params)
	return d.notifyOutcome
}

type fixture struct {
	service   *Service
	store     *memory.Store
	catalog   *catalogservice.Service
	delegator *stubDelegator
	users     *authmemory.Store
	citizen   *authmodels.User
	dept      *catalogmodels.Department
	svc       *catalogmodels.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithAudit(t, auditmemory.NewStore())
}

func newFixtureWithAudit(t *testing.T, auditStore audit.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := audit.NewPublisher(auditStore, logger)

	catalog := catalogservice.New(catalogmemory.NewStore(), publisher, logger)
	dept, err := catalog.CreateDepartment(ctx, catalogservice.CreateDepartmentParams{
		Name:            "Transport",
		Code:            "TRANSPORT",
		EndpointBaseURL: "http://transport:9101",
	})
	require.NoError(t, err)
	svc, err := catalog.CreateService(ctx, catalogservice.CreateServiceParams{
		DepartmentID: dept.ID,
		Name:         "Vehicle Registration",
		EndpointPath: "/register-vehicle",
		Method:       "POST",
		FormSchema: []catalogmodels.FormField{
			{FieldName: "plate", FieldType: "text", Required: true},
		},
	})
	require.NoError(t, err)

	users := authmemory.NewStore()
	citizen, err := authmodels.NewUser("ada@example.com", "hash", "Ada Lovelace",
		domain.RoleCitizen, nil, requestcontext.Now(ctx))
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, citizen))

	store := memory.NewStore()
	delegator := &stubDelegator{}
	return &fixture{
		service:   New(store, catalog, delegator, users, publisher, nil, logger),
		store:     store,
		catalog:   catalog,
		delegator: delegator,
		users:     users,
		citizen:   citizen,
		dept:      dept,
		svc:       svc,
	}
}

func (f *fixture) citizenCtx() context.Context {
	ctx := requestcontext.WithUserID(context.Background(), f.citizen.ID)
	ctx = requestcontext.WithRole(ctx, domain.RoleCitizen)
	return requestcontext.WithBearerToken(ctx, "citizen-token")
}

func (f *fixture) officerCtx(dept domain.DepartmentID) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), domain.NewUserID())
	ctx = requestcontext.WithRole(ctx, domain.RoleOfficer)
	return requestcontext.WithDepartmentID(ctx, dept)
}

func TestSubmitPersistsPendingBeforeDelegation(t *testing.T) {
	f := newFixture(t)

	var statusAtCallTime models.Status
	f.delegator.onSubmit = func(params delegation.SubmitParams) {
		stored, err := f.store.Get(context.Background(), params.RequestID)
		require.NoError(t, err)
		statusAtCallTime = stored.Status
	}

	req, err := f.service.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"plate": "ABC-123"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, statusAtCallTime,
		"entry must be durable in PENDING before the outbound call")
	assert.Equal(t, models.StatusPending, req.Status)
}

func TestSubmitCarriesCitizenAndCatalogData(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"plate": "ABC-123"})
	require.NoError(t, err)

	require.Len(t, f.delegator.submitCalls, 1)
	call := f.delegator.submitCalls[0]
	assert.Equal(t, domain.DepartmentCode("TRANSPORT"), call.Target.DepartmentCode)
	assert.Equal(t, "http://transport:9101", call.Target.BaseURL)
	assert.Equal(t, "/register-vehicle", call.Target.Path)
	assert.Equal(t, "Vehicle Registration", call.ServiceName)
	assert.Equal(t, "Ada Lovelace", call.CitizenName)
	assert.Equal(t, "ada@example.com", call.CitizenEmail)
	assert.Equal(t, "citizen-token", call.CitizenToken)
}

func TestSubmitUnreachableStaysPending(t *testing.T) {
	f := newFixture(t)
	f.delegator.outcome = delegation.Unreachable()

	req, err := f.service.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"plate": "ABC-123"})
	require.NoError(t, err, "unreachable departments never fail the citizen")
	assert.Equal(t, models.StatusPending, req.Status)

	stored, err := f.store.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestSubmitAppliesSynchronousDecision(t *testing.T) {
	f := newFixture(t)
	f.delegator.outcome = delegation.Outcome{
		Applied: true,
		Status:  "ACCEPTED",
		Remarks: "ok",
	}

	req, err := f.service.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"plate": "ABC-123"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, req.Status)
	assert.Equal(t, "ok", req.OfficerRemarks)

	stored, err := f.store.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)
	assert.Equal(t, "ok", stored.OfficerRemarks)
}

func TestSubmitAppliesProcessingWithResponseData(t *testing.T) {
	f := newFixture(t)
	f.delegator.outcome = delegation.Outcome{
		Applied:      true,
		Status:       "PROCESSING",
		ResponseData: map[string]any{"reference": "TR-42"},
	}

	req, err := f.service.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"plate": "ABC-123"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, req.Status)
	assert.Equal(t, "TR-42", req.ResponseData["reference"])
}

func TestSubmitUnknownDeclaredStatusStaysPending(t *testing.T) {
	f := newFixture(t)
	f.delegator.outcome = delegation.Outcome{Applied: true, Status: "DONE"}

	req, err := f.service.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"plate": "ABC-123"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)
}

func TestSubmitMissingRequiredField(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"color": "red"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Empty(t, f.delegator.submitCalls, "invalid submissions never leave the gateway")
}

func TestSubmitInactiveServiceIsNotFound(t *testing.T) {
	f := newFixture(t)
	inactive := false
	_, err := f.catalog.UpdateService(context.Background(), f.svc.ID, catalogmodels.ServiceUpdate{IsActive: &inactive})
	require.NoError(t, err)

	_, err = f.service.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"plate": "ABC-123"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.Empty(t, f.delegator.submitCalls)
}

func TestSubmitInactiveDepartmentIsNotFound(t *testing.T) {
	f := newFixture(t)
	inactive := false
	_, err := f.catalog.UpdateDepartment(context.Background(), f.dept.ID, catalogmodels.DepartmentUpdate{IsActive: &inactive})
	require.NoError(t, err)

	_, err = f.service.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"plate": "ABC-123"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func submitPending(t *testing.T, f *fixture) *models.ServiceRequest {
	t.Helper()
	req, err := f.service.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"plate": "ABC-123"})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, req.Status)
	return req
}

func TestDecideAccept(t *testing.T) {
	f := newFixture(t)
	req := submitPending(t, f)

	decided, err := f.service.Decide(f.officerCtx(f.dept.ID), req.ID, models.StatusAccepted, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, decided.Status)
	require.NotNil(t, decided.ProcessedBy)
	require.NotNil(t, decided.ProcessedAt)

	require.Len(t, f.delegator.notifyCalls, 1)
	notify := f.delegator.notifyCalls[0]
	assert.Equal(t, req.ID, notify.RequestID)
	assert.Equal(t, "ACCEPTED", notify.Status)
	assert.Equal(t, *decided.ProcessedBy, notify.ProcessedBy)
}

func TestDecideWrongDepartment(t *testing.T) {
	f := newFixture(t)
	req := submitPending(t, f)

	otherDept, err := f.catalog.CreateDepartment(context.Background(), catalogservice.CreateDepartmentParams{
		Name:            "Health",
		Code:            "HEALTH",
		EndpointBaseURL: "http://health:9102",
	})
	require.NoError(t, err)

	_, err = f.service.Decide(f.officerCtx(otherDept.ID), req.ID, models.StatusAccepted, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	stored, err := f.store.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status, "failed decision must not mutate")
	assert.Empty(t, f.delegator.notifyCalls)
}

func TestDecideRejectWithoutRemarks(t *testing.T) {
	f := newFixture(t)
	req := submitPending(t, f)

	_, err := f.service.Decide(f.officerCtx(f.dept.ID), req.ID, models.StatusRejected, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	stored, err := f.store.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Empty(t, f.delegator.notifyCalls, "no notification before a valid mutation")
}

func TestDecideTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	req := submitPending(t, f)
	officerCtx := f.officerCtx(f.dept.ID)

	_, err := f.service.Decide(officerCtx, req.ID, models.StatusAccepted, "")
	require.NoError(t, err)

	_, err = f.service.Decide(officerCtx, req.ID, models.StatusRejected, "changed my mind")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	stored, err := f.store.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)
	assert.Len(t, f.delegator.notifyCalls, 1, "only the first decision notifies")
}

func TestDecideUnknownRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Decide(f.officerCtx(f.dept.ID), domain.NewRequestID(), models.StatusAccepted, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDecideNotifySkippedForDisabledDepartment(t *testing.T) {
	f := newFixture(t)
	req := submitPending(t, f)

	inactive := false
	_, err := f.catalog.UpdateDepartment(context.Background(), f.dept.ID, catalogmodels.DepartmentUpdate{IsActive: &inactive})
	require.NoError(t, err)

	decided, err := f.service.Decide(f.officerCtx(f.dept.ID), req.ID, models.StatusAccepted, "")
	require.NoError(t, err, "the decision itself still applies")
	assert.Equal(t, models.StatusAccepted, decided.Status)
	assert.Empty(t, f.delegator.notifyCalls, "disabled departments get no delegation traffic")
}

func TestCitizenReads(t *testing.T) {
	f := newFixture(t)
	req := submitPending(t, f)

	listed, err := f.service.ListForCitizen(f.citizenCtx())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, req.ID, listed[0].ID)

	got, err := f.service.GetForCitizen(f.citizenCtx(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	// Another citizen sees nothing, not a 403.
	otherCtx := requestcontext.WithUserID(context.Background(), domain.NewUserID())
	_, err = f.service.GetForCitizen(otherCtx, req.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDepartmentReads(t *testing.T) {
	f := newFixture(t)
	req := submitPending(t, f)

	listed, err := f.service.ListForDepartment(f.officerCtx(f.dept.ID), nil)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	pending := models.StatusPending
	listed, err = f.service.ListForDepartment(f.officerCtx(f.dept.ID), &pending)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	accepted := models.StatusAccepted
	listed, err = f.service.ListForDepartment(f.officerCtx(f.dept.ID), &accepted)
	require.NoError(t, err)
	assert.Empty(t, listed)

	got, err := f.service.GetForDepartment(f.officerCtx(f.dept.ID), req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	otherDept, err := f.catalog.CreateDepartment(context.Background(), catalogservice.CreateDepartmentParams{
		Name:            "Health",
		Code:            "HEALTH",
		EndpointBaseURL: "http://health:9102",
	})
	require.NoError(t, err)

	_, err = f.service.GetForDepartment(f.officerCtx(otherDept.ID), req.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

// markerTx tags the context it hands to the closure so stores can
// observe whether a write ran inside the boundary.
type markerTxKey struct{}

type markerTx struct {
	calls int
}

func (m *markerTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(context.WithValue(ctx, markerTxKey{}, true))
}

type boundaryRequestStore struct {
	*memory.Store
	createInTx bool
	updateInTx bool
}

func (b *boundaryRequestStore) Create(ctx context.Context, req *models.ServiceRequest) error {
	b.createInTx, _ = ctx.Value(markerTxKey{}).(bool)
	return b.Store.Create(ctx, req)
}

func (b *boundaryRequestStore) Update(ctx context.Context, req *models.ServiceRequest) error {
	b.updateInTx, _ = ctx.Value(markerTxKey{}).(bool)
	return b.Store.Update(ctx, req)
}

type boundaryAuditStore struct {
	err    error
	events []audit.Event
	inTx   []bool
}

func (b *boundaryAuditStore) Append(ctx context.Context, event audit.Event) error {
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, event)
	in, _ := ctx.Value(markerTxKey{}).(bool)
	b.inTx = append(b.inTx, in)
	return nil
}

func (b *boundaryAuditStore) ListByUser(context.Context, domain.UserID) ([]audit.Event, error) {
	return nil, nil
}

func (b *boundaryAuditStore) inTxFor(action audit.AuditEvent) (bool, bool) {
	for i, e := range b.events {
		if e.Action == string(action) {
			return b.inTx[i], true
		}
	}
	return false, false
}

func TestSubmitAndDecideWriteInsideTransactionBoundary(t *testing.T) {
	auditStore := &boundaryAuditStore{}
	f := newFixtureWithAudit(t, auditStore)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := &markerTx{}
	store := &boundaryRequestStore{Store: f.store}
	svc := New(store, f.catalog, f.delegator, f.users, audit.NewPublisher(auditStore, logger), runner, logger)

	req, err := svc.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"plate": "ABC-123"})
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)
	assert.True(t, store.createInTx, "ledger insert should join the transaction")
	inTx, found := auditStore.inTxFor(audit.EventRequestSubmitted)
	require.True(t, found, "submission should be audited")
	assert.True(t, inTx, "outbox write should join the same transaction as the insert")

	_, err = svc.Decide(f.officerCtx(f.dept.ID), req.ID, models.StatusAccepted, "")
	require.NoError(t, err)
	assert.Equal(t, 2, runner.calls)
	assert.True(t, store.updateInTx, "decision update should join the transaction")
	inTx, found = auditStore.inTxFor(audit.EventRequestAccepted)
	require.True(t, found, "decision should be audited")
	assert.True(t, inTx, "outbox write should join the same transaction as the update")
}

func TestSubmitFailsWhenAuditAppendFails(t *testing.T) {
	auditStore := &boundaryAuditStore{}
	f := newFixtureWithAudit(t, auditStore)

	auditStore.err = errors.New("outbox unavailable")
	_, err := f.service.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"plate": "ABC-123"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.Empty(t, f.delegator.submitCalls, "an unrecorded request must not be forwarded")
}

func TestDecideFailsWhenAuditAppendFails(t *testing.T) {
	auditStore := &boundaryAuditStore{}
	f := newFixtureWithAudit(t, auditStore)

	req, err := f.service.Submit(f.citizenCtx(), f.svc.ID, map[string]any{"plate": "ABC-123"})
	require.NoError(t, err)

	auditStore.err = errors.New("outbox unavailable")
	_, err = f.service.Decide(f.officerCtx(f.dept.ID), req.ID, models.StatusAccepted, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.Empty(t, f.delegator.notifyCalls, "an unrecorded decision must not be notified")
}
