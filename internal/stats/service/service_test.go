package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmodels "nexus/internal/auth/models"
	authmemory "nexus/internal/auth/store/memory"
	catalogmodels "nexus/internal/catalog/models"
	catalogmemory "nexus/internal/catalog/store/memory"
	requestmodels "nexus/internal/request/models"
	requestmemory "nexus/internal/request/store/memory"
	"nexus/internal/stats/service"
	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
	"nexus/pkg/requestcontext"
)

type fixture struct {
	svc      *service.Service
	requests *requestmemory.Store
	users    *authmemory.Store
	catalog  *catalogmemory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	requests := requestmemory.NewStore()
	users := authmemory.NewStore()
	catalog := catalogmemory.NewStore()
	return &fixture{
		svc:      service.New(requests, users, catalog, logger),
		requests: requests,
		users:    users,
		catalog:  catalog,
	}
}

func seedRequest(t *testing.T, f *fixture, deptID domain.DepartmentID, status requestmodels.Status) {
	t.Helper()
	ctx := context.Background()
	req := requestmodels.NewServiceRequest(domain.NewUserID(), domain.NewServiceID(), deptID, nil, time.Now().UTC())
	require.NoError(t, f.requests.Create(ctx, req))
	if status == requestmodels.StatusPending {
		return
	}
	if status.IsTerminal() {
		require.NoError(t, req.Decide(domain.NewUserID(), status, "remarks", time.Now().UTC()))
	} else {
		require.NoError(t, req.ApplyDelegationResult(requestmodels.DelegationResult{Status: status}, time.Now().UTC()))
	}
	require.NoError(t, f.requests.Update(ctx, req))
}

func TestForDepartmentCounts(t *testing.T) {
	f := newFixture(t)
	deptID := domain.NewDepartmentID()
	otherDept := domain.NewDepartmentID()

	seedRequest(t, f, deptID, requestmodels.StatusPending)
	seedRequest(t, f, deptID, requestmodels.StatusPending)
	seedRequest(t, f, deptID, requestmodels.StatusProcessing)
	seedRequest(t, f, deptID, requestmodels.StatusAccepted)
	seedRequest(t, f, deptID, requestmodels.StatusRejected)
	seedRequest(t, f, otherDept, requestmodels.StatusPending)

	ctx := requestcontext.WithDepartmentID(context.Background(), deptID)
	summary, err := f.svc.ForDepartment(ctx)
	require.NoError(t, err)

	assert.Equal(t, deptID, summary.DepartmentID)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 1, summary.Processing)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, 5, summary.Total)
}

func TestForDepartmentRequiresDepartment(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ForDepartment(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestGlobalCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	citizen, err := authmodels.NewUser("ada@example.com", "hash", "Ada Lovelace", domain.RoleCitizen, nil, now)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, citizen))

	dept, err := catalogmodels.NewDepartment("Transport", "", "TRANSPORT", "http://transport:9101", "", now)
	require.NoError(t, err)
	require.NoError(t, f.catalog.CreateDepartment(ctx, dept))

	svc, err := catalogmodels.NewService(dept.ID, "Vehicle Registration", "", "/register-vehicle", "POST", nil, "", now)
	require.NoError(t, err)
	require.NoError(t, f.catalog.CreateService(ctx, svc))

	seedRequest(t, f, dept.ID, requestmodels.StatusPending)
	seedRequest(t, f, dept.ID, requestmodels.StatusAccepted)

	summary, err := f.svc.Global(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Users)
	assert.Equal(t, 1, summary.Departments)
	assert.Equal(t, 1, summary.Services)
	assert.Equal(t, 1, summary.Requests[requestmodels.StatusPending])
	assert.Equal(t, 1, summary.Requests[requestmodels.StatusAccepted])
	assert.Equal(t, 2, summary.Total)
}

func TestGlobalEmptyPlatform(t *testing.T) {
	f := newFixture(t)
	summary, err := f.svc.Global(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.Users)
	assert.Zero(t, summary.Total)
	assert.NotNil(t, summary.Requests)
}
