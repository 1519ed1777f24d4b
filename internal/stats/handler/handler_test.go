package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmemory "nexus/internal/auth/store/memory"
	catalogmemory "nexus/internal/catalog/store/memory"
	requestmodels "nexus/internal/request/models"
	requestmemory "nexus/internal/request/store/memory"
	"nexus/internal/stats/handler"
	"nexus/internal/stats/service"
	"nexus/pkg/domain"
	"nexus/pkg/requestcontext"
)

type fixture struct {
	router   chi.Router
	requests *requestmemory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	requests := requestmemory.NewStore()
	svc := service.New(requests, authmemory.NewStore(), catalogmemory.NewStore(), logger)
	h := handler.New(svc, logger)

	router := chi.NewRouter()
	router.Route("/department", h.RegisterOfficer)
	router.Route("/admin", h.RegisterAdmin)
	return &fixture{router: router, requests: requests}
}

func (f *fixture) seed(t *testing.T, deptID domain.DepartmentID, status requestmodels.Status) {
	t.Helper()
	ctx := context.Background()
	req := requestmodels.NewServiceRequest(domain.NewUserID(), domain.NewServiceID(), deptID, nil, time.Now().UTC())
	require.NoError(t, f.requests.Create(ctx, req))
	if status.IsTerminal() {
		require.NoError(t, req.Decide(domain.NewUserID(), status, "remarks", time.Now().UTC()))
		require.NoError(t, f.requests.Update(ctx, req))
	}
}

func TestHandleDepartmentStats(t *testing.T) {
	f := newFixture(t)
	deptID := domain.NewDepartmentID()
	f.seed(t, deptID, requestmodels.StatusPending)
	f.seed(t, deptID, requestmodels.StatusAccepted)

	req := httptest.NewRequest(http.MethodGet, "/department/stats", nil)
	req = req.WithContext(requestcontext.WithDepartmentID(req.Context(), deptID))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body handler.DepartmentStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, deptID.String(), body.DepartmentID)
	assert.Equal(t, 1, body.Pending)
	assert.Equal(t, 1, body.Accepted)
	assert.Equal(t, 2, body.Total)
}

func TestHandleDepartmentStatsWithoutDepartment(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/department/stats", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleGlobalStats(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.NewDepartmentID(), requestmodels.StatusPending)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body handler.GlobalStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.TotalRequests)
	assert.Equal(t, 1, body.RequestsByState[string(requestmodels.StatusPending)])
	// Stable key set even for statuses with no entries.
	assert.Contains(t, body.RequestsByState, string(requestmodels.StatusRejected))
}
