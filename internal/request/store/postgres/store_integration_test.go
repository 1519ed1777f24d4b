//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	authmodels "nexus/internal/auth/models"
	authpostgres "nexus/internal/auth/store/postgres"
	catalogmodels "nexus/internal/catalog/models"
	catalogpostgres "nexus/internal/catalog/store/postgres"
	"nexus/internal/request/models"
	"nexus/internal/request/store/postgres"
	"nexus/pkg/domain"
	"nexus/pkg/platform/audit"
	auditpostgres "nexus/pkg/platform/audit/store/postgres"
	"nexus/pkg/platform/sentinel"
	"nexus/pkg/platform/tx"
	"nexus/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store

	citizen *authmodels.User
	dept    *catalogmodels.Department
	svc     *catalogmodels.Service
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.NewStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order
	err := s.postgres.TruncateTables(ctx, "service_requests", "services", "departments", "users", "audit_outbox")
	s.Require().NoError(err)

	now := time.Now().UTC().Truncate(time.Millisecond)

	citizen, err := authmodels.NewUser("ada@example.com", "hash", "Ada Lovelace", domain.RoleCitizen, nil, now)
	s.Require().NoError(err)
	s.Require().NoError(authpostgres.NewStore(s.postgres.DB).Create(ctx, citizen))
	s.citizen = citizen

	dept, err := catalogmodels.NewDepartment("Transport", "", "TRANSPORT", "http://transport:9101", "", now)
	s.Require().NoError(err)
	catalogStore := catalogpostgres.NewStore(s.postgres.DB)
	s.Require().NoError(catalogStore.CreateDepartment(ctx, dept))
	s.dept = dept

	svc, err := catalogmodels.NewService(dept.ID, "Vehicle Registration", "", "/register-vehicle", "POST",
		[]catalogmodels.FormField{{FieldName: "plate", FieldType: "text", Required: true}}, "", now)
	s.Require().NoError(err)
	s.Require().NoError(catalogStore.CreateService(ctx, svc))
	s.svc = svc
}

func (s *PostgresStoreSuite) newRequest() *models.ServiceRequest {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return models.NewServiceRequest(s.citizen.ID, s.svc.ID, s.dept.ID,
		map[string]any{"plate": "ABC-123"}, now)
}

func (s *PostgresStoreSuite) TestCreateAndGetRoundTrip() {
	ctx := context.Background()
	req := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, req))

	got, err := s.store.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, got.ID)
	s.Equal(models.StatusPending, got.Status)
	s.Equal("ABC-123", got.Payload["plate"])
	s.Nil(got.ProcessedBy)
	s.Nil(got.ResponseData)
}

func (s *PostgresStoreSuite) TestUpdatePersistsDecision() {
	ctx := context.Background()
	req := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, req))

	officer := domain.NewUserID()
	now := time.Now().UTC().Truncate(time.Millisecond)
	s.Require().NoError(req.Decide(officer, models.StatusRejected, "incomplete documents", now))
	s.Require().NoError(s.store.Update(ctx, req))

	got, err := s.store.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, got.Status)
	s.Equal("incomplete documents", got.OfficerRemarks)
	s.Require().NotNil(got.ProcessedBy)
	s.Equal(officer, *got.ProcessedBy)
	s.Require().NotNil(got.ProcessedAt)
	s.WithinDuration(now, *got.ProcessedAt, time.Second)
}

func (s *PostgresStoreSuite) TestUpdatePersistsDelegationResult() {
	ctx := context.Background()
	req := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, req))

	s.Require().NoError(req.ApplyDelegationResult(models.DelegationResult{
		Status:       models.StatusProcessing,
		ResponseData: map[string]any{"reference": "TR-42"},
	}, time.Now().UTC()))
	s.Require().NoError(s.store.Update(ctx, req))

	got, err := s.store.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusProcessing, got.Status)
	s.Equal("TR-42", got.ResponseData["reference"])
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), domain.NewRequestID())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestUpdateMissing() {
	req := s.newRequest()
	err := s.store.Update(context.Background(), req)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestListByCitizenNewestFirst() {
	ctx := context.Background()
	first := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, first))

	second := s.newRequest()
	second.CreatedAt = second.CreatedAt.Add(time.Second)
	second.UpdatedAt = second.CreatedAt
	s.Require().NoError(s.store.Create(ctx, second))

	listed, err := s.store.ListByCitizen(ctx, s.citizen.ID)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(second.ID, listed[0].ID)
	s.Equal(first.ID, listed[1].ID)
}

func (s *PostgresStoreSuite) TestListByDepartmentStatusFilter() {
	ctx := context.Background()
	pending := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, pending))

	decided := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, decided))
	s.Require().NoError(decided.Decide(domain.NewUserID(), models.StatusAccepted, "", time.Now().UTC()))
	s.Require().NoError(s.store.Update(ctx, decided))

	status := models.StatusPending
	listed, err := s.store.ListByDepartment(ctx, s.dept.ID, &status)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(pending.ID, listed[0].ID)

	all, err := s.store.ListByDepartment(ctx, s.dept.ID, nil)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *PostgresStoreSuite) TestCounts() {
	ctx := context.Background()
	pending := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, pending))

	decided := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, decided))
	s.Require().NoError(decided.Decide(domain.NewUserID(), models.StatusAccepted, "", time.Now().UTC()))
	s.Require().NoError(s.store.Update(ctx, decided))

	counts, err := s.store.CountByDepartmentStatus(ctx, s.dept.ID)
	s.Require().NoError(err)
	s.Equal(1, counts[models.StatusPending])
	s.Equal(1, counts[models.StatusAccepted])

	global, err := s.store.CountByStatus(ctx)
	s.Require().NoError(err)
	s.Equal(2, global[models.StatusPending]+global[models.StatusAccepted])
}

// The ledger write and the audit outbox record must land in one
// transaction: an abort leaves neither behind, a commit leaves both.
func (s *PostgresStoreSuite) TestLedgerAndOutboxCommitTogether() {
	ctx := context.Background()
	auditStore := auditpostgres.New(s.postgres.DB)
	runner := tx.NewRunner(s.postgres.DB)

	aborted := s.newRequest()
	err := runner.RunInTx(ctx, func(txCtx context.Context) error {
		s.Require().NoError(s.store.Create(txCtx, aborted))
		s.Require().NoError(auditStore.Append(txCtx, audit.Event{
			Category:         audit.CategoryCompliance,
			Timestamp:        time.Now().UTC(),
			Action:           string(audit.EventRequestSubmitted),
			UserID:           s.citizen.ID,
			ServiceRequestID: aborted.ID,
		}))
		return errors.New("abort")
	})
	s.Require().Error(err)

	_, err = s.store.Get(ctx, aborted.ID)
	s.ErrorIs(err, sentinel.ErrNotFound, "rolled-back ledger write must not persist")
	events, err := auditStore.ListByUser(ctx, s.citizen.ID)
	s.Require().NoError(err)
	s.Empty(events, "rolled-back outbox write must not persist")

	committed := s.newRequest()
	err = runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, committed); err != nil {
			return err
		}
		return auditStore.Append(txCtx, audit.Event{
			Category:         audit.CategoryCompliance,
			Timestamp:        time.Now().UTC(),
			Action:           string(audit.EventRequestSubmitted),
			UserID:           s.citizen.ID,
			ServiceRequestID: committed.ID,
		})
	})
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, committed.ID)
	s.Require().NoError(err)
	s.Equal(committed.ID, got.ID)
	events, err = auditStore.ListByUser(ctx, s.citizen.ID)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *PostgresStoreSuite) TestUpdateJoinsContextTransaction() {
	ctx := context.Background()
	req := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, req))
	s.Require().NoError(req.Decide(domain.NewUserID(), models.StatusAccepted, "", time.Now().UTC()))

	err := tx.NewRunner(s.postgres.DB).RunInTx(ctx, func(txCtx context.Context) error {
		s.Require().NoError(s.store.Update(txCtx, req))
		return errors.New("abort")
	})
	s.Require().Error(err)

	got, err := s.store.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, got.Status, "rolled-back decision must not persist")
}
