package delegation

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	department "nexus/contracts/department"
	"nexus/internal/delegation/servicetoken"
	"nexus/pkg/domain"
	"nexus/pkg/platform/audit"
	auditmemory "nexus/pkg/platform/audit/store/memory"
)

func newTestClient(t *testing.T, timeout time.Duration) (*Client, *auditmemory.Store) {
	t.Helper()
	minter, err := servicetoken.NewMinter("svc-secret", 5*time.Minute)
	require.NoError(t, err)
	store := auditmemory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(minter, timeout, audit.NewPublisher(store, logger), logger), store
}

func submitParams(baseURL string) SubmitParams {
	return SubmitParams{
		Target: Target{
			DepartmentCode: "TRANSPORT",
			BaseURL:        baseURL,
			Path:           "/register-vehicle",
			Method:         http.MethodPost,
		},
		RequestID:    domain.NewRequestID(),
		ServiceID:    domain.NewServiceID(),
		ServiceName:  "Vehicle Registration",
		CitizenID:    domain.NewUserID(),
		CitizenName:  "Ada Lovelace",
		CitizenEmail: "ada@example.com",
		CitizenToken: "citizen-token",
		Payload:      map[string]any{"plate": "ABC-123"},
	}
}

func TestSubmitApplied(t *testing.T) {
	var got department.SubmitPayload
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(department.SubmitResponse{
			Status:  "accepted",
			Remarks: "ok",
			ResponseData: map[string]any{
				"reference": "TR-42",
			},
		})
	}))
	defer srv.Close()

	client, _ := newTestClient(t, time.Second)
	params := submitParams(srv.URL)
	outcome := client.Submit(context.Background(), params)

	require.True(t, outcome.Applied)
	assert.Equal(t, "ACCEPTED", outcome.Status, "department status is normalized")
	assert.Equal(t, "ok", outcome.Remarks)
	assert.Equal(t, "TR-42", outcome.ResponseData["reference"])

	assert.Equal(t, params.RequestID.String(), got.RequestID)
	assert.Equal(t, "Vehicle Registration", got.ServiceName)
	assert.Equal(t, "ada@example.com", got.CitizenEmail)
	assert.Equal(t, "ABC-123", got.Data["plate"])

	// Correlation headers and both credentials travel with the call.
	assert.Equal(t, params.RequestID.String(), gotHeaders.Get(department.HeaderRequestID))
	assert.Equal(t, params.CitizenID.String(), gotHeaders.Get(department.HeaderCitizenID))
	assert.Equal(t, "citizen-token", gotHeaders.Get(department.HeaderCitizenToken))

	serviceJWT, ok := cutBearer(gotHeaders.Get("Authorization"))
	require.True(t, ok)
	verifier, err := servicetoken.NewVerifier("svc-secret", "TRANSPORT")
	require.NoError(t, err)
	claims, err := verifier.Verify(serviceJWT)
	require.NoError(t, err)
	assert.Equal(t, []string{servicetoken.ScopeForwardRequest}, claims.Scope)
}

func TestSubmitEmptyBodyIsApplied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, time.Second)
	outcome := client.Submit(context.Background(), submitParams(srv.URL))

	require.True(t, outcome.Applied)
	assert.Empty(t, outcome.Status)
}

func TestSubmitUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	client, events := newTestClient(t, time.Second)
	outcome := client.Submit(context.Background(), submitParams(srv.URL))

	assert.False(t, outcome.Applied)

	var sawUnreachable bool
	for _, e := range events.All() {
		if e.Action == string(audit.EventDelegationUnreachable) {
			sawUnreachable = true
		}
	}
	assert.True(t, sawUnreachable, "unreachable delegation is audited")
}

func TestSubmitTimeoutIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, 20*time.Millisecond)
	outcome := client.Submit(context.Background(), submitParams(srv.URL))
	assert.False(t, outcome.Applied)
}

func TestSubmitMalformedBodyIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, time.Second)
	outcome := client.Submit(context.Background(), submitParams(srv.URL))
	assert.False(t, outcome.Applied)
}

func TestSubmitServerErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, time.Second)
	outcome := client.Submit(context.Background(), submitParams(srv.URL))
	assert.False(t, outcome.Applied)
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, _ := newTestClient(t, 100*time.Millisecond)
	params := submitParams(srv.URL)

	for i := 0; i < 5; i++ {
		client.Submit(context.Background(), params)
	}
	assert.True(t, client.breaker("TRANSPORT").IsOpen())

	// With the circuit open the call is skipped entirely, so even a
	// healthy server sees no traffic.
	var hits int
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer healthy.Close()

	outcome := client.Submit(context.Background(), submitParams(healthy.URL))
	assert.False(t, outcome.Applied)
	assert.Zero(t, hits)
}

func TestNotifyDecision(t *testing.T) {
	var got department.StatusUpdatePayload
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, time.Second)
	officer := domain.NewUserID()
	requestID := domain.NewRequestID()

	delivered := client.NotifyDecision(context.Background(), NotifyParams{
		Target:      Target{DepartmentCode: "TRANSPORT", BaseURL: srv.URL},
		RequestID:   requestID,
		Status:      "REJECTED",
		Remarks:     "incomplete documents",
		ProcessedBy: officer,
	})

	require.True(t, delivered)
	assert.Equal(t, department.NotifyPath, gotPath)
	assert.Equal(t, requestID.String(), got.RequestID)
	assert.Equal(t, "REJECTED", got.Status)
	assert.Equal(t, "incomplete documents", got.Remarks)
	assert.Equal(t, officer.String(), got.ProcessedBy)
}

func TestNotifyDecisionBestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, events := newTestClient(t, 100*time.Millisecond)
	delivered := client.NotifyDecision(context.Background(), NotifyParams{
		Target:    Target{DepartmentCode: "TRANSPORT", BaseURL: srv.URL},
		RequestID: domain.NewRequestID(),
		Status:    "ACCEPTED",
	})

	assert.False(t, delivered)
	var sawFailed bool
	for _, e := range events.All() {
		if e.Action == string(audit.EventNotifyFailed) {
			sawFailed = true
		}
	}
	assert.True(t, sawFailed)
}

func cutBearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):], true
	}
	return "", false
}
