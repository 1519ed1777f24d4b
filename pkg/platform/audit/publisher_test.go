package audit_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "nexus/pkg/domain"
	audit "nexus/pkg/platform/audit"
	"nexus/pkg/platform/audit/store/memory"
)

func TestPublisher_Emit(t *testing.T) {
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := audit.NewPublisher(store, logger)

	userID := id.NewUserID()
	pub.Emit(context.Background(), audit.Event{
		Action:     string(audit.EventRequestSubmitted),
		UserID:     userID,
		Department: "HEALTHCARE",
	})

	events, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, string(audit.EventRequestSubmitted), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero(), "Emit should stamp missing timestamps")
}

func TestEventCategories(t *testing.T) {
	assert.Equal(t, audit.CategoryCompliance, audit.EventRequestAccepted.Category())
	assert.Equal(t, audit.CategorySecurity, audit.EventAuthFailed.Category())
	assert.Equal(t, audit.CategoryOperations, audit.EventDelegationUnreachable.Category())

	// Unknown actions route to operations rather than being dropped.
	assert.Equal(t, audit.CategoryOperations, audit.AuditEvent("mystery").Category())
}

func TestCategoryTopic(t *testing.T) {
	assert.Equal(t, "nexus.audit.compliance", audit.CategoryCompliance.Topic())
}
