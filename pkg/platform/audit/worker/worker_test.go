package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/pkg/platform/audit/store/postgres"
)

type stubSource struct {
	rows      []postgres.OutboxRow
	published []uuid.UUID
}

func (s *stubSource) PendingBatch(_ context.Context, limit int) ([]postgres.OutboxRow, error) {
	if limit > len(s.rows) {
		limit = len(s.rows)
	}
	return s.rows[:limit], nil
}

func (s *stubSource) MarkPublished(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	s.published = append(s.published, ids...)
	return nil
}

type stubProducer struct {
	produced []string
	failOn   string
}

func (p *stubProducer) Produce(_ context.Context, topic, key string, _ []byte) error {
	if p.failOn != "" && key == p.failOn {
		return errors.New("broker unavailable")
	}
	p.produced = append(p.produced, topic+"/"+key)
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func row(key string) postgres.OutboxRow {
	return postgres.OutboxRow{
		ID:      uuid.New(),
		Topic:   "nexus.audit.compliance",
		Key:     key,
		Payload: []byte(`{"Action":"request_submitted"}`),
	}
}

func TestDrain_PublishesAndMarks(t *testing.T) {
	source := &stubSource{rows: []postgres.OutboxRow{row("a"), row("b")}}
	producer := &stubProducer{}
	w := New(source, producer, newTestLogger(), time.Second, 10)

	require.NoError(t, w.Drain(context.Background()))
	assert.Len(t, producer.produced, 2)
	assert.Len(t, source.published, 2)
}

func TestDrain_EmptyOutboxIsNoop(t *testing.T) {
	source := &stubSource{}
	producer := &stubProducer{}
	w := New(source, producer, newTestLogger(), time.Second, 10)

	require.NoError(t, w.Drain(context.Background()))
	assert.Empty(t, producer.produced)
	assert.Empty(t, source.published)
}

func TestDrain_PartialFailureKeepsUnpublishedRows(t *testing.T) {
	rows := []postgres.OutboxRow{row("a"), row("bad"), row("c")}
	source := &stubSource{rows: rows}
	producer := &stubProducer{failOn: "bad"}
	w := New(source, producer, newTestLogger(), time.Second, 10)

	err := w.Drain(context.Background())
	require.Error(t, err)

	// Only the row produced before the failure is marked; the failed row and
	// everything after stay pending for the next drain.
	assert.Equal(t, []uuid.UUID{rows[0].ID}, source.published)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	source := &stubSource{}
	producer := &stubProducer{}
	w := New(source, producer, newTestLogger(), 10*time.Millisecond, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
