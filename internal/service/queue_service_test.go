package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/kasirku/pos-sync-backend/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExporter stands in for the order sync service during queue tests.
type stubExporter struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (s *stubExporter) ExportOrder(ctx context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, orderID)
	return s.err
}

func (s *stubExporter) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubExporter) exported() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.calls...)
}

func enqueueOrders(t *testing.T, q *QueueService, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		o := &model.Order{ID: id, Reference: fmt.Sprintf("ref-%d", id)}
		_, err := q.EnqueueOrderExport(context.Background(), o)
		require.NoError(t, err)
	}
}

func TestDrainExportsInInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	exporter := &stubExporter{}
	q := NewQueueService(store, exporter, 3, time.Hour)

	enqueueOrders(t, q, 1, 2, 3)

	processed, failed, err := q.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, processed)
	assert.Zero(t, failed)
	assert.Equal(t, []int64{1, 2, 3}, exporter.exported())

	pending, err := q.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending, "completed entries are removed")
}

func TestDrainNetworkFailureStopsWithoutChargingAttempts(t *testing.T) {
	store := newTestStore(t)
	exporter := &stubExporter{err: &remote.Error{Kind: remote.KindNetwork, Message: "connection refused"}}
	q := NewQueueService(store, exporter, 3, time.Hour)

	enqueueOrders(t, q, 1, 2)

	processed, _, err := q.Drain(context.Background())
	require.Error(t, err)
	assert.Zero(t, processed)
	assert.Len(t, exporter.exported(), 1, "the drain stops at the first connectivity failure")

	actions, err := store.ListActions(context.Background(), model.ActionPending, 10)
	require.NoError(t, err)
	require.Len(t, actions, 2, "both entries stay queued")
	for _, a := range actions {
		assert.Zero(t, a.Attempts, "a call that never reached the store is not an attempt")
	}
}

func TestDrainAuthFailureStopsForOperator(t *testing.T) {
	store := newTestStore(t)
	exporter := &stubExporter{err: &remote.Error{Kind: remote.KindAuth, Status: 401, Message: "invalid key"}}
	q := NewQueueService(store, exporter, 3, time.Hour)

	enqueueOrders(t, q, 1)

	_, _, err := q.Drain(context.Background())
	require.Error(t, err)

	actions, err := store.ListActions(context.Background(), model.ActionPending, 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Zero(t, actions[0].Attempts)
	assert.Contains(t, actions[0].LastError, "invalid key")
}

func TestDrainServerFailureExhaustsAttemptBudget(t *testing.T) {
	store := newTestStore(t)
	exporter := &stubExporter{err: &remote.Error{Kind: remote.KindServer, Status: 500, Message: "boom"}}
	q := NewQueueService(store, exporter, 3, time.Hour)
	ctx := context.Background()

	enqueueOrders(t, q, 1)

	// two drains release the entry back with a charged attempt each
	for want := 1; want <= 2; want++ {
		_, failed, err := q.Drain(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, failed)

		actions, err := store.ListActions(ctx, model.ActionPending, 10)
		require.NoError(t, err)
		require.Len(t, actions, 1)
		assert.Equal(t, want, actions[0].Attempts)
	}

	// the third attempt hits the cap and parks the entry
	_, _, err := q.Drain(ctx)
	require.NoError(t, err)

	failedCount, err := q.FailedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, failedCount)

	pending, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestDrainValidationFailureParksImmediately(t *testing.T) {
	store := newTestStore(t)
	exporter := &stubExporter{err: &remote.Error{Kind: remote.KindValidation, Status: 422, Message: "bad line item"}}
	q := NewQueueService(store, exporter, 3, time.Hour)
	ctx := context.Background()

	enqueueOrders(t, q, 1, 2)

	processed, failed, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Equal(t, 2, failed, "a bad item does not block the rest of the queue")

	failedActions, err := store.ListActions(ctx, model.ActionFailed, 10)
	require.NoError(t, err)
	assert.Len(t, failedActions, 2)
}

func TestDrainRetryWindowExpiry(t *testing.T) {
	store := newTestStore(t)
	exporter := &stubExporter{err: &remote.Error{Kind: remote.KindServer, Status: 503, Message: "down"}}
	q := NewQueueService(store, exporter, 10, time.Nanosecond)
	ctx := context.Background()

	enqueueOrders(t, q, 1)
	time.Sleep(time.Millisecond)

	_, _, err := q.Drain(ctx)
	require.NoError(t, err)

	failedCount, err := q.FailedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, failedCount, "an entry older than the retry window stops being retried")
}

func TestDrainMalformedPayloadParks(t *testing.T) {
	store := newTestStore(t)
	q := NewQueueService(store, &stubExporter{}, 3, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.EnqueueAction(ctx, &model.PendingAction{
		ID:         "garbage",
		EntityType: model.EntityOrder,
		Operation:  model.OpCreate,
		Payload:    []byte(`{not json`),
	}))

	_, failed, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	failedActions, err := store.ListActions(ctx, model.ActionFailed, 10)
	require.NoError(t, err)
	require.Len(t, failedActions, 1)
	assert.Contains(t, failedActions[0].LastError, "malformed payload")
}

// Three sales rung up offline reach the remote store in order once
// connectivity returns.
func TestOfflineSalesFlushInOrderOnReconnect(t *testing.T) {
	store := newTestStore(t)
	exporter := &stubExporter{err: &remote.Error{Kind: remote.KindNetwork, Message: "offline"}}
	q := NewQueueService(store, exporter, 3, time.Hour)
	ctx := context.Background()

	enqueueOrders(t, q, 10, 11, 12)

	// offline: the drain aborts, nothing is charged
	_, _, err := q.Drain(ctx)
	require.Error(t, err)
	pending, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, pending)

	// back online
	exporter.setErr(nil)
	exporter.mu.Lock()
	exporter.calls = nil
	exporter.mu.Unlock()

	processed, failed, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, processed)
	assert.Zero(t, failed)
	assert.Equal(t, []int64{10, 11, 12}, exporter.exported())

	pending, err = q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

// An action claimed by a drain that died before recording an outcome
// must not be stranded: the next drain picks it up again, and the
// reference search on the export path sorts out whether the earlier
// attempt actually landed.
func TestDrainRecoversInterruptedActions(t *testing.T) {
	store := newTestStore(t)
	exporter := &stubExporter{}
	q := NewQueueService(store, exporter, 3, time.Hour)
	ctx := context.Background()

	enqueueOrders(t, q, 1, 2)

	// simulate a crash between claiming the entry and recording the
	// outcome
	batch, err := store.PendingActions(ctx, model.EntityOrder, 10)
	require.NoError(t, err)
	require.NoError(t, store.MarkActionInflight(ctx, batch[0].ID))

	stranded, err := store.GetAction(ctx, batch[0].ID)
	require.NoError(t, err)
	require.Equal(t, model.ActionInflight, stranded.Status)

	processed, failed, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, processed, "the interrupted entry is drained too")
	assert.Zero(t, failed)
	assert.Equal(t, []int64{1, 2}, exporter.exported())

	pending, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	recovered, err := store.GetAction(ctx, batch[0].ID)
	require.NoError(t, err)
	assert.Nil(t, recovered, "completed after recovery")
}

func TestEnqueueOrderExportOperation(t *testing.T) {
	store := newTestStore(t)
	q := NewQueueService(store, &stubExporter{}, 3, time.Hour)
	ctx := context.Background()

	created, err := q.EnqueueOrderExport(ctx, &model.Order{ID: 1, Reference: "ref-1"})
	require.NoError(t, err)
	assert.Equal(t, model.OpCreate, created.Operation)
	assert.Equal(t, model.ActionPending, created.Status)
	assert.NotEmpty(t, created.ID)

	ext := int64(77)
	updated, err := q.EnqueueOrderExport(ctx, &model.Order{ID: 2, Reference: "ref-2", ExternalID: &ext})
	require.NoError(t, err)
	assert.Equal(t, model.OpUpdate, updated.Operation)
}
