package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enqueueTestAction(t *testing.T, store *Store, id string) *model.PendingAction {
	t.Helper()
	a := &model.PendingAction{
		ID:         id,
		EntityType: model.EntityOrder,
		Operation:  model.OpCreate,
		Payload:    []byte(fmt.Sprintf(`{"order_id":1,"reference":%q}`, id)),
	}
	require.NoError(t, store.EnqueueAction(context.Background(), a))
	return a
}

func TestPendingActionsAreFIFO(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	enqueueTestAction(t, store, "first")
	enqueueTestAction(t, store, "second")
	enqueueTestAction(t, store, "third")

	batch, err := store.PendingActions(ctx, model.EntityOrder, 10)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "first", batch[0].ID)
	assert.Equal(t, "second", batch[1].ID)
	assert.Equal(t, "third", batch[2].ID)
}

func TestEnqueueRejectsDuplicateID(t *testing.T) {
	store := newTestStore(t)
	a := enqueueTestAction(t, store, "dup")
	err := store.EnqueueAction(context.Background(), a)
	require.Error(t, err)
}

func TestMarkActionInflightClaimsOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	enqueueTestAction(t, store, "a1")

	require.NoError(t, store.MarkActionInflight(ctx, "a1"))
	assert.Error(t, store.MarkActionInflight(ctx, "a1"), "an inflight entry cannot be claimed again")

	batch, err := store.PendingActions(ctx, model.EntityOrder, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)

	got, err := store.GetAction(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.ActionInflight, got.Status)
	assert.NotNil(t, got.LastAttemptAt)
}

func TestRequeueInflightActions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	enqueueTestAction(t, store, "interrupted")
	enqueueTestAction(t, store, "untouched")
	require.NoError(t, store.MarkActionInflight(ctx, "interrupted"))

	n, err := store.RequeueInflightActions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetAction(ctx, "interrupted")
	require.NoError(t, err)
	assert.Equal(t, model.ActionPending, got.Status)
	assert.Zero(t, got.Attempts, "the interrupted attempt is not charged")

	batch, err := store.PendingActions(ctx, model.EntityOrder, 10)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestCompleteActionRemovesEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	enqueueTestAction(t, store, "a1")

	require.NoError(t, store.MarkActionInflight(ctx, "a1"))
	require.NoError(t, store.CompleteAction(ctx, "a1"))

	got, err := store.GetAction(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReleaseActionReturnsToPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	enqueueTestAction(t, store, "a1")

	require.NoError(t, store.MarkActionInflight(ctx, "a1"))
	require.NoError(t, store.ReleaseAction(ctx, "a1", 2, "remote hiccup"))

	got, err := store.GetAction(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.ActionPending, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, "remote hiccup", got.LastError)
}

func TestFailAndRetryAction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	enqueueTestAction(t, store, "a1")

	require.NoError(t, store.MarkActionInflight(ctx, "a1"))
	require.NoError(t, store.FailAction(ctx, "a1", 3, "gave up"))

	got, err := store.GetAction(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.ActionFailed, got.Status)
	assert.Equal(t, 3, got.Attempts)

	// operator requeue resets the attempt budget
	require.NoError(t, store.RetryFailedAction(ctx, "a1"))
	got, err = store.GetAction(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.ActionPending, got.Status)
	assert.Zero(t, got.Attempts)
	assert.Empty(t, got.LastError)

	// only failed entries can be requeued
	assert.Error(t, store.RetryFailedAction(ctx, "a1"))
}

func TestDeleteActionNotFound(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.DeleteAction(context.Background(), "missing"))
}

func TestCountActionsByStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	enqueueTestAction(t, store, "p1")
	enqueueTestAction(t, store, "p2")
	enqueueTestAction(t, store, "f1")
	require.NoError(t, store.MarkActionInflight(ctx, "f1"))
	require.NoError(t, store.FailAction(ctx, "f1", 3, "boom"))

	pending, err := store.CountActions(ctx, model.ActionPending)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	failed, err := store.CountActions(ctx, model.ActionFailed)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
}

func TestListActionsFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	enqueueTestAction(t, store, "p1")
	enqueueTestAction(t, store, "f1")
	require.NoError(t, store.MarkActionInflight(ctx, "f1"))
	require.NoError(t, store.FailAction(ctx, "f1", 1, "boom"))

	all, err := store.ListActions(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := store.ListActions(ctx, model.ActionFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "f1", failed[0].ID)
}
