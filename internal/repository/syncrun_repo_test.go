package repository

import (
	"context"
	"testing"
	"time"

	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, err := store.BeginSyncRun(ctx, model.EntityProduct, model.DirectionImport)
	require.NoError(t, err)
	require.NotZero(t, run.ID)
	assert.Equal(t, model.RunRunning, run.Status)

	run.Processed = 5
	run.Failed = 1
	run.Status = model.RunPartial
	run.ErrorSummary = "product 3: decode error"
	require.NoError(t, store.FinishSyncRun(ctx, run))
	require.NotNil(t, run.CompletedAt)
	assert.GreaterOrEqual(t, run.DurationMs, int64(0))

	runs, err := store.ListSyncRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunPartial, runs[0].Status)
	assert.Equal(t, 5, runs[0].Processed)
	assert.Equal(t, "product 3: decode error", runs[0].ErrorSummary)
}

func TestLastCompletedSyncRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.LastCompletedSyncRun(ctx, model.EntityProduct, model.DirectionImport)
	require.NoError(t, err)
	assert.Nil(t, missing)

	first, err := store.BeginSyncRun(ctx, model.EntityProduct, model.DirectionImport)
	require.NoError(t, err)
	first.Status = model.RunCompleted
	require.NoError(t, store.FinishSyncRun(ctx, first))

	second, err := store.BeginSyncRun(ctx, model.EntityProduct, model.DirectionImport)
	require.NoError(t, err)
	second.Status = model.RunCompleted
	require.NoError(t, store.FinishSyncRun(ctx, second))

	// a still-running cycle is not "last completed"
	_, err = store.BeginSyncRun(ctx, model.EntityProduct, model.DirectionImport)
	require.NoError(t, err)

	got, err := store.LastCompletedSyncRun(ctx, model.EntityProduct, model.DirectionImport)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)
}

func TestLastSyncTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	none, err := store.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	run, err := store.BeginSyncRun(ctx, model.EntityOrder, model.DirectionExport)
	require.NoError(t, err)
	run.Status = model.RunCompleted
	require.NoError(t, store.FinishSyncRun(ctx, run))

	last, err := store.LastSyncTime(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.WithinDuration(t, *run.CompletedAt, *last, time.Second)
}
