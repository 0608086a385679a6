package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectRunnerSuccess(t *testing.T) {
	runner, queue, logs := newTestRunner()

	warning := runner.Run(context.Background(), EffectNotification, "absence 1", func(ctx context.Context) error { return nil })
	assert.Empty(t, warning)
	assert.Empty(t, queue.jobs)
	assert.Empty(t, logs.entries)
}

func TestEffectRunnerFailureIsQueued(t *testing.T) {
	runner, queue, logs := newTestRunner()
	ctx := ContextWithRequest(context.Background(), RequestInfo{RequestID: "req-9", Method: "PATCH", Path: "/api/v1/vehicles/v1/maintenance", ActorID: manager.ID})

	attempts := 0
	warning := runner.Run(ctx, EffectHistory, "maintenance v1", func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("connection reset")
		}
		return nil
	})
	assert.Equal(t, "history_append failed for maintenance v1; retry scheduled", warning)

	require.Len(t, logs.entries, 1)
	entry := logs.entries[0]
	assert.Equal(t, "req-9", *entry.RequestID)
	assert.Equal(t, "PATCH", *entry.Method)
	assert.Equal(t, "INTERNAL_ERROR", entry.Code)
	assert.Contains(t, *entry.Detail, "connection reset")

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, EffectHistory, queue.jobs[0].Type)
	require.NoError(t, queue.jobs[0].Run(context.Background()))
	assert.Equal(t, 2, attempts)
}

func TestEffectRunnerWithoutQueue(t *testing.T) {
	runner := NewEffectRunner(nil, nil, nil, nil)

	warning := runner.Run(context.Background(), EffectDerivedTasks, "inspection 4", func(ctx context.Context) error {
		return errors.New("boom")
	})
	assert.Equal(t, "derived_task_sync failed for inspection 4", warning)
}
