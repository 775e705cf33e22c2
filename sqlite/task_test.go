package sqlite

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamonnguyen/pomomo-focus"
)

func TestTaskRepo(t *testing.T) {
	t.Parallel()

	_, tx, dbGetter := newTestDB(t)
	repo := NewTaskRepo(dbGetter, log.New(io.Discard))
	ctx := t.Context()

	inserted, err := repo.InsertTask(ctx, pomomo.TaskRecord{UserID: "u1", Title: "Write report", EstimatedCount: 2})
	require.NoError(t, err)
	require.NotEmpty(t, inserted.ID)
	assert.Equal(t, pomomo.TaskPending, inserted.Status)

	got, err := repo.GetTask(ctx, inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, inserted.TaskRecord, got.TaskRecord)
	assert.Equal(t, inserted.CreatedAt.Unix(), got.CreatedAt.Unix())

	t.Run("increment", func(t *testing.T) {
		task, err := repo.IncrementUsed(ctx, inserted.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, task.UsedCount)
		assert.Equal(t, 1, task.Remaining())
	})

	t.Run("rollback", func(t *testing.T) {
		err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if _, err := repo.IncrementUsed(ctx, inserted.ID); err != nil {
				return err
			}
			return errors.New("abort")
		})
		require.Error(t, err)

		task, err := repo.GetTask(ctx, inserted.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, task.UsedCount)
	})

	t.Run("complete once", func(t *testing.T) {
		changed, err := repo.MarkCompleted(ctx, inserted.ID)
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = repo.MarkCompleted(ctx, inserted.ID)
		require.NoError(t, err)
		assert.False(t, changed)

		task, err := repo.GetTask(ctx, inserted.ID)
		require.NoError(t, err)
		assert.True(t, task.IsCompleted())
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := repo.GetTask(ctx, "missing")
		assert.ErrorIs(t, err, pomomo.ErrNotFound)

		_, err = repo.IncrementUsed(ctx, "missing")
		assert.ErrorIs(t, err, pomomo.ErrNotFound)

		_, err = repo.MarkCompleted(ctx, "missing")
		assert.ErrorIs(t, err, pomomo.ErrNotFound)
	})
}

func TestTaskRepo_InsertValidation(t *testing.T) {
	t.Parallel()

	_, _, dbGetter := newTestDB(t)
	repo := NewTaskRepo(dbGetter, log.New(io.Discard))

	tests := []struct {
		name string
		task pomomo.TaskRecord
	}{
		{"missing user", pomomo.TaskRecord{Title: "x", EstimatedCount: 1}},
		{"missing title", pomomo.TaskRecord{UserID: "u1", EstimatedCount: 1}},
		{"no estimate", pomomo.TaskRecord{UserID: "u1", Title: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := repo.InsertTask(t.Context(), tt.task)
			assert.Error(t, err)
		})
	}
}
