package sqlite

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamonnguyen/pomomo-focus"
)

func TestFocusLog(t *testing.T) {
	t.Parallel()

	_, _, dbGetter := newTestDB(t)
	repo := NewFocusLog(dbGetter, log.New(io.Discard))
	ctx := t.Context()

	midnight := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tid := pomomo.TaskID("t1")
	records := []pomomo.FocusRecord{
		{UserID: "u1", TaskID: &tid, Minutes: 25, CompletedAt: midnight.Add(9 * time.Hour)},
		{UserID: "u1", Minutes: 10, CompletedAt: midnight.Add(10 * time.Hour)},
		{UserID: "u1", Minutes: 40, CompletedAt: midnight.Add(-time.Hour)},
		{UserID: "u2", Minutes: 5, CompletedAt: midnight.Add(time.Hour)},
	}
	for _, r := range records {
		require.NoError(t, repo.Append(ctx, r))
	}

	today, err := repo.FocusSince(ctx, "u1", midnight)
	require.NoError(t, err)
	assert.Equal(t, pomomo.FocusSummary{Minutes: 35, Sessions: 2}, today)

	total, err := repo.FocusSince(ctx, "u1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, pomomo.FocusSummary{Minutes: 75, Sessions: 3}, total)

	none, err := repo.FocusSince(ctx, "nobody", midnight)
	require.NoError(t, err)
	assert.Equal(t, pomomo.FocusSummary{}, none)

	assert.Error(t, repo.Append(ctx, pomomo.FocusRecord{UserID: "u1", Minutes: 0, CompletedAt: midnight}))
	assert.Error(t, repo.Append(ctx, pomomo.FocusRecord{Minutes: 1, CompletedAt: midnight}))
}
