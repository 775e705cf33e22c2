package sqlite

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamonnguyen/pomomo-focus"
)

func TestSettingsRepo(t *testing.T) {
	t.Parallel()

	_, _, dbGetter := newTestDB(t)
	repo := NewSettingsRepo(dbGetter, log.New(io.Discard))
	ctx := t.Context()

	_, err := repo.GetSettings(ctx, "u1")
	assert.ErrorIs(t, err, pomomo.ErrNotFound)

	want := pomomo.Settings{FocusMinutes: 50, BreakMinutes: 10, AutoStartBreak: true, DailyGoalMinutes: 180}
	created, err := repo.UpsertSettings(ctx, pomomo.SettingsRecord{UserID: "u1", Settings: want})
	require.NoError(t, err)
	assert.Equal(t, pomomo.UserID("u1"), created.ID)

	got, err := repo.GetSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.LockMode = true
	want.AutoStartNextFocus = true
	updated, err := repo.UpsertSettings(ctx, pomomo.SettingsRecord{UserID: "u1", Settings: want})
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())

	got, err = repo.GetSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = repo.UpsertSettings(ctx, pomomo.SettingsRecord{UserID: "u1", Settings: pomomo.Settings{FocusMinutes: 0, BreakMinutes: 5}})
	assert.Error(t, err)
	_, err = repo.UpsertSettings(ctx, pomomo.SettingsRecord{UserID: "u1", Settings: pomomo.Settings{FocusMinutes: 25, BreakMinutes: 5, DailyGoalMinutes: -1}})
	assert.Error(t, err)
}
