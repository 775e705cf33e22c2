package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"

	"github.com/benjamonnguyen/pomomo-focus"
)

const SelectAllSettings = "SELECT user_id, focus_minutes, break_minutes, auto_start_break, auto_start_next_focus, lock_mode, daily_goal_minutes, created_at, updated_at FROM user_settings"

type settingsEntity struct {
	UserID             string
	FocusMinutes       int
	BreakMinutes       int
	AutoStartBreak     bool
	AutoStartNextFocus bool
	LockMode           bool
	DailyGoalMinutes   int
	CreatedAt          int64
	UpdatedAt          int64
}

type SettingsRepo struct {
	dbGetter txStdLib.DBGetter
	l        *log.Logger
}

func NewSettingsRepo(dbGetter txStdLib.DBGetter, logger *log.Logger) *SettingsRepo {
	return &SettingsRepo{
		dbGetter: dbGetter,
		l:        logger,
	}
}

var _ pomomo.SettingsProvider = (*SettingsRepo)(nil)

// GetSettings returns ErrNotFound if the user never saved settings.
func (r *SettingsRepo) GetSettings(ctx context.Context, uid pomomo.UserID) (pomomo.Settings, error) {
	record, err := r.GetSettingsRecord(ctx, uid)
	if err != nil {
		return pomomo.Settings{}, err
	}
	return record.Settings, nil
}

func (r *SettingsRepo) GetSettingsRecord(ctx context.Context, uid pomomo.UserID) (pomomo.ExistingSettingsRecord, error) {
	if uid == "" {
		return pomomo.ExistingSettingsRecord{}, fmt.Errorf("provide user id")
	}

	row := r.dbGetter(ctx).QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE user_id=?", SelectAllSettings), uid,
	)
	return extractSettings(row)
}

func (r *SettingsRepo) UpsertSettings(ctx context.Context, settings pomomo.SettingsRecord) (pomomo.ExistingSettingsRecord, error) {
	if settings.UserID == "" {
		return pomomo.ExistingSettingsRecord{}, fmt.Errorf("provide required field 'UserID'")
	}
	if !settings.Valid() {
		return pomomo.ExistingSettingsRecord{}, fmt.Errorf("focus and break minutes must be positive")
	}
	if settings.DailyGoalMinutes < 0 {
		return pomomo.ExistingSettingsRecord{}, fmt.Errorf("daily goal must not be negative")
	}

	existing, err := r.GetSettingsRecord(ctx, settings.UserID)
	switch {
	case errors.Is(err, pomomo.ErrNotFound):
		existing = pomomo.ExistingSettingsRecord{
			ExistingRecord: pomomo.NewExistingRecord[pomomo.UserID](string(settings.UserID)),
		}
	case err != nil:
		return pomomo.ExistingSettingsRecord{}, err
	default:
		existing.Touch(time.Now())
	}
	existing.SettingsRecord = settings
	e := mapToSettingsEntity(existing)

	args := []any{
		e.UserID,
		e.FocusMinutes,
		e.BreakMinutes,
		e.AutoStartBreak,
		e.AutoStartNextFocus,
		e.LockMode,
		e.DailyGoalMinutes,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := "INSERT INTO user_settings (user_id, focus_minutes, break_minutes, auto_start_break, auto_start_next_focus, lock_mode, daily_goal_minutes, created_at, updated_at) VALUES " + GenerateParameters(len(args)) +
		" ON CONFLICT (user_id) DO UPDATE SET focus_minutes = excluded.focus_minutes, break_minutes = excluded.break_minutes, auto_start_break = excluded.auto_start_break, auto_start_next_focus = excluded.auto_start_next_focus, lock_mode = excluded.lock_mode, daily_goal_minutes = excluded.daily_goal_minutes, updated_at = excluded.updated_at"
	r.l.Debug("saving settings", "query", query, "args", args)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return pomomo.ExistingSettingsRecord{}, err
	}

	return existing, nil
}

func extractSettings(s scannable) (pomomo.ExistingSettingsRecord, error) {
	var e settingsEntity
	if err := s.Scan(&e.UserID, &e.FocusMinutes, &e.BreakMinutes, &e.AutoStartBreak, &e.AutoStartNextFocus, &e.LockMode, &e.DailyGoalMinutes, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pomomo.ExistingSettingsRecord{}, pomomo.ErrNotFound
		}
		return pomomo.ExistingSettingsRecord{}, err
	}

	return mapToExistingSettingsRecord(e), nil
}

func mapToSettingsEntity(settings pomomo.ExistingSettingsRecord) settingsEntity {
	return settingsEntity{
		UserID:             string(settings.UserID),
		FocusMinutes:       settings.FocusMinutes,
		BreakMinutes:       settings.BreakMinutes,
		AutoStartBreak:     settings.AutoStartBreak,
		AutoStartNextFocus: settings.AutoStartNextFocus,
		LockMode:           settings.LockMode,
		DailyGoalMinutes:   settings.DailyGoalMinutes,
		CreatedAt:          settings.CreatedAt.Unix(),
		UpdatedAt:          settings.UpdatedAt.Unix(),
	}
}

func mapToExistingSettingsRecord(e settingsEntity) pomomo.ExistingSettingsRecord {
	return pomomo.ExistingSettingsRecord{
		ExistingRecord: pomomo.ExistingRecord[pomomo.UserID]{
			ID:        pomomo.UserID(e.UserID),
			CreatedAt: time.Unix(e.CreatedAt, 0),
			UpdatedAt: time.Unix(e.UpdatedAt, 0),
		},
		SettingsRecord: pomomo.SettingsRecord{
			UserID: pomomo.UserID(e.UserID),
			Settings: pomomo.Settings{
				FocusMinutes:       e.FocusMinutes,
				BreakMinutes:       e.BreakMinutes,
				AutoStartBreak:     e.AutoStartBreak,
				AutoStartNextFocus: e.AutoStartNextFocus,
				LockMode:           e.LockMode,
				DailyGoalMinutes:   e.DailyGoalMinutes,
			},
		},
	}
}
