package sqlite

import (
	"context"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/benjamonnguyen/pomomo-focus"
)

type focusEntity struct {
	ID          string
	UserID      string
	TaskID      *string
	Minutes     int
	CompletedAt int64
	CreatedAt   int64
	UpdatedAt   int64
}

// FocusLog is the append-only record of completed focus intervals.
type FocusLog struct {
	dbGetter txStdLib.DBGetter
	l        *log.Logger
}

func NewFocusLog(dbGetter txStdLib.DBGetter, logger *log.Logger) *FocusLog {
	return &FocusLog{
		dbGetter: dbGetter,
		l:        logger,
	}
}

var (
	_ pomomo.SessionLog = (*FocusLog)(nil)
	_ pomomo.FocusStats = (*FocusLog)(nil)
)

func (r *FocusLog) Append(ctx context.Context, record pomomo.FocusRecord) error {
	_, err := r.Insert(ctx, record)
	return err
}

func (r *FocusLog) Insert(ctx context.Context, record pomomo.FocusRecord) (pomomo.ExistingFocusRecord, error) {
	if record.UserID == "" {
		return pomomo.ExistingFocusRecord{}, fmt.Errorf("provide required field 'UserID'")
	}
	if record.Minutes < 1 {
		return pomomo.ExistingFocusRecord{}, fmt.Errorf("minutes must be at least 1")
	}

	existing := pomomo.ExistingFocusRecord{
		ExistingRecord: pomomo.NewExistingRecord[pomomo.FocusRecordID](uuid.NewString()),
		FocusRecord:    record,
	}
	e := mapToFocusEntity(existing)

	args := []any{
		e.ID,
		e.UserID,
		e.TaskID,
		e.Minutes,
		e.CompletedAt,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := "INSERT INTO focus_sessions (id, user_id, task_id, minutes, completed_at, created_at, updated_at) VALUES " + GenerateParameters(len(args))
	r.l.Debug("appending focus session", "query", query, "args", args)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return pomomo.ExistingFocusRecord{}, err
	}

	return existing, nil
}

var _ pomomo.FocusStats = (*FocusLog)(nil)

func (r *FocusLog) FocusSince(ctx context.Context, uid pomomo.UserID, since time.Time) (pomomo.FocusSummary, error) {
	query := "SELECT COALESCE(SUM(minutes), 0), COUNT(*) FROM focus_sessions WHERE user_id = ? AND completed_at >= ?"
	var from int64
	if !since.IsZero() {
		from = since.Unix()
	}
	args := []any{uid, from}
	r.l.Debug("summing focus sessions", "query", query, "args", args)

	var s pomomo.FocusSummary
	if err := r.dbGetter(ctx).QueryRowContext(ctx, query, args...).Scan(&s.Minutes, &s.Sessions); err != nil {
		return pomomo.FocusSummary{}, err
	}
	return s, nil
}

func mapToFocusEntity(record pomomo.ExistingFocusRecord) focusEntity {
	e := focusEntity{
		ID:          string(record.ID),
		UserID:      string(record.UserID),
		Minutes:     record.Minutes,
		CompletedAt: record.CompletedAt.Unix(),
		CreatedAt:   record.CreatedAt.Unix(),
		UpdatedAt:   record.UpdatedAt.Unix(),
	}
	if record.TaskID != nil {
		tid := string(*record.TaskID)
		e.TaskID = &tid
	}
	return e
}
