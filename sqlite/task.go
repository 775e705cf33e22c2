package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/benjamonnguyen/pomomo-focus"
)

const SelectAllTasks = "SELECT id, user_id, title, estimated_count, used_count, status, created_at, updated_at FROM tasks"

type taskEntity struct {
	ID             string
	UserID         string
	Title          string
	EstimatedCount int
	UsedCount      int
	Status         uint8
	CreatedAt      int64
	UpdatedAt      int64
}

type TaskRepo struct {
	dbGetter txStdLib.DBGetter
	l        *log.Logger
}

func NewTaskRepo(dbGetter txStdLib.DBGetter, logger *log.Logger) *TaskRepo {
	return &TaskRepo{
		dbGetter: dbGetter,
		l:        logger,
	}
}

var _ pomomo.TaskStore = (*TaskRepo)(nil)

func (r *TaskRepo) InsertTask(ctx context.Context, task pomomo.TaskRecord) (pomomo.Task, error) {
	if task.UserID == "" || task.Title == "" {
		return pomomo.Task{}, fmt.Errorf("provide required fields 'UserID' and 'Title'")
	}
	if task.EstimatedCount < 1 {
		return pomomo.Task{}, fmt.Errorf("estimated count must be at least 1")
	}
	if task.Status == 0 {
		task.Status = pomomo.TaskPending
	}

	existing := pomomo.Task{
		ExistingRecord: pomomo.NewExistingRecord[pomomo.TaskID](uuid.NewString()),
		TaskRecord:     task,
	}
	e := mapToTaskEntity(existing)

	args := []any{
		e.ID,
		e.UserID,
		e.Title,
		e.EstimatedCount,
		e.UsedCount,
		e.Status,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := "INSERT INTO tasks (id, user_id, title, estimated_count, used_count, status, created_at, updated_at) VALUES " + GenerateParameters(len(args))
	r.l.Debug("creating task", "query", query, "args", args)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return pomomo.Task{}, err
	}

	return existing, nil
}

func (r *TaskRepo) GetTask(ctx context.Context, id pomomo.TaskID) (pomomo.Task, error) {
	if id == "" {
		return pomomo.Task{}, fmt.Errorf("provide id")
	}

	row := r.dbGetter(ctx).QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE id=?", SelectAllTasks), id,
	)
	return extractTask(row)
}

func (r *TaskRepo) IncrementUsed(ctx context.Context, id pomomo.TaskID) (pomomo.Task, error) {
	query := "UPDATE tasks SET used_count = used_count + 1, updated_at = ? WHERE id = ?"
	args := []any{time.Now().Unix(), id}
	r.l.Debug("incrementing task used count", "query", query, "args", args)
	res, err := r.dbGetter(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return pomomo.Task{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return pomomo.Task{}, err
	} else if n == 0 {
		return pomomo.Task{}, pomomo.ErrNotFound
	}

	return r.GetTask(ctx, id)
}

// MarkCompleted reports whether the task changed status.
func (r *TaskRepo) MarkCompleted(ctx context.Context, id pomomo.TaskID) (bool, error) {
	query := "UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status != ?"
	args := []any{uint8(pomomo.TaskCompleted), time.Now().Unix(), id, uint8(pomomo.TaskCompleted)}
	r.l.Debug("completing task", "query", query, "args", args)
	res, err := r.dbGetter(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	// already completed or gone
	if _, err := r.GetTask(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func extractTask(s scannable) (pomomo.Task, error) {
	var e taskEntity
	if err := s.Scan(&e.ID, &e.UserID, &e.Title, &e.EstimatedCount, &e.UsedCount, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pomomo.Task{}, pomomo.ErrNotFound
		}
		return pomomo.Task{}, err
	}

	return mapToTask(e), nil
}

func mapToTaskEntity(task pomomo.Task) taskEntity {
	return taskEntity{
		ID:             string(task.ID),
		UserID:         string(task.UserID),
		Title:          task.Title,
		EstimatedCount: task.EstimatedCount,
		UsedCount:      task.UsedCount,
		Status:         uint8(task.Status),
		CreatedAt:      task.CreatedAt.Unix(),
		UpdatedAt:      task.UpdatedAt.Unix(),
	}
}

func mapToTask(e taskEntity) pomomo.Task {
	return pomomo.Task{
		ExistingRecord: pomomo.ExistingRecord[pomomo.TaskID]{
			ID:        pomomo.TaskID(e.ID),
			CreatedAt: time.Unix(e.CreatedAt, 0),
			UpdatedAt: time.Unix(e.UpdatedAt, 0),
		},
		TaskRecord: pomomo.TaskRecord{
			UserID:         pomomo.UserID(e.UserID),
			Title:          e.Title,
			EstimatedCount: e.EstimatedCount,
			UsedCount:      e.UsedCount,
			Status:         pomomo.TaskStatus(e.Status),
		},
	}
}
