package pomomo

import (
	"context"
	"time"
)

type TaskStore interface {
	// GetTask returns ErrNotFound if the task no longer exists.
	GetTask(context.Context, TaskID) (Task, error)
	// IncrementUsed returns the post-increment task.
	IncrementUsed(context.Context, TaskID) (Task, error)
	MarkCompleted(context.Context, TaskID) (bool, error)
}

type SettingsProvider interface {
	GetSettings(context.Context, UserID) (Settings, error)
}

type SessionLog interface {
	Append(context.Context, FocusRecord) error
}

// NotificationSink must be safe to call from any goroutine.
type NotificationSink interface {
	Notify(context.Context, Notification) error
}

type FocusStats interface {
	// FocusSince totals intervals completed at or after since. A zero since
	// covers all time.
	FocusSince(ctx context.Context, uid UserID, since time.Time) (FocusSummary, error)
}
