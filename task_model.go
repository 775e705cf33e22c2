package pomomo

type TaskStatus uint8

const (
	_ TaskStatus = iota
	TaskPending
	TaskCompleted
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

type TaskRecord struct {
	UserID         UserID
	Title          string
	EstimatedCount int
	UsedCount      int
	Status         TaskStatus
}

// Task is the engine's view of a task row.
type Task struct {
	ExistingRecord[TaskID]
	TaskRecord
}

func (t Task) Remaining() int {
	if r := t.EstimatedCount - t.UsedCount; r > 0 {
		return r
	}
	return 0
}

func (t Task) IsCompleted() bool {
	return t.Status == TaskCompleted
}
