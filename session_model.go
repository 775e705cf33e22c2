package pomomo

import (
	"time"
)

type (
	UserID string
	TaskID string
)

type Phase uint8

const (
	_ Phase = iota
	FocusPhase
	BreakPhase
)

func (p Phase) String() string {
	switch p {
	case FocusPhase:
		return "Focus"
	case BreakPhase:
		return "Break"
	default:
		return "None"
	}
}

type EngineState uint8

const (
	Idle EngineState = iota
	Running
	Paused
)

func (s EngineState) String() string {
	switch s {
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	default:
		return "Idle"
	}
}

// Settings is the per-user timer configuration. The engine copies it when a
// phase starts or resumes.
type Settings struct {
	FocusMinutes       int
	BreakMinutes       int
	AutoStartBreak     bool
	AutoStartNextFocus bool
	LockMode           bool
	// DailyGoalMinutes is the focus target stats report progress against.
	// The engine ignores it.
	DailyGoalMinutes int
}

const DefaultDailyGoalMinutes = 120

func DefaultSettings() Settings {
	return Settings{
		FocusMinutes:     25,
		BreakMinutes:     5,
		DailyGoalMinutes: DefaultDailyGoalMinutes,
	}
}

func (s Settings) FocusDuration() time.Duration {
	return time.Duration(s.FocusMinutes) * time.Minute
}

func (s Settings) BreakDuration() time.Duration {
	return time.Duration(s.BreakMinutes) * time.Minute
}

// Valid reports whether both durations are positive.
func (s Settings) Valid() bool {
	return s.FocusMinutes > 0 && s.BreakMinutes > 0
}

type SettingsRecord struct {
	UserID UserID
	Settings
}

type ExistingSettingsRecord struct {
	ExistingRecord[UserID]
	SettingsRecord
}

// FocusRecord is one completed focus interval.
type FocusRecord struct {
	UserID      UserID
	TaskID      *TaskID
	Minutes     int
	CompletedAt time.Time
}

type FocusRecordID string

type ExistingFocusRecord struct {
	ExistingRecord[FocusRecordID]
	FocusRecord
}
