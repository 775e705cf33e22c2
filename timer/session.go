package timer

import (
	"fmt"
	"time"

	"github.com/benjamonnguyen/pomomo-focus"
)

// session is the live countdown. It is only touched while holding Engine.mu.
type session struct {
	taskID    *pomomo.TaskID
	phase     pomomo.Phase
	total     int
	remaining int
	startedAt time.Time
}

func newFocusSession(taskID pomomo.TaskID, settings pomomo.Settings, now time.Time) *session {
	total := int(settings.FocusDuration() / time.Second)
	return &session{
		taskID:    &taskID,
		phase:     pomomo.FocusPhase,
		total:     total,
		remaining: total,
		startedAt: now,
	}
}

func newBreakSession(settings pomomo.Settings, now time.Time) *session {
	total := int(settings.BreakDuration() / time.Second)
	return &session{
		phase:     pomomo.BreakPhase,
		total:     total,
		remaining: total,
		startedAt: now,
	}
}

// tick advances the countdown by one second and reports whether it expired.
func (s *session) tick() bool {
	if s.remaining > 0 {
		s.remaining--
	}
	return s.remaining == 0
}

// creditedMinutes is the whole minutes counted down so far, never less than one.
func (s *session) creditedMinutes() int {
	return max(1, (s.total-s.remaining)/60)
}

// DisplayState is what callers render. It is a copy and safe to keep.
type DisplayState struct {
	State     pomomo.EngineState `json:"state"`
	Phase     pomomo.Phase       `json:"phase"`
	Remaining int                `json:"remaining_seconds"`
	Total     int                `json:"total_seconds"`
	TaskID    *pomomo.TaskID     `json:"task_id,omitempty"`
}

// Clock formats the remaining time as mm:ss.
func (d DisplayState) Clock() string {
	remaining := max(0, d.Remaining)
	return fmt.Sprintf("%02d:%02d", remaining/60, remaining%60)
}

func (d DisplayState) String() string {
	return fmt.Sprintf("%s+%s %s", d.State, d.Phase, d.Clock())
}

// Result is returned by every engine command.
type Result struct {
	DisplayState
	// NeedsTaskSelection means no Session was created because a focus phase
	// needs a task. Select one and call Start again.
	NeedsTaskSelection bool `json:"needs_task_selection"`
	// Locked means lock mode refused the command.
	Locked bool `json:"locked"`
}
