package pomomo

import "time"

// FocusSummary totals the focus intervals in a window.
type FocusSummary struct {
	Minutes  int `json:"minutes"`
	Sessions int `json:"sessions"`
}

type GoalProgress struct {
	TargetMinutes    int     `json:"target_minutes"`
	CompletedMinutes int     `json:"completed_minutes"`
	RemainingMinutes int     `json:"remaining_minutes"`
	Percentage       float64 `json:"percentage"`
}

// NewGoalProgress caps Percentage at 100. A target of zero means no goal.
func NewGoalProgress(target, completed int) GoalProgress {
	p := GoalProgress{
		TargetMinutes:    target,
		CompletedMinutes: completed,
		RemainingMinutes: max(0, target-completed),
	}
	if target > 0 {
		p.Percentage = min(100, float64(completed)/float64(target)*100)
	}
	return p
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns the most recent Sunday midnight.
func StartOfWeek(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, -int(t.Weekday()))
}
