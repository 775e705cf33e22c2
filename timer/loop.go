package timer

import (
	"context"
	"errors"
	"fmt"

	"github.com/benjamonnguyen/pomomo-focus"
)

// transition is the outcome of a phase completion, applied atomically once
// all side effects are done.
type transition struct {
	settings     pomomo.Settings
	next         *session
	pending      pomomo.Phase
	clearTask    *pomomo.TaskID
	finishedTask *pomomo.TaskID
	notice       string
}

// launchLocked starts a tick loop for the current Session. The ticker is
// created before returning so the first tick is measured from now.
func (e *Engine) launchLocked() {
	e.cancelLoopLocked()
	ctx, cancel := context.WithCancel(e.parentCtx)
	e.cancel = cancel
	ticker := e.clock.NewTicker(e.tickInterval)
	e.loops.Go(func() {
		defer ticker.Stop()
		e.run(ctx, ticker)
	})
}

func (e *Engine) cancelLoopLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.completing = false
}

func (e *Engine) run(ctx context.Context, ticker Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !e.tick(ctx) {
				return
			}
		}
	}
}

// tick reports whether the loop should keep going.
func (e *Engine) tick(ctx context.Context) bool {
	e.mu.Lock()
	if ctx.Err() != nil || e.session == nil || e.state != pomomo.Running {
		e.mu.Unlock()
		return false
	}
	expired := e.session.tick()
	display := e.displayLocked()
	onUpdate := e.onUpdate
	var finished session
	if expired {
		e.completing = true
		finished = *e.session
	}
	e.mu.Unlock()

	if onUpdate != nil {
		onUpdate(display)
	}
	if !expired {
		return true
	}
	return e.complete(ctx, finished)
}

func (e *Engine) complete(ctx context.Context, finished session) bool {
	e.completeMu.Lock()
	defer e.completeMu.Unlock()

	// Reset during completion must not lose the credit.
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opTimeout)
	defer cancel()

	var t transition
	if finished.phase == pomomo.FocusPhase {
		t = e.completeFocus(bctx, finished)
	} else {
		t = e.completeBreak(bctx)
	}
	return e.apply(ctx, t)
}

func (e *Engine) completeFocus(ctx context.Context, finished session) transition {
	var t transition
	record := pomomo.FocusRecord{
		UserID:      e.userID,
		TaskID:      finished.taskID,
		Minutes:     finished.creditedMinutes(),
		CompletedAt: e.clock.Now(),
	}
	if err := e.sessionLog.Append(ctx, record); err != nil {
		e.l.Error("failed to append focus record", "minutes", record.Minutes, "err", err)
		e.notify(pomomo.SeverityNegative, "Failed to save your focus session.")
	}

	if finished.taskID != nil {
		task, completed, err := e.creditTask(ctx, *finished.taskID)
		switch {
		case errors.Is(err, pomomo.ErrNotFound):
			t.clearTask = finished.taskID
			e.notify(pomomo.SeverityWarning, "The focused task no longer exists. Choose a new task.")
		case err != nil:
			e.l.Error("failed to credit task", "tid", *finished.taskID, "err", err)
			e.notify(pomomo.SeverityNegative, "Failed to update task progress.")
		case completed:
			t.finishedTask = finished.taskID
			e.notify(pomomo.SeverityPositive, fmt.Sprintf("Task %q completed!", task.Title))
		default:
			e.notify(pomomo.SeverityInfo, remainingMessage(task))
		}
	}

	e.notify(pomomo.SeverityPositive, "Focus complete! Time for a break.")

	t.settings = e.loadSettings(ctx)
	if t.settings.AutoStartBreak {
		t.next = newBreakSession(t.settings, e.clock.Now())
		return t
	}
	t.pending = pomomo.BreakPhase
	t.notice = "Press start to begin your break."
	return t
}

// creditTask counts one used session and completes the task once the
// estimate is reached.
func (e *Engine) creditTask(ctx context.Context, id pomomo.TaskID) (pomomo.Task, bool, error) {
	var (
		task      pomomo.Task
		completed bool
	)
	err := e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := e.tasks.IncrementUsed(ctx, id); err != nil {
			return err
		}
		var err error
		task, err = e.tasks.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if task.IsCompleted() {
			completed = true
			return nil
		}
		if task.UsedCount < task.EstimatedCount {
			return nil
		}
		if _, err := e.tasks.MarkCompleted(ctx, id); err != nil {
			return err
		}
		task.Status = pomomo.TaskCompleted
		completed = true
		return nil
	})
	if err != nil {
		return pomomo.Task{}, false, err
	}
	e.l.Debug("credited task", "tid", id, "used", task.UsedCount, "estimated", task.EstimatedCount)
	return task, completed, nil
}

func (e *Engine) completeBreak(ctx context.Context) transition {
	e.notify(pomomo.SeverityPositive, "Break complete!")

	e.mu.Lock()
	finishedTask := e.finishedTask
	var selected *pomomo.TaskID
	if e.selected != nil {
		id := *e.selected
		selected = &id
	}
	e.mu.Unlock()

	t := transition{
		settings: e.loadSettings(ctx),
		pending:  pomomo.FocusPhase,
	}
	// a task picked during the break replaces the finished one
	if finishedTask != nil && (selected == nil || *selected == *finishedTask) {
		t.clearTask = finishedTask
		t.notice = "Task finished - choose a new task."
		return t
	}
	if t.settings.AutoStartNextFocus && selected != nil {
		t.next = newFocusSession(*selected, t.settings, e.clock.Now())
		t.notice = "Next focus session started."
		return t
	}
	t.notice = "Press start to begin the next focus session."
	return t
}

// apply commits a completion. Selection changes stick even when the loop was
// cancelled meanwhile; the state change does not.
func (e *Engine) apply(ctx context.Context, t transition) bool {
	e.mu.Lock()
	if t.clearTask != nil && e.selected != nil && *e.selected == *t.clearTask {
		e.selected = nil
	}
	if ctx.Err() != nil {
		e.mu.Unlock()
		return false
	}

	e.completing = false
	e.settings = t.settings
	e.finishedTask = t.finishedTask
	keepRunning := t.next != nil
	if keepRunning {
		e.session = t.next
		e.state = pomomo.Running
	} else {
		e.session = nil
		e.state = pomomo.Idle
		e.pending = t.pending
		e.cancelLoopLocked()
	}
	display := e.displayLocked()
	onUpdate := e.onUpdate
	e.mu.Unlock()

	if t.notice != "" {
		e.notify(pomomo.SeverityInfo, t.notice)
	}
	if onUpdate != nil {
		onUpdate(display)
	}
	return keepRunning
}

func remainingMessage(task pomomo.Task) string {
	n := task.Remaining()
	if n == 1 {
		return fmt.Sprintf("1 session remaining for %q.", task.Title)
	}
	return fmt.Sprintf("%d sessions remaining for %q.", n, task.Title)
}
