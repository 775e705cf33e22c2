// Package timer implements the per-user focus/break countdown engine.
package timer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thiht/transactor"
	"github.com/benjamonnguyen/pomomo-focus"
	"github.com/charmbracelet/log"
)

const opTimeout = 10 * time.Second

type Config struct {
	UserID   pomomo.UserID
	Tasks    pomomo.TaskStore
	Settings pomomo.SettingsProvider
	Log      pomomo.SessionLog
	Sink     pomomo.NotificationSink

	// Tx wraps the task counter increment and completion check. Optional.
	Tx           transactor.Transactor
	Clock        Clock
	TickInterval time.Duration
	Logger       *log.Logger
}

// Engine owns one user's countdown. All methods are safe for concurrent use.
type Engine struct {
	userID       pomomo.UserID
	tasks        pomomo.TaskStore
	provider     pomomo.SettingsProvider
	sessionLog   pomomo.SessionLog
	tx           transactor.Transactor
	clock        Clock
	tickInterval time.Duration
	l            *log.Logger
	notifier     *notifier
	parentCtx    context.Context

	// opMu serializes commands so their collaborator lookups can run
	// without holding mu.
	opMu sync.Mutex
	// completeMu is held for a whole phase completion. A completion outlives
	// a Reset, so the next loop's completion waits on it.
	completeMu sync.Mutex

	mu            sync.Mutex
	state         pomomo.EngineState
	session       *session
	pending       pomomo.Phase
	selected      *pomomo.TaskID
	settings      pomomo.Settings
	finishedTask  *pomomo.TaskID
	completing    bool
	cancel        context.CancelFunc
	onUpdate      func(DisplayState)

	loops sync.WaitGroup
}

func NewEngine(ctx context.Context, cfg Config) *Engine {
	if cfg.Tasks == nil || cfg.Settings == nil || cfg.Log == nil {
		panic("timer: Tasks, Settings and Log are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Tx == nil {
		cfg.Tx = passthroughTx{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	l := cfg.Logger.With("uid", cfg.UserID)

	return &Engine{
		userID:       cfg.UserID,
		tasks:        cfg.Tasks,
		provider:     cfg.Settings,
		sessionLog:   cfg.Log,
		tx:           cfg.Tx,
		clock:        cfg.Clock,
		tickInterval: cfg.TickInterval,
		l:            l,
		notifier:     newNotifier(cfg.Sink, l),
		parentCtx:    ctx,
		state:        pomomo.Idle,
		pending:      pomomo.FocusPhase,
		settings:     pomomo.DefaultSettings(),
	}
}

// OnDisplayUpdate registers a handler called from the tick goroutine after
// every tick. It must return quickly.
func (e *Engine) OnDisplayUpdate(handler func(DisplayState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onUpdate = handler
}

// DisplayState never blocks on collaborators. While Idle it reports the
// duration of the phase the next Start will begin.
func (e *Engine) DisplayState() DisplayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayLocked()
}

// SelectTask sets or clears (nil) the task the next focus phase counts toward.
func (e *Engine) SelectTask(taskID *pomomo.TaskID) DisplayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if taskID == nil {
		e.selected = nil
	} else {
		id := *taskID
		e.selected = &id
	}
	return e.displayLocked()
}

// ReloadSettings refreshes the snapshot used for the idle display. It does
// not affect a live Session.
func (e *Engine) ReloadSettings(ctx context.Context) {
	settings := e.loadSettings(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == pomomo.Idle {
		e.settings = settings
	}
}

func (e *Engine) Start(ctx context.Context, taskID *pomomo.TaskID) (Result, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	state := e.state
	if state == pomomo.Idle && taskID != nil {
		// the live Session keeps its task
		id := *taskID
		e.selected = &id
	}
	pending := e.pending
	selected := e.selected
	e.mu.Unlock()

	switch state {
	case pomomo.Running:
		return e.result(), nil
	case pomomo.Paused:
		return e.resume(ctx), nil
	}

	if pending == pomomo.BreakPhase {
		return e.startBreak(ctx), nil
	}
	return e.startFocus(ctx, selected)
}

func (e *Engine) startFocus(ctx context.Context, selected *pomomo.TaskID) (Result, error) {
	if selected == nil {
		e.notify(pomomo.SeverityWarning, "Select a task to start focusing.")
		return e.needsSelection(), nil
	}

	task, err := e.tasks.GetTask(ctx, *selected)
	switch {
	case errors.Is(err, pomomo.ErrNotFound):
		e.clearSelection()
		e.notify(pomomo.SeverityWarning, "That task no longer exists. Choose a new task.")
		return e.needsSelection(), nil
	case err != nil:
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("failed to start focus: %w", ctx.Err())
		}
		// starting must not depend on the task store being reachable
		e.l.Warn("failed to look up task - starting anyway", "tid", *selected, "err", err)
	case task.UserID != e.userID:
		e.l.Warn("rejected task owned by another user", "tid", *selected, "owner", task.UserID)
		e.clearSelection()
		e.notify(pomomo.SeverityWarning, "That task isn't yours. Choose one of your tasks.")
		return e.needsSelection(), nil
	case task.IsCompleted():
		e.clearSelection()
		e.notify(pomomo.SeverityWarning, fmt.Sprintf("%q is already completed. Choose a new task.", task.Title))
		return e.needsSelection(), nil
	}

	settings := e.loadSettings(ctx)

	e.mu.Lock()
	e.settings = settings
	e.finishedTask = nil
	e.session = newFocusSession(*selected, settings, e.clock.Now())
	e.state = pomomo.Running
	e.launchLocked()
	res := Result{DisplayState: e.displayLocked()}
	e.mu.Unlock()

	e.l.Debug("started focus", "tid", *selected, "seconds", res.Total)
	if task.Title != "" {
		e.notify(pomomo.SeverityPositive, fmt.Sprintf("Focus started: %s", task.Title))
	} else {
		e.notify(pomomo.SeverityPositive, "Focus started!")
	}
	return res, nil
}

func (e *Engine) startBreak(ctx context.Context) Result {
	settings := e.loadSettings(ctx)

	e.mu.Lock()
	e.settings = settings
	e.session = newBreakSession(settings, e.clock.Now())
	e.state = pomomo.Running
	e.launchLocked()
	res := Result{DisplayState: e.displayLocked()}
	e.mu.Unlock()

	e.l.Debug("started break", "seconds", res.Total)
	e.notify(pomomo.SeverityPositive, "Break started. Step away for a bit.")
	return res
}

func (e *Engine) Pause(ctx context.Context) (Result, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.state != pomomo.Running || e.completing {
		e.mu.Unlock()
		return e.result(), nil
	}
	if e.lockedLocked() {
		res := Result{DisplayState: e.displayLocked(), Locked: true}
		e.mu.Unlock()
		e.notify(pomomo.SeverityWarning, "Lock mode is on. Finish this focus session first.")
		return res, nil
	}
	e.cancelLoopLocked()
	e.state = pomomo.Paused
	res := Result{DisplayState: e.displayLocked()}
	e.mu.Unlock()

	e.notify(pomomo.SeverityInfo, fmt.Sprintf("Timer paused at %s.", res.Clock()))
	return res, nil
}

func (e *Engine) Resume(ctx context.Context) (Result, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.resume(ctx), nil
}

func (e *Engine) resume(ctx context.Context) Result {
	settings := e.loadSettings(ctx)

	e.mu.Lock()
	if e.state != pomomo.Paused {
		res := Result{DisplayState: e.displayLocked()}
		e.mu.Unlock()
		return res
	}
	// durations of the live Session stay as they were
	e.settings = settings
	e.state = pomomo.Running
	e.launchLocked()
	res := Result{DisplayState: e.displayLocked()}
	e.mu.Unlock()

	e.notify(pomomo.SeverityInfo, fmt.Sprintf("Timer resumed with %s left.", res.Clock()))
	return res
}

func (e *Engine) Reset(ctx context.Context) (Result, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.state == pomomo.Idle {
		changed := e.pending != pomomo.FocusPhase
		e.pending = pomomo.FocusPhase
		res := Result{DisplayState: e.displayLocked()}
		e.mu.Unlock()
		if changed {
			e.notify(pomomo.SeverityInfo, "Timer reset.")
		}
		return res, nil
	}
	if e.lockedLocked() {
		res := Result{DisplayState: e.displayLocked(), Locked: true}
		e.mu.Unlock()
		e.notify(pomomo.SeverityWarning, "Lock mode is on. Finish this focus session first.")
		return res, nil
	}
	e.cancelLoopLocked()
	e.session = nil
	e.state = pomomo.Idle
	e.pending = pomomo.FocusPhase
	res := Result{DisplayState: e.displayLocked()}
	e.mu.Unlock()

	e.notify(pomomo.SeverityInfo, "Timer reset.")
	return res, nil
}

// FastForward caps the remaining time of a running Session. It exists for
// development and tests.
func (e *Engine) FastForward(seconds int) DisplayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == pomomo.Running && e.session != nil && !e.completing {
		e.session.remaining = max(0, min(e.session.remaining, seconds))
	}
	return e.displayLocked()
}

// Close stops the tick loop, waits for it and flushes queued notifications.
func (e *Engine) Close() {
	e.mu.Lock()
	e.cancelLoopLocked()
	e.mu.Unlock()
	e.loops.Wait()
	e.notifier.Close()
}

func (e *Engine) result() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Result{DisplayState: e.displayLocked()}
}

func (e *Engine) needsSelection() Result {
	res := e.result()
	res.NeedsTaskSelection = true
	return res
}

func (e *Engine) clearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = nil
}

func (e *Engine) lockedLocked() bool {
	return e.settings.LockMode &&
		e.state == pomomo.Running &&
		e.session != nil && e.session.phase == pomomo.FocusPhase
}

func (e *Engine) displayLocked() DisplayState {
	d := DisplayState{
		State: e.state,
	}
	if e.selected != nil {
		id := *e.selected
		d.TaskID = &id
	}
	if e.session != nil && e.session.taskID != nil {
		id := *e.session.taskID
		d.TaskID = &id
	}
	if e.session != nil {
		d.Phase = e.session.phase
		d.Remaining = e.session.remaining
		d.Total = e.session.total
		return d
	}
	d.Phase = e.pending
	if e.pending == pomomo.BreakPhase {
		d.Total = int(e.settings.BreakDuration() / time.Second)
	} else {
		d.Total = int(e.settings.FocusDuration() / time.Second)
	}
	d.Remaining = d.Total
	return d
}

func (e *Engine) loadSettings(ctx context.Context) pomomo.Settings {
	settings, err := e.provider.GetSettings(ctx, e.userID)
	if err != nil {
		if !errors.Is(err, pomomo.ErrNotFound) {
			e.l.Warn("failed to get settings - using defaults", "err", err)
		}
		return pomomo.DefaultSettings()
	}
	if !settings.Valid() {
		e.l.Warn("invalid settings - using defaults", "focus", settings.FocusMinutes, "break", settings.BreakMinutes)
		return pomomo.DefaultSettings()
	}
	return settings
}

func (e *Engine) notify(severity pomomo.Severity, msg string) {
	e.notifier.Enqueue(pomomo.Notification{
		UserID:   e.userID,
		Message:  msg,
		Severity: severity,
		At:       e.clock.Now(),
	})
}

type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

var _ transactor.Transactor = passthroughTx{}
