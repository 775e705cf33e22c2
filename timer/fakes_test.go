package timer

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benjamonnguyen/pomomo-focus"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

// fakeClock hands out tickers that only fire when the test calls Tick.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	current *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{c: make(chan time.Time)}
	c.current = t
	return t
}

func (c *fakeClock) ticker() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Tick delivers n ticks to the latest ticker. Each send returns once the
// loop has received it.
func (c *fakeClock) Tick(t *testing.T, n int) {
	t.Helper()
	for range n {
		require.True(t, c.tryTick(waitTimeout), "tick loop is not receiving")
	}
}

func (c *fakeClock) tryTick(timeout time.Duration) bool {
	ticker := c.ticker()
	if ticker == nil {
		return false
	}
	c.mu.Lock()
	c.now = c.now.Add(time.Second)
	now := c.now
	c.mu.Unlock()

	select {
	case ticker.c <- now:
		return true
	case <-time.After(timeout):
		return false
	}
}

type fakeTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time {
	return t.c
}

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fakeTasks is an in-memory TaskStore. The *Func fields override behavior.
type fakeTasks struct {
	mu            sync.Mutex
	tasks         map[pomomo.TaskID]pomomo.Task
	markCalls     int
	getFunc       func(pomomo.TaskID) (pomomo.Task, error)
	incrementFunc func(pomomo.TaskID) (pomomo.Task, error)
}

func newFakeTasks(tasks ...pomomo.Task) *fakeTasks {
	f := &fakeTasks{tasks: make(map[pomomo.TaskID]pomomo.Task)}
	for _, task := range tasks {
		f.tasks[task.ID] = task
	}
	return f
}

func (f *fakeTasks) GetTask(ctx context.Context, id pomomo.TaskID) (pomomo.Task, error) {
	if f.getFunc != nil {
		return f.getFunc(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return pomomo.Task{}, pomomo.ErrNotFound
	}
	return task, nil
}

func (f *fakeTasks) IncrementUsed(ctx context.Context, id pomomo.TaskID) (pomomo.Task, error) {
	if f.incrementFunc != nil {
		return f.incrementFunc(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return pomomo.Task{}, pomomo.ErrNotFound
	}
	task.UsedCount++
	f.tasks[id] = task
	return task, nil
}

func (f *fakeTasks) MarkCompleted(ctx context.Context, id pomomo.TaskID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	task, ok := f.tasks[id]
	if !ok {
		return false, pomomo.ErrNotFound
	}
	if task.IsCompleted() {
		return false, nil
	}
	task.Status = pomomo.TaskCompleted
	f.tasks[id] = task
	return true, nil
}

func (f *fakeTasks) get(id pomomo.TaskID) pomomo.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id]
}

func (f *fakeTasks) remove(id pomomo.TaskID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
}

func (f *fakeTasks) marks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markCalls
}

type fakeSettings struct {
	mu       sync.Mutex
	settings pomomo.Settings
	err      error
}

func (f *fakeSettings) GetSettings(ctx context.Context, uid pomomo.UserID) (pomomo.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings, f.err
}

func (f *fakeSettings) set(s pomomo.Settings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = s
}

type fakeLog struct {
	mu         sync.Mutex
	records    []pomomo.FocusRecord
	err        error
	appendFunc func(pomomo.FocusRecord)
}

func (f *fakeLog) Append(ctx context.Context, r pomomo.FocusRecord) error {
	if f.appendFunc != nil {
		f.appendFunc(r)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, r)
	return nil
}

func (f *fakeLog) all() []pomomo.FocusRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pomomo.FocusRecord(nil), f.records...)
}

type recordingSink struct {
	mu    sync.Mutex
	items []pomomo.Notification
}

func (s *recordingSink) Notify(ctx context.Context, n pomomo.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
	return nil
}

func (s *recordingSink) all() []pomomo.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pomomo.Notification(nil), s.items...)
}

func (s *recordingSink) messages() []string {
	var msgs []string
	for _, n := range s.all() {
		msgs = append(msgs, n.Message)
	}
	return msgs
}

func (s *recordingSink) find(substr string) (pomomo.Notification, bool) {
	for _, n := range s.all() {
		if strings.Contains(n.Message, substr) {
			return n, true
		}
	}
	return pomomo.Notification{}, false
}

func (s *recordingSink) waitFor(t *testing.T, substr string) pomomo.Notification {
	t.Helper()
	var found pomomo.Notification
	require.Eventually(t, func() bool {
		var ok bool
		found, ok = s.find(substr)
		return ok
	}, waitTimeout, 5*time.Millisecond, "no notification containing %q in %v", substr, s.messages())
	return found
}

type harness struct {
	engine   *Engine
	clock    *fakeClock
	tasks    *fakeTasks
	settings *fakeSettings
	log      *fakeLog
	sink     *recordingSink
}

func newHarness(t *testing.T, settings pomomo.Settings, tasks ...pomomo.Task) *harness {
	t.Helper()
	h := &harness{
		clock:    newFakeClock(),
		tasks:    newFakeTasks(tasks...),
		settings: &fakeSettings{settings: settings},
		log:      &fakeLog{},
		sink:     &recordingSink{},
	}
	h.engine = NewEngine(context.Background(), Config{
		UserID:   "u1",
		Tasks:    h.tasks,
		Settings: h.settings,
		Log:      h.log,
		Sink:     h.sink,
		Tx:       &mockTransactor{},
		Clock:    h.clock,
		Logger:   log.New(io.Discard),
	})
	t.Cleanup(h.engine.Close)
	return h
}

func (h *harness) waitState(t *testing.T, state pomomo.EngineState, phase pomomo.Phase) DisplayState {
	t.Helper()
	var d DisplayState
	require.Eventually(t, func() bool {
		d = h.engine.DisplayState()
		return d.State == state && d.Phase == phase
	}, waitTimeout, 5*time.Millisecond, "want %s+%s, got %s", state, phase, h.engine.DisplayState())
	return d
}

func (h *harness) waitRemaining(t *testing.T, remaining int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.engine.DisplayState().Remaining == remaining
	}, waitTimeout, 5*time.Millisecond, "want %d remaining, got %s", remaining, h.engine.DisplayState())
}

// mockTransactor counts units of work and runs them inline.
type mockTransactor struct {
	mu    sync.Mutex
	calls int
}

func (m *mockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return fn(ctx)
}

func newTask(id pomomo.TaskID, title string, estimated int) pomomo.Task {
	return pomomo.Task{
		ExistingRecord: pomomo.NewExistingRecord[pomomo.TaskID](string(id)),
		TaskRecord: pomomo.TaskRecord{
			UserID:         "u1",
			Title:          title,
			EstimatedCount: estimated,
			Status:         pomomo.TaskPending,
		},
	}
}

func ownedTask(uid pomomo.UserID, id pomomo.TaskID, title string, estimated int) pomomo.Task {
	task := newTask(id, title, estimated)
	task.UserID = uid
	return task
}

func taskRef(id pomomo.TaskID) *pomomo.TaskID {
	return &id
}
