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

var ErrShutdown = errors.New("timer manager shut down")

type ManagerConfig struct {
	Tasks        pomomo.TaskStore
	Settings     pomomo.SettingsProvider
	Log          pomomo.SessionLog
	Sink         pomomo.NotificationSink
	Tx           transactor.Transactor
	Clock        Clock
	TickInterval time.Duration
	Logger       *log.Logger
}

// Manager lazily creates one Engine per user and owns their lifetimes.
type Manager struct {
	cfg       ManagerConfig
	parentCtx context.Context

	mu       sync.RWMutex
	engines  map[pomomo.UserID]*Engine
	onUpdate func(pomomo.UserID, DisplayState)
	closed   bool
}

func NewManager(ctx context.Context, cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Manager{
		cfg:       cfg,
		parentCtx: ctx,
		engines:   make(map[pomomo.UserID]*Engine),
	}
}

// Engine returns the user's engine, creating it on first use.
func (m *Manager) Engine(ctx context.Context, uid pomomo.UserID) (*Engine, error) {
	if uid == "" {
		return nil, fmt.Errorf("engine requires a user ID")
	}

	m.mu.RLock()
	e, ok := m.engines[uid]
	closed := m.closed
	m.mu.RUnlock()
	if ok {
		return e, nil
	}
	if closed {
		return nil, ErrShutdown
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrShutdown
	}
	if e, ok := m.engines[uid]; ok {
		return e, nil
	}

	e = NewEngine(m.parentCtx, Config{
		UserID:       uid,
		Tasks:        m.cfg.Tasks,
		Settings:     m.cfg.Settings,
		Log:          m.cfg.Log,
		Sink:         m.cfg.Sink,
		Tx:           m.cfg.Tx,
		Clock:        m.cfg.Clock,
		TickInterval: m.cfg.TickInterval,
		Logger:       m.cfg.Logger,
	})
	if m.onUpdate != nil {
		e.OnDisplayUpdate(m.bind(uid))
	}
	e.ReloadSettings(ctx)
	m.engines[uid] = e
	m.cfg.Logger.Debug("created engine", "uid", uid, "count", len(m.engines))
	return e, nil
}

func (m *Manager) Has(uid pomomo.UserID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.engines[uid]
	return ok
}

// OnDisplayUpdate registers a tick handler for every current and future engine.
func (m *Manager) OnDisplayUpdate(handler func(pomomo.UserID, DisplayState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = handler
	for uid, e := range m.engines {
		if handler == nil {
			e.OnDisplayUpdate(nil)
			continue
		}
		e.OnDisplayUpdate(m.bind(uid))
	}
}

func (m *Manager) bind(uid pomomo.UserID) func(DisplayState) {
	handler := m.onUpdate
	return func(d DisplayState) {
		handler(uid, d)
	}
}

// ReloadSettings refreshes the idle display of every engine.
func (m *Manager) ReloadSettings(ctx context.Context) {
	m.mu.RLock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, e := range m.engines {
		engines = append(engines, e)
	}
	m.mu.RUnlock()

	for _, e := range engines {
		e.ReloadSettings(ctx)
	}
}

// Shutdown stops every engine and waits for pending notifications to be
// delivered.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	m.closed = true
	engines := make([]*Engine, 0, len(m.engines))
	for _, e := range m.engines {
		engines = append(engines, e)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range engines {
		wg.Go(e.Close)
	}
	wg.Wait()
	m.cfg.Logger.Info("stopped engines", "count", len(engines))
	return nil
}
