// Package settings loads per-user timer settings from a YAML file.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/benjamonnguyen/pomomo-focus"
)

type yamlSettings struct {
	FocusMinutes       int   `yaml:"focus_minutes"`
	BreakMinutes       int   `yaml:"break_minutes"`
	AutoStartBreak     *bool `yaml:"auto_start_break"`
	AutoStartNextFocus *bool `yaml:"auto_start_next_focus"`
	LockMode           *bool `yaml:"lock_mode"`
	DailyGoalMinutes   *int  `yaml:"daily_goal_minutes"`
}

type yamlFile struct {
	Defaults yamlSettings            `yaml:"defaults"`
	Users    map[string]yamlSettings `yaml:"users"`
}

// FileProvider serves settings from a YAML file of the form
//
//	defaults:
//	  focus_minutes: 25
//	users:
//	  "1234":
//	    focus_minutes: 50
//	    auto_start_break: true
//
// Users missing from the file are looked up in the fallback provider, then
// get the file defaults.
type FileProvider struct {
	path     string
	fallback pomomo.SettingsProvider
	l        *log.Logger

	mu       sync.RWMutex
	defaults pomomo.Settings
	users    map[pomomo.UserID]pomomo.Settings
}

var _ pomomo.SettingsProvider = (*FileProvider)(nil)

// NewFileProvider loads path. A missing file is not an error. fallback may be nil.
func NewFileProvider(path string, fallback pomomo.SettingsProvider, l *log.Logger) (*FileProvider, error) {
	p := &FileProvider{
		path:     path,
		fallback: fallback,
		l:        l,
		defaults: pomomo.DefaultSettings(),
		users:    make(map[pomomo.UserID]pomomo.Settings),
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) GetSettings(ctx context.Context, uid pomomo.UserID) (pomomo.Settings, error) {
	p.mu.RLock()
	s, ok := p.users[uid]
	defaults := p.defaults
	p.mu.RUnlock()
	if ok {
		return s, nil
	}

	if p.fallback != nil {
		s, err := p.fallback.GetSettings(ctx, uid)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, pomomo.ErrNotFound) {
			return pomomo.Settings{}, err
		}
	}
	return defaults, nil
}

// Reload re-reads the file. On error the previous settings stay in effect.
func (p *FileProvider) Reload() error {
	raw, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		p.l.Debug("settings file not found - using defaults", "path", p.path)
		p.replace(pomomo.DefaultSettings(), map[pomomo.UserID]pomomo.Settings{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}

	var file yamlFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse settings yaml: %w", err)
	}

	defaults := pomomo.DefaultSettings()
	applyYamlSettings(&defaults, file.Defaults)
	users := make(map[pomomo.UserID]pomomo.Settings, len(file.Users))
	for uid, fileData := range file.Users {
		s := defaults
		applyYamlSettings(&s, fileData)
		users[pomomo.UserID(uid)] = s
	}

	p.replace(defaults, users)
	p.l.Info("loaded settings file", "path", p.path, "users", len(users))
	return nil
}

func (p *FileProvider) replace(defaults pomomo.Settings, users map[pomomo.UserID]pomomo.Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaults = defaults
	p.users = users
}

// Watch reloads the file whenever it changes until ctx is done. onReload,
// if set, runs after every successful reload.
func (p *FileProvider) Watch(ctx context.Context, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close() //nolint

	// editors replace files on save so watch the directory
	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	name := filepath.Clean(p.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := p.Reload(); err != nil {
				p.l.Error("failed to reload settings", "path", p.path, "err", err)
				continue
			}
			if onReload != nil {
				onReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.l.Warn("settings watcher error", "err", err)
		}
	}
}

func applyYamlSettings(settings *pomomo.Settings, fileData yamlSettings) {
	if fileData.FocusMinutes > 0 {
		settings.FocusMinutes = fileData.FocusMinutes
	}
	if fileData.BreakMinutes > 0 {
		settings.BreakMinutes = fileData.BreakMinutes
	}
	if fileData.AutoStartBreak != nil {
		settings.AutoStartBreak = *fileData.AutoStartBreak
	}
	if fileData.AutoStartNextFocus != nil {
		settings.AutoStartNextFocus = *fileData.AutoStartNextFocus
	}
	if fileData.LockMode != nil {
		settings.LockMode = *fileData.LockMode
	}
	if fileData.DailyGoalMinutes != nil && *fileData.DailyGoalMinutes >= 0 {
		settings.DailyGoalMinutes = *fileData.DailyGoalMinutes
	}
}
