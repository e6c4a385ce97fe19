// Package app wires configuration, storage, the calendar and the task store
// together. The App it returns is the one owner of task state; commands get
// it passed in rather than reaching for globals.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/harrisonrobin/taskctx/pkg/auth"
	"github.com/harrisonrobin/taskctx/pkg/capture"
	"github.com/harrisonrobin/taskctx/pkg/config"
	"github.com/harrisonrobin/taskctx/pkg/google"
	"github.com/harrisonrobin/taskctx/pkg/model"
	"github.com/harrisonrobin/taskctx/pkg/persist"
	"github.com/harrisonrobin/taskctx/pkg/slot"
	"github.com/harrisonrobin/taskctx/pkg/stats"
	"github.com/harrisonrobin/taskctx/pkg/store"
)

// Calendar is what the commands need from the calendar on top of what the
// store uses.
type Calendar interface {
	store.Calendar
	ListUpcomingEvents(ctx context.Context, maxResults int64) ([]model.CalendarEvent, error)
}

// App holds every service dependency of taskctx.
type App struct {
	Dir        string
	ConfigPath string
	Config     *config.Config
	Logger     *log.Logger
	Now        func() time.Time
	WeekStart  time.Weekday

	Slots    slot.Store
	Store    *store.Store
	Auth     *auth.Manager
	Calendar Calendar

	Screenshots capture.Screenshotter
	Voice       capture.VoiceRecorder
}

type Option func(*App)

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.Now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.Logger = l
		}
	}
}

// WithCalendar replaces the Google Calendar client.
func WithCalendar(c Calendar) Option {
	return func(a *App) { a.Calendar = c }
}

// WithSlots replaces the configured slot store.
func WithSlots(s slot.Store) Option {
	return func(a *App) { a.Slots = s }
}

// New builds an App from cfg. dir holds credentials, tokens and, unless
// configured otherwise, the slot store. The persisted tasks are loaded before
// New returns.
func New(cfg *config.Config, dir, configPath string, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{
		Dir:        dir,
		ConfigPath: configPath,
		Config:     cfg,
		Logger:     log.Default(),
		Now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	weekStart, err := cfg.WeekStart()
	if err != nil {
		return nil, err
	}
	a.WeekStart = weekStart

	if a.Slots == nil {
		a.Slots, err = openSlots(cfg, dir, a.Logger)
		if err != nil {
			return nil, err
		}
	}

	a.Auth = auth.NewManager(dir, a.Logger)
	if a.Calendar == nil {
		a.Calendar = google.NewCalendarClient(
			google.ServiceFromAuth(a.Auth),
			a.Auth,
			google.WithCalendarName(cfg.Calendar.Name),
			google.WithTimeZone(cfg.Calendar.TimeZone),
			google.WithLogger(a.Logger),
			google.WithClock(a.Now),
		)
	}

	a.Screenshots = capture.NewScreenshotter()
	a.Voice = capture.NewProcessRecorder(filepath.Join(dir, "recordings"))

	a.Store = store.New(
		persist.New(a.Slots, cfg.Storage.Key, a.Logger),
		store.WithCalendar(a.Calendar),
		store.WithLogger(a.Logger),
		store.WithClock(a.Now),
		store.WithEventDuration(cfg.EventDuration()),
	)
	a.Store.Load()
	return a, nil
}

func openSlots(cfg *config.Config, dir string, logger *log.Logger) (slot.Store, error) {
	path := cfg.StoragePath(dir)
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return slot.NewMemory(), nil
	case config.BackendSQLite:
		return slot.NewSQLiteStore(path)
	case config.BackendFile:
		return slot.NewFileStore(path, cfg.Storage.QuotaBytes, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// Dashboard computes the statistics for the current task collection.
func (a *App) Dashboard() stats.Dashboard {
	return stats.Compute(a.Store.Tasks(), a.Now(), a.WeekStart)
}

// Close waits for pending calendar syncs and releases storage.
func (a *App) Close() error {
	if a.Store != nil {
		a.Store.Wait()
	}
	if a.Slots != nil {
		return a.Slots.Close()
	}
	return nil
}

// SaveConfig writes the current configuration back to disk.
func (a *App) SaveConfig() error {
	if a.Config == nil {
		return errors.New("no configuration loaded")
	}
	return config.Save(a.ConfigPath, a.Config)
}
