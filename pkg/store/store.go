// Package store owns the in-memory task collection. Every mutation is applied
// synchronously and persisted before it returns; calendar follow-ups run in
// the background and never undo a local change.
package store

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/taskctx/pkg/model"
)

var (
	// ErrInvalidInput is returned for blank titles, blank notes and unknown statuses.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when no task has the requested id.
	ErrNotFound = errors.New("task not found")
	// ErrAmbiguousID is returned when an id prefix matches more than one task.
	ErrAmbiguousID = errors.New("ambiguous task id")
)

// Persister loads and saves the whole collection. Implementations handle their
// own failures; the store never sees them.
type Persister interface {
	Load() []model.Task
	Save(tasks []model.Task)
}

// Calendar is the external calendar the store schedules resume reminders on.
type Calendar interface {
	IsAuthenticated() bool
	CreateEvent(ctx context.Context, req model.EventRequest) (model.CalendarEvent, error)
	UpdateEvent(ctx context.Context, eventID string, req model.EventRequest) (model.CalendarEvent, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// Store is the single owner of task state.
type Store struct {
	mu          sync.Mutex
	tasks       []model.Task
	selectedID  string
	showCapture bool

	persist       Persister
	calendar      Calendar
	logger        *log.Logger
	now           func() time.Time
	newID         func() string
	eventDuration time.Duration

	wg sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithCalendar enables calendar sync.
func WithCalendar(c Calendar) Option {
	return func(s *Store) { s.calendar = c }
}

// WithLogger sets the logger used for background sync failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithEventDuration sets the length of resume reminder events.
func WithEventDuration(d time.Duration) Option {
	return func(s *Store) { s.eventDuration = d }
}

// New creates an empty Store. A nil persister keeps tasks in memory only.
func New(p Persister, opts ...Option) *Store {
	s := &Store{
		tasks:         []model.Task{},
		persist:       p,
		logger:        log.Default(),
		now:           time.Now,
		newID:         uuid.NewString,
		eventDuration: model.DefaultEventDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collection with the persisted one.
func (s *Store) Load() {
	if s.persist == nil {
		return
	}
	tasks := s.persist.Load()
	if tasks == nil {
		tasks = []model.Task{}
	}
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
}

// Tasks returns a snapshot of every task in insertion order.
func (s *Store) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// ByStatus returns a snapshot of the tasks in the given status.
func (s *Store) ByStatus(status model.Status) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.Status == status {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Task returns a copy of the task with the given id.
func (s *Store) Task(id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Task{}, ErrNotFound
	}
	return s.tasks[i].Clone(), nil
}

// FindByPrefix resolves an exact id or a unique id prefix.
func (s *Store) FindByPrefix(prefix string) (model.Task, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return model.Task{}, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(prefix); i >= 0 {
		return s.tasks[i].Clone(), nil
	}
	match := -1
	for i, t := range s.tasks {
		if strings.HasPrefix(t.ID, prefix) {
			if match >= 0 {
				return model.Task{}, ErrAmbiguousID
			}
			match = i
		}
	}
	if match < 0 {
		return model.Task{}, ErrNotFound
	}
	return s.tasks[match].Clone(), nil
}

// SelectTask sets the task the UI is focused on. An empty id clears it.
// Selection is not persisted.
func (s *Store) SelectTask(id string) {
	s.mu.Lock()
	s.selectedID = id
	s.mu.Unlock()
}

// SelectedTaskID returns the current selection, or "" when nothing is selected.
func (s *Store) SelectedTaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// SelectedTask returns the selected task, if it still exists.
func (s *Store) SelectedTask() (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(s.selectedID)
	if i < 0 {
		return model.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

// SetShowContextCapture toggles the context capture form. Not persisted.
func (s *Store) SetShowContextCapture(show bool) {
	s.mu.Lock()
	s.showCapture = show
	s.mu.Unlock()
}

// ShowContextCapture reports whether the context capture form is open.
func (s *Store) ShowContextCapture() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showCapture
}

// Wait blocks until every background calendar sync has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// caller must hold s.mu
func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// caller must hold s.mu
func (s *Store) snapshot() []model.Task {
	out := make([]model.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// caller must hold s.mu
func (s *Store) save() {
	if s.persist == nil {
		return
	}
	s.persist.Save(s.snapshot())
}

// stamp moves LastModified to now, never backwards. Caller must hold s.mu.
func (s *Store) stamp(t *model.Task) {
	now := s.now()
	if now.Before(t.LastModified) {
		now = t.LastModified
	}
	t.LastModified = now
}
