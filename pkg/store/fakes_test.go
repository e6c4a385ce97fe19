package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/harrisonrobin/taskctx/pkg/model"
)

type memPersister struct {
	mu    sync.Mutex
	saved []model.Task
	saves int
}

func (p *memPersister) Load() []model.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Task, len(p.saved))
	for i, t := range p.saved {
		out[i] = t.Clone()
	}
	return out
}

func (p *memPersister) Save(tasks []model.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = tasks
	p.saves++
}

func (p *memPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

type fakeCalendar struct {
	mu     sync.Mutex
	authed bool
	// block, when set, holds CreateEvent until it is closed.
	block     chan struct{}
	createErr error
	updateErr error
	deleteErr error
	created   []model.EventRequest
	updated   []string
	lastReq   model.EventRequest
	deleted   []string
	nextID    int
}

func (c *fakeCalendar) IsAuthenticated() bool { return c.authed }

func (c *fakeCalendar) CreateEvent(_ context.Context, req model.EventRequest) (model.CalendarEvent, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return model.CalendarEvent{}, c.createErr
	}
	c.nextID++
	c.created = append(c.created, req)
	return model.CalendarEvent{ID: fmt.Sprintf("evt-%d", c.nextID), Title: req.Title, Start: req.Start, End: req.End()}, nil
}

func (c *fakeCalendar) UpdateEvent(_ context.Context, id string, req model.EventRequest) (model.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateErr != nil {
		return model.CalendarEvent{}, c.updateErr
	}
	c.updated = append(c.updated, id)
	c.lastReq = req
	return model.CalendarEvent{ID: id, Title: req.Title, Start: req.Start, End: req.End()}, nil
}

func (c *fakeCalendar) DeleteEvent(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deleted = append(c.deleted, id)
	return nil
}

var errBoom = errors.New("boom")

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

var epoch = time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

func seqIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func newTestStore(opts ...Option) (*Store, *memPersister, *bytes.Buffer) {
	p := &memPersister{}
	var buf bytes.Buffer
	clock := &stepClock{t: epoch, step: time.Minute}
	base := []Option{
		WithClock(clock.Now),
		WithIDGenerator(seqIDs()),
		WithLogger(log.New(&syncWriter{w: &buf}, "", 0)),
	}
	return New(p, append(base, opts...)...), p, &buf
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(b)
}
