// Package google implements the task store's calendar on Google Calendar v3.
package google

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/harrisonrobin/taskctx/pkg/model"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// ErrAuthExpired is returned after Google rejects the stored token. The token
// has already been cleared when this is returned.
var ErrAuthExpired = errors.New("authentication expired, please reconnect")

// TokenStore is the part of auth.Manager the client needs.
type TokenStore interface {
	Authenticated() bool
	ClearToken() error
}

// CalendarClient is a Google Calendar API client.
type CalendarClient struct {
	newService   ServiceFactory
	tokens       TokenStore
	calendarName string
	timeZone     string
	logger       *log.Logger
	now          func() time.Time

	mu         sync.Mutex
	srv        *calendar.Service
	calendarID string
}

type Option func(*CalendarClient)

// WithCalendarName selects a calendar by summary. Defaults to "primary".
func WithCalendarName(name string) Option {
	return func(c *CalendarClient) { c.calendarName = name }
}

// WithTimeZone sets the IANA zone written on new events.
func WithTimeZone(tz string) Option {
	return func(c *CalendarClient) { c.timeZone = tz }
}

func WithLogger(l *log.Logger) Option {
	return func(c *CalendarClient) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *CalendarClient) { c.now = now }
}

// NewCalendarClient creates a client. Nothing is contacted until the first call.
func NewCalendarClient(newService ServiceFactory, tokens TokenStore, opts ...Option) *CalendarClient {
	c := &CalendarClient{
		newService:   newService,
		tokens:       tokens,
		calendarName: "primary",
		logger:       log.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsAuthenticated reports whether a usable token is stored.
func (c *CalendarClient) IsAuthenticated() bool {
	return c.tokens != nil && c.tokens.Authenticated()
}

func (c *CalendarClient) service(ctx context.Context) (*calendar.Service, string, error) {
	c.mu.Lock()
	srv, calendarID := c.srv, c.calendarID
	c.mu.Unlock()
	if srv != nil {
		return srv, calendarID, nil
	}

	srv, err := c.newService(ctx)
	if err != nil {
		return nil, "", err
	}
	calendarID, err = resolveCalendarID(ctx, srv, c.calendarName)
	if err != nil {
		return nil, "", c.check(err)
	}

	c.mu.Lock()
	c.srv, c.calendarID = srv, calendarID
	c.mu.Unlock()
	return srv, calendarID, nil
}

// CreateEvent inserts a reminder. When the request carries a task id and an
// event for that task already exists, that event is patched instead
// so a task never collects duplicate reminders.
func (c *CalendarClient) CreateEvent(ctx context.Context, req model.EventRequest) (model.CalendarEvent, error) {
	srv, calendarID, err := c.service(ctx)
	if err != nil {
		return model.CalendarEvent{}, err
	}

	if req.TaskID != "" {
		existing, err := c.FindEventByTaskID(ctx, req.TaskID)
		if errors.Is(err, ErrAuthExpired) {
			return model.CalendarEvent{}, err
		}
		if err != nil {
			c.logger.Printf("Warning: could not search for existing event of task %s: %v", req.TaskID, err)
		} else if existing != nil {
			return c.UpdateEvent(ctx, existing.ID, req)
		}
	}

	created, err := srv.Events.Insert(calendarID, toAPIEvent(req, c.timeZone)).Context(ctx).Do()
	if err != nil {
		return model.CalendarEvent{}, c.check(err)
	}
	return fromAPIEvent(created), nil
}

// UpdateEvent performs a partial update on an event.
func (c *CalendarClient) UpdateEvent(ctx context.Context, eventID string, req model.EventRequest) (model.CalendarEvent, error) {
	srv, calendarID, err := c.service(ctx)
	if err != nil {
		return model.CalendarEvent{}, err
	}
	updated, err := srv.Events.Patch(calendarID, eventID, toAPIEvent(req, c.timeZone)).Context(ctx).Do()
	if err != nil {
		return model.CalendarEvent{}, c.check(err)
	}
	return fromAPIEvent(updated), nil
}

func (c *CalendarClient) GetEvent(ctx context.Context, eventID string) (model.CalendarEvent, error) {
	srv, calendarID, err := c.service(ctx)
	if err != nil {
		return model.CalendarEvent{}, err
	}
	event, err := srv.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return model.CalendarEvent{}, c.check(err)
	}
	return fromAPIEvent(event), nil
}

// DeleteEvent deletes an event from the calendar. An event that is already
// gone counts as deleted.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	srv, calendarID, err := c.service(ctx)
	if err != nil {
		return err
	}
	err = srv.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if isStatus(err, http.StatusNotFound) || isStatus(err, http.StatusGone) {
		return nil
	}
	return c.check(err)
}

// ListUpcomingEvents returns up to maxResults future events ordered by start time.
func (c *CalendarClient) ListUpcomingEvents(ctx context.Context, maxResults int64) ([]model.CalendarEvent, error) {
	srv, calendarID, err := c.service(ctx)
	if err != nil {
		return nil, err
	}
	events, err := srv.Events.List(calendarID).
		TimeMin(c.now().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar: %w", c.check(err))
	}
	out := make([]model.CalendarEvent, 0, len(events.Items))
	for _, e := range events.Items {
		out = append(out, fromAPIEvent(e))
	}
	return out, nil
}

// FindEventByTaskID returns the event tagged with taskID, or nil. Past events
// count too, so a reminder that has already fired is moved rather than
// duplicated.
func (c *CalendarClient) FindEventByTaskID(ctx context.Context, taskID string) (*model.CalendarEvent, error) {
	srv, calendarID, err := c.service(ctx)
	if err != nil {
		return nil, err
	}
	events, err := srv.Events.List(calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", taskIDProperty, taskID)).
		SingleEvents(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, c.check(err)
	}
	if len(events.Items) == 0 {
		return nil, nil
	}
	e := fromAPIEvent(events.Items[0])
	return &e, nil
}

// check turns a 401 into ErrAuthExpired after clearing the stored token.
func (c *CalendarClient) check(err error) error {
	if err == nil {
		return nil
	}
	if !isStatus(err, http.StatusUnauthorized) {
		return err
	}
	if c.tokens != nil {
		if cerr := c.tokens.ClearToken(); cerr != nil {
			c.logger.Printf("Warning: could not clear expired token: %v", cerr)
		}
	}
	c.mu.Lock()
	c.srv = nil
	c.mu.Unlock()
	return fmt.Errorf("%w: %v", ErrAuthExpired, err)
}

func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}
