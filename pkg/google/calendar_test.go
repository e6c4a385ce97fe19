package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrisonrobin/taskctx/pkg/model"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type fakeTokens struct {
	mu      sync.Mutex
	authed  bool
	cleared int
}

func (f *fakeTokens) Authenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authed
}

func (f *fakeTokens) ClearToken() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authed = false
	f.cleared++
	return nil
}

// fakeAPI is a tiny in-memory Calendar v3 server.
type fakeAPI struct {
	mu           sync.Mutex
	events       map[string]*calendar.Event
	calendars    []string // calendar id of each request
	nextID       int
	unauthorized bool
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	api := &fakeAPI{events: map[string]*calendar.Event{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, &calendar.CalendarList{Items: []*calendar.CalendarListEntry{
			{Id: "primary-id", Summary: "Me"},
			{Id: "work-id", Summary: "Work"},
		}})
	})
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var e calendar.Event
		json.NewDecoder(r.Body).Decode(&e)
		api.mu.Lock()
		api.nextID++
		e.Id = fmt.Sprintf("evt%d", api.nextID)
		e.HtmlLink = "https://calendar.example/" + e.Id
		api.events[e.Id] = &e
		api.mu.Unlock()
		writeJSON(w, &e)
	})
	mux.HandleFunc("PATCH /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		e, ok := api.events[r.PathValue("id")]
		if !ok {
			writeError(w, http.StatusNotFound)
			return
		}
		var patch calendar.Event
		json.NewDecoder(r.Body).Decode(&patch)
		e.Summary, e.Description, e.Start, e.End = patch.Summary, patch.Description, patch.Start, patch.End
		writeJSON(w, e)
	})
	mux.HandleFunc("GET /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		e, ok := api.events[r.PathValue("id")]
		if !ok {
			writeError(w, http.StatusNotFound)
			return
		}
		writeJSON(w, e)
	})
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		if _, ok := api.events[r.PathValue("id")]; !ok {
			writeError(w, http.StatusGone)
			return
		}
		delete(api.events, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		filter := r.URL.Query().Get("privateExtendedProperty")
		timeMin, _ := time.Parse(time.RFC3339, r.URL.Query().Get("timeMin"))
		var items []*calendar.Event
		for _, e := range api.events {
			if !timeMin.IsZero() && e.Start != nil {
				if start, err := time.Parse(time.RFC3339, e.Start.DateTime); err == nil && start.Before(timeMin) {
					continue
				}
			}
			if filter != "" {
				kv := strings.SplitN(filter, "=", 2)
				if e.ExtendedProperties == nil || e.ExtendedProperties.Private[kv[0]] != kv[1] {
					continue
				}
			}
			items = append(items, e)
		}
		writeJSON(w, &calendar.Events{Items: items})
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		unauthorized := api.unauthorized
		if strings.HasPrefix(r.URL.Path, "/calendars/") {
			api.calendars = append(api.calendars, strings.Split(r.URL.Path, "/")[2])
		}
		api.mu.Unlock()
		if unauthorized {
			writeError(w, http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) event(id string) *calendar.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.events[id]
}

func (a *fakeAPI) eventCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

func (a *fakeAPI) calendarIDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calendars...)
}

func (a *fakeAPI) setUnauthorized(v bool) {
	a.mu.Lock()
	a.unauthorized = v
	a.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":"%s"}}`, code, http.StatusText(code))
}

var fixedNow = time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) (*CalendarClient, *fakeTokens, *bytes.Buffer) {
	t.Helper()
	tokens := &fakeTokens{authed: true}
	var logs bytes.Buffer
	factory := func(ctx context.Context) (*calendar.Service, error) {
		return calendar.NewService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	}
	base := []Option{WithLogger(log.New(&logs, "", 0)), WithClock(func() time.Time { return fixedNow })}
	return NewCalendarClient(factory, tokens, append(base, opts...)...), tokens, &logs
}

func reminder(taskID string) model.EventRequest {
	return model.EventRequest{
		TaskID:      taskID,
		Title:       "Resume: Write report",
		Description: "drafted outline",
		Start:       fixedNow.Add(2 * time.Hour),
	}
}

func TestCreateEvent(t *testing.T) {
	api, srv := newFakeAPI(t)
	c, _, _ := newTestClient(t, srv, WithTimeZone("Europe/Berlin"))

	event, err := c.CreateEvent(context.Background(), reminder("task-1"))
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if event.ID != "evt1" || event.TaskID != "task-1" || event.Title != "Resume: Write report" {
		t.Errorf("unexpected event: %+v", event)
	}
	if !event.End.Equal(event.Start.Add(30 * time.Minute)) {
		t.Errorf("default duration not applied: %v - %v", event.Start, event.End)
	}
	stored := api.event("evt1")
	if stored.Start.TimeZone != "Europe/Berlin" || stored.Description != "drafted outline" {
		t.Errorf("stored event: %+v", stored.Start)
	}
	if ids := api.calendarIDs(); ids[len(ids)-1] != "primary" {
		t.Errorf("calendar id = %v", ids)
	}
}

func TestCreateEventReusesExistingTaskEvent(t *testing.T) {
	api, srv := newFakeAPI(t)
	c, _, _ := newTestClient(t, srv)

	first, err := c.CreateEvent(context.Background(), reminder("task-1"))
	if err != nil {
		t.Fatal(err)
	}
	req := reminder("task-1")
	req.Title = "Resume: renamed"
	second, err := c.CreateEvent(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID || api.eventCount() != 1 {
		t.Errorf("expected the existing event to be patched, got %s and %d events", second.ID, api.eventCount())
	}
	if got := api.event(first.ID).Summary; got != "Resume: renamed" {
		t.Errorf("patch not applied: %q", got)
	}
}

func TestCreateEventReusesPastTaskEvent(t *testing.T) {
	api, srv := newFakeAPI(t)
	c, _, _ := newTestClient(t, srv)

	past := reminder("task-1")
	past.Start = fixedNow.Add(-3 * time.Hour)
	first, err := c.CreateEvent(context.Background(), past)
	if err != nil {
		t.Fatal(err)
	}

	second, err := c.CreateEvent(context.Background(), reminder("task-1"))
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID || api.eventCount() != 1 {
		t.Errorf("expected the past event to be moved, got %s and %d events", second.ID, api.eventCount())
	}
	if found, err := c.FindEventByTaskID(context.Background(), "task-1"); err != nil || found == nil || found.ID != first.ID {
		t.Errorf("FindEventByTaskID = %+v, %v", found, err)
	}
}

func TestListUpcomingSkipsPastEvents(t *testing.T) {
	_, srv := newFakeAPI(t)
	c, _, _ := newTestClient(t, srv)
	ctx := context.Background()
	past := reminder("a")
	past.Start = fixedNow.Add(-time.Hour)
	c.CreateEvent(ctx, past)
	c.CreateEvent(ctx, reminder("b"))

	events, err := c.ListUpcomingEvents(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].TaskID != "b" {
		t.Errorf("events = %+v", events)
	}
}

func TestUpdateGetDelete(t *testing.T) {
	_, srv := newFakeAPI(t)
	c, _, _ := newTestClient(t, srv)
	ctx := context.Background()

	created, err := c.CreateEvent(ctx, reminder(""))
	if err != nil {
		t.Fatal(err)
	}
	req := reminder("")
	req.Start = fixedNow.Add(5 * time.Hour)
	req.Duration = time.Hour
	if _, err := c.UpdateEvent(ctx, created.ID, req); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}

	got, err := c.GetEvent(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if !got.Start.Equal(req.Start) || !got.End.Equal(req.Start.Add(time.Hour)) {
		t.Errorf("update not applied: %+v", got)
	}

	if err := c.DeleteEvent(ctx, created.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	// already gone
	if err := c.DeleteEvent(ctx, created.ID); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if _, err := c.GetEvent(ctx, created.ID); err == nil {
		t.Errorf("expected error for deleted event")
	}
}

func TestListUpcomingEvents(t *testing.T) {
	_, srv := newFakeAPI(t)
	c, _, _ := newTestClient(t, srv)
	ctx := context.Background()
	c.CreateEvent(ctx, reminder("a"))
	c.CreateEvent(ctx, reminder("b"))

	events, err := c.ListUpcomingEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListUpcomingEvents: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events", len(events))
	}
}

func TestCalendarResolvedBySummary(t *testing.T) {
	api, srv := newFakeAPI(t)
	c, _, _ := newTestClient(t, srv, WithCalendarName("Work"))
	if _, err := c.CreateEvent(context.Background(), reminder("")); err != nil {
		t.Fatal(err)
	}
	if ids := api.calendarIDs(); ids[0] != "work-id" {
		t.Errorf("calendar id = %v", ids)
	}

	missing, _, _ := newTestClient(t, srv, WithCalendarName("Nope"))
	if _, err := missing.CreateEvent(context.Background(), reminder("")); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}

func TestUnauthorizedClearsToken(t *testing.T) {
	api, srv := newFakeAPI(t)
	c, tokens, _ := newTestClient(t, srv)
	api.setUnauthorized(true)

	_, err := c.CreateEvent(context.Background(), reminder("task-1"))
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("err = %v, want ErrAuthExpired", err)
	}
	if tokens.cleared == 0 || c.IsAuthenticated() {
		t.Errorf("token not cleared")
	}
}

func TestIsAuthenticated(t *testing.T) {
	c := NewCalendarClient(nil, &fakeTokens{authed: true})
	if !c.IsAuthenticated() {
		t.Error("expected authenticated")
	}
	if NewCalendarClient(nil, nil).IsAuthenticated() {
		t.Error("no token store means not authenticated")
	}
}

func TestParseEventTime(t *testing.T) {
	tests := []struct {
		in   *calendar.EventDateTime
		want time.Time
	}{
		{nil, time.Time{}},
		{&calendar.EventDateTime{DateTime: "2026-03-04T10:00:00+01:00"}, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)},
		{&calendar.EventDateTime{Date: "2026-03-04"}, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)},
		{&calendar.EventDateTime{DateTime: "garbage"}, time.Time{}},
	}
	for _, tt := range tests {
		if got := parseEventTime(tt.in); !got.Equal(tt.want) {
			t.Errorf("parseEventTime(%+v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
