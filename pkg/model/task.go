package model

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.Valid()
}

// Context is a point-in-time snapshot of progress on a task.
// Contexts are never mutated once appended to a task.
type Context struct {
	ID              string
	Timestamp       time.Time
	Note            string
	Links           []string
	NextAction      string
	AudioURL        string
	AudioTranscript string
	Screenshot      string // encoded image payload, usually a data: URL
}

// Task is a unit of work tracked through active, paused and completed.
type Task struct {
	ID           string
	Title        string
	Status       Status
	CreatedAt    time.Time
	LastModified time.Time
	// Contexts is append-only; insertion order is chronological order.
	Contexts []Context
	// CalendarEventID is set only while a pause-triggered calendar event exists.
	CalendarEventID string
	// AutoResumeTime is a hint for when the task should be resumed. Nothing enforces it.
	AutoResumeTime *time.Time
}

// LatestContext returns the most recent context, or nil when there is none.
func (t *Task) LatestContext() *Context {
	if len(t.Contexts) == 0 {
		return nil
	}
	return &t.Contexts[len(t.Contexts)-1]
}

// Clone returns a deep copy so callers can't reach into store-owned slices.
func (t Task) Clone() Task {
	out := t
	if t.Contexts != nil {
		out.Contexts = make([]Context, len(t.Contexts))
		for i, c := range t.Contexts {
			if c.Links != nil {
				c.Links = append([]string(nil), c.Links...)
			}
			out.Contexts[i] = c
		}
	}
	if t.AutoResumeTime != nil {
		at := *t.AutoResumeTime
		out.AutoResumeTime = &at
	}
	return out
}
