package model

import "time"

// DefaultEventDuration is used when an EventRequest leaves Duration unset.
const DefaultEventDuration = 30 * time.Minute

// EventRequest describes a calendar event to create or update.
type EventRequest struct {
	// TaskID links the event back to the task that scheduled it.
	TaskID      string
	Title       string
	Description string
	Start       time.Time
	Duration    time.Duration
}

// End returns Start plus the request duration, falling back to DefaultEventDuration.
func (r EventRequest) End() time.Time {
	d := r.Duration
	if d <= 0 {
		d = DefaultEventDuration
	}
	return r.Start.Add(d)
}

// CalendarEvent is the part of an external calendar event that the core cares about.
type CalendarEvent struct {
	ID          string
	TaskID      string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Link        string
}
