package google

import (
	"time"

	"github.com/harrisonrobin/taskctx/pkg/model"
	"google.golang.org/api/calendar/v3"
)

// taskIDProperty is the private extended property linking an event to a task.
const taskIDProperty = "taskctx_id"

// toAPIEvent converts a request into a Calendar event. An empty timeZone
// leaves the zone implied by the RFC 3339 offset.
func toAPIEvent(req model.EventRequest, timeZone string) *calendar.Event {
	event := &calendar.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start: &calendar.EventDateTime{
			DateTime: req.Start.Format(time.RFC3339),
			TimeZone: timeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: req.End().Format(time.RFC3339),
			TimeZone: timeZone,
		},
	}
	if req.TaskID != "" {
		event.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: map[string]string{taskIDProperty: req.TaskID},
		}
	}
	return event
}

func fromAPIEvent(e *calendar.Event) model.CalendarEvent {
	out := model.CalendarEvent{
		ID:          e.Id,
		Title:       e.Summary,
		Description: e.Description,
		Start:       parseEventTime(e.Start),
		End:         parseEventTime(e.End),
		Link:        e.HtmlLink,
	}
	if e.ExtendedProperties != nil {
		out.TaskID = e.ExtendedProperties.Private[taskIDProperty]
	}
	return out
}

// parseEventTime handles both timed events and all-day events.
func parseEventTime(dt *calendar.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
	}
	if dt.Date != "" {
		if t, err := time.Parse(time.DateOnly, dt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}
