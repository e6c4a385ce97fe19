package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harrisonrobin/taskctx/pkg/model"
)

// SyncTaskWithCalendar mirrors the task's state onto the calendar in the
// background. It is a no-op when no calendar is configured or it is not
// authenticated. A paused task with resumeAt gets a reminder event (the
// existing one is updated if the task already has one); a completed task has
// its event deleted. Failures are logged and never change local state.
func (s *Store) SyncTaskWithCalendar(ctx context.Context, id string, resumeAt *time.Time) {
	if s.calendar == nil || !s.calendar.IsAuthenticated() {
		return
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Printf("calendar sync: task %s not found", id)
		return
	}
	task := s.tasks[i].Clone()
	s.mu.Unlock()

	var at *time.Time
	if resumeAt != nil {
		t := *resumeAt
		at = &t
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.syncTask(ctx, task, at); err != nil {
			s.logger.Printf("calendar sync: task %s: %v", task.ID, err)
		}
	}()
}

func (s *Store) syncTask(ctx context.Context, task model.Task, resumeAt *time.Time) error {
	switch {
	case task.Status == model.StatusPaused && resumeAt != nil:
		req := s.reminderRequest(task, *resumeAt)

		var (
			event model.CalendarEvent
			err   error
		)
		if task.CalendarEventID != "" {
			event, err = s.calendar.UpdateEvent(ctx, task.CalendarEventID, req)
			if err != nil {
				s.logger.Printf("calendar sync: could not update event %s, creating a new one: %v", task.CalendarEventID, err)
			}
		}
		if task.CalendarEventID == "" || err != nil {
			event, err = s.calendar.CreateEvent(ctx, req)
			if err != nil {
				return fmt.Errorf("create event: %w", err)
			}
		}

		recorded := s.apply(task.ID, func(t *model.Task) bool {
			if t.Status != model.StatusPaused {
				return false
			}
			t.CalendarEventID = event.ID
			t.AutoResumeTime = resumeAt
			return true
		})
		// The task was resumed or completed while the event was being written.
		if !recorded && event.ID != task.CalendarEventID {
			if err := s.calendar.DeleteEvent(ctx, event.ID); err != nil {
				return fmt.Errorf("delete event %s for task no longer paused: %w", event.ID, err)
			}
		}

	case task.Status == model.StatusCompleted && task.CalendarEventID != "":
		eventID := task.CalendarEventID
		if err := s.calendar.DeleteEvent(ctx, eventID); err != nil {
			return fmt.Errorf("delete event %s: %w", eventID, err)
		}
		s.apply(task.ID, func(t *model.Task) bool {
			if t.CalendarEventID != eventID {
				return false
			}
			t.CalendarEventID = ""
			return true
		})
	}
	return nil
}

func (s *Store) reminderRequest(task model.Task, start time.Time) model.EventRequest {
	req := model.EventRequest{
		TaskID:   task.ID,
		Title:    "Resume: " + task.Title,
		Start:    start,
		Duration: s.eventDuration,
	}
	if c := task.LatestContext(); c != nil {
		req.Description = c.Note
		if c.NextAction != "" {
			req.Description += "\n\nNext: " + c.NextAction
		}
	}
	return req
}

// apply runs a follow-up update on the current version of the task and
// persists it when fn reports a change. It returns false when the task no
// longer exists or fn declined. LastModified is left alone because the user
// did not touch the task.
func (s *Store) apply(id string, fn func(t *model.Task) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 || !fn(&s.tasks[i]) {
		return false
	}
	s.save()
	return true
}

// MarkOverdue flags the reminder of every paused task whose resume time has
// passed by prefixing its calendar title with "! ". It runs synchronously and
// returns how many events were patched. Tasks without an event are skipped.
func (s *Store) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	if s.calendar == nil || !s.calendar.IsAuthenticated() {
		return 0, nil
	}
	marked := 0
	var errs []error
	for _, task := range s.DueForResume(now) {
		if task.CalendarEventID == "" {
			continue
		}
		req := s.reminderRequest(task, *task.AutoResumeTime)
		req.Title = "! " + req.Title
		if _, err := s.calendar.UpdateEvent(ctx, task.CalendarEventID, req); err != nil {
			s.logger.Printf("calendar sync: could not mark event %s overdue: %v", task.CalendarEventID, err)
			errs = append(errs, err)
			continue
		}
		marked++
	}
	return marked, errors.Join(errs...)
}
