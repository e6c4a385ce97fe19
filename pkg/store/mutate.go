package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harrisonrobin/taskctx/pkg/model"
)

// ContextInput is what the user captures when leaving a task.
type ContextInput struct {
	Note            string
	Links           []string
	NextAction      string
	AudioURL        string
	AudioTranscript string
	Screenshot      string
}

// AddTask creates an active task with the trimmed title.
func (s *Store) AddTask(title string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	task := model.Task{
		ID:           s.newID(),
		Title:        title,
		Status:       model.StatusActive,
		CreatedAt:    now,
		LastModified: now,
		Contexts:     []model.Context{},
	}
	s.tasks = append(s.tasks, task)
	s.save()
	return task.Clone(), nil
}

// UpdateTaskStatus sets any status on any task; transitions are not checked.
func (s *Store) UpdateTaskStatus(id string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.tasks[i].Status = status
	s.stamp(&s.tasks[i])
	s.save()
	return nil
}

// AddContext appends a new snapshot to the task. Blank links are dropped.
func (s *Store) AddContext(id string, in ContextInput) (model.Context, error) {
	if strings.TrimSpace(in.Note) == "" {
		return model.Context{}, fmt.Errorf("%w: note is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Context{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	links := make([]string, 0, len(in.Links))
	for _, l := range in.Links {
		if strings.TrimSpace(l) != "" {
			links = append(links, l)
		}
	}

	task := &s.tasks[i]
	s.stamp(task)
	c := model.Context{
		ID:              s.newID(),
		Timestamp:       task.LastModified,
		Note:            in.Note,
		Links:           links,
		NextAction:      in.NextAction,
		AudioURL:        in.AudioURL,
		AudioTranscript: in.AudioTranscript,
		Screenshot:      in.Screenshot,
	}
	task.Contexts = append(task.Contexts, c)
	s.save()

	c.Links = append([]string(nil), links...)
	return c, nil
}

// Pause captures the user's context, parks the task and, when resumeAt is
// set, schedules a reminder on the calendar.
func (s *Store) Pause(ctx context.Context, id string, in ContextInput, resumeAt *time.Time) error {
	if _, err := s.AddContext(id, in); err != nil {
		return err
	}
	if err := s.UpdateTaskStatus(id, model.StatusPaused); err != nil {
		return err
	}
	s.SetShowContextCapture(false)
	s.SelectTask("")
	s.SyncTaskWithCalendar(ctx, id, resumeAt)
	return nil
}

// Resume makes the task active again and selects it.
func (s *Store) Resume(id string) error {
	if err := s.UpdateTaskStatus(id, model.StatusActive); err != nil {
		return err
	}
	s.SelectTask(id)
	return nil
}

// Complete marks the task done and removes its reminder event, if any.
func (s *Store) Complete(ctx context.Context, id string) error {
	if err := s.UpdateTaskStatus(id, model.StatusCompleted); err != nil {
		return err
	}
	if s.SelectedTaskID() == id {
		s.SelectTask("")
	}
	s.SyncTaskWithCalendar(ctx, id, nil)
	return nil
}

// DueForResume lists paused tasks whose resume time is at or before now,
// earliest first. Nothing resumes them automatically.
func (s *Store) DueForResume(now time.Time) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []model.Task
	for _, t := range s.tasks {
		if t.Status == model.StatusPaused && t.AutoResumeTime != nil && !t.AutoResumeTime.After(now) {
			due = append(due, t.Clone())
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].AutoResumeTime.Before(*due[j].AutoResumeTime)
	})
	return due
}
