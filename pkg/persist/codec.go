package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/taskctx/pkg/model"
)

const untitledTask = "Untitled task"

// Encode serializes the whole task collection as one versioned blob.
func Encode(tasks []model.Task) ([]byte, error) {
	env := envelope{
		Version: CurrentVersion,
		Tasks:   make([]taskRecord, 0, len(tasks)),
	}
	for _, t := range tasks {
		env.Tasks = append(env.Tasks, fromTask(t))
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding tasks: %w", err)
	}
	return data, nil
}

// BlobVersion reports the version tag of a blob, 0 for the legacy array or
// anything unreadable.
func BlobVersion(data []byte) int {
	var env struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return 0
	}
	return env.Version
}

// Decode parses a blob written by Encode. It also accepts the legacy shape,
// a bare JSON array of tasks. Missing fields are defaulted; now is used when a
// task carries no usable timestamp at all.
func Decode(data []byte, now time.Time) ([]model.Task, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []model.Task{}, nil
	}

	var records []taskRecord
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decoding legacy task array: %w", err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decoding task blob: %w", err)
		}
		// Newer versions are read best-effort; fields this version does not
		// know are dropped.
		records = env.Tasks
	default:
		return nil, fmt.Errorf("decoding task blob: unexpected leading byte %q", trimmed[0])
	}

	tasks := make([]model.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, r.toTask(now))
	}
	return tasks, nil
}

func fromTask(t model.Task) taskRecord {
	r := taskRecord{
		ID:              t.ID,
		Title:           t.Title,
		Status:          string(t.Status),
		CreatedAt:       Timestamp{t.CreatedAt},
		LastModified:    Timestamp{t.LastModified},
		Contexts:        make([]contextRecord, 0, len(t.Contexts)),
		CalendarEventID: t.CalendarEventID,
	}
	if t.AutoResumeTime != nil {
		r.AutoResumeTime = &Timestamp{*t.AutoResumeTime}
	}
	for _, c := range t.Contexts {
		links := c.Links
		if links == nil {
			links = []string{}
		}
		r.Contexts = append(r.Contexts, contextRecord{
			ID:              c.ID,
			Timestamp:       Timestamp{c.Timestamp},
			Note:            c.Note,
			Links:           links,
			NextAction:      c.NextAction,
			AudioURL:        c.AudioURL,
			AudioTranscript: c.AudioTranscript,
			Screenshot:      c.Screenshot,
		})
	}
	return r
}

func (r taskRecord) toTask(now time.Time) model.Task {
	t := model.Task{
		ID:              r.ID,
		Title:           r.Title,
		Status:          model.Status(r.Status),
		CreatedAt:       r.CreatedAt.Time,
		LastModified:    r.LastModified.Time,
		Contexts:        make([]model.Context, 0, len(r.Contexts)),
		CalendarEventID: r.CalendarEventID,
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if strings.TrimSpace(t.Title) == "" {
		t.Title = untitledTask
	}
	if !t.Status.Valid() {
		t.Status = model.StatusActive
	}
	if r.AutoResumeTime != nil && !r.AutoResumeTime.IsZero() {
		at := r.AutoResumeTime.Time
		t.AutoResumeTime = &at
	}

	switch {
	case t.CreatedAt.IsZero() && t.LastModified.IsZero():
		t.CreatedAt, t.LastModified = now, now
	case t.CreatedAt.IsZero():
		t.CreatedAt = t.LastModified
	case t.LastModified.IsZero():
		t.LastModified = t.CreatedAt
	}

	for _, cr := range r.Contexts {
		c := model.Context{
			ID:              cr.ID,
			Timestamp:       cr.Timestamp.Time,
			Note:            cr.Note,
			Links:           filterLinks(cr.Links),
			NextAction:      cr.NextAction,
			AudioURL:        cr.AudioURL,
			AudioTranscript: cr.AudioTranscript,
			Screenshot:      cr.Screenshot,
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Timestamp.IsZero() {
			c.Timestamp = t.LastModified
		}
		t.Contexts = append(t.Contexts, c)
	}
	return t
}

func filterLinks(links []string) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
