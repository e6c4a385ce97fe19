package persist

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/taskctx/pkg/model"
	"github.com/harrisonrobin/taskctx/pkg/slot"
)

type failingSlots struct {
	getErr error
	setErr error
}

func (f failingSlots) Get(string) (string, bool, error) { return "", false, f.getErr }
func (f failingSlots) Set(string, string) error         { return f.setErr }
func (f failingSlots) Remove(string) error              { return nil }
func (f failingSlots) Close() error                     { return nil }

func newTestAdapter(s slot.Store) (*Adapter, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(s, "", log.New(&buf, "", 0)), &buf
}

func TestLoadMissingSlot(t *testing.T) {
	a, buf := newTestAdapter(slot.NewMemory())
	tasks := a.Load()
	if tasks == nil || len(tasks) != 0 {
		t.Fatalf("expected empty non-nil collection, got %#v", tasks)
	}
	if buf.Len() != 0 {
		t.Errorf("missing slot should not log, got %q", buf.String())
	}
}

func TestLoadUnparseableFailsSoft(t *testing.T) {
	mem := slot.NewMemory()
	_ = mem.Set(DefaultKey, "not json at all")
	a, buf := newTestAdapter(mem)

	if tasks := a.Load(); len(tasks) != 0 {
		t.Fatalf("expected empty collection, got %d tasks", len(tasks))
	}
	if !strings.Contains(buf.String(), "failed to parse tasks") {
		t.Errorf("expected parse warning in log, got %q", buf.String())
	}
}

func TestLoadReadErrorFailsSoft(t *testing.T) {
	a, buf := newTestAdapter(failingSlots{getErr: errors.New("disk gone")})
	if tasks := a.Load(); len(tasks) != 0 {
		t.Fatalf("expected empty collection, got %d tasks", len(tasks))
	}
	if !strings.Contains(buf.String(), "disk gone") {
		t.Errorf("expected read error in log, got %q", buf.String())
	}
}

func TestSaveQuotaFailsSoft(t *testing.T) {
	a, buf := newTestAdapter(failingSlots{setErr: slot.ErrQuotaExceeded})
	a.Save([]model.Task{{ID: "t1", Title: "x", Status: model.StatusActive}})
	if !strings.Contains(buf.String(), "quota exceeded") {
		t.Errorf("expected quota warning in log, got %q", buf.String())
	}
}

func TestSaveReplacesPriorValue(t *testing.T) {
	mem := slot.NewMemory()
	a, _ := newTestAdapter(mem)
	now := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)

	a.Save([]model.Task{{ID: "a", Title: "A", Status: model.StatusActive, CreatedAt: now, LastModified: now}})
	a.Save([]model.Task{{ID: "b", Title: "B", Status: model.StatusPaused, CreatedAt: now, LastModified: now}})

	tasks := a.Load()
	if len(tasks) != 1 || tasks[0].ID != "b" {
		t.Fatalf("expected only task b after second save, got %+v", tasks)
	}
}

func TestDecodeLegacyArray(t *testing.T) {
	legacy := `[
		{
			"id": "t1",
			"title": "Write report",
			"status": "paused",
			"createdAt": "2026-03-02T08:00:00.000Z",
			"lastModified": "2026-03-02T09:15:00.000Z",
			"contexts": [
				{"id": "c1", "timestamp": "2026-03-02T09:15:00.000Z", "note": "drafted outline", "links": ["http://x", ""], "nextAction": "add citations"}
			],
			"calendarEventId": "evt-1",
			"autoResumeTime": "2026-03-02T13:00:00.000Z"
		}
	]`
	tasks, err := Decode([]byte(legacy), time.Now())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.Status != model.StatusPaused || task.CalendarEventID != "evt-1" {
		t.Errorf("unexpected task fields: %+v", task)
	}
	wantCreated := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if !task.CreatedAt.Equal(wantCreated) {
		t.Errorf("CreatedAt = %v, want %v", task.CreatedAt, wantCreated)
	}
	if task.AutoResumeTime == nil || task.AutoResumeTime.Hour() != 13 {
		t.Errorf("AutoResumeTime = %v", task.AutoResumeTime)
	}
	if len(task.Contexts) != 1 || len(task.Contexts[0].Links) != 1 || task.Contexts[0].Links[0] != "http://x" {
		t.Errorf("unexpected contexts: %+v", task.Contexts)
	}
}

func TestDecodeDefaultsMissingFields(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	blob := `{"version":1,"tasks":[
		{"title":"only a title"},
		{"id":"t2","title":"  ","status":"weird","lastModified":"2026-03-01T10:00:00Z","contexts":[{"note":"n"}]},
		{"id":"t3","title":"bad time","createdAt":"yesterday-ish"}
	]}`
	tasks, err := Decode([]byte(blob), now)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}

	first := tasks[0]
	if first.ID == "" || first.Status != model.StatusActive || first.Contexts == nil {
		t.Errorf("first task not defaulted: %+v", first)
	}
	if !first.CreatedAt.Equal(now) || !first.LastModified.Equal(now) {
		t.Errorf("first task timestamps should default to now, got %v / %v", first.CreatedAt, first.LastModified)
	}

	second := tasks[1]
	if second.Title != untitledTask || second.Status != model.StatusActive {
		t.Errorf("second task not defaulted: %+v", second)
	}
	if !second.CreatedAt.Equal(second.LastModified) {
		t.Errorf("CreatedAt should default to LastModified, got %v", second.CreatedAt)
	}
	if c := second.Contexts[0]; c.ID == "" || !c.Timestamp.Equal(second.LastModified) || c.Links == nil {
		t.Errorf("context not defaulted: %+v", c)
	}

	if !tasks[2].CreatedAt.Equal(now) {
		t.Errorf("unparseable timestamp should be defaulted, got %v", tasks[2].CreatedAt)
	}
}

func TestDecodeNewerVersionBestEffort(t *testing.T) {
	blob := `{"version":2,"tasks":[{"id":"a","title":"keep me","status":"paused","priority":"high","createdAt":"2026-03-04T09:00:00Z","lastModified":"2026-03-04T09:00:00Z","contexts":[]}]}`
	tasks, err := Decode([]byte(blob), time.Now())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "keep me" || tasks[0].Status != model.StatusPaused {
		t.Errorf("tasks = %+v", tasks)
	}
	if v := BlobVersion([]byte(blob)); v != 2 {
		t.Errorf("BlobVersion = %d", v)
	}
}

func TestLoadNewerVersionKeepsTasksOnSave(t *testing.T) {
	mem := slot.NewMemory()
	_ = mem.Set(DefaultKey, `{"version":2,"tasks":[{"id":"a","title":"keep me","status":"active","createdAt":"2026-03-04T09:00:00Z","lastModified":"2026-03-04T09:00:00Z","contexts":[]}]}`)
	a, buf := newTestAdapter(mem)

	tasks := a.Load()
	if len(tasks) != 1 {
		t.Fatalf("loaded %d tasks, want 1", len(tasks))
	}
	if !strings.Contains(buf.String(), "newer version") {
		t.Errorf("expected version warning, got %q", buf.String())
	}

	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	tasks = append(tasks, model.Task{ID: "b", Title: "new", Status: model.StatusActive, CreatedAt: at, LastModified: at})
	a.Save(tasks)

	raw, _, _ := mem.Get(DefaultKey)
	if !strings.Contains(raw, "keep me") || !strings.Contains(raw, `"id":"b"`) {
		t.Errorf("save lost tasks: %s", raw)
	}
}

func TestLoadUnparseableBacksUpBeforeSave(t *testing.T) {
	mem := slot.NewMemory()
	_ = mem.Set(DefaultKey, "{truncated")
	a, _ := newTestAdapter(mem)

	a.Load()
	a.Save([]model.Task{{ID: "b", Title: "new", Status: model.StatusActive}})

	if bak, ok, _ := mem.Get(a.BackupKey()); !ok || bak != "{truncated" {
		t.Errorf("backup = %q, %v", bak, ok)
	}
	if raw, _, _ := mem.Get(DefaultKey); !strings.Contains(raw, `"id":"b"`) {
		t.Errorf("save did not proceed after backup: %s", raw)
	}
}

// getOnlySlots returns a stored value but rejects every write.
type getOnlySlots struct{ value string }

func (g getOnlySlots) Get(string) (string, bool, error) { return g.value, true, nil }
func (g getOnlySlots) Set(string, string) error         { return errors.New("read-only") }
func (g getOnlySlots) Remove(string) error              { return nil }
func (g getOnlySlots) Close() error                     { return nil }

func TestLoadUnparseableWithoutBackupRefusesSave(t *testing.T) {
	a, buf := newTestAdapter(getOnlySlots{value: "{truncated"})
	a.Load()
	buf.Reset()

	a.Save([]model.Task{{ID: "b", Title: "new", Status: model.StatusActive}})
	if !strings.Contains(buf.String(), "not saving tasks") {
		t.Errorf("expected save to be refused, got %q", buf.String())
	}
}

func TestEncodeWritesVersionAndISOTimes(t *testing.T) {
	at := time.Date(2026, 3, 4, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	data, err := Encode([]model.Task{{ID: "t1", Title: "x", Status: model.StatusActive, CreatedAt: at, LastModified: at}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"version":1`) {
		t.Errorf("missing version tag: %s", s)
	}
	if !strings.Contains(s, `"createdAt":"2026-03-04T08:30:00Z"`) {
		t.Errorf("createdAt not ISO-8601 UTC: %s", s)
	}
}
