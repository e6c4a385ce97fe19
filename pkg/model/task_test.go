package model

import (
	"testing"
	"time"
)

func TestLatestContext(t *testing.T) {
	task := &Task{}
	if got := task.LatestContext(); got != nil {
		t.Fatalf("expected nil latest context, got %+v", got)
	}

	task.Contexts = []Context{{ID: "a", Note: "first"}, {ID: "b", Note: "second"}}
	got := task.LatestContext()
	if got == nil || got.ID != "b" {
		t.Errorf("expected latest context b, got %+v", got)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"active", StatusActive, true},
		{"paused", StatusPaused, true},
		{"completed", StatusCompleted, true},
		{"done", "done", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStatus(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	resume := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	orig := Task{
		ID:             "t1",
		Contexts:       []Context{{ID: "c1", Links: []string{"http://x"}}},
		AutoResumeTime: &resume,
	}
	cp := orig.Clone()
	cp.Contexts[0].Links[0] = "http://changed"
	cp.Contexts = append(cp.Contexts, Context{ID: "c2"})
	*cp.AutoResumeTime = resume.Add(time.Hour)

	if orig.Contexts[0].Links[0] != "http://x" {
		t.Errorf("clone shares links with original")
	}
	if len(orig.Contexts) != 1 {
		t.Errorf("clone shares contexts slice with original")
	}
	if !orig.AutoResumeTime.Equal(resume) {
		t.Errorf("clone shares AutoResumeTime with original")
	}
}

func TestEventRequestEnd(t *testing.T) {
	start := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	if got := (EventRequest{Start: start}).End(); !got.Equal(start.Add(30 * time.Minute)) {
		t.Errorf("default end = %v", got)
	}
	if got := (EventRequest{Start: start, Duration: time.Hour}).End(); !got.Equal(start.Add(time.Hour)) {
		t.Errorf("explicit end = %v", got)
	}
}
