package persist

import (
	"encoding/json"
	"strings"
	"time"
)

// CurrentVersion is written into every saved blob.
const CurrentVersion = 1

// Timestamp is a time stored as an ISO-8601 string.
// Decoding is lenient: empty, null or unparseable values decode to the zero time
// so a single bad field is defaulted instead of failing the whole load.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"20060102T150405Z",
}

// UnmarshalJSON implements the json.Unmarshaler interface for Timestamp.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	ts.Time = time.Time{}
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Timestamp.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.Time.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(ts.Time.UTC().Format(time.RFC3339Nano))
}

type envelope struct {
	Version int          `json:"version"`
	Tasks   []taskRecord `json:"tasks"`
}

type taskRecord struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Status          string          `json:"status"`
	CreatedAt       Timestamp       `json:"createdAt"`
	LastModified    Timestamp       `json:"lastModified"`
	Contexts        []contextRecord `json:"contexts"`
	CalendarEventID string          `json:"calendarEventId,omitempty"`
	AutoResumeTime  *Timestamp      `json:"autoResumeTime,omitempty"`
}

type contextRecord struct {
	ID              string    `json:"id"`
	Timestamp       Timestamp `json:"timestamp"`
	Note            string    `json:"note"`
	Links           []string  `json:"links"`
	NextAction      string    `json:"nextAction,omitempty"`
	AudioURL        string    `json:"audioUrl,omitempty"`
	AudioTranscript string    `json:"audioTranscript,omitempty"`
	Screenshot      string    `json:"screenshot,omitempty"`
}
