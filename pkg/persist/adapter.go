// Package persist loads and saves the whole task collection as a single blob
// in one slot of a local key-value store.
package persist

import (
	"log"
	"time"

	"github.com/harrisonrobin/taskctx/pkg/model"
	"github.com/harrisonrobin/taskctx/pkg/slot"
)

// DefaultKey is the slot the task collection lives in.
const DefaultKey = "task-context-restorer-tasks"

// Adapter reads and writes the task collection. Both directions fail soft:
// problems are logged and never returned to the caller.
type Adapter struct {
	slots  slot.Store
	key    string
	logger *log.Logger
	now    func() time.Time

	// readOnly is set when a stored blob could not be parsed or backed up;
	// saving would destroy it.
	readOnly bool
}

// New creates an Adapter over slots. An empty key selects DefaultKey and a nil
// logger selects log.Default().
func New(slots slot.Store, key string, logger *log.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{slots: slots, key: key, logger: logger, now: time.Now}
}

// Load returns the persisted tasks, or an empty collection when the slot is
// absent or cannot be parsed.
func (a *Adapter) Load() []model.Task {
	raw, ok, err := a.slots.Get(a.key)
	if err != nil {
		a.logger.Printf("Warning: failed to load tasks from slot %q: %v", a.key, err)
		return []model.Task{}
	}
	if !ok {
		return []model.Task{}
	}

	if v := BlobVersion([]byte(raw)); v > CurrentVersion {
		a.logger.Printf("Warning: tasks in slot %q were saved by a newer version (%d > %d), unknown fields will be dropped on save", a.key, v, CurrentVersion)
	}
	tasks, err := Decode([]byte(raw), a.now())
	if err != nil {
		a.logger.Printf("Warning: failed to parse tasks from slot %q: %v", a.key, err)
		a.backup(raw)
		return []model.Task{}
	}
	return tasks
}

// backup copies an unparseable blob to BackupKey so the next save does not
// erase it. If that fails, saves are refused for the rest of the session.
func (a *Adapter) backup(raw string) {
	key := a.BackupKey()
	if err := a.slots.Set(key, raw); err != nil {
		a.logger.Printf("Warning: could not back up slot %q, not saving tasks this session: %v", a.key, err)
		a.readOnly = true
		return
	}
	a.logger.Printf("Warning: unreadable tasks backed up to slot %q", key)
}

// BackupKey is the slot an unreadable blob is copied to.
func (a *Adapter) BackupKey() string {
	return a.key + ".bak"
}

// Save replaces the persisted blob with tasks.
func (a *Adapter) Save(tasks []model.Task) {
	if a.readOnly {
		a.logger.Printf("Warning: not saving tasks, slot %q holds data that could not be read", a.key)
		return
	}
	data, err := Encode(tasks)
	if err != nil {
		a.logger.Printf("Warning: failed to save tasks: %v", err)
		return
	}
	if err := a.slots.Set(a.key, string(data)); err != nil {
		a.logger.Printf("Warning: failed to save tasks to slot %q: %v", a.key, err)
	}
}
