package capture

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

// Recording is the result of a voice memo.
type Recording struct {
	AudioURL   string
	Transcript string
}

// VoiceRecorder records a memo between Start and Stop.
type VoiceRecorder interface {
	Start(ctx context.Context) error
	Stop() (Recording, error)
}

// ProcessRecorder records through an external tool that writes to a file and
// finishes cleanly on interrupt. A transcript is picked up from a sidecar file
// named after the audio file with a .txt extension, if one appears.
type ProcessRecorder struct {
	Dir     string
	Command CommandFunc

	mu   sync.Mutex
	cmd  *exec.Cmd
	path string
	done chan error
}

// NewProcessRecorder stores recordings in dir, using arecord on Linux and
// sox's rec on macOS.
func NewProcessRecorder(dir string) *ProcessRecorder {
	return &ProcessRecorder{Dir: dir, Command: defaultRecordCommand}
}

func defaultRecordCommand(ctx context.Context, path string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "linux":
		return exec.CommandContext(ctx, "arecord", "-q", "-f", "cd", path), nil
	case "darwin":
		return exec.CommandContext(ctx, "rec", "-q", path), nil
	default:
		return nil, fmt.Errorf("unsupported OS for voice capture: %s", runtime.GOOS)
	}
}

func (r *ProcessRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return ErrAlreadyRecording
	}
	if err := os.MkdirAll(r.Dir, 0700); err != nil {
		return fmt.Errorf("creating recordings directory: %w", err)
	}

	path := filepath.Join(r.Dir, fmt.Sprintf("memo-%d.wav", time.Now().UnixMilli()))
	cmd, err := r.Command(ctx, path)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting recorder: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	r.cmd, r.path, r.done = cmd, path, done
	return nil
}

// Stop interrupts the recorder and returns the memo.
func (r *ProcessRecorder) Stop() (Recording, error) {
	r.mu.Lock()
	cmd, path, done := r.cmd, r.path, r.done
	r.cmd, r.path, r.done = nil, "", nil
	r.mu.Unlock()
	if cmd == nil {
		return Recording{}, ErrNotRecording
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		cmd.Process.Kill()
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cmd.Process.Kill()
		<-done
	}

	// the exit status after an interrupt is tool-specific, so only the file counts
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return Recording{}, fmt.Errorf("no audio was recorded, check microphone permissions")
	}
	return AttachRecording(path, sidecarTranscript(path))
}

func sidecarTranscript(audioPath string) string {
	p := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".txt"
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// AttachRecording references an existing audio file and, optionally, reads its
// transcript from transcriptPath.
func AttachRecording(audioPath, transcriptPath string) (Recording, error) {
	abs, err := filepath.Abs(audioPath)
	if err != nil {
		return Recording{}, err
	}
	if _, err := os.Stat(abs); err != nil {
		return Recording{}, fmt.Errorf("audio file: %w", err)
	}
	rec := Recording{AudioURL: (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()}

	if transcriptPath != "" {
		b, err := os.ReadFile(transcriptPath)
		if err != nil {
			return Recording{}, fmt.Errorf("transcript file: %w", err)
		}
		rec.Transcript = strings.TrimSpace(string(b))
	}
	return rec, nil
}
