// Package capture grabs the screenshots and voice memos attached to a context.
// Both lean on the operating system's own capture tools.
package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
)

// Screenshotter captures the screen and returns an encoded image reference.
type Screenshotter interface {
	Capture(ctx context.Context) (string, error)
}

// CommandFunc builds the OS command that writes a capture to path.
type CommandFunc func(ctx context.Context, path string) (*exec.Cmd, error)

// CommandScreenshotter runs an OS screen-capture tool.
type CommandScreenshotter struct {
	Command CommandFunc
}

// NewScreenshotter uses screencapture on macOS and ImageMagick's import on Linux.
func NewScreenshotter() *CommandScreenshotter {
	return &CommandScreenshotter{Command: defaultScreenshotCommand}
}

func defaultScreenshotCommand(ctx context.Context, path string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "screencapture", "-i", path), nil
	case "linux":
		return exec.CommandContext(ctx, "import", path), nil
	default:
		return nil, fmt.Errorf("unsupported OS for screenshot capture: %s", runtime.GOOS)
	}
}

// Capture returns the screenshot as a data: URL. An empty result with a nil
// error means the user cancelled the capture.
func (s *CommandScreenshotter) Capture(ctx context.Context) (string, error) {
	tmpFile, err := os.CreateTemp("", "taskctx-screenshot-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cmd, err := s.Command(ctx, tmpPath)
	if err != nil {
		return "", err
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("screenshot capture failed: %s: %w", string(output), err)
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("reading screenshot file: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}
	return DataURL(data), nil
}

// DataURL encodes data as a base64 data: URL with a sniffed media type.
func DataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
