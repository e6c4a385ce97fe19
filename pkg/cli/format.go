package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/harrisonrobin/taskctx/pkg/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	statusActiveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusPausedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusCompletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
)

func styleForStatus(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusActive:
		return statusActiveStyle
	case model.StatusPaused:
		return statusPausedStyle
	case model.StatusCompleted:
		return statusCompletedStyle
	default:
		return lipgloss.NewStyle()
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// timeAgo renders the distance between t and now in words, e.g.
// "5 minutes ago" or "in about 2 hours".
func timeAgo(t, now time.Time) string {
	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}
	words := distance(d)
	if future {
		return "in " + words
	}
	return words + " ago"
}

func distance(d time.Duration) string {
	minutes := int(math.Round(d.Minutes()))
	switch {
	case d < 30*time.Second:
		return "less than a minute"
	case minutes <= 1:
		return "1 minute"
	case minutes < 45:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes < 90:
		return "about 1 hour"
	case minutes < 24*60:
		return fmt.Sprintf("about %d hours", int(math.Round(d.Hours())))
	case minutes < 42*60:
		return "1 day"
	case minutes < 30*24*60:
		return fmt.Sprintf("%d days", int(math.Round(d.Hours()/24)))
	case minutes < 45*24*60:
		return "about 1 month"
	case minutes < 60*24*60:
		return "about 2 months"
	case minutes < 365*24*60:
		return fmt.Sprintf("%d months", int(math.Round(d.Hours()/24/30)))
	default:
		years := int(d.Hours() / 24 / 365)
		if years <= 1 {
			return "about 1 year"
		}
		return fmt.Sprintf("about %d years", years)
	}
}

var resumeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseResumeAt reads an absolute resume time in now's location. A bare
// "15:04" means the next occurrence of that clock time.
func parseResumeAt(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("15:04", s, now.Location()); err == nil {
		at := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		return at, nil
	}
	for _, layout := range resumeLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse resume time %q (use 15:04, 2006-01-02 15:04 or RFC 3339)", s)
}

// bar draws a horizontal bar whose length is proportional to n/peak.
func bar(n, peak, width int) string {
	if peak <= 0 || n <= 0 {
		return ""
	}
	w := n * width / peak
	if w == 0 {
		w = 1
	}
	return barStyle.Render(strings.Repeat("█", w))
}
