// Package stats derives productivity metrics from a snapshot of tasks.
// Every function is pure: the same tasks and the same now give the same result.
package stats

import (
	"time"

	"github.com/harrisonrobin/taskctx/pkg/model"
)

// MaxSwitchInterval is the longest gap between two contexts that still counts
// as a context switch. Longer gaps are treated as noise.
const MaxSwitchInterval = 480 // minutes

// Dashboard holds the aggregate values shown on the dashboard.
type Dashboard struct {
	CompletedToday     int `json:"completedToday"`
	CompletedThisWeek  int `json:"completedThisWeek"`
	CompletedThisMonth int `json:"completedThisMonth"`
	// AverageContextSwitchTime is in minutes.
	AverageContextSwitchTime float64 `json:"averageContextSwitchTime"`
	TotalContextSwitches     int     `json:"totalContextSwitches"`
	MostProductiveHour       int     `json:"mostProductiveHour"`
	InterruptionCount        int     `json:"interruptionCount"`
	// ActiveTaskDuration is in whole hours.
	ActiveTaskDuration int `json:"activeTaskDuration"`
}

// DayProgress is one bucket of the weekly progress chart.
type DayProgress struct {
	Day       string    `json:"day"`
	Date      time.Time `json:"date"`
	Completed int       `json:"completed"`
}

var dayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Compute derives every dashboard value from tasks as of now.
func Compute(tasks []model.Task, now time.Time, weekStart time.Weekday) Dashboard {
	todayStart := StartOfDay(now)
	weekBegin := StartOfWeek(now, weekStart)
	monthStart := StartOfMonth(now)

	return Dashboard{
		CompletedToday:           countCompleted(tasks, todayStart, now),
		CompletedThisWeek:        countCompleted(tasks, weekBegin, now),
		CompletedThisMonth:       countCompleted(tasks, monthStart, now),
		AverageContextSwitchTime: AverageContextSwitchTime(tasks),
		TotalContextSwitches:     TotalContextSwitches(tasks),
		MostProductiveHour:       MostProductiveHour(tasks, now, weekStart),
		InterruptionCount:        InterruptionCount(tasks, now),
		ActiveTaskDuration:       ActiveTaskDuration(tasks, now),
	}
}

func countCompleted(tasks []model.Task, start, now time.Time) int {
	n := 0
	for _, t := range tasks {
		if t.Status == model.StatusCompleted && within(t.LastModified, start, now) {
			n++
		}
	}
	return n
}

// AverageContextSwitchTime averages, in minutes, the gaps between consecutive
// contexts of each task. Gaps of zero or less, and gaps of MaxSwitchInterval
// minutes or more, are ignored. It returns 0 when no gap qualifies.
func AverageContextSwitchTime(tasks []model.Task) float64 {
	total, count := 0, 0
	for _, t := range tasks {
		for i := 1; i < len(t.Contexts); i++ {
			// whole minutes, truncated toward zero
			minutes := int(t.Contexts[i].Timestamp.Sub(t.Contexts[i-1].Timestamp).Minutes())
			if minutes > 0 && minutes < MaxSwitchInterval {
				total += minutes
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

// TotalContextSwitches counts context snapshots across all tasks.
func TotalContextSwitches(tasks []model.Task) int {
	n := 0
	for _, t := range tasks {
		n += len(t.Contexts)
	}
	return n
}

// InterruptionCount counts tasks paused today.
func InterruptionCount(tasks []model.Task, now time.Time) int {
	todayStart := StartOfDay(now)
	n := 0
	for _, t := range tasks {
		if t.Status == model.StatusPaused && within(t.LastModified, todayStart, now) {
			n++
		}
	}
	return n
}

// ActiveTaskDuration sums whole hours elapsed since creation for active tasks
// created today.
func ActiveTaskDuration(tasks []model.Task, now time.Time) int {
	todayStart := StartOfDay(now)
	hours := 0
	for _, t := range tasks {
		if t.Status == model.StatusActive && within(t.CreatedAt, todayStart, now) {
			hours += int(now.Sub(t.CreatedAt).Hours())
		}
	}
	return hours
}

// TasksByHour buckets this week's completed tasks by the local hour of their
// last modification.
func TasksByHour(tasks []model.Task, now time.Time, weekStart time.Weekday) [24]int {
	var hours [24]int
	weekBegin := StartOfWeek(now, weekStart)
	for _, t := range tasks {
		if t.Status == model.StatusCompleted && within(t.LastModified, weekBegin, now) {
			hours[t.LastModified.In(now.Location()).Hour()]++
		}
	}
	return hours
}

// MostProductiveHour returns the hour with the most completions this week.
// Ties go to the earliest hour, so an empty week yields 0.
func MostProductiveHour(tasks []model.Task, now time.Time, weekStart time.Weekday) int {
	hours := TasksByHour(tasks, now, weekStart)
	best := 0
	for h := 1; h < len(hours); h++ {
		if hours[h] > hours[best] {
			best = h
		}
	}
	return best
}

// WeeklyProgress counts completions for each of the seven days of the current
// week. Buckets are labeled Sun..Sat by position regardless of weekStart.
func WeeklyProgress(tasks []model.Task, now time.Time, weekStart time.Weekday) []DayProgress {
	weekBegin := StartOfWeek(now, weekStart)
	days := make([]DayProgress, 0, len(dayLabels))
	for i, label := range dayLabels {
		dayStart := weekBegin.AddDate(0, 0, i)
		dayEnd := dayStart.AddDate(0, 0, 1)
		completed := 0
		for _, t := range tasks {
			if t.Status == model.StatusCompleted && !t.LastModified.Before(dayStart) && t.LastModified.Before(dayEnd) {
				completed++
			}
		}
		days = append(days, DayProgress{Day: label, Date: dayStart, Completed: completed})
	}
	return days
}
