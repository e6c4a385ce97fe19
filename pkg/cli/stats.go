package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/harrisonrobin/taskctx/pkg/app"
	"github.com/harrisonrobin/taskctx/pkg/stats"
	"github.com/spf13/cobra"
)

// statsReport is everything the stats views show.
type statsReport struct {
	Dashboard      stats.Dashboard     `json:"dashboard"`
	WeeklyProgress []stats.DayProgress `json:"weeklyProgress"`
	TasksByHour    [24]int             `json:"tasksByHour"`
}

func buildStatsReport(a *app.App) statsReport {
	tasks := a.Store.Tasks()
	now := a.Now()
	return statsReport{
		Dashboard:      stats.Compute(tasks, now, a.WeekStart),
		WeeklyProgress: stats.WeeklyProgress(tasks, now, a.WeekStart),
		TasksByHour:    stats.TasksByHour(tasks, now, a.WeekStart),
	}
}

func newStatsCmd(a *app.App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show productivity statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := buildStatsReport(a)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Fprintln(out, lipgloss.JoinHorizontal(lipgloss.Top,
				panelStyle.Render(renderSummary(report.Dashboard)),
				panelStyle.Render(renderWeekly(report.WeeklyProgress)),
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func renderSummary(d stats.Dashboard) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Overview"))
	b.WriteString("\n")
	lines := []struct {
		label string
		value string
	}{
		{"Completed today", fmt.Sprint(d.CompletedToday)},
		{"Completed this week", fmt.Sprint(d.CompletedThisWeek)},
		{"Completed this month", fmt.Sprint(d.CompletedThisMonth)},
		{"Avg. switch time", fmt.Sprintf("%.0f min", d.AverageContextSwitchTime)},
		{"Context switches", fmt.Sprint(d.TotalContextSwitches)},
		{"Interruptions today", fmt.Sprint(d.InterruptionCount)},
		{"Most productive hour", stats.FormatHour(d.MostProductiveHour)},
		{"Active hours today", fmt.Sprintf("%dh", d.ActiveTaskDuration)},
	}
	for _, l := range lines {
		fmt.Fprintf(&b, "%-22s %s\n", l.label, l.value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderWeekly(days []stats.DayProgress) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("This week"))
	b.WriteString("\n")
	peak := 0
	for _, d := range days {
		peak = max(peak, d.Completed)
	}
	for _, d := range days {
		fmt.Fprintf(&b, "%s %2d %s\n", d.Day, d.Completed, bar(d.Completed, peak, 20))
	}
	return strings.TrimRight(b.String(), "\n")
}
