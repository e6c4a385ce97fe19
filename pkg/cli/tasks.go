package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harrisonrobin/taskctx/pkg/app"
	"github.com/harrisonrobin/taskctx/pkg/model"
	"github.com/spf13/cobra"
)

func newAddCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title>",
		Short: "Create a new active task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := a.Store.AddTask(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s\n", shortID(task.ID), task.Title)
			return nil
		},
	}
}

func newListCmd(a *app.App) *cobra.Command {
	var (
		all    bool
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks grouped by status",
		Long: `List active and paused tasks with when they were last touched and the
most recent context. Use --all to include completed tasks, or --status to
show a single group.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			groups := []model.Status{model.StatusActive, model.StatusPaused}
			if all {
				groups = append(groups, model.StatusCompleted)
			}
			if status != "" {
				st, ok := model.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q (active, paused, completed)", status)
				}
				groups = []model.Status{st}
			}

			out := cmd.OutOrStdout()
			if len(a.Store.Tasks()) == 0 {
				fmt.Fprintln(out, "No tasks yet. Add one with 'taskctx add <title>'.")
				return nil
			}
			now := a.Now()
			for _, st := range groups {
				tasks := a.Store.ByStatus(st)
				if len(tasks) == 0 {
					continue
				}
				fmt.Fprintf(out, "%s (%d)\n", headerStyle.Render(groupTitle(st)), len(tasks))
				for _, t := range tasks {
					printTaskLine(out, t, now)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include completed tasks")
	cmd.Flags().StringVar(&status, "status", "", "Only show tasks in this status")
	return cmd
}

func groupTitle(s model.Status) string {
	switch s {
	case model.StatusActive:
		return "Active"
	case model.StatusPaused:
		return "Paused"
	default:
		return "Completed"
	}
}

func printTaskLine(w io.Writer, t model.Task, now time.Time) {
	label := "Last active"
	switch t.Status {
	case model.StatusPaused:
		label = "Paused"
	case model.StatusCompleted:
		label = "Completed"
	}
	fmt.Fprintf(w, "  %s  %s  %s\n",
		mutedStyle.Render(shortID(t.ID)),
		styleForStatus(t.Status).Render(t.Title),
		mutedStyle.Render(label+" "+timeAgo(t.LastModified, now)))

	if c := t.LatestContext(); c != nil {
		fmt.Fprintf(w, "            %s\n", c.Note)
		if c.NextAction != "" {
			fmt.Fprintf(w, "            Next: %s\n", c.NextAction)
		}
	}
	if t.AutoResumeTime != nil && t.Status == model.StatusPaused {
		fmt.Fprintf(w, "            Resume %s\n", timeAgo(*t.AutoResumeTime, now))
	}
}

func newShowCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its full context history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task, a.Now())
			return nil
		},
	}
}

func printTask(w io.Writer, t model.Task, now time.Time) {
	fmt.Fprintln(w, titleStyle.Render(t.Title))
	fmt.Fprintf(w, "ID:        %s\n", t.ID)
	fmt.Fprintf(w, "Status:    %s\n", styleForStatus(t.Status).Render(string(t.Status)))
	fmt.Fprintf(w, "Created:   %s (%s)\n", t.CreatedAt.Local().Format("2006-01-02 15:04"), timeAgo(t.CreatedAt, now))
	fmt.Fprintf(w, "Modified:  %s (%s)\n", t.LastModified.Local().Format("2006-01-02 15:04"), timeAgo(t.LastModified, now))
	if t.AutoResumeTime != nil {
		fmt.Fprintf(w, "Resume at: %s\n", t.AutoResumeTime.Local().Format("2006-01-02 15:04"))
	}
	if t.CalendarEventID != "" {
		fmt.Fprintf(w, "Event:     %s\n", t.CalendarEventID)
	}

	if len(t.Contexts) == 0 {
		fmt.Fprintln(w, "\nNo context captured yet.")
		return
	}
	fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Context history"))
	for i, c := range t.Contexts {
		fmt.Fprintf(w, "\n#%d  %s\n", i+1, mutedStyle.Render(c.Timestamp.Local().Format("2006-01-02 15:04")+" ("+timeAgo(c.Timestamp, now)+")"))
		fmt.Fprintf(w, "    %s\n", c.Note)
		if c.NextAction != "" {
			fmt.Fprintf(w, "    Next: %s\n", c.NextAction)
		}
		for _, l := range c.Links {
			fmt.Fprintf(w, "    Link: %s\n", l)
		}
		if c.AudioURL != "" {
			fmt.Fprintf(w, "    Audio: %s\n", c.AudioURL)
		}
		if c.AudioTranscript != "" {
			fmt.Fprintf(w, "    Transcript: %s\n", c.AudioTranscript)
		}
		if c.Screenshot != "" {
			fmt.Fprintf(w, "    Screenshot attached (%d bytes encoded)\n", len(c.Screenshot))
		}
	}
}

func newNoteCmd(a *app.App) *cobra.Command {
	var cf captureFlags
	cmd := &cobra.Command{
		Use:   "note <id>",
		Short: "Capture context on a task without pausing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			in, err := cf.input(cmd, a)
			if err != nil {
				return err
			}
			if _, err := a.Store.AddContext(task.ID, in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Captured context on %s\n", task.Title)
			return nil
		},
	}
	cf.register(cmd)
	return cmd
}

func newStatusCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <active|paused|completed>",
		Short: "Set a task's status directly",
		Long: `Set a task's status without capturing context or touching the calendar.
Any status can be set from any other; prefer pause, resume and complete for
the usual flow.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			st, ok := model.ParseStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status %q (active, paused, completed)", args[1])
			}
			if err := a.Store.UpdateTaskStatus(task.ID, st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", task.Title, st)
			return nil
		},
	}
}
