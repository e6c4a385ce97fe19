package cli

import (
	"errors"
	"fmt"

	"github.com/harrisonrobin/taskctx/pkg/app"
	"github.com/harrisonrobin/taskctx/pkg/google"
	"github.com/harrisonrobin/taskctx/pkg/model"
	"github.com/spf13/cobra"
)

var errNotConnected = errors.New("calendar not connected, run 'taskctx auth' first")

func newSyncCmd(a *app.App) *cobra.Command {
	var rf resumeFlags
	cmd := &cobra.Command{
		Use:   "sync <id>",
		Short: "Push a task's state to the calendar",
		Long: `Bring the calendar in line with the task. A paused task gets (or updates)
its resume reminder, using --resume-at/--resume-in or the stored resume time.
A completed task has its reminder removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.Calendar.IsAuthenticated() {
				return errNotConnected
			}
			task, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			resumeAt, err := rf.resolve(a.Now())
			if err != nil {
				return err
			}
			if resumeAt == nil {
				resumeAt = task.AutoResumeTime
			}

			a.Store.SyncTaskWithCalendar(cmd.Context(), task.ID, resumeAt)
			a.Store.Wait()

			got, err := a.Store.Task(task.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case got.Status == model.StatusPaused && resumeAt == nil:
				fmt.Fprintln(out, "No resume time set, nothing to schedule.")
			case got.Status == model.StatusPaused && got.CalendarEventID != "":
				fmt.Fprintf(out, "Reminder %s scheduled for %s\n", got.CalendarEventID, got.AutoResumeTime.Format("Mon Jan 2 15:04"))
			case got.Status == model.StatusCompleted && got.CalendarEventID == "":
				fmt.Fprintln(out, "No reminder left on the calendar.")
			case got.Status == model.StatusActive:
				fmt.Fprintln(out, "Task is active, nothing to sync.")
			default:
				fmt.Fprintln(out, "Calendar sync did not complete, see the log for details.")
			}
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newEventsCmd(a *app.App) *cobra.Command {
	var maxEvents int64
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List upcoming calendar events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.Calendar.IsAuthenticated() {
				return errNotConnected
			}
			events, err := a.Calendar.ListUpcomingEvents(cmd.Context(), maxEvents)
			if errors.Is(err, google.ErrAuthExpired) {
				return fmt.Errorf("%w, run 'taskctx auth' to reconnect", err)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No upcoming events.")
				return nil
			}
			for _, e := range events {
				line := fmt.Sprintf("  %s  %s", e.Start.Local().Format("Mon Jan 2 15:04"), e.Title)
				if e.TaskID != "" {
					line += mutedStyle.Render("  [" + shortID(e.TaskID) + "]")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&maxEvents, "max", 10, "Maximum number of events")
	return cmd
}

func newAuthCmd(a *app.App) *cobra.Command {
	var logout bool
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Connect taskctx to Google Calendar",
		Long: `Authorize taskctx to manage events on your Google Calendar. Place the
OAuth client credentials.json from the Google Cloud console in the taskctx
config directory first. Use --logout to forget the stored token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if logout {
				if err := a.Auth.ClearToken(); err != nil {
					return err
				}
				fmt.Fprintln(out, "Disconnected from Google Calendar.")
				return nil
			}
			a.Auth.Out = out
			if err := a.Auth.Login(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "Connected. Token saved to %s\n", a.Auth.TokenPath())
			return nil
		},
	}
	cmd.Flags().BoolVar(&logout, "logout", false, "Remove the stored token")
	return cmd
}
