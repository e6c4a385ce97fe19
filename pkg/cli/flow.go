package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harrisonrobin/taskctx/pkg/app"
	"github.com/harrisonrobin/taskctx/pkg/capture"
	"github.com/harrisonrobin/taskctx/pkg/model"
	"github.com/harrisonrobin/taskctx/pkg/store"
	"github.com/spf13/cobra"
)

// captureFlags are shared by every command that records a context.
type captureFlags struct {
	note       string
	links      []string
	next       string
	screenshot bool
	audio      string
	transcript string
	record     bool
}

func (f *captureFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.note, "message", "m", "", "Where you left off (required)")
	cmd.Flags().StringArrayVarP(&f.links, "link", "l", nil, "Related link; repeat for more")
	cmd.Flags().StringVarP(&f.next, "next", "n", "", "The next action to take when you come back")
	cmd.Flags().BoolVar(&f.screenshot, "screenshot", false, "Attach a screenshot")
	cmd.Flags().StringVar(&f.audio, "audio", "", "Attach an existing voice memo file")
	cmd.Flags().StringVar(&f.transcript, "transcript", "", "Text file with the memo's transcript")
	cmd.Flags().BoolVar(&f.record, "record", false, "Record a voice memo, press Enter to stop")
	cmd.MarkFlagsMutuallyExclusive("audio", "record")
}

// input collects the context, running any requested captures. Capture
// failures are returned so the user sees them.
func (f *captureFlags) input(cmd *cobra.Command, a *app.App) (store.ContextInput, error) {
	in := store.ContextInput{Note: f.note, Links: f.links, NextAction: f.next}
	if strings.TrimSpace(f.note) == "" {
		return in, fmt.Errorf("%w: --message is required", store.ErrInvalidInput)
	}
	ctx := cmd.Context()

	if f.screenshot {
		shot, err := a.Screenshots.Capture(ctx)
		if err != nil {
			return in, err
		}
		in.Screenshot = shot
	}

	var rec capture.Recording
	switch {
	case f.record:
		if err := a.Voice.Start(ctx); err != nil {
			return in, fmt.Errorf("could not start recording: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, "Recording... press Enter to stop. ")
		if _, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "\nInput closed, recording stopped.")
			} else {
				fmt.Fprintf(out, "\nCould not read input (%v), recording stopped.\n", err)
			}
		}
		r, err := a.Voice.Stop()
		if err != nil {
			return in, err
		}
		rec = r
	case f.audio != "":
		r, err := capture.AttachRecording(f.audio, f.transcript)
		if err != nil {
			return in, err
		}
		rec = r
	}
	in.AudioURL, in.AudioTranscript = rec.AudioURL, rec.Transcript
	return in, nil
}

// resumeFlags pick when a paused task should be picked up again.
type resumeFlags struct {
	at string
	in time.Duration
}

func (f *resumeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.at, "resume-at", "", "When to resume, e.g. 15:30 or \"2026-03-05 09:00\"")
	cmd.Flags().DurationVar(&f.in, "resume-in", 0, "Resume after this long, e.g. 2h")
	cmd.MarkFlagsMutuallyExclusive("resume-at", "resume-in")
}

func (f *resumeFlags) resolve(now time.Time) (*time.Time, error) {
	switch {
	case f.at != "":
		t, err := parseResumeAt(f.at, now)
		if err != nil {
			return nil, err
		}
		return &t, nil
	case f.in > 0:
		t := now.Add(f.in)
		return &t, nil
	}
	return nil, nil
}

func newPauseCmd(a *app.App) *cobra.Command {
	var (
		cf captureFlags
		rf resumeFlags
	)
	cmd := &cobra.Command{
		Use:   "pause <id>",
		Short: "Capture your context and pause a task",
		Long: `Capture where you left off and pause the task. With --resume-at or
--resume-in, a reminder is put on your calendar when it is connected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			resumeAt, err := rf.resolve(a.Now())
			if err != nil {
				return err
			}
			in, err := cf.input(cmd, a)
			if err != nil {
				return err
			}

			if err := a.Store.Pause(cmd.Context(), task.ID, in, resumeAt); err != nil {
				return err
			}
			a.Store.Wait()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Paused %s\n", task.Title)
			if resumeAt != nil {
				if !a.Calendar.IsAuthenticated() {
					fmt.Fprintln(out, "Calendar not connected, no reminder scheduled. Run 'taskctx auth' to connect.")
				} else if got, err := a.Store.Task(task.ID); err == nil && got.CalendarEventID != "" {
					fmt.Fprintf(out, "Reminder scheduled for %s\n", resumeAt.Format("Mon Jan 2 15:04"))
				} else {
					fmt.Fprintln(out, "Could not schedule the calendar reminder, see the log for details.")
				}
			}
			return nil
		},
	}
	cf.register(cmd)
	rf.register(cmd)
	return cmd
}

func newResumeCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Make a task active again and show where you left off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			if err := a.Store.Resume(task.ID); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Resumed %s\n", task.Title)
			c := task.LatestContext()
			if c == nil {
				return nil
			}
			fmt.Fprintf(out, "\n%s %s\n", headerStyle.Render("Where you left off"), mutedStyle.Render("("+timeAgo(c.Timestamp, a.Now())+")"))
			fmt.Fprintf(out, "  %s\n", c.Note)
			if c.NextAction != "" {
				fmt.Fprintf(out, "  Next: %s\n", c.NextAction)
			}
			for _, l := range c.Links {
				fmt.Fprintf(out, "  Link: %s\n", l)
			}
			if c.AudioTranscript != "" {
				fmt.Fprintf(out, "  Memo: %s\n", c.AudioTranscript)
			}
			return nil
		},
	}
}

func newCompleteCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:     "complete <id>",
		Aliases: []string{"done"},
		Short:   "Mark a task completed and remove its reminder",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			if err := a.Store.Complete(cmd.Context(), task.ID); err != nil {
				return err
			}
			a.Store.Wait()
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", task.Title)
			return nil
		},
	}
}

func newDueCmd(a *app.App) *cobra.Command {
	var mark bool
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List paused tasks whose resume time has passed",
		Long: `List paused tasks whose resume time has passed. With --mark, their
calendar reminders are prefixed with "!" so they stand out as overdue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.Now()
			due := a.Store.DueForResume(now)
			out := cmd.OutOrStdout()
			if len(due) == 0 {
				fmt.Fprintln(out, "Nothing is due for resuming.")
				return nil
			}
			for _, t := range due {
				fmt.Fprintf(out, "  %s  %s  %s\n",
					mutedStyle.Render(shortID(t.ID)),
					styleForStatus(model.StatusPaused).Render(t.Title),
					mutedStyle.Render("due "+timeAgo(*t.AutoResumeTime, now)))
			}
			if !mark {
				return nil
			}
			if !a.Calendar.IsAuthenticated() {
				return errNotConnected
			}
			n, err := a.Store.MarkOverdue(cmd.Context(), now)
			fmt.Fprintf(out, "Marked %d reminder(s) overdue\n", n)
			return err
		},
	}
	cmd.Flags().BoolVar(&mark, "mark", false, "Flag overdue reminders on the calendar")
	return cmd
}
