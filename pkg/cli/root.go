// Package cli is the taskctx command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrisonrobin/taskctx/pkg/app"
	"github.com/harrisonrobin/taskctx/pkg/model"
	"github.com/harrisonrobin/taskctx/pkg/store"
	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// NewRootCmd builds the full command tree around a.
func NewRootCmd(a *app.App) *cobra.Command {
	root := &cobra.Command{
		Use:   "taskctx",
		Short: "Park tasks with their context and pick them up where you left off",
		Long: `taskctx tracks what you are working on. When you switch away from a task
you capture a short note, links and the next action, optionally with a
screenshot or voice memo. Resuming a task shows you exactly where you were.

Paused tasks can schedule a resume reminder on Google Calendar.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newVersionCmd(),
		newAddCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newNoteCmd(a),
		newPauseCmd(a),
		newResumeCmd(a),
		newCompleteCmd(a),
		newStatusCmd(a),
		newDueCmd(a),
		newSyncCmd(a),
		newEventsCmd(a),
		newAuthCmd(a),
		newStatsCmd(a),
		newDashboardCmd(a),
		newConfigCmd(a),
	)
	return root
}

// Execute runs the command line against a.
func Execute(ctx context.Context, a *app.App, args []string) error {
	root := NewRootCmd(a)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskctx %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
		},
	}
}

// resolveTask looks a task up by id or unique id prefix.
func resolveTask(a *app.App, arg string) (model.Task, error) {
	task, err := a.Store.FindByPrefix(arg)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return model.Task{}, fmt.Errorf("no task matches %q", arg)
	case errors.Is(err, store.ErrAmbiguousID):
		return model.Task{}, fmt.Errorf("%q matches more than one task, use a longer id", arg)
	}
	return task, err
}
