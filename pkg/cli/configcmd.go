package cli

import (
	"fmt"

	"github.com/harrisonrobin/taskctx/pkg/app"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(a.Config)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", a.ConfigPath, data)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-calendar <name>",
		Short: "Set the calendar resume reminders go to",
		Long: `Set the calendar resume reminders are created on. Use "primary" for your
main calendar or the exact name of another calendar you own.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.Config.Calendar.Name = args[0]
			if err := a.SaveConfig(); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default calendar set to: %s\n", args[0])
			return nil
		},
	})

	return cmd
}
