package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/webviewhost/internal/cli/styles"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage saved view state",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshot keys, most recently saved first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}
		repo, err := app.Snapshots()
		if err != nil {
			return err
		}
		keys, err := repo.Keys(app.Ctx())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), styles.NewViewRenderer(app.Theme).RenderKeys(keys))
		return nil
	},
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Show a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}
		repo, err := app.Snapshots()
		if err != nil {
			return err
		}
		snap, err := repo.Find(app.Ctx(), args[0])
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("no snapshot stored under %q", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), styles.NewViewRenderer(app.Theme).Render(args[0], *snap))
		return nil
	},
}

var snapshotsDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}
		repo, err := app.Snapshots()
		if err != nil {
			return err
		}
		return repo.Delete(app.Ctx(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsShowCmd)
	snapshotsCmd.AddCommand(snapshotsDeleteCmd)
}
