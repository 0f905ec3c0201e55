package cmd

import "github.com/spf13/cobra"

var browseKey string

var browseCmd = &cobra.Command{
	Use:   "browse [url]",
	Short: "Open a WebKitGTK window hosting one view",
	Long: `Open a GTK window with a WebKitGTK view registered on the GTK main
thread. Pages reach the host through
window.webkit.messageHandlers.<bridge.name>.postMessage(json).

Requires a build with the webkit_cgo tag.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().StringVar(&browseKey, "key", "", "snapshot key to resume and save")
}
