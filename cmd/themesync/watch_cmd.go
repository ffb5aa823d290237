package main

import (
	"log/slog"

	"github.com/openmined/themesync/internal/sync"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newWatchCmd())
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Upload local changes as they happen",
		Long: `Upload local changes as they happen. Deleted files are removed remotely.

Ignore rules from the config file, .themesyncignore and --ignore are read once
when the watch starts; restart it after editing .themesyncignore.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ignore, _ := cmd.Flags().GetStringSlice("ignore")

			out := cmd.OutOrStdout()
			a, err := newApp(cmd, func(result *sync.SyncResult) {
				// a failed flush is reported, the watch keeps going
				if err := printSummary(out, "watch", result); err != nil {
					slog.Warn("watch flush", "error", err)
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			slog.Info("watching for changes, press Ctrl+C to stop", "dir", a.config.ThemeDir)
			return a.engine.Watch(cmd.Context(), sync.WatchOptions{Ignore: ignore})
		},
	}

	cmd.Flags().StringSlice("ignore", nil, "additional patterns to ignore")
	return cmd
}
