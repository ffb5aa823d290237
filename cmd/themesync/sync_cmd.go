package main

import (
	"github.com/openmined/themesync/internal/sync"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newDeployCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newDeleteCmd())
}

func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy [paths...]",
		Short: "Upload local theme files to the remote store",
		Long: `Upload the given files or directories, or the whole theme when none are given.
Sensitive files such as config/settings_data.json are only uploaded with --force.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := sync.DeployOptions{}
			opts.Clean, _ = cmd.Flags().GetBool("clean")
			opts.Force, _ = cmd.Flags().GetBool("force")
			opts.NoCompile, _ = cmd.Flags().GetBool("no-compile")

			a, err := newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.engine.Deploy(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), "deploy", result)
		},
	}

	cmd.Flags().Bool("clean", false, "remove remote files that no longer exist locally")
	cmd.Flags().BoolP("force", "f", false, "include sensitive files")
	cmd.Flags().Bool("no-compile", false, "skip the compile step after changes")
	return cmd
}

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download [paths...]",
		Short: "Download remote theme files into the theme directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.engine.Download(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), "download", result)
		},
	}
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <paths...>",
		Short: "Remove files from the remote store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noCompile, _ := cmd.Flags().GetBool("no-compile")

			a, err := newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.engine.Delete(cmd.Context(), args, sync.DeleteOptions{NoCompile: noCompile})
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), "delete", result)
		},
	}

	cmd.Flags().Bool("no-compile", false, "skip the compile step after changes")
	return cmd
}
