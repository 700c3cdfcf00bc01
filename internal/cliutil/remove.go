package cliutil

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repogen/reposync/internal/config"
)

func newRemoveCmd(a *app) *cobra.Command {
	var yes bool
	var noValidate bool

	cmd := &cobra.Command{
		Use:   "remove [flags] REPO_PATH FILENAME...",
		Short: "Remove packages from a repository coordinate, regenerating metadata",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coordPath, filenames := args[0], args[1:]

			needsConfirm := !yes && config.ConfirmRequired(a.cfg)
			if needsConfirm && !confirm(cmd, fmt.Sprintf("Remove %d package(s) from %s?", len(filenames), coordPath)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}

			eng := a.buildEngine(!noValidate)
			result, err := eng.Remove(cmd.Context(), coordPath, filenames)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, f := range result.Removed {
				fmt.Fprintf(out, "removed: %s\n", f)
			}
			for _, f := range result.NotPresent {
				fmt.Fprintf(out, "not present: %s\n", f)
			}
			fmt.Fprintf(out, "outcome: %s\n", result.Outcome)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the interactive confirmation prompt")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip the post-upload quick validation tier")
	return cmd
}
