package cliutil

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate REPO_PATH",
		Short: "Run the full validation tier against a repository coordinate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := a.buildEngine(true)
			issues, err := eng.Validate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				fmt.Fprintln(out, "ok: no issues found")
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintf(out, "%s: %s\n", issue.Kind, issue.Detail)
			}
			return fmt.Errorf("validate: %d issue(s) found", len(issues))
		},
	}
	return cmd
}
