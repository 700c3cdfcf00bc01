package cliutil

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repogen/reposync/internal/config"
	"github.com/repogen/reposync/internal/repoerr"
	"github.com/repogen/reposync/internal/scanner"
	"github.com/repogen/reposync/internal/storage"
)

// checkFamily rejects a batch mixing package types, or containing a
// type foreign to this tool's family, with KindMixedTargets before a
// transaction begins.
func checkFamily(family storage.Family, localPaths []string) error {
	want := scanner.TypeRpm
	if family == storage.FamilyDebian {
		want = scanner.TypeDeb
	}
	for _, p := range localPaths {
		got, err := scanner.DetectPackageType(p)
		if err != nil {
			return repoerr.Wrap(repoerr.KindMalformedPackage, p, err)
		}
		if got != want {
			return repoerr.Newf(repoerr.KindMixedTargets, "", "%s is a %s package, expected %s", p, got, want)
		}
	}
	return nil
}

func newAddCmd(a *app) *cobra.Command {
	var yes bool
	var noValidate bool

	cmd := &cobra.Command{
		Use: "add [flags] REPO_PATH PACKAGE...",
		Short: "Upload packages into a repository coordinate, regenerating metadata",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coordPath, localPaths := args[0], args[1:]

			if err := checkFamily(a.desc.Family, localPaths); err != nil {
				return err
			}

			needsConfirm := !yes && config.ConfirmRequired(a.cfg)
			if needsConfirm && !confirm(cmd, fmt.Sprintf("Add %d package(s) to %s?", len(localPaths), coordPath)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}

			eng := a.buildEngine(!noValidate)
			result, err := eng.Add(cmd.Context(), coordPath, localPaths)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, f := range result.Uploaded {
				fmt.Fprintf(out, "uploaded: %s\n", f)
			}
			for _, f := range result.Skipped {
				fmt.Fprintf(out, "skipped (duplicate): %s\n", f)
			}
			fmt.Fprintf(out, "outcome: %s\n", result.Outcome)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the interactive confirmation prompt")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip the post-upload quick validation tier")
	return cmd
}

// confirm implements behavior.confirm gate: prompt on the
// command's own stdin unless --yes was passed.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
