package cliutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/repogen/reposync/internal/config"
)

// scopePath resolves config scope flags to a concrete file
// path, matching the same search-order locations Load uses.
func scopePath(tool string, explicit string, global, local, system bool) (string, error) {
	switch {
	case explicit != "":
		return explicit, nil
	case global:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, fmt.Sprintf(".%s.conf", tool)), nil
	case system:
		return fmt.Sprintf("/etc/%s.conf", tool), nil
	case local:
		fallthrough
	default:
		return fmt.Sprintf("./%s.conf", tool), nil
	}
}

func newConfigCmd(a *app, flags *globalFlags) *cobra.Command {
	var list bool
	var unset string
	var doValidate bool
	var filePath string
	var global, local, system bool

	cmd := &cobra.Command{
		Use: "config [KEY] [VALUE]",
		Short: "Inspect or edit configuration",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := scopePath(a.desc.Tool, filePath, global, local, system)
			if err != nil {
				return err
			}

			cfg, err := config.Load(a.desc.Tool, path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					cfg = config.New()
				} else {
					return err
				}
			}

			out := cmd.OutOrStdout()

			switch {
			case list:
				for _, k := range cfg.Keys() {
					v, _ := cfg.Get(k)
					fmt.Fprintf(out, "%s=%s\n", k, v)
				}
				return nil

			case unset != "":
				cfg.Unset(unset)
				return cfg.SaveAs(path)

			case doValidate:
				if _, err := config.ResolveBackend(cmd.Context(), cfg, a.desc.Family); err != nil {
					return fmt.Errorf("config: invalid: %w", err)
				}
				fmt.Fprintln(out, "ok: configuration resolves a backend")
				return nil

			case len(args) == 1:
				v, ok := cfg.Get(args[0])
				if !ok {
					return fmt.Errorf("config: key %q is not set", args[0])
				}
				fmt.Fprintln(out, v)
				return nil

			case len(args) == 2:
				cfg.Set(args[0], args[1])
				return cfg.SaveAs(path)

			default:
				return cmd.Help()
			}
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List every configured key")
	cmd.Flags().StringVar(&unset, "unset", "", "Remove KEY from the config file")
	cmd.Flags().BoolVar(&doValidate, "validate", false, "Check that configuration resolves a usable backend")
	cmd.Flags().StringVar(&filePath, "file", "", "Operate on an explicit config file path")
	cmd.Flags().BoolVar(&global, "global", false, "Operate on ~/.<tool>.conf")
	cmd.Flags().BoolVar(&local, "local", false, "Operate on ./<tool>.conf (default)")
	cmd.Flags().BoolVar(&system, "system", false, "Operate on /etc/<tool>.conf")
	return cmd
}
