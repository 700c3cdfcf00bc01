package cliutil

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/repogen/reposync/internal/config"
	"github.com/repogen/reposync/internal/engine"
	"github.com/repogen/reposync/internal/storage"
)

// globalFlags binds cobra flags directly into a struct, generalized
// to the pre-subcommand overrides every family-specific tool shares.
type globalFlags struct {
	verbose bool
	configPath string
	bucket string
	cacheDir string
	profile string
	endpoint string
}

// app carries the state every subcommand needs once the root command's
// PersistentPreRunE has resolved configuration and storage. Engine
// construction is deferred to buildEngine so add/remove can honor
// --no-validate without re-resolving the backend.
type app struct {
	desc FamilyDescriptor
	cfg *config.Config
	backend storage.Backend
	cacheDir string
}

func (a *app) buildEngine(validate bool) engine.Engine {
	return a.desc.NewEngine(a.backend, a.cacheDir, validate)
}

// NewRootCmd builds the shared subcommand tree for one family.
func NewRootCmd(desc FamilyDescriptor) *cobra.Command {
	flags := &globalFlags{}
	a := &app{desc: desc}

	root := &cobra.Command{
		Use: desc.Tool,
		Short: fmt.Sprintf("Maintain a %s package repository against an object-storage backend", desc.Family),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}

			cfg, err := config.Load(desc.Tool, flags.configPath)
			if err != nil {
				return err
			}
			applyOverrides(cfg, desc.Family, flags)
			a.cfg = cfg

			backend, err := config.ResolveBackend(cmd.Context(), cfg, desc.Family)
			if err != nil {
				return err
			}
			a.backend = backend
			a.cacheDir = config.CacheDir(cfg, desc.Family)
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a config file, overriding the search order")
	root.PersistentFlags().StringVar(&flags.bucket, "bucket", "", "Override backend.s3.bucket for this invocation")
	root.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", "", "Override repo.cache_dir for this invocation")
	root.PersistentFlags().StringVar(&flags.profile, "profile", "", "Override backend.s3.profile for this invocation")
	root.PersistentFlags().StringVar(&flags.endpoint, "endpoint", "", "Override backend.s3.endpoint for this invocation")

	root.AddCommand(newAddCmd(a))
	root.AddCommand(newRemoveCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newConfigCmd(a, flags))

	return root
}

// applyOverrides writes global pre-subcommand flags into
// cfg for the duration of this process only; they are never saved back.
func applyOverrides(cfg *config.Config, family storage.Family, flags *globalFlags) {
	fam := config.FamilyKey(family)
	if flags.bucket != "" {
		cfg.Set(fmt.Sprintf("backend.%s.s3.bucket", fam), flags.bucket)
	}
	if flags.cacheDir != "" {
		cfg.Set(fmt.Sprintf("repo.%s.cache_dir", fam), flags.cacheDir)
	}
	if flags.profile != "" {
		cfg.Set(fmt.Sprintf("backend.%s.s3.profile", fam), flags.profile)
	}
	if flags.endpoint != "" {
		cfg.Set(fmt.Sprintf("backend.%s.s3.endpoint", fam), flags.endpoint)
	}
}
