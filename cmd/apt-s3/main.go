// Command apt-s3 maintains a Debian/APT repository against a pluggable
// object-storage backend.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/repogen/reposync/internal/cliutil"
	"github.com/repogen/reposync/internal/engine"
	"github.com/repogen/reposync/internal/storage"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cliutil.NewRootCmd(cliutil.FamilyDescriptor{
		Tool: "apt-s3",
		Family: storage.FamilyDebian,
		NewEngine: func(backend storage.Backend, cacheDir string, validate bool) engine.Engine {
			return &engine.DebEngine{Backend: backend, CacheDir: cacheDir, Validate: validate}
		},
	})
	root.SetContext(ctx)

	if err := root.Execute(); err != nil {
		logrus.Error(err)
		if errors.Is(ctx.Err(), context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
