// Package cliutil builds the shared Cobra subcommand tree, parameterized
// over one package-manager family so both cmd/yum-s3 and cmd/apt-s3 can
// reuse the exact same flag/subcommand shape.
package cliutil

import (
	"github.com/repogen/reposync/internal/engine"
	"github.com/repogen/reposync/internal/storage"
)

// FamilyDescriptor supplies the one family-specific piece cliutil needs:
// how to build an engine.Engine once the backend and cache dir are
// resolved from configuration.
type FamilyDescriptor struct {
	// Tool is the config-file base name ("<tool>.conf"),
	// e.g. "yum-s3" or "apt-s3".
	Tool string

	// Family selects backend.rpm.* vs backend.deb.* override lookups.
	Family storage.Family

	// NewEngine builds the family's engine.Engine from a resolved
	// backend, cache dir and validate flag.
	NewEngine func(backend storage.Backend, cacheDir string, validate bool) engine.Engine
}
