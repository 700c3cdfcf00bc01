// Package engine implements the repository engine: add, remove, validate,
// and deduplicate, shared across the RPM and Debian families via a
// FamilyDescriptor.
package engine

import "github.com/repogen/reposync/internal/repoerr"

// Kind, Error, Newf and Wrap are re-exported from internal/repoerr so
// engine call sites read as engine.KindFoo / engine.Wrap(...) while the
// type itself lives in a leaf package that internal/txn can also import
// without creating an engine <-> txn cycle.
type Kind = repoerr.Kind

const (
	KindMalformedPackage = repoerr.KindMalformedPackage
	KindMixedTargets = repoerr.KindMixedTargets
	KindStorageUnavailable = repoerr.KindStorageUnavailable
	KindAccessDenied = repoerr.KindAccessDenied
	KindIntegrityViolation = repoerr.KindIntegrityViolation
	KindNothingToRemove = repoerr.KindNothingToRemove
	KindLegacyBackupPresent = repoerr.KindLegacyBackupPresent
)

type Error = repoerr.Error

var (
	Newf = repoerr.Newf
	Wrap = repoerr.Wrap
)
