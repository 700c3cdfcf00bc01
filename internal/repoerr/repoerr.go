// Package repoerr defines the error-kind vocabulary shared across the
// repository engine. It is a leaf package so both internal/engine (the
// state machine that classifies failures) and internal/txn (the
// transaction driver that raises most of them) can depend on it
// without a cycle between the two.
package repoerr

import "fmt"

// Kind enumerates the error kinds the engine can surface, using its
// own vocabulary distinct from any storage or parsing library's errors.
type Kind int

const (
	// KindMalformedPackage: the package inspector could not extract
	// required fields. Fails the operation with no transaction side
	// effects.
	KindMalformedPackage Kind = iota
	// KindMixedTargets: inputs resolve to more than one repository
	// coordinate. Fails before a transaction begins.
	KindMixedTargets
	// KindStorageUnavailable: a transport failure survived the
	// driver's own retries. Aborts the transaction via restore.
	KindStorageUnavailable
	// KindAccessDenied: the backend refused a call. Aborts; the
	// backup is retained for manual inspection.
	KindAccessDenied
	// KindIntegrityViolation: validation found a broken invariant
	// after upload. Aborts via restore; reports the issue list.
	KindIntegrityViolation
	// KindNothingToRemove: none of the requested filenames were
	// present. Non-destructive; reported to the caller.
	KindNothingToRemove
	// KindLegacyBackupPresent: a prior backup prefix already exists
	// at begin-time. Warn; do not auto-recover.
	KindLegacyBackupPresent
)

// String renders the kind's name.
func (k Kind) String() string {
	switch k {
	case KindMalformedPackage:
		return "MalformedPackage"
	case KindMixedTargets:
		return "MixedTargets"
	case KindStorageUnavailable:
		return "StorageUnavailable"
	case KindAccessDenied:
		return "AccessDenied"
	case KindIntegrityViolation:
		return "IntegrityViolation"
	case KindNothingToRemove:
		return "NothingToRemove"
	case KindLegacyBackupPresent:
		return "LegacyBackupPresent"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying error with its engine-level kind and, where
// relevant, the coordinate or package it concerns.
type Error struct {
	Kind Kind
	Detail string
	Coord string
	Err error
}

func (e *Error) Error() string {
	if e.Coord != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Coord, e.message())
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.message())
}

func (e *Error) message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Newf builds an *Error of the given kind with a formatted detail.
func Newf(kind Kind, coord string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Coord: coord, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around an underlying error.
func Wrap(kind Kind, coord string, err error) *Error {
	return &Error{Kind: kind, Coord: coord, Err: err}
}
