// Package storage provides the pluggable object-storage abstraction the
// repository engine uses for every remote byte-level interaction.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Family identifies which package-manager ecosystem a repository belongs to.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyRPM
	FamilyDebian
)

// String returns the human-readable family name.
func (f Family) String() string {
	switch f {
	case FamilyRPM:
		return "rpm"
	case FamilyDebian:
		return "debian"
	default:
		return "unknown"
	}
}

// Coordinate identifies one repository instance within one backend: a
// family plus a stable string key into storage (e.g. "el9/x86_64").
type Coordinate struct {
	Family Family
	Path   string
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s:%s", c.Family, c.Path)
}

// Sentinel errors backend drivers wrap their failures in. Callers use
// errors.Is to classify a failure.
var (
	ErrNotFound          = errors.New("storage: object not found")
	ErrStorageUnavailable = errors.New("storage: transport unavailable")
	ErrAccessDenied      = errors.New("storage: access denied")
)

// Backend is the capability set every storage driver implements. Paths are
// always '/'-separated relative keys; the object store has no directory
// semantics beyond prefix listing, which drivers synthesize.
type Backend interface {
	// Exists reports whether an object is present at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Read returns the full contents of the object at path. Intended for
	// small metadata documents; large payloads should stream via PullTree.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write uploads the contents of localPath to the object at path.
	Write(ctx context.Context, localPath, path string) error

	// WriteBytes uploads data directly to the object at path.
	WriteBytes(ctx context.Context, data []byte, path string) error

	// Delete removes the object at path. Deleting a nonexistent object is
	// not an error (idempotent).
	Delete(ctx context.Context, path string) error

	// List returns the paths, relative to prefix, of every object under
	// prefix including those in nested sub-prefixes, optionally filtered
	// to those ending in suffix (suffix == "" disables filtering).
	List(ctx context.Context, prefix, suffix string) ([]string, error)

	// PullTree copies every object under remotePrefix into localDir,
	// returning the paths copied relative to remotePrefix.
	PullTree(ctx context.Context, remotePrefix, localDir string) ([]string, error)

	// PushTree uploads every file under localDir to remotePrefix, returning
	// the paths written relative to remotePrefix.
	PushTree(ctx context.Context, localDir, remotePrefix string) ([]string, error)

	// Copy duplicates the object at src to dst, server-side where the
	// driver supports it.
	Copy(ctx context.Context, src, dst string) error

	// Describe returns a human-readable label -> value mapping describing
	// the backend instance (bucket, root path, endpoint, ...).
	Describe() map[string]string
}
