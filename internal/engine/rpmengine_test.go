package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/repogen/reposync/internal/inspect"
	"github.com/repogen/reposync/internal/rpmmeta"
	"github.com/repogen/reposync/internal/storage"
	"github.com/repogen/reposync/internal/txn"
)

// seedRPMRepo publishes one generation of RPM metadata directly through
// the engine's own writeRPMMetadata/finishTransaction, bypassing Add's
// inspect.InspectRPM call (which needs a real binary RPM this package
// cannot hand-construct). This still exercises the real merge, sqlite,
// and repomd-indexing code Add and Remove both depend on.
func seedRPMRepo(t *testing.T, e *RPMEngine, coordPath string, packages []*inspect.Package) {
	t.Helper()
	ctx := context.Background()
	metadataPrefix, packagePrefix := rpmPrefixes(coordPath)

	tr, err := txn.Begin(ctx, e.Backend, metadataPrefix, e.CacheDir)
	require.NoError(t, err)
	_, present := tr.LegacyBackupPresent()
	require.False(t, present)

	generatedPrimary := &rpmmeta.PrimaryDoc{}
	generatedFilelists := &rpmmeta.FilelistsDoc{}
	generatedOther := &rpmmeta.OtherDoc{}
	for _, pkg := range packages {
		href := packagePrefix + "/" + pkg.Filename
		p, f, o := rpmmeta.FromPackage(pkg, href)
		generatedPrimary.Entries = append(generatedPrimary.Entries, p)
		generatedFilelists.Entries = append(generatedFilelists.Entries, f)
		generatedOther.Entries = append(generatedOther.Entries, o)

		require.NoError(t, e.Backend.WriteBytes(ctx, []byte("fake-rpm-bytes-for-"+pkg.Filename), href))
	}

	repomd := rpmmeta.NewRepomd(1)
	require.NoError(t, e.writeRPMMetadata(ctx, tr, metadataPrefix, generatedPrimary, generatedFilelists, generatedOther, repomd))
	require.NoError(t, e.finishTransaction(ctx, tr, metadataPrefix, packagePrefix, generatedPrimary, repomd))
}

func newTestRPMEngine(t *testing.T) *RPMEngine {
	t.Helper()
	backend, err := storage.NewFSDriver(t.TempDir())
	require.NoError(t, err)
	return &RPMEngine{Backend: backend, CacheDir: t.TempDir()}
}

func samplePackage(name, version, release, arch, sha256 string) *inspect.Package {
	filename := name + "-" + version + "-" + release + "." + arch + ".rpm"
	return &inspect.Package{
		Name: name, Version: version, Release: release, Architecture: arch,
		SHA256: sha256, Size: 1024, Filename: filename,
	}
}

func TestRPMEngineRemoveThenValidateFindsNoIssues(t *testing.T) {
	e := newTestRPMEngine(t)
	ctx := context.Background()
	seedRPMRepo(t, e, "el9/x86_64", []*inspect.Package{
		samplePackage("hello", "1.0.0", "1", "x86_64", "a1b2c3"),
	})

	result, err := e.Remove(ctx, "el9/x86_64", []string{"hello-1.0.0-1.x86_64.rpm"})
	require.NoError(t, err)
	require.Equal(t, []string{"hello-1.0.0-1.x86_64.rpm"}, result.Removed)
	require.Empty(t, result.NotPresent)
	require.Equal(t, txn.OutcomeCommitted, result.Outcome)

	issues, err := e.Validate(ctx, "el9/x86_64")
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestRPMEngineRemoveReportsNotPresentFilenames(t *testing.T) {
	e := newTestRPMEngine(t)
	ctx := context.Background()
	seedRPMRepo(t, e, "el9/x86_64", []*inspect.Package{
		samplePackage("hello", "1.0.0", "1", "x86_64", "a1b2c3"),
	})

	result, err := e.Remove(ctx, "el9/x86_64", []string{"hello-1.0.0-1.x86_64.rpm", "missing-1.0-1.x86_64.rpm"})
	require.NoError(t, err)
	require.Equal(t, []string{"hello-1.0.0-1.x86_64.rpm"}, result.Removed)
	require.Equal(t, []string{"missing-1.0-1.x86_64.rpm"}, result.NotPresent)
}

func TestRPMEngineRemoveNothingMatchingReturnsNothingToRemoveError(t *testing.T) {
	e := newTestRPMEngine(t)
	ctx := context.Background()
	seedRPMRepo(t, e, "el9/x86_64", []*inspect.Package{
		samplePackage("hello", "1.0.0", "1", "x86_64", "a1b2c3"),
	})

	_, err := e.Remove(ctx, "el9/x86_64", []string{"absent-1.0-1.x86_64.rpm"})
	require.Error(t, err)
	var engineErr *Error
	require.ErrorAs(t, err, &engineErr)
	require.Equal(t, KindNothingToRemove, engineErr.Kind)
}

func TestRPMEngineRemoveLeavesOtherPackagesIntact(t *testing.T) {
	e := newTestRPMEngine(t)
	ctx := context.Background()
	seedRPMRepo(t, e, "el9/x86_64", []*inspect.Package{
		samplePackage("hello", "1.0.0", "1", "x86_64", "a1b2c3"),
		samplePackage("world", "2.0.0", "1", "x86_64", "d4e5f6"),
	})

	result, err := e.Remove(ctx, "el9/x86_64", []string{"hello-1.0.0-1.x86_64.rpm"})
	require.NoError(t, err)
	require.Equal(t, []string{"hello-1.0.0-1.x86_64.rpm"}, result.Removed)

	issues, err := e.Validate(ctx, "el9/x86_64")
	require.NoError(t, err)
	require.Empty(t, issues)

	ok, err := e.Backend.Exists(ctx, "el9/x86_64/world-2.0.0-1.x86_64.rpm")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.Backend.Exists(ctx, "el9/x86_64/hello-1.0.0-1.x86_64.rpm")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRPMEngineValidateOnEmptyCoordReportsMissingRepository(t *testing.T) {
	e := newTestRPMEngine(t)
	ctx := context.Background()

	issues, err := e.Validate(ctx, "el9/x86_64")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "MissingRepository", issues[0].Kind)
}

func TestRPMEngineValidateDetectsMissingPackageObject(t *testing.T) {
	e := newTestRPMEngine(t)
	ctx := context.Background()
	seedRPMRepo(t, e, "el9/x86_64", []*inspect.Package{
		samplePackage("hello", "1.0.0", "1", "x86_64", "a1b2c3"),
	})

	require.NoError(t, e.Backend.Delete(ctx, "el9/x86_64/hello-1.0.0-1.x86_64.rpm"))

	issues, err := e.Validate(ctx, "el9/x86_64")
	require.NoError(t, err)
	require.NotEmpty(t, issues)

	var found bool
	for _, issue := range issues {
		if issue.Kind == "MissingPackageObject" {
			found = true
		}
	}
	require.True(t, found)
}
