package txn

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/repogen/reposync/internal/storage"
)

func newTestBackend(t *testing.T) storage.Backend {
	t.Helper()
	d, err := storage.NewFSDriver(t.TempDir())
	require.NoError(t, err)
	return d
}

func TestBeginWithNoPriorStateSnapshotsEmptyPrefix(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)
	cacheDir := t.TempDir()

	tr, err := Begin(ctx, backend, "repodata", cacheDir)
	require.NoError(t, err)
	_, present := tr.LegacyBackupPresent()
	require.False(t, present)
	require.NotEmpty(t, tr.BackupPrefix)
	require.NotEmpty(t, tr.StagingDir)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestBeginSnapshotsExistingMetadataIntoBackupPrefix(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	require.NoError(t, backend.WriteBytes(ctx, []byte("old-repomd"), "repodata/repomd.xml"))

	tr, err := Begin(ctx, backend, "repodata", t.TempDir())
	require.NoError(t, err)

	got, err := backend.Read(ctx, tr.BackupPrefix+"/repomd.xml")
	require.NoError(t, err)
	require.Equal(t, []byte("old-repomd"), got)
}

func TestBeginDetectsLegacyBackupAndSkipsSnapshotAndStagingDir(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	require.NoError(t, backend.WriteBytes(ctx, []byte("x"), "repodata/repomd.xml"))
	require.NoError(t, backend.WriteBytes(ctx, []byte("y"), "repodata.backup-20260101-000000/repomd.xml"))

	cacheDir := t.TempDir()
	tr, err := Begin(ctx, backend, "repodata", cacheDir)
	require.NoError(t, err)

	legacy, present := tr.LegacyBackupPresent()
	require.True(t, present)
	require.Equal(t, "repodata.backup-20260101-000000", legacy)

	require.Empty(t, tr.StagingDir)
	require.Empty(t, tr.BackupPrefix)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	require.Empty(t, entries, "Begin must not create a staging dir when a legacy backup is already present")
}

func TestUploadFileAndUploadBytesWriteToBackend(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	tr, err := Begin(ctx, backend, "repodata", t.TempDir())
	require.NoError(t, err)

	localFile := filepath.Join(t.TempDir(), "primary.xml.gz")
	require.NoError(t, os.WriteFile(localFile, []byte("primary-bytes"), 0o644))

	require.NoError(t, tr.UploadFile(ctx, localFile, "repodata/primary.xml.gz"))
	require.NoError(t, tr.UploadBytes(ctx, []byte("<repomd/>"), "repodata/repomd.xml"))

	got, err := backend.Read(ctx, "repodata/primary.xml.gz")
	require.NoError(t, err)
	require.Equal(t, []byte("primary-bytes"), got)

	got, err = backend.Read(ctx, "repodata/repomd.xml")
	require.NoError(t, err)
	require.Equal(t, []byte("<repomd/>"), got)
}

func TestSweepDeletesUnreferencedObjects(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	tr, err := Begin(ctx, backend, "repodata", t.TempDir())
	require.NoError(t, err)

	require.NoError(t, tr.UploadBytes(ctx, []byte("keep"), "repodata/repomd.xml"))
	require.NoError(t, tr.UploadBytes(ctx, []byte("stale"), "repodata/old-primary.xml.gz"))

	require.NoError(t, tr.Sweep(ctx, map[string]bool{"repodata/repomd.xml": true}))

	ok, err := backend.Exists(ctx, "repodata/old-primary.xml.gz")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = backend.Exists(ctx, "repodata/repomd.xml")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCommitRemovesBackupPrefixAndStagingDir(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	require.NoError(t, backend.WriteBytes(ctx, []byte("v1"), "repodata/repomd.xml"))

	tr, err := Begin(ctx, backend, "repodata", t.TempDir())
	require.NoError(t, err)
	require.NoError(t, tr.UploadBytes(ctx, []byte("v2"), "repodata/repomd.xml"))

	stagingDir := tr.StagingDir
	require.NoError(t, tr.Commit(ctx))

	require.Equal(t, OutcomeCommitted, tr.Outcome)

	names, err := backend.List(ctx, tr.BackupPrefix, "")
	require.NoError(t, err)
	require.Empty(t, names)

	_, err = os.Stat(stagingDir)
	require.True(t, os.IsNotExist(err))
}

func TestRestoreRevertsToBackupAndRemovesNewObjects(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	require.NoError(t, backend.WriteBytes(ctx, []byte("v1"), "repodata/repomd.xml"))

	tr, err := Begin(ctx, backend, "repodata", t.TempDir())
	require.NoError(t, err)

	require.NoError(t, tr.UploadBytes(ctx, []byte("v2"), "repodata/repomd.xml"))
	require.NoError(t, tr.UploadBytes(ctx, []byte("new-file"), "repodata/primary.xml.gz"))

	require.NoError(t, tr.Restore(ctx))
	require.Equal(t, OutcomeRestored, tr.Outcome)

	got, err := backend.Read(ctx, "repodata/repomd.xml")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)

	ok, err := backend.Exists(ctx, "repodata/primary.xml.gz")
	require.NoError(t, err)
	require.False(t, ok)

	names, err := backend.List(ctx, tr.BackupPrefix, "")
	require.NoError(t, err)
	require.NotEmpty(t, names, "Restore retains the backup prefix for inspection")
}

func TestAbandonDeletesBackupAndLeavesLiveMetadataUntouched(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	require.NoError(t, backend.WriteBytes(ctx, []byte("v1"), "repodata/repomd.xml"))

	tr, err := Begin(ctx, backend, "repodata", t.TempDir())
	require.NoError(t, err)

	require.NoError(t, tr.Abandon(ctx))
	require.Equal(t, OutcomeCommitted, tr.Outcome)

	got, err := backend.Read(ctx, "repodata/repomd.xml")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)

	names, err := backend.List(ctx, tr.BackupPrefix, "")
	require.NoError(t, err)
	require.Empty(t, names)
}
