package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestFSDriver(t *testing.T) *FSDriver {
	t.Helper()
	d, err := NewFSDriver(t.TempDir())
	require.NoError(t, err)
	return d
}

func TestFSDriverWriteBytesThenReadRoundTrips(t *testing.T) {
	ctx := context.Background()
	d := newTestFSDriver(t)

	require.NoError(t, d.WriteBytes(ctx, []byte("hello"), "repodata/primary.xml.gz"))

	got, err := d.Read(ctx, "repodata/primary.xml.gz")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestFSDriverReadMissingReturnsErrNotFound(t *testing.T) {
	ctx := context.Background()
	d := newTestFSDriver(t)

	_, err := d.Read(ctx, "does/not/exist")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestFSDriverExistsReportsPresenceWithoutError(t *testing.T) {
	ctx := context.Background()
	d := newTestFSDriver(t)

	ok, err := d.Exists(ctx, "pool/a/foo-1.0.deb")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, d.WriteBytes(ctx, []byte("x"), "pool/a/foo-1.0.deb"))

	ok, err = d.Exists(ctx, "pool/a/foo-1.0.deb")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFSDriverDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d := newTestFSDriver(t)

	require.NoError(t, d.Delete(ctx, "never/written"))

	require.NoError(t, d.WriteBytes(ctx, []byte("x"), "repodata/repomd.xml"))
	require.NoError(t, d.Delete(ctx, "repodata/repomd.xml"))
	require.NoError(t, d.Delete(ctx, "repodata/repomd.xml"))

	ok, err := d.Exists(ctx, "repodata/repomd.xml")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFSDriverListFiltersBySuffixAndSortsNames(t *testing.T) {
	ctx := context.Background()
	d := newTestFSDriver(t)

	require.NoError(t, d.WriteBytes(ctx, []byte("1"), "repodata/other.xml.gz"))
	require.NoError(t, d.WriteBytes(ctx, []byte("2"), "repodata/primary.xml.gz"))
	require.NoError(t, d.WriteBytes(ctx, []byte("3"), "repodata/repomd.xml"))

	all, err := d.List(ctx, "repodata", "")
	require.NoError(t, err)
	require.Equal(t, []string{"other.xml.gz", "primary.xml.gz", "repomd.xml"}, all)

	gz, err := d.List(ctx, "repodata", ".xml.gz")
	require.NoError(t, err)
	require.Equal(t, []string{"other.xml.gz", "primary.xml.gz"}, gz)
}

func TestFSDriverListMissingPrefixReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	d := newTestFSDriver(t)

	names, err := d.List(ctx, "nope", "")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestFSDriverCopyDuplicatesBytes(t *testing.T) {
	ctx := context.Background()
	d := newTestFSDriver(t)

	require.NoError(t, d.WriteBytes(ctx, []byte("payload"), "repodata/repomd.xml"))
	require.NoError(t, d.Copy(ctx, "repodata/repomd.xml", "repodata.backup-20260101-000000/repomd.xml"))

	got, err := d.Read(ctx, "repodata.backup-20260101-000000/repomd.xml")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)

	orig, err := d.Read(ctx, "repodata/repomd.xml")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), orig)
}

func TestFSDriverPushTreeThenPullTreeRoundTrips(t *testing.T) {
	ctx := context.Background()
	d := newTestFSDriver(t)

	local := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(local, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(local, "repomd.xml"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(local, "sub", "primary.xml.gz"), []byte("b"), 0o644))

	pushed, err := d.PushTree(ctx, local, "repodata")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"repomd.xml", "sub/primary.xml.gz"}, pushed)

	pullDir := t.TempDir()
	pulled, err := d.PullTree(ctx, "repodata", pullDir)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"repomd.xml", "sub/primary.xml.gz"}, pulled)

	got, err := os.ReadFile(filepath.Join(pullDir, "sub", "primary.xml.gz"))
	require.NoError(t, err)
	require.Equal(t, []byte("b"), got)
}

func TestFSDriverDescribeReportsLocalTypeAndBase(t *testing.T) {
	d := newTestFSDriver(t)
	desc := d.Describe()
	require.Equal(t, "local", desc["type"])
	require.Equal(t, d.Base, desc["path"])
}
