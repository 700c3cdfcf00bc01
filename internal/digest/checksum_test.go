package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileChecksumsMatchesKnownVectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	sums, err := FileChecksums(path)
	require.NoError(t, err)
	require.Equal(t, int64(len("hello world")), sums.Size)
	require.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", sums.MD5)
	require.Equal(t, "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed", sums.SHA1)
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", sums.SHA256)
}

func TestSHA256BytesMatchesSHA256Reader(t *testing.T) {
	data := []byte("repository metadata payload")

	fromBytes := SHA256Bytes(data)
	fromReader, n, err := SHA256Reader(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), n)
	require.Equal(t, fromBytes, fromReader)
}

func TestSumSelectsAlgorithmByName(t *testing.T) {
	data := []byte("x")
	require.Equal(t, Sum(data, "md5"), Sum(data, "md5"))
	require.NotEqual(t, Sum(data, "md5"), Sum(data, "sha1"))
	require.NotEqual(t, Sum(data, "sha1"), Sum(data, "sha256"))
	require.Equal(t, Sum(data, "sha256"), Sum(data, "unknown-defaults-to-sha256"))
}

func TestContentAddressedNamePrefixesWithDigest(t *testing.T) {
	data := []byte("package bytes")
	name := ContentAddressedName(data, "foo-1.0.rpm")
	require.True(t, strings.HasSuffix(name, "-foo-1.0.rpm"))
	require.Equal(t, SHA256Bytes(data)+"-foo-1.0.rpm", name)
}
