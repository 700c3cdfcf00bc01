package digest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGzipCompressThenDecompressRoundTrips(t *testing.T) {
	data := []byte("<metadata packages=\"1\"></metadata>")

	compressed, err := GzipCompress(data)
	require.NoError(t, err)
	require.NotEqual(t, data, compressed)

	got, err := GzipDecompress(compressed)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestBzip2CompressThenDecompressRoundTrips(t *testing.T) {
	data := []byte("Package: foo\nVersion: 1.0\n\n")

	compressed, err := Bzip2Compress(data)
	require.NoError(t, err)
	require.NotEqual(t, data, compressed)

	got, err := Bzip2Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestBzip2DecompressRejectsGzipBytes(t *testing.T) {
	gz, err := GzipCompress([]byte("not bzip2"))
	require.NoError(t, err)

	_, err = Bzip2Decompress(gz)
	require.Error(t, err)
}
