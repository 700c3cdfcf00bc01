package inspect

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func buildControlTarGz(t *testing.T, control string) []byte {
	t.Helper()
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	hdr := &tar.Header{Name: "./control", Size: int64(len(control)), Mode: 0o644}
	require.NoError(t, tw.WriteHeader(hdr))
	_, err := tw.Write([]byte(control))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	var gzBuf bytes.Buffer
	gz := gzip.NewWriter(&gzBuf)
	_, err = gz.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	return gzBuf.Bytes()
}

func TestControlFromTarGzExtractsControlMember(t *testing.T) {
	control := "Package: foo\nVersion: 1.0\n"
	data := buildControlTarGz(t, control)

	got, err := controlFromTar(data, "control.tar.gz")
	require.NoError(t, err)
	require.Equal(t, control, string(got))
}

func TestControlFromTarPlainUncompressed(t *testing.T) {
	control := "Package: foo\nVersion: 1.0\n"
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	hdr := &tar.Header{Name: "control", Size: int64(len(control)), Mode: 0o644}
	require.NoError(t, tw.WriteHeader(hdr))
	_, err := tw.Write([]byte(control))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	got, err := controlFromTar(tarBuf.Bytes(), "control.tar")
	require.NoError(t, err)
	require.Equal(t, control, string(got))
}

func TestControlFromTarMissingControlMemberErrors(t *testing.T) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	hdr := &tar.Header{Name: "changelog", Size: 1, Mode: 0o644}
	require.NoError(t, tw.WriteHeader(hdr))
	_, err := tw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	_, err = controlFromTar(tarBuf.Bytes(), "control.tar")
	require.Error(t, err)
}

func TestParseControlStanzaFoldsContinuationLines(t *testing.T) {
	stanza := "Package: foo\n" +
		"Version: 1.2.3\n" +
		"Architecture: amd64\n" +
		"Maintainer: Dev <dev@example.com>\n" +
		"Installed-Size: 42\n" +
		"Depends: libc6 (>= 2.31), libssl3\n" +
		"Description: a package\n" +
		" long description continues\n" +
		" across multiple lines\n"

	pkg, err := parseControlStanza([]byte(stanza))
	require.NoError(t, err)
	require.Equal(t, "foo", pkg.Name)
	require.Equal(t, "1.2.3", pkg.Version)
	require.Equal(t, "amd64", pkg.Architecture)
	require.Equal(t, "Dev <dev@example.com>", pkg.Maintainer)
	require.Equal(t, int64(42), pkg.InstalledSize)
	require.Equal(t, []string{"libc6 (>= 2.31)", "libssl3"}, pkg.Depends)
	require.Contains(t, pkg.Description, "a package")
	require.Contains(t, pkg.Description, "long description continues")
}

func TestParseControlStanzaMissingFieldsLeavesThemEmpty(t *testing.T) {
	pkg, err := parseControlStanza([]byte("Package: foo\n"))
	require.NoError(t, err)
	require.Equal(t, "foo", pkg.Name)
	require.Empty(t, pkg.Version)
	require.Nil(t, pkg.Depends)
}

func TestSplitDebListTrimsAndDropsEmptyEntries(t *testing.T) {
	got := splitDebList("libc6 (>= 2.31), libssl3,  , libz1")
	require.Equal(t, []string{"libc6 (>= 2.31)", "libssl3", "libz1"}, got)
}
