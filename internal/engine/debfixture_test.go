package engine

import (
	"archive/tar"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// arMember is one entry of a Unix ar archive, the container format a
// .deb file uses for its three top-level members.
type arMember struct {
	name string
	data []byte
}

// buildAr assembles a Unix ar archive (the "!<arch>\n" global header
// followed by 60-byte member headers) byte-for-byte, rather than going
// through a writer library, since ar's on-disk layout is small and
// fixed: 16-byte name, 12-byte mtime, 6-byte uid, 6-byte gid, 8-byte
// mode, 10-byte size, then the two-byte "`\n" terminator, all
// space-padded ASCII, with member content padded to an even length.
func buildAr(members []arMember) []byte {
	var buf bytes.Buffer
	buf.WriteString("!<arch>\n")
	for _, m := range members {
		name := m.name + "/"
		fmt.Fprintf(&buf, "%-16s%-12s%-6s%-6s%-8s%-10d`\n", name, "0", "0", "0", "100644", len(m.data))
		buf.Write(m.data)
		if len(m.data)%2 != 0 {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// buildControlTarGz tars a single "./control" member containing the
// given RFC-822 stanza text and gzips it, matching the control.tar.gz
// member real dpkg-deb produces.
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

// buildDataTarGz tars a single regular file member, matching the
// data.tar.gz member's shape closely enough for InspectDeb, which never
// reads it. payload varies the member content so two fixtures can share
// a filename while differing in checksum.
func buildDataTarGz(t *testing.T, payload string) []byte {
	t.Helper()
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	content := []byte(payload)
	hdr := &tar.Header{Name: "./usr/bin/hello", Size: int64(len(content)), Mode: 0o755}
	require.NoError(t, tw.WriteHeader(hdr))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	var gzBuf bytes.Buffer
	gz := gzip.NewWriter(&gzBuf)
	_, err = gz.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return gzBuf.Bytes()
}

// debFixture describes the control fields of a synthetic .deb, enough to
// drive inspect.InspectDeb end to end through a real ar/tar/gzip package.
// payload lets two fixtures share a Filename (name+version+arch) while
// differing in checksum, for the update-by-checksum scenario.
type debFixture struct {
	name string
	version string
	arch string
	payload string
}

// writeDebFixture writes a complete, well-formed .deb file to dir and
// returns its path.
func writeDebFixture(t *testing.T, dir string, f debFixture) string {
	t.Helper()
	control := fmt.Sprintf("Package: %s\nVersion: %s\nArchitecture: %s\nMaintainer: Test <test@example.com>\nInstalled-Size: 10\nDescription: a test package\n", f.name, f.version, f.arch)
	payload := f.payload
	if payload == "" {
		payload = "binary payload"
	}

	archive := buildAr([]arMember{
		{name: "debian-binary", data: []byte("2.0\n")},
		{name: "control.tar.gz", data: buildControlTarGz(t, control)},
		{name: "data.tar.gz", data: buildDataTarGz(t, payload)},
	})

	path := filepath.Join(dir, fmt.Sprintf("%s_%s_%s.deb", f.name, f.version, f.arch))
	require.NoError(t, os.WriteFile(path, archive, 0o644))
	return path
}
