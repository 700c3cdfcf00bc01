package inspect

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/repogen/reposync/internal/digest"
)

// InspectDeb extracts a .deb package's control stanza and checksums.
func InspectDeb(path string) (*Package, error) {
	sums, err := digest.FileChecksums(path)
	if err != nil {
		return nil, fmt.Errorf("%w: checksum %s: %v", ErrMalformed, path, err)
	}

	control, err := extractControl(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	pkg, err := parseControlStanza(control)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	if pkg.Name == "" || pkg.Version == "" {
		return nil, fmt.Errorf("%w: %s missing Package/Version", ErrMalformed, path)
	}

	pkg.Size = sums.Size
	pkg.MD5 = sums.MD5
	pkg.SHA1 = sums.SHA1
	pkg.SHA256 = sums.SHA256
	pkg.LocalPath = path

	if info, statErr := os.Stat(path); statErr == nil {
		pkg.FileTime = info.ModTime().Unix()
	}

	return pkg, nil
}

// extractControl locates the control.tar{,.gz,.xz,.zst} member of the
// .deb ar archive and returns the control file it contains.
func extractControl(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := ar.NewReader(f)
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		name := strings.TrimRight(header.Name, "/")
		if !strings.HasPrefix(name, "control.tar") {
			continue
		}

		data := make([]byte, header.Size)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		return controlFromTar(data, name)
	}
	return nil, fmt.Errorf("control.tar member not found")
}

func controlFromTar(data []byte, memberName string) ([]byte, error) {
	var tr *tar.Reader

	switch {
	case strings.HasSuffix(memberName, ".gz"):
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		tr = tar.NewReader(gz)
	case strings.HasSuffix(memberName, ".xz"):
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		tr = tar.NewReader(xr)
	case strings.HasSuffix(memberName, ".zst"):
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		tr = tar.NewReader(zr)
	default:
		tr = tar.NewReader(bytes.NewReader(data))
	}

	for {
		th, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if filepath.Base(th.Name) == "control" {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("control file not found in %s", memberName)
}

// parseControlStanza parses an RFC-822 style control stanza, folding
// continuation lines (those beginning with a space or tab) into the
// preceding field's value.
func parseControlStanza(data []byte) (*Package, error) {
	pkg := &Package{}
	fields := map[string]string{}

	var currentKey string
	var currentValue strings.Builder
	flush := func() {
		if currentKey == "" {
			return
		}
		fields[currentKey] = strings.TrimSpace(currentValue.String())
	}

	for _, line := range strings.Split(string(data), "\n") {
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			currentValue.WriteString("\n")
			currentValue.WriteString(strings.TrimSpace(line))
			continue
		}
		if !strings.Contains(line, ":") {
			continue
		}
		flush()
		parts := strings.SplitN(line, ":", 2)
		currentKey = strings.TrimSpace(parts[0])
		currentValue.Reset()
		if len(parts) > 1 {
			currentValue.WriteString(strings.TrimSpace(parts[1]))
		}
	}
	flush()

	pkg.Name = fields["Package"]
	pkg.Version = fields["Version"]
	pkg.Architecture = fields["Architecture"]
	pkg.Maintainer = fields["Maintainer"]
	pkg.Description = fields["Description"]
	pkg.URL = fields["Homepage"]

	if v, ok := fields["Depends"]; ok {
		pkg.Depends = splitDebList(v)
	}
	if v, ok := fields["Conflicts"]; ok {
		pkg.Conflicts = splitDebList(v)
	}
	if v, ok := fields["Provides"]; ok {
		pkg.Provides = splitDebList(v)
	}
	if v, ok := fields["Installed-Size"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			pkg.InstalledSize = n
		}
	}

	return pkg, nil
}

func splitDebList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
