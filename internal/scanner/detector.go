package scanner

import (
	"bytes"
	"os"
	"path/filepath"
)

// Magic bytes for package detection
var (
	// Debian packages start with "!<arch>\ndebian"
	debMagic = []byte("!<arch>\ndebian")

	// RPM packages start with 0xED 0xAB 0xEE 0xDB
	rpmMagic = []byte{0xED, 0xAB, 0xEE, 0xDB}
)

// DetectPackageType determines the package type based on magic bytes and file extension
func DetectPackageType(path string) (PackageType, error) {
	f, err := os.Open(path)
	if err != nil {
		return TypeUnknown, err
	}
	defer f.Close()

	// Read first 512 bytes for magic byte detection
	header := make([]byte, 512)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return TypeUnknown, err
	}
	header = header[:n]

	ext := filepath.Ext(path)

	if bytes.HasPrefix(header, debMagic) || ext == ".deb" {
		return TypeDeb, nil
	}

	if bytes.HasPrefix(header, rpmMagic) || ext == ".rpm" {
		return TypeRpm, nil
	}

	return TypeUnknown, nil
}
