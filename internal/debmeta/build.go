package debmeta

import (
	"strconv"

	"github.com/repogen/reposync/internal/inspect"
)

// FromPackage builds a Packages stanza for an inspected .deb, with
// poolPath as the Filename field (pool layout).
func FromPackage(pkg *inspect.Package, poolPath string) *Stanza {
	s := NewStanza()
	s.Set("Package", pkg.Name)
	s.Set("Version", pkg.Version)
	s.Set("Architecture", pkg.Architecture)
	if pkg.Maintainer != "" {
		s.Set("Maintainer", pkg.Maintainer)
	}
	if pkg.InstalledSize > 0 {
		s.Set("Installed-Size", strconv.FormatInt(pkg.InstalledSize, 10))
	}
	if len(pkg.Depends) > 0 {
		s.Set("Depends", joinComma(pkg.Depends))
	}
	s.Set("Filename", poolPath)
	s.Set("Size", strconv.FormatInt(pkg.Size, 10))
	s.Set("MD5sum", pkg.MD5)
	s.Set("SHA1", pkg.SHA1)
	s.Set("SHA256", pkg.SHA256)
	if pkg.Description != "" {
		s.Set("Description", pkg.Description)
	}
	return s
}

func joinComma(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += it
	}
	return out
}
