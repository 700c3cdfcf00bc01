package rpmmeta

import (
	"strconv"

	"github.com/repogen/reposync/internal/inspect"
)

// FromPackage builds the three per-package entries (primary, filelists,
// other) from an inspected RPM, keyed by a shared pkgid (the package's
// sha256) so the three documents can be joined back together.
func FromPackage(pkg *inspect.Package, storageLocation string) (PrimaryPackage, FilelistsPackage, OtherPackage) {
	epoch := pkg.Epoch
	if epoch == "" {
		epoch = "0"
	}
	version := EntryVersion{Epoch: epoch, Ver: pkg.Version, Rel: pkg.Release}

	primary := PrimaryPackage{
		Type:    "rpm",
		Name:    pkg.Name,
		Arch:    pkg.Architecture,
		Version: version,
		Checksum: Checksum{
			Type:  "sha256",
			Pkgid: "YES",
			Value: pkg.SHA256,
		},
		Summary:  pkg.Summary,
		Desc:     pkg.Description,
		Packager: pkg.Maintainer,
		URL:      pkg.URL,
		Time:     Time{File: pkg.FileTime, Build: pkg.BuildTime},
		Size:     Size{Package: pkg.Size, Installed: pkg.Size, Archive: pkg.Size},
		Location: Location{Href: storageLocation},
		Format: Format{
			License:   pkg.License,
			Group:     pkg.Group,
			Provides:  depList(pkg.Provides),
			Requires:  depList(pkg.Requires),
			Conflicts: depList(pkg.Conflicts),
			Obsoletes: depList(pkg.Obsoletes),
		},
	}

	var files []FilelistsFile
	for _, fe := range pkg.Files {
		files = append(files, FilelistsFile{Type: fe.Type, Path: fe.Path})
	}
	filelists := FilelistsPackage{
		Pkgid:   pkg.SHA256,
		Name:    pkg.Name,
		Arch:    pkg.Architecture,
		Version: version,
		Files:   files,
	}

	var changelogs []ChangelogEntry
	for _, c := range pkg.Changelogs {
		changelogs = append(changelogs, ChangelogEntry{Author: c.Author, Date: c.Date, Text: c.Text})
	}
	other := OtherPackage{
		Pkgid:      pkg.SHA256,
		Name:       pkg.Name,
		Arch:       pkg.Architecture,
		Version:    version,
		Changelogs: changelogs,
	}

	return primary, filelists, other
}

func depList(names []string) *DepList {
	if len(names) == 0 {
		return nil
	}
	dl := &DepList{}
	for _, n := range names {
		dl.Entries = append(dl.Entries, parseDepEntry(n))
	}
	return dl
}

// parseDepEntry splits an RPM dependency string of the form
// "name OP epoch:ver-rel" (op/version optional) into a DepEntry.
func parseDepEntry(spec string) DepEntry {
	fields := splitFields(spec)
	entry := DepEntry{Name: fields[0]}
	if len(fields) < 3 {
		return entry
	}
	entry.Flags = rpmFlag(fields[1])
	evr := fields[2]
	epoch, ver, rel := splitEVR(evr)
	entry.Epoch = epoch
	entry.Ver = ver
	entry.Rel = rel
	return entry
}

func splitFields(s string) []string {
	var fields []string
	var cur []rune
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if len(cur) > 0 {
				fields = append(fields, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		fields = append(fields, string(cur))
	}
	return fields
}

func rpmFlag(op string) string {
	switch op {
	case "=":
		return "EQ"
	case "<":
		return "LT"
	case "<=":
		return "LE"
	case ">":
		return "GT"
	case ">=":
		return "GE"
	default:
		return ""
	}
}

func splitEVR(evr string) (epoch, ver, rel string) {
	epoch = "0"
	rest := evr
	for i, c := range evr {
		if c == ':' {
			if _, err := strconv.Atoi(evr[:i]); err == nil {
				epoch = evr[:i]
				rest = evr[i+1:]
			}
			break
		}
	}
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == '-' {
			return epoch, rest[:i], rest[i+1:]
		}
	}
	return epoch, rest, ""
}
