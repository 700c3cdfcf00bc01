package rpmmeta

// MergePrimary splices generated's <package> entries into existing,
// replacing any entry whose Location.Href matches (an update) and
// appending the rest (new).
func MergePrimary(existing, generated *PrimaryDoc) *PrimaryDoc {
	out := &PrimaryDoc{Xmlns: nsCommon, XmlnsRpm: nsRpm}
	byHref := map[string]int{}
	if existing != nil {
		out.Entries = append(out.Entries, existing.Entries...)
		for i, e := range out.Entries {
			byHref[e.Location.Href] = i
		}
	}
	if generated != nil {
		for _, e := range generated.Entries {
			if idx, ok := byHref[e.Location.Href]; ok {
				out.Entries[idx] = e
				continue
			}
			byHref[e.Location.Href] = len(out.Entries)
			out.Entries = append(out.Entries, e)
		}
	}
	out.Packages = len(out.Entries)
	return out
}

// MergeFilelists joins generated package-file records into existing,
// keyed by pkgid (the package sha256, shared across primary/filelists/
// other per FromPackage).
func MergeFilelists(existing, generated *FilelistsDoc) *FilelistsDoc {
	out := &FilelistsDoc{Xmlns: nsFilelists}
	byPkgid := map[string]int{}
	if existing != nil {
		out.Entries = append(out.Entries, existing.Entries...)
		for i, e := range out.Entries {
			byPkgid[e.Pkgid] = i
		}
	}
	if generated != nil {
		for _, e := range generated.Entries {
			if idx, ok := byPkgid[e.Pkgid]; ok {
				out.Entries[idx] = e
				continue
			}
			byPkgid[e.Pkgid] = len(out.Entries)
			out.Entries = append(out.Entries, e)
		}
	}
	out.Packages = len(out.Entries)
	return out
}

// MergeOther joins generated changelog records into existing, keyed by
// pkgid.
func MergeOther(existing, generated *OtherDoc) *OtherDoc {
	out := &OtherDoc{Xmlns: nsOther}
	byPkgid := map[string]int{}
	if existing != nil {
		out.Entries = append(out.Entries, existing.Entries...)
		for i, e := range out.Entries {
			byPkgid[e.Pkgid] = i
		}
	}
	if generated != nil {
		for _, e := range generated.Entries {
			if idx, ok := byPkgid[e.Pkgid]; ok {
				out.Entries[idx] = e
				continue
			}
			byPkgid[e.Pkgid] = len(out.Entries)
			out.Entries = append(out.Entries, e)
		}
	}
	out.Packages = len(out.Entries)
	return out
}

// RemoveByFilename deletes package entries whose storage filename
// (basename of Location.Href) is in filenames, from all three documents
// in place. It returns the set of filenames it found and removed.
func RemoveByFilename(primary *PrimaryDoc, filelists *FilelistsDoc, other *OtherDoc, filenames map[string]bool) (removed map[string]bool) {
	removed = map[string]bool{}
	removedPkgid := map[string]bool{}

	var keptPrimary []PrimaryPackage
	for _, e := range primary.Entries {
		base := baseName(e.Location.Href)
		if filenames[base] {
			removed[base] = true
			removedPkgid[e.Checksum.Value] = true
			continue
		}
		keptPrimary = append(keptPrimary, e)
	}
	primary.Entries = keptPrimary
	primary.Packages = len(primary.Entries)

	if filelists != nil {
		var keptFl []FilelistsPackage
		for _, e := range filelists.Entries {
			if removedPkgid[e.Pkgid] {
				continue
			}
			keptFl = append(keptFl, e)
		}
		filelists.Entries = keptFl
		filelists.Packages = len(filelists.Entries)
	}

	if other != nil {
		var keptOther []OtherPackage
		for _, e := range other.Entries {
			if removedPkgid[e.Pkgid] {
				continue
			}
			keptOther = append(keptOther, e)
		}
		other.Entries = keptOther
		other.Packages = len(other.Entries)
	}

	return removed
}

func baseName(href string) string {
	for i := len(href) - 1; i >= 0; i-- {
		if href[i] == '/' {
			return href[i+1:]
		}
	}
	return href
}

// ExistingChecksums extracts filename → sha256 from a primary document,
// tolerating documents parsed from either prefixed or default-namespace
// serializations: the struct tags above already match either, since
// Go's decoder resolves by local name.
func ExistingChecksums(primary *PrimaryDoc) map[string]string {
	out := make(map[string]string, len(primary.Entries))
	for _, e := range primary.Entries {
		out[baseName(e.Location.Href)] = e.Checksum.Value
	}
	return out
}
