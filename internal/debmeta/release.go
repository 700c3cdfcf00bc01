package debmeta

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ReleaseEntry is one row of a Release checksum block: the file's
// digest, size, and path relative to dists/<codename>/.
type ReleaseEntry struct {
	Digest string
	Size int64
	Path string
}

// Release is the Debian family's top-level index document, "Release":
// header fields followed by three checksum blocks, in MD5Sum, SHA1,
// SHA256 order.
type Release struct {
	Origin string
	Label string
	Suite string
	Codename string
	Date string
	Architectures string
	Components string
	Description string
	ValidUntil string
	NotAutomatic string
	ButAutomaticUpgrades string
	AcquireByHash string

	MD5Sum []ReleaseEntry
	SHA1 []ReleaseEntry
	SHA256 []ReleaseEntry
}

// SerializeRelease renders header fields, then MD5Sum/SHA1/SHA256
// blocks with rows formatted " <hex>  <size>  <path>" (a leading space,
// the digest, two spaces, the size right-justified to at least 8
// columns, two spaces, the path).
func SerializeRelease(r *Release) []byte {
	var buf bytes.Buffer

	write := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&buf, "%s: %s\n", key, value)
		}
	}
	write("Origin", r.Origin)
	write("Label", r.Label)
	write("Suite", r.Suite)
	write("Codename", r.Codename)
	write("Date", r.Date)
	write("Valid-Until", r.ValidUntil)
	write("Architectures", r.Architectures)
	write("Components", r.Components)
	write("Description", r.Description)
	write("NotAutomatic", r.NotAutomatic)
	write("ButAutomaticUpgrades", r.ButAutomaticUpgrades)
	write("Acquire-By-Hash", r.AcquireByHash)

	writeBlock := func(name string, entries []ReleaseEntry) {
		if len(entries) == 0 {
			return
		}
		sorted := append([]ReleaseEntry(nil), entries...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
		fmt.Fprintf(&buf, "%s:\n", name)
		for _, e := range sorted {
			fmt.Fprintf(&buf, " %s  %8d  %s\n", e.Digest, e.Size, e.Path)
		}
	}
	writeBlock("MD5Sum", r.MD5Sum)
	writeBlock("SHA1", r.SHA1)
	writeBlock("SHA256", r.SHA256)

	return buf.Bytes()
}

// ParseRelease parses a Release document back into its struct form.
func ParseRelease(content []byte) (*Release, error) {
	r := &Release{}
	var currentBlock *[]ReleaseEntry

	for _, line := range strings.Split(string(content), "\n") {
		if line == "" {
			continue
		}
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			if currentBlock == nil {
				continue
			}
			entry, err := parseReleaseRow(line)
			if err != nil {
				return nil, err
			}
			*currentBlock = append(*currentBlock, entry)
			continue
		}

		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])

		switch key {
		case "MD5Sum":
			currentBlock = &r.MD5Sum
		case "SHA1":
			currentBlock = &r.SHA1
		case "SHA256":
			currentBlock = &r.SHA256
		case "Origin":
			r.Origin = val
		case "Label":
			r.Label = val
		case "Suite":
			r.Suite = val
		case "Codename":
			r.Codename = val
		case "Date":
			r.Date = val
		case "Valid-Until":
			r.ValidUntil = val
		case "Architectures":
			r.Architectures = val
		case "Components":
			r.Components = val
		case "Description":
			r.Description = val
		case "NotAutomatic":
			r.NotAutomatic = val
		case "ButAutomaticUpgrades":
			r.ButAutomaticUpgrades = val
		case "Acquire-By-Hash":
			r.AcquireByHash = val
		}
	}
	return r, nil
}

func parseReleaseRow(line string) (ReleaseEntry, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return ReleaseEntry{}, fmt.Errorf("debmeta: malformed release row %q", line)
	}
	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return ReleaseEntry{}, fmt.Errorf("debmeta: malformed size in row %q: %w", line, err)
	}
	return ReleaseEntry{Digest: fields[0], Size: size, Path: strings.Join(fields[2:], " ")}, nil
}

// ChecksumsFor computes the MD5Sum/SHA1/SHA256 blocks for a set of
// rendered files (path → bytes), used after every metadata mutation.
func ChecksumsFor(md5, sha1, sha256 map[string]string, sizes map[string]int64) ([]ReleaseEntry, []ReleaseEntry, []ReleaseEntry) {
	paths := make([]string, 0, len(sizes))
	for p := range sizes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var md5e, sha1e, sha256e []ReleaseEntry
	for _, p := range paths {
		md5e = append(md5e, ReleaseEntry{Digest: md5[p], Size: sizes[p], Path: p})
		sha1e = append(sha1e, ReleaseEntry{Digest: sha1[p], Size: sizes[p], Path: p})
		sha256e = append(sha256e, ReleaseEntry{Digest: sha256[p], Size: sizes[p], Path: p})
	}
	return md5e, sha1e, sha256e
}
