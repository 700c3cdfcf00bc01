package inspect

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/sassoftware/go-rpmutils"

	"github.com/repogen/reposync/internal/digest"
)

// tag numbers not exported by go-rpmutils that we still need.
const (
	tagDistURL = 1123
	tagDistName = 1010
	tagDistTag = 1155
	tagChangelogTime = 1080
	tagChangelogName = 1081
	tagChangelogText = 1082
)

// InspectRPM extracts an RPM package's control fields, failing with
// ErrMalformed when required fields cannot be read.
func InspectRPM(path string) (*Package, error) {
	sums, err := digest.FileChecksums(path)
	if err != nil {
		return nil, fmt.Errorf("%w: checksum %s: %v", ErrMalformed, path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrMalformed, path, err)
	}
	defer f.Close()

	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read rpm header %s: %v", ErrMalformed, path, err)
	}

	name := stringTag(rpm, rpmutils.NAME)
	version := stringTag(rpm, rpmutils.VERSION)
	arch := stringTag(rpm, rpmutils.ARCH)
	if name == "" || version == "" {
		return nil, fmt.Errorf("%w: %s missing name/version", ErrMalformed, path)
	}

	pkg := &Package{
		Name: name,
		Version: version,
		Release: stringTag(rpm, rpmutils.RELEASE),
		Epoch: epochTag(rpm),
		Architecture: arch,
		Summary: stringTag(rpm, rpmutils.SUMMARY),
		Description: stringTag(rpm, rpmutils.DESCRIPTION),
		License: stringTag(rpm, rpmutils.LICENSE),
		URL: stringTag(rpm, rpmutils.URL),
		Maintainer: stringTag(rpm, rpmutils.PACKAGER),
		Group: stringTag(rpm, rpmutils.GROUP),
		BuildTime: intTag(rpm, rpmutils.BUILDTIME),
		Provides: stringSliceTag(rpm, rpmutils.PROVIDENAME),
		Requires: stringSliceTag(rpm, rpmutils.REQUIRENAME),
		Conflicts: stringSliceTag(rpm, rpmutils.CONFLICTNAME),
		Obsoletes: stringSliceTag(rpm, rpmutils.OBSOLETENAME),
		Size: sums.Size,
		MD5: sums.MD5,
		SHA1: sums.SHA1,
		SHA256: sums.SHA256,
		LocalPath: path,
	}

	if info, statErr := f.Stat(); statErr == nil {
		pkg.FileTime = info.ModTime().Unix()
	}

	pkg.ElVersion = elVersion(rpm)
	pkg.Files = fileEntries(rpm)
	pkg.Changelogs = changelogEntries(rpm)

	return pkg, nil
}

func stringTag(rpm *rpmutils.Rpm, tag int) string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func epochTag(rpm *rpmutils.Rpm) string {
	val, err := rpm.Header.Get(rpmutils.EPOCH)
	if err != nil {
		return "0"
	}
	switch v := val.(type) {
	case []int32:
		if len(v) > 0 {
			return fmt.Sprintf("%d", v[0])
		}
	case int32:
		return fmt.Sprintf("%d", v)
	case int:
		return fmt.Sprintf("%d", v)
	}
	return "0"
}

func intTag(rpm *rpmutils.Rpm, tag int) int64 {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return 0
	}
	switch v := val.(type) {
	case []int32:
		if len(v) > 0 {
			return int64(v[0])
		}
	case int32:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func stringSliceTag(rpm *rpmutils.Rpm, tag int) []string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return nil
	}
	slice, ok := val.([]string)
	if !ok {
		return nil
	}
	var out []string
	for _, s := range slice {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

var distroVersionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.el(\d+)`),
	regexp.MustCompile(`el(\d+)`),
	regexp.MustCompile(`\.fc(\d+)`),
	regexp.MustCompile(`fc(\d+)`),
	regexp.MustCompile(`\.c(\d+)`),
	regexp.MustCompile(`fedora(\d+)`),
}

// elVersion derives the trailing .el<N> tag from the release string or
// distro tags.
func elVersion(rpm *rpmutils.Rpm) string {
	candidates := []string{
		stringTag(rpm, tagDistTag),
		stringTag(rpm, tagDistURL),
		stringTag(rpm, tagDistName),
		stringTag(rpm, rpmutils.RELEASE),
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, re := range distroVersionPatterns {
			if m := re.FindStringSubmatch(c); len(m) > 1 {
				return m[1]
			}
		}
	}
	return ""
}

const modeFmtMask = 0170000
const modeFmtDir = 0040000

func fileEntries(rpm *rpmutils.Rpm) []FileEntry {
	files, err := rpm.Header.GetFiles()
	if err != nil {
		return nil
	}
	var out []FileEntry
	for _, fi := range files {
		ftype := ""
		switch {
		case fi.Flags&rpmutils.FileFlagGhost != 0:
			ftype = "ghost"
		case int(fi.Mode)&modeFmtMask == modeFmtDir:
			ftype = "dir"
		}
		out = append(out, FileEntry{Path: fi.Name, Type: ftype})
	}
	return out
}

func changelogEntries(rpm *rpmutils.Rpm) []Changelog {
	times, _ := rpm.Header.Get(tagChangelogTime)
	names, _ := rpm.Header.Get(tagChangelogName)
	texts, _ := rpm.Header.Get(tagChangelogText)

	timeSlice, _ := times.([]int32)
	nameSlice, _ := names.([]string)
	textSlice, _ := texts.([]string)

	n := len(timeSlice)
	if len(nameSlice) < n {
		n = len(nameSlice)
	}
	if len(textSlice) < n {
		n = len(textSlice)
	}

	entries := make([]Changelog, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, Changelog{
			Author: nameSlice[i],
			Date: int64(timeSlice[i]),
			Text: textSlice[i],
		})
	}
	return entries
}
