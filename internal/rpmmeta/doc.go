// Package rpmmeta models the RPM repository metadata documents — repomd,
// primary, filelists, other — as Go structs, generalizing a single
// primary-only model into the full set a multi-file repository
// requires, plus parsers for round-tripping an existing repository.
package rpmmeta

import "encoding/xml"

const (
	nsCommon = "http://linux.duke.edu/metadata/common"
	nsFilelists = "http://linux.duke.edu/metadata/filelists"
	nsOther = "http://linux.duke.edu/metadata/other"
	nsRepo = "http://linux.duke.edu/metadata/repo"
	nsRpm = "http://linux.duke.edu/metadata/rpm"
)

// EntryVersion is the epoch/ver/rel triple shared by <version> and the
// rpm:entry elements inside provides/requires/conflicts/obsoletes.
type EntryVersion struct {
	Epoch string `xml:"epoch,attr"`
	Ver string `xml:"ver,attr,omitempty"`
	Rel string `xml:"rel,attr,omitempty"`
}

// Checksum renders as <checksum type="sha256" pkgid="YES">hex</checksum>.
type Checksum struct {
	Type string `xml:"type,attr"`
	Pkgid string `xml:"pkgid,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Time carries the package's file and build timestamps.
type Time struct {
	File int64 `xml:"file,attr"`
	Build int64 `xml:"build,attr"`
}

// Size carries the package, installed, and archive byte sizes.
type Size struct {
	Package int64 `xml:"package,attr"`
	Installed int64 `xml:"installed,attr"`
	Archive int64 `xml:"archive,attr"`
}

// Location is a storage-relative href, relative to the repository root.
type Location struct {
	Href string `xml:"href,attr"`
}

// DepEntry is one rpm:entry child of provides/requires/conflicts/obsoletes.
type DepEntry struct {
	Name string `xml:"name,attr"`
	Flags string `xml:"flags,attr,omitempty"`
	Epoch string `xml:"epoch,attr,omitempty"`
	Ver string `xml:"ver,attr,omitempty"`
	Rel string `xml:"rel,attr,omitempty"`
	Pre string `xml:"pre,attr,omitempty"`
}

// DepList wraps a list of rpm:entry elements under rpm:provides etc.
type DepList struct {
	Entries []DepEntry `xml:"rpm:entry"`
}

func (d *DepList) empty() bool { return d == nil || len(d.Entries) == 0 }

// Format is the <format> child of a primary <package>, carrying the
// RPM-namespaced control fields and dependency lists. Fields use
// literal "rpm:"-prefixed tag names rather than Go's namespace-aware
// Name.Space mechanism, which is what keeps these elements correctly
// prefixed without auto-generated namespace aliases (see nsfix.go for
// the belt-and-suspenders post-process pass).
type Format struct {
	License string `xml:"rpm:license,omitempty"`
	Vendor string `xml:"rpm:vendor,omitempty"`
	Group string `xml:"rpm:group,omitempty"`
	Buildhost string `xml:"rpm:buildhost,omitempty"`
	Sourcerpm string `xml:"rpm:sourcerpm,omitempty"`
	HeaderRange *HdrRange `xml:"rpm:header-range,omitempty"`
	Provides *DepList `xml:"rpm:provides,omitempty"`
	Requires *DepList `xml:"rpm:requires,omitempty"`
	Conflicts *DepList `xml:"rpm:conflicts,omitempty"`
	Obsoletes *DepList `xml:"rpm:obsoletes,omitempty"`
}

// HdrRange is the rpm:header-range element (start/end byte offsets of the
// signed header within the package, a createrepo_c artifact we carry
// through unchanged when present and zero-value when absent).
type HdrRange struct {
	Start int64 `xml:"start,attr"`
	End int64 `xml:"end,attr"`
}

// PrimaryPackage is one <package type="rpm"> entry, field order pinned
// to: name, arch, version, checksum, summary, description,
// packager, url, time, size, location, format.
type PrimaryPackage struct {
	Type string `xml:"type,attr"`
	Name string `xml:"name"`
	Arch string `xml:"arch"`
	Version EntryVersion `xml:"version"`
	Checksum Checksum `xml:"checksum"`
	Summary string `xml:"summary"`
	Desc string `xml:"description"`
	Packager string `xml:"packager,omitempty"`
	URL string `xml:"url,omitempty"`
	Time Time `xml:"time"`
	Size Size `xml:"size"`
	Location Location `xml:"location"`
	Format Format `xml:"format"`
}

// PrimaryDoc is the root <metadata> element of primary.xml.
type PrimaryDoc struct {
	XMLName xml.Name `xml:"metadata"`
	Xmlns string `xml:"xmlns,attr"`
	XmlnsRpm string `xml:"xmlns:rpm,attr"`
	Packages int `xml:"packages,attr"`
	Entries []PrimaryPackage `xml:"package"`
}

// FilelistsFile is one <file> child of a filelists <package>, with an
// optional type attribute ("dir" or "ghost"; plain files omit it).
type FilelistsFile struct {
	Type string `xml:"type,attr,omitempty"`
	Path string `xml:",chardata"`
}

// FilelistsPackage is one <package> entry in filelists.xml.
type FilelistsPackage struct {
	Pkgid string `xml:"pkgid,attr"`
	Name string `xml:"name,attr"`
	Arch string `xml:"arch,attr"`
	Version EntryVersion `xml:"version"`
	Files []FilelistsFile `xml:"file"`
}

// FilelistsDoc is the root <filelists> element of filelists.xml.
type FilelistsDoc struct {
	XMLName xml.Name `xml:"filelists"`
	Xmlns string `xml:"xmlns,attr"`
	Packages int `xml:"packages,attr"`
	Entries []FilelistsPackage `xml:"package"`
}

// ChangelogEntry is one <changelog> element in other.xml.
type ChangelogEntry struct {
	Author string `xml:"author,attr"`
	Date int64 `xml:"date,attr"`
	Text string `xml:",chardata"`
}

// OtherPackage is one <package> entry in other.xml.
type OtherPackage struct {
	Pkgid string `xml:"pkgid,attr"`
	Name string `xml:"name,attr"`
	Arch string `xml:"arch,attr"`
	Version EntryVersion `xml:"version"`
	Changelogs []ChangelogEntry `xml:"changelog"`
}

// OtherDoc is the root <otherdata> element of other.xml.
type OtherDoc struct {
	XMLName xml.Name `xml:"otherdata"`
	Xmlns string `xml:"xmlns,attr"`
	Packages int `xml:"packages,attr"`
	Entries []OtherPackage `xml:"package"`
}

// RepomdData is one <data type="..."> record indexing a metadata file.
type RepomdData struct {
	Type string `xml:"type,attr"`
	Checksum Checksum `xml:"checksum"`
	OpenChecksum Checksum `xml:"open-checksum"`
	Location Location `xml:"location"`
	Timestamp int64 `xml:"timestamp"`
	Size int64 `xml:"size"`
	OpenSize int64 `xml:"open-size,omitempty"`
}

// RepomdDoc is the root <repomd> element of repomd.xml, the index of
// every metadata record ("Metadata Document (RPM)").
type RepomdDoc struct {
	XMLName xml.Name `xml:"repomd"`
	Xmlns string `xml:"xmlns,attr"`
	XmlnsRpm string `xml:"xmlns:rpm,attr"`
	Revision int64 `xml:"revision"`
	Data []RepomdData `xml:"data"`
}

// NewRepomd returns an empty repomd document with both namespaces
// declared, ready to accept Data records.
func NewRepomd(revision int64) *RepomdDoc {
	return &RepomdDoc{
		Xmlns: nsRepo,
		XmlnsRpm: nsRpm,
		Revision: revision,
	}
}
