package rpmmeta

import (
	"fmt"

	"github.com/repogen/reposync/internal/digest"
)

// RenderedFile is one metadata file ready to be indexed in repomd: its
// compressed bytes (what gets uploaded) and the uncompressed bytes (for
// the open-checksum), under a content-addressed name computed here.
type RenderedFile struct {
	Type string // "primary", "filelists", "other", "primary_db",...
	CompressedName string // content-addressed filename, e.g. "<sha256>-primary.xml.gz"
	Compressed []byte
	Uncompressed []byte
}

// NewRenderedFile computes the content-addressed name for compressed
// and wraps both encodings together for indexing.
func NewRenderedFile(docType, base string, compressed, uncompressed []byte) RenderedFile {
	return RenderedFile{
		Type: docType,
		CompressedName: digest.ContentAddressedName(compressed, base),
		Compressed: compressed,
		Uncompressed: uncompressed,
	}
}

// ReplaceRecord inserts or updates the repomd record for one rendered
// file's type, locating it under repodataDir/<compressed-name>.
func ReplaceRecord(doc *RepomdDoc, rf RenderedFile, repodataDir string, timestamp int64) {
	rec := RepomdData{
		Type: rf.Type,
		Checksum: Checksum{
			Type: "sha256",
			Value: digest.SHA256Bytes(rf.Compressed),
		},
		OpenChecksum: Checksum{
			Type: "sha256",
			Value: digest.SHA256Bytes(rf.Uncompressed),
		},
		Location: Location{Href: fmt.Sprintf("%s/%s", repodataDir, rf.CompressedName)},
		Timestamp: timestamp,
		Size: int64(len(rf.Compressed)),
		OpenSize: int64(len(rf.Uncompressed)),
	}

	for i, d := range doc.Data {
		if d.Type == rf.Type {
			doc.Data[i] = rec
			return
		}
	}
	doc.Data = append(doc.Data, rec)
}

// ReplaceDBRecords removes every existing primary_db/filelists_db/
// other_db record and installs the three freshly-built ones: at most
// one record per type may exist, and this is the one mutation point
// where ALL prior records of a type family are dropped rather than
// updated in place, because the three sqlite mirrors are always
// rebuilt together.
func ReplaceDBRecords(doc *RepomdDoc, primaryDB, filelistsDB, otherDB RenderedFile, repodataDir string, timestamp int64) {
	dbTypes := map[string]bool{"primary_db": true, "filelists_db": true, "other_db": true}
	var kept []RepomdData
	for _, d := range doc.Data {
		if !dbTypes[d.Type] {
			kept = append(kept, d)
		}
	}
	doc.Data = kept

	ReplaceRecord(doc, primaryDB, repodataDir, timestamp)
	ReplaceRecord(doc, filelistsDB, repodataDir, timestamp)
	ReplaceRecord(doc, otherDB, repodataDir, timestamp)
}

// ReferencedLocations returns every repodata file location the repomd
// currently indexes, for use by Sweep.
func ReferencedLocations(doc *RepomdDoc) map[string]bool {
	out := make(map[string]bool, len(doc.Data))
	for _, d := range doc.Data {
		out[d.Location.Href] = true
	}
	return out
}

// HasDuplicateTypes reports whether doc violates invariant 4 (at most
// one record per type), used by quick validation.
func HasDuplicateTypes(doc *RepomdDoc) bool {
	seen := map[string]bool{}
	for _, d := range doc.Data {
		if seen[d.Type] {
			return true
		}
		seen[d.Type] = true
	}
	return false
}
