package rpmmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func primaryEntry(href, sha string) PrimaryPackage {
	return PrimaryPackage{
		Name:     href,
		Location: Location{Href: href},
		Checksum: Checksum{Type: "sha256", Pkgid: "YES", Value: sha},
	}
}

func TestMergePrimaryReplacesByHref(t *testing.T) {
	existing := &PrimaryDoc{Entries: []PrimaryPackage{
		primaryEntry("el9/x86_64/hello-1.0-1.el9.x86_64.rpm", "aaa"),
		primaryEntry("el9/x86_64/world-1.0-1.el9.x86_64.rpm", "bbb"),
	}}
	generated := &PrimaryDoc{Entries: []PrimaryPackage{
		primaryEntry("el9/x86_64/hello-1.0-2.el9.x86_64.rpm", "ccc"),
	}}
	// simulate an update: same href as an existing entry
	generated.Entries[0].Location.Href = "el9/x86_64/hello-1.0-1.el9.x86_64.rpm"

	merged := MergePrimary(existing, generated)

	require.Equal(t, 2, merged.Packages)
	require.Len(t, merged.Entries, 2)
	assert.Equal(t, "ccc", merged.Entries[0].Checksum.Value)
	assert.Equal(t, "bbb", merged.Entries[1].Checksum.Value)
}

func TestMergePrimaryAppendsNew(t *testing.T) {
	existing := &PrimaryDoc{Entries: []PrimaryPackage{primaryEntry("a.rpm", "aaa")}}
	generated := &PrimaryDoc{Entries: []PrimaryPackage{primaryEntry("b.rpm", "bbb")}}

	merged := MergePrimary(existing, generated)

	require.Len(t, merged.Entries, 2)
	assert.Equal(t, 2, merged.Packages)
}

func TestMergePrimaryNilExisting(t *testing.T) {
	generated := &PrimaryDoc{Entries: []PrimaryPackage{primaryEntry("a.rpm", "aaa")}}
	merged := MergePrimary(nil, generated)
	require.Len(t, merged.Entries, 1)
}

func TestRemoveByFilenameDropsFromAllThreeDocs(t *testing.T) {
	primary := &PrimaryDoc{Entries: []PrimaryPackage{
		primaryEntry("el9/x86_64/hello-1.0-1.el9.x86_64.rpm", "aaa"),
		primaryEntry("el9/x86_64/world-1.0-1.el9.x86_64.rpm", "bbb"),
	}}
	filelists := &FilelistsDoc{Entries: []FilelistsPackage{{Pkgid: "aaa"}, {Pkgid: "bbb"}}}
	other := &OtherDoc{Entries: []OtherPackage{{Pkgid: "aaa"}, {Pkgid: "bbb"}}}

	removed := RemoveByFilename(primary, filelists, other, map[string]bool{"hello-1.0-1.el9.x86_64.rpm": true})

	assert.True(t, removed["hello-1.0-1.el9.x86_64.rpm"])
	assert.Len(t, primary.Entries, 1)
	assert.Equal(t, 1, primary.Packages)
	assert.Len(t, filelists.Entries, 1)
	assert.Equal(t, "bbb", filelists.Entries[0].Pkgid)
	assert.Len(t, other.Entries, 1)
	assert.Equal(t, "bbb", other.Entries[0].Pkgid)
}

func TestExistingChecksumsKeyedByBasename(t *testing.T) {
	primary := &PrimaryDoc{Entries: []PrimaryPackage{
		primaryEntry("el9/x86_64/hello-1.0-1.el9.x86_64.rpm", "aaa"),
	}}

	checksums := ExistingChecksums(primary)

	assert.Equal(t, "aaa", checksums["hello-1.0-1.el9.x86_64.rpm"])
}
