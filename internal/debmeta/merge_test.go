package debmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stanzaWithFilename(name string) *Stanza {
	s := NewStanza()
	s.Set("Filename", name)
	return s
}

func TestMergeStanzasReplacesByBasename(t *testing.T) {
	existing := []*Stanza{
		stanzaWithFilename("pool/main/h/hello/hello_1.0_amd64.deb"),
		stanzaWithFilename("pool/main/w/world/world_1.0_amd64.deb"),
	}
	generated := []*Stanza{
		stanzaWithFilename("pool/main/h/hello/hello_1.0_amd64.deb"), // replaces
	}

	merged := MergeStanzas(existing, generated)

	require.Len(t, merged, 2)
	assert.Same(t, generated[0], merged[0])
	assert.Same(t, existing[1], merged[1])
}

func TestMergeStanzasAppendsNew(t *testing.T) {
	existing := []*Stanza{stanzaWithFilename("pool/main/h/hello/hello_1.0_amd64.deb")}
	generated := []*Stanza{stanzaWithFilename("pool/main/n/new/new_1.0_amd64.deb")}

	merged := MergeStanzas(existing, generated)

	require.Len(t, merged, 2)
	assert.Equal(t, "pool/main/n/new/new_1.0_amd64.deb", merged[1].Filename())
}

func TestRemoveByFilenameDropsMatches(t *testing.T) {
	stanzas := []*Stanza{
		stanzaWithFilename("pool/main/h/hello/hello_1.0_amd64.deb"),
		stanzaWithFilename("pool/main/w/world/world_1.0_amd64.deb"),
	}

	kept, removed := RemoveByFilename(stanzas, map[string]bool{"hello_1.0_amd64.deb": true})

	require.Len(t, kept, 1)
	assert.Equal(t, "pool/main/w/world/world_1.0_amd64.deb", kept[0].Filename())
	assert.True(t, removed["hello_1.0_amd64.deb"])
	assert.False(t, removed["world_1.0_amd64.deb"])
}

func TestRemoveByFilenameNoMatches(t *testing.T) {
	stanzas := []*Stanza{stanzaWithFilename("pool/main/h/hello/hello_1.0_amd64.deb")}

	kept, removed := RemoveByFilename(stanzas, map[string]bool{"absent.deb": true})

	assert.Len(t, kept, 1)
	assert.Empty(t, removed)
}

func TestExistingChecksumsKeyedByPoolPathBasename(t *testing.T) {
	s := stanzaWithFilename("pool/main/h/hello/hello_1.0_amd64.deb")
	s.Set("SHA256", "deadbeef")

	got := ExistingChecksums([]*Stanza{s})

	assert.Equal(t, map[string]string{"hello_1.0_amd64.deb": "deadbeef"}, got)
}
