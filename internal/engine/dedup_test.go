package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	existing := map[string]string{
		"hello-1.0-1.x86_64.rpm": "aaa",
		"world-1.0-1.x86_64.rpm": "bbb",
	}

	candidates := []Candidate{
		{Filename: "hello-1.0-1.x86_64.rpm", SHA256: "aaa"}, // duplicate
		{Filename: "world-1.0-1.x86_64.rpm", SHA256: "ccc"}, // update
		{Filename: "new-1.0-1.x86_64.rpm", SHA256: "ddd"},   // new
	}

	got := Classify(existing, candidates)

	assert.Equal(t, ClassDuplicate, got["hello-1.0-1.x86_64.rpm"])
	assert.Equal(t, ClassUpdate, got["world-1.0-1.x86_64.rpm"])
	assert.Equal(t, ClassNew, got["new-1.0-1.x86_64.rpm"])
}

func TestClassificationNeedsUpload(t *testing.T) {
	assert.True(t, ClassNew.NeedsUpload())
	assert.True(t, ClassUpdate.NeedsUpload())
	assert.False(t, ClassDuplicate.NeedsUpload())
}

func TestClassificationString(t *testing.T) {
	assert.Equal(t, "new", ClassNew.String())
	assert.Equal(t, "duplicate", ClassDuplicate.String())
	assert.Equal(t, "update", ClassUpdate.String())
	assert.Equal(t, "unknown", Classification(99).String())
}
