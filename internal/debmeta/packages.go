// Package debmeta models the Debian family's two RFC-822 style metadata
// documents, Packages and Release, as a stable-order parser+serializer
// pair that can round-trip an existing repository rather than only
// write one from scratch.
package debmeta

import (
	"bytes"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// packagesFieldOrder is the stanza field order pins.
var packagesFieldOrder = []string{
	"Package", "Version", "Architecture", "Maintainer", "Installed-Size",
	"Depends", "Filename", "Size", "MD5sum", "SHA1", "SHA256", "Description",
}

// Stanza is one package's control fields plus any unrecognized fields,
// which are preserved in the order first encountered.
type Stanza struct {
	fields map[string]string
	extra []string // unknown field names, in encounter order
}

// NewStanza returns an empty Stanza ready for Set calls.
func NewStanza() *Stanza {
	return &Stanza{fields: map[string]string{}}
}

// Set assigns a field's value, tracking it as an extra field if it is
// not one of the fixed-order fields.
func (s *Stanza) Set(key, value string) {
	if s.fields == nil {
		s.fields = map[string]string{}
	}
	if _, known := indexOf(packagesFieldOrder, key); !known {
		if _, already := s.fields[key]; !already {
			s.extra = append(s.extra, key)
		}
	}
	s.fields[key] = value
}

// Get returns a field's value and whether it was present.
func (s *Stanza) Get(key string) (string, bool) {
	v, ok := s.fields[key]
	return v, ok
}

func indexOf(list []string, v string) (int, bool) {
	for i, item := range list {
		if item == v {
			return i, true
		}
	}
	return -1, false
}

// Filename is a convenience accessor used for dedup keying.
func (s *Stanza) Filename() string { f, _ := s.Get("Filename"); return f }

// SHA256 is a convenience accessor used for dedup keying.
func (s *Stanza) SHA256() string { v, _ := s.Get("SHA256"); return v }

// ParsePackages splits content into blank-line-separated stanzas and
// parses each one, folding continuation lines (leading space/tab) into
// the preceding field.
func ParsePackages(content []byte) ([]*Stanza, error) {
	var stanzas []*Stanza
	for _, block := range strings.Split(string(content), "\n\n") {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		stanza, err := parseStanza(block)
		if err != nil {
			return nil, err
		}
		stanzas = append(stanzas, stanza)
	}
	return stanzas, nil
}

func parseStanza(block string) (*Stanza, error) {
	s := NewStanza()
	var currentKey string
	var currentValue strings.Builder

	flush := func() {
		if currentKey != "" {
			s.Set(currentKey, strings.TrimSpace(currentValue.String()))
		}
	}

	for _, line := range strings.Split(block, "\n") {
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			currentValue.WriteString("\n")
			currentValue.WriteString(strings.TrimSpace(line))
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		flush()
		currentKey = strings.TrimSpace(line[:idx])
		currentValue.Reset()
		currentValue.WriteString(strings.TrimSpace(line[idx+1:]))
	}
	flush()

	if currentKey == "" && len(s.fields) == 0 {
		return nil, fmt.Errorf("debmeta: empty stanza")
	}
	return s, nil
}

// SerializePackages renders stanzas in field order, fixed fields first
// then unknown fields trailing, stanzas separated by one blank line.
func SerializePackages(stanzas []*Stanza) []byte {
	var buf bytes.Buffer
	for _, s := range stanzas {
		for _, key := range packagesFieldOrder {
			if v, ok := s.Get(key); ok && v != "" {
				fmt.Fprintf(&buf, "%s: %s\n", key, v)
			}
		}
		for _, key := range s.extra {
			if v, ok := s.Get(key); ok {
				fmt.Fprintf(&buf, "%s: %s\n", key, v)
			}
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// ExistingChecksums extracts basename → sha256 from a parsed Packages
// document, for the engine's deduplication pass. Keyed by basename
// (not the full pool path Filename carries) so it lines up with the
// candidate keys Classify compares against, the same way MergeStanzas
// and RemoveByFilename key by pool-path basename.
func ExistingChecksums(stanzas []*Stanza) map[string]string {
	out := make(map[string]string, len(stanzas))
	for _, s := range stanzas {
		if fn := s.Filename(); fn != "" {
			out[path.Base(fn)] = s.SHA256()
		}
	}
	return out
}

// ParseSize is a helper for callers converting the Size field.
func ParseSize(s *Stanza) int64 {
	v, _ := s.Get("Size")
	n, _ := strconv.ParseInt(v, 10, 64)
	return n
}
