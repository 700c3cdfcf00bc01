package debmeta

import "path"

// MergeStanzas splices generated stanzas into existing, replacing any
// stanza whose pool-path basename matches and appending the rest,
// mirroring rpmmeta.MergePrimary's splice-by-key approach for the
// Debian Packages document.
func MergeStanzas(existing, generated []*Stanza) []*Stanza {
	out := append([]*Stanza(nil), existing...)
	for _, g := range generated {
		base := path.Base(g.Filename())
		replaced := false
		for i, e := range out {
			if path.Base(e.Filename()) == base {
				out[i] = g
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, g)
		}
	}
	return out
}

// RemoveByFilename drops every stanza whose pool-path basename is in
// filenames, returning the set of basenames actually removed.
func RemoveByFilename(stanzas []*Stanza, filenames map[string]bool) (kept []*Stanza, removed map[string]bool) {
	removed = map[string]bool{}
	for _, s := range stanzas {
		base := path.Base(s.Filename())
		if filenames[base] {
			removed[base] = true
			continue
		}
		kept = append(kept, s)
	}
	return kept, removed
}
