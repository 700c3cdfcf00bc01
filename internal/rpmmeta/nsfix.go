package rpmmeta

import "regexp"

// autoPrefixPattern matches the auto-generated namespace aliases
// (_0:, _1:,...) that encoding/xml emits whenever a caller marshals an
// element carrying an explicit xml.Name{Space:...} that it cannot
// resolve against an already-declared prefix. Our own struct tags never
// produce this (they spell "rpm:entry" as a literal local name, never
// set Name.Space), so this pass is normally a no-op; it exists as a
// post-processing safety net for any document that reaches this package
// from elsewhere having gone through namespace-aware marshaling.
var autoPrefixPattern = regexp.MustCompile(`_(\d+):`)
var autoPrefixDecl = regexp.MustCompile(`\s+xmlns:_(\d+)="([^"]*)"`)

// StripAutoPrefix removes any encoding/xml auto-generated namespace
// prefix bound to defaultNS, leaving the element unprefixed, and drops
// the corresponding xmlns:_N declaration. Prefixes bound to any other
// namespace (e.g. a genuine rpm: alias) are left untouched.
func StripAutoPrefix(doc []byte, defaultNS string) []byte {
	out := string(doc)

	declLoc := autoPrefixDecl.FindAllStringSubmatchIndex(out, -1)
	for i := len(declLoc) - 1; i >= 0; i-- {
		loc := declLoc[i]
		uri := out[loc[4]:loc[5]]
		if uri != defaultNS {
			continue
		}
		n := out[loc[2]:loc[3]]
		out = out[:loc[0]] + out[loc[1]:]
		out = regexp.MustCompile(`<_`+n+`:|</_`+n+`:`).ReplaceAllStringFunc(out, func(m string) string {
			if m[1] == '/' {
				return "</"
			}
			return "<"
		})
	}
	return []byte(out)
}
