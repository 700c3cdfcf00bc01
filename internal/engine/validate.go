package engine

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/repogen/reposync/internal/debmeta"
	"github.com/repogen/reposync/internal/digest"
	"github.com/repogen/reposync/internal/rpmmeta"
	"github.com/repogen/reposync/internal/sqlitedb"
	"github.com/repogen/reposync/internal/storage"
)

// ValidationIssue is one finding from a validation pass.
// An empty slice of issues means success.
type ValidationIssue struct {
	Kind string
	Detail string
}

// QuickValidateRPM runs the tier that gates commit:
// repomd checksums match the actual bytes, the packages count agrees
// with the XML, the sqlite row count agrees with the XML, and there are
// no duplicate repomd record types.
func QuickValidateRPM(ctx context.Context, backend storage.Backend, metadataPrefix string, repomd *rpmmeta.RepomdDoc, primary *rpmmeta.PrimaryDoc, sqliteRowCounts map[string]int) ([]ValidationIssue, error) {
	var issues []ValidationIssue

	if rpmmeta.HasDuplicateTypes(repomd) {
		issues = append(issues, ValidationIssue{Kind: "DuplicateRecordType", Detail: "repomd has more than one record of some type"})
	}

	if repomd.Data != nil {
		for _, d := range repomd.Data {
			data, err := backend.Read(ctx, d.Location.Href)
			if err != nil {
				issues = append(issues, ValidationIssue{Kind: "MissingMetadataFile", Detail: d.Location.Href})
				continue
			}
			if digest.SHA256Bytes(data) != d.Checksum.Value {
				issues = append(issues, ValidationIssue{Kind: "ChecksumMismatch", Detail: d.Location.Href})
			}
		}
	}

	if primary.Packages != len(primary.Entries) {
		issues = append(issues, ValidationIssue{
			Kind: "PackageCountMismatch",
			Detail: fmt.Sprintf("primary.@packages=%d but has %d entries", primary.Packages, len(primary.Entries)),
		})
	}

	if rowCount, ok := sqliteRowCounts["primary_db"]; ok && rowCount != len(primary.Entries) {
		issues = append(issues, ValidationIssue{
			Kind: "SqliteRowCountMismatch",
			Detail: fmt.Sprintf("primary_db has %d rows but xml has %d packages", rowCount, len(primary.Entries)),
		})
	}

	return issues, nil
}

// FullValidateRPM adds the checks reserved for explicit
// requests on top of QuickValidateRPM's issues: package closure against
// storage, namespace cleanliness across every RPM metadata document, and
// the persisted sqlite mirrors' table schemas.
func FullValidateRPM(ctx context.Context, backend storage.Backend, packagePrefix string, primary *rpmmeta.PrimaryDoc, repomd *rpmmeta.RepomdDoc, rawDocs map[string][]byte) ([]ValidationIssue, error) {
	var issues []ValidationIssue

	referenced := map[string]bool{}
	for _, p := range primary.Entries {
		referenced[p.Location.Href] = true
		exists, err := backend.Exists(ctx, p.Location.Href)
		if err != nil {
			return nil, Wrap(KindStorageUnavailable, "", err)
		}
		if !exists {
			issues = append(issues, ValidationIssue{Kind: "MissingPackageObject", Detail: p.Location.Href})
		}
	}

	names, err := backend.List(ctx, packagePrefix, "")
	if err != nil {
		return nil, Wrap(KindStorageUnavailable, "", err)
	}
	for _, name := range names {
		if strings.Contains(name, "/") {
			continue // packages sit directly under the prefix; repodata/ and backups are nested
		}
		path := packagePrefix + "/" + name
		if !referenced[path] && !isBackupPath(path) {
			issues = append(issues, ValidationIssue{Kind: "UnreferencedPackageObject", Detail: path})
		}
	}

	docNames := make([]string, 0, len(rawDocs))
	for name := range rawDocs {
		docNames = append(docNames, name)
	}
	sort.Strings(docNames)
	for _, name := range docNames {
		if hasPrefixedDefaultNamespace(rawDocs[name]) {
			issues = append(issues, ValidationIssue{Kind: "NamespacePrefixLeak", Detail: fmt.Sprintf("%s root has prefixed children in the default namespace", name)})
		}
	}

	if repomd != nil {
		for _, d := range repomd.Data {
			if d.Type != "primary_db" && d.Type != "filelists_db" && d.Type != "other_db" {
				continue
			}
			compressed, err := backend.Read(ctx, d.Location.Href)
			if err != nil {
				issues = append(issues, ValidationIssue{Kind: "MissingMetadataFile", Detail: d.Location.Href})
				continue
			}
			raw, err := digest.Bzip2Decompress(compressed)
			if err != nil {
				issues = append(issues, ValidationIssue{Kind: "IntegrityViolation", Detail: fmt.Sprintf("%s: %v", d.Location.Href, err)})
				continue
			}
			if err := sqlitedb.VerifySchema(d.Type, raw); err != nil {
				issues = append(issues, ValidationIssue{Kind: "SqliteSchemaMismatch", Detail: err.Error()})
			}
		}
	}

	return issues, nil
}

func isBackupPath(path string) bool {
	for i := 0; i+8 <= len(path); i++ {
		if path[i:i+8] == ".backup-" {
			return true
		}
	}
	return false
}

// QuickValidateDeb is the Debian analogue of QuickValidateRPM: every
// row of the Release document's MD5Sum/SHA1/SHA256 blocks must match the
// size and digest of the bytes actually in storage, and every stanza must
// carry a non-zero Size and a non-empty SHA256 (when the field is
// present). A stanza's Size is not compared against its pool object.
func QuickValidateDeb(ctx context.Context, backend storage.Backend, releasePrefix string, release *debmeta.Release, stanzas []*debmeta.Stanza) ([]ValidationIssue, error) {
	var issues []ValidationIssue

	blocks := []struct {
		algo    string
		entries []debmeta.ReleaseEntry
	}{
		{"md5", release.MD5Sum},
		{"sha1", release.SHA1},
		{"sha256", release.SHA256},
	}
	for _, block := range blocks {
		for _, e := range block.entries {
			data, err := backend.Read(ctx, releasePrefix+"/"+e.Path)
			if err != nil {
				issues = append(issues, ValidationIssue{Kind: "MissingMetadataFile", Detail: e.Path})
				continue
			}
			if int64(len(data)) != e.Size {
				issues = append(issues, ValidationIssue{Kind: "SizeMismatch", Detail: e.Path})
			}
			if digest.Sum(data, block.algo) != e.Digest {
				issues = append(issues, ValidationIssue{Kind: "ChecksumMismatch", Detail: e.Path})
			}
		}
	}

	for _, s := range stanzas {
		declared := debmeta.ParseSize(s)
		if sha, ok := s.Get("SHA256"); ok && sha == "" {
			issues = append(issues, ValidationIssue{Kind: "MissingChecksum", Detail: s.Filename()})
		}
		if declared == 0 {
			issues = append(issues, ValidationIssue{Kind: "MissingSize", Detail: s.Filename()})
		}
	}

	return issues, nil
}

// FullValidateDeb checks that every stanza's pool object exists and that
// no unreferenced object remains under the pool component prefix.
func FullValidateDeb(ctx context.Context, backend storage.Backend, poolPrefix string, stanzas []*debmeta.Stanza) ([]ValidationIssue, error) {
	var issues []ValidationIssue

	referenced := map[string]bool{}
	for _, s := range stanzas {
		referenced[s.Filename()] = true
		exists, err := backend.Exists(ctx, s.Filename())
		if err != nil {
			return nil, Wrap(KindStorageUnavailable, "", err)
		}
		if !exists {
			issues = append(issues, ValidationIssue{Kind: "MissingPackageObject", Detail: s.Filename()})
		}
	}

	names, err := backend.List(ctx, poolPrefix, "")
	if err != nil {
		return nil, Wrap(KindStorageUnavailable, "", err)
	}
	for _, name := range names {
		path := poolPrefix + "/" + name
		if !referenced[path] && !isBackupPath(path) {
			issues = append(issues, ValidationIssue{Kind: "UnreferencedPackageObject", Detail: path})
		}
	}

	return issues, nil
}

var (
	xmlnsDefaultPattern = regexp.MustCompile(`\bxmlns="([^"]+)"`)
	xmlnsPrefixPattern = regexp.MustCompile(`\bxmlns:([A-Za-z_][\w.-]*)="([^"]+)"`)
)

// hasPrefixedDefaultNamespace is a conservative textual check for any
// element written with an explicit prefix bound to the same namespace
// URI as the document's declared default namespace. That covers both
// encoding/xml's own synthetic "_2:package" aliases and a literal
// prefix such as "common:package" written by hand or by a foreign tool,
// since both put an element the document treats as default-namespaced
// behind a prefix instead.
func hasPrefixedDefaultNamespace(doc []byte) bool {
	m := xmlnsDefaultPattern.FindSubmatch(doc)
	if m == nil {
		return false
	}
	defaultNS := string(m[1])

	for _, pm := range xmlnsPrefixPattern.FindAllSubmatch(doc, -1) {
		if string(pm[2]) != defaultNS {
			continue
		}
		needle := []byte("<" + string(pm[1]) + ":")
		if bytes.Contains(doc, needle) {
			return true
		}
	}
	return false
}
