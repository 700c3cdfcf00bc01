package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/repogen/reposync/internal/digest"
	"github.com/repogen/reposync/internal/inspect"
	"github.com/repogen/reposync/internal/rpmmeta"
	"github.com/repogen/reposync/internal/signer"
	"github.com/repogen/reposync/internal/sqlitedb"
	"github.com/repogen/reposync/internal/storage"
	"github.com/repogen/reposync/internal/txn"
)

// RPMEngine runs the add/remove/validate protocol for one RPM
// repository coordinate against a single storage backend.
type RPMEngine struct {
	Backend storage.Backend
	CacheDir string
	Validate bool

	// Signer, if set, detached-signs repomd.xml into repomd.xml.asc
	// after a successful commit. Signing plumbing itself is out of
	// scope; this is the seam the signer package plugs
	// into when a caller opts in.
	Signer signer.Signer
}

func (e *RPMEngine) signIndex(ctx context.Context, metadataPrefix string, repomdXML []byte) {
	if e.Signer == nil {
		return
	}
	sig, err := e.Signer.SignDetached(repomdXML)
	if err != nil {
		logrus.Warnf("rpmengine: failed to sign repomd.xml: %v", err)
		return
	}
	if err := e.Backend.WriteBytes(ctx, sig, metadataPrefix+"/repomd.xml.asc"); err != nil {
		logrus.Warnf("rpmengine: failed to upload repomd.xml.asc: %v", err)
	}
}

// AddResult reports the outcome of Add.
type AddResult struct {
	Uploaded []string
	Skipped []string // duplicates, by filename
	Outcome txn.Outcome
}

// rpmPrefixes derives the metadata and package storage prefixes from a
// coordinate path. Packages are stored directly under the coordinate
// (e.g. "el9/x86_64/hello-world-1.0.0-1.el9.x86_64.rpm"), per 
// §8 scenario 1.
func rpmPrefixes(coordPath string) (metadataPrefix, packagePrefix string) {
	return coordPath + "/repodata", coordPath
}

// Add runs for a single coordinate path (e.g. "el9/x86_64").
func (e *RPMEngine) Add(ctx context.Context, coordPath string, localPaths []string) (*AddResult, error) {
	metadataPrefix, packagePrefix := rpmPrefixes(coordPath)

	t, err := txn.Begin(ctx, e.Backend, metadataPrefix, e.CacheDir)
	if err != nil {
		return nil, err
	}
	if legacy, present := t.LegacyBackupPresent(); present {
		return nil, Newf(KindLegacyBackupPresent, coordPath, "backup prefix %s already present", legacy)
	}

	primaryDoc, filelistsDoc, otherDoc, repomdDoc, _, err := pullRPMMetadata(ctx, e.Backend, metadataPrefix)
	if err != nil {
		return nil, err
	}

	packages := make([]*inspect.Package, 0, len(localPaths))
	for _, p := range localPaths {
		pkg, err := inspect.InspectRPM(p)
		if err != nil {
			return nil, Wrap(KindMalformedPackage, coordPath, err)
		}
		packages = append(packages, pkg)
	}

	existing := rpmmeta.ExistingChecksums(primaryDoc)
	var candidates []Candidate
	for _, pkg := range packages {
		candidates = append(candidates, Candidate{Filename: filepath.Base(pkg.LocalPath), SHA256: pkg.SHA256})
	}
	classified := Classify(existing, candidates)

	var toUpload []*inspect.Package
	var skipped []string
	for _, pkg := range packages {
		base := filepath.Base(pkg.LocalPath)
		if classified[base].NeedsUpload() {
			toUpload = append(toUpload, pkg)
		} else {
			skipped = append(skipped, base)
		}
	}

	if len(toUpload) == 0 {
		if err := t.Abandon(ctx); err != nil {
			return nil, err
		}
		return &AddResult{Skipped: skipped, Outcome: txn.OutcomeCommitted}, nil
	}

	generatedPrimary := &rpmmeta.PrimaryDoc{}
	generatedFilelists := &rpmmeta.FilelistsDoc{}
	generatedOther := &rpmmeta.OtherDoc{}
	var uploaded []string

	for _, pkg := range toUpload {
		base := filepath.Base(pkg.LocalPath)
		pkg.Filename = base
		href := packagePrefix + "/" + base

		primaryEntry, filelistsEntry, otherEntry := rpmmeta.FromPackage(pkg, href)
		generatedPrimary.Entries = append(generatedPrimary.Entries, primaryEntry)
		generatedFilelists.Entries = append(generatedFilelists.Entries, filelistsEntry)
		generatedOther.Entries = append(generatedOther.Entries, otherEntry)
		uploaded = append(uploaded, base)
	}

	mergedPrimary := rpmmeta.MergePrimary(primaryDoc, generatedPrimary)
	mergedFilelists := rpmmeta.MergeFilelists(filelistsDoc, generatedFilelists)
	mergedOther := rpmmeta.MergeOther(otherDoc, generatedOther)

	for _, pkg := range toUpload {
		if err := t.UploadFile(ctx, pkg.LocalPath, packagePrefix+"/"+pkg.Filename); err != nil {
			_ = t.Restore(ctx)
			return nil, err
		}
	}

	if repomdDoc == nil {
		repomdDoc = rpmmeta.NewRepomd(time.Now().Unix())
	}

	if err := e.writeRPMMetadata(ctx, t, metadataPrefix, mergedPrimary, mergedFilelists, mergedOther, repomdDoc); err != nil {
		_ = t.Restore(ctx)
		return nil, err
	}

	if err := e.finishTransaction(ctx, t, metadataPrefix, packagePrefix, mergedPrimary, repomdDoc); err != nil {
		return nil, err
	}

	return &AddResult{Uploaded: uploaded, Skipped: skipped, Outcome: t.Outcome}, nil
}

// Validate runs the full validation tier against the currently
// committed state of coordPath, outside of any transaction.
func (e *RPMEngine) Validate(ctx context.Context, coordPath string) ([]ValidationIssue, error) {
	metadataPrefix, packagePrefix := rpmPrefixes(coordPath)

	if _, err := e.Backend.Read(ctx, metadataPrefix+"/repomd.xml"); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []ValidationIssue{{Kind: "MissingRepository", Detail: metadataPrefix}}, nil
		}
		return nil, Wrap(KindStorageUnavailable, coordPath, err)
	}

	primary, _, _, repomd, rawDocs, err := pullRPMMetadata(ctx, e.Backend, metadataPrefix)
	if err != nil {
		return nil, err
	}

	// sqlite row counts are checked at write time (sqlitedb.VerifyRowCount);
	// re-verifying here would mean decompressing and opening the persisted
	// db, which the quick tier intentionally avoids for committed state.
	issues, err := QuickValidateRPM(ctx, e.Backend, metadataPrefix, repomd, primary, nil)
	if err != nil {
		return nil, err
	}

	fullIssues, err := FullValidateRPM(ctx, e.Backend, packagePrefix, primary, repomd, rawDocs)
	if err != nil {
		return nil, err
	}
	return append(issues, fullIssues...), nil
}

// RemoveResult reports the outcome of Remove.
type RemoveResult struct {
	Removed []string
	NotPresent []string
	Outcome txn.Outcome
}

// Remove runs for a single coordinate path.
func (e *RPMEngine) Remove(ctx context.Context, coordPath string, filenames []string) (*RemoveResult, error) {
	metadataPrefix, packagePrefix := rpmPrefixes(coordPath)

	t, err := txn.Begin(ctx, e.Backend, metadataPrefix, e.CacheDir)
	if err != nil {
		return nil, err
	}
	if legacy, present := t.LegacyBackupPresent(); present {
		return nil, Newf(KindLegacyBackupPresent, coordPath, "backup prefix %s already present", legacy)
	}

	primaryDoc, filelistsDoc, otherDoc, repomdDoc, _, err := pullRPMMetadata(ctx, e.Backend, metadataPrefix)
	if err != nil {
		return nil, err
	}

	want := map[string]bool{}
	for _, f := range filenames {
		want[f] = true
	}
	removed := rpmmeta.RemoveByFilename(primaryDoc, filelistsDoc, otherDoc, want)

	var notPresent []string
	for _, f := range filenames {
		if !removed[f] {
			notPresent = append(notPresent, f)
		}
	}
	if len(removed) == 0 {
		if err := t.Abandon(ctx); err != nil {
			return nil, err
		}
		return nil, Newf(KindNothingToRemove, coordPath, "none of the requested filenames were present")
	}

	if repomdDoc == nil {
		repomdDoc = rpmmeta.NewRepomd(time.Now().Unix())
	}

	if err := e.writeRPMMetadata(ctx, t, metadataPrefix, primaryDoc, filelistsDoc, otherDoc, repomdDoc); err != nil {
		_ = t.Restore(ctx)
		return nil, err
	}

	for f := range removed {
		if err := e.Backend.Delete(ctx, packagePrefix+"/"+f); err != nil {
			_ = t.Restore(ctx)
			return nil, Wrap(KindStorageUnavailable, coordPath, err)
		}
	}

	if err := e.finishTransaction(ctx, t, metadataPrefix, packagePrefix, primaryDoc, repomdDoc); err != nil {
		return nil, err
	}

	var removedList []string
	for f := range removed {
		removedList = append(removedList, f)
	}
	return &RemoveResult{Removed: removedList, NotPresent: notPresent, Outcome: t.Outcome}, nil
}

// writeRPMMetadata rebuilds the three sqlite mirrors, marshals every
// document, and stages them for upload via t.UploadBytes (packages are
// expected to already be staged by the caller, preserving the
// ordering: packages, then metadata, then index last).
func (e *RPMEngine) writeRPMMetadata(ctx context.Context, t *txn.Transaction, metadataPrefix string, primary *rpmmeta.PrimaryDoc, filelists *rpmmeta.FilelistsDoc, other *rpmmeta.OtherDoc, repomd *rpmmeta.RepomdDoc) error {
	if err := sqlitedb.CleanStale(t.StagingDir); err != nil {
		return Wrap(KindStorageUnavailable, metadataPrefix, err)
	}

	primaryXML, err := rpmmeta.MarshalPrimary(primary)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}
	filelistsXML, err := rpmmeta.MarshalFilelists(filelists)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}
	otherXML, err := rpmmeta.MarshalOther(other)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}

	primaryGz, err := digest.GzipCompress(primaryXML)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}
	filelistsGz, err := digest.GzipCompress(filelistsXML)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}
	otherGz, err := digest.GzipCompress(otherXML)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}

	primaryRF := rpmmeta.NewRenderedFile("primary", "primary.xml.gz", primaryGz, primaryXML)
	filelistsRF := rpmmeta.NewRenderedFile("filelists", "filelists.xml.gz", filelistsGz, filelistsXML)
	otherRF := rpmmeta.NewRenderedFile("other", "other.xml.gz", otherGz, otherXML)

	builtPrimaryDB, err := sqlitedb.BuildPrimaryDB(t.StagingDir, primary)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}
	builtFilelistsDB, err := sqlitedb.BuildFilelistsDB(t.StagingDir, filelists)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}
	builtOtherDB, err := sqlitedb.BuildOtherDB(t.StagingDir, other)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}
	if err := sqlitedb.VerifyRowCount(builtPrimaryDB, len(primary.Entries)); err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}

	primaryDBRF, err := sqlitedb.Compress(builtPrimaryDB)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}
	filelistsDBRF, err := sqlitedb.Compress(builtFilelistsDB)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}
	otherDBRF, err := sqlitedb.Compress(builtOtherDB)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}

	now := time.Now().Unix()
	repomd.Revision = now
	rpmmeta.ReplaceRecord(repomd, primaryRF, metadataPrefix, now)
	rpmmeta.ReplaceRecord(repomd, filelistsRF, metadataPrefix, now)
	rpmmeta.ReplaceRecord(repomd, otherRF, metadataPrefix, now)
	rpmmeta.ReplaceDBRecords(repomd, primaryDBRF, filelistsDBRF, otherDBRF, metadataPrefix, now)

	for _, rf := range []rpmmeta.RenderedFile{primaryRF, filelistsRF, otherRF, primaryDBRF, filelistsDBRF, otherDBRF} {
		if err := t.UploadBytes(ctx, rf.Compressed, metadataPrefix+"/"+rf.CompressedName); err != nil {
			return err
		}
	}

	repomdXML, err := rpmmeta.MarshalRepomd(repomd)
	if err != nil {
		return Wrap(KindIntegrityViolation, metadataPrefix, err)
	}
	if err := t.UploadBytes(ctx, repomdXML, metadataPrefix+"/repomd.xml"); err != nil {
		return err
	}

	return nil
}

func (e *RPMEngine) finishTransaction(ctx context.Context, t *txn.Transaction, metadataPrefix, packagePrefix string, primary *rpmmeta.PrimaryDoc, repomd *rpmmeta.RepomdDoc) error {
	referenced := rpmmeta.ReferencedLocations(repomd)
	referenced[metadataPrefix+"/repomd.xml"] = true
	if err := t.Sweep(ctx, referenced); err != nil {
		return err
	}

	if e.Validate {
		issues, err := QuickValidateRPM(ctx, e.Backend, metadataPrefix, repomd, primary, nil)
		if err != nil {
			_ = t.Restore(ctx)
			return err
		}
		if len(issues) > 0 {
			logrus.Warnf("rpmengine: quick validation found %d issue(s), restoring", len(issues))
			if restoreErr := t.Restore(ctx); restoreErr != nil {
				return restoreErr
			}
			return &Error{Kind: KindIntegrityViolation, Coord: metadataPrefix, Detail: fmt.Sprintf("%d validation issue(s)", len(issues))}
		}
	}

	if err := t.Commit(ctx); err != nil {
		return err
	}
	repomdXML, err := rpmmeta.MarshalRepomd(repomd)
	if err == nil {
		e.signIndex(ctx, metadataPrefix, repomdXML)
	}
	return nil
}

// pullRPMMetadata reads and parses the three XML documents a repomd
// indexes, also returning their decompressed raw bytes keyed by
// filename for namespace validation (see hasPrefixedDefaultNamespace).
func pullRPMMetadata(ctx context.Context, backend storage.Backend, metadataPrefix string) (*rpmmeta.PrimaryDoc, *rpmmeta.FilelistsDoc, *rpmmeta.OtherDoc, *rpmmeta.RepomdDoc, map[string][]byte, error) {
	repomdBytes, err := backend.Read(ctx, metadataPrefix+"/repomd.xml")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &rpmmeta.PrimaryDoc{}, &rpmmeta.FilelistsDoc{}, &rpmmeta.OtherDoc{}, nil, nil, nil
		}
		return nil, nil, nil, nil, nil, Wrap(KindStorageUnavailable, metadataPrefix, err)
	}

	repomd, err := rpmmeta.ParseRepomd(repomdBytes)
	if err != nil {
		return nil, nil, nil, nil, nil, Wrap(KindIntegrityViolation, metadataPrefix, err)
	}

	rawDocs := map[string][]byte{"repomd.xml": repomdBytes}

	primary, primaryRaw, err := readRPMDoc(ctx, backend, repomd, "primary", rpmmeta.ParsePrimary)
	if err != nil {
		logrus.Warnf("rpmengine: failed to read existing primary.xml, assuming empty: %v", err)
		primary = &rpmmeta.PrimaryDoc{}
	} else {
		rawDocs["primary.xml"] = primaryRaw
	}
	filelists, filelistsRaw, err := readRPMDoc(ctx, backend, repomd, "filelists", rpmmeta.ParseFilelists)
	if err != nil {
		filelists = &rpmmeta.FilelistsDoc{}
	} else {
		rawDocs["filelists.xml"] = filelistsRaw
	}
	other, otherRaw, err := readRPMDoc(ctx, backend, repomd, "other", rpmmeta.ParseOther)
	if err != nil {
		other = &rpmmeta.OtherDoc{}
	} else {
		rawDocs["other.xml"] = otherRaw
	}

	return primary, filelists, other, repomd, rawDocs, nil
}

func readRPMDoc[T any](ctx context.Context, backend storage.Backend, repomd *rpmmeta.RepomdDoc, docType string, parse func([]byte) (*T, error)) (*T, []byte, error) {
	for _, d := range repomd.Data {
		if d.Type != docType {
			continue
		}
		compressed, err := backend.Read(ctx, d.Location.Href)
		if err != nil {
			return nil, nil, err
		}
		raw, err := digest.GzipDecompress(compressed)
		if err != nil {
			return nil, nil, err
		}
		doc, err := parse(raw)
		if err != nil {
			return nil, nil, err
		}
		return doc, raw, nil
	}
	return nil, nil, fmt.Errorf("engine: no %s record in repomd", docType)
}
