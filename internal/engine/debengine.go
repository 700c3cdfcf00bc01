package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/repogen/reposync/internal/debmeta"
	"github.com/repogen/reposync/internal/digest"
	"github.com/repogen/reposync/internal/inspect"
	"github.com/repogen/reposync/internal/signer"
	"github.com/repogen/reposync/internal/storage"
	"github.com/repogen/reposync/internal/txn"
)

// DebEngine runs the add/remove/validate protocol for one
// Debian repository coordinate (suite/component/architecture) against a
// single storage backend.
type DebEngine struct {
	Backend storage.Backend
	CacheDir string
	Validate bool

	// Signer, if set, produces Release.gpg (detached) and InRelease
	// (cleartext) after a successful commit. See RPMEngine.Signer.
	Signer signer.Signer
}

func (e *DebEngine) signRelease(ctx context.Context, releasePrefix string, releaseRaw []byte) {
	if e.Signer == nil {
		return
	}
	if detached, err := e.Signer.SignDetached(releaseRaw); err == nil {
		if err := e.Backend.WriteBytes(ctx, detached, releasePrefix+"/Release.gpg"); err != nil {
			logrus.Warnf("debengine: failed to upload Release.gpg: %v", err)
		}
	} else {
		logrus.Warnf("debengine: failed to sign Release: %v", err)
	}
	if cleartext, err := e.Signer.SignCleartext(releaseRaw); err == nil {
		if err := e.Backend.WriteBytes(ctx, cleartext, releasePrefix+"/InRelease"); err != nil {
			logrus.Warnf("debengine: failed to upload InRelease: %v", err)
		}
	} else {
		logrus.Warnf("debengine: failed to produce InRelease: %v", err)
	}
}

// debCoord is a parsed "<suite>/<component>/<arch>" coordinate path.
type debCoord struct {
	Suite string
	Component string
	Arch string
}

func parseDebCoord(coordPath string) (debCoord, error) {
	parts := strings.Split(coordPath, "/")
	if len(parts) != 3 {
		return debCoord{}, fmt.Errorf("engine: debian coordinate must be suite/component/arch, got %q", coordPath)
	}
	return debCoord{Suite: parts[0], Component: parts[1], Arch: parts[2]}, nil
}

func (c debCoord) metadataPrefix() string {
	return fmt.Sprintf("dists/%s/%s/binary-%s", c.Suite, c.Component, c.Arch)
}

func (c debCoord) releasePrefix() string {
	return "dists/" + c.Suite
}

func (c debCoord) poolPrefix() string {
	return "pool/" + c.Component
}

// Add runs for a single Debian coordinate.
func (e *DebEngine) Add(ctx context.Context, coordPath string, localPaths []string) (*AddResult, error) {
	coord, err := parseDebCoord(coordPath)
	if err != nil {
		return nil, Wrap(KindMixedTargets, coordPath, err)
	}
	metadataPrefix := coord.metadataPrefix()

	t, err := txn.Begin(ctx, e.Backend, metadataPrefix, e.CacheDir)
	if err != nil {
		return nil, err
	}
	if legacy, present := t.LegacyBackupPresent(); present {
		return nil, Newf(KindLegacyBackupPresent, coordPath, "backup prefix %s already present", legacy)
	}

	prevRelease := e.captureRelease(ctx, coord)

	stanzas, err := pullPackages(ctx, e.Backend, metadataPrefix)
	if err != nil {
		return nil, Wrap(KindStorageUnavailable, coordPath, err)
	}

	packages := make([]*inspect.Package, 0, len(localPaths))
	for _, p := range localPaths {
		pkg, err := inspect.InspectDeb(p)
		if err != nil {
			return nil, Wrap(KindMalformedPackage, coordPath, err)
		}
		packages = append(packages, pkg)
	}

	existing := debmeta.ExistingChecksums(stanzas)
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

	var generated []*debmeta.Stanza
	var uploaded []string
	for _, pkg := range toUpload {
		base := filepath.Base(pkg.LocalPath)
		pkg.Filename = base
		poolPath := inspect.PoolPath(coord.Component, pkg.Name, base)
		generated = append(generated, debmeta.FromPackage(pkg, poolPath))
		uploaded = append(uploaded, base)
	}

	merged := debmeta.MergeStanzas(stanzas, generated)

	for _, pkg := range toUpload {
		poolPath := inspect.PoolPath(coord.Component, pkg.Name, pkg.Filename)
		if err := t.UploadFile(ctx, pkg.LocalPath, poolPath); err != nil {
			_ = t.Restore(ctx)
			e.restoreRelease(ctx, coord, prevRelease)
			return nil, err
		}
	}

	releaseRaw, err := e.writeDebMetadata(ctx, t, coord, merged)
	if err != nil {
		_ = t.Restore(ctx)
		e.restoreRelease(ctx, coord, prevRelease)
		return nil, err
	}

	if err := e.finishDebTransaction(ctx, t, coord, merged, releaseRaw, prevRelease); err != nil {
		return nil, err
	}

	return &AddResult{Uploaded: uploaded, Skipped: skipped, Outcome: t.Outcome}, nil
}

// Validate runs the full validation tier against the currently
// committed state of coordPath, outside of any transaction.
func (e *DebEngine) Validate(ctx context.Context, coordPath string) ([]ValidationIssue, error) {
	coord, err := parseDebCoord(coordPath)
	if err != nil {
		return nil, Wrap(KindMixedTargets, coordPath, err)
	}

	release, err := pullRelease(ctx, e.Backend, coord.releasePrefix())
	if err != nil {
		return nil, Wrap(KindStorageUnavailable, coordPath, err)
	}
	if len(release.MD5Sum) == 0 {
		return []ValidationIssue{{Kind: "MissingRepository", Detail: coord.releasePrefix()}}, nil
	}

	stanzas, err := pullPackages(ctx, e.Backend, coord.metadataPrefix())
	if err != nil {
		return nil, Wrap(KindStorageUnavailable, coordPath, err)
	}

	issues, err := QuickValidateDeb(ctx, e.Backend, coord.releasePrefix(), release, stanzas)
	if err != nil {
		return nil, err
	}

	fullIssues, err := FullValidateDeb(ctx, e.Backend, coord.poolPrefix(), stanzas)
	if err != nil {
		return nil, err
	}
	return append(issues, fullIssues...), nil
}

// Remove runs for a single Debian coordinate.
func (e *DebEngine) Remove(ctx context.Context, coordPath string, filenames []string) (*RemoveResult, error) {
	coord, err := parseDebCoord(coordPath)
	if err != nil {
		return nil, Wrap(KindMixedTargets, coordPath, err)
	}
	metadataPrefix := coord.metadataPrefix()

	t, err := txn.Begin(ctx, e.Backend, metadataPrefix, e.CacheDir)
	if err != nil {
		return nil, err
	}
	if legacy, present := t.LegacyBackupPresent(); present {
		return nil, Newf(KindLegacyBackupPresent, coordPath, "backup prefix %s already present", legacy)
	}

	prevRelease := e.captureRelease(ctx, coord)

	stanzas, err := pullPackages(ctx, e.Backend, metadataPrefix)
	if err != nil {
		return nil, Wrap(KindStorageUnavailable, coordPath, err)
	}

	want := map[string]bool{}
	for _, f := range filenames {
		want[f] = true
	}
	kept, removed := debmeta.RemoveByFilename(stanzas, want)

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

	releaseRaw, err := e.writeDebMetadata(ctx, t, coord, kept)
	if err != nil {
		_ = t.Restore(ctx)
		e.restoreRelease(ctx, coord, prevRelease)
		return nil, err
	}

	for _, s := range stanzas {
		base := filepath.Base(s.Filename())
		if removed[base] {
			if err := e.Backend.Delete(ctx, s.Filename()); err != nil {
				_ = t.Restore(ctx)
				e.restoreRelease(ctx, coord, prevRelease)
				return nil, Wrap(KindStorageUnavailable, coordPath, err)
			}
		}
	}

	if err := e.finishDebTransaction(ctx, t, coord, kept, releaseRaw, prevRelease); err != nil {
		return nil, err
	}

	var removedList []string
	for f := range removed {
		removedList = append(removedList, f)
	}
	return &RemoveResult{Removed: removedList, NotPresent: notPresent, Outcome: t.Outcome}, nil
}

// writeDebMetadata serializes Packages/Packages.gz and regenerates the
// suite-wide Release document, which indexes every component/arch
// directory under dists/<suite>: unlike RPM's per-
// coordinate repomd, one Release document spans every coordinate
// sharing a suite, so it is rebuilt from a fresh listing rather than
// merged in place.
func (e *DebEngine) writeDebMetadata(ctx context.Context, t *txn.Transaction, coord debCoord, stanzas []*debmeta.Stanza) ([]byte, error) {
	metadataPrefix := coord.metadataPrefix()

	packagesRaw := debmeta.SerializePackages(stanzas)
	packagesGz, err := digest.GzipCompress(packagesRaw)
	if err != nil {
		return nil, Wrap(KindIntegrityViolation, metadataPrefix, err)
	}
	packagesBz2, err := digest.Bzip2Compress(packagesRaw)
	if err != nil {
		return nil, Wrap(KindIntegrityViolation, metadataPrefix, err)
	}

	if err := t.UploadBytes(ctx, packagesRaw, metadataPrefix+"/Packages"); err != nil {
		return nil, err
	}
	if err := t.UploadBytes(ctx, packagesGz, metadataPrefix+"/Packages.gz"); err != nil {
		return nil, err
	}
	if err := t.UploadBytes(ctx, packagesBz2, metadataPrefix+"/Packages.bz2"); err != nil {
		return nil, err
	}

	release, err := rebuildRelease(ctx, e.Backend, coord, packagesRaw, packagesGz, packagesBz2)
	if err != nil {
		return nil, Wrap(KindStorageUnavailable, metadataPrefix, err)
	}
	releaseRaw := debmeta.SerializeRelease(release)
	if err := t.UploadBytes(ctx, releaseRaw, coord.releasePrefix()+"/Release"); err != nil {
		return nil, err
	}

	return releaseRaw, nil
}

// rebuildRelease walks every binary-<arch> directory already present
// under dists/<suite>, folding in the metadataPrefix's own just-rendered
// Packages/Packages.gz/Packages.bz2 bytes (which are not yet visible to
// a List call inside the same transaction), and recomputes the
// MD5Sum/SHA1/SHA256 blocks over the result.
func rebuildRelease(ctx context.Context, backend storage.Backend, coord debCoord, ownPackagesRaw, ownPackagesGz, ownPackagesBz2 []byte) (*debmeta.Release, error) {
	releasePrefix := coord.releasePrefix()
	relNames, err := backend.List(ctx, releasePrefix, "")
	if err != nil {
		return nil, err
	}

	own := coord.metadataPrefix()[len(releasePrefix)+1:] + "/"
	sizes := map[string]int64{}
	md5s := map[string]string{}
	sha1s := map[string]string{}
	sha256s := map[string]string{}
	archSet := map[string]bool{coord.Arch: true}
	compSet := map[string]bool{coord.Component: true}

	for _, rel := range relNames {
		base := filepath.Base(rel)
		if base != "Packages" && base != "Packages.gz" && base != "Packages.bz2" {
			continue
		}
		if strings.HasPrefix(rel, own) {
			continue // superseded below by the just-rendered bytes
		}

		data, err := backend.Read(ctx, releasePrefix+"/"+rel)
		if err != nil {
			continue
		}
		recordReleaseEntry(sizes, md5s, sha1s, sha256s, rel, data)
		if idx := strings.Index(rel, "/binary-"); idx > 0 {
			compSet[rel[:idx]] = true
		}

		if dir := filepath.Dir(rel); strings.HasPrefix(dir, "binary-") {
			archSet[strings.TrimPrefix(dir, "binary-")] = true
		} else if idx := strings.Index(rel, "/binary-"); idx >= 0 {
			rest := rel[idx+len("/binary-"):]
			if slash := strings.Index(rest, "/"); slash >= 0 {
				archSet[rest[:slash]] = true
			}
		}
	}

	recordReleaseEntry(sizes, md5s, sha1s, sha256s, strings.TrimSuffix(own, "/")+"/Packages", ownPackagesRaw)
	recordReleaseEntry(sizes, md5s, sha1s, sha256s, strings.TrimSuffix(own, "/")+"/Packages.gz", ownPackagesGz)
	recordReleaseEntry(sizes, md5s, sha1s, sha256s, strings.TrimSuffix(own, "/")+"/Packages.bz2", ownPackagesBz2)

	md5e, sha1e, sha256e := debmeta.ChecksumsFor(md5s, sha1s, sha256s, sizes)

	var arches []string
	for a := range archSet {
		arches = append(arches, a)
	}
	var comps []string
	for c := range compSet {
		comps = append(comps, c)
	}
	sort.Strings(comps)

	return &debmeta.Release{
		Suite: coord.Suite,
		Codename: coord.Suite,
		Components: strings.Join(comps, " "),
		Architectures: strings.Join(arches, " "),
		Date: time.Now().UTC().Format(time.RFC1123),
		MD5Sum: md5e,
		SHA1: sha1e,
		SHA256: sha256e,
	}, nil
}

func recordReleaseEntry(sizes map[string]int64, md5s, sha1s, sha256s map[string]string, relPath string, data []byte) {
	sizes[relPath] = int64(len(data))
	md5s[relPath] = digest.Sum(data, "md5")
	sha1s[relPath] = digest.Sum(data, "sha1")
	sha256s[relPath] = digest.SHA256Bytes(data)
}

func (e *DebEngine) finishDebTransaction(ctx context.Context, t *txn.Transaction, coord debCoord, stanzas []*debmeta.Stanza, releaseRaw []byte, prevRelease releaseSnapshot) error {
	metadataPrefix := coord.metadataPrefix()
	referenced := map[string]bool{
		metadataPrefix + "/Packages": true,
		metadataPrefix + "/Packages.gz": true,
		metadataPrefix + "/Packages.bz2": true,
	}
	if err := t.Sweep(ctx, referenced); err != nil {
		return err
	}

	if e.Validate {
		release, err := pullRelease(ctx, e.Backend, coord.releasePrefix())
		if err != nil {
			_ = t.Restore(ctx)
			e.restoreRelease(ctx, coord, prevRelease)
			return Wrap(KindStorageUnavailable, metadataPrefix, err)
		}
		issues, err := QuickValidateDeb(ctx, e.Backend, coord.releasePrefix(), release, stanzas)
		if err != nil {
			_ = t.Restore(ctx)
			e.restoreRelease(ctx, coord, prevRelease)
			return err
		}
		if len(issues) > 0 {
			logrus.Warnf("debengine: quick validation found %d issue(s), restoring", len(issues))
			if restoreErr := t.Restore(ctx); restoreErr != nil {
				return restoreErr
			}
			e.restoreRelease(ctx, coord, prevRelease)
			return &Error{Kind: KindIntegrityViolation, Coord: metadataPrefix, Detail: fmt.Sprintf("%d validation issue(s)", len(issues))}
		}
	}

	if err := t.Commit(ctx); err != nil {
		return err
	}
	e.signRelease(ctx, coord.releasePrefix(), releaseRaw)
	return nil
}

// releaseSnapshot captures the Release document's bytes as they stood
// before a transaction began, so a rollback can restore it: Release
// lives under dists/<suite>, outside any single coordinate's
// MetadataPrefix, so txn's own backup/restore never sees it.
type releaseSnapshot struct {
	raw []byte
	present bool
}

func (e *DebEngine) captureRelease(ctx context.Context, coord debCoord) releaseSnapshot {
	data, err := e.Backend.Read(ctx, coord.releasePrefix()+"/Release")
	if err != nil {
		return releaseSnapshot{}
	}
	return releaseSnapshot{raw: data, present: true}
}

func (e *DebEngine) restoreRelease(ctx context.Context, coord debCoord, prev releaseSnapshot) {
	path := coord.releasePrefix() + "/Release"
	if prev.present {
		if err := e.Backend.WriteBytes(ctx, prev.raw, path); err != nil {
			logrus.Warnf("debengine: failed to restore Release after rollback: %v", err)
		}
		return
	}
	if err := e.Backend.Delete(ctx, path); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logrus.Warnf("debengine: failed to remove Release after rollback: %v", err)
	}
}

func pullPackages(ctx context.Context, backend storage.Backend, metadataPrefix string) ([]*debmeta.Stanza, error) {
	data, err := backend.Read(ctx, metadataPrefix+"/Packages")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return debmeta.ParsePackages(data)
}

func pullRelease(ctx context.Context, backend storage.Backend, releasePrefix string) (*debmeta.Release, error) {
	data, err := backend.Read(ctx, releasePrefix+"/Release")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &debmeta.Release{}, nil
		}
		return nil, err
	}
	return debmeta.ParseRelease(data)
}
