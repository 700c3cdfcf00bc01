// Package txn implements the backup/commit/restore transaction
// protocol that guards a repository update: metadata is staged under
// a working prefix, the previous generation is preserved under a
// backup prefix, and a crash or failure between those two steps can
// always be resolved by restoring the backup. This generalizes a
// "write locally, nothing remote until done" flow into an explicit
// backup-prefix / commit / restore cycle that works against any
// storage.Backend, not just a local directory.
package txn

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/repogen/reposync/internal/repoerr"
	"github.com/repogen/reposync/internal/storage"
)

// Outcome is the terminal state of a Transaction.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeRestored Outcome = "restored"
	OutcomeAbandoned Outcome = "abandoned"
)

const backupPrefixLayout = "20060102-150405"

// Transaction stages a mutating operation against a timestamped backup
// prefix sibling of the live metadata directory.
type Transaction struct {
	Backend storage.Backend
	MetadataPrefix string
	BackupPrefix string
	StagingDir string
	Outcome Outcome

	legacyBackup string // set if a prior backup prefix was found at Begin
}

// Begin detects any pre-existing backup prefix (LegacyBackupPresent)
// before doing anything else: if one is found, it returns immediately
// without touching storage or the local disk further, since the caller
// is expected to abort on LegacyBackupPresent and a half-started
// transaction would otherwise leak a temp staging directory and an
// orphaned backup-prefix snapshot that nothing ever cleans up.
// Otherwise it computes a fresh backup prefix, snapshots the live
// metadata directory into it, and creates a local staging directory
// under cacheRoot.
func Begin(ctx context.Context, backend storage.Backend, metadataPrefix, cacheRoot string) (*Transaction, error) {
	legacy, err := findLegacyBackup(ctx, backend, metadataPrefix)
	if err != nil {
		return nil, repoerr.Wrap(repoerr.KindStorageUnavailable, metadataPrefix, err)
	}
	if legacy != "" {
		logrus.Warnf("txn: prior backup prefix %s already exists for %s; not auto-recovering", legacy, metadataPrefix)
		return &Transaction{Backend: backend, MetadataPrefix: metadataPrefix, legacyBackup: legacy}, nil
	}

	backupPrefix := fmt.Sprintf("%s.backup-%s", metadataPrefix, time.Now().UTC().Format(backupPrefixLayout))

	stagingDir, err := os.MkdirTemp(cacheRoot, "txn-*")
	if err != nil {
		return nil, repoerr.Wrap(repoerr.KindStorageUnavailable, metadataPrefix, err)
	}

	t := &Transaction{
		Backend: backend,
		MetadataPrefix: metadataPrefix,
		BackupPrefix: backupPrefix,
		StagingDir: stagingDir,
	}

	names, err := backend.List(ctx, metadataPrefix, "")
	if err != nil {
		return nil, repoerr.Wrap(repoerr.KindStorageUnavailable, metadataPrefix, err)
	}
	for _, name := range names {
		src := metadataPrefix + "/" + name
		dst := backupPrefix + "/" + name
		if err := backend.Copy(ctx, src, dst); err != nil {
			return nil, repoerr.Wrap(repoerr.KindStorageUnavailable, metadataPrefix, err)
		}
	}

	return t, nil
}

// LegacyBackupPresent reports the pre-existing backup prefix found at
// Begin, if any.
func (t *Transaction) LegacyBackupPresent() (string, bool) {
	return t.legacyBackup, t.legacyBackup != ""
}

func findLegacyBackup(ctx context.Context, backend storage.Backend, metadataPrefix string) (string, error) {
	parent, base := splitParent(metadataPrefix)
	siblings, err := backend.List(ctx, parent, "")
	if err != nil {
		return "", err
	}
	prefix := base + ".backup-"
	for _, s := range siblings {
		if strings.HasPrefix(s, prefix) {
			if slash := strings.Index(s, "/"); slash >= 0 {
				s = s[:slash] // List yields object paths; keep the prefix itself
			}
			if parent == "" {
				return s, nil
			}
			return parent + "/" + s, nil
		}
	}
	return "", nil
}

func splitParent(path string) (parent, base string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// UploadFile writes one staged local file to its resolved storage path.
// Callers use this for packages, then non-index metadata, then the
// top-level index last, preserving the ordering a reader expects when
// resuming a partially-uploaded prefix.
func (t *Transaction) UploadFile(ctx context.Context, localPath, remotePath string) error {
	if err := t.Backend.Write(ctx, localPath, remotePath); err != nil {
		return repoerr.Wrap(repoerr.KindStorageUnavailable, t.MetadataPrefix, err)
	}
	return nil
}

// UploadBytes writes in-memory bytes to a resolved storage path.
func (t *Transaction) UploadBytes(ctx context.Context, data []byte, remotePath string) error {
	if err := t.Backend.WriteBytes(ctx, data, remotePath); err != nil {
		return repoerr.Wrap(repoerr.KindStorageUnavailable, t.MetadataPrefix, err)
	}
	return nil
}

// Sweep deletes every object under the metadata prefix not present in
// referenced.
func (t *Transaction) Sweep(ctx context.Context, referenced map[string]bool) error {
	names, err := t.Backend.List(ctx, t.MetadataPrefix, "")
	if err != nil {
		return repoerr.Wrap(repoerr.KindStorageUnavailable, t.MetadataPrefix, err)
	}
	for _, name := range names {
		path := t.MetadataPrefix + "/" + name
		if referenced[path] {
			continue
		}
		if err := t.Backend.Delete(ctx, path); err != nil {
			return repoerr.Wrap(repoerr.KindStorageUnavailable, t.MetadataPrefix, err)
		}
	}
	return nil
}

// Commit deletes the backup prefix, finalizing the transaction.
func (t *Transaction) Commit(ctx context.Context) error {
	if err := t.deletePrefix(ctx, t.BackupPrefix); err != nil {
		return repoerr.Wrap(repoerr.KindStorageUnavailable, t.MetadataPrefix, err)
	}
	t.Outcome = OutcomeCommitted
	os.RemoveAll(t.StagingDir)
	return nil
}

// Restore copies every object in the backup prefix back to the live
// metadata prefix (overwriting), deletes any live object not present in
// the backup, and retains the backup prefix for inspection.
func (t *Transaction) Restore(ctx context.Context) error {
	backupNames, err := t.Backend.List(ctx, t.BackupPrefix, "")
	if err != nil {
		return repoerr.Wrap(repoerr.KindStorageUnavailable, t.MetadataPrefix, err)
	}

	backupSet := map[string]bool{}
	for _, name := range backupNames {
		backupSet[name] = true
		if err := t.Backend.Copy(ctx, t.BackupPrefix+"/"+name, t.MetadataPrefix+"/"+name); err != nil {
			return repoerr.Wrap(repoerr.KindStorageUnavailable, t.MetadataPrefix, err)
		}
	}

	liveNames, err := t.Backend.List(ctx, t.MetadataPrefix, "")
	if err != nil {
		return repoerr.Wrap(repoerr.KindStorageUnavailable, t.MetadataPrefix, err)
	}
	for _, name := range liveNames {
		if backupSet[name] {
			continue
		}
		if err := t.Backend.Delete(ctx, t.MetadataPrefix+"/"+name); err != nil {
			return repoerr.Wrap(repoerr.KindStorageUnavailable, t.MetadataPrefix, err)
		}
	}

	t.Outcome = OutcomeRestored
	os.RemoveAll(t.StagingDir)
	return nil
}

// Abandon discards the transaction before any remote write occurred: it
// deletes the just-taken backup and leaves the live metadata untouched.
func (t *Transaction) Abandon(ctx context.Context) error {
	if err := t.deletePrefix(ctx, t.BackupPrefix); err != nil {
		return repoerr.Wrap(repoerr.KindStorageUnavailable, t.MetadataPrefix, err)
	}
	t.Outcome = OutcomeCommitted
	os.RemoveAll(t.StagingDir)
	return nil
}

func (t *Transaction) deletePrefix(ctx context.Context, prefix string) error {
	names, err := t.Backend.List(ctx, prefix, "")
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := t.Backend.Delete(ctx, prefix+"/"+name); err != nil {
			return err
		}
	}
	return nil
}
