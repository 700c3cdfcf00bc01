package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repogen/reposync/internal/storage"
)

func TestResolveBackendLocal(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Set("backend.type", "local")
	cfg.Set("backend.local.path", dir)

	backend, err := ResolveBackend(context.Background(), cfg, storage.FamilyRPM)
	require.NoError(t, err)
	assert.NotNil(t, backend)
}

func TestResolveBackendLocalMissingPath(t *testing.T) {
	cfg := New()
	cfg.Set("backend.type", "local")

	_, err := ResolveBackend(context.Background(), cfg, storage.FamilyRPM)
	assert.Error(t, err)
}

func TestResolveBackendUnknownType(t *testing.T) {
	cfg := New()
	cfg.Set("backend.type", "ftp")

	_, err := ResolveBackend(context.Background(), cfg, storage.FamilyRPM)
	assert.Error(t, err)
}

func TestResolveBackendPerFamilyOverride(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Set("backend.type", "s3")
	cfg.Set("backend.rpm.type", "local")
	cfg.Set("backend.rpm.local.path", dir)

	backend, err := ResolveBackend(context.Background(), cfg, storage.FamilyRPM)
	require.NoError(t, err)
	assert.NotNil(t, backend)
}

func TestCacheDirFamilyOverride(t *testing.T) {
	cfg := New()
	cfg.Set("repo.cache_dir", "/var/cache/repo")
	cfg.Set("repo.rpm.cache_dir", "/var/cache/rpm")

	assert.Equal(t, "/var/cache/rpm", CacheDir(cfg, storage.FamilyRPM))
	assert.Equal(t, "/var/cache/repo", CacheDir(cfg, storage.FamilyDebian))
}

func TestBehaviorDefaults(t *testing.T) {
	cfg := New()
	assert.True(t, ValidationEnabled(cfg))
	assert.True(t, ConfirmRequired(cfg))
	assert.True(t, BackupRetained(cfg))

	cfg.Set("behavior.confirm", "false")
	assert.False(t, ConfirmRequired(cfg))
}
