package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingExplicitFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("yum-s3", filepath.Join(dir, "does-not-exist.conf"))
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestConfigFileNamesSearchOrder(t *testing.T) {
	names := configFileNames("yum-s3")
	require.Len(t, names, 3)
	assert.Equal(t, "./yum-s3.conf", names[0])
	assert.Equal(t, "/etc/yum-s3.conf", names[2])
}

func TestSaveAsThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "yum-s3.conf")

	cfg := New()
	cfg.Set("backend.type", "s3")
	cfg.Set("backend.s3.bucket", "repo-bucket")
	require.NoError(t, cfg.SaveAs(path))

	reloaded, err := Load("yum-s3", path)
	require.NoError(t, err)
	assert.Equal(t, "s3", reloaded.GetString("backend.type", ""))
	assert.Equal(t, "repo-bucket", reloaded.GetString("backend.s3.bucket", ""))
}

func TestLegacyKeysMigrateOnLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "yum-s3.conf")
	raw := `{"storage_type":"s3","s3_bucket":"legacy-bucket","aws_profile":"prod"}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load("yum-s3", path)
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.GetString("backend.type", ""))
	assert.Equal(t, "legacy-bucket", cfg.GetString("backend.s3.bucket", ""))
	assert.Equal(t, "prod", cfg.GetString("backend.s3.profile", ""))

	_, stillPresent := cfg.Get("storage_type")
	assert.False(t, stillPresent)
}

func TestLegacyMigrationPrefersExistingModernKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "yum-s3.conf")
	raw := `{"storage_type":"local","backend.type":"s3"}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load("yum-s3", path)
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.GetString("backend.type", ""))
}

func TestFamilyStringPrefersFamilyOverride(t *testing.T) {
	cfg := New()
	cfg.Set("backend.type", "local")
	cfg.Set("backend.rpm.type", "s3")

	assert.Equal(t, "s3", cfg.FamilyString("rpm", "type", ""))
	assert.Equal(t, "local", cfg.FamilyString("debian", "type", ""))
}

func TestGetBoolAndGetIntDefaults(t *testing.T) {
	cfg := New()
	assert.True(t, cfg.GetBool("validation.enabled", true))
	cfg.Set("validation.enabled", "false")
	assert.False(t, cfg.GetBool("validation.enabled", true))

	cfg.Set("retries", "not-a-number")
	assert.Equal(t, 3, cfg.GetInt("retries", 3))
}
