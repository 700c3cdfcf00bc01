package config

import (
	"context"
	"fmt"

	"github.com/repogen/reposync/internal/storage"
)

// FamilyKey maps a Family to the config-key segment the dot-key schema
// uses ("backend.rpm.*" / "backend.deb.*") — distinct from Family.String()'s
// "debian", which is for log/display purposes only.
func FamilyKey(family storage.Family) string {
	if family == storage.FamilyDebian {
		return "deb"
	}
	return family.String()
}

// ResolveBackend builds the storage.Backend named by the config for the
// given family, applying the per-family override rule
// (backend.<family>.* before the shared backend.* key) at every lookup.
func ResolveBackend(ctx context.Context, c *Config, family storage.Family) (storage.Backend, error) {
	familyKey := FamilyKey(family)

	backendType := c.FamilyString(familyKey, "type", "local")

	switch backendType {
	case "s3", "object-store":
		opts := storage.S3Options{
			Bucket: c.FamilyString(familyKey, "s3.bucket", ""),
			Endpoint: c.FamilyString(familyKey, "s3.endpoint", ""),
			Profile: c.FamilyString(familyKey, "s3.profile", ""),
		}
		return storage.NewS3Driver(ctx, opts)
	case "local", "":
		path := c.FamilyString(familyKey, "local.path", "")
		if path == "" {
			return nil, fmt.Errorf("config: backend.local.path is required for the local backend")
		}
		return storage.NewFSDriver(path)
	default:
		return nil, fmt.Errorf("config: unknown backend.type %q", backendType)
	}
}

// CacheDir returns the per-family cache directory ("repo.<family>.cache_dir"),
// falling back to the shared "repo.cache_dir" key.
func CacheDir(c *Config, family storage.Family) string {
	if v, ok := c.Get(fmt.Sprintf("repo.%s.cache_dir", FamilyKey(family))); ok {
		return v
	}
	return c.GetString("repo.cache_dir", "")
}

// ValidationEnabled reports whether validation.enabled is set (default true).
func ValidationEnabled(c *Config) bool {
	return c.GetBool("validation.enabled", true)
}

// ConfirmRequired reports whether behavior.confirm is set (default true).
func ConfirmRequired(c *Config) bool {
	return c.GetBool("behavior.confirm", true)
}

// BackupRetained reports whether behavior.backup is set (default true).
func BackupRetained(c *Config) bool {
	return c.GetBool("behavior.backup", true)
}
