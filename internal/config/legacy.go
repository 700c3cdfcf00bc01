package config

// legacyKeyMap maps pre-dot-key flat config names to their
// replacements. migrateLegacy runs on every load so an old config file
// keeps working and gets rewritten in the new form on next save.
var legacyKeyMap = map[string]string{
	"storage_type": "backend.type",
	"s3_bucket": "backend.s3.bucket",
	"aws_profile": "backend.s3.profile",
	"s3_endpoint_url": "backend.s3.endpoint",
	"local_storage_path": "backend.local.path",
	"local_repo_base": "backend.local.path",
}

// migrateLegacy rewrites any legacy key present in c to its dot-key
// equivalent, leaving the dot-key value alone if both are present
// (explicit new-style config wins). It reports whether anything changed
// so the caller knows to persist the migration back to disk.
func migrateLegacy(c *Config) bool {
	changed := false
	for legacy, modern := range legacyKeyMap {
		v, ok := c.values[legacy]
		if !ok {
			continue
		}
		if _, exists := c.values[modern]; !exists {
			c.values[modern] = v
			changed = true
		}
		delete(c.values, legacy)
		changed = true
	}
	return changed
}
