// Package config implements the flat dot-key JSON configuration layer:
// file search order, legacy-key migration, and resolution of a
// storage.Backend. Business logic reads resolved values from it but
// never touches the file layer directly, the same way a resolved
// configuration struct is threaded down a call chain as a plain value.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Config is a flat dot-key mapping loaded from one JSON file on disk.
type Config struct {
	values map[string]string
	path string // the file this was loaded from/will be saved to; empty if none found
}

// New returns an empty config not yet bound to a file.
func New() *Config {
	return &Config{values: map[string]string{}}
}

// Path returns the file this config was loaded from or will save to.
func (c *Config) Path() string { return c.path }

// Get returns a raw string value and whether the key was present.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Set assigns a raw string value.
func (c *Config) Set(key, value string) {
	c.values[key] = value
}

// Unset removes a key.
func (c *Config) Unset(key string) {
	delete(c.values, key)
}

// Keys returns every configured key, sorted.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString returns key's value, or def if absent.
func (c *Config) GetString(key, def string) string {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// GetBool parses key's value as a bool, or returns def if absent/invalid.
func (c *Config) GetBool(key string, def bool) bool {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// GetInt parses key's value as an integer, or returns def if absent/invalid.
func (c *Config) GetInt(key string, def int) int {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// FamilyString looks up "backend.<family>.<suffix>" first, falling back
// to "backend.<suffix>" and finally def, per-family
// override rule ("family-specific key, then shared key"). suffix is the
// portion of the key after the "backend." prefix, e.g. "s3.bucket".
func (c *Config) FamilyString(family, suffix, def string) string {
	if v, ok := c.values[fmt.Sprintf("backend.%s.%s", family, suffix)]; ok {
		return v
	}
	return c.GetString(fmt.Sprintf("backend.%s", suffix), def)
}

// configFileNames returns the search order for one tool name:
// CLI-specified path (handled by the caller before Load is
// invoked); ./<tool>.conf; ~/.<tool>.conf; /etc/<tool>.conf.
func configFileNames(tool string) []string {
	var paths []string
	paths = append(paths, fmt.Sprintf("./%s.conf", tool))
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, fmt.Sprintf(".%s.conf", tool)))
	}
	paths = append(paths, fmt.Sprintf("/etc/%s.conf", tool))
	return paths
}

// Load searches for a configuration file in the order configFileNames
// returns, returning an empty, file-less Config if none is found (not
// an error — a repository may be configured entirely by flags/env).
// explicitPath, if non-empty, is tried first and any error reading it
// is returned directly rather than falling through to the search order.
func Load(tool, explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return loadFile(explicitPath)
	}
	for _, p := range configFileNames(tool) {
		if _, err := os.Stat(p); err == nil {
			return loadFile(p)
		}
	}
	return New(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	c := &Config{values: map[string]string{}, path: path}
	for k, v := range raw {
		c.values[k] = fmt.Sprintf("%v", v)
	}

	migrated := migrateLegacy(c)
	if migrated {
		if err := c.Save(); err != nil {
			return nil, fmt.Errorf("config: writing back migrated keys: %w", err)
		}
	}

	return c, nil
}

// Save writes the config back to Path as JSON. It fails if the config
// has no bound path (use SaveAs for a first write).
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config: no file path bound; use SaveAs")
	}
	return c.SaveAs(c.path)
}

// SaveAs writes the config to path as JSON and binds future Save calls
// to it.
func (c *Config) SaveAs(path string) error {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	data, err := json.MarshalIndent(out, "", " ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	c.path = path
	return nil
}
