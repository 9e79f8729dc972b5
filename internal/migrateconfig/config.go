// Package migrateconfig loads CLI defaults for the migrate command,
// reimplementing the teacher's internal/config layered-lookup strategy
// (project file found by walking up from cwd, then user config dir, then
// home dir, then environment, then flags) for a TOML config file instead
// of bd's config.yaml.
package migrateconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config holds the resolved CLI defaults. Flags always take precedence
// over these; see internal/migratecli.
type Config struct {
	v          *viper.Viper
	configFile string
}

// fileConfig is the on-disk shape of config.toml, decoded with
// github.com/BurntSushi/toml rather than handed to viper's own (pelletier)
// TOML codec, so only the keys the file actually sets override viper's
// defaults; environment variables still take precedence over the file.
type fileConfig struct {
	StateBackend string `toml:"state-backend"`
	StatePath    string `toml:"state-path"`
	ForceLock    bool   `toml:"force-lock"`
	JSON         bool   `toml:"json"`
	LockTimeout  string `toml:"lock-timeout"`
}

// definedEntries returns only the keys meta reports as present in the
// decoded file, suitable for viper.MergeConfigMap (which layers in at the
// same precedence as a config file: below explicit overrides and
// environment variables, above defaults).
func (fc fileConfig) definedEntries(meta toml.MetaData) map[string]any {
	m := map[string]any{}
	if meta.IsDefined("state-backend") {
		m["state-backend"] = fc.StateBackend
	}
	if meta.IsDefined("state-path") {
		m["state-path"] = fc.StatePath
	}
	if meta.IsDefined("force-lock") {
		m["force-lock"] = fc.ForceLock
	}
	if meta.IsDefined("json") {
		m["json"] = fc.JSON
	}
	if meta.IsDefined("lock-timeout") {
		m["lock-timeout"] = fc.LockTimeout
	}
	return m
}

// locateConfigFile walks, in order: ./.migrate/config.toml (and parent
// directories), $XDG_CONFIG_HOME/migrate/config.toml, ~/.migrate/config.toml.
// The first one found wins.
func locateConfigFile() string {
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			path := filepath.Join(dir, ".migrate", "config.toml")
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		path := filepath.Join(configDir, "migrate", "config.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".migrate", "config.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Load resolves CLI defaults: config file (if found) overridden by
// MIGRATE_-prefixed environment variables, falling back to built-in
// defaults where neither is set.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("MIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("state-backend", "file")
	v.SetDefault("state-path", ".migrate/state.yaml")
	v.SetDefault("force-lock", false)
	v.SetDefault("json", false)
	v.SetDefault("lock-timeout", "30s")

	configFile := locateConfigFile()
	if configFile != "" {
		var fc fileConfig
		meta, err := toml.DecodeFile(configFile, &fc)
		if err != nil {
			return nil, fmt.Errorf("migrateconfig: decoding %s: %w", configFile, err)
		}
		if err := v.MergeConfigMap(fc.definedEntries(meta)); err != nil {
			return nil, fmt.Errorf("migrateconfig: merging %s: %w", configFile, err)
		}
	}

	return &Config{v: v, configFile: configFile}, nil
}

func (c *Config) StateBackend() string       { return c.v.GetString("state-backend") }
func (c *Config) StatePath() string          { return c.v.GetString("state-path") }
func (c *Config) DefaultForceLock() bool     { return c.v.GetBool("force-lock") }
func (c *Config) DefaultJSON() bool          { return c.v.GetBool("json") }
func (c *Config) LockTimeout() time.Duration { return c.v.GetDuration("lock-timeout") }

// ConfigFileUsed returns the path of the config file that was loaded, or
// "" if none was found.
func (c *Config) ConfigFileUsed() string { return c.configFile }

// SetStatePathOverride takes priority over both the config file and the
// built-in default, for the CLI's --state-path flag.
func (c *Config) SetStatePathOverride(path string) { c.v.Set("state-path", path) }

// SetStateBackendOverride takes priority over both the config file and the
// built-in default, for the CLI's --state-backend flag.
func (c *Config) SetStateBackendOverride(backend string) { c.v.Set("state-backend", backend) }
