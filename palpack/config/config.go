package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/flaneur2020/palpack/palpack"
	"github.com/flaneur2020/palpack/palpack/compression"
)

// Builder names the library layout on the outside of a container.
const (
	BuilderDirectory = "directory"
	BuilderPlaylist  = "playlist"
)

// Container holds the defaults for newly encoded containers.
type Container struct {
	Compression string `toml:"compression"`
	Level       uint32 `toml:"level"`
	Name        string `toml:"name"`
}

// Import configures how libraries are read from and written to disk.
type Import struct {
	Builder           string `toml:"builder"`
	PlaylistExtension string `toml:"playlist_extension"`
	Collision         string `toml:"collision"`
}

// Write tunes the container write path.
type Write struct {
	Workers           int   `toml:"workers"`
	SpillThresholdMiB int64 `toml:"spill_threshold_mib"`
}

// Logging selects the log level.
type Logging struct {
	Level string `toml:"level"`
}

// Metrics configures the Prometheus textfile written after each command.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Config is the whole palpack configuration file.
type Config struct {
	Container Container `toml:"container"`
	Import    Import    `toml:"import"`
	Write     Write     `toml:"write"`
	Logging   Logging   `toml:"logging"`
	Metrics   Metrics   `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses and validates a configuration file. An empty path
// tries the per-user file, then palpack.toml in the working directory. A file
// that does not exist yields the defaults with exists == false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	c.Container.Compression = strings.ToLower(strings.TrimSpace(c.Container.Compression))
	c.Import.Builder = strings.ToLower(strings.TrimSpace(c.Import.Builder))
	c.Import.Collision = strings.ToLower(strings.TrimSpace(c.Import.Collision))
	c.Import.PlaylistExtension = strings.TrimPrefix(strings.TrimSpace(c.Import.PlaylistExtension), ".")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Import.Builder == "" {
		c.Import.Builder = defaultBuilder
	}
	if c.Import.PlaylistExtension == "" {
		c.Import.PlaylistExtension = defaultPlaylistExtension
	}

	if c.Metrics.Textfile != "" {
		textfile, err := expandPath(c.Metrics.Textfile)
		if err != nil {
			return err
		}
		c.Metrics.Textfile = textfile
	}
	return nil
}

// Descriptor returns the compression descriptor selected by [container].
func (c *Config) Descriptor() (compression.Descriptor, error) {
	return compression.Parse(c.Container.Compression, c.Container.Level)
}

// CollisionPolicy returns the policy selected by [import].
func (c *Config) CollisionPolicy() (palpack.CollisionPolicy, error) {
	return palpack.ParseCollisionPolicy(c.Import.Collision)
}

// WriteOptions converts [write] into options for palpack.WriteFile.
func (c *Config) WriteOptions() palpack.WriteOptions {
	return palpack.WriteOptions{
		Workers:        c.Write.Workers,
		SpillThreshold: c.Write.SpillThresholdMiB << 20,
	}
}

// ImportOptions converts [import] into importer options. It assumes the
// config has been validated.
func (c *Config) ImportOptions() palpack.ImportOptions {
	policy, _ := c.CollisionPolicy()
	return palpack.ImportOptions{
		Collision:   policy,
		PlaylistExt: c.Import.PlaylistExtension,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
