package config

import (
	"errors"
	"fmt"

	"github.com/flaneur2020/palpack/palpack/logger"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateContainer(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateWrite(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

func (c *Config) validateContainer() error {
	if _, err := c.Descriptor(); err != nil {
		return fmt.Errorf("container.compression: %w", err)
	}
	return nil
}

func (c *Config) validateImport() error {
	switch c.Import.Builder {
	case BuilderDirectory, BuilderPlaylist:
	default:
		return fmt.Errorf("import.builder must be %q or %q, got %q", BuilderDirectory, BuilderPlaylist, c.Import.Builder)
	}
	if _, err := c.CollisionPolicy(); err != nil {
		return fmt.Errorf("import.collision: %w", err)
	}
	return nil
}

func (c *Config) validateWrite() error {
	if c.Write.Workers < 1 {
		return errors.New("write.workers must be at least 1")
	}
	if c.Write.SpillThresholdMiB < 1 {
		return errors.New("write.spill_threshold_mib must be at least 1")
	}
	return nil
}
