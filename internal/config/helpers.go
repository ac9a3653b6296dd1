package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigHelpers provides convenient access to global configuration
type ConfigHelpers struct {
	config  *GlobalConfig
	baseDir string
}

// NewConfigHelpers creates a new config helpers instance
func NewConfigHelpers(config *GlobalConfig) *ConfigHelpers {
	return &ConfigHelpers{config: config}
}

// RelativeTo returns helpers resolving relative directories against baseDir
// instead of the working directory.
func (c *ConfigHelpers) RelativeTo(baseDir string) *ConfigHelpers {
	return &ConfigHelpers{config: c.config, baseDir: baseDir}
}

func (c *ConfigHelpers) resolve(dir string) (string, error) {
	if !filepath.IsAbs(dir) && c.baseDir != "" {
		dir = filepath.Join(c.baseDir, dir)
	}
	return filepath.Abs(dir)
}

// WorkDir returns the absolute path to the staging directory
func (c *ConfigHelpers) WorkDir() (string, error) {
	return c.resolve(c.config.WorkDir)
}

// DistDir returns the absolute path to the archive output directory
func (c *ConfigHelpers) DistDir() (string, error) {
	return c.resolve(c.config.DistDir)
}

// TempDir returns the temporary directory path
func (c *ConfigHelpers) TempDir() string {
	if c.config.TempDir == "" {
		return os.TempDir()
	}
	return c.config.TempDir
}

// LogLevel returns the configured log level
func (c *ConfigHelpers) LogLevel() string {
	return c.config.Logging.Level
}

// IsDebugMode returns true if debug logging is enabled
func (c *ConfigHelpers) IsDebugMode() bool {
	return c.config.Logging.Level == "debug"
}

// ArchiveFormat returns the configured archive format
func (c *ConfigHelpers) ArchiveFormat() string {
	return c.config.Archive.Format
}

// SigningPassphrase reads the signing passphrase from the environment.
func (c *ConfigHelpers) SigningPassphrase() string {
	if c.config.Signing.PassphraseEnv == "" {
		return ""
	}
	return os.Getenv(c.config.Signing.PassphraseEnv)
}

// GetConfig returns the underlying global config (for advanced usage)
func (c *ConfigHelpers) GetConfig() *GlobalConfig {
	return c.config
}

// CreateWorkDir ensures the staging directory exists
func (c *ConfigHelpers) CreateWorkDir() (string, error) {
	workDir, err := c.WorkDir()
	if err != nil {
		return "", fmt.Errorf("resolving work directory: %w", err)
	}
	return workDir, createDirIfNotExists(workDir)
}

// CreateDistDir ensures the archive output directory exists
func (c *ConfigHelpers) CreateDistDir() (string, error) {
	distDir, err := c.DistDir()
	if err != nil {
		return "", fmt.Errorf("resolving dist directory: %w", err)
	}
	return distDir, createDirIfNotExists(distDir)
}

// CreateTempDir creates a fresh temporary directory with the given prefix
func (c *ConfigHelpers) CreateTempDir(prefix string) (string, error) {
	if err := createDirIfNotExists(c.TempDir()); err != nil {
		return "", err
	}
	return os.MkdirTemp(c.TempDir(), prefix)
}

// Helper function to create directories
func createDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
