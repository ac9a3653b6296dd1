package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/potassco/gringo-dist/internal/config/validate"
	"github.com/potassco/gringo-dist/internal/utils/logger"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"
)

// DefaultConfigFile is looked up in the working directory when --config is
// not given.
const DefaultConfigFile = "gringo-dist.yml"

// Archive formats understood by the dist package.
const (
	ArchiveGzTar   = "gztar"
	ArchiveXzTar   = "xztar"
	ArchiveZstdTar = "zstdtar"
)

// ArchiveFormats lists the supported archive formats.
var ArchiveFormats = []string{ArchiveGzTar, ArchiveXzTar, ArchiveZstdTar}

// GlobalConfig holds tool-level settings that are independent of the package
// being built.
type GlobalConfig struct {
	WorkDir string        `yaml:"work_dir"`
	DistDir string        `yaml:"dist_dir"`
	TempDir string        `yaml:"temp_dir"`
	Logging LoggingConfig `yaml:"logging"`
	Archive ArchiveConfig `yaml:"archive"`
	Signing SigningConfig `yaml:"signing"`
	Upload  UploadConfig  `yaml:"upload"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ArchiveConfig struct {
	Format string `yaml:"format"`
}

// SigningConfig points at an armored OpenPGP private key. The passphrase is
// read from the named environment variable, never from the file.
type SigningConfig struct {
	KeyFile       string `yaml:"key_file"`
	PassphraseEnv string `yaml:"passphrase_env"`
}

// UploadConfig describes an S3-compatible bucket that receives archives.
// Credentials come from AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY.
type UploadConfig struct {
	Endpoint string `yaml:"endpoint"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Secure   *bool  `yaml:"secure"`
}

// UseSSL reports whether uploads go over TLS; the default is true.
func (u UploadConfig) UseSSL() bool {
	return u.Secure == nil || *u.Secure
}

var globalConfig *GlobalConfig

// DefaultGlobalConfig returns the settings used when no config file exists.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		WorkDir: "build",
		DistDir: "dist",
		Logging: LoggingConfig{Level: "info"},
		Archive: ArchiveConfig{Format: ArchiveGzTar},
		Signing: SigningConfig{PassphraseEnv: "GRINGO_DIST_SIGNING_PASSPHRASE"},
	}
}

// Global returns the loaded global config, or defaults before LoadGlobalConfig.
func Global() *GlobalConfig {
	if globalConfig == nil {
		return DefaultGlobalConfig()
	}
	return globalConfig
}

// SetGlobal replaces the global config.
func SetGlobal(c *GlobalConfig) {
	globalConfig = c
}

// LoadGlobalConfig reads path and installs the result as the global config.
// An empty path falls back to DefaultConfigFile; a missing default file is
// not an error, a missing explicit file is.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	log := logger.Logger()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			log.Debugf("no config file %s, using defaults", path)
			cfg := DefaultGlobalConfig()
			SetGlobal(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg, err := parseGlobalConfig(data)
	if err != nil {
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	}
	log.Debugf("loaded config file %s", path)
	SetGlobal(cfg)
	return cfg, nil
}

func parseGlobalConfig(data []byte) (*GlobalConfig, error) {
	jsonData, err := k8syaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("converting YAML to JSON: %w", err)
	}
	if err := validate.ValidateConfigJSON(jsonData); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := DefaultGlobalConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *GlobalConfig) applyDefaults() {
	def := DefaultGlobalConfig()
	if c.WorkDir == "" {
		c.WorkDir = def.WorkDir
	}
	if c.DistDir == "" {
		c.DistDir = def.DistDir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Archive.Format == "" {
		c.Archive.Format = def.Archive.Format
	}
	if c.Signing.PassphraseEnv == "" {
		c.Signing.PassphraseEnv = def.Signing.PassphraseEnv
	}
}
