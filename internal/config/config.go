// Package config loads seqbrowse configuration.
//
// Precedence, lowest to highest: built-in defaults, an optional YAML file
// (path in SEQBROWSE_CONFIG), then environment variables. The environment
// names match the original deployment so existing setups keep working:
//
//	AWS_REGION            store region           (default "us-east-1")
//	RNASEQ_S3_BUCKET      bucket                 (default "rnaseqdatabase")
//	RNASEQ_BASE_PREFIX    prefix projects live under (default "vendor-data/")
//	RNASEQ_MAX_KEYS       max objects per listing (default 5000)
//	RNASEQ_S3_ENDPOINT    store endpoint         (default "s3.amazonaws.com")
//	AWS_ACCESS_KEY_ID     access key
//	AWS_SECRET_ACCESS_KEY secret key
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/seqops/seqbrowse/internal/errs"
	yaml "go.yaml.in/yaml/v3"
)

// Config holds every operator-tunable setting.
type Config struct {
	// Remote store
	Region     string `yaml:"region"`
	Bucket     string `yaml:"bucket"`
	BasePrefix string `yaml:"base_prefix"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	UseSSL     bool   `yaml:"use_ssl"`

	// Listing
	MaxKeys int `yaml:"max_keys"` // catalog cap per listing

	// Local layout
	WebRoot     string `yaml:"web_root"`     // servable static root (previews, extractions)
	DownloadDir string `yaml:"download_dir"` // flat local downloads

	// Behaviour
	PollInterval    time.Duration `yaml:"poll_interval"`
	PresignTTL      time.Duration `yaml:"presign_ttl"`
	MaxArchiveBytes int64         `yaml:"max_archive_bytes"`

	// Server & logging
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
}

// Default returns the built-in defaults, matching the original deployment.
func Default() *Config {
	return &Config{
		Region:          "us-east-1",
		Bucket:          "rnaseqdatabase",
		BasePrefix:      "vendor-data/",
		Endpoint:        "s3.amazonaws.com",
		UseSSL:          true,
		MaxKeys:         5000,
		WebRoot:         "www",
		DownloadDir:     "downloads",
		PollInterval:    30 * time.Second,
		PresignTTL:      time.Hour,
		MaxArchiveBytes: 256 << 20,
		ListenAddr:      ":8080",
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// named by SEQBROWSE_CONFIG (if set), then environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("SEQBROWSE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.BasePrefix = NormalizePrefix(cfg.BasePrefix)

	if cfg.MaxKeys <= 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "max_keys must be positive")
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "cannot read config file", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "cannot parse config file", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Region, "AWS_REGION")
	setString(&c.Bucket, "RNASEQ_S3_BUCKET")
	setString(&c.BasePrefix, "RNASEQ_BASE_PREFIX")
	setString(&c.Endpoint, "RNASEQ_S3_ENDPOINT")
	setString(&c.AccessKey, "AWS_ACCESS_KEY_ID")
	setString(&c.SecretKey, "AWS_SECRET_ACCESS_KEY")
	if err := setInt(&c.MaxKeys, "RNASEQ_MAX_KEYS"); err != nil {
		return err
	}
	setString(&c.WebRoot, "SEQBROWSE_WEB_ROOT")
	setString(&c.DownloadDir, "SEQBROWSE_DOWNLOAD_DIR")
	setString(&c.ListenAddr, "SEQBROWSE_LISTEN_ADDR")
	setString(&c.LogLevel, "SEQBROWSE_LOG_LEVEL")
	setString(&c.LogFormat, "SEQBROWSE_LOG_FORMAT")
	return nil
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

// setInt rejects unparseable values outright; a typo must not silently fall
// back to the default.
func setInt(dst *int, name string) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, name+" must be an integer", err)
	}
	*dst = n
	return nil
}

// NormalizePrefix trims leading slashes and guarantees a single trailing
// slash on non-empty prefixes, mirroring how keys are laid out in the store.
func NormalizePrefix(p string) string {
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
