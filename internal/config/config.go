// Package config loads settings from defaults, an optional config file and
// DOCMETA_ environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. DOCMETA_DATABASE_DSN
const EnvPrefix = "DOCMETA"

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Blob     BlobConfig     `mapstructure:"blob"`
	S3       S3Config       `mapstructure:"s3"`
	Log      LogConfig      `mapstructure:"log"`
	Import   ImportConfig   `mapstructure:"import"`
	Fuzzy    FuzzyConfig    `mapstructure:"fuzzy"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type BlobConfig struct {
	Driver string `mapstructure:"driver"` // dir or s3
	Root   string `mapstructure:"root"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ImportConfig struct {
	Sheet      string `mapstructure:"sheet"`
	HeadingRow int    `mapstructure:"heading_row"`
	Columns    string `mapstructure:"columns"` // optional YAML column table
}

type FuzzyConfig struct {
	Cutoff float64 `mapstructure:"cutoff"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "docmeta.db")
	v.SetDefault("blob.driver", "dir")
	v.SetDefault("blob.root", "media")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.bucket", "docmeta")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("import.sheet", "INPEX docs")
	v.SetDefault("import.heading_row", 1)
	v.SetDefault("import.columns", "")
	v.SetDefault("fuzzy.cutoff", 0.6)
}

// Load reads the configuration. file may be empty, in which case only
// defaults and the environment are used.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "postgres", "postgresql":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}

	switch strings.ToLower(c.Blob.Driver) {
	case "dir":
		if c.Blob.Root == "" {
			errs = append(errs, errors.New("blob.root is required for the dir driver"))
		}
	case "s3":
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			errs = append(errs, errors.New("s3.endpoint and s3.bucket are required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver must be dir or s3, got %q", c.Blob.Driver))
	}

	if c.Fuzzy.Cutoff <= 0 || c.Fuzzy.Cutoff > 1 {
		errs = append(errs, fmt.Errorf("fuzzy.cutoff must be in (0, 1], got %v", c.Fuzzy.Cutoff))
	}
	if c.Import.HeadingRow < 0 {
		errs = append(errs, fmt.Errorf("import.heading_row must not be negative, got %d", c.Import.HeadingRow))
	}

	return errors.Join(errs...)
}
