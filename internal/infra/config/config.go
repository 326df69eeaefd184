package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Stores   []StoreProfile `mapstructure:"stores" yaml:"stores"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`

	Port string `mapstructure:"port" yaml:"port"`
}

// StoreProfile is one S3-compatible endpoint downloads can be served from.
type StoreProfile struct {
	ID              string `mapstructure:"id" yaml:"id"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	Region          string `mapstructure:"region" yaml:"region"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style" yaml:"path_style"`
}

type DownloadConfig struct {
	OutDir      string `mapstructure:"out_dir" yaml:"out_dir"`
	PartSize    int64  `mapstructure:"part_size" yaml:"part_size"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
}

type HistoryConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"` // sqlite or postgres
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

func Load(path string) (*Config, error) {

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	v := viper.New()

	// Set Defaults
	v.SetDefault("port", "8080")
	v.SetDefault("download.out_dir", "./downloads")
	v.SetDefault("download.part_size", 5*1024*1024)
	v.SetDefault("download.concurrency", 4)
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.sqlite_path", "objstream.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	// Support Environment Variables
	v.SetEnvPrefix("OBJSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Stores) == 0 {
		return errors.New("at least one store must be configured")
	}

	seen := make(map[string]bool)
	for i, s := range c.Stores {
		if s.ID == "" {
			return fmt.Errorf("store[%d] requires a unique ID", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("store %s: duplicate ID", s.ID)
		}
		seen[s.ID] = true

		if s.Region == "" {
			c.Stores[i].Region = "us-east-1"
		}
	}

	if c.Download.PartSize <= 0 {
		return errors.New("download.part_size must be positive")
	}
	if c.Download.Concurrency <= 0 {
		return errors.New("download.concurrency must be positive")
	}

	switch c.History.Driver {
	case "sqlite":
		if c.History.SQLitePath == "" {
			return errors.New("history.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.History.PostgresDSN == "" {
			return errors.New("history.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown history driver: %s", c.History.Driver)
	}

	return nil
}

// Store returns the profile with the given ID, or the first profile when
// id is empty.
func (c *Config) Store(id string) (StoreProfile, error) {
	if id == "" {
		return c.Stores[0], nil
	}
	for _, s := range c.Stores {
		if s.ID == id {
			return s, nil
		}
	}
	return StoreProfile{}, fmt.Errorf("unknown store: %s", id)
}
