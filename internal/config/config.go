//-------------------------------------------------------------------------
//
// pgEdge Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-warehouse.
// Configuration is loaded from config files and CLI flags; CLI flags take
// precedence over config file values. As a development convenience a .env
// file in the working directory can supply DATABASE_URL when no connection
// string is configured anywhere else.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// RunDateLayout is the accepted format for the --run-date flag.
const RunDateLayout = "2006-01-02"

// Config holds all configuration for pgedge-warehouse.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Init holds configuration for the init subcommand.
	Init InitConfig `mapstructure:"init"`

	// Run holds configuration for the run subcommand.
	Run RunConfig `mapstructure:"run"`

	// Gen holds configuration for the gen subcommand.
	Gen GenConfig `mapstructure:"gen"`
}

// InitConfig holds configuration for schema initialization.
type InitConfig struct {
	// DropExisting drops the warehouse schema before creating it.
	DropExisting bool `mapstructure:"drop_existing"`
}

// RunConfig holds configuration for an ETL run.
type RunConfig struct {
	// Extract is the path to the raw transaction extract CSV.
	Extract string `mapstructure:"extract"`

	// RunDate overrides the SCD effective/end date for the run
	// (YYYY-MM-DD). Empty means today.
	RunDate string `mapstructure:"run_date"`

	// BatchSize is the number of fact rows buffered per bulk insert.
	BatchSize int `mapstructure:"batch_size"`
}

// GenConfig holds configuration for synthetic extract generation.
type GenConfig struct {
	// Output is the path of the CSV file to write.
	Output string `mapstructure:"output"`

	// Rows is the number of transaction lines to generate.
	Rows int `mapstructure:"rows"`

	// Seed makes generation reproducible when non-zero.
	Seed uint64 `mapstructure:"seed"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Init: InitConfig{
			DropExisting: false,
		},
		Run: RunConfig{
			BatchSize: 1000,
		},
		Gen: GenConfig{
			Output: "extract.csv",
			Rows:   100000,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-warehouse.yaml
// 3. ~/.config/pgedge-warehouse/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-warehouse")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-warehouse"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Fall back to DATABASE_URL, loading a local .env first if present.
	if cfg.Connection == "" {
		_ = godotenv.Load()
		cfg.Connection = os.Getenv("DATABASE_URL")
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	return nil
}

// ValidateRun checks configuration required for the run command.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Run.Extract == "" {
		return fmt.Errorf("extract file path is required")
	}
	if c.Run.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1")
	}
	if c.Run.RunDate != "" {
		if _, err := time.Parse(RunDateLayout, c.Run.RunDate); err != nil {
			return fmt.Errorf("run_date must be YYYY-MM-DD: %w", err)
		}
	}
	return nil
}

// ValidateGen checks configuration required for the gen command.
func (c *Config) ValidateGen() error {
	if c.Gen.Output == "" {
		return fmt.Errorf("output file path is required")
	}
	if c.Gen.Rows < 1 {
		return fmt.Errorf("rows must be at least 1")
	}
	return nil
}

// RunDate resolves the configured run date, defaulting to today.
func (c *Config) RunDate() (time.Time, error) {
	if c.Run.RunDate == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(RunDateLayout, c.Run.RunDate)
}
