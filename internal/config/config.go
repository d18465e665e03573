package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	AWS      AWSConfig      `yaml:"aws"`
	APNS     APNSConfig     `yaml:"apns"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port" env:"POPIN_PORT"`
	Host string `yaml:"host" env:"POPIN_HOST"`
}

// StorageConfig selects the storage backend: "postgres" for a hosted
// database, "sqlite" for a single local file.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"POPIN_STORAGE_DRIVER"`
	Path   string `yaml:"path" env:"POPIN_STORAGE_PATH"` // sqlite only
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"POPIN_DB_HOST"`
	Port     int    `yaml:"port" env:"POPIN_DB_PORT"`
	User     string `yaml:"user" env:"POPIN_DB_USER"`
	Password string `yaml:"password" env:"POPIN_DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POPIN_DB_NAME"`
	SSLMode  string `yaml:"sslmode" env:"POPIN_DB_SSLMODE"`
}

// AWSConfig holds S3 configuration for avatar uploads
type AWSConfig struct {
	Region   string `yaml:"region" env:"POPIN_AWS_REGION"`
	S3Bucket string `yaml:"s3_bucket" env:"POPIN_S3_BUCKET"`
}

// APNSConfig holds Apple push configuration. Push is disabled when
// key_file is empty.
type APNSConfig struct {
	KeyFile    string `yaml:"key_file" env:"POPIN_APNS_KEY_FILE"`
	KeyID      string `yaml:"key_id" env:"POPIN_APNS_KEY_ID"`
	TeamID     string `yaml:"team_id" env:"POPIN_APNS_TEAM_ID"`
	Topic      string `yaml:"topic" env:"POPIN_APNS_TOPIC"`
	Production bool   `yaml:"production" env:"POPIN_APNS_PRODUCTION"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret" env:"POPIN_JWT_SECRET"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level" env:"POPIN_LOG_LEVEL"`
}

// Load reads configuration from a YAML file, then applies environment
// variable overrides.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "postgres"
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
