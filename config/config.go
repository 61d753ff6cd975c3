package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	DBTypePostgres = "postgres"
	DBTypeMemory   = "memory"

	LocationColumnAuto = "auto"
	LocationColumnOn   = "on"
	LocationColumnOff  = "off"
)

type Config struct {
	Port     string
	LogLevel string

	DBType         string
	PostgresURL    string
	MigrationsPath string
	LocationColumn string

	Mongo MongoConfig
	R2    R2Config

	PDFTemplatePath string
}

// MongoConfig is optional. When URL is set the audit trail goes to Mongo.
type MongoConfig struct {
	URL    string
	DBName string
}

// R2Config holds Cloudflare R2 credentials for photo uploads.
type R2Config struct {
	AccountID       string
	Bucket          string
	PublicURL       string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether every R2 setting is present.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.Bucket != "" && c.PublicURL != "" &&
		c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Load reads the env file (if any) and then the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		// A missing .env is fine, settings may come from the environment.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Port:           getenvWithDefault("APP_PORT", "8080"),
		LogLevel:       getenvWithDefault("LOG_LEVEL", "info"),
		DBType:         getenvWithDefault("DB_TYPE", DBTypePostgres),
		PostgresURL:    os.Getenv("POSTGRES_URL"),
		MigrationsPath: getenvWithDefault("MIGRATIONS_PATH", "file://db/migrations"),
		LocationColumn: getenvWithDefault("RECEIPT_LOCATION_COLUMN", LocationColumnAuto),
		Mongo: MongoConfig{
			URL:    os.Getenv("MONGO_URL"),
			DBName: getenvWithDefault("MONGO_DB_NAME", "wms_inbound"),
		},
		R2: R2Config{
			AccountID:       os.Getenv("R2_ACCOUNT_ID"),
			Bucket:          os.Getenv("R2_BUCKET"),
			PublicURL:       os.Getenv("R2_PUBLIC_URL"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		},
		PDFTemplatePath: os.Getenv("PDF_TEMPLATE_PATH"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("APP_PORT must be provided"))
	}
	switch c.DBType {
	case DBTypePostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL must be provided when DB_TYPE=postgres"))
		}
	case DBTypeMemory:
	default:
		errs = append(errs, fmt.Errorf("DB_TYPE %q not supported", c.DBType))
	}
	switch c.LocationColumn {
	case LocationColumnAuto, LocationColumnOn, LocationColumnOff:
	default:
		errs = append(errs, fmt.Errorf("RECEIPT_LOCATION_COLUMN must be auto, on or off, got %q", c.LocationColumn))
	}
	return errors.Join(errs...)
}

func getenvWithDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
