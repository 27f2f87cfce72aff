package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Store     StoreConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Redis     RedisConfig
	Airtable  AirtableConfig
	Crypto    CryptoConfig
	Bootstrap BootstrapConfig
	Log       LogConfig
}

type CryptoConfig struct {
	PrivateKey string
}

type ServerConfig struct {
	Host      string
	Port      int
	PublicURL string
	RateLimit float64
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string `json:"-"`
	Name     string
	SSLMode  string
}

// StoreConfig selects the persistence backend: "postgres" or "memory".
type StoreConfig struct {
	Driver string
}

type JWTConfig struct {
	Secret string `json:"-"`
}

type StorageConfig struct {
	Provider string // local, s3, r2
	S3       S3Config
}

type S3Config struct {
	BucketName string `env:"S3_BUCKET_NAME" required:"true"`
	Endpoint   string `env:"S3_ENDPOINT"`
	Region     string `env:"S3_REGION" required:"true"`
	AccessKey  string `env:"S3_ACCESS_KEY" required:"true" json:"-"`
	SecretKey  string `env:"S3_SECRET_KEY" required:"true" json:"-"`
}

// Enabled reports whether enough is configured to talk to a bucket.
func (s S3Config) Enabled() bool {
	return s.BucketName != "" && s.AccessKey != "" && s.SecretKey != ""
}

type WorkerConfig struct {
	Enabled     bool
	Concurrency int
}

type RedisConfig struct {
	Addr     string
	Password string `json:"-"`
	Username string
	DB       int
	Enabled  bool
}

type AirtableConfig struct {
	APIKey         string `json:"-"`
	BaseID         string
	NewsBaseID     string
	BaseURL        string
	View           string
	CacheTTL       time.Duration
	RefreshCron    string
	RequestsPerSec int
}

// Enabled reports whether the analytics integration is configured.
func (a AirtableConfig) Enabled() bool {
	return a.APIKey != "" && a.BaseID != ""
}

// BootstrapConfig describes the agency owner account created on first start.
type BootstrapConfig struct {
	OwnerEmail    string
	OwnerPassword string `json:"-"`
	OwnerName     string
	AgencyName    string
}

type LogConfig struct {
	Level string
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvAsInt("SERVER_PORT", 8080),
			PublicURL: getEnv("PUBLIC_URL", "http://localhost:8080"),
			RateLimit: getEnvAsFloat("SERVER_RATE_LIMIT", 20),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "portal"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Storage: StorageConfig{
			Provider: getEnv("STORAGE_PROVIDER", "s3"),
			S3: S3Config{
				BucketName: getEnv("S3_BUCKET_NAME", ""),
				Endpoint:   getEnv("S3_ENDPOINT", ""),
				Region:     getEnv("S3_REGION", ""),
				AccessKey:  getEnv("S3_ACCESS_KEY", ""),
				SecretKey:  getEnv("S3_SECRET_KEY", ""),
			},
		},
		Worker: WorkerConfig{
			Enabled:     getEnvAsBool("WORKER_ENABLED", true),
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 5),
		},
		Redis: RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", getEnv("REDIS_HOST", "localhost"), getEnvAsInt("REDIS_PORT", 6379)),
			Password: getEnv("REDIS_PASSWORD", ""),
			Username: getEnv("REDIS_USERNAME", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		Airtable: AirtableConfig{
			APIKey:         getEnv("AIRTABLE_API_KEY", ""),
			BaseID:         getEnv("AIRTABLE_BASE_ID", ""),
			NewsBaseID:     getEnv("AIRTABLE_NEWS_BASE_ID", ""),
			BaseURL:        getEnv("AIRTABLE_BASE_URL", "https://api.airtable.com/v0"),
			View:           getEnv("AIRTABLE_VIEW", "Grid view"),
			CacheTTL:       getEnvAsDuration("AIRTABLE_CACHE_TTL", 10*time.Minute),
			RefreshCron:    getEnv("AIRTABLE_REFRESH_CRON", "*/15 * * * *"),
			RequestsPerSec: getEnvAsInt("AIRTABLE_REQUESTS_PER_SEC", 5),
		},
		Crypto: CryptoConfig{
			PrivateKey: getEnv("PRIVATE_KEY", ""),
		},
		Bootstrap: BootstrapConfig{
			OwnerEmail:    getEnv("BOOTSTRAP_OWNER_EMAIL", ""),
			OwnerPassword: getEnv("BOOTSTRAP_OWNER_PASSWORD", ""),
			OwnerName:     getEnv("BOOTSTRAP_OWNER_NAME", "Agency Owner"),
			AgencyName:    getEnv("BOOTSTRAP_AGENCY_NAME", "Agency"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Validate checks the settings that would otherwise fail at request time.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}
	if c.Airtable.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.Airtable.RefreshCron); err != nil {
			errs = append(errs, fmt.Errorf("invalid AIRTABLE_REFRESH_CRON: %w", err))
		}
	}
	if c.Airtable.RequestsPerSec < 0 {
		errs = append(errs, errors.New("AIRTABLE_REQUESTS_PER_SEC must not be negative"))
	}
	return errors.Join(errs...)
}

// ResolveSecrets replaces values carrying the "enc:" prefix using decrypt.
func (c *Config) ResolveSecrets(decrypt func(string) (string, error)) error {
	fields := []*string{
		&c.JWT.Secret,
		&c.Database.Password,
		&c.Redis.Password,
		&c.Airtable.APIKey,
		&c.Storage.S3.AccessKey,
		&c.Storage.S3.SecretKey,
		&c.Bootstrap.OwnerPassword,
	}
	for _, f := range fields {
		if !strings.HasPrefix(*f, EncryptedPrefix) {
			continue
		}
		plain, err := decrypt(strings.TrimPrefix(*f, EncryptedPrefix))
		if err != nil {
			return fmt.Errorf("failed to decrypt secret: %w", err)
		}
		*f = plain
	}
	return nil
}

// HasEncryptedSecrets reports whether any secret needs the private key.
func (c *Config) HasEncryptedSecrets() bool {
	for _, v := range []string{
		c.JWT.Secret, c.Database.Password, c.Redis.Password, c.Airtable.APIKey,
		c.Storage.S3.AccessKey, c.Storage.S3.SecretKey, c.Bootstrap.OwnerPassword,
	} {
		if strings.HasPrefix(v, EncryptedPrefix) {
			return true
		}
	}
	return false
}

// EncryptedPrefix marks an RSA-encrypted, base64 encoded env value.
const EncryptedPrefix = "enc:"

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Database.Host,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.Port,
		c.Database.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
