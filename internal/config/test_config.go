package config

import "time"

func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8081,
			RateLimit: 1000,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Name:     "portal_test",
			User:     "test_user",
			Password: "test_password",
			SSLMode:  "disable",
		},
		Store: StoreConfig{
			Driver: StoreDriverMemory,
		},
		JWT: JWTConfig{
			Secret: "test-secret",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		},
		Airtable: AirtableConfig{
			BaseURL:        "http://localhost",
			View:           "Grid view",
			CacheTTL:       time.Minute,
			RefreshCron:    "*/15 * * * *",
			RequestsPerSec: 5,
		},
		Log: LogConfig{
			Level: "error",
		},
	}
}
