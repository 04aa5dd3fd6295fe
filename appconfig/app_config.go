package appconfig

import (
	"github.com/SaiNageswarS/go-api-boot/config"
)

type AppConfig struct {
	config.BootConfig `ini:",extends"`

	MongoURI  string `env:"MONGO-URI" ini:"mongo_uri"`
	RedisAddr string `env:"REDIS-ADDR" ini:"redis_addr"`
	HTTPPort  string `ini:"http_port"`

	// Assistant backend.
	AssistantID string `env:"ASSISTANT-ID" ini:"assistant_id"`

	// Blob storage. Persisted files are grouped by conversation under this bucket.
	FileBucket string `ini:"file_bucket"`
	Tenant     string `ini:"tenant"`

	// Poll budgets. Search-augmented turns wait longer because external
	// search plus reasoning increases run latency.
	PollIntervalMs       int `ini:"poll_interval_ms"`
	PollMaxAttempts      int `ini:"poll_max_attempts"`
	SearchPollIntervalMs int `ini:"search_poll_interval_ms"`
	SearchPollAttempts   int `ini:"search_poll_max_attempts"`

	// Storage-usage soft limit. Crossing it triggers an async cleanup
	// request, never a synchronous delete.
	StorageSoftLimitBytes int64 `ini:"storage_soft_limit_bytes"`
}

func (c *AppConfig) ApplyDefaults() {
	if c.HTTPPort == "" {
		c.HTTPPort = ":8080"
	}
	if c.Tenant == "" {
		c.Tenant = "relay"
	}
	if c.FileBucket == "" {
		c.FileBucket = "relay-files"
	}
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = 1000
	}
	if c.PollMaxAttempts <= 0 {
		c.PollMaxAttempts = 60
	}
	if c.SearchPollIntervalMs <= 0 {
		c.SearchPollIntervalMs = 2000
	}
	if c.SearchPollAttempts <= 0 {
		c.SearchPollAttempts = 150
	}
	if c.StorageSoftLimitBytes <= 0 {
		c.StorageSoftLimitBytes = 5 << 30 // 5 GiB
	}
}
