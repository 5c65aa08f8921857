package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Razorpay   RazorpayConfig   `yaml:"razorpay"`
	Machine    MachineConfig    `yaml:"machine"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	APIKey          string   `yaml:"api_key"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// StorageConfig holds the hosted object-storage credentials.
type StorageConfig struct {
	URL    string `yaml:"url"`
	Key    string `yaml:"key"`
	Bucket string `yaml:"bucket"`
}

// RazorpayConfig holds the payment provider credentials.
type RazorpayConfig struct {
	KeyID         string `yaml:"key_id"`
	KeySecret     string `yaml:"key_secret"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
}

// MachineConfig identifies the machine this backend instance tracks.
type MachineConfig struct {
	ID string `yaml:"id"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path, then applies
// environment overrides. A missing file is not an error so the process can
// run from environment variables alone.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrideString(&c.Database.DSN, "DATABASE_DSN", "DATABASE_URL")
	overrideString(&c.Storage.URL, "SUPABASE_URL")
	overrideString(&c.Storage.Key, "SUPABASE_KEY")
	overrideString(&c.Razorpay.KeyID, "RAZORPAY_KEY_ID")
	overrideString(&c.Razorpay.KeySecret, "RAZORPAY_KEY_SECRET")
	overrideString(&c.Razorpay.WebhookSecret, "RAZORPAY_WEBHOOK_SECRET")
	overrideString(&c.Razorpay.BaseURL, "RAZORPAY_API_BASE_URL")
	overrideString(&c.Server.APIKey, "API_KEY")
	overrideString(&c.Machine.ID, "MACHINE_ID")

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, origin)
			}
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 3005
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 20
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 300
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "product-images"
	}
	if c.Razorpay.BaseURL == "" {
		c.Razorpay.BaseURL = "https://api.razorpay.com/v1"
	}
	if c.Machine.ID == "" {
		c.Machine.ID = "VM-001"
	}
	if c.Push.TTL <= 0 {
		c.Push.TTL = 3600
	}
	if c.WorkerPool.Size <= 0 {
		c.WorkerPool.Size = 1
	}
}

// Validate reports missing required credentials. The process must not start
// without a database and object storage to talk to.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database dsn is required (database.dsn or DATABASE_DSN)")
	}
	if c.Storage.URL == "" || c.Storage.Key == "" {
		return errors.New("object storage credentials are required (SUPABASE_URL / SUPABASE_KEY)")
	}
	return nil
}

func overrideString(dst *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*dst = v
			return
		}
	}
}
