package config

import (
	"fmt"
	"time"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
	"github.com/arnavshah/rotation-scheduler-api/pkg/scheduler"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port string `json:"port"`
	// Mode is the gin mode: debug, release or test.
	Mode string `json:"mode"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Port == "" {
		c.Port = "8000"
	}
	if c.Mode == "" {
		c.Mode = "release"
	}
}

func (c ServerConfig) Validate() error {
	switch c.Mode {
	case "debug", "release", "test":
		return nil
	}
	return fmt.Errorf("unknown mode %s", c.Mode)
}

// DatabaseConfig selects Postgres when URL is set and SQLite at Path otherwise.
type DatabaseConfig struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

func (c *DatabaseConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "scheduler.db"
	}
}

func (c DatabaseConfig) Validate() error {
	if c.URL == "" && c.Path == "" {
		return fmt.Errorf("url or path is required")
	}
	return nil
}

// Driver names the gorm dialector in use.
func (c DatabaseConfig) Driver() string {
	if c.URL != "" {
		return "postgres"
	}
	return "sqlite"
}

// AuthConfig holds the admin and API key secrets.
type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret"`
	MasterSecret  string `json:"master_secret"`
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`
	TokenTTLHours int    `json:"token_ttl_hours"`
	BcryptCost    int    `json:"bcrypt_cost"`
}

func (c *AuthConfig) SetDefaults() {
	if c.AdminUsername == "" {
		c.AdminUsername = "admin"
	}
	if c.AdminPassword == "" {
		c.AdminPassword = "admin123"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 24
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 14
	}
}

func (c AuthConfig) Validate() error {
	if c.TokenTTLHours < 0 {
		return fmt.Errorf("token_ttl_hours must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt_cost %d out of range 4-31", c.BcryptCost)
	}
	return nil
}

// TokenTTL returns the admin token lifetime.
func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// PlannerConfig holds the default policy used when a request carries none.
type PlannerConfig struct {
	Policy         models.Policy `json:"policy"`
	TimeoutSeconds int           `json:"timeout_seconds"`
}

func (c *PlannerConfig) SetDefaults() {
	c.Policy = scheduler.ResolvePolicy(c.Policy)
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
}

func (c PlannerConfig) Validate() error {
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	return scheduler.ValidatePolicy(c.Policy)
}

// Timeout bounds a single planning run.
func (c PlannerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level string `json:"level"`
	// Format is "json" or "console".
	Format string `json:"format"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
}

func (c LoggingConfig) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("unknown format %s", c.Format)
	}
	return nil
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   *bool  `json:"enabled"`
	Path      string `json:"path"`
	Namespace string `json:"namespace"`
}

func (c *MetricsConfig) SetDefaults() {
	if c.Enabled == nil {
		on := true
		c.Enabled = &on
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if c.Namespace == "" {
		c.Namespace = "rotation"
	}
}

func (c MetricsConfig) Validate() error {
	if c.Path == "" || c.Path[0] != '/' {
		return fmt.Errorf("path must start with /")
	}
	return nil
}

// IsEnabled reports whether metrics are exposed.
func (c MetricsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// CacheConfig points at the Redis instance used for result caching. An empty
// Addr disables the cache.
type CacheConfig struct {
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLSeconds int    `json:"ttl_seconds"`
	KeyPrefix  string `json:"key_prefix"`
}

func (c *CacheConfig) SetDefaults() {
	if c.TTLSeconds == 0 {
		c.TTLSeconds = 3600
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "rota:plan:"
	}
}

func (c CacheConfig) Validate() error {
	if c.TTLSeconds < 0 {
		return fmt.Errorf("ttl_seconds must be positive")
	}
	return nil
}

// TTL is how long a cached result stays valid.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}
