package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. ROTA_SERVER__PORT sets server.port.
const EnvPrefix = "ROTA_"

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Auth     AuthConfig     `json:"auth"`
	Planner  PlannerConfig  `json:"planner"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
	Cache    CacheConfig    `json:"cache"`
}

// LoadDotEnv loads the first .env file found in the working directory or its
// parents. A missing file is not an error.
func LoadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load reads the optional config file at path, then applies environment
// overrides, defaults and validation. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyLegacyEnv()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyLegacyEnv honours the plain variable names used by existing
// deployments when the prefixed form is not set.
func (c *Config) applyLegacyEnv() {
	fill := func(dst *string, name string) {
		if *dst == "" {
			*dst = os.Getenv(name)
		}
	}
	fill(&c.Server.Port, "PORT")
	fill(&c.Server.Mode, "GIN_MODE")
	fill(&c.Database.URL, "DATABASE_URL")
	fill(&c.Database.Path, "DATA_PATH")
	fill(&c.Auth.JWTSecret, "JWT_SECRET")
	fill(&c.Auth.MasterSecret, "API_MASTER_SECRET")
	fill(&c.Auth.AdminUsername, "ADMIN_USERNAME")
	fill(&c.Auth.AdminPassword, "ADMIN_PASSWORD")
	fill(&c.Cache.Addr, "REDIS_ADDR")
	fill(&c.Logging.Level, "LOG_LEVEL")
	if c.Logging.Format == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		c.Logging.Format = "console"
	}
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Database.SetDefaults()
	c.Auth.SetDefaults()
	c.Planner.SetDefaults()
	c.Logging.SetDefaults()
	c.Metrics.SetDefaults()
	c.Cache.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	validators := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Validate},
		{"database", c.Database.Validate},
		{"auth", c.Auth.Validate},
		{"planner", c.Planner.Validate},
		{"logging", c.Logging.Validate},
		{"metrics", c.Metrics.Validate},
		{"cache", c.Cache.Validate},
	}
	for _, v := range validators {
		if err := v.fn(); err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return nil
}
