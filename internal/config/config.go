package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SWOT_POSTGRES_URL.
const EnvPrefix = "SWOT"

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	API struct {
		BaseURL string `yaml:"baseUrl"`
	} `yaml:"api"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// envOverrides mirrors the settings that may come from the environment.
type envOverrides struct {
	Port           string   `envconfig:"PORT"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
	RedisAddr      string   `envconfig:"REDIS_ADDR"`
	RedisPassword  string   `envconfig:"REDIS_PASSWORD"`
	RedisDB        *int     `envconfig:"REDIS_DB"`
	RedisTTL       string   `envconfig:"REDIS_TTL"`
	PostgresURL    string   `envconfig:"POSTGRES_URL"`
	APIBaseURL     string   `envconfig:"API_BASE_URL"`
	LogLevel       string   `envconfig:"LOG_LEVEL"`
	LogFormat      string   `envconfig:"LOG_FORMAT"`
}

// Load reads YAML config from path, then applies SWOT_* environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the environment. A missing file is not
// an error, and variables already set win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}
	setIf(&cfg.Server.Port, env.Port)
	if len(env.AllowedOrigins) > 0 {
		cfg.Server.AllowedOrigins = env.AllowedOrigins
	}
	setIf(&cfg.Redis.Addr, env.RedisAddr)
	setIf(&cfg.Redis.Password, env.RedisPassword)
	if env.RedisDB != nil {
		cfg.Redis.DB = *env.RedisDB
	}
	setIf(&cfg.Redis.TTL, env.RedisTTL)
	setIf(&cfg.Postgres.URL, env.PostgresURL)
	setIf(&cfg.API.BaseURL, env.APIBaseURL)
	setIf(&cfg.Log.Level, env.LogLevel)
	setIf(&cfg.Log.Format, env.LogFormat)
	return nil
}

func setIf(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
