package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Events   EventsConfig   `yaml:"events"`
	Geo      GeoConfig      `yaml:"geo"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BackendConfig configures the generative model endpoint
type BackendConfig struct {
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"-"`
	APIKeyFile      string        `yaml:"api_key_file"`
	Model           string        `yaml:"model"`
	Language        string        `yaml:"language"`
	Leagues         []string      `yaml:"leagues"`
	Timeout         time.Duration `yaml:"timeout"`
	DegradedTimeout time.Duration `yaml:"degraded_timeout"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

type RefreshConfig struct {
	Countdown        time.Duration `yaml:"countdown"`
	HistorySize      int           `yaml:"history_size"`
	AnalysisSchedule string        `yaml:"analysis_schedule"`
	ThinkingMode     bool          `yaml:"thinking_mode"`
}

// StorageConfig selects the key-value driver: memory, file, redis or postgres
type StorageConfig struct {
	Driver    string `yaml:"driver"`
	Namespace string `yaml:"namespace"`
	FilePath  string `yaml:"file_path"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Table    string `yaml:"table"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"`
	DB       int    `yaml:"db"`
}

// EventsConfig enables publishing state changes to NATS when URL is set
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

type GeoConfig struct {
	Mode      string  `yaml:"mode"` // off, static, ip
	Lat       float64 `yaml:"lat"`
	Lng       float64 `yaml:"lng"`
	LookupURL string  `yaml:"lookup_url"`
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Host:           getEnv("HOST", "localhost"),
			AllowedOrigins: []string{getEnv("CORS_ORIGIN", "*")},
		},
		Backend: BackendConfig{
			BaseURL:         getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			APIKey:          getEnv("GEMINI_API_KEY", getEnv("API_KEY", "")),
			APIKeyFile:      getEnv("GEMINI_API_KEY_FILE", ""),
			Model:           getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
			Language:        getEnv("KICKOFF_LANGUAGE", "Italiano"),
			Leagues:         []string{"Serie A", "Premier League", "La Liga", "Bundesliga"},
			Timeout:         getEnvAsDuration("BACKEND_TIMEOUT", 90*time.Second),
			DegradedTimeout: getEnvAsDuration("BACKEND_DEGRADED_TIMEOUT", 25*time.Second),
			BreakerFailures: uint32(getEnvAsInt("BACKEND_BREAKER_FAILURES", 5)),
			BreakerCooldown: getEnvAsDuration("BACKEND_BREAKER_COOLDOWN", 60*time.Second),
		},
		Refresh: RefreshConfig{
			Countdown:        getEnvAsDuration("REFRESH_COUNTDOWN", 60*time.Second),
			HistorySize:      getEnvAsInt("HISTORY_SIZE", 20),
			AnalysisSchedule: getEnv("ANALYSIS_SCHEDULE", "0 */6 * * *"),
			ThinkingMode:     getEnv("THINKING_MODE", "false") == "true",
		},
		Storage: StorageConfig{
			Driver:    getEnv("STORAGE_DRIVER", "file"),
			Namespace: getEnv("STORAGE_NAMESPACE", "kickoff_"),
			FilePath:  getEnv("STORAGE_FILE", "kickoff-store.json"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "kickoff"),
			Password: getEnv("DB_PASSWORD", "kickoff"),
			DBName:   getEnv("DB_NAME", "kickoff"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Table:    getEnv("DB_TABLE", "kv_store"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Events: EventsConfig{
			NATSURL: getEnv("NATS_URL", ""),
			Subject: getEnv("NATS_SUBJECT", "kickoff.state"),
		},
		Geo: GeoConfig{
			Mode:      getEnv("GEO_MODE", "off"),
			Lat:       getEnvAsFloat("GEO_LAT", 0),
			Lng:       getEnvAsFloat("GEO_LNG", 0),
			LookupURL: getEnv("GEO_LOOKUP_URL", "http://ip-api.com/json/"),
		},
	}
}

// LoadFile loads defaults from the environment and overlays the YAML file at path.
// Secrets (API key, passwords) are never read from the file.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values the orchestrator relies on
func (c *Config) Validate() error {
	if c.Backend.Timeout <= 0 || c.Backend.DegradedTimeout <= 0 {
		return fmt.Errorf("backend timeouts must be positive")
	}
	if c.Backend.DegradedTimeout > c.Backend.Timeout {
		return fmt.Errorf("degraded timeout %s exceeds normal timeout %s", c.Backend.DegradedTimeout, c.Backend.Timeout)
	}
	if c.Refresh.Countdown < time.Second {
		return fmt.Errorf("refresh countdown must be at least 1s")
	}
	if c.Refresh.HistorySize <= 0 {
		return fmt.Errorf("history size must be positive")
	}
	switch c.Storage.Driver {
	case "memory", "file", "redis", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func (c *Config) DatabaseURL() string {
	// If DATABASE_URL is set, use it directly
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		return databaseURL
	}

	// Otherwise, construct from individual components
	return "postgres://" + c.Database.User + ":" + c.Database.Password +
		"@" + c.Database.Host + ":" + c.Database.Port +
		"/" + c.Database.DBName + "?sslmode=" + c.Database.SSLMode
}
