// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev        bool
	ConfigPath string
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
	File     string `yaml:"file"`     // the terminal UI owns stdout, so logs go here
}

type StorageConfig struct {
	Driver        string `yaml:"driver"` // file | sqlite | redis | postgres
	Dir           string `yaml:"dir"`
	SessionsKey   string `yaml:"sessions_key"`
	AuthKey       string `yaml:"auth_key"`
	EncryptionKey string `yaml:"encryption_key"` // optional, 16/24/32 bytes
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	Provider           string        `yaml:"provider"` // gemini | openai | noop
	GeminiKey          string        `yaml:"gemini_key"`
	GeminiURL          string        `yaml:"gemini_url"`
	OpenAIKey          string        `yaml:"openai_key"`
	OpenAIBaseURL      string        `yaml:"openai_base_url"`
	DefaultModel       string        `yaml:"default_model"`
	SystemInstruction  string        `yaml:"system_instruction"`
	Temperature        float64       `yaml:"temperature"`
	ConcurrentLimit    int           `yaml:"concurrent_limit"` // max concurrent AI calls
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	HistoryLimit       int           `yaml:"history_limit"`        // 0 = whole conversation
	HistoryTokenBudget int           `yaml:"history_token_budget"` // 0 = unbounded
}

type IdentityConfig struct {
	Provider           string        `yaml:"provider"` // firebase | local
	FirebaseAPIKey     string        `yaml:"firebase_api_key"`
	FirebaseBaseURL    string        `yaml:"firebase_base_url"`
	GoogleClientID     string        `yaml:"google_client_id"`
	GoogleClientSecret string        `yaml:"google_client_secret"`
	CallbackPort       int           `yaml:"callback_port"`
	InitTimeout        time.Duration `yaml:"init_timeout"`
	LocalSecret        string        `yaml:"local_secret"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // e.g. 127.0.0.1:9464; empty disables the endpoint
}

type UIConfig struct {
	Language       string        `yaml:"language"`
	SplashDuration time.Duration `yaml:"splash_duration"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Identity IdentityConfig `yaml:"identity"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	UI       UIConfig       `yaml:"ui"`

	Runtime RuntimeConfig `yaml:"-"`
}

const (
	DefaultSystemInstruction = "You are Nyx Ai, a modern, smart, and conversational assistant. You are minimal, helpful, and concise. You avoid unnecessary fluff. You were built by RutuDev Studio."
	DefaultModel             = "gemini-3-flash-preview"
	DefaultInitTimeout       = 8 * time.Second
	DefaultSplashDuration    = 3500 * time.Millisecond
	DefaultRequestTimeout    = 60 * time.Second
)

// LoadConfig reads the YAML file at path. A missing file is not an error: the client
// runs on defaults plus environment overrides.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	cfg.Runtime.Dev = dev
	cfg.Runtime.ConfigPath = path
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := firstEnv("NYX_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY"); v != "" {
		cfg.AI.GeminiKey = v
	}
	if v := firstEnv("NYX_OPENAI_API_KEY", "OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAIKey = v
	}
	if v := os.Getenv("NYX_FIREBASE_API_KEY"); v != "" {
		cfg.Identity.FirebaseAPIKey = v
	}
	if v := os.Getenv("NYX_GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Identity.GoogleClientSecret = v
	}
	if v := os.Getenv("NYX_STORAGE_ENCRYPTION_KEY"); v != "" {
		cfg.Storage.EncryptionKey = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func applyDefaults(cfg *Config) error {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "file"
	}
	if cfg.Storage.Dir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolve storage dir: %w", err)
		}
		cfg.Storage.Dir = filepath.Join(dir, "nyx")
	}
	if cfg.Storage.SessionsKey == "" {
		cfg.Storage.SessionsKey = "nyx_ai_sessions"
	}
	if cfg.Storage.AuthKey == "" {
		cfg.Storage.AuthKey = "nyx_ai_auth"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(cfg.Storage.Dir, "nyx.log")
	}

	if cfg.AI.Provider == "" {
		switch {
		case cfg.AI.GeminiKey != "":
			cfg.AI.Provider = "gemini"
		case cfg.AI.OpenAIKey != "":
			cfg.AI.Provider = "openai"
		default:
			cfg.AI.Provider = "noop"
		}
	}
	if cfg.AI.DefaultModel == "" {
		if strings.ToLower(cfg.AI.Provider) == "openai" {
			cfg.AI.DefaultModel = "gpt-4o-mini"
		} else {
			cfg.AI.DefaultModel = DefaultModel
		}
	}
	if cfg.AI.SystemInstruction == "" {
		cfg.AI.SystemInstruction = DefaultSystemInstruction
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.7
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 1
	}
	if cfg.AI.RequestTimeout <= 0 {
		cfg.AI.RequestTimeout = DefaultRequestTimeout
	}

	if cfg.Identity.Provider == "" {
		if cfg.Identity.FirebaseAPIKey != "" {
			cfg.Identity.Provider = "firebase"
		} else {
			cfg.Identity.Provider = "local"
		}
	}
	if cfg.Identity.InitTimeout <= 0 {
		cfg.Identity.InitTimeout = DefaultInitTimeout
	}
	if cfg.Identity.CallbackPort == 0 {
		cfg.Identity.CallbackPort = 51121
	}

	if cfg.UI.Language == "" {
		cfg.UI.Language = "en"
	}
	if cfg.UI.SplashDuration <= 0 {
		cfg.UI.SplashDuration = DefaultSplashDuration
	}
	return nil
}

// Minimal validation
func validate(cfg *Config) error {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "file", "sqlite":
	case "redis":
		if cfg.Redis.URL == "" {
			return errors.New("redis.url is required for storage.driver=redis")
		}
	case "postgres":
		if cfg.Database.URL == "" {
			return errors.New("database.url is required for storage.driver=postgres")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", cfg.Storage.Driver)
	}
	if k := len(cfg.Storage.EncryptionKey); k != 0 && k != 16 && k != 24 && k != 32 {
		return fmt.Errorf("storage.encryption_key must be 16, 24, or 32 bytes; got %d", k)
	}

	switch strings.ToLower(cfg.AI.Provider) {
	case "gemini":
		if cfg.AI.GeminiKey == "" {
			return errors.New("ai.gemini_key (or API_KEY) is required for ai.provider=gemini")
		}
	case "openai":
		if cfg.AI.OpenAIKey == "" {
			return errors.New("ai.openai_key is required for ai.provider=openai")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown ai.provider %q", cfg.AI.Provider)
	}

	switch strings.ToLower(cfg.Identity.Provider) {
	case "firebase":
		if cfg.Identity.FirebaseAPIKey == "" {
			return errors.New("identity.firebase_api_key is required for identity.provider=firebase")
		}
	case "local":
	default:
		return fmt.Errorf("unknown identity.provider %q", cfg.Identity.Provider)
	}
	return nil
}
