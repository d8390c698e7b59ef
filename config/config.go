package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/AndrewDonelson/campaign-studio/internal/utils"
)

// Config holds all application configuration
type Config struct {
	Environment string
	ServerPort  int
	DBPath      string
	LogLevel    string

	// Storage root holding outputs/, generated/, reference_images/ and logs/
	StoragePath string

	// OpenAI settings
	OpenAIAPIKey            string
	OpenAIBaseURL           string
	ImageModel              string
	TranslationModel        string
	OpenAIRequestsPerMinute int

	// Generation settings
	AIDevMode         bool
	UseOutpaintMethod bool
	CostPerAssetUSD   float64
	CostWarningUSD    float64

	WorkerPollInterval time.Duration
	RateLimitPerMinute int
}

// fileConfig is the subset of settings that may come from a TOML file.
// Secrets stay in the environment.
type fileConfig struct {
	ServerPort              *int     `toml:"server_port"`
	DBPath                  *string  `toml:"db_path"`
	StoragePath             *string  `toml:"storage_path"`
	LogLevel                *string  `toml:"log_level"`
	OpenAIBaseURL           *string  `toml:"openai_base_url"`
	ImageModel              *string  `toml:"image_model"`
	TranslationModel        *string  `toml:"translation_model"`
	OpenAIRequestsPerMinute *int     `toml:"openai_requests_per_minute"`
	AIDevMode               *bool    `toml:"ai_dev_mode"`
	UseOutpaintMethod       *bool    `toml:"use_outpaint_method"`
	CostPerAssetUSD         *float64 `toml:"cost_per_asset_usd"`
	CostWarningUSD          *float64 `toml:"cost_warning_usd"`
	WorkerPollInterval      *string  `toml:"worker_poll_interval"`
	RateLimitPerMinute      *int     `toml:"rate_limit_per_minute"`
}

// LoadConfig loads configuration based on environment. Values are layered:
// environment defaults, then the TOML file named by CAMPAIGN_CONFIG, then
// environment variables (a .env file is loaded into the environment first).
func LoadConfig() (*Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	env := getEnv("CAMPAIGN_ENV", "development")

	var cfg Config
	cfg.Environment = env
	cfg.ServerPort = 8080

	if env == "production" {
		cfg.DBPath = "/var/lib/campaign-studio/campaign.db"
		cfg.StoragePath = "/var/lib/campaign-studio/storage"
		cfg.LogLevel = "info"
	} else {
		basePath := utils.GetDataPath()
		cfg.DBPath = filepath.Join(basePath, "campaign.db")
		cfg.StoragePath = filepath.Join(basePath, "storage")
		cfg.LogLevel = "debug"
	}

	cfg.ImageModel = "dall-e-3"
	cfg.TranslationModel = "gpt-3.5-turbo"
	cfg.OpenAIRequestsPerMinute = 5
	cfg.UseOutpaintMethod = true
	cfg.CostPerAssetUSD = 0.040
	cfg.CostWarningUSD = 1.00
	cfg.WorkerPollInterval = 5 * time.Second
	cfg.RateLimitPerMinute = 120

	if path := os.Getenv("CAMPAIGN_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("invalid SERVER_PORT: %d", cfg.ServerPort)
	}
	cfg.DBPath = utils.ExpandHome(cfg.DBPath)
	cfg.StoragePath = utils.ExpandHome(cfg.StoragePath)

	return &cfg, nil
}

func (cfg *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setIf(&cfg.ServerPort, fc.ServerPort)
	setIf(&cfg.DBPath, fc.DBPath)
	setIf(&cfg.StoragePath, fc.StoragePath)
	setIf(&cfg.LogLevel, fc.LogLevel)
	setIf(&cfg.OpenAIBaseURL, fc.OpenAIBaseURL)
	setIf(&cfg.ImageModel, fc.ImageModel)
	setIf(&cfg.TranslationModel, fc.TranslationModel)
	setIf(&cfg.OpenAIRequestsPerMinute, fc.OpenAIRequestsPerMinute)
	setIf(&cfg.AIDevMode, fc.AIDevMode)
	setIf(&cfg.UseOutpaintMethod, fc.UseOutpaintMethod)
	setIf(&cfg.CostPerAssetUSD, fc.CostPerAssetUSD)
	setIf(&cfg.CostWarningUSD, fc.CostWarningUSD)
	setIf(&cfg.RateLimitPerMinute, fc.RateLimitPerMinute)

	if fc.WorkerPollInterval != nil {
		d, err := time.ParseDuration(*fc.WorkerPollInterval)
		if err != nil {
			return fmt.Errorf("invalid worker_poll_interval: %w", err)
		}
		cfg.WorkerPollInterval = d
	}
	return nil
}

func (cfg *Config) applyEnv() {
	cfg.ServerPort = getEnvInt("SERVER_PORT", cfg.ServerPort)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.StoragePath = getEnv("STORAGE_PATH", cfg.StoragePath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.ImageModel = getEnv("IMAGE_MODEL", cfg.ImageModel)
	cfg.TranslationModel = getEnv("TRANSLATION_MODEL", cfg.TranslationModel)
	cfg.OpenAIRequestsPerMinute = getEnvInt("OPENAI_REQUESTS_PER_MINUTE", cfg.OpenAIRequestsPerMinute)
	cfg.AIDevMode = getEnvBool("AI_DEV_MODE", cfg.AIDevMode)
	cfg.UseOutpaintMethod = getEnvBool("USE_OUTPAINT_METHOD", cfg.UseOutpaintMethod)
	cfg.CostPerAssetUSD = getEnvFloat("COST_PER_ASSET_USD", cfg.CostPerAssetUSD)
	cfg.CostWarningUSD = getEnvFloat("COST_WARNING_USD", cfg.CostWarningUSD)
	cfg.WorkerPollInterval = getEnvDuration("WORKER_POLL_INTERVAL", cfg.WorkerPollInterval)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
}

// HasAPIKey reports whether real OpenAI calls can be made
func (cfg *Config) HasAPIKey() bool {
	return strings.TrimSpace(cfg.OpenAIAPIKey) != ""
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvBool accepts true/false, 1/0 and yes/no
func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

// getEnvDuration accepts Go durations ("5s") or plain seconds ("5")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
