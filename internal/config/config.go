package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	StaticDir  string `yaml:"static_dir"`

	RootURL string `yaml:"root_url"`

	DataDir  string `yaml:"data_dir"`
	InMemory bool   `yaml:"in_memory"`

	LogLevel    string `yaml:"log_level"`
	Development bool   `yaml:"development"`

	OpenAIKey     string `yaml:"openai_api_key"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	MatchPerMinute int `yaml:"match_per_minute"`
	MatchBurst     int `yaml:"match_burst"`

	SessionCookie string        `yaml:"session_cookie"`
	SessionTTL    time.Duration `yaml:"session_ttl"`

	AdminEmails []string `yaml:"admin_emails"`
}

func Defaults() Config {
	return Config{
		ListenAddr:     ":8080",
		StaticDir:      "internal/web/static",
		DataDir:        "data",
		LogLevel:       "info",
		OpenAIModel:    "gpt-4o-mini",
		MatchPerMinute: 6,
		MatchBurst:     3,
		SessionCookie:  "agency_session",
		SessionTTL:     7 * 24 * time.Hour,
	}
}

// Load reads the optional YAML file named by AGENCY_CONFIG and then applies
// AGENCY_* environment variables on top of it.
func Load() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("AGENCY_CONFIG")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.ListenAddr = getEnv("AGENCY_LISTEN_ADDR", cfg.ListenAddr)
	cfg.StaticDir = getEnv("AGENCY_STATIC_DIR", cfg.StaticDir)
	cfg.RootURL = strings.TrimRight(getEnv("AGENCY_ROOT_URL", cfg.RootURL), "/")
	cfg.DataDir = getEnv("AGENCY_DATA_DIR", cfg.DataDir)
	cfg.InMemory = getEnvBool("AGENCY_IN_MEMORY", cfg.InMemory)
	cfg.LogLevel = getEnv("AGENCY_LOG_LEVEL", cfg.LogLevel)
	cfg.Development = getEnvBool("AGENCY_DEV", cfg.Development)
	cfg.OpenAIKey = getEnv("AGENCY_OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.OpenAIModel = getEnv("AGENCY_OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = getEnv("AGENCY_OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.MatchPerMinute = getEnvInt("AGENCY_MATCH_PER_MINUTE", cfg.MatchPerMinute)
	cfg.MatchBurst = getEnvInt("AGENCY_MATCH_BURST", cfg.MatchBurst)
	cfg.SessionCookie = getEnv("AGENCY_SESSION_COOKIE", cfg.SessionCookie)
	cfg.SessionTTL = getEnvDuration("AGENCY_SESSION_TTL", cfg.SessionTTL)
	if emails := os.Getenv("AGENCY_ADMIN_EMAILS"); emails != "" {
		cfg.AdminEmails = splitList(emails)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func getEnv(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}

	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}

	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}

	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
