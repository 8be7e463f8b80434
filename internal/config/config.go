package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Regions  []string       `yaml:"regions"`
	Sources  SourcesConfig  `yaml:"sources"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// ScheduleConfig configures the refresh and credential-reset cadences.
type ScheduleConfig struct {
	RefreshInterval  string `yaml:"refresh_interval"`
	KeyResetInterval string `yaml:"key_reset_interval"`
}

// ParseRefreshInterval returns the refresh interval as a time.Duration.
func (s ScheduleConfig) ParseRefreshInterval() time.Duration {
	d, err := time.ParseDuration(s.RefreshInterval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// ParseKeyResetInterval returns the credential-reset interval as a
// time.Duration. Upstream quotas refill daily, so that is the default.
func (s ScheduleConfig) ParseKeyResetInterval() time.Duration {
	d, err := time.ParseDuration(s.KeyResetInterval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// SourcesConfig holds configuration for all adapters.
type SourcesConfig struct {
	YouTube YouTubeConfig `yaml:"youtube"`
	Forum   ForumConfig   `yaml:"forum"`
	GitHub  GitHubConfig  `yaml:"github"`
	Trends  TrendsConfig  `yaml:"trends"`
}

// YouTubeConfig for the video platform adapter.
type YouTubeConfig struct {
	APIKeys      []string `yaml:"api_keys"`
	Keywords     []string `yaml:"keywords"`
	MaxKeywords  int      `yaml:"max_keywords"`
	RequestDelay string   `yaml:"request_delay"`
}

// ForumConfig for the community forum adapter.
type ForumConfig struct {
	BaseURL string `yaml:"base_url"`
}

// GitHubConfig for the repository search adapter.
type GitHubConfig struct {
	Token        string   `yaml:"token"`
	Queries      []string `yaml:"queries"`
	RequestDelay string   `yaml:"request_delay"`
}

// TrendsConfig for the static trend feed.
type TrendsConfig struct {
	Multipliers map[string]float64 `yaml:"multipliers"`
}

// ParseDelay parses a delay string, falling back to 500ms.
func ParseDelay(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 500 * time.Millisecond
	}
	return d
}

// defaultKeywords is the workflow keyword list searched on the video platform.
var defaultKeywords = []string{
	"n8n automation", "n8n workflow", "n8n tutorial", "n8n integration",
	"n8n slack", "n8n gmail", "n8n google sheets", "n8n webhook",
	"n8n discord", "n8n twitter", "n8n instagram", "n8n whatsapp",
	"n8n airtable", "n8n notion", "n8n postgres", "n8n mongodb",
	"n8n stripe", "n8n shopify", "n8n wordpress", "n8n zapier alternative",
	"n8n api integration", "n8n database", "n8n email automation",
	"n8n social media", "n8n crm", "n8n scheduling", "n8n data sync",
	"n8n openai", "n8n chatgpt", "n8n ai automation", "n8n machine learning",
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"*"},
		},
		Schedule: ScheduleConfig{
			RefreshInterval:  "24h",
			KeyResetInterval: "24h",
		},
		Regions: []string{"US", "IN"},
		Sources: SourcesConfig{
			YouTube: YouTubeConfig{
				Keywords:     defaultKeywords,
				MaxKeywords:  15,
				RequestDelay: "500ms",
			},
			Forum: ForumConfig{
				BaseURL: "https://community.n8n.io",
			},
			GitHub: GitHubConfig{
				Queries: []string{
					"n8n workflow", "n8n automation", "n8n nodes", "n8n integration",
				},
				RequestDelay: "500ms",
			},
			Trends: TrendsConfig{
				// The secondary market typically shows lower volume.
				Multipliers: map[string]float64{"US": 1.0, "IN": 0.6},
			},
		},
	}
}

// Load reads configuration from an optional YAML file and applies .env plus
// environment variable overrides.
func Load(path string) (*Config, error) {
	// A missing .env file is fine; real env vars still apply.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("YOUTUBE_API_KEYS"); v != "" {
		var keys []string
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		cfg.Sources.YouTube.APIKeys = keys
	} else if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.Sources.YouTube.APIKeys = []string{v}
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.Sources.GitHub.Token = v
	}
	if v := os.Getenv("FLOWRANK_FORUM_URL"); v != "" {
		cfg.Sources.Forum.BaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}
