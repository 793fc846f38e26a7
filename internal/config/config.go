package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dyluth/vinehill/internal/catalog"
	"github.com/dyluth/vinehill/internal/classify"
	"github.com/dyluth/vinehill/pkg/journal"
	"gopkg.in/yaml.v3"
)

const (
	defaultMaxAttempts       = 5
	defaultRetryUnit         = time.Second
	defaultRequestsPerSecond = 25
	defaultHealthPort        = 8080
	defaultRedisInstance     = "default"
)

// Config represents the top-level vinehill.yml configuration
type Config struct {
	Version        string           `yaml:"version"`
	Bot            BotConfig        `yaml:"bot"`
	IntakeChatID   int64            `yaml:"intake_chat_id"`
	BrandSuffix    string           `yaml:"brand_suffix"`
	RequiredGroups []int64          `yaml:"required_groups"`
	Categories     []CategoryConfig `yaml:"categories"`
	Keywords       *KeywordsConfig  `yaml:"keywords,omitempty"`
	Publish        *PublishConfig   `yaml:"publish,omitempty"`
	Redis          *RedisConfig     `yaml:"redis,omitempty"`
	Health         *HealthConfig    `yaml:"health,omitempty"`
}

// BotConfig holds the bot identity. The token itself comes from VINEHILL_BOT_TOKEN.
type BotConfig struct {
	Username          string  `yaml:"username"`            // Used to build t.me deep links
	RequestsPerSecond float64 `yaml:"requests_per_second"` // Outbound Bot API budget (default 25)
	Token             string  `yaml:"-"`
}

// CategoryConfig maps a category to the channel that carries its directory message.
type CategoryConfig struct {
	ID        catalog.Category `yaml:"id"`
	Title     string           `yaml:"title,omitempty"` // Display name; defaults per category
	ChannelID int64            `yaml:"channel_id"`
}

// KeywordsConfig overrides the keyword fallback sets used by the classifier.
type KeywordsConfig struct {
	Games    []string `yaml:"games,omitempty"`
	Music    []string `yaml:"music,omitempty"`
	TVSeries []string `yaml:"tvseries,omitempty"`
}

// PublishConfig controls directory publish retries on flood waits.
type PublishConfig struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	RetryUnit   time.Duration `yaml:"retry_unit,omitempty"` // Length of one "retry after" unit
}

// RedisConfig enables the optional catalog journal and directory state store.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Instance string `yaml:"instance,omitempty"`
}

// HealthConfig controls the /healthz listener. Port 0 disables it.
type HealthConfig struct {
	Port *int `yaml:"port,omitempty"`
}

var defaultTitles = map[catalog.Category]string{
	catalog.Games:    "Games",
	catalog.Music:    "Music",
	catalog.Movies:   "Movies",
	catalog.TVSeries: "TV Series",
}

// Validate performs strict validation on the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Bot.Username == "" {
		return fmt.Errorf("bot.username is required")
	}
	if c.Bot.RequestsPerSecond == 0 {
		c.Bot.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.Bot.RequestsPerSecond < 0 {
		return fmt.Errorf("bot.requests_per_second must be > 0, got %v", c.Bot.RequestsPerSecond)
	}

	if c.IntakeChatID == 0 {
		return fmt.Errorf("intake_chat_id is required")
	}

	if c.BrandSuffix == "" {
		return fmt.Errorf("brand_suffix is required")
	}

	if len(c.Categories) == 0 {
		return fmt.Errorf("no categories defined")
	}

	seen := make(map[catalog.Category]bool)
	for i := range c.Categories {
		cat := &c.Categories[i]
		if !catalog.Known(cat.ID) {
			return fmt.Errorf("category %d: unknown id '%s' (must be 'games', 'music', 'movies', or 'tvseries')", i, cat.ID)
		}
		if seen[cat.ID] {
			return fmt.Errorf("duplicate category '%s'", cat.ID)
		}
		seen[cat.ID] = true
		if cat.ChannelID == 0 {
			return fmt.Errorf("category '%s': channel_id is required", cat.ID)
		}
		if cat.Title == "" {
			cat.Title = defaultTitles[cat.ID]
		}
	}

	groups := make(map[int64]bool)
	for _, g := range c.RequiredGroups {
		if g == 0 {
			return fmt.Errorf("required_groups: group id cannot be 0")
		}
		if groups[g] {
			return fmt.Errorf("required_groups: duplicate group %d", g)
		}
		groups[g] = true
	}

	if c.Publish == nil {
		c.Publish = &PublishConfig{}
	}
	if c.Publish.MaxAttempts == 0 {
		c.Publish.MaxAttempts = defaultMaxAttempts
	}
	if c.Publish.MaxAttempts < 1 {
		return fmt.Errorf("publish.max_attempts must be >= 1, got %d", c.Publish.MaxAttempts)
	}
	if c.Publish.RetryUnit == 0 {
		c.Publish.RetryUnit = defaultRetryUnit
	}
	if c.Publish.RetryUnit < 0 {
		return fmt.Errorf("publish.retry_unit must be positive, got %s", c.Publish.RetryUnit)
	}

	if c.Redis != nil {
		if c.Redis.Instance == "" {
			c.Redis.Instance = defaultRedisInstance
		}
		if err := journal.ValidateInstanceName(c.Redis.Instance); err != nil {
			return fmt.Errorf("redis.instance: %w", err)
		}
	}

	if c.Health == nil {
		c.Health = &HealthConfig{}
	}
	if c.Health.Port == nil {
		port := defaultHealthPort
		c.Health.Port = &port
	}
	if *c.Health.Port < 0 || *c.Health.Port > 65535 {
		return fmt.Errorf("health.port out of range: %d", *c.Health.Port)
	}

	return nil
}

// CategoryIDs returns the configured category ids in file order.
func (c *Config) CategoryIDs() []catalog.Category {
	ids := make([]catalog.Category, 0, len(c.Categories))
	for _, cat := range c.Categories {
		ids = append(ids, cat.ID)
	}
	return ids
}

// ClassifierKeywords returns the keyword overrides. Empty sets mean built-in defaults.
func (c *Config) ClassifierKeywords() classify.Keywords {
	if c.Keywords == nil {
		return classify.Keywords{}
	}
	return classify.Keywords{
		Games:    c.Keywords.Games,
		Music:    c.Keywords.Music,
		TVSeries: c.Keywords.TVSeries,
	}
}

// RedisURL returns the journal URL, preferring REDIS_URL from the environment.
// Empty means the journal is disabled.
func (c *Config) RedisURL() string {
	if env := os.Getenv("REDIS_URL"); env != "" {
		return env
	}
	if c.Redis == nil {
		return ""
	}
	return c.Redis.URL
}

// RedisInstance returns the namespace used for journal keys.
func (c *Config) RedisInstance() string {
	if c.Redis == nil || c.Redis.Instance == "" {
		return defaultRedisInstance
	}
	return c.Redis.Instance
}

// Load reads and validates vinehill.yml from the specified path.
// The bot token is read from VINEHILL_BOT_TOKEN and never from the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.Bot.Token = os.Getenv("VINEHILL_BOT_TOKEN")
	return cfg, nil
}

// Parse decodes and validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
