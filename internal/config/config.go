// Package config loads the worker configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shanehull/cryptobriefs/internal/coins"
)

// Configuration validation errors.
var (
	ErrNoFeeds                = errors.New("at least one feed is required")
	ErrInvalidPerFeedLimit    = errors.New("ingest.per_feed_limit must be at least 1")
	ErrInvalidMaxPerRun       = errors.New("ingest.max_per_run must be at least 1")
	ErrInvalidWriteLimit      = errors.New("ingest.write_concurrency must be at least 1")
	ErrInvalidTimeout         = errors.New("timeouts must be positive")
	ErrUnknownProvider        = errors.New("sentiment.provider must be one of: deepseek, openai, anthropic, gemini")
	ErrUnknownStoreDriver     = errors.New("store.driver must be 'mongo' or 'postgres'")
	ErrMissingStoreURI        = errors.New("store.uri is required")
	ErrMissingSchedule        = errors.New("schedule.ingest and schedule.blog are required")
	ErrInvalidTimezone        = errors.New("schedule.timezone is not a valid IANA zone")
	ErrInvalidLogLevel        = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat       = errors.New("logging.format must be 'text' or 'json'")
	ErrMissingSentimentKey    = errors.New("sentiment API key is not set, headlines will be stored as neutral")
	ErrMissingGeminiKey       = errors.New("GEMINI_API_KEY is not set, blog generation is disabled")
	ErrMissingBaseAPIURL      = errors.New("BASE_API_URL is not set, blog posts cannot be published")
	ErrIncompleteEmailSetting = errors.New("email settings are incomplete, notifications are disabled")
)

// Sentiment providers.
const (
	ProviderDeepSeek  = "deepseek"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

var defaultFeeds = []string{
	"https://www.coindesk.com/arc/outboundfeeds/rss/?outputType=xml",
	"https://cointelegraph.com/rss",
}

// Config is built once at start-up and handed to each component.
type Config struct {
	Feeds     []string        `yaml:"feeds"`
	Coins     []coins.Symbol  `yaml:"coins"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Store     StoreConfig     `yaml:"store"`
	Blog      BlogConfig      `yaml:"blog"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Email     EmailConfig     `yaml:"email"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IngestConfig bounds the work done by a single ingestion run.
type IngestConfig struct {
	PerFeedLimit     int           `yaml:"per_feed_limit"`
	MaxPerRun        int           `yaml:"max_per_run"`
	WriteConcurrency int           `yaml:"write_concurrency"`
	FeedTimeout      time.Duration `yaml:"feed_timeout"`
	UserAgent        string        `yaml:"user_agent"`
}

// SentimentConfig selects and configures the headline classifier.
type SentimentConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"-"`
	Timeout  time.Duration `yaml:"timeout"`
}

// StoreConfig points at the persisted news store.
type StoreConfig struct {
	Driver     string        `yaml:"driver"`
	URI        string        `yaml:"-"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

// BlogConfig drives the article generation job.
type BlogConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Model      string        `yaml:"model"`
	ImageModel string        `yaml:"image_model"`
	Tone       string        `yaml:"tone"`
	Length     string        `yaml:"length"`
	Audience   string        `yaml:"audience"`
	Tags       string        `yaml:"tags"`
	Timeout    time.Duration `yaml:"timeout"`
	APIKey     string        `yaml:"-"`
	BaseAPIURL string        `yaml:"-"`
}

// ScheduleConfig holds the cron expressions for the worker jobs. An empty
// Summary disables the summary trigger.
type ScheduleConfig struct {
	Timezone     string `yaml:"timezone"`
	Ingest       string `yaml:"ingest"`
	Blog         string `yaml:"blog"`
	Summary      string `yaml:"summary"`
	RunOnStart   *bool  `yaml:"run_on_start"`
	SingleFlight bool   `yaml:"single_flight"`
}

// EmailConfig holds SMTP configuration for run notifications.
type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	SMTPUser   string `yaml:"smtp_user"`
	SMTPPass   string `yaml:"-"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

// APIConfig configures the read-only HTTP API.
type APIConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path (optional; a missing file means defaults), loads .env, applies
// environment overrides and defaults, then validates.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	switch c.Sentiment.Provider {
	case ProviderOpenAI:
		set(&c.Sentiment.APIKey, "OPENAI_API_KEY")
	case ProviderAnthropic:
		set(&c.Sentiment.APIKey, "ANTHROPIC_API_KEY")
	case ProviderGemini:
		set(&c.Sentiment.APIKey, "GEMINI_API_KEY")
	default:
		set(&c.Sentiment.APIKey, "DEEP_SEEK_KEY", "DEEPSEEK_API_KEY")
	}

	if c.Store.Driver == DriverPostgres {
		set(&c.Store.URI, "DATABASE_URL")
	} else {
		set(&c.Store.URI, "MONGO_DB_URL")
	}

	set(&c.Blog.APIKey, "GEMINI_API_KEY")
	set(&c.Blog.BaseAPIURL, "BASE_API_URL")

	set(&c.Email.SMTPServer, "SMTP_SERVER")
	set(&c.Email.SMTPUser, "SMTP_USER")
	set(&c.Email.SMTPPass, "SMTP_PASS")
	set(&c.Email.FromEmail, "SMTP_FROM")
	set(&c.Email.ToEmail, "SMTP_TO")
	if port, err := strconv.Atoi(getenv("SMTP_PORT")); err == nil {
		c.Email.SMTPPort = port
	}

	if v := getenv("FRONTEND_URL"); v != "" {
		c.API.AllowedOrigins = append(c.API.AllowedOrigins, v)
	}
}

func (c *Config) applyDefaults() {
	if len(c.Feeds) == 0 {
		c.Feeds = append([]string(nil), defaultFeeds...)
	}

	if c.Ingest.PerFeedLimit == 0 {
		c.Ingest.PerFeedLimit = 10
	}
	if c.Ingest.MaxPerRun == 0 {
		c.Ingest.MaxPerRun = 10
	}
	if c.Ingest.WriteConcurrency == 0 {
		c.Ingest.WriteConcurrency = 5
	}
	if c.Ingest.FeedTimeout == 0 {
		c.Ingest.FeedTimeout = 5 * time.Second
	}
	if c.Ingest.UserAgent == "" {
		c.Ingest.UserAgent = "cryptobriefs/1.0"
	}

	if c.Sentiment.Provider == "" {
		c.Sentiment.Provider = ProviderDeepSeek
	}
	if c.Sentiment.Timeout == 0 {
		c.Sentiment.Timeout = 10 * time.Second
	}
	if c.Sentiment.Model == "" {
		switch c.Sentiment.Provider {
		case ProviderOpenAI:
			c.Sentiment.Model = "gpt-4o-mini"
		case ProviderAnthropic:
			c.Sentiment.Model = "claude-haiku-4-5"
		case ProviderGemini:
			c.Sentiment.Model = "gemini-2.5-flash"
		default:
			c.Sentiment.Model = "deepseek-chat"
		}
	}
	if c.Sentiment.BaseURL == "" && c.Sentiment.Provider == ProviderDeepSeek {
		c.Sentiment.BaseURL = "https://api.deepseek.com/"
	}

	if c.Store.Driver == "" {
		c.Store.Driver = DriverMongo
	}
	if c.Store.Database == "" {
		c.Store.Database = "cryptobriefs"
	}
	if c.Store.Collection == "" {
		c.Store.Collection = "news"
	}
	if c.Store.Timeout == 0 {
		c.Store.Timeout = 10 * time.Second
	}

	if c.Blog.Model == "" {
		c.Blog.Model = "gemini-3-pro-preview"
	}
	if c.Blog.ImageModel == "" {
		c.Blog.ImageModel = "imagen-4.0-generate-preview-06-06"
	}
	if c.Blog.Tone == "" {
		c.Blog.Tone = "Professional"
	}
	if c.Blog.Length == "" {
		c.Blog.Length = "Medium (~400-500 words)"
	}
	if c.Blog.Audience == "" {
		c.Blog.Audience = "General Audience"
	}
	if c.Blog.Tags == "" {
		c.Blog.Tags = "AI,crypto,trading,Portfolio,Technology,Blockchain,Cryptocurrency,Crypto,bots,Bitcoin,btc"
	}
	if c.Blog.Timeout == 0 {
		c.Blog.Timeout = 5 * time.Minute
	}
	if c.Blog.BaseAPIURL != "" && !strings.HasSuffix(c.Blog.BaseAPIURL, "/") {
		c.Blog.BaseAPIURL += "/"
	}

	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "UTC"
	}
	if c.Schedule.Ingest == "" {
		c.Schedule.Ingest = "0 * * * *"
	}
	if c.Schedule.Blog == "" {
		c.Schedule.Blog = "15 * * * *"
	}
	if c.Schedule.RunOnStart == nil {
		runOnStart := true
		c.Schedule.RunOnStart = &runOnStart
	}

	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.FromEmail == "" {
		c.Email.FromEmail = c.Email.SMTPUser
	}

	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"http://localhost:3000"}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks structural settings. Missing credentials are not validation
// errors; see MissingCredentials.
func (c *Config) Validate() error {
	if len(c.Feeds) == 0 {
		return ErrNoFeeds
	}
	for i, f := range c.Feeds {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("%w: feeds[%d] is empty", ErrNoFeeds, i)
		}
	}

	if c.Ingest.PerFeedLimit < 1 {
		return ErrInvalidPerFeedLimit
	}
	if c.Ingest.MaxPerRun < 1 {
		return ErrInvalidMaxPerRun
	}
	if c.Ingest.WriteConcurrency < 1 {
		return ErrInvalidWriteLimit
	}
	if c.Ingest.FeedTimeout <= 0 || c.Sentiment.Timeout <= 0 || c.Store.Timeout <= 0 || c.Blog.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	switch c.Sentiment.Provider {
	case ProviderDeepSeek, ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownProvider, c.Sentiment.Provider)
	}

	switch c.Store.Driver {
	case DriverMongo, DriverPostgres:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownStoreDriver, c.Store.Driver)
	}

	if c.Schedule.Ingest == "" || c.Schedule.Blog == "" {
		return ErrMissingSchedule
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTimezone, err)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ErrInvalidLogLevel
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// RequireStore reports ErrMissingStoreURI for commands that need the database.
func (c *Config) RequireStore() error {
	if c.Store.URI == "" {
		return fmt.Errorf("%w (set MONGO_DB_URL or DATABASE_URL)", ErrMissingStoreURI)
	}
	return nil
}

// MissingCredentials lists the credential problems detected at start-up. Each
// one disables a dependent feature for the process lifetime.
func (c *Config) MissingCredentials() []error {
	var errs []error
	if c.Sentiment.APIKey == "" {
		errs = append(errs, ErrMissingSentimentKey)
	}
	if c.Blog.Enabled {
		if c.Blog.APIKey == "" {
			errs = append(errs, ErrMissingGeminiKey)
		}
		if c.Blog.BaseAPIURL == "" {
			errs = append(errs, ErrMissingBaseAPIURL)
		}
	}
	if c.Email.SMTPServer != "" && !c.EmailEnabled() {
		errs = append(errs, ErrIncompleteEmailSetting)
	}
	return errs
}

// SummaryEnabled reports whether the summary trigger should be scheduled.
func (c *Config) SummaryEnabled() bool {
	return c.Schedule.Summary != "" && c.Blog.BaseAPIURL != ""
}

// BlogReady reports whether the blog job has everything it needs.
func (c *Config) BlogReady() bool {
	return c.Blog.Enabled && c.Blog.APIKey != "" && c.Blog.BaseAPIURL != ""
}

// EmailEnabled reports whether SMTP notifications can be sent.
func (c *Config) EmailEnabled() bool {
	e := c.Email
	return e.SMTPServer != "" && e.SMTPUser != "" && e.SMTPPass != "" && e.ToEmail != ""
}

// ShouldRunOnStart reports whether jobs fire once before the first trigger.
func (c *Config) ShouldRunOnStart() bool {
	return c.Schedule.RunOnStart == nil || *c.Schedule.RunOnStart
}

// String returns a short summary safe to log (no secrets).
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Feeds: %d, Provider: %s, Store: %s, Blog: %t, Ingest: %q, BlogSchedule: %q}",
		len(c.Feeds),
		c.Sentiment.Provider,
		c.Store.Driver,
		c.Blog.Enabled,
		c.Schedule.Ingest,
		c.Schedule.Blog,
	)
}
