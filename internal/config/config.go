package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "BETA_TRACKER_CONFIG"
	logLevelEnv     = "BETA_TRACKER_LOG_LEVEL"
	logFormatEnv    = "BETA_TRACKER_LOG_FORMAT"
	storageDriveEnv = "BETA_TRACKER_STORAGE_DRIVER"
	storageDSNEnv   = "BETA_TRACKER_STORAGE_DSN"
	dataDirEnv      = "BETA_TRACKER_DATA_DIR"
	chromePathEnv   = "BETA_TRACKER_CHROME_PATH"

	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Storage       StorageConfig      `yaml:"storage"`
	Fetcher       FetcherConfig      `yaml:"fetcher"`
	Browser       BrowserConfig      `yaml:"browser"`
	Scan          ScanConfig         `yaml:"scan"`
	Filter        FilterConfig       `yaml:"filter"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig selects where items and history are persisted. The file
// driver uses Dir; sql drivers use DSN.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Dir    string `yaml:"dir"`
	DSN    string `yaml:"dsn"`
}

// FetcherConfig tunes HTTP retrieval.
type FetcherConfig struct {
	Retries           int           `yaml:"retries"`
	Backoff           time.Duration `yaml:"backoff"`
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"userAgent"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
}

// BrowserConfig configures headless Chrome for browser sources.
type BrowserConfig struct {
	ExecPath string        `yaml:"execPath"`
	Settle   time.Duration `yaml:"settle"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ScanConfig bounds the adapter fan-out.
type ScanConfig struct {
	MaxParallelSources int `yaml:"maxParallelSources"`
}

// FilterConfig overrides the title length bounds.
type FilterConfig struct {
	MinTitleLength int `yaml:"minTitleLength"`
	MaxTitleLength int `yaml:"maxTitleLength"`
}

// ClassifierConfig points at an optional keyword rules file.
type ClassifierConfig struct {
	RulesFile string `yaml:"rulesFile"`
}

// SchedulerConfig defines how often watch mode scans.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SourceConfig describes one source and the scanner kind that reads it.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Kind     string            `yaml:"kind"`
	URLs     []string          `yaml:"urls"`
	Options  map[string]string `yaml:"options"`
	Disabled bool              `yaml:"disabled"`
}

// Load reads .env and YAML configuration (if present) and applies
// environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(logFormatEnv); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv(storageDriveEnv); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv(storageDSNEnv); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv(dataDirEnv); v != "" {
		c.Storage.Dir = v
	}

	if v := os.Getenv(chromePathEnv); v != "" {
		c.Browser.ExecPath = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.Dir != "" {
		base.Storage.Dir = override.Storage.Dir
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}

	if override.Fetcher.Retries != 0 {
		base.Fetcher.Retries = override.Fetcher.Retries
	}
	if override.Fetcher.Backoff != 0 {
		base.Fetcher.Backoff = override.Fetcher.Backoff
	}
	if override.Fetcher.Timeout != 0 {
		base.Fetcher.Timeout = override.Fetcher.Timeout
	}
	if override.Fetcher.UserAgent != "" {
		base.Fetcher.UserAgent = override.Fetcher.UserAgent
	}
	if override.Fetcher.RequestsPerSecond != 0 {
		base.Fetcher.RequestsPerSecond = override.Fetcher.RequestsPerSecond
	}

	if override.Browser.ExecPath != "" {
		base.Browser.ExecPath = override.Browser.ExecPath
	}
	if override.Browser.Settle != 0 {
		base.Browser.Settle = override.Browser.Settle
	}
	if override.Browser.Timeout != 0 {
		base.Browser.Timeout = override.Browser.Timeout
	}

	if override.Scan.MaxParallelSources != 0 {
		base.Scan.MaxParallelSources = override.Scan.MaxParallelSources
	}

	if override.Filter.MinTitleLength != 0 {
		base.Filter.MinTitleLength = override.Filter.MinTitleLength
	}
	if override.Filter.MaxTitleLength != 0 {
		base.Filter.MaxTitleLength = override.Filter.MaxTitleLength
	}

	if override.Classifier.RulesFile != "" {
		base.Classifier.RulesFile = override.Classifier.RulesFile
	}

	if override.Scheduler.Interval != 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Storage: StorageConfig{Driver: DriverFile, Dir: "data"},
		Fetcher: FetcherConfig{
			Retries:   2,
			Backoff:   time.Second,
			Timeout:   15 * time.Second,
			UserAgent: "BetaTracker/1.0",
		},
		Browser:   BrowserConfig{Settle: 2 * time.Second, Timeout: 45 * time.Second},
		Scan:      ScanConfig{MaxParallelSources: 8},
		Filter:    FilterConfig{MinTitleLength: 10, MaxTitleLength: 200},
		Scheduler: SchedulerConfig{Interval: 6 * time.Hour, Timezone: defaultTimezone, location: tz},
		Sources: []SourceConfig{
			{
				Name: "developer-changelog",
				Kind: "feed",
				URLs: []string{"https://developers.hubspot.com/changelog/rss.xml"},
			},
			{
				Name: "product-updates",
				Kind: "document",
				URLs: []string{"https://www.hubspot.com/product-updates"},
				Options: map[string]string{
					"linkPattern":  `/product-updates/[a-z0-9-]+$`,
					"maxDocuments": "10",
				},
			},
			{
				Name: "community-releases",
				Kind: "browser",
				URLs: []string{"https://community.hubspot.com/t5/HubSpot-Product-Updates/bg-p/ProductUpdates"},
				Options: map[string]string{
					"linkPattern":  `/ba-p/\d+`,
					"maxDocuments": "5",
					"expand":       "always",
				},
			},
		},
	}
}
