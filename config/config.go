package config

import (
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Slack      SlackConfig      `yaml:"slack"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Maps       MapsConfig       `yaml:"maps"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the push mirror worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Push mirroring is disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the admin HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// SlackConfig holds the chat gateway configuration.
type SlackConfig struct {
	BotToken        string  `yaml:"bot_token"`
	BotUserID       string  `yaml:"bot_user_id"`
	SigningSecret   string  `yaml:"signing_secret"`
	APIBaseURL      string  `yaml:"api_base_url"`
	Username        string  `yaml:"username"`
	IconEmoji       string  `yaml:"icon_emoji"`
	EnableRTM       bool    `yaml:"enable_rtm"`
	RatePerSec      float64 `yaml:"rate_per_sec"`
	RateBurst       int     `yaml:"rate_burst"`
	DirectoryTTLMin int     `yaml:"directory_ttl_minutes"`

	DirectoryTTL time.Duration `yaml:"-"`
}

// SchedulerConfig holds the expiry scheduler configuration.
type SchedulerConfig struct {
	IntervalSeconds       int    `yaml:"interval_seconds"`
	ReminderWindowMinutes int    `yaml:"reminder_window_minutes"`
	SendTimeoutSeconds    int    `yaml:"send_timeout_seconds"`
	Timezone              string `yaml:"timezone"`

	Interval       time.Duration  `yaml:"-"` // Ignored by YAML parser
	ReminderWindow time.Duration  `yaml:"-"`
	SendTimeout    time.Duration  `yaml:"-"`
	Location       *time.Location `yaml:"-"`
}

// MapsConfig holds the mapping service configuration.
type MapsConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ImageSize  string `yaml:"image_size"`
	TimeoutSec int    `yaml:"timeout_seconds"`
}

// DatabaseConfig holds the database connection configuration.
// A DSN starting with "postgres://" or containing "host=" selects postgres,
// anything else is treated as a sqlite file name.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied and no secrets set.
func Default() *Config {
	var cfg Config
	if err := cfg.applyDefaults(); err != nil {
		// Only a bad timezone can fail, and the default one is always valid.
		panic(err)
	}
	return &cfg
}

func (cfg *Config) applyDefaults() error {
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		cfg.Slack.BotToken = v
	}
	if v := os.Getenv("SLACK_SIGNING_SECRET"); v != "" {
		cfg.Slack.SigningSecret = v
	}
	if v := os.Getenv("MAPS_API_KEY"); v != "" {
		cfg.Maps.APIKey = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	if cfg.Slack.APIBaseURL == "" {
		cfg.Slack.APIBaseURL = "https://slack.com/api"
	}
	if cfg.Slack.Username == "" {
		cfg.Slack.Username = "Parkbot"
	}
	if cfg.Slack.IconEmoji == "" {
		cfg.Slack.IconEmoji = ":car:"
	}
	if cfg.Slack.RatePerSec <= 0 {
		cfg.Slack.RatePerSec = 1
	}
	if cfg.Slack.RateBurst <= 0 {
		cfg.Slack.RateBurst = 3
	}
	if cfg.Slack.DirectoryTTLMin <= 0 {
		cfg.Slack.DirectoryTTLMin = 60
	}
	cfg.Slack.DirectoryTTL = time.Duration(cfg.Slack.DirectoryTTLMin) * time.Minute

	if cfg.Scheduler.IntervalSeconds <= 0 {
		cfg.Scheduler.IntervalSeconds = 60
	}
	cfg.Scheduler.Interval = time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second

	if cfg.Scheduler.ReminderWindowMinutes <= 0 {
		cfg.Scheduler.ReminderWindowMinutes = 15
	}
	cfg.Scheduler.ReminderWindow = time.Duration(cfg.Scheduler.ReminderWindowMinutes) * time.Minute

	if cfg.Scheduler.SendTimeoutSeconds <= 0 {
		cfg.Scheduler.SendTimeoutSeconds = 10
	}
	cfg.Scheduler.SendTimeout = time.Duration(cfg.Scheduler.SendTimeoutSeconds) * time.Second

	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Local"
	}
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return err
	}
	cfg.Scheduler.Location = loc

	if cfg.Maps.BaseURL == "" {
		cfg.Maps.BaseURL = "https://maps.googleapis.com"
	}
	if cfg.Maps.ImageSize == "" {
		cfg.Maps.ImageSize = "600x400"
	}
	if cfg.Maps.TimeoutSec <= 0 {
		cfg.Maps.TimeoutSec = 10
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "parkbot.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	return nil
}
