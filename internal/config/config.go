// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Reddit    RedditConfig    `mapstructure:"reddit"`
	AI        AIConfig        `mapstructure:"ai"`
	DB        DBConfig        `mapstructure:"db"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Server    ServerConfig    `mapstructure:"server"`
	Retention RetentionConfig `mapstructure:"retention"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// MonitorConfig governs the scheduling loop and per-source fetch cycle.
type MonitorConfig struct {
	Subreddits      []string `mapstructure:"subreddits"`
	Keywords        []string `mapstructure:"keywords"`
	IntervalMinutes int      `mapstructure:"interval_minutes"`
	PageSize        int      `mapstructure:"page_size"`
	Sort            string   `mapstructure:"sort"`
}

// RedditConfig holds the Reddit API credentials.
type RedditConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	UserAgent    string `mapstructure:"user_agent"`
}

// AIConfig controls the optional secondary scorer.
type AIConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// NotifyConfig selects the relevant-post notifier.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"` // none, memory, pubsub
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// ServerConfig controls the status HTTP server run in continuous mode.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// RetentionConfig bounds how long stored posts are kept.
type RetentionConfig struct {
	Days int `mapstructure:"days"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REDDITWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.subreddits", []string{"SaaS", "startup"})
	v.SetDefault("monitor.keywords", []string{"feedback", "customer"})
	v.SetDefault("monitor.interval_minutes", 120)
	v.SetDefault("monitor.page_size", 25)
	v.SetDefault("monitor.sort", "new")
	v.SetDefault("reddit.user_agent", "redditwatch/0.1")
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("notify.provider", "none")
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("retention.days", 30)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if len(c.Monitor.Subreddits) == 0 {
		return fmt.Errorf("monitor.subreddits must not be empty")
	}
	if len(c.Monitor.Keywords) == 0 {
		return fmt.Errorf("monitor.keywords must not be empty")
	}
	if c.Monitor.IntervalMinutes <= 0 {
		return fmt.Errorf("monitor.interval_minutes must be > 0")
	}
	if c.Monitor.PageSize <= 0 {
		return fmt.Errorf("monitor.page_size must be > 0")
	}
	if c.Retention.Days <= 0 {
		return fmt.Errorf("retention.days must be > 0")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	if c.Notify.Provider == "pubsub" && (c.Notify.ProjectID == "" || c.Notify.TopicID == "") {
		return fmt.Errorf("notify.project_id and notify.topic_id must be set for the pubsub provider")
	}
	if c.AI.Enabled && c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key must be set when ai is enabled")
	}
	return nil
}

// Interval converts the configured minutes into a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Monitor.IntervalMinutes) * time.Minute
}

// AITimeout converts the secondary scorer timeout into a duration.
func (c Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}
