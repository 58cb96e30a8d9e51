package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Feed       FeedConfig       `yaml:"feed" mapstructure:"feed"`
	Catalog    CatalogConfig    `yaml:"catalog" mapstructure:"catalog"`
	Rates      RatesConfig      `yaml:"rates" mapstructure:"rates"`
	Relay      RelayConfig      `yaml:"relay" mapstructure:"relay"`
	Telegram   TelegramConfig   `yaml:"telegram" mapstructure:"telegram"`
	Translate  TranslateConfig  `yaml:"translate" mapstructure:"translate"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// FeedConfig configures inventory ingestion from the published spreadsheet.
type FeedConfig struct {
	Sources           []string `yaml:"sources" mapstructure:"sources"`
	CacheTTLSecs      int      `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries        int      `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent         string   `yaml:"user_agent" mapstructure:"user_agent"`
	MinorCurrencyRate float64  `yaml:"minor_currency_rate" mapstructure:"minor_currency_rate"`
	DescriptionLimit  int      `yaml:"description_limit" mapstructure:"description_limit"`
	DefaultTrim       string   `yaml:"default_trim" mapstructure:"default_trim"`
}

// CacheTTL returns the inventory cache window.
func (f FeedConfig) CacheTTL() time.Duration {
	return time.Duration(f.CacheTTLSecs) * time.Second
}

// Timeout returns the per-request fetch timeout.
func (f FeedConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// CatalogConfig configures browsing.
type CatalogConfig struct {
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
}

// RatesConfig configures the exchange-rate feed.
type RatesConfig struct {
	BaseURL  string             `yaml:"base_url" mapstructure:"base_url"`
	TTLMins  int                `yaml:"ttl_mins" mapstructure:"ttl_mins"`
	Currency string             `yaml:"currency" mapstructure:"currency"`
	Defaults map[string]float64 `yaml:"defaults" mapstructure:"defaults"`
}

// TTL returns the exchange-rate cache window.
func (r RatesConfig) TTL() time.Duration {
	return time.Duration(r.TTLMins) * time.Minute
}

// RelayConfig configures the manager contact relay.
type RelayConfig struct {
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	Path             string `yaml:"path" mapstructure:"path"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	FailureThreshold int    `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int    `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// TelegramConfig holds mini-app init-data validation settings.
type TelegramConfig struct {
	BotToken       string `yaml:"bot_token" mapstructure:"bot_token"`
	InitDataMaxAge int    `yaml:"init_data_max_age_secs" mapstructure:"init_data_max_age_secs"`
}

// TranslateConfig configures description translation.
type TranslateConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Source    string `yaml:"source" mapstructure:"source"`
	Target    string `yaml:"target" mapstructure:"target"`
	CacheSize int    `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTLH int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// StoreConfig configures the audit database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitoringConfig configures feed and relay health alerts.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	FailureStreak        int     `yaml:"failure_streak" mapstructure:"failure_streak"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultFeedSources are the published export links tried in order.
var DefaultFeedSources = []string{
	"https://docs.google.com/spreadsheets/d/14cuDxW6YdKnf3cFd18JhnwQ5v4gnOKhrCTZDVo96VCc/export?format=csv&gid=0",
	"https://docs.google.com/spreadsheets/d/14cuDxW6YdKnf3cFd18JhnwQ5v4gnOKhrCTZDVo96VCc/export?format=csv",
	"https://docs.google.com/spreadsheets/d/14cuDxW6YdKnf3cFd18JhnwQ5v4gnOKhrCTZDVo96VCc/export?format=csv&gid=1644141353",
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CARLOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("feed.sources", DefaultFeedSources)
	v.SetDefault("feed.cache_ttl_secs", 300)
	v.SetDefault("feed.timeout_secs", 30)
	v.SetDefault("feed.max_retries", 2)
	v.SetDefault("feed.user_agent", "carlot/1.0")
	v.SetDefault("feed.minor_currency_rate", 0.07)
	v.SetDefault("feed.description_limit", 500)
	v.SetDefault("feed.default_trim", "Standard")
	v.SetDefault("catalog.page_size", 10)
	v.SetDefault("rates.base_url", "https://api.exchangerate-api.com")
	v.SetDefault("rates.ttl_mins", 60)
	v.SetDefault("rates.currency", "USD")
	v.SetDefault("relay.base_url", "https://tgappbackend-e4rk.onrender.com")
	v.SetDefault("relay.path", "/api/webapp/contact")
	v.SetDefault("relay.timeout_secs", 20)
	v.SetDefault("relay.failure_threshold", 5)
	v.SetDefault("relay.reset_timeout_secs", 30)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.init_data_max_age_secs", 86400)
	v.SetDefault("translate.enabled", false)
	v.SetDefault("translate.base_url", "https://translate.googleapis.com")
	v.SetDefault("translate.source", "ko")
	v.SetDefault("translate.target", "ru")
	v.SetDefault("translate.cache_size", 2048)
	v.SetDefault("translate.cache_ttl_hours", 24)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "carlot.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.failure_streak", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	if len(c.Feed.Sources) == 0 {
		return eris.New("config: feed.sources must list at least one url")
	}
	if c.Catalog.PageSize <= 0 {
		return eris.Errorf("config: catalog.page_size must be positive, got %d", c.Catalog.PageSize)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
