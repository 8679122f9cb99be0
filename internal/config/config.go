package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Sentiment SentimentConfig `mapstructure:"sentiment"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	System    SystemConfig    `mapstructure:"system"`
}

type ExchangeConfig struct {
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	Passphrase string `mapstructure:"passphrase"`
	BaseURL    string `mapstructure:"base_url"`
	QuoteAsset string `mapstructure:"quote_asset"`
}

type TradingConfig struct {
	StopLossPct      float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct    float64 `mapstructure:"take_profit_pct"`
	MaxPositionAgeH  int     `mapstructure:"max_position_age_hours"`
	MinTradeFloor    float64 `mapstructure:"min_trade_floor"`
	SafetyBuffer     float64 `mapstructure:"safety_buffer"`
	CycleIntervalSec int     `mapstructure:"cycle_interval_seconds"`
	ErrorBackoffSec  int     `mapstructure:"error_backoff_seconds"`
	CandleInterval   string  `mapstructure:"candle_interval"`
	CandleLimit      int     `mapstructure:"candle_limit"`
}

type SentimentConfig struct {
	SocialAPIKey  string `mapstructure:"social_api_key"`
	SocialURL     string `mapstructure:"social_url"`
	CommunityURL  string `mapstructure:"community_url"`
	AggregatorURL string `mapstructure:"aggregator_url"`
	CacheTTLSec   int    `mapstructure:"cache_ttl_seconds"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type SystemConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// LoadConfig reads the YAML file, applies environment overrides for
// credentials and validates the result.
func LoadConfig(filePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filePath)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("SENTBOT")

	// Credentials never live in the config file on deployed hosts.
	if key := os.Getenv("KUCOIN_API_KEY"); key != "" {
		v.Set("exchange.api_key", key)
	}
	if secret := os.Getenv("KUCOIN_API_SECRET"); secret != "" {
		v.Set("exchange.api_secret", secret)
	}
	if pass := os.Getenv("KUCOIN_PASSPHRASE"); pass != "" {
		v.Set("exchange.passphrase", pass)
	}
	if key := os.Getenv("SOCIAL_API_KEY"); key != "" {
		v.Set("sentiment.social_api_key", key)
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		v.Set("redis.password", pass)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exchange.quote_asset", "USDT")
	v.SetDefault("trading.stop_loss_pct", 0.05)
	v.SetDefault("trading.take_profit_pct", 0.15)
	v.SetDefault("trading.max_position_age_hours", 24)
	v.SetDefault("trading.min_trade_floor", 10.0)
	v.SetDefault("trading.safety_buffer", 5.0)
	v.SetDefault("trading.cycle_interval_seconds", 60)
	v.SetDefault("trading.error_backoff_seconds", 30)
	v.SetDefault("trading.candle_interval", "1hour")
	v.SetDefault("trading.candle_limit", 100)
	v.SetDefault("sentiment.cache_ttl_seconds", 300)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("storage.sqlite_path", "./data/bots.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("system.log_level", "info")
}

func validateConfig(config *Config) error {
	if config.Trading.StopLossPct <= 0 || config.Trading.StopLossPct >= 1 {
		return fmt.Errorf("stop_loss_pct must be in (0, 1)")
	}
	if config.Trading.TakeProfitPct <= 0 || config.Trading.TakeProfitPct >= 1 {
		return fmt.Errorf("take_profit_pct must be in (0, 1)")
	}
	if config.Trading.MaxPositionAgeH <= 0 {
		return fmt.Errorf("max_position_age_hours must be positive")
	}
	if config.Trading.MinTradeFloor <= 0 {
		return fmt.Errorf("min_trade_floor must be positive")
	}
	if config.Trading.SafetyBuffer < 0 {
		return fmt.Errorf("safety_buffer must not be negative")
	}
	if config.Trading.CycleIntervalSec <= 0 {
		return fmt.Errorf("cycle_interval_seconds must be positive")
	}
	if config.Trading.ErrorBackoffSec <= 0 {
		return fmt.Errorf("error_backoff_seconds must be positive")
	}
	if config.Trading.CandleLimit < 50 {
		return fmt.Errorf("candle_limit must be at least 50 for the indicator lookback")
	}
	if config.Storage.SQLitePath == "" {
		return fmt.Errorf("sqlite_path must not be empty")
	}
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port")
	}
	if config.Redis.Enabled {
		if config.Redis.Host == "" {
			return fmt.Errorf("redis host must not be empty when redis is enabled")
		}
		if config.Redis.Port <= 0 || config.Redis.Port > 65535 {
			return fmt.Errorf("invalid redis port")
		}
	}
	return nil
}
