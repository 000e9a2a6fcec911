// Path: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Bus      BusConfig
	Services ServicesConfig
	Requests RequestsConfig
	Games    GamesConfig
	Realtime RealtimeConfig
	Log      LogConfig
}

// ServerConfig holds the API server settings, one port per service.
type ServerConfig struct {
	PlayerPort   string          `mapstructure:"player_port"`
	GamePort     string          `mapstructure:"game_port"`
	RequestPort  string          `mapstructure:"request_port"`
	RealtimePort string          `mapstructure:"realtime_port"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig holds the per-client limit applied to every API. A zero
// rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// DatabaseConfig holds the database connection settings.
type DatabaseConfig struct {
	Driver             string `mapstructure:"driver"`
	URI                string `mapstructure:"uri"`
	Name               string `mapstructure:"name"`
	PlayersCollection  string `mapstructure:"players_collection"`
	GamesCollection    string `mapstructure:"games_collection"`
	RequestsCollection string `mapstructure:"requests_collection"`
}

// BusConfig selects and configures the event bus.
type BusConfig struct {
	Driver       string      `mapstructure:"driver"`
	Brokers      []string    `mapstructure:"brokers"`
	ClientID     string      `mapstructure:"client_id"`
	RedisURL     string      `mapstructure:"redis_url"`
	ConsumerName string      `mapstructure:"consumer_name"`
	Retry        RetryConfig `mapstructure:"retry"`
}

// RetryConfig controls redelivery of failed messages.
type RetryConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
}

// ServicesConfig holds settings for calls to other services.
type ServicesConfig struct {
	GameURL           string        `mapstructure:"game_url"`
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	BurstLimit        int           `mapstructure:"burst_limit"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// RequestsConfig holds game-request lifecycle settings. A zero TTL keeps
// pending requests forever.
type RequestsConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// GamesConfig holds game-session settings. AnnounceInterval is how often
// finished games whose outcome was never published are announced again; zero
// disables the sweep.
type GamesConfig struct {
	AnnounceInterval time.Duration `mapstructure:"announce_interval"`
}

// RealtimeConfig holds fan-out settings.
type RealtimeConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
	DriverKafka  = "kafka"
	DriverRedis  = "redis"
)

// Load loads the configuration from an optional file and environment variables.
// configFile overrides the default ./configs/config.yaml lookup.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("SERVER.PLAYER_PORT", "4001")
	v.SetDefault("SERVER.GAME_PORT", "4002")
	v.SetDefault("SERVER.REQUEST_PORT", "4003")
	v.SetDefault("SERVER.REALTIME_PORT", "4000")
	v.SetDefault("SERVER.RATE_LIMIT.REQUESTS_PER_SECOND", 20)
	v.SetDefault("SERVER.RATE_LIMIT.BURST", 40)
	v.SetDefault("DATABASE.DRIVER", DriverMongo)
	v.SetDefault("DATABASE.URI", "mongodb://localhost:27017")
	v.SetDefault("DATABASE.NAME", "tic-tac-toe")
	v.SetDefault("DATABASE.PLAYERS_COLLECTION", "players")
	v.SetDefault("DATABASE.GAMES_COLLECTION", "games")
	v.SetDefault("DATABASE.REQUESTS_COLLECTION", "gamerequests")
	v.SetDefault("BUS.DRIVER", DriverKafka)
	v.SetDefault("BUS.BROKERS", []string{"localhost:9092"})
	v.SetDefault("BUS.CLIENT_ID", "tic-tac-toe")
	v.SetDefault("BUS.REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("BUS.CONSUMER_NAME", "")
	v.SetDefault("BUS.RETRY.INITIAL_INTERVAL", "200ms")
	v.SetDefault("BUS.RETRY.MAX_INTERVAL", "30s")
	v.SetDefault("BUS.RETRY.MAX_ATTEMPTS", 0)
	v.SetDefault("SERVICES.GAME_URL", "http://localhost:4002")
	v.SetDefault("SERVICES.REQUESTS_PER_SECOND", 50)
	v.SetDefault("SERVICES.BURST_LIMIT", 100)
	v.SetDefault("SERVICES.TIMEOUT", "10s")
	v.SetDefault("REQUESTS.TTL", "0s")
	v.SetDefault("REQUESTS.SWEEP_INTERVAL", "1m")
	v.SetDefault("GAMES.ANNOUNCE_INTERVAL", "30s")
	v.SetDefault("REALTIME.BUFFER_SIZE", 16)
	v.SetDefault("LOG.LEVEL", "info")
	v.SetDefault("LOG.FORMAT", "json")

	// Load from config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Load from environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// Validate checks driver settings. Process-local drivers only make sense
// when every service runs in the same process.
func (c *Config) Validate(allInOne bool) error {
	switch c.Database.Driver {
	case DriverMongo:
	case DriverMemory:
		if !allInOne {
			return errors.New("database driver memory requires --service=all")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Bus.Driver {
	case DriverKafka:
		if len(c.Bus.Brokers) == 0 {
			return errors.New("bus driver kafka requires at least one broker")
		}
	case DriverRedis:
		if c.Bus.RedisURL == "" {
			return errors.New("bus driver redis requires redis_url")
		}
	case DriverMemory:
		if !allInOne {
			return errors.New("bus driver memory requires --service=all")
		}
	default:
		return fmt.Errorf("unknown bus driver %q", c.Bus.Driver)
	}

	if c.Requests.TTL < 0 {
		return errors.New("requests ttl must not be negative")
	}
	if c.Requests.TTL > 0 && c.Requests.SweepInterval <= 0 {
		return errors.New("requests sweep_interval must be positive when ttl is set")
	}
	if c.Games.AnnounceInterval < 0 {
		return errors.New("games announce_interval must not be negative")
	}
	return nil
}
