package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups the process settings, read through Viper from env vars and
// optionally from a .env / config.env file. Env vars win.
type Config struct {
	App        AppConfig
	Market     MarketConfig
	HTTP       HTTPConfig
	GRPC       GRPCConfig
	MySQL      MySQLConfig
	Redis      RedisConfig
	Orders     OrdersConfig
	Simulation SimulationConfig
}

type AppConfig struct {
	Env      string // development, production
	Name     string
	LogLevel string
}

type MarketConfig struct {
	QueueSizePerProducer int
	CartIDSpace          uint32
}

type HTTPConfig struct {
	Host string
	Port int
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type GRPCConfig struct {
	Host string
	Port int
}

func (c GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MySQLConfig configures the placed-order store. Empty DSN disables it.
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the event counters. Empty Addr disables them.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	PoolSize int
	Buffer   int
}

type OrdersConfig struct {
	Workers   int
	QueueSize int
}

type SimulationConfig struct {
	ScenarioFile string
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional

	// merged so keys only set in .env survive
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.MergeInConfig() // optional

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			Name:     v.GetString("APP_NAME"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Market: MarketConfig{
			QueueSizePerProducer: v.GetInt("MARKET_QUEUE_SIZE_PER_PRODUCER"),
			CartIDSpace:          v.GetUint32("MARKET_CART_ID_SPACE"),
		},
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		GRPC: GRPCConfig{
			Host: v.GetString("GRPC_HOST"),
			Port: v.GetInt("GRPC_PORT"),
		},
		MySQL: MySQLConfig{
			DSN:             v.GetString("MYSQL_DSN"),
			MaxOpenConns:    v.GetInt("MYSQL_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("MYSQL_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("MYSQL_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Prefix:   v.GetString("REDIS_PREFIX"),
			PoolSize: v.GetInt("REDIS_POOL_SIZE"),
			Buffer:   v.GetInt("REDIS_EVENT_BUFFER"),
		},
		Orders: OrdersConfig{
			Workers:   v.GetInt("ORDER_WORKERS"),
			QueueSize: v.GetInt("ORDER_QUEUE_SIZE"),
		},
		Simulation: SimulationConfig{
			ScenarioFile: v.GetString("SCENARIO_FILE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "marketplace")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("MARKET_QUEUE_SIZE_PER_PRODUCER", 3)
	v.SetDefault("MARKET_CART_ID_SPACE", 10000)

	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("GRPC_HOST", "0.0.0.0")
	v.SetDefault("GRPC_PORT", 50051)

	v.SetDefault("MYSQL_DSN", "")
	v.SetDefault("MYSQL_MAX_OPEN_CONNS", 50)
	v.SetDefault("MYSQL_MAX_IDLE_CONNS", 25)
	v.SetDefault("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "marketplace:events")
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_EVENT_BUFFER", 1024)

	v.SetDefault("ORDER_WORKERS", 4)
	v.SetDefault("ORDER_QUEUE_SIZE", 1000)

	v.SetDefault("SCENARIO_FILE", "configs/scenario.example.yaml")
}

func (c *Config) Validate() error {
	if c.Market.QueueSizePerProducer <= 0 {
		return fmt.Errorf("MARKET_QUEUE_SIZE_PER_PRODUCER must be > 0, got %d", c.Market.QueueSizePerProducer)
	}
	if c.Market.CartIDSpace == 0 {
		return fmt.Errorf("MARKET_CART_ID_SPACE must be > 0")
	}
	if c.Orders.Workers <= 0 || c.Orders.QueueSize <= 0 {
		return fmt.Errorf("ORDER_WORKERS and ORDER_QUEUE_SIZE must be > 0")
	}
	return nil
}
