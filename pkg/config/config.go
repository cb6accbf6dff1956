package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MustLoad loads the configuration from environment variables and an
// optional .env file, panicking on failure.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load()

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and an optional
// .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load()

	return env.Parse(cfg)
}

// Config holds the configuration for the engine process.
type Config struct {
	Instruments []string `env:"INSTRUMENTS,required" envSeparator:","` // credit ids served by this process

	OrderStreamConfig `envPrefix:"ORDER_STREAM_"`
	EventStreamConfig `envPrefix:"EVENT_STREAM_"`
	RedisConfig       `envPrefix:"REDIS_"`
	PostgresConfig    `envPrefix:"POSTGRES_"`
	EngineConfig      `envPrefix:"ENGINE_"`
}

// OrderStreamConfig holds the configuration for the inbound order topic.
type OrderStreamConfig struct {
	Brokers []string `env:"BROKER,required"`
	Topic   string   `env:"TOPIC" envDefault:"orders"`
	GroupID string   `env:"GROUP_ID" envDefault:"matching-engine"`
}

// EventStreamConfig holds the configuration for the outbound event topic.
type EventStreamConfig struct {
	Brokers []string `env:"BROKER,required"`
	Topic   string   `env:"TOPIC" envDefault:"engine-events"`
}

// RedisConfig holds the configuration for the snapshot store.
type RedisConfig struct {
	Addr           string        `env:"ADDRESS" envDefault:"localhost:6379"`
	Username       string        `env:"USERNAME" envDefault:""`
	Password       string        `env:"PASSWORD" envDefault:""`
	DB             int           `env:"DB" envDefault:"0"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
	KeyPrefix      string        `env:"KEY_PREFIX" envDefault:"carbonpro:book:"`
}

// PostgresConfig holds the configuration for the order/trade repository.
type PostgresConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	Database string `env:"DATABASE" envDefault:"carbonpro"`
	Username string `env:"USERNAME" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:""`
	SSLMode  string `env:"SSL_MODE" envDefault:"prefer"`

	MaxConns        int32         `env:"MAX_CONNS" envDefault:"10"`
	MinConns        int32         `env:"MIN_CONNS" envDefault:"2"`
	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
	ApplicationName string        `env:"APPLICATION_NAME" envDefault:"carbonpro-engine"`
}

// EngineConfig holds tunables for the matching engine itself.
type EngineConfig struct {
	SnapshotInterval    time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"30s"`
	SnapshotOrderDelta  int64         `env:"SNAPSHOT_ORDER_DELTA" envDefault:"100"`
	ExpirySweepInterval time.Duration `env:"EXPIRY_SWEEP_INTERVAL" envDefault:"1s"`
	TradeHistoryDepth   int           `env:"TRADE_HISTORY_DEPTH" envDefault:"1000"`
	AnalyticsWorkers    int           `env:"ANALYTICS_WORKERS" envDefault:"4"`
	AnalyticsTimeout    time.Duration `env:"ANALYTICS_TIMEOUT" envDefault:"30s"`
	StopTimeout         time.Duration `env:"STOP_TIMEOUT" envDefault:"10s"`
}
