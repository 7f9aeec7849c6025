package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	App      App      `yaml:"app"`
	HTTP     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Ingest   Ingest   `yaml:"ingest"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"kiosk-ingest"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

// HTTP configures the ops listener. An empty port disables it.
type HTTP struct {
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"9091"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	File  string `yaml:"file" env:"LOG_FILE" env-default:"invalid_messages.log"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"DATABASE_IP" env-default:"localhost"`
	Port     string `yaml:"port" env:"DATABASE_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DATABASE_USERNAME"`
	Password string `yaml:"password" env:"DATABASE_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DATABASE_NAME" env-default:"museum"`
	MaxConns int32  `yaml:"max_conns" env:"DATABASE_MAX_CONNS" env-default:"2"`
}

// Redis is optional; when Addr is empty table locks stay in-process.
type Redis struct {
	Addr    string        `yaml:"addr" env:"REDIS_ADDR"`
	LockTTL time.Duration `yaml:"lock_ttl" env:"REDIS_LOCK_TTL" env-default:"30s"`
}

type Kafka struct {
	Brokers     []string      `yaml:"brokers" env:"BOOTSTRAP_SERVERS" env-default:"localhost:9092"`
	Topic       string        `yaml:"topic" env:"KAFKA_TOPIC" env-default:"lmnh"`
	GroupID     string        `yaml:"group_id" env:"GROUP"`
	Username    string        `yaml:"username" env:"USERNAME"`
	Password    string        `yaml:"password" env:"PASSWORD"`
	SASL        bool          `yaml:"sasl" env:"KAFKA_SASL" env-default:"true"`
	StartOffset string        `yaml:"start_offset" env:"KAFKA_START_OFFSET" env-default:"latest"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"KAFKA_DIAL_TIMEOUT" env-default:"10s"`
}

// Ingest holds the batching and stop thresholds of the consume loop.
type Ingest struct {
	BatchSize     int           `yaml:"batch_size" env:"INGEST_BATCH_SIZE" env-default:"100"`
	MaxMessages   int           `yaml:"max_messages" env:"INGEST_MAX_MESSAGES" env-default:"100000"`
	MaxEmptyPolls int           `yaml:"max_empty_polls" env:"INGEST_MAX_EMPTY_POLLS" env-default:"60"`
	PollTimeout   time.Duration `yaml:"poll_timeout" env:"INGEST_POLL_TIMEOUT" env-default:"1s"`
	WindowOpen    string        `yaml:"window_open" env:"INGEST_WINDOW_OPEN" env-default:"08:45:00"`
	WindowClose   string        `yaml:"window_close" env:"INGEST_WINDOW_CLOSE" env-default:"18:15:00"`
}

func New() (*Config, error) {
	return Load("config.yaml")
}

// Load reads .env into the environment, then the yaml file at path (if any),
// then lets env vars override it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every missing credential and unusable threshold.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Kafka.Brokers) == 0 || c.Kafka.Brokers[0] == "" {
		errs = append(errs, errors.New("kafka brokers are required (BOOTSTRAP_SERVERS)"))
	}
	if c.Kafka.GroupID == "" {
		errs = append(errs, errors.New("kafka group id is required (GROUP)"))
	}
	if c.Kafka.SASL && (c.Kafka.Username == "" || c.Kafka.Password == "") {
		errs = append(errs, errors.New("kafka credentials are required (USERNAME, PASSWORD)"))
	}
	if c.Postgres.User == "" || c.Postgres.Password == "" {
		errs = append(errs, errors.New("database credentials are required (DATABASE_USERNAME, DATABASE_PASSWORD)"))
	}
	if c.Ingest.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("ingest batch size must be positive, got %d", c.Ingest.BatchSize))
	}
	if c.Ingest.MaxMessages < 1 {
		errs = append(errs, fmt.Errorf("ingest max messages must be positive, got %d", c.Ingest.MaxMessages))
	}
	if c.Ingest.MaxEmptyPolls < 1 {
		errs = append(errs, fmt.Errorf("ingest max empty polls must be positive, got %d", c.Ingest.MaxEmptyPolls))
	}
	if c.Ingest.PollTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ingest poll timeout must be positive, got %s", c.Ingest.PollTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// DSN builds the pgx connection string.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, p.Port),
		Path:   "/" + p.DBName,
	}
	return u.String()
}
