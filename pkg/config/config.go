package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"EnsembleView/pkg/logger"
	"EnsembleView/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	SourceWebSocket = "ws"
	SourceKafka     = "kafka"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"500ms"`
		CORS            bool          `yaml:"cors" default:"true"`
		RunRateLimit    struct {
			Capacity float64 `yaml:"capacity" default:"5"`
			Refill   float64 `yaml:"refill_per_sec" default:"1"`
		} `yaml:"run_rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	Log    logger.Config `yaml:"log"`
	Stream struct {
		Source           string        `yaml:"source" default:"ws" validate:"oneof=ws kafka"`
		URL              string        `yaml:"url" default:"ws://localhost:8000/ws/simulate"`
		Tickers          []string      `yaml:"tickers"`
		ReconnectDelay   time.Duration `yaml:"reconnect_delay" default:"1s"`
		PingInterval     time.Duration `yaml:"ping_interval" default:"20s"`
		HandshakeTimeout time.Duration `yaml:"handshake_timeout" default:"10s"`
		BufferSize       int           `yaml:"buffer_size" default:"1024"`
		FramesTopic      string        `yaml:"frames_topic" default:"simulation.frames"`
		ControlTopic     string        `yaml:"control_topic" default:"simulation.control"`
	} `yaml:"stream"`
	Engine struct {
		MaxPoints      int     `yaml:"max_points" validate:"gte=0"`
		MaxLogs        int     `yaml:"max_logs" validate:"gte=0"`
		InitialCapital float64 `yaml:"initial_capital" default:"10000" validate:"gt=0"`
		PaletteSize    int     `yaml:"palette_size" default:"10" validate:"gte=1"`
	} `yaml:"engine"`
	Settings struct {
		URL     string        `yaml:"url" default:"http://localhost:8000"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"settings"`
	Cache struct {
		Type       string        `yaml:"type" default:"memory" validate:"oneof=none memory redis"`
		TTL        time.Duration `yaml:"ttl" default:"30s"`
		MaxEntries int           `yaml:"max_entries" default:"4096"`
		Redis      struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled        bool          `yaml:"enabled"`
		Brokers        []string      `yaml:"brokers"`
		SnapshotTopic  string        `yaml:"snapshot_topic" default:"ensembleview.snapshots"`
		ErrorTopic     string        `yaml:"error_topic"`
		RequiredAcks   int           `yaml:"required_acks" default:"1"`
		Compression    string        `yaml:"compression" default:"snappy"`
		BatchSize      int           `yaml:"batch_size" default:"100"`
		BatchTimeout   time.Duration `yaml:"batch_timeout" default:"50ms"`
		WriteTimeout   time.Duration `yaml:"write_timeout" default:"10s"`
		Async          bool          `yaml:"async"`
		GroupID        string        `yaml:"group_id"`
		StartOffset    string        `yaml:"start_offset" default:"latest" validate:"oneof=earliest latest"`
		DigestInterval time.Duration `yaml:"digest_interval" default:"30s"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"ensembleview"`
		Table        string        `yaml:"table" default:"observations"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		AsyncInsert  bool          `yaml:"async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		MaxOpenConns int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns int           `yaml:"max_idle_conns" default:"5"`
	} `yaml:"clickhouse"`
	Viewer struct {
		Refresh time.Duration `yaml:"refresh" default:"500ms" validate:"gt=0"`
		NoColor bool          `yaml:"no_color"`
	} `yaml:"viewer"`
}

// Load reads and parses a YAML configuration file. Omitted keys take their
// default values.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML document into a validated Config.
func Parse(b []byte) (*Config, error) { return parse(b, nil) }

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(b, os.Getenv)
}

func parse(b []byte, getenv func(string) string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if getenv != nil {
		c.applyEnv(getenv)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("STREAM_URL"); v != "" {
		c.Stream.URL = v
	}
	if v := getenv("STREAM_SOURCE"); v != "" {
		c.Stream.Source = v
	}
	if v := getenv("TICKERS"); v != "" {
		c.Stream.Tickers = util.SplitList(v)
	}
	if v := getenv("SETTINGS_URL"); v != "" {
		c.Settings.URL = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

var validate = validator.New()

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Stream.Source == SourceWebSocket && c.Stream.URL == "" {
		return errors.New("stream.url is required for the ws source")
	}
	needKafka := c.Kafka.Enabled || c.Stream.Source == SourceKafka
	if needKafka && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is used")
	}
	if c.Cache.Type == "redis" && c.Cache.Redis.Addr == "" {
		return errors.New("cache.redis.addr is required for the redis cache")
	}
	return nil
}
