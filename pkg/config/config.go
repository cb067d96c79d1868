package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Broadcaster struct {
		Address           string        `yaml:"address"`
		PingInterval      time.Duration `yaml:"ping_interval"`
		PongTimeout       time.Duration `yaml:"pong_timeout"`
		WriteTimeout      time.Duration `yaml:"write_timeout"`
		MessagesPerSecond float64       `yaml:"messages_per_second"`
		Burst             int           `yaml:"burst"`
	} `yaml:"broadcaster"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Messaging struct {
		GrantTTL       time.Duration `yaml:"grant_ttl"`
		PublishTimeout time.Duration `yaml:"publish_timeout"`
		GrantTimeout   time.Duration `yaml:"grant_timeout"`
	} `yaml:"messaging"`

	Queue struct {
		// Service selects the work-queue backend: "rabbitmq", "sqs" or ""
		// (disabled).
		Service  string `yaml:"service"`
		RabbitMQ struct {
			URL string `yaml:"url"`
		} `yaml:"rabbitmq"`
		SQS struct {
			Region string `yaml:"region"`
		} `yaml:"sqs"`
	} `yaml:"queue"`

	Reconciler struct {
		FetchTimeout  time.Duration `yaml:"fetch_timeout"`
		FlushInterval time.Duration `yaml:"flush_interval"`
		Groupings     struct {
			Channel    int `yaml:"channel"`
			Group      int `yaml:"group"`
			MultiParty int `yaml:"multi_party"`
			Direct     int `yaml:"direct"`
		} `yaml:"groupings"`
	} `yaml:"reconciler"`

	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limiting"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Broadcaster.Address == "" {
		return fmt.Errorf("broadcaster.address must not be empty")
	}
	if c.Broadcaster.PingInterval <= 0 {
		return fmt.Errorf("broadcaster.ping_interval must be > 0")
	}
	if c.Broadcaster.PongTimeout <= 0 {
		return fmt.Errorf("broadcaster.pong_timeout must be > 0")
	}

	if c.Redis.Address == "" {
		return fmt.Errorf("redis.address must not be empty")
	}
	if c.Redis.PoolSize <= 0 {
		return fmt.Errorf("redis.pool_size must be > 0")
	}

	if c.Messaging.GrantTTL <= 0 {
		return fmt.Errorf("messaging.grant_ttl must be > 0")
	}
	if c.Messaging.PublishTimeout <= 0 {
		return fmt.Errorf("messaging.publish_timeout must be > 0")
	}
	if c.Messaging.GrantTimeout <= 0 {
		return fmt.Errorf("messaging.grant_timeout must be > 0")
	}

	switch c.Queue.Service {
	case "", "rabbitmq", "sqs":
	default:
		return fmt.Errorf("queue.service must be one of rabbitmq, sqs or empty")
	}
	if c.Queue.Service == "rabbitmq" && c.Queue.RabbitMQ.URL == "" {
		return fmt.Errorf("queue.rabbitmq.url must not be empty when queue.service=rabbitmq")
	}
	if c.Queue.Service == "sqs" && c.Queue.SQS.Region == "" {
		return fmt.Errorf("queue.sqs.region must not be empty when queue.service=sqs")
	}

	if c.Reconciler.FetchTimeout <= 0 {
		return fmt.Errorf("reconciler.fetch_timeout must be > 0")
	}
	if c.Reconciler.FlushInterval <= 0 {
		return fmt.Errorf("reconciler.flush_interval must be > 0")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0")
	}

	if c.RateLimiting.Enabled && c.RateLimiting.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when enabled")
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort <= 0 {
		return fmt.Errorf("monitoring.prometheus_port must be > 0 when prometheus_enabled=true")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	return nil
}

// Load reads configuration from a YAML file, applies defaults and env
// overrides.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Broadcaster.Address = ":8081"
	cfg.Broadcaster.PingInterval = 30 * time.Second
	cfg.Broadcaster.PongTimeout = 60 * time.Second
	cfg.Broadcaster.WriteTimeout = 10 * time.Second
	cfg.Broadcaster.MessagesPerSecond = 100
	cfg.Broadcaster.Burst = 200

	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Messaging.GrantTTL = 24 * time.Hour
	cfg.Messaging.PublishTimeout = 5 * time.Second
	cfg.Messaging.GrantTimeout = 5 * time.Second

	cfg.Queue.Service = ""
	cfg.Queue.SQS.Region = "us-east-1"

	cfg.Reconciler.FetchTimeout = 30 * time.Second
	cfg.Reconciler.FlushInterval = 4 * time.Second
	cfg.Reconciler.Groupings.Channel = 10
	cfg.Reconciler.Groupings.Group = 5
	cfg.Reconciler.Groupings.MultiParty = 1
	cfg.Reconciler.Groupings.Direct = 0

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.TokenTTL = 24 * time.Hour

	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.PrometheusPort = 9090

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("TEAMSTREAM_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if addr := os.Getenv("TEAMSTREAM_BROADCASTER_ADDRESS"); addr != "" {
		c.Broadcaster.Address = addr
	}
	if addr := os.Getenv("TEAMSTREAM_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
	if level := os.Getenv("TEAMSTREAM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("TEAMSTREAM_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if url := os.Getenv("TEAMSTREAM_RABBITMQ_URL"); url != "" {
		c.Queue.RabbitMQ.URL = url
	}
}
