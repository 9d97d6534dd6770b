package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hstrader/internal/session"
)

const defaultConfigPath = "config.yml"

var envConfigPaths = map[string]string{
	EnvironmentProduction: "config.production.yml",
	EnvironmentStaging:    "config.staging.yml",
}

type Config struct {
	Client    ClientConfig    `yaml:"client"`
	Server    ServerConfig    `yaml:"server"`
	Stream    StreamConfig    `yaml:"stream"`
	REST      RESTConfig      `yaml:"rest"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

type ClientConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ServerConfig struct {
	URL          string        `yaml:"url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Timeout      time.Duration `yaml:"timeout"`
	Strategy     string        `yaml:"strategy"`
}

type StreamConfig struct {
	PingInterval     time.Duration `yaml:"ping_interval"`
	FrameBuffer      int           `yaml:"frame_buffer"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	ReadBufferBytes  int           `yaml:"read_buffer_bytes"`
}

type RESTConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	Disabled       bool             `yaml:"disabled"`
	ReportInterval time.Duration    `yaml:"report_interval"`
	CloudWatch     CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region"`
	Namespace       string `yaml:"namespace"`
	Dashboard       string `yaml:"dashboard"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// DashboardConfig controls the local JSON monitor served while streaming.
type DashboardConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Address         string        `yaml:"address"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LogHistory      int           `yaml:"log_history"`
	MetricsHistory  int           `yaml:"metrics_history"`
}

// Default returns a configuration with every optional value filled in.
func Default() Config {
	return Config{
		Client: ClientConfig{Name: "hstrader", Version: "1.0.0"},
		Server: ServerConfig{
			Timeout:  5 * time.Second,
			Strategy: session.StrategyAuto.String(),
		},
		Stream: StreamConfig{
			PingInterval:     20 * time.Second,
			FrameBuffer:      256,
			HandshakeTimeout: 10 * time.Second,
			ReadBufferBytes:  4096,
		},
		REST: RESTConfig{
			RequestsPerSecond: 5,
			BurstSize:         1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			CloudWatch: CloudWatchConfig{Namespace: "HSTrader", Dashboard: "HSTrader"},
		},
		Dashboard: DashboardConfig{
			Address:         "127.0.0.1:8090",
			RefreshInterval: 5 * time.Second,
			LogHistory:      200,
			MetricsHistory:  200,
		},
	}
}

// LoadConfig reads a YAML file on top of Default, applies environment
// overrides and validates the result. An empty path selects config.yml or
// its APP_ENV specific variant.
func LoadConfig(path string) (*Config, error) {
	path = configPathFor(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// FromEnv builds a configuration from Default and environment variables only.
func FromEnv() (*Config, error) {
	config := Default()
	applyEnvOverrides(&config)
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("HSTRADER_URL"); v != "" {
		config.Server.URL = strings.TrimSpace(v)
	}
	if v := os.Getenv("HSTRADER_CLIENT_ID"); v != "" {
		config.Server.ClientID = strings.TrimSpace(v)
	}
	if v := os.Getenv("HSTRADER_CLIENT_SECRET"); v != "" {
		config.Server.ClientSecret = strings.TrimSpace(v)
	}
	if v := os.Getenv("HSTRADER_STRATEGY"); v != "" {
		config.Server.Strategy = strings.TrimSpace(v)
	}
	if v := os.Getenv("HSTRADER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Server.Timeout = d
		} else if secs, err := strconv.Atoi(v); err == nil {
			config.Server.Timeout = time.Duration(secs) * time.Second
		}
	}

	if config.Metrics.CloudWatch.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Metrics.CloudWatch.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Metrics.CloudWatch.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Metrics.CloudWatch.Region = strings.TrimSpace(v)
		}
	}

	if v := os.Getenv("HSTRADER_DASHBOARD_ADDR"); v != "" {
		config.Dashboard.Enabled = true
		config.Dashboard.Address = strings.TrimSpace(v)
	}

	config.Server.URL = normalizeHost(config.Server.URL)
}

// normalizeHost strips a scheme and trailing slash; the client adds https://
// and wss:// itself.
func normalizeHost(url string) string {
	url = strings.TrimSpace(url)
	for _, scheme := range []string{"https://", "http://", "wss://", "ws://"} {
		url = strings.TrimPrefix(url, scheme)
	}
	return strings.TrimRight(url, "/")
}

func validateConfig(cfg *Config) error {
	if cfg.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	if cfg.Server.ClientID == "" || cfg.Server.ClientSecret == "" {
		return fmt.Errorf("server.client_id and server.client_secret are required")
	}
	if cfg.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if _, err := session.ParseStrategy(cfg.Server.Strategy); err != nil {
		return fmt.Errorf("server.strategy: %w", err)
	}
	if cfg.Stream.FrameBuffer < 0 {
		return fmt.Errorf("stream.frame_buffer must not be negative")
	}
	if cfg.Stream.PingInterval < 0 {
		return fmt.Errorf("stream.ping_interval must not be negative")
	}
	if env := AppEnvironment(); cfg.Stream.PingInterval == 0 && IsProductionLike(env) {
		return fmt.Errorf("stream.ping_interval is required in %s", env)
	}
	if cfg.REST.RequestsPerSecond < 0 || cfg.REST.BurstSize < 0 {
		return fmt.Errorf("rest.requests_per_second and rest.burst_size must not be negative")
	}
	if cfg.Dashboard.Enabled && (cfg.Dashboard.LogHistory < 0 || cfg.Dashboard.MetricsHistory < 0) {
		return fmt.Errorf("dashboard.log_history and dashboard.metrics_history must not be negative")
	}
	if cfg.Metrics.CloudWatch.Enabled {
		if cfg.Metrics.CloudWatch.Namespace == "" {
			return fmt.Errorf("metrics.cloudwatch.namespace is required when CloudWatch is enabled")
		}
		if (cfg.Metrics.CloudWatch.AccessKeyID == "") != (cfg.Metrics.CloudWatch.SecretAccessKey == "") {
			return fmt.Errorf("metrics.cloudwatch.access_key_id and metrics.cloudwatch.secret_access_key must be set together")
		}
	}
	return nil
}

// StrategyValue returns the parsed transport strategy.
func (c *Config) StrategyValue() session.Strategy {
	s, err := session.ParseStrategy(c.Server.Strategy)
	if err != nil {
		return session.StrategyAuto
	}
	return s
}
