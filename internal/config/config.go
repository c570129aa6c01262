// Package config provides configuration management for the gwguard
// service. Configuration is loaded from YAML files with environment
// variable substitution and can be hot-reloaded through the Watcher.
package config

import "time"

// Config holds all configuration settings for the service.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	Admission AdmissionConfig `json:"admission" yaml:"admission"`
}

// ServerConfig holds settings for the main HTTP listener.
type ServerConfig struct {
	Host               string   `json:"host" yaml:"host"`
	Port               int      `json:"port" yaml:"port"`
	ReadTimeout        Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout       Duration `json:"writeTimeout" yaml:"writeTimeout"`
	IdleTimeout        Duration `json:"idleTimeout" yaml:"idleTimeout"`
	ShutdownTimeout    Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
	MaxRequestBodySize int64    `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
	TrustedProxies     []string `json:"trustedProxies" yaml:"trustedProxies"`
}

// MetricsConfig holds settings for the metrics/health listener.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`
	SampleRate  float64 `json:"sampleRate" yaml:"sampleRate"`
	ServiceName string  `json:"serviceName" yaml:"serviceName"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	Output string `json:"output" yaml:"output"`
}

// RedisConfig holds connection settings for the admission store backend.
type RedisConfig struct {
	Address      string `json:"address" yaml:"address"`
	Password     string `json:"password" yaml:"password"`
	DB           int    `json:"db" yaml:"db"`
	PoolSize     int    `json:"poolSize" yaml:"poolSize"`
	MinIdleConns int    `json:"minIdleConns" yaml:"minIdleConns"`
	// MaxRetries is passed through to the driver; -1 disables
	// driver-side command retries so failures surface immediately.
	MaxRetries   int      `json:"maxRetries" yaml:"maxRetries"`
	DialTimeout  Duration `json:"dialTimeout" yaml:"dialTimeout"`
	ReadTimeout  Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout Duration `json:"writeTimeout" yaml:"writeTimeout"`
}

// AdmissionConfig holds settings for the admission list and the
// request gate built on top of it.
type AdmissionConfig struct {
	Table string     `json:"table" yaml:"table"`
	Gate  GateConfig `json:"gate" yaml:"gate"`
}

// GateConfig holds the runtime-adjustable admission gate settings.
type GateConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	SkipPaths []string `json:"skipPaths" yaml:"skipPaths"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "",
			Port:               8080,
			ReadTimeout:        Duration(30 * time.Second),
			WriteTimeout:       Duration(30 * time.Second),
			IdleTimeout:        Duration(120 * time.Second),
			ShutdownTimeout:    Duration(30 * time.Second),
			MaxRequestBodySize: 1 << 20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			SampleRate:  1.0,
			ServiceName: "gwguard",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Redis: RedisConfig{
			Address:      "localhost:6379",
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   -1,
			DialTimeout:  Duration(5 * time.Second),
			ReadTimeout:  Duration(3 * time.Second),
			WriteTimeout: Duration(3 * time.Second),
		},
		Admission: AdmissionConfig{
			Table: "status_list",
			Gate: GateConfig{
				Enabled:   true,
				SkipPaths: []string{"/live"},
			},
		},
	}
}

// applyDefaults fills zero-valued fields with defaults after loading.
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = def.Server.IdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Server.MaxRequestBodySize == 0 {
		c.Server.MaxRequestBodySize = def.Server.MaxRequestBodySize
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = def.Metrics.Port
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = def.Metrics.Path
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = def.Tracing.ServiceName
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Logging.Output == "" {
		c.Logging.Output = def.Logging.Output
	}
	if c.Redis.Address == "" {
		c.Redis.Address = def.Redis.Address
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = def.Redis.PoolSize
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = def.Redis.MinIdleConns
	}
	if c.Redis.MaxRetries == 0 {
		c.Redis.MaxRetries = def.Redis.MaxRetries
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = def.Redis.DialTimeout
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = def.Redis.ReadTimeout
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = def.Redis.WriteTimeout
	}
	if c.Admission.Table == "" {
		c.Admission.Table = def.Admission.Table
	}
}
