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

	DRM struct {
		SigningSecret         string        `yaml:"signing_secret"`
		PlaybackBaseURL       string        `yaml:"playback_base_url"`
		TokenTTL              time.Duration `yaml:"token_ttl"`
		SignedURLTTL          time.Duration `yaml:"signed_url_ttl"`
		IdleTimeout           time.Duration `yaml:"idle_timeout"`
		SweepInterval         time.Duration `yaml:"sweep_interval"`
		ReservationGrace      time.Duration `yaml:"reservation_grace"`
		MaxConcurrentStreams  int           `yaml:"max_concurrent_streams"`
		EnableGeoblocking     bool          `yaml:"enable_geoblocking"`
		GeoFailClosed         bool          `yaml:"geo_fail_closed"`
		EnableDeviceBinding   bool          `yaml:"enable_device_binding"`
		DeviceBindingCap      int           `yaml:"device_binding_cap"`
		DefaultAllowedRegions []string      `yaml:"default_allowed_regions"`
	} `yaml:"drm"`

	Geolocation struct {
		Endpoint string        `yaml:"endpoint"`
		Timeout  time.Duration `yaml:"timeout"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"geolocation"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Tracing struct {
		Enabled    bool    `yaml:"enabled"`
		JaegerURL  string  `yaml:"jaeger_url"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
// A missing signing secret is a fatal configuration error: no correct
// admission decision is possible without it.
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

	if c.DRM.SigningSecret == "" {
		return fmt.Errorf("drm.signing_secret must not be empty")
	}
	if c.DRM.PlaybackBaseURL == "" {
		return fmt.Errorf("drm.playback_base_url must not be empty")
	}
	if c.DRM.TokenTTL <= 0 {
		return fmt.Errorf("drm.token_ttl must be > 0")
	}
	if c.DRM.SignedURLTTL <= 0 {
		return fmt.Errorf("drm.signed_url_ttl must be > 0")
	}
	if c.DRM.IdleTimeout <= 0 {
		return fmt.Errorf("drm.idle_timeout must be > 0")
	}
	if c.DRM.SweepInterval <= 0 {
		return fmt.Errorf("drm.sweep_interval must be > 0")
	}
	if c.DRM.SweepInterval >= c.DRM.IdleTimeout {
		return fmt.Errorf("drm.sweep_interval must be < drm.idle_timeout")
	}
	if c.DRM.ReservationGrace <= 0 {
		return fmt.Errorf("drm.reservation_grace must be > 0")
	}
	if c.DRM.MaxConcurrentStreams <= 0 {
		return fmt.Errorf("drm.max_concurrent_streams must be > 0")
	}
	if c.DRM.EnableDeviceBinding && c.DRM.DeviceBindingCap <= 0 {
		return fmt.Errorf("drm.device_binding_cap must be > 0 when device binding is enabled")
	}

	if c.DRM.EnableGeoblocking {
		if c.Geolocation.Endpoint == "" {
			return fmt.Errorf("geolocation.endpoint must not be empty when geoblocking is enabled")
		}
		if c.Geolocation.Timeout <= 0 {
			return fmt.Errorf("geolocation.timeout must be > 0 when geoblocking is enabled")
		}
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort <= 0 {
		return fmt.Errorf("monitoring.prometheus_port must be > 0 when prometheus_enabled=true")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
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

// DefaultConfig returns configuration with sane defaults. The signing
// secret has no default; it must come from the file or environment.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.DRM.PlaybackBaseURL = "https://cdn.streamgate.local"
	cfg.DRM.TokenTTL = 4 * time.Hour
	cfg.DRM.SignedURLTTL = 15 * time.Minute
	cfg.DRM.IdleTimeout = 2 * time.Minute
	cfg.DRM.SweepInterval = 10 * time.Second
	cfg.DRM.ReservationGrace = 5 * time.Second
	cfg.DRM.MaxConcurrentStreams = 1
	cfg.DRM.EnableGeoblocking = false
	cfg.DRM.GeoFailClosed = false
	cfg.DRM.EnableDeviceBinding = false
	cfg.DRM.DeviceBindingCap = 5
	cfg.DRM.DefaultAllowedRegions = nil

	cfg.Geolocation.Endpoint = "http://ip-api.com/json"
	cfg.Geolocation.Timeout = 2 * time.Second
	cfg.Geolocation.CacheTTL = 10 * time.Minute

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.PrometheusPort = 9090

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("STREAMGATE_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("STREAMGATE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("STREAMGATE_SIGNING_SECRET"); secret != "" {
		c.DRM.SigningSecret = secret
	}
	if addr := os.Getenv("STREAMGATE_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
}
