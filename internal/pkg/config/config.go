package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Valkey      ValkeyConfig      `mapstructure:"valkey"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Log         LogConfig         `mapstructure:"log"`
	Remote      RemoteConfig      `mapstructure:"remote"`
	Screen      ScreenConfig      `mapstructure:"screen"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RemoteConfig points the screen client at a mark service.
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScreenConfig describes the display the viewport is fitted to.
type ScreenConfig struct {
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
}

// GeolocationConfig selects and configures the location provider.
type GeolocationConfig struct {
	Provider   string  `mapstructure:"provider"` // static | geoip
	Latitude   float64 `mapstructure:"latitude"`
	Longitude  float64 `mapstructure:"longitude"`
	Permission bool    `mapstructure:"permission"`
	Emulator   bool    `mapstructure:"emulator"`
	GeoIPDB    string  `mapstructure:"geoip_db"`
	IP         string  `mapstructure:"ip"`
}

const (
	ProviderStatic = "static"
	ProviderGeoIP  = "geoip"
)

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PINMAP_REMOTE_BASE_URL → remote.base_url
	v.SetEnvPrefix("PINMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:19006")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pinmap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "pinmap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("remote.base_url", "http://localhost:8080")
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("screen.width", 1080)
	v.SetDefault("screen.height", 1920)
	v.SetDefault("geolocation.provider", ProviderStatic)
	v.SetDefault("geolocation.latitude", 37.78825)
	v.SetDefault("geolocation.longitude", -122.4324)
	v.SetDefault("geolocation.permission", true)
	v.SetDefault("geolocation.emulator", false)
	v.SetDefault("geolocation.geoip_db", "GeoLite2-City.mmdb")
	v.SetDefault("geolocation.ip", "")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Remote.BaseURL == "" {
		errs = append(errs, "remote.base_url is required")
	}
	if c.Remote.Timeout <= 0 {
		errs = append(errs, "remote.timeout must be positive")
	}
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		errs = append(errs, fmt.Sprintf("screen dimensions must be positive, got %gx%g", c.Screen.Width, c.Screen.Height))
	}
	switch c.Geolocation.Provider {
	case ProviderStatic:
		if c.Geolocation.Latitude < -90 || c.Geolocation.Latitude > 90 {
			errs = append(errs, "geolocation.latitude must be within [-90, 90]")
		}
		if c.Geolocation.Longitude < -180 || c.Geolocation.Longitude > 180 {
			errs = append(errs, "geolocation.longitude must be within [-180, 180]")
		}
	case ProviderGeoIP:
		if c.Geolocation.GeoIPDB == "" {
			errs = append(errs, "geolocation.geoip_db is required for the geoip provider")
		}
		if c.Geolocation.IP == "" {
			errs = append(errs, "geolocation.ip is required for the geoip provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("geolocation.provider must be %q or %q, got %q",
			ProviderStatic, ProviderGeoIP, c.Geolocation.Provider))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
