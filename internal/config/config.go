package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/syonosuke743/portfolio/internal/logging"
)

type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DBMaxConns   int32  `mapstructure:"DB_MAX_CONNS"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`

	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTAccessTTL  time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL time.Duration `mapstructure:"JWT_REFRESH_TTL"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`

	GoogleMapsAPIKey     string        `mapstructure:"GOOGLE_MAPS_API_KEY"`
	MapsBaseURL          string        `mapstructure:"MAPS_BASE_URL"`
	MapsTimeout          time.Duration `mapstructure:"MAPS_TIMEOUT"`
	MapsRateLimit        float64       `mapstructure:"MAPS_RATE_LIMIT"` // requests per second
	MapsRateBurst        int           `mapstructure:"MAPS_RATE_BURST"`
	RouteCacheTTL        time.Duration `mapstructure:"ROUTE_CACHE_TTL"`
	RecentPlacesCapacity int           `mapstructure:"RECENT_PLACES_CAPACITY"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"SERVER_PORT":            "3001",
	"DATABASE_URL":           "",
	"DB_MAX_CONNS":           10,
	"CLIENT_ORIGIN":          "http://localhost:3000",
	"JWT_SECRET":             "",
	"JWT_ACCESS_TTL":         "168h",
	"JWT_REFRESH_TTL":        "1440h",
	"GOOGLE_CLIENT_ID":       "",
	"GOOGLE_CLIENT_SECRET":   "",
	"GOOGLE_REDIRECT_URL":    "postmessage",
	"GOOGLE_MAPS_API_KEY":    "",
	"MAPS_BASE_URL":          "https://maps.googleapis.com/maps/api",
	"MAPS_TIMEOUT":           "10s",
	"MAPS_RATE_LIMIT":        10.0,
	"MAPS_RATE_BURST":        5,
	"ROUTE_CACHE_TTL":        "10m",
	"RECENT_PLACES_CAPACITY": 20,
	"LOG_LEVEL":              "info",
	"LOG_FORMAT":             "json",
}

// LoadConfig reads path/.env (optional) and the environment. Environment
// variables win over the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
		logging.Debug().Str("path", path).Msg("no .env file found, using environment only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.RecentPlacesCapacity <= 0 {
		return fmt.Errorf("config: RECENT_PLACES_CAPACITY must be positive, got %d", c.RecentPlacesCapacity)
	}
	if c.GoogleClientID != "" && c.GoogleClientSecret == "" {
		return errors.New("config: GOOGLE_CLIENT_SECRET is required when GOOGLE_CLIENT_ID is set")
	}
	if c.GoogleClientID == "" {
		logging.Warn().Msg("GOOGLE_CLIENT_ID is not set; Google sign-in is disabled")
	}
	if c.GoogleMapsAPIKey == "" {
		logging.Warn().Msg("GOOGLE_MAPS_API_KEY is not set; place search and routing will fail")
	}
	return nil
}
