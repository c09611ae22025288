package main

import (
	"fmt"
	"strings"
	"time"
)

type Settings struct {
	Port           int    `env:"PORT,default=8000"`
	BasePath       string `env:"BASE_PATH"`
	JWTSecret      string `env:"JWT_SECRET,required=true"`
	JWTAudience    string `env:"JWT_AUDIENCE"`
	APIKeys        string `env:"API_KEYS"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
	LogEncoding    string `env:"LOG_ENCODING,default=json"`
	LogLevel       string `env:"LOG_LEVEL,default=debug"`

	StoreDriver     string `env:"STORE_DRIVER,default=memory"`
	DatabaseURL     string `env:"DATABASE_URL"`
	MongoDBURI      string `env:"MONGODB_URI"`
	MongoDBDatabase string `env:"MONGODB_DATABASE,default=carwash"`
	SeedFile        string `env:"SEED_FILE"`

	StaleAfter      string `env:"STALE_AFTER,default=5m"`
	CleanupInterval string `env:"CLEANUP_INTERVAL,default=60s"`
	PingInterval    string `env:"PING_INTERVAL,default=30s"`
}

type Intervals struct {
	StaleAfter      time.Duration
	CleanupInterval time.Duration
	PingInterval    time.Duration
}

func (s Settings) Intervals() (Intervals, error) {
	var intervals Intervals

	fields := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"STALE_AFTER", s.StaleAfter, &intervals.StaleAfter},
		{"CLEANUP_INTERVAL", s.CleanupInterval, &intervals.CleanupInterval},
		{"PING_INTERVAL", s.PingInterval, &intervals.PingInterval},
	}

	for _, field := range fields {
		d, err := time.ParseDuration(field.value)
		if err != nil {
			return Intervals{}, fmt.Errorf("%s: %w", field.name, err)
		}
		if d <= 0 {
			return Intervals{}, fmt.Errorf("%s must be positive", field.name)
		}

		*field.dst = d
	}

	return intervals, nil
}

func (s Settings) APIKeyList() []string {
	return splitList(s.APIKeys)
}

func (s Settings) AllowedOriginList() []string {
	return splitList(s.AllowedOrigins)
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}

	return items
}
