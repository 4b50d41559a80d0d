// Package config содержит логику чтения конфигурации движка начисления баллов.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации движка начисления баллов.
type Config struct {
	RunAddress       string `env:"RUN_ADDRESS"`
	DatabaseURI      string `env:"DATABASE_URI"`
	AuthSecret       string `env:"AUTH_SECRET"`
	CatalogPath      string `env:"CATALOG_PATH"`
	AnalyticsAddress string `env:"ANALYTICS_ADDRESS"`
	EventsRedisAddr  string `env:"EVENTS_REDIS_ADDR"`
	EventsChannel    string `env:"EVENTS_CHANNEL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret
	envCatalogPath := cfg.CatalogPath
	envAnalyticsAddress := cfg.AnalyticsAddress
	envEventsRedisAddr := cfg.EventsRedisAddr
	envEventsChannel := cfg.EventsChannel

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for caller tokens")
	flag.StringVar(&cfg.CatalogPath, "c", "", "path to YAML file with actions, levels and badges")
	flag.StringVar(&cfg.AnalyticsAddress, "r", "", "analytics collector address")
	flag.StringVar(&cfg.EventsRedisAddr, "e", "", "redis address for event publication")
	flag.StringVar(&cfg.EventsChannel, "ch", "gamification.events", "redis channel for events")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envCatalogPath != "" {
		cfg.CatalogPath = envCatalogPath
	}
	if envAnalyticsAddress != "" {
		cfg.AnalyticsAddress = envAnalyticsAddress
	}
	if envEventsRedisAddr != "" {
		cfg.EventsRedisAddr = envEventsRedisAddr
	}
	if envEventsChannel != "" {
		cfg.EventsChannel = envEventsChannel
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.EventsChannel == "" {
		cfg.EventsChannel = "gamification.events"
	}

	return cfg, nil
}
