package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// HTTP configuration
	HTTPPort  string
	JWTSecret string
	TokenTTL  time.Duration

	// NATS configuration, empty disables event publishing
	NATSServers []string

	// Redis configuration, empty disables the queue position cache
	RedisAddr        string
	PositionCacheTTL time.Duration

	// Marketplace policy
	SignupBonus            int64
	ReservationTTL         time.Duration
	LotLifetime            time.Duration
	ConfirmationCodeLength int
	SweepInterval          time.Duration

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		HTTPPort:  "8080",
		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  30 * 24 * time.Hour,

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		PositionCacheTTL: 5 * time.Second,

		// Marketplace defaults
		SignupBonus:            100,
		ReservationTTL:         48 * time.Hour,
		LotLifetime:            90 * 24 * time.Hour,
		ConfirmationCodeLength: 8,
		SweepInterval:          time.Minute,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if port := os.Getenv("HTTP_PORT"); port != "" {
		config.HTTPPort = port
	}

	if servers := os.Getenv("NATS_SERVERS"); servers != "" {
		for _, server := range strings.Split(servers, ",") {
			server = strings.TrimSpace(server)
			if server != "" {
				config.NATSServers = append(config.NATSServers, server)
			}
		}
	}

	// Override policy defaults if environment variables are set
	if bonus := os.Getenv("SIGNUP_BONUS"); bonus != "" {
		if parsed, err := strconv.ParseInt(bonus, 10, 64); err == nil {
			config.SignupBonus = parsed
		}
	}
	if ttl := os.Getenv("RESERVATION_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			config.ReservationTTL = parsed
		}
	}
	if lifetime := os.Getenv("LOT_LIFETIME"); lifetime != "" {
		if parsed, err := time.ParseDuration(lifetime); err == nil {
			config.LotLifetime = parsed
		}
	}
	if interval := os.Getenv("SWEEP_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			config.SweepInterval = parsed
		}
	}
	if length := os.Getenv("CONFIRMATION_CODE_LENGTH"); length != "" {
		if parsed, err := strconv.Atoi(length); err == nil && parsed >= 6 {
			config.ConfirmationCodeLength = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
	}

	return config, nil
}

// NewTestConfig returns a config suitable for tests without touching the
// global singleton
func NewTestConfig() *Config {
	return &Config{
		HTTPPort:               "8080",
		JWTSecret:              "test-secret",
		TokenTTL:               time.Hour,
		PositionCacheTTL:       5 * time.Second,
		SignupBonus:            100,
		ReservationTTL:         48 * time.Hour,
		LotLifetime:            90 * 24 * time.Hour,
		ConfirmationCodeLength: 8,
		SweepInterval:          time.Minute,
		Environment:            "test",
	}
}
