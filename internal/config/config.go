package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Addr        string
	ServiceName string
	Env         string

	StockBackend string
	OrderBackend string

	RedisAddr     string
	RedisPassword string
	PostgresDSN   string

	// SeedStock primes counters on startup, formatted "counterId:qty,...".
	// Meant for the in-memory backend and local demos.
	SeedStock string

	ReserveTimeout            time.Duration
	CompensationRetryInterval time.Duration
}

// Load reads configuration from the environment, honoring a local .env file
// when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:          getenv("ADDR", ":8080"),
		ServiceName:   getenv("SERVICE_NAME", "kantin"),
		Env:           getenv("ENV", "dev"),
		StockBackend:  getenv("STOCK_BACKEND", BackendMemory),
		OrderBackend:  getenv("ORDER_BACKEND", BackendMemory),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		SeedStock:     os.Getenv("SEED_STOCK"),
	}

	var err error
	if cfg.ReserveTimeout, err = getduration("RESERVE_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.CompensationRetryInterval, err = getduration("COMPENSATION_RETRY_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}

	switch cfg.StockBackend {
	case BackendMemory, BackendRedis:
	default:
		return nil, fmt.Errorf("config: unknown STOCK_BACKEND %q", cfg.StockBackend)
	}
	switch cfg.OrderBackend {
	case BackendMemory, BackendPostgres:
	default:
		return nil, fmt.Errorf("config: unknown ORDER_BACKEND %q", cfg.OrderBackend)
	}
	if cfg.OrderBackend == BackendPostgres && cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("config: POSTGRES_DSN is required for the postgres order backend")
	}

	return cfg, nil
}

// SeedCounters parses SEED_STOCK into counter ids and quantities.
func (c *Config) SeedCounters() (map[string]int, error) {
	if c.SeedStock == "" {
		return nil, nil
	}
	out := make(map[string]int)
	for _, pair := range strings.Split(c.SeedStock, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, raw, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("config: malformed SEED_STOCK entry %q", pair)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("config: malformed SEED_STOCK quantity %q", raw)
		}
		out[strings.TrimSpace(id)] = qty
	}
	return out, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getduration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
