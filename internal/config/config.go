package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every runtime knob for the service. Values come from the
// environment (a .env file is loaded by main before this runs); anything
// unset falls back to a development default.
type Config struct {
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Match    MatchConfig
	TTL      TTLConfig
	WS       WSConfig
	LogLevel string
}

type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	JWTTTL    time.Duration
}

// MatchConfig tunes the matchmaking engine.
type MatchConfig struct {
	ScanCap      int     // max pops per scan pass
	SampleSize   int     // max candidates fed to the scorer
	MinShared    int     // minimum interest overlap to accept
	MinJaccard   float64 // minimum Jaccard score to accept
	AllowSelf    bool    // test-only escape hatch, off in production
	SymmetricPro bool    // enforce a paid candidate's own stored filter
}

type TTLConfig struct {
	QueueShadow   time.Duration
	Presence      time.Duration
	GuestPresence time.Duration
	Pending       time.Duration
}

type WSConfig struct {
	MsgsPerSecond float64
	Burst         int
}

func Load() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:         env("HTTP_ADDR", ":8080"),
			ReadTimeout:  envDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: envDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: env("POSTGRES_DSN",
				"host=localhost user=user password=password dbname=matchago port=5432 sslmode=disable"),
		},
		Redis: RedisConfig{
			Addr:     env("REDIS_ADDR", "localhost:6379"),
			Password: env("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: env("JWT_SECRET", "dev-secret-change-me"),
			JWTTTL:    envDuration("JWT_TTL", 72*time.Hour),
		},
		Match: MatchConfig{
			ScanCap:      envInt("MATCH_SCAN_CAP", 50),
			SampleSize:   envInt("MATCH_SAMPLE_SIZE", 30),
			MinShared:    envInt("MATCH_MIN_SHARED", 2),
			MinJaccard:   envFloat("MATCH_MIN_JACCARD", 0.2),
			AllowSelf:    false,
			SymmetricPro: envBool("MATCH_SYMMETRIC_FILTER", true),
		},
		TTL: TTLConfig{
			QueueShadow:   envDuration("TTL_QUEUE_SHADOW", 3*time.Minute),
			Presence:      envDuration("TTL_PRESENCE", 75*time.Second),
			GuestPresence: envDuration("TTL_GUEST_PRESENCE", 40*time.Second),
			Pending:       envDuration("TTL_PENDING", 120*time.Second),
		},
		WS: WSConfig{
			MsgsPerSecond: envFloat("WS_MSGS_PER_SECOND", 5),
			Burst:         envInt("WS_BURST", 10),
		},
		LogLevel: env("LOG_LEVEL", "info"),
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
