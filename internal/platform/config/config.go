// Package config builds runtime configuration from environment variables so
// main stays lean. Every policy constant the engines consume is surfaced here
// with a documented default; deployments tune behavior without code changes.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	ShutdownGrace time.Duration
}

// Postgres captures the storage backend selection: an empty DSN selects the
// in-memory stores.
type Postgres struct {
	DSN string
}

// Redis captures the profile view cache backend. An empty URL disables the
// cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the optional audit event sink. Empty brokers disable it.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Trust captures the scoring and registry policy constants.
type Trust struct {
	VerifyThreshold        int
	ReportThreshold        int
	ScoreWeights           map[string]float64
	ScoreDefaultWeight     float64
	ScoreVerifiedBonus     float64
	ScoreUnverifiedCeiling float64
	MaxArtifactBytes       int64
	DecisionTimeout        time.Duration
	ViewCacheTTL           time.Duration
}

type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Trust    Trust
}

// FromEnv reads the full configuration. Missing variables take documented
// defaults; malformed numeric values also fall back rather than failing
// startup.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envString("GOODCOMPANY_ADDR", ":8080"),
			JWTSigningKey: envString("GOODCOMPANY_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			ShutdownGrace: envDuration("GOODCOMPANY_SHUTDOWN_GRACE", 10*time.Second),
		},
		Postgres: Postgres{
			DSN: os.Getenv("GOODCOMPANY_POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("GOODCOMPANY_REDIS_URL"),
			PoolSize:     envInt("GOODCOMPANY_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("GOODCOMPANY_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("GOODCOMPANY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("GOODCOMPANY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("GOODCOMPANY_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: envList("GOODCOMPANY_KAFKA_BROKERS"),
			Topic:   envString("GOODCOMPANY_KAFKA_AUDIT_TOPIC", "goodcompany.audit"),
		},
		Trust: Trust{
			VerifyThreshold:        envInt("GOODCOMPANY_LINK_VERIFY_THRESHOLD", 2),
			ReportThreshold:        envInt("GOODCOMPANY_LINK_REPORT_THRESHOLD", 3),
			ScoreWeights:           envWeights("GOODCOMPANY_SCORE_WEIGHTS"),
			ScoreDefaultWeight:     envFloat("GOODCOMPANY_SCORE_DEFAULT_WEIGHT", 0.3),
			ScoreVerifiedBonus:     envFloat("GOODCOMPANY_SCORE_VERIFIED_BONUS", 1.0),
			ScoreUnverifiedCeiling: envFloat("GOODCOMPANY_SCORE_UNVERIFIED_CEILING", 7.0),
			MaxArtifactBytes:       int64(envInt("GOODCOMPANY_MAX_ARTIFACT_BYTES", 10<<20)),
			DecisionTimeout:        envDuration("GOODCOMPANY_DECISION_TIMEOUT", 15*time.Second),
			ViewCacheTTL:           envDuration("GOODCOMPANY_VIEW_CACHE_TTL", time.Minute),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envWeights parses "family=1.0,coworker=0.8" pairs. Nil means use the
// built-in weighting table.
func envWeights(key string) map[string]float64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	weights := make(map[string]float64)
	for _, pair := range strings.Split(v, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		w, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		weights[strings.ToLower(strings.TrimSpace(name))] = w
	}
	if len(weights) == 0 {
		return nil
	}
	return weights
}
