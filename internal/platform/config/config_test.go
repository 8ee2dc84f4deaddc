package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownGrace)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Empty(t, cfg.Redis.URL)
	assert.Nil(t, cfg.Kafka.Brokers)
	assert.Equal(t, 2, cfg.Trust.VerifyThreshold)
	assert.Equal(t, 3, cfg.Trust.ReportThreshold)
	assert.Nil(t, cfg.Trust.ScoreWeights)
	assert.InDelta(t, 0.3, cfg.Trust.ScoreDefaultWeight, 1e-9)
	assert.Equal(t, int64(10<<20), cfg.Trust.MaxArtifactBytes)
	assert.Equal(t, 15*time.Second, cfg.Trust.DecisionTimeout)
	assert.Equal(t, time.Minute, cfg.Trust.ViewCacheTTL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("GOODCOMPANY_ADDR", ":9191")
	t.Setenv("GOODCOMPANY_SHUTDOWN_GRACE", "25s")
	t.Setenv("GOODCOMPANY_KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")
	t.Setenv("GOODCOMPANY_LINK_VERIFY_THRESHOLD", "5")
	t.Setenv("GOODCOMPANY_SCORE_WEIGHTS", "family=1.0, Coworker=0.8, bad, worse=x")

	cfg := FromEnv()

	assert.Equal(t, ":9191", cfg.Server.Addr)
	assert.Equal(t, 25*time.Second, cfg.Server.ShutdownGrace)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Trust.VerifyThreshold)
	assert.Equal(t, map[string]float64{"family": 1.0, "coworker": 0.8}, cfg.Trust.ScoreWeights)
}

func TestFromEnvMalformedFallsBack(t *testing.T) {
	t.Setenv("GOODCOMPANY_LINK_REPORT_THRESHOLD", "lots")
	t.Setenv("GOODCOMPANY_SCORE_DEFAULT_WEIGHT", "heavy")
	t.Setenv("GOODCOMPANY_DECISION_TIMEOUT", "soon")
	t.Setenv("GOODCOMPANY_SCORE_WEIGHTS", "nopairs, family=abc")

	cfg := FromEnv()

	assert.Equal(t, 3, cfg.Trust.ReportThreshold)
	assert.InDelta(t, 0.3, cfg.Trust.ScoreDefaultWeight, 1e-9)
	assert.Equal(t, 15*time.Second, cfg.Trust.DecisionTimeout)
	assert.Nil(t, cfg.Trust.ScoreWeights)
}
