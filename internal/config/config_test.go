package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "KAFKA_BROKERS", "PREFS_BACKEND", "NOTIFIER_WORKERS", "DEFAULT_THEME"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, BackendRedis, cfg.PrefsBackend)
	assert.Equal(t, "default", cfg.DefaultTheme)
	assert.Equal(t, 8, cfg.NotifierWorkers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("PREFS_BACKEND", "Postgres")
	t.Setenv("NOTIFIER_WORKERS", "3")
	t.Setenv("DEFAULT_THEME", "ocean")
	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, BackendPostgres, cfg.PrefsBackend)
	assert.Equal(t, 3, cfg.NotifierWorkers)
	assert.Equal(t, "ocean", cfg.DefaultTheme)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("PREFS_BACKEND", "sqlite")
	t.Setenv("NOTIFIER_WORKERS", "-2")
	cfg := Load()

	assert.Equal(t, BackendRedis, cfg.PrefsBackend)
	assert.Equal(t, 8, cfg.NotifierWorkers)
}
