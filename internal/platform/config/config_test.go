package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123"

func lookupFrom(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(lookupFrom(map[string]string{"ENCRYPTION_KEY": testKey}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DevAdminSecret, cfg.Security.AdminJWTSecret)
	assert.Equal(t, "strict", cfg.Profile.IncomePolicy)
	assert.Equal(t, 10, cfg.Profile.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.PopulateInterval)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.ValidateInterval)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := Load(lookupFrom(map[string]string{
		"ENCRYPTION_KEY":        testKey,
		"DATABASE_URL":          "postgres://localhost/beneficiary",
		"BATCH_SIZE":            "25",
		"INCOME_POLICY":         "LENIENT",
		"VALIDATE_INTERVAL":     "30s",
		"KAFKA_BROKERS":         "a:9092,b:9092",
		"NORMALIZE_CONCURRENCY": "8",
	}))
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/beneficiary", cfg.Database.URL)
	assert.Equal(t, 25, cfg.Profile.BatchSize)
	assert.Equal(t, "lenient", cfg.Profile.IncomePolicy)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.ValidateInterval)
	assert.Equal(t, "a:9092,b:9092", cfg.Kafka.Brokers)
	assert.Equal(t, 8, cfg.Profile.NormalizeConcurrency)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing encryption key", map[string]string{}},
		{"short encryption key", map[string]string{"ENCRYPTION_KEY": "short"}},
		{"bad integer", map[string]string{"ENCRYPTION_KEY": testKey, "BATCH_SIZE": "ten"}},
		{"bad duration", map[string]string{"ENCRYPTION_KEY": testKey, "POPULATE_INTERVAL": "soon"}},
		{"batch size zero", map[string]string{"ENCRYPTION_KEY": testKey, "BATCH_SIZE": "0"}},
		{"unknown policy", map[string]string{"ENCRYPTION_KEY": testKey, "INCOME_POLICY": "guess"}},
		{"dev secret in production", map[string]string{"ENCRYPTION_KEY": testKey, "ENVIRONMENT": "production"}},
		{"keycloak without realm", map[string]string{"ENCRYPTION_KEY": testKey, "KEYCLOAK_URL": "http://kc:8080"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(lookupFrom(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
addr: ":9090"
security:
  encryption_key: from-file-secret-key
profile:
  batch_size: 50
  mapping_dir: /etc/beneficiary/mappings
scheduler:
  populate_interval: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(lookupFrom(map[string]string{
		"CONFIG_FILE": path,
		"BATCH_SIZE":  "5",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "from-file-secret-key", cfg.Security.EncryptionKey)
	assert.Equal(t, 5, cfg.Profile.BatchSize, "environment wins over file")
	assert.Equal(t, "/etc/beneficiary/mappings", cfg.Profile.MappingDir)
	assert.Equal(t, time.Minute, cfg.Scheduler.PopulateInterval)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.ValidateInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(lookupFrom(map[string]string{"CONFIG_FILE": "/nonexistent/config.yaml"}))
	assert.Error(t, err)
}
