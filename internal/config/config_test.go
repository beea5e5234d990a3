package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 1000, cfg.MaxChunkSize)
	assert.Equal(t, int64(20971520), cfg.MaxFileSize)
	assert.Equal(t, time.Hour, cfg.StorageSweepAge)
	assert.Empty(t, cfg.RedisURL)
	assert.Positive(t, cfg.ExtractionWorkers)
}

func TestLoadConfigFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MAX_CHUNK_SIZE", "250")
	t.Setenv("STORAGE_SWEEP_INTERVAL", "30s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("FILE_STORAGE_DIR", "/var/lib/ingest")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.MaxChunkSize)
	assert.Equal(t, 30*time.Second, cfg.StorageSweepInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "/var/lib/ingest/uploads", cfg.UploadDir())
}

func TestLoadConfigIgnoresUnparseableNumbers(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MAX_CHUNK_SIZE", "lots")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MaxChunkSize)
}

func TestValidateRejectsBadSizes(t *testing.T) {
	base := Config{
		MaxFileSize:    1,
		MaxMemory:      1,
		MaxChunkSize:   1,
		FileStorageDir: "x",
		CORSOrigins:    []string{"http://localhost:3000"},
	}

	cases := map[string]func(c *Config){
		"file size":   func(c *Config) { c.MaxFileSize = 0 },
		"memory":      func(c *Config) { c.MaxMemory = -1 },
		"chunk size":  func(c *Config) { c.MaxChunkSize = 0 },
		"storage dir": func(c *Config) { c.FileStorageDir = "" },
		"origins":     func(c *Config) { c.CORSOrigins = nil },
		"ratio":       func(c *Config) { c.TraceSampleRatio = 2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateClampsWorkers(t *testing.T) {
	c := Config{MaxFileSize: 1, MaxMemory: 1, MaxChunkSize: 1, FileStorageDir: "x", CORSOrigins: []string{"*"}}
	require.NoError(t, c.Validate())
	assert.Equal(t, 1, c.ExtractionWorkers)
}

func TestNewRedisClientDisabled(t *testing.T) {
	rdb, err := NewRedisClient(&Config{})
	require.NoError(t, err)
	assert.Nil(t, rdb)
}

// chdir mirrors testing.T.Chdir (Go 1.24+): switch to dir and restore the
// previous working directory when the test finishes.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
