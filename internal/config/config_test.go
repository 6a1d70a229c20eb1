package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_DIR", t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "3000", cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, BackendFile, cfg.Storage.Index)
	require.Equal(t, BackendFile, cfg.Storage.Payload)
	require.Equal(t, 5, cfg.Storage.MaxAttempts)
	require.Equal(t, 2, cfg.Diary.MinImages)
	require.Equal(t, 10, cfg.Diary.MaxImages)
	require.Equal(t, int64(10<<20), cfg.Diary.MaxImageBytes)
	require.Equal(t, "diary:index", cfg.Redis.IndexKey)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORAGE_INDEX", "Redis")
	t.Setenv("STORAGE_PAYLOAD", "minio")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("DIARY_MAX_IMAGES", "4")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, BackendRedis, cfg.Storage.Index)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.True(t, cfg.MinIO.UseSSL)
	require.Equal(t, "diaries", cfg.MinIO.Bucket)
	require.True(t, cfg.RateLimit.Enabled)
	require.Equal(t, 2.5, cfg.RateLimit.RPS)
	require.Equal(t, 4, cfg.Diary.MaxImages)
}

func TestLoadConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "diary.yaml")
	require.NoError(t, os.WriteFile(p, []byte("server_port: \"8088\"\nstorage_index: memory\nstorage_payload: memory\n"), 0o644))
	t.Setenv("CONFIG_FILE", p)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "8088", cfg.Server.Port)
	require.Equal(t, BackendMemory, cfg.Storage.Index)
}

func TestValidateRejectsIncompleteBackends(t *testing.T) {
	t.Setenv("STORAGE_INDEX", "mongo")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "MONGODB_URI")

	t.Setenv("STORAGE_INDEX", "sqlite")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "unknown STORAGE_INDEX")

	t.Setenv("STORAGE_INDEX", "memory")
	t.Setenv("STORAGE_PAYLOAD", "minio")
	t.Setenv("MINIO_ENDPOINT", "")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("STORAGE_PAYLOAD", "memory")
	t.Setenv("DIARY_MIN_IMAGES", "5")
	t.Setenv("DIARY_MAX_IMAGES", "3")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "image bounds")
}
