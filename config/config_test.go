package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kasuganosora/matchd/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 5, cfg.Database.LockTimeoutS)
	assert.Equal(t, time.Hour, cfg.Database.MySQLMaxLife)
	assert.Equal(t, 256, cfg.Cache.LocalPubSubBuf)
	assert.Equal(t, config.DefaultMatching(), cfg.Matching)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
database:
  mode: mysql
  mysql_dsn: "matchd:secret@tcp(127.0.0.1:3306)/matchd?parseTime=true"
  lock_timeout_s: 2
cache:
  redis_addr: "127.0.0.1:6379"
security:
  jwt_secret: "s3cret"
matching:
  page_size: 50
  max_page_size: 60
  transient_retries: 0
  notify_timeout: 1500ms
  notify_retry_delay: 10s
`))
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Mode)
	assert.Equal(t, 2, cfg.Database.LockTimeoutS)
	assert.Equal(t, "127.0.0.1:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "s3cret", cfg.Security.JWTSecret)
	assert.Equal(t, config.MatchingConfig{
		PageSize:         50,
		MaxPageSize:      60,
		TransientRetries: 0,
		NotifyTimeout:    1500 * time.Millisecond,
		NotifyRetryDelay: 10 * time.Second,
	}, cfg.Matching)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
