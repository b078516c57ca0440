package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	req := require.New(t)
	cfg := DefaultConfig()

	req.Equal("5000", cfg.Port)
	req.Equal(100, cfg.HistorySize)
	req.Equal(5, cfg.RateLimit.Burst)
	req.Equal(time.Second, cfg.RateLimit.RefillInterval)
	req.Contains(cfg.AllowedOrigins, "http://localhost:3000")
	req.NoError(cfg.Validate())
	req.Equal(":5000", cfg.Addr())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	req := require.New(t)
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("HISTORY_SIZE", "25")
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := LoadConfig("")
	req.NoError(err)

	req.Equal("127.0.0.1:9090", cfg.Addr())
	req.Equal([]string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	req.Equal(25, cfg.HistorySize)
	req.Equal(10, cfg.RateLimit.Burst)
	req.Equal(2*time.Second, cfg.RateLimit.RefillInterval)
	req.Equal("json", cfg.LogFormat)
}

func TestLoadConfigLayersFileEnvAndOverrides(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "chatrelay.yaml")
	req.NoError(os.WriteFile(path, []byte(`
port: "7000"
history_size: 10
max_message_size: 2048
rate_limit:
  burst: 8
  refill_interval: 30s
stats_schedule: "off"
`), 0o600))
	t.Setenv("HISTORY_SIZE", "12")

	cfg, err := LoadConfig(path, func(c *Config) { c.Port = ":7100" })
	req.NoError(err)

	req.Equal("7100", cfg.Port, "overrides win over the file")
	req.Equal(12, cfg.HistorySize, "environment wins over the file")
	req.Equal(int64(2048), cfg.MaxMessageSize)
	req.Equal(8, cfg.RateLimit.Burst)
	req.Equal(30*time.Second, cfg.RateLimit.RefillInterval)
	req.Equal("off", cfg.StatsSchedule)
	req.Equal(5, DefaultConfig().RateLimit.Burst, "defaults stay untouched")
}

func TestLoadConfigDotEnvFeedsEnvironment(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	t.Chdir(dir)

	req.NoError(os.WriteFile(".env", []byte("HISTORY_SIZE=33\nLOG_LEVEL=error\n"), 0o600))
	req.NoError(os.WriteFile("chatrelay.yaml", []byte("history_size: 10\nlog_level: warn\n"), 0o600))

	// Keys .env may set are unset for the test and restored afterwards.
	t.Setenv("HISTORY_SIZE", "")
	req.NoError(os.Unsetenv("HISTORY_SIZE"))
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(dir, "chatrelay.yaml"))
	req.NoError(err)

	req.Equal(33, cfg.HistorySize, ".env values win over the file")
	req.Equal("debug", cfg.LogLevel, "the real environment wins over .env")
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("broken yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))
		_, err := LoadConfig(path)
		require.Error(t, err)
	})

	t.Run("bad environment value", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "")
		t.Setenv("HISTORY_SIZE", "lots")
		_, err := LoadConfig("")
		require.Error(t, err)
	})

	t.Run("unknown log format", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "")
		_, err := LoadConfig("", func(c *Config) { c.LogFormat = "xml" })
		require.ErrorContains(t, err, "invalid configuration")
	})

	t.Run("non numeric port", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "")
		_, err := LoadConfig("", func(c *Config) { c.Port = "http" })
		require.Error(t, err)
	})
}

func TestSanitizeRepairsOutOfRangeValues(t *testing.T) {
	req := require.New(t)

	cfg := Sanitize(Config{
		Port:           ":8080",
		AllowedOrigins: []string{" http://x.example "},
		MaxMessageSize: -1,
		RateLimit:      RateLimitConfig{Burst: -2, RefillInterval: -time.Second},
		LogFormat:      " Console ",
	})

	req.Equal("8080", cfg.Port)
	req.Equal([]string{"http://x.example"}, cfg.AllowedOrigins)
	req.Equal(int64(defaultMaxMessageSize), cfg.MaxMessageSize)
	req.Equal(defaultSendBufferSize, cfg.SendBufferSize)
	req.Equal(100, cfg.HistorySize)
	req.Equal(defaultRateLimitBurst, cfg.RateLimit.Burst)
	req.Equal(time.Second, cfg.RateLimit.RefillInterval)
	req.Equal(defaultShutdownTimeout, cfg.ShutdownTimeout)
	req.Equal("console", cfg.LogFormat)
	req.NoError(cfg.Validate())

	req.Equal("5000", Sanitize(Config{}).Port)
}
