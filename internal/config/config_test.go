package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
  shutdown_timeout: 10s
  idle_timeout: 2m
store:
  driver: mongo
  url: mongodb://localhost:27017
  database: dairy_test
log:
  level: debug
  format: json
receipt:
  organization: Test Dairy
  lines: [Line one, Line two, Line three]
  closing: [Thanks, Bye]
  timezone: UTC
  core_fonts: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.GetShutdownTimeout())
	assert.Equal(t, 2*time.Minute, cfg.GetIdleTimeout())
	assert.True(t, cfg.Receipt.CoreFonts)
	assert.Equal(t, "mongo", cfg.GetDriver(nil))
	assert.Equal(t, "dairy_test", cfg.Store.Database)
	assert.Equal(t, "debug", cfg.GetLogLevel(nil))
	assert.Equal(t, "json", cfg.GetLogFormat(nil))
	assert.Equal(t, "Test Dairy", cfg.Receipt.Organization)
	assert.Equal(t, []string{"Line one", "Line two", "Line three"}, cfg.Receipt.Lines)

	url, err := cfg.GetStoreURL(nil)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", url)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("STOREFRONT_DB_URL", "postgres://user:pass@db:5432/dairy")
	path := writeConfig(t, `
store:
  driver: postgres
  url: ${STOREFRONT_DB_URL}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://user:pass@db:5432/dairy", cfg.Store.URL)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [not, a, map"))
	assert.Error(t, err)
}

func TestGetters_Defaults(t *testing.T) {
	cfg := &Config{}

	assert.Equal(t, ":9091", cfg.GetAddr(nil))
	assert.Equal(t, "memory", cfg.GetDriver(nil))
	assert.Equal(t, "info", cfg.GetLogLevel(nil))
	assert.Equal(t, "text", cfg.GetLogFormat(nil))
	assert.Equal(t, 5*time.Second, cfg.GetShutdownTimeout())
	assert.Equal(t, 15*time.Second, cfg.GetReadTimeout())
	assert.Equal(t, 30*time.Second, cfg.GetWriteTimeout())
	assert.Equal(t, 60*time.Second, cfg.GetIdleTimeout())

	url, err := cfg.GetStoreURL(nil)
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestGetters_FlagOverrides(t *testing.T) {
	cfg := &Config{
		Server: Server{Addr: ":1111"},
		Store:  Store{Driver: "mongo", URL: "mongodb://config"},
		Log:    Log{Level: "warn"},
	}
	flags := &Flags{Addr: ":2222", Driver: "postgres", URL: "postgres://flag", LogLevel: "debug"}

	assert.Equal(t, ":2222", cfg.GetAddr(flags))
	assert.Equal(t, "postgres", cfg.GetDriver(flags))
	assert.Equal(t, "debug", cfg.GetLogLevel(flags))

	url, err := cfg.GetStoreURL(flags)
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag", url)
}

func TestGetStoreURL_RequiredForDatabases(t *testing.T) {
	cfg := &Config{Store: Store{Driver: "postgres"}}
	_, err := cfg.GetStoreURL(nil)
	assert.Error(t, err)
}

func TestGetLocation(t *testing.T) {
	cfg := &Config{Receipt: Receipt{Timezone: "UTC"}}
	loc, err := cfg.GetLocation()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Receipt.Timezone = "Not/AZone"
	_, err = cfg.GetLocation()
	assert.Error(t, err)
}
