package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/pos/cart"
)

const sample = `
database:
  host: db.internal
  port: 5433
  user: pos
  password: secret
  database: pos
rabbitmq:
  host: mq.internal
  port: 5672
  user: guest
  password: guest
terminal:
  tax_rate: "0.10"
  tax_mode: exclusive
  sale_routes: [/sale, /restaurant]
  logout_path: /signin
session:
  default_minutes: 15
http:
  port: 8080
log:
  level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "mq.internal", cfg.RabbitMQ.Host)
	assert.Equal(t, []string{"/sale", "/restaurant"}, cfg.Terminal.SaleRoutes)
	assert.Equal(t, "/signin", cfg.Terminal.LogoutPath)
	assert.Equal(t, 15, cfg.Session.DefaultMinutes)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Log.Level)

	tax, err := cfg.Terminal.TaxPolicy()
	require.NoError(t, err)
	assert.Equal(t, cart.TaxExclusive, tax.Mode)
	assert.True(t, tax.Rate.Equal(decimal.RequireFromString("0.10")))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("POS_DB_HOST", "override")
	t.Setenv("POS_HTTP_PORT", "9090")
	t.Setenv("POS_TERMINAL_SALE_ROUTES", "/a,/b")

	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.Database.Host)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Terminal.SaleRoutes)
}

func TestDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, "/login", cfg.Terminal.LogoutPath)
	assert.NotEmpty(t, cfg.Terminal.SaleRoutes)

	tax, err := cfg.Terminal.TaxPolicy()
	require.NoError(t, err)
	assert.Equal(t, cart.TaxInclusive, tax.Mode)
	assert.True(t, tax.Rate.IsZero())
}

func TestInvalidConfig(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "terminal:\n  tax_mode: sideways\nhttp:\n  port: 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tax_mode")
	assert.Contains(t, err.Error(), "http.port")
}

func TestMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindConfig(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = FindConfig()
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(sample), 0o600))
	p, err := FindConfig()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", p)
}
