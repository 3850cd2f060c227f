package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Backend.Mode)
	assert.Equal(t, StoreDiskv, cfg.Store.Driver)
	assert.Equal(t, time.Second, cfg.Timers.Tick)
	assert.Equal(t, 5760, cfg.Timers.ShippingMinutes)
	assert.Equal(t, 50, cfg.Bulk.BatchSize)
	assert.Equal(t, 5, cfg.Bulk.Parallelism)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_VariablesDeEntorno(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BACKEND_MODE", "REST")
	t.Setenv("BACKEND_URL", "https://api.example.com")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TIMER_TICK_MS", "250")
	t.Setenv("BULK_BATCH_SIZE", "20")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendREST, cfg.Backend.Mode)
	assert.Equal(t, "https://api.example.com", cfg.Backend.URL)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Timers.Tick)
	assert.Equal(t, 20, cfg.Bulk.BatchSize)
}

func TestLoad_ModoInvalido(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BACKEND_MODE", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "kryo", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/kryo?sslmode=disable", c.DSN())
	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}

// chdir replicates testing.T.Chdir (Go 1.24+): it changes the working
// directory for the duration of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
