package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, ":8001", c.Server.Address)
	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.Equal(t, "inventory.db", c.Database.DSN)
	assert.Equal(t, 20, c.Database.MaxOpenConns)
	assert.Equal(t, 5, c.Database.MaxIdleConns)
	assert.Equal(t, time.Hour, c.Database.ConnMaxLifetime)
	assert.Equal(t, 5*time.Second, c.Database.BusyTimeout)
	assert.Equal(t, "info", c.Log.Level)
	assert.Empty(t, c.Otel.Endpoint)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("INVENTORY_DATABASE_DSN", "/tmp/other.db")
	t.Setenv("INVENTORY_DATABASE_MAX_OPEN_CONNS", "7")
	t.Setenv("INVENTORY_LOG_LEVEL", "debug")

	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.db", c.Database.DSN)
	assert.Equal(t, 7, c.Database.MaxOpenConns)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestFile(t *testing.T) {
	// GIVEN: a YAML file switching to mysql
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	yaml := `
server:
  address: ":9000"
database:
  driver: mysql
  dsn: "user:pw@tcp(localhost:3306)/inventory"
  busy_timeout: 2s
otel:
  endpoint: "localhost:4318"
  insecure: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	// WHEN
	c, err := Load(NewViper(), path)

	// THEN: file values win over defaults, untouched keys keep defaults
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Server.Address)
	assert.Equal(t, "mysql", c.Database.Driver)
	assert.Equal(t, 2*time.Second, c.Database.BusyTimeout)
	assert.Equal(t, 20, c.Database.MaxOpenConns)
	assert.Equal(t, "localhost:4318", c.Otel.Endpoint)
	assert.True(t, c.Otel.Insecure)
}

func TestFlagOverridesEnvironment(t *testing.T) {
	t.Setenv("INVENTORY_SERVER_ADDRESS", ":7000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", "", "")
	require.NoError(t, flags.Parse([]string{"--addr", ":6000"}))

	v := NewViper()
	require.NoError(t, v.BindPFlag("server.address", flags.Lookup("addr")))

	c, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, ":6000", c.Server.Address)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("INVENTORY_DATABASE_DRIVER", "postgres")

	_, err := Default()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}
