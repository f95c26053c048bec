package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, _, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "admin@example.com", cfg.Admin.Email)
}

func TestLoadFromDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nDB_DRIVER=SQLite\nSQLITE_PATH=/tmp/b.db\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("DB_DRIVER")
		os.Unsetenv("SQLITE_PATH")
	})

	cfg, loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/b.db", cfg.Database.SQLitePath)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"unknown driver", map[string]string{"JWT_SECRET": "s", "DB_DRIVER": "mysql"}},
		{"bad ttl", map[string]string{"JWT_SECRET": "s", "JWT_TTL": "later"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, _, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", User: "u", Password: "p", Name: "bakery", Port: "5432", TimeZone: "UTC"}
	assert.Equal(t, "host=db user=u password=p dbname=bakery port=5432 sslmode=disable TimeZone=UTC", d.DSN())

	d.URL = "postgres://x"
	assert.Equal(t, "postgres://x", d.DSN())
}
