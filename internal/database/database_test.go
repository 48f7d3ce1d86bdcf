package database

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensaur-hub/internal/config"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrationFiles, "migrations/*.sql")
	require.NoError(t, err)

	var up, down int
	for _, f := range files {
		switch {
		case len(f) > 7 && f[len(f)-7:] == ".up.sql":
			up++
		case len(f) > 9 && f[len(f)-9:] == ".down.sql":
			down++
		}
	}
	assert.Equal(t, 2, up)
	assert.Equal(t, up, down)
}

func TestNewConnectionUnreachable(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:        "127.0.0.1",
		Port:        1,
		User:        "u",
		Password:    "p",
		DBName:      "db",
		SSLMode:     "disable",
		MaxLifetime: time.Minute,
	}

	_, err := NewConnection(cfg, zap.NewNop())
	assert.Error(t, err)
}
