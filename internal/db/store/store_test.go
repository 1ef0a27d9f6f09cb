package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalboard/evalboard/internal/config"
)

func testConfig(driver string) *config.Config {
	return &config.Config{Storage: config.Storage{Driver: driver, Table: "kv"}}
}

func TestNew_SQLite(t *testing.T) {
	cfg := testConfig(DriverSQLite)
	cfg.Storage.Path = filepath.Join(t.TempDir(), "nested", "evalboard.db")

	s, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, s.Set("k", []byte("v"), time.Minute))
	require.NoError(t, s.Close())

	// reopened file keeps the key
	s, err = New(cfg)
	require.NoError(t, err)

	defer func() { _ = s.Close() }()

	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestNew_Memory(t *testing.T) {
	s, err := New(testConfig(DriverMemory))
	require.NoError(t, err)

	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set("k", []byte("v"), 0))

	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(testConfig("redis"))
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestOpenNative_RecoversPanics(t *testing.T) {
	_, err := openNative(func() fiber.Storage { panic("dial tcp: connection refused") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
