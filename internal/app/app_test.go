package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"elgchat/internal/app"
	"elgchat/internal/crypto"
	"elgchat/internal/crypto/elgamal"
)

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := app.LoadConfig(home)
	require.NoError(t, err)
	require.Equal(t, app.DefaultConfig(home), cfg)
	require.Equal(t, elgamal.DefaultBits, cfg.BitLength)
	require.Equal(t, string(crypto.KDFPBKDF2), cfg.KDF)
	require.Equal(t, "info", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileOverlay(t *testing.T) {
	home := t.TempDir()
	body := `{"relay_url":"http://127.0.0.1:9000","bit_length":512,"kdf":"argon2id","http_timeout":"3s"}`
	require.NoError(t, os.WriteFile(filepath.Join(home, app.ConfigFile), []byte(body), 0o600))

	cfg, err := app.LoadConfig(home)
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:9000", cfg.RelayURL)
	require.Equal(t, 512, cfg.BitLength)
	require.Equal(t, "argon2id", cfg.KDF)
	require.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	require.Equal(t, crypto.DefaultPBKDF2Iterations, cfg.PBKDF2Iterations)
}

func TestLoadConfig_BadFile(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, app.ConfigFile), []byte(`{"http_timeout":"soon"}`), 0o600))
	_, err := app.LoadConfig(home)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(home, app.ConfigFile), []byte(`{`), 0o600))
	_, err = app.LoadConfig(home)
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	bad := map[string]func(*app.Config){
		"home":       func(c *app.Config) { c.Home = "" },
		"bits":       func(c *app.Config) { c.BitLength = 256 },
		"rounds":     func(c *app.Config) { c.PrimalityRounds = 2 },
		"attempts":   func(c *app.Config) { c.MaxPrimeAttempts = -1 },
		"kdf":        func(c *app.Config) { c.KDF = "md5" },
		"iterations": func(c *app.Config) { c.PBKDF2Iterations = 1000 },
		"log level":  func(c *app.Config) { c.LogLevel = "loud" },
		"timeout":    func(c *app.Config) { c.HTTPTimeout = -time.Second },
	}
	for name, mutate := range bad {
		cfg := app.DefaultConfig(t.TempDir())
		mutate(&cfg)
		require.Error(t, cfg.Validate(), name)
	}
}

func TestNewWire(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nested")
	cfg := app.DefaultConfig(home)

	w, err := app.NewWire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	info, err := os.Stat(home)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.ErrorIs(t, w.RequireRelay(), app.ErrNoRelay)
	require.Nil(t, w.Conversations)

	cfg.RelayURL = "http://127.0.0.1:1"
	w2, err := app.NewWire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer w2.Close()
	require.NoError(t, w2.RequireRelay())
	require.NotNil(t, w2.Conversations)
	require.NotNil(t, w2.Accounts)
}

func TestNewWire_RejectsInvalid(t *testing.T) {
	cfg := app.DefaultConfig(t.TempDir())
	cfg.BitLength = 10
	_, err := app.NewWire(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}
