package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"elgchat/internal/crypto"
	"elgchat/internal/crypto/elgamal"
	"elgchat/internal/crypto/modular"
	"elgchat/internal/relay"
)

// ConfigFile is the optional per-home configuration file.
const ConfigFile = "config.json"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home     string // state directory, e.g. $HOME/.elgchat
	RelayURL string // relay base URL, e.g. http://127.0.0.1:8080
	Username string // participant id used on the relay

	BitLength        int // ElGamal modulus size for new identities
	PrimalityRounds  int // Miller-Rabin rounds per candidate
	MaxPrimeAttempts int // 0 searches until found

	KDF              string // pbkdf2, argon2id or scrypt
	PBKDF2Iterations int

	LogLevel    string
	LogJSON     bool
	HTTPTimeout time.Duration
}

// fileConfig is the on-disk form of Config. Zero values leave the default.
type fileConfig struct {
	RelayURL         string `json:"relay_url"`
	Username         string `json:"username"`
	BitLength        int    `json:"bit_length"`
	PrimalityRounds  int    `json:"primality_rounds"`
	MaxPrimeAttempts int    `json:"max_prime_attempts"`
	KDF              string `json:"kdf"`
	PBKDF2Iterations int    `json:"pbkdf2_iterations"`
	LogLevel         string `json:"log_level"`
	LogJSON          bool   `json:"log_json"`
	HTTPTimeout      string `json:"http_timeout"`
}

// DefaultHome returns ~/.elgchat.
func DefaultHome() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".elgchat"), nil
}

// DefaultConfig returns the built-in defaults for home.
func DefaultConfig(home string) Config {
	return Config{
		Home:             home,
		BitLength:        elgamal.DefaultBits,
		PrimalityRounds:  modular.DefaultRounds,
		KDF:              string(crypto.KDFPBKDF2),
		PBKDF2Iterations: crypto.DefaultPBKDF2Iterations,
		LogLevel:         zerolog.InfoLevel.String(),
		HTTPTimeout:      relay.DefaultTimeout,
	}
}

// LoadConfig returns the defaults for home overlaid with <home>/config.json
// when that file exists.
func LoadConfig(home string) (Config, error) {
	cfg := DefaultConfig(home)
	b, err := os.ReadFile(filepath.Join(home, ConfigFile))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}
	var fc fileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", ConfigFile, err)
	}
	if err := fc.apply(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", ConfigFile, err)
	}
	return cfg, nil
}

func (fc fileConfig) apply(cfg *Config) error {
	setString(&cfg.RelayURL, fc.RelayURL)
	setString(&cfg.Username, fc.Username)
	setString(&cfg.KDF, fc.KDF)
	setString(&cfg.LogLevel, fc.LogLevel)
	setInt(&cfg.BitLength, fc.BitLength)
	setInt(&cfg.PrimalityRounds, fc.PrimalityRounds)
	setInt(&cfg.MaxPrimeAttempts, fc.MaxPrimeAttempts)
	setInt(&cfg.PBKDF2Iterations, fc.PBKDF2Iterations)
	cfg.LogJSON = cfg.LogJSON || fc.LogJSON
	if fc.HTTPTimeout != "" {
		d, err := time.ParseDuration(fc.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("http_timeout: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// Validate rejects out-of-range values.
func (c Config) Validate() error {
	if c.Home == "" {
		return errors.New("config: home directory required")
	}
	if c.BitLength < elgamal.MinBits {
		return fmt.Errorf("config: bit length %d below minimum %d", c.BitLength, elgamal.MinBits)
	}
	if c.PrimalityRounds < modular.MinRounds {
		return fmt.Errorf("config: primality rounds %d below minimum %d", c.PrimalityRounds, modular.MinRounds)
	}
	if c.MaxPrimeAttempts < 0 {
		return errors.New("config: max prime attempts must not be negative")
	}
	if c.HTTPTimeout < 0 {
		return errors.New("config: http timeout must not be negative")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Sealer(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Sealer builds the private-key sealer for the configured KDF.
func (c Config) Sealer() (*crypto.Sealer, error) {
	kdf, err := crypto.ParseKDF(c.KDF)
	if err != nil {
		return nil, err
	}
	return crypto.NewSealer(kdf, c.PBKDF2Iterations)
}

// Generator returns the prime generator for the configured search bounds.
func (c Config) Generator() modular.Generator {
	return modular.Generator{Rounds: c.PrimalityRounds, MaxAttempts: c.MaxPrimeAttempts}
}
