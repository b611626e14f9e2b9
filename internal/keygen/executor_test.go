package keygen_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"elgchat/internal/crypto"
	"elgchat/internal/crypto/elgamal"
	"elgchat/internal/crypto/modular"
	"elgchat/internal/keygen"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func sealer(t *testing.T) *crypto.Sealer {
	t.Helper()
	s, err := crypto.NewSealer(crypto.KDFPBKDF2, crypto.MinPBKDF2Iterations)
	require.NoError(t, err)
	return s
}

// toyKeys is a valid but tiny key pair: 5^6 mod 23 = 8.
func toyKeys(context.Context, int) (elgamal.KeyPair, error) {
	return elgamal.KeyPair{
		Public:  elgamal.PublicKey{P: big.NewInt(23), G: big.NewInt(5), Y: big.NewInt(8)},
		Private: elgamal.PrivateKey{X: big.NewInt(6)},
	}, nil
}

// blockingKeys waits for release or cancellation.
func blockingKeys(release <-chan struct{}) keygen.GenerateFunc {
	return func(ctx context.Context, bits int) (elgamal.KeyPair, error) {
		select {
		case <-release:
			return toyKeys(ctx, bits)
		case <-ctx.Done():
			return elgamal.KeyPair{}, ctx.Err()
		}
	}
}

func startExecutor(t *testing.T, cfg keygen.Config) *keygen.Executor {
	t.Helper()
	if cfg.Sealer == nil {
		cfg.Sealer = sealer(t)
	}
	if cfg.Bits == 0 {
		cfg.Bits = elgamal.MinBits
	}
	cfg.Logger = zerolog.Nop()
	e, err := keygen.NewExecutor(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Stop)
	return e
}

func waitState(t *testing.T, e *keygen.Executor, want keygen.State) {
	t.Helper()
	require.Eventually(t, func() bool { return e.State() == want }, 5*time.Second, time.Millisecond)
}

func TestExecutor_GeneratesAndSeals(t *testing.T) {
	s := sealer(t)
	e := startExecutor(t, keygen.Config{
		Sealer:    s,
		Generator: modular.Generator{Rounds: 10},
	})
	require.Equal(t, keygen.StateIdle, e.State())

	res, err := e.Generate(context.Background(), "correct-horse")
	require.NoError(t, err)
	require.Equal(t, keygen.StateSucceeded, e.State())

	pub, err := elgamal.ParsePublicKey(res.PublicKey)
	require.NoError(t, err)
	priv, err := elgamal.ParsePrivateKey(res.PrivateKey)
	require.NoError(t, err)
	require.NoError(t, elgamal.KeyPair{Public: pub, Private: priv}.Validate())

	blob, err := crypto.ParseProtectedBlob(res.ProtectedPrivateKeyBlob)
	require.NoError(t, err)
	unsealed, err := s.Unseal(blob, "correct-horse")
	require.NoError(t, err)
	require.Zero(t, unsealed.X.Cmp(priv.X))
	require.Equal(t, s.Params(), res.KDF)
}

func TestExecutor_RejectsConcurrentRequest(t *testing.T) {
	release := make(chan struct{})
	e := startExecutor(t, keygen.Config{Generate: blockingKeys(release)})

	ch, err := e.Submit(context.Background(), keygen.Request{Action: keygen.ActionGenerateKeys, Password: "pw"})
	require.NoError(t, err)
	waitState(t, e, keygen.StateRunning)

	_, err = e.Submit(context.Background(), keygen.Request{Action: keygen.ActionGenerateKeys, Password: "pw"})
	require.ErrorIs(t, err, keygen.ErrBusy)

	close(release)
	resp := <-ch
	require.True(t, resp.Success)
	require.Equal(t, keygen.StateSucceeded, e.State())

	// A finished executor accepts the next request.
	ch, err = e.Submit(context.Background(), keygen.Request{Action: keygen.ActionGenerateKeys, Password: "pw"})
	require.NoError(t, err)
	require.True(t, (<-ch).Success)
}

func TestExecutor_StopCancelsInFlight(t *testing.T) {
	e := startExecutor(t, keygen.Config{Generate: blockingKeys(make(chan struct{}))})

	ch, err := e.Submit(context.Background(), keygen.Request{Action: keygen.ActionGenerateKeys, Password: "pw"})
	require.NoError(t, err)
	waitState(t, e, keygen.StateRunning)

	e.Stop()
	resp := <-ch
	require.False(t, resp.Success)
	require.Nil(t, resp.Data)
	require.ErrorIs(t, resp.Err, keygen.ErrCancelled)
	require.Equal(t, keygen.StateFailed, e.State())

	_, err = e.Submit(context.Background(), keygen.Request{Action: keygen.ActionGenerateKeys, Password: "pw"})
	require.ErrorIs(t, err, keygen.ErrNotStarted)
}

func TestExecutor_RequestContextCancels(t *testing.T) {
	e := startExecutor(t, keygen.Config{Generate: blockingKeys(make(chan struct{}))})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := e.Submit(ctx, keygen.Request{Action: keygen.ActionGenerateKeys, Password: "pw"})
	require.NoError(t, err)
	cancel()

	resp := <-ch
	require.ErrorIs(t, resp.Err, keygen.ErrCancelled)
}

func TestExecutor_EntropyFailure(t *testing.T) {
	e := startExecutor(t, keygen.Config{
		Generator: modular.Generator{Source: modular.NewSource(failingReader{})},
	})

	_, err := e.Generate(context.Background(), "pw")
	require.ErrorIs(t, err, modular.ErrEntropyFailure)
	require.Equal(t, keygen.StateFailed, e.State())
}

func TestExecutor_SealFailureWipesKey(t *testing.T) {
	var generated elgamal.KeyPair
	e := startExecutor(t, keygen.Config{
		Sealer: sealer(t).WithRand(failingReader{}),
		Generate: func(ctx context.Context, bits int) (elgamal.KeyPair, error) {
			kp, err := toyKeys(ctx, bits)
			generated = kp
			return kp, err
		},
	})

	_, err := e.Generate(context.Background(), "pw")
	require.ErrorContains(t, err, "seal private key")
	require.Equal(t, keygen.StateFailed, e.State())
	require.Zero(t, generated.Private.X.Sign())
}

func TestExecutor_SearchExhausted(t *testing.T) {
	e := startExecutor(t, keygen.Config{
		Bits:      1024,
		Generator: modular.Generator{MaxAttempts: 1},
	})

	_, err := e.Generate(context.Background(), "pw")
	require.ErrorIs(t, err, modular.ErrPrimalitySearchExhausted)
}

func TestExecutor_ValidatesRequests(t *testing.T) {
	e := startExecutor(t, keygen.Config{Generate: toyKeys})

	_, err := e.Submit(context.Background(), keygen.Request{Action: "deleteKeys", Password: "pw"})
	require.ErrorIs(t, err, keygen.ErrUnknownAction)

	_, err = e.Submit(context.Background(), keygen.Request{Action: keygen.ActionGenerateKeys})
	require.ErrorIs(t, err, keygen.ErrMissingPassword)
}

func TestNewExecutor_Validates(t *testing.T) {
	_, err := keygen.NewExecutor(keygen.Config{})
	require.Error(t, err)

	_, err = keygen.NewExecutor(keygen.Config{Sealer: sealer(t), Bits: 128})
	require.ErrorIs(t, err, elgamal.ErrBitLength)
}

func TestServeJSON(t *testing.T) {
	e := startExecutor(t, keygen.Config{Generate: toyKeys})

	in := strings.Join([]string{
		`{"action":"generateKeys","password":"correct-horse","id":"r1"}`,
		`not json`,
		``,
		`{"action":"rotate","password":"x"}`,
	}, "\n")
	var out bytes.Buffer
	require.NoError(t, keygen.ServeJSON(context.Background(), e, strings.NewReader(in), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var ok struct {
		ID      string `json:"id"`
		Success bool   `json:"success"`
		Data    struct {
			PublicKey struct {
				P, G, Y string
			} `json:"publicKey"`
			PrivateKey              string `json:"privateKey"`
			ProtectedPrivateKeyBlob string `json:"protectedPrivateKeyBlob"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ok))
	require.True(t, ok.Success)
	require.Equal(t, "r1", ok.ID)
	require.Equal(t, "23", ok.Data.PublicKey.P)
	require.Equal(t, "6", ok.Data.PrivateKey)
	require.NotEmpty(t, ok.Data.ProtectedPrivateKeyBlob)

	for _, l := range lines[1:] {
		var fail map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &fail))
		require.Equal(t, false, fail["success"])
		require.NotEmpty(t, fail["error"])
		require.NotContains(t, fail, "data")
	}
}
