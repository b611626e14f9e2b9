package identity_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"elgchat/internal/crypto"
	"elgchat/internal/crypto/elgamal"
	"elgchat/internal/crypto/modular"
	"elgchat/internal/domain"
	"elgchat/internal/keygen"
	"elgchat/internal/protocol/senderkey"
	"elgchat/internal/services/identity"
	"elgchat/internal/store"
)

const (
	strongPass = "Correct-Horse-9"
	otherPass  = "Battery-Staple-42!"
)

// toyGenerator seals the key pair (p=23, g=5, x=6, y=8) instead of running
// a real prime search.
type toyGenerator struct {
	sealer *crypto.Sealer
	calls  int
}

func (g *toyGenerator) Generate(_ context.Context, pass string) (keygen.Result, error) {
	g.calls++
	blob, err := g.sealer.Seal(elgamal.PrivateKey{X: big.NewInt(6)}, pass)
	if err != nil {
		return keygen.Result{}, err
	}
	return keygen.Result{
		PublicKey:               domain.PublicKey{P: "23", G: "5", Y: "8"},
		PrivateKey:              "6",
		ProtectedPrivateKeyBlob: blob.String(),
		KDF:                     g.sealer.Params(),
	}, nil
}

func newSealer(t *testing.T, kdf crypto.KDF) *crypto.Sealer {
	t.Helper()
	s, err := crypto.NewSealer(kdf, crypto.MinPBKDF2Iterations)
	require.NoError(t, err)
	return s
}

func newService(t *testing.T) (*identity.Service, *toyGenerator, *store.IdentityFileStore) {
	t.Helper()
	st := store.NewIdentityFileStore(t.TempDir())
	s := newSealer(t, crypto.KDFPBKDF2)
	gen := &toyGenerator{sealer: s}
	return identity.New(st, gen, s), gen, st
}

func TestGenerateIdentity_RejectsWeakPassphrase(t *testing.T) {
	svc, gen, _ := newService(t)
	for _, p := range []string{"", "short1!A", "alllowercase-123", "NoDigitsHere!!", "NoSymbols12345"} {
		_, _, err := svc.GenerateIdentity(context.Background(), p)
		require.ErrorIs(t, err, identity.ErrWeakPassphrase, p)
	}
	require.Zero(t, gen.calls)
}

func TestGenerateIdentity_StoresAndUnlocks(t *testing.T) {
	svc, _, st := newService(t)

	rec, fp, err := svc.GenerateIdentity(context.Background(), strongPass)
	require.NoError(t, err)
	require.Equal(t, crypto.PublicKeyFingerprint(rec.PublicKey), fp)
	require.NotZero(t, rec.CreatedUTC)

	stored, ok, err := st.LoadIdentity()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec, stored)

	got, err := svc.FingerprintIdentity()
	require.NoError(t, err)
	require.Equal(t, fp, got)

	sess, err := svc.Unlock(strongPass)
	require.NoError(t, err)
	defer sess.Close()
	require.NoError(t, sess.Keys.Validate())
	require.Equal(t, int64(6), sess.Keys.Private.X.Int64())

	_, _, err = svc.GenerateIdentity(context.Background(), strongPass)
	require.ErrorIs(t, err, identity.ErrIdentityExists)
}

func TestUnlock_WrongPassphrase(t *testing.T) {
	svc, _, _ := newService(t)
	_, _, err := svc.GenerateIdentity(context.Background(), strongPass)
	require.NoError(t, err)

	_, err = svc.Unlock(otherPass)
	require.ErrorIs(t, err, crypto.ErrWrongPasswordOrCorruption)
}

func TestLoadIdentity_Missing(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.LoadIdentity()
	require.ErrorIs(t, err, identity.ErrNoIdentity)
	_, err = svc.Unlock(strongPass)
	require.ErrorIs(t, err, identity.ErrNoIdentity)
}

func TestChangePassphrase(t *testing.T) {
	st := store.NewIdentityFileStore(t.TempDir())
	gen := &toyGenerator{sealer: newSealer(t, crypto.KDFPBKDF2)}
	svc := identity.New(st, gen, newSealer(t, crypto.KDFScrypt))

	before, _, err := svc.GenerateIdentity(context.Background(), strongPass)
	require.NoError(t, err)

	require.ErrorIs(t, svc.ChangePassphrase(strongPass, "weak"), identity.ErrWeakPassphrase)
	require.ErrorIs(t, svc.ChangePassphrase(otherPass, otherPass), crypto.ErrWrongPasswordOrCorruption)

	require.NoError(t, svc.ChangePassphrase(strongPass, otherPass))
	after, err := svc.LoadIdentity()
	require.NoError(t, err)
	require.Equal(t, before.PublicKey, after.PublicKey)
	require.NotEqual(t, before.ProtectedPrivateKeyBlob, after.ProtectedPrivateKeyBlob)
	require.Equal(t, string(crypto.KDFScrypt), after.KDF.Name)

	_, err = svc.Unlock(strongPass)
	require.ErrorIs(t, err, crypto.ErrWrongPasswordOrCorruption)
	sess, err := svc.Unlock(otherPass)
	require.NoError(t, err)
	sess.Close()
}

func TestBindParticipant(t *testing.T) {
	svc, _, _ := newService(t)
	_, _, err := svc.GenerateIdentity(context.Background(), strongPass)
	require.NoError(t, err)

	_, err = svc.BindParticipant("alice")
	require.NoError(t, err)

	sess, err := svc.Unlock(strongPass)
	require.NoError(t, err)
	defer sess.Close()
	require.Equal(t, domain.ParticipantID("alice"), sess.ParticipantID)
}

func TestSession_CloseWipes(t *testing.T) {
	svc, _, _ := newService(t)
	_, _, err := svc.GenerateIdentity(context.Background(), strongPass)
	require.NoError(t, err)
	sess, err := svc.Unlock(strongPass)
	require.NoError(t, err)

	key, err := senderkey.Generate(nil)
	require.NoError(t, err)
	sess.RememberSenderKey("c1", key)
	got, ok := sess.SenderKey("c1")
	require.True(t, ok)
	require.Equal(t, key, got)

	x := sess.Keys.Private.X
	sess.Close()
	require.True(t, sess.Closed())
	require.Zero(t, x.Sign())
	require.Equal(t, make([]byte, senderkey.KeyBytes), []byte(key))
	_, ok = sess.SenderKey("c1")
	require.False(t, ok)

	sess.Close()
}

func TestGenerateIdentity_WithExecutor(t *testing.T) {
	s := newSealer(t, crypto.KDFPBKDF2)
	exec, err := keygen.NewExecutor(keygen.Config{
		Bits:      elgamal.MinBits,
		Generator: modular.Generator{Rounds: 10},
		Sealer:    s,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, exec.Start(context.Background()))
	defer exec.Stop()

	svc := identity.New(store.NewIdentityFileStore(t.TempDir()), exec, s)
	_, _, err = svc.GenerateIdentity(context.Background(), strongPass)
	require.NoError(t, err)

	sess, err := svc.Unlock(strongPass)
	require.NoError(t, err)
	defer sess.Close()
	require.Equal(t, elgamal.MinBits, sess.Keys.Public.P.BitLen())
}
