package account_test

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"elgchat/internal/crypto"
	"elgchat/internal/crypto/elgamal"
	"elgchat/internal/domain"
	"elgchat/internal/keygen"
	"elgchat/internal/relay"
	"elgchat/internal/services/account"
	"elgchat/internal/services/identity"
	"elgchat/internal/store"
)

type toyGenerator struct{ sealer *crypto.Sealer }

func (g toyGenerator) Generate(_ context.Context, pass string) (keygen.Result, error) {
	blob, err := g.sealer.Seal(elgamal.PrivateKey{X: big.NewInt(6)}, pass)
	if err != nil {
		return keygen.Result{}, err
	}
	return keygen.Result{
		PublicKey:               domain.PublicKey{P: "23", G: "5", Y: "8"},
		ProtectedPrivateKeyBlob: blob.String(),
		KDF:                     g.sealer.Params(),
	}, nil
}

func setup(t *testing.T, withIdentity bool) (*account.Service, *identity.Service, *relay.HTTP, string) {
	t.Helper()
	srv := httptest.NewServer(relay.NewServer(zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	rc := relay.NewHTTP(srv.URL, 5*time.Second)

	home := t.TempDir()
	sealer, err := crypto.NewSealer(crypto.KDFPBKDF2, crypto.MinPBKDF2Iterations)
	require.NoError(t, err)
	ids := identity.New(store.NewIdentityFileStore(home), toyGenerator{sealer}, sealer)
	if withIdentity {
		_, _, err = ids.GenerateIdentity(context.Background(), "Correct-Horse-9")
		require.NoError(t, err)
	}
	return account.New(ids, store.NewAccountFileStore(home), rc), ids, rc, srv.URL
}

func TestRegister_PublishesAndRecords(t *testing.T) {
	svc, ids, rc, url := setup(t, true)
	ctx := context.Background()

	profile, err := svc.Register(ctx, url, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.ParticipantID("alice"), profile.ParticipantID)
	require.NotZero(t, profile.RegisteredUTC)

	rec, err := ids.LoadIdentity()
	require.NoError(t, err)
	require.Equal(t, domain.ParticipantID("alice"), rec.ParticipantID)
	require.Equal(t, crypto.PublicKeyFingerprint(rec.PublicKey), profile.Fingerprint)

	pk, err := rc.FetchPublicKey(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, rec.PublicKey, pk)

	got, ok, err := svc.Profile(url)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, profile, got)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _, url := setup(t, true)
	for _, id := range []domain.ParticipantID{"", "a/b"} {
		_, err := svc.Register(context.Background(), url, id)
		require.ErrorIs(t, err, account.ErrInvalidParticipantID)
	}
}

func TestRegister_NeedsIdentity(t *testing.T) {
	svc, _, _, url := setup(t, false)
	_, err := svc.Register(context.Background(), url, "alice")
	require.ErrorIs(t, err, identity.ErrNoIdentity)
}
