package conversation_test

import (
	"context"
	"math/big"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"elgchat/internal/crypto"
	"elgchat/internal/crypto/elgamal"
	"elgchat/internal/crypto/modular"
	"elgchat/internal/domain"
	"elgchat/internal/keygen"
	"elgchat/internal/protocol/senderkey"
	"elgchat/internal/relay"
	"elgchat/internal/services/account"
	"elgchat/internal/services/conversation"
	"elgchat/internal/services/identity"
	"elgchat/internal/store"
)

const pass = "Correct-Horse-9"

var (
	keysOnce sync.Once
	keyPairs []elgamal.KeyPair
	keysErr  error
)

// testKeys generates four small key pairs once for the whole package.
func testKeys(t *testing.T) []elgamal.KeyPair {
	t.Helper()
	keysOnce.Do(func() {
		gen := modular.Generator{Rounds: 10}
		for i := 0; i < 4; i++ {
			kp, err := elgamal.GenerateKeys(context.Background(), gen, elgamal.MinBits)
			if err != nil {
				keysErr = err
				return
			}
			keyPairs = append(keyPairs, kp)
		}
	})
	require.NoError(t, keysErr)
	return keyPairs
}

// fixedGenerator seals a pre-generated key pair.
type fixedGenerator struct {
	kp     elgamal.KeyPair
	sealer *crypto.Sealer
}

func (g fixedGenerator) Generate(_ context.Context, passphrase string) (keygen.Result, error) {
	// Seal a copy so wiping a session never touches the shared key.
	priv := elgamal.PrivateKey{X: new(big.Int).Set(g.kp.Private.X)}
	blob, err := g.sealer.Seal(priv, passphrase)
	if err != nil {
		return keygen.Result{}, err
	}
	return keygen.Result{
		PublicKey:               g.kp.Public.Wire(),
		PrivateKey:              priv.String(),
		ProtectedPrivateKeyBlob: blob.String(),
		KDF:                     g.sealer.Params(),
	}, nil
}

type harness struct {
	t      *testing.T
	client *relay.HTTP
	server *httptest.Server
	next   int
}

func newHarness(t *testing.T) *harness {
	srv := httptest.NewServer(relay.NewServer(zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return &harness{t: t, client: relay.NewHTTP(srv.URL, 5*time.Second), server: srv}
}

type user struct {
	ids  *identity.Service
	conv *conversation.Service
	sess *identity.Session
}

// user creates an identity with the next test key pair, registers it as
// name when register is set, and unlocks it.
func (h *harness) user(name domain.ParticipantID, register bool) *user {
	t := h.t
	t.Helper()
	kp := testKeys(t)[h.next]
	h.next++

	home := t.TempDir()
	sealer, err := crypto.NewSealer(crypto.KDFPBKDF2, crypto.MinPBKDF2Iterations)
	require.NoError(t, err)
	ids := identity.New(store.NewIdentityFileStore(home), fixedGenerator{kp: kp, sealer: sealer}, sealer)
	_, _, err = ids.GenerateIdentity(context.Background(), pass)
	require.NoError(t, err)

	if register {
		accts := account.New(ids, store.NewAccountFileStore(home), h.client)
		_, err = accts.Register(context.Background(), h.server.URL, name)
		require.NoError(t, err)
	}

	u := &user{
		ids: ids,
		conv: conversation.New(
			h.client,
			store.NewConversationFileStore(home),
			store.NewPublicKeyFileStore(home),
			nil,
			zerolog.Nop(),
		),
	}
	u.unlock(t)
	return u
}

func (u *user) unlock(t *testing.T) {
	t.Helper()
	if u.sess != nil {
		u.sess.Close()
	}
	sess, err := u.ids.Unlock(pass)
	require.NoError(t, err)
	u.sess = sess
	t.Cleanup(sess.Close)
}

func (u *user) receive(t *testing.T) []domain.DecryptedMessage {
	t.Helper()
	msgs, err := u.conv.Receive(context.Background(), u.sess, 0)
	require.NoError(t, err)
	return msgs
}

func TestGroupConversation_SendReceive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, bob, carol := h.user("alice", true), h.user("bob", true), h.user("carol", true)

	conv, err := alice.conv.Create(ctx, alice.sess, []domain.ParticipantID{"bob", "carol", "bob", "alice"})
	require.NoError(t, err)
	require.Equal(t, []domain.ParticipantID{"alice", "bob", "carol"}, conv.ParticipantIDs)
	require.Len(t, conv.EncryptedKeys, 3)

	require.NoError(t, alice.conv.Send(ctx, alice.sess, conv.ID, []byte("hi all")))

	for _, u := range []*user{bob, carol} {
		msgs := u.receive(t)
		require.Len(t, msgs, 1)
		require.Equal(t, "hi all", msgs[0].Text())
		require.Equal(t, domain.ParticipantID("alice"), msgs[0].From)
		require.Equal(t, conv.ID, msgs[0].ConversationID)
		require.False(t, msgs[0].Direct)
		require.False(t, msgs[0].Unreadable)

		require.Empty(t, u.receive(t), "batch was acknowledged")
	}
	require.Empty(t, alice.receive(t), "sender is not a recipient")
}

func TestGroupConversation_CreatorRecoversKeyAfterRelock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, bob := h.user("alice", true), h.user("bob", true)

	conv, err := alice.conv.Create(ctx, alice.sess, []domain.ParticipantID{"bob"})
	require.NoError(t, err)

	require.NoError(t, bob.conv.Send(ctx, bob.sess, conv.ID, []byte("from bob")))

	// A fresh session has no cached sender key and must unwrap its own entry.
	alice.unlock(t)
	msgs := alice.receive(t)
	require.Len(t, msgs, 1)
	require.Equal(t, "from bob", msgs[0].Text())

	require.NoError(t, alice.conv.Send(ctx, alice.sess, conv.ID, []byte("back")))
	msgs = bob.receive(t)
	require.Len(t, msgs, 1)
	require.Equal(t, "back", msgs[0].Text())
}

func TestDirectMessage_MultiBlock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, bob, carol := h.user("alice", true), h.user("bob", true), h.user("carol", true)

	conv, err := alice.conv.Create(ctx, alice.sess, []domain.ParticipantID{"bob", "carol"})
	require.NoError(t, err)

	long := strings.Repeat("direct message body ", 20)
	require.Greater(t, len(long), elgamal.Capacity(alice.sess.Keys.Public.P))
	require.NoError(t, alice.conv.SendDirect(ctx, alice.sess, conv.ID, []byte(long)))

	for _, u := range []*user{bob, carol} {
		msgs := u.receive(t)
		require.Len(t, msgs, 1)
		require.True(t, msgs[0].Direct)
		require.Equal(t, long, msgs[0].Text())
	}
}

func TestReceive_IsolatesFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, bob := h.user("alice", true), h.user("bob", true)

	conv, err := alice.conv.Create(ctx, alice.sess, []domain.ParticipantID{"bob"})
	require.NoError(t, err)

	require.NoError(t, alice.conv.Send(ctx, alice.sess, conv.ID, []byte("first")))
	inject := func(p domain.MessagePayload) {
		t.Helper()
		env := domain.Envelope{Type: domain.EnvelopeTypeMessage, Payload: p}
		require.NoError(t, h.client.Deliver(ctx, []domain.ParticipantID{"bob"}, env))
	}
	inject(domain.MessagePayload{ConversationID: conv.ID, SenderID: "alice", Content: "bm90IGEgcmVhbCBjaXBoZXJ0ZXh0IGF0IGFsbA=="})
	inject(domain.MessagePayload{ConversationID: conv.ID, SenderID: "mallory", Content: "eA=="})
	inject(domain.MessagePayload{
		ConversationID:    conv.ID,
		SenderID:          "alice",
		EncryptedContents: map[domain.ParticipantID][]domain.Ciphertext{"carol": {{A: "1", B: "1"}}},
	})
	require.NoError(t, alice.conv.Send(ctx, alice.sess, conv.ID, []byte("last")))

	msgs := bob.receive(t)
	require.Len(t, msgs, 5)
	require.Equal(t, "first", msgs[0].Text())
	for _, m := range msgs[1:4] {
		require.True(t, m.Unreadable)
		require.Empty(t, m.Plaintext)
		require.Equal(t, domain.UnreadableText, m.Text())
	}
	require.Equal(t, "last", msgs[4].Text())

	require.Empty(t, bob.receive(t))
}

func TestReceive_UnknownConversation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, bob := h.user("alice", true), h.user("bob", true)

	conv, err := alice.conv.Create(ctx, alice.sess, []domain.ParticipantID{"bob"})
	require.NoError(t, err)

	// The relay only checks membership for envelopes that name a conversation.
	stray := domain.Envelope{
		Type:    domain.EnvelopeTypeMessage,
		Payload: domain.MessagePayload{SenderID: "alice", Content: "eA=="},
	}
	require.NoError(t, h.client.Deliver(ctx, []domain.ParticipantID{"bob"}, stray))
	require.NoError(t, alice.conv.Send(ctx, alice.sess, conv.ID, []byte("ok")))

	msgs := bob.receive(t)
	require.Len(t, msgs, 2)
	require.True(t, msgs[0].Unreadable)
	require.Equal(t, "ok", msgs[1].Text())
}

func TestCreate_PinsPeerKeys(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, _, carol := h.user("alice", true), h.user("bob", true), h.user("carol", true)

	_, err := alice.conv.Create(ctx, alice.sess, []domain.ParticipantID{"bob"})
	require.NoError(t, err)

	// Someone replaces bob's key on the relay.
	require.NoError(t, h.client.PublishPublicKey(ctx, "bob", carol.sess.Keys.Public.Wire()))
	_, err = alice.conv.Create(ctx, alice.sess, []domain.ParticipantID{"bob"})
	require.ErrorIs(t, err, conversation.ErrKeyChanged)

	_, err = alice.conv.Create(ctx, alice.sess, []domain.ParticipantID{"nobody"})
	require.ErrorIs(t, err, relay.ErrNotFound)
}

func TestCreate_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user("alice", true)
	loner := h.user("", false)

	_, err := alice.conv.Create(ctx, alice.sess, nil)
	require.ErrorIs(t, err, conversation.ErrNoPeers)
	_, err = alice.conv.Create(ctx, alice.sess, []domain.ParticipantID{"alice", ""})
	require.ErrorIs(t, err, conversation.ErrNoPeers)

	_, err = loner.conv.Create(ctx, loner.sess, []domain.ParticipantID{"alice"})
	require.ErrorIs(t, err, conversation.ErrNotRegistered)

	alice.sess.Close()
	_, err = alice.conv.Create(ctx, alice.sess, []domain.ParticipantID{"bob"})
	require.ErrorIs(t, err, conversation.ErrSessionClosed)
}

func TestSend_UnknownConversation(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", true)
	err := alice.conv.Send(context.Background(), alice.sess, "missing", []byte("x"))
	require.ErrorIs(t, err, conversation.ErrUnknownConversation)
}

func TestSync_ListsMemberships(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, bob := h.user("alice", true), h.user("bob", true)

	conv, err := alice.conv.Create(ctx, alice.sess, []domain.ParticipantID{"bob"})
	require.NoError(t, err)

	convs, err := bob.conv.Sync(ctx, bob.sess)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	require.Equal(t, conv.ID, convs[0].ID)

	wrapped, err := senderkey.ParseEncryptedKeyMap(convs[0].EncryptedKeys)
	require.NoError(t, err)
	_, err = senderkey.Unwrap(wrapped, "bob", bob.sess.Keys)
	require.NoError(t, err)
}

func TestReceive_RelayDownKeepsQueue(t *testing.T) {
	h := newHarness(t)
	bob := h.user("bob", true)
	h.server.Close()
	_, err := bob.conv.Receive(context.Background(), bob.sess, 0)
	require.Error(t, err)
}
