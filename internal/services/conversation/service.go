package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"elgchat/internal/crypto/elgamal"
	"elgchat/internal/crypto/modular"
	"elgchat/internal/domain"
	"elgchat/internal/protocol/senderkey"
	"elgchat/internal/relay"
	"elgchat/internal/services/identity"
)

var (
	// ErrNotRegistered is returned when the session has no participant id.
	ErrNotRegistered = errors.New("identity not registered with a relay; run register first")
	// ErrUnknownConversation is returned when neither the local store nor the
	// relay knows a conversation for this participant.
	ErrUnknownConversation = errors.New("unknown conversation")
	// ErrNoPeers is returned when a conversation would contain only its creator.
	ErrNoPeers = errors.New("a conversation needs at least one other participant")
	// ErrKeyChanged is returned when the relay serves a public key for a peer
	// that differs from the one pinned earlier.
	ErrKeyChanged = errors.New("peer public key changed since first use")
	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// Service implements conversation creation, sending and receiving.
//
// Peers' public keys are pinned on first use in the PublicKeyStore; a later
// change is refused with ErrKeyChanged rather than silently trusted.
type Service struct {
	relay domain.RelayClient
	convs domain.ConversationStore
	keys  domain.PublicKeyStore
	src   *modular.Source
	log   zerolog.Logger
	now   func() time.Time
}

// New constructs a conversation service. A nil src selects the kernel's
// default random source.
func New(
	relayClient domain.RelayClient,
	convs domain.ConversationStore,
	keys domain.PublicKeyStore,
	src *modular.Source,
	log zerolog.Logger,
) *Service {
	if src == nil {
		src = modular.Default()
	}
	return &Service{
		relay: relayClient,
		convs: convs,
		keys:  keys,
		src:   src,
		log:   log.With().Str("component", "conversation").Logger(),
		now:   time.Now,
	}
}

// Create starts a conversation between the session owner and peers.
//
// Steps:
//  1. Resolve every peer's public key (relay, checked against the pin).
//  2. Draw a fresh sender key and wrap it for every participant, the creator
//     included, so the creator can recover it from any device holding the
//     identity.
//  3. Post the conversation to the relay, cache it locally and keep the
//     sender key in the session.
func (s *Service) Create(
	ctx context.Context,
	sess *identity.Session,
	peers []domain.ParticipantID,
) (domain.Conversation, error) {
	if err := check(sess); err != nil {
		return domain.Conversation{}, err
	}
	me := sess.ParticipantID

	ids := []domain.ParticipantID{me}
	seen := map[domain.ParticipantID]bool{me: true}
	for _, p := range peers {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		ids = append(ids, p)
	}
	if len(ids) < 2 {
		return domain.Conversation{}, ErrNoPeers
	}

	pubs, err := s.publicKeys(ctx, sess, ids)
	if err != nil {
		return domain.Conversation{}, err
	}
	key, err := senderkey.Generate(s.src)
	if err != nil {
		return domain.Conversation{}, err
	}
	wrapped, err := senderkey.Wrap(s.src, key, pubs)
	if err != nil {
		key.Wipe()
		return domain.Conversation{}, err
	}

	conv, err := s.relay.CreateConversation(ctx, domain.ConversationPayload{
		ParticipantIDs: ids,
		EncryptedKeys:  wrapped.Wire(),
	})
	if err != nil {
		key.Wipe()
		return domain.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	if err := s.convs.SaveConversation(conv); err != nil {
		key.Wipe()
		return domain.Conversation{}, err
	}
	sess.RememberSenderKey(conv.ID, key)
	s.log.Info().Str("conversation", conv.ID.String()).Int("participants", len(ids)).Msg("conversation created")
	return conv, nil
}

// Sync refreshes the local cache with every conversation the relay lists for
// the session owner and returns them.
func (s *Service) Sync(ctx context.Context, sess *identity.Session) ([]domain.Conversation, error) {
	if err := check(sess); err != nil {
		return nil, err
	}
	convs, err := s.relay.FetchConversations(ctx, sess.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}
	for _, c := range convs {
		if err := s.convs.SaveConversation(c); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

// Send encrypts plaintext once under the conversation's sender key and
// delivers it to every other participant.
func (s *Service) Send(
	ctx context.Context,
	sess *identity.Session,
	id domain.ConversationID,
	plaintext []byte,
) error {
	if err := check(sess); err != nil {
		return err
	}
	conv, err := s.conversation(ctx, sess, id)
	if err != nil {
		return err
	}
	key, err := s.senderKey(sess, conv)
	if err != nil {
		return err
	}
	content, err := senderkey.EncryptMessage(key, plaintext)
	if err != nil {
		return err
	}
	return s.deliver(ctx, sess, conv, domain.MessagePayload{Content: content})
}

// SendDirect encrypts plaintext with ElGamal separately for every other
// participant. It needs no sender key, so it works in conversations whose
// key the sender cannot unwrap.
func (s *Service) SendDirect(
	ctx context.Context,
	sess *identity.Session,
	id domain.ConversationID,
	plaintext []byte,
) error {
	if err := check(sess); err != nil {
		return err
	}
	conv, err := s.conversation(ctx, sess, id)
	if err != nil {
		return err
	}
	pubs, err := s.publicKeys(ctx, sess, others(conv, sess.ParticipantID))
	if err != nil {
		return err
	}
	contents, err := senderkey.EncryptDirect(s.src, plaintext, pubs)
	if err != nil {
		return err
	}
	return s.deliver(ctx, sess, conv, domain.MessagePayload{EncryptedContents: contents})
}

func (s *Service) deliver(
	ctx context.Context,
	sess *identity.Session,
	conv domain.Conversation,
	payload domain.MessagePayload,
) error {
	recipients := others(conv, sess.ParticipantID)
	if len(recipients) == 0 {
		return senderkey.ErrNoRecipients
	}
	payload.ConversationID = conv.ID
	payload.SenderID = sess.ParticipantID
	payload.Timestamp = s.now().Unix()
	env := domain.Envelope{Type: domain.EnvelopeTypeMessage, Payload: payload}
	if err := s.relay.Deliver(ctx, recipients, env); err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	s.log.Debug().
		Str("conversation", conv.ID.String()).
		Bool("direct", payload.IsDirect()).
		Int("recipients", len(recipients)).
		Msg("message sent")
	return nil
}

// conversation returns id from the local cache, refreshing from the relay
// once if it is missing.
func (s *Service) conversation(
	ctx context.Context,
	sess *identity.Session,
	id domain.ConversationID,
) (domain.Conversation, error) {
	conv, ok, err := s.convs.LoadConversation(id)
	if err != nil {
		return domain.Conversation{}, err
	}
	if ok {
		return conv, nil
	}
	convs, err := s.Sync(ctx, sess)
	if err != nil {
		return domain.Conversation{}, err
	}
	for _, c := range convs {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Conversation{}, fmt.Errorf("%w %s", ErrUnknownConversation, id)
}

// senderKey returns the session's cached key for conv, unwrapping the
// caller's entry on first use.
func (s *Service) senderKey(sess *identity.Session, conv domain.Conversation) (senderkey.SenderKey, error) {
	if key, ok := sess.SenderKey(conv.ID); ok {
		return key, nil
	}
	wrapped, err := senderkey.ParseEncryptedKeyMap(conv.EncryptedKeys)
	if err != nil {
		return nil, err
	}
	key, err := senderkey.Unwrap(wrapped, sess.ParticipantID, sess.Keys)
	if err != nil {
		return nil, fmt.Errorf("unwrap sender key for %s: %w", conv.ID, err)
	}
	sess.RememberSenderKey(conv.ID, key)
	return key, nil
}

// publicKeys resolves ids to parsed public keys. The session owner's own key
// never leaves memory.
func (s *Service) publicKeys(
	ctx context.Context,
	sess *identity.Session,
	ids []domain.ParticipantID,
) (map[domain.ParticipantID]elgamal.PublicKey, error) {
	out := make(map[domain.ParticipantID]elgamal.PublicKey, len(ids))
	for _, id := range ids {
		if id == sess.ParticipantID {
			out[id] = sess.Keys.Public
			continue
		}
		pk, err := s.peerKey(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = pk
	}
	return out, nil
}

func (s *Service) peerKey(ctx context.Context, id domain.ParticipantID) (elgamal.PublicKey, error) {
	pinned, havePin, err := s.keys.LoadPublicKey(id)
	if err != nil {
		return elgamal.PublicKey{}, err
	}
	w, err := s.relay.FetchPublicKey(ctx, id)
	switch {
	case err == nil:
	case havePin && !errors.Is(err, relay.ErrNotFound) && ctx.Err() == nil:
		// Relay unreachable: the pinned key is still good.
		s.log.Warn().Str("participant", id.String()).Err(err).Msg("using pinned public key")
		w = pinned
	default:
		return elgamal.PublicKey{}, fmt.Errorf("fetch public key for %s: %w", id, err)
	}
	if havePin && w != pinned {
		return elgamal.PublicKey{}, fmt.Errorf("%w: %s", ErrKeyChanged, id)
	}
	pk, err := elgamal.ParsePublicKey(w)
	if err != nil {
		return elgamal.PublicKey{}, fmt.Errorf("public key for %s: %w", id, err)
	}
	if !havePin {
		if err := s.keys.SavePublicKey(id, w); err != nil {
			return elgamal.PublicKey{}, err
		}
	}
	return pk, nil
}

func others(conv domain.Conversation, me domain.ParticipantID) []domain.ParticipantID {
	out := make([]domain.ParticipantID, 0, len(conv.ParticipantIDs))
	for _, p := range conv.ParticipantIDs {
		if p != me {
			out = append(out, p)
		}
	}
	return out
}

func check(sess *identity.Session) error {
	if sess == nil || sess.Closed() {
		return ErrSessionClosed
	}
	if sess.ParticipantID == "" {
		return ErrNotRegistered
	}
	return nil
}
