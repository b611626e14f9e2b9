package identity

import (
	"sync"

	"elgchat/internal/crypto/elgamal"
	"elgchat/internal/domain"
	"elgchat/internal/protocol/senderkey"
)

// Session is an unlocked identity: the key pair in memory plus the sender
// keys unwrapped so far. Close wipes all of it.
type Session struct {
	ParticipantID domain.ParticipantID
	Keys          elgamal.KeyPair

	mu         sync.Mutex
	senderKeys map[domain.ConversationID]senderkey.SenderKey
	closed     bool
}

func newSession(id domain.ParticipantID, kp elgamal.KeyPair) *Session {
	return &Session{
		ParticipantID: id,
		Keys:          kp,
		senderKeys:    make(map[domain.ConversationID]senderkey.SenderKey),
	}
}

// SenderKey returns the cached sender key for a conversation.
func (s *Session) SenderKey(id domain.ConversationID) (senderkey.SenderKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.senderKeys[id]
	return k, ok
}

// RememberSenderKey caches key for a conversation until Close. It is a no-op
// on a closed session.
func (s *Session) RememberSenderKey(id domain.ConversationID, key senderkey.SenderKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		key.Wipe()
		return
	}
	if old, ok := s.senderKeys[id]; ok {
		old.Wipe()
	}
	s.senderKeys[id] = key
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close zeroes the private key and every cached sender key. It is safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, k := range s.senderKeys {
		k.Wipe()
		delete(s.senderKeys, id)
	}
	s.Keys.Private.Wipe()
}
