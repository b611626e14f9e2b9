package interfaces

import domaintypes "elgchat/internal/domain/types"

// IdentityStore persists your public key and sealed private key.
type IdentityStore interface {
	SaveIdentity(record domaintypes.IdentityRecord) error
	LoadIdentity() (domaintypes.IdentityRecord, bool, error)
}

// ConversationStore caches conversations and their wrapped sender keys.
type ConversationStore interface {
	SaveConversation(conversation domaintypes.Conversation) error
	LoadConversation(id domaintypes.ConversationID) (domaintypes.Conversation, bool, error)
	ListConversations() ([]domaintypes.Conversation, error)
}

// PublicKeyStore caches peers' public keys fetched from the relay.
type PublicKeyStore interface {
	SavePublicKey(id domaintypes.ParticipantID, key domaintypes.PublicKey) error
	LoadPublicKey(id domaintypes.ParticipantID) (domaintypes.PublicKey, bool, error)
}
