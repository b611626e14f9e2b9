package domain

import (
	interfaces "elgchat/internal/domain/interfaces"
	types "elgchat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	ParticipantID       = types.ParticipantID
	Fingerprint         = types.Fingerprint
	ConversationID      = types.ConversationID
	PublicKey           = types.PublicKey
	Ciphertext          = types.Ciphertext
	KDFParams           = types.KDFParams
	IdentityRecord      = types.IdentityRecord
	AccountProfile      = types.AccountProfile
	ConversationPayload = types.ConversationPayload
	Conversation        = types.Conversation
	Envelope            = types.Envelope
	MessagePayload      = types.MessagePayload
	Delivery            = types.Delivery
	DecryptedMessage    = types.DecryptedMessage
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityService   = interfaces.IdentityService
	RelayClient       = interfaces.RelayClient
	IdentityStore     = interfaces.IdentityStore
	ConversationStore = interfaces.ConversationStore
	PublicKeyStore    = interfaces.PublicKeyStore
	AccountStore      = interfaces.AccountStore
)

// Constants re-exported from the types subpackage.
const (
	EnvelopeTypeMessage = types.EnvelopeTypeMessage
	UnreadableText      = types.UnreadableText
)
