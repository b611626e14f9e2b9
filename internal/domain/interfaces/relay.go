package interfaces

import (
	"context"

	domaintypes "elgchat/internal/domain/types"
)

// RelayClient is how we talk to the central relay server, all with context.
// The relay only ever sees public keys and ciphertext.
type RelayClient interface {
	PublishPublicKey(
		ctx context.Context,
		id domaintypes.ParticipantID,
		key domaintypes.PublicKey,
	) error
	FetchPublicKey(
		ctx context.Context,
		id domaintypes.ParticipantID,
	) (domaintypes.PublicKey, error)

	CreateConversation(
		ctx context.Context,
		payload domaintypes.ConversationPayload,
	) (domaintypes.Conversation, error)
	FetchConversations(
		ctx context.Context,
		member domaintypes.ParticipantID,
	) ([]domaintypes.Conversation, error)

	Deliver(
		ctx context.Context,
		recipients []domaintypes.ParticipantID,
		envelope domaintypes.Envelope,
	) error
	FetchMessages(
		ctx context.Context,
		me domaintypes.ParticipantID,
		limit int,
	) ([]domaintypes.Envelope, error)
	AckMessages(ctx context.Context, me domaintypes.ParticipantID, count int) error
}
