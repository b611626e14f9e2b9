package types

// ConversationPayload is posted to the relay when a conversation is created.
// EncryptedKeys holds the sender key wrapped once per participant, the
// creator included.
type ConversationPayload struct {
	ParticipantIDs []ParticipantID              `json:"participantIds"`
	EncryptedKeys  map[ParticipantID]Ciphertext `json:"encryptedKeys"`
}

// Conversation is a ConversationPayload after the relay assigned it an ID.
type Conversation struct {
	ID ConversationID `json:"id"`
	ConversationPayload
	CreatedUTC int64 `json:"createdUtc"`
}

// HasParticipant reports whether id is a member of the conversation.
func (c Conversation) HasParticipant(id ParticipantID) bool {
	for _, p := range c.ParticipantIDs {
		if p == id {
			return true
		}
	}
	return false
}
