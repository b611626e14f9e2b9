package types

// ParticipantID identifies a user registered with the relay.
type ParticipantID string

// String returns the string form of the participant identifier.
func (id ParticipantID) String() string { return string(id) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// ConversationID identifies a direct or group conversation.
type ConversationID string

// String returns the string form of the conversation identifier.
func (id ConversationID) String() string { return string(id) }
