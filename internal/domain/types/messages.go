package types

// EnvelopeTypeMessage is the only envelope type currently produced.
const EnvelopeTypeMessage = "message"

// Envelope is the wire-format message you post/get from the relay.
type Envelope struct {
	Type    string         `json:"type"`
	Payload MessagePayload `json:"payload"`
}

// MessagePayload carries either a sender-key bulk ciphertext in Content, or
// per-recipient asymmetric ciphertext blocks in EncryptedContents.
type MessagePayload struct {
	ConversationID    ConversationID                 `json:"conversationId"`
	SenderID          ParticipantID                  `json:"senderId"`
	Content           string                         `json:"content,omitempty"`
	EncryptedContents map[ParticipantID][]Ciphertext `json:"encryptedContents,omitempty"`
	Timestamp         int64                          `json:"timestamp"`
}

// IsDirect reports whether the payload was encrypted per recipient.
func (p MessagePayload) IsDirect() bool { return len(p.EncryptedContents) > 0 }

// Delivery asks the relay to queue Envelope for every recipient.
type Delivery struct {
	Recipients []ParticipantID `json:"recipients"`
	Envelope   Envelope        `json:"envelope"`
}

// DecryptedMessage is what ConversationService.Receive returns. Unreadable is
// set, and Plaintext empty, when the message could not be decrypted.
type DecryptedMessage struct {
	ConversationID ConversationID `json:"conversationId"`
	From           ParticipantID  `json:"from"`
	Plaintext      []byte         `json:"plaintext,omitempty"`
	Unreadable     bool           `json:"unreadable,omitempty"`
	Direct         bool           `json:"direct,omitempty"`
	Timestamp      int64          `json:"timestamp"`
}

// UnreadableText is shown in place of a message that failed to decrypt.
const UnreadableText = "message unreadable"

// Text returns the plaintext, or UnreadableText for a failed message.
func (m DecryptedMessage) Text() string {
	if m.Unreadable {
		return UnreadableText
	}
	return string(m.Plaintext)
}
