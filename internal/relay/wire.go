package relay

import "elgchat/internal/domain"

// KeyRecord is the body of POST /keys and GET /keys/{id}.
type KeyRecord struct {
	ParticipantID domain.ParticipantID `json:"participantId"`
	PublicKey     domain.PublicKey     `json:"publicKey"`
}

// AckRequest is the body of POST /msg/{id}/ack.
type AckRequest struct {
	Count int `json:"count"`
}
