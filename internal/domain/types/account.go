package types

// AccountProfile records a registration of the local identity on a relay.
type AccountProfile struct {
	ServerURL     string        `json:"server_url"`
	ParticipantID ParticipantID `json:"participant_id"`
	Fingerprint   Fingerprint   `json:"fingerprint"`
	RegisteredUTC int64         `json:"registered_utc"`
}
