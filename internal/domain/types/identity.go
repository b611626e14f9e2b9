package types

// IdentityRecord is what is persisted locally for the user: the public key
// in the clear and the private key only in sealed form.
type IdentityRecord struct {
	ParticipantID           ParticipantID `json:"participantId,omitempty"`
	PublicKey               PublicKey     `json:"publicKey"`
	ProtectedPrivateKeyBlob string        `json:"protectedPrivateKeyBlob"`
	KDF                     KDFParams     `json:"kdf"`
	CreatedUTC              int64         `json:"createdUtc"`
}
