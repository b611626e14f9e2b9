package senderkey

import (
	"fmt"

	"elgchat/internal/crypto/elgamal"
	"elgchat/internal/crypto/modular"
	"elgchat/internal/domain"
)

// EncryptDirect encrypts plaintext with ElGamal separately for each
// recipient, splitting it into as many blocks as each modulus needs. No
// sender key is involved.
func EncryptDirect(
	src *modular.Source,
	plaintext []byte,
	recipients map[domain.ParticipantID]elgamal.PublicKey,
) (map[domain.ParticipantID][]domain.Ciphertext, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	out := make(map[domain.ParticipantID][]domain.Ciphertext, len(recipients))
	for id, pub := range recipients {
		cts, err := elgamal.EncryptBlocks(src, plaintext, pub)
		if err != nil {
			return nil, fmt.Errorf("encrypt for %s: %w", id, err)
		}
		out[id] = elgamal.WireBlocks(cts)
	}
	return out, nil
}

// DecryptDirect decrypts the caller's entry of a per-recipient message.
func DecryptDirect(
	contents map[domain.ParticipantID][]domain.Ciphertext,
	me domain.ParticipantID,
	keys elgamal.KeyPair,
) ([]byte, error) {
	w, ok := contents[me]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrNoEntry, me)
	}
	cts, err := elgamal.ParseBlocks(w)
	if err != nil {
		return nil, err
	}
	return elgamal.DecryptBlocks(cts, keys.Private, keys.Public.P)
}
