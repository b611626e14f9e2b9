package senderkey

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"elgchat/internal/crypto"
	"elgchat/internal/crypto/elgamal"
	"elgchat/internal/crypto/modular"
	"elgchat/internal/domain"
	"elgchat/internal/util/memzero"
)

// KeyBytes is the length of a raw sender key.
const KeyBytes = 16

// bulkInfo domain-separates the bulk AEAD key derived from a sender key.
var bulkInfo = []byte("elgchat/bulk/v1")

var (
	// ErrDecryptionFailure is returned when a wrapped key or bulk message does
	// not open under the given key.
	ErrDecryptionFailure = elgamal.ErrDecryptionFailure
	// ErrNoEntry is returned by Unwrap when the map has no entry for the caller.
	ErrNoEntry = fmt.Errorf("%w: no wrapped key for participant", elgamal.ErrKeyFormat)
	// ErrNoRecipients is returned when a wrap or direct message has nobody to go to.
	ErrNoRecipients = errors.New("senderkey: no recipients")
)

// SenderKey is a per-conversation symmetric secret.
type SenderKey []byte

// Generate draws a fresh sender key from r; a nil r means the kernel's
// default source.
func Generate(r io.Reader) (SenderKey, error) {
	if r == nil {
		r = modular.Default()
	}
	k := make(SenderKey, KeyBytes)
	if _, err := io.ReadFull(r, k); err != nil {
		return nil, err
	}
	return k, nil
}

// Hex returns the hex encoding that is wrapped for each participant.
func (k SenderKey) Hex() string { return hex.EncodeToString(k) }

// Wipe zeroes the key in place.
func (k SenderKey) Wipe() { memzero.Zero(k) }

// ParseHex decodes a hex-encoded sender key.
func ParseHex(s string) (SenderKey, error) {
	k, err := hex.DecodeString(s)
	if err != nil || len(k) != KeyBytes {
		return nil, fmt.Errorf("%w: malformed sender key", ErrDecryptionFailure)
	}
	return k, nil
}

// EncryptedKeyMap holds a sender key wrapped once per participant.
type EncryptedKeyMap map[domain.ParticipantID]elgamal.Ciphertext

// Wire converts the map to its transport form.
func (m EncryptedKeyMap) Wire() map[domain.ParticipantID]domain.Ciphertext {
	out := make(map[domain.ParticipantID]domain.Ciphertext, len(m))
	for id, ct := range m {
		out[id] = ct.Wire()
	}
	return out
}

// ParseEncryptedKeyMap validates a transport-form key map.
func ParseEncryptedKeyMap(w map[domain.ParticipantID]domain.Ciphertext) (EncryptedKeyMap, error) {
	out := make(EncryptedKeyMap, len(w))
	for id, c := range w {
		ct, err := elgamal.ParseCiphertext(c)
		if err != nil {
			return nil, fmt.Errorf("key for %s: %w", id, err)
		}
		out[id] = ct
	}
	return out, nil
}

// Wrap encrypts the hex form of key independently for every participant.
// The caller includes itself in participants so it can recover the key later.
func Wrap(src *modular.Source, key SenderKey, participants map[domain.ParticipantID]elgamal.PublicKey) (EncryptedKeyMap, error) {
	if len(participants) == 0 {
		return nil, ErrNoRecipients
	}
	plain := []byte(key.Hex())
	defer memzero.Zero(plain)

	out := make(EncryptedKeyMap, len(participants))
	for id, pub := range participants {
		ct, err := elgamal.Encrypt(src, plain, pub)
		if err != nil {
			return nil, fmt.Errorf("wrap for %s: %w", id, err)
		}
		out[id] = ct
	}
	return out, nil
}

// Unwrap decrypts the caller's entry of m with its own key pair.
func Unwrap(m EncryptedKeyMap, me domain.ParticipantID, keys elgamal.KeyPair) (SenderKey, error) {
	ct, ok := m[me]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrNoEntry, me)
	}
	plain, err := elgamal.Decrypt(ct, keys.Private, keys.Public.P)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(plain)
	return ParseHex(string(plain))
}

// EncryptMessage seals plaintext under key with XChaCha20-Poly1305 and
// returns base64(nonce ‖ ciphertext).
func EncryptMessage(key SenderKey, plaintext []byte) (string, error) {
	aead, err := bulkAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(modular.Default(), nonce); err != nil {
		return "", err
	}
	return crypto.EncodeBase64(aead.Seal(nonce, nonce, plaintext, nil)), nil
}

// DecryptMessage opens a ciphertext produced by EncryptMessage.
func DecryptMessage(key SenderKey, ciphertext string) ([]byte, error) {
	raw, err := crypto.DecodeBase64(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailure, err)
	}
	aead, err := bulkAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailure)
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrDecryptionFailure
	}
	return plain, nil
}

// Result is the outcome of decrypting one message of a batch.
type Result struct {
	Plaintext []byte
	Err       error
}

// DecryptBatch decrypts every ciphertext independently; one failure never
// affects the others.
func DecryptBatch(key SenderKey, ciphertexts []string) []Result {
	out := make([]Result, len(ciphertexts))
	for i, c := range ciphertexts {
		out[i].Plaintext, out[i].Err = DecryptMessage(key, c)
	}
	return out
}

func bulkAEAD(key SenderKey) (cipher.AEAD, error) {
	if len(key) != KeyBytes {
		return nil, fmt.Errorf("%w: sender key must be %d bytes", ErrDecryptionFailure, KeyBytes)
	}
	k := make([]byte, chacha20poly1305.KeySize)
	defer memzero.Zero(k)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, bulkInfo), k); err != nil {
		return nil, err
	}
	return chacha20poly1305.NewX(k)
}
