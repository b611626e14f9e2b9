package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"elgchat/internal/crypto/elgamal"
	"elgchat/internal/domain"
	"elgchat/internal/util/memzero"
)

// IVBytes is the AES-GCM nonce length.
const IVBytes = 12

var (
	// ErrWrongPasswordOrCorruption is returned when the passphrase is incorrect
	// or the blob has been modified or truncated.
	ErrWrongPasswordOrCorruption = errors.New("wrong passphrase or corrupted private key")
)

// ProtectedBlob is a sealed private key: salt ‖ iv ‖ AES-256-GCM ciphertext.
type ProtectedBlob struct {
	Salt       [SaltBytes]byte
	IV         [IVBytes]byte
	Ciphertext []byte
}

// Bytes returns the binary layout salt ‖ iv ‖ ciphertext.
func (b ProtectedBlob) Bytes() []byte {
	out := make([]byte, 0, SaltBytes+IVBytes+len(b.Ciphertext))
	out = append(out, b.Salt[:]...)
	out = append(out, b.IV[:]...)
	return append(out, b.Ciphertext...)
}

// String returns the base64 storage form.
func (b ProtectedBlob) String() string { return EncodeBase64(b.Bytes()) }

// ParseProtectedBlob decodes the base64 storage form.
func ParseProtectedBlob(s string) (ProtectedBlob, error) {
	raw, err := DecodeBase64(s)
	if err != nil {
		return ProtectedBlob{}, fmt.Errorf("%w: %v", ErrWrongPasswordOrCorruption, err)
	}
	// A GCM tag alone is 16 bytes, so anything shorter cannot be valid.
	if len(raw) < SaltBytes+IVBytes+16 {
		return ProtectedBlob{}, fmt.Errorf("%w: blob too short", ErrWrongPasswordOrCorruption)
	}
	var b ProtectedBlob
	copy(b.Salt[:], raw[:SaltBytes])
	copy(b.IV[:], raw[SaltBytes:SaltBytes+IVBytes])
	b.Ciphertext = append([]byte(nil), raw[SaltBytes+IVBytes:]...)
	return b, nil
}

// Sealer seals and unseals ElGamal private keys under a passphrase.
//
// Every Seal draws a fresh salt and IV, so sealing the same key twice gives
// different blobs. The derived key is wiped after each call and never stored.
type Sealer struct {
	kdf        KDF
	iterations int
	rand       io.Reader
}

// NewSealer returns a Sealer for kdf. iterations applies to PBKDF2 only; 0
// selects DefaultPBKDF2Iterations.
func NewSealer(kdf KDF, iterations int) (*Sealer, error) {
	if iterations == 0 {
		iterations = DefaultPBKDF2Iterations
	}
	if kdf == KDFPBKDF2 && iterations < MinPBKDF2Iterations {
		return nil, fmt.Errorf("pbkdf2 iterations %d below minimum %d", iterations, MinPBKDF2Iterations)
	}
	if _, err := ParseKDF(string(kdf)); err != nil {
		return nil, err
	}
	return &Sealer{kdf: kdf, iterations: iterations, rand: rand.Reader}, nil
}

// SealerFor rebuilds the Sealer a blob was produced with.
func SealerFor(p domain.KDFParams) (*Sealer, error) {
	kdf, err := ParseKDF(p.Name)
	if err != nil {
		return nil, err
	}
	return NewSealer(kdf, p.Iterations)
}

// WithRand returns a copy of s reading salts and IVs from r.
func (s *Sealer) WithRand(r io.Reader) *Sealer {
	c := *s
	c.rand = r
	return &c
}

// Params describes the KDF configuration, for storing alongside the blob.
func (s *Sealer) Params() domain.KDFParams { return s.kdf.Params(s.iterations) }

// Seal encrypts priv under a key derived from passphrase.
func (s *Sealer) Seal(priv elgamal.PrivateKey, passphrase string) (ProtectedBlob, error) {
	var b ProtectedBlob
	if _, err := io.ReadFull(s.rand, b.Salt[:]); err != nil {
		return ProtectedBlob{}, err
	}
	if _, err := io.ReadFull(s.rand, b.IV[:]); err != nil {
		return ProtectedBlob{}, err
	}

	aead, err := s.aead(passphrase, b.Salt[:])
	if err != nil {
		return ProtectedBlob{}, err
	}
	plain := []byte(priv.String())
	defer memzero.Zero(plain)

	b.Ciphertext = aead.Seal(nil, b.IV[:], plain, nil)
	return b, nil
}

// Unseal re-derives the key from the stored salt and decrypts the private key.
func (s *Sealer) Unseal(b ProtectedBlob, passphrase string) (elgamal.PrivateKey, error) {
	aead, err := s.aead(passphrase, b.Salt[:])
	if err != nil {
		return elgamal.PrivateKey{}, err
	}
	plain, err := aead.Open(nil, b.IV[:], b.Ciphertext, nil)
	if err != nil {
		return elgamal.PrivateKey{}, ErrWrongPasswordOrCorruption
	}
	defer memzero.Zero(plain)

	priv, err := elgamal.ParsePrivateKey(string(plain))
	if err != nil {
		return elgamal.PrivateKey{}, fmt.Errorf("%w: %v", ErrWrongPasswordOrCorruption, err)
	}
	return priv, nil
}

func (s *Sealer) aead(passphrase string, salt []byte) (cipher.AEAD, error) {
	kek, err := DeriveKEK(s.kdf, passphrase, salt, s.iterations)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(kek)

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
