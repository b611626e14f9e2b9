package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"

	"elgchat/internal/domain"
)

// KDF names a password-based key derivation function.
type KDF string

const (
	KDFPBKDF2   KDF = "pbkdf2"
	KDFArgon2id KDF = "argon2id"
	KDFScrypt   KDF = "scrypt"
)

const (
	KeyBytes  = 32
	SaltBytes = 16

	// MinPBKDF2Iterations is the floor for PBKDF2-HMAC-SHA256.
	MinPBKDF2Iterations = 100_000
	// DefaultPBKDF2Iterations is used when no iteration count is configured.
	DefaultPBKDF2Iterations = 310_000

	argon2Time    = 3
	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 4
)

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }

// Params returns the wire description of k with the given iteration count.
func (k KDF) Params(iterations int) domain.KDFParams {
	p := domain.KDFParams{Name: string(k)}
	if k == KDFPBKDF2 {
		p.Iterations = iterations
	}
	return p
}

// ParseKDF validates a KDF name. The empty string selects PBKDF2.
func ParseKDF(name string) (KDF, error) {
	switch KDF(name) {
	case "", KDFPBKDF2:
		return KDFPBKDF2, nil
	case KDFArgon2id, KDFScrypt:
		return KDF(name), nil
	default:
		return "", fmt.Errorf("unknown kdf %q", name)
	}
}

// DeriveKEK derives a key-encryption key from a passphrase and salt. The
// iteration count only applies to PBKDF2.
func DeriveKEK(kdf KDF, passphrase string, salt []byte, iterations int) ([]byte, error) {
	if len(salt) != SaltBytes {
		return nil, fmt.Errorf("invalid salt size %d", len(salt))
	}
	switch kdf {
	case KDFPBKDF2:
		if iterations < MinPBKDF2Iterations {
			return nil, fmt.Errorf("pbkdf2 iterations %d below minimum %d", iterations, MinPBKDF2Iterations)
		}
		return pbkdf2.Key([]byte(passphrase), salt, iterations, KeyBytes, sha256.New), nil
	case KDFArgon2id:
		return argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, KeyBytes), nil
	case KDFScrypt:
		N, r, p := scryptParamsDefault()
		return scrypt.Key([]byte(passphrase), salt, N, r, p, KeyBytes)
	default:
		return nil, fmt.Errorf("unknown kdf %q", kdf)
	}
}
