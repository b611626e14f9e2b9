// Package crypto holds the password-based private-key protection used by
// elgchat, plus small encoding helpers.
//
// Contents
//
//   - Password KDFs: PBKDF2-HMAC-SHA256 (default), Argon2id and scrypt (DeriveKEK)
//   - Sealing of ElGamal private keys with AES-256-GCM (Sealer, ProtectedBlob)
//   - Public-key fingerprints grouped for reading aloud (PublicKeyFingerprint)
//   - Base64 helpers (EncodeBase64, DecodeBase64)
//
// # Notes
//
// A ProtectedBlob carries no KDF tag; the KDF name and iteration count are
// stored next to it in the identity record and passed back via SealerFor.
// Unsealing never retries: a failed AEAD open is reported once as
// ErrWrongPasswordOrCorruption.
package crypto
