// Package elgamal implements ElGamal encryption over a prime field on top of
// the modular kernel.
//
// Keys are generated with a safe-prime modulus. Messages are encoded as one
// integer per block, prefixed with a marker byte; EncryptBlocks splits
// longer messages into several blocks. Encryption is randomised and
// unauthenticated: callers needing integrity wrap an AEAD around it, as the
// senderkey package does.
//
// Wire forms use decimal strings (see domain.PublicKey and
// domain.Ciphertext) and are only turned back into keys through
// ParsePublicKey, ParsePrivateKey and ParseCiphertext, which reject
// malformed input with ErrKeyFormat.
package elgamal
