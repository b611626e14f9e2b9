// Package senderkey implements hybrid group encryption.
//
// A conversation gets one random 16-byte sender key. Its hex form is wrapped
// with ElGamal once for every participant (the creator included) and the
// resulting EncryptedKeyMap is published with the conversation. Each member
// unwraps only its own entry. Message bodies are then sealed with
// XChaCha20-Poly1305 under a key expanded from the sender key with
// HKDF-SHA256, so the asymmetric cost is paid once per membership rather
// than once per message.
//
// The direct variant (EncryptDirect) skips the sender key and encrypts the
// body itself with ElGamal for each recipient.
//
// Nothing here retries. DecryptBatch isolates failures per message so one bad
// ciphertext never hides the rest.
package senderkey
