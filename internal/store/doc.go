// Package store provides file-based persistence for elgchat's local state.
//
// It contains concrete implementations of the domain storage interfaces,
// serialising data as JSON on disk with atomic replace. All methods are
// concurrency-safe via internal locking. Files live under the configured
// home directory and are written with mode 0600.
//
// The package includes stores for:
//   - The identity record (IdentityFileStore)
//   - Peers' public keys (PublicKeyFileStore)
//   - Conversations and wrapped sender keys (ConversationFileStore)
//   - Relay registrations (AccountFileStore)
package store
