// Package relay provides the HTTP side of elgchat's store-and-forward relay:
// a domain.RelayClient implementation and the in-memory Server it talks to.
//
// The relay holds public keys, conversation records with their wrapped
// sender keys, and per-recipient queues of encrypted envelopes. It never sees
// plaintext or private keys.
//
// Supported operations include:
//   - Publishing and fetching public keys.
//   - Creating conversations and listing those a participant belongs to.
//   - Fanning an envelope out to a set of recipients.
//   - Fetching pending envelopes and acknowledging them.
//
// All requests are JSON over HTTP and accept a context for cancellation and
// deadlines. Non-2xx statuses are returned as errors carrying the method, the
// path and the status text; 404 matches ErrNotFound.
//
// Server does not authenticate callers: the queue endpoints trust the
// participant id in the path. It is meant for development and tests.
package relay
