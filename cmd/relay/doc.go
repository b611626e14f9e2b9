// Package main runs the in-memory HTTP relay used by elgchat during
// development and tests. It stores published public keys and conversation
// records, and queues encrypted envelopes for recipients until they fetch
// them.
//
// HTTP API
//
//	POST /keys { "participantId": ..., "publicKey": {p, g, y} }
//	    Store or replace a participant's public key.
//
//	GET /keys/{id}
//	    Return the public key registered for {id}.
//
//	POST /conversations { "participantIds": [...], "encryptedKeys": {...} }
//	    Create a conversation. Every participant needs exactly one wrapped
//	    sender key. The response carries the assigned id.
//
//	GET /conversations?member={id}
//	    List the conversations {id} belongs to, oldest first.
//
//	POST /msg { "recipients": [...], "envelope": {...} }
//	    Enqueue the envelope for every recipient. If the payload timestamp is
//	    zero, the server fills it with the current Unix time.
//
//	GET /msg/{id}?limit=N
//	    Return up to N queued envelopes for {id}. If limit is absent or
//	    greater than the queue length, all queued envelopes are returned.
//
//	POST /msg/{id}/ack { "count": N }
//	    Drop the first N queued envelopes for {id}. If N exceeds the queue
//	    length, the queue is cleared.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Responses are JSON. Non-2xx statuses carry a short error message.
//   - An access log records method, path, remote, status, bytes and
//     duration for each request.
//   - The default listen address is :8080.
//   - Requests are not authenticated. Anyone who knows a participant id can
//     read or acknowledge that participant's queue, so a hostile client can
//     drop someone else's messages. Contents stay end-to-end encrypted; only
//     delivery is at risk. Do not expose this relay beyond a trusted network.
//
// The relay never sees plaintext or private keys; it only stores ciphertext
// and public keys.
package main
