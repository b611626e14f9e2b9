// Package keygen runs ElGamal key generation and private-key sealing off the
// interactive path.
//
// An Executor owns one worker goroutine with a Start/Stop lifecycle. Callers
// exchange messages with it only: a Request goes in through Submit and one
// Response comes back on the returned channel. The state machine is
//
//	Idle → Requested → Running → {Succeeded, Failed}
//
// and a new request may be submitted from Idle, Succeeded or Failed. Stop, or
// cancelling the request context, abandons in-flight work and answers with
// ErrCancelled; no partial result is ever delivered.
//
// ServeJSON exposes the same contract as newline-delimited JSON:
//
//	{"action":"generateKeys","password":"..."}
//	{"success":true,"data":{"publicKey":{...},"privateKey":"...","protectedPrivateKeyBlob":"..."}}
//	{"success":false,"error":"..."}
package keygen
