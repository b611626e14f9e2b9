// Package domain re-exports the wire and state types of elgchat (keys,
// identity records, conversations, envelopes) and the store, relay and
// service contracts that the rest of the module is written against.
package domain
