// Package identity manages creation, sealing and unlocking of the local
// identity.
//
// It enforces passphrase policy, hands key generation to a background
// Generator, persists the resulting record via the domain.IdentityStore and
// opens it into an in-memory Session on demand.
package identity
