package interfaces

import (
	"context"

	domaintypes "elgchat/internal/domain/types"
)

// IdentityService creates and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(ctx context.Context, passphrase string) (
		domaintypes.IdentityRecord,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity() (domaintypes.IdentityRecord, error)
	FingerprintIdentity() (domaintypes.Fingerprint, error)
	ChangePassphrase(oldPassphrase, newPassphrase string) error
}
