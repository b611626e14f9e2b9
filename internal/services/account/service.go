package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"elgchat/internal/crypto"
	"elgchat/internal/domain"
)

// ErrInvalidParticipantID is returned for empty ids or ids containing "/".
var ErrInvalidParticipantID = errors.New("participant id must be non-empty and contain no '/'")

// Identities is the slice of the identity service registration needs.
type Identities interface {
	LoadIdentity() (domain.IdentityRecord, error)
	BindParticipant(id domain.ParticipantID) (domain.IdentityRecord, error)
}

// Service publishes the public key and remembers where it was registered.
type Service struct {
	ids      Identities
	accounts domain.AccountStore
	relay    domain.RelayClient
	now      func() time.Time
}

// New returns an account service.
func New(ids Identities, accounts domain.AccountStore, relay domain.RelayClient) *Service {
	return &Service{ids: ids, accounts: accounts, relay: relay, now: time.Now}
}

// Register publishes the local public key under id on the relay at
// serverURL, then records the participant id on the identity and the
// registration in the account store. Registering again replaces the key the
// relay holds for id.
func (s *Service) Register(
	ctx context.Context,
	serverURL string,
	id domain.ParticipantID,
) (domain.AccountProfile, error) {
	if id == "" || strings.Contains(id.String(), "/") {
		return domain.AccountProfile{}, ErrInvalidParticipantID
	}
	rec, err := s.ids.LoadIdentity()
	if err != nil {
		return domain.AccountProfile{}, err
	}
	if err := s.relay.PublishPublicKey(ctx, id, rec.PublicKey); err != nil {
		return domain.AccountProfile{}, fmt.Errorf("publish public key: %w", err)
	}
	if _, err := s.ids.BindParticipant(id); err != nil {
		return domain.AccountProfile{}, err
	}
	profile := domain.AccountProfile{
		ServerURL:     serverURL,
		ParticipantID: id,
		Fingerprint:   crypto.PublicKeyFingerprint(rec.PublicKey),
		RegisteredUTC: s.now().Unix(),
	}
	if err := s.accounts.SaveAccountProfile(profile); err != nil {
		return domain.AccountProfile{}, err
	}
	return profile, nil
}

// Profile returns the registration recorded for serverURL.
func (s *Service) Profile(serverURL string) (domain.AccountProfile, bool, error) {
	return s.accounts.LoadAccountProfile(serverURL)
}
