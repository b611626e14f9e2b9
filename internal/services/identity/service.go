package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	"elgchat/internal/crypto"
	"elgchat/internal/crypto/elgamal"
	"elgchat/internal/domain"
	"elgchat/internal/keygen"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
	// ErrNoIdentity is returned when no identity has been generated yet.
	ErrNoIdentity = errors.New("no identity found; run init first")
	// ErrIdentityExists is returned by GenerateIdentity when one is already stored.
	ErrIdentityExists = errors.New("an identity already exists")
)

// Generator produces a sealed key pair for a passphrase. *keygen.Executor
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, passphrase string) (keygen.Result, error)
}

// Service manages identity key creation and access using a backing store.
//
// The identity is an ElGamal key pair. Only the public half and the sealed
// private half are ever written to disk.
type Service struct {
	store  domain.IdentityStore
	gen    Generator
	sealer *crypto.Sealer
	now    func() time.Time
}

// New returns an identity service backed by the given store. gen creates new
// key pairs; sealer reseals on passphrase change.
func New(s domain.IdentityStore, gen Generator, sealer *crypto.Sealer) *Service {
	return &Service{store: s, gen: gen, sealer: sealer, now: time.Now}
}

// GenerateIdentity creates a new key pair, seals the private key under
// passphrase and saves the record.
//
// Steps:
//  1. Check the passphrase policy and that no identity exists yet.
//  2. Ask the Generator for a key pair and its sealed blob. This is the slow
//     part and runs off the caller's goroutine.
//  3. Persist the public key, blob and KDF parameters.
func (s *Service) GenerateIdentity(
	ctx context.Context,
	passphrase string,
) (domain.IdentityRecord, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.IdentityRecord{}, "", ErrWeakPassphrase
	}
	if _, ok, err := s.store.LoadIdentity(); err != nil {
		return domain.IdentityRecord{}, "", err
	} else if ok {
		return domain.IdentityRecord{}, "", ErrIdentityExists
	}

	res, err := s.gen.Generate(ctx, passphrase)
	if err != nil {
		return domain.IdentityRecord{}, "", fmt.Errorf("generate keys: %w", err)
	}
	rec := domain.IdentityRecord{
		PublicKey:               res.PublicKey,
		ProtectedPrivateKeyBlob: res.ProtectedPrivateKeyBlob,
		KDF:                     res.KDF,
		CreatedUTC:              s.now().Unix(),
	}
	if err := s.store.SaveIdentity(rec); err != nil {
		return domain.IdentityRecord{}, "", err
	}
	return rec, crypto.PublicKeyFingerprint(rec.PublicKey), nil
}

// LoadIdentity returns the stored record.
func (s *Service) LoadIdentity() (domain.IdentityRecord, error) {
	rec, ok, err := s.store.LoadIdentity()
	if err != nil {
		return domain.IdentityRecord{}, err
	}
	if !ok {
		return domain.IdentityRecord{}, ErrNoIdentity
	}
	return rec, nil
}

// FingerprintIdentity returns a short fingerprint of the local public key.
// It does not need the passphrase.
func (s *Service) FingerprintIdentity() (domain.Fingerprint, error) {
	rec, err := s.LoadIdentity()
	if err != nil {
		return "", err
	}
	return crypto.PublicKeyFingerprint(rec.PublicKey), nil
}

// Unlock opens the sealed private key and returns a Session holding the key
// pair. The caller must Close the session.
func (s *Service) Unlock(passphrase string) (*Session, error) {
	rec, err := s.LoadIdentity()
	if err != nil {
		return nil, err
	}
	kp, err := open(rec, passphrase)
	if err != nil {
		return nil, err
	}
	return newSession(rec.ParticipantID, kp), nil
}

// ChangePassphrase unseals with the old passphrase and reseals under the new
// one with a fresh salt and IV, using the currently configured KDF.
func (s *Service) ChangePassphrase(oldPassphrase, newPassphrase string) error {
	if !isSecurePassphrase(newPassphrase) {
		return ErrWeakPassphrase
	}
	rec, err := s.LoadIdentity()
	if err != nil {
		return err
	}
	kp, err := open(rec, oldPassphrase)
	if err != nil {
		return err
	}
	defer kp.Private.Wipe()

	blob, err := s.sealer.Seal(kp.Private, newPassphrase)
	if err != nil {
		return fmt.Errorf("reseal private key: %w", err)
	}
	rec.ProtectedPrivateKeyBlob = blob.String()
	rec.KDF = s.sealer.Params()
	return s.store.SaveIdentity(rec)
}

// BindParticipant records the relay participant id the identity registered as.
func (s *Service) BindParticipant(id domain.ParticipantID) (domain.IdentityRecord, error) {
	rec, err := s.LoadIdentity()
	if err != nil {
		return domain.IdentityRecord{}, err
	}
	rec.ParticipantID = id
	if err := s.store.SaveIdentity(rec); err != nil {
		return domain.IdentityRecord{}, err
	}
	return rec, nil
}

// open unseals rec's private key and checks it against the public key.
func open(rec domain.IdentityRecord, passphrase string) (elgamal.KeyPair, error) {
	sealer, err := crypto.SealerFor(rec.KDF)
	if err != nil {
		return elgamal.KeyPair{}, err
	}
	blob, err := crypto.ParseProtectedBlob(rec.ProtectedPrivateKeyBlob)
	if err != nil {
		return elgamal.KeyPair{}, err
	}
	priv, err := sealer.Unseal(blob, passphrase)
	if err != nil {
		return elgamal.KeyPair{}, err
	}
	pub, err := elgamal.ParsePublicKey(rec.PublicKey)
	if err != nil {
		priv.Wipe()
		return elgamal.KeyPair{}, err
	}
	kp := elgamal.KeyPair{Public: pub, Private: priv}
	if err := kp.Validate(); err != nil {
		priv.Wipe()
		return elgamal.KeyPair{}, fmt.Errorf("%w: %v", crypto.ErrWrongPasswordOrCorruption, err)
	}
	return kp, nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertions.
var (
	_ domain.IdentityService = (*Service)(nil)
	_ Generator              = (*keygen.Executor)(nil)
)
