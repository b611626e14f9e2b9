package store

import (
	"errors"
	"path/filepath"
	"sync"

	"elgchat/internal/domain"
)

const idFilename = "identity.json"

var (
	// ErrIdentityExists is returned when SaveIdentity would replace a record
	// belonging to a different key.
	ErrIdentityExists = errors.New("store: a different identity is already saved")
	// ErrIncompleteIdentity is returned for a record without a public key or
	// sealed private key.
	ErrIncompleteIdentity = errors.New("store: incomplete identity record")
)

// IdentityFileStore persists the local identity record to disk. The private
// key only ever reaches this store already sealed.
type IdentityFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	return &IdentityFileStore{dir: dir}
}

// SaveIdentity writes the record. Re-saving the same public key (after a
// passphrase change or registration) is allowed; replacing it with another
// key is not, so an existing identity has to be removed by hand first.
func (s *IdentityFileStore) SaveIdentity(record domain.IdentityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.PublicKey == (domain.PublicKey{}) || record.ProtectedPrivateKeyBlob == "" {
		return ErrIncompleteIdentity
	}
	path := filepath.Join(s.dir, idFilename)
	var current domain.IdentityRecord
	if err := readJSON(path, &current); err != nil {
		return err
	}
	if current.PublicKey != (domain.PublicKey{}) && current.PublicKey != record.PublicKey {
		return ErrIdentityExists
	}
	return writeJSON(path, record)
}

// LoadIdentity returns the stored record and whether one was present.
func (s *IdentityFileStore) LoadIdentity() (domain.IdentityRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var record domain.IdentityRecord
	if err := readJSON(filepath.Join(s.dir, idFilename), &record); err != nil {
		return domain.IdentityRecord{}, false, err
	}
	if record.ProtectedPrivateKeyBlob == "" {
		return domain.IdentityRecord{}, false, nil
	}
	return record, true, nil
}

// Compile-time assertion that IdentityFileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*IdentityFileStore)(nil)
