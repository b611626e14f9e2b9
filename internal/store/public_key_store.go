package store

import (
	"path/filepath"
	"sync"

	"elgchat/internal/domain"
)

const publicKeysFile = "public_keys.json"

// PublicKeyFileStore caches peers' public keys so conversations can be
// created without refetching every member.
type PublicKeyFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewPublicKeyFileStore returns a PublicKeyFileStore rooted at dir.
func NewPublicKeyFileStore(dir string) *PublicKeyFileStore {
	return &PublicKeyFileStore{dir: dir}
}

// SavePublicKey records the key last seen for id.
func (s *PublicKeyFileStore) SavePublicKey(id domain.ParticipantID, key domain.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, publicKeysFile)
	keys := map[domain.ParticipantID]domain.PublicKey{}
	if err := readJSON(path, &keys); err != nil {
		return err
	}
	keys[id] = key
	return writeJSON(path, keys)
}

// LoadPublicKey returns the cached key for id and whether it was present.
func (s *PublicKeyFileStore) LoadPublicKey(id domain.ParticipantID) (domain.PublicKey, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := map[domain.ParticipantID]domain.PublicKey{}
	if err := readJSON(filepath.Join(s.dir, publicKeysFile), &keys); err != nil {
		return domain.PublicKey{}, false, err
	}
	k, ok := keys[id]
	return k, ok, nil
}

// Compile-time assertion that PublicKeyFileStore implements domain.PublicKeyStore.
var _ domain.PublicKeyStore = (*PublicKeyFileStore)(nil)
