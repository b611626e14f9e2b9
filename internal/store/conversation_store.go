package store

import (
	"path/filepath"
	"sort"
	"sync"

	"elgchat/internal/domain"
)

const conversationsFilename = "conversations.json"

// ConversationFileStore caches conversations, with their wrapped sender keys,
// as seen on the relay.
type ConversationFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewConversationFileStore returns a ConversationFileStore rooted at dir.
func NewConversationFileStore(dir string) *ConversationFileStore {
	return &ConversationFileStore{dir: dir}
}

// SaveConversation writes or replaces a conversation by ID.
func (s *ConversationFileStore) SaveConversation(conv domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, conversationsFilename)
	convs := map[domain.ConversationID]domain.Conversation{}
	if err := readJSON(path, &convs); err != nil {
		return err
	}
	convs[conv.ID] = conv
	return writeJSON(path, convs)
}

// LoadConversation retrieves a stored conversation.
func (s *ConversationFileStore) LoadConversation(id domain.ConversationID) (domain.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.read()
	if err != nil {
		return domain.Conversation{}, false, err
	}
	conv, ok := convs[id]
	return conv, ok, nil
}

// ListConversations returns every stored conversation, oldest first.
func (s *ConversationFileStore) ListConversations() ([]domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Conversation, 0, len(convs))
	for _, c := range convs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedUTC != out[j].CreatedUTC {
			return out[i].CreatedUTC < out[j].CreatedUTC
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *ConversationFileStore) read() (map[domain.ConversationID]domain.Conversation, error) {
	convs := map[domain.ConversationID]domain.Conversation{}
	if err := readJSON(filepath.Join(s.dir, conversationsFilename), &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// Compile-time assertion that ConversationFileStore implements domain.ConversationStore.
var _ domain.ConversationStore = (*ConversationFileStore)(nil)
