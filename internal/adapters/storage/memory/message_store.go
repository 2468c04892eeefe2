package memory

import (
	"context"
	"sync"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

type chatKey struct {
	session domain.SessionID
	persona domain.PersonaName
}

type MessageStore struct {
	mu       sync.RWMutex
	messages map[chatKey][]*domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[chatKey][]*domain.Message),
	}
}

func (s *MessageStore) AppendMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := chatKey{msg.SessionID, msg.Persona}
	s.messages[k] = append(s.messages[k], msg)
	return nil
}

// GetMessages returns the last `limit` messages of one persona chat, oldest
// first. If limit <= 0, returns all.
func (s *MessageStore) GetMessages(_ context.Context, sessionID domain.SessionID, persona domain.PersonaName, limit int) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[chatKey{sessionID, persona}]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MessageStore) ClearMessages(_ context.Context, sessionID domain.SessionID, persona domain.PersonaName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, chatKey{sessionID, persona})
	return nil
}
