package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage"
)

type MessageStore struct {
	mu             sync.RWMutex
	byConversation map[string][]*models.Message // conversationID -> messages in append order
	byID           map[string]*models.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		byConversation: make(map[string][]*models.Message),
		byID:           make(map[string]*models.Message),
	}
}

func (s *MessageStore) Append(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyMessage(msg)
	s.byConversation[stored.ConversationID] = append(s.byConversation[stored.ConversationID], stored)
	s.byID[stored.ID] = stored
	return nil
}

func (s *MessageStore) Get(_ context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyMessage(msg), nil
}

// Page walks the append-ordered history backwards so index 0 of the result
// is the newest message, matching the store contract.
func (s *MessageStore) Page(_ context.Context, conversationID string, offset, limit int) ([]*models.Message, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.byConversation[conversationID]
	total := len(history)
	if offset < 0 {
		offset = 0
	}
	result := make([]*models.Message, 0, limit)
	for i := total - 1 - offset; i >= 0 && len(result) < limit; i-- {
		result = append(result, copyMessage(history[i]))
	}
	return result, total, nil
}

func (s *MessageStore) MarkConversationRead(_ context.Context, conversationID, readerID string, readAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	marked := 0
	for _, msg := range s.byConversation[conversationID] {
		if msg.SenderID == readerID || msg.Read {
			continue
		}
		msg.Read = true
		at := readAt
		msg.ReadAt = &at
		marked++
	}
	return marked, nil
}

func (s *MessageStore) CountUnread(_ context.Context, userID string, conversationIDs []string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, id := range conversationIDs {
		for _, msg := range s.byConversation[id] {
			if msg.SenderID != userID && !msg.Read {
				count++
			}
		}
	}
	return count, nil
}

func copyMessage(msg *models.Message) *models.Message {
	m := *msg
	if msg.ReadAt != nil {
		at := *msg.ReadAt
		m.ReadAt = &at
	}
	return &m
}
