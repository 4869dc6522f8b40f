// Package memory provides in-memory store implementations guarded by
// read-write mutexes. It is the default backend for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage"
)

type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation // conversationID -> conversation
	userIndex     map[string][]string             // userID -> []conversationID
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*models.Conversation),
		userIndex:     make(map[string][]string),
	}
}

func (s *ConversationStore) FindByParticipants(_ context.Context, userA, userB, listingID string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.userIndex[userA] {
		conv := s.conversations[id]
		if conv.ListingID != listingID {
			continue
		}
		if (conv.Participants[0] == userA && conv.Participants[1] == userB) ||
			(conv.Participants[0] == userB && conv.Participants[1] == userA) {
			return copyConversation(conv), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *ConversationStore) Create(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyConversation(conv)
	s.conversations[stored.ID] = stored
	s.userIndex[stored.Participants[0]] = append(s.userIndex[stored.Participants[0]], stored.ID)
	s.userIndex[stored.Participants[1]] = append(s.userIndex[stored.Participants[1]], stored.ID)
	return nil
}

func (s *ConversationStore) Get(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyConversation(conv), nil
}

func (s *ConversationStore) ListForUser(_ context.Context, userID string) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*models.Conversation, 0, len(s.userIndex[userID]))
	for _, id := range s.userIndex[userID] {
		result = append(result, copyConversation(s.conversations[id]))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].LastActivity.Equal(result[j].LastActivity) {
			return result[i].LastActivity.After(result[j].LastActivity)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *ConversationStore) SetLastMessage(_ context.Context, conversationID, messageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return storage.ErrNotFound
	}
	conv.LastMessageID = messageID
	// Last activity never moves backwards even if callers race.
	if at.After(conv.LastActivity) {
		conv.LastActivity = at
	}
	return nil
}

func copyConversation(conv *models.Conversation) *models.Conversation {
	c := *conv
	return &c
}
