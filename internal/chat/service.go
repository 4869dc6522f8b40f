package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage"
)

// Broadcaster pushes a payload to every connection currently joined to a
// room. The gateway hub implements it; a nil broadcaster means the caller
// is not connection-aware and sends are durable-only.
type Broadcaster interface {
	Broadcast(roomID string, data []byte) int
}

// Presence reports whether a user currently holds a live connection.
type Presence interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// Service is the delivery coordinator: it sequences persistence before
// broadcast and assembles the annotated views the API returns.
type Service struct {
	directory   *Directory
	ledger      *Ledger
	users       storage.UserStore
	listings    storage.ListingStore
	broadcaster Broadcaster
	presence    Presence
	log         *slog.Logger

	mu        sync.Mutex
	sendLocks map[string]*sync.Mutex // conversationID -> send serializer
}

func NewService(directory *Directory, ledger *Ledger, users storage.UserStore, listings storage.ListingStore, log *slog.Logger) *Service {
	return &Service{
		directory: directory,
		ledger:    ledger,
		users:     users,
		listings:  listings,
		log:       log,
		sendLocks: make(map[string]*sync.Mutex),
	}
}

// AttachBroadcaster wires the gateway hub in after construction; the hub
// needs the directory for join checks, so the two are built in sequence.
func (s *Service) AttachBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// AttachPresence enables online flags on conversation views.
func (s *Service) AttachPresence(p Presence) {
	s.presence = p
}

// StartConversation creates or returns the conversation between the caller
// and otherID over listingID. Idempotent: repeated calls, in either
// participant order, land on the same conversation.
func (s *Service) StartConversation(ctx context.Context, userID, otherID, listingID string) (*models.ConversationView, bool, error) {
	conv, created, err := s.directory.GetOrCreate(ctx, userID, otherID, listingID)
	if err != nil {
		return nil, false, err
	}
	return s.annotate(ctx, conv, userID), created, nil
}

// ListConversations returns the caller's conversations, most recently
// active first, annotated for display.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]*models.ConversationView, error) {
	convs, err := s.directory.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]*models.ConversationView, 0, len(convs))
	for _, conv := range convs {
		views = append(views, s.annotate(ctx, conv, userID))
	}
	return views, nil
}

// GetConversation returns one conversation after the membership check.
func (s *Service) GetConversation(ctx context.Context, id, userID string) (*models.ConversationView, error) {
	conv, err := s.directory.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.annotate(ctx, conv, userID), nil
}

// Send persists a message, records the conversation activity, then pushes
// the persisted record to the conversation room. Persistence and broadcast
// are sequential: a failed append means no broadcast, while a failed or
// absent broadcast never fails the write. Sends to the same conversation
// are serialized so delivery order always matches append order.
func (s *Service) Send(ctx context.Context, conversationID, senderID, content string) (*models.Message, error) {
	conv, err := s.directory.Get(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	lock := s.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := s.ledger.Append(ctx, conv, senderID, content)
	if err != nil {
		return nil, err
	}
	if err := s.directory.RecordActivity(ctx, conversationID, msg.ID, msg.CreatedAt); err != nil {
		return nil, err
	}

	s.broadcastMessage(conversationID, msg)
	return msg, nil
}

// Page returns one page of the conversation's history for the caller,
// marking the conversation read as a side effect.
func (s *Service) Page(ctx context.Context, conversationID, userID string, page, pageSize int) (*MessagePage, error) {
	conv, err := s.directory.Get(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Page(ctx, conv, userID, page, pageSize)
}

// UnreadCount aggregates unread messages across every conversation the user
// participates in. Pure read; no read-marking happens here.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	convs, err := s.directory.ListForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	ids := lo.Map(convs, func(c *models.Conversation, _ int) string { return c.ID })
	return s.ledger.UnreadCount(ctx, userID, ids)
}

// IsParticipant backs the gateway's join check.
func (s *Service) IsParticipant(ctx context.Context, conversationID, userID string) error {
	_, err := s.directory.Get(ctx, conversationID, userID)
	return err
}

func (s *Service) broadcastMessage(conversationID string, msg *models.Message) {
	if s.broadcaster == nil {
		return
	}
	event, err := models.NewEvent(models.EventNewMessage, msg)
	if err != nil {
		s.log.Error("failed to encode new-message event", "error", err)
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.log.Error("failed to encode new-message event", "error", err)
		return
	}
	delivered := s.broadcaster.Broadcast(conversationID, data)
	s.log.Debug("message broadcast", "conversation_id", conversationID, "message_id", msg.ID, "delivered", delivered)
}

func (s *Service) conversationLock(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.sendLocks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		s.sendLocks[conversationID] = lock
	}
	return lock
}

// annotate builds the display view of a conversation for one participant.
// Annotation lookups are best-effort: a missing profile or listing degrades
// the view instead of failing the request.
func (s *Service) annotate(ctx context.Context, conv *models.Conversation, userID string) *models.ConversationView {
	view := &models.ConversationView{
		ID:           conv.ID,
		Participants: conv.Participants,
		LastActivity: conv.LastActivity,
		CreatedAt:    conv.CreatedAt,
	}

	otherID := conv.Other(userID)
	view.OtherParticipant = models.PublicProfile{ID: otherID}
	if other, err := s.users.Find(ctx, otherID); err == nil {
		view.OtherParticipant = other.Public()
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("failed to load participant profile", "user_id", otherID, "error", err)
	}

	if listing, err := s.listings.Get(ctx, conv.ListingID); err == nil {
		summary := listing.Summary()
		view.Listing = &summary
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("failed to load listing", "listing_id", conv.ListingID, "error", err)
	}

	if conv.LastMessageID != "" {
		if msg, err := s.ledger.Get(ctx, conv.LastMessageID); err == nil {
			view.LastMessage = msg
		} else if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("failed to load last message", "message_id", conv.LastMessageID, "error", err)
		}
	}

	if s.presence != nil {
		if online, err := s.presence.IsOnline(ctx, otherID); err == nil {
			view.OtherOnline = online
		} else {
			s.log.Warn("presence lookup failed", "user_id", otherID, "error", err)
		}
	}

	return view
}
