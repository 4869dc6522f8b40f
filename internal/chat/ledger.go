package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/apperr"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage"
)

const maxPageSize = 100

// Ledger is the append-only message history plus its read-state rules.
type Ledger struct {
	messages         storage.MessageStore
	maxContentLength int
	log              *slog.Logger
}

func NewLedger(messages storage.MessageStore, maxContentLength int, log *slog.Logger) *Ledger {
	return &Ledger{messages: messages, maxContentLength: maxContentLength, log: log}
}

// Append persists a new unread message. The sender must be a participant
// and the content non-empty and within the configured length.
func (l *Ledger) Append(ctx context.Context, conv *models.Conversation, senderID, content string) (*models.Message, error) {
	if !conv.HasParticipant(senderID) {
		return nil, apperr.Forbidden("you are not authorized to send messages in this conversation")
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("message content cannot be empty")
	}
	if utf8.RuneCountInString(content) > l.maxContentLength {
		return nil, apperr.Validation("message content is too long")
	}

	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := l.messages.Append(ctx, msg); err != nil {
		return nil, apperr.Internal("failed to store message", err)
	}
	return msg, nil
}

// MessagePage is one chronological window of a conversation's history.
type MessagePage struct {
	Messages   []*models.Message `json:"messages"`
	Pagination models.Pagination `json:"pagination"`
}

// Page returns the requested page oldest-first and, as a side effect, marks
// every message from the other participant as read. Opening any page of a
// conversation clears all of its unread messages, not just the ones on the
// page; read means "has opened the conversation since this message arrived".
func (l *Ledger) Page(ctx context.Context, conv *models.Conversation, requestingUserID string, page, pageSize int) (*MessagePage, error) {
	if !conv.HasParticipant(requestingUserID) {
		return nil, apperr.Forbidden("you are not authorized to view these messages")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	msgs, total, err := l.messages.Page(ctx, conv.ID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, apperr.Internal("failed to fetch messages", err)
	}

	marked, err := l.messages.MarkConversationRead(ctx, conv.ID, requestingUserID, time.Now().UTC())
	if err != nil {
		return nil, apperr.Internal("failed to mark messages read", err)
	}
	if marked > 0 {
		l.log.Debug("messages marked read", "conversation_id", conv.ID, "count", marked)
	}

	return &MessagePage{
		Messages: lo.Reverse(msgs), // store returns newest first; clients read oldest first
		Pagination: models.Pagination{
			Total: total,
			Page:  page,
			Pages: (total + pageSize - 1) / pageSize,
			Limit: pageSize,
		},
	}, nil
}

// Get loads a single message, used to annotate conversation lists with the
// last message.
func (l *Ledger) Get(ctx context.Context, id string) (*models.Message, error) {
	return l.messages.Get(ctx, id)
}

// UnreadCount counts unread messages addressed to userID across the given
// conversations. Derived purely from ledger state, never a cached counter.
func (l *Ledger) UnreadCount(ctx context.Context, userID string, conversationIDs []string) (int, error) {
	count, err := l.messages.CountUnread(ctx, userID, conversationIDs)
	if err != nil {
		return 0, apperr.Internal("failed to count unread messages", err)
	}
	return count, nil
}
