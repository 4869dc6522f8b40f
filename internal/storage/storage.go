// Package storage declares the store contracts the chat subsystem depends
// on. The memory and postgres packages implement the same semantics so the
// service layer never cares which backend is wired.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
)

// ErrNotFound is returned by lookups that matched nothing. Callers translate
// it into their own taxonomy.
var ErrNotFound = errors.New("record not found")

// ConversationStore owns conversation records and the pair+listing index.
type ConversationStore interface {
	// FindByParticipants looks up the conversation whose participant set is
	// {userA, userB} and whose listing is listingID, regardless of the order
	// the pair is given in. Returns ErrNotFound when absent.
	FindByParticipants(ctx context.Context, userA, userB, listingID string) (*models.Conversation, error)
	Create(ctx context.Context, conv *models.Conversation) error
	Get(ctx context.Context, id string) (*models.Conversation, error)
	// ListForUser returns every conversation the user participates in,
	// ordered by last activity descending, ties broken by id ascending.
	ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error)
	// SetLastMessage updates the last-message reference and last-activity
	// timestamp. Only the delivery coordinator calls this.
	SetLastMessage(ctx context.Context, conversationID, messageID string, at time.Time) error
}

// MessageStore owns the append-only message ledger and its read flags.
type MessageStore interface {
	Append(ctx context.Context, msg *models.Message) error
	Get(ctx context.Context, id string) (*models.Message, error)
	// Page returns up to limit messages of the conversation, newest first,
	// skipping offset, along with the total message count.
	Page(ctx context.Context, conversationID string, offset, limit int) ([]*models.Message, int, error)
	// MarkConversationRead flips every unread message in the conversation
	// not sent by readerID to read, stamping readAt. Returns how many
	// messages transitioned; already-read messages are untouched.
	MarkConversationRead(ctx context.Context, conversationID, readerID string, readAt time.Time) (int, error)
	// CountUnread counts messages across the given conversations whose
	// sender is not userID and whose read flag is false.
	CountUnread(ctx context.Context, userID string, conversationIDs []string) (int, error)
}

// UserStore is the identity collaborator boundary.
type UserStore interface {
	Find(ctx context.Context, id string) (*models.User, error)
}

// ListingStore is the listing collaborator boundary.
type ListingStore interface {
	Get(ctx context.Context, id string) (*models.Listing, error)
}
