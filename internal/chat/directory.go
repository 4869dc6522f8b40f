// Package chat implements the messaging core: the conversation directory,
// the message ledger, and the service that sequences durable writes before
// real-time broadcast.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/apperr"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage"
)

// Directory owns the (participant pair, listing) -> conversation mapping and
// the membership checks that protect it.
type Directory struct {
	conversations storage.ConversationStore
	listings      storage.ListingStore
	log           *slog.Logger
}

func NewDirectory(conversations storage.ConversationStore, listings storage.ListingStore, log *slog.Logger) *Directory {
	return &Directory{conversations: conversations, listings: listings, log: log}
}

// GetOrCreate returns the conversation between the two users over the given
// listing, creating it on first contact. The second return value reports
// whether a new record was created.
func (d *Directory) GetOrCreate(ctx context.Context, userID, otherID, listingID string) (*models.Conversation, bool, error) {
	if userID == otherID {
		return nil, false, apperr.Validation("you cannot message yourself")
	}
	if _, err := d.listings.Get(ctx, listingID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, apperr.NotFound("listing not found")
		}
		return nil, false, apperr.Internal("failed to look up listing", err)
	}

	conv, err := d.conversations.FindByParticipants(ctx, userID, otherID, listingID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, apperr.Internal("failed to look up conversation", err)
	}

	now := time.Now().UTC()
	conv = &models.Conversation{
		ID:           uuid.NewString(),
		Participants: [2]string{userID, otherID},
		ListingID:    listingID,
		LastActivity: now,
		CreatedAt:    now,
	}
	if err := d.conversations.Create(ctx, conv); err != nil {
		return nil, false, apperr.Internal("failed to create conversation", err)
	}
	d.log.Info("conversation created", "conversation_id", conv.ID, "listing_id", listingID)
	return conv, true, nil
}

// Get loads one conversation and enforces the membership boundary: only a
// participant may see it.
func (d *Directory) Get(ctx context.Context, id, requestingUserID string) (*models.Conversation, error) {
	conv, err := d.conversations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("conversation not found")
		}
		return nil, apperr.Internal("failed to load conversation", err)
	}
	if !conv.HasParticipant(requestingUserID) {
		return nil, apperr.Forbidden("you are not a participant of this conversation")
	}
	return conv, nil
}

// ListForUser returns the user's conversations, most recently active first.
func (d *Directory) ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	convs, err := d.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list conversations", err)
	}
	return convs, nil
}

// RecordActivity moves the conversation's last-message reference forward.
// Only the delivery coordinator calls this, right after a successful append.
func (d *Directory) RecordActivity(ctx context.Context, conversationID, messageID string, at time.Time) error {
	if err := d.conversations.SetLastMessage(ctx, conversationID, messageID, at); err != nil {
		return apperr.Internal("failed to update conversation activity", err)
	}
	return nil
}
