package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage"
)

type ConversationStore struct {
	db *sql.DB
}

func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

const conversationColumns = `id, participant_lo, participant_hi, listing_id, COALESCE(last_message_id, ''), last_activity, created_at`

func (s *ConversationStore) FindByParticipants(ctx context.Context, userA, userB, listingID string) (*models.Conversation, error) {
	lo, hi := sortPair(userA, userB)
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE participant_lo = $1 AND participant_hi = $2 AND listing_id = $3
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, lo, hi, listingID))
}

func (s *ConversationStore) Create(ctx context.Context, conv *models.Conversation) error {
	lo, hi := sortPair(conv.Participants[0], conv.Participants[1])
	query := `
		INSERT INTO conversations (id, participant_lo, participant_hi, listing_id, last_activity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query, conv.ID, lo, hi, conv.ListingID, conv.LastActivity, conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (s *ConversationStore) Get(ctx context.Context, id string) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

func (s *ConversationStore) ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE participant_lo = $1 OR participant_hi = $1
		ORDER BY last_activity DESC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	return convs, nil
}

func (s *ConversationStore) SetLastMessage(ctx context.Context, conversationID, messageID string, at time.Time) error {
	query := `
		UPDATE conversations
		SET last_message_id = $2, last_activity = GREATEST(last_activity, $3)
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, conversationID, messageID, at)
	if err != nil {
		return fmt.Errorf("failed to update conversation activity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *ConversationStore) scanOne(row *sql.Row) (*models.Conversation, error) {
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return conv, err
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := row.Scan(
		&conv.ID, &conv.Participants[0], &conv.Participants[1], &conv.ListingID,
		&conv.LastMessageID, &conv.LastActivity, &conv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return conv, nil
}
