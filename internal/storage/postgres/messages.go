package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage"
)

type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Append(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, created_at, is_read)
		VALUES ($1, $2, $3, $4, $5, false)
	`
	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (s *MessageStore) Get(ctx context.Context, id string) (*models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, created_at, is_read, read_at
		FROM messages WHERE id = $1
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return msg, err
}

func (s *MessageStore) Page(ctx context.Context, conversationID string, offset, limit int) ([]*models.Message, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`
	if err := s.db.QueryRowContext(ctx, countQuery, conversationID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	query := `
		SELECT id, conversation_id, sender_id, content, created_at, is_read, read_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return msgs, total, nil
}

func (s *MessageStore) MarkConversationRead(ctx context.Context, conversationID, readerID string, readAt time.Time) (int, error) {
	query := `
		UPDATE messages
		SET is_read = true, read_at = $3
		WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = false
	`
	result, err := s.db.ExecContext(ctx, query, conversationID, readerID, readAt)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *MessageStore) CountUnread(ctx context.Context, userID string, conversationIDs []string) (int, error) {
	if len(conversationIDs) == 0 {
		return 0, nil
	}
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = ANY($1) AND sender_id <> $2 AND is_read = false
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, pq.Array(conversationIDs), userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var readAt sql.NullTime
	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.CreatedAt, &msg.Read, &readAt)
	if err != nil {
		return nil, err
	}
	if readAt.Valid {
		msg.ReadAt = &readAt.Time
	}
	return msg, nil
}
