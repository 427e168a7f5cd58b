package repository

import (
	"context"
	"fmt"
	"time"

	"eduhacktech-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository handles database operations for chat messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create creates a new message
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, text, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Text, msg.ReadAt, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByConversation retrieves messages of a conversation oldest first, with pagination
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*models.Message, int, error) {
	countQuery := `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`
	var total int
	if err := r.db.QueryRow(ctx, countQuery, conversationID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	query := `
		SELECT id, conversation_id, sender_id, text, read_at, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Text, &msg.ReadAt, &msg.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating messages: %w", err)
	}

	return msgs, total, nil
}

// MarkRead stamps every unread message in the conversation not sent by readerID
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	query := `
		UPDATE messages SET read_at = $3
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL
	`
	result, err := r.db.Exec(ctx, query, conversationID, readerID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return result.RowsAffected(), nil
}

// UnreadCounts returns per-conversation unread counts for the user, skipping conversations with none
func (r *MessageRepository) UnreadCounts(ctx context.Context, userID string) ([]models.UnreadCount, error) {
	query := `
		SELECT c.id,
			CASE WHEN c.user_a_id = $1 THEN c.user_b_id ELSE c.user_a_id END,
			COUNT(m.id)
		FROM conversations c
		JOIN messages m ON m.conversation_id = c.id
		WHERE (c.user_a_id = $1 OR c.user_b_id = $1)
			AND m.sender_id <> $1
			AND m.read_at IS NULL
		GROUP BY c.id, c.user_a_id, c.user_b_id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}
	defer rows.Close()

	var counts []models.UnreadCount
	for rows.Next() {
		var uc models.UnreadCount
		if err := rows.Scan(&uc.ConversationID, &uc.OtherUserID, &uc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan unread count: %w", err)
		}
		counts = append(counts, uc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unread counts: %w", err)
	}

	return counts, nil
}
